package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"enginearena/internal/core"
	"enginearena/internal/engine"
	"enginearena/internal/engine/enginetest"
	"enginearena/internal/registry"
	"enginearena/internal/runner"
	"enginearena/internal/storage"
	"enginearena/internal/tournament"

	"github.com/gofiber/fiber/v2"
	"github.com/lixenwraith/auth"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	enginetest.MaybeServe()
	os.Exit(m.Run())
}

var testSecret = []byte("arena-test-secret-0123456789abcdef")

const duelBody = `{"name":"Duel","format":"round-robin","move_time":"200ms","move_delay":1,
	"engines":[{"name":"Alpha","path":"alpha"},{"name":"Bravo","path":"bravo"}]}`

type testServer struct {
	app   *fiber.App
	reg   *registry.Registry
	store *storage.Store
	token string
}

func newTestServer(t *testing.T, withStore bool) *testServer {
	t.Helper()

	var (
		store *storage.Store
		rec   runner.Recorder
	)
	if withStore {
		var err error
		store, err = storage.NewStore(filepath.Join(t.TempDir(), "arena.db"), true)
		require.NoError(t, err)
		require.NoError(t, store.InitDB())
		t.Cleanup(func() { store.Close() })
		rec = store
	}

	reg := registry.New(registry.Options{
		Recorder: rec,
		NewEngine: func(*tournament.Player) runner.Engine {
			return engine.New(enginetest.Config(enginetest.ModeNoMove))
		},
		WaitTimeout: 300 * time.Millisecond,
		Logger:      zerolog.Nop(),
	})
	t.Cleanup(func() { _ = reg.Close(5 * time.Second) })

	token, err := auth.GenerateHS256Token(testSecret, "tester", nil, time.Hour)
	require.NoError(t, err)

	validate := func(tok string) (string, map[string]any, error) {
		return auth.ValidateHS256Token(testSecret, tok)
	}
	return &testServer{
		app:   NewFiberApp(reg, store, validate, true),
		reg:   reg,
		store: store,
		token: token,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string, authed bool) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, true)
	code, body := s.do(t, fiber.MethodGet, "/health", "", false)
	require.Equal(t, fiber.StatusOK, code)
	health := decode[map[string]any](t, body)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "ok", health["storage"])

	bare := newTestServer(t, false)
	_, body = bare.do(t, fiber.MethodGet, "/health", "", false)
	assert.Equal(t, "disabled", decode[map[string]any](t, body)["storage"])

	code, body = bare.do(t, fiber.MethodGet, "/api/v1/ratings", "", false)
	assert.Equal(t, fiber.StatusServiceUnavailable, code)
	assert.Equal(t, core.ErrStorageDisabled, decode[core.ErrorResponse](t, body).Code)
}

func TestCreateRequiresTokenAndValidBody(t *testing.T) {
	s := newTestServer(t, false)

	code, body := s.do(t, fiber.MethodPost, "/api/v1/tournaments", duelBody, false)
	assert.Equal(t, fiber.StatusUnauthorized, code)
	assert.Equal(t, core.ErrUnauthorized, decode[core.ErrorResponse](t, body).Code)

	code, body = s.do(t, fiber.MethodPost, "/api/v1/tournaments", `{"name":"Solo","format":"swiss","engines":[{"name":"A","path":"a"}]}`, true)
	assert.Equal(t, fiber.StatusBadRequest, code)
	errResp := decode[core.ErrorResponse](t, body)
	assert.Equal(t, "validation failed", errResp.Error)
	assert.Contains(t, errResp.Details, "at least 2 entries")

	code, _ = s.do(t, fiber.MethodPost, "/api/v1/tournaments", `{not json`, true)
	assert.Equal(t, fiber.StatusBadRequest, code)

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/tournaments", strings.NewReader(duelBody))
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Authorization", "Bearer "+s.token)
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)

	assert.Empty(t, s.reg.List())
}

func TestUnknownAndInvalidIDs(t *testing.T) {
	s := newTestServer(t, false)

	code, _ := s.do(t, fiber.MethodGet, "/api/v1/tournaments/not-a-uuid", "", false)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, body := s.do(t, fiber.MethodGet, "/api/v1/tournaments/6f1c2e62-3a51-4c1e-9d7a-0b0c3c4d5e6f", "", false)
	assert.Equal(t, fiber.StatusNotFound, code)
	assert.Equal(t, core.ErrTournamentNotFound, decode[core.ErrorResponse](t, body).Code)

	code, _ = s.do(t, fiber.MethodPost, "/api/v1/tournaments/6f1c2e62-3a51-4c1e-9d7a-0b0c3c4d5e6f/start", "", true)
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestTournamentLifecycle(t *testing.T) {
	s := newTestServer(t, true)

	code, body := s.do(t, fiber.MethodPost, "/api/v1/tournaments", duelBody, true)
	require.Equal(t, fiber.StatusCreated, code, string(body))
	created := decode[registry.View](t, body)
	assert.Equal(t, "Duel", created.Name)
	assert.Equal(t, "created", created.State)
	base := "/api/v1/tournaments/" + created.ID

	code, body = s.do(t, fiber.MethodGet, "/api/v1/tournaments", "", false)
	require.Equal(t, fiber.StatusOK, code)
	assert.Len(t, decode[[]registry.View](t, body), 1)

	code, _ = s.do(t, fiber.MethodPost, base+"/pause", "", true)
	assert.Equal(t, fiber.StatusConflict, code)

	code, _ = s.do(t, fiber.MethodPost, base+"/start", "", false)
	assert.Equal(t, fiber.StatusUnauthorized, code)

	code, body = s.do(t, fiber.MethodPost, base+"/start", "", true)
	require.Equal(t, fiber.StatusAccepted, code, string(body))

	require.Eventually(t, func() bool {
		v, err := s.reg.Get(created.ID)
		require.NoError(t, err)
		return !v.Running && v.State == "finished"
	}, 10*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.store.Flush(ctx))

	code, body = s.do(t, fiber.MethodGet, base+"/standings", "", false)
	require.Equal(t, fiber.StatusOK, code)
	standings := decode[struct {
		State     string                `json:"state"`
		Winner    string                `json:"winner"`
		Standings []tournament.Standing `json:"standings"`
	}](t, body)
	assert.Equal(t, "finished", standings.State)
	require.Len(t, standings.Standings, 2)
	assert.Equal(t, standings.Winner, standings.Standings[0].Name)
	assert.Equal(t, 1.0, standings.Standings[0].Score)

	code, body = s.do(t, fiber.MethodGet, "/api/v1/games?tournament="+created.ID, "", false)
	require.Equal(t, fiber.StatusOK, code)
	games := decode[[]storage.GameRecord](t, body)
	require.Len(t, games, 1)
	assert.Equal(t, "0-1", games[0].Result)
	assert.Equal(t, "round-robin", games[0].Format)

	code, body = s.do(t, fiber.MethodGet, "/api/v1/games/"+games[0].GameID+"/moves", "", false)
	require.Equal(t, fiber.StatusOK, code)
	assert.Empty(t, decode[[]storage.MoveRecord](t, body))

	code, body = s.do(t, fiber.MethodGet, "/api/v1/ratings", "", false)
	require.Equal(t, fiber.StatusOK, code)
	ratings := decode[[]RatedEngine](t, body)
	require.Len(t, ratings, 2)
	assert.Equal(t, games[0].BlackEngine, ratings[0].Name)
	assert.Equal(t, 1516, ratings[0].Rating.Rating)
	assert.NotEmpty(t, ratings[0].Tier)

	code, body = s.do(t, fiber.MethodGet, "/api/v1/stats", "", false)
	require.Equal(t, fiber.StatusOK, code)
	assert.Len(t, decode[[]storage.EngineStat](t, body), 2)

	code, _ = s.do(t, fiber.MethodPost, base+"/start", "", true)
	assert.Equal(t, fiber.StatusConflict, code)

	code, _ = s.do(t, fiber.MethodDelete, base+"?purge=true", "", true)
	assert.Equal(t, fiber.StatusNoContent, code)
	code, _ = s.do(t, fiber.MethodGet, base, "", false)
	assert.Equal(t, fiber.StatusNotFound, code)

	code, body = s.do(t, fiber.MethodGet, "/api/v1/games?tournament="+created.ID, "", false)
	require.Equal(t, fiber.StatusOK, code)
	assert.Empty(t, decode[[]storage.GameRecord](t, body))
}

func TestLongPoll(t *testing.T) {
	s := newTestServer(t, false)
	code, body := s.do(t, fiber.MethodPost, "/api/v1/tournaments", duelBody, true)
	require.Equal(t, fiber.StatusCreated, code)
	created := decode[registry.View](t, body)
	base := "/api/v1/tournaments/" + created.ID

	// an outdated version answers at once
	code, body = s.do(t, fiber.MethodGet, base+"?wait=true&version=0", "", false)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, created.Version, decode[registry.View](t, body).Version)

	// the current version is held until the wait times out
	start := time.Now()
	code, body = s.do(t, fiber.MethodGet, base+"?wait=true&version=1", "", false)
	require.Equal(t, fiber.StatusOK, code)
	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond)
	assert.Equal(t, created.Version, decode[registry.View](t, body).Version)
}

func TestGamesQueryValidation(t *testing.T) {
	s := newTestServer(t, true)
	code, body := s.do(t, fiber.MethodGet, "/api/v1/games?limit=5000", "", false)
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Contains(t, decode[core.ErrorResponse](t, body).Details, "Limit")

	code, _ = s.do(t, fiber.MethodGet, "/api/v1/games?engine=alpha", "", false)
	assert.Equal(t, fiber.StatusOK, code)
}
