package runner_test

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"testing"
	"time"

	"enginearena/internal/book"
	"enginearena/internal/core"
	"enginearena/internal/engine"
	"enginearena/internal/engine/enginetest"
	"enginearena/internal/runner"
	"enginearena/internal/storage"
	"enginearena/internal/tournament"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	enginetest.MaybeServe()
	os.Exit(m.Run())
}

type savedGame struct {
	record storage.GameRecord
	moves  []storage.MoveRecord
}

type memRecorder struct {
	mu    sync.Mutex
	games []savedGame
}

func (r *memRecorder) SaveGame(record storage.GameRecord, moves []storage.MoveRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games = append(r.games, savedGame{record, moves})
	return nil
}

func (r *memRecorder) saved() []savedGame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]savedGame(nil), r.games...)
}

type fixedAnalyzer struct{ cp int }

func (a fixedAnalyzer) RequestEvaluation(context.Context, engine.SearchRequest) (engine.Score, bool, error) {
	return engine.Score{Value: a.cp}, true, nil
}

// engines maps player names to fake engine configurations
func engines(cfgs map[string]engine.Config) runner.EngineFactory {
	return func(p *tournament.Player) runner.Engine {
		return engine.New(cfgs[p.Name])
	}
}

// foolsMate starts a two-player round robin and scripts the first game so
// that Black mates on move two
func foolsMate(t *testing.T) (*tournament.Tournament, map[string]engine.Config) {
	t.Helper()
	tour, err := tournament.New(tournament.Config{
		Name:   "Spring Open",
		Format: tournament.FormatRoundRobin,
		Rand:   rand.New(rand.NewPCG(1, 2)),
	}, tournament.NewPlayer("Alpha", ""), tournament.NewPlayer("Bravo", ""))
	require.NoError(t, err)
	require.NoError(t, tour.Start())

	g := tour.NextGame()
	require.NotNil(t, g)
	return tour, map[string]engine.Config{
		g.White.Name: enginetest.Config(enginetest.ModePlay, "f2f3", "g2g4"),
		g.Black.Name: enginetest.Config(enginetest.ModePlay, "e7e5", "d8h4"),
	}
}

func drain(r *runner.Runner) []runner.Event {
	var out []runner.Event
	for ev := range r.Events() {
		out = append(out, ev)
	}
	return out
}

func kinds(events []runner.Event) []runner.EventKind {
	var out []runner.EventKind
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}

func TestRunPlaysGameToCheckmate(t *testing.T) {
	tour, cfgs := foolsMate(t)
	rec := &memRecorder{}
	r := runner.New(tour, runner.Options{
		MoveTime:  50 * time.Millisecond,
		NewEngine: engines(cfgs),
		Recorder:  rec,
		Site:      "enginearena",
	})

	require.NoError(t, r.Run(context.Background()))
	events := drain(r)

	assert.Equal(t, []runner.EventKind{
		runner.GameStarted,
		runner.BoardUpdated, runner.BoardUpdated, runner.BoardUpdated, runner.BoardUpdated,
		runner.GameEnded,
		runner.RoundEnded,
		runner.TournamentEnded,
	}, kinds(events))

	ended := events[5]
	assert.Equal(t, core.ResultBlackWins, ended.Result)
	assert.Equal(t, "Checkmate", ended.Reason)
	assert.Contains(t, ended.PGN, "1. f3 e5 2. g4 Qh4# 0-1")
	require.NotNil(t, ended.Snapshot)

	last := events[4]
	assert.Equal(t, "d8h4", last.Move)
	assert.Equal(t, "Qh4#", last.SAN)
	assert.Equal(t, 4, last.Ply)
	assert.Nil(t, last.Eval)

	require.True(t, tour.Finished())
	games := tour.Games()
	require.Len(t, games, 1)
	assert.Equal(t, []string{"f3", "e5", "g4", "Qh4#"}, games[0].SANs)
	assert.Equal(t, games[0].Black, tour.Winner())

	final := events[len(events)-1].Snapshot
	require.NotNil(t, final)
	assert.Equal(t, "finished", final.State)
	assert.Equal(t, tour.Winner().Name, final.Winner)

	saved := rec.saved()
	require.Len(t, saved, 1)
	assert.Equal(t, "0-1", saved[0].record.Result)
	assert.Equal(t, tour.ID, saved[0].record.TournamentID)
	assert.Equal(t, "round-robin", saved[0].record.Format)
	assert.Equal(t, 4, saved[0].record.MoveCount)
	require.Len(t, saved[0].moves, 4)
	assert.Equal(t, "b", saved[0].moves[3].PlayerColor)
	assert.Equal(t, games[0].ID, saved[0].moves[3].GameID)
}

func TestRunWithBookAndAnalyzer(t *testing.T) {
	tour, cfgs := foolsMate(t)
	bk, err := book.Parse([]byte("openings:\n  - eco: A00\n    name: Barnes Opening\n    moves: f3 e5\n"))
	require.NoError(t, err)

	rec := &memRecorder{}
	r := runner.New(tour, runner.Options{
		MoveTime:     50 * time.Millisecond,
		NewEngine:    engines(cfgs),
		Book:         bk,
		Openings:     bk,
		MaxBookPlies: 20,
		Analyzer:     fixedAnalyzer{cp: 42},
		Recorder:     rec,
	})
	require.NoError(t, r.Run(context.Background()))
	drain(r)

	g := tour.Games()[0]
	assert.Equal(t, core.ResultBlackWins, g.Result)
	assert.Equal(t, "Barnes Opening", g.Opening)
	assert.Equal(t, []int{42, 42, 42, 42}, g.Evals)
	assert.Contains(t, g.PGN, `[Opening "Barnes Opening"]`)
	assert.Contains(t, g.PGN, `[ECO "A00"]`)

	saved := rec.saved()
	require.Len(t, saved, 1)
	require.NotNil(t, saved[0].moves[0].EvalCP)
	assert.Equal(t, 42, *saved[0].moves[0].EvalCP)
}

func TestForfeits(t *testing.T) {
	tests := []struct {
		name       string
		whiteMode  string
		blackMode  string
		wantResult core.Result
		// blame is formatted with the name of the side at fault
		blame  core.Color
		reason string
	}{
		{"illegal move", enginetest.ModeIllegal, enginetest.ModePlay, core.ResultBlackWins, core.ColorWhite, "Illegal move by %s: e2e5"},
		{"no move", enginetest.ModeNoMove, enginetest.ModePlay, core.ResultBlackWins, core.ColorWhite, "%s returned no move"},
		{"crash", enginetest.ModeCrash, enginetest.ModePlay, core.ResultBlackWins, core.ColorWhite, "%s engine died"},
		{"white fails to start", enginetest.ModeExit, enginetest.ModePlay, core.ResultBlackWins, core.ColorWhite, "%s failed to start"},
		{"black fails to start", enginetest.ModePlay, enginetest.ModeExit, core.ResultWhiteWins, core.ColorBlack, "%s failed to start"},
		{"both fail to start", enginetest.ModeExit, enginetest.ModeExit, core.ResultUnknown, 0, "Both engines failed to start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tour, cfgs := foolsMate(t)
			g := tour.NextGame()
			cfgs[g.White.Name] = enginetest.Config(tt.whiteMode)
			cfgs[g.Black.Name] = enginetest.Config(tt.blackMode)

			r := runner.New(tour, runner.Options{MoveTime: 50 * time.Millisecond, NewEngine: engines(cfgs)})
			require.NoError(t, r.Run(context.Background()))
			drain(r)

			want := tt.reason
			switch tt.blame {
			case core.ColorWhite:
				want = fmt.Sprintf(tt.reason, g.White.Name)
			case core.ColorBlack:
				want = fmt.Sprintf(tt.reason, g.Black.Name)
			}

			assert.Equal(t, tournament.GameDone, g.Status)
			assert.Equal(t, tt.wantResult, g.Result)
			assert.Equal(t, want, g.Reason)
			assert.True(t, tour.Finished())
		})
	}
}

func TestStopAbandonsGame(t *testing.T) {
	tour, cfgs := foolsMate(t)
	g := tour.NextGame()
	rec := &memRecorder{}
	r := runner.New(tour, runner.Options{
		MoveTime:  50 * time.Millisecond,
		MoveDelay: 2 * time.Second,
		NewEngine: engines(cfgs),
		Recorder:  rec,
	})

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	var events []runner.Event
	for ev := range r.Events() {
		events = append(events, ev)
		if ev.Kind == runner.BoardUpdated {
			r.Stop()
		}
	}
	require.NoError(t, <-done)

	assert.Equal(t, tournament.GamePending, g.Status, "abandoned games return to pending")
	assert.Equal(t, core.ResultUnknown, g.Result)
	assert.Empty(t, rec.saved())
	assert.False(t, tour.Finished())
	assert.Equal(t, g, tour.NextGame())

	last := events[len(events)-1]
	assert.Equal(t, runner.StatusChanged, last.Kind)
	assert.Equal(t, "Tournament paused / stopped", last.Status)
}

func TestCancelAbandonsGame(t *testing.T) {
	tour, cfgs := foolsMate(t)
	g := tour.NextGame()
	cfgs[g.White.Name] = enginetest.Config(enginetest.ModeHang)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := runner.New(tour, runner.Options{MoveTime: 5 * time.Second, NewEngine: engines(cfgs)})
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	for ev := range r.Events() {
		if ev.Kind == runner.GameStarted {
			time.AfterFunc(500*time.Millisecond, cancel)
		}
	}

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not return after cancel")
	}
	assert.Equal(t, tournament.GamePending, g.Status)
}

func TestPauseAndResume(t *testing.T) {
	tour, cfgs := foolsMate(t)
	r := runner.New(tour, runner.Options{
		MoveTime:  50 * time.Millisecond,
		MoveDelay: 50 * time.Millisecond,
		NewEngine: engines(cfgs),
	})

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	var statuses []string
	paused := false
	for ev := range r.Events() {
		switch {
		case ev.Kind == runner.BoardUpdated && !paused:
			paused = true
			r.Pause()
			assert.True(t, r.Paused())
		case ev.Kind == runner.StatusChanged:
			statuses = append(statuses, ev.Status)
			if ev.Status == "Paused" {
				r.Resume()
			}
		}
	}
	require.NoError(t, <-done)

	assert.Equal(t, []string{"Paused", "Resumed"}, statuses)
	assert.True(t, tour.Finished())
	assert.Equal(t, core.ResultBlackWins, tour.Games()[0].Result)
}

func TestSwissEventRunsAllRounds(t *testing.T) {
	names := []string{"Alpha", "Bravo", "Charlie", "Delta"}
	cfgs := make(map[string]engine.Config)
	var players []*tournament.Player
	for _, n := range names {
		players = append(players, tournament.NewPlayer(n, ""))
		cfgs[n] = enginetest.Config(enginetest.ModeNoMove)
	}
	tour, err := tournament.New(tournament.Config{
		Format: tournament.FormatSwiss,
		Rounds: 2,
		Rand:   rand.New(rand.NewPCG(7, 7)),
	}, players...)
	require.NoError(t, err)

	rec := &memRecorder{}
	r := runner.New(tour, runner.Options{MoveTime: 50 * time.Millisecond, NewEngine: engines(cfgs), Recorder: rec})
	require.NoError(t, r.Run(context.Background()))
	events := drain(r)

	var rounds []int
	for _, ev := range events {
		if ev.Kind == runner.RoundEnded {
			rounds = append(rounds, ev.Round)
		}
	}
	assert.Equal(t, []int{1, 2}, rounds)
	assert.Equal(t, runner.StatusChanged, events[0].Kind, "starting the event is announced")
	assert.Equal(t, runner.TournamentEnded, events[len(events)-1].Kind)

	assert.True(t, tour.Finished())
	assert.Len(t, tour.Games(), 4)
	assert.Len(t, rec.saved(), 4)
	for _, g := range tour.Games() {
		assert.Equal(t, core.ResultBlackWins, g.Result, "White never finds a move")
	}
}

func TestRunOnlyOnce(t *testing.T) {
	tour, cfgs := foolsMate(t)
	r := runner.New(tour, runner.Options{MoveTime: 50 * time.Millisecond, NewEngine: engines(cfgs)})
	require.NoError(t, r.Run(context.Background()))
	assert.ErrorIs(t, r.Run(context.Background()), runner.ErrAlreadyRunning)
}
