// FILE: internal/http/handler.go

// Package http serves the tournament control API: read-only tournament and
// history views for everyone, and token-protected lifecycle control.
package http

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"enginearena/internal/config"
	"enginearena/internal/core"
	"enginearena/internal/elo"
	"enginearena/internal/registry"
	"enginearena/internal/storage"
	"enginearena/internal/tournament"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const rateLimitRate = 10 // req/sec

// HTTPHandler routes API requests to the registry and the game store
type HTTPHandler struct {
	reg   *registry.Registry
	store *storage.Store
}

// RatedEngine is one row of the rating list
type RatedEngine struct {
	elo.Rating
	Tier string `json:"tier"`
}

func NewHTTPHandler(reg *registry.Registry, store *storage.Store) *HTTPHandler {
	return &HTTPHandler{reg: reg, store: store}
}

// NewFiberApp builds the API. A nil validateToken leaves the control
// endpoints open; store may be nil when history is disabled.
func NewFiberApp(reg *registry.Registry, store *storage.Store, validateToken TokenValidator, devMode bool) *fiber.App {
	h := NewHTTPHandler(reg, store)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: registry.WaitTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	})

	// Global middleware (order matters)
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check (no rate limit)
	app.Get("/health", h.Health)

	api := app.Group("/api/v1")

	maxReq := rateLimitRate
	if devMode {
		maxReq = rateLimitRate * 2
	}
	api.Use(limiter.New(limiter.Config{
		Max:        maxReq,
		Expiration: 1 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			if xff := c.Get("X-Forwarded-For"); xff != "" {
				if idx := strings.Index(xff, ","); idx != -1 {
					return strings.TrimSpace(xff[:idx])
				}
				return xff
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    core.ErrRateLimitExceeded,
				Details: fmt.Sprintf("%d requests per second allowed", maxReq),
			})
		},
	}))

	api.Use(contentTypeValidator)

	control := func(c *fiber.Ctx) error { return c.Next() }
	if validateToken != nil {
		control = AuthRequired(validateToken)
	}

	api.Get("/tournaments", h.ListTournaments)
	api.Post("/tournaments", control, validationMiddleware, h.CreateTournament)
	api.Get("/tournaments/:id", h.GetTournament)
	api.Get("/tournaments/:id/standings", h.GetStandings)
	api.Get("/tournaments/:id/board", h.GetBoard)
	api.Post("/tournaments/:id/start", control, h.control(h.reg.Start))
	api.Post("/tournaments/:id/pause", control, h.control(h.reg.Pause))
	api.Post("/tournaments/:id/resume", control, h.control(h.reg.Resume))
	api.Post("/tournaments/:id/stop", control, h.control(h.reg.Stop))
	api.Delete("/tournaments/:id", control, h.DeleteTournament)

	api.Get("/games", h.ListGames)
	api.Get("/games/:id/moves", h.GetMoves)
	api.Get("/ratings", h.Ratings)
	api.Get("/stats", h.Stats)

	return app
}

// customErrorHandler provides consistent error responses
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	response := core.ErrorResponse{
		Error: "internal server error",
		Code:  core.ErrInternalError,
	}

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		response.Error = e.Message

		switch code {
		case fiber.StatusNotFound:
			response.Code = core.ErrTournamentNotFound
		case fiber.StatusBadRequest:
			response.Code = core.ErrInvalidRequest
		case fiber.StatusTooManyRequests:
			response.Code = core.ErrRateLimitExceeded
		}
	}

	return c.Status(code).JSON(response)
}

// registryError maps registry and controller errors onto HTTP responses
func registryError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(core.ErrorResponse{
			Error: "tournament not found",
			Code:  core.ErrTournamentNotFound,
		})
	case errors.Is(err, registry.ErrRunning),
		errors.Is(err, registry.ErrNotRunning),
		errors.Is(err, tournament.ErrFinished):
		return c.Status(fiber.StatusConflict).JSON(core.ErrorResponse{
			Error: err.Error(),
			Code:  core.ErrInvalidTransition,
		})
	case errors.Is(err, registry.ErrClosed):
		return c.Status(fiber.StatusServiceUnavailable).JSON(core.ErrorResponse{
			Error: "server shutting down",
			Code:  core.ErrInternalError,
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
		Error:   "internal server error",
		Code:    core.ErrInternalError,
		Details: err.Error(),
	})
}

func invalidID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
		Error:   "invalid tournament ID format",
		Code:    core.ErrInvalidRequest,
		Details: "tournament ID must be a valid UUID",
	})
}

func (h *HTTPHandler) storageDisabled(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(core.ErrorResponse{
		Error: "game history is disabled",
		Code:  core.ErrStorageDisabled,
	})
}

// Health check endpoint with storage status
func (h *HTTPHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "healthy",
		"time":        time.Now().Unix(),
		"storage":     h.storageHealth(),
		"tournaments": len(h.reg.List()),
	})
}

func (h *HTTPHandler) storageHealth() string {
	if h.store == nil {
		return "disabled"
	}
	if h.store.IsHealthy() {
		return "ok"
	}
	return "degraded"
}

func (h *HTTPHandler) ListTournaments(c *fiber.Ctx) error {
	views := h.reg.List()
	// the list stays light; game detail is per tournament
	for i := range views {
		views[i].Games = nil
	}
	return c.JSON(views)
}

// CreateTournament registers a validated definition without starting it
func (h *HTTPHandler) CreateTournament(c *fiber.Ctx) error {
	validated, ok := c.Locals("validated").(bool)
	if !ok || !validated {
		return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
			Error: "validation bypass detected",
			Code:  core.ErrInternalError,
		})
	}
	cfg, ok := c.Locals("validatedBody").(*config.Tournament)
	if !ok || cfg == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
			Error: "validation data missing",
			Code:  core.ErrInternalError,
		})
	}

	view, err := h.reg.Create(*cfg)
	if err != nil {
		if errors.Is(err, registry.ErrClosed) {
			return registryError(c, err)
		}
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "failed to create tournament",
			Code:    core.ErrInvalidRequest,
			Details: err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

// GetTournament returns the tournament view. With wait=true and the version
// the client holds, the request is parked until that version changes.
func (h *HTTPHandler) GetTournament(c *fiber.Ctx) error {
	id := c.Params("id")
	if !isValidUUID(id) {
		return invalidID(c)
	}

	if c.Query("wait", "false") != "true" {
		view, err := h.reg.Get(id)
		if err != nil {
			return registryError(c, err)
		}
		return c.JSON(view)
	}

	version := c.QueryInt("version", -1)
	ctx := c.Context()
	notify, err := h.reg.WaitForUpdate(ctx, id, version)
	if err != nil {
		return registryError(c, err)
	}

	select {
	case <-notify:
		// the tournament may have been removed while waiting
		view, err := h.reg.Get(id)
		if err != nil {
			return registryError(c, err)
		}
		return c.JSON(view)
	case <-ctx.Done():
		return nil
	}
}

func (h *HTTPHandler) GetStandings(c *fiber.Ctx) error {
	id := c.Params("id")
	if !isValidUUID(id) {
		return invalidID(c)
	}
	snap, err := h.reg.Snapshot(id)
	if err != nil {
		return registryError(c, err)
	}
	return c.JSON(fiber.Map{
		"round":     snap.Round,
		"rounds":    snap.Rounds,
		"state":     snap.State,
		"winner":    snap.Winner,
		"standings": snap.Standings,
	})
}

// GetBoard returns the position of the game being played
func (h *HTTPHandler) GetBoard(c *fiber.Ctx) error {
	id := c.Params("id")
	if !isValidUUID(id) {
		return invalidID(c)
	}
	view, err := h.reg.Get(id)
	if err != nil {
		return registryError(c, err)
	}
	if view.Board == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(view.Board)
}

// control adapts a registry lifecycle call into a handler
func (h *HTTPHandler) control(fn func(id string) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if !isValidUUID(id) {
			return invalidID(c)
		}
		if err := fn(id); err != nil {
			return registryError(c, err)
		}
		view, err := h.reg.Get(id)
		if err != nil {
			return registryError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(view)
	}
}

// DeleteTournament forgets an idle tournament; purge=true also drops its
// stored games
func (h *HTTPHandler) DeleteTournament(c *fiber.Ctx) error {
	id := c.Params("id")
	if !isValidUUID(id) {
		return invalidID(c)
	}
	if err := h.reg.Remove(id); err != nil {
		return registryError(c, err)
	}
	if c.QueryBool("purge") && h.store != nil {
		if err := h.store.DeleteTournament(id); err != nil {
			return registryError(c, err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.store.Flush(ctx); err != nil {
			return registryError(c, err)
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *HTTPHandler) ListGames(c *fiber.Ctx) error {
	if h.store == nil {
		return h.storageDisabled(c)
	}
	q, err := parseGamesQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "invalid query",
			Code:    core.ErrInvalidRequest,
			Details: err.Error(),
		})
	}
	games, err := h.store.QueryGames(storage.GameFilter{
		TournamentID: q.Tournament,
		Engine:       q.Engine,
		Limit:        q.Limit,
	})
	if err != nil {
		return registryError(c, err)
	}
	if games == nil {
		games = []storage.GameRecord{}
	}
	return c.JSON(games)
}

func (h *HTTPHandler) GetMoves(c *fiber.Ctx) error {
	if h.store == nil {
		return h.storageDisabled(c)
	}
	id := c.Params("id")
	if !isValidUUID(id) {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "invalid game ID format",
			Code:    core.ErrInvalidRequest,
			Details: "game ID must be a valid UUID",
		})
	}
	moves, err := h.store.GameMoves(id)
	if err != nil {
		return registryError(c, err)
	}
	if moves == nil {
		moves = []storage.MoveRecord{}
	}
	return c.JSON(moves)
}

// Ratings replays the whole stored history through the Elo calculator
func (h *HTTPHandler) Ratings(c *fiber.Ctx) error {
	if h.store == nil {
		return h.storageDisabled(c)
	}
	rows, err := h.store.AllGamesForRating()
	if err != nil {
		return registryError(c, err)
	}
	ratings := elo.Compute(elo.FromStored(rows))
	out := make([]RatedEngine, 0, len(ratings))
	for _, r := range ratings {
		out = append(out, RatedEngine{Rating: r, Tier: elo.TierFor(r.Rating).Label})
	}
	return c.JSON(out)
}

func (h *HTTPHandler) Stats(c *fiber.Ctx) error {
	if h.store == nil {
		return h.storageDisabled(c)
	}
	stats, err := h.store.EngineStats()
	if err != nil {
		return registryError(c, err)
	}
	if stats == nil {
		stats = []storage.EngineStat{}
	}
	return c.JSON(stats)
}
