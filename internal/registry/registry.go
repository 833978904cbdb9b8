// FILE: internal/registry/registry.go

// Package registry keeps the tournaments of one process. Each tournament is
// owned by its runner goroutine while it plays; the registry only sees the
// snapshots carried by runner events.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"enginearena/internal/book"
	"enginearena/internal/config"
	"enginearena/internal/runner"
	"enginearena/internal/tournament"

	"github.com/rs/zerolog"
)

var (
	ErrNotFound   = errors.New("tournament not found")
	ErrRunning    = errors.New("tournament is running")
	ErrNotRunning = errors.New("tournament is not running")
	ErrClosed     = errors.New("registry closed")
)

type Options struct {
	Recorder runner.Recorder
	// NewEngine overrides how player engines are launched
	NewEngine   runner.EngineFactory
	Site        string
	WaitTimeout time.Duration
	// OnEvent sees every runner event after the registry has applied it
	OnEvent func(id string, ev runner.Event)
	Logger  zerolog.Logger
}

// Board is the latest position of the game being played
type Board struct {
	GameID  string `json:"game_id"`
	Round   int    `json:"round"`
	White   string `json:"white"`
	Black   string `json:"black"`
	FEN     string `json:"fen"`
	Move    string `json:"move,omitempty"`
	SAN     string `json:"san,omitempty"`
	Ply     int    `json:"ply"`
	Eval    *int   `json:"eval,omitempty"`
	Opening string `json:"opening,omitempty"`
}

// View is a point-in-time copy of one tournament
type View struct {
	tournament.Snapshot
	Version int    `json:"version"`
	Running bool   `json:"running"`
	Paused  bool   `json:"paused"`
	Message string `json:"message,omitempty"`
	Board   *Board `json:"board,omitempty"`
	Error   string `json:"error,omitempty"`
}

type entry struct {
	id      string
	cfg     config.Tournament
	t       *tournament.Tournament
	book    *book.Book
	run     *runner.Runner
	cancel  context.CancelFunc
	snap    tournament.Snapshot
	version int
	message string
	board   *Board
	err     error
}

type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	waiter  *waitRegistry
	opts    Options
	log     zerolog.Logger
	closed  bool
	wg      sync.WaitGroup
}

func New(opts Options) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		waiter:  newWaitRegistry(opts.WaitTimeout),
		opts:    opts,
		log:     opts.Logger.With().Str("component", "registry").Logger(),
	}
}

// Create validates cfg and registers an unstarted tournament
func (r *Registry) Create(cfg config.Tournament) (View, error) {
	if err := cfg.Prepare(); err != nil {
		return View{}, err
	}

	var bk *book.Book
	if cfg.Book != "" {
		var err error
		if bk, err = book.Load(cfg.Book); err != nil {
			return View{}, err
		}
	}

	t, err := cfg.Build()
	if err != nil {
		return View{}, err
	}

	e := &entry{
		id:      t.ID,
		cfg:     cfg,
		t:       t,
		book:    bk,
		snap:    t.Snapshot(),
		version: 1,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return View{}, ErrClosed
	}
	r.entries[e.id] = e

	r.log.Info().Str("tournament", e.id).Str("name", cfg.Name).Str("format", cfg.Format).Int("players", len(cfg.Engines)).Msg("tournament created")
	return e.view(), nil
}

func (r *Registry) Get(id string) (View, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return View{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.view(), nil
}

// List returns every tournament, oldest first
func (r *Registry) List() []View {
	r.mu.RLock()
	out := make([]View, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.view())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Snapshot returns the controller state as last reported
func (r *Registry) Snapshot(id string) (tournament.Snapshot, error) {
	v, err := r.Get(id)
	if err != nil {
		return tournament.Snapshot{}, err
	}
	return v.Snapshot, nil
}

// Start launches a runner for the tournament. A stopped tournament resumes
// from its pending games.
func (r *Registry) Start(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	e, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.run != nil {
		return ErrRunning
	}
	if e.snap.State == tournament.StateFinished.String() {
		return tournament.ErrFinished
	}

	opts := runner.Options{
		MoveTime:     e.cfg.MoveTime.Std(),
		MoveDelay:    e.cfg.MoveDelay.Std(),
		EvalTime:     e.cfg.EvalTime.Std(),
		MaxBookPlies: e.cfg.MaxBookPlies,
		NewEngine:    r.opts.NewEngine,
		Recorder:     r.opts.Recorder,
		AnalyzerPath: e.cfg.Analyzer,
		Site:         r.opts.Site,
		Logger:       r.opts.Logger,
	}
	if e.book != nil {
		opts.Book = e.book
		opts.Openings = e.book
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := runner.New(e.t, opts)
	e.run = run
	e.cancel = cancel
	e.err = nil
	e.version++
	r.waiter.notify(id, e.version)

	r.wg.Add(1)
	go r.supervise(ctx, e, run)

	r.log.Info().Str("tournament", id).Msg("tournament started")
	return nil
}

// supervise runs one runner to completion and applies its events
func (r *Registry) supervise(ctx context.Context, e *entry, run *runner.Runner) {
	defer r.wg.Done()

	errCh := make(chan error, 1)
	go func() { errCh <- run.Run(ctx) }()

	for ev := range run.Events() {
		r.apply(e, ev)
		if r.opts.OnEvent != nil {
			r.opts.OnEvent(e.id, ev)
		}
	}
	err := <-errCh

	r.mu.Lock()
	e.cancel()
	e.run = nil
	e.cancel = nil
	e.err = err
	e.version++
	version := e.version
	r.mu.Unlock()

	if err != nil {
		r.log.Error().Err(err).Str("tournament", e.id).Msg("runner failed")
	}
	r.waiter.notify(e.id, version)
}

func (r *Registry) apply(e *entry, ev runner.Event) {
	r.mu.Lock()
	switch ev.Kind {
	case runner.BoardUpdated:
		e.board = &Board{
			GameID:  ev.GameID,
			Round:   ev.Round,
			White:   ev.White,
			Black:   ev.Black,
			FEN:     ev.FEN,
			Move:    ev.Move,
			SAN:     ev.SAN,
			Ply:     ev.Ply,
			Eval:    ev.Eval,
			Opening: ev.Opening,
		}
	case runner.GameStarted:
		e.board = &Board{GameID: ev.GameID, Round: ev.Round, White: ev.White, Black: ev.Black}
	}
	if ev.Snapshot != nil {
		e.snap = *ev.Snapshot
	}
	if ev.Status != "" {
		e.message = ev.Status
	}
	e.version++
	version := e.version
	r.mu.Unlock()

	r.waiter.notify(e.id, version)
}

func (r *Registry) Pause(id string) error {
	return r.withRunner(id, func(run *runner.Runner) { run.Pause() })
}

func (r *Registry) Resume(id string) error {
	return r.withRunner(id, func(run *runner.Runner) { run.Resume() })
}

// Stop asks the runner to finish its current step; the game in progress is
// abandoned and replayed by the next Start
func (r *Registry) Stop(id string) error {
	return r.withRunner(id, func(run *runner.Runner) { run.Stop() })
}

func (r *Registry) withRunner(id string, fn func(*runner.Runner)) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.run == nil {
		return ErrNotRunning
	}
	fn(e.run)
	return nil
}

// Remove forgets an idle tournament
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.run != nil {
		r.mu.Unlock()
		return ErrRunning
	}
	delete(r.entries, id)
	r.mu.Unlock()

	r.waiter.removeTournament(id)
	return nil
}

// WaitForUpdate returns a channel that fires once the tournament's version
// differs from version, or on timeout. An outdated version fires at once.
func (r *Registry) WaitForUpdate(ctx context.Context, id string, version int) (<-chan struct{}, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	current := 0
	if ok {
		current = e.version
	}
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if current != version {
		ch := make(chan struct{})
		close(ch)
		return ch, nil
	}
	return r.waiter.register(ctx, id, version), nil
}

// Close stops every runner and releases waiting clients
func (r *Registry) Close(timeout time.Duration) error {
	r.mu.Lock()
	r.closed = true
	for _, e := range r.entries {
		if e.run != nil {
			e.run.Stop()
			e.cancel()
		}
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	var errs []error
	select {
	case <-done:
	case <-time.After(timeout):
		errs = append(errs, fmt.Errorf("runners did not stop within %s", timeout))
	}
	if err := r.waiter.close(timeout); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *entry) view() View {
	v := View{
		Snapshot: e.snap,
		Version:  e.version,
		Running:  e.run != nil,
		Message:  e.message,
	}
	if e.run != nil {
		v.Paused = e.run.Paused()
	}
	if e.board != nil {
		b := *e.board
		v.Board = &b
	}
	if e.err != nil {
		v.Error = e.err.Error()
	}
	return v
}
