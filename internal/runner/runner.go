// FILE: internal/runner/runner.go

// Package runner plays a tournament to completion: it walks the controller's
// pending games, drives two engine sessions per game and reports progress as
// typed events on a bounded channel.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"enginearena/internal/engine"
	"enginearena/internal/storage"
	"enginearena/internal/tournament"

	"github.com/rs/zerolog"
)

const DefaultEventBuffer = 256

var (
	ErrAlreadyRunning = errors.New("runner already started")
	errAbandoned      = errors.New("game abandoned")
)

// Engine is one player's move provider for the length of a game
type Engine interface {
	Start(ctx context.Context) error
	RequestMove(ctx context.Context, req engine.SearchRequest) (string, error)
	Alive() bool
	Stop() error
}

// EngineFactory creates an unstarted engine for a player
type EngineFactory func(p *tournament.Player) Engine

// MoveSource supplies prepared moves for the played sequence
type MoveSource interface {
	NextMove(moves []string) (string, bool)
}

// OpeningNamer names the opening reached by the played sequence
type OpeningNamer interface {
	Lookup(moves []string) (eco, name string, ok bool)
}

// Analyzer scores positions from White's point of view
type Analyzer interface {
	RequestEvaluation(ctx context.Context, req engine.SearchRequest) (engine.Score, bool, error)
}

// Recorder persists finished games
type Recorder interface {
	SaveGame(record storage.GameRecord, moves []storage.MoveRecord) error
}

type Options struct {
	MoveTime     time.Duration
	MoveDelay    time.Duration
	EvalTime     time.Duration
	MaxBookPlies int

	NewEngine EngineFactory
	Book      MoveSource
	Openings  OpeningNamer
	Recorder  Recorder

	// Analyzer wins over AnalyzerPath; a path is started and stopped by Run
	Analyzer     Analyzer
	AnalyzerPath string

	Site        string
	EventBuffer int
	Logger      zerolog.Logger
}

// SessionFactory launches each player's configured executable
func SessionFactory(log zerolog.Logger) EngineFactory {
	return func(p *tournament.Player) Engine {
		return engine.New(engine.Config{
			Path:   p.EnginePath,
			Args:   p.EngineArgs,
			Logger: log,
		})
	}
}

// Runner owns a tournament while Run executes. Pause, Resume and Stop are
// safe from any goroutine; everything else belongs to the Run goroutine.
type Runner struct {
	t    *tournament.Tournament
	opts Options
	log  zerolog.Logger

	events   chan Event
	wake     chan struct{}
	paused   atomic.Bool
	stopped  atomic.Bool
	started  atomic.Bool
	analyzer Analyzer
}

func New(t *tournament.Tournament, opts Options) *Runner {
	if opts.MoveTime <= 0 {
		opts.MoveTime = time.Second
	}
	if opts.EvalTime <= 0 {
		opts.EvalTime = 150 * time.Millisecond
	}
	if opts.MaxBookPlies < 0 {
		opts.MaxBookPlies = 0
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}
	if opts.NewEngine == nil {
		opts.NewEngine = SessionFactory(opts.Logger)
	}

	return &Runner{
		t:        t,
		opts:     opts,
		log:      opts.Logger.With().Str("tournament", t.ID).Logger(),
		events:   make(chan Event, opts.EventBuffer),
		wake:     make(chan struct{}, 1),
		analyzer: opts.Analyzer,
	}
}

// Events is closed when Run returns
func (r *Runner) Events() <-chan Event {
	return r.events
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.signal()
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.signal()
}

// Stop ends the run after the current step; a game in progress is abandoned
// and stays pending
func (r *Runner) Stop() {
	r.stopped.Store(true)
	r.paused.Store(false)
	r.signal()
}

func (r *Runner) Paused() bool {
	return r.paused.Load()
}

func (r *Runner) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run plays games until the tournament finishes, Stop is called or ctx is
// cancelled. Engine faults never surface here; they become forfeits.
func (r *Runner) Run(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(r.events)

	if stop := r.startAnalyzer(ctx); stop != nil {
		defer stop()
	}

	if !r.t.Started() {
		if err := r.t.Start(); err != nil {
			return fmt.Errorf("failed to start tournament: %w", err)
		}
		r.status(ctx, r.t.Status())
	}

	for {
		if r.stopped.Load() || ctx.Err() != nil {
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
			r.status(final, "Tournament paused / stopped")
			cancel()
			return nil
		}
		if err := r.waitWhilePaused(ctx); err != nil {
			continue
		}
		if r.t.Finished() {
			r.emitLifecycle(ctx, Event{Kind: TournamentEnded, Round: r.t.Round(), Status: r.t.Status()})
			return nil
		}

		g := r.t.NextGame()
		if g == nil {
			if !r.t.RoundComplete() {
				return fmt.Errorf("round %d has no pending games but is not complete", r.t.Round())
			}
			round := r.t.Round()
			finished, err := r.t.AdvanceRound()
			if err != nil {
				return fmt.Errorf("failed to advance round: %w", err)
			}
			r.log.Info().Int("round", round).Msg("round complete")
			r.emitLifecycle(ctx, Event{Kind: RoundEnded, Round: round, Status: fmt.Sprintf("Round %d complete!", round)})
			if !finished {
				r.status(ctx, r.t.Status())
			}
			continue
		}

		if err := r.playGame(ctx, g); err != nil && !errors.Is(err, errAbandoned) {
			return err
		}
	}
}

func (r *Runner) startAnalyzer(ctx context.Context) func() {
	if r.analyzer != nil || r.opts.AnalyzerPath == "" {
		return nil
	}

	s := engine.New(engine.Config{Path: r.opts.AnalyzerPath, Logger: r.opts.Logger})
	if err := s.Start(ctx); err != nil {
		r.log.Warn().Err(err).Str("path", r.opts.AnalyzerPath).Msg("analyzer failed to start, running without analysis")
		r.status(ctx, "Analyzer failed to start, running without analysis")
		return nil
	}
	r.analyzer = s
	r.log.Info().Str("path", r.opts.AnalyzerPath).Msg("analyzer ready")
	return func() {
		if err := s.Stop(); err != nil {
			r.log.Warn().Err(err).Msg("analyzer stop failed")
		}
	}
}

// waitWhilePaused blocks while paused. A non-nil error means the wait ended
// because of Stop or ctx.
func (r *Runner) waitWhilePaused(ctx context.Context) error {
	if !r.paused.Load() {
		return nil
	}

	r.status(ctx, "Paused")
	for r.paused.Load() && !r.stopped.Load() {
		select {
		case <-r.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if r.stopped.Load() {
		return errAbandoned
	}
	r.status(ctx, "Resumed")
	return nil
}

// sleep waits for d unless woken by Pause, Resume, Stop or ctx
func (r *Runner) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-r.wake:
	case <-ctx.Done():
	}
}

func (r *Runner) status(ctx context.Context, msg string) {
	r.emitLifecycle(ctx, Event{Kind: StatusChanged, Round: r.t.Round(), Status: msg})
}

// emitLifecycle delivers an event carrying a fresh snapshot, blocking until
// the consumer takes it or ctx ends
func (r *Runner) emitLifecycle(ctx context.Context, ev Event) {
	snap := r.t.Snapshot()
	ev.Snapshot = &snap
	select {
	case r.events <- ev:
	case <-ctx.Done():
		r.log.Debug().Stringer("event", ev.Kind).Msg("event dropped on shutdown")
	}
}

// emitBoard drops the update when the consumer lags
func (r *Runner) emitBoard(ev Event) {
	select {
	case r.events <- ev:
	default:
	}
}
