// FILE: internal/cli/run.go
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"enginearena/internal/book"
	"enginearena/internal/config"
	"enginearena/internal/runner"
	"enginearena/internal/storage"
	"enginearena/internal/tournament"

	"github.com/spf13/cobra"
)

// RunOptions holds flags for the run and console commands
type RunOptions struct {
	*RootOptions
	Config string
	Moves  bool
	Seed   uint64

	// NewEngine overrides engine launching (for tests)
	NewEngine runner.EngineFactory
}

// NewRunCommand creates the run command
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Play a tournament in the foreground",
		Long: `Play every game of a tournament file and print progress.

The first interrupt stops after abandoning the game in progress; a second
one cancels immediately.

Example:
  arena run -c spring.yaml --db arena.db
  arena run -c blitz.yaml --moves`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTournament(cmd.Context(), opts)
		},
	}

	addRunFlags(cmd, opts)
	return cmd
}

func addRunFlags(cmd *cobra.Command, opts *RunOptions) {
	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "tournament file (required)")
	cmd.Flags().BoolVar(&opts.Moves, "moves", false, "print every move")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "override the file's random seed")
	_ = cmd.MarkFlagRequired("config")
}

// session is one prepared tournament run
type session struct {
	cfg   *config.Tournament
	t     *tournament.Tournament
	run   *runner.Runner
	store *storage.Store
}

func (o *RunOptions) prepare() (*session, error) {
	cfg, err := config.Load(o.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load tournament", err)
	}
	if o.Seed != 0 {
		cfg.Seed = o.Seed
	}

	t, err := cfg.Build()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to build tournament", err)
	}

	ropts := runner.Options{
		MoveTime:     cfg.MoveTime.Std(),
		MoveDelay:    cfg.MoveDelay.Std(),
		EvalTime:     cfg.EvalTime.Std(),
		MaxBookPlies: cfg.MaxBookPlies,
		NewEngine:    o.NewEngine,
		AnalyzerPath: cfg.Analyzer,
		Logger:       o.logger,
	}
	if host, err := os.Hostname(); err == nil {
		ropts.Site = host
	}

	if cfg.Book != "" {
		bk, err := book.Load(cfg.Book)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load book", err)
		}
		if invalid := bk.Invalid(); len(invalid) > 0 {
			o.logger.Warn().Strs("lines", invalid).Msg("book lines skipped")
		}
		ropts.Book = bk
		ropts.Openings = bk
	}

	store, err := o.openStore()
	if err != nil {
		return nil, err
	}
	if store != nil {
		ropts.Recorder = store
	}

	o.logger.Info().Str("tournament", t.ID).Str("name", t.Name).Str("format", string(t.Format)).
		Int("players", len(t.Players())).Int("rounds", t.Rounds()).Msg("tournament loaded")

	return &session{cfg: cfg, t: t, run: runner.New(t, ropts), store: store}, nil
}

// close flushes queued history writes before closing the store
func (s *session) close(o *RunOptions) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.Flush(ctx); err != nil {
		o.logger.Warn().Err(err).Msg("storage flush failed")
	}
	if err := s.store.Close(); err != nil {
		o.logger.Warn().Err(err).Msg("failed to close storage cleanly")
	}
}

// handleSignals stops the runner on the first interrupt and cancels on the
// second
func handleSignals(ctx context.Context, r *runner.Runner, cancel context.CancelFunc) func() {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		stopped := false
		for {
			select {
			case <-sigs:
				if stopped {
					cancel()
					return
				}
				stopped = true
				r.Stop()
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

func runTournament(parent context.Context, opts *RunOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	s, err := opts.prepare()
	if err != nil {
		return err
	}
	defer s.close(opts)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	defer handleSignals(ctx, s.run, cancel)()

	p := opts.printer()
	p.Moves = opts.Moves
	p.Line("%s: %s, %d players, %d rounds", s.t.Name, s.t.Format, len(s.t.Players()), s.t.Rounds())

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for ev := range s.run.Events() {
			p.Event(ev)
		}
	}()

	err = s.run.Run(ctx)
	<-printed
	if err != nil {
		return WrapExitError(ExitFailure, "tournament failed", err)
	}
	if !s.t.Finished() {
		p.Line("Stopped in round %d; unfinished games were not recorded", s.t.Round())
	}
	return nil
}
