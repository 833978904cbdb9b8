// FILE: internal/cli/root.go

// Package cli implements the arena command line: running tournaments in the
// foreground or interactively, serving the control API, and inspecting the
// game history.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"enginearena/internal/display"
	"enginearena/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// RootOptions holds global flags for all commands
type RootOptions struct {
	Database string
	LogLevel string
	Dev      bool
	NoColor  bool

	// Out receives command output; nil means colored stdout
	Out io.Writer

	logger zerolog.Logger
}

// NewRootCommand creates the root command for the arena CLI
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arena",
		Short: "Chess engine tournament manager",
		Long: `Runs Swiss, round-robin and knockout tournaments between UCI chess
engines, records every game, and rates engines over the stored history.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(opts.LogLevel, os.Stderr)
			if err != nil {
				return NewExitError(ExitCommandError, err.Error())
			}
			opts.logger = logger
			log.Logger = logger
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite game history (disabled if empty)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&opts.Dev, "dev", false, "development mode (relaxed rate limits, WAL journal)")
	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewConsoleCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewDBCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewRemoteCommand(opts))

	return cmd
}

// newLogger writes human readable logs to a terminal and JSON otherwise
func newLogger(level string, f *os.File) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q", level)
	}

	var w io.Writer = f
	if term.IsTerminal(int(f.Fd())) {
		w = zerolog.ConsoleWriter{Out: f, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// printer returns the output printer for the command
func (o *RootOptions) printer() *display.Printer {
	if o.Out != nil {
		return display.New(o.Out, false)
	}
	return display.New(display.Stdout(), !o.NoColor && display.Enabled(os.Stdout))
}

// out is where tables and raw text go
func (o *RootOptions) out() io.Writer {
	if o.Out != nil {
		return o.Out
	}
	return os.Stdout
}

// openStore opens the history database, or returns nil when none is set
func (o *RootOptions) openStore() (*storage.Store, error) {
	if o.Database == "" {
		return nil, nil
	}
	store, err := storage.NewStore(o.Database, o.Dev)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open storage", err)
	}
	if err := store.InitDB(); err != nil {
		store.Close()
		return nil, WrapExitError(ExitCommandError, "failed to initialize schema", err)
	}
	return store, nil
}

// requireStore is openStore for commands that cannot work without history
func (o *RootOptions) requireStore() (*storage.Store, error) {
	if o.Database == "" {
		return nil, NewExitError(ExitCommandError, "database path required (--db)")
	}
	return o.openStore()
}
