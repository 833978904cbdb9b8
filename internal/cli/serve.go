// FILE: internal/cli/serve.go
package cli

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"enginearena/internal/http"
	"enginearena/internal/registry"
	"enginearena/internal/runner"

	"github.com/lixenwraith/auth"
	"github.com/spf13/cobra"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
	devSecret               = "dev-secret-minimum-32-characters-long"
	secretEnv               = "ARENA_SECRET"
)

// ServeOptions holds flags for the serve command
type ServeOptions struct {
	*RootOptions
	Host    string
	Port    int
	Secret  string
	PIDPath string
	PIDLock bool
}

// NewServeCommand creates the serve command
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tournament control API",
		Long: `Serve the HTTP API for creating, running and watching tournaments.

Control endpoints need a bearer token signed with the server secret (see
'arena token'). Without --secret or $ARENA_SECRET the secret is random, or a
fixed development secret with --dev.

Example:
  arena serve --db arena.db --port 8080
  arena serve --dev --pid /run/arena.pid --pid-lock`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Host, "host", "localhost", "API server host")
	cmd.Flags().IntVar(&opts.Port, "port", 8080, "API server port")
	cmd.Flags().StringVar(&opts.Secret, "secret", "", "JWT signing secret (default $"+secretEnv+")")
	cmd.Flags().StringVar(&opts.PIDPath, "pid", "", "optional path to write PID file")
	cmd.Flags().BoolVar(&opts.PIDLock, "pid-lock", false, "lock PID file to allow only one instance (requires --pid)")

	return cmd
}

// jwtSecret picks the flag, then the environment, then a dev or random secret
func (o *ServeOptions) jwtSecret() ([]byte, error) {
	if o.Secret != "" {
		return []byte(o.Secret), nil
	}
	if s := os.Getenv(secretEnv); s != "" {
		return []byte(s), nil
	}
	if o.Dev {
		o.logger.Info().Msg("using fixed JWT secret (dev mode)")
		return []byte(devSecret), nil
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	o.logger.Info().Msg("JWT secret generated (tokens valid until restart)")
	return secret, nil
}

func runServe(opts *ServeOptions) error {
	if opts.PIDLock && opts.PIDPath == "" {
		return NewExitError(ExitCommandError, "--pid-lock requires --pid")
	}

	if opts.PIDPath != "" {
		cleanup, err := managePIDFile(opts.PIDPath, opts.PIDLock)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to manage PID file", err)
		}
		defer cleanup()
		opts.logger.Info().Str("path", opts.PIDPath).Bool("lock", opts.PIDLock).Msg("PID file created")
	}

	store, err := opts.openStore()
	if err != nil {
		return err
	}
	if store == nil {
		opts.logger.Info().Msg("persistent storage disabled (use --db to enable)")
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
			defer cancel()
			if err := store.Flush(ctx); err != nil {
				opts.logger.Warn().Err(err).Msg("storage flush failed")
			}
			if err := store.Close(); err != nil {
				opts.logger.Warn().Err(err).Msg("failed to close storage cleanly")
			}
		}()
	}

	secret, err := opts.jwtSecret()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to generate JWT secret", err)
	}

	ropts := registry.Options{Logger: opts.logger}
	if store != nil {
		ropts.Recorder = store
	}
	if host, err := os.Hostname(); err == nil {
		ropts.Site = host
	}
	ropts.OnEvent = func(id string, ev runner.Event) {
		if ev.Kind == runner.TournamentEnded {
			opts.logger.Info().Str("tournament", id).Str("status", ev.Status).Msg("tournament finished")
		}
	}
	reg := registry.New(ropts)

	validate := func(token string) (string, map[string]any, error) {
		return auth.ValidateHS256Token(secret, token)
	}
	app := http.NewFiberApp(reg, store, validate, opts.Dev)

	addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
	listenErr := make(chan error, 1)
	go func() {
		opts.logger.Info().Str("addr", "http://"+addr).Bool("dev", opts.Dev).
			Bool("storage", store != nil).Msg("arena API server starting")
		listenErr <- app.Listen(addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	var result error
	select {
	case <-quit:
	case err := <-listenErr:
		if err != nil {
			result = WrapExitError(ExitFailure, "API server listen error", err)
		}
	}

	opts.logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		opts.logger.Warn().Err(err).Msg("server forced to shutdown")
	}
	if err := reg.Close(gracefulShutdownTimeout); err != nil {
		opts.logger.Warn().Err(err).Msg("registry close error")
	}

	opts.logger.Info().Msg("server exited")
	return result
}
