// FILE: internal/cli/token.go
package cli

import (
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/lixenwraith/auth"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// TokenOptions holds flags for the token command
type TokenOptions struct {
	*RootOptions
	User   string
	TTL    time.Duration
	Secret string
}

// NewTokenCommand creates the token command
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the control API",
		Long: `Sign a JWT with the server secret. The secret comes from --secret,
then $ARENA_SECRET, then a hidden prompt.

Example:
  ARENA_SECRET=... arena token --user ci --ttl 24h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(opts)
		},
	}

	cmd.Flags().StringVar(&opts.User, "user", "arena", "token subject")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 24*time.Hour, "token lifetime")
	cmd.Flags().StringVar(&opts.Secret, "secret", "", "JWT signing secret (default $"+secretEnv+")")
	return cmd
}

func runToken(opts *TokenOptions) error {
	if opts.TTL <= 0 {
		return NewExitError(ExitCommandError, "--ttl must be positive")
	}

	secret := opts.Secret
	if secret == "" {
		secret = os.Getenv(secretEnv)
	}
	if secret == "" && opts.Dev {
		secret = devSecret
	}
	if secret == "" {
		if !term.IsTerminal(int(syscall.Stdin)) {
			return NewExitError(ExitCommandError, "secret required (--secret or $"+secretEnv+")")
		}
		fmt.Fprint(os.Stderr, "Secret: ")
		b, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read secret", err)
		}
		secret = strings.TrimSpace(string(b))
	}
	if secret == "" {
		return NewExitError(ExitCommandError, "secret must not be empty")
	}

	token, err := auth.GenerateHS256Token([]byte(secret), opts.User, map[string]any{"scope": "control"}, opts.TTL)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to sign token", err)
	}
	fmt.Fprintln(opts.out(), token)
	return nil
}
