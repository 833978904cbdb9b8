// FILE: internal/cli/remote.go
package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"enginearena/internal/client"
	"enginearena/internal/config"
	"enginearena/internal/registry"

	"github.com/spf13/cobra"
)

// RemoteOptions holds flags for commands that talk to an arena server
type RemoteOptions struct {
	*RootOptions
	Server string
	Token  string
}

func (o *RemoteOptions) client() *client.Client {
	c := client.New(o.Server, o.logger)
	if o.Token != "" {
		c.SetToken(o.Token)
	}
	return c
}

// NewRemoteCommand groups the API client commands
func NewRemoteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RemoteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Control tournaments on an arena server",
		Long: `Create, start and watch tournaments on a server started with
'arena serve'. Control commands need a token from 'arena token'.

Example:
  arena remote create -c spring.yaml --start
  arena remote watch 1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed`,
	}

	server := os.Getenv("ARENA_SERVER")
	if server == "" {
		server = "http://localhost:8080"
	}
	cmd.PersistentFlags().StringVar(&opts.Server, "server", server, "arena server URL (default $ARENA_SERVER)")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", os.Getenv("ARENA_TOKEN"), "bearer token (default $ARENA_TOKEN)")

	cmd.AddCommand(newRemoteHealthCommand(opts))
	cmd.AddCommand(newRemoteListCommand(opts))
	cmd.AddCommand(newRemoteCreateCommand(opts))
	cmd.AddCommand(newRemoteShowCommand(opts))
	for _, action := range []string{"start", "pause", "resume", "stop"} {
		cmd.AddCommand(newRemoteControlCommand(opts, action))
	}
	cmd.AddCommand(newRemoteDeleteCommand(opts))
	cmd.AddCommand(newRemoteWatchCommand(opts))

	return cmd
}

func remoteError(err error) error {
	return WrapExitError(ExitFailure, "request failed", err)
}

func newRemoteHealthCommand(o *RemoteOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := o.client().Health(cmd.Context())
			if err != nil {
				return remoteError(err)
			}
			o.printer().Line("%s: storage %s, %d tournament(s)", h.Status, h.Storage, h.Tournaments)
			return nil
		},
	}
}

func newRemoteListCommand(o *RemoteOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tournaments on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			views, err := o.client().ListTournaments(cmd.Context())
			if err != nil {
				return remoteError(err)
			}
			out := o.out()
			if len(views) == 0 {
				fmt.Fprintln(out, "No tournaments")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "Tournament ID\tName\tFormat\tState\tRound\tStatus")
			for _, v := range views {
				state := v.State
				if v.Paused {
					state = "paused"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%s\n", v.ID, v.Name, v.Format, state, v.Round, v.Rounds, v.Status)
			}
			w.Flush()
			return nil
		},
	}
}

func newRemoteCreateCommand(o *RemoteOptions) *cobra.Command {
	var (
		path  string
		start bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a tournament file with the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load tournament", err)
			}
			c := o.client()
			view, err := c.CreateTournament(cmd.Context(), cfg)
			if err != nil {
				return remoteError(err)
			}
			if start {
				if view, err = c.Start(cmd.Context(), view.ID); err != nil {
					return remoteError(err)
				}
			}
			o.printer().Line("%s", view.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "config", "c", "", "tournament file (required)")
	cmd.Flags().BoolVar(&start, "start", false, "start playing immediately")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func newRemoteShowCommand(o *RemoteOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <tournament-id>",
		Short: "Show a tournament's standings and games",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := o.client().GetTournament(cmd.Context(), args[0])
			if err != nil {
				return remoteError(err)
			}
			p := o.printer()
			if asJSON {
				p.JSON(view)
				return nil
			}
			printView(o, view)
			p.Games(view.Games)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printView(o *RemoteOptions, v *registry.View) {
	p := o.printer()
	p.Line("%s (%s) round %d/%d: %s", v.Name, v.Format, v.Round, v.Rounds, v.Status)
	p.Standings(v.Standings)
	if v.Winner != "" {
		p.Line("Winner: %s", v.Winner)
	}
	if v.Error != "" {
		p.Line("Runner error: %s", v.Error)
	}
}

func newRemoteControlCommand(o *RemoteOptions, action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <tournament-id>",
		Short: fmt.Sprintf("Ask the server to %s a tournament", action),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := o.client()
			calls := map[string]func() (*registry.View, error){
				"start":  func() (*registry.View, error) { return c.Start(cmd.Context(), args[0]) },
				"pause":  func() (*registry.View, error) { return c.Pause(cmd.Context(), args[0]) },
				"resume": func() (*registry.View, error) { return c.Resume(cmd.Context(), args[0]) },
				"stop":   func() (*registry.View, error) { return c.Stop(cmd.Context(), args[0]) },
			}
			view, err := calls[action]()
			if err != nil {
				return remoteError(err)
			}
			o.printer().Line("%s: %s", view.Name, view.Status)
			return nil
		},
	}
}

func newRemoteDeleteCommand(o *RemoteOptions) *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "delete <tournament-id>",
		Short: "Remove an idle tournament from the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.client().DeleteTournament(cmd.Context(), args[0], purge); err != nil {
				return remoteError(err)
			}
			o.printer().Line("Deleted %s", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&purge, "purge", false, "also delete its stored games")
	return cmd
}

func newRemoteWatchCommand(o *RemoteOptions) *cobra.Command {
	var showBoard bool

	cmd := &cobra.Command{
		Use:   "watch <tournament-id>",
		Short: "Follow a tournament until it stops",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := o.printer()
			var (
				status string
				ply    = -1
				last   *registry.View
			)
			err := o.client().Watch(cmd.Context(), args[0], func(v *registry.View) error {
				last = v
				if v.Status != status {
					status = v.Status
					p.Line("%s", status)
				}
				if showBoard && v.Board != nil && v.Board.Ply != ply {
					ply = v.Board.Ply
					p.Line("%s vs %s, ply %d %s", v.Board.White, v.Board.Black, v.Board.Ply, v.Board.SAN)
					if err := p.Board(v.Board.FEN); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return remoteError(err)
			}
			if last != nil {
				printView(o, last)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showBoard, "board", false, "draw the board after each update")
	return cmd
}
