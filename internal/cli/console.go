// FILE: internal/cli/console.go
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"enginearena/internal/display"
	"enginearena/internal/runner"
	"enginearena/internal/tournament"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

// NewConsoleCommand creates the interactive console command
func NewConsoleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Play a tournament with an interactive console",
		Long: `Play a tournament while accepting commands: pause, resume, stop,
standings, board and more. Type 'help' once started.

Example:
  arena console -c spring.yaml --db arena.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(cmd.Context(), opts)
		},
	}

	addRunFlags(cmd, opts)
	return cmd
}

// console tracks what the runner last reported; the readline loop and the
// event loop share it
type console struct {
	mu      sync.Mutex
	p       *display.Printer
	fen     string
	turn    string
	status  string
	snap    *tournament.Snapshot
	running bool
}

func (c *console) apply(ev runner.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Kind {
	case runner.GameStarted:
		c.fen = ""
		c.turn = fmt.Sprintf("%s vs %s", ev.White, ev.Black)
	case runner.BoardUpdated:
		c.fen = ev.FEN
	}
	if ev.Status != "" {
		c.status = ev.Status
	}
	if ev.Snapshot != nil {
		c.snap = ev.Snapshot
	}
	c.p.Event(ev)
}

func runConsole(parent context.Context, opts *RunOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	s, err := opts.prepare()
	if err != nil {
		return err
	}
	defer s.close(opts)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          display.Prompt("arena"),
		HistoryFile:     ".arena_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start console", err)
	}
	defer rl.Close()

	out := rl.Stdout()
	if opts.Out != nil {
		out = opts.Out
	}
	c := &console{
		p:       display.New(out, opts.Out == nil && !opts.NoColor),
		running: true,
	}
	c.p.Moves = opts.Moves
	snap := s.t.Snapshot()
	c.snap = &snap

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	c.p.Line("%s: %s, %d players, %d rounds", s.t.Name, s.t.Format, len(s.t.Players()), s.t.Rounds())
	c.p.Line("Type 'help' for commands")

	runErr := make(chan error, 1)
	go func() { runErr <- s.run.Run(ctx) }()

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for ev := range s.run.Events() {
			c.apply(ev)
		}
		c.mu.Lock()
		c.running = false
		c.p.Line("Runner finished; type 'quit' to exit")
		c.mu.Unlock()
	}()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			s.run.Stop()
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue
		}

		cmd := parseCommand(line)
		if cmd.Type == CmdQuit {
			break
		}
		c.execute(s.run, cmd)
	}

	s.run.Stop()
	<-printed
	if err := <-runErr; err != nil {
		return WrapExitError(ExitFailure, "tournament failed", err)
	}
	return nil
}

func (c *console) execute(r *runner.Runner, cmd *Command) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch cmd.Type {
	case CmdNone:
	case CmdPause:
		if !c.running {
			c.p.Line("Not running")
			return
		}
		r.Pause()
	case CmdResume:
		if !c.running {
			c.p.Line("Not running")
			return
		}
		r.Resume()
	case CmdStop:
		r.Stop()
	case CmdStandings:
		c.p.Standings(c.snap.Standings)
	case CmdBoard:
		if c.fen == "" {
			c.p.Line("No game in progress")
			return
		}
		c.p.Line("%s", c.turn)
		if err := c.p.Board(c.fen); err != nil {
			c.p.Error(err)
		}
	case CmdGames:
		c.p.Games(c.snap.Games)
	case CmdMoves:
		c.p.Moves = !c.p.Moves
		c.p.Line("Move output: %v", c.p.Moves)
	case CmdColor:
		if len(cmd.Args) != 1 {
			c.p.Line("Usage: color <off|brown|green|gray>")
			return
		}
		if err := c.p.SetTheme(display.Theme(cmd.Args[0])); err != nil {
			c.p.Error(err)
		}
	case CmdStatus:
		state := "running"
		switch {
		case !c.running:
			state = "idle"
		case r.Paused():
			state = "paused"
		}
		c.p.Line("[%s] round %d/%d: %s", state, c.snap.Round, c.snap.Rounds, c.status)
	case CmdHelp:
		c.p.Line("%s", consoleHelp)
	default:
		c.p.Line("Unknown command: %s (type 'help')", cmd.Raw)
	}
}
