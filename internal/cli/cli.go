// FILE: internal/cli/cli.go
package cli

import (
	"strings"
)

// CommandType is a console command
type CommandType int

const (
	CmdNone CommandType = iota
	CmdPause
	CmdResume
	CmdStop
	CmdStandings
	CmdBoard
	CmdGames
	CmdMoves
	CmdColor
	CmdStatus
	CmdHelp
	CmdQuit
	CmdUnknown
)

type Command struct {
	Type CommandType
	Args []string
	Raw  string
}

func parseCommand(input string) *Command {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) == 0 {
		return &Command{Type: CmdNone}
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "pause", "p":
		return &Command{Type: CmdPause}
	case "resume", "r":
		return &Command{Type: CmdResume}
	case "stop":
		return &Command{Type: CmdStop}
	case "standings", "s":
		return &Command{Type: CmdStandings}
	case "board", "b":
		return &Command{Type: CmdBoard}
	case "games", "g":
		return &Command{Type: CmdGames}
	case "moves", "m":
		return &Command{Type: CmdMoves}
	case "color":
		return &Command{Type: CmdColor, Args: args}
	case "status":
		return &Command{Type: CmdStatus}
	case "help", "?":
		return &Command{Type: CmdHelp}
	case "quit", "exit", "x":
		return &Command{Type: CmdQuit}
	default:
		return &Command{Type: CmdUnknown, Raw: input}
	}
}

const consoleHelp = `Commands:
  pause | p          - Pause before the next move
  resume | r         - Resume a paused tournament
  stop               - Stop; the game in progress is abandoned
  standings | s      - Show the standings
  board | b          - Show the current position
  games | g          - List scheduled and finished games
  moves | m          - Toggle printing every move
  color <theme>      - Set board color theme (off|brown|green|gray)
  status             - Show the last status message
  quit | exit | x    - Stop and exit
  help | ?           - Show this help message`
