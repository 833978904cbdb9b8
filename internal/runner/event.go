// FILE: internal/runner/event.go
package runner

import (
	"enginearena/internal/core"
	"enginearena/internal/tournament"
)

type EventKind int

const (
	GameStarted EventKind = iota + 1
	BoardUpdated
	GameEnded
	RoundEnded
	TournamentEnded
	StatusChanged
)

func (k EventKind) String() string {
	switch k {
	case GameStarted:
		return "game_started"
	case BoardUpdated:
		return "board_updated"
	case GameEnded:
		return "game_ended"
	case RoundEnded:
		return "round_ended"
	case TournamentEnded:
		return "tournament_ended"
	case StatusChanged:
		return "status_changed"
	default:
		return "unknown"
	}
}

// Event is a self-contained message from the runner goroutine. Nothing in it
// aliases controller state, so receivers may keep it.
type Event struct {
	Kind   EventKind
	Round  int
	Status string

	// Game events
	GameID string
	White  string
	Black  string

	// BoardUpdated
	FEN     string
	Move    string
	SAN     string
	Ply     int
	Eval    *int // centipawns, White's view
	Opening string

	// GameEnded
	Result core.Result
	Reason string
	PGN    string

	// Set on every event except BoardUpdated
	Snapshot *tournament.Snapshot
}
