// FILE: internal/tournament/game.go
package tournament

import (
	"fmt"
	"time"

	"enginearena/internal/core"

	"github.com/google/uuid"
)

type GameStatus int

const (
	GamePending GameStatus = iota
	GameRunning
	GameDone
)

func (s GameStatus) String() string {
	switch s {
	case GameRunning:
		return "running"
	case GameDone:
		return "done"
	}
	return "pending"
}

// Game is one scheduled pairing. Its result fields are written once, by
// RecordResult.
type Game struct {
	ID    string
	Round int
	White *Player
	Black *Player

	Status    GameStatus
	Result    core.Result
	Reason    string
	Moves     []string
	SANs      []string
	Evals     []int
	PGN       string
	Opening   string
	StartedAt time.Time
	Duration  time.Duration
}

func newGame(round int, white, black *Player) *Game {
	return &Game{
		ID:    uuid.NewString(),
		Round: round,
		White: white,
		Black: black,
	}
}

// Report is what the match runner hands back when a game ends
type Report struct {
	Result   core.Result
	Reason   string
	Moves    []string
	SANs     []string
	Evals    []int
	PGN      string
	Opening  string
	Duration time.Duration
}

func (g *Game) MoveCount() int {
	return len(g.Moves)
}

// Label is "Round N: White vs Black"
func (g *Game) Label() string {
	return fmt.Sprintf("Round %d: %s vs %s", g.Round, g.White.Name, g.Black.Name)
}
