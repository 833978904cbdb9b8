// FILE: internal/game/game.go
package game

import (
	"time"

	"enginearena/internal/board"
	"enginearena/internal/core"
)

type Snapshot struct {
	FEN          string     // Board state at this point
	PreviousMove string     // Move token that created this position (empty for initial)
	SAN          string     // SAN of PreviousMove
	NextTurn     core.Color // Whose turn it is at this position
}

// Record is the full account of one played game: every position reached,
// the analyzer evaluations and the PGN header data.
type Record struct {
	Event string
	Site  string
	Round int
	White string
	Black string

	Opening     string
	ECO         string
	Result      core.Result
	Termination string
	StartedAt   time.Time
	EndedAt     time.Time

	snapshots []Snapshot
	evals     []int
}

func New(initialFEN, white, black string, startingTurn core.Color) *Record {
	return &Record{
		White: white,
		Black: black,
		snapshots: []Snapshot{
			{
				FEN:      initialFEN,
				NextTurn: startingTurn,
			},
		},
		StartedAt: time.Now(),
	}
}

// FromBoard starts a record at the board's starting position
func FromBoard(b *board.Board, white, black string) *Record {
	pos, err := board.ParseFEN(b.StartFEN())
	turn := core.ColorWhite
	if err == nil {
		turn = pos.Turn()
	}
	return New(b.StartFEN(), white, black, turn)
}

func (r *Record) AddSnapshot(fen, move, san string, nextTurn core.Color) {
	r.snapshots = append(r.snapshots, Snapshot{
		FEN:          fen,
		PreviousMove: move,
		SAN:          san,
		NextTurn:     nextTurn,
	})
}

// AddEval appends an evaluation in centipawns from White's point of view
func (r *Record) AddEval(cp int) {
	r.evals = append(r.evals, cp)
}

func (r *Record) Evals() []int {
	return append([]int(nil), r.evals...)
}

func (r *Record) Snapshots() []Snapshot {
	return append([]Snapshot(nil), r.snapshots...)
}

func (r *Record) CurrentSnapshot() Snapshot {
	return r.snapshots[len(r.snapshots)-1]
}

func (r *Record) CurrentFEN() string {
	return r.CurrentSnapshot().FEN
}

func (r *Record) NextTurn() core.Color {
	return r.CurrentSnapshot().NextTurn
}

func (r *Record) InitialFEN() string {
	if len(r.snapshots) > 0 {
		return r.snapshots[0].FEN
	}
	return board.StartingFEN
}

func (r *Record) Moves() []string {
	moves := []string{}
	for i := 1; i < len(r.snapshots); i++ {
		if r.snapshots[i].PreviousMove != "" {
			moves = append(moves, r.snapshots[i].PreviousMove)
		}
	}
	return moves
}

func (r *Record) SANs() []string {
	sans := []string{}
	for i := 1; i < len(r.snapshots); i++ {
		if r.snapshots[i].SAN != "" {
			sans = append(sans, r.snapshots[i].SAN)
		}
	}
	return sans
}

// Finish stamps the result and end time
func (r *Record) Finish(result core.Result, termination string) {
	r.Result = result
	r.Termination = termination
	r.EndedAt = time.Now()
}

func (r *Record) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.EndedAt.Sub(r.StartedAt)
}
