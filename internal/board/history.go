// FILE: internal/board/history.go
package board

import (
	"fmt"

	"enginearena/internal/core"
)

// Termination tells why a game is over
type Termination int

const (
	Ongoing Termination = iota
	Checkmate
	Stalemate
	FiftyMoveRule
	ThreefoldRepetition
	InsufficientMaterial
)

func (t Termination) String() string {
	switch t {
	case Checkmate:
		return "Checkmate"
	case Stalemate:
		return "Stalemate"
	case FiftyMoveRule:
		return "Draw by 50-move rule"
	case ThreefoldRepetition:
		return "Draw by threefold repetition"
	case InsufficientMaterial:
		return "Draw by insufficient material"
	default:
		return "Ongoing"
	}
}

type Outcome struct {
	Termination Termination
	Result      core.Result
}

func (o Outcome) Over() bool {
	return o.Termination != Ongoing
}

// HistoryEntry is one applied move
type HistoryEntry struct {
	Move Move
	SAN  string
	Key  string
}

// Board tracks a game: the current position, every move applied so far and
// how often each position key has occurred, the starting position included.
type Board struct {
	pos      Position
	startFEN string
	history  []HistoryEntry
	counts   map[string]int
}

func New() *Board {
	b, err := FromFEN(StartingFEN)
	if err != nil {
		panic(err)
	}
	return b
}

func FromFEN(fen string) (*Board, error) {
	pos, err := ParseFEN(fen)
	if err != nil {
		return nil, err
	}
	b := &Board{
		pos:      pos,
		startFEN: pos.FEN(),
		counts:   make(map[string]int),
	}
	b.counts[pos.Key()]++
	return b, nil
}

// Position returns a copy of the current position
func (b *Board) Position() Position {
	return b.pos
}

func (b *Board) Turn() core.Color {
	return b.pos.turn
}

func (b *Board) FEN() string {
	return b.pos.FEN()
}

func (b *Board) Key() string {
	return b.pos.Key()
}

func (b *Board) StartFEN() string {
	return b.startFEN
}

func (b *Board) LegalMoves() []Move {
	return b.pos.LegalMoves()
}

func (b *Board) InCheck(side core.Color) bool {
	return b.pos.InCheck(side)
}

// Apply plays a legal move and returns its SAN, including a trailing + or #.
// On error the board is left unchanged.
func (b *Board) Apply(m Move) (string, error) {
	m = b.pos.completePromotion(m)
	legal := b.pos.LegalMoves()
	if !containsMove(legal, m) {
		return "", fmt.Errorf("%w: %s in %s", ErrIllegalMove, m, b.pos.FEN())
	}

	san := b.pos.SAN(m, legal)
	next := b.pos.apply(m)
	if next.InCheck(next.turn) {
		if len(next.LegalMoves()) == 0 {
			san += "#"
		} else {
			san += "+"
		}
	}

	b.pos = next
	key := next.Key()
	b.counts[key]++
	b.history = append(b.history, HistoryEntry{Move: m, SAN: san, Key: key})
	return san, nil
}

// ApplyToken parses and plays a protocol move token
func (b *Board) ApplyToken(token string) (string, error) {
	m, err := ParseMove(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	return b.Apply(m)
}

// ApplySAN resolves a SAN move against the legal set and plays it
func (b *Board) ApplySAN(san string) (Move, error) {
	m, err := b.pos.ParseSAN(san)
	if err != nil {
		return Move{}, err
	}
	if _, err := b.Apply(m); err != nil {
		return Move{}, err
	}
	return m, nil
}

// Repetitions returns how many times the current position has occurred
func (b *Board) Repetitions() int {
	return b.counts[b.pos.Key()]
}

func (b *Board) History() []HistoryEntry {
	out := make([]HistoryEntry, len(b.history))
	copy(out, b.history)
	return out
}

func (b *Board) MoveTokens() []string {
	tokens := make([]string, len(b.history))
	for i, h := range b.history {
		tokens[i] = h.Move.String()
	}
	return tokens
}

func (b *Board) SANs() []string {
	sans := make([]string, len(b.history))
	for i, h := range b.history {
		sans[i] = h.SAN
	}
	return sans
}

// Result evaluates the terminal conditions in order: no legal moves, the
// 50-move clock, threefold repetition, then insufficient material.
func (b *Board) Result() Outcome {
	turn := b.pos.turn
	if len(b.pos.LegalMoves()) == 0 {
		if b.pos.InCheck(turn) {
			return Outcome{Termination: Checkmate, Result: core.WinFor(core.OppositeColor(turn))}
		}
		return Outcome{Termination: Stalemate, Result: core.ResultDraw}
	}
	if b.pos.halfmove >= 100 {
		return Outcome{Termination: FiftyMoveRule, Result: core.ResultDraw}
	}
	if b.Repetitions() >= 3 {
		return Outcome{Termination: ThreefoldRepetition, Result: core.ResultDraw}
	}
	if b.pos.InsufficientMaterial() {
		return Outcome{Termination: InsufficientMaterial, Result: core.ResultDraw}
	}
	return Outcome{Termination: Ongoing, Result: core.ResultUnknown}
}
