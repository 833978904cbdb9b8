// FILE: internal/board/board.go
package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"enginearena/internal/core"
)

const (
	StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
)

var (
	ErrInvalidFEN  = errors.New("invalid FEN")
	ErrIllegalMove = errors.New("illegal move")
)

// Square addresses the grid with row 0 holding rank 8
type Square struct {
	Row, Col int
}

var NoSquare = Square{-1, -1}

func (s Square) Valid() bool {
	return s.Row >= 0 && s.Row < 8 && s.Col >= 0 && s.Col < 8
}

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return string([]byte{'a' + byte(s.Col), '8' - byte(s.Row)})
}

func ParseSquare(s string) (Square, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return NoSquare, fmt.Errorf("invalid square %q", s)
	}
	return Square{Row: int('8' - s[1]), Col: int(s[0] - 'a')}, nil
}

// Castling is the set of remaining castling rights
type Castling uint8

const (
	CastleWhiteKing Castling = 1 << iota
	CastleWhiteQueen
	CastleBlackKing
	CastleBlackQueen
)

func (c Castling) String() string {
	var sb strings.Builder
	if c&CastleWhiteKing != 0 {
		sb.WriteByte('K')
	}
	if c&CastleWhiteQueen != 0 {
		sb.WriteByte('Q')
	}
	if c&CastleBlackKing != 0 {
		sb.WriteByte('k')
	}
	if c&CastleBlackQueen != 0 {
		sb.WriteByte('q')
	}
	if sb.Len() == 0 {
		return "-"
	}
	return sb.String()
}

// Position is a single chess position. It holds no references, so a plain
// assignment produces an independent copy.
type Position struct {
	squares   [8][8]byte
	turn      core.Color
	castling  Castling
	enPassant Square
	halfmove  int
	fullmove  int
}

func ParseFEN(fen string) (Position, error) {
	parts := strings.Fields(fen)
	if len(parts) != 6 {
		return Position{}, fmt.Errorf("%w: expected 6 parts, got %d", ErrInvalidFEN, len(parts))
	}

	p := Position{enPassant: NoSquare}

	ranks := strings.Split(parts[0], "/")
	if len(ranks) != 8 {
		return Position{}, fmt.Errorf("%w: expected 8 ranks", ErrInvalidFEN)
	}

	kings := map[byte]int{}
	for r := 0; r < 8; r++ {
		file := 0
		for _, ch := range []byte(ranks[r]) {
			if ch >= '1' && ch <= '8' {
				file += int(ch - '0')
				continue
			}
			if !strings.ContainsRune("pnbrqkPNBRQK", rune(ch)) {
				return Position{}, fmt.Errorf("%w: unknown piece %q", ErrInvalidFEN, ch)
			}
			if file >= 8 {
				return Position{}, fmt.Errorf("%w: too many pieces in rank %d", ErrInvalidFEN, 8-r)
			}
			p.squares[r][file] = ch
			if ch == 'K' || ch == 'k' {
				kings[ch]++
			}
			file++
		}
		if file != 8 {
			return Position{}, fmt.Errorf("%w: rank %d has %d files", ErrInvalidFEN, 8-r, file)
		}
	}
	if kings['K'] != 1 || kings['k'] != 1 {
		return Position{}, fmt.Errorf("%w: each side needs exactly one king", ErrInvalidFEN)
	}

	switch parts[1] {
	case "w":
		p.turn = core.ColorWhite
	case "b":
		p.turn = core.ColorBlack
	default:
		return Position{}, fmt.Errorf("%w: turn must be 'w' or 'b'", ErrInvalidFEN)
	}

	if parts[2] != "-" {
		for _, ch := range parts[2] {
			switch ch {
			case 'K':
				p.castling |= CastleWhiteKing
			case 'Q':
				p.castling |= CastleWhiteQueen
			case 'k':
				p.castling |= CastleBlackKing
			case 'q':
				p.castling |= CastleBlackQueen
			default:
				return Position{}, fmt.Errorf("%w: castling rights %q", ErrInvalidFEN, parts[2])
			}
		}
	}

	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil || (sq.Row != 2 && sq.Row != 5) {
			return Position{}, fmt.Errorf("%w: en passant square %q", ErrInvalidFEN, parts[3])
		}
		p.enPassant = sq
	}

	var err error
	if p.halfmove, err = strconv.Atoi(parts[4]); err != nil || p.halfmove < 0 {
		return Position{}, fmt.Errorf("%w: halfmove counter", ErrInvalidFEN)
	}
	if p.fullmove, err = strconv.Atoi(parts[5]); err != nil || p.fullmove < 1 {
		return Position{}, fmt.Errorf("%w: fullmove counter", ErrInvalidFEN)
	}

	return p, nil
}

// FEN exports the position as a six-field FEN string
func (p Position) FEN() string {
	return fmt.Sprintf("%s %d %d", p.Key(), p.halfmove, p.fullmove)
}

// Key identifies the position for repetition purposes: placement, side to
// move, castling rights and en passant target, without the clocks.
func (p Position) Key() string {
	var sb strings.Builder
	for r := 0; r < 8; r++ {
		empty := 0
		for c := 0; c < 8; c++ {
			piece := p.squares[r][c]
			if piece == 0 {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(piece)
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if r < 7 {
			sb.WriteByte('/')
		}
	}
	sb.WriteByte(' ')
	sb.WriteByte(byte(p.turn))
	sb.WriteByte(' ')
	sb.WriteString(p.castling.String())
	sb.WriteByte(' ')
	sb.WriteString(p.enPassant.String())
	return sb.String()
}

// ToASCII creates an ASCII representation of the board
func (p Position) ToASCII() string {
	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")

	for r := 0; r < 8; r++ {
		sb.WriteString(fmt.Sprintf("%d ", 8-r))
		for f := 0; f < 8; f++ {
			piece := p.squares[r][f]
			if piece == 0 {
				sb.WriteString(". ")
			} else {
				sb.WriteString(fmt.Sprintf("%c ", piece))
			}
		}
		sb.WriteString(fmt.Sprintf(" %d\n", 8-r))
	}
	sb.WriteString("  a b c d e f g h")

	return sb.String()
}

func (p Position) Turn() core.Color {
	return p.turn
}

func (p Position) Castling() Castling {
	return p.castling
}

func (p Position) EnPassant() Square {
	return p.enPassant
}

func (p Position) HalfmoveClock() int {
	return p.halfmove
}

func (p Position) FullmoveNumber() int {
	return p.fullmove
}

// PieceAt returns the piece code on a named square, or 0 when empty
func (p Position) PieceAt(square string) byte {
	sq, err := ParseSquare(square)
	if err != nil {
		return 0
	}
	return p.at(sq)
}

func (p Position) at(sq Square) byte {
	return p.squares[sq.Row][sq.Col]
}

func isWhitePiece(piece byte) bool {
	return piece >= 'A' && piece <= 'Z'
}

func colorOf(piece byte) core.Color {
	if isWhitePiece(piece) {
		return core.ColorWhite
	}
	return core.ColorBlack
}

// kindOf returns the lower-case piece letter
func kindOf(piece byte) byte {
	if isWhitePiece(piece) {
		return piece + ('a' - 'A')
	}
	return piece
}

func pieceFor(c core.Color, kind byte) byte {
	if c == core.ColorWhite {
		return kind - ('a' - 'A')
	}
	return kind
}
