// FILE: internal/board/movegen.go
package board

import (
	"fmt"

	"enginearena/internal/core"
)

type offset struct{ dr, dc int }

var (
	knightOffsets = []offset{{-2, -1}, {-2, 1}, {-1, -2}, {-1, 2}, {1, -2}, {1, 2}, {2, -1}, {2, 1}}
	kingOffsets   = []offset{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}
	rookDirs      = []offset{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	bishopDirs    = []offset{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
	promotions    = []byte{'q', 'r', 'b', 'n'}
)

func (s Square) shift(o offset) Square {
	return Square{s.Row + o.dr, s.Col + o.dc}
}

// LegalMoves returns the legal moves for the side to move
func (p *Position) LegalMoves() []Move {
	return p.LegalMovesFor(p.turn)
}

// LegalMovesFor generates pseudo-legal moves for side and keeps those that
// leave its own king unattacked once tentatively applied to a copy.
func (p *Position) LegalMovesFor(side core.Color) []Move {
	var pseudo []Move
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			piece := p.squares[r][c]
			if piece == 0 || colorOf(piece) != side {
				continue
			}
			pseudo = p.pseudoMoves(Square{r, c}, pseudo)
		}
	}

	legal := pseudo[:0]
	for _, m := range pseudo {
		next := p.apply(m)
		if !next.InCheck(side) {
			legal = append(legal, m)
		}
	}
	return legal
}

func (p *Position) pseudoMoves(from Square, moves []Move) []Move {
	piece := p.at(from)
	color := colorOf(piece)

	switch kindOf(piece) {
	case 'p':
		return p.pawnMoves(from, color, moves)
	case 'n':
		return p.leaperMoves(from, color, knightOffsets, moves)
	case 'b':
		return p.sliderMoves(from, color, bishopDirs, moves)
	case 'r':
		return p.sliderMoves(from, color, rookDirs, moves)
	case 'q':
		moves = p.sliderMoves(from, color, rookDirs, moves)
		return p.sliderMoves(from, color, bishopDirs, moves)
	case 'k':
		moves = p.leaperMoves(from, color, kingOffsets, moves)
		return p.castlingMoves(from, color, moves)
	}
	return moves
}

func (p *Position) pawnMoves(from Square, color core.Color, moves []Move) []Move {
	dir, startRow := -1, 6
	if color == core.ColorBlack {
		dir, startRow = 1, 1
	}

	one := Square{from.Row + dir, from.Col}
	if one.Valid() && p.at(one) == 0 {
		moves = appendPawnMove(moves, from, one)
		two := Square{from.Row + 2*dir, from.Col}
		if from.Row == startRow && p.at(two) == 0 {
			moves = append(moves, Move{From: from, To: two})
		}
	}

	for _, dc := range []int{-1, 1} {
		to := Square{from.Row + dir, from.Col + dc}
		if !to.Valid() {
			continue
		}
		target := p.at(to)
		switch {
		case target != 0 && colorOf(target) != color:
			moves = appendPawnMove(moves, from, to)
		case target == 0 && to == p.enPassant:
			moves = append(moves, Move{From: from, To: to})
		}
	}
	return moves
}

func appendPawnMove(moves []Move, from, to Square) []Move {
	if to.Row == 0 || to.Row == 7 {
		for _, promo := range promotions {
			moves = append(moves, Move{From: from, To: to, Promotion: promo})
		}
		return moves
	}
	return append(moves, Move{From: from, To: to})
}

func (p *Position) leaperMoves(from Square, color core.Color, offsets []offset, moves []Move) []Move {
	for _, o := range offsets {
		to := from.shift(o)
		if !to.Valid() {
			continue
		}
		if target := p.at(to); target == 0 || colorOf(target) != color {
			moves = append(moves, Move{From: from, To: to})
		}
	}
	return moves
}

func (p *Position) sliderMoves(from Square, color core.Color, dirs []offset, moves []Move) []Move {
	for _, d := range dirs {
		for to := from.shift(d); to.Valid(); to = to.shift(d) {
			target := p.at(to)
			if target == 0 {
				moves = append(moves, Move{From: from, To: to})
				continue
			}
			if colorOf(target) != color {
				moves = append(moves, Move{From: from, To: to})
			}
			break
		}
	}
	return moves
}

func (p *Position) castlingMoves(from Square, color core.Color, moves []Move) []Move {
	row, kingSide, queenSide, rook := 7, CastleWhiteKing, CastleWhiteQueen, byte('R')
	if color == core.ColorBlack {
		row, kingSide, queenSide, rook = 0, CastleBlackKing, CastleBlackQueen, 'r'
	}
	if from != (Square{row, 4}) {
		return moves
	}
	enemy := core.OppositeColor(color)

	if p.castling&kingSide != 0 &&
		p.squares[row][5] == 0 && p.squares[row][6] == 0 && p.squares[row][7] == rook &&
		!p.IsSquareAttacked(Square{row, 4}, enemy) &&
		!p.IsSquareAttacked(Square{row, 5}, enemy) &&
		!p.IsSquareAttacked(Square{row, 6}, enemy) {
		moves = append(moves, Move{From: from, To: Square{row, 6}})
	}

	if p.castling&queenSide != 0 &&
		p.squares[row][3] == 0 && p.squares[row][2] == 0 && p.squares[row][1] == 0 && p.squares[row][0] == rook &&
		!p.IsSquareAttacked(Square{row, 4}, enemy) &&
		!p.IsSquareAttacked(Square{row, 3}, enemy) &&
		!p.IsSquareAttacked(Square{row, 2}, enemy) {
		moves = append(moves, Move{From: from, To: Square{row, 2}})
	}
	return moves
}

// IsSquareAttacked reports whether any piece of side by attacks sq
func (p *Position) IsSquareAttacked(sq Square, by core.Color) bool {
	pawnRow := sq.Row + 1
	if by == core.ColorBlack {
		pawnRow = sq.Row - 1
	}
	for _, dc := range []int{-1, 1} {
		from := Square{pawnRow, sq.Col + dc}
		if from.Valid() && p.at(from) == pieceFor(by, 'p') {
			return true
		}
	}

	if p.leaperAttack(sq, knightOffsets, pieceFor(by, 'n')) ||
		p.leaperAttack(sq, kingOffsets, pieceFor(by, 'k')) {
		return true
	}

	queen := pieceFor(by, 'q')
	return p.sliderAttack(sq, rookDirs, pieceFor(by, 'r'), queen) ||
		p.sliderAttack(sq, bishopDirs, pieceFor(by, 'b'), queen)
}

func (p *Position) leaperAttack(sq Square, offsets []offset, attacker byte) bool {
	for _, o := range offsets {
		from := sq.shift(o)
		if from.Valid() && p.at(from) == attacker {
			return true
		}
	}
	return false
}

func (p *Position) sliderAttack(sq Square, dirs []offset, slider, queen byte) bool {
	for _, d := range dirs {
		for from := sq.shift(d); from.Valid(); from = from.shift(d) {
			piece := p.at(from)
			if piece == 0 {
				continue
			}
			if piece == slider || piece == queen {
				return true
			}
			break
		}
	}
	return false
}

func (p *Position) InCheck(side core.Color) bool {
	king := pieceFor(side, 'k')
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			if p.squares[r][c] == king {
				return p.IsSquareAttacked(Square{r, c}, core.OppositeColor(side))
			}
		}
	}
	return false
}

// Apply returns the position after m, rejecting moves outside the legal set.
// A pawn move to the last rank without a promotion letter promotes to a queen.
func (p *Position) Apply(m Move) (Position, error) {
	m = p.completePromotion(m)
	if !containsMove(p.LegalMoves(), m) {
		return *p, fmt.Errorf("%w: %s", ErrIllegalMove, m)
	}
	return p.apply(m), nil
}

func (p *Position) completePromotion(m Move) Move {
	if !m.From.Valid() || !m.To.Valid() || m.Promotion != 0 {
		return m
	}
	if kindOf(p.at(m.From)) == 'p' && (m.To.Row == 0 || m.To.Row == 7) {
		m.Promotion = 'q'
	}
	return m
}

func containsMove(moves []Move, m Move) bool {
	for _, lm := range moves {
		if lm == m {
			return true
		}
	}
	return false
}

var rookHomes = map[Square]Castling{
	{7, 7}: CastleWhiteKing,
	{7, 0}: CastleWhiteQueen,
	{0, 7}: CastleBlackKing,
	{0, 0}: CastleBlackQueen,
}

// apply executes m on a copy without any legality check
func (p Position) apply(m Move) Position {
	piece := p.at(m.From)
	target := p.at(m.To)
	color := colorOf(piece)
	kind := kindOf(piece)

	p.squares[m.From.Row][m.From.Col] = 0

	if kind == 'p' && target == 0 && m.To == p.enPassant && m.From.Col != m.To.Col {
		p.squares[m.From.Row][m.To.Col] = 0
	}

	if kind == 'p' && (m.To.Row == 0 || m.To.Row == 7) {
		promo := m.Promotion
		if promo == 0 {
			promo = 'q'
		}
		piece = pieceFor(color, promo)
	}
	p.squares[m.To.Row][m.To.Col] = piece

	if kind == 'k' && (m.To.Col-m.From.Col == 2 || m.From.Col-m.To.Col == 2) {
		row := m.From.Row
		if m.To.Col == 6 {
			p.squares[row][5], p.squares[row][7] = p.squares[row][7], 0
		} else {
			p.squares[row][3], p.squares[row][0] = p.squares[row][0], 0
		}
	}

	if kind == 'k' {
		if color == core.ColorWhite {
			p.castling &^= CastleWhiteKing | CastleWhiteQueen
		} else {
			p.castling &^= CastleBlackKing | CastleBlackQueen
		}
	}
	p.castling &^= rookHomes[m.From] | rookHomes[m.To]

	p.enPassant = NoSquare
	if kind == 'p' && (m.To.Row-m.From.Row == 2 || m.From.Row-m.To.Row == 2) {
		p.enPassant = Square{(m.From.Row + m.To.Row) / 2, m.From.Col}
	}

	if kind == 'p' || target != 0 {
		p.halfmove = 0
	} else {
		p.halfmove++
	}
	if color == core.ColorBlack {
		p.fullmove++
	}
	p.turn = core.OppositeColor(color)

	return p
}

// InsufficientMaterial is true only for bare kings or a single minor piece
// against a bare king.
func (p *Position) InsufficientMaterial() bool {
	var white, black []byte
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			piece := p.squares[r][c]
			if piece == 0 || kindOf(piece) == 'k' {
				continue
			}
			if isWhitePiece(piece) {
				white = append(white, kindOf(piece))
			} else {
				black = append(black, kindOf(piece))
			}
		}
	}

	loneMinor := func(pieces []byte) bool {
		return len(pieces) == 1 && (pieces[0] == 'b' || pieces[0] == 'n')
	}
	switch {
	case len(white) == 0 && len(black) == 0:
		return true
	case len(white) == 0:
		return loneMinor(black)
	case len(black) == 0:
		return loneMinor(white)
	}
	return false
}
