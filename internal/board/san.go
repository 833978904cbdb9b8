// FILE: internal/board/san.go
package board

import (
	"fmt"
	"strings"
)

// SAN renders m in standard algebraic notation without the check suffix.
// legal must be the legal move set of this position.
func (p *Position) SAN(m Move, legal []Move) string {
	piece := p.at(m.From)
	kind := kindOf(piece)

	if kind == 'k' && (m.To.Col-m.From.Col == 2 || m.From.Col-m.To.Col == 2) {
		if m.To.Col == 6 {
			return "O-O"
		}
		return "O-O-O"
	}

	capture := p.at(m.To) != 0 ||
		(kind == 'p' && m.To == p.enPassant && m.From.Col != m.To.Col)

	var sb strings.Builder
	if kind == 'p' {
		if capture {
			sb.WriteByte('a' + byte(m.From.Col))
			sb.WriteByte('x')
		}
		sb.WriteString(m.To.String())
		if m.To.Row == 0 || m.To.Row == 7 {
			promo := m.Promotion
			if promo == 0 {
				promo = 'q'
			}
			sb.WriteByte('=')
			sb.WriteByte(promo - ('a' - 'A'))
		}
		return sb.String()
	}

	sb.WriteByte(kind - ('a' - 'A'))

	var rivals []Square
	for _, o := range legal {
		if o.To == m.To && o.From != m.From && p.at(o.From) == piece {
			rivals = append(rivals, o.From)
		}
	}
	if len(rivals) > 0 {
		sameFile, sameRank := false, false
		for _, from := range rivals {
			if from.Col == m.From.Col {
				sameFile = true
			}
			if from.Row == m.From.Row {
				sameRank = true
			}
		}
		switch {
		case !sameFile:
			sb.WriteByte('a' + byte(m.From.Col))
		case !sameRank:
			sb.WriteByte('8' - byte(m.From.Row))
		default:
			sb.WriteString(m.From.String())
		}
	}

	if capture {
		sb.WriteByte('x')
	}
	sb.WriteString(m.To.String())
	return sb.String()
}

// ParseSAN finds the legal move whose rendering matches san. Check marks
// and annotation glyphs are ignored, and a missing capture mark is tolerated.
func (p *Position) ParseSAN(san string) (Move, error) {
	clean := strings.TrimRight(strings.TrimSpace(san), "+#!?")
	clean = strings.ReplaceAll(clean, "0", "O")

	legal := p.LegalMoves()
	for _, m := range legal {
		if p.SAN(m, legal) == clean {
			return m, nil
		}
	}

	bare := strings.ReplaceAll(clean, "x", "")
	for _, m := range legal {
		if strings.ReplaceAll(p.SAN(m, legal), "x", "") == bare {
			return m, nil
		}
	}
	return Move{}, fmt.Errorf("%w: %s", ErrIllegalMove, san)
}
