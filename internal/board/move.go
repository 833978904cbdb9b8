package board

import (
	"fmt"
	"strings"
)

// Move is a protocol move: origin, destination and an optional lower-case
// promotion letter.
type Move struct {
	From, To  Square
	Promotion byte
}

// String renders the move as a protocol token such as e2e4 or e7e8q
func (m Move) String() string {
	s := m.From.String() + m.To.String()
	if m.Promotion != 0 {
		s += string(m.Promotion)
	}
	return s
}

// ParseMove parses a protocol token. A leading piece letter, as in Ng1f3,
// is accepted and ignored.
func ParseMove(token string) (Move, error) {
	s := strings.TrimSpace(token)
	if (len(s) == 5 || len(s) == 6) && strings.IndexByte("NBRQK", s[0]) >= 0 {
		s = s[1:]
	}
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("invalid move token %q", token)
	}

	from, err := ParseSquare(s[0:2])
	if err != nil {
		return Move{}, fmt.Errorf("invalid move token %q: %w", token, err)
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return Move{}, fmt.Errorf("invalid move token %q: %w", token, err)
	}

	m := Move{From: from, To: to}
	if len(s) == 5 {
		promo := s[4] | 0x20
		if strings.IndexByte("qrbn", promo) < 0 {
			return Move{}, fmt.Errorf("invalid promotion in move token %q", token)
		}
		m.Promotion = promo
	}
	return m, nil
}
