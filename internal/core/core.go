// FILE: internal/core/core.go
package core

import "fmt"

type Color byte

const (
	ColorWhite Color = 'w'
	ColorBlack Color = 'b'
)

func (c Color) String() string {
	switch c {
	case ColorWhite:
		return "White"
	case ColorBlack:
		return "Black"
	default:
		return "None"
	}
}

func OppositeColor(c Color) Color {
	if c == ColorWhite {
		return ColorBlack
	}
	return ColorWhite
}

// Result is the outcome of a finished or abandoned game
type Result int

const (
	ResultUnknown Result = iota
	ResultWhiteWins
	ResultBlackWins
	ResultDraw
)

// String returns the PGN result token
func (r Result) String() string {
	switch r {
	case ResultWhiteWins:
		return "1-0"
	case ResultBlackWins:
		return "0-1"
	case ResultDraw:
		return "1/2-1/2"
	default:
		return "*"
	}
}

func ParseResult(s string) (Result, error) {
	switch s {
	case "1-0":
		return ResultWhiteWins, nil
	case "0-1":
		return ResultBlackWins, nil
	case "1/2-1/2":
		return ResultDraw, nil
	case "*":
		return ResultUnknown, nil
	}
	return ResultUnknown, fmt.Errorf("invalid result %q", s)
}

// Scores returns the points earned by each side, ok is false for an undecided result
func (r Result) Scores() (white, black float64, ok bool) {
	switch r {
	case ResultWhiteWins:
		return 1, 0, true
	case ResultBlackWins:
		return 0, 1, true
	case ResultDraw:
		return 0.5, 0.5, true
	default:
		return 0, 0, false
	}
}

// WinFor returns the decisive result in favour of c
func WinFor(c Color) Result {
	if c == ColorWhite {
		return ResultWhiteWins
	}
	return ResultBlackWins
}

func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Result) UnmarshalText(b []byte) error {
	v, err := ParseResult(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
