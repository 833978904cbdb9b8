// FILE: internal/engine/info.go
package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// MateScore is the centipawn value reported for a forced mate
const MateScore = 30000

type ScoreKind int

const (
	ScoreCentipawns ScoreKind = iota
	ScoreMate
)

func (k ScoreKind) String() string {
	if k == ScoreMate {
		return "mate"
	}
	return "cp"
}

// Score is a centipawn value or a mate distance in moves
type Score struct {
	Kind  ScoreKind
	Value int
}

// Centipawns maps mate scores to +/-MateScore
func (s Score) Centipawns() int {
	if s.Kind != ScoreMate {
		return s.Value
	}
	if s.Value > 0 {
		return MateScore
	}
	return -MateScore
}

func (s Score) Negate() Score {
	s.Value = -s.Value
	return s
}

func (s Score) String() string {
	if s.Kind == ScoreMate {
		if s.Value < 0 {
			return fmt.Sprintf("-M%d", -s.Value)
		}
		return fmt.Sprintf("M%d", s.Value)
	}
	return fmt.Sprintf("%+.2f", float64(s.Value)/100)
}

// Info is one parsed diagnostic line
type Info struct {
	Depth    int
	Score    Score
	HasScore bool
	Nodes    int64
	NPS      int64
	PV       []string
}

// ParseInfo extracts depth, score, nodes, nps and pv from an info line.
// Values that fail to parse are skipped; ok is false when nothing was
// recognised.
func ParseInfo(line string) (info Info, ok bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "info" {
		return Info{}, false
	}

	for i := 1; i < len(fields); i++ {
		switch fields[i] {
		case "depth":
			if v, err := atoiAt(fields, i+1); err == nil {
				info.Depth = v
				ok = true
				i++
			}
		case "score":
			if i+2 >= len(fields) {
				continue
			}
			v, err := strconv.Atoi(fields[i+2])
			if err != nil {
				continue
			}
			switch fields[i+1] {
			case "cp":
				info.Score = Score{Kind: ScoreCentipawns, Value: v}
			case "mate":
				info.Score = Score{Kind: ScoreMate, Value: v}
			default:
				continue
			}
			info.HasScore = true
			ok = true
			i += 2
		case "nodes":
			if v, err := atoiAt(fields, i+1); err == nil {
				info.Nodes = int64(v)
				ok = true
				i++
			}
		case "nps":
			if v, err := atoiAt(fields, i+1); err == nil {
				info.NPS = int64(v)
				ok = true
				i++
			}
		case "pv":
			if i+1 < len(fields) {
				info.PV = append([]string(nil), fields[i+1:]...)
				ok = true
			}
			return info, ok
		case "string":
			return info, ok
		}
	}
	return info, ok
}

func atoiAt(fields []string, i int) (int, error) {
	if i >= len(fields) {
		return 0, fmt.Errorf("missing value")
	}
	return strconv.Atoi(fields[i])
}
