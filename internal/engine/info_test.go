package engine_test

import (
	"testing"

	"enginearena/internal/engine"

	"github.com/stretchr/testify/assert"
)

func TestParseInfo(t *testing.T) {
	tests := []struct {
		name string
		line string
		want engine.Info
		ok   bool
	}{
		{
			name: "centipawns",
			line: "info depth 12 seldepth 18 multipv 1 score cp -41 nodes 123456 nps 987654 time 125 pv e7e5 g1f3 b8c6",
			want: engine.Info{
				Depth:    12,
				Score:    engine.Score{Kind: engine.ScoreCentipawns, Value: -41},
				HasScore: true,
				Nodes:    123456,
				NPS:      987654,
				PV:       []string{"e7e5", "g1f3", "b8c6"},
			},
			ok: true,
		},
		{
			name: "mate",
			line: "info depth 20 score mate -3 pv h7h8",
			want: engine.Info{
				Depth:    20,
				Score:    engine.Score{Kind: engine.ScoreMate, Value: -3},
				HasScore: true,
				PV:       []string{"h7h8"},
			},
			ok: true,
		},
		{
			name: "bound markers are tolerated",
			line: "info depth 7 score cp 15 lowerbound nodes 900",
			want: engine.Info{
				Depth:    7,
				Score:    engine.Score{Kind: engine.ScoreCentipawns, Value: 15},
				HasScore: true,
				Nodes:    900,
			},
			ok: true,
		},
		{
			name: "malformed values ignored",
			line: "info depth deep score cp ten nodes 5",
			want: engine.Info{Nodes: 5},
			ok:   true,
		},
		{name: "string only", line: "info string NNUE evaluation enabled", ok: false},
		{name: "not info", line: "bestmove e2e4", ok: false},
		{name: "empty", line: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := engine.ParseInfo(tt.line)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestScore(t *testing.T) {
	cp := engine.Score{Kind: engine.ScoreCentipawns, Value: 125}
	assert.Equal(t, 125, cp.Centipawns())
	assert.Equal(t, "+1.25", cp.String())
	assert.Equal(t, -125, cp.Negate().Centipawns())

	mated := engine.Score{Kind: engine.ScoreMate, Value: -4}
	assert.Equal(t, -engine.MateScore, mated.Centipawns())
	assert.Equal(t, "-M4", mated.String())
	assert.Equal(t, engine.MateScore, mated.Negate().Centipawns())
}
