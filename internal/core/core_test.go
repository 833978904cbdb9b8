package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultScores(t *testing.T) {
	w, b, ok := ResultWhiteWins.Scores()
	assert.True(t, ok)
	assert.Equal(t, 1.0, w)
	assert.Equal(t, 0.0, b)

	w, b, ok = ResultDraw.Scores()
	assert.True(t, ok)
	assert.Equal(t, 0.5, w)
	assert.Equal(t, 0.5, b)

	_, _, ok = ResultUnknown.Scores()
	assert.False(t, ok)
}

func TestParseResult(t *testing.T) {
	for _, r := range []Result{ResultWhiteWins, ResultBlackWins, ResultDraw, ResultUnknown} {
		got, err := ParseResult(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	_, err := ParseResult("2-0")
	assert.Error(t, err)
}

func TestWinFor(t *testing.T) {
	assert.Equal(t, ResultWhiteWins, WinFor(ColorWhite))
	assert.Equal(t, ResultBlackWins, WinFor(ColorBlack))
	assert.Equal(t, ColorBlack, OppositeColor(ColorWhite))
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Stockfish", "Stockfish"},
		{"  Stockfish (White) ", "Stockfish"},
		{"Komodo (Black)", "Komodo"},
		{"Cafe\u0301", "Caf\u00e9"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}
