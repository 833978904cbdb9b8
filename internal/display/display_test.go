package display

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"enginearena/internal/board"
	"enginearena/internal/core"
	"enginearena/internal/runner"
	"enginearena/internal/tournament"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardPlain(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, false)
	require.NoError(t, p.Board(board.StartingFEN))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 10)
	assert.Equal(t, "  a b c d e f g h", lines[0])
	assert.Equal(t, "8 r n b q k b n r  8", lines[1])
	assert.Equal(t, "1 R N B Q K B N R  1", lines[8])
	assert.NotContains(t, buf.String(), "\033[")

	assert.Error(t, p.Board("not a fen"))
}

func TestBoardThemed(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, true)
	require.NoError(t, p.Board(board.StartingFEN))
	assert.Contains(t, buf.String(), themes[ThemeBrown].lightBg)

	assert.Error(t, p.SetTheme("purple"))
	require.NoError(t, p.SetTheme(ThemeOff))
	buf.Reset()
	require.NoError(t, p.Board(board.StartingFEN))
	assert.Contains(t, buf.String(), Blue+"R"+Reset)
	assert.NotContains(t, buf.String(), "\033[48;5")
}

func TestStandingsAlignWideNames(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, false)
	p.Standings([]tournament.Standing{
		{Rank: 1, Name: "象棋引擎", Score: 2.5, Wins: 2, Draws: 1, Buchholz: 3},
		{Rank: 2, Name: "Alpha", Score: 1, Wins: 1, Losses: 2, SonnebornBerger: 0.5},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[2], "2.5")
	assert.Contains(t, lines[2], "2/1/0")
	assert.Contains(t, lines[3], "1/0/2")
	assert.Equal(t, runewidth.StringWidth(lines[0]), runewidth.StringWidth(lines[2]))
	assert.Equal(t, runewidth.StringWidth(lines[2]), runewidth.StringWidth(lines[3]))
}

func TestEvent(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, false)

	eval := 35
	p.Event(runner.Event{Kind: runner.BoardUpdated, Ply: 1, SAN: "e4", Eval: &eval})
	assert.Empty(t, buf.String())

	p.Moves = true
	p.Event(runner.Event{Kind: runner.BoardUpdated, Ply: 1, SAN: "e4", Eval: &eval, Opening: "King's Pawn"})
	p.Event(runner.Event{Kind: runner.BoardUpdated, Ply: 2, SAN: "e5"})
	p.Event(runner.Event{Kind: runner.GameEnded, White: "Alpha", Black: "Bravo", Result: core.ResultDraw, Reason: "Stalemate"})

	out := buf.String()
	assert.Contains(t, out, "1. e4")
	assert.Contains(t, out, "[+0.35]")
	assert.Contains(t, out, "King's Pawn")
	assert.Contains(t, out, "1. ... e5")
	assert.Contains(t, out, "Alpha - Bravo: 1/2-1/2 (Stalemate)")

	buf.Reset()
	p.Event(runner.Event{
		Kind:     runner.TournamentEnded,
		Status:   "Tournament complete",
		Snapshot: &tournament.Snapshot{Winner: "Alpha", Standings: []tournament.Standing{{Rank: 1, Name: "Alpha", Score: 1}}},
	})
	assert.Contains(t, buf.String(), "Winner: Alpha")
}

func TestJSONAndError(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, false)
	p.JSON(map[string]int{"games": 3})
	assert.Equal(t, "{\n  \"games\": 3\n}\n", buf.String())

	buf.Reset()
	p.Error(errors.New("boom"))
	assert.Equal(t, "Error: boom\n", buf.String())
}

func TestColorForTurn(t *testing.T) {
	assert.Equal(t, "White", New(nil, false).ColorForTurn(core.ColorWhite))
	assert.Equal(t, Red+"Black"+Reset, New(nil, true).ColorForTurn(core.ColorBlack))
}
