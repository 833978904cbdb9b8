package tournament

import (
	"errors"
	"math/rand/v2"
	"testing"

	"enginearena/internal/core"
	"enginearena/internal/pairing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTournament(t *testing.T, format Format, rounds int, names ...string) *Tournament {
	t.Helper()
	players := make([]*Player, len(names))
	for i, n := range names {
		players[i] = NewPlayer(n, "/engines/"+n)
	}
	tr, err := New(Config{
		Name:   "Test Event",
		Format: format,
		Rounds: rounds,
		Rand:   rand.New(rand.NewPCG(3, 5)),
	}, players...)
	require.NoError(t, err)
	return tr
}

func whiteWins(*Game) core.Result { return core.ResultWhiteWins }

// playRound records a result for every pending game of the current round
func playRound(t *testing.T, tr *Tournament, decide func(*Game) core.Result) {
	t.Helper()
	for g := tr.NextGame(); g != nil; g = tr.NextGame() {
		require.NoError(t, tr.MarkRunning(g))
		require.NoError(t, tr.RecordResult(g, Report{Result: decide(g)}))
	}
}

func playOut(t *testing.T, tr *Tournament, decide func(*Game) core.Result) {
	t.Helper()
	if !tr.Started() {
		require.NoError(t, tr.Start())
	}
	for guard := 0; !tr.Finished(); guard++ {
		require.Less(t, guard, 64, "tournament did not finish")
		playRound(t, tr, decide)
		_, err := tr.AdvanceRound()
		require.NoError(t, err)
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(Config{Format: "ladder"})
	assert.True(t, errors.Is(err, ErrUnknownFormat))

	_, err = New(Config{Format: FormatSwiss}, NewPlayer("Alpha", ""), NewPlayer("alpha (White)", ""))
	assert.True(t, errors.Is(err, ErrDuplicatePlayer))

	tr := newTournament(t, FormatSwiss, 1, "Solo")
	assert.True(t, errors.Is(tr.Start(), ErrTooFewPlayers))
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"Swiss":       FormatSwiss,
		"Round Robin": FormatRoundRobin,
		"round-robin": FormatRoundRobin,
		"KO":          FormatKnockout,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("arena")
	assert.Error(t, err)
}

func TestStateTransitions(t *testing.T) {
	tr := newTournament(t, FormatRoundRobin, 0, "A", "B")
	assert.Equal(t, StateCreated, tr.State())

	require.NoError(t, tr.Start())
	assert.True(t, errors.Is(tr.Start(), ErrAlreadyStarted))
	assert.Equal(t, StateRoundInProgress, tr.State())
	assert.Equal(t, "Round 1 started", tr.Status())

	playRound(t, tr, whiteWins)
	assert.Equal(t, StateRoundComplete, tr.State())

	done, err := tr.AdvanceRound()
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, StateFinished, tr.State())
	assert.Contains(t, tr.Status(), "Winner:")
}

func TestAdvanceRoundRequiresCompletedRound(t *testing.T) {
	tr := newTournament(t, FormatSwiss, 2, "A", "B", "C", "D")
	_, err := tr.AdvanceRound()
	assert.True(t, errors.Is(err, ErrNotStarted))

	require.NoError(t, tr.Start())
	_, err = tr.AdvanceRound()
	assert.Error(t, err)
	assert.Equal(t, 1, tr.Round())
}

func TestSwissPlaysEveryPairOnce(t *testing.T) {
	names := []string{"A", "B", "C", "D"}
	tr := newTournament(t, FormatSwiss, 3, names...)
	playOut(t, tr, whiteWins)

	assert.Equal(t, 3, tr.Round())
	assert.Len(t, tr.Games(), 6)
	for i := range names {
		for j := i + 1; j < len(names); j++ {
			assert.True(t, tr.HasPlayed(names[i], names[j]), "%s-%s", names[i], names[j])
		}
	}

	total := 0.0
	for _, p := range tr.Players() {
		total += p.Score
		assert.Equal(t, 3, p.GamesPlayed())
	}
	assert.Equal(t, 6.0, total)
	require.NotNil(t, tr.Winner())
	assert.Equal(t, tr.Standings()[0], tr.Winner())
}

func TestSwissForcedRepeat(t *testing.T) {
	tr := newTournament(t, FormatSwiss, 4, "A", "B", "C", "D")
	require.NoError(t, tr.Start())

	var outcomes []pairing.SwissOutcome
	for !tr.Finished() {
		outcomes = append(outcomes, tr.LastPairing())
		require.Len(t, tr.RoundGames(), 2)
		playRound(t, tr, whiteWins)
		_, err := tr.AdvanceRound()
		require.NoError(t, err)
	}

	assert.Equal(t, []pairing.SwissOutcome{
		pairing.PairedClean, pairing.PairedClean, pairing.PairedClean, pairing.PairedWithRepeat,
	}, outcomes)
	assert.Len(t, tr.Games(), 8)
}

func TestSwissByes(t *testing.T) {
	tr := newTournament(t, FormatSwiss, 2, "A", "B", "C", "D", "E")
	require.NoError(t, tr.Start())

	require.Len(t, tr.RoundGames(), 2)
	e, _ := tr.Player("E")
	assert.Equal(t, 1.0, e.Score, "lowest ranked gets the first bye")
	assert.Equal(t, []string{pairing.Bye}, e.Opponents)
	assert.Empty(t, e.Colors)

	playOut(t, tr, whiteWins)

	byes := 0
	for _, p := range tr.Players() {
		n := 0
		for _, opp := range p.Opponents {
			if opp == pairing.Bye {
				n++
			}
		}
		assert.LessOrEqual(t, n, 1, p.Name)
		byes += n
	}
	assert.Equal(t, 2, byes)
}

func TestSwissTiebreaks(t *testing.T) {
	tr := newTournament(t, FormatSwiss, 1, "A", "B", "C", "D")
	require.NoError(t, tr.Start())

	playRound(t, tr, func(g *Game) core.Result {
		switch {
		case g.White.Name == "A":
			return core.ResultWhiteWins
		case g.Black.Name == "A":
			return core.ResultBlackWins
		}
		return core.ResultDraw
	})
	done, err := tr.AdvanceRound()
	require.NoError(t, err)
	require.True(t, done)

	var order []string
	for _, p := range tr.Standings() {
		order = append(order, p.Name)
	}
	assert.Equal(t, []string{"A", "C", "D", "B"}, order)

	a, _ := tr.Player("A")
	b, _ := tr.Player("B")
	c, _ := tr.Player("C")
	assert.Equal(t, 0.0, a.Buchholz)
	assert.Equal(t, 1.0, b.Buchholz)
	assert.Equal(t, 0.5, c.Buchholz)
	assert.Equal(t, 0.0, a.SonnebornBerger)
	assert.Equal(t, 0.25, c.SonnebornBerger)
	assert.Equal(t, "A", tr.Winner().Name)
}

func TestRoundRobin(t *testing.T) {
	t.Run("single", func(t *testing.T) {
		names := []string{"A", "B", "C", "D"}
		tr := newTournament(t, FormatRoundRobin, 0, names...)
		assert.Equal(t, 3, tr.Rounds())
		playOut(t, tr, func(*Game) core.Result { return core.ResultDraw })

		assert.Equal(t, 3, tr.Round())
		assert.Len(t, tr.Games(), 6)
		for _, p := range tr.Players() {
			assert.Equal(t, 3, p.Draws)
			assert.Equal(t, 1.5, p.Score)
		}
		// all level: name decides
		assert.Equal(t, "A", tr.Winner().Name)
	})

	t.Run("double", func(t *testing.T) {
		tr := newTournament(t, FormatRoundRobin, 0, "A", "B", "C")
		tr.Double = true
		playOut(t, tr, whiteWins)
		assert.Equal(t, 6, tr.Round())
		assert.Len(t, tr.Games(), 6)
		for _, p := range tr.Players() {
			assert.Equal(t, 4, p.GamesPlayed())
			assert.Equal(t, 2, p.Wins, "white wins and each pair swaps colours")
		}
	})

	t.Run("roster locked once started", func(t *testing.T) {
		tr := newTournament(t, FormatRoundRobin, 0, "A", "B")
		require.NoError(t, tr.Start())
		assert.True(t, errors.Is(tr.AddPlayer(NewPlayer("C", "")), ErrAlreadyStarted))
	})
}

func TestKnockoutFivePlayers(t *testing.T) {
	tr := newTournament(t, FormatKnockout, 0, "A", "B", "C", "D", "E")
	require.NoError(t, tr.Start())

	require.Len(t, tr.RoundGames(), 2, "one bye leaves two games")
	assert.Equal(t, 3, tr.Rounds())

	playOut(t, tr, func(*Game) core.Result { return core.ResultDraw })

	assert.Equal(t, 3, tr.Round())
	require.NotNil(t, tr.Winner())
	assert.False(t, tr.Eliminated(tr.Winner()))

	eliminated := 0
	for _, p := range tr.Players() {
		if tr.Eliminated(p) {
			eliminated++
		}
	}
	assert.Equal(t, 4, eliminated)
	assert.Len(t, tr.Games(), 4)

	standings := tr.Standings()
	assert.Equal(t, tr.Winner(), standings[0])
	for _, p := range standings[1:] {
		assert.True(t, tr.Eliminated(p))
	}
}

func TestKnockoutUnknownResultStillAdvances(t *testing.T) {
	tr := newTournament(t, FormatKnockout, 0, "A", "B")
	playOut(t, tr, func(*Game) core.Result { return core.ResultUnknown })

	require.NotNil(t, tr.Winner())
	for _, p := range tr.Players() {
		assert.Zero(t, p.GamesPlayed())
	}
}

func TestKnockoutEliminationOrder(t *testing.T) {
	tr := newTournament(t, FormatKnockout, 0, "A", "B", "C", "D")
	playOut(t, tr, whiteWins)

	standings := tr.Standings()
	require.Len(t, standings, 4)
	final := tr.Games()[len(tr.Games())-1]
	assert.Equal(t, final.White, standings[0])
	assert.Equal(t, final.Black, standings[1], "finalist ranks above semi-final losers")
}

func TestResultIsImmutable(t *testing.T) {
	tr := newTournament(t, FormatSwiss, 1, "A", "B")
	require.NoError(t, tr.Start())
	g := tr.NextGame()
	require.NotNil(t, g)

	require.NoError(t, tr.RecordResult(g, Report{Result: core.ResultWhiteWins, Reason: "Checkmate"}))
	err := tr.RecordResult(g, Report{Result: core.ResultBlackWins})
	assert.True(t, errors.Is(err, ErrResultFinal))

	assert.Equal(t, core.ResultWhiteWins, g.Result)
	assert.Equal(t, "Checkmate", g.Reason)
	assert.Equal(t, 1.0, g.White.Score)
	assert.Equal(t, 0.0, g.Black.Score)
}

func TestAbandonReturnsGameToPending(t *testing.T) {
	tr := newTournament(t, FormatSwiss, 1, "A", "B")
	require.NoError(t, tr.Start())

	g := tr.NextGame()
	require.NoError(t, tr.MarkRunning(g))
	assert.Nil(t, tr.NextGame())
	assert.Error(t, tr.MarkRunning(g))

	tr.Abandon(g)
	assert.Equal(t, GamePending, g.Status)
	assert.Same(t, g, tr.NextGame())
	assert.False(t, tr.RoundComplete())
}

func TestRosterEdits(t *testing.T) {
	tr := newTournament(t, FormatSwiss, 3, "A", "B", "C", "D")
	require.NoError(t, tr.AddPlayer(NewPlayer("E", "/engines/E")))
	assert.Equal(t, 5, tr.Players()[4].Seed)

	require.NoError(t, tr.Start())
	playRound(t, tr, whiteWins)

	var played string
	for _, p := range tr.Players() {
		if p.GamesPlayed() > 0 && p.Opponents[0] != pairing.Bye {
			played = p.Name
			break
		}
	}
	assert.True(t, errors.Is(tr.RemovePlayer(played), ErrPlayerHasGames))
	assert.True(t, errors.Is(tr.RemovePlayer("Nobody"), ErrUnknownPlayer))

	require.NoError(t, tr.AddPlayer(NewPlayer("F", "/engines/F")))
	require.NoError(t, tr.RemovePlayer("F"))
	_, ok := tr.Player("F")
	assert.False(t, ok)
}

func TestSnapshot(t *testing.T) {
	tr := newTournament(t, FormatKnockout, 0, "A", "B")
	require.NoError(t, tr.Start())

	s := tr.Snapshot()
	assert.Equal(t, "round_in_progress", s.State)
	assert.Equal(t, 1, s.Rounds)
	require.Len(t, s.Games, 1)
	assert.Equal(t, "pending", s.Games[0].Status)
	assert.Equal(t, "*", s.Games[0].Result)

	playOut(t, tr, whiteWins)
	s2 := tr.Snapshot()
	assert.Equal(t, "finished", s2.State)
	assert.Equal(t, "A", s2.Winner)
	require.Len(t, s2.Standings, 2)
	assert.True(t, s2.Standings[1].Eliminated)

	assert.Equal(t, "pending", s.Games[0].Status, "earlier snapshot unchanged")
}

func TestRestore(t *testing.T) {
	records := []Record{
		{Round: 1, White: "A", Black: "B", Result: core.ResultWhiteWins},
		{Round: 1, White: "C", Black: "D", Result: core.ResultDraw},
		{Round: 2, White: "C", Black: "A", Result: core.ResultBlackWins},
		{Round: 2, White: "B", Black: "D", Result: core.ResultWhiteWins},
	}

	tr, err := Restore(Config{ID: "t-1", Name: "Old", Format: FormatSwiss}, records)
	require.NoError(t, err)

	assert.True(t, tr.Finished())
	assert.Equal(t, "t-1", tr.ID)
	assert.Equal(t, 2, tr.Round())
	assert.Len(t, tr.Games(), 4)
	assert.Equal(t, "A", tr.Winner().Name)

	var order []string
	for _, p := range tr.Standings() {
		order = append(order, p.Name)
	}
	assert.Equal(t, []string{"A", "B", "C", "D"}, order)
	b, _ := tr.Player("B")
	assert.Equal(t, 2.5, b.Buchholz)
}

func TestRestoreKnockout(t *testing.T) {
	records := []Record{
		{Round: 1, White: "A", Black: "B", Result: core.ResultWhiteWins},
		{Round: 1, White: "C", Black: "D", Result: core.ResultWhiteWins},
		{Round: 2, White: "A", Black: "C", Result: core.ResultWhiteWins},
	}
	tr, err := Restore(Config{Format: FormatKnockout}, records)
	require.NoError(t, err)

	var order []string
	for _, p := range tr.Standings() {
		order = append(order, p.Name)
	}
	assert.Equal(t, []string{"A", "C", "D", "B"}, order)
	assert.Equal(t, "A", tr.Winner().Name)
}

func TestRestoreRoundRobin(t *testing.T) {
	records := []Record{
		{Round: 1, White: "A", Black: "B", Result: core.ResultDraw},
		{Round: 2, White: "B", Black: "C", Result: core.ResultBlackWins},
		{Round: 3, White: "C", Black: "A", Result: core.ResultDraw},
	}
	tr, err := Restore(Config{Format: FormatRoundRobin}, records)
	require.NoError(t, err)

	assert.Len(t, tr.Players(), 3)
	assert.Len(t, tr.Games(), 3)
	c, _ := tr.Player("C")
	assert.Equal(t, 1.5, c.Score)
}

func recordsOf(tr *Tournament) []Record {
	var records []Record
	for _, g := range tr.CompletedGames() {
		records = append(records, Record{
			ID:     g.ID,
			Round:  g.Round,
			White:  g.White.Name,
			Black:  g.Black.Name,
			Result: g.Result,
		})
	}
	return records
}

func TestRestoreSwissByes(t *testing.T) {
	live := newTournament(t, FormatSwiss, 3, "A", "B", "C")
	playOut(t, live, func(*Game) core.Result { return core.ResultDraw })

	restored, err := Restore(Config{Format: FormatSwiss, Rounds: 3}, recordsOf(live))
	require.NoError(t, err)
	assert.True(t, restored.Finished())

	for _, p := range live.Players() {
		r, ok := restored.Player(p.Name)
		require.True(t, ok, p.Name)
		assert.Equal(t, p.Score, r.Score, p.Name)
		assert.Equal(t, p.Buchholz, r.Buchholz, p.Name)
		assert.Equal(t, p.SonnebornBerger, r.SonnebornBerger, p.Name)
		assert.Equal(t, p.Wins, r.Wins, p.Name)
		assert.Equal(t, p.Draws, r.Draws, p.Name)
		assert.ElementsMatch(t, p.Opponents, r.Opponents, p.Name)
	}
}

func TestRestorePartial(t *testing.T) {
	t.Run("swiss", func(t *testing.T) {
		records := []Record{
			{Round: 1, White: "A", Black: "B", Result: core.ResultWhiteWins},
			{Round: 1, White: "C", Black: "D", Result: core.ResultDraw},
		}
		tr, err := Restore(Config{Format: FormatSwiss, Rounds: 3}, records)
		require.NoError(t, err)

		assert.False(t, tr.Finished())
		assert.Nil(t, tr.Winner())
		assert.Equal(t, "Stopped in round 1 of 3", tr.Status())
		assert.Equal(t, StateRoundComplete, tr.State())
	})

	t.Run("knockout", func(t *testing.T) {
		records := []Record{
			{Round: 1, White: "A", Black: "B", Result: core.ResultWhiteWins},
			{Round: 1, White: "C", Black: "D", Result: core.ResultBlackWins},
		}
		tr, err := Restore(Config{Format: FormatKnockout}, records)
		require.NoError(t, err)

		assert.False(t, tr.Finished())
		assert.Nil(t, tr.Winner())
	})

	t.Run("round robin missing a game", func(t *testing.T) {
		records := []Record{
			{Round: 1, White: "A", Black: "D", Result: core.ResultDraw},
			{Round: 1, White: "B", Black: "C", Result: core.ResultDraw},
			{Round: 2, White: "A", Black: "C", Result: core.ResultDraw},
			{Round: 2, White: "D", Black: "B", Result: core.ResultDraw},
			{Round: 3, White: "A", Black: "B", Result: core.ResultDraw},
		}
		tr, err := Restore(Config{Format: FormatRoundRobin}, records)
		require.NoError(t, err)
		assert.False(t, tr.Finished())
	})
}
