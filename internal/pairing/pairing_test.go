package pairing

import (
	"math/rand/v2"
	"testing"

	"enginearena/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

func entrants(names ...string) []Entrant {
	out := make([]Entrant, len(names))
	for i, n := range names {
		out[i] = Entrant{Name: n}
	}
	return out
}

func names(es []Entrant, p Pair) [2]string {
	return [2]string{es[p.White].Name, es[p.Black].Name}
}

// assertCovers checks each non-bye player appears in exactly one pair
func assertCovers(t *testing.T, n int, res SwissResult) {
	t.Helper()
	seen := make(map[int]int)
	for _, p := range res.Pairs {
		seen[p.White]++
		seen[p.Black]++
	}
	for i := 0; i < n; i++ {
		if i == res.Bye {
			assert.Zero(t, seen[i], "bye player %d paired", i)
			continue
		}
		assert.Equal(t, 1, seen[i], "player %d", i)
	}
}

func TestSwissFirstRound(t *testing.T) {
	es := entrants("Delta", "Alpha", "Charlie", "Bravo")
	res := Swiss(es, Played{}, testRand())

	require.Len(t, res.Pairs, 2)
	assert.Equal(t, -1, res.Bye)
	assert.Equal(t, PairedClean, res.Outcome)
	assertCovers(t, 4, res)

	// rank order by name: Alpha-Bravo, Charlie-Delta
	assert.Equal(t, Key("Alpha", "Bravo"), Key(es[res.Pairs[0].White].Name, es[res.Pairs[0].Black].Name))
	assert.Equal(t, Key("Charlie", "Delta"), Key(es[res.Pairs[1].White].Name, es[res.Pairs[1].Black].Name))
}

func TestSwissScoreGroups(t *testing.T) {
	es := []Entrant{
		{Name: "A", Score: 0},
		{Name: "B", Score: 1},
		{Name: "C", Score: 0},
		{Name: "D", Score: 1},
	}
	res := Swiss(es, Played{}, testRand())
	require.Len(t, res.Pairs, 2)
	assert.Equal(t, Key("B", "D"), Key(names(es, res.Pairs[0])[0], names(es, res.Pairs[0])[1]))
	assert.Equal(t, Key("A", "C"), Key(names(es, res.Pairs[1])[0], names(es, res.Pairs[1])[1]))
}

func TestSwissByeGoesToLowestWithoutBye(t *testing.T) {
	es := []Entrant{
		{Name: "A", Score: 2},
		{Name: "B", Score: 1},
		{Name: "C", Score: 0, Opponents: []string{Bye}},
	}
	res := Swiss(es, Played{}, testRand())
	assert.Equal(t, 1, res.Bye, "C already had a bye")
	require.Len(t, res.Pairs, 1)
	assertCovers(t, 3, res)
}

func TestSwissByeWhenEveryoneHadOne(t *testing.T) {
	es := []Entrant{
		{Name: "A", Score: 2, Opponents: []string{Bye}},
		{Name: "B", Score: 1, Opponents: []string{Bye}},
		{Name: "C", Score: 0, Opponents: []string{Bye}},
	}
	res := Swiss(es, Played{}, testRand())
	assert.Equal(t, 2, res.Bye)
}

func TestSwissBacktracksAroundRepeat(t *testing.T) {
	es := entrants("A", "B", "C", "D")
	played := Played{}
	played.Add("C", "D")

	res := Swiss(es, played, testRand())
	require.Len(t, res.Pairs, 2)
	assert.Equal(t, PairedClean, res.Outcome)
	for _, p := range res.Pairs {
		n := names(es, p)
		assert.False(t, played.Has(n[0], n[1]), "repeat %v", n)
	}
}

func TestSwissForcedRepeatWhenAllPlayed(t *testing.T) {
	es := entrants("A", "B", "C", "D")
	played := Played{}
	for i := range es {
		for j := i + 1; j < len(es); j++ {
			played.Add(es[i].Name, es[j].Name)
		}
	}

	res := Swiss(es, played, testRand())
	assert.Equal(t, PairedWithRepeat, res.Outcome)
	require.Len(t, res.Pairs, 2)
	assertCovers(t, 4, res)
}

func TestSwissNoRepeatsAcrossRounds(t *testing.T) {
	// after two rounds of six players the unplayed graph is 3-regular and
	// always has a perfect matching
	es := entrants("A", "B", "C", "D", "E", "F")
	played := Played{}
	rng := testRand()

	for round := 0; round < 3; round++ {
		res := Swiss(es, played, rng)
		require.Equal(t, PairedClean, res.Outcome, "round %d", round+1)
		assertCovers(t, len(es), res)
		for _, p := range res.Pairs {
			played.Add(es[p.White].Name, es[p.Black].Name)
			es[p.White].Score += 1
			es[p.White].Wins++
			es[p.White].Colors = append(es[p.White].Colors, core.ColorWhite)
			es[p.Black].Colors = append(es[p.Black].Colors, core.ColorBlack)
		}
	}
	assert.Len(t, played, 9)
}

func TestSwissColorAssignment(t *testing.T) {
	t.Run("imbalance", func(t *testing.T) {
		es := []Entrant{
			{Name: "A", Colors: []core.Color{core.ColorWhite, core.ColorWhite}},
			{Name: "B", Colors: []core.Color{core.ColorBlack, core.ColorWhite}},
		}
		res := Swiss(es, Played{}, testRand())
		require.Len(t, res.Pairs, 1)
		assert.Equal(t, Pair{White: 1, Black: 0}, res.Pairs[0])
	})

	t.Run("last color", func(t *testing.T) {
		es := []Entrant{
			{Name: "A", Colors: []core.Color{core.ColorBlack, core.ColorWhite}},
			{Name: "B", Colors: []core.Color{core.ColorWhite, core.ColorBlack}},
		}
		res := Swiss(es, Played{}, testRand())
		require.Len(t, res.Pairs, 1)
		assert.Equal(t, Pair{White: 1, Black: 0}, res.Pairs[0])
	})
}

func TestSwissDeterministicForSeed(t *testing.T) {
	es := entrants("A", "B", "C", "D", "E", "F", "G", "H")
	a := Swiss(es, Played{}, rand.New(rand.NewPCG(1, 2)))
	b := Swiss(es, Played{}, rand.New(rand.NewPCG(1, 2)))
	assert.Equal(t, a, b)
}

func TestRoundRobin(t *testing.T) {
	for _, n := range []int{2, 3, 4, 5, 6, 7, 8} {
		schedule := RoundRobin(n, false)

		wantRounds := n - 1
		if n%2 == 1 {
			wantRounds = n
		}
		require.Len(t, schedule, wantRounds, "n=%d", n)

		met := make(map[[2]int]int)
		games := make(map[int]int)
		for _, round := range schedule {
			inRound := make(map[int]bool)
			for _, p := range round {
				assert.False(t, inRound[p.White] || inRound[p.Black], "n=%d player twice in round", n)
				inRound[p.White], inRound[p.Black] = true, true
				a, b := min(p.White, p.Black), max(p.White, p.Black)
				met[[2]int{a, b}]++
				games[p.White]++
				games[p.Black]++
			}
		}

		assert.Len(t, met, n*(n-1)/2, "n=%d", n)
		for k, v := range met {
			assert.Equal(t, 1, v, "n=%d pair %v", n, k)
		}
		for i := 0; i < n; i++ {
			assert.Equal(t, n-1, games[i], "n=%d player %d", n, i)
		}
	}
}

func TestRoundRobinColorBalance(t *testing.T) {
	schedule := RoundRobin(6, false)
	whites := make(map[int]int)
	for _, round := range schedule {
		for _, p := range round {
			whites[p.White]++
		}
	}
	for i := 0; i < 6; i++ {
		assert.InDelta(t, 2.5, float64(whites[i]), 1.5, "player %d", i)
	}
}

func TestDoubleRoundRobinMirrors(t *testing.T) {
	schedule := RoundRobin(4, true)
	require.Len(t, schedule, 6)
	for r := 0; r < 3; r++ {
		require.Len(t, schedule[r+3], len(schedule[r]))
		for i, p := range schedule[r] {
			assert.Equal(t, Pair{White: p.Black, Black: p.White}, schedule[r+3][i])
		}
	}
}

func TestRoundRobinTooFew(t *testing.T) {
	assert.Nil(t, RoundRobin(1, false))
	assert.Nil(t, RoundRobin(0, true))
}

func TestBracket(t *testing.T) {
	t.Run("power of two", func(t *testing.T) {
		pairs := Bracket(4)
		assert.Equal(t, []Pair{{0, 3}, {1, 2}}, pairs)
		for _, p := range pairs {
			assert.False(t, p.IsBye())
		}
	})

	t.Run("five players", func(t *testing.T) {
		pairs := Bracket(5)
		require.Len(t, pairs, 3)
		byes := 0
		for _, p := range pairs {
			if p.IsBye() {
				byes++
				assert.Equal(t, 0, p.Advancing(), "top seed sits out")
			}
		}
		assert.Equal(t, 1, byes)
		assert.Equal(t, []Pair{{0, -1}, {1, 4}, {2, 3}}, pairs)
	})

	t.Run("too few", func(t *testing.T) {
		assert.Nil(t, Bracket(1))
	})
}

func TestNextRound(t *testing.T) {
	rng := testRand()

	pairs, bye := NextRound([]int{4, 7, 1, 2}, rng)
	assert.Equal(t, -1, bye)
	require.Len(t, pairs, 2)

	pairs, bye = NextRound([]int{4, 7, 1}, rng)
	require.Len(t, pairs, 1)
	assert.Contains(t, []int{4, 7, 1}, bye)
	assert.NotEqual(t, bye, pairs[0].White)
	assert.NotEqual(t, bye, pairs[0].Black)
}

func TestBreakTie(t *testing.T) {
	w, l := BreakTie(3, 9, testRand())
	assert.ElementsMatch(t, []int{3, 9}, []int{w, l})
}
