// FILE: internal/pairing/pairing.go

// Package pairing produces round pairings for Swiss, round-robin and
// knockout events. Functions are pure apart from the random source passed
// in; players are referred to by their index in the input slice.
package pairing

import (
	"math/rand/v2"
	"sort"

	"enginearena/internal/core"
)

// Bye is the opponent name recorded for a player who sat out a round
const Bye = "BYE"

// Entrant is the pairing view of a player
type Entrant struct {
	Name      string
	Score     float64
	Wins      int
	Colors    []core.Color
	Opponents []string
}

func (e Entrant) hadBye() bool {
	for _, opp := range e.Opponents {
		if opp == Bye {
			return true
		}
	}
	return false
}

// imbalance counts black games minus white games
func (e Entrant) imbalance() int {
	n := 0
	for _, c := range e.Colors {
		if c == core.ColorBlack {
			n++
		} else {
			n--
		}
	}
	return n
}

func (e Entrant) lastColor() core.Color {
	if len(e.Colors) == 0 {
		return 0
	}
	return e.Colors[len(e.Colors)-1]
}

// Pair holds the indices of the White and Black players
type Pair struct {
	White, Black int
}

// PairKey is an unordered pair of player names
type PairKey [2]string

func Key(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{a, b}
}

// Played is the set of pairs that already met
type Played map[PairKey]struct{}

func (p Played) Add(a, b string) {
	p[Key(a, b)] = struct{}{}
}

func (p Played) Has(a, b string) bool {
	_, ok := p[Key(a, b)]
	return ok
}

// rankOrder sorts indices by score desc, wins desc, name asc
func rankOrder(entrants []Entrant) []int {
	order := make([]int, len(entrants))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := entrants[order[i]], entrants[order[j]]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		return a.Name < b.Name
	})
	return order
}

func randomColors(a, b int, rng *rand.Rand) Pair {
	if rng.IntN(2) == 0 {
		return Pair{White: a, Black: b}
	}
	return Pair{White: b, Black: a}
}
