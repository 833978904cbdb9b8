// FILE: internal/pairing/swiss.go
package pairing

import (
	"math/rand/v2"

	"enginearena/internal/core"
)

// maxSearchNodes bounds the repeat-free backtracking search
const maxSearchNodes = 100000

type SwissOutcome int

const (
	// PairedClean means no pair in the round has met before
	PairedClean SwissOutcome = iota
	// PairedWithRepeat means no repeat-free pairing was found and at
	// least one pair meets again
	PairedWithRepeat
)

func (o SwissOutcome) String() string {
	if o == PairedWithRepeat {
		return "paired with forced repeat"
	}
	return "paired without repeats"
}

type SwissResult struct {
	Pairs   []Pair
	Bye     int // index of the player sitting out, -1 if none
	Outcome SwissOutcome
}

// Swiss pairs players of similar score. With an odd count the lowest ranked
// player without a previous bye sits out. The rest are paired top-down by a
// backtracking search that avoids repeats; when none exists the search
// falls back to pairing each top player with the first unplayed candidate,
// or the next one in rank order.
func Swiss(entrants []Entrant, played Played, rng *rand.Rand) SwissResult {
	order := rankOrder(entrants)
	res := SwissResult{Bye: -1}

	if len(order)%2 == 1 {
		pos := len(order) - 1
		for i := len(order) - 1; i >= 0; i-- {
			if !entrants[order[i]].hadBye() {
				pos = i
				break
			}
		}
		res.Bye = order[pos]
		order = append(order[:pos:pos], order[pos+1:]...)
	}

	s := &swissSearch{entrants: entrants, played: played}
	seq, ok := s.strict(order)
	if !ok {
		seq = s.greedy(order)
	}

	for i := 0; i+1 < len(seq); i += 2 {
		a, b := seq[i], seq[i+1]
		if played.Has(entrants[a].Name, entrants[b].Name) {
			res.Outcome = PairedWithRepeat
		}
		res.Pairs = append(res.Pairs, assignColors(entrants, a, b, rng))
	}
	return res
}

type swissSearch struct {
	entrants []Entrant
	played   Played
	nodes    int
}

func (s *swissSearch) met(a, b int) bool {
	return s.played.Has(s.entrants[a].Name, s.entrants[b].Name)
}

// strict returns a full repeat-free pairing sequence, or false
func (s *swissSearch) strict(remaining []int) ([]int, bool) {
	if len(remaining) == 0 {
		return nil, true
	}
	s.nodes++
	if s.nodes > maxSearchNodes {
		return nil, false
	}

	top := remaining[0]
	for i := 1; i < len(remaining); i++ {
		cand := remaining[i]
		if s.met(top, cand) {
			continue
		}
		if sub, ok := s.strict(without(remaining, i)); ok {
			return append([]int{top, cand}, sub...), true
		}
	}
	return nil, false
}

func (s *swissSearch) greedy(remaining []int) []int {
	if len(remaining) < 2 {
		return nil
	}
	top := remaining[0]
	pick := 1
	for i := 1; i < len(remaining); i++ {
		if !s.met(top, remaining[i]) {
			pick = i
			break
		}
	}
	return append([]int{top, remaining[pick]}, s.greedy(without(remaining, pick))...)
}

// without drops remaining[0] and remaining[i] into a fresh slice
func without(remaining []int, i int) []int {
	out := make([]int, 0, len(remaining)-2)
	for j := 1; j < len(remaining); j++ {
		if j != i {
			out = append(out, remaining[j])
		}
	}
	return out
}

// assignColors gives White to the player with more black games so far, then
// to the one who played Black last, then at random.
func assignColors(entrants []Entrant, a, b int, rng *rand.Rand) Pair {
	ia, ib := entrants[a].imbalance(), entrants[b].imbalance()
	switch {
	case ia > ib:
		return Pair{White: a, Black: b}
	case ib > ia:
		return Pair{White: b, Black: a}
	}

	la, lb := entrants[a].lastColor(), entrants[b].lastColor()
	switch {
	case la == core.ColorBlack && lb != core.ColorBlack:
		return Pair{White: a, Black: b}
	case lb == core.ColorBlack && la != core.ColorBlack:
		return Pair{White: b, Black: a}
	}
	return randomColors(a, b, rng)
}
