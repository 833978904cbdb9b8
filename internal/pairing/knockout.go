package pairing

import "math/rand/v2"

// Bracket seeds the first knockout round. Seeds are folded so the
// strongest meets the weakest: seed i plays seed n-1-i. With an odd roster
// the top seed alone advances without a game, as Pair{White: 0, Black: -1}.
func Bracket(n int) []Pair {
	if n < 2 {
		return nil
	}

	var pairs []Pair
	first := 0
	if n%2 == 1 {
		pairs = append(pairs, Pair{White: 0, Black: -1})
		first = 1
	}
	for lo, hi := first, n-1; lo < hi; lo, hi = lo+1, hi-1 {
		pairs = append(pairs, Pair{White: lo, Black: hi})
	}
	return pairs
}

// IsBye reports whether the pair has an empty slot
func (p Pair) IsBye() bool {
	return p.White < 0 || p.Black < 0
}

// Advancing returns the player who moves on from a bye pair
func (p Pair) Advancing() int {
	if p.White < 0 {
		return p.Black
	}
	return p.White
}

// NextRound shuffles the surviving players and pairs them consecutively
// with random colours. With an odd count the last shuffled player advances
// without a game; bye is -1 otherwise.
func NextRound(winners []int, rng *rand.Rand) (pairs []Pair, bye int) {
	shuffled := append([]int(nil), winners...)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	bye = -1
	for i := 0; i+1 < len(shuffled); i += 2 {
		pairs = append(pairs, randomColors(shuffled[i], shuffled[i+1], rng))
	}
	if len(shuffled)%2 == 1 {
		bye = shuffled[len(shuffled)-1]
	}
	return pairs, bye
}

// BreakTie picks the player who advances from a drawn knockout game
func BreakTie(a, b int, rng *rand.Rand) (winner, loser int) {
	if rng.IntN(2) == 0 {
		return a, b
	}
	return b, a
}
