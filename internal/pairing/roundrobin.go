// FILE: internal/pairing/roundrobin.go
package pairing

// RoundRobin builds the full schedule for n players with the circle method:
// player 0 stays fixed while the others rotate one seat per round. An odd
// roster gets an empty seat, and whoever faces it sits the round out. With
// double set, every round is repeated with colours reversed.
func RoundRobin(n int, double bool) [][]Pair {
	if n < 2 {
		return nil
	}

	seats := make([]int, n)
	for i := range seats {
		seats[i] = i
	}
	if n%2 == 1 {
		seats = append(seats, -1)
	}
	size := len(seats)
	fixed, rotating := seats[0], seats[1:]

	var schedule [][]Pair
	for r := 0; r < size-1; r++ {
		current := append([]int{fixed}, rotating...)

		var round []Pair
		for i := 0; i < size/2; i++ {
			a, b := current[i], current[size-1-i]
			if a < 0 || b < 0 {
				continue
			}
			aWhite := i%2 == 0
			if i == 0 && r%2 == 1 {
				aWhite = !aWhite
			}
			if aWhite {
				round = append(round, Pair{White: a, Black: b})
			} else {
				round = append(round, Pair{White: b, Black: a})
			}
		}
		schedule = append(schedule, round)

		last := rotating[len(rotating)-1]
		rotating = append([]int{last}, rotating[:len(rotating)-1]...)
	}

	if double {
		single := len(schedule)
		for r := 0; r < single; r++ {
			mirrored := make([]Pair, len(schedule[r]))
			for i, p := range schedule[r] {
				mirrored[i] = Pair{White: p.Black, Black: p.White}
			}
			schedule = append(schedule, mirrored)
		}
	}
	return schedule
}
