package tournament

import (
	"fmt"
	"time"

	"enginearena/internal/core"
	"enginearena/internal/pairing"
)

// Record is a stored game used to rebuild a tournament
type Record struct {
	ID       string
	Round    int
	White    string
	Black    string
	Result   core.Result
	Reason   string
	Moves    []string
	SANs     []string
	PGN      string
	Opening  string
	Duration time.Duration
}

// Restore rebuilds a tournament from its stored games for read-only
// viewing. Players are created on first appearance; in knockout a drawn
// stored game eliminates Black, as the deciding coin flip is not stored.
// Swiss byes are not stored and are inferred from the rounds a player sat
// out. The result is finished only when the stored games cover every
// planned round.
func Restore(cfg Config, records []Record) (*Tournament, error) {
	t, err := New(cfg)
	if err != nil {
		return nil, err
	}

	for _, r := range records {
		for _, name := range []string{r.White, r.Black} {
			if _, ok := t.Player(name); !ok {
				_ = t.AddPlayer(NewPlayer(name, ""))
			}
		}
		t.round = max(t.round, r.Round)
	}
	t.started = true
	if t.Format == FormatRoundRobin && !t.Double && t.round > t.Rounds() {
		t.Double = true
	}

	var byes map[int]*Player
	if t.Format == FormatSwiss {
		byes = inferByes(t.players, records, t.round)
	}
	byesDone := 0
	applyByes := func(upTo int) {
		for ; byesDone < upTo; byesDone++ {
			if p := byes[byesDone+1]; p != nil {
				p.record(1, pairing.Bye, 0)
			}
		}
	}

	for _, r := range records {
		white, ok := t.Player(r.White)
		black, ok2 := t.Player(r.Black)
		if !ok || !ok2 {
			continue
		}
		applyByes(r.Round)

		g := &Game{
			ID:       r.ID,
			Round:    r.Round,
			White:    white,
			Black:    black,
			Status:   GameDone,
			Result:   r.Result,
			Reason:   r.Reason,
			Moves:    r.Moves,
			SANs:     r.SANs,
			PGN:      r.PGN,
			Opening:  r.Opening,
			Duration: r.Duration,
		}
		if g.ID == "" {
			g.ID = newGame(r.Round, white, black).ID
		}
		t.games = append(t.games, g)
		t.played.Add(white.Name, black.Name)

		ws, bs, ok := r.Result.Scores()
		if !ok {
			continue
		}
		white.record(ws, black.Name, core.ColorWhite)
		black.record(bs, white.Name, core.ColorBlack)

		if t.Format == FormatKnockout {
			if ws > bs {
				t.eliminated = append(t.eliminated, black)
			} else if bs > ws {
				t.eliminated = append(t.eliminated, white)
			} else {
				t.eliminated = append(t.eliminated, black)
			}
		}
	}
	applyByes(t.round)

	for _, g := range t.games {
		if g.Round == t.round {
			t.roundGames = append(t.roundGames, g)
		}
	}
	if t.Format == FormatKnockout {
		for _, p := range t.players {
			if !t.Eliminated(p) {
				t.koPending = append(t.koPending, p)
			}
		}
		if len(t.koPending) == 1 {
			t.winner = t.koPending[0]
		}
	}

	t.updateTiebreaks()
	if t.restoredComplete() {
		t.finish()
	} else {
		t.status = fmt.Sprintf("Stopped in round %d of %d", t.round, t.Rounds())
	}
	return t, nil
}

// inferByes finds the player who sat out each Swiss round. A player absent
// from a round after their first game had the bye; in a round where every
// such player played, a player whose first game comes in the next round
// had it. Rounds with more than one candidate get no bye.
func inferByes(players []*Player, records []Record, rounds int) map[int]*Player {
	first := make(map[*Player]int, len(players))
	seen := make(map[int]map[string]bool, rounds)
	for _, r := range records {
		if seen[r.Round] == nil {
			seen[r.Round] = make(map[string]bool)
		}
		for _, name := range []string{r.White, r.Black} {
			name = core.NormalizeName(name)
			seen[r.Round][name] = true
			for _, p := range players {
				if p.Name == name && (first[p] == 0 || r.Round < first[p]) {
					first[p] = r.Round
				}
			}
		}
	}

	byes := make(map[int]*Player)
	for round := 1; round <= rounds; round++ {
		var absent, joining []*Player
		for _, p := range players {
			if seen[round][p.Name] {
				continue
			}
			switch {
			case first[p] < round:
				absent = append(absent, p)
			case first[p] == round+1:
				joining = append(joining, p)
			}
		}
		if len(absent) == 0 {
			absent = joining
		}
		if len(absent) == 1 {
			byes[round] = absent[0]
		}
	}
	return byes
}

// restoredComplete reports whether the stored games cover the whole event
func (t *Tournament) restoredComplete() bool {
	if t.Format == FormatKnockout {
		return t.winner != nil
	}
	if t.round < t.Rounds() {
		return false
	}
	return len(t.roundGames) >= len(t.players)/2
}
