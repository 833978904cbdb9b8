// FILE: internal/tournament/standings.go
package tournament

import (
	"sort"
	"time"

	"enginearena/internal/pairing"
)

// updateTiebreaks recomputes Buchholz and Sonneborn-Berger from current
// scores. Only Swiss events use them.
func (t *Tournament) updateTiebreaks() {
	if t.Format != FormatSwiss {
		return
	}

	scores := make(map[string]float64, len(t.players))
	for _, p := range t.players {
		scores[p.Name] = p.Score
	}

	for _, p := range t.players {
		p.Buchholz = 0
		for _, opp := range p.Opponents {
			if opp != pairing.Bye {
				p.Buchholz += scores[opp]
			}
		}

		p.SonnebornBerger = 0
		for _, g := range t.games {
			if g.Status != GameDone {
				continue
			}
			ws, bs, ok := g.Result.Scores()
			if !ok {
				continue
			}
			switch p {
			case g.White:
				p.SonnebornBerger += ws * scores[g.Black.Name]
			case g.Black:
				p.SonnebornBerger += bs * scores[g.White.Name]
			}
		}
	}
}

// Standings returns the roster in ranking order for the format
func (t *Tournament) Standings() []*Player {
	players := append([]*Player(nil), t.players...)

	switch t.Format {
	case FormatSwiss:
		sort.SliceStable(players, func(i, j int) bool {
			a, b := players[i], players[j]
			if a.Score != b.Score {
				return a.Score > b.Score
			}
			if a.Buchholz != b.Buchholz {
				return a.Buchholz > b.Buchholz
			}
			if a.SonnebornBerger != b.SonnebornBerger {
				return a.SonnebornBerger > b.SonnebornBerger
			}
			return a.Name < b.Name
		})

	case FormatRoundRobin:
		sort.SliceStable(players, func(i, j int) bool {
			a, b := players[i], players[j]
			if a.Score != b.Score {
				return a.Score > b.Score
			}
			if a.Wins != b.Wins {
				return a.Wins > b.Wins
			}
			return a.Name < b.Name
		})

	case FormatKnockout:
		// survivors rank 0; later eliminations rank ahead of earlier ones
		rank := make(map[*Player]int, len(t.eliminated))
		for i, p := range t.eliminated {
			rank[p] = len(t.eliminated) - i
		}
		sort.SliceStable(players, func(i, j int) bool {
			a, b := players[i], players[j]
			if rank[a] != rank[b] {
				return rank[a] < rank[b]
			}
			if a.Score != b.Score {
				return a.Score > b.Score
			}
			return a.Name < b.Name
		})
	}
	return players
}

// Eliminated reports whether a knockout player is out
func (t *Tournament) Eliminated(p *Player) bool {
	for _, e := range t.eliminated {
		if e == p {
			return true
		}
	}
	return false
}

type Standing struct {
	Rank            int     `json:"rank"`
	Name            string  `json:"name"`
	Score           float64 `json:"score"`
	Games           int     `json:"games"`
	Wins            int     `json:"wins"`
	Draws           int     `json:"draws"`
	Losses          int     `json:"losses"`
	Buchholz        float64 `json:"buchholz"`
	SonnebornBerger float64 `json:"sonneborn_berger"`
	Eliminated      bool    `json:"eliminated,omitempty"`
}

type GameSummary struct {
	ID              string  `json:"id"`
	Round           int     `json:"round"`
	White           string  `json:"white"`
	Black           string  `json:"black"`
	Status          string  `json:"status"`
	Result          string  `json:"result"`
	Reason          string  `json:"reason,omitempty"`
	Moves           int     `json:"moves"`
	Opening         string  `json:"opening,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Snapshot is an immutable copy of the controller state for readers outside
// the runner
type Snapshot struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Format    Format        `json:"format"`
	State     string        `json:"state"`
	Round     int           `json:"round"`
	Rounds    int           `json:"rounds"`
	Status    string        `json:"status"`
	Winner    string        `json:"winner,omitempty"`
	Standings []Standing    `json:"standings"`
	Games     []GameSummary `json:"games"`
	CreatedAt time.Time     `json:"created_at"`
}

func (t *Tournament) Snapshot() Snapshot {
	s := Snapshot{
		ID:        t.ID,
		Name:      t.Name,
		Format:    t.Format,
		State:     t.State().String(),
		Round:     t.round,
		Rounds:    t.Rounds(),
		Status:    t.status,
		CreatedAt: t.CreatedAt,
	}
	if t.winner != nil {
		s.Winner = t.winner.Name
	}

	for i, p := range t.Standings() {
		s.Standings = append(s.Standings, Standing{
			Rank:            i + 1,
			Name:            p.Name,
			Score:           p.Score,
			Games:           p.GamesPlayed(),
			Wins:            p.Wins,
			Draws:           p.Draws,
			Losses:          p.Losses,
			Buchholz:        p.Buchholz,
			SonnebornBerger: p.SonnebornBerger,
			Eliminated:      t.Format == FormatKnockout && t.Eliminated(p),
		})
	}

	for _, g := range t.games {
		s.Games = append(s.Games, GameSummary{
			ID:              g.ID,
			Round:           g.Round,
			White:           g.White.Name,
			Black:           g.Black.Name,
			Status:          g.Status.String(),
			Result:          g.Result.String(),
			Reason:          g.Reason,
			Moves:           g.MoveCount(),
			Opening:         g.Opening,
			DurationSeconds: g.Duration.Seconds(),
		})
	}
	return s
}
