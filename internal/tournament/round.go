// FILE: internal/tournament/round.go
package tournament

import (
	"fmt"
	"time"

	"enginearena/internal/core"
	"enginearena/internal/pairing"
)

// Start generates the first round
func (t *Tournament) Start() error {
	if t.started {
		return ErrAlreadyStarted
	}
	if len(t.players) < 2 {
		return ErrTooFewPlayers
	}

	t.started = true
	if t.Format == FormatRoundRobin {
		t.rrRoster = append([]*Player(nil), t.players...)
		t.schedule = pairing.RoundRobin(len(t.rrRoster), t.Double)
	}
	if t.Format == FormatSwiss && t.rounds <= 0 {
		t.rounds = t.Rounds()
	}

	t.generateRound()
	if !t.finished {
		t.status = fmt.Sprintf("Round %d started", t.round)
	}
	return nil
}

func (t *Tournament) generateRound() {
	t.round++
	t.roundGames = nil

	switch t.Format {
	case FormatSwiss:
		t.pairSwiss()
	case FormatRoundRobin:
		if idx := t.round - 1; idx < len(t.schedule) {
			for _, p := range t.schedule[idx] {
				t.addGame(t.rrRoster[p.White], t.rrRoster[p.Black])
			}
		}
	case FormatKnockout:
		t.pairKnockout()
	}
}

func (t *Tournament) addGame(white, black *Player) {
	g := newGame(t.round, white, black)
	t.roundGames = append(t.roundGames, g)
	t.games = append(t.games, g)
}

func (t *Tournament) pairSwiss() {
	entrants := make([]pairing.Entrant, len(t.players))
	for i, p := range t.players {
		entrants[i] = p.entrant()
	}

	res := pairing.Swiss(entrants, t.played, t.rng)
	t.lastPairing = res.Outcome
	for _, p := range res.Pairs {
		t.addGame(t.players[p.White], t.players[p.Black])
	}
	if res.Bye >= 0 {
		t.players[res.Bye].record(1, pairing.Bye, 0)
	}
}

func (t *Tournament) pairKnockout() {
	if t.round == 1 {
		for _, p := range pairing.Bracket(len(t.players)) {
			if p.IsBye() {
				if adv := p.Advancing(); adv >= 0 {
					t.koPending = append(t.koPending, t.players[adv])
				}
				continue
			}
			t.addGame(t.players[p.White], t.players[p.Black])
		}
		return
	}

	survivors := t.koPending
	t.koPending = nil
	if len(survivors) <= 1 {
		if len(survivors) == 1 {
			t.winner = survivors[0]
		}
		t.finish()
		return
	}

	idx := make([]int, len(survivors))
	for i := range idx {
		idx[i] = i
	}
	pairs, bye := pairing.NextRound(idx, t.rng)
	for _, p := range pairs {
		t.addGame(survivors[p.White], survivors[p.Black])
	}
	if bye >= 0 {
		t.koPending = append(t.koPending, survivors[bye])
	}
}

// NextGame returns the first pending game of the current round, or nil
func (t *Tournament) NextGame() *Game {
	for _, g := range t.roundGames {
		if g.Status == GamePending {
			return g
		}
	}
	return nil
}

func (t *Tournament) PendingGames() []*Game {
	var out []*Game
	for _, g := range t.roundGames {
		if g.Status == GamePending {
			out = append(out, g)
		}
	}
	return out
}

// MarkRunning flags a pending game as in play
func (t *Tournament) MarkRunning(g *Game) error {
	if g.Status != GamePending {
		return fmt.Errorf("game %s is %s", g.ID, g.Status)
	}
	g.Status = GameRunning
	g.StartedAt = time.Now()
	return nil
}

// Abandon returns a running game to pending without a result
func (t *Tournament) Abandon(g *Game) {
	if g.Status == GameRunning {
		g.Status = GamePending
		g.StartedAt = time.Time{}
	}
}

// RecordResult stores the outcome of a game and updates both players. An
// unknown result marks the game done without scoring it. In knockout the
// winner moves on and the loser is eliminated; draws and unknown results
// advance a random player.
func (t *Tournament) RecordResult(g *Game, rep Report) error {
	if g.Status == GameDone {
		return fmt.Errorf("%w: %s", ErrResultFinal, g.ID)
	}

	g.Result = rep.Result
	g.Reason = rep.Reason
	g.Moves = rep.Moves
	g.SANs = rep.SANs
	g.Evals = rep.Evals
	g.PGN = rep.PGN
	g.Opening = rep.Opening
	g.Duration = rep.Duration
	g.Status = GameDone

	t.played.Add(g.White.Name, g.Black.Name)

	ws, bs, scored := rep.Result.Scores()
	if scored {
		g.White.record(ws, g.Black.Name, core.ColorWhite)
		g.Black.record(bs, g.White.Name, core.ColorBlack)
	}

	if t.Format == FormatKnockout {
		var winner, loser *Player
		switch {
		case scored && ws > bs:
			winner, loser = g.White, g.Black
		case scored && bs > ws:
			winner, loser = g.Black, g.White
		default:
			if w, _ := pairing.BreakTie(0, 1, t.rng); w == 0 {
				winner, loser = g.White, g.Black
			} else {
				winner, loser = g.Black, g.White
			}
		}
		t.koPending = append(t.koPending, winner)
		t.eliminated = append(t.eliminated, loser)
	}
	return nil
}

// RoundComplete reports whether every game of the current round is done
func (t *Tournament) RoundComplete() bool {
	for _, g := range t.roundGames {
		if g.Status != GameDone {
			return false
		}
	}
	return true
}

// AdvanceRound refreshes tie-breaks and then either finishes the event or
// generates the next round. It reports whether the tournament is finished.
func (t *Tournament) AdvanceRound() (bool, error) {
	if !t.started {
		return false, ErrNotStarted
	}
	if t.finished {
		return true, nil
	}
	if !t.RoundComplete() {
		return false, fmt.Errorf("round %d has unfinished games", t.round)
	}

	t.updateTiebreaks()

	switch t.Format {
	case FormatKnockout:
		if len(t.koPending) <= 1 {
			if len(t.koPending) == 1 {
				t.winner = t.koPending[0]
			}
			t.finish()
			return true, nil
		}
	default:
		if t.round >= t.Rounds() {
			t.finish()
			return true, nil
		}
	}

	t.generateRound()
	if t.finished {
		return true, nil
	}
	t.status = fmt.Sprintf("Round %d started", t.round)
	return false, nil
}

func (t *Tournament) finish() {
	t.finished = true
	if t.winner == nil {
		if standings := t.Standings(); len(standings) > 0 {
			t.winner = standings[0]
		}
	}
	name := "?"
	if t.winner != nil {
		name = t.winner.Name
	}
	t.status = "Tournament complete! Winner: " + name
}
