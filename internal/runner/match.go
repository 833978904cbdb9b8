// FILE: internal/runner/match.go
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"enginearena/internal/board"
	"enginearena/internal/core"
	"enginearena/internal/engine"
	"enginearena/internal/game"
	"enginearena/internal/storage"
	"enginearena/internal/tournament"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// match is the state of one game while it is played
type match struct {
	g       *tournament.Game
	b       *board.Board
	rec     *game.Record
	engines map[core.Color]Engine
	players map[core.Color]*tournament.Player
	log     zerolog.Logger

	moves    []storage.MoveRecord
	bookUsed int
	bookDone bool
}

// outcome is how a game ended; abandoned games carry no result
type outcome struct {
	result    core.Result
	reason    string
	abandoned bool
}

func (r *Runner) playGame(ctx context.Context, g *tournament.Game) error {
	if err := r.t.MarkRunning(g); err != nil {
		return err
	}

	m := &match{
		g:       g,
		b:       board.New(),
		players: map[core.Color]*tournament.Player{core.ColorWhite: g.White, core.ColorBlack: g.Black},
		log:     r.log.With().Str("game", g.ID).Str("white", g.White.Name).Str("black", g.Black.Name).Logger(),
	}
	m.rec = game.FromBoard(m.b, g.White.Name, g.Black.Name)
	m.rec.Event = r.t.Name
	m.rec.Site = r.opts.Site
	m.rec.Round = g.Round

	r.emitLifecycle(ctx, Event{
		Kind:   GameStarted,
		Round:  g.Round,
		Status: g.Label(),
		GameID: g.ID,
		White:  g.White.Name,
		Black:  g.Black.Name,
	})
	m.log.Info().Int("round", g.Round).Msg("game started")

	m.engines = map[core.Color]Engine{
		core.ColorWhite: r.opts.NewEngine(g.White),
		core.ColorBlack: r.opts.NewEngine(g.Black),
	}
	defer r.stopEngines(m)

	out, started := r.startEngines(ctx, m)
	if started {
		out = r.playMoves(ctx, m)
	}

	if out.abandoned {
		r.t.Abandon(g)
		m.log.Info().Msg("game abandoned")
		final, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		r.status(final, "Game abandoned: "+g.Label())
		cancel()
		return errAbandoned
	}

	return r.finishGame(ctx, m, out)
}

// startEngines launches both sessions concurrently. A side that fails to
// start forfeits; if both fail the game ends undecided.
func (r *Runner) startEngines(ctx context.Context, m *match) (outcome, bool) {
	var (
		eg         errgroup.Group
		werr, berr error
	)
	eg.Go(func() error {
		werr = m.engines[core.ColorWhite].Start(ctx)
		return werr
	})
	eg.Go(func() error {
		berr = m.engines[core.ColorBlack].Start(ctx)
		return berr
	})
	if eg.Wait() == nil {
		return outcome{}, true
	}

	if ctx.Err() != nil || r.stopped.Load() {
		return outcome{abandoned: true}, false
	}

	white, black := m.g.White.Name, m.g.Black.Name
	switch {
	case werr != nil && berr != nil:
		m.log.Warn().AnErr("white_err", werr).AnErr("black_err", berr).Msg("both engines failed to start")
		return outcome{result: core.ResultUnknown, reason: "Both engines failed to start"}, false
	case werr != nil:
		m.log.Warn().Err(werr).Str("engine", white).Msg("engine failed to start")
		return outcome{result: core.ResultBlackWins, reason: fmt.Sprintf("%s failed to start", white)}, false
	default:
		m.log.Warn().Err(berr).Str("engine", black).Msg("engine failed to start")
		return outcome{result: core.ResultWhiteWins, reason: fmt.Sprintf("%s failed to start", black)}, false
	}
}

func (r *Runner) stopEngines(m *match) {
	var eg errgroup.Group
	for color, e := range m.engines {
		eg.Go(func() error {
			if err := e.Stop(); err != nil {
				return fmt.Errorf("%s: %w", m.players[color].Name, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		m.log.Warn().Err(err).Msg("engine stop failed")
	}
}

// playMoves alternates the two sides until the position is terminal, a side
// forfeits, or the run is stopped
func (r *Runner) playMoves(ctx context.Context, m *match) outcome {
	for {
		if res := m.b.Result(); res.Over() {
			return outcome{result: res.Result, reason: res.Termination.String()}
		}
		if r.stopped.Load() || ctx.Err() != nil {
			return outcome{abandoned: true}
		}
		if err := r.waitWhilePaused(ctx); err != nil {
			return outcome{abandoned: true}
		}

		side := m.b.Turn()
		player := m.players[side]
		forfeit := func(reason string) outcome {
			m.log.Warn().Str("engine", player.Name).Str("reason", reason).Msg("forfeit")
			return outcome{result: core.WinFor(core.OppositeColor(side)), reason: reason}
		}

		token, fromBook := r.bookMove(m)
		if token == "" {
			eng := m.engines[side]
			if !eng.Alive() {
				return forfeit(fmt.Sprintf("%s engine died", player.Name))
			}

			mv, err := eng.RequestMove(ctx, engine.SearchRequest{
				Moves:    m.b.MoveTokens(),
				MoveTime: r.opts.MoveTime,
			})
			switch {
			case ctx.Err() != nil:
				return outcome{abandoned: true}
			case errors.Is(err, engine.ErrProcessDead):
				return forfeit(fmt.Sprintf("%s engine died", player.Name))
			case errors.Is(err, engine.ErrTimeout):
				return forfeit(fmt.Sprintf("%s returned no move (timed out)", player.Name))
			case err != nil:
				return forfeit(fmt.Sprintf("%s failed: %v", player.Name, err))
			case mv == "":
				return forfeit(fmt.Sprintf("%s returned no move", player.Name))
			}
			token = mv
		}

		_, err := m.b.ApplyToken(token)
		if err != nil {
			if fromBook {
				m.log.Warn().Str("move", token).Msg("book move rejected, leaving book")
				m.bookDone = true
				continue
			}
			return forfeit(fmt.Sprintf("Illegal move by %s: %s", player.Name, token))
		}
		if fromBook {
			m.bookUsed++
		}

		r.afterMove(ctx, m, side)
		r.sleep(ctx, r.opts.MoveDelay)
	}
}

// bookMove returns a prepared move while the book still covers the game
func (r *Runner) bookMove(m *match) (string, bool) {
	if r.opts.Book == nil || m.bookDone || m.bookUsed >= r.opts.MaxBookPlies {
		return "", false
	}
	mv, ok := r.opts.Book.NextMove(m.b.MoveTokens())
	if !ok {
		m.bookDone = true
		return "", false
	}
	return mv, true
}

// afterMove records the applied move, scores it and publishes the board
func (r *Runner) afterMove(ctx context.Context, m *match, side core.Color) {
	hist := m.b.History()
	last := hist[len(hist)-1]
	token := last.Move.String()
	tokens := m.b.MoveTokens()

	m.rec.AddSnapshot(m.b.FEN(), token, last.SAN, m.b.Turn())

	if r.opts.Openings != nil {
		if eco, name, ok := r.opts.Openings.Lookup(tokens); ok {
			m.rec.ECO, m.rec.Opening = eco, name
		}
	}

	var eval *int
	if r.analyzer != nil {
		score, ok, err := r.analyzer.RequestEvaluation(ctx, engine.SearchRequest{
			Moves:    tokens,
			MoveTime: r.opts.EvalTime,
		})
		if err != nil {
			m.log.Debug().Err(err).Bool("partial", ok).Msg("evaluation failed")
		}
		if ok {
			cp := score.Centipawns()
			m.rec.AddEval(cp)
			eval = &cp
		}
	}

	m.moves = append(m.moves, storage.MoveRecord{
		Ply:          len(hist),
		MoveUCI:      token,
		SAN:          last.SAN,
		FENAfterMove: m.b.FEN(),
		PlayerColor:  colorCode(side),
		EvalCP:       eval,
		MoveTimeUTC:  time.Now().UTC(),
	})

	r.emitBoard(Event{
		Kind:    BoardUpdated,
		Round:   m.g.Round,
		GameID:  m.g.ID,
		White:   m.g.White.Name,
		Black:   m.g.Black.Name,
		FEN:     m.b.FEN(),
		Move:    token,
		SAN:     last.SAN,
		Ply:     len(hist),
		Eval:    eval,
		Opening: m.rec.Opening,
	})
}

// finishGame hands the result to the controller, persists it and announces it
func (r *Runner) finishGame(ctx context.Context, m *match, out outcome) error {
	m.rec.Finish(out.result, out.reason)
	pgn := m.rec.PGN()

	rep := tournament.Report{
		Result:   out.result,
		Reason:   out.reason,
		Moves:    m.b.MoveTokens(),
		SANs:     m.b.SANs(),
		Evals:    m.rec.Evals(),
		PGN:      pgn,
		Opening:  m.rec.Opening,
		Duration: m.rec.Duration(),
	}
	if err := r.t.RecordResult(m.g, rep); err != nil {
		return fmt.Errorf("failed to record result: %w", err)
	}

	m.log.Info().Stringer("result", out.result).Str("reason", out.reason).Int("plies", len(rep.Moves)).Msg("game finished")

	if r.opts.Recorder != nil {
		record := storage.GameRecord{
			GameID:          m.g.ID,
			TournamentID:    r.t.ID,
			TournamentName:  r.t.Name,
			Format:          string(r.t.Format),
			Round:           m.g.Round,
			WhiteEngine:     m.g.White.Name,
			BlackEngine:     m.g.Black.Name,
			Result:          out.result.String(),
			Reason:          out.reason,
			PGN:             pgn,
			MoveCount:       len(rep.Moves),
			DurationSeconds: rep.Duration.Seconds(),
			Opening:         m.rec.Opening,
			PlayedAt:        m.rec.EndedAt,
		}
		for i := range m.moves {
			m.moves[i].GameID = m.g.ID
		}
		if err := r.opts.Recorder.SaveGame(record, m.moves); err != nil {
			m.log.Warn().Err(err).Msg("failed to save game")
		}
	}

	r.emitLifecycle(ctx, Event{
		Kind:   GameEnded,
		Round:  m.g.Round,
		Status: fmt.Sprintf("%s: %s %s", m.g.Label(), out.result, out.reason),
		GameID: m.g.ID,
		White:  m.g.White.Name,
		Black:  m.g.Black.Name,
		Result: out.result,
		Reason: out.reason,
		PGN:    pgn,
	})
	return nil
}

func colorCode(c core.Color) string {
	if c == core.ColorBlack {
		return "b"
	}
	return "w"
}
