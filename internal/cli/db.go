// FILE: internal/cli/db.go
package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"enginearena/internal/core"
	"enginearena/internal/elo"
	"enginearena/internal/game"
	"enginearena/internal/storage"
	"enginearena/internal/tournament"

	"github.com/spf13/cobra"
)

// NewDBCommand groups the game history commands
func NewDBCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect and manage the game history database",
		Long: `Every db subcommand needs --db.

Example:
  arena db init --db arena.db
  arena db query --db arena.db --engine stockfish --limit 20
  arena db ratings --db arena.db`,
	}

	cmd.AddCommand(newDBInitCommand(rootOpts))
	cmd.AddCommand(newDBDeleteCommand(rootOpts))
	cmd.AddCommand(newDBQueryCommand(rootOpts))
	cmd.AddCommand(newDBRatingsCommand(rootOpts))
	cmd.AddCommand(newDBStatsCommand(rootOpts))
	cmd.AddCommand(newDBTournamentsCommand(rootOpts))
	cmd.AddCommand(newDBStandingsCommand(rootOpts))
	cmd.AddCommand(newDBPGNCommand(rootOpts))

	return cmd
}

// withStore opens the database for one subcommand and closes it afterwards
func withStore(o *RootOptions, fn func(*storage.Store) error) error {
	store, err := o.requireStore()
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newDBInitCommand(o *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(o, func(*storage.Store) error {
				o.printer().Line("Database initialized at: %s", o.Database)
				return nil
			})
		},
	}
}

func newDBDeleteCommand(o *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete the database file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.Database == "" {
				return NewExitError(ExitCommandError, "database path required (--db)")
			}
			store, err := storage.NewStore(o.Database, false)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open store", err)
			}
			if err := store.DeleteDB(); err != nil {
				return WrapExitError(ExitFailure, "failed to delete database", err)
			}
			o.printer().Line("Database deleted: %s", o.Database)
			return nil
		},
	}
}

func newDBQueryCommand(o *RootOptions) *cobra.Command {
	var (
		filter storage.GameFilter
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "List stored games, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if filter.Limit < 0 {
				return NewExitError(ExitCommandError, "--limit must not be negative")
			}
			return withStore(o, func(store *storage.Store) error {
				games, err := store.QueryGames(filter)
				if err != nil {
					return WrapExitError(ExitFailure, "query failed", err)
				}
				if asJSON {
					if games == nil {
						games = []storage.GameRecord{}
					}
					o.printer().JSON(games)
					return nil
				}
				writeGames(o.out(), games)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&filter.TournamentID, "tournament", "", "tournament ID to filter (optional, * for all)")
	cmd.Flags().StringVar(&filter.Engine, "engine", "", "engine name to filter (optional, * for all)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 100, "maximum games to list (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func writeGames(out io.Writer, games []storage.GameRecord) {
	if len(games) == 0 {
		fmt.Fprintln(out, "No games found")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Game ID\tRound\tWhite\tBlack\tResult\tReason\tMoves\tPlayed")
	fmt.Fprintln(w, strings.Repeat("-", 96))
	for _, g := range games {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
			shortID(g.GameID),
			g.Round,
			g.WhiteEngine,
			g.BlackEngine,
			g.Result,
			g.Reason,
			g.MoveCount,
			g.PlayedAt.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\nFound %d game(s)\n", len(games))
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}

func newDBRatingsCommand(o *RootOptions) *cobra.Command {
	var (
		engine string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "ratings",
		Short: "Rate engines over the whole stored history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(o, func(store *storage.Store) error {
				rows, err := store.AllGamesForRating()
				if err != nil {
					return WrapExitError(ExitFailure, "query failed", err)
				}
				games := elo.FromStored(rows)

				if engine != "" {
					history := elo.History(games, engine)
					if asJSON {
						o.printer().JSON(history)
						return nil
					}
					writeHistory(o.out(), engine, history)
					return nil
				}

				ratings := elo.Compute(games)
				if asJSON {
					o.printer().JSON(ratings)
					return nil
				}
				writeRatings(o.out(), ratings)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&engine, "engine", "", "show one engine's rating after each game")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func writeRatings(out io.Writer, ratings []elo.Rating) {
	if len(ratings) == 0 {
		fmt.Fprintln(out, "No rated games")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tEngine\tRating\tTier\tPeak\tGames\t+\t=\t-")
	for i, r := range ratings {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%d\t%d\t%d\t%d\t%d\n",
			i+1, r.Name, r.Rating, elo.TierFor(r.Rating).Label, r.Peak, r.Games, r.Wins, r.Draws, r.Losses)
	}
	w.Flush()
}

func writeHistory(out io.Writer, engine string, history []elo.Point) {
	if len(history) == 0 {
		fmt.Fprintf(out, "No rated games for %s\n", engine)
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Game\tRating")
	for _, pt := range history {
		fmt.Fprintf(w, "%d\t%d\n", pt.Game, pt.Rating)
	}
	w.Flush()
}

func newDBStatsCommand(o *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show win/draw/loss totals per engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(o, func(store *storage.Store) error {
				stats, err := store.EngineStats()
				if err != nil {
					return WrapExitError(ExitFailure, "query failed", err)
				}
				out := o.out()
				if len(stats) == 0 {
					fmt.Fprintln(out, "No games found")
					return nil
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "Engine\tGames\tWins\tDraws\tLosses\tScore%")
				for _, s := range stats {
					pct := 0.0
					if s.Games > 0 {
						pct = 100 * (float64(s.Wins) + 0.5*float64(s.Draws)) / float64(s.Games)
					}
					fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.1f\n", s.Engine, s.Games, s.Wins, s.Draws, s.Losses, pct)
				}
				w.Flush()
				return nil
			})
		},
	}
}

func newDBTournamentsCommand(o *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tournaments",
		Short: "List tournaments with stored games",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(o, func(store *storage.Store) error {
				list, err := store.Tournaments()
				if err != nil {
					return WrapExitError(ExitFailure, "query failed", err)
				}
				out := o.out()
				if len(list) == 0 {
					fmt.Fprintln(out, "No tournaments found")
					return nil
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "Tournament ID\tName\tFormat\tRounds\tGames\tLast Played")
				for _, t := range list {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
						t.TournamentID, t.TournamentName, t.Format, t.Rounds, t.Games,
						t.LastPlayed.Format("2006-01-02 15:04:05"))
				}
				w.Flush()
				return nil
			})
		},
	}
}

func newDBStandingsCommand(o *RootOptions) *cobra.Command {
	var rounds int

	cmd := &cobra.Command{
		Use:   "standings <tournament-id>",
		Short: "Rebuild a tournament's standings from its stored games",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(o, func(store *storage.Store) error {
				rows, err := store.TournamentGames(args[0])
				if err != nil {
					return WrapExitError(ExitFailure, "query failed", err)
				}
				if len(rows) == 0 {
					return NewExitError(ExitFailure, fmt.Sprintf("no stored games for tournament %s", args[0]))
				}

				t, err := restoreTournament(rows, rounds)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to rebuild tournament", err)
				}

				snap := t.Snapshot()
				p := o.printer()
				p.Line("%s (%s), %d games", snap.Name, snap.Format, len(snap.Games))
				p.Standings(snap.Standings)
				if snap.Winner != "" {
					p.Line("Winner: %s", snap.Winner)
				} else {
					p.Line("%s", snap.Status)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&rounds, "rounds", 0, "planned Swiss rounds (default ceil(log2(players)))")
	return cmd
}

// restoreTournament replays stored rows into a read-only tournament. Rows
// whose PGN no longer replays keep the moves that did.
func restoreTournament(rows []storage.GameRecord, rounds int) (*tournament.Tournament, error) {
	format, err := tournament.ParseFormat(rows[0].Format)
	if err != nil {
		return nil, err
	}

	records := make([]tournament.Record, 0, len(rows))
	for _, row := range rows {
		result, err := core.ParseResult(row.Result)
		if err != nil {
			continue
		}
		moves, sans, _ := game.Replay(row.PGN)
		records = append(records, tournament.Record{
			ID:       row.GameID,
			Round:    row.Round,
			White:    row.WhiteEngine,
			Black:    row.BlackEngine,
			Result:   result,
			Reason:   row.Reason,
			Moves:    moves,
			SANs:     sans,
			PGN:      row.PGN,
			Opening:  row.Opening,
			Duration: time.Duration(row.DurationSeconds * float64(time.Second)),
		})
	}

	return tournament.Restore(tournament.Config{
		ID:     rows[0].TournamentID,
		Name:   rows[0].TournamentName,
		Format: format,
		Rounds: rounds,
	}, records)
}

func newDBPGNCommand(o *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pgn <game-id>",
		Short: "Print a stored game as PGN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(o, func(store *storage.Store) error {
				games, err := store.QueryGames(storage.GameFilter{})
				if err != nil {
					return WrapExitError(ExitFailure, "query failed", err)
				}
				for _, g := range games {
					if g.GameID == args[0] || strings.HasPrefix(g.GameID, args[0]) {
						fmt.Fprint(o.out(), g.PGN)
						if !strings.HasSuffix(g.PGN, "\n") {
							fmt.Fprintln(o.out())
						}
						return nil
					}
				}
				return NewExitError(ExitFailure, fmt.Sprintf("game %s not found", args[0]))
			})
		},
	}
}
