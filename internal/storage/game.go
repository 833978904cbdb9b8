// FILE: internal/storage/game.go
package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// GameFilter narrows QueryGames; empty fields and "*" match everything
type GameFilter struct {
	TournamentID string
	Engine       string
	Limit        int
}

const gameColumns = `game_id, tournament_id, tournament_name, format, round,
	white_engine, black_engine, result, reason,
	pgn, move_count, duration_seconds, opening, played_at`

// QueryGames retrieves games newest first with optional filtering
func (s *Store) QueryGames(filter GameFilter) ([]GameRecord, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE 1=1`

	var args []interface{}

	if filter.TournamentID != "" && filter.TournamentID != "*" {
		query += " AND tournament_id = ?"
		args = append(args, filter.TournamentID)
	}

	if filter.Engine != "" && filter.Engine != "*" {
		query += " AND (white_engine = ? COLLATE NOCASE OR black_engine = ? COLLATE NOCASE)"
		args = append(args, filter.Engine, filter.Engine)
	}

	query += " ORDER BY played_at DESC, rowid DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	return s.queryGames(query, args...)
}

// TournamentGames returns one tournament's games in the order they were played
func (s *Store) TournamentGames(tournamentID string) ([]GameRecord, error) {
	query := `SELECT ` + gameColumns + ` FROM games
	WHERE tournament_id = ? ORDER BY round ASC, played_at ASC, rowid ASC`
	return s.queryGames(query, tournamentID)
}

func (s *Store) queryGames(query string, args ...interface{}) ([]GameRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var games []GameRecord
	for rows.Next() {
		var g GameRecord
		err := rows.Scan(
			&g.GameID, &g.TournamentID, &g.TournamentName, &g.Format, &g.Round,
			&g.WhiteEngine, &g.BlackEngine, &g.Result, &g.Reason,
			&g.PGN, &g.MoveCount, &g.DurationSeconds, &g.Opening, &g.PlayedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		games = append(games, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return games, nil
}

// GameMoves returns the moves of one game by ply
func (s *Store) GameMoves(gameID string) ([]MoveRecord, error) {
	rows, err := s.db.Query(`SELECT
		move_id, game_id, ply, move_uci, san, fen_after_move, player_color, eval_cp, move_time_utc
	FROM moves WHERE game_id = ? ORDER BY ply ASC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var moves []MoveRecord
	for rows.Next() {
		var m MoveRecord
		if err := rows.Scan(
			&m.MoveID, &m.GameID, &m.Ply, &m.MoveUCI, &m.SAN,
			&m.FENAfterMove, &m.PlayerColor, &m.EvalCP, &m.MoveTimeUTC,
		); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		moves = append(moves, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return moves, nil
}

// AllGamesForRating returns every stored game oldest first
func (s *Store) AllGamesForRating() ([]RatedGame, error) {
	rows, err := s.db.Query(`SELECT white_engine, black_engine, result
	FROM games ORDER BY played_at ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var games []RatedGame
	for rows.Next() {
		var g RatedGame
		if err := rows.Scan(&g.White, &g.Black, &g.Result); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		games = append(games, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return games, nil
}

// EngineStats aggregates wins, draws and losses per engine, most games first
func (s *Store) EngineStats() ([]EngineStat, error) {
	query := `SELECT engine,
		COUNT(*),
		SUM(CASE WHEN score = 1 THEN 1 ELSE 0 END),
		SUM(CASE WHEN score = 0 THEN 1 ELSE 0 END),
		SUM(CASE WHEN score = -1 THEN 1 ELSE 0 END)
	FROM (
		SELECT white_engine AS engine,
			CASE result WHEN '1-0' THEN 1 WHEN '0-1' THEN -1 ELSE 0 END AS score
		FROM games WHERE result != '*'
		UNION ALL
		SELECT black_engine AS engine,
			CASE result WHEN '0-1' THEN 1 WHEN '1-0' THEN -1 ELSE 0 END AS score
		FROM games WHERE result != '*'
	)
	GROUP BY engine
	ORDER BY COUNT(*) DESC, engine ASC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var stats []EngineStat
	for rows.Next() {
		var st EngineStat
		if err := rows.Scan(&st.Engine, &st.Games, &st.Wins, &st.Draws, &st.Losses); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		stats = append(stats, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return stats, nil
}

// Tournaments summarizes every tournament with stored games, latest first
func (s *Store) Tournaments() ([]TournamentSummary, error) {
	query := `SELECT tournament_id, MAX(tournament_name), MAX(format),
		COUNT(*), MAX(round), MAX(played_at)
	FROM games WHERE tournament_id != ''
	GROUP BY tournament_id
	ORDER BY MAX(played_at) DESC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []TournamentSummary
	for rows.Next() {
		var (
			ts   TournamentSummary
			last sql.NullString
		)
		if err := rows.Scan(
			&ts.TournamentID, &ts.TournamentName, &ts.Format, &ts.Games, &ts.Rounds, &last,
		); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		if last.Valid {
			ts.LastPlayed = parseTimestamp(last.String)
		}
		out = append(out, ts)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return out, nil
}

// parseTimestamp handles aggregate columns, which lose the DATETIME type the
// driver would otherwise convert
func parseTimestamp(v string) time.Time {
	v = strings.TrimSuffix(v, "Z")
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
