// FILE: internal/storage/schema.go
package storage

import "time"

// GameRecord represents a row in the games table
type GameRecord struct {
	GameID          string    `db:"game_id" json:"game_id"`
	TournamentID    string    `db:"tournament_id" json:"tournament_id"`
	TournamentName  string    `db:"tournament_name" json:"tournament_name"`
	Format          string    `db:"format" json:"format"`
	Round           int       `db:"round" json:"round"`
	WhiteEngine     string    `db:"white_engine" json:"white"`
	BlackEngine     string    `db:"black_engine" json:"black"`
	Result          string    `db:"result" json:"result"`
	Reason          string    `db:"reason" json:"reason"`
	PGN             string    `db:"pgn" json:"pgn,omitempty"`
	MoveCount       int       `db:"move_count" json:"move_count"`
	DurationSeconds float64   `db:"duration_seconds" json:"duration_seconds"`
	Opening         string    `db:"opening" json:"opening,omitempty"`
	PlayedAt        time.Time `db:"played_at" json:"played_at"`
}

// MoveRecord represents a row in the moves table
type MoveRecord struct {
	MoveID       int64     `db:"move_id" json:"-"`
	GameID       string    `db:"game_id" json:"game_id"`
	Ply          int       `db:"ply" json:"ply"`
	MoveUCI      string    `db:"move_uci" json:"move"`
	SAN          string    `db:"san" json:"san"`
	FENAfterMove string    `db:"fen_after_move" json:"fen"`
	PlayerColor  string    `db:"player_color" json:"color"`        // "w" or "b"
	EvalCP       *int      `db:"eval_cp" json:"eval_cp,omitempty"` // White's view, nil without an analyzer
	MoveTimeUTC  time.Time `db:"move_time_utc" json:"time"`
}

// RatedGame is the minimal row consumed by rating computation
type RatedGame struct {
	White  string
	Black  string
	Result string
}

// EngineStat aggregates results per engine over all stored games
type EngineStat struct {
	Engine string `json:"engine"`
	Games  int    `json:"games"`
	Wins   int    `json:"wins"`
	Draws  int    `json:"draws"`
	Losses int    `json:"losses"`
}

// TournamentSummary is one tournament as seen through its stored games
type TournamentSummary struct {
	TournamentID   string    `json:"tournament_id"`
	TournamentName string    `json:"tournament_name"`
	Format         string    `json:"format"`
	Games          int       `json:"games"`
	Rounds         int       `json:"rounds"`
	LastPlayed     time.Time `json:"last_played"`
}

// Schema defines the SQLite database structure
const Schema = `
CREATE TABLE IF NOT EXISTS games (
	game_id TEXT PRIMARY KEY,
	tournament_id TEXT NOT NULL DEFAULT '',
	tournament_name TEXT NOT NULL DEFAULT '',
	format TEXT NOT NULL DEFAULT '',
	round INTEGER NOT NULL DEFAULT 0,
	white_engine TEXT NOT NULL,
	black_engine TEXT NOT NULL,
	result TEXT NOT NULL CHECK(result IN ('1-0', '0-1', '1/2-1/2', '*')),
	reason TEXT NOT NULL DEFAULT '',
	pgn TEXT NOT NULL DEFAULT '',
	move_count INTEGER NOT NULL DEFAULT 0,
	duration_seconds REAL NOT NULL DEFAULT 0,
	opening TEXT NOT NULL DEFAULT '',
	played_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS moves (
	move_id INTEGER PRIMARY KEY AUTOINCREMENT,
	game_id TEXT NOT NULL,
	ply INTEGER NOT NULL,
	move_uci TEXT NOT NULL,
	san TEXT NOT NULL DEFAULT '',
	fen_after_move TEXT NOT NULL,
	player_color TEXT NOT NULL CHECK(player_color IN ('w', 'b')),
	eval_cp INTEGER,
	move_time_utc DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (game_id) REFERENCES games(game_id) ON DELETE CASCADE,
	UNIQUE(game_id, ply)
);

CREATE INDEX IF NOT EXISTS idx_moves_game_id ON moves(game_id);
CREATE INDEX IF NOT EXISTS idx_games_tournament ON games(tournament_id);
CREATE INDEX IF NOT EXISTS idx_games_white_engine ON games(white_engine);
CREATE INDEX IF NOT EXISTS idx_games_black_engine ON games(black_engine);
CREATE INDEX IF NOT EXISTS idx_games_played_at ON games(played_at);
`
