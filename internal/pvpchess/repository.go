package pvpchess

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/park285/vaticano-chess/internal/domain"
)

// Archive stores finished games.
type Archive interface {
	SaveResult(ctx context.Context, rec *domain.GameRecord) error
}

// GamesSchema creates the finished-game table.
const GamesSchema = `
CREATE TABLE IF NOT EXISTS vaticano_games (
    game_id      TEXT PRIMARY KEY,
    variant      TEXT NOT NULL,
    white_id     TEXT NOT NULL,
    black_id     TEXT NOT NULL,
    white_result DOUBLE PRECISION NOT NULL,
    black_result DOUBLE PRECISION NOT NULL,
    reason       TEXT NOT NULL,
    moves        JSONB NOT NULL,
    move_count   INTEGER NOT NULL,
    notation     TEXT NOT NULL,
    transcript   TEXT NOT NULL,
    time_control DOUBLE PRECISION NOT NULL,
    increment    DOUBLE PRECISION NOT NULL,
    white_elo    INTEGER NOT NULL,
    black_elo    INTEGER NOT NULL,
    started_at   TIMESTAMPTZ NOT NULL,
    ended_at     TIMESTAMPTZ NOT NULL,
    duration_ms  BIGINT NOT NULL
);`

// Repository is the postgres Archive.
type Repository struct {
	db *sql.DB
}

// NewRepository shares db with other stores and ensures the games table.
func NewRepository(ctx context.Context, db *sql.DB) (*Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle required")
	}
	if _, err := db.ExecContext(ctx, GamesSchema); err != nil {
		return nil, fmt.Errorf("ensure games schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// SaveResult upserts a finished game.
func (r *Repository) SaveResult(ctx context.Context, rec *domain.GameRecord) error {
	if r == nil || r.db == nil || rec == nil {
		return nil
	}
	moves := rec.MovesJSON
	if len(moves) == 0 {
		moves = []byte("[]")
	}
	duration := rec.EndedAt.Sub(rec.StartedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO vaticano_games (
        game_id, variant, white_id, black_id,
        white_result, black_result, reason,
        moves, move_count, notation, transcript,
        time_control, increment, white_elo, black_elo,
        started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18
      ) ON CONFLICT (game_id) DO UPDATE SET
        white_result=EXCLUDED.white_result,
        black_result=EXCLUDED.black_result,
        reason=EXCLUDED.reason,
        moves=EXCLUDED.moves,
        move_count=EXCLUDED.move_count,
        notation=EXCLUDED.notation,
        transcript=EXCLUDED.transcript,
        white_elo=EXCLUDED.white_elo,
        black_elo=EXCLUDED.black_elo,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err := r.db.ExecContext(ctx, q,
		rec.GameID, rec.Variant, rec.WhiteID, rec.BlackID,
		rec.WhiteResult, rec.BlackResult, rec.Reason,
		string(moves), rec.MoveCount, rec.Notation, rec.Transcript,
		rec.TimeControl, rec.Increment, rec.WhiteElo, rec.BlackElo,
		rec.StartedAt, rec.EndedAt, duration,
	)
	if err != nil {
		return fmt.Errorf("save game %s: %w", rec.GameID, err)
	}
	return nil
}
