package rating

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/vaticano-chess/internal/domain"
)

// Tx is the unit of work used by Service.Finish.
type Tx interface {
	// Active returns the active rating row or nil when none exists.
	Active(ctx context.Context, userID, variant string) (*domain.Rating, error)
	Archive(ctx context.Context, id int64) error
	Insert(ctx context.Context, r *domain.Rating) (int64, error)
}

type Repository interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Active(ctx context.Context, userID, variant string) (*domain.Rating, error)
	History(ctx context.Context, userID, variant string, limit int) ([]*domain.Rating, error)
}

// Schema creates the rating table. The partial unique index enforces a
// single active row per (user, variant).
const Schema = `
CREATE TABLE IF NOT EXISTS ratings (
	id          BIGSERIAL PRIMARY KEY,
	user_id     TEXT NOT NULL,
	variant     TEXT NOT NULL,
	elo         INTEGER NOT NULL,
	is_active   BOOLEAN NOT NULL DEFAULT TRUE,
	achieved_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS ratings_active_uniq ON ratings (user_id, variant) WHERE is_active;`

type sqlRepository struct {
	db *sql.DB
}

// OpenRepository connects to postgres and ensures the schema.
func OpenRepository(ctx context.Context, databaseURL string) (Repository, *sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure rating schema: %w", err)
	}
	return NewRepository(db), db, nil
}

func NewRepository(db *sql.DB) Repository {
	return &sqlRepository{db: db}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type sqlTx struct {
	q querier
}

func (r *sqlRepository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rating tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(&sqlTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rating tx: %w", err)
	}
	return nil
}

func (r *sqlRepository) Active(ctx context.Context, userID, variant string) (*domain.Rating, error) {
	return selectActive(ctx, r.db, userID, variant, false)
}

func (t *sqlTx) Active(ctx context.Context, userID, variant string) (*domain.Rating, error) {
	return selectActive(ctx, t.q, userID, variant, true)
}

func selectActive(ctx context.Context, q querier, userID, variant string, lock bool) (*domain.Rating, error) {
	query := `
		SELECT id, user_id, variant, elo, is_active, achieved_at
		FROM ratings
		WHERE user_id = $1 AND variant = $2 AND is_active
		LIMIT 1`
	if lock {
		query += ` FOR UPDATE`
	}
	var r domain.Rating
	err := q.QueryRowContext(ctx, query, userID, variant).Scan(
		&r.ID, &r.UserID, &r.Variant, &r.Elo, &r.IsActive, &r.AchievedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select active rating: %w", err)
	}
	return &r, nil
}

func (t *sqlTx) Archive(ctx context.Context, id int64) error {
	const query = `UPDATE ratings SET is_active = FALSE WHERE id = $1 AND is_active`
	res, err := t.q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("archive rating: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return fmt.Errorf("archive rating %d: %w", id, ErrRatingNotActive)
	}
	return nil
}

func (t *sqlTx) Insert(ctx context.Context, r *domain.Rating) (int64, error) {
	if r == nil {
		return 0, fmt.Errorf("nil rating payload")
	}
	const query = `
		INSERT INTO ratings (user_id, variant, elo, is_active, achieved_at)
		VALUES ($1, $2, $3, TRUE, $4)
		RETURNING id`
	var id int64
	if err := t.q.QueryRowContext(ctx, query, r.UserID, r.Variant, r.Elo, r.AchievedAt).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert rating: %w", err)
	}
	return id, nil
}

func (r *sqlRepository) History(ctx context.Context, userID, variant string, limit int) ([]*domain.Rating, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
		SELECT id, user_id, variant, elo, is_active, achieved_at
		FROM ratings
		WHERE user_id = $1 AND variant = $2
		ORDER BY id DESC
		LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, userID, variant, limit)
	if err != nil {
		return nil, fmt.Errorf("select rating history: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Rating, 0, limit)
	for rows.Next() {
		var row domain.Rating
		if err := rows.Scan(&row.ID, &row.UserID, &row.Variant, &row.Elo, &row.IsActive, &row.AchievedAt); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		out = append(out, &row)
	}
	return out, rows.Err()
}
