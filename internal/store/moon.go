package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicate 同じ日付の月画像が既にある
var ErrDuplicate = errors.New("moon image for this date already exists")

const uniqueViolation = "23505"

// MoonRecord moon テーブルの1行
type MoonRecord struct {
	ID      int64
	Date    time.Time
	Image   []byte
	Created time.Time
}

// MoonRepository 月画像の保存先
type MoonRepository interface {
	Save(ctx context.Context, rec MoonRecord) (MoonRecord, error)
	// Filter from <= date < to を日付順で返す
	Filter(ctx context.Context, from, to time.Time) ([]MoonRecord, error)
	All(ctx context.Context) ([]MoonRecord, error)
}

// PostgresMoonRepository database/sql (pgx) 実装
type PostgresMoonRepository struct {
	db *sql.DB
}

func NewMoonRepository(db *sql.DB) *PostgresMoonRepository {
	return &PostgresMoonRepository{db: db}
}

func (r *PostgresMoonRepository) Save(ctx context.Context, rec MoonRecord) (MoonRecord, error) {
	const q = `INSERT INTO moon (date, image) VALUES ($1, $2) RETURNING id, created`

	err := r.db.QueryRowContext(ctx, q, rec.Date, rec.Image).Scan(&rec.ID, &rec.Created)
	if err != nil {
		if isUniqueViolation(err) {
			return MoonRecord{}, fmt.Errorf("%w: %s", ErrDuplicate, rec.Date.Format("2006-01-02"))
		}
		return MoonRecord{}, fmt.Errorf("insert moon: %w", err)
	}
	return rec, nil
}

func (r *PostgresMoonRepository) Filter(ctx context.Context, from, to time.Time) ([]MoonRecord, error) {
	const q = `SELECT id, date, image, created FROM moon WHERE date >= $1 AND date < $2 ORDER BY date, id`
	return r.query(ctx, q, from, to)
}

func (r *PostgresMoonRepository) All(ctx context.Context) ([]MoonRecord, error) {
	const q = `SELECT id, date, image, created FROM moon ORDER BY date, id`
	return r.query(ctx, q)
}

func (r *PostgresMoonRepository) query(ctx context.Context, q string, args ...any) ([]MoonRecord, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query moon: %w", err)
	}
	defer rows.Close()

	var out []MoonRecord
	for rows.Next() {
		var rec MoonRecord
		if err := rows.Scan(&rec.ID, &rec.Date, &rec.Image, &rec.Created); err != nil {
			return nil, fmt.Errorf("scan moon: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moon: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
