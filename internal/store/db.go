package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = 2 * time.Second
)

// ConnectionError 再試行しても DB に接続できなかった
type ConnectionError struct {
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot connect to database after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Options 接続の再試行設定
type Options struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	}
	return o
}

// Open Postgres に接続する。Ping が通るまで最大 MaxAttempts 回試す
func Open(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := pingWithRetry(ctx, db.PingContext, opts); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// WithDB 接続を開いて fn に渡し、終わったら必ず閉じる
func WithDB(ctx context.Context, databaseURL string, opts Options, fn func(*sql.DB) error) error {
	db, err := Open(ctx, databaseURL, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}()
	return fn(db)
}

func pingWithRetry(ctx context.Context, ping func(context.Context) error, opts Options) error {
	opts = opts.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		log.Printf("Trying to connect to database (attempt %d/%d)", attempt, opts.MaxAttempts)
		lastErr = ping(ctx)
		if lastErr == nil {
			log.Println("Connected to database")
			return nil
		}
		if attempt == opts.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return &ConnectionError{Attempts: attempt, Err: ctx.Err()}
		case <-time.After(opts.RetryDelay):
		}
	}

	log.Printf("Cannot connect to database: %v", lastErr)
	return &ConnectionError{Attempts: opts.MaxAttempts, Err: lastErr}
}
