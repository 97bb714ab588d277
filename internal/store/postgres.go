package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"parcelbox/internal/config"
)

// PostgresStore keeps one row per collection in a jsonb column. Update runs
// inside a transaction with the row locked, giving the same per-collection
// exclusion as the in-process drivers across multiple server instances.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, cfg config.StoreConfig) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpen)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.HealthCheckPeriod = 30 * time.Second

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS collections (
			name       TEXT PRIMARY KEY,
			doc        JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("migrate collections: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, collection string) ([]byte, error) {
	const query = `SELECT doc FROM collections WHERE name = $1`

	var doc []byte
	if err := s.pool.QueryRow(ctx, query, collection).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCollectionNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *PostgresStore) Put(ctx context.Context, collection string, doc []byte) error {
	const query = `
		INSERT INTO collections (name, doc, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name)
		DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()
	`
	_, err := s.pool.Exec(ctx, query, collection, doc)
	return err
}

func (s *PostgresStore) Update(ctx context.Context, collection string, fn UpdateFunc) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const lockQuery = `SELECT doc FROM collections WHERE name = $1 FOR UPDATE`

	var current []byte
	if err := tx.QueryRow(ctx, lockQuery, collection).Scan(&current); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		current = nil
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	const upsert = `
		INSERT INTO collections (name, doc, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name)
		DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()
	`
	if _, err := tx.Exec(ctx, upsert, collection, next); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
