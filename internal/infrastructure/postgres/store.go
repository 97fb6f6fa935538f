package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bkharvest/harvester/internal/domain"
	"github.com/bkharvest/harvester/internal/infrastructure/rowsql"
)

var _ domain.RowStore = (*Store)(nil)

// Store is the Postgres row sink.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres and checks the connection.
func Open(ctx context.Context, dsn string, maxConns int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dsn: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 2
	}
	cfg.MaxConns = int32(maxConns)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// EnsureSchema creates the harvest tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range rowsql.Statements() {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// InTx runs fn in one transaction, committing only if fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(domain.RowWriter) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&writer{tx: tx})
	})
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

type writer struct {
	tx pgx.Tx
}

func (w *writer) InsertRestaurants(ctx context.Context, rows []domain.RestaurantRow, createdDate time.Time) error {
	sql := rowsql.Postgres.Upsert(rowsql.Restaurants)
	b := &pgx.Batch{}
	for _, r := range rows {
		args, err := rowsql.Postgres.RestaurantArgs(r, createdDate)
		if err != nil {
			return err
		}
		b.Queue(sql, args...)
	}
	return w.send(ctx, b)
}

func (w *writer) InsertMenuItems(ctx context.Context, rows []domain.MenuItemRow) error {
	sql := rowsql.Postgres.Upsert(rowsql.MenuItems)
	b := &pgx.Batch{}
	for _, r := range rows {
		args, err := rowsql.Postgres.MenuItemArgs(r)
		if err != nil {
			return err
		}
		b.Queue(sql, args...)
	}
	return w.send(ctx, b)
}

func (w *writer) InsertItems(ctx context.Context, rows []domain.ItemRow) error {
	sql := rowsql.Postgres.Upsert(rowsql.Items)
	b := &pgx.Batch{}
	for _, r := range rows {
		b.Queue(sql, rowsql.Postgres.ItemArgs(r)...)
	}
	return w.send(ctx, b)
}

func (w *writer) send(ctx context.Context, b *pgx.Batch) error {
	n := b.Len()
	if n == 0 {
		return nil
	}
	br := w.tx.SendBatch(ctx, b)
	affected := int64(0)
	for i := 0; i < n; i++ {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return fmt.Errorf("batch statement %d: %w", i, err)
		}
		affected += tag.RowsAffected()
	}
	if err := br.Close(); err != nil {
		return err
	}
	slog.DebugContext(ctx, "batch applied", "statements", n, "rows", affected)
	return nil
}
