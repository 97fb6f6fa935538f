package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bkharvest/harvester/internal/domain"
	"github.com/bkharvest/harvester/internal/infrastructure/rowsql"
)

var _ domain.RowStore = (*Store)(nil)

// Store is a local SQLite row sink, handy when no Postgres is around.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at dsn, e.g. "harvest.db" or ":memory:".
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// a single connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}
	return &Store{db: db}, nil
}

// EnsureSchema creates the harvest tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range rowsql.Statements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// InTx runs fn in one transaction, committing only if fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(domain.RowWriter) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&writer{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for inspection.
func (s *Store) DB() *sql.DB {
	return s.db
}

type writer struct {
	tx *sql.Tx
}

func (w *writer) exec(ctx context.Context, table rowsql.Table, n int, args func(i int) ([]any, error)) error {
	if n == 0 {
		return nil
	}
	stmt, err := w.tx.PrepareContext(ctx, rowsql.SQLite.Upsert(table))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		a, err := args(i)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, a...); err != nil {
			return fmt.Errorf("insert into %s: %w", table.Name, err)
		}
	}
	return nil
}

func (w *writer) InsertRestaurants(ctx context.Context, rows []domain.RestaurantRow, createdDate time.Time) error {
	return w.exec(ctx, rowsql.Restaurants, len(rows), func(i int) ([]any, error) {
		return rowsql.SQLite.RestaurantArgs(rows[i], createdDate)
	})
}

func (w *writer) InsertMenuItems(ctx context.Context, rows []domain.MenuItemRow) error {
	return w.exec(ctx, rowsql.MenuItems, len(rows), func(i int) ([]any, error) {
		return rowsql.SQLite.MenuItemArgs(rows[i])
	})
}

func (w *writer) InsertItems(ctx context.Context, rows []domain.ItemRow) error {
	return w.exec(ctx, rowsql.Items, len(rows), func(i int) ([]any, error) {
		return rowsql.SQLite.ItemArgs(rows[i]), nil
	})
}
