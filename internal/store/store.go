// Package store is the reference Content-Repository Executor: a SQLite
// database that runs compiled query descriptors. The orchestrator only
// sees the query.Executor interface; this package exists so the module
// is runnable end to end and so descriptor semantics have an executable
// definition.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"regexp"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/whx4/wxc/internal/query"
)

//go:embed schema.sql
var schemaSQL string

const driverName = "sqlite3_wxc"

func init() {
	// Descriptors may carry REGEXP conditions (serialized year tokens),
	// which SQLite only supports through a registered function.
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("regexp", func(pattern, value string) (bool, error) {
				re, err := regexp.Compile(pattern)
				if err != nil {
					return false, err
				}
				return re.MatchString(value), nil
			}, true)
		},
	})
}

// Store executes compiled descriptors against a SQLite database.
// Uses WAL mode for concurrent read access.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the debug logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// Open creates or opens a SQLite database at the given path and applies
// pragmas and the content schema. Idempotent - safe to call on an
// existing database.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{db: db, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB { return s.db }

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Put inserts or replaces one content item with its field values and
// term assignments, in a single transaction.
func (s *Store) Put(ctx context.Context, item query.Item) error {
	if item.ID == "" {
		return fmt.Errorf("item needs an id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO items (id, collection, title, slug, status, published_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, item.CollectionType, item.Title, item.Slug, item.Status, item.PublishedAt)
	if err != nil {
		return fmt.Errorf("insert item %s: %w", item.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM item_meta WHERE item_id = ?`, item.ID); err != nil {
		return fmt.Errorf("clear meta for %s: %w", item.ID, err)
	}
	for key, value := range item.Fields {
		// A slice models the "rows" storage shape: one row per value.
		values, ok := value.([]any)
		if !ok {
			values = []any{value}
		}
		for _, v := range values {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO item_meta (item_id, key, value) VALUES (?, ?, ?)`,
				item.ID, key, fmt.Sprintf("%v", v))
			if err != nil {
				return fmt.Errorf("insert meta %s.%s: %w", item.ID, key, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM item_terms WHERE item_id = ?`, item.ID); err != nil {
		return fmt.Errorf("clear terms for %s: %w", item.ID, err)
	}
	for taxonomy, terms := range item.Terms {
		for _, term := range terms {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO item_terms (item_id, taxonomy, term) VALUES (?, ?, ?)`,
				item.ID, taxonomy, term)
			if err != nil {
				return fmt.Errorf("insert term %s.%s: %w", item.ID, taxonomy, err)
			}
		}
	}

	return tx.Commit()
}
