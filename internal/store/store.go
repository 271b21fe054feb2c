// Package store provides database access for chatvault.
//
// A Store owns the single SQLite handle. Every public operation is routed
// through an internal serializer so at most one logical operation touches
// the database at a time; see serializer.go.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"
)

//go:embed schema.sql schema_fts.sql
var schemaFS embed.FS

// Store provides database operations for chatvault.
type Store struct {
	db     *sql.DB
	dbPath string
	serial *serializer
	logger *slog.Logger
}

// defaultSQLiteParams configures the store for single-writer local use:
// WAL journaling, a long busy wait so transient contention blocks instead
// of failing, enforced foreign keys, and immediate write-lock acquisition
// on BEGIN so write transactions never need a lock upgrade.
const defaultSQLiteParams = "?_journal_mode=WAL&_busy_timeout=30000&_foreign_keys=ON&_txlock=immediate"

// isSQLiteError checks if err is a sqlite3.Error with a message containing
// substr. Type-asserts via errors.As rather than matching on err.Error()
// directly; handles both value and pointer forms.
func isSQLiteError(err error, substr string) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return strings.Contains(sqliteErr.Error(), substr)
	}
	var sqliteErrPtr *sqlite3.Error
	if errors.As(err, &sqliteErrPtr) && sqliteErrPtr != nil {
		return strings.Contains(sqliteErrPtr.Error(), substr)
	}
	return false
}

// Open opens or creates the database at the given path.
func Open(dbPath string) (*Store, error) {
	return OpenWithLogger(dbPath, slog.Default())
}

// OpenWithLogger is Open with an explicit logger.
func OpenWithLogger(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + defaultSQLiteParams
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: the serializer guarantees one logical operation at a
	// time, so a pool would only add lock contention inside SQLite.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{
		db:     db,
		dbPath: dbPath,
		serial: newSerializer(),
		logger: logger,
	}, nil
}

// Close shuts down the operation queue and closes the database.
// Operations still queued when Close is called fail with ErrStoreClosed.
func (s *Store) Close() error {
	s.serial.close()
	return s.db.Close()
}

// DB returns the underlying database connection. It exists for tests and
// diagnostics only; application code must go through the Store operations
// so access stays serialized.
func (s *Store) DB() *sql.DB {
	return s.db
}

// do runs fn on the serializer. All public operations use this; fn must
// not call back into another Store operation or the queue deadlocks.
func (s *Store) do(ctx context.Context, fn func() error) error {
	return s.serial.enqueue(ctx, fn)
}

// InitSchema brings the on-disk schema to the current shape. It must be
// called once after Open, before any other operation; because it goes
// through the serializer, operations enqueued later implicitly wait for
// it. Legacy schemas are migrated destructively (pre-1.0 behavior): the
// tables are dropped and recreated.
func (s *Store) InitSchema(ctx context.Context) error {
	return s.do(ctx, func() error {
		if err := s.migrateLegacySchema(ctx); err != nil {
			return &Error{Kind: KindMigration, Op: "migrate", Err: err}
		}
		if err := s.execSchemaFile(ctx, "schema.sql"); err != nil {
			return &Error{Kind: KindMigration, Op: "init schema", Err: err}
		}
		if err := s.execSchemaFile(ctx, "schema_fts.sql"); err != nil {
			if isSQLiteError(err, "no such module: fts5") {
				return &Error{Kind: KindMigration, Op: "init fts",
					Err: fmt.Errorf("this build of SQLite lacks FTS5: %w", err)}
			}
			return &Error{Kind: KindMigration, Op: "init fts", Err: err}
		}
		if err := s.backfillIndex(ctx); err != nil {
			return &Error{Kind: KindMigration, Op: "backfill index", Err: err}
		}
		return nil
	})
}

func (s *Store) execSchemaFile(ctx context.Context, name string) error {
	schema, err := schemaFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if _, err := s.db.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("execute %s: %w", name, err)
	}
	return nil
}

// requiredColumns maps each table to the columns the current schema needs.
// A table that exists without one of these is a legacy shape.
var requiredColumns = map[string][]string{
	"conversations": {"id", "source", "title", "created_at", "updated_at", "message_count"},
	"messages":      {"id", "conversation_id", "sender", "content", "created_at"},
	"messages_fts":  {"content", "title", "conversation_id", "message_id"},
}

// migrateLegacySchema detects tables from an older schema version and
// drops them so the schema files recreate them from scratch. Destructive
// by design: the store makes no cross-version data preservation guarantee
// yet.
func (s *Store) migrateLegacySchema(ctx context.Context) error {
	legacy := false
	for table, cols := range requiredColumns {
		exists, err := s.tableExists(ctx, table)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}
		for _, col := range cols {
			has, err := s.tableHasColumn(ctx, table, col)
			if err != nil {
				return err
			}
			if !has {
				s.logger.Warn("legacy schema detected, rebuilding",
					"table", table, "missing_column", col)
				legacy = true
				break
			}
		}
	}
	if !legacy {
		return nil
	}

	// Drop in dependency order: index first, then children, then parents.
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS messages_fts",
		"DROP TABLE IF EXISTS messages",
		"DROP TABLE IF EXISTS conversations",
	} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("drop legacy table: %w", err)
		}
	}
	return nil
}

func (s *Store) tableExists(ctx context.Context, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master WHERE name = ?
	`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return count > 0, nil
}

func (s *Store) tableHasColumn(ctx context.Context, table, column string) (bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return false, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   sql.NullString
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// backfillIndex repopulates the search index from existing messages when
// the index is empty but messages are not. This covers the case where the
// FTS table was just (re)created under existing data.
func (s *Store) backfillIndex(ctx context.Context) error {
	var indexed, total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages_fts").Scan(&indexed); err != nil {
		return fmt.Errorf("count index rows: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages").Scan(&total); err != nil {
		return fmt.Errorf("count messages: %w", err)
	}
	if indexed > 0 || total == 0 {
		return nil
	}

	s.logger.Info("backfilling search index", "messages", total)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages_fts (content, title, conversation_id, message_id)
		SELECT m.content, c.title, m.conversation_id, m.id
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
	`)
	if err != nil {
		return fmt.Errorf("backfill index: %w", err)
	}
	return nil
}
