package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// Postgres driver registered as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Config selects the database backend.
type Config struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`

	// MaxOpenConns applies to postgres only; SQLite always uses a single
	// connection so writers queue in the pool instead of failing with BUSY.
	MaxOpenConns int `mapstructure:"max_open_conns"`
}

// Store owns the database handle and hands out repositories.
type Store struct {
	db      *sql.DB
	dialect string
	seq     *sequenceCounter
}

// Open creates a Store backed by the SQLite database at dsn.
func Open(dsn string) (*Store, error) {
	return OpenWith(Config{Driver: "sqlite", DSN: dsn})
}

// OpenWith connects to the configured backend, applies pragmas where
// relevant and creates the schema.
func OpenWith(cfg Config) (*Store, error) {
	var (
		driverName string
		dia        string
	)
	switch cfg.Driver {
	case "", "sqlite":
		driverName, dia = "sqlite", dialect.SQLite
	case "postgres":
		driverName, dia = "pgx", dialect.Postgres
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dia == dialect.SQLite {
		db.SetMaxOpenConns(1)
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := migrate(context.Background(), db, dia); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	seq, err := newSequenceCounter(db, dia)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, dialect: dia, seq: seq}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the ent dialect name of the backend.
func (s *Store) Dialect() string {
	return s.dialect
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Content returns a ContentRepo outside any transaction.
func (s *Store) Content() ContentRepo {
	return &contentRepo{q: s.db, b: entsql.Dialect(s.dialect)}
}

// Progress returns the progress repository.
func (s *Store) Progress() ProgressRepo {
	return &progressRepo{q: s.db, b: entsql.Dialect(s.dialect)}
}

// EventRepo returns the event log repository.
func (s *Store) EventRepo() EventRepo {
	return &eventRepo{q: s.db, b: entsql.Dialect(s.dialect), seq: s.seq}
}

// InTx runs fn with a ContentRepo bound to a single transaction. The
// transaction commits if fn returns nil and rolls back otherwise. fn must not
// touch the Store directly: with SQLite the transaction holds the only
// connection.
func (s *Store) InTx(ctx context.Context, fn func(ContentRepo) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&contentRepo{q: tx, b: entsql.Dialect(s.dialect), locking: s.dialect == dialect.Postgres}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// applyPragmas configures SQLite for a single-writer service.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. LINGUAFORGE_DB environment variable
// 2. $XDG_DATA_HOME/linguaforge/linguaforge.db
// 3. ~/.local/share/linguaforge/linguaforge.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("LINGUAFORGE_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "linguaforge", "linguaforge.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
