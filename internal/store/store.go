package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"codeberg.org/mutker/vitalsd/internal/errors"
	"codeberg.org/mutker/vitalsd/internal/logger"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Store persists readings, users and their simulation configs. All
// queries are scoped to a single user.
type Store struct {
	db     *sqlx.DB
	d      dialect
	logger logger.Logger
	now    func() time.Time
}

// Open connects to the configured database and migrates its schema.
func Open(ctx context.Context, cfg Config, log logger.Logger) (*Store, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := dialects[cfg.Driver]

	dsn := cfg.DSN
	if cfg.Driver == DriverSQLite {
		if !cfg.inMemory() {
			// Ensure the directory exists
			if err := os.MkdirAll(filepath.Dir(cfg.DSN), defaultDirPerm); err != nil {
				return nil, errFactory.WithData(ErrStorageInit, struct {
					Phase string
					Path  string
					Error string
				}{
					Phase: "create_directory",
					Path:  cfg.DSN,
					Error: err.Error(),
				})
			}
		}
		dsn = cfg.sqliteDSN()
	}

	db, err := sqlx.ConnectContext(ctx, cfg.Driver, dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}
	if cfg.Driver == DriverSQLite {
		// one connection keeps in-memory databases shared and writes serialized
		db.SetMaxOpenConns(1)
	}

	if err := Migrate(ctx, db, d, cfg.BackupDir, log); err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "schema_version",
			Error: err.Error(),
		})
	}

	log.Info().
		Str("driver", cfg.Driver).
		Int("schema_version", SchemaVersion).
		Msg("Store initialized")

	return New(db, log), nil
}

// New wraps an already migrated connection. The dialect follows the
// sqlx driver name; unknown drivers are treated as sqlite3.
func New(db *sqlx.DB, log logger.Logger) *Store {
	d, ok := dialects[db.DriverName()]
	if !ok {
		d = dialects[DriverSQLite]
	}
	return &Store{db: db, d: d, logger: log, now: time.Now}
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.d.name == DriverSQLite {
		// Checkpoint WAL and cleanup on close
		if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			return errors.New().WithData(ErrStorageClose, struct {
				Phase string
				Error string
			}{
				Phase: "checkpoint_wal",
				Error: err.Error(),
			})
		}
	}

	if err := s.db.Close(); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	s.logger.Info().Msg("Store closed gracefully")

	return nil
}

// withTx runs fn in a transaction, committing only when fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	errFactory := errors.New()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	// Track transaction state
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				if !errors.Is(err, sql.ErrTxDone) {
					s.logger.Debug().Err(err).Msg("Failed to rollback transaction")
				}
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	committed = true

	return nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
