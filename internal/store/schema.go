package store

import (
	"context"
	"database/sql"
	"time"

	"codeberg.org/mutker/vitalsd/internal/errors"
	"codeberg.org/mutker/vitalsd/internal/logger"
	"github.com/jmoiron/sqlx"
)

const (
	SchemaVersion = 2

	createVersionsSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   )`
)

// migrations[i] moves the schema from version i to i+1. The DDL is shared
// by sqlite3 and postgres.
var migrations = []string{
	`
	   CREATE TABLE users (
	       id          TEXT PRIMARY KEY,
	       email       TEXT NOT NULL UNIQUE,
	       first_name  TEXT NOT NULL DEFAULT '',
	       last_name   TEXT NOT NULL DEFAULT '',
	       role        TEXT NOT NULL CHECK (role IN ('patient', 'doctor', 'nurse', 'admin')),
	       created_at  BIGINT NOT NULL
	   );
	   CREATE TABLE simulation_configs (
	       user_id              TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	       heart_rate_mean      DOUBLE PRECISION NOT NULL,
	       heart_rate_variance  DOUBLE PRECISION NOT NULL,
	       systolic_mean        DOUBLE PRECISION NOT NULL,
	       systolic_variance    DOUBLE PRECISION NOT NULL,
	       diastolic_mean       DOUBLE PRECISION NOT NULL,
	       diastolic_variance   DOUBLE PRECISION NOT NULL,
	       pulse_mean           DOUBLE PRECISION NOT NULL,
	       pulse_variance       DOUBLE PRECISION NOT NULL,
	       spo2_mean            DOUBLE PRECISION NOT NULL,
	       spo2_variance        DOUBLE PRECISION NOT NULL,
	       steps_mean           DOUBLE PRECISION NOT NULL,
	       steps_variance       DOUBLE PRECISION NOT NULL,
	       sleep_mean           DOUBLE PRECISION NOT NULL,
	       sleep_variance       DOUBLE PRECISION NOT NULL
	   );
	   CREATE TABLE readings (
	       id                  TEXT PRIMARY KEY,
	       user_id             TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	       kind                TEXT NOT NULL,
	       recorded_at         BIGINT NOT NULL,
	       source              TEXT NOT NULL,
	       created_at          BIGINT NOT NULL,
	       updated_at          BIGINT NOT NULL,
	       systolic            INTEGER,
	       diastolic           INTEGER,
	       pulse               INTEGER,
	       value               INTEGER,
	       activity_level      TEXT,
	       measurement_method  TEXT,
	       step_count          INTEGER,
	       step_goal           INTEGER,
	       device              TEXT,
	       distance            DOUBLE PRECISION,
	       start_time          BIGINT,
	       end_time            BIGINT,
	       quality             INTEGER,
	       interruptions       INTEGER
	   );
	   CREATE INDEX readings_user_kind_time ON readings (user_id, kind, recorded_at)`,
	`
	   CREATE INDEX readings_user_kind_start ON readings (user_id, kind, start_time)`,
}

// dialect holds the statements that differ between drivers.
type dialect struct {
	name           string
	tableExistsSQL string
	canBackup      bool
}

var dialects = map[string]dialect{
	DriverSQLite: {
		name: DriverSQLite,
		tableExistsSQL: `
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )`,
		canBackup: true,
	},
	DriverPostgres: {
		name: DriverPostgres,
		tableExistsSQL: `
        SELECT EXISTS (
            SELECT 1 FROM information_schema.tables
            WHERE table_schema = current_schema() AND table_name = ?
        )`,
	},
}

// GetSchemaVersion returns the current schema version, 0 for an empty
// database.
func GetSchemaVersion(ctx context.Context, db *sqlx.DB, d dialect) (int, error) {
	errFactory := errors.New()

	exists, err := TableExists(ctx, db, d, "schema_versions")
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, err)
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.GetContext(ctx, &version, `
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Error string
		}{
			Phase: "get_version",
			Error: err.Error(),
		})
	}

	return version, nil
}

// TableExists checks if a table exists
func TableExists(ctx context.Context, db *sqlx.DB, d dialect, tableName string) (bool, error) {
	errFactory := errors.New()
	var exists bool
	err := db.QueryRowxContext(ctx, db.Rebind(d.tableExistsSQL), tableName).Scan(&exists)
	if err != nil {
		return false, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "check_table_exists",
			Table: tableName,
			Error: err.Error(),
		})
	}
	return exists, nil
}

// applyMigration runs one migration and records the version it reaches
// in the same transaction.
func applyMigration(ctx context.Context, db *sqlx.DB, to int, log logger.Logger) error {
	errFactory := errors.New()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errFactory.Wrap(ErrSchemaMigrationFailed, err)
	}

	// Track transaction state
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				if !errors.Is(err, sql.ErrTxDone) {
					log.Debug().Err(err).Msg("Failed to rollback migration")
				}
			}
		}
	}()

	if _, err := tx.ExecContext(ctx, createVersionsSQL); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Phase string
			Error string
		}{
			Phase: "create_versions_table",
			Error: err.Error(),
		})
	}

	log.Debug().Int("version", to).Msg("Applying schema migration")
	if _, err := tx.ExecContext(ctx, migrations[to-1]); err != nil {
		return errFactory.WithData(ErrSchemaMigrationFailed, struct {
			Version int
			Error   string
		}{
			Version: to,
			Error:   err.Error(),
		})
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, ?)
    `), to, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return errFactory.WithData(ErrSchemaMigrationFailed, struct {
			Phase string
			Error string
		}{
			Phase: "record_version",
			Error: err.Error(),
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaMigrationFailed, err)
	}
	committed = true

	return nil
}
