package store

import (
	"strings"

	"codeberg.org/mutker/vitalsd/internal/errors"
)

const (
	// File system permissions and paths
	defaultDirPerm = 0o755
	defaultDSN     = "/var/lib/vitalsd/vitalsd.db"

	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver string
	// DSN is a file path (or ":memory:") for sqlite3 and a connection
	// string for postgres.
	DSN string
	// BackupDir receives a copy of a sqlite database before it is
	// migrated. Empty disables backups.
	BackupDir string
}

func DefaultConfig() Config {
	return Config{
		Driver:    DriverSQLite,
		DSN:       defaultDSN,
		BackupDir: "/var/lib/vitalsd/backups",
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if _, ok := dialects[c.Driver]; !ok {
		return errFactory.WithData(ErrUnsupportedDriver, c.Driver)
	}
	if strings.TrimSpace(c.DSN) == "" {
		return errFactory.WithMessage(ErrInvalidConfig, "database dsn is required")
	}
	return nil
}

func (c Config) inMemory() bool {
	return c.Driver == DriverSQLite && (c.DSN == ":memory:" || strings.Contains(c.DSN, "mode=memory"))
}

// sqliteDSN adds the pragmas the store relies on unless the caller
// already passed query parameters.
func (c Config) sqliteDSN() string {
	if strings.Contains(c.DSN, "?") {
		return c.DSN
	}
	if c.DSN == ":memory:" {
		return "file::memory:?_foreign_keys=on"
	}
	return c.DSN + "?_journal=WAL&_foreign_keys=on"
}
