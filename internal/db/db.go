// Package db is the sqlite operation journal: one row per install, update
// or remove, plus the backups each operation wrote.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dailyaf/vaultcap/internal/config"
	_ "modernc.org/sqlite"
)

// FileName is the journal database file inside the base directory.
const FileName = "vaultcap.db"

// migrations[i] upgrades the schema from user_version i to i+1.
// Append only; never edit a released step.
var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS operations (
	  id            TEXT PRIMARY KEY,
	  capsule_id    TEXT NOT NULL,
	  action        TEXT NOT NULL,
	  version       TEXT NOT NULL,
	  status        TEXT NOT NULL,
	  message       TEXT NOT NULL,
	  files_json    TEXT,
	  files_written INTEGER NOT NULL,
	  files_failed  INTEGER NOT NULL,
	  created_at    INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_operations_created
	ON operations(created_at DESC, id DESC);

	CREATE INDEX IF NOT EXISTS idx_operations_capsule_created
	ON operations(capsule_id, created_at DESC, id DESC);

	CREATE TABLE IF NOT EXISTS backups (
	  operation_id  TEXT NOT NULL REFERENCES operations(id) ON DELETE CASCADE,
	  original_path TEXT NOT NULL,
	  backup_path   TEXT NOT NULL,
	  created_at    INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_backups_operation
	ON backups(operation_id);
	`,
}

// CurrentSchemaVersion is the schema version after all migrations.
var CurrentSchemaVersion = len(migrations)

// Init opens (creating if needed) the journal at baseDir/vaultcap.db and
// brings its schema up to date. Tests pass t.TempDir() for baseDir.
func Init(baseDir string) (*sql.DB, error) {
	// The journal records vault paths; keep it private to the user.
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	// Pragmas in the DSN apply to every pooled connection.
	dbPath := filepath.Join(baseDir, FileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)
	return db, nil
}

// ConfigurePool applies db_max_open_conns / db_max_idle_conns when set.
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate runs every step past the stored user_version, each in its own
// transaction together with the version bump.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}
	if version > len(migrations) {
		return fmt.Errorf("journal schema version %d is newer than this build supports (%d)", version, len(migrations))
	}

	for v := version; v < len(migrations); v++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if _, err := tx.Exec(migrations[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", v+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version=%d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: set user_version: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: commit: %w", v+1, err)
		}
	}
	return nil
}

func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the schema version stored in the user_version pragma.
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion overwrites the user_version pragma.
func SetUserVersion(db *sql.DB, version int) error {
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version)); err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
