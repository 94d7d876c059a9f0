package db

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dailyaf/vaultcap/internal/config"
)

func TestInit_Schema(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", ".vaultcap")

	db, err := Init(dir)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
		t.Fatalf("journal file missing: %v", err)
	}

	tests := []struct {
		kind string
		name string
	}{
		{"table", "operations"},
		{"table", "backups"},
		{"index", "idx_operations_created"},
		{"index", "idx_operations_capsule_created"},
		{"index", "idx_backups_operation"},
	}
	for _, tt := range tests {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type=? AND name=?", tt.kind, tt.name).Scan(&name)
		if err != nil {
			t.Errorf("%s %s not found: %v", tt.kind, tt.name, err)
		}
	}

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil || journalMode != "wal" {
		t.Errorf("journal_mode = %q, %v; want wal", journalMode, err)
	}
}

func TestInit_Reopen(t *testing.T) {
	dir := t.TempDir()

	for i := 0; i < 2; i++ {
		db, err := Init(dir)
		if err != nil {
			t.Fatalf("Init() #%d error = %v", i+1, err)
		}
		version, err := GetUserVersion(db)
		db.Close()
		if err != nil {
			t.Fatalf("GetUserVersion() error = %v", err)
		}
		if version != CurrentSchemaVersion {
			t.Errorf("user_version after Init #%d = %d, want %d", i+1, version, CurrentSchemaVersion)
		}
	}
}

func TestInit_RejectsNewerSchema(t *testing.T) {
	dir := t.TempDir()

	db, err := Init(dir)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := SetUserVersion(db, CurrentSchemaVersion+1); err != nil {
		t.Fatalf("SetUserVersion() error = %v", err)
	}
	db.Close()

	_, err = Init(dir)
	if err == nil || !strings.Contains(err.Error(), "newer than this build") {
		t.Errorf("Init() error = %v, want newer-schema error", err)
	}
}

func TestInit_ForeignKeysCascade(t *testing.T) {
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	op := &Operation{ID: "01A", CapsuleID: "water-tracker", Action: ActionInstall, Version: "1.0.0", Status: "success", CreatedAt: 1}
	if err := RecordOperation(ctx, db, op, []Backup{{OriginalPath: "a.md", BackupPath: "b.md", CreatedAt: 1}}); err != nil {
		t.Fatalf("RecordOperation() error = %v", err)
	}
	if _, err := db.Exec("DELETE FROM operations WHERE id = ?", "01A"); err != nil {
		t.Fatalf("delete operation: %v", err)
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM backups").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("backups left after cascade = %d, want 0", n)
	}
}

func TestConfigurePool(t *testing.T) {
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	ConfigurePool(db, nil)
	ConfigurePool(db, &config.Config{DBMaxOpenConns: 3})

	if got := db.Stats().MaxOpenConnections; got != 3 {
		t.Errorf("MaxOpenConnections = %d, want 3", got)
	}
}
