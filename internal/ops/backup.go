package ops

import (
	"strings"
	"time"

	"github.com/dailyaf/vaultcap/internal/vault"
)

const defaultBackupDir = "System/Backups"

// timestampLayout is ISO-8601 UTC with milliseconds.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// BackupRecord pairs an overwritten file with its copy.
type BackupRecord struct {
	Original string `json:"original"`
	Backup   string `json:"backup"`
}

// BackupPath returns where a copy of path taken at t is stored under dir:
// the path with "/" replaced by "_", then "_" and the timestamp with ":" and "." replaced by "-".
func BackupPath(dir, path string, t time.Time) string {
	stamp := t.UTC().Format(timestampLayout)
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return strings.TrimRight(dir, "/") + "/" + strings.ReplaceAll(path, "/", "_") + "_" + stamp
}

// BackupFile copies the current content of path into the backup folder and
// returns the backup's path. Failures are logged and reported as "".
func (e *Env) BackupFile(path string) string {
	content, err := e.Vault.ReadFile(path)
	if err != nil {
		e.logf("backup %s: read: %v", path, err)
		return ""
	}

	dir := e.backupDir()
	if err := vault.EnsureDir(e.Vault, dir); err != nil {
		e.logf("backup %s: create %s: %v", path, dir, err)
		return ""
	}

	dest := BackupPath(dir, path, e.now())
	if err := e.Vault.Create(dest, content); err != nil {
		e.logf("backup %s: write %s: %v", path, dest, err)
		return ""
	}
	return dest
}
