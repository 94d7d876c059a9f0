package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/dailyaf/vaultcap/internal/errors"
)

// Operation actions.
const (
	ActionInstall = "install"
	ActionUpdate  = "update"
	ActionRemove  = "remove"
)

// Operation is one journaled install, update or remove.
type Operation struct {
	ID           string   `json:"id"`
	CapsuleID    string   `json:"capsule_id"`
	Action       string   `json:"action"`
	Version      string   `json:"version"`
	Status       string   `json:"status"`
	Message      string   `json:"message"`
	Files        []string `json:"files"`
	FilesWritten int      `json:"files_written"`
	FilesFailed  int      `json:"files_failed"`
	BackupCount  int      `json:"backup_count"`
	CreatedAt    int64    `json:"created_at"`
}

// Backup is a copy of a locally edited file taken before it was overwritten.
type Backup struct {
	OperationID  string `json:"operation_id"`
	OriginalPath string `json:"original_path"`
	BackupPath   string `json:"backup_path"`
	CreatedAt    int64  `json:"created_at"`
}

// ErrUniqueConstraint is returned when an insert reuses an operation id.
var ErrUniqueConstraint = &errors.VaultError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// RecordOperation stores op and its backups in one transaction.
func RecordOperation(ctx context.Context, db *sql.DB, op *Operation, backups []Backup) error {
	var filesJSON sql.NullString
	if len(op.Files) > 0 {
		data, err := json.Marshal(op.Files)
		if err != nil {
			return errors.NewInternal(err)
		}
		filesJSON = sql.NullString{String: string(data), Valid: true}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO operations (
			id, capsule_id, action, version, status, message,
			files_json, files_written, files_failed, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		op.ID, op.CapsuleID, op.Action, op.Version, op.Status, op.Message,
		filesJSON, op.FilesWritten, op.FilesFailed, op.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}

	for _, b := range backups {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO backups (operation_id, original_path, backup_path, created_at)
			VALUES (?, ?, ?, ?)
		`, op.ID, b.OriginalPath, b.BackupPath, b.CreatedAt)
		if err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	op.BackupCount = len(backups)
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const operationColumns = `
	o.id, o.capsule_id, o.action, o.version, o.status, o.message,
	o.files_json, o.files_written, o.files_failed, o.created_at,
	(SELECT COUNT(*) FROM backups b WHERE b.operation_id = o.id)
`

// GetOperation retrieves an operation by its ULID.
func GetOperation(ctx context.Context, db *sql.DB, id string) (*Operation, error) {
	row := db.QueryRowContext(ctx, `SELECT `+operationColumns+` FROM operations o WHERE o.id = ?`, id)
	op, err := scanOperation(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewOperationNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return op, nil
}

// ListOperations returns operations newest first with the total matching
// count. An empty capsuleID lists every capsule.
func ListOperations(ctx context.Context, db *sql.DB, capsuleID string, limit, offset int) ([]Operation, int, error) {
	where := ""
	var args []any
	if capsuleID != "" {
		where = " WHERE o.capsule_id = ?"
		args = append(args, capsuleID)
	}

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM operations o`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `SELECT ` + operationColumns + ` FROM operations o` + where +
		` ORDER BY o.created_at DESC, o.id DESC LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	ops := []Operation{}
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		ops = append(ops, *op)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return ops, total, nil
}

// ListBackups returns the backups taken by one operation in insertion order.
func ListBackups(ctx context.Context, db *sql.DB, operationID string) ([]Backup, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT operation_id, original_path, backup_path, created_at
		FROM backups
		WHERE operation_id = ?
		ORDER BY rowid
	`, operationID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	backups := []Backup{}
	for rows.Next() {
		var b Backup
		if err := rows.Scan(&b.OperationID, &b.OriginalPath, &b.BackupPath, &b.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		backups = append(backups, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return backups, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanOperation scans a single row into an Operation.
func scanOperation(row rowScanner) (*Operation, error) {
	var (
		op        Operation
		filesJSON sql.NullString
	)

	err := row.Scan(
		&op.ID, &op.CapsuleID, &op.Action, &op.Version, &op.Status, &op.Message,
		&filesJSON, &op.FilesWritten, &op.FilesFailed, &op.CreatedAt,
		&op.BackupCount,
	)
	if err != nil {
		return nil, err
	}

	op.Files = []string{}
	if filesJSON.Valid && filesJSON.String != "" {
		if err := json.Unmarshal([]byte(filesJSON.String), &op.Files); err != nil {
			return nil, err
		}
	}
	return &op, nil
}
