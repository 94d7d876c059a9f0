package ops

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dailyaf/vaultcap/internal/db"
)

// newOperationID generates a new ULID for a journal entry. The shared
// monotonic entropy keeps ids from the same millisecond in creation order.
func newOperationID(t time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(t), ulid.DefaultEntropy())
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// journal records a finished action. Journal failures are logged, never
// surfaced: the vault has already changed by the time this runs.
func (e *Env) journal(ctx context.Context, op *db.Operation, backups []BackupRecord) string {
	if e.DB == nil {
		return ""
	}

	now := e.now()
	id, err := newOperationID(now)
	if err != nil {
		e.logf("journal %s %s: %v", op.Action, op.CapsuleID, err)
		return ""
	}
	op.ID = id
	op.CreatedAt = now.Unix()

	rows := make([]db.Backup, 0, len(backups))
	for _, b := range backups {
		rows = append(rows, db.Backup{
			OriginalPath: b.Original,
			BackupPath:   b.Backup,
			CreatedAt:    op.CreatedAt,
		})
	}

	if err := db.RecordOperation(ctx, e.DB, op, rows); err != nil {
		e.logf("journal %s %s: %v", op.Action, op.CapsuleID, err)
		return ""
	}
	return id
}

// failed reports, counts and journals an action that ended in err. Failures
// before the capsule was resolved (no version yet) are not journaled.
func (e *Env) failed(ctx context.Context, capsuleID, action, version string, err error, started time.Time) {
	status := StatusFromError(err)
	e.report(capsuleID, action, status)
	e.Metrics.observeOperation(action, StateError, started)
	if version == "" {
		return
	}
	e.journal(context.WithoutCancel(ctx), &db.Operation{
		CapsuleID: capsuleID,
		Action:    action,
		Version:   version,
		Status:    string(StateError),
		Message:   status.Message,
	}, nil)
}
