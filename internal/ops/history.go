package ops

import (
	"context"

	"github.com/dailyaf/vaultcap/internal/db"
	"github.com/dailyaf/vaultcap/internal/errors"
)

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	CapsuleID string // optional filter
	Limit     int    // default: 20, max: 100
	Offset    int
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Items      []db.Operation `json:"items"`
	Pagination Pagination     `json:"pagination"`
}

// History lists journaled operations newest first.
func History(ctx context.Context, env *Env, input HistoryInput) (*HistoryOutput, error) {
	if env.DB == nil {
		return nil, errors.NewInvalidRequest("operation journal is not available")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := max(input.Offset, 0)

	items, total, err := db.ListOperations(ctx, env.DB, input.CapsuleID, limit, offset)
	if err != nil {
		return nil, err
	}

	return &HistoryOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
	}, nil
}

// OperationOutput is one journal entry with its backups.
type OperationOutput struct {
	db.Operation
	Backups []db.Backup `json:"backups"`
}

// GetOperation returns one journal entry and the backups it took.
func GetOperation(ctx context.Context, env *Env, id string) (*OperationOutput, error) {
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	if env.DB == nil {
		return nil, errors.NewInvalidRequest("operation journal is not available")
	}
	op, err := db.GetOperation(ctx, env.DB, id)
	if err != nil {
		return nil, err
	}
	backups, err := db.ListBackups(ctx, env.DB, id)
	if err != nil {
		return nil, err
	}
	return &OperationOutput{Operation: *op, Backups: backups}, nil
}
