// Package ops implements the capsule actions shared by the CLI, the MCP
// server and the web UI: install, update, remove, catalog browsing, module
// ordering, activity sync and the operation history.
package ops

import (
	"database/sql"
	"log"
	"time"

	"github.com/dailyaf/vaultcap/internal/config"
	"github.com/dailyaf/vaultcap/internal/errors"
	"github.com/dailyaf/vaultcap/internal/remote"
	"github.com/dailyaf/vaultcap/internal/settings"
	"github.com/dailyaf/vaultcap/internal/vault"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Env is everything an action touches. DB, Metrics and Progress are optional.
type Env struct {
	DB       *sql.DB
	Config   *config.Config
	Vault    vault.Host
	Settings *settings.Store
	Catalog  *remote.Catalog
	Logger   *log.Logger
	Metrics  *Metrics
	Progress ProgressFunc
	Now      func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Env) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Printf(format, args...)
	}
}

func (e *Env) backupDir() string {
	if e.Config != nil && e.Config.BackupDir != "" {
		return e.Config.BackupDir
	}
	return defaultBackupDir
}

// State is where an action is in its lifecycle.
type State string

const (
	StateCloning  State = "cloning"
	StatePulling  State = "pulling"
	StateDeleting State = "deleting"
	StateSuccess  State = "success"
	StateDeleted  State = "deleted"
	StateError    State = "error"
)

// Status is the per-capsule action status reported to the surfaces.
type Status struct {
	State   State            `json:"state"`
	Message string           `json:"message"`
	Code    errors.ErrorCode `json:"code,omitempty"`
}

// Done reports whether the action has finished.
func (s Status) Done() bool {
	return s.State == StateSuccess || s.State == StateDeleted || s.State == StateError
}

// StatusFromError converts an action failure into an error status.
func StatusFromError(err error) Status {
	ve := errors.As(err)
	return Status{State: StateError, Message: ve.Message, Code: ve.Code}
}

// Event is one progress update for a capsule action.
type Event struct {
	CapsuleID string `json:"capsule_id"`
	Action    string `json:"action"`
	Status    Status `json:"status"`
	Time      int64  `json:"time"`
}

// ProgressFunc receives progress events. It is called synchronously from
// the action and must not block.
type ProgressFunc func(Event)

func (e *Env) report(capsuleID, action string, s Status) {
	if e.Progress == nil {
		return
	}
	e.Progress(Event{
		CapsuleID: capsuleID,
		Action:    action,
		Status:    s,
		Time:      e.now().UnixMilli(),
	})
}
