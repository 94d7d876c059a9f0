package ops

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dailyaf/vaultcap/internal/capsule"
	"github.com/dailyaf/vaultcap/internal/db"
	"github.com/dailyaf/vaultcap/internal/errors"
	"github.com/dailyaf/vaultcap/internal/settings"
	"github.com/dailyaf/vaultcap/internal/vault"
)

// InstallInput contains parameters for Install and Update.
type InstallInput struct {
	ID string // required
	// Force lets Update reinstall a capsule that is already current.
	Force bool
}

// InstallOutput contains the result of Install and Update.
type InstallOutput struct {
	OperationID  string         `json:"operation_id,omitempty"`
	CapsuleID    string         `json:"capsule_id"`
	Action       string         `json:"action"`
	Version      string         `json:"version"`
	Status       Status         `json:"status"`
	Files        []string       `json:"files"`
	FilesFailed  []string       `json:"files_failed"`
	Backups      []BackupRecord `json:"backups"`
	ModulesAdded int            `json:"modules_added"`
	Activities   int            `json:"activities"`
}

// Install fetches every file of a capsule into the vault and records it in
// the settings document.
func Install(ctx context.Context, env *Env, input InstallInput) (*InstallOutput, error) {
	return install(ctx, env, input, db.ActionInstall)
}

// Update reinstalls a capsule whose manifest version is newer than the
// installed one.
func Update(ctx context.Context, env *Env, input InstallInput) (*InstallOutput, error) {
	return install(ctx, env, input, db.ActionUpdate)
}

func install(ctx context.Context, env *Env, input InstallInput, action string) (out *InstallOutput, err error) {
	if input.ID == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	ctx, span := startSpan(ctx, action, input.ID)
	started := time.Now()
	var version string
	defer func() {
		endSpan(span, err)
		if err != nil {
			env.failed(ctx, input.ID, action, version, err, started)
		}
	}()

	manifest, err := env.Catalog.Manifest(ctx)
	if err != nil {
		return nil, err
	}
	c := manifest.Find(input.ID)
	if c == nil {
		return nil, errors.NewNotFound(input.ID)
	}
	version = c.Version

	current, err := env.Settings.Load()
	if err != nil {
		return nil, err
	}

	if action == db.ActionUpdate {
		rec, ok := current.Installed.Get(c.ID)
		if !ok {
			return nil, errors.NewNotInstalled(c.ID)
		}
		if !input.Force && !capsule.IsNewer(rec.Version, c.Version) {
			return nil, errors.NewUpToDate(c.ID, rec.Version)
		}
	}

	deps := capsule.CheckDependencies(c, current.InstalledIDs())
	if !deps.Satisfied {
		return nil, errors.NewDependencyUnsatisfied(c.ID, deps.Missing)
	}

	span.SetAttributes(attribute.String("capsule.version", c.Version))

	state, message := StateCloning, "Downloading..."
	if action == db.ActionUpdate {
		state, message = StatePulling, "Updating..."
	}
	env.report(c.ID, action, Status{State: state, Message: message})

	out = &InstallOutput{
		CapsuleID:   c.ID,
		Action:      action,
		Version:     c.Version,
		Files:       []string{},
		FilesFailed: []string{},
		Backups:     []BackupRecord{},
	}

	for _, f := range c.Files {
		if f.IsComment() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCancelled(action)
		}

		isCore := manifest.IsCoreFile(f.Dest)
		exists := env.Vault.Exists(f.Dest)
		if isCore && exists && c.Behavior() == capsule.CoreSkip {
			out.Files = append(out.Files, f.Dest)
			continue
		}

		env.report(c.ID, action, Status{State: state, Message: fmt.Sprintf("Fetching %s...", vault.Base(f.Src))})
		content, err := env.Catalog.FetchFile(ctx, f.Src)
		if err != nil {
			env.logf("install %s: fetch %s: %v", c.ID, f.Src, err)
			out.FilesFailed = append(out.FilesFailed, f.Dest)
			continue
		}

		if exists && !isCore {
			if conflict := DetectConflict(env.Vault, f.Dest, content); conflict.HasConflict {
				if backup := env.BackupFile(f.Dest); backup != "" {
					out.Backups = append(out.Backups, BackupRecord{Original: f.Dest, Backup: backup})
				}
			}
		}

		if err := writeVaultFile(env.Vault, f.Dest, content, exists); err != nil {
			env.logf("install %s: write %s: %v", c.ID, f.Dest, err)
			out.FilesFailed = append(out.FilesFailed, f.Dest)
			continue
		}
		out.Files = append(out.Files, f.Dest)
	}

	record := capsule.InstalledRecord{
		Version:     c.Version,
		InstalledAt: env.now().UTC().Format(timestampLayout),
		Files:       out.Files,
	}
	updated, err := env.Settings.Update(func(st *settings.Settings) error {
		st.Installed.Set(c.ID, record)
		out.ModulesAdded = st.AddWidgets(c.Widgets)
		st.Activities = capsule.ComputeActivities(st.InstalledIDs(), manifest.Capsules)
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Activities = len(updated.Activities)

	out.Status = Status{State: StateSuccess, Message: fmt.Sprintf("Installed v%s", c.Version)}
	if n := len(out.Backups); n > 0 {
		out.Status.Message = fmt.Sprintf("Installed v%s. %d file(s) backed up.", c.Version, n)
		env.Vault.Notify(fmt.Sprintf("Installed %s v%s. %d file(s) backed up to %s/", c.DisplayName(), c.Version, n, env.backupDir()))
	} else {
		env.Vault.Notify(fmt.Sprintf("Installed %s v%s", c.DisplayName(), c.Version))
	}

	out.OperationID = env.journal(context.WithoutCancel(ctx), &db.Operation{
		CapsuleID:    c.ID,
		Action:       action,
		Version:      c.Version,
		Status:       string(out.Status.State),
		Message:      out.Status.Message,
		Files:        out.Files,
		FilesWritten: len(out.Files),
		FilesFailed:  len(out.FilesFailed),
	}, out.Backups)

	env.Metrics.observeFiles(len(out.Files), len(out.FilesFailed), len(out.Backups))
	env.Metrics.observeOperation(action, StateSuccess, started)
	env.report(c.ID, action, out.Status)
	return out, nil
}

// writeVaultFile creates the parent folders of path, then creates or
// modifies the file. A create that loses a race to another writer falls
// back to modify.
func writeVaultFile(host vault.Host, path, content string, exists bool) error {
	if err := vault.EnsureDir(host, vault.Dir(path)); err != nil {
		return err
	}
	if exists {
		return host.Modify(path, content)
	}
	err := host.Create(path, content)
	if stderrors.Is(err, vault.ErrExists) {
		return host.Modify(path, content)
	}
	return err
}
