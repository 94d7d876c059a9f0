package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/dailyaf/vaultcap/internal/capsule"
	"github.com/dailyaf/vaultcap/internal/db"
	"github.com/dailyaf/vaultcap/internal/errors"
	"github.com/dailyaf/vaultcap/internal/settings"
)

// RemoveInput contains parameters for Remove.
type RemoveInput struct {
	ID string // required
}

// RemoveOutput contains the result of Remove.
type RemoveOutput struct {
	OperationID    string   `json:"operation_id,omitempty"`
	CapsuleID      string   `json:"capsule_id"`
	Version        string   `json:"version"`
	Status         Status   `json:"status"`
	Deleted        []string `json:"deleted"`
	Kept           []string `json:"kept"`
	ModulesRemoved int      `json:"modules_removed"`
	Activities     int      `json:"activities"`
}

// Remove deletes the files recorded for an installed capsule, except core
// files, and drops it from the settings document.
func Remove(ctx context.Context, env *Env, input RemoveInput) (out *RemoveOutput, err error) {
	if input.ID == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	const action = db.ActionRemove
	ctx, span := startSpan(ctx, action, input.ID)
	started := time.Now()
	var version string
	defer func() {
		endSpan(span, err)
		if err != nil {
			env.failed(ctx, input.ID, action, version, err, started)
		}
	}()

	current, err := env.Settings.Load()
	if err != nil {
		return nil, err
	}
	rec, ok := current.Installed.Get(input.ID)
	if !ok {
		return nil, errors.NewNotInstalled(input.ID)
	}
	version = rec.Version

	manifest, err := env.Catalog.Manifest(ctx)
	if err != nil {
		return nil, err
	}

	env.report(input.ID, action, Status{State: StateDeleting, Message: "Removing..."})

	out = &RemoveOutput{
		CapsuleID: input.ID,
		Version:   rec.Version,
		Deleted:   []string{},
		Kept:      []string{},
	}

	for _, path := range rec.Files {
		if manifest.IsCoreFile(path) {
			out.Kept = append(out.Kept, path)
			continue
		}
		if !env.Vault.Exists(path) {
			continue
		}
		if err := env.Vault.Delete(path); err != nil {
			env.logf("remove %s: delete %s: %v", input.ID, path, err)
			continue
		}
		out.Deleted = append(out.Deleted, path)
	}

	updated, err := env.Settings.Update(func(st *settings.Settings) error {
		st.Installed.Delete(input.ID)
		remaining := st.InstalledIDs()
		out.ModulesRemoved = st.RemoveModules(orphanedWidgets(manifest, input.ID, remaining))
		st.Activities = capsule.ComputeActivities(remaining, manifest.Capsules)
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Activities = len(updated.Activities)

	name := input.ID
	if c := manifest.Find(input.ID); c != nil {
		name = c.DisplayName()
	}
	out.Status = Status{State: StateDeleted, Message: "Removed"}
	env.Vault.Notify(fmt.Sprintf("Removed %s", name))

	out.OperationID = env.journal(context.WithoutCancel(ctx), &db.Operation{
		CapsuleID:    input.ID,
		Action:       action,
		Version:      rec.Version,
		Status:       string(out.Status.State),
		Message:      out.Status.Message,
		Files:        out.Deleted,
		FilesWritten: len(out.Deleted),
	}, nil)

	env.Metrics.observeOperation(action, StateDeleted, started)
	env.report(input.ID, action, out.Status)
	return out, nil
}

// orphanedWidgets returns the widget ids declared by capsule id that no
// capsule in remaining also declares. A capsule missing from the manifest
// has no known widgets.
func orphanedWidgets(m *capsule.Manifest, id string, remaining []string) []string {
	c := m.Find(id)
	if c == nil {
		return nil
	}
	shared := make(map[string]bool)
	for _, other := range remaining {
		if oc := m.Find(other); oc != nil {
			for _, wid := range oc.WidgetIDs() {
				shared[wid] = true
			}
		}
	}
	var orphaned []string
	for _, wid := range c.WidgetIDs() {
		if !shared[wid] {
			orphaned = append(orphaned, wid)
		}
	}
	return orphaned
}
