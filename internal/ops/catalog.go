package ops

import (
	"context"
	"time"

	"github.com/dailyaf/vaultcap/internal/capsule"
	"github.com/dailyaf/vaultcap/internal/errors"
)

// CatalogInput contains parameters for the Catalog operation.
type CatalogInput struct {
	Source string // "" or "all" lists every source
	// State keeps only entries in this install state when set.
	State capsule.InstallState
}

// CatalogOutput contains the result of the Catalog operation.
type CatalogOutput struct {
	Items     []capsule.Summary `json:"items"`
	Sources   []string          `json:"sources"`
	Origin    string            `json:"origin"`
	FetchedAt int64             `json:"fetched_at"`
	// Stale is set when the last refresh failed and an older manifest is shown.
	Stale     bool   `json:"stale,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// Catalog lists the manifest's capsules with their install state.
func Catalog(ctx context.Context, env *Env, input CatalogInput) (*CatalogOutput, error) {
	switch input.State {
	case "", capsule.StateAvailable, capsule.StateInstalled, capsule.StateUpdateAvailable:
	default:
		return nil, errors.NewInvalidRequest("state must be one of: available, installed, update-available")
	}

	manifest, err := env.Catalog.Manifest(ctx)
	if err != nil {
		return nil, err
	}
	current, err := env.Settings.Load()
	if err != nil {
		return nil, err
	}
	installedIDs := current.InstalledIDs()

	items := make([]capsule.Summary, 0, len(manifest.Capsules))
	for i := range manifest.Capsules {
		c := &manifest.Capsules[i]
		if !capsule.MatchSource(input.Source, c.Source) {
			continue
		}
		var installed *capsule.InstalledRecord
		if rec, ok := current.Installed.Get(c.ID); ok {
			installed = &rec
		}
		s := capsule.Summarize(c, installed, installedIDs)
		if input.State != "" && s.State != input.State {
			continue
		}
		items = append(items, s)
	}

	out := &CatalogOutput{
		Items:     items,
		Sources:   capsule.Sources(manifest.Capsules),
		Origin:    env.Catalog.SourceName(),
		FetchedAt: unixOrZero(env.Catalog.FetchedAt()),
	}
	if lastErr := env.Catalog.LastError(); lastErr != nil {
		out.Stale = true
		out.LastError = lastErr.Error()
	}
	return out, nil
}

// RefreshOutput contains the result of the Refresh operation.
type RefreshOutput struct {
	Origin    string `json:"origin"`
	Capsules  int    `json:"capsules"`
	CoreFiles int    `json:"core_files"`
	FetchedAt int64  `json:"fetched_at"`
}

// Refresh refetches the manifest. On failure the previous manifest stays in use.
func Refresh(ctx context.Context, env *Env) (*RefreshOutput, error) {
	ctx, span := startSpan(ctx, "refresh", "")
	m, err := env.Catalog.Refresh(ctx)
	endSpan(span, err)
	env.Metrics.observeFetch(err)
	if err != nil {
		env.logf("refresh from %s: %v", env.Catalog.SourceName(), err)
		return nil, err
	}
	return &RefreshOutput{
		Origin:    env.Catalog.SourceName(),
		Capsules:  len(m.Capsules),
		CoreFiles: len(m.CoreFiles),
		FetchedAt: unixOrZero(env.Catalog.FetchedAt()),
	}, nil
}

// InstalledItem is one installed capsule compared with the manifest.
type InstalledItem struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	InstalledVersion string   `json:"installed_version"`
	InstalledAt      string   `json:"installed_at"`
	Files            []string `json:"files"`
	// AvailableVersion is empty when the capsule is no longer in the manifest.
	AvailableVersion string `json:"available_version,omitempty"`
	UpdateAvailable  bool   `json:"update_available"`
}

// InstalledInput contains parameters for ListInstalled.
type InstalledInput struct {
	ID       string // only this capsule when set
	Outdated bool   // only capsules with a newer manifest version
}

// InstalledOutput contains the result of ListInstalled.
type InstalledOutput struct {
	Items        []InstalledItem `json:"items"`
	SettingsPath string          `json:"settings_path"`
	// ManifestError is set when the manifest could not be fetched; available
	// versions are then unknown.
	ManifestError string `json:"manifest_error,omitempty"`
}

// ListInstalled lists installed capsules in stored order. Without a manifest
// the settings records are still listed, unless Outdated is requested.
func ListInstalled(ctx context.Context, env *Env, input InstalledInput) (*InstalledOutput, error) {
	current, err := env.Settings.Load()
	if err != nil {
		return nil, err
	}
	if input.ID != "" && !current.Installed.Has(input.ID) {
		return nil, errors.NewNotInstalled(input.ID)
	}

	out := &InstalledOutput{
		Items:        []InstalledItem{},
		SettingsPath: env.Settings.Path(),
	}

	manifest, err := env.Catalog.Manifest(ctx)
	if err != nil {
		if input.Outdated {
			return nil, err
		}
		out.ManifestError = err.Error()
	}

	for _, id := range current.InstalledIDs() {
		if input.ID != "" && id != input.ID {
			continue
		}
		rec, _ := current.Installed.Get(id)
		item := InstalledItem{
			ID:               id,
			Name:             id,
			InstalledVersion: rec.Version,
			InstalledAt:      rec.InstalledAt,
			Files:            rec.Files,
		}
		if item.Files == nil {
			item.Files = []string{}
		}
		if c := manifest.Find(id); c != nil {
			item.Name = c.DisplayName()
			item.AvailableVersion = c.Version
			item.UpdateAvailable = capsule.IsNewer(rec.Version, c.Version)
		}
		if input.Outdated && !item.UpdateAvailable {
			continue
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
