package capsule

import "slices"

// CoreFileBehavior controls what an install does with a core file that already exists locally.
type CoreFileBehavior string

const (
	// CoreSkip keeps the existing local core file and records it as installed.
	CoreSkip CoreFileBehavior = "skip"
	// CoreUpdate downloads and overwrites the core file.
	CoreUpdate CoreFileBehavior = "update"
)

// ActivityType is the kind of value an activity records.
type ActivityType string

const (
	ActivityBoolean ActivityType = "boolean"
	ActivityValue   ActivityType = "value"
	ActivityRating  ActivityType = "rating"
	ActivityCount   ActivityType = "count"
)

// File maps a path in the remote store to a vault-relative destination.
// Entries carrying only a _comment are manifest bookkeeping and are never installed.
type File struct {
	Src     string `json:"src,omitempty"`
	Dest    string `json:"dest,omitempty"`
	Comment string `json:"_comment,omitempty"`
}

// IsComment reports whether the entry is a pure comment.
func (f File) IsComment() bool {
	return f.Comment != "" && f.Src == "" && f.Dest == ""
}

// Widget is a UI entry point contributed by a capsule.
type Widget struct {
	ID          string `json:"id"`
	Label       string `json:"label,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Widget      string `json:"widget,omitempty"`
	Description string `json:"description,omitempty"`
}

// Module is an installed-modules entry in the settings document.
type Module struct {
	ID          string `json:"id" yaml:"id"`
	Label       string `json:"label,omitempty" yaml:"label,omitempty"`
	Icon        string `json:"icon,omitempty" yaml:"icon,omitempty"`
	Widget      string `json:"widget,omitempty" yaml:"widget,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ModuleFromWidget copies the widget's descriptor into a module entry.
func ModuleFromWidget(w Widget) Module {
	return Module{
		ID:          w.ID,
		Label:       w.Label,
		Icon:        w.Icon,
		Widget:      w.Widget,
		Description: w.Description,
	}
}

// Activity is a trackable daily metric declared by a capsule.
type Activity struct {
	ID        string       `json:"id" yaml:"id"`
	Name      string       `json:"name,omitempty" yaml:"name,omitempty"`
	Label     string       `json:"label,omitempty" yaml:"label,omitempty"`
	Icon      string       `json:"icon,omitempty" yaml:"icon,omitempty"`
	Color     string       `json:"color,omitempty" yaml:"color,omitempty"`
	Type      ActivityType `json:"type,omitempty" yaml:"type,omitempty"`
	Goal      *float64     `json:"goal,omitempty" yaml:"goal,omitempty"`
	Unit      string       `json:"unit,omitempty" yaml:"unit,omitempty"`
	Increment *float64     `json:"increment,omitempty" yaml:"increment,omitempty"`

	// Field is the frontmatter key daily values are recorded under.
	Field string `json:"field,omitempty" yaml:"field,omitempty"`
}

// Clone returns a copy that shares no pointers with a.
func (a Activity) Clone() Activity {
	out := a
	if a.Goal != nil {
		g := *a.Goal
		out.Goal = &g
	}
	if a.Increment != nil {
		inc := *a.Increment
		out.Increment = &inc
	}
	return out
}

// Capsule is an installable package descriptor from the remote catalog.
type Capsule struct {
	ID               string           `json:"id"`
	Name             string           `json:"name,omitempty"`
	Version          string           `json:"version"`
	Icon             string           `json:"icon,omitempty"`
	Description      string           `json:"description,omitempty"`
	Source           string           `json:"source,omitempty"`
	Files            []File           `json:"files,omitempty"`
	Widgets          []Widget         `json:"widgets,omitempty"`
	Activities       []Activity       `json:"activities,omitempty"`
	Requires         []string         `json:"requires,omitempty"`
	CoreFileBehavior CoreFileBehavior `json:"coreFileBehavior,omitempty"`
}

// Behavior returns the capsule's core file behavior, defaulting to skip.
func (c *Capsule) Behavior() CoreFileBehavior {
	if c.CoreFileBehavior == "" {
		return CoreSkip
	}
	return c.CoreFileBehavior
}

// InstallableFiles returns the file entries that are not pure comments.
func (c *Capsule) InstallableFiles() []File {
	files := make([]File, 0, len(c.Files))
	for _, f := range c.Files {
		if !f.IsComment() {
			files = append(files, f)
		}
	}
	return files
}

// WidgetIDs returns the ids of the capsule's widgets in declaration order.
func (c *Capsule) WidgetIDs() []string {
	ids := make([]string, 0, len(c.Widgets))
	for _, w := range c.Widgets {
		ids = append(ids, w.ID)
	}
	return ids
}

// DisplayName prefers the human name and falls back to the id.
func (c *Capsule) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

// Manifest is the remote catalog document.
type Manifest struct {
	Capsules  []Capsule `json:"capsules"`
	CoreFiles []string  `json:"coreFiles,omitempty"`
}

// Find returns the capsule with the given id, or nil.
func (m *Manifest) Find(id string) *Capsule {
	if m == nil {
		return nil
	}
	for i := range m.Capsules {
		if m.Capsules[i].ID == id {
			return &m.Capsules[i]
		}
	}
	return nil
}

// IsCoreFile reports whether path is a protected shared file.
func (m *Manifest) IsCoreFile(path string) bool {
	if m == nil {
		return false
	}
	return slices.Contains(m.CoreFiles, path)
}

// InstalledRecord is the per-capsule entry under installed-capsules.
type InstalledRecord struct {
	Version     string   `json:"version" yaml:"version"`
	InstalledAt string   `json:"installedAt" yaml:"installedAt"`
	Files       []string `json:"files" yaml:"files"`
}
