package capsule

// InstallState is a catalog entry's relation to the vault.
type InstallState string

const (
	StateAvailable       InstallState = "available"
	StateInstalled       InstallState = "installed"
	StateUpdateAvailable InstallState = "update-available"
)

// Summary represents a catalog capsule without its file list.
// Used for browse operations (catalog, outdated) to reduce data transfer.
type Summary struct {
	// ID is the capsule id from the manifest
	ID string `json:"id"`

	// Name is the display name (falls back to the id)
	Name string `json:"name"`

	// Icon is an optional emoji or short label
	Icon string `json:"icon,omitempty"`

	// Description is the catalog blurb, markdown allowed
	Description string `json:"description,omitempty"`

	// Source groups capsules for filtering (e.g., "core", "community")
	Source string `json:"source,omitempty"`

	// Version is the version currently published in the manifest
	Version string `json:"version"`

	// InstalledVersion is the version recorded in settings, empty if not installed
	InstalledVersion string `json:"installed_version,omitempty"`

	// State is available, installed or update-available
	State InstallState `json:"state"`

	// Dependencies is the requires check against the installed set
	Dependencies DependencyCheck `json:"dependencies"`

	// Requires lists the capsule ids this one depends on
	Requires []string `json:"requires,omitempty"`

	// FileCount is the number of installable (non-comment) files
	FileCount int `json:"file_count"`

	// ActivityCount is the number of declared activities
	ActivityCount int `json:"activity_count"`

	// WidgetCount is the number of declared widgets
	WidgetCount int `json:"widget_count"`
}

// Summarize builds the catalog view of c. installed is nil when c is not installed.
func Summarize(c *Capsule, installed *InstalledRecord, installedIDs []string) Summary {
	s := Summary{
		ID:            c.ID,
		Name:          c.DisplayName(),
		Icon:          c.Icon,
		Description:   c.Description,
		Source:        c.Source,
		Version:       c.Version,
		State:         StateAvailable,
		Dependencies:  CheckDependencies(c, installedIDs),
		Requires:      c.Requires,
		FileCount:     len(c.InstallableFiles()),
		ActivityCount: len(c.Activities),
		WidgetCount:   len(c.Widgets),
	}
	if installed != nil {
		s.InstalledVersion = installed.Version
		s.State = StateInstalled
		if IsNewer(installed.Version, c.Version) {
			s.State = StateUpdateAvailable
		}
	}
	return s
}
