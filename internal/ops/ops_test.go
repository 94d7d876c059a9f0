package ops

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dailyaf/vaultcap/internal/capsule"
	"github.com/dailyaf/vaultcap/internal/config"
	"github.com/dailyaf/vaultcap/internal/db"
	"github.com/dailyaf/vaultcap/internal/errors"
	"github.com/dailyaf/vaultcap/internal/remote"
	"github.com/dailyaf/vaultcap/internal/settings"
	"github.com/dailyaf/vaultcap/internal/vault"
)

const themeCore = "System/Scripts/Core/dc-themeProvider.jsx"

var testNow = time.Date(2024, 1, 2, 3, 4, 5, 678_000_000, time.UTC)

// fakeSource serves a mutable in-memory manifest and file set.
type fakeSource struct {
	mu       sync.Mutex
	manifest capsule.Manifest
	files    map[string]string
	down     bool
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) FetchManifest(ctx context.Context) (*capsule.Manifest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, errors.NewNetwork("fake://manifest", nil)
	}
	m := f.manifest
	return &m, nil
}

func (f *fakeSource) FetchFile(ctx context.Context, src string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.files[src]
	if !ok || f.down {
		return "", errors.NewNetwork("fake://"+src, nil)
	}
	return content, nil
}

func (f *fakeSource) setFile(src, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[src] = content
}

func (f *fakeSource) setVersion(id, version string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.manifest.Capsules {
		if f.manifest.Capsules[i].ID == id {
			f.manifest.Capsules[i].Version = version
		}
	}
}

func floatPtr(v float64) *float64 { return &v }

func testManifest() capsule.Manifest {
	return capsule.Manifest{
		CoreFiles: []string{themeCore},
		Capsules: []capsule.Capsule{
			{
				ID:      "water-tracker",
				Name:    "Water Tracker",
				Version: "1.0.0",
				Source:  "core",
				Files: []capsule.File{
					{Comment: "widget script"},
					{Src: "water/water.js", Dest: "widgets/water.js"},
				},
				Widgets: []capsule.Widget{{ID: "water", Label: "Water", Icon: "💧"}},
				Activities: []capsule.Activity{
					{ID: "water", Name: "Water", Type: capsule.ActivityCount, Goal: floatPtr(8), Unit: "glasses"},
				},
			},
			{
				ID:       "sleep-tracker",
				Name:     "Sleep Tracker",
				Version:  "2.0.0",
				Source:   "community",
				Requires: []string{"water-tracker"},
				Files: []capsule.File{
					{Src: "sleep/sleep.js", Dest: "widgets/sleep.js"},
				},
				Widgets: []capsule.Widget{{ID: "sleep", Label: "Sleep"}, {ID: "water", Label: "Water (sleep)"}},
				Activities: []capsule.Activity{
					{ID: "sleep", Name: "Sleep", Type: capsule.ActivityValue, Unit: "hours"},
					{ID: "water", Name: "Water from sleep", Type: capsule.ActivityBoolean},
				},
			},
			{
				ID:      "theme-pack",
				Version: "1.0.0",
				Source:  "core",
				Files: []capsule.File{
					{Src: "core/theme.jsx", Dest: themeCore},
					{Src: "theme/colors.md", Dest: "System/Themes/colors.md"},
				},
			},
		},
	}
}

type testEnv struct {
	*Env
	source *fakeSource
	host   *vault.DirHost
	events []Event
}

// newTestEnv returns an Env over a fresh vault with an empty settings
// document, a fake catalog and a journal.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	host, err := vault.NewDirHost(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewDirHost() error = %v", err)
	}
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	source := &fakeSource{
		manifest: testManifest(),
		files: map[string]string{
			"water/water.js":  "water v1",
			"sleep/sleep.js":  "sleep v1",
			"core/theme.jsx":  "theme from remote",
			"theme/colors.md": "# Colors",
		},
	}

	cfg := config.DefaultConfig()
	te := &testEnv{source: source, host: host}
	te.Env = &Env{
		DB:       database,
		Config:   cfg,
		Vault:    host,
		Settings: settings.NewStore(host, cfg.SettingsPath),
		Catalog:  remote.NewCatalog(source),
		Now:      func() time.Time { return testNow },
	}
	te.Progress = func(e Event) { te.events = append(te.events, e) }

	if _, err := te.Settings.Init(); err != nil {
		t.Fatalf("Settings.Init() error = %v", err)
	}
	return te
}

func (te *testEnv) read(t *testing.T, path string) string {
	t.Helper()
	content, err := te.host.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", path, err)
	}
	return content
}

func (te *testEnv) settings(t *testing.T) *settings.Settings {
	t.Helper()
	st, err := te.Settings.Load()
	if err != nil {
		t.Fatalf("Settings.Load() error = %v", err)
	}
	return st
}

func TestDetectConflict(t *testing.T) {
	te := newTestEnv(t)
	if err := te.host.Create("note.md", "local"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name         string
		path         string
		incoming     string
		wantConflict bool
		wantReason   string
	}{
		{"missing file", "absent.md", "x", false, ReasonNew},
		{"identical", "note.md", "local", false, ReasonIdentical},
		{"modified", "note.md", "remote!", true, ReasonModified},
		{"unreadable", "System", "x", false, ReasonError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectConflict(te.host, tt.path, tt.incoming)
			if got.HasConflict != tt.wantConflict || got.Reason != tt.wantReason {
				t.Errorf("DetectConflict() = %+v, want conflict=%v reason=%s", got, tt.wantConflict, tt.wantReason)
			}
		})
	}

	got := DetectConflict(te.host, "note.md", "remote!")
	if got.LocalLength != 5 || got.IncomingLength != 7 {
		t.Errorf("lengths = %d/%d, want 5/7", got.LocalLength, got.IncomingLength)
	}
}

func TestBackupPath(t *testing.T) {
	got := BackupPath("System/Backups", "widgets/water.js", testNow)
	want := "System/Backups/widgets_water.js_2024-01-02T03-04-05-678Z"
	if got != want {
		t.Errorf("BackupPath() = %q, want %q", got, want)
	}

	// Non-UTC times are converted first.
	local := testNow.In(time.FixedZone("X", 3600))
	if got := BackupPath("System/Backups/", "a.md", local); got != "System/Backups/a.md_2024-01-02T03-04-05-678Z" {
		t.Errorf("BackupPath(local) = %q", got)
	}
}

func TestBackupFile(t *testing.T) {
	te := newTestEnv(t)
	if err := vault.EnsureDir(te.host, "widgets"); err != nil {
		t.Fatal(err)
	}
	if err := te.host.Create("widgets/water.js", "my edits"); err != nil {
		t.Fatal(err)
	}

	dest := te.BackupFile("widgets/water.js")
	if dest != "System/Backups/widgets_water.js_2024-01-02T03-04-05-678Z" {
		t.Fatalf("BackupFile() = %q", dest)
	}
	if got := te.read(t, dest); got != "my edits" {
		t.Errorf("backup content = %q", got)
	}

	// Same instant again: the name is taken, which is reported as no backup.
	if again := te.BackupFile("widgets/water.js"); again != "" {
		t.Errorf("second BackupFile() = %q, want empty", again)
	}
	// Missing source file is no backup, not a panic.
	if got := te.BackupFile("widgets/none.js"); got != "" {
		t.Errorf("BackupFile(missing) = %q, want empty", got)
	}
}

func TestStatusFromError(t *testing.T) {
	s := StatusFromError(errors.NewNotInstalled("water-tracker"))
	if s.State != StateError || s.Code != errors.ErrNotInstalled {
		t.Errorf("StatusFromError() = %+v", s)
	}
	if !s.Done() {
		t.Error("error status should be done")
	}
	if (Status{State: StateCloning}).Done() {
		t.Error("cloning status should not be done")
	}
}
