package capsule

import (
	"strings"
	"testing"

	"github.com/dailyaf/vaultcap/internal/errors"
)

const validManifest = `{
	"capsules": [
		{
			"id": "water-tracker",
			"name": "Water Tracker",
			"version": "1.0.0",
			"source": "core",
			"files": [
				{"_comment": "widgets"},
				{"src": "water/water.js", "dest": "widgets/water.js"}
			],
			"widgets": [{"id": "water", "label": "Water", "widget": "dc-waterTracker"}],
			"activities": [{"id": "water", "field": "water-ml", "goal": 3000, "type": "value"}],
			"coreFileBehavior": "update"
		},
		{
			"id": "kitchen-af",
			"version": "0.3.0-beta",
			"requires": ["core-af"]
		}
	],
	"coreFiles": ["System/Scripts/Core/dc-themeProvider.jsx"]
}`

func TestParseManifest_Valid(t *testing.T) {
	m, err := ParseManifest([]byte(validManifest))
	if err != nil {
		t.Fatalf("ParseManifest() error = %v", err)
	}

	if len(m.Capsules) != 2 {
		t.Fatalf("len(Capsules) = %d, want 2", len(m.Capsules))
	}

	water := m.Find("water-tracker")
	if water == nil {
		t.Fatal("Find(water-tracker) = nil")
	}
	if water.Behavior() != CoreUpdate {
		t.Errorf("Behavior() = %q, want update", water.Behavior())
	}
	if len(water.Files) != 2 || !water.Files[0].IsComment() {
		t.Errorf("Files = %+v, want leading comment entry", water.Files)
	}
	if n := len(water.InstallableFiles()); n != 1 {
		t.Errorf("InstallableFiles() = %d, want 1", n)
	}
	if water.Activities[0].Goal == nil || *water.Activities[0].Goal != 3000 {
		t.Errorf("Goal = %v, want 3000", water.Activities[0].Goal)
	}

	kitchen := m.Find("kitchen-af")
	if kitchen.Behavior() != CoreSkip {
		t.Errorf("default Behavior() = %q, want skip", kitchen.Behavior())
	}
	if kitchen.DisplayName() != "kitchen-af" {
		t.Errorf("DisplayName() = %q, want id fallback", kitchen.DisplayName())
	}

	if !m.IsCoreFile("System/Scripts/Core/dc-themeProvider.jsx") {
		t.Error("IsCoreFile(themeProvider) = false, want true")
	}
	if m.IsCoreFile("widgets/water.js") {
		t.Error("IsCoreFile(widgets/water.js) = true, want false")
	}
	if m.Find("missing") != nil {
		t.Error("Find(missing) != nil")
	}
}

func TestParseManifest_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{
			name:    "not json",
			input:   `{capsules: nope}`,
			wantMsg: "invalid capsule manifest",
		},
		{
			name:    "missing id",
			input:   `{"capsules":[{"version":"1.0.0"}]}`,
			wantMsg: "id is required",
		},
		{
			name:    "missing version",
			input:   `{"capsules":[{"id":"a"}]}`,
			wantMsg: "version is required",
		},
		{
			name:    "duplicate id",
			input:   `{"capsules":[{"id":"a","version":"1"},{"id":"a","version":"2"}]}`,
			wantMsg: "duplicate id",
		},
		{
			name:    "file without dest",
			input:   `{"capsules":[{"id":"a","version":"1","files":[{"src":"x.js"}]}]}`,
			wantMsg: "needs src and dest",
		},
		{
			name:    "dest escapes vault",
			input:   `{"capsules":[{"id":"a","version":"1","files":[{"src":"x.js","dest":"../x.js"}]}]}`,
			wantMsg: "escapes the vault",
		},
		{
			name:    "absolute dest",
			input:   `{"capsules":[{"id":"a","version":"1","files":[{"src":"x.js","dest":"/etc/x.js"}]}]}`,
			wantMsg: "escapes the vault",
		},
		{
			name:    "unknown behavior",
			input:   `{"capsules":[{"id":"a","version":"1","coreFileBehavior":"merge"}]}`,
			wantMsg: "unknown coreFileBehavior",
		},
		{
			name:    "activity without id",
			input:   `{"capsules":[{"id":"a","version":"1","activities":[{"field":"x"}]}]}`,
			wantMsg: "activities[0] id is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.input))
			if err == nil {
				t.Fatal("ParseManifest() expected error")
			}
			if !errors.Is(err, errors.ErrManifestInvalid) {
				t.Errorf("error code = %v, want MANIFEST_INVALID", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want containing %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestIsSafeVaultPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"widgets/water.js", true},
		{".obsidian/snippets/theme.css", true},
		{"System/Settings.md", true},
		{"", false},
		{".", false},
		{"/abs/path", false},
		{"a/../../b", false},
		{"..", false},
		{`a\b`, false},
		{"C:/x", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsSafeVaultPath(tt.path); got != tt.want {
				t.Errorf("IsSafeVaultPath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestCheckDependencies(t *testing.T) {
	c := &Capsule{ID: "kitchen-af", Requires: []string{"core-af", "active-af"}}

	tests := []struct {
		name        string
		installed   []string
		wantOK      bool
		wantMissing []string
	}{
		{name: "none installed", installed: nil, wantOK: false, wantMissing: []string{"core-af", "active-af"}},
		{name: "partially installed", installed: []string{"active-af"}, wantOK: false, wantMissing: []string{"core-af"}},
		{name: "all installed", installed: []string{"active-af", "core-af", "other"}, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckDependencies(c, tt.installed)
			if got.Satisfied != tt.wantOK {
				t.Errorf("Satisfied = %v, want %v", got.Satisfied, tt.wantOK)
			}
			if len(got.Missing) != len(tt.wantMissing) {
				t.Fatalf("Missing = %v, want %v", got.Missing, tt.wantMissing)
			}
			for i := range got.Missing {
				if got.Missing[i] != tt.wantMissing[i] {
					t.Errorf("Missing[%d] = %q, want %q", i, got.Missing[i], tt.wantMissing[i])
				}
			}
		})
	}

	if got := CheckDependencies(&Capsule{ID: "solo"}, nil); !got.Satisfied {
		t.Error("capsule without requires should be satisfied")
	}
}

func TestSummarize(t *testing.T) {
	c := &Capsule{
		ID:         "water-tracker",
		Version:    "1.1.0",
		Files:      []File{{Comment: "x"}, {Src: "a", Dest: "b"}},
		Activities: []Activity{{ID: "water"}},
		Requires:   []string{"core-af"},
	}

	s := Summarize(c, nil, nil)
	if s.State != StateAvailable {
		t.Errorf("State = %q, want available", s.State)
	}
	if s.FileCount != 1 || s.ActivityCount != 1 {
		t.Errorf("FileCount/ActivityCount = %d/%d, want 1/1", s.FileCount, s.ActivityCount)
	}
	if s.Dependencies.Satisfied {
		t.Error("Dependencies.Satisfied = true, want false")
	}

	s = Summarize(c, &InstalledRecord{Version: "1.0.0"}, []string{"core-af", "water-tracker"})
	if s.State != StateUpdateAvailable {
		t.Errorf("State = %q, want update-available", s.State)
	}
	if s.InstalledVersion != "1.0.0" {
		t.Errorf("InstalledVersion = %q, want 1.0.0", s.InstalledVersion)
	}

	s = Summarize(c, &InstalledRecord{Version: "1.1.0"}, []string{"core-af"})
	if s.State != StateInstalled {
		t.Errorf("State = %q, want installed", s.State)
	}
}
