package settings

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/dailyaf/vaultcap/internal/capsule"
	"github.com/dailyaf/vaultcap/internal/errors"
	"github.com/dailyaf/vaultcap/internal/vault"
)

const sampleDoc = `---
theme: midnight
installed-capsules:
  core-af:
    version: 2.0.0
    installedAt: "2026-01-02T03:04:05.000Z"
    files:
      - System/Scripts/Core/dc-themeProvider.jsx
  active-af:
    version: 1.2.0
    installedAt: "2026-01-03T03:04:05.000Z"
    files: []
installed-modules:
  - id: morning
    label: Morning
    icon: "🌅"
    widget: dc-sleepTracker
  - id: activities
    label: Activities
    widget: dc-activityLogger
activities:
  - id: walk
    field: walk
    type: boolean
water-goal: 3000 # ml per day
---
# Settings

Body text stays.
`

func TestParse(t *testing.T) {
	s, err := Parse(sampleDoc)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	ids := s.InstalledIDs()
	if len(ids) != 2 || ids[0] != "core-af" || ids[1] != "active-af" {
		t.Errorf("InstalledIDs() = %v, want [core-af active-af]", ids)
	}
	rec, ok := s.Installed.Get("core-af")
	if !ok || rec.Version != "2.0.0" || len(rec.Files) != 1 {
		t.Errorf("core-af record = %+v", rec)
	}
	if rec.InstalledAt != "2026-01-02T03:04:05.000Z" {
		t.Errorf("InstalledAt = %q", rec.InstalledAt)
	}
	if len(s.Modules) != 2 || s.Modules[0].Widget != "dc-sleepTracker" {
		t.Errorf("Modules = %+v", s.Modules)
	}
	if len(s.Activities) != 1 || s.Activities[0].Type != capsule.ActivityBoolean {
		t.Errorf("Activities = %+v", s.Activities)
	}

	keys := frontmatterKeys(s)
	want := []string{"theme", "installed-capsules", "installed-modules", "activities", "water-goal"}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Errorf("keys = %v, want %v", keys, want)
	}

	var goal int
	if n := s.lookup("water-goal"); n == nil || n.Decode(&goal) != nil || goal != 3000 {
		t.Errorf("water-goal = %d, want 3000", goal)
	}
}

func frontmatterKeys(s *Settings) []string {
	var keys []string
	for i := 0; i+1 < len(s.root.Content); i += 2 {
		keys = append(keys, s.root.Content[i].Value)
	}
	return keys
}

func TestParse_CRLF(t *testing.T) {
	doc := "---\r\ninstalled-capsules:\r\n  water-tracker:\r\n    version: 1.0.0\r\n    files:\r\n      - widgets/water.js\r\ntheme: dark\r\n---\r\n# Settings\r\n"

	s, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if ids := s.InstalledIDs(); len(ids) != 1 || ids[0] != "water-tracker" {
		t.Fatalf("InstalledIDs() = %v, want [water-tracker]", ids)
	}

	out, err := s.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if n := strings.Count(out, "---\r\n"); n != 2 {
		t.Errorf("Render() has %d fences, want 2:\n%q", n, out)
	}
	if strings.Contains(strings.ReplaceAll(out, "\r\n", ""), "\n") {
		t.Errorf("Render() mixed line endings: %q", out)
	}
	if !strings.Contains(out, "theme: dark\r\n") || !strings.HasSuffix(out, "---\r\n# Settings\r\n") {
		t.Errorf("Render() = %q", out)
	}

	again, err := Parse(out)
	if err != nil || !again.Installed.Has("water-tracker") {
		t.Errorf("re-Parse() lost record: %v", err)
	}
}

func TestParse_EmptyBlock(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"with body", "---\n---\n# Settings\n", "\n---\n# Settings\n"},
		{"no body", "---\n---", "\n---\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse(tt.doc)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			out, err := s.Render()
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if n := strings.Count(out, "---"); n != 2 {
				t.Errorf("Render() has %d fences, want 2: %q", n, out)
			}
			if !strings.HasSuffix(out, tt.want) {
				t.Errorf("Render() = %q, want suffix %q", out, tt.want)
			}
		})
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	s, err := Parse("# Just a note\n")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if s.Installed.Len() != 0 || len(s.Modules) != 0 || len(s.Activities) != 0 {
		t.Error("expected empty settings")
	}

	out, err := s.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.HasPrefix(out, "---\n") || !strings.HasSuffix(out, "\n---\n# Just a note\n") {
		t.Errorf("Render() = %q", out)
	}
}

func TestParse_EmptyKeys(t *testing.T) {
	s, err := Parse("---\ninstalled-capsules:\ninstalled-modules:\nactivities:\n---\n")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if s.Installed.Len() != 0 || s.Modules == nil || s.Activities == nil {
		t.Errorf("null keys should decode as empty, got %+v", s)
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad yaml", "---\n: : :\n  - [\n---\n"},
		{"frontmatter is a list", "---\n- a\n- b\n---\n"},
		{"installed-capsules is a list", "---\ninstalled-capsules:\n  - a\n---\n"},
		{"unclosed", "---\ninstalled-capsules:\n  a:\n    version: 1.0.0\n"},
		{"fence not on its own line", "---\ntheme: dark\n---# Settings\n"},
		{"lone fence", "---"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.doc); err == nil {
				t.Error("Parse() expected error")
			}
		})
	}
}

func TestRender_PreservesOtherKeysAndBody(t *testing.T) {
	s, err := Parse(sampleDoc)
	if err != nil {
		t.Fatal(err)
	}
	s.Installed.Set("water-tracker", capsule.InstalledRecord{Version: "1.0.0", Files: []string{"widgets/water.js"}})

	out, err := s.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if !strings.Contains(out, "theme: midnight") {
		t.Error("theme key lost")
	}
	if !strings.Contains(out, "water-goal: 3000 # ml per day") {
		t.Error("water-goal key or its comment lost")
	}
	if !strings.HasSuffix(out, "---\n# Settings\n\nBody text stays.\n") {
		t.Errorf("body not preserved:\n%s", out)
	}

	again, err := Parse(out)
	if err != nil {
		t.Fatalf("re-Parse() error = %v", err)
	}
	ids := again.InstalledIDs()
	if len(ids) != 3 || ids[2] != "water-tracker" {
		t.Errorf("InstalledIDs() after render = %v, want water-tracker last", ids)
	}
	if keys := frontmatterKeys(again); strings.Join(keys, ",") != "theme,installed-capsules,installed-modules,activities,water-goal" {
		t.Errorf("key order changed: %v", keys)
	}
}

func TestInstalledSet_Order(t *testing.T) {
	var set InstalledSet
	set.Set("b", capsule.InstalledRecord{Version: "1"})
	set.Set("a", capsule.InstalledRecord{Version: "1"})
	set.Set("c", capsule.InstalledRecord{Version: "1"})
	set.Set("a", capsule.InstalledRecord{Version: "2"}) // replace keeps position

	if got := strings.Join(set.IDs(), ","); got != "b,a,c" {
		t.Errorf("IDs() = %s, want b,a,c", got)
	}
	rec, _ := set.Get("a")
	if rec.Version != "2" {
		t.Errorf("a.Version = %q, want 2", rec.Version)
	}

	if !set.Delete("a") || set.Delete("a") {
		t.Error("Delete() should report presence once")
	}
	if got := strings.Join(set.IDs(), ","); got != "b,c" {
		t.Errorf("IDs() after delete = %s, want b,c", got)
	}
	if set.Has("a") || !set.Has("b") || set.Len() != 2 {
		t.Error("Has/Len inconsistent after delete")
	}

	data, err := json.Marshal(set)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), `{"b":`) {
		t.Errorf("MarshalJSON() = %s, want b first", data)
	}
}

func TestModules(t *testing.T) {
	s, err := Parse(sampleDoc)
	if err != nil {
		t.Fatal(err)
	}

	added := s.AddWidgets([]capsule.Widget{
		{ID: "morning", Label: "Dup"},
		{ID: "water", Label: "Water", Widget: "dc-waterTracker"},
	})
	if added != 1 {
		t.Errorf("AddWidgets() = %d, want 1", added)
	}
	if s.Modules[0].Label != "Morning" {
		t.Error("existing module was overwritten")
	}

	moved, err := s.MoveModule("water", -1)
	if err != nil || !moved {
		t.Fatalf("MoveModule(water, up) = %v, %v", moved, err)
	}
	if s.Modules[1].ID != "water" {
		t.Errorf("order = %v", moduleIDs(s.Modules))
	}

	moved, err = s.MoveModule("morning", -1)
	if err != nil || moved {
		t.Errorf("MoveModule at top edge = %v, %v; want no-op", moved, err)
	}
	if _, err := s.MoveModule("ghost", 1); err == nil {
		t.Error("MoveModule(ghost) expected error")
	}

	s.SetModuleOrder([]string{"activities", "unknown", "activities"})
	if got := strings.Join(moduleIDs(s.Modules), ","); got != "activities,morning,water" {
		t.Errorf("SetModuleOrder() = %s", got)
	}

	if removed := s.RemoveModules([]string{"morning", "nope"}); removed != 1 {
		t.Errorf("RemoveModules() = %d, want 1", removed)
	}
}

func moduleIDs(ms []capsule.Module) []string {
	ids := make([]string, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.ID)
	}
	return ids
}

func newStore(t *testing.T) (*Store, *vault.DirHost) {
	t.Helper()
	h, err := vault.NewDirHost(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return NewStore(h, "System/Settings.md"), h
}

func TestStore_MissingDocument(t *testing.T) {
	store, _ := newStore(t)

	if _, err := store.Load(); !errors.Is(err, errors.ErrSettingsNotFound) {
		t.Errorf("Load() error = %v, want SETTINGS_NOT_FOUND", err)
	}
	_, err := store.Update(func(*Settings) error { return nil })
	if !errors.Is(err, errors.ErrSettingsNotFound) {
		t.Errorf("Update() error = %v, want SETTINGS_NOT_FOUND", err)
	}
}

func TestStore_InitAndUpdate(t *testing.T) {
	store, h := newStore(t)

	created, err := store.Init()
	if err != nil || !created {
		t.Fatalf("Init() = %v, %v", created, err)
	}
	created, err = store.Init()
	if err != nil || created {
		t.Fatalf("second Init() = %v, %v; want false", created, err)
	}

	_, err = store.Update(func(s *Settings) error {
		s.Installed.Set("water-tracker", capsule.InstalledRecord{Version: "1.0.0", Files: []string{"widgets/water.js"}})
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.Installed.Has("water-tracker") {
		t.Error("update not persisted")
	}

	content, _ := h.ReadFile("System/Settings.md")
	if !strings.Contains(content, "Managed by vaultcap.") {
		t.Error("body lost after update")
	}
}

func TestStore_UpdateErrorWritesNothing(t *testing.T) {
	store, h := newStore(t)
	if _, err := store.Init(); err != nil {
		t.Fatal(err)
	}
	before, _ := h.ReadFile("System/Settings.md")

	_, err := store.Update(func(s *Settings) error {
		s.Installed.Set("x", capsule.InstalledRecord{Version: "1"})
		return errors.NewInvalidRequest("nope")
	})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Fatalf("Update() error = %v", err)
	}
	after, _ := h.ReadFile("System/Settings.md")
	if before != after {
		t.Error("document changed despite mutator error")
	}
}

func TestStore_UnreadableFrontmatterWritesNothing(t *testing.T) {
	store, h := newStore(t)
	if err := vault.EnsureDir(h, "System"); err != nil {
		t.Fatal(err)
	}
	doc := "---\ninstalled-capsules:\n  water-tracker:\n    version: 1.0.0\n# no closing fence\n"
	if err := h.Create("System/Settings.md", doc); err != nil {
		t.Fatal(err)
	}

	_, err := store.Update(func(s *Settings) error {
		s.Installed.Set("mood", capsule.InstalledRecord{Version: "1.0.0"})
		return nil
	})
	if !errors.Is(err, errors.ErrInternal) {
		t.Fatalf("Update() error = %v, want INTERNAL", err)
	}
	after, _ := h.ReadFile("System/Settings.md")
	if after != doc {
		t.Errorf("document rewritten:\n%q", after)
	}
}
