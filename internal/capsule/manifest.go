package capsule

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/dailyaf/vaultcap/internal/errors"
)

// ParseManifest decodes and validates a catalog document.
// Any validation problem rejects the whole manifest with MANIFEST_INVALID.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.NewManifestInvalid([]string{err.Error()})
	}
	if problems := Validate(&m); len(problems) > 0 {
		return nil, errors.NewManifestInvalid(problems)
	}
	return &m, nil
}

// Validate returns a human-readable description of every problem in m.
// An empty result means the manifest is usable.
func Validate(m *Manifest) []string {
	var problems []string
	seen := make(map[string]bool, len(m.Capsules))

	for i := range m.Capsules {
		c := &m.Capsules[i]
		label := fmt.Sprintf("capsules[%d]", i)
		if c.ID != "" {
			label = fmt.Sprintf("capsule %q", c.ID)
		}

		if strings.TrimSpace(c.ID) == "" {
			problems = append(problems, label+": id is required")
		} else if seen[c.ID] {
			problems = append(problems, label+": duplicate id")
		}
		seen[c.ID] = true

		if strings.TrimSpace(c.Version) == "" {
			problems = append(problems, label+": version is required")
		}

		switch c.CoreFileBehavior {
		case "", CoreSkip, CoreUpdate:
		default:
			problems = append(problems, fmt.Sprintf("%s: unknown coreFileBehavior %q", label, c.CoreFileBehavior))
		}

		for j, f := range c.Files {
			if f.IsComment() {
				continue
			}
			if f.Src == "" || f.Dest == "" {
				problems = append(problems, fmt.Sprintf("%s: files[%d] needs src and dest", label, j))
				continue
			}
			if !IsSafeVaultPath(f.Dest) {
				problems = append(problems, fmt.Sprintf("%s: files[%d] dest %q escapes the vault", label, j, f.Dest))
			}
		}

		for j, a := range c.Activities {
			if strings.TrimSpace(a.ID) == "" {
				problems = append(problems, fmt.Sprintf("%s: activities[%d] id is required", label, j))
			}
		}
	}

	for _, p := range m.CoreFiles {
		if !IsSafeVaultPath(p) {
			problems = append(problems, fmt.Sprintf("coreFiles: %q escapes the vault", p))
		}
	}

	return problems
}

// IsSafeVaultPath reports whether p is a relative slash path that stays inside the vault.
func IsSafeVaultPath(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return false
	}
	if len(p) >= 2 && p[1] == ':' {
		return false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return false
		}
	}
	return path.Clean(p) != "."
}
