// Package settings reads and rewrites the vault's settings document: a
// markdown note whose YAML frontmatter holds the installed capsule records,
// the module bar and the derived activity list alongside keys owned by
// other widgets.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dailyaf/vaultcap/internal/capsule"
)

// Frontmatter keys owned by the installer.
const (
	KeyInstalledCapsules = "installed-capsules"
	KeyInstalledModules  = "installed-modules"
	KeyActivities        = "activities"
)

// The closing fence must end its line. Group 1 is absent for an empty block;
// group 2 marks where the body starts.
var frontmatterRegex = regexp.MustCompile(`^---\n(?:([\s\S]*?)\n)?---(\n|$)`)

// errUnclosedFrontmatter stops a rewrite from stacking a second block on top
// of one that could not be read.
var errUnclosedFrontmatter = errors.New("frontmatter has no closing ---")

// Settings is the decoded frontmatter. Installed, Modules and Activities are
// typed views; every other key is carried through untouched in its original order.
type Settings struct {
	Installed  InstalledSet
	Modules    []capsule.Module
	Activities []capsule.Activity

	root *yaml.Node // mapping node of the whole frontmatter
	body string     // everything after the closing fence
	crlf bool       // document used \r\n line endings
}

// Parse decodes a settings document. A document without frontmatter yields
// empty settings and keeps the whole content as body. A document that opens
// a frontmatter block but never closes it is an error.
func Parse(content string) (*Settings, error) {
	s := &Settings{
		Modules:    []capsule.Module{},
		Activities: []capsule.Activity{},
		root:       &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"},
	}

	if strings.Contains(content, "\r\n") {
		s.crlf = true
		content = strings.ReplaceAll(content, "\r\n", "\n")
	}

	loc := frontmatterRegex.FindStringSubmatchIndex(content)
	if loc == nil {
		if content == "---" || strings.HasPrefix(content, "---\n") {
			return nil, errUnclosedFrontmatter
		}
		s.body = "\n" + content
		return s, nil
	}
	var raw string
	if loc[2] >= 0 {
		raw = content[loc[2]:loc[3]]
	}
	s.body = content[loc[4]:]

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) == 1 {
		switch doc.Content[0].Kind {
		case yaml.MappingNode:
			s.root = doc.Content[0]
		case yaml.ScalarNode:
			if doc.Content[0].Tag != "!!null" {
				return nil, fmt.Errorf("parse frontmatter: expected a mapping")
			}
		default:
			return nil, fmt.Errorf("parse frontmatter: expected a mapping")
		}
	}

	if n := s.lookup(KeyInstalledCapsules); n != nil && !isNull(n) {
		if err := n.Decode(&s.Installed); err != nil {
			return nil, fmt.Errorf("decode %s: %w", KeyInstalledCapsules, err)
		}
	}
	if n := s.lookup(KeyInstalledModules); n != nil && !isNull(n) {
		if err := n.Decode(&s.Modules); err != nil {
			return nil, fmt.Errorf("decode %s: %w", KeyInstalledModules, err)
		}
	}
	if n := s.lookup(KeyActivities); n != nil && !isNull(n) {
		if err := n.Decode(&s.Activities); err != nil {
			return nil, fmt.Errorf("decode %s: %w", KeyActivities, err)
		}
	}
	if s.Modules == nil {
		s.Modules = []capsule.Module{}
	}
	if s.Activities == nil {
		s.Activities = []capsule.Activity{}
	}

	return s, nil
}

// Render serializes the settings back into a document. The installer keys are
// always written; other keys keep their position and formatting.
func (s *Settings) Render() (string, error) {
	if err := s.set(KeyInstalledCapsules, &s.Installed); err != nil {
		return "", err
	}
	modules := s.Modules
	if modules == nil {
		modules = []capsule.Module{}
	}
	if err := s.set(KeyInstalledModules, modules); err != nil {
		return "", err
	}
	activities := s.Activities
	if activities == nil {
		activities = []capsule.Activity{}
	}
	if err := s.set(KeyActivities, activities); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s.root); err != nil {
		return "", fmt.Errorf("encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode frontmatter: %w", err)
	}

	var out strings.Builder
	out.WriteString("---\n")
	out.WriteString(strings.TrimRight(buf.String(), "\n"))
	out.WriteString("\n---")
	body := s.body
	if body == "" {
		body = "\n"
	}
	out.WriteString(body)
	if s.crlf {
		return strings.ReplaceAll(out.String(), "\n", "\r\n"), nil
	}
	return out.String(), nil
}

// InstalledIDs returns installed capsule ids in stored order.
func (s *Settings) InstalledIDs() []string {
	return s.Installed.IDs()
}

// AddWidgets appends a module for each widget whose id is not already present.
// It returns how many were added.
func (s *Settings) AddWidgets(widgets []capsule.Widget) int {
	added := 0
	for _, w := range widgets {
		if s.moduleIndex(w.ID) >= 0 {
			continue
		}
		s.Modules = append(s.Modules, capsule.ModuleFromWidget(w))
		added++
	}
	return added
}

// RemoveModules drops every module whose id is in ids. It returns how many were removed.
func (s *Settings) RemoveModules(ids []string) int {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := make([]capsule.Module, 0, len(s.Modules))
	for _, m := range s.Modules {
		if !drop[m.ID] {
			kept = append(kept, m)
		}
	}
	removed := len(s.Modules) - len(kept)
	s.Modules = kept
	return removed
}

// MoveModule swaps the module with its neighbour. delta is -1 (up) or +1 (down).
// It reports whether anything moved; moving past either edge is a no-op.
func (s *Settings) MoveModule(id string, delta int) (bool, error) {
	i := s.moduleIndex(id)
	if i < 0 {
		return false, fmt.Errorf("module %q is not installed", id)
	}
	j := i + delta
	if j < 0 || j >= len(s.Modules) {
		return false, nil
	}
	s.Modules[i], s.Modules[j] = s.Modules[j], s.Modules[i]
	return true, nil
}

// SetModuleOrder reorders modules to follow ids. Unknown ids are ignored and
// modules missing from ids keep their relative order at the end.
func (s *Settings) SetModuleOrder(ids []string) {
	ordered := make([]capsule.Module, 0, len(s.Modules))
	used := make(map[string]bool, len(s.Modules))
	for _, id := range ids {
		if used[id] {
			continue
		}
		if i := s.moduleIndex(id); i >= 0 {
			ordered = append(ordered, s.Modules[i])
			used[id] = true
		}
	}
	for _, m := range s.Modules {
		if !used[m.ID] {
			ordered = append(ordered, m)
			used[m.ID] = true
		}
	}
	s.Modules = ordered
}

func (s *Settings) moduleIndex(id string) int {
	for i, m := range s.Modules {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (s *Settings) lookup(key string) *yaml.Node {
	for i := 0; i+1 < len(s.root.Content); i += 2 {
		if s.root.Content[i].Value == key {
			return s.root.Content[i+1]
		}
	}
	return nil
}

func (s *Settings) set(key string, v any) error {
	var value yaml.Node
	if err := value.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	for i := 0; i+1 < len(s.root.Content); i += 2 {
		if s.root.Content[i].Value == key {
			s.root.Content[i+1] = &value
			return nil
		}
	}
	s.root.Content = append(s.root.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&value,
	)
	return nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}
