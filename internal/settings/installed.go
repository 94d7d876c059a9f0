package settings

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/dailyaf/vaultcap/internal/capsule"
)

// InstalledSet is the installed-capsules mapping. It keeps insertion order
// because activities are recomputed in that order.
type InstalledSet struct {
	ids     []string
	records map[string]capsule.InstalledRecord
}

// Get returns the record for id.
func (s *InstalledSet) Get(id string) (capsule.InstalledRecord, bool) {
	r, ok := s.records[id]
	return r, ok
}

// Has reports whether id is installed.
func (s *InstalledSet) Has(id string) bool {
	_, ok := s.records[id]
	return ok
}

// Set stores rec under id. An existing id keeps its position.
func (s *InstalledSet) Set(id string, rec capsule.InstalledRecord) {
	if s.records == nil {
		s.records = make(map[string]capsule.InstalledRecord)
	}
	if _, ok := s.records[id]; !ok {
		s.ids = append(s.ids, id)
	}
	s.records[id] = rec
}

// Delete removes id and reports whether it was present.
func (s *InstalledSet) Delete(id string) bool {
	if _, ok := s.records[id]; !ok {
		return false
	}
	delete(s.records, id)
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i:i], s.ids[i+1:]...)
			break
		}
	}
	return true
}

// IDs returns the installed ids in stored order.
func (s *InstalledSet) IDs() []string {
	return append([]string{}, s.ids...)
}

// Len returns the number of installed capsules.
func (s *InstalledSet) Len() int {
	return len(s.ids)
}

// MarshalYAML writes the set as an ordered mapping.
func (s *InstalledSet) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, id := range s.ids {
		var value yaml.Node
		if err := value.Encode(s.records[id]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: id},
			&value,
		)
	}
	return node, nil
}

// UnmarshalYAML reads an ordered mapping of id to record.
func (s *InstalledSet) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of capsule id to record", value.Line)
	}
	*s = InstalledSet{}
	for i := 0; i+1 < len(value.Content); i += 2 {
		var rec capsule.InstalledRecord
		if err := value.Content[i+1].Decode(&rec); err != nil {
			return fmt.Errorf("%s: %w", value.Content[i].Value, err)
		}
		if rec.Files == nil {
			rec.Files = []string{}
		}
		s.Set(value.Content[i].Value, rec)
	}
	return nil
}

// MarshalJSON writes the set as a JSON object in stored order.
func (s InstalledSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range s.ids {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(s.records[id])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
