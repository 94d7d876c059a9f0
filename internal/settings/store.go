package settings

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/dailyaf/vaultcap/internal/errors"
	"github.com/dailyaf/vaultcap/internal/vault"
)

// DefaultDocument is written by Init when the vault has no settings note yet.
const DefaultDocument = `---
installed-capsules: {}
installed-modules: []
activities: []
---
# Settings

Managed by vaultcap. Keys other than installed-capsules, installed-modules
and activities are left as you wrote them.
`

// Store performs read-modify-write cycles on the settings document.
// Updates within one process are serialized; separate processes can still race.
type Store struct {
	host vault.Host
	path string
	mu   sync.Mutex
}

// NewStore returns a store for the document at path inside host.
func NewStore(host vault.Host, path string) *Store {
	return &Store{host: host, path: path}
}

// Path returns the vault path of the settings document.
func (s *Store) Path() string {
	return s.path
}

// Load reads and parses the current document.
func (s *Store) Load() (*Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Update reads the document fresh, applies fn and writes the result back.
// If fn returns an error nothing is written.
func (s *Store) Update(fn func(*Settings) error) (*Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}
	if err := fn(st); err != nil {
		return nil, err
	}

	content, err := st.Render()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := s.host.Modify(s.path, content); err != nil {
		if stderrors.Is(err, vault.ErrNotExist) {
			return nil, errors.NewSettingsNotFound(s.path)
		}
		return nil, errors.NewInternal(fmt.Errorf("write settings: %w", err))
	}
	return st, nil
}

// Init creates the settings document if it is missing.
// It reports whether a new document was written.
func (s *Store) Init() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.host.Exists(s.path) {
		return false, nil
	}
	if err := vault.EnsureDir(s.host, vault.Dir(s.path)); err != nil {
		return false, errors.NewInternal(fmt.Errorf("create settings folder: %w", err))
	}
	if err := s.host.Create(s.path, DefaultDocument); err != nil {
		if stderrors.Is(err, vault.ErrExists) {
			return false, nil
		}
		return false, errors.NewInternal(fmt.Errorf("create settings: %w", err))
	}
	return true, nil
}

func (s *Store) load() (*Settings, error) {
	content, err := s.host.ReadFile(s.path)
	if err != nil {
		if stderrors.Is(err, vault.ErrNotExist) {
			return nil, errors.NewSettingsNotFound(s.path)
		}
		return nil, errors.NewInternal(fmt.Errorf("read settings: %w", err))
	}
	st, err := Parse(content)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("%s: %w", s.path, err))
	}
	return st, nil
}
