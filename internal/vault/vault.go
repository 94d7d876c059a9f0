// Package vault is the file capability the installer works through.
// Paths are vault-relative and slash separated, as they appear in a manifest.
package vault

import (
	"crypto/rand"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dailyaf/vaultcap/internal/errors"
)

var (
	// ErrExists is returned by Create and CreateFolder when the path is already taken.
	ErrExists = stderrors.New("file already exists")
	// ErrNotExist is returned when the path has nothing at it.
	ErrNotExist = stderrors.New("file does not exist")
)

// Host is the set of vault operations the installer, remover and settings
// store depend on. Implementations must be safe for sequential use; the
// installer never calls a Host concurrently.
type Host interface {
	Exists(path string) bool
	ReadFile(path string) (string, error)
	// Create writes a new file and fails with ErrExists if one is present.
	Create(path, content string) error
	// Modify replaces an existing file and fails with ErrNotExist if none is present.
	Modify(path, content string) error
	CreateFolder(path string) error
	Delete(path string) error
	// Notify surfaces a short user-facing message.
	Notify(msg string)
}

// DirHost is a Host backed by a directory on disk.
type DirHost struct {
	root    string
	notices *log.Logger
}

// NewDirHost returns a host rooted at root. Notices go to the given logger,
// or are dropped when it is nil.
func NewDirHost(root string, notices *log.Logger) (*DirHost, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve vault dir: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault dir %s is not a directory", abs)
	}
	// Containment checks compare resolved paths, so the root must be resolved too.
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve vault dir: %w", err)
	}
	if notices == nil {
		notices = log.New(io.Discard, "", 0)
	}
	return &DirHost{root: abs, notices: notices}, nil
}

// Resolve maps a vault path to an absolute filesystem path.
// Absolute paths, any ".." component and any folder on the way that is a
// symlink leading out of the vault are rejected. The final component is
// left to the O_NOFOLLOW opens.
func (h *DirHost) Resolve(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", errors.NewInvalidRequest("path is required")
	}
	if containsTraversal(p) {
		return "", errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}
	if strings.HasPrefix(p, "/") || filepath.IsAbs(p) || filepath.VolumeName(p) != "" {
		return "", errors.NewInvalidRequest("path must be relative to the vault")
	}
	full := filepath.Join(h.root, filepath.FromSlash(p))
	if full == h.root {
		return "", errors.NewInvalidRequest("path must name a file inside the vault")
	}
	if err := h.checkParents(full); err != nil {
		return "", err
	}
	return full, nil
}

// checkParents resolves the deepest existing folder above full and requires
// it to sit inside the root. A dangling symlink on the way is rejected.
// A folder swapped for a symlink after this check is not caught.
func (h *DirHost) checkParents(full string) error {
	dir := filepath.Dir(full)
	for {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			if !within(h.root, resolved) {
				return errors.NewInvalidRequest("path leaves the vault through a symlinked folder")
			}
			return nil
		}
		if !stderrors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("resolve %s: %w", dir, err)
		}
		if _, lerr := os.Lstat(dir); lerr == nil {
			return errors.NewInvalidRequest("path goes through a dangling symlink")
		}
		parent := filepath.Dir(dir)
		if dir == h.root || parent == dir {
			return nil
		}
		dir = parent
	}
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Exists reports whether anything is present at p.
func (h *DirHost) Exists(p string) bool {
	full, err := h.Resolve(p)
	if err != nil {
		return false
	}
	_, err = os.Lstat(full)
	return err == nil
}

// ReadFile returns the content of p.
func (h *DirHost) ReadFile(p string) (string, error) {
	full, err := h.Resolve(p)
	if err != nil {
		return "", err
	}
	f, err := openFileNoFollowRead(full)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", p, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", p, err)
	}
	return string(data), nil
}

// Create writes content to a new file at p. The parent folder must exist.
func (h *DirHost) Create(p, content string) error {
	full, err := h.Resolve(p)
	if err != nil {
		return err
	}
	f, err := openFileNoFollow(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if stderrors.Is(err, fs.ErrExist) {
			return fmt.Errorf("create %s: %w", p, ErrExists)
		}
		return fmt.Errorf("create %s: %w", p, err)
	}

	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(full)
		return fmt.Errorf("create %s: %w", p, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("create %s: %w", p, err)
	}
	return nil
}

// Modify replaces the content of the existing file at p.
// The new content is written to a temp file beside it and renamed into place,
// so a failed write leaves the original untouched.
func (h *DirHost) Modify(p, content string) error {
	full, err := h.Resolve(p)
	if err != nil {
		return err
	}
	info, err := os.Lstat(full)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("modify %s: %w", p, ErrNotExist)
		}
		return fmt.Errorf("modify %s: %w", p, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("cannot write to symlink")
	}
	if info.IsDir() {
		return errors.NewInvalidRequest(fmt.Sprintf("%s is a folder", p))
	}

	return writeAtomic(full, []byte(content), info.Mode().Perm())
}

// CreateFolder makes a single folder at p.
func (h *DirHost) CreateFolder(p string) error {
	full, err := h.Resolve(p)
	if err != nil {
		return err
	}
	if err := os.Mkdir(full, 0755); err != nil {
		if stderrors.Is(err, fs.ErrExist) {
			return fmt.Errorf("create folder %s: %w", p, ErrExists)
		}
		return fmt.Errorf("create folder %s: %w", p, err)
	}
	return nil
}

// Delete removes the file at p.
func (h *DirHost) Delete(p string) error {
	full, err := h.Resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete %s: %w", p, ErrNotExist)
		}
		return fmt.Errorf("delete %s: %w", p, err)
	}
	return nil
}

// Notify writes msg to the notice log.
func (h *DirHost) Notify(msg string) {
	h.notices.Print(msg)
}

// EnsureDir creates dir and each missing parent, one level at a time.
// Folders that appear concurrently are not an error.
func EnsureDir(h Host, dir string) error {
	dir = strings.Trim(dir, "/")
	if dir == "" || dir == "." || h.Exists(dir) {
		return nil
	}

	current := ""
	for _, part := range strings.Split(dir, "/") {
		if part == "" {
			continue
		}
		if current == "" {
			current = part
		} else {
			current = current + "/" + part
		}
		if h.Exists(current) {
			continue
		}
		if err := h.CreateFolder(current); err != nil && !stderrors.Is(err, ErrExists) {
			return err
		}
	}
	return nil
}

// Dir returns the folder part of a vault path, or "" for a top-level file.
func Dir(p string) string {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	return p[:i]
}

// Base returns the last element of a vault path.
func Base(p string) string {
	return p[strings.LastIndex(p, "/")+1:]
}

// writeAtomic writes data to a temp file next to full and renames it over full.
func writeAtomic(full string, data []byte, perm os.FileMode) error {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return fmt.Errorf("generate temp file name: %w", err)
	}
	tempPath := full + "." + hex.EncodeToString(randBytes) + ".tmp"

	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		return err
	}

	// Close before rename (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	file = nil

	if err := os.Rename(tempPath, full); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(full), err)
	}

	success = true
	return nil
}

// containsTraversal checks if path contains ".." directory traversal.
func containsTraversal(path string) bool {
	for _, part := range strings.Split(path, "/") {
		if part == ".." {
			return true
		}
	}
	// Also check native separators on platforms where they differ
	if filepath.Separator != '/' {
		for _, part := range strings.Split(path, string(filepath.Separator)) {
			if part == ".." {
				return true
			}
		}
	}
	return false
}
