package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DirName is the name of both the global (~/.vaultcap) and per-vault (.vaultcap) config directories.
const DirName = ".vaultcap"

// Source kinds for fetching the capsule catalog.
const (
	SourceHTTP = "http"
	SourceS3   = "s3"
)

// Config holds application configuration.
type Config struct {
	// VaultDir is the root of the notes vault capsules are installed into.
	// Relative paths are resolved against the working directory.
	VaultDir string `json:"vault_dir,omitempty"`

	// SettingsPath is the vault-relative path of the settings document.
	SettingsPath string `json:"settings_path,omitempty"`

	// BackupDir is the vault-relative folder that receives copies of overwritten files.
	BackupDir string `json:"backup_dir,omitempty"`

	// Source selects where the manifest and capsule files come from: "http" or "s3".
	Source string `json:"source,omitempty"`

	// ManifestURL is the catalog location for the http source.
	ManifestURL string `json:"manifest_url,omitempty"`

	// RawBaseURL is prefixed to each file's src for the http source.
	RawBaseURL string `json:"raw_base_url,omitempty"`

	// HTTPTimeoutSeconds bounds each remote request. 0 means no client timeout.
	HTTPTimeoutSeconds int `json:"http_timeout_seconds,omitempty"`

	// S3Bucket, S3Prefix, S3Region and S3Endpoint configure the s3 source.
	// The manifest lives at <prefix><S3ManifestKey>, files at <prefix><src>.
	S3Bucket      string `json:"s3_bucket,omitempty"`
	S3Prefix      string `json:"s3_prefix,omitempty"`
	S3Region      string `json:"s3_region,omitempty"`
	S3Endpoint    string `json:"s3_endpoint,omitempty"`
	S3ManifestKey string `json:"s3_manifest_key,omitempty"`

	// DBMaxOpenConns limits the maximum number of open journal connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle journal connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// Known types: "capsule", "module", "activity".
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		VaultDir:      ".",
		SettingsPath:  "System/Settings.md",
		BackupDir:     "System/Backups",
		Source:        SourceHTTP,
		ManifestURL:   "https://raw.githubusercontent.com/BigSpoon33/Vault-Capsules/main/capsule-manifest.json",
		RawBaseURL:    "https://raw.githubusercontent.com/BigSpoon33/Vault-Capsules/main",
		S3Region:      "us-east-1",
		S3ManifestKey: "capsule-manifest.json",
	}
}

// HTTPTimeout returns the configured request timeout (0 = none).
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.vaultcap.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.vaultcap) and vault (.vaultcap) directories.
// The vault config is found by walking upward from startDir to find the nearest .vaultcap/config.json.
// Vault config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repoConfigPath := FindRepoConfig(startDir)
	repo, err := loadFileRaw(repoConfigPath)
	if err != nil {
		return nil, err
	}

	// Apply defaults, then global, then vault
	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .vaultcap/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, DirName, "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		VaultDir:      pickString(base.VaultDir, overlay.VaultDir),
		SettingsPath:  pickString(base.SettingsPath, overlay.SettingsPath),
		BackupDir:     pickString(base.BackupDir, overlay.BackupDir),
		Source:        pickString(base.Source, overlay.Source),
		ManifestURL:   pickString(base.ManifestURL, overlay.ManifestURL),
		RawBaseURL:    pickString(base.RawBaseURL, overlay.RawBaseURL),
		S3Bucket:      pickString(base.S3Bucket, overlay.S3Bucket),
		S3Prefix:      pickString(base.S3Prefix, overlay.S3Prefix),
		S3Region:      pickString(base.S3Region, overlay.S3Region),
		S3Endpoint:    pickString(base.S3Endpoint, overlay.S3Endpoint),
		S3ManifestKey: pickString(base.S3ManifestKey, overlay.S3ManifestKey),
	}

	// Scalars: overlay wins if non-zero, else base
	result.HTTPTimeoutSeconds = pickInt(base.HTTPTimeoutSeconds, overlay.HTTPTimeoutSeconds)
	result.DBMaxOpenConns = pickInt(base.DBMaxOpenConns, overlay.DBMaxOpenConns)
	result.DBMaxIdleConns = pickInt(base.DBMaxIdleConns, overlay.DBMaxIdleConns)

	// Arrays: merge and deduplicate
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func pickString(base, overlay string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

func pickInt(base, overlay int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
