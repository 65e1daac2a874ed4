package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains the HTTP API bind configuration.
type Server struct {
	Bind string `toml:"bind"`
}

// Paths contains directory configuration.
type Paths struct {
	StateDir   string `toml:"state_dir"`
	LibraryDir string `toml:"library_dir"`
	LogDir     string `toml:"log_dir"`
}

// Storage contains tiered storage configuration. The remote tier is
// any S3-compatible object store; leaving endpoint or bucket empty
// runs crate in local-only mode.
type Storage struct {
	RemoteEndpoint      string `toml:"remote_endpoint"`
	RemoteBucket        string `toml:"remote_bucket"`
	RemoteKeyID         string `toml:"remote_key_id"`
	RemoteSecret        string `toml:"remote_secret"`
	RemotePublicBaseURL string `toml:"remote_public_base_url"`
	RemoteTimeout       int    `toml:"remote_timeout"`
	EnforceRemote       bool   `toml:"enforce_remote"`
	UploadPrefix        string `toml:"upload_prefix"`
}

// Ingest contains upload pipeline configuration.
type Ingest struct {
	MaxUploadMB    int  `toml:"max_upload_mb"`
	FullValidation bool `toml:"full_validation"`
}

// CoverArt contains configuration for the AI cover art generator.
type CoverArt struct {
	Enabled   bool   `toml:"enabled"`
	Endpoint  string `toml:"endpoint"`
	Timeout   int    `toml:"timeout"`
	CacheSize int    `toml:"cache_size"`
}

// Reconcile contains configuration for the periodic orphan sweep.
type Reconcile struct {
	IntervalMinutes int  `toml:"interval_minutes"`
	Apply           bool `toml:"apply"`
}

// Notifications contains configuration for ntfy-style push
// notifications.
type Notifications struct {
	TopicURL       string `toml:"topic_url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for crate.
//
// Configuration sections by subsystem:
//   - Server: HTTP API bind address
//   - Paths: state, library (local tier root), and log directories
//   - Storage: remote object store credentials and fallback policy
//   - Ingest: upload ceilings and validation depth
//   - CoverArt: AI art generator endpoint and cache
//   - Reconcile: periodic orphan sweep timing
//   - Notifications: ntfy push settings
//   - Logging: log format and level
type Config struct {
	Server        Server        `toml:"server"`
	Paths         Paths         `toml:"paths"`
	Storage       Storage       `toml:"storage"`
	Ingest        Ingest        `toml:"ingest"`
	CoverArt      CoverArt      `toml:"coverart"`
	Reconcile     Reconcile     `toml:"reconcile"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/crate/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("crate.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// LibraryDir is created on a best-effort basis so the daemon can come
// up while external storage for the local tier is temporarily offline.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

// DatabasePath returns the catalog database location under the state directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "crate.db")
}

// LockPath returns the daemon lock file location under the state directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "crated.lock")
}

// MaxUploadBytes returns the upload ceiling in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Ingest.MaxUploadMB) * 1024 * 1024
}

// RemoteConfigured reports whether the remote storage tier has enough
// settings to be attempted at all.
func (c *Config) RemoteConfigured() bool {
	return strings.TrimSpace(c.Storage.RemoteEndpoint) != "" &&
		strings.TrimSpace(c.Storage.RemoteBucket) != "" &&
		strings.TrimSpace(c.Storage.RemoteKeyID) != "" &&
		strings.TrimSpace(c.Storage.RemoteSecret) != ""
}

// RemoteTimeout returns the bounded duration for one remote storage attempt.
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.Storage.RemoteTimeout) * time.Second
}

// CoverArtTimeout returns the bounded duration for one art generation request.
func (c *Config) CoverArtTimeout() time.Duration {
	return time.Duration(c.CoverArt.Timeout) * time.Second
}

// ReconcileInterval returns the sweep cadence; zero disables the sweep.
func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.Reconcile.IntervalMinutes) * time.Minute
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
