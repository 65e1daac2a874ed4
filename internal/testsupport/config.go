package testsupport

import (
	"path/filepath"
	"testing"

	"crate/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LibraryDir = filepath.Join(base, "uploads")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Server.Bind = "127.0.0.1:0"
	cfgVal.CoverArt.Enabled = false
	cfgVal.Reconcile.IntervalMinutes = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithRemoteTier fills in remote storage settings pointing at the given
// endpoint, so the tiered writer treats the remote tier as configured.
func WithRemoteTier(endpoint, bucket string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.RemoteEndpoint = endpoint
		b.cfg.Storage.RemoteBucket = bucket
		b.cfg.Storage.RemoteKeyID = "test-key"
		b.cfg.Storage.RemoteSecret = "test-secret"
	}
}

// WithMaxUploadMB overrides the upload ceiling on the test config.
func WithMaxUploadMB(mb int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ingest.MaxUploadMB = mb
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
