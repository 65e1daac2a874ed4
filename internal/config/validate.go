package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateReconcile(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	if strings.TrimSpace(c.Server.Bind) == "" {
		return errors.New("server.bind must be set")
	}
	return nil
}

func (c *Config) validateStorage() error {
	partial := strings.TrimSpace(c.Storage.RemoteEndpoint) != "" ||
		strings.TrimSpace(c.Storage.RemoteBucket) != "" ||
		strings.TrimSpace(c.Storage.RemoteKeyID) != "" ||
		strings.TrimSpace(c.Storage.RemoteSecret) != ""
	if partial && !c.RemoteConfigured() {
		return errors.New("storage: remote_endpoint, remote_bucket, remote_key_id, and remote_secret must all be set to enable the remote tier")
	}
	if c.Storage.EnforceRemote && !c.RemoteConfigured() {
		return errors.New("storage.enforce_remote requires a fully configured remote tier")
	}
	if c.Storage.RemoteTimeout <= 0 {
		return errors.New("storage.remote_timeout must be positive")
	}
	return nil
}

func (c *Config) validateIngest() error {
	if c.Ingest.MaxUploadMB <= 0 {
		return fmt.Errorf("ingest.max_upload_mb must be positive, got %d", c.Ingest.MaxUploadMB)
	}
	return nil
}

func (c *Config) validateReconcile() error {
	if c.Reconcile.IntervalMinutes < 0 {
		return errors.New("reconcile.interval_minutes must not be negative")
	}
	return nil
}
