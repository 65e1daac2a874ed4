package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeStorage()
	c.normalizeCoverArt()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultAPIBind
	}
}

func (c *Config) normalizeStorage() {
	c.Storage.RemoteEndpoint = strings.TrimSuffix(strings.TrimSpace(c.Storage.RemoteEndpoint), "/")
	c.Storage.RemoteBucket = strings.TrimSpace(c.Storage.RemoteBucket)
	c.Storage.RemoteKeyID = strings.TrimSpace(c.Storage.RemoteKeyID)
	c.Storage.RemoteSecret = strings.TrimSpace(c.Storage.RemoteSecret)
	c.Storage.RemotePublicBaseURL = strings.TrimSuffix(strings.TrimSpace(c.Storage.RemotePublicBaseURL), "/")

	if c.Storage.RemoteKeyID == "" {
		if value, ok := os.LookupEnv("CRATE_REMOTE_KEY_ID"); ok {
			c.Storage.RemoteKeyID = strings.TrimSpace(value)
		}
	}
	if c.Storage.RemoteSecret == "" {
		if value, ok := os.LookupEnv("CRATE_REMOTE_SECRET"); ok {
			c.Storage.RemoteSecret = strings.TrimSpace(value)
		}
	}

	if c.Storage.RemoteTimeout <= 0 {
		c.Storage.RemoteTimeout = defaultRemoteTimeout
	}

	prefix := strings.TrimSpace(c.Storage.UploadPrefix)
	if prefix == "" {
		prefix = defaultUploadPrefix
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	c.Storage.UploadPrefix = strings.TrimSuffix(prefix, "/")
}

func (c *Config) normalizeCoverArt() {
	c.CoverArt.Endpoint = strings.TrimSuffix(strings.TrimSpace(c.CoverArt.Endpoint), "/")
	if c.CoverArt.Endpoint == "" {
		c.CoverArt.Endpoint = defaultCoverArtEndpoint
	}
	if c.CoverArt.Timeout <= 0 {
		c.CoverArt.Timeout = defaultCoverArtTimeout
	}
	if c.CoverArt.CacheSize <= 0 {
		c.CoverArt.CacheSize = defaultCoverArtCacheSize
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.TopicURL = strings.TrimSpace(c.Notifications.TopicURL)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
