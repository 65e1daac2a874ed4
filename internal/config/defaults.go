package config

const (
	defaultStateDir          = "~/.local/share/crate"
	defaultLibraryDir        = "~/.local/share/crate/uploads"
	defaultLogDir            = "~/.local/share/crate/logs"
	defaultAPIBind           = "127.0.0.1:7613"
	defaultMaxUploadMB       = 100
	defaultRemoteTimeout     = 30
	defaultUploadPrefix      = "/uploads"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultCoverArtEndpoint  = "https://image.pollinations.ai"
	defaultCoverArtTimeout   = 45
	defaultCoverArtCacheSize = 128
	defaultNotifyTimeout     = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Bind: defaultAPIBind,
		},
		Paths: Paths{
			StateDir:   defaultStateDir,
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
		},
		Storage: Storage{
			RemoteTimeout: defaultRemoteTimeout,
			UploadPrefix:  defaultUploadPrefix,
		},
		Ingest: Ingest{
			MaxUploadMB:    defaultMaxUploadMB,
			FullValidation: true,
		},
		CoverArt: CoverArt{
			Enabled:   true,
			Endpoint:  defaultCoverArtEndpoint,
			Timeout:   defaultCoverArtTimeout,
			CacheSize: defaultCoverArtCacheSize,
		},
		Reconcile: Reconcile{
			IntervalMinutes: 0,
			Apply:           false,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
