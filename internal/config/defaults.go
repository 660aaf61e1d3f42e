package config

const (
	defaultDataDir    = "~/.local/share/minutebook"
	defaultArchiveDir = "~/.local/share/minutebook/archive"
	defaultLogDir     = "~/.local/share/minutebook/logs"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultRequestTimeout = 30
	defaultRetryAttempts  = 3

	defaultMinConfidence   = 0.82
	defaultAmbiguityMargin = 0.05

	defaultMaxParallel = 2

	defaultEmbeddingBatchSize = 64

	defaultDaemonSchedule = "0 3 * * *"
	defaultMetricsBind    = "127.0.0.1:9436"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			ArchiveDir: defaultArchiveDir,
			LogDir:     defaultLogDir,
		},
		Portal: Portal{
			RequestTimeout: defaultRequestTimeout,
		},
		Video: Video{
			RequestTimeout: defaultRequestTimeout,
		},
		Extraction: Extraction{
			RequestTimeout: defaultRequestTimeout * 2,
			RetryAttempts:  defaultRetryAttempts,
		},
		Transcription: Transcription{
			RequestTimeout: defaultRequestTimeout * 4,
			RetryAttempts:  defaultRetryAttempts,
		},
		Embeddings: Embeddings{
			Enabled:        true,
			RequestTimeout: defaultRequestTimeout * 2,
			BatchSize:      defaultEmbeddingBatchSize,
		},
		Matching: Matching{
			MinConfidence:   defaultMinConfidence,
			AmbiguityMargin: defaultAmbiguityMargin,
		},
		Pipeline: Pipeline{
			MaxParallel: defaultMaxParallel,
		},
		Daemon: Daemon{
			Schedule:    defaultDaemonSchedule,
			MetricsBind: defaultMetricsBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
