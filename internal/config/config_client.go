package config

import (
	"fmt"
	"time"
)

// Client defaults applied to fields no source has set.
const (
	DefaultDrainInterval    = 30 * time.Second
	DefaultSweepInterval    = 6 * time.Hour
	DefaultQueueCapacity    = 1000
	DefaultRetryBaseDelay   = time.Second
	DefaultRetryMaxDelay    = 30 * time.Second
	DefaultRetryMaxAttempts = 4
	DefaultRetentionDays    = 90
	DefaultRequestTimeout   = 15 * time.Second
)

// ClientApp holds client-side application settings.
type ClientApp struct {
	// SessionToken signs the client in at startup when non-empty.
	SessionToken string
	Version      string
}

// ClientAdapter holds network settings used by the client transport layer.
type ClientAdapter struct {
	// HTTPAddress is the base URL of the remote backend.
	HTTPAddress string
	// RequestTimeout is the default timeout for outbound client requests.
	RequestTimeout time.Duration
}

// ClientDB contains local database connection settings for the client.
type ClientDB struct {
	// DSN is the SQLite file path. ":memory:" keeps everything in memory and
	// loses it on exit.
	DSN string
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	DB ClientDB
}

// ClientWorkers contains client background worker settings.
type ClientWorkers struct {
	DrainInterval time.Duration
	SweepInterval time.Duration
}

// ClientSync contains sync engine tuning.
type ClientSync struct {
	QueueCapacity    int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	RetryMaxAttempts int
	RetentionDays    int
}

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	App     ClientApp
	Adapter ClientAdapter
	Storage ClientStorage
	Workers ClientWorkers
	Sync    ClientSync
	// LogFilePath is the rotated log file; empty means stderr.
	LogFilePath string
}

// GetClientConfig builds and validates a client-specific config view from the
// merged structured configuration.
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := newClientConfig(cfg)
	return clientCfg, clientCfg.validate()
}

func newClientConfig(cfg *StructuredConfig) *ClientConfig {
	clientCfg := &ClientConfig{
		App: ClientApp{
			SessionToken: cfg.App.SessionToken,
			Version:      cfg.App.Version,
		},
		Adapter: ClientAdapter{
			HTTPAddress:    cfg.Adapter.HTTPAddress,
			RequestTimeout: cfg.Adapter.RequestTimeout,
		},
		Storage: ClientStorage{
			DB: ClientDB{DSN: cfg.Storage.DB.DSN},
		},
		Workers: ClientWorkers{
			DrainInterval: cfg.Workers.DrainInterval,
			SweepInterval: cfg.Workers.SweepInterval,
		},
		Sync: ClientSync{
			QueueCapacity:    cfg.Sync.QueueCapacity,
			RetryBaseDelay:   cfg.Sync.RetryBaseDelay,
			RetryMaxDelay:    cfg.Sync.RetryMaxDelay,
			RetryMaxAttempts: cfg.Sync.RetryMaxAttempts,
			RetentionDays:    cfg.Sync.RetentionDays,
		},
		LogFilePath: cfg.Log.FilePath,
	}
	clientCfg.applyDefaults()

	return clientCfg
}

func (cfg *ClientConfig) applyDefaults() {
	setDefault(&cfg.Adapter.RequestTimeout, DefaultRequestTimeout)
	setDefault(&cfg.Workers.DrainInterval, DefaultDrainInterval)
	setDefault(&cfg.Workers.SweepInterval, DefaultSweepInterval)
	setDefault(&cfg.Sync.QueueCapacity, DefaultQueueCapacity)
	setDefault(&cfg.Sync.RetryBaseDelay, DefaultRetryBaseDelay)
	setDefault(&cfg.Sync.RetryMaxDelay, DefaultRetryMaxDelay)
	setDefault(&cfg.Sync.RetryMaxAttempts, DefaultRetryMaxAttempts)
	setDefault(&cfg.Sync.RetentionDays, DefaultRetentionDays)
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}
