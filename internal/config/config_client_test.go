package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewClientConfig_AppliesDefaults(t *testing.T) {
	cfg := newClientConfig(&StructuredConfig{
		Storage: Storage{DB: DB{DSN: ":memory:"}},
		Adapter: Adapter{HTTPAddress: "http://localhost:8080"},
	})

	assert.Equal(t, DefaultRequestTimeout, cfg.Adapter.RequestTimeout)
	assert.Equal(t, DefaultDrainInterval, cfg.Workers.DrainInterval)
	assert.Equal(t, DefaultSweepInterval, cfg.Workers.SweepInterval)
	assert.Equal(t, ClientSync{
		QueueCapacity:    1000,
		RetryBaseDelay:   time.Second,
		RetryMaxDelay:    30 * time.Second,
		RetryMaxAttempts: 4,
		RetentionDays:    90,
	}, cfg.Sync)
	assert.NoError(t, cfg.validate())
}

func TestNewClientConfig_KeepsExplicitValues(t *testing.T) {
	cfg := newClientConfig(&StructuredConfig{
		App:     App{SessionToken: "tok", Version: "v1"},
		Storage: Storage{DB: DB{DSN: "countme.db"}},
		Adapter: Adapter{HTTPAddress: "http://remote", RequestTimeout: time.Second},
		Sync:    Sync{RetentionDays: 7, QueueCapacity: 5},
		Log:     Log{FilePath: "client.log"},
	})

	assert.Equal(t, "tok", cfg.App.SessionToken)
	assert.Equal(t, time.Second, cfg.Adapter.RequestTimeout)
	assert.Equal(t, 7, cfg.Sync.RetentionDays)
	assert.Equal(t, 5, cfg.Sync.QueueCapacity)
	assert.Equal(t, "client.log", cfg.LogFilePath)
}

func TestClientConfig_Validate(t *testing.T) {
	valid := func() *ClientConfig {
		return newClientConfig(&StructuredConfig{
			Storage: Storage{DB: DB{DSN: "countme.db"}},
			Adapter: Adapter{HTTPAddress: "http://localhost:8080"},
		})
	}

	tests := []struct {
		name    string
		mutate  func(*ClientConfig)
		wantErr error
	}{
		{name: "valid", mutate: func(*ClientConfig) {}},
		{name: "empty dsn", mutate: func(c *ClientConfig) { c.Storage.DB.DSN = "" }, wantErr: ErrInvalidStorageConfigs},
		{name: "no adapter address", mutate: func(c *ClientConfig) { c.Adapter.HTTPAddress = "" }, wantErr: ErrInvalidAdapterConfigs},
		{name: "negative capacity", mutate: func(c *ClientConfig) { c.Sync.QueueCapacity = -1 }, wantErr: ErrInvalidSyncConfigs},
		{name: "max below base", mutate: func(c *ClientConfig) { c.Sync.RetryMaxDelay = time.Millisecond }, wantErr: ErrInvalidSyncConfigs},
		{name: "negative drain interval", mutate: func(c *ClientConfig) { c.Workers.DrainInterval = -time.Second }, wantErr: ErrInvalidSyncConfigs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestServerConfig_Validate(t *testing.T) {
	cfg := newServerConfig(&StructuredConfig{
		App:    App{TokenSignKey: "secret", TokenIssuer: "countme"},
		Server: Server{HTTPAddress: "localhost:8080"},
	})
	assert.NoError(t, cfg.validate())
	assert.Equal(t, DefaultRequestTimeout, cfg.Server.RequestTimeout)
	assert.Equal(t, 24*time.Hour, cfg.App.TokenDuration)
	assert.Empty(t, cfg.DSN)

	cfg.App.TokenSignKey = ""
	assert.ErrorIs(t, cfg.validate(), ErrInvalidAppConfigs)

	cfg.Server.HTTPAddress = ""
	assert.ErrorIs(t, cfg.validate(), ErrInvalidServerConfigs)
}
