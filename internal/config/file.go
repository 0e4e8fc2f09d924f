package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	App struct {
		TokenSignKey  string   `json:"token_sign_key" yaml:"token_sign_key"`
		TokenIssuer   string   `json:"token_issuer" yaml:"token_issuer"`
		TokenDuration Duration `json:"token_duration" yaml:"token_duration"`
		SessionToken  string   `json:"session_token" yaml:"session_token"`
		Version       string   `json:"version" yaml:"version"`
	} `json:"app,omitempty" yaml:"app,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn" yaml:"dsn"`
		} `json:"db,omitempty" yaml:"db,omitempty"`
	} `json:"storage,omitempty" yaml:"storage,omitempty"`

	Server struct {
		HTTPAddress    string   `json:"http_address" yaml:"http_address"`
		RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout"`
	} `json:"server,omitempty" yaml:"server,omitempty"`

	Adapter struct {
		HTTPAddress    string   `json:"http_address" yaml:"http_address"`
		RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout"`
	} `json:"adapter,omitempty" yaml:"adapter,omitempty"`

	Workers struct {
		DrainInterval Duration `json:"drain_interval" yaml:"drain_interval"`
		SweepInterval Duration `json:"sweep_interval" yaml:"sweep_interval"`
	} `json:"workers,omitempty" yaml:"workers,omitempty"`

	Sync struct {
		QueueCapacity    int      `json:"queue_capacity" yaml:"queue_capacity"`
		RetryBaseDelay   Duration `json:"retry_base_delay" yaml:"retry_base_delay"`
		RetryMaxDelay    Duration `json:"retry_max_delay" yaml:"retry_max_delay"`
		RetryMaxAttempts int      `json:"retry_max_attempts" yaml:"retry_max_attempts"`
		RetentionDays    int      `json:"retention_days" yaml:"retention_days"`
	} `json:"sync,omitempty" yaml:"sync,omitempty"`

	Log struct {
		FilePath string `json:"file_path" yaml:"file_path"`
	} `json:"log,omitempty" yaml:"log,omitempty"`
}

func parseFile(path string) (*StructuredConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading a config file: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return nil, fmt.Errorf("error decoding yaml configs: %w", err)
		}
	default:
		if err := json.Unmarshal(raw, &fc); err != nil {
			return nil, fmt.Errorf("error decoding json configs: %w", err)
		}
	}

	cfg := &StructuredConfig{
		App: App{
			TokenSignKey:  fc.App.TokenSignKey,
			TokenIssuer:   fc.App.TokenIssuer,
			TokenDuration: time.Duration(fc.App.TokenDuration),
			SessionToken:  fc.App.SessionToken,
			Version:       fc.App.Version,
		},
		Storage: Storage{
			DB: DB{DSN: fc.Storage.DB.DSN},
		},
		Server: Server{
			HTTPAddress:    fc.Server.HTTPAddress,
			RequestTimeout: time.Duration(fc.Server.RequestTimeout),
		},
		Adapter: Adapter{
			HTTPAddress:    fc.Adapter.HTTPAddress,
			RequestTimeout: time.Duration(fc.Adapter.RequestTimeout),
		},
		Workers: Workers{
			DrainInterval: time.Duration(fc.Workers.DrainInterval),
			SweepInterval: time.Duration(fc.Workers.SweepInterval),
		},
		Sync: Sync{
			QueueCapacity:    fc.Sync.QueueCapacity,
			RetryBaseDelay:   time.Duration(fc.Sync.RetryBaseDelay),
			RetryMaxDelay:    time.Duration(fc.Sync.RetryMaxDelay),
			RetryMaxAttempts: fc.Sync.RetryMaxAttempts,
			RetentionDays:    fc.Sync.RetentionDays,
		},
		Log: Log{FilePath: fc.Log.FilePath},
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that decodes from strings like
// "1h", "30s" or from integer nanoseconds, in both JSON and YAML.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var n int64
	if err := node.Decode(&n); err == nil {
		*d = Duration(time.Duration(n))
		return nil
	}

	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	tmp, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(tmp)
	return nil
}
