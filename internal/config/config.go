// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container shared by the
// client runtime and the reference backend. It is populated by merging
// environment variables, command-line flags and an optional JSON or YAML file.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds token parameters, the client session token and the version.
	App App `envPrefix:"APP_"`

	// Storage holds the database connection settings.
	Storage Storage `envPrefix:"STORAGE_"`

	// Server holds the listen address and timeout of the reference backend.
	Server Server `envPrefix:"SERVER_"`

	// Adapter holds the remote backend address used by the client.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Workers holds intervals of the client background jobs.
	Workers Workers `envPrefix:"WORKERS_"`

	// Sync holds queue and retry tuning of the sync engine.
	Sync Sync `envPrefix:"SYNC_"`

	// Log holds logging output settings.
	Log Log `envPrefix:"LOG_"`

	// ConfigFilePath is the optional path to a JSON or YAML configuration
	// file. The format is chosen by extension (.yaml/.yml, otherwise JSON).
	// Populated via the CONFIG environment variable or the -c / -config flag.
	ConfigFilePath string `env:"CONFIG"`
}

// Storage groups the configuration for the storage backends.
type Storage struct {
	// DB holds the database connection settings.
	DB DB `envPrefix:"DB_"`
}

// App holds application-level configuration values.
type App struct {
	// TokenSignKey is the secret key used to sign and verify JWT tokens.
	// Env: APP_TOKEN_SIGN_KEY
	TokenSignKey string `env:"TOKEN_SIGN_KEY"`

	// TokenIssuer is the "iss" claim embedded in and required from every JWT.
	// Env: APP_TOKEN_ISSUER
	TokenIssuer string `env:"TOKEN_ISSUER"`

	// TokenDuration specifies how long an issued JWT remains valid.
	// Env: APP_TOKEN_DURATION
	TokenDuration time.Duration `env:"TOKEN_DURATION"`

	// SessionToken is the bearer token the client signs in with at startup.
	// An empty value starts the client signed out.
	// Env: APP_SESSION_TOKEN
	SessionToken string `env:"SESSION_TOKEN"`

	// Version is the semantic version string of the running application.
	// Exposed via the /api/version/ endpoint.
	// Env: APP_VERSION
	Version string `env:"VERSION"`
}

// Server holds network and timeout settings for the reference backend.
type Server struct {
	// HTTPAddress is the TCP address on which the HTTP server listens,
	// in "host:port" format (e.g. "0.0.0.0:8080").
	// Env: SERVER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout is the maximum duration allowed for a single inbound
	// request before the server cancels it.
	// Env: SERVER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// DB holds connection settings for the database backend.
type DB struct {
	// DSN is a PostgreSQL URL on the server side and a SQLite file path (or
	// ":memory:") on the client side. An empty server DSN selects the
	// in-memory document repository.
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI"`
}

// Adapter holds the settings of the client's remote backend adapter.
type Adapter struct {
	// HTTPAddress is the base URL of the remote backend
	// (e.g. "http://localhost:8080").
	// Env: ADAPTER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout bounds every outbound request.
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Workers holds configuration for the client background jobs.
type Workers struct {
	// DrainInterval is the period of the queue drain tick.
	// Env: WORKERS_DRAIN_INTERVAL
	DrainInterval time.Duration `env:"DRAIN_INTERVAL"`

	// SweepInterval is the minimum time between two retention sweeps.
	// Env: WORKERS_SWEEP_INTERVAL
	SweepInterval time.Duration `env:"SWEEP_INTERVAL"`
}

// Sync holds tuning of the operation queue and the retry policy.
type Sync struct {
	QueueCapacity    int           `env:"QUEUE_CAPACITY"`
	RetryBaseDelay   time.Duration `env:"RETRY_BASE_DELAY"`
	RetryMaxDelay    time.Duration `env:"RETRY_MAX_DELAY"`
	RetryMaxAttempts int           `env:"RETRY_MAX_ATTEMPTS"`
	// RetentionDays is how many days of daily logs are kept locally.
	RetentionDays int `env:"RETENTION_DAYS"`
}

// Log holds logging output settings.
type Log struct {
	// FilePath is the rotated log file of the client. Empty means stderr.
	// Env: LOG_FILE_PATH
	FilePath string `env:"FILE_PATH"`
}

// GetStructuredConfig loads and merges the configuration from all available
// sources. The first source providing a non-zero field wins:
//  1. Environment variables
//  2. Command-line flags
//  3. Config file (path resolved from sources 1 and 2)
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withFile().
		build()
}
