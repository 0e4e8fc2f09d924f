// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"
	"time"
)

// ServerApp holds token and version settings of the reference backend.
type ServerApp struct {
	TokenSignKey  string
	TokenIssuer   string
	TokenDuration time.Duration
	Version       string
}

// ServerConfig is the configuration of the reference remote backend.
type ServerConfig struct {
	App    ServerApp
	Server Server
	// DSN is the PostgreSQL connection string. Empty selects the in-memory
	// document repository.
	DSN string
}

// GetServerConfig builds and validates the backend config view.
func GetServerConfig() (*ServerConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	serverCfg := newServerConfig(cfg)
	return serverCfg, serverCfg.validate()
}

func newServerConfig(cfg *StructuredConfig) *ServerConfig {
	serverCfg := &ServerConfig{
		App: ServerApp{
			TokenSignKey:  cfg.App.TokenSignKey,
			TokenIssuer:   cfg.App.TokenIssuer,
			TokenDuration: cfg.App.TokenDuration,
			Version:       cfg.App.Version,
		},
		Server: cfg.Server,
		DSN:    cfg.Storage.DB.DSN,
	}
	setDefault(&serverCfg.Server.RequestTimeout, DefaultRequestTimeout)
	setDefault(&serverCfg.App.TokenDuration, 24*time.Hour)

	return serverCfg
}
