// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

// validate checks the client view. An in-memory DSN is accepted: the client
// then keeps nothing across restarts.
func (cfg *ClientConfig) validate() error {
	if cfg.Storage.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Adapter.HTTPAddress == "" || cfg.Adapter.RequestTimeout <= 0 {
		return ErrInvalidAdapterConfigs
	}

	if cfg.Workers.DrainInterval <= 0 || cfg.Workers.SweepInterval <= 0 {
		return ErrInvalidSyncConfigs
	}

	s := cfg.Sync
	if s.QueueCapacity <= 0 || s.RetryBaseDelay <= 0 || s.RetryMaxDelay < s.RetryBaseDelay ||
		s.RetryMaxAttempts <= 0 || s.RetentionDays <= 0 {
		return ErrInvalidSyncConfigs
	}

	return nil
}

func (cfg *ServerConfig) validate() error {
	if cfg.Server.HTTPAddress == "" {
		return ErrInvalidServerConfigs
	}

	if cfg.App.TokenSignKey == "" || cfg.App.TokenIssuer == "" {
		return ErrInvalidAppConfigs
	}

	return nil
}
