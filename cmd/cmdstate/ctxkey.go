// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package cmdstate carries the effective configuration from the root
// command's Before hook to the subcommands.
package cmdstate

import (
	"context"

	"github.com/matt-FFFFFF/mysh/internal/config"
)

type configKey struct{}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// Config returns the configuration stored in ctx, or the defaults.
func Config(ctx context.Context) *config.Config {
	cfg, ok := ctx.Value(configKey{}).(*config.Config)
	if !ok || cfg == nil {
		return config.Default()
	}

	return cfg
}
