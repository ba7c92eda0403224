// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for the
// chat widget.
//
// Supports TOML, YAML and JSON configuration formats, with defaults,
// environment variable overrides, validation and live reload.
//
// # Key Types
//
//   - Config: main configuration structure
//   - BackendConfig: backend host, chatflow id, timeouts
//   - WidgetConfig: the options an embedding page would pass to the widget
//   - StorageConfig: session persistence backend
//   - LoggingConfig: zerolog level/format/output
//
// # Configuration Precedence
//
//   - Environment variables (CHATWIDGET_*)
//   - ~/.chatwidget/config.toml
//   - ~/.chatwidget/config.yaml
//   - ~/.chatwidget/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	host := cfg.Backend.Host
package config
