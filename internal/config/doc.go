// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for augchat.
//
// # Key Types
//
//   - Config: main configuration structure
//   - EndpointConfig: chat endpoint URL, token and callback location
//   - ServerConfig: settings for the reference server
//   - ValidationErrors: every problem found by Validate
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (AUGCHAT_*)
//   - ~/.augchat/config.toml (AUGCHAT_HOME moves the directory)
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client := chatapi.NewClient(chatapi.Config{Endpoint: cfg.Endpoint.URL})
package config
