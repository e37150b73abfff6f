// Package config provides centralized configuration management for licensegate.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file (--config flag or LICENSEGATE_CONFIG)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern LICENSEGATE_* for namespacing:
//
//	LICENSEGATE_VARIANT=remote
//	LICENSEGATE_SERVER_PORT=8080        (plain PORT is also honoured)
//	LICENSEGATE_LOGGING_LEVEL=debug
//	LICENSEGATE_KEY_SOURCE_URL=https://example.com/keys.txt
//	LICENSEGATE_KEY_SOURCE_CACHE_INTERVAL=5m
//	LICENSEGATE_LICENSE_SEED_KEYS=KEY-1,KEY-2
//
// # Usage
//
//	cfg, err := config.Load(configPath)
//	if err != nil {
//	    return err
//	}
package config
