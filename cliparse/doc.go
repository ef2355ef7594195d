// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a validated Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

Sources are layered, lowest precedence first:

 1. Defaults()
 2. YAML file from -config or CONFIG_FILE
 3. .env file (-env-file, default ".env"; real env vars win)
 4. Environment variables
 5. CLI flags

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: connection string (required)
  - DatabaseType: sqlite (default) or postgres
  - IPHashSalt: secret for network hashes (required, >= 16 chars)
  - IPHashSaltVersion: bump to rotate the salt (default: 1)
  - RedisAddr: shared counter/cache/limiter backend (optional)
  - TurnstileSecret: bot verification secret (optional; empty disables)
  - DailyBudget, Threshold*: capacity levels
  - ReferenceDate, MinDate, MaxDate: weighting anchor and accepted range
  - StatsCacheTTL, ExtendedCacheTTL: stats cache lifetimes
  - WriteRateLimit, WriteRateWindow: per-network write pacing
  - OpsLogRetention: ops log purge horizon (default: 2160h)

# CLI Flags

	-p              Server port
	-d              Database URL
	-t              Database type
	-redis          Redis address
	-ip-salt        Network hash salt
	-config         YAML config file
	-env-file       .env file
	-purge-ops-log  Purge expired ops log entries and exit

# Environment Variables

Every koanf key maps to its upper-case name:

	PORT                 → port
	DATABASE_URL         → database_url
	IP_HASH_SALT         → ip_hash_salt
	STATS_CACHE_TTL=10m  → stats_cache_ttl
	ALLOWED_ORIGINS=a,b  → allowed_origins

# Validation

ParseFlags returns an error if the configuration is unsafe:

  - DATABASE_URL must be provided
  - IP_HASH_SALT must be provided and at least 16 characters
  - thresholds must be strictly ascending within (0, 1]
  - MIN_DATE <= REFERENCE_DATE <= MAX_DATE

# Logging

	logger, closeLog := cliparse.SetupLogger(cliparse.ParseLevel(cfg.LogLevel), cfg.LogFile)
	defer closeLog()
	slog.SetDefault(logger)

Text goes to stderr; with LOG_FILE set, JSON records are fanned out to the
file as well.
*/
package cliparse
