// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Quickly Predict API server.

Quickly Predict collects one anonymous release-date prediction per visitor
and publishes a weighted median, a histogram and a sentiment status relative
to a reference date. Writes are deduplicated per client token and per
network, paced per network, and shut off for the day when the request budget
runs out.

# Starting the Server

With no database configured the server uses a local SQLite file:

	IP_HASH_SALT=... DATABASE_URL=file:predict.db go run .

Or with PostgreSQL and Redis:

	go run . -t postgres -d "postgres://..." -redis localhost:6379

# Configuration

Settings are layered: defaults, a YAML file (-config or CONFIG_FILE), a .env
file, environment variables, then flags.

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - IP_HASH_SALT (-ip-salt): Secret for network hashing (16+ characters)

Common optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - REDIS_ADDR (-redis): Shared counters, cache and rate limits
  - TURNSTILE_SECRET: Enables bot verification
  - DAILY_BUDGET: Requests per UTC day before submissions close

# Maintenance

	go run . -purge-ops-log

deletes ops log entries older than OPS_LOG_RETENTION (default 90 days) and
exits. It is meant to run from cron or a similar scheduler.

# Architecture

  - handlers: HTTP request handlers (predictions, stats, health)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, metrics, capacity admission, JSON helpers
  - models: Request/response types
  - identity: Client tokens, network hashing, address resolution
  - validate: Submission rules and threat detectors
  - aggregate: Weights, weighted median, histogram, status classifier
  - capacity: Daily counter and degradation levels
  - ratelimit, botcheck, cache, metrics: Supporting services
  - store, db: Persistence and schema
  - cliparse: Configuration and logging setup

See package documentation for each component.
*/
package main
