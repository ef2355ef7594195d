// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package cache holds the stats read-cache. Values are opaque strings (the
// handlers store JSON); Get reports ErrMiss for absent or expired keys.
package cache
