// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package capacity implements daily admission control and feature degradation.

# Counter

Every admitted request increments a per-UTC-day counter:

	counter := capacity.NewMemoryCounter()          // single process
	counter := capacity.NewRedisCounter(redisClient) // shared

The Redis counter keys by day ("capacity:2026-11-19"), so the daily reset is
a key change rather than a write, and concurrent requests crossing midnight
cannot reset twice.

# Levels

The level is recomputed from the count on every call:

	normal < elevated (80%) < high (90%) < critical (95%) < exceeded (100%)

	high and above:  charts disabled, stats cache TTL extended
	exceeded:        submissions disabled, stats still served

# Failure Mode

If the counter store errors, the monitor reports normal with Degraded set,
logging once when the store goes away and once when it recovers.
*/
package capacity
