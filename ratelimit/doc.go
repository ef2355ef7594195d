// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ratelimit paces prediction writes per network hash.

Each key gets a fixed window (default ten writes per minute). RedisLimiter
shares windows across instances with a single INCR/PEXPIRE script and falls
back to InMemoryLimiter while Redis is unreachable:

	limiter := ratelimit.NewRedis(client, 10, time.Minute)
	d := limiter.Allow(ctx, networkHash)
	if !d.Allowed {
		retry := d.RetryAfter(time.Now())
		...
	}
*/
package ratelimit
