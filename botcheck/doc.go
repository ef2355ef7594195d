// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package botcheck verifies challenge tokens against a Turnstile-compatible
siteverify endpoint.

	v := botcheck.New(cfg.TurnstileSecret, cfg.TurnstileURL)
	res := v.Verify(ctx, token, remoteIP)

Verification fails open. With no secret configured the verifier is permanently
degraded; when the endpoint is unreachable or answers 5xx, it is degraded for a
cooldown and Required reports false, so submissions without a token are accepted
until the next successful round trip. An explicit success=false is never
treated as degraded.
*/
package botcheck
