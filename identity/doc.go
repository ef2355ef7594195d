// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package identity resolves the two signals used to deduplicate predictions.

# Client Tokens

A client token is an opaque random UUIDv4 held by the caller (cookie or header):

	token, issued, err := identity.ResolveToken(r)
	if issued {
		identity.WriteToken(w, token, cfg.CookieSecure)
	}

Tokens that fail format validation are treated as absent, so the caller is
handled as a first-time visitor and receives a new one.

# Client Address

The originating address is taken from proxy headers in this order:

  - CF-Connecting-IP
  - True-Client-IP
  - X-Real-IP
  - X-Forwarded-For (first entry)
  - RemoteAddr (port stripped)

The first header present must parse as an IP. If it does not, resolution fails
with ErrUnresolvableAddress instead of falling back to a weaker source.

# Network Hash

	h, err := identity.NewHasher(salt, version)
	hash := h.Hash(addr) // 64 lowercase hex chars

The hash is HMAC-SHA256 keyed by the salt over the salt version and address.
Bumping the version changes every hash, which allows salt rotation while
comparisons stay stable within one version. The raw address is never stored.
*/
package identity
