// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package identity

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"
)

const (
	TokenHeader = "X-Client-Token"
	TokenCookie = "client_token"

	tokenCookieMaxAge = 2 * 365 * 24 * time.Hour
)

// proxyHeaders in precedence order, most specific first.
var proxyHeaders = []string{
	"CF-Connecting-IP",
	"True-Client-IP",
	"X-Real-IP",
	"X-Forwarded-For",
}

// ClientToken returns the caller's token from the header or cookie.
// ok is false when the token is absent or malformed.
func ClientToken(r *http.Request) (token string, ok bool) {
	if v := strings.TrimSpace(r.Header.Get(TokenHeader)); v != "" {
		return v, ValidClientToken(v)
	}
	if c, err := r.Cookie(TokenCookie); err == nil && c.Value != "" {
		return c.Value, ValidClientToken(c.Value)
	}
	return "", false
}

// ResolveToken returns the caller's valid token, or issues a new one.
func ResolveToken(r *http.Request) (token string, issued bool, err error) {
	if t, ok := ClientToken(r); ok {
		return t, false, nil
	}
	t, err := NewClientToken()
	if err != nil {
		return "", false, err
	}
	return t, true, nil
}

// WriteToken hands a freshly issued token back to the caller.
func WriteToken(w http.ResponseWriter, token string, secure bool) {
	w.Header().Set(TokenHeader, token)
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(tokenCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClientAddress extracts the originating address.
// With trustProxy the first present proxy header wins; it must parse, or
// resolution fails closed. RemoteAddr is the last resort.
func ClientAddress(r *http.Request, trustProxy bool) (string, error) {
	if trustProxy {
		for _, name := range proxyHeaders {
			v := strings.TrimSpace(r.Header.Get(name))
			if v == "" {
				continue
			}
			if name == "X-Forwarded-For" {
				// Take first IP in chain
				if i := strings.IndexByte(v, ','); i >= 0 {
					v = strings.TrimSpace(v[:i])
				}
			}
			return canonicalAddr(v)
		}
	}

	addr := r.RemoteAddr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return canonicalAddr(addr)
}

func canonicalAddr(s string) (string, error) {
	s = strings.TrimPrefix(strings.TrimSuffix(s, "]"), "[")
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return "", ErrUnresolvableAddress
	}
	return ip.Unmap().WithZone("").String(), nil
}
