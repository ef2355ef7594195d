// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package botcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

const (
	DefaultURL      = "https://challenges.cloudflare.com/turnstile/v0/siteverify"
	DefaultCooldown = 30 * time.Second
)

// Result of one verification. Degraded means the check was skipped.
type Result struct {
	Success    bool
	Degraded   bool
	ErrorCodes []string
}

type Verifier struct {
	secret   string
	endpoint string
	client   *http.Client
	cooldown time.Duration
	now      func() time.Time

	// unix nanos until which the verifier stays fail-open
	degradedUntil atomic.Int64
	down          atomic.Bool
}

// New returns a verifier. An empty secret disables verification entirely.
func New(secret, endpoint string) *Verifier {
	if endpoint == "" {
		endpoint = DefaultURL
	}
	return &Verifier{
		secret:   secret,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 3 * time.Second},
		cooldown: DefaultCooldown,
		now:      time.Now,
	}
}

func (v *Verifier) Enabled() bool { return v.secret != "" }

// Degraded reports whether challenges are currently skipped.
func (v *Verifier) Degraded() bool {
	if !v.Enabled() {
		return true
	}
	return v.now().UnixNano() < v.degradedUntil.Load()
}

// Required reports whether callers must present a challenge token.
func (v *Verifier) Required() bool { return !v.Degraded() }

// Verify checks token against the siteverify endpoint. Transport failures and
// 5xx replies fail open and put the verifier in degraded mode for a cooldown.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) Result {
	if !v.Enabled() {
		return Result{Success: true, Degraded: true}
	}
	if token == "" {
		if v.Degraded() {
			return Result{Success: true, Degraded: true}
		}
		return Result{ErrorCodes: []string{"missing-input-response"}}
	}

	reply, err := v.siteverify(ctx, token, remoteIP)
	if err != nil {
		v.markDown(err)
		return Result{Success: true, Degraded: true}
	}
	v.markUp()
	return Result{Success: reply.Success, ErrorCodes: reply.ErrorCodes}
}

type siteverifyReply struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (v *Verifier) siteverify(ctx context.Context, token, remoteIP string) (*siteverifyReply, error) {
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("siteverify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("siteverify returned status %d", resp.StatusCode)
	}

	var reply siteverifyReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("failed to decode siteverify response: %w", err)
	}
	return &reply, nil
}

func (v *Verifier) markDown(err error) {
	v.degradedUntil.Store(v.now().Add(v.cooldown).UnixNano())
	if !v.down.Swap(true) {
		slog.Warn("bot verification unavailable, failing open", "error", err, "cooldown", v.cooldown)
	}
}

func (v *Verifier) markUp() {
	if v.down.Swap(false) {
		v.degradedUntil.Store(0)
		slog.Info("bot verification recovered")
	}
}
