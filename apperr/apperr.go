// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package apperr defines the closed set of error kinds the API can return.
//
// An *Error is built once, where the failure happens. The HTTP layer maps the
// Kind to a status code in a single switch (see middleware.WriteError).
package apperr

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an error for the caller.
type Kind int

const (
	KindServer Kind = iota
	KindValidation
	KindConflictIdentity
	KindConflictNetwork
	KindRateLimited
	KindCapacityExceeded
	KindFeatureDisabled
	KindNotFound
)

var kindCodes = map[Kind]string{
	KindServer:           "server_error",
	KindValidation:       "validation_error",
	KindConflictIdentity: "already_submitted",
	KindConflictNetwork:  "network_already_submitted",
	KindRateLimited:      "rate_limited",
	KindCapacityExceeded: "capacity_exceeded",
	KindFeatureDisabled:  "feature_disabled",
	KindNotFound:         "not_found",
}

// Code is the stable machine-readable code sent to clients.
func (k Kind) Code() string {
	if c, ok := kindCodes[k]; ok {
		return c
	}
	return kindCodes[KindServer]
}

func (k Kind) String() string { return k.Code() }

// Retryable reports whether retrying the same request can succeed.
func (k Kind) Retryable() bool {
	switch k {
	case KindServer, KindRateLimited, KindCapacityExceeded, KindFeatureDisabled:
		return true
	}
	return false
}

// Error is the single error type handed to the HTTP layer.
type Error struct {
	Kind       Kind
	Field      string
	Rule       string
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.Code(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind.Code(), e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a field-tagged, client-fixable error.
func Validation(field, rule, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Rule: rule, Message: message}
}

// ConflictIdentity means the caller's client token already owns a prediction.
func ConflictIdentity() *Error {
	return &Error{
		Kind:    KindConflictIdentity,
		Message: "You have already submitted a prediction. Use PUT to change it.",
	}
}

// ConflictNetwork means a different identity on the same network already submitted.
func ConflictNetwork() *Error {
	return &Error{
		Kind:    KindConflictNetwork,
		Message: "A prediction has already been submitted from your network.",
	}
}

func RateLimited(retryAfter time.Duration) *Error {
	return &Error{
		Kind:       KindRateLimited,
		Message:    "Too many submissions. Please wait before trying again.",
		RetryAfter: retryAfter,
	}
}

// CapacityExceeded closes submissions until the daily counter resets.
func CapacityExceeded(retryAfter time.Duration) *Error {
	return &Error{
		Kind:       KindCapacityExceeded,
		Message:    "Submissions are paused for today due to high demand. Stats remain available.",
		RetryAfter: retryAfter,
	}
}

func FeatureDisabled(feature string, retryAfter time.Duration) *Error {
	return &Error{
		Kind:       KindFeatureDisabled,
		Field:      feature,
		Message:    feature + " is temporarily disabled due to high demand",
		RetryAfter: retryAfter,
	}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Server wraps an unexpected failure. The message is safe to show to users.
func Server(message string, err error) *Error {
	return &Error{Kind: KindServer, Message: message, Err: err}
}

// From returns err as an *Error, wrapping unknown errors as KindServer.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Server("Internal server error", err)
}
