// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package identity

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

var (
	ErrMissingSalt         = errors.New("ip hash salt is required")
	ErrInvalidSaltVersion  = errors.New("ip hash salt version must be >= 1")
	ErrUnresolvableAddress = errors.New("unable to resolve client address")
)

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewClientToken issues a fresh opaque client token (random UUIDv4).
func NewClientToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate client token: %w", err)
	}
	return id.String(), nil
}

// ValidClientToken reports whether s is a canonical lowercase UUIDv4.
// Anything else is treated as absent and the caller gets a new token.
func ValidClientToken(s string) bool {
	if len(s) != 36 {
		return false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return id.Version() == 4 && id.Variant() == uuid.RFC4122 && id.String() == s
}

// Hasher turns client addresses into network hashes.
type Hasher struct {
	salt    []byte
	version int
}

// NewHasher fails on an empty salt: hashing must never be silently skipped.
func NewHasher(salt string, version int) (*Hasher, error) {
	if salt == "" {
		return nil, ErrMissingSalt
	}
	if version < 1 {
		return nil, ErrInvalidSaltVersion
	}
	return &Hasher{salt: []byte(salt), version: version}, nil
}

// Version returns the salt version mixed into every hash.
func (h *Hasher) Version() int { return h.version }

// Hash returns the lowercase hex HMAC-SHA256 of the salt version and address.
// Same address and salt version always give the same 64-char hash.
func (h *Hasher) Hash(addr string) string {
	mac := hmac.New(sha256.New, h.salt)
	mac.Write([]byte("v" + strconv.Itoa(h.version) + "|"))
	mac.Write([]byte(addr))
	return hex.EncodeToString(mac.Sum(nil))
}
