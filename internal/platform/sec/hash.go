// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides the credential primitives used by the auth domain.
//
// # Architecture
//
// This package isolates security-sensitive code (salted hashing, password policy,
// secret generation) from the domain logic. Nothing here performs I/O or keeps state
// beyond its configuration.
package sec

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
	"golang.org/x/text/unicode/norm"
)

// scrypt cost parameters for interactive logins. Changing them invalidates
// every stored hash.
const (
	scryptN = 16384
	scryptR = 8
	scryptP = 1

	// DefaultKeyLength is the derived key size in bytes when none is configured.
	DefaultKeyLength = 64
)

// ErrEmptySalt is returned when a caller forgets to supply the per-user salt.
var ErrEmptySalt = errors.New("sec: salt cannot be empty")

// Hasher derives salted, one-way password hashes with scrypt.
//
// The salt is always supplied by the caller. It is generated once per user at
// creation time and must be reused verbatim for every later verification.
type Hasher struct {
	keyLength int
}

// NewHasher returns a Hasher producing keys of keyLength bytes.
// A non-positive keyLength falls back to [DefaultKeyLength].
func NewHasher(keyLength int) *Hasher {
	if keyLength <= 0 {
		keyLength = DefaultKeyLength
	}
	return &Hasher{keyLength: keyLength}
}

// KeyLength reports the derived key size in bytes.
func (hasher *Hasher) KeyLength() int {
	return hasher.keyLength
}

// Hash returns the base64 encoded scrypt key for password and salt.
// The same (password, salt) pair always yields the same string.
func (hasher *Hasher) Hash(password, salt string) (string, error) {
	if salt == "" {
		return "", ErrEmptySalt
	}

	key, err := scrypt.Key([]byte(NormalizePassword(password)), []byte(salt), scryptN, scryptR, scryptP, hasher.keyLength)
	if err != nil {
		return "", fmt.Errorf("sec: failed to derive password key: %w", err)
	}

	return base64.StdEncoding.EncodeToString(key), nil
}

// Verify re-hashes the candidate password with the stored salt and compares it
// to the stored hash in constant time.
func (hasher *Hasher) Verify(password, salt, storedHash string) (bool, error) {
	candidate, err := hasher.Hash(password, salt)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(storedHash)) == 1, nil
}

// NormalizePassword folds compatibility-equivalent Unicode forms (NFKC) so that
// the same password typed on different keyboards hashes identically.
// ASCII input is returned unchanged.
func NormalizePassword(password string) string {
	return norm.NFKC.String(password)
}
