// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package ids provides the process-wide unique identifier generator for Gatekeeper.

Identifiers are kind-prefixed ULIDs ("user_01J...", "session_01J..."). The ULID body
is drawn from a monotonic entropy source, so two calls never return the same value
even within the same millisecond, and the prefix keeps different kinds of identifier
from ever colliding with each other.

Secure kinds (bearer tokens) append 32 bytes of crypto/rand output, because a
monotonic ULID alone is predictable from its neighbours.

The generator is an injected dependency, never a package-level singleton:

	gen := ids.NewULID(ids.KindToken)
	userID := gen.New(ids.KindUser)

Tests substitute [Sequence] for stable, readable values.
*/
package ids

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// # Identifier Kinds

// Kind names a logical family of identifiers. It becomes the id prefix.
type Kind string

const (
	// KindUser identifies user records.
	KindUser Kind = "user"

	// KindSession identifies session records.
	KindSession Kind = "session"

	// KindToken identifies access and refresh tokens.
	KindToken Kind = "sh"
)

// secureSuffixBytes is the amount of crypto randomness appended to secure kinds.
const secureSuffixBytes = 32

// Generator mints unique identifiers of a given kind.
type Generator interface {
	New(kind Kind) string
}

// # ULID Generator

// ULIDGenerator is the production [Generator]. It is safe for concurrent use.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	random  io.Reader
	now     func() time.Time
	secure  map[Kind]bool
}

// NewULID returns a generator whose listed kinds carry a random secret suffix.
func NewULID(secureKinds ...Kind) *ULIDGenerator {
	secure := make(map[Kind]bool, len(secureKinds))
	for _, kind := range secureKinds {
		secure[kind] = true
	}

	return &ULIDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		random:  rand.Reader,
		now:     time.Now,
		secure:  secure,
	}
}

// New returns a fresh identifier for kind.
//
// It panics only if the OS random source is unavailable. Entropy failure is an
// unrecoverable system-level error.
func (generator *ULIDGenerator) New(kind Kind) string {
	generator.mu.Lock()
	id, err := ulid.New(ulid.Timestamp(generator.now()), generator.entropy)
	generator.mu.Unlock()
	if err != nil {
		panic("ids: failed to generate ULID: " + err.Error())
	}

	if !generator.secure[kind] {
		return string(kind) + "_" + id.String()
	}

	suffix := make([]byte, secureSuffixBytes)
	if _, err := io.ReadFull(generator.random, suffix); err != nil {
		panic("ids: failed to read secure suffix: " + err.Error())
	}

	return string(kind) + "_" + id.String() + base64.RawURLEncoding.EncodeToString(suffix)
}

// # Deterministic Generator

// Sequence is a deterministic [Generator] for tests. Each kind counts from 1.
type Sequence struct {
	mu       sync.Mutex
	counters map[Kind]int
}

// NewSequence returns an empty [Sequence].
func NewSequence() *Sequence {
	return &Sequence{counters: make(map[Kind]int)}
}

// New returns "<kind>_<n>" with n zero-padded to four digits.
func (sequence *Sequence) New(kind Kind) string {
	sequence.mu.Lock()
	defer sequence.mu.Unlock()

	sequence.counters[kind]++
	return fmt.Sprintf("%s_%04d", kind, sequence.counters[kind])
}
