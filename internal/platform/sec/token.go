// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"fmt"
)

// SaltLength is the number of characters in a generated password salt.
const SaltLength = 10

// saltAlphabet is URL and storage safe.
const saltAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// GenerateSalt returns a cryptographically random salt of [SaltLength] characters.
func GenerateSalt() (string, error) {
	return randomString(SaltLength)
}

// randomString draws length characters uniformly from saltAlphabet.
// The alphabet has 64 symbols, so masking a random byte to 6 bits has no bias.
func randomString(length int) (string, error) {
	buffer := make([]byte, length)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec: failed to read random bytes: %w", err)
	}

	for i, b := range buffer {
		buffer[i] = saltAlphabet[b&0x3f]
	}
	return string(buffer), nil
}
