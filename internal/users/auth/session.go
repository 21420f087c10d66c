// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"time"

	"github.com/taibuivan/gatekeeper/internal/platform/constants"
	"github.com/taibuivan/gatekeeper/pkg/ids"
)

// Issuer mints sessions. It performs no I/O; persisting the result is the caller's job.
type Issuer struct {
	ids ids.Generator
	ttl time.Duration
	now func() time.Time
}

// NewIssuer returns an Issuer. A non-positive ttl means [constants.SessionTTL];
// a nil clock means time.Now.
func NewIssuer(generator ids.Generator, ttl time.Duration, now func() time.Time) *Issuer {
	if ttl <= 0 {
		ttl = constants.SessionTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Issuer{ids: generator, ttl: ttl, now: now}
}

// Issue creates a session for user expiring one TTL from now.
func (issuer *Issuer) Issue(user *User) *Session {
	return &Session{
		ID:           issuer.ids.New(ids.KindSession),
		AccessToken:  issuer.ids.New(ids.KindToken),
		RefreshToken: issuer.ids.New(ids.KindToken),
		UserID:       user.ID,
		ExpiresAt:    issuer.now().Add(issuer.ttl),
	}
}
