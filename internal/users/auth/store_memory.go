// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
)

// MemoryAdapter keeps users and sessions in process memory.
//
// It is the STORAGE_DRIVER=memory backend for development and the fixture
// used by engine tests. Entities are copied in and out so callers never share
// state with the store.
type MemoryAdapter struct {
	mu       sync.RWMutex
	users    map[string]User
	byEmail  map[string]string
	sessions map[string]Session
	now      func() time.Time

	// failWith, when set, is returned by every call. Tests use it to simulate outages.
	failWith error
}

// NewMemoryAdapter creates an empty store. A nil clock means time.Now.
func NewMemoryAdapter(now func() time.Time) *MemoryAdapter {
	if now == nil {
		now = time.Now
	}
	return &MemoryAdapter{
		users:    make(map[string]User),
		byEmail:  make(map[string]string),
		sessions: make(map[string]Session),
		now:      now,
	}
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (adapter *MemoryAdapter) FailWith(err error) {
	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	adapter.failWith = err
}

// Connect implements [Adapter].
func (adapter *MemoryAdapter) Connect(context.Context) error {
	adapter.mu.RLock()
	defer adapter.mu.RUnlock()
	return adapter.failWith
}

// LocateUserByAccessToken implements [Adapter]. Expired sessions are invisible.
func (adapter *MemoryAdapter) LocateUserByAccessToken(_ context.Context, accessToken string) (*User, error) {
	adapter.mu.RLock()
	defer adapter.mu.RUnlock()
	if adapter.failWith != nil {
		return nil, adapter.failWith
	}

	session, ok := adapter.sessions[accessToken]
	if !ok || session.Expired(adapter.now()) {
		return nil, ErrNotFound
	}

	user, ok := adapter.users[session.UserID]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

// LocateUserByEmail implements [Adapter].
func (adapter *MemoryAdapter) LocateUserByEmail(_ context.Context, email string) (*User, error) {
	adapter.mu.RLock()
	defer adapter.mu.RUnlock()
	if adapter.failWith != nil {
		return nil, adapter.failWith
	}

	id, ok := adapter.byEmail[emailKey(email)]
	if !ok {
		return nil, ErrNotFound
	}
	user := adapter.users[id]
	return &user, nil
}

// IsEmailUnique implements [Adapter].
func (adapter *MemoryAdapter) IsEmailUnique(_ context.Context, email string) (bool, error) {
	adapter.mu.RLock()
	defer adapter.mu.RUnlock()
	if adapter.failWith != nil {
		return false, adapter.failWith
	}

	_, taken := adapter.byEmail[emailKey(email)]
	return !taken, nil
}

// CreateUser implements [Adapter]. A duplicate email yields EMAIL_TAKEN.
func (adapter *MemoryAdapter) CreateUser(_ context.Context, user *User) error {
	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	if adapter.failWith != nil {
		return adapter.failWith
	}

	key := emailKey(user.Email)
	if _, taken := adapter.byEmail[key]; taken {
		return apperr.EmailTaken()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = adapter.now()
	}

	adapter.users[user.ID] = *user
	adapter.byEmail[key] = user.ID
	return nil
}

// StoreSession implements [Adapter].
func (adapter *MemoryAdapter) StoreSession(_ context.Context, session *Session) error {
	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	if adapter.failWith != nil {
		return adapter.failWith
	}

	adapter.sessions[session.AccessToken] = *session
	return nil
}

// RecordLogin implements [LoginRecorder].
func (adapter *MemoryAdapter) RecordLogin(_ context.Context, userID string, at time.Time) error {
	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	if adapter.failWith != nil {
		return adapter.failWith
	}

	user, ok := adapter.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.LastLogin = at
	adapter.users[userID] = user
	return nil
}

// PurgeExpiredSessions implements [SessionPurger].
func (adapter *MemoryAdapter) PurgeExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	if adapter.failWith != nil {
		return 0, adapter.failWith
	}

	var purged int64
	for token, session := range adapter.sessions {
		if session.Expired(now) {
			delete(adapter.sessions, token)
			purged++
		}
	}
	return purged, nil
}

// SessionCount reports stored sessions, expired or not.
func (adapter *MemoryAdapter) SessionCount() int {
	adapter.mu.RLock()
	defer adapter.mu.RUnlock()
	return len(adapter.sessions)
}

// UserByEmail returns a copy of the stored user, for inspection in tests and tooling.
func (adapter *MemoryAdapter) UserByEmail(email string) (User, bool) {
	adapter.mu.RLock()
	defer adapter.mu.RUnlock()

	id, ok := adapter.byEmail[emailKey(email)]
	if !ok {
		return User{}, false
	}
	return adapter.users[id], true
}

func emailKey(email string) string {
	return strings.ToLower(email)
}
