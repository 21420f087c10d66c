// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taibuivan/gatekeeper/internal/platform/ratelimit"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
	"github.com/taibuivan/gatekeeper/internal/users/auth"
	"github.com/taibuivan/gatekeeper/pkg/ids"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (clock *fakeClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.now
}

func (clock *fakeClock) Advance(d time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.now = clock.now.Add(d)
}

type engine struct {
	dispatcher *auth.Dispatcher
	adapter    *auth.MemoryAdapter
	clock      *fakeClock
}

// newEngine wires a dispatcher over the in-memory adapter with deterministic ids.
// rules may be nil for no route limits.
func newEngine(t *testing.T, rules ratelimit.Rules) *engine {
	t.Helper()

	return newEngineWith(t, func(now func() time.Time) *ratelimit.Limiter {
		if rules == nil {
			return nil
		}
		return ratelimit.New(rules, ratelimit.NewMemoryStore(now), ratelimit.WithClock(now))
	})
}

func newEngineWith(t *testing.T, limiterFor func(now func() time.Time) *ratelimit.Limiter) *engine {
	t.Helper()

	clock := newFakeClock()
	adapter := auth.NewMemoryAdapter(clock.Now)
	sequence := ids.NewSequence()

	service := auth.NewService(auth.ServiceOptions{
		Adapter:      adapter,
		Hasher:       sec.NewHasher(sec.DefaultKeyLength),
		Issuer:       auth.NewIssuer(sequence, 0, clock.Now),
		IDs:          sequence,
		Requirements: sec.DefaultPasswordRequirements,
		Clock:        clock.Now,
	})

	return &engine{
		dispatcher: auth.NewDispatcher(service, limiterFor(clock.Now)),
		adapter:    adapter,
		clock:      clock,
	}
}

func (e *engine) post(action string, body string) auth.Response {
	return e.dispatcher.Dispatch(context.Background(), auth.Request{
		Method:    http.MethodPost,
		Action:    action,
		Header:    http.Header{},
		Body:      []byte(body),
		ClientKey: "198.51.100.10",
	})
}

func (e *engine) get(action string, token string) auth.Response {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return e.dispatcher.Dispatch(context.Background(), auth.Request{
		Method:    http.MethodGet,
		Action:    action,
		Header:    header,
		ClientKey: "198.51.100.10",
	})
}

const validRegistration = `{"email":"a@b.com","password":"Abc123!","confirmedPassword":"Abc123!"}`

// decode round-trips a response body through JSON into a generic map.
func decode(t *testing.T, response auth.Response) map[string]any {
	t.Helper()

	raw, err := json.Marshal(response.Body)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func errorCode(t *testing.T, response auth.Response) string {
	t.Helper()
	code, _ := decode(t, response)["error"].(string)
	return code
}
