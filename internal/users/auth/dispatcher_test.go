// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
	"github.com/taibuivan/gatekeeper/internal/platform/ratelimit"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
	"github.com/taibuivan/gatekeeper/internal/platform/validate"
	"github.com/taibuivan/gatekeeper/internal/users/auth"
)

/*
TestResolve maps (method, action) pairs to states.
*/
func TestResolve(t *testing.T) {
	tests := []struct {
		method string
		action string
		state  auth.State
	}{
		{http.MethodPost, "register", auth.StateRegister},
		{http.MethodPost, "login", auth.StateLogin},
		{http.MethodGet, "@me", auth.StateWhoAmI},
		{http.MethodGet, "register", auth.StateUnmatched},
		{http.MethodGet, "login", auth.StateUnmatched},
		{http.MethodPost, "@me", auth.StateUnmatched},
		{http.MethodGet, "logout", auth.StateUnmatched},
	}

	for _, tt := range tests {
		t.Run(tt.method+"_"+tt.action, func(t *testing.T) {
			assert.Equal(t, tt.state, auth.Resolve(tt.method, tt.action))
		})
	}
}

/*
TestDispatch_RegisterLoginRoundTrip registers, logs in, and resolves both sessions.
*/
func TestDispatch_RegisterLoginRoundTrip(t *testing.T) {
	e := newEngine(t, nil)

	registered := e.post("register", validRegistration)
	require.Equal(t, http.StatusOK, registered.Status, decode(t, registered))

	session := decode(t, registered)
	assert.NotEmpty(t, session["accessToken"])
	assert.NotEmpty(t, session["refreshToken"])
	assert.Equal(t, float64(e.clock.Now().Add(7*24*time.Hour).UnixMilli()), session["expires"])
	assert.NotContains(t, session, "id")
	assert.NotContains(t, session, "user")
	assert.NotContains(t, session, "userId")

	loggedIn := e.post("login", `{"email":"a@b.com","password":"Abc123!"}`)
	require.Equal(t, http.StatusOK, loggedIn.Status, decode(t, loggedIn))
	second := decode(t, loggedIn)
	assert.NotEqual(t, session["accessToken"], second["accessToken"])
	assert.Equal(t, 2, e.adapter.SessionCount())

	for _, token := range []any{session["accessToken"], second["accessToken"]} {
		me := e.get("@me", token.(string))
		require.Equal(t, http.StatusOK, me.Status)
		assert.Equal(t, "a@b.com", decode(t, me)["email"])
	}

	stored, ok := e.adapter.UserByEmail("a@b.com")
	require.True(t, ok)
	assert.Equal(t, e.clock.Now(), stored.LastLogin)
}

/*
TestDispatch_DuplicateRegistration rejects the second registration without touching the first user.
*/
func TestDispatch_DuplicateRegistration(t *testing.T) {
	e := newEngine(t, nil)

	require.Equal(t, http.StatusOK, e.post("register", validRegistration).Status)
	before, _ := e.adapter.UserByEmail("a@b.com")

	second := e.post("register", `{"email":"a@b.com","password":"Xyz789?","confirmedPassword":"Xyz789?"}`)
	assert.Equal(t, http.StatusBadRequest, second.Status)
	assert.Equal(t, apperr.CodeEmailTaken, errorCode(t, second))

	after, _ := e.adapter.UserByEmail("a@b.com")
	assert.Equal(t, before, after)
	assert.Equal(t, 1, e.adapter.SessionCount())

	// Old credentials still work, new ones do not.
	assert.Equal(t, http.StatusOK, e.post("login", `{"email":"a@b.com","password":"Abc123!"}`).Status)
	assert.Equal(t, apperr.CodeInvalidPassword, errorCode(t, e.post("login", `{"email":"a@b.com","password":"Xyz789?"}`)))
}

/*
TestDispatch_LoginFailures reports the failing step and never creates a session.
*/
func TestDispatch_LoginFailures(t *testing.T) {
	e := newEngine(t, nil)
	require.Equal(t, http.StatusOK, e.post("register", validRegistration).Status)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"wrong_password", `{"email":"a@b.com","password":"Wrong1!"}`, apperr.CodeInvalidPassword},
		{"unknown_user", `{"email":"nobody@b.com","password":"Abc123!"}`, apperr.CodeUserNotFound},
		{"invalid_email", `{"email":"not-an-email","password":"Abc123!"}`, apperr.CodeInvalidEmail},
		{"missing_password", `{"email":"a@b.com"}`, apperr.CodeInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response := e.post("login", tt.body)
			assert.Equal(t, http.StatusBadRequest, response.Status)
			assert.Equal(t, tt.code, errorCode(t, response))
			assert.Equal(t, 1, e.adapter.SessionCount())
		})
	}
}

/*
TestDispatch_RegisterValidation checks each rejection and its precedence.
*/
func TestDispatch_RegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"empty_body", ``, apperr.CodeInvalidPayload},
		{"not_json", `email=a@b.com`, apperr.CodeInvalidPayload},
		{"json_array", `[]`, apperr.CodeInvalidPayload},
		{"wrong_type", `{"email":1,"password":"Abc123!","confirmedPassword":"Abc123!"}`, apperr.CodeInvalidPayload},
		{"missing_confirmation", `{"email":"a@b.com","password":"Abc123!"}`, apperr.CodeInvalidPayload},
		{"invalid_email", `{"email":"ab.com","password":"x","confirmedPassword":"y"}`, apperr.CodeInvalidEmail},
		{"mismatch", `{"email":"a@b.com","password":"Abc123!","confirmedPassword":"Abc123?"}`, apperr.CodePasswordMismatch},
		{"too_short", `{"email":"a@b.com","password":"A1!","confirmedPassword":"A1!"}`, "PASSWORD_TOO_SHORT"},
		{"missing_alpha", `{"email":"a@b.com","password":"123456!","confirmedPassword":"123456!"}`, "PASSWORD_MISSING_ALPHABET"},
		{"missing_numeric", `{"email":"a@b.com","password":"Abcdef!","confirmedPassword":"Abcdef!"}`, "PASSWORD_MISSING_NUMERIC"},
		{"missing_special", `{"email":"a@b.com","password":"Abc1234","confirmedPassword":"Abc1234"}`, "PASSWORD_MISSING_SPECIAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, nil)

			response := e.post("register", tt.body)
			assert.Equal(t, http.StatusBadRequest, response.Status)
			assert.Equal(t, tt.code, errorCode(t, response))

			_, created := e.adapter.UserByEmail("a@b.com")
			assert.False(t, created)
		})
	}
}

/*
TestDispatch_WhoAmI covers bearer handling and secret stripping.
*/
func TestDispatch_WhoAmI(t *testing.T) {
	e := newEngine(t, nil)
	token := decode(t, e.post("register", validRegistration))["accessToken"].(string)

	t.Run("missing_token", func(t *testing.T) {
		response := e.get("@me", "")
		assert.Equal(t, http.StatusUnauthorized, response.Status)
		assert.Equal(t, apperr.CodeUnauthorized, errorCode(t, response))
	})

	t.Run("garbled_header", func(t *testing.T) {
		response := e.dispatcher.Dispatch(context.Background(), auth.Request{
			Method: http.MethodGet,
			Action: "@me",
			Header: http.Header{"Authorization": []string{"Token " + token}},
		})
		assert.Equal(t, http.StatusUnauthorized, response.Status)
	})

	t.Run("unknown_token", func(t *testing.T) {
		response := e.get("@me", "sh_unknown")
		assert.Equal(t, http.StatusUnauthorized, response.Status)
		assert.Equal(t, apperr.CodeUnauthorized, errorCode(t, response))
	})

	t.Run("valid_token", func(t *testing.T) {
		response := e.get("@me", token)
		require.Equal(t, http.StatusOK, response.Status)

		user := decode(t, response)
		assert.Equal(t, "user_0001", user["id"])
		assert.Equal(t, "a@b.com", user["email"])
		assert.Equal(t, float64(0), user["flags"])
		for _, secret := range []string{"password", "passwordHash", "passwordSalt", "salt", "PasswordHash", "PasswordSalt"} {
			assert.NotContains(t, user, secret)
		}
	})

	t.Run("expired_session", func(t *testing.T) {
		e.clock.Advance(7*24*time.Hour + time.Second)
		response := e.get("@me", token)
		assert.Equal(t, http.StatusUnauthorized, response.Status)
	})
}

/*
TestDispatch_Unmatched returns INVALID_ROUTE once the bearer step has passed.
*/
func TestDispatch_Unmatched(t *testing.T) {
	e := newEngine(t, nil)

	response := e.get("register", "")
	assert.Equal(t, http.StatusNotFound, response.Status)
	assert.Equal(t, apperr.CodeInvalidRoute, errorCode(t, response))

	response = e.get("logout", "sh_anything")
	assert.Equal(t, http.StatusNotFound, response.Status)
	assert.Equal(t, apperr.CodeInvalidRoute, errorCode(t, response))

	response = e.dispatcher.Dispatch(context.Background(), auth.Request{
		Method: http.MethodPost,
		Action: "@me",
		Header: http.Header{"Authorization": []string{"Bearer sh_anything"}},
	})
	assert.Equal(t, http.StatusNotFound, response.Status)

	// Bearer requirement precedes route matching for non-credential actions.
	response = e.get("logout", "")
	assert.Equal(t, http.StatusUnauthorized, response.Status)
}

/*
TestDispatch_RateLimited denies the 4th register in a window and skips later steps.
*/
func TestDispatch_RateLimited(t *testing.T) {
	e := newEngine(t, ratelimit.Rules{"/register": {Window: time.Second, MaxRequests: 3}})

	for i := 0; i < 3; i++ {
		response := e.post("register", `{}`)
		assert.Equal(t, http.StatusBadRequest, response.Status)
		assert.Equal(t, "3", response.Header.Get("X-RateLimit-Limit"))
	}

	denied := e.post("register", validRegistration)
	assert.Equal(t, http.StatusTooManyRequests, denied.Status)
	assert.Equal(t, "0", denied.Header.Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1", denied.Header.Get("Retry-After"))

	body := decode(t, denied)
	assert.Equal(t, apperr.CodeRateLimited, body["error"])
	assert.Equal(t, float64(3), body["limit"])
	assert.Equal(t, float64(0), body["remaining"])
	assert.Equal(t, float64(e.clock.Now().Add(time.Second).UnixMilli()), body["resetAt"])

	_, created := e.adapter.UserByEmail("a@b.com")
	assert.False(t, created, "denied request must not reach the handler")

	// Unlimited routes carry no rate-limit headers.
	assert.Empty(t, e.get("@me", "").Header.Get("X-RateLimit-Limit"))

	e.clock.Advance(time.Second)
	allowed := e.post("register", validRegistration)
	assert.Equal(t, http.StatusOK, allowed.Status)
	assert.Equal(t, "2", allowed.Header.Get("X-RateLimit-Remaining"))
}

/*
TestDispatch_BodyErrorOrdering reports an unreadable body only at the
body-parse step, after the rate limit and bearer checks.
*/
func TestDispatch_BodyErrorOrdering(t *testing.T) {
	e := newEngine(t, ratelimit.Rules{"/register": {Window: time.Second, MaxRequests: 1}})

	unreadable := func(method, action string) auth.Request {
		return auth.Request{
			Method:    method,
			Action:    action,
			Header:    http.Header{},
			BodyErr:   validate.ErrInvalidJSON,
			ClientKey: "198.51.100.10",
		}
	}

	response := e.dispatcher.Dispatch(context.Background(), unreadable(http.MethodPost, "register"))
	assert.Equal(t, http.StatusBadRequest, response.Status)
	assert.Equal(t, apperr.CodeInvalidPayload, errorCode(t, response))
	assert.Equal(t, "0", response.Header.Get("X-RateLimit-Remaining"))

	response = e.dispatcher.Dispatch(context.Background(), unreadable(http.MethodPost, "register"))
	assert.Equal(t, http.StatusTooManyRequests, response.Status)
	assert.Equal(t, apperr.CodeRateLimited, errorCode(t, response))

	response = e.dispatcher.Dispatch(context.Background(), unreadable(http.MethodGet, "@me"))
	assert.Equal(t, http.StatusUnauthorized, response.Status)
	assert.Equal(t, apperr.CodeUnauthorized, errorCode(t, response))
}

type brokenStore struct{}

func (brokenStore) Increment(context.Context, string, time.Time, time.Duration) (int, time.Time, error) {
	return 0, time.Time{}, errors.New("redis: connection refused")
}

/*
TestDispatch_RateLimitStoreFailure lets requests through when the store is down.
*/
func TestDispatch_RateLimitStoreFailure(t *testing.T) {
	e := newEngineWith(t, func(func() time.Time) *ratelimit.Limiter {
		return ratelimit.New(ratelimit.Rules{"/register": {Window: time.Second, MaxRequests: 1}}, brokenStore{})
	})

	for range 3 {
		response := e.post("register", `{}`)
		assert.Equal(t, http.StatusBadRequest, response.Status)
		assert.Equal(t, apperr.CodeInvalidPayload, errorCode(t, response))
		assert.Empty(t, response.Header.Get("X-RateLimit-Limit"))
	}
}

/*
TestDispatch_AdapterFailure surfaces storage outages as INTERNAL_ERROR without leaking the cause.
*/
func TestDispatch_AdapterFailure(t *testing.T) {
	e := newEngine(t, nil)
	e.adapter.FailWith(errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	for _, response := range []auth.Response{
		e.post("register", validRegistration),
		e.post("login", `{"email":"a@b.com","password":"Abc123!"}`),
		e.get("@me", "sh_token"),
	} {
		assert.Equal(t, http.StatusInternalServerError, response.Status)
		body := decode(t, response)
		assert.Equal(t, apperr.CodeInternal, body["error"])
		assert.NotContains(t, body["message"], "10.0.0.5")
	}
}

/*
TestDispatch_DisabledUser refuses login and identity resolution for disabled accounts.
*/
func TestDispatch_DisabledUser(t *testing.T) {
	e := newEngine(t, nil)
	ctx := context.Background()

	hash, err := sec.NewHasher(sec.DefaultKeyLength).Hash("Abc123!", "saltsalt12")
	require.NoError(t, err)
	require.NoError(t, e.adapter.CreateUser(ctx, &auth.User{
		ID:           "user_disabled",
		Email:        "off@b.com",
		PasswordHash: hash,
		PasswordSalt: "saltsalt12",
		Flags:        auth.FlagDisabled.With(auth.FlagEmailVerified),
	}))
	require.NoError(t, e.adapter.StoreSession(ctx, &auth.Session{
		ID:          "session_disabled",
		AccessToken: "sh_disabled",
		UserID:      "user_disabled",
		ExpiresAt:   e.clock.Now().Add(time.Hour),
	}))

	// Wrong credentials are still reported as such.
	response := e.post("login", `{"email":"off@b.com","password":"Wrong1!"}`)
	assert.Equal(t, apperr.CodeInvalidPassword, errorCode(t, response))

	response = e.post("login", `{"email":"off@b.com","password":"Abc123!"}`)
	assert.Equal(t, http.StatusUnauthorized, response.Status)
	assert.Equal(t, 1, e.adapter.SessionCount())

	response = e.get("@me", "sh_disabled")
	assert.Equal(t, http.StatusUnauthorized, response.Status)
}
