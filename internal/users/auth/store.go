// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"

	"github.com/taibuivan/gatekeeper/internal/platform/dberr"
)

// ErrNotFound is returned by an [Adapter] when a lookup matches nothing.
var ErrNotFound = dberr.ErrNotFound

// # Persistence Contract

// Adapter is the durable-state contract the engine calls.
//
// Calls are made sequentially within a request. Any error other than
// [ErrNotFound] or an [apperr.AppError] is reported to the client as
// INTERNAL_ERROR.
type Adapter interface {

	/*
		Connect verifies the backing store is reachable.

		Parameters:
		  - context: context.Context

		Returns:
		  - error: Connectivity failures
	*/
	Connect(context context.Context) error

	/*
		LocateUserByAccessToken resolves the owner of an unexpired session.

		Parameters:
		  - context: context.Context
		  - accessToken: string

		Returns:
		  - *User: Hydrated entity
		  - error: ErrNotFound if no live session carries the token
	*/
	LocateUserByAccessToken(context context.Context, accessToken string) (*User, error)

	/*
		LocateUserByEmail returns the account registered under email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: ErrNotFound if absent
	*/
	LocateUserByEmail(context context.Context, email string) (*User, error)

	/*
		IsEmailUnique reports whether no account uses email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - bool: true when the email is free
		  - error: Database retrieval failures
	*/
	IsEmailUnique(context context.Context, email string) (bool, error)

	/*
		CreateUser persists a brand-new user.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Persistence failures; apperr EMAIL_TAKEN when the email index rejects the row
	*/
	CreateUser(context context.Context, user *User) error

	/*
		StoreSession persists an issued session.

		Parameters:
		  - context: context.Context
		  - session: *Session

		Returns:
		  - error: Persistence failures
	*/
	StoreSession(context context.Context, session *Session) error
}

// # Optional Capabilities

// LoginRecorder is implemented by adapters that track the last login time.
type LoginRecorder interface {
	RecordLogin(context context.Context, userID string, at time.Time) error
}

// SessionPurger is implemented by adapters that can delete expired sessions.
type SessionPurger interface {
	PurgeExpiredSessions(context context.Context, now time.Time) (int64, error)
}
