// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the credential and session engine.

It defines the core domain entities (User, Session), the persistence contract
they travel through, and the action dispatcher that turns (method, action,
headers, body) into a uniform response.

# Architecture

Entities defined here have no storage dependencies. The engine never retains
a User beyond one request; durable state belongs to the [Adapter].
*/
package auth

import (
	"time"
)

// # User Flags

// UserFlag is a bit set of account states.
type UserFlag uint32

const (
	FlagDisabled UserFlag = 1 << iota
	FlagEmailVerified
	FlagTFAEnabled
	FlagAdministrator
)

// Has reports whether every bit of flag is set.
func (flags UserFlag) Has(flag UserFlag) bool {
	return flags&flag == flag
}

// With returns flags with flag set.
func (flags UserFlag) With(flag UserFlag) UserFlag {
	return flags | flag
}

// Without returns flags with flag cleared.
func (flags UserFlag) Without(flag UserFlag) UserFlag {
	return flags &^ flag
}

// # Domain Entities

// User is an identity record.
//
// PasswordHash and PasswordSalt never leave the process; use [User.Public]
// to build a response.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	PasswordSalt string
	Flags        UserFlag
	// LastLogin is zero until the first recorded login.
	LastLogin time.Time
	CreatedAt time.Time
}

// Session is a bearer credential pair bound to exactly one user.
type Session struct {
	ID           string
	AccessToken  string
	RefreshToken string
	UserID       string
	ExpiresAt    time.Time
}

// Expired reports whether the session is no longer valid at now.
func (session *Session) Expired(now time.Time) bool {
	return !now.Before(session.ExpiresAt)
}

// # Wire Shapes

// PublicUser is a User with its secrets removed.
type PublicUser struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName,omitempty"`
	Flags       UserFlag `json:"flags"`
	LastLogin   int64    `json:"lastLogin,omitempty"`
	Created     int64    `json:"created"`
}

// PublicSession is a Session with internal identifiers removed.
// Expires is Unix milliseconds.
type PublicSession struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Expires      int64  `json:"expires"`
}

// Public strips the password hash and salt.
func (user *User) Public() PublicUser {
	public := PublicUser{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Flags:       user.Flags,
		Created:     user.CreatedAt.UnixMilli(),
	}
	if !user.LastLogin.IsZero() {
		public.LastLogin = user.LastLogin.UnixMilli()
	}
	return public
}

// Public strips the session id and owning user id.
func (session *Session) Public() PublicSession {
	return PublicSession{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		Expires:      session.ExpiresAt.UnixMilli(),
	}
}
