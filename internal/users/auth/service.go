// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
	"github.com/taibuivan/gatekeeper/internal/platform/ctxutil"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
	"github.com/taibuivan/gatekeeper/internal/platform/validate"
	"github.com/taibuivan/gatekeeper/pkg/ids"
)

// # Contracts & Types

// Hasher derives and checks salted password hashes.
type Hasher interface {
	Hash(password, salt string) (string, error)
	Verify(password, salt, storedHash string) (bool, error)
}

// Service implements the register, login and who-am-i use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, registration,
// or login logic must be reviewed by the security team.
type Service struct {
	adapter      Adapter
	hasher       Hasher
	issuer       *Issuer
	ids          ids.Generator
	requirements sec.PasswordRequirements
	generateSalt func() (string, error)
	now          func() time.Time
	debug        bool
}

// ServiceOptions carries the collaborators of a [Service].
type ServiceOptions struct {
	Adapter      Adapter
	Hasher       Hasher
	Issuer       *Issuer
	IDs          ids.Generator
	Requirements sec.PasswordRequirements
	// Clock defaults to time.Now.
	Clock func() time.Time
	// Debug logs register/login outcomes at debug level.
	Debug bool
}

// NewService constructs a new [Service].
func NewService(options ServiceOptions) *Service {
	clock := options.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		adapter:      options.Adapter,
		hasher:       options.Hasher,
		issuer:       options.Issuer,
		ids:          options.IDs,
		requirements: options.Requirements,
		generateSalt: sec.GenerateSalt,
		now:          clock,
		debug:        options.Debug,
	}
}

// # Registration Flow

// RegisterInput holds a decoded registration body.
type RegisterInput struct {
	Email             string
	Password          string
	ConfirmedPassword string
}

/*
Register validates, hashes, and persists a brand new user, then opens a session.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *Session: The stored session
  - error: INVALID_EMAIL, PASSWORD_MISMATCH, PASSWORD_*, EMAIL_TAKEN or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*Session, error) {

	// Shape checks, in order: email, confirmation, policy.
	validator := &validate.Validator{}
	validator.
		Email(input.Email).
		Match(input.Password, input.ConfirmedPassword).
		Password(input.Password, service.requirements)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	// Verify email uniqueness before doing any hashing work.
	unique, err := service.adapter.IsEmailUnique(context, input.Email)
	if err != nil {
		return nil, fmt.Errorf("auth_service_unique_check_failed: %w", err)
	}
	if !unique {
		return nil, apperr.EmailTaken()
	}

	salt, err := service.generateSalt()
	if err != nil {
		return nil, fmt.Errorf("auth_service_salt_failed: %w", err)
	}

	hashedPassword, err := service.hasher.Hash(input.Password, salt)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	user := &User{
		ID:           service.ids.New(ids.KindUser),
		Email:        input.Email,
		PasswordHash: hashedPassword,
		PasswordSalt: salt,
		CreatedAt:    service.now(),
	}

	// A unique violation here (lost race) comes back as EMAIL_TAKEN from the adapter.
	if err := service.adapter.CreateUser(context, user); err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	session, err := service.openSession(context, user)
	if err != nil {
		return nil, err
	}

	service.logDebug(context, "user_registered", user, session)
	return session, nil
}

// # Login Flow

// LoginInput holds a decoded login body.
type LoginInput struct {
	Email    string
	Password string
}

/*
Login checks credentials and opens a new session.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *Session: The stored session
  - error: INVALID_EMAIL, USER_NOT_FOUND, INVALID_PASSWORD, UNAUTHORIZED or storage errors
*/
func (service *Service) Login(context context.Context, input LoginInput) (*Session, error) {
	if err := (&validate.Validator{}).Email(input.Email).Err(); err != nil {
		return nil, err
	}

	user, err := service.adapter.LocateUserByEmail(context, input.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.UserNotFound()
		}
		return nil, fmt.Errorf("auth_service_locate_user_failed: %w", err)
	}

	matches, err := service.hasher.Verify(input.Password, user.PasswordSalt, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("auth_service_verify_failed: %w", err)
	}
	if !matches {
		return nil, apperr.InvalidPassword()
	}

	if user.Flags.Has(FlagDisabled) {
		return nil, apperr.Unauthorized("Account is disabled")
	}

	session, err := service.openSession(context, user)
	if err != nil {
		return nil, err
	}

	service.recordLogin(context, user)
	service.logDebug(context, "user_logged_in", user, session)
	return session, nil
}

// # Identity Resolution

/*
WhoAmI resolves the user owning accessToken.

Parameters:
  - context: context.Context
  - accessToken: string

Returns:
  - *User: The owner of the session
  - error: UNAUTHORIZED if the token matches no live session
*/
func (service *Service) WhoAmI(context context.Context, accessToken string) (*User, error) {
	user, err := service.adapter.LocateUserByAccessToken(context, accessToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.Unauthorized("Session is invalid or expired")
		}
		return nil, fmt.Errorf("auth_service_locate_session_failed: %w", err)
	}

	if user.Flags.Has(FlagDisabled) {
		return nil, apperr.Unauthorized("Account is disabled")
	}

	return user, nil
}

// # Helpers

func (service *Service) openSession(context context.Context, user *User) (*Session, error) {
	session := service.issuer.Issue(user)
	if err := service.adapter.StoreSession(context, session); err != nil {
		return nil, fmt.Errorf("auth_service_store_session_failed: %w", err)
	}
	return session, nil
}

// recordLogin is best effort; the session is already stored.
func (service *Service) recordLogin(context context.Context, user *User) {
	recorder, ok := service.adapter.(LoginRecorder)
	if !ok {
		return
	}

	at := service.now()
	if err := recorder.RecordLogin(context, user.ID, at); err != nil {
		ctxutil.GetLogger(context).WarnContext(context, "record_login_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return
	}
	user.LastLogin = at
}

func (service *Service) logDebug(context context.Context, event string, user *User, session *Session) {
	if !service.debug {
		return
	}
	ctxutil.GetLogger(context).DebugContext(context, event,
		slog.String("user_id", user.ID),
		slog.String("session_id", session.ID),
		slog.Time("expires_at", session.ExpiresAt),
	)
}
