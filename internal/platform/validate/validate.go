// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate provides a chainable Validator that stops at the first
// failing rule and reports it as a single [apperr.AppError].
//
// # Architecture
//
// This package is used exclusively in the service layer, never in handlers or
// storage. Rules run in the order they are chained, so the caller controls
// which violation wins when several apply.
package validate

import (
	"errors"
	"regexp"

	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
)

var (
	// emailRegex accepts a permissive local part followed by any non-empty domain.
	emailRegex = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@(.+)$`)

	// ErrInvalidJSON is returned when the request body cannot be decoded.
	ErrInvalidJSON = apperr.InvalidPayload()
)

// IsEmail reports whether value looks like an email address.
func IsEmail(value string) bool {
	return emailRegex.MatchString(value)
}

// Validator records the first failed rule via a fluent, chainable API.
//
// # Concurrency
//
// Validator is not safe for concurrent use. A new instance must be created
// for every request/operation.
type Validator struct {
	err *apperr.AppError
}

// Present fails with INVALID_PAYLOAD if any of the decoded fields is missing.
func (v *Validator) Present(fields ...*string) *Validator {
	for _, field := range fields {
		if field == nil {
			return v.fail(apperr.InvalidPayload())
		}
	}
	return v
}

// Email fails with INVALID_EMAIL if the value is not an email address.
func (v *Validator) Email(value string) *Validator {
	if !IsEmail(value) {
		return v.fail(apperr.InvalidEmail())
	}
	return v
}

// Match fails with PASSWORD_MISMATCH if the confirmation differs from the password.
func (v *Validator) Match(password, confirmation string) *Validator {
	if password != confirmation {
		return v.fail(apperr.PasswordMismatch())
	}
	return v
}

// Password fails with the policy code of the first requirement the value violates.
func (v *Validator) Password(value string, requirements sec.PasswordRequirements) *Validator {
	var policyErr sec.PolicyError
	if err := sec.CheckPassword(value, requirements); errors.As(err, &policyErr) {
		return v.fail(apperr.BadRequest(string(policyErr), policyErr.Message()))
	}
	return v
}

// Err returns the first recorded [apperr.AppError], or nil if all rules passed.
//
// This is the only output method. Call it at the end of the chain.
func (v *Validator) Err() error {
	if v.err == nil {
		return nil
	}
	return v.err
}

// HasErrors reports whether any validation rule has failed so far.
func (v *Validator) HasErrors() bool {
	return v.err != nil
}

// fail keeps the earliest failure; later rules are evaluated but ignored.
func (v *Validator) fail(err *apperr.AppError) *Validator {
	if v.err == nil {
		v.err = err
	}
	return v
}
