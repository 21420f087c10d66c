// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import "unicode/utf8"

// # Password Policy

// PasswordRequirements configures the strength rules for new passwords.
// The value is built once at startup and never mutated.
type PasswordRequirements struct {
	MinLength         int
	MaxLength         int
	RequireAlphabetic bool
	RequireNumeric    bool
	RequireSpecial    bool
}

// DefaultPasswordRequirements is applied when no overrides are configured.
var DefaultPasswordRequirements = PasswordRequirements{
	MinLength:         6,
	MaxLength:         128,
	RequireAlphabetic: true,
	RequireNumeric:    true,
	RequireSpecial:    true,
}

// PolicyError is a password policy violation. Its value is the wire error code.
type PolicyError string

const (
	ErrPasswordTooShort        PolicyError = "PASSWORD_TOO_SHORT"
	ErrPasswordTooLong         PolicyError = "PASSWORD_TOO_LONG"
	ErrPasswordMissingAlphabet PolicyError = "PASSWORD_MISSING_ALPHABET"
	ErrPasswordMissingNumeric  PolicyError = "PASSWORD_MISSING_NUMERIC"
	ErrPasswordMissingSpecial  PolicyError = "PASSWORD_MISSING_SPECIAL"
)

// Error implements the error interface.
func (e PolicyError) Error() string { return string(e) }

// Message returns a client-facing description of the violation.
func (e PolicyError) Message() string {
	switch e {
	case ErrPasswordTooShort:
		return "Password is shorter than the minimum length"
	case ErrPasswordTooLong:
		return "Password is longer than the maximum length"
	case ErrPasswordMissingAlphabet:
		return "Password must contain at least one letter"
	case ErrPasswordMissingNumeric:
		return "Password must contain at least one digit"
	case ErrPasswordMissingSpecial:
		return "Password must contain at least one special character"
	default:
		return "Password does not meet the requirements"
	}
}

/*
CheckPassword validates password against requirements.

Length is checked first. Character classes are then checked in the fixed order
alphabetic, numeric, special, and only the first violation is reported.

Returns:
  - nil if the password is acceptable
  - a [PolicyError] otherwise
*/
func CheckPassword(password string, requirements PasswordRequirements) error {
	normalized := NormalizePassword(password)
	length := utf8.RuneCountInString(normalized)

	if length < requirements.MinLength {
		return ErrPasswordTooShort
	}
	if requirements.MaxLength > 0 && length > requirements.MaxLength {
		return ErrPasswordTooLong
	}

	var hasAlphabetic, hasNumeric, hasSpecial bool
	for _, char := range normalized {
		switch {
		case (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z'):
			hasAlphabetic = true
		case char >= '0' && char <= '9':
			hasNumeric = true
		default:
			hasSpecial = true
		}
	}

	if requirements.RequireAlphabetic && !hasAlphabetic {
		return ErrPasswordMissingAlphabet
	}
	if requirements.RequireNumeric && !hasNumeric {
		return ErrPasswordMissingNumeric
	}
	if requirements.RequireSpecial && !hasSpecial {
		return ErrPasswordMissingSpecial
	}

	return nil
}
