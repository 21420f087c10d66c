// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
	"github.com/taibuivan/gatekeeper/internal/platform/validate"
)

func ptr(s string) *string { return &s }

/*
TestIsEmail checks the email format rule.
*/
func TestIsEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		isValid bool
	}{
		{"valid_email", "test@example.com", true},
		{"plus_alias", "a+b@b.com", true},
		{"no_tld", "a@b", true},
		{"invalid_format", "invalid-email", false},
		{"missing_domain", "test@", false},
		{"missing_local", "@example.com", false},
		{"space_in_local", "te st@example.com", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isValid, validate.IsEmail(tt.email))

			v := &validate.Validator{}
			v.Email(tt.email)
			assert.Equal(t, !tt.isValid, v.HasErrors())
		})
	}
}

/*
TestValidator_Present rejects missing fields with INVALID_PAYLOAD.
*/
func TestValidator_Present(t *testing.T) {
	v := &validate.Validator{}
	err := v.Present(ptr("a@b.com"), nil).Err()

	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidPayload, apperr.As(err).Code)

	assert.NoError(t, (&validate.Validator{}).Present(ptr(""), ptr("x")).Err())
}

/*
TestValidator_Chain tests the fluent API (chaining multiple rules).
*/
func TestValidator_Chain(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Present(ptr("a@b.com"), ptr("Abc123!")).
		Email("a@b.com").
		Match("Abc123!", "Abc123!").
		Password("Abc123!", sec.DefaultPasswordRequirements).
		Err()

	assert.NoError(t, err)
	assert.False(t, v.HasErrors())
}

/*
TestValidator_Chain_FirstFailureWins checks that the earliest rule decides the code.
*/
func TestValidator_Chain_FirstFailureWins(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		confirm  string
		code     string
	}{
		{"email_before_mismatch", "bad", "Abc123!", "other", apperr.CodeInvalidEmail},
		{"mismatch_before_policy", "a@b.com", "short", "other", apperr.CodePasswordMismatch},
		{"policy_length", "a@b.com", "Ab1!", "Ab1!", string(sec.ErrPasswordTooShort)},
		{"policy_special", "a@b.com", "Abc1234", "Abc1234", string(sec.ErrPasswordMissingSpecial)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&validate.Validator{}).
				Email(tt.email).
				Match(tt.password, tt.confirm).
				Password(tt.password, sec.DefaultPasswordRequirements).
				Err()

			require.Error(t, err)
			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, tt.code, ae.Code)
			assert.Equal(t, 400, ae.HTTPStatus)
		})
	}
}
