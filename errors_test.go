package accounts_test

import (
	"errors"
	"fmt"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
)

func TestSentinelErrorCategories(t *testing.T) {
	tests := []struct {
		name     string
		err      *goerrors.Error
		category goerrors.Category
		textCode string
	}{
		{
			name:     "invalid credentials",
			err:      accounts.ErrMismatchedHashAndPassword,
			category: goerrors.CategoryAuth,
			textCode: accounts.TextCodeInvalidCreds,
		},
		{
			name:     "unverified account",
			err:      accounts.ErrAccountUnverified,
			category: goerrors.CategoryAuth,
			textCode: accounts.TextCodeAccountUnverified,
		},
		{
			name:     "inactive account",
			err:      accounts.ErrAccountInactive,
			category: goerrors.CategoryAuth,
			textCode: accounts.TextCodeAccountInactive,
		},
		{
			name:     "duplicate email",
			err:      accounts.ErrDuplicateEmail,
			category: goerrors.CategoryConflict,
			textCode: accounts.TextCodeDuplicateEmail,
		},
		{
			name:     "weak password",
			err:      accounts.ErrWeakPassword,
			category: goerrors.CategoryValidation,
			textCode: accounts.TextCodeWeakPassword,
		},
		{
			name:     "verification failed",
			err:      accounts.ErrVerificationFailed,
			category: goerrors.CategoryBadInput,
			textCode: accounts.TextCodeVerificationFailed,
		},
		{
			name:     "authorization denied",
			err:      accounts.ErrAuthorizationDenied,
			category: goerrors.CategoryAuthz,
			textCode: accounts.TextCodeAuthorizationDenied,
		},
		{
			name:     "too many attempts",
			err:      accounts.ErrTooManyLoginAttempts,
			category: goerrors.CategoryRateLimit,
			textCode: accounts.TextCodeTooManyAttempts,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, tt.err.Category)
			assert.Equal(t, tt.textCode, tt.err.TextCode)
		})
	}
}

func TestIsDuplicateEmail(t *testing.T) {
	assert.False(t, accounts.IsDuplicateEmail(nil))
	assert.False(t, accounts.IsDuplicateEmail(errors.New("boom")))
	assert.False(t, accounts.IsDuplicateEmail(accounts.ErrWeakPassword))

	assert.True(t, accounts.IsDuplicateEmail(accounts.ErrDuplicateEmail))
	assert.True(t, accounts.IsDuplicateEmail(accounts.ErrDuplicateEmail.WithMetadata(map[string]any{
		"email": "user@example.com",
	})))
}

func TestIsTokenExpiredError(t *testing.T) {
	assert.False(t, accounts.IsTokenExpiredError(nil))
	assert.False(t, accounts.IsTokenExpiredError(errors.New("boom")))
	assert.True(t, accounts.IsTokenExpiredError(accounts.ErrTokenExpired))
	assert.True(t, accounts.IsTokenExpiredError(fmt.Errorf("wrapped: %w", accounts.ErrTokenExpired)))
}

func TestIsMalformedError(t *testing.T) {
	assert.False(t, accounts.IsMalformedError(nil))
	assert.False(t, accounts.IsMalformedError(errors.New("boom")))
	assert.True(t, accounts.IsMalformedError(accounts.ErrTokenMalformed))
	assert.True(t, accounts.IsMalformedError(errors.New("missing or malformed JWT")))
}
