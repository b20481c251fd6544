package accounts_test

import (
	"testing"

	accounts "github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorize(t *testing.T) {
	selfID := uuid.New()
	otherID := uuid.New()

	admin := accounts.Actor{ID: uuid.New(), Role: accounts.RoleAdmin, Verified: true}
	verified := accounts.Actor{ID: selfID, Role: accounts.RoleRegular, Verified: true}
	unverified := accounts.Actor{ID: selfID, Role: accounts.RoleRegular, Verified: false}

	tests := []struct {
		name   string
		actor  accounts.Actor
		target uuid.UUID
		op     accounts.Operation
		want   accounts.Decision
	}{
		{
			name:   "anonymous actor is denied",
			actor:  accounts.Actor{},
			target: selfID,
			op:     accounts.OpViewSelf,
			want:   accounts.Deny,
		},
		{
			name:   "admin views any profile",
			actor:  admin,
			target: otherID,
			op:     accounts.OpViewAny,
			want:   accounts.Permit,
		},
		{
			name:   "admin edits any profile",
			actor:  admin,
			target: otherID,
			op:     accounts.OpEditAny,
			want:   accounts.Permit,
		},
		{
			name:   "admin lists users",
			actor:  admin,
			target: uuid.Nil,
			op:     accounts.OpListAll,
			want:   accounts.Permit,
		},
		{
			name:   "admin changes roles",
			actor:  admin,
			target: otherID,
			op:     accounts.OpChangeRole,
			want:   accounts.Permit,
		},
		{
			name:   "admin deletes accounts",
			actor:  admin,
			target: otherID,
			op:     accounts.OpDeleteAny,
			want:   accounts.Permit,
		},
		{
			name:   "verified user views own profile",
			actor:  verified,
			target: selfID,
			op:     accounts.OpViewSelf,
			want:   accounts.Permit,
		},
		{
			name:   "verified user edits own profile",
			actor:  verified,
			target: selfID,
			op:     accounts.OpEditSelf,
			want:   accounts.Permit,
		},
		{
			name:   "verified user changes own password",
			actor:  verified,
			target: selfID,
			op:     accounts.OpChangePassword,
			want:   accounts.Permit,
		},
		{
			name:   "verified user cannot touch another profile",
			actor:  verified,
			target: otherID,
			op:     accounts.OpEditSelf,
			want:   accounts.Deny,
		},
		{
			name:   "verified user cannot list users",
			actor:  verified,
			target: uuid.Nil,
			op:     accounts.OpListAll,
			want:   accounts.Deny,
		},
		{
			name:   "verified user cannot delete accounts",
			actor:  verified,
			target: otherID,
			op:     accounts.OpDeleteAny,
			want:   accounts.Deny,
		},
		{
			name:   "verified user cannot change roles",
			actor:  verified,
			target: selfID,
			op:     accounts.OpChangeRole,
			want:   accounts.Deny,
		},
		{
			name:   "unverified user is denied even on own profile",
			actor:  unverified,
			target: selfID,
			op:     accounts.OpViewSelf,
			want:   accounts.Deny,
		},
		{
			name:   "unknown role is denied",
			actor:  accounts.Actor{ID: selfID, Role: "superuser", Verified: true},
			target: selfID,
			op:     accounts.OpViewSelf,
			want:   accounts.Deny,
		},
		{
			name:   "nil target denies self scoped operations",
			actor:  verified,
			target: uuid.Nil,
			op:     accounts.OpViewSelf,
			want:   accounts.Deny,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := accounts.Authorize(tt.actor, tt.target, tt.op)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthorized(t *testing.T) {
	selfID := uuid.New()

	t.Run("permit returns nil", func(t *testing.T) {
		actor := accounts.Actor{ID: selfID, Role: accounts.RoleRegular, Verified: true}
		err := accounts.Authorized(actor, selfID, accounts.OpViewSelf)
		assert.NoError(t, err)
	})

	t.Run("deny returns the generic authorization error", func(t *testing.T) {
		actor := accounts.Actor{ID: selfID, Role: accounts.RoleRegular, Verified: true}
		err := accounts.Authorized(actor, uuid.New(), accounts.OpEditSelf)
		require.Error(t, err)

		var richErr *goerrors.Error
		require.True(t, goerrors.As(err, &richErr))
		assert.Equal(t, goerrors.CategoryAuthz, richErr.Category)
		assert.Equal(t, accounts.TextCodeAuthorizationDenied, richErr.TextCode)
		assert.Contains(t, richErr.Metadata, "operation")
	})
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "permit", accounts.Permit.String())
	assert.Equal(t, "deny", accounts.Deny.String())
}
