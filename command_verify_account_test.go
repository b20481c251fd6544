package accounts_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func pendingToken(userID uuid.UUID, ttl time.Duration) *accounts.VerificationToken {
	expires := time.Now().Add(ttl)
	return &accounts.VerificationToken{
		ID:        uuid.New(),
		UserID:    &userID,
		Email:     "user@example.com",
		Status:    accounts.TokenPending,
		ExpiresAt: &expires,
	}
}

func TestVerifyAccountHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("malformed token is rejected without storage work", func(t *testing.T) {
		repo := &MockRepositoryManager{}

		sink := &MockActivitySink{}
		sink.On("Record", mock.Anything, mock.MatchedBy(func(evt accounts.ActivityEvent) bool {
			return evt.EventType == accounts.ActivityEventVerificationFail &&
				evt.Metadata["reason"] == string(accounts.VerificationReasonInvalid)
		})).Return(nil).Once()

		handler := accounts.NewVerifyAccountHandler(repo).
			WithLogger(testLogger{}).
			WithActivitySink(sink)

		err := handler.Execute(ctx, accounts.VerifyAccountMessage{Token: "not-a-uuid"})
		assert.Equal(t, accounts.ErrVerificationFailed, err)

		repo.AssertNotCalled(t, "RunInTx", mock.Anything, mock.Anything, mock.Anything)
		sink.AssertExpectations(t)
	})

	t.Run("valid pending token marks the user verified", func(t *testing.T) {
		userID := uuid.New()
		token := pendingToken(userID, time.Hour)

		verified := &accounts.User{
			ID:       userID,
			Email:    token.Email,
			Role:     accounts.RoleRegular,
			Verified: true,
			Active:   true,
		}

		tokens := &MockVerificationTokens{}
		tokens.On("ConsumeTx", mock.Anything, mock.Anything, token.ID).
			Return(token, nil).Once()

		users := &MockUsers{}
		users.On("MarkVerifiedTx", mock.Anything, mock.Anything, userID).
			Return(verified, nil).Once()

		repo := &MockRepositoryManager{}
		repo.On("Users").Return(users)
		repo.On("VerificationTokens").Return(tokens)
		repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
			Return(nil).
			Run(func(args mock.Arguments) {
				fn := args.Get(2).(func(context.Context, bun.Tx) error)
				var tx bun.Tx
				require.NoError(t, fn(args.Get(0).(context.Context), tx))
			}).Once()

		sink := &MockActivitySink{}
		sink.On("Record", mock.Anything, mock.MatchedBy(func(evt accounts.ActivityEvent) bool {
			return evt.EventType == accounts.ActivityEventUserVerified &&
				evt.UserID == userID.String()
		})).Return(nil).Once()

		var response *accounts.VerifyAccountResponse

		handler := accounts.NewVerifyAccountHandler(repo).
			WithLogger(testLogger{}).
			WithActivitySink(sink)

		err := handler.Execute(ctx, accounts.VerifyAccountMessage{
			Token: token.ID.String(),
			OnResponse: func(resp *accounts.VerifyAccountResponse) {
				response = resp
			},
		})

		require.NoError(t, err)
		require.NotNil(t, response)
		assert.Equal(t, verified, response.User)

		repo.AssertExpectations(t)
		users.AssertExpectations(t)
		tokens.AssertExpectations(t)
		sink.AssertExpectations(t)
	})

	t.Run("already used token yields the generic failure", func(t *testing.T) {
		userID := uuid.New()
		used := pendingToken(userID, time.Hour)
		used.Status = accounts.TokenUsed

		tokens := &MockVerificationTokens{}
		tokens.On("ConsumeTx", mock.Anything, mock.Anything, used.ID).
			Return(nil, repository.NewRecordNotFound()).Once()
		tokens.On("GetByIDTx", mock.Anything, mock.Anything, used.ID.String(), mock.Anything).
			Return(used, nil).Once()

		repo := &MockRepositoryManager{}
		repo.On("VerificationTokens").Return(tokens)
		repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
			Return(accounts.ErrVerificationFailed).
			Run(func(args mock.Arguments) {
				fn := args.Get(2).(func(context.Context, bun.Tx) error)
				var tx bun.Tx
				assert.Equal(t, accounts.ErrVerificationFailed, fn(args.Get(0).(context.Context), tx))
			}).Once()

		sink := &MockActivitySink{}
		sink.On("Record", mock.Anything, mock.MatchedBy(func(evt accounts.ActivityEvent) bool {
			return evt.EventType == accounts.ActivityEventVerificationFail &&
				evt.Metadata["reason"] == string(accounts.VerificationReasonUsed)
		})).Return(nil).Once()

		handler := accounts.NewVerifyAccountHandler(repo).
			WithLogger(testLogger{}).
			WithActivitySink(sink)

		err := handler.Execute(ctx, accounts.VerifyAccountMessage{Token: used.ID.String()})
		assert.Equal(t, accounts.ErrVerificationFailed, err)

		repo.AssertExpectations(t)
		tokens.AssertExpectations(t)
		sink.AssertExpectations(t)
	})

	t.Run("unknown token yields the generic failure", func(t *testing.T) {
		tokenID := uuid.New()

		tokens := &MockVerificationTokens{}
		tokens.On("ConsumeTx", mock.Anything, mock.Anything, tokenID).
			Return(nil, repository.NewRecordNotFound()).Once()
		tokens.On("GetByIDTx", mock.Anything, mock.Anything, tokenID.String(), mock.Anything).
			Return(nil, repository.NewRecordNotFound()).Once()

		repo := &MockRepositoryManager{}
		repo.On("VerificationTokens").Return(tokens)
		repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
			Return(accounts.ErrVerificationFailed).
			Run(func(args mock.Arguments) {
				fn := args.Get(2).(func(context.Context, bun.Tx) error)
				var tx bun.Tx
				assert.Equal(t, accounts.ErrVerificationFailed, fn(args.Get(0).(context.Context), tx))
			}).Once()

		sink := &MockActivitySink{}
		sink.On("Record", mock.Anything, mock.MatchedBy(func(evt accounts.ActivityEvent) bool {
			return evt.EventType == accounts.ActivityEventVerificationFail &&
				evt.Metadata["reason"] == string(accounts.VerificationReasonInvalid)
		})).Return(nil).Once()

		handler := accounts.NewVerifyAccountHandler(repo).
			WithLogger(testLogger{}).
			WithActivitySink(sink)

		err := handler.Execute(ctx, accounts.VerifyAccountMessage{Token: tokenID.String()})
		assert.Equal(t, accounts.ErrVerificationFailed, err)

		repo.AssertExpectations(t)
		tokens.AssertExpectations(t)
		sink.AssertExpectations(t)
	})

	t.Run("expired token yields the generic failure", func(t *testing.T) {
		userID := uuid.New()
		expired := pendingToken(userID, -time.Hour)

		tokens := &MockVerificationTokens{}
		tokens.On("ConsumeTx", mock.Anything, mock.Anything, expired.ID).
			Return(expired, nil).Once()

		repo := &MockRepositoryManager{}
		repo.On("VerificationTokens").Return(tokens)
		repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
			Return(accounts.ErrVerificationFailed).
			Run(func(args mock.Arguments) {
				fn := args.Get(2).(func(context.Context, bun.Tx) error)
				var tx bun.Tx
				assert.Equal(t, accounts.ErrVerificationFailed, fn(args.Get(0).(context.Context), tx))
			}).Once()

		sink := &MockActivitySink{}
		sink.On("Record", mock.Anything, mock.MatchedBy(func(evt accounts.ActivityEvent) bool {
			return evt.EventType == accounts.ActivityEventVerificationFail &&
				evt.Metadata["reason"] == string(accounts.VerificationReasonExpired)
		})).Return(nil).Once()

		handler := accounts.NewVerifyAccountHandler(repo).
			WithLogger(testLogger{}).
			WithActivitySink(sink)

		err := handler.Execute(ctx, accounts.VerifyAccountMessage{Token: expired.ID.String()})
		assert.Equal(t, accounts.ErrVerificationFailed, err)

		repo.AssertExpectations(t)
		tokens.AssertExpectations(t)
		sink.AssertExpectations(t)
	})
}
