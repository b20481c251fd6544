package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type VerifyAccountMessage struct {
	Token      string `json:"token"`
	OnResponse func(resp *VerifyAccountResponse)
}

func (e VerifyAccountMessage) Type() string { return "user.verify_account" }

type VerifyAccountResponse struct {
	User *User
}

type VerifyAccountHandler struct {
	repo   RepositoryManager
	sink   ActivitySink
	Logger Logger
}

func NewVerifyAccountHandler(repo RepositoryManager) *VerifyAccountHandler {
	return &VerifyAccountHandler{
		repo:   repo,
		sink:   noopActivitySink{},
		Logger: defLogger{},
	}
}

func (h *VerifyAccountHandler) WithActivitySink(sink ActivitySink) *VerifyAccountHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *VerifyAccountHandler) WithLogger(logger Logger) *VerifyAccountHandler {
	if logger != nil {
		h.Logger = logger
	}
	return h
}

func (h *VerifyAccountHandler) Execute(ctx context.Context, event VerifyAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyAccountHandler) execute(ctx context.Context, event VerifyAccountMessage) error {
	user := &User{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	tokenID, err := uuid.Parse(event.Token)
	if err != nil {
		return h.fail(ctx, event.Token, VerificationReasonInvalid)
	}

	var reason VerificationFailureReason

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		token, err := h.repo.VerificationTokens().ConsumeTx(ctx, tx, tokenID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				reason = h.classifyMiss(ctx, tx, tokenID)
				return ErrVerificationFailed
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume verification token")
		}

		if token.Expired(time.Now()) {
			// returning aborts the transaction so the consume is rolled
			// back; the expiry check keeps blocking redemption anyway
			reason = VerificationReasonExpired
			return ErrVerificationFailed
		}

		if token.UserID == nil {
			reason = VerificationReasonInvalid
			return ErrVerificationFailed
		}

		user, err = h.repo.Users().MarkVerifiedTx(ctx, tx, *token.UserID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				reason = VerificationReasonInvalid
				return ErrVerificationFailed
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark user verified")
		}

		return nil
	})

	if err != nil {
		if goerrors.Is(err, ErrVerificationFailed) {
			return h.fail(ctx, event.Token, reason)
		}

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account verification transaction failed")
	}

	emitActivity(ctx, h.sink, h.Logger, ActivityEvent{
		EventType: ActivityEventUserVerified,
		Actor:     ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:    user.ID.String(),
		Metadata: map[string]any{
			"email": user.Email,
		},
	})

	if event.OnResponse != nil {
		event.OnResponse(&VerifyAccountResponse{
			User: user,
		})
	}

	return nil
}

// classifyMiss distinguishes, for logging only, an unknown token from one
// that was already redeemed.
func (h *VerifyAccountHandler) classifyMiss(ctx context.Context, tx bun.IDB, tokenID uuid.UUID) VerificationFailureReason {
	token, err := h.repo.VerificationTokens().GetByIDTx(ctx, tx, tokenID.String())
	if err != nil {
		return VerificationReasonInvalid
	}

	if token.Status == TokenUsed {
		return VerificationReasonUsed
	}

	return VerificationReasonInvalid
}

func (h *VerifyAccountHandler) fail(ctx context.Context, rawToken string, reason VerificationFailureReason) error {
	h.Logger.Warn("account verification rejected: reason=%s", reason)

	emitActivity(ctx, h.sink, h.Logger, ActivityEvent{
		EventType: ActivityEventVerificationFail,
		Metadata: map[string]any{
			"reason": string(reason),
			"token":  rawToken,
		},
	})

	return ErrVerificationFailed
}
