package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ChangePasswordMessage struct {
	Actor           Actor     `json:"-"`
	TargetID        uuid.UUID `json:"target_id"`
	CurrentPassword string    `json:"current_password"`
	NewPassword     string    `json:"new_password"`

	OnResponse func(resp *ChangePasswordResponse)
}

func (e ChangePasswordMessage) Type() string { return "user.change_password" }

type ChangePasswordResponse struct {
	User *User
}

type ChangePasswordHandler struct {
	repo   RepositoryManager
	policy PasswordPolicy
	sink   ActivitySink
	Logger Logger
}

func NewChangePasswordHandler(repo RepositoryManager) *ChangePasswordHandler {
	return &ChangePasswordHandler{
		repo:   repo,
		policy: DefaultPasswordPolicy(),
		sink:   noopActivitySink{},
		Logger: defLogger{},
	}
}

func (h *ChangePasswordHandler) WithPasswordPolicy(policy PasswordPolicy) *ChangePasswordHandler {
	h.policy = policy
	return h
}

func (h *ChangePasswordHandler) WithActivitySink(sink ActivitySink) *ChangePasswordHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *ChangePasswordHandler) WithLogger(logger Logger) *ChangePasswordHandler {
	if logger != nil {
		h.Logger = logger
	}
	return h
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	user := &User{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := Authorized(event.Actor, event.TargetID, OpChangePassword); err != nil {
		return err
	}

	if err := h.policy.Validate(event.NewPassword); err != nil {
		return err
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = h.repo.Users().GetByIDTx(ctx, tx, event.TargetID.String())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return err
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password change")
		}

		if err := ComparePasswordAndHash(event.CurrentPassword, user.PasswordHash); err != nil {
			return ErrMismatchedHashAndPassword
		}

		hash, err := HashPassword(event.NewPassword)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		if err := h.repo.Users().ChangePasswordTx(ctx, tx, user.ID, hash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist password change")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "password change transaction failed")
	}

	emitActivity(ctx, h.sink, h.Logger, ActivityEvent{
		EventType: ActivityEventPasswordChanged,
		Actor:     ActorRef{ID: event.Actor.ID.String(), Type: "user"},
		UserID:    user.ID.String(),
	})

	if event.OnResponse != nil {
		event.OnResponse(&ChangePasswordResponse{
			User: user,
		})
	}

	return nil
}
