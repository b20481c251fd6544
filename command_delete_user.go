package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type DeleteUserMessage struct {
	Actor    Actor     `json:"-"`
	TargetID uuid.UUID `json:"target_id"`

	OnResponse func(resp *DeleteUserResponse)
}

func (e DeleteUserMessage) Type() string { return "user.delete" }

type DeleteUserResponse struct {
	Deleted bool
}

type DeleteUserHandler struct {
	repo   RepositoryManager
	sink   ActivitySink
	Logger Logger
}

func NewDeleteUserHandler(repo RepositoryManager) *DeleteUserHandler {
	return &DeleteUserHandler{
		repo:   repo,
		sink:   noopActivitySink{},
		Logger: defLogger{},
	}
}

func (h *DeleteUserHandler) WithActivitySink(sink ActivitySink) *DeleteUserHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *DeleteUserHandler) WithLogger(logger Logger) *DeleteUserHandler {
	if logger != nil {
		h.Logger = logger
	}
	return h
}

func (h *DeleteUserHandler) Execute(ctx context.Context, event DeleteUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user deletion",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *DeleteUserHandler) execute(ctx context.Context, event DeleteUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := Authorized(event.Actor, event.TargetID, OpDeleteAny); err != nil {
		return err
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return h.repo.Users().SoftDeleteTx(ctx, tx, event.TargetID)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user deletion transaction failed")
	}

	emitActivity(ctx, h.sink, h.Logger, ActivityEvent{
		EventType: ActivityEventUserDeleted,
		Actor:     ActorRef{ID: event.Actor.ID.String(), Type: "user"},
		UserID:    event.TargetID.String(),
	})

	if event.OnResponse != nil {
		event.OnResponse(&DeleteUserResponse{Deleted: true})
	}

	return nil
}
