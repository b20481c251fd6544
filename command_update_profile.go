package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// UpdateProfileMessage describes a partial profile edit. Nil fields are
// left untouched; Role, Verified, and Active require an admin actor.
type UpdateProfileMessage struct {
	Actor    Actor     `json:"-"`
	TargetID uuid.UUID `json:"target_id"`

	FirstName      *string    `json:"first_name"`
	LastName       *string    `json:"last_name"`
	Username       *string    `json:"username"`
	Phone          *string    `json:"phone"`
	Bio            *string    `json:"bio"`
	BirthDate      *time.Time `json:"birth_date"`
	ProfilePicture *string    `json:"profile_picture"`

	Role     *string `json:"role"`
	Verified *bool   `json:"verified"`
	Active   *bool   `json:"active"`

	OnResponse func(resp *UpdateProfileResponse)
}

func (e UpdateProfileMessage) Type() string { return "user.update_profile" }

type UpdateProfileResponse struct {
	User *User
}

type UpdateProfileHandler struct {
	repo   RepositoryManager
	region string
	sink   ActivitySink
	Logger Logger
}

func NewUpdateProfileHandler(repo RepositoryManager) *UpdateProfileHandler {
	return &UpdateProfileHandler{
		repo:   repo,
		region: "US",
		sink:   noopActivitySink{},
		Logger: defLogger{},
	}
}

// WithPhoneRegion sets the default region used to parse phone numbers
// given without a country prefix.
func (h *UpdateProfileHandler) WithPhoneRegion(region string) *UpdateProfileHandler {
	if region != "" {
		h.region = region
	}
	return h
}

func (h *UpdateProfileHandler) WithActivitySink(sink ActivitySink) *UpdateProfileHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *UpdateProfileHandler) WithLogger(logger Logger) *UpdateProfileHandler {
	if logger != nil {
		h.Logger = logger
	}
	return h
}

func (h *UpdateProfileHandler) Execute(ctx context.Context, event UpdateProfileMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during profile update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateProfileHandler) execute(ctx context.Context, event UpdateProfileMessage) error {
	user := &User{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	op := OpEditSelf
	if event.Actor.ID != event.TargetID {
		op = OpEditAny
	}

	if err := Authorized(event.Actor, event.TargetID, op); err != nil {
		return err
	}

	if event.touchesAdminFields() {
		if err := Authorized(event.Actor, event.TargetID, OpChangeRole); err != nil {
			return err
		}
	}

	if err := h.validate(event); err != nil {
		return err
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = h.repo.Users().GetByIDTx(ctx, tx, event.TargetID.String())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return err
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for profile update")
		}

		applyProfileChanges(user, event, h.region)

		if user, err = h.repo.Users().UpdateTx(ctx, tx, user, repository.UpdateByID(user.ID.String())); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist profile update")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "profile update transaction failed")
	}

	emitActivity(ctx, h.sink, h.Logger, ActivityEvent{
		EventType: ActivityEventProfileUpdated,
		Actor:     ActorRef{ID: event.Actor.ID.String(), Type: "user"},
		UserID:    user.ID.String(),
		Metadata: map[string]any{
			"fields": event.changedFields(),
		},
	})

	if event.OnResponse != nil {
		event.OnResponse(&UpdateProfileResponse{
			User: user,
		})
	}

	return nil
}

func (h *UpdateProfileHandler) validate(event UpdateProfileMessage) error {
	fields := []*validation.FieldRules{}

	if event.FirstName != nil {
		fields = append(fields, validation.Field(&event.FirstName, validation.Length(0, 100)))
	}

	if event.LastName != nil {
		fields = append(fields, validation.Field(&event.LastName, validation.Length(0, 100)))
	}

	if event.Username != nil {
		fields = append(fields, validation.Field(&event.Username, validation.Required, validation.Length(3, 60)))
	}

	if event.Bio != nil {
		fields = append(fields, validation.Field(&event.Bio, validation.Length(0, 500)))
	}

	if event.Phone != nil && *event.Phone != "" {
		fields = append(fields, validation.Field(&event.Phone, validation.By(func(any) error {
			num, err := phonenumbers.Parse(*event.Phone, h.region)
			if err != nil {
				return err
			}
			if !phonenumbers.IsValidNumber(num) {
				return validation.NewError("validation_phone", "must be a valid phone number")
			}
			return nil
		})))
	}

	if event.Role != nil {
		fields = append(fields, validation.Field(&event.Role, validation.By(func(any) error {
			if !IsValidRole(*event.Role) {
				return validation.NewError("validation_role", "must be a valid role")
			}
			return nil
		})))
	}

	if err := validation.ValidateStruct(&event, fields...); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid profile values").
			WithTextCode(TextCodeValidationError)
	}

	return nil
}

func (e UpdateProfileMessage) touchesAdminFields() bool {
	return e.Role != nil || e.Verified != nil || e.Active != nil
}

func (e UpdateProfileMessage) changedFields() []string {
	fields := []string{}
	if e.FirstName != nil {
		fields = append(fields, "first_name")
	}
	if e.LastName != nil {
		fields = append(fields, "last_name")
	}
	if e.Username != nil {
		fields = append(fields, "username")
	}
	if e.Phone != nil {
		fields = append(fields, "phone")
	}
	if e.Bio != nil {
		fields = append(fields, "bio")
	}
	if e.BirthDate != nil {
		fields = append(fields, "birth_date")
	}
	if e.ProfilePicture != nil {
		fields = append(fields, "profile_picture")
	}
	if e.Role != nil {
		fields = append(fields, "role")
	}
	if e.Verified != nil {
		fields = append(fields, "is_verified")
	}
	if e.Active != nil {
		fields = append(fields, "is_active")
	}
	return fields
}

func applyProfileChanges(user *User, event UpdateProfileMessage, region string) {
	if event.FirstName != nil {
		user.FirstName = *event.FirstName
	}
	if event.LastName != nil {
		user.LastName = *event.LastName
	}
	if event.Username != nil {
		user.Username = *event.Username
	}
	if event.Phone != nil {
		user.Phone = formatPhone(*event.Phone, region)
	}
	if event.Bio != nil {
		user.Bio = *event.Bio
	}
	if event.BirthDate != nil {
		user.BirthDate = event.BirthDate
	}
	if event.ProfilePicture != nil {
		user.ProfilePicture = *event.ProfilePicture
	}
	if event.Role != nil {
		user.Role = *event.Role
	}
	if event.Verified != nil {
		user.Verified = *event.Verified
	}
	if event.Active != nil {
		user.Active = *event.Active
	}
}

// formatPhone normalizes to E164 when the value parses, otherwise keeps
// the raw input. Validation has already run by the time this is called.
func formatPhone(phone, region string) string {
	if phone == "" {
		return ""
	}
	if num, err := phonenumbers.Parse(phone, region); err == nil {
		return phonenumbers.Format(num, phonenumbers.E164)
	}
	return phone
}
