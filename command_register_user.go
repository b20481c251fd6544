package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// DefaultVerificationTokenTTL bounds how long a freshly issued verification
// link stays valid.
const DefaultVerificationTokenTTL = 24 * time.Hour

type RegisterUserMessage struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	UseHashid bool

	OnRegistered func(resp *RegisterUserResponse)
}

func (e RegisterUserMessage) Type() string { return "user.register" }

type RegisterUserResponse struct {
	User  *User
	Token *VerificationToken
}

type RegisterUserHandler struct {
	repo     RepositoryManager
	mailer   Mailer
	policy   PasswordPolicy
	tokenTTL time.Duration
	baseURL  string
	sink     ActivitySink
	Logger   Logger
}

func NewRegisterUserHandler(repo RepositoryManager, mailer Mailer) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:     repo,
		mailer:   mailer,
		policy:   DefaultPasswordPolicy(),
		tokenTTL: DefaultVerificationTokenTTL,
		sink:     noopActivitySink{},
		Logger:   defLogger{},
	}
}

func (h *RegisterUserHandler) WithPasswordPolicy(policy PasswordPolicy) *RegisterUserHandler {
	h.policy = policy
	return h
}

func (h *RegisterUserHandler) WithTokenTTL(ttl time.Duration) *RegisterUserHandler {
	if ttl > 0 {
		h.tokenTTL = ttl
	}
	return h
}

func (h *RegisterUserHandler) WithBaseURL(baseURL string) *RegisterUserHandler {
	h.baseURL = baseURL
	return h
}

func (h *RegisterUserHandler) WithActivitySink(sink ActivitySink) *RegisterUserHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.Logger = logger
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	user := &User{}
	token := &VerificationToken{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := h.policy.Validate(event.Password); err != nil {
		return err
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		taken, err := h.repo.Users().EmailExistsTx(ctx, tx, event.Email)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
		}

		if taken {
			return ErrDuplicateEmail.WithMetadata(map[string]any{
				"email": event.Email,
			})
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = event.Email
		user.Phone = event.Phone
		user.FirstName = event.FirstName
		user.LastName = event.LastName
		user.Username = getUsername(event.Username, event.Email)
		user.Role = RoleRegular
		user.Verified = false
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			if IsDuplicateEmail(err) {
				return err
			}
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		token = NewVerificationToken(user, h.tokenTTL)
		if token, err = h.repo.VerificationTokens().CreateTx(ctx, tx, token); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create verification token")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	// Delivery happens outside the transaction and never blocks nor fails
	// the registration.
	go h.deliverVerificationMail(user, token)

	emitActivity(ctx, h.sink, h.Logger, ActivityEvent{
		EventType: ActivityEventUserRegistered,
		Actor:     ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:    user.ID.String(),
		Metadata: map[string]any{
			"email": user.Email,
		},
	})

	if event.OnRegistered != nil {
		event.OnRegistered(&RegisterUserResponse{
			User:  user,
			Token: token,
		})
	}

	return nil
}

func (h *RegisterUserHandler) deliverVerificationMail(user *User, token *VerificationToken) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	mail := VerificationMail{
		To:    user.Email,
		Name:  user.FullName(),
		Token: token.ID.String(),
		Link:  h.baseURL + "/verify/" + token.ID.String(),
	}

	if err := h.mailer.SendAccountVerification(ctx, mail); err != nil {
		h.Logger.Error("verification email delivery failed for %s: %v", user.Email, err)
	}
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	return usernameFromEmail(email)
}
