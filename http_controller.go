package accounts

import (
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/google/uuid"
)

type Middleware interface {
	ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc
}

// GetRouterSession retrieves the session that ProtectedRoute stored in the
// request locals.
func GetRouterSession(c router.Context, key string) (*SessionObject, error) {
	raw := c.Locals(key)
	if raw == nil {
		return nil, ErrUnableToFindSession
	}

	session, ok := raw.(*SessionObject)
	if !ok || session == nil {
		return nil, ErrUnableToDecodeSession
	}

	return session, nil
}

// AdminUsersPerPage is how many records the admin user listing shows per page.
const AdminUsersPerPage = 10

func RegisterAccountRoutes[T any](app router.Router[T], protected router.MiddlewareFunc, opts ...AccountsControllerOption) {

	controller := NewAccountsController(opts...)

	app.
		Get(controller.Routes.Login, controller.LoginShow).
		SetName("sign-in.get")

	app.
		Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")

	app.Get(controller.Routes.Register, controller.RegistrationShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")

	app.Get(fmt.Sprintf("%s/:token", controller.Routes.Verify), controller.VerifyAccount).
		SetName("verify.get")

	app.Get(controller.Routes.Profile, controller.ProfileShow, protected).
		SetName("profile.get")
	app.Get(fmt.Sprintf("%s/:uuid", controller.Routes.Profile), controller.ProfileShow, protected).
		SetName("profile-view.get")
	app.Get(fmt.Sprintf("%s/:uuid/edit", controller.Routes.Profile), controller.ProfileEditShow, protected).
		SetName("profile-edit.get")
	app.Post(fmt.Sprintf("%s/:uuid/edit", controller.Routes.Profile), controller.ProfileEditPost, protected).
		SetName("profile-edit.post")

	app.Get(controller.Routes.Password, controller.PasswordChangeShow, protected).
		SetName("password.get")
	app.Post(controller.Routes.Password, controller.PasswordChangePost, protected).
		SetName("password.post")

	app.Get(controller.Routes.AdminUsers, controller.AdminUsersIndex, protected).
		SetName("admin-users.get")
	app.Get(fmt.Sprintf("%s/:uuid/edit", controller.Routes.AdminUsers), controller.AdminUserEditShow, protected).
		SetName("admin-user-edit.get")
	app.Post(fmt.Sprintf("%s/:uuid/edit", controller.Routes.AdminUsers), controller.AdminUserEditPost, protected).
		SetName("admin-user-edit.post")
	app.Post(fmt.Sprintf("%s/:uuid/delete", controller.Routes.AdminUsers), controller.AdminUserDelete, protected).
		SetName("admin-user-delete.post")
}

type AccountsControllerRoutes struct {
	Login      string
	Logout     string
	Register   string
	Verify     string
	Profile    string
	Password   string
	AdminUsers string
}

type AccountsControllerViews struct {
	Login         string
	Register      string
	Verify        string
	Profile       string
	ProfileEdit   string
	Password      string
	AdminUsers    string
	AdminUserEdit string
}

type AccountsController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Mailer       Mailer
	Sink         ActivitySink
	Routes       *AccountsControllerRoutes
	Views        *AccountsControllerViews
	Auther       HTTPAuthenticator
	SessionKey   string
	BaseURL      string
	Policy       PasswordPolicy
	TokenTTL     time.Duration
	ErrorHandler router.ErrorHandler
}

type AccountsControllerOption func(*AccountsController) *AccountsController

func WithControllerRepo(repo RepositoryManager) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther HTTPAuthenticator) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Auther = auther
		return c
	}
}

func WithControllerMailer(mailer Mailer) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Mailer = mailer
		return c
	}
}

func WithControllerLogger(logger Logger) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerSessionKey(key string) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		if key != "" {
			c.SessionKey = key
		}
		return c
	}
}

func WithControllerActivitySink(sink ActivitySink) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Sink = normalizeActivitySink(sink)
		return c
	}
}

// WithControllerBaseURL sets the absolute URL prefix for links composed in
// outgoing mail, e.g. "https://accounts.example.com".
func WithControllerBaseURL(baseURL string) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.BaseURL = strings.TrimSuffix(baseURL, "/")
		return c
	}
}

func WithControllerPasswordPolicy(policy PasswordPolicy) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Policy = policy
		return c
	}
}

func WithControllerTokenTTL(ttl time.Duration) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		if ttl > 0 {
			c.TokenTTL = ttl
		}
		return c
	}
}

func WithControllerErrorHandler(handler router.ErrorHandler) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		if handler != nil {
			c.ErrorHandler = handler
		}
		return c
	}
}

func NewAccountsController(opts ...AccountsControllerOption) *AccountsController {
	c := &AccountsController{
		Logger:       defLogger{},
		Mailer:       PrintMailer{},
		Sink:         noopActivitySink{},
		SessionKey:   "user",
		Policy:       DefaultPasswordPolicy(),
		TokenTTL:     DefaultVerificationTokenTTL,
		ErrorHandler: defaultErrHandler,
		Routes: &AccountsControllerRoutes{
			Login:      "/login",
			Logout:     "/logout",
			Register:   "/register",
			Verify:     "/verify",
			Profile:    "/profile",
			Password:   "/password",
			AdminUsers: "/admin/users",
		},
		Views: &AccountsControllerViews{
			Login:         "login",
			Register:      "register",
			Verify:        "verify",
			Profile:       "profile",
			ProfileEdit:   "profile_edit",
			Password:      "password_change",
			AdminUsers:    "admin_users",
			AdminUserEdit: "admin_user_edit",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in accounts controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in accounts controller...")
	}

	return c
}

func (a *AccountsController) actorFromRequest(ctx router.Context) (Actor, error) {
	session, err := GetRouterSession(ctx, a.SessionKey)
	if err != nil {
		return Actor{}, err
	}
	return session.Actor()
}

func (a *AccountsController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// GetExtendedSession will return the password
func (r LoginRequest) GetExtendedSession() bool {
	return r.RememberMe
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AccountsController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)
	errs := map[string]string{}

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	if err := a.Auther.Login(ctx, payload); err != nil {
		// a single generic message, the form never says which part of the
		// credentials failed
		errs["authentication"] = "Invalid credentials"
		return ctx.Render(a.Views.Login, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	redirect := a.Auther.GetRedirect(ctx, "/")

	return ctx.Redirect(redirect, router.StatusSeeOther)
}

func (a *AccountsController) LogOut(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.Redirect("/", router.StatusTemporaryRedirect)
}

func (a *AccountsController) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"record": RegisterUserMessage{},
	})
}

// RegistrationCreatePayload is the form paylaod
type RegistrationCreatePayload struct {
	FirstName       string `form:"first_name" json:"first_name"`
	LastName        string `form:"last_name" json:"last_name"`
	Username        string `form:"username" json:"username"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone_number" json:"phone_number"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {

	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Username, validation.Length(3, 60)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.Length(10, 11), is.Digit),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AccountsController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		errs := map[string]string{}
		errs["form"] = "Failed to parse form"
		a.Logger.Error("register user parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		errs := FormatValidationErrorToMap(err)
		a.Logger.Error("register user validate payload: ", "error", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Register, router.ViewContext{
			"record":     payload,
			"validation": errs,
		})
	}

	req := RegisterUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Username:  payload.Username,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Password:  payload.Password,
	}

	registerUser := NewRegisterUserHandler(a.Repo, a.Mailer).
		WithPasswordPolicy(a.Policy).
		WithTokenTTL(a.TokenTTL).
		WithBaseURL(a.BaseURL).
		WithActivitySink(a.Sink).
		WithLogger(a.Logger)

	if err := registerUser.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register user error: ", "error", err)

		errs := map[string]string{}
		if IsDuplicateEmail(err) {
			errs["email"] = "Email address already registered"
		} else {
			errs["registration"] = err.Error()
		}

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error creating account",
		}).Render(a.Views.Register, router.ViewContext{
			"record": payload,
			"errors": errs,
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Account created, check your email to verify your address",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

func (a *AccountsController) VerifyAccount(ctx router.Context) error {
	token := ctx.Param("token", "")

	var resp *VerifyAccountResponse
	req := VerifyAccountMessage{
		Token: token,
		OnResponse: func(r *VerifyAccountResponse) {
			resp = r
		},
	}

	verify := NewVerifyAccountHandler(a.Repo).
		WithActivitySink(a.Sink).
		WithLogger(a.Logger)

	if err := verify.Execute(ctx.Context(), req); err != nil {
		return ctx.Render(a.Views.Verify, router.ViewContext{
			"verified": false,
			"errors": map[string]string{
				"verification": ErrVerificationFailed.Message,
			},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Your account has been verified, you can sign in now",
	}).Render(a.Views.Verify, router.ViewContext{
		"verified": true,
		"email":    resp.User.Email,
	})
}

func (a *AccountsController) ProfileShow(ctx router.Context) error {
	actor, err := a.actorFromRequest(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	targetID := actor.ID
	if raw := ctx.Param("uuid", ""); raw != "" {
		targetID, err = uuid.Parse(raw)
		if err != nil {
			return a.ErrorHandler(ctx, ErrUnableToParseData)
		}
	}

	op := OpViewSelf
	if targetID != actor.ID {
		op = OpViewAny
	}

	if err := Authorized(actor, targetID, op); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	user, err := a.Repo.Users().GetByID(ctx.Context(), targetID.String())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Render(a.Views.Profile, router.ViewContext{
		"user":     user,
		"is_self":  targetID == actor.ID,
		"is_admin": actor.Role == RoleAdmin,
	})
}

// ProfileUpdatePayload carries the self-service profile form fields.
type ProfileUpdatePayload struct {
	FirstName      string `form:"first_name" json:"first_name"`
	LastName       string `form:"last_name" json:"last_name"`
	Username       string `form:"username" json:"username"`
	Phone          string `form:"phone_number" json:"phone_number"`
	Bio            string `form:"bio" json:"bio"`
	BirthDate      string `form:"birth_date" json:"birth_date"`
	ProfilePicture string `form:"profile_picture" json:"profile_picture"`
}

// Validate will validate the payload
func (r ProfileUpdatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Length(0, 200)),
		validation.Field(&r.LastName, validation.Length(0, 200)),
		validation.Field(&r.Username, validation.Length(3, 60)),
		validation.Field(&r.Bio, validation.Length(0, 500)),
		validation.Field(&r.BirthDate, validation.Date("2006-01-02")),
		validation.Field(&r.ProfilePicture, is.URL),
	)
}

func (r ProfileUpdatePayload) toMessage(actor Actor, targetID uuid.UUID) UpdateProfileMessage {
	msg := UpdateProfileMessage{
		Actor:    actor,
		TargetID: targetID,
	}

	msg.FirstName = &r.FirstName
	msg.LastName = &r.LastName
	msg.Username = optionalString(r.Username)
	msg.Phone = &r.Phone
	msg.Bio = &r.Bio
	msg.ProfilePicture = &r.ProfilePicture

	if r.BirthDate != "" {
		if t, err := time.Parse("2006-01-02", r.BirthDate); err == nil {
			msg.BirthDate = &t
		}
	}

	return msg
}

func (a *AccountsController) ProfileEditShow(ctx router.Context) error {
	actor, err := a.actorFromRequest(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	targetID, err := uuid.Parse(ctx.Param("uuid", ""))
	if err != nil {
		return a.ErrorHandler(ctx, ErrUnableToParseData)
	}

	op := OpEditSelf
	if targetID != actor.ID {
		op = OpEditAny
	}

	if err := Authorized(actor, targetID, op); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	user, err := a.Repo.Users().GetByID(ctx.Context(), targetID.String())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Render(a.Views.ProfileEdit, router.ViewContext{
		"user":   user,
		"errors": map[string]string{},
	})
}

func (a *AccountsController) ProfileEditPost(ctx router.Context) error {
	actor, err := a.actorFromRequest(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	targetID, err := uuid.Parse(ctx.Param("uuid", ""))
	if err != nil {
		return a.ErrorHandler(ctx, ErrUnableToParseData)
	}

	payload := new(ProfileUpdatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("profile edit parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.ProfileEdit, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("profile edit validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.ProfileEdit, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	var resp *UpdateProfileResponse
	msg := payload.toMessage(actor, targetID)
	msg.OnResponse = func(r *UpdateProfileResponse) {
		resp = r
	}

	update := NewUpdateProfileHandler(a.Repo).
		WithActivitySink(a.Sink).
		WithLogger(a.Logger)

	if err := update.Execute(ctx.Context(), msg); err != nil {
		a.Logger.Error("profile edit error: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error updating profile",
		}).Render(a.Views.ProfileEdit, router.ViewContext{
			"record": payload,
			"errors": map[string]string{"update": err.Error()},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Profile updated",
	}).Redirect(fmt.Sprintf("%s/%s", a.Routes.Profile, resp.User.ID), fiber.StatusSeeOther)
}

func (a *AccountsController) PasswordChangeShow(ctx router.Context) error {
	if _, err := a.actorFromRequest(ctx); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Render(a.Views.Password, router.ViewContext{
		"errors": map[string]string{},
	})
}

// PasswordChangePayload holds values for a password change
type PasswordChangePayload struct {
	CurrentPassword string `form:"current_password" json:"current_password"`
	NewPassword     string `form:"new_password" json:"new_password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r PasswordChangePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.NewPassword)),
		),
	)
}

func (a *AccountsController) PasswordChangePost(ctx router.Context) error {
	actor, err := a.actorFromRequest(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(PasswordChangePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("password change parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Password, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("password change validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Password, router.ViewContext{
			"validation": FormatValidationErrorToMap(err),
		})
	}

	msg := ChangePasswordMessage{
		Actor:           actor,
		TargetID:        actor.ID,
		CurrentPassword: payload.CurrentPassword,
		NewPassword:     payload.NewPassword,
	}

	change := NewChangePasswordHandler(a.Repo).
		WithPasswordPolicy(a.Policy).
		WithActivitySink(a.Sink).
		WithLogger(a.Logger)

	if err := change.Execute(ctx.Context(), msg); err != nil {
		a.Logger.Error("password change error: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error changing password",
		}).Render(a.Views.Password, router.ViewContext{
			"errors": map[string]string{"password": err.Error()},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Password updated",
	}).Redirect(a.Routes.Profile, fiber.StatusSeeOther)
}

func (a *AccountsController) AdminUsersIndex(ctx router.Context) error {
	actor, err := a.actorFromRequest(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := Authorized(actor, uuid.Nil, OpListAll); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	page := ctx.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	users, total, err := a.Repo.Users().List(ctx.Context(), page, AdminUsersPerPage)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	totalPages := (total + AdminUsersPerPage - 1) / AdminUsersPerPage
	if totalPages < 1 {
		totalPages = 1
	}

	return ctx.Render(a.Views.AdminUsers, router.ViewContext{
		"users":       users,
		"total":       total,
		"page":        page,
		"total_pages": totalPages,
		"has_prev":    page > 1,
		"has_next":    page < totalPages,
	})
}

// AdminUserEditPayload extends the profile form with the account controls
// only admins may touch.
type AdminUserEditPayload struct {
	ProfileUpdatePayload
	Role     string `form:"role" json:"role"`
	Verified bool   `form:"is_verified" json:"is_verified"`
	Active   bool   `form:"is_active" json:"is_active"`
}

// Validate will validate the payload
func (r AdminUserEditPayload) Validate() error {
	if err := r.ProfileUpdatePayload.Validate(); err != nil {
		return err
	}

	roles := make([]any, 0, 2)
	for _, role := range GetAllRoles() {
		roles = append(roles, role)
	}

	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required, validation.In(roles...)),
	)
}

func (a *AccountsController) AdminUserEditShow(ctx router.Context) error {
	actor, err := a.actorFromRequest(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	targetID, err := uuid.Parse(ctx.Param("uuid", ""))
	if err != nil {
		return a.ErrorHandler(ctx, ErrUnableToParseData)
	}

	if err := Authorized(actor, targetID, OpEditAny); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	user, err := a.Repo.Users().GetByID(ctx.Context(), targetID.String())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Render(a.Views.AdminUserEdit, router.ViewContext{
		"user":   user,
		"roles":  GetAllRoles(),
		"errors": map[string]string{},
	})
}

func (a *AccountsController) AdminUserEditPost(ctx router.Context) error {
	actor, err := a.actorFromRequest(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	targetID, err := uuid.Parse(ctx.Param("uuid", ""))
	if err != nil {
		return a.ErrorHandler(ctx, ErrUnableToParseData)
	}

	payload := new(AdminUserEditPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("admin user edit parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.AdminUserEdit, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("admin user edit validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.AdminUserEdit, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	msg := payload.ProfileUpdatePayload.toMessage(actor, targetID)
	msg.Role = &payload.Role
	msg.Verified = &payload.Verified
	msg.Active = &payload.Active

	update := NewUpdateProfileHandler(a.Repo).
		WithActivitySink(a.Sink).
		WithLogger(a.Logger)

	if err := update.Execute(ctx.Context(), msg); err != nil {
		a.Logger.Error("admin user edit error: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error updating user",
		}).Render(a.Views.AdminUserEdit, router.ViewContext{
			"record": payload,
			"errors": map[string]string{"update": err.Error()},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "User updated",
	}).Redirect(a.Routes.AdminUsers, fiber.StatusSeeOther)
}

func (a *AccountsController) AdminUserDelete(ctx router.Context) error {
	actor, err := a.actorFromRequest(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	targetID, err := uuid.Parse(ctx.Param("uuid", ""))
	if err != nil {
		return a.ErrorHandler(ctx, ErrUnableToParseData)
	}

	msg := DeleteUserMessage{
		Actor:    actor,
		TargetID: targetID,
	}

	deleteUser := NewDeleteUserHandler(a.Repo).
		WithActivitySink(a.Sink).
		WithLogger(a.Logger)

	if err := deleteUser.Execute(ctx.Context(), msg); err != nil {
		a.Logger.Error("admin user delete error: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error deleting user",
		}).Redirect(a.Routes.AdminUsers, fiber.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "User deleted",
	}).Redirect(a.Routes.AdminUsers, fiber.StatusSeeOther)
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a map
// keyed by field name.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	out["error"] = err.Error()
	return out
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func defaultErrHandler(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	code := richErr.Code
	if code == 0 {
		code = router.StatusInternalServerError
	}

	return c.Status(code).Render("errors/500", router.ViewContext{
		"message": richErr.Message,
		"error":   richErr,
	})
}
