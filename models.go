package accounts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleRegular is a regular account (view/edit own profile)
	RoleRegular UserRole = "regular"
	// RoleAdmin is an admin account (view/edit/list/delete any profile)
	RoleAdmin UserRole = "admin"
)

// User is the user model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role           UserRole       `bun:"user_role,notnull" json:"user_role,omitempty"`
	FirstName      string         `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName       string         `bun:"last_name,notnull" json:"last_name,omitempty"`
	Username       string         `bun:"username,notnull,unique" json:"username,omitempty"`
	Email          string         `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone          string         `bun:"phone_number" json:"phone_number,omitempty"`
	Bio            string         `bun:"bio" json:"bio,omitempty"`
	BirthDate      *time.Time     `bun:"birth_date,nullzero" json:"birth_date,omitempty"`
	ProfilePicture string         `bun:"profile_picture" json:"profile_picture,omitempty"`
	PasswordHash   string         `bun:"password_hash" json:"password_hash,omitempty"`
	Verified       bool           `bun:"is_verified" json:"is_verified,omitempty"`
	Active         bool           `bun:"is_active" json:"is_active,omitempty"`
	LoginAttempts  int            `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time     `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time     `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	Metadata       map[string]any `bun:"metadata" json:"metadata,omitempty"`
	CreatedAt      *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// FullName joins first and last name, trimming when either is empty
func (u *User) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}

// IsAdmin reports whether the account carries the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// AddMetadata will append information to a metadata attribute
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]any)
	}
	u.Metadata[key] = val
	return u
}

// Actor is the identity snapshot the authorization gate decides over.
type Actor struct {
	ID       uuid.UUID
	Role     UserRole
	Verified bool
}

// ActorRef identifies who initiated an operation for audit purposes.
type ActorRef struct {
	ID   string
	Type string
}

// ActorFromUser builds the gate input for a loaded user record.
func ActorFromUser(u *User) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{
		ID:       u.ID,
		Role:     u.Role,
		Verified: u.Verified,
	}
}

// VerificationTokenStatus tracks a token through its single-use lifecycle
type VerificationTokenStatus = string

const (
	// TokenPending token issued, not yet redeemed
	TokenPending VerificationTokenStatus = "pending"
	// TokenUsed token redeemed; any further redemption fails
	TokenUsed VerificationTokenStatus = "used"
)

// VerificationToken is the single-use email verification token model. The
// row ID doubles as the opaque token value delivered in the email link.
type VerificationToken struct {
	bun.BaseModel `bun:"table:verification_tokens,alias:vtk"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        *uuid.UUID `bun:"user_id,notnull" json:"user_id,omitempty"`
	User          *User      `bun:"rel:has-one,join:user_id=id" json:"user,omitempty"`
	Status        string     `bun:"status,notnull" json:"status,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	ExpiresAt     *time.Time `bun:"expires_at,nullzero" json:"expires_at,omitempty"`
	UsedAt        *time.Time `bun:"used_at,nullzero" json:"used_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Expired reports whether the token's expiry timestamp has passed. A token
// without an expiry never expires.
func (t *VerificationToken) Expired(now time.Time) bool {
	if t.ExpiresAt == nil {
		return false
	}
	return now.After(*t.ExpiresAt)
}

// NewVerificationToken mints a pending token for the given user with the
// expiry derived from ttl.
func NewVerificationToken(user *User, ttl time.Duration) *VerificationToken {
	expires := time.Now().Add(ttl)
	return &VerificationToken{
		ID:        uuid.New(),
		UserID:    &user.ID,
		Email:     user.Email,
		Status:    TokenPending,
		ExpiresAt: &expires,
	}
}
