package users

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidToken       = errors.New("invalid or expired invitation token")
	ErrUserAlreadyActive  = errors.New("user is already active")
	ErrUserInactive       = errors.New("user is inactive")
	ErrEmailTaken         = errors.New("email is already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTwoFactorRequired  = errors.New("two-factor code required")
	ErrTwoFactorNotSetup  = errors.New("two-factor authentication is not set up")
	ErrInvalidCode        = errors.New("invalid two-factor code")
)

// User is an admin panel account.
type User struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	Role             string    `json:"role"`
	Active           bool      `json:"active"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	TwoFactorSecret  string    `json:"-"`
	BackupCodeHashes []string  `json:"-"`
	LastLoginAt      time.Time `json:"last_login_at,omitzero"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Invitation is a pending account-setup token. Only the SHA-256 hash of the
// token is stored; the plaintext goes out once in the invitation email.
type Invitation struct {
	ID         string
	UserID     string
	TokenHash  string
	Email      string
	ExpiresAt  time.Time
	AcceptedAt time.Time
	CreatedBy  string
	CreatedAt  time.Time
}

// Accepted reports whether the invitation has been used.
func (i Invitation) Accepted() bool { return !i.AcceptedAt.IsZero() }

// Expired reports whether the invitation can no longer be accepted.
func (i Invitation) Expired(now time.Time) bool { return now.After(i.ExpiresAt) }

// ListFilters narrows ListUsers results.
type ListFilters struct {
	Active *bool
	Role   string
	Limit  int
	Offset int
}

// Repository is the persistence contract for users and invitations.
type Repository interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	UpdateUser(ctx context.Context, user User) error
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context, filters ListFilters) ([]User, int, error)

	CreateInvitation(ctx context.Context, invitation Invitation) (Invitation, error)
	GetInvitationByTokenHash(ctx context.Context, tokenHash string) (Invitation, error)
	MarkInvitationAccepted(ctx context.Context, id string) error
}
