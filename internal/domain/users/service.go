package users

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/vitalpages/server/internal/audit"
	"github.com/vitalpages/server/internal/auth"
	"github.com/vitalpages/server/internal/email"
)

const (
	// DefaultInvitationExpiry is how long an account-setup link stays valid.
	DefaultInvitationExpiry = 168 * time.Hour

	// DefaultRole is assigned when an admin does not pick one.
	DefaultRole = string(auth.RoleViewer)

	// BcryptCost is the cost factor for password hashing.
	BcryptCost = 12
)

// Publisher receives user lifecycle events (webhook fan-out).
type Publisher interface {
	Publish(ctx context.Context, event string, payload map[string]any)
}

// Service handles admin account management: invitations, credentials, and
// the two-factor enrollment lifecycle.
type Service struct {
	repo        Repository
	emailSvc    *email.Service
	twoFactor   *auth.TwoFactor
	auditLogger *audit.Logger
	publisher   Publisher
	baseURL     string
	logger      zerolog.Logger
}

func NewService(
	repo Repository,
	emailSvc *email.Service,
	twoFactor *auth.TwoFactor,
	auditLogger *audit.Logger,
	publisher Publisher,
	baseURL string,
	logger zerolog.Logger,
) *Service {
	return &Service{
		repo:        repo,
		emailSvc:    emailSvc,
		twoFactor:   twoFactor,
		auditLogger: auditLogger,
		publisher:   publisher,
		baseURL:     baseURL,
		logger:      logger.With().Str("component", "users").Logger(),
	}
}

// CreateUserParams contains parameters for creating a new user.
type CreateUserParams struct {
	Name      string
	Email     string
	Role      string
	CreatedBy string // admin user ID issuing the invitation
}

// CreateUserAndInvite creates an inactive account and emails an invitation
// link. The user sets their password when accepting.
func (s *Service) CreateUserAndInvite(ctx context.Context, params CreateUserParams) (User, error) {
	if params.Role == "" {
		params.Role = DefaultRole
	}
	if !auth.ValidRole(params.Role) {
		return User{}, fmt.Errorf("invalid role %q", params.Role)
	}

	if existing, err := s.repo.GetUserByEmail(ctx, params.Email); err == nil && existing.ID != "" {
		return User{}, ErrEmailTaken
	} else if err != nil && !errors.Is(err, ErrUserNotFound) {
		return User{}, fmt.Errorf("check email: %w", err)
	}

	now := time.Now().UTC()
	user, err := s.repo.CreateUser(ctx, User{
		ID:        ulid.Make().String(),
		Name:      params.Name,
		Email:     params.Email,
		Role:      params.Role,
		Active:    false,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}

	token, err := generateSecureToken()
	if err != nil {
		return User{}, err
	}

	if _, err := s.repo.CreateInvitation(ctx, Invitation{
		ID:        ulid.Make().String(),
		UserID:    user.ID,
		TokenHash: hashToken(token),
		Email:     params.Email,
		ExpiresAt: now.Add(DefaultInvitationExpiry),
		CreatedBy: params.CreatedBy,
		CreatedAt: now,
	}); err != nil {
		return User{}, fmt.Errorf("create invitation: %w", err)
	}

	invitedBy := s.invitedByName(ctx, params.CreatedBy)
	inviteLink := fmt.Sprintf("%s/admin/accept-invitation?token=%s", s.baseURL, token)
	if err := s.emailSvc.SendInvitation(ctx, params.Email, inviteLink, invitedBy); err != nil {
		// The account exists either way; the invitation can be resent.
		s.logger.Error().Err(err).Str("email", params.Email).Msg("failed to send invitation email")
	}

	s.auditLogger.LogSuccess("user.created", invitedBy, "user", user.ID, "", map[string]string{
		"email": params.Email,
		"role":  params.Role,
	})
	if s.publisher != nil {
		s.publisher.Publish(ctx, "user.created", map[string]any{
			"user_id": user.ID,
			"email":   user.Email,
			"role":    user.Role,
		})
	}
	return user, nil
}

// AcceptInvitation validates the token, sets the password, and activates the
// account.
func (s *Service) AcceptInvitation(ctx context.Context, token, password string) error {
	invitation, err := s.repo.GetInvitationByTokenHash(ctx, hashToken(token))
	if err != nil {
		return ErrInvalidToken
	}
	if invitation.Accepted() || invitation.Expired(time.Now().UTC()) {
		return ErrInvalidToken
	}
	if len(password) < 12 {
		return fmt.Errorf("password must be at least 12 characters")
	}

	user, err := s.repo.GetUser(ctx, invitation.UserID)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = string(hash)
	user.Active = true
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("activate user: %w", err)
	}
	if err := s.repo.MarkInvitationAccepted(ctx, invitation.ID); err != nil {
		return fmt.Errorf("mark invitation accepted: %w", err)
	}

	s.auditLogger.LogSuccess("user.invitation_accepted", user.Email, "user", user.ID, "", nil)
	return nil
}

// ResendInvitation issues a fresh token for an inactive account. Tokens are
// never stored in plaintext, so resending always mints a new one.
func (s *Service) ResendInvitation(ctx context.Context, userID, resentBy string) error {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.Active {
		return ErrUserAlreadyActive
	}

	token, err := generateSecureToken()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if _, err := s.repo.CreateInvitation(ctx, Invitation{
		ID:        ulid.Make().String(),
		UserID:    user.ID,
		TokenHash: hashToken(token),
		Email:     user.Email,
		ExpiresAt: now.Add(DefaultInvitationExpiry),
		CreatedBy: resentBy,
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("create invitation: %w", err)
	}

	inviteLink := fmt.Sprintf("%s/admin/accept-invitation?token=%s", s.baseURL, token)
	if err := s.emailSvc.SendInvitation(ctx, user.Email, inviteLink, s.invitedByName(ctx, resentBy)); err != nil {
		return fmt.Errorf("send invitation email: %w", err)
	}

	s.auditLogger.LogSuccess("user.invitation_resent", resentBy, "user", user.ID, "", nil)
	return nil
}

// Authenticate checks the email/password pair. Callers inspect
// TwoFactorEnabled on the returned user to decide between issuing a session
// or a pending two-factor token.
func (s *Service) Authenticate(ctx context.Context, emailAddr, password string) (User, error) {
	user, err := s.repo.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		// Burn a comparison so missing and wrong-password lookups take
		// the same time.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$12$0000000000000000000000000000000000000000000000000000"), []byte(password))
		return User{}, ErrInvalidCredentials
	}
	if !user.Active || user.PasswordHash == "" {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// RecordLogin stamps the last successful login time.
func (s *Service) RecordLogin(ctx context.Context, userID string) error {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	user.LastLoginAt = time.Now().UTC()
	user.UpdatedAt = user.LastLoginAt
	return s.repo.UpdateUser(ctx, user)
}

// BeginTwoFactorSetup generates a secret, QR code, and backup codes. The
// secret is stored immediately but enrollment stays off until the user
// confirms a valid code.
func (s *Service) BeginTwoFactorSetup(ctx context.Context, userID string) (*auth.Enrollment, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TwoFactorEnabled {
		return nil, auth.ErrAlreadyEnrolled
	}

	enrollment, err := s.twoFactor.Enroll(user.Email)
	if err != nil {
		return nil, err
	}

	user.TwoFactorSecret = enrollment.Secret
	user.BackupCodeHashes = enrollment.BackupHashes
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("store two-factor secret: %w", err)
	}
	return enrollment, nil
}

// ConfirmTwoFactorSetup turns enrollment on once the user proves they hold
// the secret.
func (s *Service) ConfirmTwoFactorSetup(ctx context.Context, userID, code string) error {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.TwoFactorSecret == "" {
		return ErrTwoFactorNotSetup
	}
	if err := s.twoFactor.VerifyTOTP(user.TwoFactorSecret, code); err != nil {
		return ErrInvalidCode
	}

	user.TwoFactorEnabled = true
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("enable two-factor: %w", err)
	}

	s.auditLogger.LogSuccess("user.2fa_enabled", user.Email, "user", user.ID, "", nil)
	return nil
}

// VerifyTwoFactor accepts either a current TOTP code or an unused backup
// code. A matching backup code is consumed.
func (s *Service) VerifyTwoFactor(ctx context.Context, userID, code string) error {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TwoFactorEnabled {
		return ErrTwoFactorNotSetup
	}

	if err := s.twoFactor.VerifyTOTP(user.TwoFactorSecret, code); err == nil {
		return nil
	}

	idx, err := s.twoFactor.VerifyBackupCode(code, user.BackupCodeHashes, nil)
	if err != nil {
		return ErrInvalidCode
	}

	user.BackupCodeHashes = append(user.BackupCodeHashes[:idx], user.BackupCodeHashes[idx+1:]...)
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("consume backup code: %w", err)
	}

	s.auditLogger.LogSuccess("user.2fa_backup_code_used", user.Email, "user", user.ID, "", map[string]string{
		"remaining": fmt.Sprintf("%d", len(user.BackupCodeHashes)),
	})
	return nil
}

// DisableTwoFactor clears enrollment. An admin can disable another user's
// enrollment for account recovery; disabledBy records who.
func (s *Service) DisableTwoFactor(ctx context.Context, userID, disabledBy string) error {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	user.TwoFactorEnabled = false
	user.TwoFactorSecret = ""
	user.BackupCodeHashes = nil
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("disable two-factor: %w", err)
	}

	s.auditLogger.LogSuccess("user.2fa_disabled", disabledBy, "user", user.ID, "", nil)
	return nil
}

// RegenerateBackupCodes replaces any remaining codes with a fresh set.
func (s *Service) RegenerateBackupCodes(ctx context.Context, userID string) ([]string, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.TwoFactorEnabled {
		return nil, ErrTwoFactorNotSetup
	}

	enrollment, err := s.twoFactor.Enroll(user.Email)
	if err != nil {
		return nil, err
	}

	// Keep the existing secret; only the backup codes rotate.
	user.BackupCodeHashes = enrollment.BackupHashes
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("store backup codes: %w", err)
	}

	s.auditLogger.LogSuccess("user.2fa_backup_codes_regenerated", user.Email, "user", user.ID, "", nil)
	return enrollment.BackupCodes, nil
}

// UpdateUserParams contains mutable user fields.
type UpdateUserParams struct {
	Name  string
	Email string
	Role  string
}

func (s *Service) UpdateUser(ctx context.Context, id string, params UpdateUserParams, updatedBy string) (User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}

	if params.Email != user.Email {
		if other, err := s.repo.GetUserByEmail(ctx, params.Email); err == nil && other.ID != id {
			return User{}, ErrEmailTaken
		} else if err != nil && !errors.Is(err, ErrUserNotFound) {
			return User{}, fmt.Errorf("check email: %w", err)
		}
	}
	if !auth.ValidRole(params.Role) {
		return User{}, fmt.Errorf("invalid role %q", params.Role)
	}

	user.Name = params.Name
	user.Email = params.Email
	user.Role = params.Role
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return User{}, fmt.Errorf("update user: %w", err)
	}

	s.auditLogger.LogSuccess("user.updated", updatedBy, "user", user.ID, "", map[string]string{
		"email": params.Email,
		"role":  params.Role,
	})
	return user, nil
}

func (s *Service) SetActive(ctx context.Context, id string, active bool, changedBy string) error {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return err
	}

	user.Active = active
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	action := "user.deactivated"
	if active {
		action = "user.activated"
	}
	s.auditLogger.LogSuccess(action, changedBy, "user", user.ID, "", nil)
	return nil
}

func (s *Service) DeleteUser(ctx context.Context, id, deletedBy string) error {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.auditLogger.LogSuccess("user.deleted", deletedBy, "user", user.ID, "", map[string]string{
		"email": user.Email,
	})
	return nil
}

func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, filters ListFilters) ([]User, int, error) {
	if filters.Limit <= 0 {
		filters.Limit = 50
	}
	return s.repo.ListUsers(ctx, filters)
}

// EnsureBootstrapAdmin creates the initial active admin account from
// configuration when no account with that email exists yet.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context, name, emailAddr, password string) error {
	if emailAddr == "" || password == "" {
		return nil
	}
	if _, err := s.repo.GetUserByEmail(ctx, emailAddr); err == nil {
		return nil
	} else if !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("check bootstrap admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user, err := s.repo.CreateUser(ctx, User{
		ID:           ulid.Make().String(),
		Name:         name,
		Email:        emailAddr,
		PasswordHash: string(hash),
		Role:         string(auth.RoleAdmin),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}

	s.logger.Info().Str("email", emailAddr).Msg("bootstrap admin created")
	s.auditLogger.LogSuccess("user.bootstrap_created", "system", "user", user.ID, "", nil)
	return nil
}

func (s *Service) invitedByName(ctx context.Context, adminID string) string {
	if adminID == "" {
		return "Administrator"
	}
	admin, err := s.repo.GetUser(ctx, adminID)
	if err != nil || admin.Name == "" {
		return "Administrator"
	}
	return admin.Name
}

// generateSecureToken returns 32 random bytes as URL-safe base64.
func generateSecureToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// hashToken hashes an invitation token with SHA-256 for storage.
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return base64.URLEncoding.EncodeToString(hash[:])
}
