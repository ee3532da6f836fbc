package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	// BackupCodeCount is how many single-use backup codes an enrollment issues.
	BackupCodeCount = 10

	backupCodeBytes = 5 // 10 hex chars per code
	qrSizePixels    = 256
)

var (
	ErrInvalidCode       = errors.New("invalid two-factor code")
	ErrBackupCodeUsed    = errors.New("backup code already used")
	ErrNotEnrolled       = errors.New("two-factor authentication not enrolled")
	ErrSecretGeneration  = errors.New("failed to generate two-factor secret")
	ErrAlreadyEnrolled   = errors.New("two-factor authentication already enabled")
	errInvalidBackupCode = errors.New("backup code does not match")
)

// Enrollment holds everything the admin UI needs to finish 2FA setup. The
// plaintext backup codes are shown once; only their hashes are persisted.
type Enrollment struct {
	Secret          string
	ProvisioningURI string
	QRCodePNG       []byte
	BackupCodes     []string
	BackupHashes    []string
}

// TwoFactor wraps TOTP generation and verification for admin accounts.
type TwoFactor struct {
	issuer string
}

func NewTwoFactor(issuer string) *TwoFactor {
	if issuer == "" {
		issuer = "VitalPages"
	}
	return &TwoFactor{issuer: issuer}
}

// Enroll generates a fresh TOTP secret, provisioning URI, QR code image, and
// backup codes for the given account.
func (t *TwoFactor) Enroll(accountEmail string) (*Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      t.issuer,
		AccountName: accountEmail,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSecretGeneration, err)
	}

	png, err := qrcode.Encode(key.URL(), qrcode.Medium, qrSizePixels)
	if err != nil {
		return nil, fmt.Errorf("encode QR code: %w", err)
	}

	codes, hashes, err := generateBackupCodes(BackupCodeCount)
	if err != nil {
		return nil, err
	}

	return &Enrollment{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
		QRCodePNG:       png,
		BackupCodes:     codes,
		BackupHashes:    hashes,
	}, nil
}

// VerifyTOTP checks a 6-digit code against the stored secret, allowing one
// period of clock skew in either direction.
func (t *TwoFactor) VerifyTOTP(secret, code string) error {
	if strings.TrimSpace(secret) == "" {
		return ErrNotEnrolled
	}
	valid, err := totp.ValidateCustom(strings.TrimSpace(code), secret, time.Now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil || !valid {
		return ErrInvalidCode
	}
	return nil
}

// VerifyBackupCode checks a backup code against the stored hashes and returns
// the index of the matching hash so the caller can mark it consumed.
func (t *TwoFactor) VerifyBackupCode(code string, hashes []string, used []bool) (int, error) {
	normalized := normalizeBackupCode(code)
	if normalized == "" {
		return -1, ErrInvalidCode
	}
	hash := HashBackupCode(normalized)
	for i, candidate := range hashes {
		if subtle.ConstantTimeCompare([]byte(hash), []byte(candidate)) == 1 {
			if i < len(used) && used[i] {
				return -1, ErrBackupCodeUsed
			}
			return i, nil
		}
	}
	return -1, ErrInvalidCode
}

// HashBackupCode returns the hex SHA-256 of a normalized backup code.
func HashBackupCode(code string) string {
	sum := sha256.Sum256([]byte(normalizeBackupCode(code)))
	return hex.EncodeToString(sum[:])
}

func generateBackupCodes(n int) ([]string, []string, error) {
	codes := make([]string, 0, n)
	hashes := make([]string, 0, n)
	for i := 0; i < n; i++ {
		raw := make([]byte, backupCodeBytes)
		if _, err := rand.Read(raw); err != nil {
			return nil, nil, fmt.Errorf("generate backup code: %w", err)
		}
		code := strings.ToLower(hex.EncodeToString(raw))
		// Format as xxxxx-xxxxx for readability.
		code = code[:5] + "-" + code[5:]
		codes = append(codes, code)
		hashes = append(hashes, HashBackupCode(code))
	}
	return codes, hashes, nil
}

func normalizeBackupCode(code string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(code), "-", ""))
}

// GenerateTOTPCode produces the current code for a secret. Test helper; also
// used by the CLI to sanity-check an enrollment.
func GenerateTOTPCode(secret string, at time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("generate totp code: %w", err)
	}
	return code, nil
}
