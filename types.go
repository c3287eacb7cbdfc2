package passgate

import (
	"context"
	"time"

	"github.com/agit8or1/passgate/internal/backupcode"
)

// Role values carried in session tokens. RoleElevated unlocks the
// administrative surfaces; anything else is treated as standard.
const (
	RoleStandard = "standard"
	RoleElevated = "elevated"
)

// Account is the stored account record as the engine sees it. PasswordHash
// holds an argon2id PHC string; TOTPSecret is the base32 secret or empty.
// TOTPEnabled is the only field login consults when deciding whether to
// demand a second factor.
type Account struct {
	ID           string
	Username     string
	Role         string
	PasswordHash string
	TOTPSecret   string
	TOTPEnabled  bool
	Active       bool
	LastLogin    time.Time // zero when the account has never logged in
}

// AccountInfo is the client-safe projection of an Account. It never carries
// the password hash or the TOTP secret.
type AccountInfo struct {
	ID          string
	Username    string
	Role        string
	TOTPEnabled bool
	LastLogin   time.Time
}

// Info projects the account into its client-safe form.
func (a Account) Info() AccountInfo {
	return AccountInfo{
		ID:          a.ID,
		Username:    a.Username,
		Role:        a.Role,
		TOTPEnabled: a.TOTPEnabled,
		LastLogin:   a.LastLogin,
	}
}

// BackupCodeRecord stores the SHA-256 digest of one unused recovery code.
// Plaintext codes are shown once at generation time and never persisted.
type BackupCodeRecord = backupcode.Record

// AccountStore is the persistence boundary the engine talks to. Lookups
// return ErrUserNotFound when no record matches; every other failure should
// surface as the store's own error and will be wrapped by the engine.
//
// Mutations carry their own consistency contracts:
//
//   - SetTOTPEnabled(true) must fail with ErrTOTPNotConfigured when the
//     account has no stored secret, checked and set in one step.
//   - ClearTOTP must drop the secret, the enabled flag, and all backup
//     codes as one atomic change.
//   - ConsumeBackupCode must check and burn the matching hash atomically
//     so a code can never be redeemed twice.
type AccountStore interface {
	GetAccountByUsername(ctx context.Context, username string) (Account, error)
	GetAccountByID(ctx context.Context, id string) (Account, error)

	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error

	UpdateTOTPSecret(ctx context.Context, id, secret string) error
	SetTOTPEnabled(ctx context.Context, id string, enabled bool) error
	ClearTOTP(ctx context.Context, id string) error

	ReplaceBackupCodes(ctx context.Context, id string, codes []BackupCodeRecord) error
	ConsumeBackupCode(ctx context.Context, id string, codeHash [32]byte) (bool, error)
}

// LoginResult is the outcome of a successful password check. When
// TwoFactorRequired is set the token is empty and the caller must repeat
// the request with a code; otherwise Token holds a signed session.
type LoginResult struct {
	Token             string
	Account           AccountInfo
	TwoFactorRequired bool
}

// TOTPSetup is handed back from enrollment. SecretBase32 is for manual
// entry, URI is the raw otpauth:// string, and QRCodeURL is the same URI
// rendered as a PNG data URL.
type TOTPSetup struct {
	SecretBase32 string
	URI          string
	QRCodeURL    string
}
