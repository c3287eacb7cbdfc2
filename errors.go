package passgate

import "errors"

var (
	// ErrUnauthorized is returned when a protected surface is reached with
	// missing or unverifiable credentials. Callers must not distinguish the
	// two cases.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrPermissionDenied is returned when the caller is authenticated but
	// lacks the role a surface requires.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidCredentials covers unknown usernames and wrong passwords
	// alike so login failures cannot be used to probe for accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by account stores when no record matches.
	// Login flows collapse it into ErrInvalidCredentials before it reaches
	// a client.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountDisabled is returned when credentials are correct but the
	// account is not active.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrLoginRateLimited is returned when a username or source address has
	// exhausted its failed-login budget.
	ErrLoginRateLimited = errors.New("login rate limited")

	// ErrTOTPRequired signals that the password was accepted but a second
	// factor is still outstanding.
	ErrTOTPRequired = errors.New("totp required")
	// ErrTOTPInvalid is returned for codes that are malformed, expired, or
	// simply wrong. One error for all three, on purpose.
	ErrTOTPInvalid = errors.New("invalid totp code")
	// ErrTOTPNotConfigured is returned when an operation needs a stored
	// secret and the account has none.
	ErrTOTPNotConfigured = errors.New("totp not configured")
	// ErrTOTPUnavailable is returned when secret generation or persistence
	// fails for reasons unrelated to the submitted code.
	ErrTOTPUnavailable = errors.New("totp backend unavailable")

	// ErrBackupCodeInvalid is returned for recovery codes that do not match
	// an unused stored hash.
	ErrBackupCodeInvalid = errors.New("invalid backup code")
	// ErrBackupCodeUnavailable is returned when minting or persisting
	// recovery codes fails.
	ErrBackupCodeUnavailable = errors.New("backup code backend unavailable")

	// ErrPasswordReuse rejects a password change whose new password equals
	// the current one.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrPasswordPolicy is returned when a submitted password fails the
	// length rules before any hashing happens.
	ErrPasswordPolicy = errors.New("password policy violation")

	// ErrStoreUnavailable wraps account store failures that are neither
	// ErrUserNotFound nor a conflict.
	ErrStoreUnavailable = errors.New("account backend unavailable")

	// ErrEngineNotReady is returned when an Engine method is called before
	// Build wired its dependencies.
	ErrEngineNotReady = errors.New("engine not initialized")
)
