package passgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agit8or1/passgate/internal/backupcode"
)

// TOTPStatus reports whether the account has a confirmed second factor.
// A stored but unconfirmed secret reads as disabled.
func (e *Engine) TOTPStatus(ctx context.Context, accountID string) (bool, error) {
	if e == nil || e.store == nil {
		return false, ErrEngineNotReady
	}
	if accountID == "" {
		return false, ErrUserNotFound
	}

	account, err := e.accountByID(ctx, accountID)
	if err != nil {
		return false, err
	}
	return account.TOTPEnabled, nil
}

// GenerateTOTPSetup mints a fresh secret for the account, stores it, and
// returns the enrollment material. Calling it again simply replaces the
// pending secret; it never changes whether the second factor is enabled,
// so a half-finished enrollment cannot lock anyone out.
func (e *Engine) GenerateTOTPSetup(ctx context.Context, accountID string) (*TOTPSetup, error) {
	if e == nil || e.store == nil || e.totp == nil {
		return nil, ErrEngineNotReady
	}
	if accountID == "" {
		return nil, ErrUserNotFound
	}

	account, err := e.accountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.Active {
		return nil, ErrAccountDisabled
	}

	secret, uri, err := e.totp.GenerateSecret(account.Username)
	if err != nil {
		e.warn("totp secret generation failed", "account_id", account.ID, "error", err)
		return nil, ErrTOTPUnavailable
	}
	if err := e.store.UpdateTOTPSecret(ctx, account.ID, secret); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTOTPUnavailable, err)
	}

	qr, err := e.totp.QRDataURL(uri)
	if err != nil {
		e.warn("totp qr render failed", "account_id", account.ID, "error", err)
		return nil, ErrTOTPUnavailable
	}

	e.info("totp setup generated", "account_id", account.ID)
	return &TOTPSetup{
		SecretBase32: secret,
		URI:          uri,
		QRCodeURL:    qr,
	}, nil
}

// ConfirmTOTPSetup proves the account holds the enrolled secret. On the
// first successful confirmation it enables the second factor and returns
// the account's single-use backup codes; this is the only moment their
// plaintext ever exists. Confirming again later verifies the code and
// returns no codes.
func (e *Engine) ConfirmTOTPSetup(ctx context.Context, accountID, code string) ([]string, error) {
	if e == nil || e.store == nil || e.totp == nil {
		return nil, ErrEngineNotReady
	}
	if accountID == "" {
		return nil, ErrUserNotFound
	}

	account, err := e.accountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.TOTPSecret == "" {
		return nil, ErrTOTPNotConfigured
	}

	if err := e.checkTOTPCode(account, code); err != nil {
		return nil, err
	}

	if account.TOTPEnabled {
		e.metricInc(MetricTOTPSuccess)
		return nil, nil
	}

	if err := e.store.SetTOTPEnabled(ctx, account.ID, true); err != nil {
		if errors.Is(err, ErrTOTPNotConfigured) {
			return nil, ErrTOTPNotConfigured
		}
		return nil, fmt.Errorf("%w: %v", ErrTOTPUnavailable, err)
	}

	codes, err := e.mintBackupCodes(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricTOTPSuccess)
	e.metricInc(MetricTOTPEnabled)
	e.info("totp enabled", "account_id", account.ID)
	return codes, nil
}

// EnableTOTP turns the second factor on for an account that already holds
// a confirmed secret. Unlike ConfirmTOTPSetup it never mints backup codes.
// Accounts without a stored secret get ErrTOTPNotConfigured.
func (e *Engine) EnableTOTP(ctx context.Context, accountID, code string) error {
	if e == nil || e.store == nil || e.totp == nil {
		return ErrEngineNotReady
	}
	if accountID == "" {
		return ErrUserNotFound
	}

	account, err := e.accountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.TOTPSecret == "" {
		return ErrTOTPNotConfigured
	}

	if err := e.checkTOTPCode(account, code); err != nil {
		return err
	}

	if account.TOTPEnabled {
		return nil
	}

	// The store re-checks the secret in the same statement, so a
	// concurrent disable cannot leave the flag set with no secret.
	if err := e.store.SetTOTPEnabled(ctx, account.ID, true); err != nil {
		if errors.Is(err, ErrTOTPNotConfigured) {
			return ErrTOTPNotConfigured
		}
		return fmt.Errorf("%w: %v", ErrTOTPUnavailable, err)
	}

	e.metricInc(MetricTOTPEnabled)
	e.info("totp enabled", "account_id", account.ID)
	return nil
}

// DisableTOTP turns the second factor off after one last code check. The
// secret, the enabled flag, and every backup code go together in one
// atomic store change; there is no state where some of them survive.
func (e *Engine) DisableTOTP(ctx context.Context, accountID, code string) error {
	if e == nil || e.store == nil || e.totp == nil {
		return ErrEngineNotReady
	}
	if accountID == "" {
		return ErrUserNotFound
	}

	account, err := e.accountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.TOTPEnabled || account.TOTPSecret == "" {
		return ErrTOTPNotConfigured
	}

	if err := e.checkTOTPCode(account, code); err != nil {
		return err
	}

	if err := e.store.ClearTOTP(ctx, account.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrTOTPUnavailable, err)
	}

	e.metricInc(MetricTOTPDisabled)
	e.info("totp disabled", "account_id", account.ID)
	return nil
}

// checkTOTPCode validates a lifecycle code against the account's secret.
// Backup codes are not accepted here; only the authenticator itself can
// change enrollment.
func (e *Engine) checkTOTPCode(account Account, code string) error {
	ok, err := e.totp.VerifyCode(account.TOTPSecret, code, time.Now())
	if err != nil {
		e.warn("totp verification errored", "account_id", account.ID, "error", err)
		e.metricInc(MetricTOTPFailure)
		return ErrTOTPInvalid
	}
	if !ok {
		e.metricInc(MetricTOTPFailure)
		return ErrTOTPInvalid
	}
	return nil
}

// mintBackupCodes replaces the account's recovery codes with a fresh batch
// and returns the display forms.
func (e *Engine) mintBackupCodes(ctx context.Context, accountID string) ([]string, error) {
	display, records, err := backupcode.Batch(
		accountID,
		e.config.TOTP.BackupCodeCount,
		e.config.TOTP.BackupCodeLength,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackupCodeUnavailable, err)
	}

	if err := e.store.ReplaceBackupCodes(ctx, accountID, records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackupCodeUnavailable, err)
	}
	return display, nil
}
