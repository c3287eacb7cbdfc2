package passgate

import "context"

// RegenerateBackupCodes discards every unused recovery code and mints a
// fresh batch, gated on a live TOTP code so a stolen session alone cannot
// rotate them. The returned plaintext is shown once and never stored.
func (e *Engine) RegenerateBackupCodes(ctx context.Context, accountID, totpCode string) ([]string, error) {
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
	if !account.TOTPEnabled || account.TOTPSecret == "" {
		return nil, ErrTOTPNotConfigured
	}

	if err := e.checkTOTPCode(account, totpCode); err != nil {
		return nil, err
	}

	codes, err := e.mintBackupCodes(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricBackupCodeRegenerated)
	e.info("backup codes regenerated", "account_id", account.ID)
	return codes, nil
}
