package passgate

import (
	"context"
	"fmt"
)

// ChangePassword swaps the account's password after verifying the current
// one. Outstanding session tokens stay valid until their expiry; issuance
// is stateless and there is nothing to revoke.
func (e *Engine) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	if e == nil || e.store == nil || e.passwordHash == nil {
		return ErrEngineNotReady
	}
	if accountID == "" || oldPassword == "" || newPassword == "" {
		return ErrPasswordPolicy
	}

	account, err := e.accountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.Active {
		return ErrAccountDisabled
	}

	oldOK, err := e.passwordHash.Verify(oldPassword, account.PasswordHash)
	if err != nil || !oldOK {
		e.metricInc(MetricPasswordChangeInvalidOld)
		return ErrInvalidCredentials
	}

	same, err := e.passwordHash.Verify(newPassword, account.PasswordHash)
	if err == nil && same {
		e.metricInc(MetricPasswordChangeReuseRejected)
		return ErrPasswordReuse
	}

	newHash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}

	if err := e.store.UpdatePasswordHash(ctx, account.ID, newHash); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if e.rateLimiter != nil {
		// Reset is best-effort and must not block a completed change.
		if err := e.rateLimiter.ResetLogin(ctx, account.Username, clientIPFromContext(ctx)); err != nil {
			e.warn("login throttle reset failed", "account_id", account.ID, "error", err)
		}
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.info("password changed", "account_id", account.ID)
	return nil
}
