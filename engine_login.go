package passgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agit8or1/passgate/internal/backupcode"
	"github.com/agit8or1/passgate/internal/rate"
)

// Login runs the password pass of authentication. Accounts without a
// second factor get a session token immediately; enrolled accounts get a
// LoginResult with TwoFactorRequired set and no token. The two-factor
// prompt is only ever reached after the password verified, so it leaks
// nothing about accounts the caller cannot already access.
func (e *Engine) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	return e.loginInternal(ctx, username, password, "")
}

// LoginWithCode runs the second pass of a two-factor login. No state is
// held between passes: the password is verified again from scratch. The
// code may be a TOTP code or a backup code; they are told apart by shape
// before any verification work happens.
func (e *Engine) LoginWithCode(ctx context.Context, username, password, code string) (*LoginResult, error) {
	return e.loginInternal(ctx, username, password, code)
}

func (e *Engine) loginInternal(ctx context.Context, username, password, code string) (*LoginResult, error) {
	if e == nil || e.store == nil || e.passwordHash == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	clientIP := clientIPFromContext(ctx)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, username, clientIP); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricLoginRateLimited)
				return nil, ErrLoginRateLimited
			}
			// Redis being down must not lock every account out.
			e.warn("login throttle check failed", "error", err)
		}
	}

	if username == "" || password == "" {
		return nil, e.failLogin(ctx, username, clientIP, ErrInvalidCredentials)
	}

	account, err := e.accountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Unknown username and wrong password must be
			// indistinguishable to the caller.
			return nil, e.failLogin(ctx, username, clientIP, ErrInvalidCredentials)
		}
		return nil, err
	}

	ok, err := e.passwordHash.Verify(password, account.PasswordHash)
	if err != nil || !ok {
		return nil, e.failLogin(ctx, username, clientIP, ErrInvalidCredentials)
	}

	if !account.Active {
		e.metricInc(MetricLoginFailure)
		return nil, ErrAccountDisabled
	}

	if account.TOTPEnabled {
		if code == "" {
			e.metricInc(MetricTOTPRequired)
			return &LoginResult{Account: account.Info(), TwoFactorRequired: true}, nil
		}
		if err := e.verifySecondFactor(ctx, account, code); err != nil {
			if errors.Is(err, ErrTOTPInvalid) || errors.Is(err, ErrBackupCodeInvalid) {
				return nil, e.failLogin(ctx, username, clientIP, err)
			}
			return nil, err
		}
	}

	e.maybeUpgradeHash(ctx, account, password)

	if err := e.store.UpdateLastLogin(ctx, account.ID, time.Now()); err != nil {
		e.warn("last login update failed", "account_id", account.ID, "error", err)
	}

	token, err := e.jwtManager.CreateSession(account.ID, account.Username, account.Role)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.ResetLogin(ctx, username, clientIP); err != nil {
			e.warn("login throttle reset failed", "account_id", account.ID, "error", err)
		}
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionIssued)
	e.info("login succeeded", "account_id", account.ID)

	return &LoginResult{Token: token, Account: account.Info()}, nil
}

// failLogin burns one attempt from the caller's budget and returns the
// rejection. When this failure is the one that exhausts the budget, the
// rate limit wins over the original cause.
func (e *Engine) failLogin(ctx context.Context, username, ip string, cause error) error {
	e.metricInc(MetricLoginFailure)

	if e.rateLimiter == nil {
		return cause
	}
	if err := e.rateLimiter.IncrementLogin(ctx, username, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricLoginRateLimited)
			return ErrLoginRateLimited
		}
		e.warn("login throttle increment failed", "error", err)
	}
	return cause
}

// verifySecondFactor checks code against the account's enrolled factor.
// Rejections surface as ErrTOTPInvalid or ErrBackupCodeInvalid; anything
// else is a backend failure and must not burn login budget.
func (e *Engine) verifySecondFactor(ctx context.Context, account Account, code string) error {
	canonical := backupcode.Canonicalize(code)
	if backupcode.IsCode(canonical, e.config.TOTP.BackupCodeLength) {
		return e.redeemBackupCode(ctx, account, canonical)
	}

	ok, err := e.totp.VerifyCode(account.TOTPSecret, code, time.Now())
	if err != nil {
		// Covers the enabled-but-no-secret state. Fail closed.
		e.warn("totp verification errored", "account_id", account.ID, "error", err)
		e.metricInc(MetricTOTPFailure)
		return ErrTOTPInvalid
	}
	if !ok {
		e.metricInc(MetricTOTPFailure)
		return ErrTOTPInvalid
	}

	e.metricInc(MetricTOTPSuccess)
	return nil
}

func (e *Engine) redeemBackupCode(ctx context.Context, account Account, canonical string) error {
	hash := backupcode.Hash(account.ID, canonical)

	used, err := e.store.ConsumeBackupCode(ctx, account.ID, hash)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackupCodeUnavailable, err)
	}
	if !used {
		e.metricInc(MetricBackupCodeFailed)
		return ErrBackupCodeInvalid
	}

	e.metricInc(MetricBackupCodeUsed)
	e.info("backup code redeemed", "account_id", account.ID)
	return nil
}

// maybeUpgradeHash rehashes the password under current cost parameters
// when the stored hash is weaker. Best effort: login proceeds either way.
func (e *Engine) maybeUpgradeHash(ctx context.Context, account Account, plaintext string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}

	needs, err := e.passwordHash.NeedsRehash(account.PasswordHash)
	if err != nil || !needs {
		return
	}

	newHash, err := e.passwordHash.Hash(plaintext)
	if err != nil {
		e.warn("password hash upgrade failed", "account_id", account.ID, "error", err)
		return
	}
	if err := e.store.UpdatePasswordHash(ctx, account.ID, newHash); err != nil {
		e.warn("password hash upgrade update failed", "account_id", account.ID, "error", err)
	}
}
