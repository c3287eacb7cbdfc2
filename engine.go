package passgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agit8or1/passgate/internal/rate"
	"github.com/agit8or1/passgate/jwt"
	"github.com/agit8or1/passgate/password"
)

// Engine is the authentication core. Construct it through [Builder.Build];
// a zero-value Engine rejects every call with ErrEngineNotReady. All
// methods are safe for concurrent use.
type Engine struct {
	config       Config
	store        AccountStore
	rateLimiter  *rate.Limiter
	metrics      *Metrics
	passwordHash *password.Hasher
	totp         *totpManager
	jwtManager   *jwt.Manager
	logger       *slog.Logger
}

// MetricsSnapshot copies the engine's counters. Safe on a nil engine or
// with metrics disabled; both return empty maps.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) warn(msg string, args ...any) {
	if e == nil || e.logger == nil {
		return
	}
	e.logger.Warn(msg, args...)
}

func (e *Engine) info(msg string, args ...any) {
	if e == nil || e.logger == nil {
		return
	}
	e.logger.Info(msg, args...)
}

func (e *Engine) debug(msg string, args ...any) {
	if e == nil || e.logger == nil {
		return
	}
	e.logger.Debug(msg, args...)
}

// ValidateToken verifies a session token's signature and claims entirely
// in process and returns the embedded identity. Failures are one of
// jwt.ErrTokenExpired, jwt.ErrTokenMalformed, or jwt.ErrTokenSignature.
func (e *Engine) ValidateToken(token string) (*jwt.SessionClaims, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	claims, err := e.jwtManager.ParseSession(token)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}

	if err != nil {
		e.metricInc(MetricValidateFailure)
		e.debug("session token rejected", "reason", err)
		return nil, err
	}

	e.metricInc(MetricValidateSuccess)
	return claims, nil
}

// accountByID loads an account, folding store failures into the engine's
// error vocabulary.
func (e *Engine) accountByID(ctx context.Context, id string) (Account, error) {
	account, err := e.store.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Account{}, ErrUserNotFound
		}
		return Account{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return account, nil
}

func (e *Engine) accountByUsername(ctx context.Context, username string) (Account, error) {
	account, err := e.store.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Account{}, ErrUserNotFound
		}
		return Account{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return account, nil
}
