package passgate

import (
	"fmt"
	"time"
)

// SecurityReport is a point-in-time summary of the engine's security
// posture, assembled from configuration alone. It exposes no secrets and
// is safe to log or serve from an admin surface.
type SecurityReport struct {
	ProductionMode     bool
	SigningAlgorithm   string
	SessionTTL         time.Duration
	Argon2             PasswordConfigReport
	TOTPDigits         int
	TOTPSkew           int
	BackupCodeCount    int
	RateLimitingActive bool
	IPThrottleActive   bool
}

// PasswordConfigReport mirrors the argon2id cost surface without the
// signing material that lives next to it in Config.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// SecurityReport builds the posture summary for this engine.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	rateLimiting := e.rateLimiter != nil &&
		e.config.Security.MaxLoginAttempts > 0 &&
		e.config.Security.LoginCooldownDuration > 0

	return SecurityReport{
		ProductionMode:   e.config.Security.ProductionMode,
		SigningAlgorithm: "HS256",
		SessionTTL:       e.config.JWT.SessionTTL,
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		TOTPDigits:         e.config.TOTP.Digits,
		TOTPSkew:           e.config.TOTP.Skew,
		BackupCodeCount:    e.config.TOTP.BackupCodeCount,
		RateLimitingActive: rateLimiting,
		IPThrottleActive:   rateLimiting && e.config.Security.EnableIPThrottle,
	}
}

// Warnings lists posture findings an operator should review before
// production. An empty slice means nothing stood out.
func (r SecurityReport) Warnings() []string {
	var out []string

	if !r.ProductionMode {
		out = append(out, "production mode is off")
	}
	if r.SessionTTL > 24*time.Hour {
		out = append(out, fmt.Sprintf("session TTL %s exceeds 24h", r.SessionTTL))
	}
	if r.Argon2.Memory < 65536 {
		out = append(out, fmt.Sprintf("argon2 memory %d KB is below the 64 MB baseline", r.Argon2.Memory))
	}
	if !r.RateLimitingActive {
		out = append(out, "login rate limiting is inactive")
	}
	if r.RateLimitingActive && !r.IPThrottleActive {
		out = append(out, "per-IP login throttle is off")
	}
	if r.TOTPSkew > 2 {
		out = append(out, fmt.Sprintf("totp skew %d widens the accept window beyond +/-60s", r.TOTPSkew))
	}

	return out
}
