package passgate

import (
	"errors"
	"time"
)

// Config carries every tunable the engine honors. Fill it once before
// Build and treat it as immutable afterwards; Build keeps a private copy.
type Config struct {
	JWT      JWTConfig
	Password PasswordConfig
	TOTP     TOTPConfig
	Security SecurityConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls session token issuance. Tokens are HS256 over
// SigningKey and expire SessionTTL after issuance; there is no refresh or
// revocation path, a token is valid until its expiry.
type JWTConfig struct {
	SessionTTL time.Duration
	SigningKey []byte

	// Issuer and Audience are stamped into and demanded from every token
	// when non-empty.
	Issuer   string
	Audience string

	// Leeway loosens exp/iat checks by the given duration. Zero means
	// exact clock comparison.
	Leeway time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the argon2id cost surface. Memory is in KB.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	// MaxPasswordBytes caps the plaintext fed to the KDF so oversized
	// bodies cannot buy expensive hashing work. Zero disables the cap.
	MaxPasswordBytes int

	// UpgradeOnLogin rehashes a stored password during login when its
	// recorded cost parameters fall below the configured ones.
	UpgradeOnLogin bool
}

/*
====================================
TOTP CONFIG
====================================
*/

// TOTPConfig controls second-factor enrollment and verification. Codes are
// SHA-1 HMAC over Period-second counters; a submitted code is accepted
// within Skew counter steps on either side of the current one.
type TOTPConfig struct {
	// Issuer is the label authenticator apps display, and is embedded in
	// every provisioning URI.
	Issuer string

	Digits      int
	Period      int
	Skew        int
	SecretBytes int

	// QRSize is the pixel edge of the rendered enrollment QR code.
	QRSize int

	// BackupCodeCount and BackupCodeLength shape the single-use recovery
	// codes minted when the second factor is first confirmed.
	BackupCodeCount  int
	BackupCodeLength int
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig gathers the knobs that trade convenience for exposure.
type SecurityConfig struct {
	// ProductionMode tightens the posture report; it changes no runtime
	// behavior on its own.
	ProductionMode bool

	// EnableIPThrottle counts failed logins per source address on top of
	// the per-username budget. Requires a client IP on the context.
	EnableIPThrottle bool

	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig switches the in-process counters on. Histograms add a
// small allocation-free cost to token validation and default to off.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the configuration the builder starts from. The
// signing key is left empty and must be supplied before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			SessionTTL: 24 * time.Hour,
		},
		Password: PasswordConfig{
			Memory:           65536,
			Time:             3,
			Parallelism:      2,
			SaltLength:       16,
			KeyLength:        32,
			MaxPasswordBytes: 1024,
			UpgradeOnLogin:   true,
		},
		TOTP: TOTPConfig{
			Issuer:           "passgate",
			Digits:           6,
			Period:           30,
			Skew:             2,
			SecretBytes:      20,
			QRSize:           256,
			BackupCodeCount:  8,
			BackupCodeLength: 8,
		},
		Security: SecurityConfig{
			ProductionMode:        false,
			EnableIPThrottle:      false,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.SigningKey = cloneBytes(cfg.JWT.SigningKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects configurations the engine cannot run safely. It checks
// sections in declaration order and reports the first violation.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.SessionTTL <= 0 {
		return errors.New("JWT SessionTTL must be > 0")
	}
	if len(c.JWT.SigningKey) < 32 {
		return errors.New("JWT SigningKey must be at least 32 bytes")
	}
	if c.JWT.Leeway < 0 {
		return errors.New("JWT Leeway must be >= 0")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MaxPasswordBytes < 0 {
		return errors.New("Password MaxPasswordBytes must be >= 0")
	}

	// TOTP
	if c.TOTP.Digits != 6 && c.TOTP.Digits != 8 {
		return errors.New("TOTP Digits must be 6 or 8")
	}
	if c.TOTP.Period < 15 {
		return errors.New("TOTP Period must be >= 15 seconds")
	}
	if c.TOTP.Skew < 0 || c.TOTP.Skew > 4 {
		return errors.New("TOTP Skew must be between 0 and 4")
	}
	if c.TOTP.SecretBytes < 16 {
		return errors.New("TOTP SecretBytes must be >= 16")
	}
	if c.TOTP.QRSize < 64 {
		return errors.New("TOTP QRSize must be >= 64")
	}
	if c.TOTP.BackupCodeCount < 1 {
		return errors.New("TOTP BackupCodeCount must be >= 1")
	}
	if c.TOTP.BackupCodeLength < 8 {
		return errors.New("TOTP BackupCodeLength must be >= 8")
	}

	// Security
	if c.Security.MaxLoginAttempts < 1 {
		return errors.New("Security MaxLoginAttempts must be >= 1")
	}
	if c.Security.LoginCooldownDuration <= 0 {
		return errors.New("Security LoginCooldownDuration must be > 0")
	}

	return nil
}
