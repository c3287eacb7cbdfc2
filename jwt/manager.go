package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultSessionTTL is the fixed lifetime of an issued token. Sessions
	// are stateless, so expiry is the only thing that ends one.
	DefaultSessionTTL = 24 * time.Hour

	minKeyBytes = 32

	maxLeeway           = 2 * time.Minute
	maxFutureIAT        = 24 * time.Hour
	defaultMaxFutureIAT = 10 * time.Minute
)

// Verification failures collapse onto one of three kinds. Callers log the
// kind server-side; clients only ever see a generic rejection.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature invalid")
)

// Config controls session-token issuance and verification.
type Config struct {
	// SessionTTL is the lifetime stamped into every issued token.
	// Zero selects DefaultSessionTTL.
	SessionTTL time.Duration

	// SigningKey is the shared HMAC-SHA256 key, used for both signing and
	// verification. Minimum 32 bytes.
	SigningKey []byte

	// Issuer and Audience are stamped on issue and enforced on parse when
	// non-empty.
	Issuer   string
	Audience string

	// Leeway tolerates clock skew when validating expiry. Capped at two
	// minutes.
	Leeway time.Duration

	// MaxFutureIAT rejects tokens whose issued-at sits further than this in
	// the future. Zero selects ten minutes.
	MaxFutureIAT time.Duration
}

// SessionClaims is the token payload. UID, Username and Role mirror the
// account the token was minted from; the rest is registered claims.
type SessionClaims struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Elevated reports whether the role claim unlocks administrative access.
func (c *SessionClaims) Elevated() bool {
	return c.Role == "elevated"
}

// Manager signs and verifies session tokens. Safe for concurrent use.
type Manager struct {
	config Config
}

// NewManager validates config and returns a ready Manager.
func NewManager(config Config) (*Manager, error) {
	if config.SessionTTL < 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if config.SessionTTL == 0 {
		config.SessionTTL = DefaultSessionTTL
	}
	if len(config.SigningKey) < minKeyBytes {
		return nil, fmt.Errorf("signing key must be at least %d bytes", minKeyBytes)
	}
	if config.Leeway < 0 || config.Leeway > maxLeeway {
		return nil, errors.New("invalid leeway configuration")
	}
	if config.MaxFutureIAT < 0 || config.MaxFutureIAT > maxFutureIAT {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if config.MaxFutureIAT == 0 {
		config.MaxFutureIAT = defaultMaxFutureIAT
	}

	return &Manager{config: config}, nil
}

// CreateSession signs a session token for the given account. Expiry is fixed
// at the configured TTL from now; there is no refresh and no revocation.
func (m *Manager) CreateSession(accountID, username, role string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UID:      accountID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.SessionTTL)),
		},
	}
	if m.config.Issuer != "" {
		claims.Issuer = m.config.Issuer
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.config.SigningKey)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// ParseSession verifies the signature and registered claims of token and
// returns its payload. Every failure is one of ErrTokenExpired,
// ErrTokenSignature or ErrTokenMalformed; no other errors escape.
func (m *Manager) ParseSession(token string) (*SessionClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if m.config.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(m.config.Audience))
	}
	parser := jwt.NewParser(opts...)

	claims := &SessionClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.config.SigningKey, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}
	if !parsed.Valid {
		return nil, ErrTokenMalformed
	}

	// Reject iat stamped unreasonably far in the future.
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(time.Now().Add(m.config.MaxFutureIAT)) {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignature
	default:
		// Structural damage, bad algorithm, issuer or audience mismatch,
		// future iat: all read as malformed.
		return ErrTokenMalformed
	}
}
