package passgate

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image/png"
	"strings"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

type totpManager struct {
	config TOTPConfig
}

func newTOTPManager(cfg TOTPConfig) *totpManager {
	if cfg.Digits == 0 {
		cfg.Digits = 6
	}
	if cfg.Period == 0 {
		cfg.Period = 30
	}
	if cfg.SecretBytes == 0 {
		cfg.SecretBytes = 20
	}
	return &totpManager{config: cfg}
}

// GenerateSecret mints a fresh base32 secret bound to account and returns it
// together with its otpauth:// provisioning URI.
func (m *totpManager) GenerateSecret(account string) (secret, uri string, err error) {
	if m == nil {
		return "", "", ErrEngineNotReady
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.config.Issuer,
		AccountName: account,
		Period:      uint(m.config.Period),
		SecretSize:  uint(m.config.SecretBytes),
		Digits:      m.digits(),
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// VerifyCode checks a submitted code against secret at the given time.
// Inputs that are not exactly the configured digit count, or not purely
// numeric, are rejected before any crypto runs. A code is accepted within
// Skew counter steps on either side of now.
func (m *totpManager) VerifyCode(secret, code string, now time.Time) (bool, error) {
	if m == nil {
		return false, ErrEngineNotReady
	}

	trimmed := strings.TrimSpace(code)
	if len(trimmed) != m.config.Digits || !isNumericString(trimmed) {
		return false, nil
	}
	if secret == "" {
		return false, errors.New("empty totp secret")
	}

	return totp.ValidateCustom(trimmed, secret, now, totp.ValidateOpts{
		Period:    uint(m.config.Period),
		Skew:      uint(m.config.Skew),
		Digits:    m.digits(),
		Algorithm: otp.AlgorithmSHA1,
	})
}

// QRDataURL renders uri as a scaled PNG QR code and returns it as a
// data:image/png;base64 URL for direct embedding.
func (m *totpManager) QRDataURL(uri string) (string, error) {
	size := m.config.QRSize
	if size <= 0 {
		size = 256
	}

	code, err := qr.Encode(uri, qr.M, qr.Auto)
	if err != nil {
		return "", err
	}
	code, err = barcode.Scale(code, size, size)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (m *totpManager) digits() otp.Digits {
	if m.config.Digits == 8 {
		return otp.DigitsEight
	}
	return otp.DigitsSix
}

func isNumericString(v string) bool {
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return false
		}
	}
	return true
}
