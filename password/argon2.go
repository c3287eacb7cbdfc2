package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithmID = "argon2id"

	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	minPassBytes          = 8
)

// Config holds the Argon2id cost parameters applied to newly created hashes.
// Verification reads parameters out of the stored hash instead.
type Config struct {
	MemoryKB    uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	// MaxPasswordBytes caps the plaintext length fed to the KDF.
	// Zero means no cap.
	MaxPasswordBytes int
}

// Hasher hashes and verifies passwords. Safe for concurrent use.
type Hasher struct {
	config Config
}

// New validates cfg against hard parameter floors and returns a Hasher.
func New(cfg Config) (*Hasher, error) {
	switch {
	case cfg.MemoryKB < minMemoryKB:
		return nil, errors.New("password memory must be >= 8192 KB")
	case cfg.Time < minTimeCost:
		return nil, errors.New("password time must be >= 1")
	case cfg.Parallelism < minParallelism:
		return nil, errors.New("password parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return nil, errors.New("password salt length must be >= 16")
	case cfg.KeyLength < minKeyLength:
		return nil, errors.New("password key length must be >= 16")
	}

	return &Hasher{config: cfg}, nil
}

// Hash derives an Argon2id hash of password under the configured parameters
// and returns it PHC-encoded. The plaintext is used byte-for-byte as provided,
// with no Unicode normalization.
func (h *Hasher) Hash(password string) (string, error) {
	if len(password) < minPassBytes {
		return "", fmt.Errorf("password must be at least %d bytes", minPassBytes)
	}
	if h.config.MaxPasswordBytes > 0 && len(password) > h.config.MaxPasswordBytes {
		return "", fmt.Errorf("password exceeds %d bytes", h.config.MaxPasswordBytes)
	}

	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey(
		[]byte(password),
		salt,
		h.config.Time,
		h.config.MemoryKB,
		h.config.Parallelism,
		h.config.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.config.MemoryKB,
		h.config.Time,
		h.config.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the hash of password under the parameters embedded in
// encodedHash and compares in constant time. A malformed or unsupported hash
// is an error, not a mismatch.
func (h *Hasher) Verify(password, encodedHash string) (bool, error) {
	if h.config.MaxPasswordBytes > 0 && len(password) > h.config.MaxPasswordBytes {
		return false, fmt.Errorf("password exceeds %d bytes", h.config.MaxPasswordBytes)
	}

	rec, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(password),
		rec.salt,
		rec.time,
		rec.memoryKB,
		rec.parallelism,
		uint32(len(rec.key)),
	)

	return subtle.ConstantTimeCompare(computed, rec.key) == 1, nil
}

// NeedsRehash reports whether encodedHash was produced with parameters weaker
// than the current configuration.
func (h *Hasher) NeedsRehash(encodedHash string) (bool, error) {
	rec, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}

	if h.config.MemoryKB > rec.memoryKB ||
		h.config.Time > rec.time ||
		h.config.Parallelism > rec.parallelism {
		return true, nil
	}
	if h.config.KeyLength != uint32(len(rec.key)) {
		return true, nil
	}

	return false, nil
}

type phcRecord struct {
	memoryKB    uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func decodePHC(encoded string) (*phcRecord, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid PHC format")
	}
	if parts[1] != algorithmID {
		return nil, errors.New("unsupported algorithm")
	}

	versionStr, ok := strings.CutPrefix(parts[2], "v=")
	if !ok {
		return nil, errors.New("missing argon2 version")
	}
	version, err := strconv.Atoi(versionStr)
	if err != nil || version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	var rec phcRecord
	if err := parseCostParams(parts[3], &rec); err != nil {
		return nil, err
	}

	rec.salt, err = base64.StdEncoding.DecodeString(parts[4])
	if err != nil || len(rec.salt) < int(minSaltLength) {
		return nil, errors.New("invalid salt")
	}

	rec.key, err = base64.StdEncoding.DecodeString(parts[5])
	if err != nil || len(rec.key) == 0 {
		return nil, errors.New("invalid key")
	}

	return &rec, nil
}

func parseCostParams(part string, rec *phcRecord) error {
	var haveM, haveT, haveP bool

	for _, pair := range strings.Split(part, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return errors.New("invalid parameter entry")
		}

		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < uint64(minMemoryKB) {
				return errors.New("invalid memory parameter")
			}
			rec.memoryKB = uint32(n)
			haveM = true
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < uint64(minTimeCost) {
				return errors.New("invalid time parameter")
			}
			rec.time = uint32(n)
			haveT = true
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil || n < uint64(minParallelism) {
				return errors.New("invalid parallelism parameter")
			}
			rec.parallelism = uint8(n)
			haveP = true
		default:
			return errors.New("unsupported parameter")
		}
	}

	if !haveM || !haveT || !haveP {
		return errors.New("missing cost parameters")
	}
	return nil
}
