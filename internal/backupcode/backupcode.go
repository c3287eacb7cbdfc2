// Package backupcode mints, formats and hashes the single-use recovery codes
// handed out when two-factor auth is first enabled.
package backupcode

import (
	"crypto/rand"
	"crypto/sha256"
	"math/big"
	"strings"
)

// Alphabet excludes I, O, 0 and 1 so hand-typed codes stay unambiguous.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Record is a stored backup code. Only the account-bound hash survives
// persistence; plaintext is shown to the user once and discarded.
type Record struct {
	Hash [32]byte
}

// New returns a random code of length characters drawn from Alphabet.
func New(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(Alphabet))))
		if err != nil {
			return "", err
		}
		b.WriteByte(Alphabet[int(n.Int64())])
	}
	return b.String(), nil
}

// Format renders a code for display with a hyphen at the midpoint.
func Format(code string) string {
	n := len(code)
	if n < 8 {
		return code
	}
	mid := n / 2
	return code[:mid] + "-" + code[mid:]
}

// Canonicalize uppercases code and strips separators and whitespace, mapping
// any user-entered form back to the stored shape.
func Canonicalize(code string) string {
	s := strings.ToUpper(strings.TrimSpace(code))
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

// IsCode reports whether canonical has backup-code shape: exactly length
// characters, all drawn from Alphabet.
func IsCode(canonical string, length int) bool {
	if len(canonical) != length {
		return false
	}
	for i := 0; i < len(canonical); i++ {
		if strings.IndexByte(Alphabet, canonical[i]) < 0 {
			return false
		}
	}
	return true
}

// Hash binds a canonical code to an account so identical codes held by two
// accounts never share a stored hash.
func Hash(accountID, canonicalCode string) [32]byte {
	data := make([]byte, 0, len(accountID)+1+len(canonicalCode))
	data = append(data, accountID...)
	data = append(data, 0)
	data = append(data, canonicalCode...)
	return sha256.Sum256(data)
}

// Batch mints count fresh codes of the given length for accountID, returning
// display-formatted codes alongside their stored records.
func Batch(accountID string, count, length int) ([]string, []Record, error) {
	display := make([]string, 0, count)
	records := make([]Record, 0, count)
	for i := 0; i < count; i++ {
		raw, err := New(length)
		if err != nil {
			return nil, nil, err
		}
		records = append(records, Record{Hash: Hash(accountID, raw)})
		display = append(display, Format(raw))
	}
	return display, records, nil
}
