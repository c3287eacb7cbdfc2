// Package memory provides an in-process AccountStore for tests, demos,
// and single-node deployments that do not want a database. All mutations
// take one lock, which is what makes the conditional and atomic store
// contracts trivial to honor here.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agit8or1/passgate"
)

// Store holds accounts and their recovery codes behind a single RWMutex.
// The zero value is not usable; construct with New.
type Store struct {
	mu         sync.RWMutex
	byID       map[string]passgate.Account
	byUsername map[string]string
	backup     map[string][]passgate.BackupCodeRecord
}

// New returns an empty store.
func New() *Store {
	return &Store{
		byID:       make(map[string]passgate.Account),
		byUsername: make(map[string]string),
		backup:     make(map[string][]passgate.BackupCodeRecord),
	}
}

// CreateAccount inserts a new active account with a fresh ID. The password
// hash is stored as given; hashing is the caller's job.
func (s *Store) CreateAccount(ctx context.Context, username, passwordHash, role string) (passgate.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUsername[username]; exists {
		return passgate.Account{}, errors.New("username already taken")
	}

	account := passgate.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Role:         role,
		PasswordHash: passwordHash,
		Active:       true,
	}
	s.byID[account.ID] = account
	s.byUsername[username] = account.ID
	return account, nil
}

// Put inserts or replaces an account verbatim. Meant for test seeding.
func (s *Store) Put(account passgate.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[account.ID] = account
	s.byUsername[account.Username] = account.ID
}

func (s *Store) GetAccountByUsername(ctx context.Context, username string) (passgate.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return passgate.Account{}, passgate.ErrUserNotFound
	}
	account, ok := s.byID[id]
	if !ok {
		return passgate.Account{}, passgate.ErrUserNotFound
	}
	return account, nil
}

func (s *Store) GetAccountByID(ctx context.Context, id string) (passgate.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.byID[id]
	if !ok {
		return passgate.Account{}, passgate.ErrUserNotFound
	}
	return account, nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.byID[id]
	if !ok {
		return passgate.ErrUserNotFound
	}
	account.PasswordHash = hash
	s.byID[id] = account
	return nil
}

func (s *Store) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.byID[id]
	if !ok {
		return passgate.ErrUserNotFound
	}
	account.LastLogin = at
	s.byID[id] = account
	return nil
}

func (s *Store) UpdateTOTPSecret(ctx context.Context, id, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.byID[id]
	if !ok {
		return passgate.ErrUserNotFound
	}
	account.TOTPSecret = secret
	s.byID[id] = account
	return nil
}

// SetTOTPEnabled flips the enrollment flag. Enabling demands a stored
// secret; the check and the write happen under one lock so a concurrent
// clear cannot produce an enabled account with no secret.
func (s *Store) SetTOTPEnabled(ctx context.Context, id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.byID[id]
	if !ok {
		return passgate.ErrUserNotFound
	}
	if enabled && account.TOTPSecret == "" {
		return passgate.ErrTOTPNotConfigured
	}
	account.TOTPEnabled = enabled
	s.byID[id] = account
	return nil
}

// ClearTOTP drops the secret, the flag, and every backup code together.
func (s *Store) ClearTOTP(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.byID[id]
	if !ok {
		return passgate.ErrUserNotFound
	}
	account.TOTPSecret = ""
	account.TOTPEnabled = false
	s.byID[id] = account
	delete(s.backup, id)
	return nil
}

func (s *Store) ReplaceBackupCodes(ctx context.Context, id string, codes []passgate.BackupCodeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return passgate.ErrUserNotFound
	}
	stored := make([]passgate.BackupCodeRecord, len(codes))
	copy(stored, codes)
	s.backup[id] = stored
	return nil
}

// ConsumeBackupCode burns the code matching codeHash, if any. The lookup
// and the removal are one critical section, so two concurrent redemptions
// of the same code cannot both succeed.
func (s *Store) ConsumeBackupCode(ctx context.Context, id string, codeHash [32]byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	codes := s.backup[id]
	for i, record := range codes {
		if record.Hash == codeHash {
			s.backup[id] = append(codes[:i], codes[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// BackupCodeCount reports how many unused codes the account holds.
func (s *Store) BackupCodeCount(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.backup[id])
}
