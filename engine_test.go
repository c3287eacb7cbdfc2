package passgate

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"
)

// mockAccountStore is an AccountStore with failure injection. It honors
// the same consistency contracts as the real stores: conditional enable,
// atomic clear, atomic code consumption.
type mockAccountStore struct {
	mu         sync.Mutex
	byID       map[string]Account
	byUsername map[string]string
	backup     map[string][]BackupCodeRecord

	lookupErr error
	updateErr error

	updatePasswordCalls int
	lastLoginCalls      int
	replaceBackupCalls  int
}

func newMockAccountStore() *mockAccountStore {
	return &mockAccountStore{
		byID:       make(map[string]Account),
		byUsername: make(map[string]string),
		backup:     make(map[string][]BackupCodeRecord),
	}
}

func (m *mockAccountStore) put(a Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[a.ID] = a
	m.byUsername[a.Username] = a.ID
}

func (m *mockAccountStore) get(id string) Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

func (m *mockAccountStore) GetAccountByUsername(_ context.Context, username string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return Account{}, m.lookupErr
	}
	id, ok := m.byUsername[username]
	if !ok {
		return Account{}, ErrUserNotFound
	}
	return m.byID[id], nil
}

func (m *mockAccountStore) GetAccountByID(_ context.Context, id string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return Account{}, m.lookupErr
	}
	a, ok := m.byID[id]
	if !ok {
		return Account{}, ErrUserNotFound
	}
	return a, nil
}

func (m *mockAccountStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updatePasswordCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	a, ok := m.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	a.PasswordHash = hash
	m.byID[id] = a
	return nil
}

func (m *mockAccountStore) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLoginCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	a, ok := m.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	a.LastLogin = at
	m.byID[id] = a
	return nil
}

func (m *mockAccountStore) UpdateTOTPSecret(_ context.Context, id, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	a, ok := m.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	a.TOTPSecret = secret
	m.byID[id] = a
	return nil
}

func (m *mockAccountStore) SetTOTPEnabled(_ context.Context, id string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	a, ok := m.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	if enabled && a.TOTPSecret == "" {
		return ErrTOTPNotConfigured
	}
	a.TOTPEnabled = enabled
	m.byID[id] = a
	return nil
}

func (m *mockAccountStore) ClearTOTP(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	a, ok := m.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	a.TOTPSecret = ""
	a.TOTPEnabled = false
	m.byID[id] = a
	delete(m.backup, id)
	return nil
}

func (m *mockAccountStore) ReplaceBackupCodes(_ context.Context, id string, codes []BackupCodeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceBackupCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	stored := make([]BackupCodeRecord, len(codes))
	copy(stored, codes)
	m.backup[id] = stored
	return nil
}

func (m *mockAccountStore) ConsumeBackupCode(_ context.Context, id string, codeHash [32]byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return false, m.updateErr
	}
	codes := m.backup[id]
	for i, record := range codes {
		if record.Hash == codeHash {
			m.backup[id] = append(codes[:i], codes[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAccountStore) backupCodeCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.backup[id])
}

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

func engineTestConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.SigningKey = append([]byte(nil), testSigningKey...)
	cfg.Security.MaxLoginAttempts = 3
	cfg.Security.LoginCooldownDuration = time.Minute
	return cfg
}

func newTestEngine(t *testing.T, mutate func(*Config)) (*Engine, *mockAccountStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := newMockAccountStore()

	cfg := engineTestConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithStore(store).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return engine, store, mr
}

func seedAccount(t *testing.T, e *Engine, store *mockAccountStore, username, plain string) Account {
	t.Helper()

	hash, err := e.passwordHash.Hash(plain)
	if err != nil {
		t.Fatalf("hash seed password: %v", err)
	}
	account := Account{
		ID:           "acct-" + username,
		Username:     username,
		Role:         RoleStandard,
		PasswordHash: hash,
		Active:       true,
	}
	store.put(account)
	return account
}

func codeForSecret(t testing.TB, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		t.Fatalf("generate totp code: %v", err)
	}
	return code
}

// enrollTOTP walks an account through setup and confirmation, returning
// the secret and the backup codes handed out on first enable.
func enrollTOTP(t *testing.T, e *Engine, accountID string) (string, []string) {
	t.Helper()

	setup, err := e.GenerateTOTPSetup(context.Background(), accountID)
	if err != nil {
		t.Fatalf("GenerateTOTPSetup: %v", err)
	}
	codes, err := e.ConfirmTOTPSetup(context.Background(), accountID, codeForSecret(t, setup.SecretBase32, time.Now()))
	if err != nil {
		t.Fatalf("ConfirmTOTPSetup: %v", err)
	}
	return setup.SecretBase32, codes
}
