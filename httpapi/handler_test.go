package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"

	"github.com/agit8or1/passgate"
	"github.com/agit8or1/passgate/password"
	"github.com/agit8or1/passgate/store/memory"
)

var apiSigningKey = []byte("0123456789abcdef0123456789abcdef")

// rfcSecret is the RFC 6238 appendix secret, base32-encoded.
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

type apiFixture struct {
	handler *Handler
	store   *memory.Store
	hasher  *password.Hasher
}

// newAPIFixture builds a handler over a fresh in-memory store. The argon2
// cost sits at the floor so wire tests stay quick; hashing strength has its
// own tests. withRedis attaches a miniredis-backed login limiter.
func newAPIFixture(t *testing.T, withRedis bool, mutate func(*passgate.Config)) *apiFixture {
	t.Helper()

	cfg := passgate.DefaultConfig()
	cfg.JWT.SigningKey = append([]byte(nil), apiSigningKey...)
	cfg.Password.Memory = 8192
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	if mutate != nil {
		mutate(&cfg)
	}

	store := memory.New()
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))

	builder := passgate.New().
		WithConfig(cfg).
		WithStore(store).
		WithLogger(discard)

	if withRedis {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		builder = builder.WithRedis(client)
	}

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	hasher, err := password.New(password.Config{
		MemoryKB:    cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		t.Fatalf("password.New: %v", err)
	}

	return &apiFixture{
		handler: NewHandler(engine, discard),
		store:   store,
		hasher:  hasher,
	}
}

// seed hashes plaintext and stores the account as given. Callers set Active
// and any TOTP state explicitly.
func (f *apiFixture) seed(t *testing.T, account passgate.Account, plaintext string) passgate.Account {
	t.Helper()

	hash, err := f.hasher.Hash(plaintext)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	account.PasswordHash = hash
	if account.ID == "" {
		account.ID = "acct-" + account.Username
	}
	if account.Role == "" {
		account.Role = "standard"
	}
	f.store.Put(account)
	return account
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "203.0.113.7:49152"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) login(t *testing.T, username, password, code string) *httptest.ResponseRecorder {
	t.Helper()

	body := map[string]string{"username": username, "password": password}
	if code != "" {
		body["totpToken"] = code
	}
	return f.do(t, http.MethodPost, "/login", "", body)
}

func (f *apiFixture) loginToken(t *testing.T, username, password string) string {
	t.Helper()

	rec := f.login(t, username, password, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	token, _ := decodeBody(t, rec)["token"].(string)
	if token == "" {
		t.Fatalf("login: no token in %s", rec.Body.String())
	}
	return token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return m
}

func totpCode(t *testing.T, secret string, at time.Time) string {
	t.Helper()

	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		t.Fatalf("GenerateCodeCustom: %v", err)
	}
	return code
}
