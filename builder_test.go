package passgate

import (
	"strings"
	"testing"
)

func TestBuilderRequiresStore(t *testing.T) {
	cfg := engineTestConfig()

	_, err := New().WithConfig(cfg).Build()
	if err == nil || !strings.Contains(err.Error(), "account store") {
		t.Fatalf("expected store requirement error, got %v", err)
	}
}

func TestBuilderValidatesConfig(t *testing.T) {
	cfg := engineTestConfig()
	cfg.JWT.SigningKey = []byte("short")

	_, err := New().WithConfig(cfg).WithStore(newMockAccountStore()).Build()
	if err == nil || !strings.Contains(err.Error(), "SigningKey") {
		t.Fatalf("expected signing key rejection, got %v", err)
	}
}

func TestBuilderIsOneShot(t *testing.T) {
	b := New().WithConfig(engineTestConfig()).WithStore(newMockAccountStore())

	if _, err := b.Build(); err != nil {
		t.Fatalf("first Build: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("second Build should fail")
	}
}

func TestBuilderCopiesConfig(t *testing.T) {
	cfg := engineTestConfig()
	b := New().WithConfig(cfg).WithStore(newMockAccountStore())

	// Mutating the caller's copy after WithConfig must not reach Build.
	cfg.JWT.SigningKey[0] ^= 0xff
	cfg.Security.MaxLoginAttempts = 0

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if engine.config.Security.MaxLoginAttempts != 3 {
		t.Fatalf("config aliased: MaxLoginAttempts = %d", engine.config.Security.MaxLoginAttempts)
	}
	if engine.config.JWT.SigningKey[0] == cfg.JWT.SigningKey[0] {
		t.Fatal("signing key aliased into the engine")
	}
}

func TestBuilderWithoutRedis(t *testing.T) {
	engine, err := New().
		WithConfig(engineTestConfig()).
		WithStore(newMockAccountStore()).
		Build()
	if err != nil {
		t.Fatalf("Build without redis: %v", err)
	}
	if engine.rateLimiter != nil {
		t.Fatal("no redis client should mean no limiter")
	}

	report := engine.SecurityReport()
	if report.RateLimitingActive {
		t.Fatal("report should show rate limiting inactive")
	}
}
