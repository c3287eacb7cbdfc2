package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agit8or1/passgate"
	"github.com/agit8or1/passgate/internal/backupcode"
)

func TestCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	s := New()

	created, err := s.CreateAccount(ctx, "alice", "$argon2id$...", passgate.RoleStandard)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected a generated ID")
	}
	if !created.Active {
		t.Fatal("new accounts should be active")
	}

	byName, err := s.GetAccountByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetAccountByUsername: %v", err)
	}
	byID, err := s.GetAccountByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetAccountByID: %v", err)
	}
	if byName.ID != byID.ID || byName.ID != created.ID {
		t.Fatalf("lookups disagree: %q vs %q vs %q", byName.ID, byID.ID, created.ID)
	}

	if _, err := s.CreateAccount(ctx, "alice", "x", passgate.RoleStandard); err == nil {
		t.Fatal("duplicate username should be rejected")
	}
}

func TestUnknownAccountErrors(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.GetAccountByUsername(ctx, "ghost"); !errors.Is(err, passgate.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := s.GetAccountByID(ctx, "nope"); !errors.Is(err, passgate.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := s.UpdatePasswordHash(ctx, "nope", "h"); !errors.Is(err, passgate.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := s.UpdateLastLogin(ctx, "nope", time.Now()); !errors.Is(err, passgate.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSetTOTPEnabledRequiresSecret(t *testing.T) {
	ctx := context.Background()
	s := New()
	account, _ := s.CreateAccount(ctx, "bob", "h", passgate.RoleStandard)

	if err := s.SetTOTPEnabled(ctx, account.ID, true); !errors.Is(err, passgate.ErrTOTPNotConfigured) {
		t.Fatalf("enable without secret: expected ErrTOTPNotConfigured, got %v", err)
	}

	if err := s.UpdateTOTPSecret(ctx, account.ID, "SECRETBASE32"); err != nil {
		t.Fatalf("UpdateTOTPSecret: %v", err)
	}
	if err := s.SetTOTPEnabled(ctx, account.ID, true); err != nil {
		t.Fatalf("enable with secret: %v", err)
	}

	got, _ := s.GetAccountByID(ctx, account.ID)
	if !got.TOTPEnabled {
		t.Fatal("flag not set")
	}

	// Disabling has no secret precondition.
	if err := s.SetTOTPEnabled(ctx, account.ID, false); err != nil {
		t.Fatalf("disable: %v", err)
	}
}

func TestClearTOTPDropsEverything(t *testing.T) {
	ctx := context.Background()
	s := New()
	account, _ := s.CreateAccount(ctx, "carol", "h", passgate.RoleStandard)

	if err := s.UpdateTOTPSecret(ctx, account.ID, "SECRETBASE32"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetTOTPEnabled(ctx, account.ID, true); err != nil {
		t.Fatal(err)
	}
	_, records, err := backupcode.Batch(account.ID, 4, 8)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceBackupCodes(ctx, account.ID, records); err != nil {
		t.Fatal(err)
	}

	if err := s.ClearTOTP(ctx, account.ID); err != nil {
		t.Fatalf("ClearTOTP: %v", err)
	}

	got, _ := s.GetAccountByID(ctx, account.ID)
	if got.TOTPEnabled || got.TOTPSecret != "" {
		t.Fatalf("totp state survived clear: enabled=%v secret=%q", got.TOTPEnabled, got.TOTPSecret)
	}
	if n := s.BackupCodeCount(account.ID); n != 0 {
		t.Fatalf("expected 0 backup codes after clear, got %d", n)
	}
}

func TestConsumeBackupCodeOnce(t *testing.T) {
	ctx := context.Background()
	s := New()
	account, _ := s.CreateAccount(ctx, "dave", "h", passgate.RoleStandard)

	display, records, err := backupcode.Batch(account.ID, 3, 8)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceBackupCodes(ctx, account.ID, records); err != nil {
		t.Fatal(err)
	}

	hash := backupcode.Hash(account.ID, backupcode.Canonicalize(display[0]))

	ok, err := s.ConsumeBackupCode(ctx, account.ID, hash)
	if err != nil || !ok {
		t.Fatalf("first redemption: ok=%v err=%v", ok, err)
	}
	ok, err = s.ConsumeBackupCode(ctx, account.ID, hash)
	if err != nil || ok {
		t.Fatalf("second redemption should fail: ok=%v err=%v", ok, err)
	}
	if n := s.BackupCodeCount(account.ID); n != 2 {
		t.Fatalf("expected 2 codes left, got %d", n)
	}
}

func TestConsumeBackupCodeConcurrent(t *testing.T) {
	ctx := context.Background()
	s := New()
	account, _ := s.CreateAccount(ctx, "erin", "h", passgate.RoleStandard)

	display, records, err := backupcode.Batch(account.ID, 1, 8)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceBackupCodes(ctx, account.ID, records); err != nil {
		t.Fatal(err)
	}
	hash := backupcode.Hash(account.ID, backupcode.Canonicalize(display[0]))

	const attempts = 16
	var wg sync.WaitGroup
	var wins int64
	results := make(chan bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.ConsumeBackupCode(ctx, account.ID, hash)
			if err != nil {
				t.Errorf("ConsumeBackupCode: %v", err)
				return
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	for ok := range results {
		if ok {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one successful redemption, got %d", wins)
	}
}
