// Package postgres provides the durable AccountStore over database/sql and
// the pgx stdlib driver. The conditional and atomic store contracts are
// carried by single-statement writes and short transactions.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/agit8or1/passgate"
)

const uniqueViolation = "23505"

const accountColumns = `id, username, role, password_hash, totp_secret, totp_enabled, active, last_login`

// Store implements passgate.AccountStore against a Postgres database.
type Store struct {
	db *sql.DB
}

// New wraps an existing connection pool. The caller keeps ownership of db
// unless it was opened through Open.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects with the pgx stdlib driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(db), nil
}

// DB exposes the underlying pool, mainly for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateAccount inserts a new active account with a fresh ID. The password
// hash is stored as given; hashing is the caller's job.
func (s *Store) CreateAccount(ctx context.Context, username, passwordHash, role string) (passgate.Account, error) {
	account := passgate.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Role:         role,
		PasswordHash: passwordHash,
		Active:       true,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, username, role, password_hash)
		 VALUES ($1, $2, $3, $4)`,
		account.ID, account.Username, account.Role, account.PasswordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return passgate.Account{}, errors.New("username already taken")
		}
		return passgate.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return account, nil
}

func (s *Store) GetAccountByUsername(ctx context.Context, username string) (passgate.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
	return scanAccount(row)
}

func (s *Store) GetAccountByID(ctx context.Context, id string) (passgate.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return s.execOne(ctx, "update password hash",
		`UPDATE accounts SET password_hash = $2 WHERE id = $1`, id, hash)
}

func (s *Store) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return s.execOne(ctx, "update last login",
		`UPDATE accounts SET last_login = $2 WHERE id = $1`, id, at)
}

func (s *Store) UpdateTOTPSecret(ctx context.Context, id, secret string) error {
	return s.execOne(ctx, "update totp secret",
		`UPDATE accounts SET totp_secret = $2 WHERE id = $1`, id, secret)
}

// SetTOTPEnabled flips the enrollment flag. Enabling is conditional on a
// stored secret inside the same UPDATE, so a clear racing an enable can
// never leave the flag set on a secretless account.
func (s *Store) SetTOTPEnabled(ctx context.Context, id string, enabled bool) error {
	if !enabled {
		return s.execOne(ctx, "disable totp",
			`UPDATE accounts SET totp_enabled = FALSE WHERE id = $1`, id)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET totp_enabled = TRUE WHERE id = $1 AND totp_secret <> ''`, id)
	if err != nil {
		return fmt.Errorf("enable totp: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("enable totp: %w", err)
	}
	if n == 0 {
		// The guarded UPDATE cannot tell a missing account from a
		// missing secret; classify after the fact.
		exists, err := s.accountExists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return passgate.ErrUserNotFound
		}
		return passgate.ErrTOTPNotConfigured
	}
	return nil
}

// ClearTOTP drops the secret, the flag, and every backup code in one
// transaction.
func (s *Store) ClearTOTP(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("clear totp: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET totp_secret = '', totp_enabled = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("clear totp: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("clear totp: %w", err)
	}
	if n == 0 {
		return passgate.ErrUserNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM backup_codes WHERE account_id = $1`, id); err != nil {
		return fmt.Errorf("clear totp: drop backup codes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("clear totp: %w", err)
	}
	return nil
}

func (s *Store) ReplaceBackupCodes(ctx context.Context, id string, codes []passgate.BackupCodeRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace backup codes: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("replace backup codes: %w", err)
	}
	if !exists {
		return passgate.ErrUserNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM backup_codes WHERE account_id = $1`, id); err != nil {
		return fmt.Errorf("replace backup codes: %w", err)
	}
	for _, code := range codes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO backup_codes (account_id, code_hash) VALUES ($1, $2)`,
			id, code.Hash[:]); err != nil {
			return fmt.Errorf("replace backup codes: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace backup codes: %w", err)
	}
	return nil
}

// ConsumeBackupCode burns the matching code. The single DELETE is the
// check and the removal at once; two racing redemptions of one code get
// at most one affected row between them.
func (s *Store) ConsumeBackupCode(ctx context.Context, id string, codeHash [32]byte) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM backup_codes WHERE account_id = $1 AND code_hash = $2`,
		id, codeHash[:])
	if err != nil {
		return false, fmt.Errorf("consume backup code: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume backup code: %w", err)
	}
	return n == 1, nil
}

func (s *Store) accountExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("probe account: %w", err)
	}
	return exists, nil
}

// execOne runs a write expected to touch exactly one row and maps zero
// affected rows to ErrUserNotFound.
func (s *Store) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return passgate.ErrUserNotFound
	}
	return nil
}

func scanAccount(row *sql.Row) (passgate.Account, error) {
	var (
		account   passgate.Account
		lastLogin sql.NullTime
	)
	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Role,
		&account.PasswordHash,
		&account.TOTPSecret,
		&account.TOTPEnabled,
		&account.Active,
		&lastLogin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return passgate.Account{}, passgate.ErrUserNotFound
		}
		return passgate.Account{}, fmt.Errorf("select account: %w", err)
	}
	if lastLogin.Valid {
		account.LastLogin = lastLogin.Time
	}
	return account, nil
}
