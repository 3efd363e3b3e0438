package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL REFERENCES users(id),
	email_address TEXT NOT NULL,
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL DEFAULT '',
	token_expiry  TIMESTAMP NOT NULL,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL,
	UNIQUE (user_id, email_address)
);
`

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db *sql.DB

	// now is replaceable in tests.
	now func() time.Time
}

// NewSQLiteStore opens (creating if necessary) the database at path and
// applies the schema. Pass ":memory:" for an ephemeral database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// CreateUser inserts a new user, generating an id if absent.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Email, user.Name, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// FindUser returns the user with the given id.
func (s *SQLiteStore) FindUser(ctx context.Context, userID string) (*User, error) {
	var user User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at FROM users WHERE id = ?`, userID,
	).Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// UpsertAccount creates or updates the account for (userID, emailAddress).
// The refresh token update is conditional in SQL: an empty incoming value
// keeps the stored one.
func (s *SQLiteStore) UpsertAccount(ctx context.Context, userID, emailAddress string, creds Credentials) (*Account, error) {
	now := s.now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, email_address, access_token, refresh_token, token_expiry, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, email_address) DO UPDATE SET
			access_token  = excluded.access_token,
			token_expiry  = excluded.token_expiry,
			refresh_token = CASE WHEN excluded.refresh_token != '' THEN excluded.refresh_token ELSE accounts.refresh_token END,
			updated_at    = excluded.updated_at`,
		uuid.NewString(), userID, emailAddress,
		creds.AccessToken, creds.RefreshToken, creds.TokenExpiry, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert account: %w", err)
	}

	return s.FindAccount(ctx, userID, emailAddress)
}

// FindAccount returns the account for (userID, emailAddress).
func (s *SQLiteStore) FindAccount(ctx context.Context, userID, emailAddress string) (*Account, error) {
	return s.scanAccount(s.db.QueryRowContext(ctx,
		selectAccount+` WHERE user_id = ? AND email_address = ?`,
		userID, emailAddress,
	))
}

// FindAccountByID returns the account with the given id.
func (s *SQLiteStore) FindAccountByID(ctx context.Context, accountID string) (*Account, error) {
	return s.scanAccount(s.db.QueryRowContext(ctx,
		selectAccount+` WHERE id = ?`, accountID,
	))
}

// DeleteAccount removes the account with the given id.
func (s *SQLiteStore) DeleteAccount(ctx context.Context, accountID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const selectAccount = `SELECT id, user_id, email_address, access_token, refresh_token, token_expiry, created_at, updated_at FROM accounts`

func (s *SQLiteStore) scanAccount(row *sql.Row) (*Account, error) {
	var acct Account
	err := row.Scan(
		&acct.ID, &acct.UserID, &acct.EmailAddress,
		&acct.AccessToken, &acct.RefreshToken, &acct.TokenExpiry,
		&acct.CreatedAt, &acct.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	return &acct, nil
}
