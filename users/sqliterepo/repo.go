package sqliterepo

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-user-auth/users"
	"github.com/pkg/errors"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const timeFormat = time.RFC3339Nano

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	first_name    TEXT NOT NULL DEFAULT '',
	last_name     TEXT NOT NULL DEFAULT '',
	provider      TEXT NOT NULL DEFAULT '',
	date_joined   TEXT NOT NULL,
	last_login    TEXT NOT NULL DEFAULT ''
);
`

var _ users.UserRepo = (*Repo)(nil)

// Repo provides a SQLite-backed user store.
type Repo struct {
	sqlDB *sql.DB
}

// Open opens a SQLite user store at the provided path and ensures the
// schema exists.
func Open(path string) (*Repo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("[sqliterepo.Open] storage path is required")
	}

	dsn := path + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "[sqliterepo.Open] open sqlite db")
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "[sqliterepo.Open] ping sqlite db")
	}

	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "[sqliterepo.Open] create schema")
	}

	return &Repo{sqlDB: sqlDB}, nil
}

// Close closes the underlying SQLite database.
func (r *Repo) Close() error {
	if r == nil || r.sqlDB == nil {
		return nil
	}
	return r.sqlDB.Close()
}

func (r *Repo) Create(ctx context.Context, user *users.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.DateJoined.IsZero() {
		user.DateJoined = time.Now().UTC()
	}

	_, err := r.sqlDB.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, first_name, last_name, provider, date_joined, last_login)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		string(user.Provider),
		user.DateJoined.Format(timeFormat),
		formatNullableTime(user.LastLogin),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return users.ErrEmailTaken
		}
		return errors.Wrap(err, "[Repo.Create] insert user")
	}
	return nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	row := r.sqlDB.QueryRowContext(ctx,
		`SELECT id, email, password_hash, first_name, last_name, provider, date_joined, last_login
		 FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *Repo) GetByID(ctx context.Context, id string) (*users.User, error) {
	row := r.sqlDB.QueryRowContext(ctx,
		`SELECT id, email, password_hash, first_name, last_name, provider, date_joined, last_login
		 FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *Repo) List(ctx context.Context, offset, limit int) ([]*users.User, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.sqlDB.QueryContext(ctx,
		`SELECT id, email, password_hash, first_name, last_name, provider, date_joined, last_login
		 FROM users ORDER BY email LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "[Repo.List] query users")
	}
	defer rows.Close()

	list := make([]*users.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "[Repo.List] iterate rows")
	}
	return list, nil
}

func (r *Repo) SetLastLogin(ctx context.Context, id string, when time.Time) error {
	res, err := r.sqlDB.ExecContext(ctx,
		`UPDATE users SET last_login = ? WHERE id = ?`, when.UTC().Format(timeFormat), id)
	if err != nil {
		return errors.Wrap(err, "[Repo.SetLastLogin] update user")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "[Repo.SetLastLogin] rows affected")
	}
	if affected == 0 {
		return users.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*users.User, error) {
	var (
		u          users.User
		provider   string
		dateJoined string
		lastLogin  string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &provider, &dateJoined, &lastLogin)
	if err == sql.ErrNoRows {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[sqliterepo scanUser] scan row")
	}

	u.Provider = users.ProviderType(provider)
	if u.DateJoined, err = time.Parse(timeFormat, dateJoined); err != nil {
		return nil, errors.Wrap(err, "[sqliterepo scanUser] parse date_joined")
	}
	if lastLogin != "" {
		if u.LastLogin, err = time.Parse(timeFormat, lastLogin); err != nil {
			return nil, errors.Wrap(err, "[sqliterepo scanUser] parse last_login")
		}
	}
	return &u, nil
}

func formatNullableTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeFormat)
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
