package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/forumguard"
	"github.com/MrEthical07/forumguard/internal/dbx"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrEmailTaken is returned by Create when the email already exists.
var ErrEmailTaken = errors.New("users: email already registered")

const uniqueViolation = "23505"

// PostgresProvider implements forumguard.UserProvider over the users table.
// Soft-deleted rows are returned with DeletedAt set; the engine decides
// what an inactive account may do.
type PostgresProvider struct {
	db      dbx.DBTX
	timeout time.Duration
}

func NewPostgresProvider(db dbx.DBTX, timeout time.Duration) *PostgresProvider {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &PostgresProvider{db: db, timeout: timeout}
}

const selectUser = `
	SELECT id, email, nickname, password_hash, deleted_at
	FROM users
`

func (p *PostgresProvider) GetUserByEmail(ctx context.Context, email string) (forumguard.UserRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	row := p.db.QueryRowContext(ctx, selectUser+`WHERE lower(email) = lower($1)`, strings.TrimSpace(email))
	return scanUser(row)
}

func (p *PostgresProvider) GetUserByID(ctx context.Context, id int64) (forumguard.UserRecord, error) {
	if id <= 0 {
		return forumguard.UserRecord{}, forumguard.ErrUserNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	row := p.db.QueryRowContext(ctx, selectUser+`WHERE id = $1`, id)
	return scanUser(row)
}

// Create inserts an account with an already hashed password and returns
// its id.
func (p *PostgresProvider) Create(ctx context.Context, email, nickname, passwordHash string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	query := `
		INSERT INTO users (email, nickname, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	var id int64
	err := p.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email)), nickname, passwordHash).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, ErrEmailTaken
		}
		return 0, fmt.Errorf("users: create: %w", err)
	}
	return id, nil
}

func scanUser(row *sql.Row) (forumguard.UserRecord, error) {
	var (
		u         forumguard.UserRecord
		deletedAt sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Nickname, &u.PasswordHash, &deletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return forumguard.UserRecord{}, forumguard.ErrUserNotFound
		}
		return forumguard.UserRecord{}, fmt.Errorf("users: lookup: %w", err)
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		u.DeletedAt = &t
	}
	return u, nil
}
