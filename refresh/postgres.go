package refresh

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/MrEthical07/forumguard/internal/dbx"
)

// PostgresStore keeps refresh records in the refresh_tokens table.
type PostgresStore struct {
	db   *sql.DB
	opts Options
}

// NewPostgresStore returns a [PostgresStore] over db. The schema is created
// by the migrations package.
func NewPostgresStore(db *sql.DB, opts Options) *PostgresStore {
	return &PostgresStore{db: db, opts: opts.withDefaults()}
}

// Create inserts a new record for userID.
func (s *PostgresStore) Create(ctx context.Context, userID int64, raw string, expiresAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	query := `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
	`
	if _, err := s.db.ExecContext(ctx, query, userID, HashSecret(raw), expiresAt.UTC()); err != nil {
		return unavailable(err)
	}
	return nil
}

// Lookup returns the live record for raw. An expired row is removed best
// effort and reported as [ErrNotFound].
func (s *PostgresStore) Lookup(ctx context.Context, raw string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	hash := HashSecret(raw)
	query := `
		SELECT user_id, expires_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`
	var rec Record
	if err := s.db.QueryRowContext(ctx, query, hash).Scan(&rec.UserID, &rec.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, unavailable(err)
	}

	if !rec.ExpiresAt.After(s.opts.Now()) {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, hash)
		return Record{}, ErrNotFound
	}

	return rec, nil
}

// Rotate deletes the live record for oldRaw owned by userID and inserts
// newRaw in the same transaction. Zero deleted rows rolls back with
// [ErrNotFound].
func (s *PostgresStore) Rotate(ctx context.Context, oldRaw, newRaw string, userID int64, newExpiresAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	now := s.opts.Now().UTC()
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM refresh_tokens
			WHERE token_hash = $1 AND user_id = $2 AND expires_at > $3
		`, HashSecret(oldRaw), userID, now)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
			VALUES ($1, $2, $3)
		`, userID, HashSecret(newRaw), newExpiresAt.UTC())
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return unavailable(err)
	}
	return nil
}

// Delete removes the record for raw. Deleting an unknown secret is not an
// error.
func (s *PostgresStore) Delete(ctx context.Context, raw string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, HashSecret(raw)); err != nil {
		return unavailable(err)
	}
	return nil
}

// DeleteAllForUser removes every record owned by userID.
func (s *PostgresStore) DeleteAllForUser(ctx context.Context, userID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return 0, unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

// SweepExpired bulk-deletes rows whose expiry has passed.
func (s *PostgresStore) SweepExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, s.opts.Now().UTC())
	if err != nil {
		return 0, unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}
