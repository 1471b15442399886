package forumguard

import (
	"context"
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/forumguard/internal/audit"
)

// UserRecord is the account view the engine needs from persistence.
type UserRecord struct {
	ID           int64
	Email        string
	Nickname     string
	PasswordHash string
	DeletedAt    *time.Time
}

// Active reports whether the account may authenticate.
func (u UserRecord) Active() bool {
	return u.ID > 0 && u.DeletedAt == nil
}

// UserProvider resolves accounts. Implementations return an error matching
// ErrUserNotFound for unknown ids and emails.
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID int64) (UserRecord, error)
}

// PasswordVerifier checks a plaintext password against a stored hash.
// DummyHash returns a well-formed hash that matches no password; the engine
// verifies against it for unknown accounts.
type PasswordVerifier interface {
	Verify(plain, hash string) bool
	DummyHash() string
}

// TokenPair is the credential set returned by login and refresh. The
// refresh secret is handed to the client once and never stored in clear.
type TokenPair struct {
	UserID           int64
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// AuthResult identifies the caller behind a valid access token.
type AuthResult struct {
	UserID int64
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the engine's dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based AuditSink.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes JSON-encoded events to an io.Writer.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink logs events through a slog.Logger.
type SlogSink = internalaudit.SlogSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}
