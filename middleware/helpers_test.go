package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/forumguard"
	"github.com/MrEthical07/forumguard/jwt"
	"github.com/MrEthical07/forumguard/refresh"
)

const testSecret = "middleware-test-secret-0123456789"

type nopStore struct{}

func (nopStore) Create(context.Context, int64, string, time.Time) error { return nil }
func (nopStore) Lookup(context.Context, string) (refresh.Record, error) {
	return refresh.Record{}, refresh.ErrNotFound
}
func (nopStore) Rotate(context.Context, string, string, int64, time.Time) error {
	return refresh.ErrNotFound
}
func (nopStore) Delete(context.Context, string) error                    { return nil }
func (nopStore) DeleteAllForUser(context.Context, int64) (int64, error) { return 0, nil }
func (nopStore) SweepExpired(context.Context) (int64, error)            { return 0, nil }

type nopUsers struct{}

func (nopUsers) GetUserByEmail(context.Context, string) (forumguard.UserRecord, error) {
	return forumguard.UserRecord{}, forumguard.ErrUserNotFound
}
func (nopUsers) GetUserByID(context.Context, int64) (forumguard.UserRecord, error) {
	return forumguard.UserRecord{}, forumguard.ErrUserNotFound
}

type plainVerifier struct{}

func (plainVerifier) Verify(plain, hash string) bool { return plain == hash }
func (plainVerifier) DummyHash() string               { return "\x00" }

func newTestEngine(t *testing.T, clock *fakeClock) *forumguard.Engine {
	t.Helper()
	cfg := forumguard.DefaultConfig()
	cfg.JWT.PrivateKey = []byte(testSecret)
	cfg.Audit.Enabled = false

	engine, err := forumguard.New().
		WithConfig(cfg).
		WithTokenStore(nopStore{}).
		WithUserProvider(nopUsers{}).
		WithPasswordVerifier(plainVerifier{}).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func mintAccess(t *testing.T, clock *fakeClock, userID int64) string {
	t.Helper()
	mgr, err := jwt.NewManager(jwt.Config{
		AccessTTL:     30 * time.Minute,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte(testSecret),
		Now:           clock.Now,
	})
	if err != nil {
		t.Fatalf("jwt manager: %v", err)
	}
	token, err := mgr.CreateAccess(userID)
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	return token
}
