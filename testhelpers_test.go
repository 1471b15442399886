package forumguard

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/forumguard/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type memUsers struct {
	mu   sync.RWMutex
	byID map[int64]UserRecord
	err  error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[int64]UserRecord{}}
}

func (m *memUsers) add(u UserRecord) {
	m.mu.Lock()
	m.byID[u.ID] = u
	m.mu.Unlock()
}

func (m *memUsers) softDelete(id int64, at time.Time) {
	m.mu.Lock()
	u := m.byID[id]
	u.DeletedAt = &at
	m.byID[id] = u
	m.mu.Unlock()
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return UserRecord{}, m.err
	}
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return UserRecord{}, fmt.Errorf("email %q: %w", email, ErrUserNotFound)
}

func (m *memUsers) GetUserByID(_ context.Context, id int64) (UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return UserRecord{}, m.err
	}
	u, ok := m.byID[id]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return u, nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = []byte(testSecret)
	cfg.Store.Backend = "redis"
	cfg.Store.SweepInterval = 0
	cfg.Password = PasswordConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
	return cfg
}

type testEnv struct {
	engine *Engine
	mr     *miniredis.Miniredis
	clock  *testClock
	users  *memUsers
	hash   func(string) string
}

func newTestEnv(t *testing.T, cfg Config, sink AuditSink) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	argon, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		t.Fatalf("argon: %v", err)
	}

	clock := newTestClock()
	users := newMemUsers()
	b := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(users).
		WithClock(clock.Now)
	if sink != nil {
		b = b.WithAuditSink(sink)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{
		engine: engine,
		mr:     mr,
		clock:  clock,
		users:  users,
		hash: func(plain string) string {
			h, err := argon.Hash(plain)
			if err != nil {
				t.Fatalf("hash: %v", err)
			}
			return h
		},
	}
}

func (env *testEnv) addUser(id int64, email, plain string) {
	env.users.add(UserRecord{
		ID:           id,
		Email:        email,
		Nickname:     fmt.Sprintf("user%d", id),
		PasswordHash: env.hash(plain),
	})
}
