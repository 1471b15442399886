package httpauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/forumguard"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "httpauth-test-secret-0123456789ab"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type users struct {
	byID map[int64]forumguard.UserRecord
}

func (u users) GetUserByEmail(_ context.Context, email string) (forumguard.UserRecord, error) {
	for _, rec := range u.byID {
		if rec.Email == email {
			return rec, nil
		}
	}
	return forumguard.UserRecord{}, forumguard.ErrUserNotFound
}

func (u users) GetUserByID(_ context.Context, id int64) (forumguard.UserRecord, error) {
	rec, ok := u.byID[id]
	if !ok {
		return forumguard.UserRecord{}, forumguard.ErrUserNotFound
	}
	return rec, nil
}

type plainVerifier struct{}

func (plainVerifier) Verify(plain, hash string) bool { return plain == hash }
func (plainVerifier) DummyHash() string               { return "\x00" }

type fixture struct {
	server *httptest.Server
	clock  *clock
	mr     *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := forumguard.DefaultConfig()
	cfg.JWT.PrivateKey = []byte(testSecret)
	cfg.Store.Backend = "redis"
	cfg.Store.SweepInterval = 0
	cfg.Audit.Enabled = false

	clk := &clock{now: time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)}
	engine, err := forumguard.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(users{byID: map[int64]forumguard.UserRecord{
			7: {ID: 7, Email: "ada@example.com", Nickname: "ada", PasswordHash: "hunter22"},
		}}).
		WithPasswordVerifier(plainVerifier{}).
		WithClock(clk.Now).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	mux := http.NewServeMux()
	New(engine, Options{}).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &fixture{server: srv, clock: clk, mr: mr}
}

func (f *fixture) do(t *testing.T, method, path, body string, cookie *http.Cookie, bearer string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func refreshCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == RefreshCookieName {
			return c
		}
	}
	return nil
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (f *fixture) login(t *testing.T) (string, *http.Cookie) {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/v1/auth/session", `{"email":"ada@example.com","password":"hunter22"}`, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	require.Equal(t, "LOGIN_SUCCESS", body["code"])
	data := body["data"].(map[string]any)
	cookie := refreshCookie(resp)
	require.NotNil(t, cookie)
	return data["access_token"].(string), cookie
}

func TestLoginSetsRefreshCookie(t *testing.T) {
	f := newFixture(t)
	access, cookie := f.login(t)

	assert.NotEmpty(t, access)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, RefreshCookiePath, cookie.Path)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), cookie.MaxAge)
}

func TestLoginRejections(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"wrong password", `{"email":"ada@example.com","password":"nope"}`, http.StatusUnauthorized, "unauthorized"},
		{"unknown email", `{"email":"bob@example.com","password":"hunter22"}`, http.StatusUnauthorized, "unauthorized"},
		{"malformed", `{"email":`, http.StatusBadRequest, "invalid_request"},
		{"missing password", `{"email":"ada@example.com"}`, http.StatusBadRequest, "invalid_request"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := f.do(t, http.MethodPost, "/v1/auth/session", tc.body, nil, "")
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.code, decode(t, resp)["error"])
			assert.Nil(t, refreshCookie(resp))
		})
	}
}

func TestRefreshRotatesCookie(t *testing.T) {
	f := newFixture(t)
	_, first := f.login(t)

	resp := f.do(t, http.MethodPost, "/v1/auth/token/refresh", "", first, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "TOKEN_REFRESHED", decode(t, resp)["code"])
	second := refreshCookie(resp)
	require.NotNil(t, second)
	assert.NotEqual(t, first.Value, second.Value)

	replay := f.do(t, http.MethodPost, "/v1/auth/token/refresh", "", first, "")
	assert.Equal(t, http.StatusUnauthorized, replay.StatusCode)
	assert.Equal(t, "refresh_token_invalid", decode(t, replay)["error"])
	cleared := refreshCookie(replay)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestRefreshMissingCookie(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/v1/auth/token/refresh", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "refresh_token_missing", decode(t, resp)["error"])
	assert.Nil(t, refreshCookie(resp))
}

func TestRefreshStoreDown(t *testing.T) {
	f := newFixture(t)
	_, cookie := f.login(t)
	f.mr.Close()

	resp := f.do(t, http.MethodPost, "/v1/auth/token/refresh", "", cookie, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "store_unavailable", decode(t, resp)["error"])
	assert.Nil(t, refreshCookie(resp))
}

func TestMeAndLogout(t *testing.T) {
	f := newFixture(t)
	access, cookie := f.login(t)

	me := f.do(t, http.MethodGet, "/v1/auth/me", "", nil, access)
	require.Equal(t, http.StatusOK, me.StatusCode)
	user := decode(t, me)["data"].(map[string]any)
	assert.Equal(t, "ada@example.com", user["email"])
	assert.Equal(t, "ada", user["nickname"])

	out := f.do(t, http.MethodDelete, "/v1/auth/session", "", cookie, access)
	require.Equal(t, http.StatusOK, out.StatusCode)
	assert.Equal(t, "LOGOUT_SUCCESS", decode(t, out)["code"])
	cleared := refreshCookie(out)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)

	after := f.do(t, http.MethodPost, "/v1/auth/token/refresh", "", cookie, "")
	assert.Equal(t, http.StatusUnauthorized, after.StatusCode)
}

func TestGuardedRoutesNeedBearer(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/v1/auth/me", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/v1/auth/session", "", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "token_invalid", decode(t, resp)["error"])
}

func TestExpiredAccessToken(t *testing.T) {
	f := newFixture(t)
	access, _ := f.login(t)
	f.clock.Advance(31 * time.Minute)

	resp := f.do(t, http.MethodGet, "/v1/auth/me", "", nil, access)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "token_expired", decode(t, resp)["error"])
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/health", "", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "HEALTH_OK", decode(t, resp)["code"])
}
