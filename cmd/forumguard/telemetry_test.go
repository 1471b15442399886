package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrEthical07/forumguard/clientip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTelReporterCollectsEngineAndGate(t *testing.T) {
	engine, log := newTestEngine(t)
	resolver, err := clientip.New(nil)
	require.NoError(t, err)
	handler, gate := newHandler(engine, resolver, log)

	_, err = engine.Login(context.Background(), "ada@example.com", "wrong-password")
	require.Error(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/posts", nil)
	req.RemoteAddr = "198.51.100.7:5000"
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "tok"})
	req.Header.Set("X-CSRF-Token", "tok")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	reporter, err := newOTelReporter(engine, gate)
	require.NoError(t, err)
	defer func() { require.NoError(t, reporter.Close(context.Background())) }()

	values, err := reporter.collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), values["forumguard_login_failure_total"])
	assert.Equal(t, int64(1), values["forumguard_ratelimit_tracked_keys"])
	assert.Zero(t, values["forumguard_login_success_total"])
}

func TestNonZeroAttrsSortedAndFiltered(t *testing.T) {
	attrs := nonZeroAttrs(map[string]int64{"b_total": 2, "a_total": 1, "z_total": 0})
	require.Len(t, attrs, 2)
	assert.Equal(t, slog.Int64("a_total", 1), attrs[0])
	assert.Equal(t, slog.Int64("b_total", 2), attrs[1])
}
