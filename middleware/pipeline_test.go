package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrEthical07/forumguard"
)

func TestPipelineCSRFRunsBeforeRateLimit(t *testing.T) {
	clock := newFakeClock()
	gate := newTestGate(t, clock)

	var rejected []error
	var called int
	h := NewPipeline(NewCSRFGuard(DefaultCSRFConfig()), gate).
		OnReject(func(r *http.Request, rej *Rejection) {
			rejected = append(rejected, rej.Err)
		}).
		Then(okHandler(&called))

	// Forged writes are refused without spending the victim's budget.
	for i := 0; i < 5; i++ {
		rr := post(h, "/v1/users/me", "198.51.100.9:1")
		if rr.Code != http.StatusForbidden {
			t.Fatalf("forged request %d: status %d", i, rr.Code)
		}
	}
	if gate.Tracked() != 0 {
		t.Fatalf("forged requests consumed limiter state: %d keys", gate.Tracked())
	}

	legit := func() int {
		req := httptest.NewRequest(http.MethodPatch, "/v1/users/me", nil)
		req.RemoteAddr = "198.51.100.9:1"
		req.AddCookie(&http.Cookie{Name: DefaultCSRFCookie, Value: "tok"})
		req.Header.Set(DefaultCSRFHeader, "tok")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}
	if legit() != http.StatusOK || legit() != http.StatusOK {
		t.Fatal("legitimate client lost budget to forged requests")
	}
	if code := legit(); code != http.StatusTooManyRequests {
		t.Fatalf("3rd legitimate request: status %d, want 429", code)
	}

	if len(rejected) != 6 {
		t.Fatalf("observed %d rejections, want 6", len(rejected))
	}
	if !errors.Is(rejected[0], forumguard.ErrCSRFMissing) || !errors.Is(rejected[5], forumguard.ErrRateLimited) {
		t.Fatalf("unexpected rejection errors: %v", rejected)
	}
}

func TestFilterFunc(t *testing.T) {
	var called int
	deny := FilterFunc(func(w http.ResponseWriter, r *http.Request) *Rejection {
		return &Rejection{Status: http.StatusTeapot, Code: "nope"}
	})
	rr := httptest.NewRecorder()
	NewPipeline(deny).Then(okHandler(&called)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusTeapot || called != 0 {
		t.Fatalf("status %d called %d", rr.Code, called)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type %q", ct)
	}
}
