package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrEthical07/forumguard"
	"github.com/MrEthical07/forumguard/clientip"
	"github.com/google/uuid"
)

func TestLogRequestTagsContextAndLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	resolver, err := clientip.New([]string{"10.0.0.1"})
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}

	var ctxIP, ctxID string
	h := LogRequest(logger, resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxIP = forumguard.ClientIPFromContext(r.Context())
		ctxID = forumguard.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/posts", nil)
	req.RemoteAddr = "10.0.0.1:80"
	req.Header.Set("X-Forwarded-For", "203.0.113.20")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if ctxIP != "203.0.113.20" {
		t.Fatalf("client ip = %q", ctxIP)
	}
	if _, err := uuid.Parse(ctxID); err != nil {
		t.Fatalf("request id %q is not a uuid", ctxID)
	}
	if rr.Header().Get("X-Request-ID") != ctxID {
		t.Fatal("request id not echoed")
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line: %v (%s)", err, buf.String())
	}
	if line["status"] != float64(http.StatusCreated) || line["path"] != "/v1/posts" || line["request_id"] != ctxID {
		t.Fatalf("unexpected log line: %v", line)
	}
}

func TestLogRequestKeepsInboundUUID(t *testing.T) {
	id := uuid.NewString()
	var got string
	h := LogRequest(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = forumguard.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", id)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != id {
		t.Fatalf("request id = %q, want %q", got, id)
	}

	req.Header.Set("X-Request-ID", "<script>")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got == "<script>" {
		t.Fatal("non-uuid request id must be replaced")
	}
}
