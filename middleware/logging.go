package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/forumguard"
	"github.com/MrEthical07/forumguard/clientip"
	"github.com/google/uuid"
)

const headerRequestID = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// LogRequest tags each request with an id and the resolved client IP, and
// logs one line when the response completes. An inbound X-Request-ID that
// parses as a UUID is kept.
func LogRequest(logger *slog.Logger, resolver *clientip.Resolver) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if resolver == nil {
		resolver, _ = clientip.New(nil)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := r.Header.Get(headerRequestID)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			ip := resolver.FromRequest(r)
			w.Header().Set(headerRequestID, id)

			ctx := forumguard.WithRequestID(r.Context(), id)
			ctx = forumguard.WithClientIP(ctx, ip)

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.LogAttrs(ctx, level, "http request",
				slog.String("request_id", id),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("ip", ip),
				slog.Int("status", status),
				slog.Int("bytes", rec.bytes),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
