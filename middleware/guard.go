package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/forumguard"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the result stored by Guard.
func AuthResultFromContext(ctx context.Context) (*forumguard.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*forumguard.AuthResult)
	return res, ok
}

// Guard requires a valid bearer access token. Expired tokens are answered
// with token_expired so clients know to refresh; everything else is
// token_invalid.
func Guard(engine *forumguard.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteJSONError(w, http.StatusUnauthorized, "unauthorized", "")
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer`)
				WriteJSONError(w, http.StatusUnauthorized, "token_invalid", "missing bearer token")
				return
			}

			res, err := engine.Validate(r.Context(), token)
			if err != nil {
				code := "token_invalid"
				if errors.Is(err, forumguard.ErrTokenExpired) {
					code = "token_expired"
				}
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				WriteJSONError(w, http.StatusUnauthorized, code, "")
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}
