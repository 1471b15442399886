package httpauth

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MrEthical07/forumguard"
	"github.com/MrEthical07/forumguard/middleware"
)

const maxLoginBody = 4 << 10

// Options configure [Handlers].
type Options struct {
	// SecureCookies sets the Secure attribute on the refresh cookie.
	SecureCookies bool
	Logger        *slog.Logger
}

// Handlers serves the authentication endpoints of one Engine.
type Handlers struct {
	engine *forumguard.Engine
	cookie cookieConfig
	logger *slog.Logger
}

func New(engine *forumguard.Engine, opts Options) *Handlers {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		engine: engine,
		cookie: cookieConfig{secure: opts.SecureCookies, maxAge: engine.RefreshTTL()},
		logger: logger,
	}
}

// Register mounts every endpoint on mux. Logout and Me sit behind
// middleware.Guard.
func (h *Handlers) Register(mux *http.ServeMux) {
	guard := middleware.Guard(h.engine)
	mux.HandleFunc("POST /v1/auth/session", h.Login)
	mux.Handle("DELETE /v1/auth/session", guard(http.HandlerFunc(h.Logout)))
	mux.HandleFunc("POST /v1/auth/token/refresh", h.Refresh)
	mux.Handle("GET /v1/auth/me", guard(http.HandlerFunc(h.Me)))
	mux.HandleFunc("GET /health", Health)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenData struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	UserID      int64  `json:"user_id"`
}

type userData struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

func (h *Handlers) tokenData(pair *forumguard.TokenPair) tokenData {
	return tokenData{
		AccessToken: pair.AccessToken,
		TokenType:   "bearer",
		ExpiresIn:   int64(h.engine.AccessTTL().Seconds()),
		UserID:      pair.UserID,
	}
}

// Login handles POST /v1/auth/session.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxLoginBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		middleware.WriteJSONError(w, http.StatusBadRequest, "invalid_request", "malformed login body")
		return
	}
	body.Email = strings.TrimSpace(body.Email)
	if body.Email == "" || body.Password == "" {
		middleware.WriteJSONError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	pair, err := h.engine.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		h.logFailure(r, "login", err)
		writeError(w, err)
		return
	}

	h.cookie.set(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, "LOGIN_SUCCESS", "logged in", h.tokenData(pair))
}

// Refresh handles POST /v1/auth/token/refresh. An invalid or expired
// cookie is cleared so the client stops presenting it.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	pair, err := h.engine.Refresh(r.Context(), refreshFromRequest(r))
	if err != nil {
		if errors.Is(err, forumguard.ErrRefreshTokenInvalid) || errors.Is(err, forumguard.ErrUnauthorized) {
			h.cookie.clear(w)
		}
		h.logFailure(r, "refresh", err)
		writeError(w, err)
		return
	}

	h.cookie.set(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, "TOKEN_REFRESHED", "token refreshed", h.tokenData(pair))
}

// Logout handles DELETE /v1/auth/session.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, forumguard.ErrUnauthorized)
		return
	}

	if err := h.engine.Logout(r.Context(), res.UserID, refreshFromRequest(r)); err != nil {
		h.logFailure(r, "logout", err)
		writeError(w, err)
		return
	}

	h.cookie.clear(w)
	writeJSON(w, http.StatusOK, "LOGOUT_SUCCESS", "logged out", nil)
}

// Me handles GET /v1/auth/me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, forumguard.ErrUnauthorized)
		return
	}

	user, err := h.engine.UserByID(r.Context(), res.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "AUTH_CHECK_SUCCESS", "authenticated", userData{
		ID:       user.ID,
		Email:    user.Email,
		Nickname: user.Nickname,
	})
}

// Health handles GET /health.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, "HEALTH_OK", "ok", map[string]string{"status": "ok"})
}

func (h *Handlers) logFailure(r *http.Request, op string, err error) {
	status, code := statusFor(err)
	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "auth request failed",
		slog.String("op", op),
		slog.String("code", code),
		slog.String("request_id", forumguard.RequestIDFromContext(r.Context())),
		slog.Any("error", err),
	)
}
