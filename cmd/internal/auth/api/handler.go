package authapi

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"promodesk/cmd/identity"
	"promodesk/cmd/internal/audit"
	"promodesk/cmd/internal/auth/session"
)

// Handler wires the auth HTTP endpoints to the session service.
type Handler struct {
	log *slog.Logger
	cfg Config

	dir      identity.Directory
	sessions *session.Service
	mw       *Middleware
	rec      *audit.Recorder
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, dir identity.Directory, sessions *session.Service, mw *Middleware, rec *audit.Recorder) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if dir == nil || sessions == nil || mw == nil {
		return nil, errors.New("authapi: nil dependency")
	}

	return &Handler{
		log:      log,
		cfg:      cfg,
		dir:      dir,
		sessions: sessions,
		mw:       mw,
		rec:      rec,
	}, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("POST /auth/refresh", h.handleRefresh)
	mux.HandleFunc("POST /auth/logout", h.handleLogout)
	mux.HandleFunc("POST /auth/logout_all", h.mw.RequireAuth(h.handleLogoutAll))
	mux.HandleFunc("POST /auth/password/forgot", h.handleForgotPassword)
	mux.HandleFunc("POST /auth/password/reset", h.handleResetPassword)
	mux.HandleFunc("GET /auth/me", h.mw.RequireAuth(h.handleMe))
}

// ---- handlers ----

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := ReadJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || strings.TrimSpace(req.Password) == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)

	issued, err := h.sessions.Login(ctx, now, email, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			h.auditLoginFailed(ctx, r, ip, email)
			WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
			return
		}
		h.log.Error("auth.login.fail", "err", err)
		WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.auditLogin(ctx, r, ip, issued.User.ID)
	h.setRefreshCookie(w, issued.RefreshToken, issued.RefreshExp)

	WriteJSON(w, http.StatusOK, loginResponse{
		User: toUserResponse(issued.User),
		Session: sessionResponse{
			AccessToken:     issued.AccessToken,
			AccessExpiresAt: issued.AccessExp,
		},
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if r.ContentLength != 0 {
		if err := ReadJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
			return
		}
	}

	refreshToken := strings.TrimSpace(req.RefreshToken)
	if cookieToken, ok := h.refreshTokenFromCookie(r); ok && refreshToken == "" {
		refreshToken = cookieToken
	}
	if refreshToken == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "refresh token is required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	issued, err := h.sessions.Refresh(ctx, now, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			h.clearRefreshCookie(w)
			WriteError(w, http.StatusUnauthorized, "invalid_refresh_token", "invalid refresh token")
			return
		}
		h.log.Error("auth.refresh.fail", "err", err)
		WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.setRefreshCookie(w, issued.RefreshToken, issued.RefreshExp)

	WriteJSON(w, http.StatusOK, refreshResponse{
		Session: sessionResponse{
			AccessToken:     issued.AccessToken,
			AccessExpiresAt: issued.AccessExp,
		},
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if r.ContentLength != 0 {
		if err := ReadJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
			return
		}
	}

	refreshToken := strings.TrimSpace(req.RefreshToken)
	if cookieToken, ok := h.refreshTokenFromCookie(r); ok && refreshToken == "" {
		refreshToken = cookieToken
	}

	ctx := r.Context()
	now := time.Now().UTC()

	// Best-effort: a missing or invalid token is already-logged-out.
	userID, err := h.sessions.Logout(ctx, now, refreshToken)
	if err != nil {
		h.log.Error("auth.logout.fail", "err", err)
		WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	if userID != "" {
		h.auditLogout(ctx, r, clientIP(r, h.cfg.TrustProxy), userID)
	}
	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request, id Identity) {
	ctx := r.Context()

	if err := h.sessions.InvalidateAllSessions(ctx, id.ID); err != nil {
		h.log.Error("auth.logout_all.fail", "err", err)
		WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.auditLogoutAll(ctx, r, clientIP(r, h.cfg.TrustProxy), id.ID)
	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := ReadJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	res, err := h.sessions.RequestPasswordReset(ctx, now, email)
	if err != nil {
		h.log.Error("auth.reset.request.fail", "err", err)
		WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	if res.UserID != "" {
		h.auditResetRequested(ctx, r, clientIP(r, h.cfg.TrustProxy), res.UserID, res.TokenID)
	}

	// Identical response whether or not the email maps to a user.
	WriteJSON(w, http.StatusAccepted, statusResponse{Status: "ok"})
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := ReadJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	if strings.TrimSpace(req.Token) == "" || req.NewPassword == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "token and new_password are required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	userID, err := h.sessions.ResetPassword(ctx, now, req.Token, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidResetToken):
			WriteError(w, http.StatusUnauthorized, "invalid_reset_token", "invalid reset token")
		case identity.IsInvalidInput(err):
			WriteError(w, http.StatusBadRequest, "invalid_request", "password does not meet policy")
		default:
			h.log.Error("auth.reset.fail", "err", err)
			WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.auditResetCompleted(ctx, r, clientIP(r, h.cfg.TrustProxy), userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request, id Identity) {
	u, err := h.dir.FindByID(r.Context(), id.ID)
	if err != nil {
		if identity.IsNotFound(err) {
			WriteError(w, http.StatusUnauthorized, "unauthorized", "user not found")
			return
		}
		h.log.Error("auth.me.fail", "err", err)
		WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	WriteJSON(w, http.StatusOK, meResponse{User: toUserResponse(u)})
}

// ---- helpers ----

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
