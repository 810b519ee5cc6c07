// Package admin exposes the user-management HTTP surface, restricted to the
// admin role.
package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"promodesk/cmd/identity"
	"promodesk/cmd/internal/audit"
	authapi "promodesk/cmd/internal/auth/api"
	"promodesk/cmd/internal/auth/session"
)

// Handler serves the /admin/users endpoints.
type Handler struct {
	log *slog.Logger

	maxBodyBytes int64
	dir          identity.Directory
	sessions     *session.Service
	mw           *authapi.Middleware
	rec          *audit.Recorder
}

// NewHandler constructs an admin Handler.
func NewHandler(log *slog.Logger, maxBodyBytes int64, dir identity.Directory, sessions *session.Service, mw *authapi.Middleware, rec *audit.Recorder) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if dir == nil || sessions == nil || mw == nil {
		return nil, errors.New("admin: nil dependency")
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}

	return &Handler{
		log:          log,
		maxBodyBytes: maxBodyBytes,
		dir:          dir,
		sessions:     sessions,
		mw:           mw,
		rec:          rec,
	}, nil
}

// Register wires admin routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	admin := func(next authapi.IdentityHandler) http.HandlerFunc {
		return h.mw.RequireRole(next, identity.RoleAdmin)
	}
	mux.HandleFunc("GET /admin/users", admin(h.handleListUsers))
	mux.HandleFunc("POST /admin/users", admin(h.handleCreateUser))
	mux.HandleFunc("PATCH /admin/users/{id}", admin(h.handleUpdateUser))
	mux.HandleFunc("POST /admin/users/{id}/deactivate", admin(h.handleDeactivateUser))
	mux.HandleFunc("POST /admin/users/{id}/sessions/invalidate", admin(h.handleInvalidateSessions))
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request, _ authapi.Identity) {
	users, err := h.dir.List(r.Context())
	if err != nil {
		h.log.Error("admin.users.list.fail", "err", err)
		authapi.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	authapi.WriteJSON(w, http.StatusOK, listUsersResponse{Users: out})
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request, actor authapi.Identity) {
	var req createUserRequest
	if err := authapi.ReadJSON(w, r, h.maxBodyBytes, &req); err != nil {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	role, err := identity.ParseRole(req.Role)
	if err != nil {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_request", "unknown role")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	ctx := r.Context()
	u, err := h.dir.Create(ctx, identity.CreateUserInput{
		Email:       req.Email,
		Password:    req.Password,
		Role:        role,
		DisplayName: req.DisplayName,
		Now:         time.Now().UTC(),
	})
	if err != nil {
		switch {
		case identity.IsConflict(err):
			authapi.WriteError(w, http.StatusConflict, "conflict", "email already in use")
		case identity.IsInvalidInput(err):
			authapi.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			h.log.Error("admin.users.create.fail", "err", err)
			authapi.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.record(ctx, actor.ID, "user.created", u.ID, map[string]any{
		"email": u.Email,
		"role":  string(u.Role),
	})
	authapi.WriteJSON(w, http.StatusCreated, userEnvelope{User: toUserResponse(u)})
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request, actor authapi.Identity) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_request", "user id is required")
		return
	}

	var req updateUserRequest
	if err := authapi.ReadJSON(w, r, h.maxBodyBytes, &req); err != nil {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	in := identity.UpdateFieldsInput{
		DisplayName: req.DisplayName,
		IsActive:    req.IsActive,
		Now:         time.Now().UTC(),
	}
	if req.Role != nil {
		role, err := identity.ParseRole(*req.Role)
		if err != nil {
			authapi.WriteError(w, http.StatusBadRequest, "invalid_request", "unknown role")
			return
		}
		in.Role = &role
	}
	if in.DisplayName == nil && in.Role == nil && in.IsActive == nil {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_request", "no fields to update")
		return
	}

	ctx := r.Context()

	// A role change must not leave access tokens minted under the old role in
	// circulation, so remember the current role before applying the update.
	var roleBefore identity.Role
	if in.Role != nil {
		cur, err := h.dir.FindByID(ctx, id)
		if err != nil {
			if identity.IsNotFound(err) {
				authapi.WriteError(w, http.StatusNotFound, "not_found", "user not found")
				return
			}
			h.log.Error("admin.users.update.lookup.fail", "err", err)
			authapi.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
			return
		}
		roleBefore = cur.Role
	}

	u, err := h.dir.UpdateFields(ctx, id, in)
	if err != nil {
		switch {
		case identity.IsNotFound(err):
			authapi.WriteError(w, http.StatusNotFound, "not_found", "user not found")
		case identity.IsInvalidInput(err):
			authapi.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			h.log.Error("admin.users.update.fail", "err", err)
			authapi.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	// Deactivation and role changes must kill live sessions, not just future
	// logins.
	deactivated := req.IsActive != nil && !*req.IsActive
	roleChanged := in.Role != nil && *in.Role != roleBefore
	if deactivated || roleChanged {
		if err := h.sessions.InvalidateAllSessions(ctx, u.ID); err != nil {
			h.log.Error("admin.users.update.invalidate.fail", "err", err, "user_id", u.ID)
		}
	}

	h.record(ctx, actor.ID, "user.updated", u.ID, updateMeta(req))
	authapi.WriteJSON(w, http.StatusOK, userEnvelope{User: toUserResponse(u)})
}

func (h *Handler) handleDeactivateUser(w http.ResponseWriter, r *http.Request, actor authapi.Identity) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_request", "user id is required")
		return
	}
	if id == actor.ID {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_request", "cannot deactivate own account")
		return
	}

	ctx := r.Context()
	inactive := false
	u, err := h.dir.UpdateFields(ctx, id, identity.UpdateFieldsInput{
		IsActive: &inactive,
		Now:      time.Now().UTC(),
	})
	if err != nil {
		if identity.IsNotFound(err) {
			authapi.WriteError(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		h.log.Error("admin.users.deactivate.fail", "err", err)
		authapi.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	if err := h.sessions.InvalidateAllSessions(ctx, u.ID); err != nil {
		h.log.Error("admin.users.deactivate.invalidate.fail", "err", err, "user_id", u.ID)
	}

	h.record(ctx, actor.ID, "user.deactivated", u.ID, nil)
	authapi.WriteJSON(w, http.StatusOK, userEnvelope{User: toUserResponse(u)})
}

func (h *Handler) handleInvalidateSessions(w http.ResponseWriter, r *http.Request, actor authapi.Identity) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_request", "user id is required")
		return
	}

	ctx := r.Context()
	if _, err := h.dir.FindByID(ctx, id); err != nil {
		if identity.IsNotFound(err) {
			authapi.WriteError(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		h.log.Error("admin.users.invalidate.lookup.fail", "err", err)
		authapi.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	if err := h.sessions.InvalidateAllSessions(ctx, id); err != nil {
		h.log.Error("admin.users.invalidate.fail", "err", err, "user_id", id)
		authapi.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.record(ctx, actor.ID, "user.sessions.invalidated", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

func updateMeta(req updateUserRequest) map[string]any {
	meta := map[string]any{}
	if req.DisplayName != nil {
		meta["display_name"] = *req.DisplayName
	}
	if req.Role != nil {
		meta["role"] = *req.Role
	}
	if req.IsActive != nil {
		meta["is_active"] = *req.IsActive
	}
	return meta
}
