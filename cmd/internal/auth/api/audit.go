package authapi

import (
	"context"
	"net"
	"net/http"
	"strings"

	"promodesk/cmd/internal/audit"
)

const usersTable = "users"

func (h *Handler) auditLogin(ctx context.Context, r *http.Request, ip net.IP, userID string) {
	h.record(ctx, audit.Entry{
		ActorID:     &userID,
		Action:      "auth.login",
		TargetTable: strPtr(usersTable),
		TargetID:    &userID,
		Meta:        requestMeta(r, ip),
	})
}

func (h *Handler) auditLoginFailed(ctx context.Context, r *http.Request, ip net.IP, email string) {
	meta := requestMeta(r, ip)
	meta["identifier"] = strings.ToLower(strings.TrimSpace(email))
	h.record(ctx, audit.Entry{
		Action: "auth.login.failed",
		Meta:   meta,
	})
}

func (h *Handler) auditLogout(ctx context.Context, r *http.Request, ip net.IP, userID string) {
	h.record(ctx, audit.Entry{
		ActorID:     &userID,
		Action:      "auth.logout",
		TargetTable: strPtr(usersTable),
		TargetID:    &userID,
		Meta:        requestMeta(r, ip),
	})
}

func (h *Handler) auditLogoutAll(ctx context.Context, r *http.Request, ip net.IP, userID string) {
	h.record(ctx, audit.Entry{
		ActorID:     &userID,
		Action:      "auth.sessions.invalidate_all",
		TargetTable: strPtr(usersTable),
		TargetID:    &userID,
		Meta:        requestMeta(r, ip),
	})
}

func (h *Handler) auditResetRequested(ctx context.Context, r *http.Request, ip net.IP, userID, tokenID string) {
	meta := requestMeta(r, ip)
	meta["token_id"] = tokenID
	h.record(ctx, audit.Entry{
		Action:      "auth.password_reset.requested",
		TargetTable: strPtr(usersTable),
		TargetID:    &userID,
		Meta:        meta,
	})
}

func (h *Handler) auditResetCompleted(ctx context.Context, r *http.Request, ip net.IP, userID string) {
	h.record(ctx, audit.Entry{
		ActorID:     &userID,
		Action:      "auth.password_reset.completed",
		TargetTable: strPtr(usersTable),
		TargetID:    &userID,
		Meta:        requestMeta(r, ip),
	})
}

func (h *Handler) record(ctx context.Context, e audit.Entry) {
	if h == nil || h.rec == nil {
		return
	}
	h.rec.Record(ctx, e)
}

func requestMeta(r *http.Request, ip net.IP) map[string]any {
	meta := map[string]any{}
	if ip != nil {
		meta["ip"] = ip.String()
	}
	if ua := strings.TrimSpace(r.UserAgent()); ua != "" {
		meta["user_agent"] = ua
	}
	return meta
}

func strPtr(s string) *string { return &s }
