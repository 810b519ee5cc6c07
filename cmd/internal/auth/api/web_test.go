package authapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func cookieHandler() *Handler {
	return &Handler{cfg: Config{
		RefreshCookieName: "promodesk_refresh_token",
		CookiePath:        "/auth",
		CookieSecure:      true,
		RefreshCookieAge:  7 * 24 * time.Hour,
		MaxBodyBytes:      1 << 20,
	}}
}

func TestSetRefreshCookie_Attributes(t *testing.T) {
	h := cookieHandler()
	rec := httptest.NewRecorder()

	exp := time.Now().UTC().Add(7 * 24 * time.Hour)
	h.setRefreshCookie(rec, "signed-token", exp)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	c := cookies[0]

	if c.Name != "promodesk_refresh_token" || c.Value != "signed-token" {
		t.Fatalf("name/value: %s=%s", c.Name, c.Value)
	}
	if !c.HttpOnly {
		t.Fatalf("cookie must be HttpOnly")
	}
	if !c.Secure {
		t.Fatalf("cookie must be Secure")
	}
	if c.SameSite != http.SameSiteStrictMode {
		t.Fatalf("cookie must be SameSite=Strict")
	}
	if c.Path != "/auth" {
		t.Fatalf("path: got %q", c.Path)
	}
	if c.MaxAge != int(7*24*time.Hour/time.Second) {
		t.Fatalf("max age: got %d", c.MaxAge)
	}
}

func TestClearRefreshCookie(t *testing.T) {
	h := cookieHandler()
	rec := httptest.NewRecorder()

	h.clearRefreshCookie(rec)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Value != "" || c.MaxAge >= 0 {
		t.Fatalf("expected expired empty cookie, got value=%q maxage=%d", c.Value, c.MaxAge)
	}
}

func TestRefreshTokenFromCookie(t *testing.T) {
	h := cookieHandler()

	r := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	if _, ok := h.refreshTokenFromCookie(r); ok {
		t.Fatalf("expected no cookie")
	}

	r.AddCookie(&http.Cookie{Name: "promodesk_refresh_token", Value: "signed-token"})
	v, ok := h.refreshTokenFromCookie(r)
	if !ok || v != "signed-token" {
		t.Fatalf("got (%q, %v)", v, ok)
	}
}
