package authapi

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"promodesk/cmd/identity"
	"promodesk/cmd/security/token"
)

// Identity is the resolved caller of a protected request.
type Identity struct {
	ID           string
	Email        string
	Role         identity.Role
	TokenVersion int64
}

// IdentityHandler is a protected handler that receives the resolved caller.
type IdentityHandler func(w http.ResponseWriter, r *http.Request, id Identity)

// Middleware resolves bearer access tokens into identities.
//
// Resolution always re-fetches the live user record: comparing the token's
// embedded version against the current one is what makes token-version bumps
// an immediate global revocation, not just decoding the JWT.
type Middleware struct {
	tokens *token.Issuer
	dir    identity.Directory
	log    *slog.Logger
}

// NewMiddleware constructs the auth middleware.
func NewMiddleware(tokens *token.Issuer, dir identity.Directory, log *slog.Logger) *Middleware {
	if log == nil {
		log = slog.Default()
	}
	return &Middleware{tokens: tokens, dir: dir, log: log}
}

// RequireAuth wraps next so it only runs for a valid bearer access token
// backed by an active user whose token_version matches the claim.
func (m *Middleware) RequireAuth(next IdentityHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := m.resolve(w, r)
		if !ok {
			return
		}
		next(w, r, id)
	}
}

// RequireRole wraps next so it only runs when the resolved identity holds one
// of the allowed roles. Authenticated-but-wrong-role is 403, never 401.
func (m *Middleware) RequireRole(next IdentityHandler, allowed ...identity.Role) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request, id Identity) {
		for _, role := range allowed {
			if id.Role == role {
				next(w, r, id)
				return
			}
		}
		WriteError(w, http.StatusForbidden, "forbidden", "insufficient role")
	})
}

func (m *Middleware) resolve(w http.ResponseWriter, r *http.Request) (Identity, bool) {
	bearer := bearerToken(r)
	if bearer == "" {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return Identity{}, false
	}

	claims, err := m.tokens.VerifyAccess(bearer, time.Now().UTC())
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
		return Identity{}, false
	}

	// The role claim is only sanity-checked; the live record decides what the
	// caller may do, so demotions take effect before the token expires.
	if _, err := identity.ParseRole(claims.Role); err != nil {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
		return Identity{}, false
	}

	u, err := m.dir.FindByID(r.Context(), claims.UserID)
	if err != nil {
		if !identity.IsNotFound(err) {
			m.log.Error("auth.require.lookup.fail", "err", err)
		}
		WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
		return Identity{}, false
	}
	if !u.IsActive {
		WriteError(w, http.StatusUnauthorized, "account_deactivated", "account deactivated")
		return Identity{}, false
	}
	if u.TokenVersion != claims.TokenVersion {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
		return Identity{}, false
	}

	return Identity{
		ID:           u.ID,
		Email:        u.Email,
		Role:         u.Role,
		TokenVersion: u.TokenVersion,
	}, true
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
