// Package token issues and verifies the three signed-token kinds used by the
// promodesk auth core: access (15m), refresh (7d) and password-reset (1h).
//
// Each kind is signed with its own HMAC secret, so a token of one kind can
// never verify as another. Refresh and reset tokens additionally carry a
// ULID token id (jti) that correlates with a server-side store record; the
// signed token alone is never sufficient for those flows.
package token
