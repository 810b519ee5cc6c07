// Package session implements the promodesk session lifecycle: login, refresh
// rotation, logout, mass invalidation, and the password-reset flow.
//
// Per (user, refresh-token-id) pair the lifecycle is
//
//	ISSUED -> ROTATED | REVOKED | EXPIRED
//
// realized through store-record presence: a refresh token is live exactly
// while its record exists and is unexpired. Rotation deletes the old record
// before a replacement is persisted, so a replayed refresh token finds no
// record and fails. Concurrent refreshes with the same token race on the
// record delete; at most one wins, which is the intended replay defense.
package session
