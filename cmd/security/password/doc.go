// Package password implements Argon2id password hashing for the promodesk
// admin backend.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<hash_b64>
//
// Parameters are env-tunable (PROMODESK_ARGON2_*) with conservative defaults.
// Verification is strict: malformed hashes and hashes whose parameters exceed
// the configured bounds are rejected, never silently accepted.
package password
