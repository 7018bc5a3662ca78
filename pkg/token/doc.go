// Package token is the credential lifecycle: stateless short-lived access
// tokens and stateful rotating refresh tokens.
//
// Access tokens are HS256-signed JWTs carrying {sub, role, iat, exp, jti}.
// They are never persisted; validity is entirely signature plus expiry, so a
// stolen access token stays usable until exp and no longer. Verification
// distinguishes TOKEN_EXPIRED (valid but past expiry) from TOKEN_INVALID
// (everything else: bad signature, wrong issuer or audience, malformed).
//
// Refresh tokens are opaque UUID-shaped random strings looked up only by
// equality against stored rows. A row moves Active -> Revoked on rotation or
// logout and is read-classified Expired past its TTL; both states are
// terminal. Rotation is atomic at the storage layer: of two concurrent
// rotations on the same value, exactly one succeeds. The owning account's
// standing is re-checked at rotation time, so a banned or deactivated user
// cannot refresh their way back in.
package token
