// Package auth implements authentication for the project management API.
//
// # Components
//
//   - Password hashing (bcrypt) — HashPassword / VerifyPassword
//   - Token service — stateless HS256 JWTs with a fixed validity window
//   - Credential store — SQLite persistence for login credentials
//   - Verifier — login and registration flows on top of the store
//
// # Token model
//
// Tokens are self-contained: validation recomputes the signature and checks
// expiry without touching the database. There is no revocation list — a token
// is valid until its window closes. The signing key comes from configuration
// so tokens survive restarts and replicas can share it.
//
// # Concurrency
//
// Token issue/validate are pure functions of their input, the key, and the
// clock; they hold no locks and are safe for any number of concurrent
// callers. bcrypt runs on the calling goroutine. Store lookups take a
// context and are bounded by the caller's timeout.
package auth
