// Package auth provides identity for GridWatch Core: dashboard user
// accounts, password hashing, and the signed tokens that bind a device or
// dashboard session to an account.
//
// # Components
//
//   - User / UserStore: account records and their persistence (SQLite in
//     production, in-memory for tests)
//   - Service: registration and login built on a UserStore
//   - Claims / IssueToken / VerifyToken: HS256 JWT issue and verification
//   - HashPassword / VerifyPassword: Argon2id password hashing (PHC format)
//
// Tokens carry {sub, username, email, iat} and, when a TTL is configured,
// an expiry claim. Verification is a pure function of the token and the
// process secret; it never touches the store.
package auth
