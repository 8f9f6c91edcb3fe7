// Package redisidentity provides a Redis-backed persistence layer for user
// accounts: credentials, claims, external logins, lockout accounting, and
// e-mail/phone confirmation state.
//
// Uniqueness is enforced structurally, not by lookups. Every natural
// identifier (username, e-mail, phone number, provider/key pair) derives a
// deterministic document key, and a conditional put on that key is the
// insert. Two concurrent registrations of "Tugberk" and "tugberk" race for
// the same key; exactly one wins and the loser gets [ErrDuplicateKey].
//
// # Architecture boundaries
//
// [UserStore] is the public surface, decomposed into capability interfaces
// ([UserEmailStore], [UserLockoutStore], and friends) so callers depend on
// the slice they use. Beneath it, [DocumentSession] is the unit of work: it
// tracks loaded documents, detects changes by comparing serialized state,
// and commits everything dirty in one optimistic transaction guarded by
// per-document change vectors. A conflicting writer surfaces as
// [ErrConcurrencyConflict]; retry by reloading.
//
// # What this package must NOT do
//
//   - Hash passwords or generate tokens. PasswordHash and SecurityStamp are
//     opaque strings owned by the caller.
//   - Expose Redis clients, envelopes, or key layouts in its public API.
//   - Treat absence as failure: every lookup returns (nil, nil) for a
//     missing user.
//
// # Performance contract
//
// Lookups by primary key are one Redis round-trip; FindByEmail and
// FindByLogin resolve the reference document and its owner in a single
// scripted round-trip.
// In-memory accessors (claims, password hash, lockout counters) never touch
// Redis; they become durable at the next Update.
package redisidentity
