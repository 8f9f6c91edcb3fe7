package redisidentity

import "errors"

var (
	// ErrInvalidArgument is returned when a required input is nil or empty.
	// Argument checks run before any Redis round-trip, so this error is
	// always synchronous and side-effect free.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState is returned when an operation requires a precondition
	// on the user aggregate that does not hold, such as reading e-mail
	// confirmation status for a user without an e-mail.
	ErrInvalidState = errors.New("invalid state")
	// ErrDuplicateKey is returned when a conditional put loses the race for
	// a document key. This is the uniqueness mechanism: usernames, e-mails,
	// phone numbers, and external logins all claim a deterministic key.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrConcurrencyConflict is returned by SaveChanges when a tracked
	// document was modified by another writer since it was loaded.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrStoreUnavailable wraps Redis transport failures.
	ErrStoreUnavailable = errors.New("document store unavailable")
	// ErrSessionClosed is returned when a session is used after Close.
	ErrSessionClosed = errors.New("document session closed")
)
