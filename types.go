package redisidentity

import (
	"context"
	"time"
)

// The store's surface is decomposed into capability interfaces so callers
// can depend on the slice they need. One concrete UserStore implements all
// of them over a single unit of work: whatever mix of capabilities a caller
// mutates, everything commits atomically at Update.

// UserLookup finds users by their natural identifiers. Absence is a normal
// outcome: every lookup returns (nil, nil) for a missing user.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindByUserName(ctx context.Context, userName string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByLogin(ctx context.Context, loginProvider, providerKey string) (*User, error)
}

// UserPersistence is the unit-of-work boundary: Create flushes immediately,
// Update flushes every deferred mutation, Delete removes the aggregate.
type UserPersistence interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, user *User) error
}

// UserClaimStore manages the aggregate's claim collection in memory.
type UserClaimStore interface {
	GetClaims(user *User) ([]UserClaim, error)
	AddClaim(user *User, claimType, claimValue string) error
	RemoveClaim(user *User, claimType, claimValue string) error
}

// UserLoginStore manages external logins and their uniqueness documents.
type UserLoginStore interface {
	GetLogins(user *User) ([]UserLoginInfo, error)
	AddLogin(ctx context.Context, user *User, loginProvider, providerKey string) error
	RemoveLogin(ctx context.Context, user *User, loginProvider, providerKey string) error
}

// UserEmailStore manages the e-mail field, its uniqueness document, and its
// confirmation state.
type UserEmailStore interface {
	GetEmail(user *User) (string, error)
	SetEmail(ctx context.Context, user *User, email string) error
	GetEmailConfirmed(ctx context.Context, user *User) (bool, error)
	SetEmailConfirmed(ctx context.Context, user *User, confirmed bool) error
}

// UserPhoneNumberStore manages the phone field, its uniqueness document, and
// its confirmation state.
type UserPhoneNumberStore interface {
	GetPhoneNumber(user *User) (string, error)
	SetPhoneNumber(ctx context.Context, user *User, phoneNumber string) error
	GetPhoneNumberConfirmed(ctx context.Context, user *User) (bool, error)
	SetPhoneNumberConfirmed(ctx context.Context, user *User, confirmed bool) error
}

// UserPasswordStore manages the opaque credential hash.
type UserPasswordStore interface {
	GetPasswordHash(user *User) (string, error)
	HasPassword(user *User) (bool, error)
	SetPasswordHash(user *User, passwordHash string) error
}

// UserSecurityStampStore manages the security stamp.
type UserSecurityStampStore interface {
	GetSecurityStamp(user *User) (string, error)
	SetSecurityStamp(user *User, stamp string) error
}

// UserTwoFactorStore manages the two-factor flag.
type UserTwoFactorStore interface {
	GetTwoFactorEnabled(user *User) (bool, error)
	SetTwoFactorEnabled(user *User, enabled bool) error
}

// UserLockoutStore manages lockout accounting.
type UserLockoutStore interface {
	GetLockoutEndDate(user *User) (time.Time, error)
	SetLockoutEndDate(user *User, lockoutEnd time.Time) error
	IncrementAccessFailedCount(user *User) (int, error)
	ResetAccessFailedCount(user *User) error
	GetAccessFailedCount(user *User) (int, error)
	GetLockoutEnabled(user *User) (bool, error)
	SetLockoutEnabled(user *User, enabled bool) error
}

var (
	_ UserLookup             = (*UserStore)(nil)
	_ UserPersistence        = (*UserStore)(nil)
	_ UserClaimStore         = (*UserStore)(nil)
	_ UserLoginStore         = (*UserStore)(nil)
	_ UserEmailStore         = (*UserStore)(nil)
	_ UserPhoneNumberStore   = (*UserStore)(nil)
	_ UserPasswordStore      = (*UserStore)(nil)
	_ UserSecurityStampStore = (*UserStore)(nil)
	_ UserTwoFactorStore     = (*UserStore)(nil)
	_ UserLockoutStore       = (*UserStore)(nil)
)
