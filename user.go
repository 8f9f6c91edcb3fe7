package redisidentity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserClaim is a (type, value) pair owned by the user aggregate.
type UserClaim struct {
	ClaimType  string `json:"claimType"`
	ClaimValue string `json:"claimValue"`
}

// UserLoginInfo is the aggregate-side record of an external login. ID is the
// derived login key, which makes removal by (provider, key) case-insensitive
// without re-deriving on every comparison.
type UserLoginInfo struct {
	ID            string `json:"id"`
	LoginProvider string `json:"loginProvider"`
	ProviderKey   string `json:"providerKey"`
}

// User is the user aggregate. Its document ID is a pure function of the
// username (see UserKey), never a random surrogate: creating a second user
// with the same username in any casing collides at the store layer. There is
// no rename operation.
//
// Claims, logins, credential, lockout counters, and contact fields live on
// the aggregate and are change-tracked by the session: mutations become
// durable on the next UserStore.Update.
type User struct {
	ID                string          `json:"id"`
	UserName          string          `json:"userName"`
	PasswordHash      string          `json:"passwordHash,omitempty"`
	SecurityStamp     string          `json:"securityStamp,omitempty"`
	Email             string          `json:"email,omitempty"`
	PhoneNumber       string          `json:"phoneNumber,omitempty"`
	Claims            []UserClaim     `json:"claims,omitempty"`
	Logins            []UserLoginInfo `json:"logins,omitempty"`
	AccessFailedCount int             `json:"accessFailedCount"`
	LockoutEnabled    bool            `json:"lockoutEnabled"`
	LockoutEndDate    *time.Time      `json:"lockoutEndDate,omitempty"`
	TwoFactorEnabled  bool            `json:"twoFactorEnabled"`
}

// NewUser creates a user aggregate with its document ID derived from
// userName and a fresh security stamp.
func NewUser(userName string) (*User, error) {
	key, err := UserKey(userName)
	if err != nil {
		return nil, err
	}

	return &User{
		ID:            key,
		UserName:      strings.TrimSpace(userName),
		SecurityStamp: uuid.NewString(),
	}, nil
}

// AddClaim appends a claim to the aggregate.
func (u *User) AddClaim(claimType, claimValue string) {
	u.Claims = append(u.Claims, UserClaim{ClaimType: claimType, ClaimValue: claimValue})
}

// RemoveClaim removes the first claim matching the exact (type, value) pair.
// Removing a claim that is not present is a no-op.
func (u *User) RemoveClaim(claimType, claimValue string) {
	for i, claim := range u.Claims {
		if claim.ClaimType == claimType && claim.ClaimValue == claimValue {
			u.Claims = append(u.Claims[:i], u.Claims[i+1:]...)
			return
		}
	}
}

// AddLogin appends an external login record to the aggregate.
func (u *User) AddLogin(login UserLoginInfo) {
	u.Logins = append(u.Logins, login)
}

// RemoveLogin removes the login with the given derived key, if present.
func (u *User) RemoveLogin(loginKey string) {
	for i, login := range u.Logins {
		if strings.EqualFold(login.ID, loginKey) {
			u.Logins = append(u.Logins[:i], u.Logins[i+1:]...)
			return
		}
	}
}

// SetPasswordHash stores the externally computed credential hash. The hash
// is opaque to this package.
func (u *User) SetPasswordHash(passwordHash string) {
	u.PasswordHash = passwordHash
}

// SetSecurityStamp replaces the security stamp.
func (u *User) SetSecurityStamp(stamp string) {
	u.SecurityStamp = stamp
}

// SetEmail sets the aggregate-side e-mail field. The matching secondary-key
// document is managed by UserStore.SetEmail.
func (u *User) SetEmail(email string) {
	u.Email = email
}

// SetPhoneNumber sets the aggregate-side phone field. The matching
// secondary-key document is managed by UserStore.SetPhoneNumber.
func (u *User) SetPhoneNumber(phoneNumber string) {
	u.PhoneNumber = phoneNumber
}

// EnableLockout turns lockout accounting on for this user.
func (u *User) EnableLockout() { u.LockoutEnabled = true }

// DisableLockout turns lockout accounting off for this user.
func (u *User) DisableLockout() { u.LockoutEnabled = false }

// LockUntil sets the lockout end date.
func (u *User) LockUntil(lockoutEnd time.Time) {
	u.LockoutEndDate = &lockoutEnd
}

// IncrementAccessFailedCount bumps the failed-access counter in memory and
// returns the new value. The increment is not atomic across sessions; see
// the package documentation for the concurrency contract.
func (u *User) IncrementAccessFailedCount() int {
	u.AccessFailedCount++
	return u.AccessFailedCount
}

// ResetAccessFailedCount zeroes the failed-access counter.
func (u *User) ResetAccessFailedCount() {
	u.AccessFailedCount = 0
}

// EnableTwoFactor turns two-factor authentication on for this user.
func (u *User) EnableTwoFactor() { u.TwoFactorEnabled = true }

// DisableTwoFactor turns two-factor authentication off for this user.
func (u *User) DisableTwoFactor() { u.TwoFactorEnabled = false }
