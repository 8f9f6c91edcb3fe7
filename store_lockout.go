package redisidentity

import (
	"fmt"
	"time"
)

// Lockout operations touch only the in-memory aggregate and become durable
// on the next Update. Increments are not atomic across units of work: two
// sessions that each load the aggregate, increment, and flush will race, and
// the whole-aggregate optimistic concurrency check is the only protection.
// Within one unit of work no increment is ever lost.

// GetLockoutEndDate returns the lockout end date. A user that was never
// locked out has no end date, which is an ErrInvalidState rather than a
// zero time.
func (s *UserStore) GetLockoutEndDate(user *User) (time.Time, error) {
	if user == nil {
		return time.Time{}, fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	if user.LockoutEndDate == nil {
		return time.Time{}, fmt.Errorf("%w: lockout end date has no value", ErrInvalidState)
	}
	return *user.LockoutEndDate, nil
}

// SetLockoutEndDate locks the user out until the given time.
func (s *UserStore) SetLockoutEndDate(user *User, lockoutEnd time.Time) error {
	if user == nil {
		return fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	user.LockUntil(lockoutEnd)
	return nil
}

// IncrementAccessFailedCount bumps the failed-access counter and returns the
// new value.
func (s *UserStore) IncrementAccessFailedCount(user *User) (int, error) {
	if user == nil {
		return 0, fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	return user.IncrementAccessFailedCount(), nil
}

// ResetAccessFailedCount zeroes the failed-access counter.
func (s *UserStore) ResetAccessFailedCount(user *User) error {
	if user == nil {
		return fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	user.ResetAccessFailedCount()
	return nil
}

// GetAccessFailedCount returns the current failed-access counter.
func (s *UserStore) GetAccessFailedCount(user *User) (int, error) {
	if user == nil {
		return 0, fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	return user.AccessFailedCount, nil
}

// GetLockoutEnabled reports whether lockout accounting is on for this user.
func (s *UserStore) GetLockoutEnabled(user *User) (bool, error) {
	if user == nil {
		return false, fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	return user.LockoutEnabled, nil
}

// SetLockoutEnabled turns lockout accounting on or off for this user.
func (s *UserStore) SetLockoutEnabled(user *User, enabled bool) error {
	if user == nil {
		return fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	if enabled {
		user.EnableLockout()
	} else {
		user.DisableLockout()
	}
	return nil
}
