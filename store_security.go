package redisidentity

import "fmt"

// Credential, security-stamp, and two-factor operations touch only the
// in-memory aggregate and become durable on the next Update. Password
// hashing itself happens upstream; the hash is opaque here.

// GetPasswordHash returns the stored credential hash, empty when the user
// has no password.
func (s *UserStore) GetPasswordHash(user *User) (string, error) {
	if user == nil {
		return "", fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	return user.PasswordHash, nil
}

// HasPassword reports whether the user has a credential hash.
func (s *UserStore) HasPassword(user *User) (bool, error) {
	if user == nil {
		return false, fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	return user.PasswordHash != "", nil
}

// SetPasswordHash stores the externally computed credential hash.
func (s *UserStore) SetPasswordHash(user *User, passwordHash string) error {
	if user == nil {
		return fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	user.SetPasswordHash(passwordHash)
	return nil
}

// GetSecurityStamp returns the user's security stamp.
func (s *UserStore) GetSecurityStamp(user *User) (string, error) {
	if user == nil {
		return "", fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	return user.SecurityStamp, nil
}

// SetSecurityStamp replaces the user's security stamp.
func (s *UserStore) SetSecurityStamp(user *User, stamp string) error {
	if user == nil {
		return fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	user.SetSecurityStamp(stamp)
	return nil
}

// GetTwoFactorEnabled reports whether two-factor authentication is on.
func (s *UserStore) GetTwoFactorEnabled(user *User) (bool, error) {
	if user == nil {
		return false, fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	return user.TwoFactorEnabled, nil
}

// SetTwoFactorEnabled turns two-factor authentication on or off.
func (s *UserStore) SetTwoFactorEnabled(user *User, enabled bool) error {
	if user == nil {
		return fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	if enabled {
		user.EnableTwoFactor()
	} else {
		user.DisableTwoFactor()
	}
	return nil
}
