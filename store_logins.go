package redisidentity

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// GetLogins returns a copy of the user's external login records.
func (s *UserStore) GetLogins(user *User) ([]UserLoginInfo, error) {
	if user == nil {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}

	logins := make([]UserLoginInfo, len(user.Logins))
	copy(logins, user.Logins)
	return logins, nil
}

// AddLogin claims the (provider, provider key) pair by writing its
// secondary-key document immediately, then records the login on the
// aggregate. The immediate write is what makes the login unique across
// users: a second claim for the same pair loses the conditional put with
// ErrDuplicateKey, whatever the call order. The aggregate-side record
// becomes durable on the next Update.
func (s *UserStore) AddLogin(ctx context.Context, user *User, loginProvider, providerKey string) error {
	if user == nil {
		return fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	if user.ID == "" {
		return fmt.Errorf("%w: user has no id", ErrInvalidArgument)
	}

	login, err := NewUserLogin(user.ID, loginProvider, providerKey)
	if err != nil {
		return err
	}

	if err := s.session.Insert(ctx, login.ID, login); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			s.logger.Warn("external login already claimed",
				zap.String("provider", loginProvider), zap.String("key", login.ID))
		}
		return err
	}

	user.AddLogin(UserLoginInfo{ID: login.ID, LoginProvider: loginProvider, ProviderKey: providerKey})
	s.logger.Debug("added external login", zap.String("user", user.ID), zap.String("key", login.ID))
	return nil
}

// RemoveLogin marks the login's secondary-key document for deletion and
// removes the matching record from the aggregate. Both changes commit on the
// next Update. Removing a login the user does not have is a no-op.
func (s *UserStore) RemoveLogin(ctx context.Context, user *User, loginProvider, providerKey string) error {
	if user == nil {
		return fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}

	key, err := LoginKey(loginProvider, providerKey)
	if err != nil {
		return err
	}

	s.session.Delete(key)
	user.RemoveLogin(key)
	s.logger.Debug("removed external login", zap.String("user", user.ID), zap.String("key", key))
	return nil
}
