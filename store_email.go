package redisidentity

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// GetEmail returns the aggregate-side e-mail field.
func (s *UserStore) GetEmail(user *User) (string, error) {
	if user == nil {
		return "", fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	return user.Email, nil
}

// SetEmail claims the address by writing its secondary-key document
// immediately, then sets the aggregate field in memory. An address already
// claimed by any user surfaces as ErrDuplicateKey and leaves the aggregate
// untouched. Changing the e-mail does not retract the document of the
// previous address; see the package documentation for this documented gap.
func (s *UserStore) SetEmail(ctx context.Context, user *User, email string) error {
	if user == nil {
		return fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	if user.ID == "" {
		return fmt.Errorf("%w: user has no id", ErrInvalidArgument)
	}

	userEmail, err := NewUserEmail(email, user.ID)
	if err != nil {
		return err
	}

	if err := s.session.Insert(ctx, userEmail.ID, userEmail); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			s.logger.Warn("e-mail already claimed", zap.String("key", userEmail.ID))
		}
		return err
	}

	user.SetEmail(email)
	s.logger.Debug("set e-mail", zap.String("user", user.ID), zap.String("key", userEmail.ID))
	return nil
}

// GetEmailConfirmed reports whether the user's current e-mail has been
// confirmed. Asking for confirmation status without an e-mail set is an
// ErrInvalidState, not "unconfirmed".
func (s *UserStore) GetEmailConfirmed(ctx context.Context, user *User) (bool, error) {
	if user == nil {
		return false, fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	if user.Email == "" {
		return false, fmt.Errorf("%w: user has no e-mail", ErrInvalidState)
	}

	userEmail, found, err := s.loadUserEmail(ctx, user.Email)
	if err != nil {
		return false, err
	}
	return found && userEmail.Confirmed(), nil
}

// SetEmailConfirmed flips the confirmation state on the e-mail document.
// The document must exist for the current address; it is created together
// with the field by SetEmail. The change becomes durable on the next Update.
func (s *UserStore) SetEmailConfirmed(ctx context.Context, user *User, confirmed bool) error {
	if user == nil {
		return fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	if user.Email == "" {
		return fmt.Errorf("%w: user has no e-mail", ErrInvalidState)
	}

	userEmail, found, err := s.loadUserEmail(ctx, user.Email)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: no e-mail document exists for the current e-mail", ErrInvalidState)
	}

	if confirmed {
		userEmail.SetConfirmed()
	} else {
		userEmail.SetUnconfirmed()
	}
	return nil
}

func (s *UserStore) loadUserEmail(ctx context.Context, email string) (*UserEmail, bool, error) {
	key, err := EmailKey(email)
	if err != nil {
		return nil, false, err
	}

	userEmail := &UserEmail{}
	found, err := s.session.Load(ctx, key, userEmail)
	if err != nil {
		return nil, false, err
	}
	return userEmail, found, nil
}
