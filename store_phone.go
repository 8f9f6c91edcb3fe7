package redisidentity

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// GetPhoneNumber returns the aggregate-side phone number field.
func (s *UserStore) GetPhoneNumber(user *User) (string, error) {
	if user == nil {
		return "", fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	return user.PhoneNumber, nil
}

// SetPhoneNumber claims the number by writing its secondary-key document
// immediately, then sets the aggregate field in memory. Numbers are
// normalized before key derivation, so "+1 415-555-0100" collides with
// "+14155550100". Changing the number does not retract the previous
// document; see the package documentation for this documented gap.
func (s *UserStore) SetPhoneNumber(ctx context.Context, user *User, phoneNumber string) error {
	if user == nil {
		return fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	if user.ID == "" {
		return fmt.Errorf("%w: user has no id", ErrInvalidArgument)
	}

	userPhone, err := NewUserPhoneNumber(phoneNumber, user.ID)
	if err != nil {
		return err
	}

	if err := s.session.Insert(ctx, userPhone.ID, userPhone); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			s.logger.Warn("phone number already claimed", zap.String("key", userPhone.ID))
		}
		return err
	}

	user.SetPhoneNumber(phoneNumber)
	s.logger.Debug("set phone number", zap.String("user", user.ID), zap.String("key", userPhone.ID))
	return nil
}

// GetPhoneNumberConfirmed reports whether the user's current phone number
// has been confirmed. Asking without a phone number set is an
// ErrInvalidState, not "unconfirmed".
func (s *UserStore) GetPhoneNumberConfirmed(ctx context.Context, user *User) (bool, error) {
	if user == nil {
		return false, fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	if user.PhoneNumber == "" {
		return false, fmt.Errorf("%w: user has no phone number", ErrInvalidState)
	}

	userPhone, found, err := s.loadUserPhoneNumber(ctx, user.PhoneNumber)
	if err != nil {
		return false, err
	}
	return found && userPhone.Confirmed(), nil
}

// SetPhoneNumberConfirmed flips the confirmation state on the phone
// document. The document must exist for the current number; it is created
// together with the field by SetPhoneNumber. The change becomes durable on
// the next Update.
func (s *UserStore) SetPhoneNumberConfirmed(ctx context.Context, user *User, confirmed bool) error {
	if user == nil {
		return fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	if user.PhoneNumber == "" {
		return fmt.Errorf("%w: user has no phone number", ErrInvalidState)
	}

	userPhone, found, err := s.loadUserPhoneNumber(ctx, user.PhoneNumber)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: no phone document exists for the current phone number", ErrInvalidState)
	}

	if confirmed {
		userPhone.SetConfirmed()
	} else {
		userPhone.SetUnconfirmed()
	}
	return nil
}

func (s *UserStore) loadUserPhoneNumber(ctx context.Context, phoneNumber string) (*UserPhoneNumber, bool, error) {
	key, err := PhoneNumberKey(phoneNumber)
	if err != nil {
		return nil, false, err
	}

	userPhone := &UserPhoneNumber{}
	found, err := s.session.Load(ctx, key, userPhone)
	if err != nil {
		return nil, false, err
	}
	return userPhone, found, nil
}
