package redisidentity

import (
	"fmt"
	"time"
)

// ConfirmationRecord marks a contact value as confirmed. A record with a
// timestamp means confirmed; a nil record on the owning document means
// unconfirmed.
type ConfirmationRecord struct {
	ConfirmedOn time.Time `json:"confirmedOn"`
}

// UserEmail is the secondary-key document for an e-mail address. Its ID is
// the key derived from the address itself, so at most one document can exist
// per address: a second insert collides and surfaces ErrDuplicateKey. It
// points back at the owning user and carries the confirmation state for the
// address.
type UserEmail struct {
	ID           string              `json:"id"`
	Email        string              `json:"email"`
	UserID       string              `json:"userId"`
	Confirmation *ConfirmationRecord `json:"confirmation,omitempty"`
}

// NewUserEmail builds the secondary-key document for email owned by userID.
func NewUserEmail(email, userID string) (*UserEmail, error) {
	key, err := EmailKey(email)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}

	return &UserEmail{ID: key, Email: email, UserID: userID}, nil
}

// SetConfirmed records the confirmation timestamp. Calling it on an already
// confirmed document keeps the original timestamp.
func (e *UserEmail) SetConfirmed() {
	if e.Confirmation == nil {
		e.Confirmation = &ConfirmationRecord{ConfirmedOn: time.Now().UTC()}
	}
}

// SetUnconfirmed clears the confirmation state.
func (e *UserEmail) SetUnconfirmed() {
	e.Confirmation = nil
}

// Confirmed reports whether the address has been confirmed.
func (e *UserEmail) Confirmed() bool {
	return e.Confirmation != nil
}

// UserPhoneNumber is the secondary-key document for a phone number. Same
// shape and lifecycle as UserEmail.
type UserPhoneNumber struct {
	ID           string              `json:"id"`
	PhoneNumber  string              `json:"phoneNumber"`
	UserID       string              `json:"userId"`
	Confirmation *ConfirmationRecord `json:"confirmation,omitempty"`
}

// NewUserPhoneNumber builds the secondary-key document for phoneNumber owned
// by userID.
func NewUserPhoneNumber(phoneNumber, userID string) (*UserPhoneNumber, error) {
	key, err := PhoneNumberKey(phoneNumber)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}

	return &UserPhoneNumber{ID: key, PhoneNumber: phoneNumber, UserID: userID}, nil
}

// SetConfirmed records the confirmation timestamp. Calling it on an already
// confirmed document keeps the original timestamp.
func (p *UserPhoneNumber) SetConfirmed() {
	if p.Confirmation == nil {
		p.Confirmation = &ConfirmationRecord{ConfirmedOn: time.Now().UTC()}
	}
}

// SetUnconfirmed clears the confirmation state.
func (p *UserPhoneNumber) SetUnconfirmed() {
	p.Confirmation = nil
}

// Confirmed reports whether the phone number has been confirmed.
func (p *UserPhoneNumber) Confirmed() bool {
	return p.Confirmation != nil
}

// UserLogin is the secondary-key document for an external login. Its ID is
// derived from the (provider, provider key) pair and doubles as the
// uniqueness constraint: one login can belong to one user only.
type UserLogin struct {
	ID            string `json:"id"`
	UserID        string `json:"userId"`
	LoginProvider string `json:"loginProvider"`
	ProviderKey   string `json:"providerKey"`
}

// NewUserLogin builds the secondary-key document for an external login owned
// by userID.
func NewUserLogin(userID, loginProvider, providerKey string) (*UserLogin, error) {
	key, err := LoginKey(loginProvider, providerKey)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}

	return &UserLogin{
		ID:            key,
		UserID:        userID,
		LoginProvider: loginProvider,
		ProviderKey:   providerKey,
	}, nil
}
