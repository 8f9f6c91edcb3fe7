package redisidentity

import "fmt"

// Claim operations touch only the in-memory aggregate. They become durable
// on the next Update.

// GetClaims returns a copy of the user's claims.
func (s *UserStore) GetClaims(user *User) ([]UserClaim, error) {
	if user == nil {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}

	claims := make([]UserClaim, len(user.Claims))
	copy(claims, user.Claims)
	return claims, nil
}

// AddClaim appends a (type, value) pair to the user's claims.
func (s *UserStore) AddClaim(user *User, claimType, claimValue string) error {
	if user == nil {
		return fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	if claimType == "" {
		return fmt.Errorf("%w: claim type is required", ErrInvalidArgument)
	}

	user.AddClaim(claimType, claimValue)
	return nil
}

// RemoveClaim removes the claim matching the exact (type, value) pair.
// Removing a claim that is not present is a no-op, not an error.
func (s *UserStore) RemoveClaim(user *User, claimType, claimValue string) error {
	if user == nil {
		return fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	if claimType == "" {
		return fmt.Errorf("%w: claim type is required", ErrInvalidArgument)
	}

	user.RemoveClaim(claimType, claimValue)
	return nil
}
