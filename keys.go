package redisidentity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Key namespaces. Each document type gets its own prefix so natural
// identifiers of different kinds can never collide in the same keyspace.
const (
	userKeyPrefix  = "idu:"
	emailKeyPrefix = "ide:"
	phoneKeyPrefix = "idp:"
	loginKeyPrefix = "idl:"
)

// UserKey derives the primary document key for a username. Derivation is
// pure and case-insensitive: the same username in any casing yields the same
// key, which is what makes user creation reject duplicate usernames at the
// store layer without a lookup round-trip.
func UserKey(userName string) (string, error) {
	normalized, err := normalizeIdentifier("user name", userName)
	if err != nil {
		return "", err
	}
	return userKeyPrefix + normalized, nil
}

// EmailKey derives the document key for an e-mail address, case-insensitively.
func EmailKey(email string) (string, error) {
	normalized, err := normalizeIdentifier("e-mail", email)
	if err != nil {
		return "", err
	}
	return emailKeyPrefix + normalized, nil
}

// PhoneNumberKey derives the document key for a phone number. Numbers that
// parse as international numbers are canonicalized to E.164, so
// "+1 415-555-0100" and "+14155550100" derive the same key. Numbers that do
// not parse keep their significant digits.
func PhoneNumberKey(phoneNumber string) (string, error) {
	trimmed := strings.TrimSpace(phoneNumber)
	if trimmed == "" {
		return "", fmt.Errorf("%w: phone number is required", ErrInvalidArgument)
	}
	return phoneKeyPrefix + normalizePhoneNumber(trimmed), nil
}

// LoginKey derives the document key for an external login. The provider and
// provider key are matched case-insensitively; the pair is hashed so that
// provider keys containing separator characters cannot collide with a
// different (provider, key) split or produce oversized Redis keys.
func LoginKey(loginProvider, providerKey string) (string, error) {
	provider, err := normalizeIdentifier("login provider", loginProvider)
	if err != nil {
		return "", err
	}
	key, err := normalizeIdentifier("provider key", providerKey)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256([]byte(provider + "\x00" + key))
	return loginKeyPrefix + hex.EncodeToString(sum[:]), nil
}

func normalizeIdentifier(label, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidArgument, label)
	}
	return strings.ToLower(trimmed), nil
}

func normalizePhoneNumber(raw string) string {
	if parsed, err := phonenumbers.Parse(raw, ""); err == nil {
		return phonenumbers.Format(parsed, phonenumbers.E164)
	}

	var digits strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '+' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return strings.ToLower(raw)
	}
	return digits.String()
}
