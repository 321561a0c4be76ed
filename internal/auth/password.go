package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is enforced on registration and password change.
const MinPasswordLength = 6

var ErrWeakPassword = fmt.Errorf("password must be at least %d characters", MinPasswordLength)

// Hasher wraps bcrypt with a configurable cost.
type Hasher struct {
	Cost int
}

func DefaultHasher() Hasher { return Hasher{Cost: bcrypt.DefaultCost} }

func (h Hasher) Hash(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Compare returns ErrInvalidCredentials when password does not match hash.
func (h Hasher) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return nil
}
