package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	passwordMinLen = 6
	passwordMaxLen = 64
)

// ErrWeakPassword is returned by ValidatePassword.
var ErrWeakPassword = errors.New("password must be 6-64 characters of letters, digits or -_.!@#$%")

// ValidatePassword enforces the account password policy.
func ValidatePassword(s string) error {
	if len(s) < passwordMinLen || len(s) > passwordMaxLen {
		return ErrWeakPassword
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r == '-' || r == '_' || r == '.' || r == '!' || r == '@' || r == '#' || r == '$' || r == '%':
		default:
			return ErrWeakPassword
		}
	}
	return nil
}

// HashPassword returns the bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares the bcrypt hashed password with its possible plaintext equivalent.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
