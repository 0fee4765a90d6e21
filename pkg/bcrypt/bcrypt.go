package bcrypt

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultCost = 12
)

// HashPassword hashes a password for storage in ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// ComparePassword reports a non-nil error unless password matches the hash.
func ComparePassword(hashedPassword, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if err != nil {
		return fmt.Errorf("password comparison failed: %w", err)
	}
	return nil
}

// VerifyHash checks that hash looks like a bcrypt hash.
func VerifyHash(hash string) bool {
	if len(hash) != 60 || hash[0:2] != "$2" {
		return false
	}
	_, err := bcrypt.Cost([]byte(hash))
	return err == nil
}
