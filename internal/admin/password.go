package admin

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// isBcryptHash reports whether s looks like a modular-crypt bcrypt hash.
func isBcryptHash(s string) bool {
	if len(s) != 60 {
		return false
	}
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// hashIfPlain leaves bcrypt hashes alone and hashes anything else.
func hashIfPlain(secret string) (string, error) {
	if isBcryptHash(secret) {
		return secret, nil
	}
	return HashPassword(secret)
}
