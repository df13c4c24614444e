// Package cryptox contains the local password hashing used for the user
// mirror record.
package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned when hashing an empty password.
var ErrEmptyPassword = errors.New("empty password")

// hashPasswordCost is a seam so tests can use bcrypt.MinCost.
var hashPasswordCost = bcrypt.DefaultCost

// HashPassword returns a salted bcrypt hash of password. Two calls with the
// same input produce different hashes.
//
// The password is reduced with SHA-256 first, so passwords of any length
// are accepted (bcrypt alone stops at 72 bytes).
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	hash, err := bcrypt.GenerateFromPassword(prehash(password), hashPasswordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	return string(hash), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), prehash(password)) == nil
}

// prehash returns base64(SHA-256(password)): 44 bytes, no NUL bytes.
func prehash(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}
