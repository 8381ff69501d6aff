package services

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordService hashes and verifies credentials with bcrypt.
type PasswordService struct{}

// NewPasswordService creates a new PasswordService.
func NewPasswordService() *PasswordService {
	return &PasswordService{}
}

// Hash derives a salted digest suitable for credential storage.
func (s *PasswordService) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether the plaintext matches the digest. Failure is binary,
// there are no retries.
func (s *PasswordService) Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
