package config

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

// AdminConfig holds the operator credentials guarding the management
// endpoints. The password is stored as a bcrypt hash; generate one with
// `automarket hash-password`.
type AdminConfig struct {
	Username     string
	PasswordHash string
}

// NewAdminConfig creates the operator credential configuration from
// ADMIN_USERNAME (default: admin) and ADMIN_PASSWORD_HASH (required).
func NewAdminConfig() (*AdminConfig, error) {
	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}

	hash := os.Getenv("ADMIN_PASSWORD_HASH")
	if hash == "" {
		return nil, fmt.Errorf("ADMIN_PASSWORD_HASH is required but not set")
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("ADMIN_PASSWORD_HASH is not a valid bcrypt hash: %v", err)
	}

	return &AdminConfig{Username: username, PasswordHash: hash}, nil
}

// Verify checks the given credentials against the configured operator
// account.
func (c *AdminConfig) Verify(username, password string) bool {
	if username != c.Username {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil
}

// HashPassword hashes a password with bcrypt for use as ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
