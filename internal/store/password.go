package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"shop-ledger/internal/core"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// PrepareUser normalises a new user and hashes its password.
func PrepareUser(u core.User, password string, now time.Time) (core.User, error) {
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	if u.Username == "" {
		return core.User{}, fmt.Errorf("username: %w", core.ErrMissingField)
	}
	if len(password) < 8 {
		return core.User{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, fmt.Errorf("failed to hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	if u.Role == "" {
		u.Role = core.RoleStaff
	}
	u.IsActive = true
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	return u, nil
}

// CheckPassword compares a plaintext password with the user's stored hash.
func CheckPassword(u *core.User, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
