package service

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/msomdec/task-manager/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 7
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLength = 72
)

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	return name, nil
}

// normalizeEmail trims and lower-cases an address and rejects anything that
// is not a bare RFC 5322 address.
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: email is invalid", domain.ErrInvalidInput)
	}
	return email, nil
}

func normalizePassword(password string) (string, error) {
	password = strings.TrimSpace(password)
	if len(password) < minPasswordLength {
		return "", fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return "", fmt.Errorf("%w: password must be at most %d bytes", domain.ErrInvalidInput, maxPasswordLength)
	}
	if strings.Contains(strings.ToLower(password), "password") {
		return "", fmt.Errorf("%w: password cannot contain \"password\"", domain.ErrInvalidInput)
	}
	return password, nil
}

func validateAge(age int) error {
	if age < 0 {
		return fmt.Errorf("%w: age must be a positive number", domain.ErrInvalidInput)
	}
	return nil
}

func hashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
