package domain

import (
	"context"
	"time"
)

// User represents a registered account. Tokens and the avatar bytes live in
// their own stores and are reached through the repository and FileStore.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Age          int
	AvatarKey    string // Empty when the user has no avatar.
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasAvatar reports whether an avatar has been stored for the user.
func (u *User) HasAvatar() bool {
	return u.AvatarKey != ""
}

// UserRepository defines persistence operations for users and their
// active session tokens.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// Update writes every profile column from user.
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error

	// AddToken appends a token to the user's active tokens.
	AddToken(ctx context.Context, userID, token string) error
	// RemoveToken removes one token. Removing an absent token is not an error.
	RemoveToken(ctx context.Context, userID, token string) error
	ClearTokens(ctx context.Context, userID string) error
	HasToken(ctx context.Context, userID, token string) (bool, error)

	// SetAvatarKey changes only the avatar reference, leaving the rest of
	// the row as it is in the store.
	SetAvatarKey(ctx context.Context, userID, key string) error
}
