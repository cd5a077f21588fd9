package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/msomdec/task-manager/internal/domain"
	"github.com/msomdec/task-manager/internal/notify"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles signup, login and the bearer token lifecycle.
type AuthService struct {
	users      domain.UserRepository
	notifier   Notifier
	jwtSecret  []byte
	bcryptCost int
	tokenTTL   time.Duration

	// dummyHash is compared against when the email is unknown so a failed
	// login costs the same either way.
	dummyHash []byte
}

// NewAuthService creates a new AuthService. A zero tokenTTL issues tokens
// that stay valid until revoked. notifier may be nil.
func NewAuthService(users domain.UserRepository, notifier Notifier, jwtSecret string, bcryptCost int, tokenTTL time.Duration) *AuthService {
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcryptCost)
	if err != nil {
		dummy = nil
	}
	return &AuthService{
		users:      users,
		notifier:   notifier,
		jwtSecret:  []byte(jwtSecret),
		bcryptCost: bcryptCost,
		tokenTTL:   tokenTTL,
		dummyHash:  dummy,
	}
}

// SignupInput carries the caller-supplied profile for a new account.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Age      int
}

// Signup validates the profile, stores the user with a hashed password and
// issues the first token. The welcome email is queued, never awaited.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*domain.User, string, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return nil, "", err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, "", err
	}
	password, err := normalizePassword(in.Password)
	if err != nil {
		return nil, "", err
	}
	if err := validateAge(in.Age); err != nil {
		return nil, "", err
	}

	hash, err := hashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Age:          in.Age,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.IssueToken(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	enqueue(s.notifier, notify.WelcomeMessage(user.Email, user.Name))
	return user, token, nil
}

// Login verifies credentials and issues a new token. Unknown emails and
// wrong passwords both yield domain.ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.users.GetByEmail(ctx, normalizeLogin(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			if s.dummyHash != nil {
				bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			}
			return nil, "", domain.ErrUnauthorized
		}
		return nil, "", fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", domain.ErrUnauthorized
	}

	token, err := s.IssueToken(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// IssueToken signs a new token for userID and appends it to the user's
// active tokens.
func (s *AuthService) IssueToken(ctx context.Context, userID string) (string, error) {
	token, err := s.generateJWT(userID)
	if err != nil {
		return "", fmt.Errorf("generate jwt: %w", err)
	}
	if err := s.users.AddToken(ctx, userID, token); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return token, nil
}

// RevokeToken removes exactly one token. Revoking an absent token succeeds.
func (s *AuthService) RevokeToken(ctx context.Context, userID, token string) error {
	if err := s.users.RemoveToken(ctx, userID, token); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// RevokeAllTokens ends every session of the user.
func (s *AuthService) RevokeAllTokens(ctx context.Context, userID string) error {
	if err := s.users.ClearTokens(ctx, userID); err != nil {
		return fmt.Errorf("revoke all tokens: %w", err)
	}
	return nil
}

// ValidateToken checks the signature and expiry of a token and that it is
// still among the user's active tokens. Returns the user ID from the sub
// claim.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", domain.ErrInvalidToken
	}

	userID := claims.Subject
	if userID == "" {
		return "", domain.ErrInvalidToken
	}

	active, err := s.users.HasToken(ctx, userID, tokenString)
	if err != nil {
		return "", fmt.Errorf("check token: %w", err)
	}
	if !active {
		return "", domain.ErrInvalidToken
	}

	return userID, nil
}

// GetUserByID retrieves a user by their ID.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *AuthService) generateJWT(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  userID,
		ID:       uuid.NewString(),
		IssuedAt: jwt.NewNumericDate(now),
	}
	if s.tokenTTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.tokenTTL))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// normalizeLogin applies the stored email form without rejecting anything,
// so malformed input fails like any other unknown email.
func normalizeLogin(email string) string {
	if normalized, err := normalizeEmail(email); err == nil {
		return normalized
	}
	return email
}
