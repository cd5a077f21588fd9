package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/msomdec/task-manager/internal/domain"
)

const userColumns = `id, name, email, password_hash, age, avatar_key, created_at, updated_at`

// UserRepository implements domain.UserRepository.
type UserRepository struct {
	db      *sql.DB
	dialect dialect
}

var _ domain.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new SQL-backed UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db.SqlDB, dialect: db.dialect}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(
		`INSERT INTO users (id, name, email, password_hash, age, avatar_key, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		user.ID, user.Name, user.Email, user.PasswordHash, user.Age, user.AvatarKey, now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.rebind(
		`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query user by id: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.rebind(
		`SELECT `+userColumns+` FROM users WHERE email = ?`), email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, r.dialect.rebind(
		`UPDATE users SET name = ?, email = ?, password_hash = ?, age = ?, avatar_key = ?, updated_at = ?
		 WHERE id = ?`),
		user.Name, user.Email, user.PasswordHash, user.Age, user.AvatarKey, now, user.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("update user: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}
	user.UpdatedAt = now
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, r.dialect.rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireAffected(result)
}

func (r *UserRepository) AddToken(ctx context.Context, userID, token string) error {
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(
		`INSERT INTO user_tokens (user_id, token, created_at) VALUES (?, ?, ?)`),
		userID, token, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

func (r *UserRepository) RemoveToken(ctx context.Context, userID, token string) error {
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(
		`DELETE FROM user_tokens WHERE user_id = ? AND token = ?`), userID, token)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

func (r *UserRepository) ClearTokens(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(
		`DELETE FROM user_tokens WHERE user_id = ?`), userID)
	if err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}

func (r *UserRepository) HasToken(ctx context.Context, userID, token string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.dialect.rebind(
		`SELECT COUNT(*) FROM user_tokens WHERE user_id = ? AND token = ?`), userID, token,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query token: %w", err)
	}
	return n > 0, nil
}

func (r *UserRepository) SetAvatarKey(ctx context.Context, userID, key string) error {
	result, err := r.db.ExecContext(ctx, r.dialect.rebind(
		`UPDATE users SET avatar_key = ?, updated_at = ? WHERE id = ?`),
		key, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("set avatar key: %w", err)
	}
	return requireAffected(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Age,
		&user.AvatarKey, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// requireAffected maps a write that touched no rows to domain.ErrNotFound.
func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
