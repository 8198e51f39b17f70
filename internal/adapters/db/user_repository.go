package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"solden-marketplace-service/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const userColumns = `id, first_name, last_name, username, email, phone_number, password_hash, thumbnail, created_at, updated_at`

// UserRepository implements the user repository interface
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new user repository
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

func scanUser(scanner interface {
	Scan(dest ...interface{}) error
}) (*shared.User, error) {
	var u shared.User
	err := scanner.Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Username,
		&u.Email,
		&u.PhoneNumber,
		&u.PasswordHash,
		&u.Thumbnail,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*shared.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.conn.GetDB().QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*shared.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	u, err := scanUser(r.conn.GetDB().QueryRowContext(ctx, query, username))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return u, nil
}

// GetByIDs batch-loads users, keyed by ID. Missing IDs are absent from the
// map, not an error.
func (r *UserRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*shared.User, error) {
	users := make(map[uuid.UUID]*shared.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1)`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, pq.Array(idStrings))
	if err != nil {
		return nil, fmt.Errorf("failed to batch-load users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users[u.ID] = u
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *shared.User) error {
	query := `
		INSERT INTO users (id, first_name, last_name, username, email, phone_number, password_hash, thumbnail, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.conn.GetDB().ExecContext(ctx, query,
		user.ID,
		user.FirstName,
		user.LastName,
		user.Username,
		user.Email,
		user.PhoneNumber,
		user.PasswordHash,
		user.Thumbnail,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// UpdateThumbnail replaces the stored thumbnail URL
func (r *UserRepository) UpdateThumbnail(ctx context.Context, userID uuid.UUID, url string) error {
	query := `UPDATE users SET thumbnail = $2, updated_at = $3 WHERE id = $1`

	result, err := r.conn.GetDB().ExecContext(ctx, query, userID, url, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update thumbnail: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return shared.ErrUserNotFound
	}

	return nil
}
