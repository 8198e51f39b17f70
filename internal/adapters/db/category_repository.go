package db

import (
	"context"
	"database/sql"
	"fmt"

	"solden-marketplace-service/internal/domain/auction"
	"solden-marketplace-service/internal/domain/shared"
)

// CategoryRepository implements the category repository interface
type CategoryRepository struct {
	conn *Connection
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(conn *Connection) *CategoryRepository {
	return &CategoryRepository{conn: conn}
}

// List returns all categories ordered by name
func (r *CategoryRepository) List(ctx context.Context) ([]*auction.Category, error) {
	query := `SELECT id, name FROM categories ORDER BY name ASC`

	rows, err := r.conn.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*auction.Category
	for rows.Next() {
		var c auction.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, &c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// GetByID retrieves a category by ID
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*auction.Category, error) {
	query := `SELECT id, name FROM categories WHERE id = $1`

	var c auction.Category
	err := r.conn.GetDB().QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return &c, nil
}
