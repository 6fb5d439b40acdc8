package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shekelsync/shekelsync/internal/common"
	"github.com/shekelsync/shekelsync/internal/model"
)

// GetCategoryByName looks up a category definition by exact name.
func (t *sqliteSession) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	category := &model.Category{}
	err := t.conn.QueryRowContext(ctx,
		`SELECT id, name FROM category_definitions WHERE name = ?`, name).
		Scan(&category.ID, &category.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %q: %w", name, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return category, nil
}

// EnsureCategory returns the category with the given name, creating it first
// if it does not exist.
func (t *sqliteSession) EnsureCategory(ctx context.Context, name string) (*model.Category, error) {
	category, err := t.GetCategoryByName(ctx, name)
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	result, err := t.conn.ExecContext(ctx,
		`INSERT INTO category_definitions (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	slog.Info("created category definition", "id", id, "name", name)
	return &model.Category{ID: id, Name: name}, nil
}
