package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"sourcing_marketplace/internal/models"
)

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id string) (*models.Category, error)
	GetBySlug(ctx context.Context, slug string) (*models.Category, error)
	// GetAll returns the whole taxonomy, roots before their subcategories.
	GetAll(ctx context.Context) ([]*models.Category, error)
}

type categoryRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewCategoryRepository(db *pgxpool.Pool, logger *zap.Logger) CategoryRepository {
	return &categoryRepository{db: db, logger: logger}
}

const categoryColumns = `id, name, slug, parent_id, description, icon, created_at`

func scanCategory(row pgx.Row) (*models.Category, error) {
	var c models.Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.ParentID, &c.Description, &c.Icon, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	if category.ID == "" {
		category.ID = uuid.New().String()
	}

	query := `
		INSERT INTO categories (id, name, slug, parent_id, description, icon)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		category.ID, category.Name, category.Slug, category.ParentID,
		category.Description, category.Icon,
	).Scan(&category.CreatedAt)
	if err != nil {
		r.logger.Error("failed to create category", zap.Error(err), zap.String("slug", category.Slug))
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	c, err := scanCategory(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("failed to get category", zap.Error(err), zap.String("id", id))
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

func (r *categoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE slug = $1`

	c, err := scanCategory(r.db.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("failed to get category by slug", zap.Error(err), zap.String("slug", slug))
		return nil, fmt.Errorf("failed to get category by slug: %w", err)
	}
	return c, nil
}

func (r *categoryRepository) GetAll(ctx context.Context) ([]*models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories ORDER BY parent_id NULLS FIRST, created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("failed to list categories", zap.Error(err))
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			r.logger.Error("failed to scan category", zap.Error(err))
			continue
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
