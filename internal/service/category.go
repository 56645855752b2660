package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"sourcing_marketplace/internal/models"
	"sourcing_marketplace/internal/repository"
)

type CategoryService interface {
	CreateCategory(ctx context.Context, category *models.Category) error
	GetAllCategories(ctx context.Context) ([]*models.Category, error)
}

type categoryService struct {
	categories repository.CategoryRepository
	logger     *zap.Logger
}

func NewCategoryService(categories repository.CategoryRepository, logger *zap.Logger) CategoryService {
	return &categoryService{categories: categories, logger: logger}
}

func (s *categoryService) CreateCategory(ctx context.Context, category *models.Category) error {
	if category.Name == "" {
		return fmt.Errorf("%w: category name cannot be empty", ErrInvalidInput)
	}
	category.Slug = strings.ToLower(strings.TrimSpace(category.Slug))
	if !validSlug(category.Slug) {
		return fmt.Errorf("%w: invalid category slug %q", ErrInvalidInput, category.Slug)
	}

	existing, err := s.categories.GetBySlug(ctx, category.Slug)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: category with slug %q already exists", ErrInvalidInput, category.Slug)
	}

	if category.ParentID != nil {
		parent, err := s.categories.GetByID(ctx, *category.ParentID)
		if err != nil {
			return err
		}
		if parent == nil {
			return fmt.Errorf("%w: unknown parent category %s", ErrInvalidInput, *category.ParentID)
		}
	}

	return s.categories.Create(ctx, category)
}

func (s *categoryService) GetAllCategories(ctx context.Context) ([]*models.Category, error) {
	return s.categories.GetAll(ctx)
}

// validSlug accepts lowercase letters, digits and single hyphens between them.
func validSlug(slug string) bool {
	if slug == "" || strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return false
	}
	for i, r := range slug {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-':
			if slug[i-1] == '-' {
				return false
			}
		default:
			return false
		}
	}
	return true
}
