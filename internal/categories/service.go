package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetparts-backend/pkg/db"
	"github.com/angelmondragon/fleetparts-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fleetparts-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// partCounter reports how many catalog entries reference a category.
type partCounter interface {
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
}

// Service maintains the category tree.
type Service interface {
	Create(ctx context.Context, input Input) (*models.Category, error)
	Update(ctx context.Context, id uuid.UUID, input Input) (*models.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
}

// Input carries the writable category fields.
type Input struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ParentID    *uuid.UUID `json:"parent_id"`
}

type service struct {
	tx    txRunner
	repo  Repository
	parts partCounter
}

// NewService wires the category service with its collaborators.
func NewService(tx txRunner, repo Repository, parts partCounter) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	if parts == nil {
		return nil, fmt.Errorf("part counter required")
	}
	return &service{tx: tx, repo: repo, parts: parts}, nil
}

func (s *service) Create(ctx context.Context, input Input) (*models.Category, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}

	var category *models.Category
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if input.ParentID != nil {
			if _, err := repo.Get(ctx, *input.ParentID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "parent category not found")
				}
				return err
			}
		}

		category = &models.Category{
			ID:          uuid.New(),
			Name:        strings.TrimSpace(input.Name),
			Description: input.Description,
			ParentID:    input.ParentID,
		}
		if err := repo.Create(ctx, category); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err,
					fmt.Sprintf("category %q already exists", category.Name))
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input Input) (*models.Category, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}
	if input.ParentID != nil && *input.ParentID == id {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category cannot be its own parent")
	}

	var updated *models.Category
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		category, err := repo.Get(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
			}
			return err
		}

		if input.ParentID != nil {
			if _, err := repo.Get(ctx, *input.ParentID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "parent category not found")
				}
				return err
			}
		}

		category.Name = strings.TrimSpace(input.Name)
		category.Description = input.Description
		category.ParentID = input.ParentID
		if err := repo.Update(ctx, category); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err,
					fmt.Sprintf("category %q already exists", category.Name))
			}
			return err
		}
		updated = category
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a leaf category no part references.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		children, err := repo.CountChildren(ctx, id)
		if err != nil {
			return err
		}
		if children > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "category still has child categories")
		}

		referenced, err := s.parts.CountByCategory(ctx, id)
		if err != nil {
			return err
		}
		if referenced > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "category is still assigned to parts")
		}

		if err := repo.Delete(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
			}
			return err
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	category, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, err
	}
	return category, nil
}

func (s *service) List(ctx context.Context) ([]models.Category, error) {
	return s.repo.List(ctx)
}
