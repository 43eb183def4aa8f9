package suppliers

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
	"github.com/angelmondragon/fleetparts-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// partCounter reports how many catalog entries reference a supplier.
type partCounter interface {
	CountBySupplier(ctx context.Context, supplierID uuid.UUID) (int64, error)
}

// Service maintains the supplier book.
type Service interface {
	Create(ctx context.Context, input Input) (*models.Supplier, error)
	Update(ctx context.Context, id uuid.UUID, input Input) (*models.Supplier, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	List(ctx context.Context, input ListInput) ([]models.Supplier, string, error)
}

// Input carries the writable supplier fields.
type Input struct {
	Name        string `json:"name"`
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Address     string `json:"address"`
}

// ListInput filters and paginates supplier listings.
type ListInput struct {
	Keyword    string
	ActiveOnly bool
	Pagination pagination.Params
}

type service struct {
	tx    txRunner
	repo  Repository
	parts partCounter
}

// NewService wires the supplier service with its collaborators.
func NewService(tx txRunner, repo Repository, parts partCounter) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("supplier repository required")
	}
	if parts == nil {
		return nil, fmt.Errorf("part counter required")
	}
	return &service{tx: tx, repo: repo, parts: parts}, nil
}

func (s *service) Create(ctx context.Context, input Input) (*models.Supplier, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier name is required")
	}

	supplier := &models.Supplier{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(input.Name),
		ContactName: input.ContactName,
		Phone:       input.Phone,
		Email:       input.Email,
		Address:     input.Address,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, supplier); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err,
				fmt.Sprintf("supplier %q already exists", supplier.Name))
		}
		return nil, err
	}
	return supplier, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input Input) (*models.Supplier, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier name is required")
	}

	var updated *models.Supplier
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		supplier, err := repo.Get(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
			}
			return err
		}

		supplier.Name = strings.TrimSpace(input.Name)
		supplier.ContactName = input.ContactName
		supplier.Phone = input.Phone
		supplier.Email = input.Email
		supplier.Address = input.Address
		if err := repo.Update(ctx, supplier); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err,
					fmt.Sprintf("supplier %q already exists", supplier.Name))
			}
			return err
		}
		updated = supplier
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Deactivate hides the supplier from new orders without touching history.
func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "supplier id is required")
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return err
	}
	return nil
}

// Delete removes a supplier no part references.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "supplier id is required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		referenced, err := s.parts.CountBySupplier(ctx, id)
		if err != nil {
			return err
		}
		if referenced > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "supplier is still assigned to parts")
		}

		if err := s.repo.WithTx(tx).Delete(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
			}
			return err
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id is required")
	}
	supplier, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return nil, err
	}
	return supplier, nil
}

func (s *service) List(ctx context.Context, input ListInput) ([]models.Supplier, string, error) {
	suppliers, err := s.repo.List(ctx, input.Keyword, input.ActiveOnly, input.Pagination)
	if err != nil {
		return nil, "", err
	}

	limit := pagination.NormalizeLimit(input.Pagination.Limit)
	nextCursor := ""
	if len(suppliers) > limit {
		suppliers = suppliers[:limit]
		last := suppliers[len(suppliers)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return suppliers, nextCursor, nil
}
