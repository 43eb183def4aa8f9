package parts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetparts-backend/internal/sequence"
	"github.com/angelmondragon/fleetparts-backend/pkg/db"
	"github.com/angelmondragon/fleetparts-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fleetparts-backend/pkg/errors"
	"github.com/angelmondragon/fleetparts-backend/pkg/pagination"
	"github.com/angelmondragon/fleetparts-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service maintains the spare part catalog.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.SparePart, error)
	Update(ctx context.Context, input UpdateInput) (*models.SparePart, error)
	SetThreshold(ctx context.Context, partID uuid.UUID, safeQuantity int64) (*models.SparePart, error)
	Deactivate(ctx context.Context, partID uuid.UUID) error
	Activate(ctx context.Context, partID uuid.UUID) error
	Get(ctx context.Context, partID uuid.UUID) (*models.SparePart, error)
	List(ctx context.Context, input ListInput) ([]models.SparePart, string, error)

	FindByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.SparePart, error)
}

// CreateInput registers a new part. An empty code asks for an auto generated one.
type CreateInput struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Specification string          `json:"specification"`
	Unit          string          `json:"unit"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	SafeQuantity  int64           `json:"safe_quantity"`
	Location      string          `json:"location"`
	CategoryID    *uuid.UUID      `json:"category_id"`
	SupplierID    *uuid.UUID      `json:"supplier_id"`
}

// UpdateInput edits catalog fields. Nil pointers leave the field untouched;
// an explicit JSON null on category_id or supplier_id clears the link.
type UpdateInput struct {
	PartID        uuid.UUID          `json:"part_id"`
	Name          *string            `json:"name"`
	Specification *string            `json:"specification"`
	Unit          *string            `json:"unit"`
	UnitPrice     *decimal.Decimal   `json:"unit_price"`
	SafeQuantity  *int64             `json:"safe_quantity"`
	Location      *string            `json:"location"`
	CategoryID    types.NullableUUID `json:"category_id"`
	SupplierID    types.NullableUUID `json:"supplier_id"`
}

// ListInput filters and paginates the catalog.
type ListInput struct {
	Keyword    string
	CategoryID *uuid.UUID
	SupplierID *uuid.UUID
	ActiveOnly bool
	Pagination pagination.Params
}

type service struct {
	tx        txRunner
	repo      Repository
	sequences sequence.Service
	now       func() time.Time
}

// ServiceConfig carries optional knobs for NewService.
type ServiceConfig struct {
	Now func() time.Time
}

// NewService wires the parts service with its collaborators.
func NewService(tx txRunner, repo Repository, sequences sequence.Service, cfg ServiceConfig) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("parts repository required")
	}
	if sequences == nil {
		return nil, fmt.Errorf("sequence service required")
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{tx: tx, repo: repo, sequences: sequences, now: now}, nil
}

// Create registers the part and seeds its zero snapshot in one transaction,
// so movements can rely on the snapshot row existing.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.SparePart, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part name is required")
	}
	if input.SafeQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "safe quantity cannot be negative")
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}

	unit := strings.TrimSpace(input.Unit)
	if unit == "" {
		unit = "piece"
	}

	var part *models.SparePart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		code := strings.TrimSpace(input.Code)
		if code == "" {
			generated, err := s.sequences.WithTx(tx).NextPartCode(ctx, s.now())
			if err != nil {
				return err
			}
			code = generated
		}

		part = &models.SparePart{
			ID:            uuid.New(),
			Code:          code,
			Name:          strings.TrimSpace(input.Name),
			Specification: input.Specification,
			Unit:          unit,
			UnitPrice:     input.UnitPrice,
			SafeQuantity:  input.SafeQuantity,
			Location:      input.Location,
			CategoryID:    input.CategoryID,
			SupplierID:    input.SupplierID,
			IsActive:      true,
		}
		if err := repo.Create(ctx, part); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err,
					fmt.Sprintf("part code %q already exists", code))
			}
			return err
		}
		return repo.InitSnapshot(ctx, part.ID)
	})
	if err != nil {
		return nil, err
	}
	return part, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.SparePart, error) {
	if input.PartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part id is required")
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part name cannot be empty")
	}
	if input.SafeQuantity != nil && *input.SafeQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "safe quantity cannot be negative")
	}
	if input.UnitPrice != nil && input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}

	var updated *models.SparePart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		part, err := repo.Get(ctx, input.PartID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "spare part not found")
			}
			return err
		}

		if input.Name != nil {
			part.Name = strings.TrimSpace(*input.Name)
		}
		if input.Specification != nil {
			part.Specification = *input.Specification
		}
		if input.Unit != nil && strings.TrimSpace(*input.Unit) != "" {
			part.Unit = strings.TrimSpace(*input.Unit)
		}
		if input.UnitPrice != nil {
			part.UnitPrice = *input.UnitPrice
		}
		if input.SafeQuantity != nil {
			part.SafeQuantity = *input.SafeQuantity
		}
		if input.Location != nil {
			part.Location = *input.Location
		}
		if input.CategoryID.Valid {
			part.CategoryID = input.CategoryID.Value
		}
		if input.SupplierID.Valid {
			part.SupplierID = input.SupplierID.Value
		}

		if err := repo.Update(ctx, part); err != nil {
			return err
		}
		updated = part
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetThreshold adjusts only the low stock threshold.
func (s *service) SetThreshold(ctx context.Context, partID uuid.UUID, safeQuantity int64) (*models.SparePart, error) {
	return s.Update(ctx, UpdateInput{PartID: partID, SafeQuantity: &safeQuantity})
}

// Deactivate retires the part from new movements while keeping its history.
func (s *service) Deactivate(ctx context.Context, partID uuid.UUID) error {
	return s.setActive(ctx, partID, false)
}

// Activate returns a retired part to service.
func (s *service) Activate(ctx context.Context, partID uuid.UUID) error {
	return s.setActive(ctx, partID, true)
}

func (s *service) setActive(ctx context.Context, partID uuid.UUID, active bool) error {
	if partID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "part id is required")
	}
	if err := s.repo.SetActive(ctx, partID, active); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "spare part not found")
		}
		return err
	}
	return nil
}

func (s *service) Get(ctx context.Context, partID uuid.UUID) (*models.SparePart, error) {
	if partID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part id is required")
	}
	part, err := s.repo.Get(ctx, partID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "spare part not found")
		}
		return nil, err
	}
	return part, nil
}

func (s *service) List(ctx context.Context, input ListInput) ([]models.SparePart, string, error) {
	parts, err := s.repo.List(ctx, Filter{
		Keyword:    input.Keyword,
		CategoryID: input.CategoryID,
		SupplierID: input.SupplierID,
		ActiveOnly: input.ActiveOnly,
	}, input.Pagination)
	if err != nil {
		return nil, "", err
	}

	limit := pagination.NormalizeLimit(input.Pagination.Limit)
	nextCursor := ""
	if len(parts) > limit {
		parts = parts[:limit]
		last := parts[len(parts)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return parts, nextCursor, nil
}

// FindByIDTx loads a part inside the caller's transaction. Movement and order
// services use it to validate parts without importing this package's stack.
func (s *service) FindByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.SparePart, error) {
	return s.repo.WithTx(tx).Get(ctx, id)
}
