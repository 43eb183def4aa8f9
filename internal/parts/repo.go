package parts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetparts-backend/pkg/db/models"
	"github.com/angelmondragon/fleetparts-backend/pkg/pagination"
)

// Filter narrows spare part listings.
type Filter struct {
	Keyword    string
	CategoryID *uuid.UUID
	SupplierID *uuid.UUID
	ActiveOnly bool
}

// Repository manages persistence for the spare part catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, part *models.SparePart) error
	InitSnapshot(ctx context.Context, partID uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.SparePart, error)
	GetByCode(ctx context.Context, code string) (*models.SparePart, error)
	List(ctx context.Context, filter Filter, params pagination.Params) ([]models.SparePart, error)
	Update(ctx context.Context, part *models.SparePart) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
	CountBySupplier(ctx context.Context, supplierID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a parts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, part *models.SparePart) error {
	return r.db.WithContext(ctx).Create(part).Error
}

// InitSnapshot seeds the zero stock row every ledger movement builds on.
func (r *repository) InitSnapshot(ctx context.Context, partID uuid.UUID) error {
	return r.db.WithContext(ctx).Create(&models.StockSnapshot{PartID: partID}).Error
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*models.SparePart, error) {
	var part models.SparePart
	if err := r.db.WithContext(ctx).Take(&part, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (*models.SparePart, error) {
	var part models.SparePart
	if err := r.db.WithContext(ctx).Take(&part, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *repository) List(ctx context.Context, filter Filter, params pagination.Params) ([]models.SparePart, error) {
	query := r.db.WithContext(ctx).Model(&models.SparePart{})

	if filter.Keyword != "" {
		pattern := "%" + filter.Keyword + "%"
		query = query.Where("code LIKE ? OR name LIKE ? OR specification LIKE ?", pattern, pattern, pattern)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var parts []models.SparePart
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&parts).Error; err != nil {
		return nil, err
	}
	return parts, nil
}

func (r *repository) Update(ctx context.Context, part *models.SparePart) error {
	return r.db.WithContext(ctx).
		Model(&models.SparePart{}).
		Where("id = ?", part.ID).
		Updates(map[string]any{
			"name":          part.Name,
			"specification": part.Specification,
			"unit":          part.Unit,
			"unit_price":    part.UnitPrice,
			"safe_quantity": part.SafeQuantity,
			"location":      part.Location,
			"category_id":   part.CategoryID,
			"supplier_id":   part.SupplierID,
		}).Error
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.SparePart{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SparePart{}).
		Where("category_id = ?", categoryID).
		Count(&count).Error
	return count, err
}

func (r *repository) CountBySupplier(ctx context.Context, supplierID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SparePart{}).
		Where("supplier_id = ?", supplierID).
		Count(&count).Error
	return count, err
}
