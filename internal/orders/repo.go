package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetparts-backend/pkg/db/models"
	"github.com/angelmondragon/fleetparts-backend/pkg/enums"
	"github.com/angelmondragon/fleetparts-backend/pkg/pagination"
)

// Filter narrows purchase order listings.
type Filter struct {
	Status  *enums.OrderStatus
	PartID  *uuid.UUID
	Keyword string
}

// Repository manages persistence for purchase orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, order *models.PurchaseOrder) error
	Get(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
	List(ctx context.Context, filter Filter, params pagination.Params) ([]models.PurchaseOrder, error)
	SaveEditable(ctx context.Context, order *models.PurchaseOrder) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, fields map[string]any) (bool, error)
	DeleteDraft(ctx context.Context, id uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.PurchaseOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	if err := r.db.WithContext(ctx).Take(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, filter Filter, params pagination.Params) ([]models.PurchaseOrder, error) {
	query := r.db.WithContext(ctx).Model(&models.PurchaseOrder{})

	if filter.Status != nil {
		query = query.Where("status = ?", filter.Status.String())
	}
	if filter.PartID != nil {
		query = query.Where("part_id = ?", *filter.PartID)
	}
	if filter.Keyword != "" {
		pattern := "%" + filter.Keyword + "%"
		query = query.Where("order_no LIKE ? OR remark LIKE ?", pattern, pattern)
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

	var orders []models.PurchaseOrder
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// SaveEditable writes the order's editable fields guarded on the row still
// being in an editable status. A false return means another writer moved the
// order on since it was loaded.
func (r *repository) SaveEditable(ctx context.Context, order *models.PurchaseOrder) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PurchaseOrder{}).
		Where("id = ? AND status IN ?", order.ID, []string{
			enums.OrderStatusDraft.String(),
			enums.OrderStatusPending.String(),
		}).
		Updates(map[string]any{
			"part_id":      order.PartID,
			"supplier_id":  order.SupplierID,
			"quantity":     order.Quantity,
			"unit_price":   order.UnitPrice,
			"total_amount": order.TotalAmount,
			"remark":       order.Remark,
			"expected_at":  order.ExpectedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateStatus moves the order from one status to another, applying any extra
// stamped fields in the same statement. The WHERE guard on the source status
// keeps concurrent transitions from double-applying.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, fields map[string]any) (bool, error) {
	updates := map[string]any{"status": to.String()}
	for column, value := range fields {
		updates[column] = value
	}
	result := r.db.WithContext(ctx).
		Model(&models.PurchaseOrder{}).
		Where("id = ? AND status = ?", id, from.String()).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteDraft removes the order only while it is still a draft.
func (r *repository) DeleteDraft(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, enums.OrderStatusDraft.String()).
		Delete(&models.PurchaseOrder{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
