package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fleetparts-backend/pkg/enums"
)

// PurchaseOrder tracks a request to buy stock for a part.
type PurchaseOrder struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNo     string            `gorm:"column:order_no;not null;uniqueIndex"`
	PartID      uuid.UUID         `gorm:"column:part_id;type:uuid;not null;index"`
	SupplierID  *uuid.UUID        `gorm:"column:supplier_id;type:uuid"`
	Quantity    int64             `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal   `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
	TotalAmount decimal.Decimal   `gorm:"column:total_amount;type:numeric(14,2);not null;default:0"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null;default:'draft';index"`
	RequestedBy uuid.UUID         `gorm:"column:requested_by;type:uuid;not null"`
	ApprovedBy  *uuid.UUID        `gorm:"column:approved_by;type:uuid"`
	ApprovedAt  *time.Time        `gorm:"column:approved_at"`
	Remark      string            `gorm:"column:remark;not null;default:''"`
	ExpectedAt  *time.Time        `gorm:"column:expected_at"`
	ReceivedAt  *time.Time        `gorm:"column:received_at"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// ComputeTotal refreshes the stored total from quantity and unit price.
func (o *PurchaseOrder) ComputeTotal() {
	o.TotalAmount = o.UnitPrice.Mul(decimal.NewFromInt(o.Quantity))
}
