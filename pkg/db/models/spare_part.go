package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SparePart is a catalog entry for a stocked part.
type SparePart struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code          string          `gorm:"column:code;not null;uniqueIndex"`
	Name          string          `gorm:"column:name;not null"`
	Specification string          `gorm:"column:specification;not null;default:''"`
	Unit          string          `gorm:"column:unit;not null;default:'piece'"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
	SafeQuantity  int64           `gorm:"column:safe_quantity;not null;default:0"`
	Location      string          `gorm:"column:location;not null;default:''"`
	CategoryID    *uuid.UUID      `gorm:"column:category_id;type:uuid"`
	SupplierID    *uuid.UUID      `gorm:"column:supplier_id;type:uuid"`
	IsActive      bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
