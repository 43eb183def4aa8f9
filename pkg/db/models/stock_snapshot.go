package models

import (
	"time"

	"github.com/google/uuid"
)

// StockSnapshot tracks the current on-hand quantity per part. The quantity
// must equal the sum of non-voided ledger entries for the same part.
type StockSnapshot struct {
	PartID        uuid.UUID  `gorm:"column:part_id;type:uuid;primaryKey"`
	Quantity      int64      `gorm:"column:quantity;not null;default:0"`
	Version       int64      `gorm:"column:version;not null;default:0"`
	Location      string     `gorm:"column:location;not null;default:''"`
	LastCheckedAt *time.Time `gorm:"column:last_checked_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
