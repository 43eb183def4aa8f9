package stock

import (
	"context"
	"iter"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Shortage describes a part at or below its safety threshold.
type Shortage struct {
	PartID       uuid.UUID `gorm:"column:part_id"`
	Code         string    `gorm:"column:code"`
	Name         string    `gorm:"column:name"`
	Quantity     int64     `gorm:"column:quantity"`
	SafeQuantity int64     `gorm:"column:safe_quantity"`
	Shortfall    int64     `gorm:"column:shortfall"`
}

const shortagePageSize = 100

// ListShortages returns one page of low stock parts ordered by how far below
// the threshold they are. Parts with a zero threshold never report low.
func ListShortages(ctx context.Context, db *gorm.DB, offset, limit int) ([]Shortage, error) {
	var rows []Shortage
	err := db.WithContext(ctx).
		Table("stock_snapshots").
		Select("spare_parts.id AS part_id, spare_parts.code, spare_parts.name, stock_snapshots.quantity, spare_parts.safe_quantity, spare_parts.safe_quantity - stock_snapshots.quantity AS shortfall").
		Joins("JOIN spare_parts ON spare_parts.id = stock_snapshots.part_id").
		Where("spare_parts.is_active = ? AND spare_parts.safe_quantity > 0 AND stock_snapshots.quantity <= spare_parts.safe_quantity", true).
		Order("shortfall DESC, spare_parts.code").
		Offset(offset).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Shortages lazily walks every low stock part, worst shortfall first. The
// sequence re-queries on each range, so it can be iterated more than once.
// An error mid-scan ends the sequence; callers needing the error should use
// ListShortages directly.
func Shortages(ctx context.Context, db *gorm.DB) iter.Seq[Shortage] {
	return func(yield func(Shortage) bool) {
		offset := 0
		for {
			page, err := ListShortages(ctx, db, offset, shortagePageSize)
			if err != nil {
				return
			}
			for _, row := range page {
				if !yield(row) {
					return
				}
			}
			if len(page) < shortagePageSize {
				return
			}
			offset += shortagePageSize
		}
	}
}
