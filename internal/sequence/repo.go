package sequence

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/fleetparts-backend/pkg/db/models"
)

// Repository manages the per-day counter rows behind generated numbers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Increment(ctx context.Context, scope, day string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a sequence repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Increment bumps the counter row for (scope, day) and returns the new value.
// The upsert serializes concurrent allocations on the row so two callers in
// the same transaction scope never observe the same value.
func (r *repository) Increment(ctx context.Context, scope, day string) (int64, error) {
	row := models.DailySequence{Scope: scope, Day: day, Value: 1}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scope"}, {Name: "day"}},
			DoUpdates: clause.Assignments(map[string]any{"value": gorm.Expr("daily_sequences.value + 1")}),
		}).
		Create(&row).Error
	if err != nil {
		return 0, err
	}

	var current models.DailySequence
	if err := r.db.WithContext(ctx).
		Where("scope = ? AND day = ?", scope, day).
		Take(&current).Error; err != nil {
		return 0, err
	}
	return current.Value, nil
}
