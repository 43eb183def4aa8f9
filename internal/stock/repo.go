package stock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetparts-backend/pkg/db/models"
	"github.com/angelmondragon/fleetparts-backend/pkg/pagination"
)

// EntryFilter narrows ledger listings.
type EntryFilter struct {
	PartID        *uuid.UUID
	Direction     *string
	Category      *string
	BatchNo       *string
	IncludeVoided bool
	From          *time.Time
	To            *time.Time
}

// Repository manages persistence for ledger entries and stock snapshots.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateEntry(ctx context.Context, entry *models.LedgerEntry) error
	GetEntry(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error)
	ListEntries(ctx context.Context, filter EntryFilter, params pagination.Params) ([]models.LedgerEntry, error)
	MarkEntryVoided(ctx context.Context, id, voidedBy uuid.UUID, at time.Time) error

	GetSnapshot(ctx context.Context, partID uuid.UUID) (*models.StockSnapshot, error)
	CreateSnapshot(ctx context.Context, snapshot *models.StockSnapshot) error
	AdjustSnapshot(ctx context.Context, partID uuid.UUID, delta int64, location string) (bool, error)
	SetSnapshotQuantity(ctx context.Context, write SnapshotWrite) (bool, error)
	SumEntries(ctx context.Context, partID uuid.UUID) (int64, error)
	ListSnapshotPartIDs(ctx context.Context) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a stock repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateEntry(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) GetEntry(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.db.WithContext(ctx).Take(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListEntries(ctx context.Context, filter EntryFilter, params pagination.Params) ([]models.LedgerEntry, error) {
	query := r.db.WithContext(ctx).Model(&models.LedgerEntry{})

	if filter.PartID != nil {
		query = query.Where("part_id = ?", *filter.PartID)
	}
	if filter.Direction != nil {
		query = query.Where("direction = ?", *filter.Direction)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.BatchNo != nil {
		query = query.Where("batch_no = ?", *filter.BatchNo)
	}
	if !filter.IncludeVoided {
		query = query.Where("voided_at IS NULL")
	}
	if filter.From != nil {
		query = query.Where("occurred_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("occurred_at < ?", *filter.To)
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

	var entries []models.LedgerEntry
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) MarkEntryVoided(ctx context.Context, id, voidedBy uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("id = ? AND voided_at IS NULL", id).
		Updates(map[string]any{"voided_at": at, "voided_by": voidedBy})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) GetSnapshot(ctx context.Context, partID uuid.UUID) (*models.StockSnapshot, error) {
	var snapshot models.StockSnapshot
	if err := r.db.WithContext(ctx).Take(&snapshot, "part_id = ?", partID).Error; err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *repository) CreateSnapshot(ctx context.Context, snapshot *models.StockSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

// AdjustSnapshot applies delta to the on-hand quantity, moving the storage
// location when one is supplied. The WHERE guard keeps the quantity
// non-negative under concurrent writers, so a false return for a negative
// delta means the stock was insufficient at execution time.
func (r *repository) AdjustSnapshot(ctx context.Context, partID uuid.UUID, delta int64, location string) (bool, error) {
	updates := map[string]any{
		"quantity":   gorm.Expr("quantity + ?", delta),
		"version":    gorm.Expr("version + 1"),
		"updated_at": time.Now().UTC(),
	}
	if location != "" {
		updates["location"] = location
	}
	result := r.db.WithContext(ctx).
		Model(&models.StockSnapshot{}).
		Where("part_id = ? AND quantity + ? >= 0", partID, delta).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SnapshotWrite carries a reconcile's replacement values for one snapshot.
type SnapshotWrite struct {
	PartID          uuid.UUID
	Quantity        int64
	ExpectedVersion int64
	Location        string
	CheckedAt       time.Time
}

// SetSnapshotQuantity replaces the quantity and stamps the check time if the
// caller still holds the latest version. A false return means another writer
// got there first.
func (r *repository) SetSnapshotQuantity(ctx context.Context, write SnapshotWrite) (bool, error) {
	updates := map[string]any{
		"quantity":        write.Quantity,
		"version":         gorm.Expr("version + 1"),
		"last_checked_at": write.CheckedAt,
		"updated_at":      time.Now().UTC(),
	}
	if write.Location != "" {
		updates["location"] = write.Location
	}
	result := r.db.WithContext(ctx).
		Model(&models.StockSnapshot{}).
		Where("part_id = ? AND version = ?", write.PartID, write.ExpectedVersion).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) SumEntries(ctx context.Context, partID uuid.UUID) (int64, error) {
	var total *int64
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Select("SUM(CASE WHEN direction = 'in' THEN quantity ELSE -quantity END)").
		Where("part_id = ? AND voided_at IS NULL", partID).
		Scan(&total).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (r *repository) ListSnapshotPartIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.StockSnapshot{}).
		Order("part_id").
		Pluck("part_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
