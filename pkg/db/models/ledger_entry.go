package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/fleetparts-backend/pkg/enums"
)

// LedgerEntry records a single stock movement. Entries are append-only;
// corrections are expressed by voiding, never by updating quantities.
type LedgerEntry struct {
	ID           uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PartID       uuid.UUID               `gorm:"column:part_id;type:uuid;not null;index:idx_ledger_entries_part_occurred"`
	BatchNo      string                  `gorm:"column:batch_no;not null;index"`
	Direction    enums.MovementDirection `gorm:"column:direction;type:text;not null"`
	Category     enums.MovementCategory  `gorm:"column:category;type:text;not null"`
	Quantity     int64                   `gorm:"column:quantity;not null"`
	BalanceAfter int64                   `gorm:"column:balance_after;not null"`
	ActorID      uuid.UUID               `gorm:"column:actor_id;type:uuid;not null"`
	ReceiverID   *uuid.UUID              `gorm:"column:receiver_id;type:uuid"`
	Remark       string                  `gorm:"column:remark;not null;default:''"`
	OrderID      *uuid.UUID              `gorm:"column:order_id;type:uuid"`
	OccurredAt   time.Time               `gorm:"column:occurred_at;not null"`
	VoidedAt     *time.Time              `gorm:"column:voided_at"`
	VoidedBy     *uuid.UUID              `gorm:"column:voided_by;type:uuid"`
	CreatedAt    time.Time               `gorm:"column:created_at;autoCreateTime"`
}

// IsVoided reports whether the entry has been excluded from balances.
func (e *LedgerEntry) IsVoided() bool {
	return e.VoidedAt != nil
}
