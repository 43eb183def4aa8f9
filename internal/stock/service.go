package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetparts-backend/pkg/db/models"
	"github.com/angelmondragon/fleetparts-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fleetparts-backend/pkg/errors"
	"github.com/angelmondragon/fleetparts-backend/pkg/metrics"
	"github.com/angelmondragon/fleetparts-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type partLoader interface {
	FindByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.SparePart, error)
}

type batchNumberer interface {
	NextBatchNo(now time.Time) string
}

// orderReceiver marks a purchase order received when its inbound movement lands.
type orderReceiver interface {
	MarkReceived(ctx context.Context, tx *gorm.DB, orderID, actorID uuid.UUID, at time.Time) error
}

// Service defines the ledger operations for stock movements.
type Service interface {
	ApplyInbound(ctx context.Context, input MovementInput) (*models.LedgerEntry, error)
	ApplyOutbound(ctx context.Context, input MovementInput) (*models.LedgerEntry, error)
	Reconcile(ctx context.Context, input ReconcileInput) (*models.LedgerEntry, error)
	VoidEntry(ctx context.Context, input VoidEntryInput) (*models.LedgerEntry, error)
	ListEntries(ctx context.Context, input ListEntriesInput) ([]models.LedgerEntry, string, error)
	Snapshot(ctx context.Context, partID uuid.UUID) (*models.StockSnapshot, error)
	VerifyPart(ctx context.Context, partID uuid.UUID) error
}

// MovementInput captures a single inbound or outbound stock movement. An
// empty BatchNo asks for a generated one; Location, when set, moves the
// part's storage location along with the quantity.
type MovementInput struct {
	PartID     uuid.UUID              `json:"part_id"`
	Quantity   int64                  `json:"quantity"`
	Category   enums.MovementCategory `json:"category"`
	ActorID    uuid.UUID              `json:"actor_id"`
	ReceiverID *uuid.UUID             `json:"receiver_id"`
	BatchNo    string                 `json:"batch_no"`
	Location   string                 `json:"location"`
	Remark     string                 `json:"remark"`
	OrderID    *uuid.UUID             `json:"order_id"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// ReconcileInput sets the snapshot to a physically counted quantity.
type ReconcileInput struct {
	PartID          uuid.UUID `json:"part_id"`
	CountedQuantity int64     `json:"counted_quantity"`
	Location        string    `json:"location"`
	ActorID         uuid.UUID `json:"actor_id"`
	Remark          string    `json:"remark"`
}

// VoidEntryInput excludes a ledger entry from balances.
type VoidEntryInput struct {
	EntryID uuid.UUID `json:"entry_id"`
	ActorID uuid.UUID `json:"actor_id"`
	Reason  string    `json:"reason"`
}

// ListEntriesInput filters and paginates the movement log.
type ListEntriesInput struct {
	PartID        *uuid.UUID
	Direction     *enums.MovementDirection
	Category      *enums.MovementCategory
	BatchNo       *string
	IncludeVoided bool
	From          *time.Time
	To            *time.Time
	Pagination    pagination.Params
}

type service struct {
	tx                  txRunner
	repo                Repository
	parts               partLoader
	sequences           batchNumberer
	orders              orderReceiver
	stockMetrics        *metrics.StockMetrics
	reconcileMaxRetries int
	now                 func() time.Time
}

// ServiceConfig carries optional knobs for NewService.
type ServiceConfig struct {
	ReconcileMaxRetries int
	Metrics             *metrics.StockMetrics
	Now                 func() time.Time
}

// NewService wires the stock service with its collaborators. The order
// receiver may be nil when purchase receipt tracking is not wired.
func NewService(tx txRunner, repo Repository, parts partLoader, sequences batchNumberer, orders orderReceiver, cfg ServiceConfig) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if parts == nil {
		return nil, fmt.Errorf("part loader required")
	}
	if sequences == nil {
		return nil, fmt.Errorf("sequence service required")
	}
	retries := cfg.ReconcileMaxRetries
	if retries <= 0 {
		retries = 5
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		tx:                  tx,
		repo:                repo,
		parts:               parts,
		sequences:           sequences,
		orders:              orders,
		stockMetrics:        cfg.Metrics,
		reconcileMaxRetries: retries,
		now:                 now,
	}, nil
}

func (s *service) ApplyInbound(ctx context.Context, input MovementInput) (*models.LedgerEntry, error) {
	return s.applyMovement(ctx, enums.MovementDirectionIn, input)
}

func (s *service) ApplyOutbound(ctx context.Context, input MovementInput) (*models.LedgerEntry, error) {
	return s.applyMovement(ctx, enums.MovementDirectionOut, input)
}

func (s *service) applyMovement(ctx context.Context, direction enums.MovementDirection, input MovementInput) (*models.LedgerEntry, error) {
	if err := s.validateMovement(direction, input); err != nil {
		return nil, err
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now()
	}

	var entry *models.LedgerEntry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		part, err := s.parts.FindByIDTx(ctx, tx, input.PartID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "spare part not found")
			}
			return err
		}
		if !part.IsActive {
			return pkgerrors.New(pkgerrors.CodeValidation, "spare part is inactive")
		}

		delta := input.Quantity
		if direction == enums.MovementDirectionOut {
			delta = -input.Quantity
		}

		applied, err := repo.AdjustSnapshot(ctx, input.PartID, delta, input.Location)
		if err != nil {
			return err
		}
		if !applied {
			if direction == enums.MovementDirectionOut {
				s.stockMetrics.IncInsufficientStock()
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "outbound quantity exceeds current stock").
					WithDetails(map[string]any{"part_id": input.PartID, "requested": input.Quantity})
			}
			return pkgerrors.New(pkgerrors.CodeNotFound, "stock snapshot not found")
		}

		snapshot, err := repo.GetSnapshot(ctx, input.PartID)
		if err != nil {
			return err
		}

		batchNo := input.BatchNo
		if batchNo == "" {
			batchNo = s.sequences.NextBatchNo(occurredAt)
		}

		entry = &models.LedgerEntry{
			ID:           uuid.New(),
			PartID:       input.PartID,
			BatchNo:      batchNo,
			Direction:    direction,
			Category:     input.Category,
			Quantity:     input.Quantity,
			BalanceAfter: snapshot.Quantity,
			ActorID:      input.ActorID,
			ReceiverID:   input.ReceiverID,
			Remark:       input.Remark,
			OrderID:      input.OrderID,
			OccurredAt:   occurredAt,
		}
		if err := repo.CreateEntry(ctx, entry); err != nil {
			return err
		}

		if direction == enums.MovementDirectionIn &&
			input.Category == enums.MovementCategoryPurchase &&
			input.OrderID != nil && s.orders != nil {
			if err := s.orders.MarkReceived(ctx, tx, *input.OrderID, input.ActorID, occurredAt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.stockMetrics.IncMovement(direction.String(), input.Category.String())
	return entry, nil
}

func (s *service) validateMovement(direction enums.MovementDirection, input MovementInput) error {
	if input.PartID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "part id is required")
	}
	if input.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	if input.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if !input.Category.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid movement category %q", input.Category))
	}
	if !input.Category.AllowsDirection(direction) {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("category %q cannot be recorded as %q", input.Category, direction))
	}
	if input.OrderID != nil && input.Category != enums.MovementCategoryPurchase {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is only valid on purchase movements")
	}
	if input.ReceiverID != nil && direction != enums.MovementDirectionOut {
		return pkgerrors.New(pkgerrors.CodeValidation, "receiver is only valid on outbound movements")
	}
	return nil
}

// Reconcile replaces the snapshot with a counted quantity and records an
// adjustment entry holding the before/after evidence. Concurrent writers are
// detected through the snapshot version and retried a bounded number of times.
func (s *service) Reconcile(ctx context.Context, input ReconcileInput) (*models.LedgerEntry, error) {
	if input.PartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part id is required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	if input.CountedQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "counted quantity cannot be negative")
	}

	var entry *models.LedgerEntry
	for attempt := 0; attempt < s.reconcileMaxRetries; attempt++ {
		entry = nil
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			snapshot, err := repo.GetSnapshot(ctx, input.PartID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "stock snapshot not found")
				}
				return err
			}

			now := s.now()
			applied, err := repo.SetSnapshotQuantity(ctx, SnapshotWrite{
				PartID:          input.PartID,
				Quantity:        input.CountedQuantity,
				ExpectedVersion: snapshot.Version,
				Location:        input.Location,
				CheckedAt:       now,
			})
			if err != nil {
				return err
			}
			if !applied {
				return errVersionConflict
			}

			// A matching count still stamps the check; only a drift
			// leaves ledger evidence.
			if snapshot.Quantity == input.CountedQuantity {
				return nil
			}

			delta := input.CountedQuantity - snapshot.Quantity
			direction := enums.MovementDirectionIn
			quantity := delta
			if delta < 0 {
				direction = enums.MovementDirectionOut
				quantity = -delta
			}

			entry = &models.LedgerEntry{
				ID:           uuid.New(),
				PartID:       input.PartID,
				BatchNo:      s.sequences.NextBatchNo(now),
				Direction:    direction,
				Category:     enums.MovementCategoryAdjustment,
				Quantity:     quantity,
				BalanceAfter: input.CountedQuantity,
				ActorID:      input.ActorID,
				Remark:       reconcileRemark(snapshot.Quantity, input.CountedQuantity, input.Remark),
				OccurredAt:   now,
			}
			return repo.CreateEntry(ctx, entry)
		})
		if err == nil {
			s.stockMetrics.ObserveReconcileRetries(attempt)
			if entry != nil {
				s.stockMetrics.IncMovement(entry.Direction.String(), entry.Category.String())
			}
			return entry, nil
		}
		if !errors.Is(err, errVersionConflict) {
			return nil, err
		}
	}

	s.stockMetrics.ObserveReconcileRetries(s.reconcileMaxRetries)
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "reconcile lost the snapshot version race, retry later")
}

var errVersionConflict = errors.New("snapshot version conflict")

func reconcileRemark(before, after int64, note string) string {
	remark := fmt.Sprintf("inventory check: %d -> %d", before, after)
	if note != "" {
		remark = remark + "; " + note
	}
	return remark
}

// VoidEntry marks an entry voided and reverses its effect on the snapshot.
// Voiding an inbound entry is rejected when it would drive the balance
// negative, since the received stock has already left the shelf.
func (s *service) VoidEntry(ctx context.Context, input VoidEntryInput) (*models.LedgerEntry, error) {
	if input.EntryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry id is required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}

	var voided *models.LedgerEntry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		entry, err := repo.GetEntry(ctx, input.EntryID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")
			}
			return err
		}
		if entry.IsVoided() {
			return pkgerrors.New(pkgerrors.CodeConflict, "ledger entry already voided")
		}

		reversal := -entry.Quantity
		if entry.Direction == enums.MovementDirectionOut {
			reversal = entry.Quantity
		}

		applied, err := repo.AdjustSnapshot(ctx, entry.PartID, reversal, "")
		if err != nil {
			return err
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeConflict,
				"voiding this entry would drive the stock balance negative")
		}

		now := s.now()
		if err := repo.MarkEntryVoided(ctx, entry.ID, input.ActorID, now); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeConflict, "ledger entry already voided")
			}
			return err
		}

		entry.VoidedAt = &now
		entry.VoidedBy = &input.ActorID
		voided = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.stockMetrics.IncVoidedEntry()
	return voided, nil
}

func (s *service) ListEntries(ctx context.Context, input ListEntriesInput) ([]models.LedgerEntry, string, error) {
	filter := EntryFilter{
		PartID:        input.PartID,
		BatchNo:       input.BatchNo,
		IncludeVoided: input.IncludeVoided,
		From:          input.From,
		To:            input.To,
	}
	if input.Direction != nil {
		if !input.Direction.IsValid() {
			return nil, "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid direction %q", *input.Direction))
		}
		value := input.Direction.String()
		filter.Direction = &value
	}
	if input.Category != nil {
		if !input.Category.IsValid() {
			return nil, "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid category %q", *input.Category))
		}
		value := input.Category.String()
		filter.Category = &value
	}

	entries, err := s.repo.ListEntries(ctx, filter, input.Pagination)
	if err != nil {
		return nil, "", err
	}

	limit := pagination.NormalizeLimit(input.Pagination.Limit)
	nextCursor := ""
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return entries, nextCursor, nil
}

func (s *service) Snapshot(ctx context.Context, partID uuid.UUID) (*models.StockSnapshot, error) {
	if partID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part id is required")
	}
	snapshot, err := s.repo.GetSnapshot(ctx, partID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock snapshot not found")
		}
		return nil, err
	}
	return snapshot, nil
}

// VerifyPart recomputes the ledger sum for a part and compares it to the
// snapshot. A mismatch is returned as a CONFLICT carrying both values.
func (s *service) VerifyPart(ctx context.Context, partID uuid.UUID) error {
	snapshot, err := s.repo.GetSnapshot(ctx, partID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "stock snapshot not found")
		}
		return err
	}
	sum, err := s.repo.SumEntries(ctx, partID)
	if err != nil {
		return err
	}
	if snapshot.Quantity != sum {
		return pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("snapshot %d diverges from ledger sum %d for part %s", snapshot.Quantity, sum, partID))
	}
	return nil
}
