package stock

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetparts-backend/pkg/db/models"
	"github.com/angelmondragon/fleetparts-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fleetparts-backend/pkg/errors"
	"github.com/angelmondragon/fleetparts-backend/pkg/pagination"
)

type passthroughTxRunner struct{}

func (passthroughTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeRepository struct {
	getSnapshotFn         func(ctx context.Context, partID uuid.UUID) (*models.StockSnapshot, error)
	setSnapshotQuantityFn func(ctx context.Context, write SnapshotWrite) (bool, error)
	createEntryFn         func(ctx context.Context, entry *models.LedgerEntry) error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) CreateEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if f.createEntryFn != nil {
		return f.createEntryFn(ctx, entry)
	}
	return nil
}

func (f *fakeRepository) GetEntry(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) ListEntries(ctx context.Context, filter EntryFilter, params pagination.Params) ([]models.LedgerEntry, error) {
	return nil, nil
}

func (f *fakeRepository) MarkEntryVoided(ctx context.Context, id, voidedBy uuid.UUID, at time.Time) error {
	return nil
}

func (f *fakeRepository) GetSnapshot(ctx context.Context, partID uuid.UUID) (*models.StockSnapshot, error) {
	if f.getSnapshotFn != nil {
		return f.getSnapshotFn(ctx, partID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) CreateSnapshot(ctx context.Context, snapshot *models.StockSnapshot) error {
	return nil
}

func (f *fakeRepository) AdjustSnapshot(ctx context.Context, partID uuid.UUID, delta int64, location string) (bool, error) {
	return true, nil
}

func (f *fakeRepository) SetSnapshotQuantity(ctx context.Context, write SnapshotWrite) (bool, error) {
	if f.setSnapshotQuantityFn != nil {
		return f.setSnapshotQuantityFn(ctx, write)
	}
	return true, nil
}

func (f *fakeRepository) SumEntries(ctx context.Context, partID uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeRepository) ListSnapshotPartIDs(ctx context.Context) ([]uuid.UUID, error) {
	return nil, nil
}

type fakePartLoader struct{}

func (fakePartLoader) FindByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.SparePart, error) {
	return &models.SparePart{ID: id, IsActive: true}, nil
}

func newFakeService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(passthroughTxRunner{}, repo, fakePartLoader{}, fakeBatchNumberer{}, nil, ServiceConfig{ReconcileMaxRetries: 3})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return svc
}

type fakeBatchNumberer struct{}

func (fakeBatchNumberer) NextBatchNo(time.Time) string { return "BATCH20260101000000" }

func TestReconcileRetriesOnVersionConflict(t *testing.T) {
	attempts := 0
	repo := &fakeRepository{
		getSnapshotFn: func(ctx context.Context, partID uuid.UUID) (*models.StockSnapshot, error) {
			return &models.StockSnapshot{PartID: partID, Quantity: 10, Version: int64(attempts)}, nil
		},
		setSnapshotQuantityFn: func(ctx context.Context, write SnapshotWrite) (bool, error) {
			attempts++
			return attempts >= 2, nil
		},
	}
	svc := newFakeService(t, repo)

	entry, err := svc.Reconcile(context.Background(), ReconcileInput{
		PartID:          uuid.New(),
		CountedQuantity: 4,
		ActorID:         uuid.New(),
	})
	if err != nil {
		t.Fatalf("reconcile should succeed after retry: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	if entry == nil || entry.BalanceAfter != 4 {
		t.Fatalf("unexpected adjustment entry: %+v", entry)
	}
}

func TestReconcileGivesUpAfterMaxRetries(t *testing.T) {
	repo := &fakeRepository{
		getSnapshotFn: func(ctx context.Context, partID uuid.UUID) (*models.StockSnapshot, error) {
			return &models.StockSnapshot{PartID: partID, Quantity: 10}, nil
		},
		setSnapshotQuantityFn: func(ctx context.Context, write SnapshotWrite) (bool, error) {
			return false, nil
		},
	}
	svc := newFakeService(t, repo)

	_, err := svc.Reconcile(context.Background(), ReconcileInput{
		PartID:          uuid.New(),
		CountedQuantity: 4,
		ActorID:         uuid.New(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict after exhausted retries, got %v", err)
	}
}

func TestReconcileValidation(t *testing.T) {
	svc := newFakeService(t, &fakeRepository{})

	_, err := svc.Reconcile(context.Background(), ReconcileInput{
		PartID:          uuid.New(),
		CountedQuantity: -1,
		ActorID:         uuid.New(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = svc.Reconcile(context.Background(), ReconcileInput{CountedQuantity: 1, ActorID: uuid.New()})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing part, got %v", err)
	}
}

func TestReceiverOnlyValidOutbound(t *testing.T) {
	svc := newFakeService(t, &fakeRepository{})
	receiver := uuid.New()

	_, err := svc.ApplyInbound(context.Background(), MovementInput{
		PartID:     uuid.New(),
		Category:   enums.MovementCategoryPurchase,
		Quantity:   5,
		ActorID:    uuid.New(),
		ReceiverID: &receiver,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for inbound receiver, got %v", err)
	}
}

func TestReconcileMatchingCountStillStampsCheck(t *testing.T) {
	var captured *SnapshotWrite
	entries := 0
	repo := &fakeRepository{
		getSnapshotFn: func(ctx context.Context, partID uuid.UUID) (*models.StockSnapshot, error) {
			return &models.StockSnapshot{PartID: partID, Quantity: 7, Version: 3}, nil
		},
		setSnapshotQuantityFn: func(ctx context.Context, write SnapshotWrite) (bool, error) {
			captured = &write
			return true, nil
		},
		createEntryFn: func(ctx context.Context, entry *models.LedgerEntry) error {
			entries++
			return nil
		},
	}
	svc := newFakeService(t, repo)

	entry, err := svc.Reconcile(context.Background(), ReconcileInput{
		PartID:          uuid.New(),
		CountedQuantity: 7,
		ActorID:         uuid.New(),
		Location:        "deck-2 locker",
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if entry != nil {
		t.Fatalf("matching count should leave no adjustment entry, got %+v", entry)
	}
	if entries != 0 {
		t.Fatalf("expected no ledger writes, got %d", entries)
	}
	if captured == nil {
		t.Fatal("expected the snapshot write to happen")
	}
	if captured.CheckedAt.IsZero() {
		t.Fatal("expected the check time to be stamped")
	}
	if captured.Location != "deck-2 locker" {
		t.Fatalf("expected location to carry through, got %q", captured.Location)
	}
	if captured.ExpectedVersion != 3 || captured.Quantity != 7 {
		t.Fatalf("unexpected snapshot write: %+v", captured)
	}
}
