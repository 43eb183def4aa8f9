package suppliers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/angelmondragon/fleetparts-backend/internal/parts"
	"github.com/angelmondragon/fleetparts-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fleetparts-backend/pkg/errors"
	"github.com/angelmondragon/fleetparts-backend/pkg/pagination"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:suppliers_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	suppliers := `
CREATE TABLE IF NOT EXISTS suppliers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  contact_name TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  address TEXT NOT NULL DEFAULT '',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	spareParts := `
CREATE TABLE IF NOT EXISTS spare_parts (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  specification TEXT NOT NULL DEFAULT '',
  unit TEXT NOT NULL DEFAULT 'piece',
  unit_price NUMERIC NOT NULL DEFAULT 0,
  safe_quantity INTEGER NOT NULL DEFAULT 0,
  location TEXT NOT NULL DEFAULT '',
  category_id TEXT,
  supplier_id TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	if err := db.Exec(suppliers).Error; err != nil {
		t.Fatalf("create suppliers: %v", err)
	}
	if err := db.Exec(spareParts).Error; err != nil {
		t.Fatalf("create spare_parts: %v", err)
	}
	svc, err := NewService(gormTxRunner{db: db}, NewRepository(db), parts.NewRepository(db))
	if err != nil {
		t.Fatalf("supplier service: %v", err)
	}
	return svc, db
}

func TestCreateUpdateRoundtrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	supplier, err := svc.Create(ctx, Input{Name: "Marine Spares Ltd", Email: "sales@marinespares.test"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !supplier.IsActive {
		t.Fatal("new suppliers should be active")
	}

	updated, err := svc.Update(ctx, supplier.ID, Input{Name: "Marine Spares Ltd", Phone: "+47 555 0100"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Phone != "+47 555 0100" {
		t.Fatalf("phone not updated: %q", updated.Phone)
	}

	if _, err := svc.Create(ctx, Input{Name: "Marine Spares Ltd"}); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict on duplicate name, got %v", err)
	}
}

func TestDeleteGuardsReferencedSupplier(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	supplier, err := svc.Create(ctx, Input{Name: "Nordic Filters"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	part := &models.SparePart{
		ID:         uuid.New(),
		Code:       "SP-FLT",
		Name:       "fuel filter",
		Unit:       "piece",
		SupplierID: &supplier.ID,
		IsActive:   true,
	}
	if err := db.Create(part).Error; err != nil {
		t.Fatalf("seed part: %v", err)
	}

	if err := svc.Delete(ctx, supplier.ID); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for referenced supplier, got %v", err)
	}

	if err := svc.Deactivate(ctx, supplier.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	got, err := svc.Get(ctx, supplier.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.IsActive {
		t.Fatal("supplier should be inactive")
	}

	if err := db.Delete(part).Error; err != nil {
		t.Fatalf("remove part: %v", err)
	}
	if err := svc.Delete(ctx, supplier.ID); err != nil {
		t.Fatalf("delete unreferenced supplier: %v", err)
	}
}

func TestListFiltersActive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	active, err := svc.Create(ctx, Input{Name: "Baltic Bearings"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	retired, err := svc.Create(ctx, Input{Name: "Old Yard Supply"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Deactivate(ctx, retired.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	rows, _, err := svc.List(ctx, ListInput{ActiveOnly: true, Pagination: pagination.Params{Limit: 10}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != active.ID {
		t.Fatalf("unexpected active listing: %+v", rows)
	}
}
