package categories

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
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:categories_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	categories := `
CREATE TABLE IF NOT EXISTS categories (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL DEFAULT '',
  parent_id TEXT,
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
	if err := db.Exec(categories).Error; err != nil {
		t.Fatalf("create categories: %v", err)
	}
	if err := db.Exec(spareParts).Error; err != nil {
		t.Fatalf("create spare_parts: %v", err)
	}
	svc, err := NewService(gormTxRunner{db: db}, NewRepository(db), parts.NewRepository(db))
	if err != nil {
		t.Fatalf("category service: %v", err)
	}
	return svc, db
}

func TestCreateTreeAndListSorted(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	engine, err := svc.Create(ctx, Input{Name: "engine"})
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	if _, err := svc.Create(ctx, Input{Name: "cooling", ParentID: &engine.ID}); err != nil {
		t.Fatalf("create child: %v", err)
	}

	unknown := uuid.New()
	if _, err := svc.Create(ctx, Input{Name: "orphan", ParentID: &unknown}); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for missing parent, got %v", err)
	}

	rows, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 || rows[0].Name != "cooling" {
		t.Fatalf("unexpected listing: %+v", rows)
	}
}

func TestCreateDuplicateNameConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, Input{Name: "deck"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, Input{Name: "deck"}); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict on duplicate name, got %v", err)
	}
}

func TestUpdateRejectsSelfParent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	category, err := svc.Create(ctx, Input{Name: "hydraulics"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = svc.Update(ctx, category.ID, Input{Name: "hydraulics", ParentID: &category.ID})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeleteGuardsChildrenAndParts(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	root, err := svc.Create(ctx, Input{Name: "electrical"})
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	child, err := svc.Create(ctx, Input{Name: "lighting", ParentID: &root.ID})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}

	if err := svc.Delete(ctx, root.ID); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict deleting a parent, got %v", err)
	}

	part := &models.SparePart{
		ID:         uuid.New(),
		Code:       "SP-LAMP",
		Name:       "nav lamp",
		Unit:       "piece",
		CategoryID: &child.ID,
		IsActive:   true,
	}
	if err := db.Create(part).Error; err != nil {
		t.Fatalf("seed part: %v", err)
	}
	if err := svc.Delete(ctx, child.ID); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict deleting a referenced category, got %v", err)
	}

	if err := db.Delete(part).Error; err != nil {
		t.Fatalf("remove part: %v", err)
	}
	if err := svc.Delete(ctx, child.ID); err != nil {
		t.Fatalf("delete leaf: %v", err)
	}
	if err := svc.Delete(ctx, root.ID); err != nil {
		t.Fatalf("delete root after child gone: %v", err)
	}
}
