package sequence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/angelmondragon/fleetparts-backend/pkg/db/models"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	dsn := fmt.Sprintf("file:sequence_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.DailySequence{}); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return svc
}

func TestNextOrderNoIncrementsWithinDay(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	first, err := svc.NextOrderNo(ctx, now)
	if err != nil {
		t.Fatalf("first order no: %v", err)
	}
	if first != "PO202603140001" {
		t.Fatalf("unexpected first order no %q", first)
	}

	second, err := svc.NextOrderNo(ctx, now.Add(4*time.Hour))
	if err != nil {
		t.Fatalf("second order no: %v", err)
	}
	if second != "PO202603140002" {
		t.Fatalf("unexpected second order no %q", second)
	}
}

func TestNextOrderNoRestartsEachDay(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.NextOrderNo(ctx, time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("day one: %v", err)
	}
	got, err := svc.NextOrderNo(ctx, time.Date(2026, 3, 15, 1, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("day two: %v", err)
	}
	if got != "PO202603150001" {
		t.Fatalf("counter did not restart, got %q", got)
	}
}

func TestNextPartCodeUsesShortDayAndOwnCounter(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	if _, err := svc.NextOrderNo(ctx, now); err != nil {
		t.Fatalf("order no: %v", err)
	}

	code, err := svc.NextPartCode(ctx, now)
	if err != nil {
		t.Fatalf("part code: %v", err)
	}
	if code != "SP2603140001" {
		t.Fatalf("order counter leaked into part codes, got %q", code)
	}
}

func TestNextBatchNoEncodesTimestamp(t *testing.T) {
	svc := newTestService(t)
	now := time.Date(2026, 3, 14, 9, 30, 45, 0, time.UTC)
	if got := svc.NextBatchNo(now); got != "BATCH20260314093045" {
		t.Fatalf("unexpected batch no %q", got)
	}
}
