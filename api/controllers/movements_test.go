package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/fleetparts-backend/api/middleware"
	"github.com/angelmondragon/fleetparts-backend/internal/stock"
	"github.com/angelmondragon/fleetparts-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fleetparts-backend/pkg/errors"
)

type fakeStockService struct {
	applyInbound  func(ctx context.Context, input stock.MovementInput) (*models.LedgerEntry, error)
	applyOutbound func(ctx context.Context, input stock.MovementInput) (*models.LedgerEntry, error)
	voidEntry     func(ctx context.Context, input stock.VoidEntryInput) (*models.LedgerEntry, error)
}

func (f *fakeStockService) ApplyInbound(ctx context.Context, input stock.MovementInput) (*models.LedgerEntry, error) {
	return f.applyInbound(ctx, input)
}

func (f *fakeStockService) ApplyOutbound(ctx context.Context, input stock.MovementInput) (*models.LedgerEntry, error) {
	return f.applyOutbound(ctx, input)
}

func (f *fakeStockService) Reconcile(ctx context.Context, input stock.ReconcileInput) (*models.LedgerEntry, error) {
	return nil, nil
}

func (f *fakeStockService) VoidEntry(ctx context.Context, input stock.VoidEntryInput) (*models.LedgerEntry, error) {
	return f.voidEntry(ctx, input)
}

func (f *fakeStockService) ListEntries(ctx context.Context, input stock.ListEntriesInput) ([]models.LedgerEntry, string, error) {
	return nil, "", nil
}

func (f *fakeStockService) Snapshot(ctx context.Context, partID uuid.UUID) (*models.StockSnapshot, error) {
	return nil, nil
}

func (f *fakeStockService) VerifyPart(ctx context.Context, partID uuid.UUID) error {
	return nil
}

func authenticatedRequest(method, url, body string, actor uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	return req.WithContext(middleware.WithUserID(req.Context(), actor.String()))
}

func TestMovementInBooksEntryForActor(t *testing.T) {
	actor := uuid.New()
	partID := uuid.New()

	var captured stock.MovementInput
	svc := &fakeStockService{
		applyInbound: func(ctx context.Context, input stock.MovementInput) (*models.LedgerEntry, error) {
			captured = input
			return &models.LedgerEntry{ID: uuid.New(), PartID: input.PartID, Quantity: input.Quantity}, nil
		},
	}

	body := `{"part_id":"` + partID.String() + `","quantity":5,"category":"purchase","remark":"restock"}`
	req := authenticatedRequest(http.MethodPost, "/api/v1/movements/in", body, actor)
	resp := httptest.NewRecorder()
	MovementIn(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.ActorID != actor {
		t.Fatalf("expected actor from context, got %s", captured.ActorID)
	}
	if captured.PartID != partID || captured.Quantity != 5 {
		t.Fatalf("unexpected input %+v", captured)
	}
}

func TestMovementInRejectsUnknownCategory(t *testing.T) {
	svc := &fakeStockService{
		applyInbound: func(ctx context.Context, input stock.MovementInput) (*models.LedgerEntry, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}

	body := `{"part_id":"` + uuid.NewString() + `","quantity":5,"category":"teleport"}`
	req := authenticatedRequest(http.MethodPost, "/api/v1/movements/in", body, uuid.New())
	resp := httptest.NewRecorder()
	MovementIn(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("expected validation code got %s", payload.Error.Code)
	}
}

func TestMovementInRequiresIdentity(t *testing.T) {
	svc := &fakeStockService{}
	body := `{"part_id":"` + uuid.NewString() + `","quantity":5,"category":"purchase"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/movements/in", strings.NewReader(body))
	resp := httptest.NewRecorder()
	MovementIn(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestMovementVoidPassesReason(t *testing.T) {
	actor := uuid.New()
	entryID := uuid.New()

	var captured stock.VoidEntryInput
	svc := &fakeStockService{
		voidEntry: func(ctx context.Context, input stock.VoidEntryInput) (*models.LedgerEntry, error) {
			captured = input
			return &models.LedgerEntry{ID: input.EntryID}, nil
		},
	}

	req := authenticatedRequest(http.MethodDelete, "/api/v1/movements/"+entryID.String(), `{"reason":"double entry"}`, actor)
	req = withURLParam(req, "entryID", entryID.String())
	resp := httptest.NewRecorder()
	MovementVoid(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.EntryID != entryID || captured.ActorID != actor {
		t.Fatalf("unexpected input %+v", captured)
	}
	if captured.Reason != "double entry" {
		t.Fatalf("expected reason to pass through, got %q", captured.Reason)
	}
}
