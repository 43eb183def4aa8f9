package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetparts-backend/internal/parts"
	"github.com/angelmondragon/fleetparts-backend/pkg/db/models"
)

type fakePartsService struct {
	create func(ctx context.Context, input parts.CreateInput) (*models.SparePart, error)
	list   func(ctx context.Context, input parts.ListInput) ([]models.SparePart, string, error)
}

func (f *fakePartsService) Create(ctx context.Context, input parts.CreateInput) (*models.SparePart, error) {
	return f.create(ctx, input)
}

func (f *fakePartsService) Update(ctx context.Context, input parts.UpdateInput) (*models.SparePart, error) {
	return nil, nil
}

func (f *fakePartsService) SetThreshold(ctx context.Context, partID uuid.UUID, safeQuantity int64) (*models.SparePart, error) {
	return nil, nil
}

func (f *fakePartsService) Deactivate(ctx context.Context, partID uuid.UUID) error { return nil }

func (f *fakePartsService) Activate(ctx context.Context, partID uuid.UUID) error { return nil }

func (f *fakePartsService) Get(ctx context.Context, partID uuid.UUID) (*models.SparePart, error) {
	return nil, nil
}

func (f *fakePartsService) List(ctx context.Context, input parts.ListInput) ([]models.SparePart, string, error) {
	return f.list(ctx, input)
}

func (f *fakePartsService) FindByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.SparePart, error) {
	return nil, nil
}

func TestPartCreateReturnsCreated(t *testing.T) {
	svc := &fakePartsService{
		create: func(ctx context.Context, input parts.CreateInput) (*models.SparePart, error) {
			part := &models.SparePart{ID: uuid.New(), Code: "SP2609010001", Name: input.Name}
			return part, nil
		},
	}

	body := `{"name":"fuel filter","unit":"pcs","unit_price":"12.50","safe_quantity":4}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/parts", strings.NewReader(body))
	resp := httptest.NewRecorder()
	PartCreate(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestPartListForwardsFiltersAndCursor(t *testing.T) {
	categoryID := uuid.New()

	var captured parts.ListInput
	svc := &fakePartsService{
		list: func(ctx context.Context, input parts.ListInput) ([]models.SparePart, string, error) {
			captured = input
			return []models.SparePart{{ID: uuid.New(), Code: "SP2609010001"}}, "next-cursor", nil
		},
	}

	url := "/api/v1/parts?keyword=filter&category_id=" + categoryID.String() + "&active_only=true&limit=10"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	resp := httptest.NewRecorder()
	PartList(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.Keyword != "filter" {
		t.Fatalf("expected keyword filter got %q", captured.Keyword)
	}
	if captured.CategoryID == nil || *captured.CategoryID != categoryID {
		t.Fatalf("expected category filter, got %+v", captured.CategoryID)
	}
	if !captured.ActiveOnly {
		t.Fatal("expected active_only filter")
	}
	if captured.Pagination.Limit != 10 {
		t.Fatalf("expected limit 10 got %d", captured.Pagination.Limit)
	}

	var payload struct {
		Data struct {
			NextCursor string `json:"next_cursor"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload.Data.NextCursor != "next-cursor" {
		t.Fatalf("expected cursor in payload got %q", payload.Data.NextCursor)
	}
}
