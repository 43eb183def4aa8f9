package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/fleetparts-backend/api/responses"
	"github.com/angelmondragon/fleetparts-backend/api/validators"
	"github.com/angelmondragon/fleetparts-backend/internal/parts"
	"github.com/angelmondragon/fleetparts-backend/internal/reports"
	"github.com/angelmondragon/fleetparts-backend/internal/stock"
	"github.com/angelmondragon/fleetparts-backend/pkg/logger"
)

// InventorySnapshot returns the live snapshot for one part.
func InventorySnapshot(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partID, err := pathUUID(r, "partID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.Snapshot(r.Context(), partID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, snapshot)
	}
}

type thresholdRequest struct {
	SafeQuantity int64 `json:"safe_quantity" validate:"min=0"`
}

// InventoryThreshold updates the low stock warning level for a part.
func InventoryThreshold(svc parts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partID, err := pathUUID(r, "partID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body thresholdRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		part, err := svc.SetThreshold(r.Context(), partID, body.SafeQuantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, part)
	}
}

type stockCheckRequest struct {
	PartID          uuid.UUID `json:"part_id" validate:"required"`
	CountedQuantity int64     `json:"counted_quantity" validate:"min=0"`
	Location        string    `json:"location"`
	Remark          string    `json:"remark"`
}

// InventoryCheck reconciles a snapshot against a physical count. The
// correcting ledger entry is returned so the caller can audit the delta.
func InventoryCheck(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body stockCheckRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := svc.Reconcile(r.Context(), stock.ReconcileInput{
			PartID:          body.PartID,
			CountedQuantity: body.CountedQuantity,
			Location:        strings.TrimSpace(body.Location),
			ActorID:         actor,
			Remark:          body.Remark,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, entry)
	}
}

// InventoryLowStock lists parts whose quantity fell below their threshold.
func InventoryLowStock(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shortages, err := svc.LowStock(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listPayload{Items: shortages})
	}
}
