package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/fleetparts-backend/api/responses"
	"github.com/angelmondragon/fleetparts-backend/api/validators"
	"github.com/angelmondragon/fleetparts-backend/internal/stock"
	"github.com/angelmondragon/fleetparts-backend/pkg/db/models"
	"github.com/angelmondragon/fleetparts-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fleetparts-backend/pkg/errors"
	"github.com/angelmondragon/fleetparts-backend/pkg/logger"
)

type movementRequest struct {
	PartID     uuid.UUID  `json:"part_id" validate:"required"`
	Quantity   int64      `json:"quantity" validate:"required,min=1"`
	Category   string     `json:"category" validate:"required"`
	ReceiverID *uuid.UUID `json:"receiver_id"`
	BatchNo    string     `json:"batch_no"`
	Location   string     `json:"location"`
	Remark     string     `json:"remark"`
	OrderID    *uuid.UUID `json:"order_id"`
	OccurredAt *time.Time `json:"occurred_at"`
}

func (m movementRequest) toInput(actor uuid.UUID) (stock.MovementInput, error) {
	category, err := enums.ParseMovementCategory(m.Category)
	if err != nil {
		return stock.MovementInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
	}
	input := stock.MovementInput{
		PartID:     m.PartID,
		Quantity:   m.Quantity,
		Category:   category,
		ActorID:    actor,
		ReceiverID: m.ReceiverID,
		BatchNo:    strings.TrimSpace(m.BatchNo),
		Location:   strings.TrimSpace(m.Location),
		Remark:     m.Remark,
		OrderID:    m.OrderID,
	}
	if m.OccurredAt != nil {
		input.OccurredAt = *m.OccurredAt
	}
	return input, nil
}

// MovementIn books an inbound stock movement.
func MovementIn(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return movementHandler(svc.ApplyInbound, logg)
}

// MovementOut books an outbound stock movement.
func MovementOut(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return movementHandler(svc.ApplyOutbound, logg)
}

func movementHandler(apply func(ctx context.Context, input stock.MovementInput) (*models.LedgerEntry, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body movementRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput(actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := apply(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

type voidRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// MovementVoid excludes a ledger entry from balances without deleting it.
func MovementVoid(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entryID, err := pathUUID(r, "entryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body voidRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.VoidEntry(r.Context(), stock.VoidEntryInput{
			EntryID: entryID,
			ActorID: actor,
			Reason:  body.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, entry)
	}
}

// MovementList pages through the ledger with optional filters.
func MovementList(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		partID, err := queryUUID(r, "part_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		from, err := queryTime(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := queryTime(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := stock.ListEntriesInput{
			PartID:        partID,
			IncludeVoided: queryBool(r, "include_voided"),
			From:          from,
			To:            to,
			Pagination:    page,
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("direction")); raw != "" {
			direction, err := enums.ParseMovementDirection(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid direction"))
				return
			}
			input.Direction = &direction
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
			category, err := enums.ParseMovementCategory(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
				return
			}
			input.Category = &category
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("batch_no")); raw != "" {
			input.BatchNo = &raw
		}

		entries, next, err := svc.ListEntries(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, listPayload{Items: entries, NextCursor: next})
	}
}
