package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/fleetparts-backend/api/responses"
	"github.com/angelmondragon/fleetparts-backend/internal/reports"
	"github.com/angelmondragon/fleetparts-backend/pkg/logger"
)

// reportDefaultWindow bounds the summary when the caller gives no range.
const reportDefaultWindow = 30 * 24 * time.Hour

// ReportMovementSummary aggregates ledger movements per part over a window.
func ReportMovementSummary(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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

		end := time.Now().UTC()
		if to != nil {
			end = *to
		}
		start := end.Add(-reportDefaultWindow)
		if from != nil {
			start = *from
		}

		rows, err := svc.MovementSummary(r.Context(), start, end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"from":  start,
			"to":    end,
			"items": rows,
		})
	}
}

// ReportStockValuation prices the current snapshot at catalog unit prices.
func ReportStockValuation(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		valuation, err := svc.StockValuation(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, valuation)
	}
}

// ReportLowStock lists parts sitting below their safety threshold.
func ReportLowStock(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shortages, err := svc.LowStock(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listPayload{Items: shortages})
	}
}
