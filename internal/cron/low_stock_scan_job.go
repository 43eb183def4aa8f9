package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/fleetparts-backend/internal/stock"
	"github.com/angelmondragon/fleetparts-backend/pkg/logger"
	"github.com/angelmondragon/fleetparts-backend/pkg/metrics"
)

// lowStockLogTop caps how many shortages each scan logs individually.
const lowStockLogTop = 5

type LowStockScanJobParams struct {
	Logger    *logger.Logger
	Shortages shortageLister
	Metrics   *metrics.StockMetrics
}

type shortageLister interface {
	LowStock(ctx context.Context) ([]stock.Shortage, error)
}

func NewLowStockScanJob(params LowStockScanJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Shortages == nil {
		return nil, fmt.Errorf("shortage lister required")
	}
	return &lowStockScanJob{
		logg:      params.Logger,
		shortages: params.Shortages,
		metrics:   params.Metrics,
	}, nil
}

type lowStockScanJob struct {
	logg      *logger.Logger
	shortages shortageLister
	metrics   *metrics.StockMetrics
}

func (j *lowStockScanJob) Name() string { return "low-stock-scan" }

// Run refreshes the low stock gauge and logs the worst shortfalls so the
// replenishment picture survives between dashboard visits.
func (j *lowStockScanJob) Run(ctx context.Context) error {
	shortages, err := j.shortages.LowStock(ctx)
	if err != nil {
		return fmt.Errorf("low stock scan: %w", err)
	}

	j.metrics.SetLowStockParts(len(shortages))

	for i, shortage := range shortages {
		if i >= lowStockLogTop {
			break
		}
		shortCtx := j.logg.WithFields(ctx, map[string]any{
			"part_code": shortage.Code,
			"quantity":  shortage.Quantity,
			"threshold": shortage.SafeQuantity,
			"shortfall": shortage.Shortfall,
		})
		j.logg.Warn(shortCtx, "part below safety threshold")
	}

	logCtx := j.logg.WithField(ctx, "low_stock_parts", len(shortages))
	j.logg.Info(logCtx, "low stock scan complete")
	return nil
}
