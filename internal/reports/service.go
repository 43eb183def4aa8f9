package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetparts-backend/internal/stock"
	"github.com/angelmondragon/fleetparts-backend/pkg/db/models"
	"github.com/angelmondragon/fleetparts-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fleetparts-backend/pkg/errors"
)

// MovementSummaryRow aggregates ledger traffic for one category and direction.
type MovementSummaryRow struct {
	Category  string `gorm:"column:category" json:"category"`
	Direction string `gorm:"column:direction" json:"direction"`
	Quantity  int64  `gorm:"column:quantity" json:"quantity"`
	Entries   int64  `gorm:"column:entries" json:"entries"`
}

// ValuationRow prices one part's current stock.
type ValuationRow struct {
	PartID    uuid.UUID       `json:"part_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Value     decimal.Decimal `json:"value"`
}

// Valuation is the priced stock report.
type Valuation struct {
	Rows  []ValuationRow  `json:"rows"`
	Total decimal.Decimal `json:"total"`
}

// Service produces read-only aggregation reports.
type Service interface {
	MovementSummary(ctx context.Context, from, to time.Time) ([]MovementSummaryRow, error)
	StockValuation(ctx context.Context) (*Valuation, error)
	LowStock(ctx context.Context) ([]stock.Shortage, error)
}

type service struct {
	db *gorm.DB
}

// NewService wires the report service against a read connection.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database required")
	}
	return &service{db: db}, nil
}

// MovementSummary totals non-voided ledger traffic per category and direction
// for entries occurring in [from, to).
func (s *service) MovementSummary(ctx context.Context, from, to time.Time) ([]MovementSummaryRow, error) {
	if !to.After(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "summary window must end after it starts")
	}

	var rows []MovementSummaryRow
	err := s.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Select("category, direction, SUM(quantity) AS quantity, COUNT(*) AS entries").
		Where("voided_at IS NULL AND occurred_at >= ? AND occurred_at < ?", from, to).
		Group("category, direction").
		Order("category, direction").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// StockValuation prices every active part's on-hand quantity. Parts with a
// received purchase order are priced at the latest received order's unit
// price; the catalog price is the fallback.
func (s *service) StockValuation(ctx context.Context) (*Valuation, error) {
	type stockedPart struct {
		PartID    uuid.UUID       `gorm:"column:part_id"`
		Code      string          `gorm:"column:code"`
		Name      string          `gorm:"column:name"`
		Quantity  int64           `gorm:"column:quantity"`
		UnitPrice decimal.Decimal `gorm:"column:unit_price"`
	}
	var stocked []stockedPart
	err := s.db.WithContext(ctx).
		Table("stock_snapshots").
		Select("spare_parts.id AS part_id, spare_parts.code, spare_parts.name, stock_snapshots.quantity, spare_parts.unit_price").
		Joins("JOIN spare_parts ON spare_parts.id = stock_snapshots.part_id").
		Where("spare_parts.is_active = ?", true).
		Order("spare_parts.code").
		Scan(&stocked).Error
	if err != nil {
		return nil, err
	}

	type latestPrice struct {
		PartID    uuid.UUID       `gorm:"column:part_id"`
		UnitPrice decimal.Decimal `gorm:"column:unit_price"`
	}
	var latest []latestPrice
	err = s.db.WithContext(ctx).
		Table("purchase_orders po").
		Select("po.part_id, po.unit_price").
		Where("po.status = ? AND po.received_at = (SELECT MAX(received_at) FROM purchase_orders WHERE part_id = po.part_id AND status = ?)",
			enums.OrderStatusReceived.String(), enums.OrderStatusReceived.String()).
		Scan(&latest).Error
	if err != nil {
		return nil, err
	}
	orderPrices := make(map[uuid.UUID]decimal.Decimal, len(latest))
	for _, row := range latest {
		orderPrices[row.PartID] = row.UnitPrice
	}

	valuation := &Valuation{Total: decimal.Zero}
	for _, part := range stocked {
		price := part.UnitPrice
		if orderPrice, ok := orderPrices[part.PartID]; ok {
			price = orderPrice
		}
		value := price.Mul(decimal.NewFromInt(part.Quantity))
		valuation.Rows = append(valuation.Rows, ValuationRow{
			PartID:    part.PartID,
			Code:      part.Code,
			Name:      part.Name,
			Quantity:  part.Quantity,
			UnitPrice: price,
			Value:     value,
		})
		valuation.Total = valuation.Total.Add(value)
	}
	return valuation, nil
}

// LowStock lists every part at or below its safety threshold.
func (s *service) LowStock(ctx context.Context) ([]stock.Shortage, error) {
	var shortages []stock.Shortage
	for shortage := range stock.Shortages(ctx, s.db) {
		shortages = append(shortages, shortage)
	}
	return shortages, nil
}
