package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetparts-backend/internal/sequence"
	"github.com/angelmondragon/fleetparts-backend/pkg/db"
	"github.com/angelmondragon/fleetparts-backend/pkg/db/models"
	"github.com/angelmondragon/fleetparts-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fleetparts-backend/pkg/errors"
	"github.com/angelmondragon/fleetparts-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type partLoader interface {
	FindByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.SparePart, error)
}

// Service drives the purchase order lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.PurchaseOrder, error)
	Update(ctx context.Context, input UpdateInput) (*models.PurchaseOrder, error)
	Approve(ctx context.Context, orderID, approverID uuid.UUID) (*models.PurchaseOrder, error)
	Transition(ctx context.Context, input TransitionInput) (*models.PurchaseOrder, error)
	Delete(ctx context.Context, orderID uuid.UUID) error
	Get(ctx context.Context, orderID uuid.UUID) (*models.PurchaseOrder, error)
	List(ctx context.Context, input ListInput) ([]models.PurchaseOrder, string, error)

	MarkReceived(ctx context.Context, tx *gorm.DB, orderID, actorID uuid.UUID, at time.Time) error
}

// CreateInput opens a new draft order.
type CreateInput struct {
	PartID      uuid.UUID       `json:"part_id"`
	SupplierID  *uuid.UUID      `json:"supplier_id"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	RequestedBy uuid.UUID       `json:"requested_by"`
	Remark      string          `json:"remark"`
	ExpectedAt  *time.Time      `json:"expected_at"`
}

// UpdateInput edits an order that has not been approved yet.
type UpdateInput struct {
	OrderID    uuid.UUID        `json:"order_id"`
	PartID     *uuid.UUID       `json:"part_id"`
	SupplierID *uuid.UUID       `json:"supplier_id"`
	Quantity   *int64           `json:"quantity"`
	UnitPrice  *decimal.Decimal `json:"unit_price"`
	Remark     *string          `json:"remark"`
	ExpectedAt *time.Time       `json:"expected_at"`
}

// TransitionInput moves an order along its lifecycle.
type TransitionInput struct {
	OrderID uuid.UUID         `json:"order_id"`
	Target  enums.OrderStatus `json:"target"`
	ActorID uuid.UUID         `json:"actor_id"`
}

// ListInput filters and paginates order listings.
type ListInput struct {
	Status     *enums.OrderStatus
	PartID     *uuid.UUID
	Keyword    string
	Pagination pagination.Params
}

type service struct {
	tx        txRunner
	repo      Repository
	parts     partLoader
	sequences sequence.Service
	now       func() time.Time
}

// ServiceConfig carries optional knobs for NewService.
type ServiceConfig struct {
	Now func() time.Time
}

// NewService wires the order service with its collaborators.
func NewService(tx txRunner, repo Repository, parts partLoader, sequences sequence.Service, cfg ServiceConfig) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if parts == nil {
		return nil, fmt.Errorf("part loader required")
	}
	if sequences == nil {
		return nil, fmt.Errorf("sequence service required")
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{tx: tx, repo: repo, parts: parts, sequences: sequences, now: now}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.PurchaseOrder, error) {
	if input.PartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part id is required")
	}
	if input.RequestedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requester id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}

	var order *models.PurchaseOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		part, err := s.parts.FindByIDTx(ctx, tx, input.PartID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "spare part not found")
			}
			return err
		}
		if !part.IsActive {
			return pkgerrors.New(pkgerrors.CodeValidation, "spare part is inactive")
		}

		orderNo, err := s.sequences.WithTx(tx).NextOrderNo(ctx, s.now())
		if err != nil {
			return err
		}

		order = &models.PurchaseOrder{
			ID:          uuid.New(),
			OrderNo:     orderNo,
			PartID:      input.PartID,
			SupplierID:  input.SupplierID,
			Quantity:    input.Quantity,
			UnitPrice:   input.UnitPrice,
			Status:      enums.OrderStatusDraft,
			RequestedBy: input.RequestedBy,
			Remark:      input.Remark,
			ExpectedAt:  input.ExpectedAt,
		}
		order.ComputeTotal()
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number already allocated")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.PurchaseOrder, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if input.Quantity != nil && *input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.UnitPrice != nil && input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}

	var updated *models.PurchaseOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.Get(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
			}
			return err
		}
		if !order.Status.IsEditable() {
			return pkgerrors.New(pkgerrors.CodeOrderLocked,
				fmt.Sprintf("order %s can no longer be edited in status %q", order.OrderNo, order.Status))
		}

		if input.PartID != nil && *input.PartID != order.PartID {
			part, err := s.parts.FindByIDTx(ctx, tx, *input.PartID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "spare part not found")
				}
				return err
			}
			if !part.IsActive {
				return pkgerrors.New(pkgerrors.CodeValidation, "spare part is inactive")
			}
			order.PartID = part.ID
		}
		if input.SupplierID != nil {
			order.SupplierID = input.SupplierID
		}
		if input.Quantity != nil {
			order.Quantity = *input.Quantity
		}
		if input.UnitPrice != nil {
			order.UnitPrice = *input.UnitPrice
		}
		if input.Remark != nil {
			order.Remark = *input.Remark
		}
		if input.ExpectedAt != nil {
			order.ExpectedAt = input.ExpectedAt
		}
		order.ComputeTotal()

		applied, err := repo.SaveEditable(ctx, order)
		if err != nil {
			return err
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeOrderLocked,
				fmt.Sprintf("order %s moved on while editing", order.OrderNo))
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Approve moves a draft or pending order into approved, stamping who signed
// off and when.
func (s *service) Approve(ctx context.Context, orderID, approverID uuid.UUID) (*models.PurchaseOrder, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if approverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "approver id is required")
	}

	var approved *models.PurchaseOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.Get(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
			}
			return err
		}
		if !order.Status.CanTransitionTo(enums.OrderStatusApproved) {
			return pkgerrors.New(pkgerrors.CodeOrderLocked,
				fmt.Sprintf("order %s cannot be approved from status %q", order.OrderNo, order.Status))
		}

		now := s.now()
		applied, err := repo.UpdateStatus(ctx, order.ID, order.Status, enums.OrderStatusApproved, map[string]any{
			"approved_by": approverID,
			"approved_at": now,
		})
		if err != nil {
			return err
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("order %s changed status while approving", order.OrderNo))
		}

		order.Status = enums.OrderStatusApproved
		order.ApprovedBy = &approverID
		order.ApprovedAt = &now
		approved = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// Transition applies an explicit lifecycle move. Receiving through this path
// stamps received_at the same way the inbound purchase movement does.
func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.PurchaseOrder, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", input.Target))
	}

	var moved *models.PurchaseOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.Get(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
			}
			return err
		}
		if !order.Status.CanTransitionTo(input.Target) {
			return pkgerrors.New(pkgerrors.CodeOrderLocked,
				fmt.Sprintf("order %s cannot move from %q to %q", order.OrderNo, order.Status, input.Target))
		}

		fields := map[string]any{}
		now := s.now()
		if input.Target == enums.OrderStatusApproved {
			fields["approved_by"] = input.ActorID
			fields["approved_at"] = now
		}
		if input.Target == enums.OrderStatusReceived {
			fields["received_at"] = now
		}

		applied, err := repo.UpdateStatus(ctx, order.ID, order.Status, input.Target, fields)
		if err != nil {
			return err
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("order %s changed status during transition", order.OrderNo))
		}

		order.Status = input.Target
		if input.Target == enums.OrderStatusApproved {
			order.ApprovedBy = &input.ActorID
			order.ApprovedAt = &now
		}
		if input.Target == enums.OrderStatusReceived {
			order.ReceivedAt = &now
		}
		moved = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// Delete removes a draft order. Anything past draft stays for the audit trail.
func (s *service) Delete(ctx context.Context, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.Get(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
			}
			return err
		}
		if order.Status != enums.OrderStatusDraft {
			return pkgerrors.New(pkgerrors.CodeOrderLocked,
				fmt.Sprintf("order %s can only be deleted as a draft", order.OrderNo))
		}

		deleted, err := repo.DeleteDraft(ctx, orderID)
		if err != nil {
			return err
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("order %s moved on before deletion", order.OrderNo))
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.PurchaseOrder, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
		}
		return nil, err
	}
	return order, nil
}

func (s *service) List(ctx context.Context, input ListInput) ([]models.PurchaseOrder, string, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", *input.Status))
	}

	orders, err := s.repo.List(ctx, Filter{
		Status:  input.Status,
		PartID:  input.PartID,
		Keyword: input.Keyword,
	}, input.Pagination)
	if err != nil {
		return nil, "", err
	}

	limit := pagination.NormalizeLimit(input.Pagination.Limit)
	nextCursor := ""
	if len(orders) > limit {
		orders = orders[:limit]
		last := orders[len(orders)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return orders, nextCursor, nil
}

// MarkReceived closes the order from inside the inbound movement's
// transaction, so the receipt and the stock change land or roll back together.
func (s *service) MarkReceived(ctx context.Context, tx *gorm.DB, orderID, actorID uuid.UUID, at time.Time) error {
	repo := s.repo.WithTx(tx)

	order, err := repo.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
		}
		return err
	}
	// Goods arriving close the order no matter how far its paperwork got;
	// only an already closed order rejects the receipt.
	if order.Status == enums.OrderStatusReceived || order.Status == enums.OrderStatusCancelled {
		return pkgerrors.New(pkgerrors.CodeOrderLocked,
			fmt.Sprintf("order %s is already closed as %q", order.OrderNo, order.Status))
	}

	applied, err := repo.UpdateStatus(ctx, order.ID, order.Status, enums.OrderStatusReceived, map[string]any{
		"received_at": at,
	})
	if err != nil {
		return err
	}
	if !applied {
		return pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("order %s changed status while receiving", order.OrderNo))
	}
	return nil
}
