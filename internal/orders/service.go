package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/mercaura/mercaura-backend/internal/inventory"
	"github.com/mercaura/mercaura-backend/pkg/db/models"
	"github.com/mercaura/mercaura-backend/pkg/enums"
	pkgerrors "github.com/mercaura/mercaura-backend/pkg/errors"
	"github.com/mercaura/mercaura-backend/pkg/outbox"
	"github.com/mercaura/mercaura-backend/pkg/outbox/payloads"
	"github.com/mercaura/mercaura-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// stockLedger covers the inventory movements order transitions trigger:
// cancellation gives stock back, delivery converts the reservation to a sale.
type stockLedger interface {
	Release(ctx context.Context, tx *gorm.DB, requests []inventory.ReservationRequest) error
	CommitSale(ctx context.Context, tx *gorm.DB, requests []inventory.ReservationRequest) error
}

// Service defines order reads and lifecycle operations.
type Service interface {
	ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ParentOrderList, error)
	GetMyOrder(ctx context.Context, userID, orderID uuid.UUID) (*ParentOrderDTO, error)
	ListVendorOrders(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*VendorOrderList, error)
	UpdateStatus(ctx context.Context, actor Actor, subOrderID uuid.UUID, next enums.SubOrderStatus) (*SubOrderDTO, error)
	Cancel(ctx context.Context, actor Actor, subOrderID uuid.UUID) (*SubOrderDTO, error)
	CancelParent(ctx context.Context, actor Actor, parentOrderID uuid.UUID) (*ParentOrderDTO, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	stock  stockLedger
}

// ServiceParams collects the orders service dependencies.
type ServiceParams struct {
	Repo   Repository
	Tx     txRunner
	Outbox outboxPublisher
	Stock  stockLedger
}

// NewService builds the orders service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox publisher required")
	}
	if params.Stock == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stock ledger required")
	}
	return &service{
		repo:   params.Repo,
		tx:     params.Tx,
		outbox: params.Outbox,
		stock:  params.Stock,
	}, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ParentOrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.ListParentOrdersByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	list := &ParentOrderList{Orders: make([]ParentOrderDTO, 0, len(rows))}
	if len(rows) > limit {
		last := rows[limit-1]
		cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		list.NextCursor = &cursor
		rows = rows[:limit]
	}
	for _, row := range rows {
		list.Orders = append(list.Orders, ToParentOrderDTO(row))
	}
	return list, nil
}

func (s *service) GetMyOrder(ctx context.Context, userID, orderID uuid.UUID) (*ParentOrderDTO, error) {
	order, err := s.repo.FindParentByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	dto := ToParentOrderDTO(*order)
	return &dto, nil
}

func (s *service) ListVendorOrders(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*VendorOrderList, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	rows, err := s.repo.ListSubOrdersByVendor(ctx, vendorID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing vendor orders")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	list := &VendorOrderList{Orders: make([]VendorSubOrderDTO, 0, len(rows))}
	if len(rows) > limit {
		last := rows[limit-1]
		cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		list.NextCursor = &cursor
		rows = rows[:limit]
	}
	for _, row := range rows {
		list.Orders = append(list.Orders, toVendorSubOrderDTO(row))
	}
	return list, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor Actor, subOrderID uuid.UUID, next enums.SubOrderStatus) (*SubOrderDTO, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	if next == enums.SubOrderStatusCancelled {
		return s.Cancel(ctx, actor, subOrderID)
	}

	sub, err := s.repo.FindSubOrder(ctx, subOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading sub-order")
	}
	if !CanManageSubOrder(actor, sub.VendorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not your order")
	}
	if err := ValidateTransition(sub.Status, next); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateSubOrderStatus(ctx, sub.ID, sub.Status, next, nil); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order status")
		}
		if next == enums.SubOrderStatusDelivered {
			if err := s.stock.CommitSale(ctx, tx, toReservationRequests(sub.Items)); err != nil {
				return err
			}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateSubOrder,
			AggregateID:   sub.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: payloads.OrderStatusChangedEvent{
				SubOrderID:    sub.ID,
				ParentOrderID: sub.ParentOrderID,
				VendorID:      sub.VendorID,
				FromStatus:    sub.Status,
				ToStatus:      next,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	sub.Status = next
	dto := toSubOrderDTO(*sub)
	return &dto, nil
}

func (s *service) Cancel(ctx context.Context, actor Actor, subOrderID uuid.UUID) (*SubOrderDTO, error) {
	sub, err := s.repo.FindSubOrder(ctx, subOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading sub-order")
	}

	parentUserID := uuid.Nil
	if sub.ParentOrder != nil {
		parentUserID = sub.ParentOrder.UserID
	}
	if !CanCancelSubOrder(actor, parentUserID, sub.VendorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not your order")
	}
	if err := ValidateTransition(sub.Status, enums.SubOrderStatusCancelled); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.cancelInTx(ctx, tx, actor, sub, now)
	})
	if err != nil {
		return nil, err
	}

	sub.Status = enums.SubOrderStatusCancelled
	sub.CancelledAt = &now
	dto := toSubOrderDTO(*sub)
	return &dto, nil
}

// cancelInTx performs the status write, the stock release, and the event
// emission inside the caller's transaction so a crash can never leave a
// cancelled order with stock still reserved.
func (s *service) cancelInTx(ctx context.Context, tx *gorm.DB, actor Actor, sub *models.SubOrder, at time.Time) error {
	repo := s.repo.WithTx(tx)
	if err := repo.UpdateSubOrderStatus(ctx, sub.ID, sub.Status, enums.SubOrderStatusCancelled, &at); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancelling order")
	}
	if err := s.stock.Release(ctx, tx, toReservationRequests(sub.Items)); err != nil {
		return err
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateSubOrder,
		AggregateID:   sub.ID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
		Data: payloads.OrderCancelledEvent{
			SubOrderID:    sub.ID,
			ParentOrderID: sub.ParentOrderID,
			VendorID:      sub.VendorID,
			CancelledAt:   at,
		},
	})
}

// CancelParent applies the per-sub-order cancellation rule to every sub-order
// of the parent in one transaction. Any sub-order already past the
// cancellable window fails the whole bulk with an error naming each
// offender; already-cancelled sub-orders are skipped as settled.
func (s *service) CancelParent(ctx context.Context, actor Actor, parentOrderID uuid.UUID) (*ParentOrderDTO, error) {
	parent, err := s.repo.FindParentByID(ctx, parentOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	if actor.Role != enums.MemberRoleAdmin && parent.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	var blocked error
	for _, sub := range parent.SubOrders {
		if sub.Status == enums.SubOrderStatusCancelled {
			continue
		}
		if !IsCancellable(sub.Status) {
			blocked = multierr.Append(blocked, fmt.Errorf("sub-order %s is %s and can no longer be cancelled", sub.ID, sub.Status))
		}
	}
	if blocked != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, blocked, "order cannot be fully cancelled")
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for i := range parent.SubOrders {
			sub := &parent.SubOrders[i]
			if sub.Status == enums.SubOrderStatusCancelled {
				continue
			}
			if err := s.cancelInTx(ctx, tx, actor, sub, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range parent.SubOrders {
		if parent.SubOrders[i].Status != enums.SubOrderStatusCancelled {
			parent.SubOrders[i].Status = enums.SubOrderStatusCancelled
			parent.SubOrders[i].CancelledAt = &now
		}
	}
	dto := ToParentOrderDTO(*parent)
	return &dto, nil
}

func toReservationRequests(items []models.OrderLineItem) []inventory.ReservationRequest {
	requests := make([]inventory.ReservationRequest, 0, len(items))
	for _, item := range items {
		requests = append(requests, inventory.ReservationRequest{
			ProductID: item.ProductID,
			Qty:       item.Qty,
		})
	}
	return requests
}
