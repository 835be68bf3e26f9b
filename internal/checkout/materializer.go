package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercaura/mercaura-backend/internal/cart"
	"github.com/mercaura/mercaura-backend/internal/inventory"
	"github.com/mercaura/mercaura-backend/internal/orders"
	"github.com/mercaura/mercaura-backend/pkg/db/models"
	"github.com/mercaura/mercaura-backend/pkg/enums"
	pkgerrors "github.com/mercaura/mercaura-backend/pkg/errors"
	"github.com/mercaura/mercaura-backend/pkg/outbox"
	"github.com/mercaura/mercaura-backend/pkg/outbox/payloads"
	"github.com/mercaura/mercaura-backend/pkg/types"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type stockReserver interface {
	Reserve(ctx context.Context, tx *gorm.DB, requests []inventory.ReservationRequest) error
}

// Materializer turns a checkout snapshot into the persisted order graph.
// Both the synchronous COD path and the deferred card-verification path run
// through it, so order creation has exactly one shape.
type Materializer struct {
	carts  *cart.Repository
	orders orders.Repository
	stock  stockReserver
	outbox outboxPublisher
}

// NewMaterializer builds the shared order materializer.
func NewMaterializer(carts *cart.Repository, orderRepo orders.Repository, stock stockReserver, publisher outboxPublisher) (*Materializer, error) {
	if carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart repository required")
	}
	if orderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if stock == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stock reserver required")
	}
	if publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox publisher required")
	}
	return &Materializer{carts: carts, orders: orderRepo, stock: stock, outbox: publisher}, nil
}

// MaterializeInput controls one materialization.
type MaterializeInput struct {
	Snapshot      types.CheckoutSnapshot
	PaymentMethod enums.PaymentMethod
	// RequireActiveCart makes a missing or already-converted cart an error.
	// The synchronous COD path sets it; the deferred card path tolerates a
	// cart that disappeared between session creation and verification.
	RequireActiveCart bool
	// Paid stamps the order paid in the same transaction (card path only).
	Paid *orders.PaymentResult
	// Actor rides on the emitted events.
	Actor outbox.ActorRef
}

// Materialize reserves stock, splits the snapshot per vendor, persists the
// parent order with its sub-orders, converts the source cart, and queues the
// order.created event, all inside the caller's transaction. Any failure
// unwinds everything via the transaction rollback.
func (m *Materializer) Materialize(ctx context.Context, tx *gorm.DB, input MaterializeInput) (*models.ParentOrder, error) {
	snapshot := input.Snapshot
	if len(snapshot.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	requests := make([]inventory.ReservationRequest, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		requests = append(requests, inventory.ReservationRequest{ProductID: line.ProductID, Qty: line.Qty})
	}
	if err := m.stock.Reserve(ctx, tx, requests); err != nil {
		return nil, err
	}

	groups := SplitByVendor(snapshot.Lines)
	cartID := snapshot.CartID
	order := &models.ParentOrder{
		ID:              uuid.New(),
		UserID:          snapshot.UserID,
		CartID:          &cartID,
		ShippingAddress: snapshot.Address,
		PaymentMethod:   input.PaymentMethod,
		TotalCents:      TotalCents(groups),
		SubOrders:       make([]models.SubOrder, 0, len(groups)),
	}
	for i, group := range groups {
		sub := models.SubOrder{
			ID:            uuid.New(),
			ParentOrderID: order.ID,
			VendorID:      group.VendorID,
			Status:        enums.SubOrderStatusPending,
			Position:      i,
			SubtotalCents: group.SubtotalCents,
			Items:         make([]models.OrderLineItem, 0, len(group.Lines)),
		}
		for _, line := range group.Lines {
			sub.Items = append(sub.Items, models.OrderLineItem{
				ID:             uuid.New(),
				SubOrderID:     sub.ID,
				ProductID:      line.ProductID,
				Name:           line.Name,
				UnitPriceCents: line.UnitPriceCents,
				Qty:            line.Qty,
				TotalCents:     line.TotalCents,
			})
		}
		order.SubOrders = append(order.SubOrders, sub)
	}

	orderRepo := m.orders.WithTx(tx)
	if _, err := orderRepo.CreateParentOrder(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting order")
	}

	if input.Paid != nil {
		if _, err := orderRepo.MarkParentPaid(ctx, order.ID, *input.Paid); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking order paid")
		}
		order.IsPaid = true
		paidAt := input.Paid.PaidAt
		order.PaidAt = &paidAt
		order.PaymentSessionID = input.Paid.SessionID
		order.ReceiptURL = input.Paid.ReceiptURL
	}

	if err := m.carts.WithTx(tx).MarkConverted(ctx, snapshot.CartID, time.Now().UTC()); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "converting cart")
		}
		if input.RequireActiveCart {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart was already checked out")
		}
	}

	subOrderIDs := make([]uuid.UUID, 0, len(order.SubOrders))
	for _, sub := range order.SubOrders {
		subOrderIDs = append(subOrderIDs, sub.ID)
	}
	err := m.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateParentOrder,
		AggregateID:   order.ID,
		Actor:         &input.Actor,
		Data: payloads.OrderCreatedEvent{
			ParentOrderID: order.ID,
			SubOrderIDs:   subOrderIDs,
			PaymentMethod: input.PaymentMethod,
			TotalCents:    order.TotalCents,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queueing order event")
	}
	return order, nil
}
