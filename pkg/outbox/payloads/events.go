package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercaura/mercaura-backend/pkg/enums"
)

// OrderCreatedEvent signals a new parent order split across vendors.
type OrderCreatedEvent struct {
	ParentOrderID uuid.UUID           `json:"parent_order_id"`
	SubOrderIDs   []uuid.UUID         `json:"sub_order_ids"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	TotalCents    int                 `json:"total_cents"`
}

// OrderPaidEvent is emitted when a hosted payment is confirmed.
type OrderPaidEvent struct {
	ParentOrderID uuid.UUID `json:"parent_order_id"`
	SessionID     string    `json:"session_id"`
	PaidAt        time.Time `json:"paid_at"`
	AmountCents   int       `json:"amount_cents"`
}

// OrderStatusChangedEvent reports a vendor-driven sub-order transition.
type OrderStatusChangedEvent struct {
	SubOrderID    uuid.UUID            `json:"sub_order_id"`
	ParentOrderID uuid.UUID            `json:"parent_order_id"`
	VendorID      uuid.UUID            `json:"vendor_id"`
	FromStatus    enums.SubOrderStatus `json:"from_status"`
	ToStatus      enums.SubOrderStatus `json:"to_status"`
}

// OrderCancelledEvent is emitted whenever a pre-shipment sub-order is cancelled.
type OrderCancelledEvent struct {
	SubOrderID    uuid.UUID `json:"sub_order_id"`
	ParentOrderID uuid.UUID `json:"parent_order_id"`
	VendorID      uuid.UUID `json:"vendor_id"`
	CancelledAt   time.Time `json:"cancelled_at"`
	Reason        string    `json:"reason,omitempty"`
}

// PaymentReconciliationFailedEvent flags a paid session whose order could not
// be finalized and needs operator attention.
type PaymentReconciliationFailedEvent struct {
	SessionID  string    `json:"session_id"`
	UserID     uuid.UUID `json:"user_id"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}
