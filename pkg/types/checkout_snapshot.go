package types

import "github.com/google/uuid"

// SnapshotLine freezes one cart line at checkout time. Unit prices come from
// the live catalog at snapshot time and never change afterwards.
type SnapshotLine struct {
	ProductID      uuid.UUID `json:"product_id"`
	VendorID       uuid.UUID `json:"vendor_id"`
	Name           string    `json:"name"`
	UnitPriceCents int       `json:"unit_price_cents"`
	Qty            int       `json:"qty"`
	TotalCents     int       `json:"total_cents"`
}

// CheckoutSnapshot is the order draft stored on a hosted payment session.
// The parent order is materialized from this snapshot only after the
// provider confirms payment.
type CheckoutSnapshot struct {
	CartID     uuid.UUID      `json:"cart_id"`
	UserID     uuid.UUID      `json:"user_id"`
	Address    Address        `json:"address"`
	Lines      []SnapshotLine `json:"lines"`
	TotalCents int            `json:"total_cents"`
}
