package inventory

import (
	"context"

	"gorm.io/gorm"
)

// Ledger adapts the package-level stock operations for injection into
// services that want a stubbable dependency.
type Ledger struct{}

func (Ledger) Reserve(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) error {
	return Reserve(ctx, tx, requests)
}

func (Ledger) Release(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) error {
	return Release(ctx, tx, requests)
}

func (Ledger) CommitSale(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) error {
	return CommitSale(ctx, tx, requests)
}
