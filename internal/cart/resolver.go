package cart

import (
	"context"

	"github.com/google/uuid"

	"github.com/mercaura/mercaura-backend/pkg/db/models"
	pkgerrors "github.com/mercaura/mercaura-backend/pkg/errors"
	"github.com/mercaura/mercaura-backend/pkg/types"
)

type catalogLoader interface {
	FindActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

// Resolver turns raw cart lines into priced snapshot lines. Prices always
// come from the live catalog at resolve time; the cart never stores them.
type Resolver struct {
	catalog catalogLoader
}

// NewResolver builds a resolver over the product catalog.
func NewResolver(catalog catalogLoader) (*Resolver, error) {
	if catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog loader required")
	}
	return &Resolver{catalog: catalog}, nil
}

// ResolvedCart is the priced view of a cart, ready for checkout.
type ResolvedCart struct {
	CartID     uuid.UUID
	Lines      []types.SnapshotLine
	TotalCents int
}

// Resolve prices every cart line against the live catalog. An empty cart or
// any missing/inactive product fails the whole resolution.
func (r *Resolver) Resolve(ctx context.Context, record *models.CartRecord) (*ResolvedCart, error) {
	if record == nil || len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	ids := make([]uuid.UUID, 0, len(record.Items))
	for _, item := range record.Items {
		ids = append(ids, item.ProductID)
	}

	products, err := r.catalog.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart products")
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	resolved := &ResolvedCart{
		CartID: record.ID,
		Lines:  make([]types.SnapshotLine, 0, len(record.Items)),
	}

	var unavailable []uuid.UUID
	for _, item := range record.Items {
		p, ok := byID[item.ProductID]
		if !ok {
			unavailable = append(unavailable, item.ProductID)
			continue
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart quantity must be positive")
		}
		line := types.SnapshotLine{
			ProductID:      p.ID,
			VendorID:       p.VendorID,
			Name:           p.Title,
			UnitPriceCents: p.PriceCents,
			Qty:            item.Quantity,
			TotalCents:     p.PriceCents * item.Quantity,
		}
		resolved.Lines = append(resolved.Lines, line)
		resolved.TotalCents += line.TotalCents
	}

	if len(unavailable) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart contains unavailable products").
			WithDetails(map[string]any{"product_ids": unavailable})
	}

	return resolved, nil
}
