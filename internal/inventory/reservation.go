package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercaura/mercaura-backend/pkg/db/models"
	pkgerrors "github.com/mercaura/mercaura-backend/pkg/errors"
)

// ReservationRequest asks for qty units of a product to be moved from the
// available bucket to the reserved bucket.
type ReservationRequest struct {
	ProductID uuid.UUID
	Qty       int
}

// ShortageDetail reports one product that blocked a reservation batch.
type ShortageDetail struct {
	ProductID uuid.UUID `json:"product_id"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// Reserve moves stock from available to reserved for every request, or fails
// the whole batch. Each decrement is a single conditional UPDATE guarded by
// available_qty >= qty, so concurrent checkouts can never oversell. A product
// with no ledger row fails as NOT_FOUND; a row that is merely short returns
// INSUFFICIENT_STOCK carrying per-product details. The caller's transaction
// rollback undoes the rows already decremented.
func Reserve(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) error {
	merged, err := mergeRequests(requests)
	if err != nil {
		return err
	}

	var shortages []ShortageDetail
	var missing []uuid.UUID
	for _, req := range merged {
		res := tx.WithContext(ctx).Model(&models.InventoryItem{}).
			Where("product_id = ? AND available_qty >= ?", req.ProductID, req.Qty).
			Updates(map[string]any{
				"available_qty": gorm.Expr("available_qty - ?", req.Qty),
				"reserved_qty":  gorm.Expr("reserved_qty + ?", req.Qty),
			})
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "reserving inventory")
		}
		if res.RowsAffected == 0 {
			available, found, lookupErr := availableQty(ctx, tx, req.ProductID)
			if lookupErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, lookupErr, "loading inventory row")
			}
			if !found {
				missing = append(missing, req.ProductID)
				continue
			}
			shortages = append(shortages, ShortageDetail{
				ProductID: req.ProductID,
				Requested: req.Qty,
				Available: available,
			})
		}
	}

	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no inventory ledger for product").
			WithDetails(map[string]any{"product_ids": missing})
	}
	if len(shortages) > 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(map[string]any{"items": shortages})
	}
	return nil
}

// Release returns previously reserved stock to the available bucket, used
// when a pending order is cancelled.
func Release(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) error {
	merged, err := mergeRequests(requests)
	if err != nil {
		return err
	}

	for _, req := range merged {
		res := tx.WithContext(ctx).Model(&models.InventoryItem{}).
			Where("product_id = ? AND reserved_qty >= ?", req.ProductID, req.Qty).
			Updates(map[string]any{
				"available_qty": gorm.Expr("available_qty + ?", req.Qty),
				"reserved_qty":  gorm.Expr("reserved_qty - ?", req.Qty),
			})
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "releasing inventory")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reserved quantity underflow").
				WithDetails(map[string]any{"product_id": req.ProductID, "qty": req.Qty})
		}
	}
	return nil
}

// CommitSale converts reserved stock into sold stock once a sub-order is
// delivered.
func CommitSale(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) error {
	merged, err := mergeRequests(requests)
	if err != nil {
		return err
	}

	for _, req := range merged {
		res := tx.WithContext(ctx).Model(&models.InventoryItem{}).
			Where("product_id = ? AND reserved_qty >= ?", req.ProductID, req.Qty).
			Updates(map[string]any{
				"reserved_qty": gorm.Expr("reserved_qty - ?", req.Qty),
				"sold_qty":     gorm.Expr("sold_qty + ?", req.Qty),
			})
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "committing inventory sale")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reserved quantity underflow").
				WithDetails(map[string]any{"product_id": req.ProductID, "qty": req.Qty})
		}
	}
	return nil
}

// mergeRequests validates quantities and collapses duplicate product IDs so
// a cart with the same product twice competes for stock once.
func mergeRequests(requests []ReservationRequest) ([]ReservationRequest, error) {
	if len(requests) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation requests required")
	}

	index := make(map[uuid.UUID]int, len(requests))
	merged := make([]ReservationRequest, 0, len(requests))
	for _, req := range requests {
		if req.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if req.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation qty must be positive")
		}
		if pos, ok := index[req.ProductID]; ok {
			merged[pos].Qty += req.Qty
			continue
		}
		index[req.ProductID] = len(merged)
		merged = append(merged, req)
	}
	return merged, nil
}

// availableQty reports the current available count and whether a ledger row
// exists at all, so a missing product is never mistaken for an empty one.
func availableQty(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (int, bool, error) {
	var item models.InventoryItem
	err := tx.WithContext(ctx).First(&item, "product_id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return item.AvailableQty, true, nil
}
