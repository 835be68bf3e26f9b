package products

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercaura/mercaura-backend/pkg/db/models"
)

// ProductDTO represents the catalog payload returned to clients.
type ProductDTO struct {
	ID          uuid.UUID     `json:"id"`
	VendorID    uuid.UUID     `json:"vendor_id"`
	SKU         string        `json:"sku"`
	Title       string        `json:"title"`
	Description *string       `json:"description,omitempty"`
	PriceCents  int           `json:"price_cents"`
	IsActive    bool          `json:"is_active"`
	Inventory   *InventoryDTO `json:"inventory,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// InventoryDTO exposes inventory counts.
type InventoryDTO struct {
	AvailableQty int       `json:"available_qty"`
	ReservedQty  int       `json:"reserved_qty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProductListResult is one cursor page of catalog products.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor *string      `json:"next_cursor,omitempty"`
}

func toProductDTO(p models.Product) ProductDTO {
	dto := ProductDTO{
		ID:          p.ID,
		VendorID:    p.VendorID,
		SKU:         p.SKU,
		Title:       p.Title,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Inventory != nil {
		dto.Inventory = &InventoryDTO{
			AvailableQty: p.Inventory.AvailableQty,
			ReservedQty:  p.Inventory.ReservedQty,
			UpdatedAt:    p.Inventory.UpdatedAt,
		}
	}
	return dto
}
