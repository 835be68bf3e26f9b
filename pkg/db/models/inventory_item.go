package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem tracks available/reserved/sold counts per product.
// available_qty never goes negative; reservations move quantity between
// the available and reserved buckets inside a single statement.
type InventoryItem struct {
	ProductID    uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	AvailableQty int       `gorm:"column:available_qty;not null;default:0"`
	ReservedQty  int       `gorm:"column:reserved_qty;not null;default:0"`
	SoldQty      int       `gorm:"column:sold_qty;not null;default:0"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
