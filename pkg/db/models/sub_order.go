package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercaura/mercaura-backend/pkg/enums"
)

// SubOrder is the per-vendor slice of a parent order. Vendors only ever see
// and act on their own sub-orders.
type SubOrder struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ParentOrderID uuid.UUID            `gorm:"column:parent_order_id;type:uuid;not null;index"`
	VendorID      uuid.UUID            `gorm:"column:vendor_id;type:uuid;not null;index"`
	Status        enums.SubOrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Position      int                  `gorm:"column:position;not null;default:0"`
	SubtotalCents int                  `gorm:"column:subtotal_cents;not null"`
	CancelledAt   *time.Time           `gorm:"column:cancelled_at"`
	Items         []OrderLineItem      `gorm:"foreignKey:SubOrderID;constraint:OnDelete:CASCADE"`
	ParentOrder   *ParentOrder         `gorm:"foreignKey:ParentOrderID"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
