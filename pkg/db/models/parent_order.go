package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercaura/mercaura-backend/pkg/enums"
	"github.com/mercaura/mercaura-backend/pkg/types"
)

// ParentOrder is the customer-facing order produced by one checkout. Its
// status is not stored: it is derived from the sub-orders on read.
type ParentOrder struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	CartID           *uuid.UUID          `gorm:"column:cart_id;type:uuid"`
	ShippingAddress  types.Address       `gorm:"column:shipping_address;type:jsonb"`
	PaymentMethod    enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	IsPaid           bool                `gorm:"column:is_paid;not null;default:false"`
	PaidAt           *time.Time          `gorm:"column:paid_at"`
	PaymentSessionID *string             `gorm:"column:payment_session_id"`
	ReceiptURL       *string             `gorm:"column:receipt_url"`
	TotalCents       int                 `gorm:"column:total_cents;not null"`
	SubOrders        []SubOrder          `gorm:"foreignKey:ParentOrderID;constraint:OnDelete:CASCADE"`
	User             *User               `gorm:"foreignKey:UserID"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// Status derives the aggregate state from the sub-orders. All cancelled means
// cancelled, all delivered means delivered, otherwise the least advanced
// non-cancelled sub-order wins.
func (p ParentOrder) Status() enums.SubOrderStatus {
	if len(p.SubOrders) == 0 {
		return enums.SubOrderStatusPending
	}

	var (
		minRank      = -1
		allCancelled = true
	)
	for _, sub := range p.SubOrders {
		if sub.Status == enums.SubOrderStatusCancelled {
			continue
		}
		allCancelled = false
		rank, ok := sub.Status.Rank()
		if !ok {
			continue
		}
		if minRank < 0 || rank < minRank {
			minRank = rank
		}
	}
	if allCancelled {
		return enums.SubOrderStatusCancelled
	}

	switch minRank {
	case 0:
		return enums.SubOrderStatusPending
	case 1:
		return enums.SubOrderStatusProcessing
	case 2:
		return enums.SubOrderStatusShipped
	case 3:
		return enums.SubOrderStatusDelivered
	default:
		return enums.SubOrderStatusPending
	}
}
