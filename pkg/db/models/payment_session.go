package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercaura/mercaura-backend/pkg/enums"
	"github.com/mercaura/mercaura-backend/pkg/types"
)

// PaymentSession tracks one hosted-checkout attempt. The snapshot carries the
// order draft; the pending -> completed transition is the idempotency gate
// for finalization.
type PaymentSession struct {
	ID            uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID     string                     `gorm:"column:session_id;not null;uniqueIndex"`
	UserID        uuid.UUID                  `gorm:"column:user_id;type:uuid;not null;index"`
	Status        enums.PaymentSessionStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Snapshot      types.CheckoutSnapshot     `gorm:"column:snapshot;type:jsonb;serializer:json"`
	ParentOrderID *uuid.UUID                 `gorm:"column:parent_order_id;type:uuid"`
	FailureReason *string                    `gorm:"column:failure_reason"`
	ExpiresAt     time.Time                  `gorm:"column:expires_at;not null"`
	CompletedAt   *time.Time                 `gorm:"column:completed_at"`
	CreatedAt     time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}
