package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercaura/mercaura-backend/pkg/db/models"
	"github.com/mercaura/mercaura-backend/pkg/enums"
	"github.com/mercaura/mercaura-backend/pkg/pagination"
)

// Repository defines persistence operations for order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateParentOrder(ctx context.Context, order *models.ParentOrder) (*models.ParentOrder, error)
	FindParentByID(ctx context.Context, id uuid.UUID) (*models.ParentOrder, error)
	FindSubOrder(ctx context.Context, id uuid.UUID) (*models.SubOrder, error)
	ListParentOrdersByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.ParentOrder, error)
	ListSubOrdersByVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) ([]models.SubOrder, error)
	UpdateSubOrderStatus(ctx context.Context, id uuid.UUID, expected, next enums.SubOrderStatus, cancelledAt *time.Time) error
	MarkParentPaid(ctx context.Context, id uuid.UUID, result PaymentResult) (bool, error)
}

// PaymentResult carries provider facts onto the parent order row.
type PaymentResult struct {
	SessionID  *string
	ReceiptURL *string
	PaidAt     time.Time
}
