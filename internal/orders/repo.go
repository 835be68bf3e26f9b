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

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateParentOrder persists the full order graph in one Create: the parent,
// its sub-orders, and their line items. Callers assign IDs up front.
func (r *repository) CreateParentOrder(ctx context.Context, order *models.ParentOrder) (*models.ParentOrder, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindParentByID(ctx context.Context, id uuid.UUID) (*models.ParentOrder, error) {
	var order models.ParentOrder
	err := r.db.WithContext(ctx).
		Preload("SubOrders", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("SubOrders.Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindSubOrder(ctx context.Context, id uuid.UUID) (*models.SubOrder, error) {
	var sub models.SubOrder
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("ParentOrder").
		Where("id = ?", id).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) ListParentOrdersByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.ParentOrder, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Preload("SubOrders", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("SubOrders.Items").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.ParentOrder
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListSubOrdersByVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) ([]models.SubOrder, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Preload("Items").
		Preload("ParentOrder").
		Preload("ParentOrder.User").
		Where("vendor_id = ?", vendorID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.SubOrder
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateSubOrderStatus is the optimistic write: the expected status rides in
// the WHERE clause so a stale caller hits zero rows instead of clobbering a
// concurrent transition.
func (r *repository) UpdateSubOrderStatus(ctx context.Context, id uuid.UUID, expected, next enums.SubOrderStatus, cancelledAt *time.Time) error {
	updates := map[string]any{"status": next}
	if cancelledAt != nil {
		updates["cancelled_at"] = *cancelledAt
	}
	res := r.db.WithContext(ctx).Model(&models.SubOrder{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkParentPaid flips is_paid once. Returns false without error when the
// order was already paid, which is how finalize stays idempotent.
func (r *repository) MarkParentPaid(ctx context.Context, id uuid.UUID, result PaymentResult) (bool, error) {
	paidAt := result.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	updates := map[string]any{
		"is_paid": true,
		"paid_at": paidAt,
	}
	if result.SessionID != nil {
		updates["payment_session_id"] = *result.SessionID
	}
	if result.ReceiptURL != nil {
		updates["receipt_url"] = *result.ReceiptURL
	}
	res := r.db.WithContext(ctx).Model(&models.ParentOrder{}).
		Where("id = ? AND is_paid = ?", id, false).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
