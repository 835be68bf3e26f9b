package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercaura/mercaura-backend/pkg/db/models"
	"github.com/mercaura/mercaura-backend/pkg/enums"
)

// Repository persists hosted-checkout payment sessions.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new pending session row.
func (r *Repository) Create(ctx context.Context, session *models.PaymentSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// FindBySessionID loads a session by its provider id. Returns nil without
// error when the id is unknown.
func (r *Repository) FindBySessionID(ctx context.Context, sessionID string) (*models.PaymentSession, error) {
	var session models.PaymentSession
	err := r.db.WithContext(ctx).
		First(&session, "session_id = ?", sessionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// ClaimCompleted is the checked-and-set finalization gate: only a pending row
// moves to completed, and only one caller wins the race. Returns false when
// the row was no longer pending.
func (r *Repository) ClaimCompleted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.PaymentSession{}).
		Where("id = ? AND status = ?", id, enums.PaymentSessionStatusPending).
		Updates(map[string]any{
			"status":       enums.PaymentSessionStatusCompleted,
			"completed_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// AttachParentOrder links the materialized order to the completed session.
func (r *Repository) AttachParentOrder(ctx context.Context, id, parentOrderID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.PaymentSession{}).
		Where("id = ?", id).
		Update("parent_order_id", parentOrderID).Error
}

// MarkFailed records why a pending session could not be finalized.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).Model(&models.PaymentSession{}).
		Where("id = ? AND status = ?", id, enums.PaymentSessionStatusPending).
		Updates(map[string]any{
			"status":         enums.PaymentSessionStatusFailed,
			"failure_reason": reason,
		}).Error
}

// MarkExpired retires a single pending session past its TTL.
func (r *Repository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.PaymentSession{}).
		Where("id = ? AND status = ?", id, enums.PaymentSessionStatusPending).
		Update("status", enums.PaymentSessionStatusExpired).Error
}

// ExpirePendingBefore sweeps stale pending sessions past their TTL.
func (r *Repository) ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.PaymentSession{}).
		Where("status = ? AND expires_at < ?", enums.PaymentSessionStatusPending, cutoff).
		Update("status", enums.PaymentSessionStatusExpired)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
