package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/mercaura/mercaura-backend/pkg/logger"
)

// Pending sessions past their TTL can never be finalized; the sweep makes
// that terminal state visible instead of leaving rows pending forever.
type PaymentExpiryJobParams struct {
	Logger     *logger.Logger
	Repository paymentExpiryRepo
}

type paymentExpiryRepo interface {
	ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

func NewPaymentExpiryJob(params PaymentExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("payment sessions repository required")
	}
	return &paymentExpiryJob{
		logg: params.Logger,
		repo: params.Repository,
		now:  time.Now,
	}, nil
}

type paymentExpiryJob struct {
	logg *logger.Logger
	repo paymentExpiryRepo
	now  func() time.Time
}

func (j *paymentExpiryJob) Name() string { return "payment-session-expiry" }

func (j *paymentExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	expired, err := j.repo.ExpirePendingBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("payment session expiry: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_expired": expired,
	})
	j.logg.Info(logCtx, "payment session expiry sweep complete")
	return nil
}
