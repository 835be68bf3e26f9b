package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/mercaura/mercaura-backend/internal/checkout"
	"github.com/mercaura/mercaura-backend/internal/orders"
	"github.com/mercaura/mercaura-backend/pkg/config"
	"github.com/mercaura/mercaura-backend/pkg/db/models"
	"github.com/mercaura/mercaura-backend/pkg/enums"
	pkgerrors "github.com/mercaura/mercaura-backend/pkg/errors"
	"github.com/mercaura/mercaura-backend/pkg/logger"
	"github.com/mercaura/mercaura-backend/pkg/metrics"
	"github.com/mercaura/mercaura-backend/pkg/outbox"
	"github.com/mercaura/mercaura-backend/pkg/outbox/payloads"
	"github.com/mercaura/mercaura-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service bridges hosted checkout sessions to durable orders.
type Service interface {
	Launch(ctx context.Context, snapshot types.CheckoutSnapshot) (*checkout.SessionLaunch, error)
	VerifySession(ctx context.Context, userID uuid.UUID, sessionID string) (*orders.ParentOrderDTO, error)
}

type service struct {
	repo         *Repository
	orders       orders.Repository
	materializer *checkout.Materializer
	stripe       StripeCheckoutClient
	tx           txRunner
	outbox       outboxPublisher
	metrics      *metrics.CheckoutMetrics
	logg         *logger.Logger
	cfg          config.CheckoutConfig
}

// ServiceParams collects the payment service dependencies.
type ServiceParams struct {
	Repo         *Repository
	Orders       orders.Repository
	Materializer *checkout.Materializer
	Stripe       StripeCheckoutClient
	Tx           txRunner
	Outbox       outboxPublisher
	Metrics      *metrics.CheckoutMetrics
	Logger       *logger.Logger
	Config       config.CheckoutConfig
}

// NewService builds the payment reconciler.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment repository required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.Materializer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "materializer required")
	}
	if params.Stripe == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox publisher required")
	}
	return &service{
		repo:         params.Repo,
		orders:       params.Orders,
		materializer: params.Materializer,
		stripe:       params.Stripe,
		tx:           params.Tx,
		outbox:       params.Outbox,
		metrics:      params.Metrics,
		logg:         params.Logger,
		cfg:          params.Config,
	}, nil
}

// Launch opens a hosted checkout session for the snapshot and persists the
// pending session row. No stock is touched and no order exists yet.
func (s *service) Launch(ctx context.Context, snapshot types.CheckoutSnapshot) (*checkout.SessionLaunch, error) {
	if len(snapshot.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(line.Qty)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(int64(line.UnitPriceCents)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
			},
		})
	}

	amount := decimal.NewFromInt(int64(snapshot.TotalCents)).Div(decimal.NewFromInt(100))
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.cfg.SuccessURL + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(s.cfg.CancelURL),
		ClientReferenceID: stripe.String(snapshot.UserID.String()),
		LineItems:         lineItems,
	}
	params.AddMetadata("cart_id", snapshot.CartID.String())
	params.AddMetadata("amount", amount.StringFixed(2))

	sess, err := s.stripe.CreateSession(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating checkout session")
	}

	row := &models.PaymentSession{
		ID:        uuid.New(),
		SessionID: sess.ID,
		UserID:    snapshot.UserID,
		Status:    enums.PaymentSessionStatusPending,
		Snapshot:  snapshot,
		ExpiresAt: time.Now().UTC().Add(s.cfg.SessionTTL),
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting payment session")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentSessionCreated,
			AggregateType: enums.AggregatePaymentSession,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{UserID: snapshot.UserID, Role: string(enums.MemberRoleCustomer)},
			Data: map[string]any{
				"session_id":  sess.ID,
				"total_cents": snapshot.TotalCents,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	return &checkout.SessionLaunch{SessionID: sess.ID, RedirectURL: sess.URL}, nil
}

// VerifySession finalizes a hosted checkout exactly once. The pending to
// completed flip on the session row is the idempotency gate: the first
// verified call materializes the order, every later call returns it.
func (s *service) VerifySession(ctx context.Context, userID uuid.UUID, sessionID string) (*orders.ParentOrderDTO, error) {
	row, err := s.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading payment session")
	}
	if row == nil || row.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSession, "unknown payment session")
	}

	switch row.Status {
	case enums.PaymentSessionStatusCompleted:
		return s.completedOrder(ctx, row)
	case enums.PaymentSessionStatusFailed:
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSession, "payment session failed")
	case enums.PaymentSessionStatusExpired:
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSession, "payment session expired")
	}

	now := time.Now().UTC()
	if now.After(row.ExpiresAt) {
		if err := s.repo.MarkExpired(ctx, row.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "expiring payment session")
		}
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSession, "payment session expired")
	}

	getParams := &stripe.CheckoutSessionParams{}
	getParams.AddExpand("payment_intent.latest_charge")
	sess, err := s.stripe.GetSession(ctx, sessionID, getParams)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieving checkout session")
	}
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSession, "payment not completed")
	}

	var receiptURL *string
	if sess.PaymentIntent != nil && sess.PaymentIntent.LatestCharge != nil && sess.PaymentIntent.LatestCharge.ReceiptURL != "" {
		url := sess.PaymentIntent.LatestCharge.ReceiptURL
		receiptURL = &url
	}

	var (
		order       *models.ParentOrder
		alreadyDone bool
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		claimed, err := repo.ClaimCompleted(ctx, row.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "claiming payment session")
		}
		if !claimed {
			alreadyDone = true
			return nil
		}

		providerID := sessionID
		created, err := s.materializer.Materialize(ctx, tx, checkout.MaterializeInput{
			Snapshot:      row.Snapshot,
			PaymentMethod: enums.PaymentMethodCard,
			Paid: &orders.PaymentResult{
				SessionID:  &providerID,
				ReceiptURL: receiptURL,
				PaidAt:     now,
			},
			Actor: outbox.ActorRef{UserID: userID, Role: string(enums.MemberRoleCustomer)},
		})
		if err != nil {
			return err
		}
		if err := repo.AttachParentOrder(ctx, row.ID, created.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "linking order to session")
		}
		order = created

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateParentOrder,
			AggregateID:   created.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: string(enums.MemberRoleCustomer)},
			Data: payloads.OrderPaidEvent{
				ParentOrderID: created.ID,
				SessionID:     sessionID,
				PaidAt:        now,
				AmountCents:   created.TotalCents,
			},
		})
	})
	if err != nil {
		return nil, s.reconciliationFailure(ctx, row, err)
	}
	if alreadyDone {
		// lost the race to a concurrent verify; hand back its order
		return s.completedOrder(ctx, row)
	}

	if s.metrics != nil {
		s.metrics.IncOrderCreated(string(enums.PaymentMethodCard))
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"session_id":      sessionID,
			"parent_order_id": order.ID.String(),
		})
		s.logg.Info(logCtx, "payment session finalized")
	}
	dto := orders.ToParentOrderDTO(*order)
	return &dto, nil
}

// completedOrder resolves the order already linked to a finalized session.
func (s *service) completedOrder(ctx context.Context, row *models.PaymentSession) (*orders.ParentOrderDTO, error) {
	fresh, err := s.repo.FindBySessionID(ctx, row.SessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading payment session")
	}
	if fresh == nil || fresh.ParentOrderID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSession, "payment session has no order")
	}
	order, err := s.orders.FindParentByID(ctx, *fresh.ParentOrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading finalized order")
	}
	dto := orders.ToParentOrderDTO(*order)
	return &dto, nil
}

// reconciliationFailure handles the one failure that cannot unwind: the
// provider captured the payment but the order could not be created. The
// session is marked failed, the event queued for operators, and the caller
// gets a distinct integrity error instead of a silent retry.
func (s *service) reconciliationFailure(ctx context.Context, row *models.PaymentSession, cause error) error {
	reason := fmt.Sprintf("order materialization failed: %v", cause)
	markErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).MarkFailed(ctx, row.ID, reason); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentReconciliationFailed,
			AggregateType: enums.AggregatePaymentSession,
			AggregateID:   row.ID,
			Data: payloads.PaymentReconciliationFailedEvent{
				SessionID:  row.SessionID,
				UserID:     row.UserID,
				Reason:     reason,
				OccurredAt: time.Now().UTC(),
			},
		})
	})

	if s.metrics != nil {
		s.metrics.IncReconciliationFailure()
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"session_id": row.SessionID,
			"user_id":    row.UserID.String(),
		})
		if markErr != nil {
			logCtx = s.logg.WithField(logCtx, "mark_error", markErr.Error())
		}
		s.logg.Error(logCtx, "payment captured but order not created", cause)
	}
	return pkgerrors.Wrap(pkgerrors.CodeIntegrityFailure, cause, "payment captured but order could not be created")
}
