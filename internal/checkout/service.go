package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercaura/mercaura-backend/internal/cart"
	"github.com/mercaura/mercaura-backend/internal/orders"
	"github.com/mercaura/mercaura-backend/pkg/db/models"
	"github.com/mercaura/mercaura-backend/pkg/enums"
	pkgerrors "github.com/mercaura/mercaura-backend/pkg/errors"
	"github.com/mercaura/mercaura-backend/pkg/logger"
	"github.com/mercaura/mercaura-backend/pkg/metrics"
	"github.com/mercaura/mercaura-backend/pkg/outbox"
	"github.com/mercaura/mercaura-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SessionLaunch is the handle returned when a hosted payment session starts.
type SessionLaunch struct {
	SessionID   string
	RedirectURL string
}

// sessionLauncher starts a hosted checkout for a snapshot. The card path
// defers all stock and order work to the later verification callback.
type sessionLauncher interface {
	Launch(ctx context.Context, snapshot types.CheckoutSnapshot) (*SessionLaunch, error)
}

// CheckoutInput is the request body of a checkout attempt.
type CheckoutInput struct {
	PaymentMethod   enums.PaymentMethod
	ShippingAddress types.Address
}

// CheckoutResult carries either the created order (COD) or the provider
// redirect (card).
type CheckoutResult struct {
	Order       *orders.ParentOrderDTO `json:"order,omitempty"`
	RedirectURL *string                `json:"redirect_url,omitempty"`
}

// Service is the checkout entry point.
type Service interface {
	Checkout(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*CheckoutResult, error)
}

type service struct {
	carts        *cart.Repository
	resolver     *cart.Resolver
	materializer *Materializer
	sessions     sessionLauncher
	tx           txRunner
	metrics      *metrics.CheckoutMetrics
	logg         *logger.Logger
}

// ServiceParams collects the checkout service dependencies.
type ServiceParams struct {
	Carts        *cart.Repository
	Resolver     *cart.Resolver
	Materializer *Materializer
	Sessions     sessionLauncher
	Tx           txRunner
	Metrics      *metrics.CheckoutMetrics
	Logger       *logger.Logger
}

// NewService builds the checkout orchestrator.
func NewService(params ServiceParams) (Service, error) {
	if params.Carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart repository required")
	}
	if params.Resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart resolver required")
	}
	if params.Materializer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "materializer required")
	}
	if params.Sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session launcher required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &service{
		carts:        params.Carts,
		resolver:     params.Resolver,
		materializer: params.Materializer,
		sessions:     params.Sessions,
		tx:           params.Tx,
		metrics:      params.Metrics,
		logg:         params.Logger,
	}, nil
}

func (s *service) Checkout(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*CheckoutResult, error) {
	start := time.Now()
	result, err := s.checkout(ctx, userID, input)
	s.observe(input.PaymentMethod, err, time.Since(start))
	return result, err
}

func (s *service) checkout(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*CheckoutResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if err := input.ShippingAddress.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}

	record, err := s.carts.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	resolved, err := s.resolver.Resolve(ctx, record)
	if err != nil {
		return nil, err
	}

	snapshot := types.CheckoutSnapshot{
		CartID:     resolved.CartID,
		UserID:     userID,
		Address:    input.ShippingAddress,
		Lines:      resolved.Lines,
		TotalCents: resolved.TotalCents,
	}

	switch input.PaymentMethod {
	case enums.PaymentMethodCashOnDelivery:
		return s.checkoutCOD(ctx, userID, snapshot)
	case enums.PaymentMethodCard:
		return s.checkoutCard(ctx, snapshot)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
}

// checkoutCOD creates the order synchronously, unpaid. Everything runs in a
// single transaction: any failure leaves stock and the cart untouched.
func (s *service) checkoutCOD(ctx context.Context, userID uuid.UUID, snapshot types.CheckoutSnapshot) (*CheckoutResult, error) {
	var order *models.ParentOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.materializer.Materialize(ctx, tx, MaterializeInput{
			Snapshot:          snapshot,
			PaymentMethod:     enums.PaymentMethodCashOnDelivery,
			RequireActiveCart: true,
			Actor:             outbox.ActorRef{UserID: userID, Role: string(enums.MemberRoleCustomer)},
		})
		if err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"parent_order_id": order.ID.String(),
			"total_cents":     order.TotalCents,
			"sub_orders":      len(order.SubOrders),
		})
		s.logg.Info(logCtx, "checkout completed")
	}
	dto := orders.ToParentOrderDTO(*order)
	return &CheckoutResult{Order: &dto}, nil
}

// checkoutCard only snapshots the resolved cart and opens a provider
// session. Stock stays untouched until the session verifies as paid.
func (s *service) checkoutCard(ctx context.Context, snapshot types.CheckoutSnapshot) (*CheckoutResult, error) {
	launch, err := s.sessions.Launch(ctx, snapshot)
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithField(ctx, "session_id", launch.SessionID)
		s.logg.Info(logCtx, "hosted checkout session created")
	}
	redirect := launch.RedirectURL
	return &CheckoutResult{RedirectURL: &redirect}, nil
}

func (s *service) observe(method enums.PaymentMethod, err error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
		if typed := pkgerrors.As(err); typed != nil {
			switch typed.Code() {
			case pkgerrors.CodeInsufficientStock:
				outcome = "insufficient_stock"
				s.metrics.IncStockRejection()
			case pkgerrors.CodeValidation:
				outcome = "rejected"
			}
		}
	} else if method == enums.PaymentMethodCashOnDelivery {
		s.metrics.IncOrderCreated(string(method))
	}
	s.metrics.ObserveCheckout(string(method), outcome, elapsed)
}
