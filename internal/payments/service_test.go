package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mercaura/mercaura-backend/internal/cart"
	"github.com/mercaura/mercaura-backend/internal/checkout"
	"github.com/mercaura/mercaura-backend/internal/inventory"
	"github.com/mercaura/mercaura-backend/internal/orders"
	"github.com/mercaura/mercaura-backend/pkg/config"
	"github.com/mercaura/mercaura-backend/pkg/db"
	"github.com/mercaura/mercaura-backend/pkg/db/models"
	"github.com/mercaura/mercaura-backend/pkg/enums"
	pkgerrors "github.com/mercaura/mercaura-backend/pkg/errors"
	"github.com/mercaura/mercaura-backend/pkg/outbox"
	"github.com/mercaura/mercaura-backend/pkg/types"
)

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:payments_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	ddl := []string{`
CREATE TABLE IF NOT EXISTS inventory_items (
  product_id TEXT PRIMARY KEY,
  available_qty INTEGER NOT NULL DEFAULT 0,
  reserved_qty INTEGER NOT NULL DEFAULT 0,
  sold_qty INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS cart_records (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  converted_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS parent_orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  cart_id TEXT,
  shipping_address TEXT,
  payment_method TEXT NOT NULL,
  is_paid INTEGER NOT NULL DEFAULT 0,
  paid_at DATETIME,
  payment_session_id TEXT,
  receipt_url TEXT,
  total_cents INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS sub_orders (
  id TEXT PRIMARY KEY,
  parent_order_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  position INTEGER NOT NULL DEFAULT 0,
  subtotal_cents INTEGER NOT NULL,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  sub_order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  qty INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS payment_sessions (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  snapshot TEXT,
  parent_order_id TEXT,
  failure_reason TEXT,
  expires_at DATETIME NOT NULL,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`}
	for _, stmt := range ddl {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

type stubStripe struct {
	created *stripe.CheckoutSession
	fetched *stripe.CheckoutSession
	getErr  error
	gets    int
}

func (s *stubStripe) CreateSession(_ context.Context, _ *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return s.created, nil
}

func (s *stubStripe) GetSession(_ context.Context, _ string, _ *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	s.gets++
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.fetched, nil
}

func newPaymentsService(t *testing.T, conn *gorm.DB, client StripeCheckoutClient) Service {
	t.Helper()

	orderRepo := orders.NewRepository(conn)
	publisher := outbox.NewService(outbox.NewRepository(conn), nil)
	materializer, err := checkout.NewMaterializer(cart.NewRepository(conn), orderRepo, inventory.Ledger{}, publisher)
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:         NewRepository(conn),
		Orders:       orderRepo,
		Materializer: materializer,
		Stripe:       client,
		Tx:           db.FromConn(conn),
		Outbox:       publisher,
		Config: config.CheckoutConfig{
			SessionTTL: 30 * time.Minute,
			SuccessURL: "https://shop.example.com/checkout/success",
			CancelURL:  "https://shop.example.com/checkout/cancel",
		},
	})
	require.NoError(t, err)
	return svc
}

func paidStripeSession(id, receiptURL string) *stripe.CheckoutSession {
	return &stripe.CheckoutSession{
		ID:            id,
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		PaymentIntent: &stripe.PaymentIntent{
			LatestCharge: &stripe.Charge{ReceiptURL: receiptURL},
		},
	}
}

func testSnapshot(userID, cartID uuid.UUID, lines []types.SnapshotLine) types.CheckoutSnapshot {
	total := 0
	for _, line := range lines {
		total += line.TotalCents
	}
	return types.CheckoutSnapshot{
		CartID: cartID,
		UserID: userID,
		Address: types.Address{
			Line1: "12 Harbor Way", City: "Portsmouth", State: "NH", PostalCode: "03801", Country: "US",
		},
		Lines:      lines,
		TotalCents: total,
	}
}

func seedPendingSession(t *testing.T, conn *gorm.DB, sessionID string, snapshot types.CheckoutSnapshot, expiresAt time.Time) *models.PaymentSession {
	t.Helper()
	row := &models.PaymentSession{
		ID:        uuid.New(),
		SessionID: sessionID,
		UserID:    snapshot.UserID,
		Status:    enums.PaymentSessionStatusPending,
		Snapshot:  snapshot,
		ExpiresAt: expiresAt,
	}
	require.NoError(t, conn.Create(row).Error)
	return row
}

func TestLaunchPersistsPendingSession(t *testing.T) {
	conn := setupPaymentsTestDB(t)
	ctx := context.Background()
	userID := uuid.New()

	client := &stubStripe{created: &stripe.CheckoutSession{
		ID:  "cs_test_launch",
		URL: "https://checkout.stripe.com/pay/cs_test_launch",
	}}
	svc := newPaymentsService(t, conn, client)

	snapshot := testSnapshot(userID, uuid.New(), []types.SnapshotLine{
		{ProductID: uuid.New(), VendorID: uuid.New(), Name: "Ceramic Mug", UnitPriceCents: 1000, Qty: 2, TotalCents: 2000},
	})
	launch, err := svc.Launch(ctx, snapshot)
	require.NoError(t, err)
	assert.Equal(t, "cs_test_launch", launch.SessionID)
	assert.Equal(t, "https://checkout.stripe.com/pay/cs_test_launch", launch.RedirectURL)

	var row models.PaymentSession
	require.NoError(t, conn.First(&row, "session_id = ?", "cs_test_launch").Error)
	assert.Equal(t, enums.PaymentSessionStatusPending, row.Status)
	assert.Equal(t, userID, row.UserID)
	assert.Equal(t, 2000, row.Snapshot.TotalCents)
	assert.True(t, row.ExpiresAt.After(time.Now()))

	var events int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventPaymentSessionCreated).
		Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestVerifySessionMaterializesOrderOnce(t *testing.T) {
	conn := setupPaymentsTestDB(t)
	ctx := context.Background()
	userID := uuid.New()
	vendorID := uuid.New()
	productID := uuid.New()

	require.NoError(t, conn.Create(&models.InventoryItem{
		ProductID: productID, AvailableQty: 5,
	}).Error)

	snapshot := testSnapshot(userID, uuid.New(), []types.SnapshotLine{
		{ProductID: productID, VendorID: vendorID, Name: "Ceramic Mug", UnitPriceCents: 1000, Qty: 2, TotalCents: 2000},
	})
	seedPendingSession(t, conn, "cs_test_ok", snapshot, time.Now().Add(30*time.Minute))

	client := &stubStripe{fetched: paidStripeSession("cs_test_ok", "https://pay.stripe.com/receipts/abc")}
	svc := newPaymentsService(t, conn, client)

	order, err := svc.VerifySession(ctx, userID, "cs_test_ok")
	require.NoError(t, err)
	assert.True(t, order.IsPaid)
	require.NotNil(t, order.ReceiptURL)
	assert.Equal(t, "https://pay.stripe.com/receipts/abc", *order.ReceiptURL)
	assert.Equal(t, 2000, order.TotalCents)
	require.Len(t, order.SubOrders, 1)
	assert.Equal(t, vendorID, order.SubOrders[0].VendorID)

	var item models.InventoryItem
	require.NoError(t, conn.First(&item, "product_id = ?", productID).Error)
	assert.Equal(t, 3, item.AvailableQty)
	assert.Equal(t, 2, item.ReservedQty)

	var row models.PaymentSession
	require.NoError(t, conn.First(&row, "session_id = ?", "cs_test_ok").Error)
	assert.Equal(t, enums.PaymentSessionStatusCompleted, row.Status)
	require.NotNil(t, row.ParentOrderID)
	assert.Equal(t, order.ID, *row.ParentOrderID)

	// second verify returns the same order without another reservation
	again, err := svc.VerifySession(ctx, userID, "cs_test_ok")
	require.NoError(t, err)
	assert.Equal(t, order.ID, again.ID)

	require.NoError(t, conn.First(&item, "product_id = ?", productID).Error)
	assert.Equal(t, 3, item.AvailableQty)

	var orderCount int64
	require.NoError(t, conn.Model(&models.ParentOrder{}).Count(&orderCount).Error)
	assert.Equal(t, int64(1), orderCount)
}

func TestVerifySessionUnknownOrForeign(t *testing.T) {
	conn := setupPaymentsTestDB(t)
	ctx := context.Background()
	svc := newPaymentsService(t, conn, &stubStripe{})

	_, err := svc.VerifySession(ctx, uuid.New(), "cs_missing")
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeInvalidSession, appErr.Code())

	// a session belonging to someone else looks unknown too
	owner := uuid.New()
	snapshot := testSnapshot(owner, uuid.New(), []types.SnapshotLine{
		{ProductID: uuid.New(), VendorID: uuid.New(), Name: "Ceramic Mug", UnitPriceCents: 1000, Qty: 1, TotalCents: 1000},
	})
	seedPendingSession(t, conn, "cs_foreign", snapshot, time.Now().Add(time.Hour))

	_, err = svc.VerifySession(ctx, uuid.New(), "cs_foreign")
	require.Error(t, err)
	appErr = pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeInvalidSession, appErr.Code())
}

func TestVerifySessionUnpaidStaysPending(t *testing.T) {
	conn := setupPaymentsTestDB(t)
	ctx := context.Background()
	userID := uuid.New()

	snapshot := testSnapshot(userID, uuid.New(), []types.SnapshotLine{
		{ProductID: uuid.New(), VendorID: uuid.New(), Name: "Ceramic Mug", UnitPriceCents: 1000, Qty: 1, TotalCents: 1000},
	})
	seedPendingSession(t, conn, "cs_unpaid", snapshot, time.Now().Add(time.Hour))

	client := &stubStripe{fetched: &stripe.CheckoutSession{
		ID:            "cs_unpaid",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
	}}
	svc := newPaymentsService(t, conn, client)

	_, err := svc.VerifySession(ctx, userID, "cs_unpaid")
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeInvalidSession, appErr.Code())

	// still pending: the customer can complete payment and verify later
	var row models.PaymentSession
	require.NoError(t, conn.First(&row, "session_id = ?", "cs_unpaid").Error)
	assert.Equal(t, enums.PaymentSessionStatusPending, row.Status)
}

func TestVerifySessionExpired(t *testing.T) {
	conn := setupPaymentsTestDB(t)
	ctx := context.Background()
	userID := uuid.New()

	snapshot := testSnapshot(userID, uuid.New(), []types.SnapshotLine{
		{ProductID: uuid.New(), VendorID: uuid.New(), Name: "Ceramic Mug", UnitPriceCents: 1000, Qty: 1, TotalCents: 1000},
	})
	seedPendingSession(t, conn, "cs_stale", snapshot, time.Now().Add(-time.Minute))

	svc := newPaymentsService(t, conn, &stubStripe{})
	_, err := svc.VerifySession(ctx, userID, "cs_stale")
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeInvalidSession, appErr.Code())
}

func TestVerifySessionReservationFailureAfterCapture(t *testing.T) {
	conn := setupPaymentsTestDB(t)
	ctx := context.Background()
	userID := uuid.New()
	productID := uuid.New()

	// sold out between session creation and payment completion
	require.NoError(t, conn.Create(&models.InventoryItem{
		ProductID: productID, AvailableQty: 0,
	}).Error)

	snapshot := testSnapshot(userID, uuid.New(), []types.SnapshotLine{
		{ProductID: productID, VendorID: uuid.New(), Name: "Ceramic Mug", UnitPriceCents: 1000, Qty: 1, TotalCents: 1000},
	})
	row := seedPendingSession(t, conn, "cs_soldout", snapshot, time.Now().Add(time.Hour))

	client := &stubStripe{fetched: paidStripeSession("cs_soldout", "")}
	svc := newPaymentsService(t, conn, client)

	_, err := svc.VerifySession(ctx, userID, "cs_soldout")
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeIntegrityFailure, appErr.Code())

	// no order was created and the session records the failure
	var orderCount int64
	require.NoError(t, conn.Model(&models.ParentOrder{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)

	var fresh models.PaymentSession
	require.NoError(t, conn.First(&fresh, "id = ?", row.ID).Error)
	assert.Equal(t, enums.PaymentSessionStatusFailed, fresh.Status)
	require.NotNil(t, fresh.FailureReason)

	var events int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventPaymentReconciliationFailed).
		Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestExpirePendingBefore(t *testing.T) {
	conn := setupPaymentsTestDB(t)
	ctx := context.Background()
	repo := NewRepository(conn)
	userID := uuid.New()

	snapshot := testSnapshot(userID, uuid.New(), []types.SnapshotLine{
		{ProductID: uuid.New(), VendorID: uuid.New(), Name: "Ceramic Mug", UnitPriceCents: 1000, Qty: 1, TotalCents: 1000},
	})
	stale := seedPendingSession(t, conn, "cs_old", snapshot, time.Now().Add(-time.Hour))
	fresh := seedPendingSession(t, conn, "cs_new", snapshot, time.Now().Add(time.Hour))

	swept, err := repo.ExpirePendingBefore(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	var staleRow models.PaymentSession
	require.NoError(t, conn.First(&staleRow, "id = ?", stale.ID).Error)
	assert.Equal(t, enums.PaymentSessionStatusExpired, staleRow.Status)
	var freshRow models.PaymentSession
	require.NoError(t, conn.First(&freshRow, "id = ?", fresh.ID).Error)
	assert.Equal(t, enums.PaymentSessionStatusPending, freshRow.Status)
}
