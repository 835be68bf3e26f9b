package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mercaura/mercaura-backend/internal/cart"
	"github.com/mercaura/mercaura-backend/internal/inventory"
	"github.com/mercaura/mercaura-backend/internal/orders"
	product "github.com/mercaura/mercaura-backend/internal/products"
	"github.com/mercaura/mercaura-backend/pkg/db"
	"github.com/mercaura/mercaura-backend/pkg/db/models"
	"github.com/mercaura/mercaura-backend/pkg/enums"
	pkgerrors "github.com/mercaura/mercaura-backend/pkg/errors"
	"github.com/mercaura/mercaura-backend/pkg/outbox"
	"github.com/mercaura/mercaura-backend/pkg/types"
)

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	ddl := []string{`
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  sku TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT,
  price_cents INTEGER NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
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

type stubLauncher struct {
	launch *SessionLaunch
	err    error
	calls  int
	last   types.CheckoutSnapshot
}

func (s *stubLauncher) Launch(_ context.Context, snapshot types.CheckoutSnapshot) (*SessionLaunch, error) {
	s.calls++
	s.last = snapshot
	if s.err != nil {
		return nil, s.err
	}
	return s.launch, nil
}

func newCheckoutService(t *testing.T, conn *gorm.DB, launcher *stubLauncher) Service {
	t.Helper()

	cartRepo := cart.NewRepository(conn)
	resolver, err := cart.NewResolver(product.NewRepository(conn))
	require.NoError(t, err)

	materializer, err := NewMaterializer(cartRepo, orders.NewRepository(conn), inventory.Ledger{}, outbox.NewService(outbox.NewRepository(conn), nil))
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Carts:        cartRepo,
		Resolver:     resolver,
		Materializer: materializer,
		Sessions:     launcher,
		Tx:           db.FromConn(conn),
	})
	require.NoError(t, err)
	return svc
}

func seedProduct(t *testing.T, conn *gorm.DB, vendorID uuid.UUID, title string, priceCents, stock int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, conn.Create(&models.Product{
		ID:         id,
		VendorID:   vendorID,
		SKU:        "SKU-" + id.String()[:8],
		Title:      title,
		PriceCents: priceCents,
		IsActive:   true,
	}).Error)
	require.NoError(t, conn.Create(&models.InventoryItem{
		ProductID:    id,
		AvailableQty: stock,
	}).Error)
	return id
}

func seedCart(t *testing.T, conn *gorm.DB, userID uuid.UUID, items []models.CartItem) uuid.UUID {
	t.Helper()
	repo := cart.NewRepository(conn)
	record, err := repo.CreateActive(context.Background(), userID)
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceItems(context.Background(), record.ID, items))
	return record.ID
}

func testAddress() types.Address {
	return types.Address{
		Line1:      "12 Harbor Way",
		City:       "Portsmouth",
		State:      "NH",
		PostalCode: "03801",
		Country:    "US",
	}
}

func inventoryFor(t *testing.T, conn *gorm.DB, productID uuid.UUID) models.InventoryItem {
	t.Helper()
	var item models.InventoryItem
	require.NoError(t, conn.First(&item, "product_id = ?", productID).Error)
	return item
}

func TestCheckoutCODSplitsPerVendorAndReservesStock(t *testing.T) {
	conn := setupCheckoutTestDB(t)
	ctx := context.Background()
	userID := uuid.New()
	vendor1 := uuid.New()
	vendor2 := uuid.New()

	productA := seedProduct(t, conn, vendor1, "Ceramic Mug", 1000, 5)
	productB := seedProduct(t, conn, vendor2, "Walnut Tray", 2000, 1)
	seedCart(t, conn, userID, []models.CartItem{
		{ProductID: productA, Quantity: 2},
		{ProductID: productB, Quantity: 1},
	})

	svc := newCheckoutService(t, conn, &stubLauncher{})
	result, err := svc.Checkout(ctx, userID, CheckoutInput{
		PaymentMethod:   enums.PaymentMethodCashOnDelivery,
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Order)
	assert.Nil(t, result.RedirectURL)

	order := result.Order
	assert.Equal(t, 4000, order.TotalCents)
	assert.False(t, order.IsPaid)
	assert.Equal(t, enums.PaymentMethodCashOnDelivery, order.PaymentMethod)
	assert.Equal(t, enums.SubOrderStatusPending, order.Status)

	require.Len(t, order.SubOrders, 2)
	assert.Equal(t, vendor1, order.SubOrders[0].VendorID)
	assert.Equal(t, 2000, order.SubOrders[0].SubtotalCents)
	assert.Equal(t, vendor2, order.SubOrders[1].VendorID)
	assert.Equal(t, 2000, order.SubOrders[1].SubtotalCents)
	require.Len(t, order.SubOrders[0].Items, 1)
	assert.Equal(t, 1000, order.SubOrders[0].Items[0].UnitPriceCents)
	assert.Equal(t, 2, order.SubOrders[0].Items[0].Qty)

	invA := inventoryFor(t, conn, productA)
	assert.Equal(t, 3, invA.AvailableQty)
	assert.Equal(t, 2, invA.ReservedQty)
	invB := inventoryFor(t, conn, productB)
	assert.Equal(t, 0, invB.AvailableQty)
	assert.Equal(t, 1, invB.ReservedQty)

	// cart is consumed by the successful checkout
	active, err := cart.NewRepository(conn).FindActiveByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, active)

	var events []models.OutboxEvent
	require.NoError(t, conn.Find(&events, "event_type = ?", enums.EventOrderCreated).Error)
	require.Len(t, events, 1)
	assert.Equal(t, order.ID, events[0].AggregateID)
}

func TestCheckoutCODInsufficientStockLeavesEverythingUntouched(t *testing.T) {
	conn := setupCheckoutTestDB(t)
	ctx := context.Background()
	userID := uuid.New()

	productA := seedProduct(t, conn, uuid.New(), "Ceramic Mug", 1000, 5)
	productB := seedProduct(t, conn, uuid.New(), "Walnut Tray", 2000, 0)
	cartID := seedCart(t, conn, userID, []models.CartItem{
		{ProductID: productA, Quantity: 2},
		{ProductID: productB, Quantity: 1},
	})

	svc := newCheckoutService(t, conn, &stubLauncher{})
	_, err := svc.Checkout(ctx, userID, CheckoutInput{
		PaymentMethod:   enums.PaymentMethodCashOnDelivery,
		ShippingAddress: testAddress(),
	})
	require.Error(t, err)

	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, appErr.Code())

	details, ok := appErr.Details().(map[string]any)
	require.True(t, ok)
	shortages, ok := details["items"].([]inventory.ShortageDetail)
	require.True(t, ok)
	require.Len(t, shortages, 1)
	assert.Equal(t, productB, shortages[0].ProductID)
	assert.Equal(t, 1, shortages[0].Requested)
	assert.Equal(t, 0, shortages[0].Available)

	invA := inventoryFor(t, conn, productA)
	assert.Equal(t, 5, invA.AvailableQty)
	assert.Equal(t, 0, invA.ReservedQty)

	// cart stays intact so the customer can fix it and retry
	active, err := cart.NewRepository(conn).FindActiveByUserID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, cartID, active.ID)
	assert.Len(t, active.Items, 2)

	var orderCount int64
	require.NoError(t, conn.Model(&models.ParentOrder{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)
}

func TestCheckoutCardDefersOrderCreation(t *testing.T) {
	conn := setupCheckoutTestDB(t)
	ctx := context.Background()
	userID := uuid.New()

	productA := seedProduct(t, conn, uuid.New(), "Ceramic Mug", 1000, 5)
	seedCart(t, conn, userID, []models.CartItem{{ProductID: productA, Quantity: 2}})

	launcher := &stubLauncher{launch: &SessionLaunch{
		SessionID:   "cs_test_123",
		RedirectURL: "https://checkout.example.com/cs_test_123",
	}}
	svc := newCheckoutService(t, conn, launcher)

	result, err := svc.Checkout(ctx, userID, CheckoutInput{
		PaymentMethod:   enums.PaymentMethodCard,
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)
	assert.Nil(t, result.Order)
	require.NotNil(t, result.RedirectURL)
	assert.Equal(t, "https://checkout.example.com/cs_test_123", *result.RedirectURL)

	assert.Equal(t, 1, launcher.calls)
	assert.Equal(t, userID, launcher.last.UserID)
	assert.Equal(t, 2000, launcher.last.TotalCents)
	require.Len(t, launcher.last.Lines, 1)
	assert.Equal(t, 1000, launcher.last.Lines[0].UnitPriceCents)

	// no stock or orders until the session verifies
	invA := inventoryFor(t, conn, productA)
	assert.Equal(t, 5, invA.AvailableQty)
	assert.Equal(t, 0, invA.ReservedQty)

	var orderCount int64
	require.NoError(t, conn.Model(&models.ParentOrder{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)

	active, err := cart.NewRepository(conn).FindActiveByUserID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, active)
}

func TestCheckoutRejectsEmptyCartAndBadAddress(t *testing.T) {
	conn := setupCheckoutTestDB(t)
	ctx := context.Background()
	svc := newCheckoutService(t, conn, &stubLauncher{})

	_, err := svc.Checkout(ctx, uuid.New(), CheckoutInput{
		PaymentMethod:   enums.PaymentMethodCashOnDelivery,
		ShippingAddress: testAddress(),
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())

	userID := uuid.New()
	productA := seedProduct(t, conn, uuid.New(), "Ceramic Mug", 1000, 5)
	seedCart(t, conn, userID, []models.CartItem{{ProductID: productA, Quantity: 1}})

	_, err = svc.Checkout(ctx, userID, CheckoutInput{
		PaymentMethod:   enums.PaymentMethodCashOnDelivery,
		ShippingAddress: types.Address{City: "Portsmouth"},
	})
	require.Error(t, err)
	appErr = pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}
