package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	checkoutsvc "github.com/mercaura/mercaura-backend/internal/checkout"
	ordersvc "github.com/mercaura/mercaura-backend/internal/orders"
	"github.com/mercaura/mercaura-backend/pkg/enums"
	pkgerrors "github.com/mercaura/mercaura-backend/pkg/errors"
)

type stubCheckoutService struct {
	result    *checkoutsvc.CheckoutResult
	err       error
	lastInput checkoutsvc.CheckoutInput
}

func (s *stubCheckoutService) Checkout(ctx context.Context, userID uuid.UUID, input checkoutsvc.CheckoutInput) (*checkoutsvc.CheckoutResult, error) {
	s.lastInput = input
	return s.result, s.err
}

const checkoutBody = `{
	"payment_method": "cash_on_delivery",
	"shipping_address": {
		"line1": "12 Market Row",
		"city": "Lagos",
		"state": "LA",
		"postal_code": "100001",
		"country": "NG"
	}
}`

func TestCheckoutCODReturnsCreatedOrder(t *testing.T) {
	orderID := uuid.New()
	svc := &stubCheckoutService{result: &checkoutsvc.CheckoutResult{
		Order: &ordersvc.ParentOrderDTO{
			ID:            orderID,
			PaymentMethod: enums.PaymentMethodCashOnDelivery,
			Status:        enums.SubOrderStatusPending,
		},
	}}
	handler := Checkout(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/checkout", checkoutBody))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	if svc.lastInput.PaymentMethod != enums.PaymentMethodCashOnDelivery {
		t.Fatalf("unexpected payment method: %s", svc.lastInput.PaymentMethod)
	}
	if svc.lastInput.ShippingAddress.City != "Lagos" {
		t.Fatalf("address not forwarded: %+v", svc.lastInput.ShippingAddress)
	}
	var envelope struct {
		Data checkoutsvc.CheckoutResult `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Order == nil || envelope.Data.Order.ID != orderID {
		t.Fatalf("expected created order in payload: %+v", envelope.Data)
	}
}

func TestCheckoutCardReturnsRedirect(t *testing.T) {
	redirect := "https://checkout.stripe.com/pay/cs_test"
	svc := &stubCheckoutService{result: &checkoutsvc.CheckoutResult{RedirectURL: &redirect}}
	handler := Checkout(svc, nil)

	body := `{
		"payment_method": "card",
		"shipping_address": {
			"line1": "12 Market Row",
			"city": "Lagos",
			"state": "LA",
			"postal_code": "100001",
			"country": "NG"
		}
	}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/checkout", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var envelope struct {
		Data checkoutsvc.CheckoutResult `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.RedirectURL == nil || *envelope.Data.RedirectURL != redirect {
		t.Fatalf("expected redirect url in payload: %+v", envelope.Data)
	}
	if envelope.Data.Order != nil {
		t.Fatalf("card checkout must not carry an order yet")
	}
}

func TestCheckoutRejectsUnknownPaymentMethod(t *testing.T) {
	handler := Checkout(&stubCheckoutService{}, nil)

	body := `{"payment_method":"wire","shipping_address":{"line1":"a","city":"b","state":"c","postal_code":"d","country":"e"}}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/checkout", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCheckoutInsufficientStockSurfacesConflict(t *testing.T) {
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock")}
	handler := Checkout(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/checkout", checkoutBody))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
}
