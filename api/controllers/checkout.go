package controllers

import (
	"net/http"

	"github.com/mercaura/mercaura-backend/api/responses"
	"github.com/mercaura/mercaura-backend/api/validators"
	checkoutsvc "github.com/mercaura/mercaura-backend/internal/checkout"
	"github.com/mercaura/mercaura-backend/pkg/enums"
	pkgerrors "github.com/mercaura/mercaura-backend/pkg/errors"
	"github.com/mercaura/mercaura-backend/pkg/logger"
	"github.com/mercaura/mercaura-backend/pkg/types"
)

type checkoutRequest struct {
	PaymentMethod   string        `json:"payment_method" validate:"required,oneof=cash_on_delivery card"`
	ShippingAddress types.Address `json:"shipping_address" validate:"required"`
}

// Checkout converts the caller's active cart into a parent order (COD) or a
// hosted payment redirect (card).
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), userID, checkoutsvc.CheckoutInput{
			PaymentMethod:   enums.PaymentMethod(payload.PaymentMethod),
			ShippingAddress: payload.ShippingAddress,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.RedirectURL != nil {
			// No order exists yet for card checkouts; the redirect is the result.
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}
