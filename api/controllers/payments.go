package controllers

import (
	"net/http"

	"github.com/mercaura/mercaura-backend/api/responses"
	"github.com/mercaura/mercaura-backend/api/validators"
	paymentsvc "github.com/mercaura/mercaura-backend/internal/payments"
	pkgerrors "github.com/mercaura/mercaura-backend/pkg/errors"
	"github.com/mercaura/mercaura-backend/pkg/logger"
)

type verifyPaymentRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

// VerifyPayment finalizes a hosted-checkout session into a parent order.
// Safe to call repeatedly; replays return the already-created order.
func VerifyPayment(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.VerifySession(r.Context(), userID, payload.SessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}
