package controllers

import (
	"net/http"

	"github.com/rmoreno-dev/mesa-backend/api/middleware"
	"github.com/rmoreno-dev/mesa-backend/api/responses"
	checkoutsvc "github.com/rmoreno-dev/mesa-backend/internal/checkout"
	pkgerrors "github.com/rmoreno-dev/mesa-backend/pkg/errors"
	"github.com/rmoreno-dev/mesa-backend/pkg/logger"
)

// Checkout converts the caller's cart into a placed order. Insufficient
// stock surfaces as a retryable conflict carrying per-item details.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, _, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cartToken := middleware.CartTokenFromContext(r.Context())
		if cartToken == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart token is required"))
			return
		}

		order, err := svc.Execute(r.Context(), userID, cartToken)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}
