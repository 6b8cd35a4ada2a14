package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rmoreno-dev/mesa-backend/api/middleware"
	"github.com/rmoreno-dev/mesa-backend/api/responses"
	"github.com/rmoreno-dev/mesa-backend/api/validators"
	cartsvc "github.com/rmoreno-dev/mesa-backend/internal/cart"
	"github.com/rmoreno-dev/mesa-backend/pkg/config"
	pkgerrors "github.com/rmoreno-dev/mesa-backend/pkg/errors"
	"github.com/rmoreno-dev/mesa-backend/pkg/logger"
)

type cartLineRequest struct {
	ItemID   uuid.UUID `json:"item_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,gt=0"`
	Notes    string    `json:"notes" validate:"omitempty,max=500"`
}

type cartSubmitRequest struct {
	Lines []cartLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// CartFetch returns the cart behind the presented token without mutating it.
func CartFetch(svc cartsvc.Service, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		token := middleware.CartTokenFromContext(r.Context())
		view, err := svc.Get(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		middleware.EchoCartToken(w, view.Token, cfg.Cart.AnonymousTTL, cfg.App.IsProd())
		responses.WriteSuccess(w, view)
	}
}

// CartSubmit merges the submitted lines into the cart behind the presented
// token, creating a fresh anonymous cart when no token rides along. The
// rotated token is echoed back via header and cookie.
func CartSubmit(svc cartsvc.Service, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload cartSubmitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]cartsvc.Line, 0, len(payload.Lines))
		for _, line := range payload.Lines {
			lines = append(lines, cartsvc.Line{
				ItemID:   line.ItemID,
				Quantity: line.Quantity,
				Notes:    line.Notes,
			})
		}

		token := middleware.CartTokenFromContext(r.Context())
		view, err := svc.Submit(r.Context(), token, lines)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		middleware.EchoCartToken(w, view.Token, cfg.Cart.AnonymousTTL, cfg.App.IsProd())
		responses.WriteSuccess(w, view)
	}
}
