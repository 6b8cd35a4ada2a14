package controllers

import (
	"net/http"

	"github.com/rmoreno-dev/mesa-backend/api/middleware"
	"github.com/rmoreno-dev/mesa-backend/api/responses"
	"github.com/rmoreno-dev/mesa-backend/api/validators"
	"github.com/rmoreno-dev/mesa-backend/internal/auth"
	"github.com/rmoreno-dev/mesa-backend/pkg/config"
	pkgerrors "github.com/rmoreno-dev/mesa-backend/pkg/errors"
	"github.com/rmoreno-dev/mesa-backend/pkg/logger"
)

// AuthLogin wires the login endpoint into the HTTP layer. When the request
// carries an anonymous cart token, the attached cart rides along in the
// response and the rotated token is echoed back.
func AuthLogin(svc auth.Service, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cartToken := middleware.CartTokenFromContext(r.Context())

		result, err := svc.Login(r.Context(), body, cartToken)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if result.Cart != nil {
			middleware.EchoCartToken(w, result.Cart.Token, cfg.Cart.AnonymousTTL, cfg.App.IsProd())
		}
		w.Header().Set("X-Mesa-Token", result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}

// AuthRegister creates a member account and returns the stored profile.
func AuthRegister(svc auth.RegisterService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "register service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Register(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
