package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rmoreno-dev/mesa-backend/api/responses"
	"github.com/rmoreno-dev/mesa-backend/api/validators"
	ressvc "github.com/rmoreno-dev/mesa-backend/internal/reservations"
	"github.com/rmoreno-dev/mesa-backend/pkg/db/models"
	"github.com/rmoreno-dev/mesa-backend/pkg/enums"
	pkgerrors "github.com/rmoreno-dev/mesa-backend/pkg/errors"
	"github.com/rmoreno-dev/mesa-backend/pkg/logger"
	pkgpagination "github.com/rmoreno-dev/mesa-backend/pkg/pagination"
)

type bookReservationRequest struct {
	PartySize   int       `json:"party_size" validate:"required,gt=0"`
	ReservedFor time.Time `json:"reserved_for" validate:"required"`
	Notes       *string   `json:"notes" validate:"omitempty,max=500"`
}

type reservationResponse struct {
	ID          uuid.UUID               `json:"id"`
	PartySize   int                     `json:"party_size"`
	ReservedFor time.Time               `json:"reserved_for"`
	Status      enums.ReservationStatus `json:"status"`
	Notes       *string                 `json:"notes,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

func newReservationResponse(res *models.Reservation) reservationResponse {
	return reservationResponse{
		ID:          res.ID,
		PartySize:   res.PartySize,
		ReservedFor: res.ReservedFor,
		Status:      res.Status,
		Notes:       res.Notes,
		CreatedAt:   res.CreatedAt,
	}
}

// ReservationCreate books a table for the caller.
func ReservationCreate(svc ressvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload bookReservationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		res, err := svc.Book(r.Context(), ressvc.Actor{UserID: userID, Role: role}, ressvc.BookInput{
			PartySize:   payload.PartySize,
			ReservedFor: payload.ReservedFor,
			Notes:       payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newReservationResponse(res))
	}
}

// ReservationsList pages the caller's reservations newest first. Staff can
// scope the listing to any user via the user_id query parameter.
func ReservationsList(svc ressvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := ressvc.ListParams{
			UserID: userID,
			Params: pkgpagination.Params{
				Limit:  limit,
				Cursor: r.URL.Query().Get("cursor"),
			},
		}

		if raw := r.URL.Query().Get("user_id"); raw != "" {
			target, parseErr := pathUUID(raw, "user id")
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, parseErr)
				return
			}
			params.UserID = target
		}

		result, err := svc.List(r.Context(), ressvc.Actor{UserID: userID, Role: role}, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ReservationCancel cancels a booked reservation.
func ReservationCancel(svc ressvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reservationID, err := pathUUID(chi.URLParam(r, "reservationId"), "reservation id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		res, err := svc.Cancel(r.Context(), ressvc.Actor{UserID: userID, Role: role}, reservationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newReservationResponse(res))
	}
}

// ReservationSeat marks a booked party as seated. Staff only.
func ReservationSeat(svc ressvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reservationID, err := pathUUID(chi.URLParam(r, "reservationId"), "reservation id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		res, err := svc.Seat(r.Context(), ressvc.Actor{UserID: userID, Role: role}, reservationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newReservationResponse(res))
	}
}
