package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rmoreno-dev/mesa-backend/api/responses"
	"github.com/rmoreno-dev/mesa-backend/api/validators"
	invsvc "github.com/rmoreno-dev/mesa-backend/internal/inventory"
	pkgerrors "github.com/rmoreno-dev/mesa-backend/pkg/errors"
	"github.com/rmoreno-dev/mesa-backend/pkg/logger"
)

type setInventoryRequest struct {
	QtyOnHand *int `json:"qty_on_hand" validate:"omitempty,gte=0"`
}

type inventoryResponse struct {
	ItemID    uuid.UUID `json:"item_id"`
	QtyOnHand *int      `json:"qty_on_hand"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InventorySet replaces the on-hand quantity for a tracked item. A null
// quantity marks the item untracked for availability checks.
func InventorySet(svc invsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := pathUUID(chi.URLParam(r, "itemId"), "item id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setInventoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := invsvc.Actor{UserID: userID, Role: role}
		item, err := svc.SetQuantity(r.Context(), actor, itemID, payload.QtyOnHand)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, inventoryResponse{
			ItemID:    item.ItemID,
			QtyOnHand: item.QtyOnHand,
			UpdatedAt: item.UpdatedAt,
		})
	}
}

// InventoryDetail returns the stock row for one item.
func InventoryDetail(svc invsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		itemID, err := pathUUID(chi.URLParam(r, "itemId"), "item id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Get(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, inventoryResponse{
			ItemID:    item.ItemID,
			QtyOnHand: item.QtyOnHand,
			UpdatedAt: item.UpdatedAt,
		})
	}
}
