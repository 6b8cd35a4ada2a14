package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rmoreno-dev/mesa-backend/api/responses"
	"github.com/rmoreno-dev/mesa-backend/api/validators"
	menusvc "github.com/rmoreno-dev/mesa-backend/internal/menu"
	"github.com/rmoreno-dev/mesa-backend/pkg/enums"
	pkgerrors "github.com/rmoreno-dev/mesa-backend/pkg/errors"
	"github.com/rmoreno-dev/mesa-backend/pkg/logger"
	pkgpagination "github.com/rmoreno-dev/mesa-backend/pkg/pagination"
)

type createMenuItemRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Category    string   `json:"category" validate:"required"`
	PriceCents  int      `json:"price_cents" validate:"required,gt=0"`
	Allergens   []string `json:"allergens" validate:"omitempty,dive,max=100"`
	IsActive    *bool    `json:"is_active"`
	QtyOnHand   *int     `json:"qty_on_hand" validate:"omitempty,gte=0"`
	Tracked     bool     `json:"tracked"`
}

type updateMenuItemRequest struct {
	Name        *string   `json:"name" validate:"omitempty,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=2000"`
	Category    *string   `json:"category"`
	PriceCents  *int      `json:"price_cents" validate:"omitempty,gt=0"`
	Allergens   *[]string `json:"allergens" validate:"omitempty,dive,max=100"`
	IsActive    *bool     `json:"is_active"`
	QtyOnHand   *int      `json:"qty_on_hand" validate:"omitempty,gte=0"`
	Tracked     *bool     `json:"tracked"`
}

// MenuList pages active menu items. Staff may include inactive items.
func MenuList(svc menusvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "menu service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := menusvc.ListParams{
			Params: pkgpagination.Params{
				Limit:  limit,
				Cursor: r.URL.Query().Get("cursor"),
			},
		}

		if raw := r.URL.Query().Get("category"); raw != "" {
			category, parseErr := enums.ParseMenuCategory(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid category filter"))
				return
			}
			params.Category = &category
		}

		if r.URL.Query().Get("include_inactive") == "true" {
			_, role, actorErr := requestActor(r)
			if actorErr != nil || (role != enums.RoleStaff && role != enums.RoleAdmin) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required"))
				return
			}
			params.IncludeInactive = true
		}

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// MenuDetail returns a single menu item with its stock view.
func MenuDetail(svc menusvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "menu service unavailable"))
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

		responses.WriteSuccess(w, item)
	}
}

// MenuCreate adds a menu item. Admin only.
func MenuCreate(svc menusvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "menu service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createMenuItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := enums.ParseMenuCategory(payload.Category)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
			return
		}

		input := menusvc.CreateMenuItemInput{
			Name:        payload.Name,
			Description: payload.Description,
			Category:    category,
			PriceCents:  payload.PriceCents,
			Allergens:   payload.Allergens,
			IsActive:    payload.IsActive == nil || *payload.IsActive,
		}
		if payload.Tracked || payload.QtyOnHand != nil {
			input.Inventory = &menusvc.InventoryInput{QtyOnHand: payload.QtyOnHand}
		}

		item, err := svc.Create(r.Context(), menusvc.Actor{UserID: userID, Role: role}, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// MenuUpdate patches a menu item. Admin only.
func MenuUpdate(svc menusvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "menu service unavailable"))
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

		var payload updateMenuItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := menusvc.UpdateMenuItemInput{
			Name:        payload.Name,
			Description: payload.Description,
			PriceCents:  payload.PriceCents,
			Allergens:   payload.Allergens,
			IsActive:    payload.IsActive,
		}
		if payload.Category != nil {
			category, parseErr := enums.ParseMenuCategory(*payload.Category)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid category"))
				return
			}
			input.Category = &category
		}
		if payload.QtyOnHand != nil || (payload.Tracked != nil && *payload.Tracked) {
			input.Inventory = &menusvc.InventoryInput{QtyOnHand: payload.QtyOnHand}
		}

		item, err := svc.Update(r.Context(), menusvc.Actor{UserID: userID, Role: role}, itemID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, item)
	}
}

// MenuDelete soft-deletes a menu item. Admin only.
func MenuDelete(svc menusvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "menu service unavailable"))
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

		if err := svc.Delete(r.Context(), menusvc.Actor{UserID: userID, Role: role}, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
