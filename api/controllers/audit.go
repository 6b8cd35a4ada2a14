package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rmoreno-dev/mesa-backend/api/responses"
	"github.com/rmoreno-dev/mesa-backend/api/validators"
	auditsvc "github.com/rmoreno-dev/mesa-backend/internal/audit"
	pkgerrors "github.com/rmoreno-dev/mesa-backend/pkg/errors"
	"github.com/rmoreno-dev/mesa-backend/pkg/logger"
	pkgpagination "github.com/rmoreno-dev/mesa-backend/pkg/pagination"
)

// AuditList pages the audit trail for admins, newest first.
func AuditList(svc auditsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		_, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := auditsvc.ListParams{
			Action:     r.URL.Query().Get("action"),
			EntityType: r.URL.Query().Get("entity_type"),
			Params: pkgpagination.Params{
				Limit:  limit,
				Cursor: r.URL.Query().Get("cursor"),
			},
		}

		if raw := r.URL.Query().Get("actor_id"); raw != "" {
			actorID, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid actor id"))
				return
			}
			params.ActorID = &actorID
		}

		result, err := svc.List(r.Context(), role, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
