package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rmoreno-dev/mesa-backend/api/middleware"
	"github.com/rmoreno-dev/mesa-backend/pkg/enums"
	pkgerrors "github.com/rmoreno-dev/mesa-backend/pkg/errors"
)

// requestActor resolves the authenticated caller from the request context.
func requestActor(r *http.Request) (uuid.UUID, enums.Role, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	role, err := enums.ParseRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid role")
	}
	return userID, role, nil
}

func pathUUID(value, label string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+label)
	}
	return id, nil
}
