package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mercadia/storefront-backend/api/middleware"
	pkgerrors "github.com/mercadia/storefront-backend/pkg/errors"
)

// customerID extracts the authenticated customer id seeded by the auth middleware.
func customerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.CustomerIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid customer id")
	}
	return id, nil
}

// pathUUID parses a chi URL parameter as a uuid.
func pathUUID(raw, label string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+label)
	}
	return id, nil
}
