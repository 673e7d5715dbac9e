package controllers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/salesorders-backend/api/responses"
	"github.com/angelmondragon/salesorders-backend/api/validators"
	"github.com/angelmondragon/salesorders-backend/internal/conversions"
	pkgerrors "github.com/angelmondragon/salesorders-backend/pkg/errors"
	"github.com/angelmondragon/salesorders-backend/pkg/logger"
)

type saveAliasRequest struct {
	Reference string `json:"reference" validate:"required,max=128"`
}

// SaveAlias binds a client reference to the product in the path.
func SaveAlias(registry conversions.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if registry == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversion registry unavailable"))
			return
		}

		productID, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload saveAliasRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := registry.SaveAlias(r.Context(), productID, payload.Reference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ResolveAlias looks up the product bound to a client reference. An unbound
// reference is a 404.
func ResolveAlias(registry conversions.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if registry == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversion registry unavailable"))
			return
		}

		raw, err := url.PathUnescape(chi.URLParam(r, "ref"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reference"))
			return
		}

		product, err := registry.ResolveAlias(r.Context(), validators.SanitizeString(raw, maxReferenceLength))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if product == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeProductNotFound, "no product bound to reference"))
			return
		}
		responses.WriteSuccess(w, product)
	}
}
