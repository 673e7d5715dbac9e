package stats

import (
	"net/http"

	"github.com/angelmondragon/salesorders-backend/api/responses"
	"github.com/angelmondragon/salesorders-backend/api/validators"
	internalstats "github.com/angelmondragon/salesorders-backend/internal/stats"
	pkgerrors "github.com/angelmondragon/salesorders-backend/pkg/errors"
	"github.com/angelmondragon/salesorders-backend/pkg/logger"
)

// maxTopProductsQuery bounds the ?limit= parameter; the service applies its
// own configured cap on top of it.
const maxTopProductsQuery = 1000

func Orders(svc internalstats.Service, logg *logger.Logger) http.HandlerFunc {
	return withFilter(svc, logg, func(w http.ResponseWriter, r *http.Request, filter internalstats.Filter) {
		out, err := svc.OrderStats(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	})
}

func Representatives(svc internalstats.Service, logg *logger.Logger) http.HandlerFunc {
	return withFilter(svc, logg, func(w http.ResponseWriter, r *http.Request, filter internalstats.Filter) {
		out, err := svc.SalesByRepresentative(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	})
}

func Brands(svc internalstats.Service, logg *logger.Logger) http.HandlerFunc {
	return withFilter(svc, logg, func(w http.ResponseWriter, r *http.Request, filter internalstats.Filter) {
		out, err := svc.SalesByBrand(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	})
}

// TopProducts ranks products by confirmed pieces. Omitting ?limit= uses the
// configured default.
func TopProducts(svc internalstats.Service, logg *logger.Logger) http.HandlerFunc {
	return withFilter(svc, logg, func(w http.ResponseWriter, r *http.Request, filter internalstats.Filter) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, maxTopProductsQuery)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.TopSellingProducts(r.Context(), limit, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	})
}

func withFilter(svc internalstats.Service, logg *logger.Logger, next func(http.ResponseWriter, *http.Request, internalstats.Filter)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stats service unavailable"))
			return
		}

		repID, err := validators.ParseOptionalQueryID(r, "representative_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil && repID != nil {
			ctx = logg.WithRepresentativeID(ctx, *repID)
		}
		next(w, r.WithContext(ctx), internalstats.Filter{RepresentativeID: repID})
	}
}
