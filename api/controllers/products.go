package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/salesorders-backend/api/responses"
	"github.com/angelmondragon/salesorders-backend/api/validators"
	productsvc "github.com/angelmondragon/salesorders-backend/internal/products"
	pkgerrors "github.com/angelmondragon/salesorders-backend/pkg/errors"
	"github.com/angelmondragon/salesorders-backend/pkg/logger"
)

const maxReferenceLength = 128

// ResolveProducts returns every product matching the ?ref= reference along
// with the tier that produced the match.
func ResolveProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		ref := validators.SanitizeString(r.URL.Query().Get("ref"), maxReferenceLength)
		resolution, err := svc.ResolveReference(r.Context(), ref)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resolution)
	}
}

// ResolveProduct returns the single best match for ?ref=.
func ResolveProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		ref := validators.SanitizeString(r.URL.Query().Get("ref"), maxReferenceLength)
		product, err := svc.ResolveOne(r.Context(), ref)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func CreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), payload.toCreateInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type createProductRequest struct {
	Code             string          `json:"code" validate:"required,max=64"`
	Name             string          `json:"name" validate:"required,max=255"`
	Barcode          *string         `json:"barcode,omitempty" validate:"omitempty,max=64"`
	Category         *string         `json:"category,omitempty"`
	Brand            *string         `json:"brand,omitempty"`
	Description      *string         `json:"description,omitempty"`
	Price            decimal.Decimal `json:"price"`
	StockQuantity    int             `json:"stock_quantity" validate:"min=0"`
	Active           *bool           `json:"active,omitempty"`
	Conversion       *string         `json:"conversion,omitempty" validate:"omitempty,max=128"`
	ConversionBrand  *string         `json:"conversion_brand,omitempty"`
	EquivalentBrands []string        `json:"equivalent_brands,omitempty" validate:"omitempty,dive,required"`
}

func (r createProductRequest) toCreateInput() productsvc.CreateProductInput {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return productsvc.CreateProductInput{
		Code:             r.Code,
		Name:             r.Name,
		Barcode:          r.Barcode,
		Category:         r.Category,
		Brand:            r.Brand,
		Description:      r.Description,
		Price:            r.Price,
		StockQuantity:    r.StockQuantity,
		Active:           active,
		Conversion:       r.Conversion,
		ConversionBrand:  r.ConversionBrand,
		EquivalentBrands: r.EquivalentBrands,
	}
}
