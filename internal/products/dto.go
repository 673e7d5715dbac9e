package products

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/salesorders-backend/pkg/db/models"
)

// ProductDTO is the API representation of a catalog product.
type ProductDTO struct {
	ID               uint64          `json:"id"`
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	Barcode          *string         `json:"barcode,omitempty"`
	Category         *string         `json:"category,omitempty"`
	Brand            *string         `json:"brand,omitempty"`
	Description      *string         `json:"description,omitempty"`
	Price            decimal.Decimal `json:"price"`
	StockQuantity    int             `json:"stock_quantity"`
	Active           bool            `json:"active"`
	Conversion       *string         `json:"conversion,omitempty"`
	ConversionBrand  *string         `json:"conversion_brand,omitempty"`
	EquivalentBrands []string        `json:"equivalent_brands"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ResolutionDTO reports the matches for a reference and the tier that found them.
type ResolutionDTO struct {
	Reference string       `json:"reference"`
	Tier      Tier         `json:"tier"`
	Products  []ProductDTO `json:"products"`
}

// FromModel maps a product row to its DTO.
func FromModel(p models.Product) ProductDTO {
	brands := []string(p.EquivalentBrands)
	if brands == nil {
		brands = []string{}
	}
	return ProductDTO{
		ID:               p.ID,
		Code:             p.Code,
		Name:             p.Name,
		Barcode:          p.Barcode,
		Category:         p.Category,
		Brand:            p.Brand,
		Description:      p.Description,
		Price:            p.Price,
		StockQuantity:    p.StockQuantity,
		Active:           p.Active,
		Conversion:       p.Conversion,
		ConversionBrand:  p.ConversionBrand,
		EquivalentBrands: brands,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

// NewResolutionDTO maps a resolution to its DTO.
func NewResolutionDTO(ref string, resolution *Resolution) ResolutionDTO {
	out := ResolutionDTO{Reference: ref, Tier: resolution.Tier, Products: make([]ProductDTO, 0, len(resolution.Products))}
	for _, p := range resolution.Products {
		out.Products = append(out.Products, FromModel(p))
	}
	return out
}
