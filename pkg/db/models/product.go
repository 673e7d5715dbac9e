package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Conversion holds the client-side reference
// bound to this product and is unique across the catalog.
type Product struct {
	ID               uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	Code             string          `gorm:"column:code;not null;uniqueIndex"`
	Name             string          `gorm:"column:name;not null"`
	Barcode          *string         `gorm:"column:barcode"`
	Category         *string         `gorm:"column:category"`
	Brand            *string         `gorm:"column:brand"`
	Description      *string         `gorm:"column:description"`
	Price            decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null;default:0"`
	StockQuantity    int             `gorm:"column:stock_quantity;not null;default:0"`
	Active           bool            `gorm:"column:active;not null"`
	Conversion       *string         `gorm:"column:conversion;uniqueIndex"`
	ConversionBrand  *string         `gorm:"column:conversion_brand"`
	EquivalentBrands pq.StringArray  `gorm:"column:equivalent_brands;type:text[]"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
