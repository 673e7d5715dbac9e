package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountTier bundles a customer discount with the representative commission.
type DiscountTier struct {
	ID         uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	Name       string          `gorm:"column:name;not null;uniqueIndex"`
	Percentage decimal.Decimal `gorm:"column:percentage;type:numeric(5,2);not null;default:0"`
	Commission decimal.Decimal `gorm:"column:commission;type:numeric(5,2);not null;default:0"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
