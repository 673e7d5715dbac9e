package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem is one order line. Subtotal is quantity times unit price.
type OrderItem struct {
	ID                 uint64           `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID            uint64           `gorm:"column:order_id;not null;index"`
	ProductID          uint64           `gorm:"column:product_id;not null;index"`
	Quantity           int              `gorm:"column:quantity;not null"`
	UnitPrice          decimal.Decimal  `gorm:"column:unit_price;type:numeric(12,2);not null"`
	DiscountID         *uint64          `gorm:"column:discount_id"`
	DiscountPercentage *decimal.Decimal `gorm:"column:discount_percentage;type:numeric(5,2)"`
	Commission         decimal.Decimal  `gorm:"column:commission;type:numeric(12,2);not null;default:0"`
	Subtotal           decimal.Decimal  `gorm:"column:subtotal;type:numeric(12,2);not null"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
}
