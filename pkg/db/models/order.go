package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/salesorders-backend/pkg/enums"
)

// Order is a sales order. Subtotal, DiscountAmount and Total are derived from
// the items and rewritten on every item mutation.
type Order struct {
	ID                 uint64            `gorm:"column:id;primaryKey;autoIncrement"`
	ClientID           uint64            `gorm:"column:client_id;not null;index"`
	RepresentativeID   uint64            `gorm:"column:representative_id;not null;index"`
	Status             enums.OrderStatus `gorm:"column:status;not null;default:quotation"`
	Subtotal           decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null;default:0"`
	DiscountID         *uint64           `gorm:"column:discount_id"`
	DiscountPercentage *decimal.Decimal  `gorm:"column:discount_percentage;type:numeric(5,2)"`
	DiscountAmount     decimal.Decimal   `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	Total              decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null;default:0"`
	Notes              *string           `gorm:"column:notes"`
	Version            int64             `gorm:"column:version;not null;default:0"`
	Items              []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
