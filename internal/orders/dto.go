package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/salesorders-backend/pkg/db/models"
	"github.com/angelmondragon/salesorders-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/salesorders-backend/pkg/errors"
)

// Totals are the derived monetary fields of an order.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
}

// ItemInput describes one line to add. A nil UnitPrice takes the product's
// catalog price.
type ItemInput struct {
	ProductID  uint64           `json:"product_id"`
	Quantity   int              `json:"quantity"`
	UnitPrice  *decimal.Decimal `json:"unit_price,omitempty"`
	DiscountID *uint64          `json:"discount_id,omitempty"`
}

// AddItemInput adds a single line to an existing order.
type AddItemInput struct {
	OrderID uint64
	ItemInput
}

// CreateOrderInput creates an order with its initial lines.
type CreateOrderInput struct {
	ClientID           uint64           `json:"client_id" validate:"required"`
	RepresentativeID   uint64           `json:"representative_id" validate:"required"`
	DiscountID         *uint64          `json:"discount_id,omitempty"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty"`
	Notes              *string          `json:"notes,omitempty"`
	Items              []ItemInput      `json:"items"`
}

// ApplyDiscountInput sets the order-level discount. Both fields nil clears it.
type ApplyDiscountInput struct {
	DiscountID *uint64          `json:"discount_id,omitempty"`
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
}

// RowRejection explains why a batch row was refused. Row is zero-based.
type RowRejection struct {
	Row    int            `json:"row"`
	Code   pkgerrors.Code `json:"code"`
	Reason string         `json:"reason"`
}

// ReplaceResult reports the outcome of a batch write.
type ReplaceResult struct {
	Accepted []ItemDTO      `json:"accepted"`
	Rejected []RowRejection `json:"rejected"`
	Totals   Totals         `json:"totals"`
}

type ItemDTO struct {
	ID                 uint64           `json:"id"`
	OrderID            uint64           `json:"order_id"`
	ProductID          uint64           `json:"product_id"`
	Quantity           int              `json:"quantity"`
	UnitPrice          decimal.Decimal  `json:"unit_price"`
	DiscountID         *uint64          `json:"discount_id,omitempty"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty"`
	Commission         decimal.Decimal  `json:"commission"`
	Subtotal           decimal.Decimal  `json:"subtotal"`
	CreatedAt          time.Time        `json:"created_at"`
}

type OrderDTO struct {
	ID                 uint64            `json:"id"`
	ClientID           uint64            `json:"client_id"`
	RepresentativeID   uint64            `json:"representative_id"`
	Status             enums.OrderStatus `json:"status"`
	Subtotal           decimal.Decimal   `json:"subtotal"`
	DiscountID         *uint64           `json:"discount_id,omitempty"`
	DiscountPercentage *decimal.Decimal  `json:"discount_percentage,omitempty"`
	DiscountAmount     decimal.Decimal   `json:"discount_amount"`
	Total              decimal.Decimal   `json:"total"`
	Notes              *string           `json:"notes,omitempty"`
	Version            int64             `json:"version"`
	Items              []ItemDTO         `json:"items"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

func itemFromModel(item models.OrderItem) ItemDTO {
	return ItemDTO{
		ID:                 item.ID,
		OrderID:            item.OrderID,
		ProductID:          item.ProductID,
		Quantity:           item.Quantity,
		UnitPrice:          item.UnitPrice,
		DiscountID:         item.DiscountID,
		DiscountPercentage: item.DiscountPercentage,
		Commission:         item.Commission,
		Subtotal:           item.Subtotal,
		CreatedAt:          item.CreatedAt,
	}
}

func itemsFromModels(items []models.OrderItem) []ItemDTO {
	out := make([]ItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, itemFromModel(item))
	}
	return out
}

func orderFromModel(order models.Order) OrderDTO {
	return OrderDTO{
		ID:                 order.ID,
		ClientID:           order.ClientID,
		RepresentativeID:   order.RepresentativeID,
		Status:             order.Status,
		Subtotal:           order.Subtotal,
		DiscountID:         order.DiscountID,
		DiscountPercentage: order.DiscountPercentage,
		DiscountAmount:     order.DiscountAmount,
		Total:              order.Total,
		Notes:              order.Notes,
		Version:            order.Version,
		Items:              itemsFromModels(order.Items),
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
}

func totalsFromModel(order models.Order) Totals {
	return Totals{Subtotal: order.Subtotal, DiscountAmount: order.DiscountAmount, Total: order.Total}
}
