package orders

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/salesorders-backend/pkg/db/models"
	"github.com/angelmondragon/salesorders-backend/pkg/enums"
)

// Repository persists orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	FindOrder(ctx context.Context, id uint64, forUpdate bool) (*models.Order, error)
	FindOrderWithItems(ctx context.Context, id uint64) (*models.Order, error)
	ListItems(ctx context.Context, orderID uint64) ([]models.OrderItem, error)
	FindItem(ctx context.Context, itemID uint64) (*models.OrderItem, error)
	CreateItems(ctx context.Context, items []models.OrderItem) error
	DeleteItem(ctx context.Context, itemID uint64) error
	DeleteItems(ctx context.Context, orderID uint64) error
	DeleteOrder(ctx context.Context, id uint64) error
	UpdateItemCommission(ctx context.Context, itemID uint64, commission decimal.Decimal) error
	UpdateDiscount(ctx context.Context, id uint64, discountID *uint64, percentage *decimal.Decimal) error
	UpdateTotals(ctx context.Context, id uint64, expectedVersion int64, totals Totals) (bool, error)
	UpdateStatus(ctx context.Context, id uint64, from, to enums.OrderStatus) (bool, error)
}

// Observer receives pricing operation outcomes.
type Observer interface {
	ObserveDuration(op string, duration time.Duration)
	IncSuccess(op string)
	IncFailure(op string)
	ObserveLockWait(wait time.Duration)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
