package orders

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/salesorders-backend/internal/repo"
	"github.com/angelmondragon/salesorders-backend/pkg/db/models"
	"github.com/angelmondragon/salesorders-backend/pkg/enums"
)

type repository struct {
	repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB(ctx).Omit(clause.Associations).Create(order).Error
}

// FindOrder loads the order row. forUpdate takes a row lock on drivers that
// support it; sqlite ignores the clause.
func (r *repository) FindOrder(ctx context.Context, id uint64, forUpdate bool) (*models.Order, error) {
	query := r.DB(ctx)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.Order
	if err := query.First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderWithItems(ctx context.Context, id uint64) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListItems(ctx context.Context, orderID uint64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.DB(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&items).Error
	return items, err
}

func (r *repository) FindItem(ctx context.Context, itemID uint64) (*models.OrderItem, error) {
	var item models.OrderItem
	if err := r.DB(ctx).First(&item, "id = ?", itemID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.DB(ctx).Create(&items).Error
}

// DeleteItem returns gorm.ErrRecordNotFound when nothing was deleted.
func (r *repository) DeleteItem(ctx context.Context, itemID uint64) error {
	res := r.DB(ctx).Where("id = ?", itemID).Delete(&models.OrderItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) DeleteItems(ctx context.Context, orderID uint64) error {
	return r.DB(ctx).Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error
}

func (r *repository) DeleteOrder(ctx context.Context, id uint64) error {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.Order{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) UpdateItemCommission(ctx context.Context, itemID uint64, commission decimal.Decimal) error {
	return r.DB(ctx).Model(&models.OrderItem{}).Where("id = ?", itemID).Update("commission", commission).Error
}

func (r *repository) UpdateDiscount(ctx context.Context, id uint64, discountID *uint64, percentage *decimal.Decimal) error {
	return r.DB(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(map[string]any{
		"discount_id":         discountID,
		"discount_percentage": percentage,
	}).Error
}

// UpdateTotals writes the derived amounts and bumps version, but only while
// the row still carries expectedVersion. It reports false on a lost race.
func (r *repository) UpdateTotals(ctx context.Context, id uint64, expectedVersion int64, totals Totals) (bool, error) {
	res := r.DB(ctx).Model(&models.Order{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]any{
			"subtotal":        totals.Subtotal,
			"discount_amount": totals.DiscountAmount,
			"total":           totals.Total,
			"version":         gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uint64, from, to enums.OrderStatus) (bool, error) {
	res := r.DB(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":  to,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
