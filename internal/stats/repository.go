package stats

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/salesorders-backend/internal/repo"
	"github.com/angelmondragon/salesorders-backend/pkg/db/models"
	"github.com/angelmondragon/salesorders-backend/pkg/enums"
)

// NoBrand labels sales of products without a brand.
const NoBrand = "No Brand"

const brandExpr = "COALESCE(NULLIF(TRIM(p.brand), ''), '" + NoBrand + "')"

// Filter narrows every rollup. A nil RepresentativeID covers all
// representatives.
type Filter struct {
	RepresentativeID *uint64
}

type OrderCountsRow struct {
	TotalOrders     int64
	ConfirmedOrders int64
	QuotationOrders int64
	TotalAmount     decimal.Decimal
	ConfirmedAmount decimal.Decimal
}

type RepresentativeOrdersRow struct {
	RepresentativeID uint64
	TotalOrders      int64
	ConfirmedOrders  int64
	ConfirmedAmount  decimal.Decimal
}

type RepresentativeItemsRow struct {
	RepresentativeID uint64
	Pieces           int64
	Commission       decimal.Decimal
}

type BrandRow struct {
	Brand      string
	Pieces     int64
	Value      decimal.Decimal
	Commission decimal.Decimal
	Items      int64
}

type ProductRow struct {
	ProductID uint64
	Code      string
	Name      string
	Brand     *string
	Pieces    int64
	Value     decimal.Decimal
	Orders    int64
}

// Repository runs read-only aggregate queries.
type Repository interface {
	OrderCounts(ctx context.Context, filter Filter) (*OrderCountsRow, error)
	RepresentativeOrders(ctx context.Context, filter Filter) ([]RepresentativeOrdersRow, error)
	RepresentativeItems(ctx context.Context, filter Filter) ([]RepresentativeItemsRow, error)
	Brands(ctx context.Context, filter Filter) ([]BrandRow, error)
	TopProducts(ctx context.Context, limit int, filter Filter) ([]ProductRow, error)
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) OrderCounts(ctx context.Context, filter Filter) (*OrderCountsRow, error) {
	var row OrderCountsRow
	err := r.DB(ctx).Model(&models.Order{}).
		Select(
			"COUNT(*) AS total_orders, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS confirmed_orders, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS quotation_orders, "+
				"COALESCE(SUM(total), 0) AS total_amount, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN total ELSE 0 END), 0) AS confirmed_amount",
			enums.OrderStatusConfirmed, enums.OrderStatusQuotation, enums.OrderStatusConfirmed,
		).
		Scopes(byRepresentative("representative_id", filter)).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) RepresentativeOrders(ctx context.Context, filter Filter) ([]RepresentativeOrdersRow, error) {
	var rows []RepresentativeOrdersRow
	err := r.DB(ctx).Model(&models.Order{}).
		Select(
			"representative_id, COUNT(*) AS total_orders, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS confirmed_orders, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN total ELSE 0 END), 0) AS confirmed_amount",
			enums.OrderStatusConfirmed, enums.OrderStatusConfirmed,
		).
		Scopes(byRepresentative("representative_id", filter)).
		Group("representative_id").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) RepresentativeItems(ctx context.Context, filter Filter) ([]RepresentativeItemsRow, error) {
	var rows []RepresentativeItemsRow
	err := r.confirmedItems(ctx, filter).
		Select("o.representative_id AS representative_id, COALESCE(SUM(oi.quantity), 0) AS pieces, COALESCE(SUM(oi.commission), 0) AS commission").
		Group("o.representative_id").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) Brands(ctx context.Context, filter Filter) ([]BrandRow, error) {
	var rows []BrandRow
	err := r.confirmedItems(ctx, filter).
		Joins("JOIN products p ON p.id = oi.product_id").
		Select(brandExpr + " AS brand, " +
			"COALESCE(SUM(oi.quantity), 0) AS pieces, " +
			"COALESCE(SUM(oi.subtotal), 0) AS value, " +
			"COALESCE(SUM(oi.commission), 0) AS commission, " +
			"COUNT(oi.id) AS items").
		Group(brandExpr).
		Scan(&rows).Error
	return rows, err
}

func (r *repository) TopProducts(ctx context.Context, limit int, filter Filter) ([]ProductRow, error) {
	var rows []ProductRow
	err := r.confirmedItems(ctx, filter).
		Joins("JOIN products p ON p.id = oi.product_id").
		Select("oi.product_id AS product_id, p.code AS code, p.name AS name, p.brand AS brand, " +
			"COALESCE(SUM(oi.quantity), 0) AS pieces, " +
			"COALESCE(SUM(oi.subtotal), 0) AS value, " +
			"COUNT(DISTINCT oi.order_id) AS orders").
		Group("oi.product_id, p.code, p.name, p.brand").
		Order("pieces DESC, oi.product_id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *repository) confirmedItems(ctx context.Context, filter Filter) *gorm.DB {
	return r.DB(ctx).
		Table("order_items oi").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Where("o.status = ?", enums.OrderStatusConfirmed).
		Scopes(byRepresentative("o.representative_id", filter))
}

func byRepresentative(column string, filter Filter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.RepresentativeID == nil {
			return db
		}
		return db.Where(column+" = ?", *filter.RepresentativeID)
	}
}
