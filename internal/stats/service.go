// Package stats serves read-only sales rollups over confirmed orders.
package stats

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/salesorders-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/salesorders-backend/pkg/errors"
	"github.com/angelmondragon/salesorders-backend/pkg/money"
)

const defaultTopProducts = 20

// OrderStats counts orders by status. Amounts are order totals.
type OrderStats struct {
	TotalOrders     int64           `json:"total_orders"`
	ConfirmedOrders int64           `json:"confirmed_orders"`
	QuotationOrders int64           `json:"quotation_orders"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ConfirmedAmount decimal.Decimal `json:"confirmed_amount"`
}

type RepresentativeSales struct {
	RepresentativeID uint64          `json:"representative_id"`
	TotalOrders      int64           `json:"total_orders"`
	ConfirmedOrders  int64           `json:"confirmed_orders"`
	ConfirmedAmount  decimal.Decimal `json:"confirmed_amount"`
	Pieces           int64           `json:"pieces"`
	Commission       decimal.Decimal `json:"commission"`
}

type BrandSales struct {
	Brand      string          `json:"brand"`
	Pieces     int64           `json:"pieces"`
	Value      decimal.Decimal `json:"value"`
	Commission decimal.Decimal `json:"commission"`
	Items      int64           `json:"items"`
}

type ProductSales struct {
	ProductID uint64          `json:"product_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Brand     string          `json:"brand"`
	Pieces    int64           `json:"pieces"`
	Value     decimal.Decimal `json:"value"`
	Orders    int64           `json:"orders"`
}

// Service aggregates sales figures.
type Service interface {
	OrderStats(ctx context.Context, filter Filter) (*OrderStats, error)
	SalesByRepresentative(ctx context.Context, filter Filter) ([]RepresentativeSales, error)
	SalesByBrand(ctx context.Context, filter Filter) ([]BrandSales, error)
	TopSellingProducts(ctx context.Context, limit int, filter Filter) ([]ProductSales, error)
}

type service struct {
	repo         Repository
	defaultLimit int
	maxLimit     int
}

// NewService builds the aggregator. Zero limits fall back to 20 entries and
// no upper cap.
func NewService(repo Repository, cfg config.StatsConfig) (Service, error) {
	if repo == nil {
		return nil, errors.New("stats repository required")
	}
	defaultLimit := cfg.TopProductsLimit
	if defaultLimit <= 0 {
		defaultLimit = defaultTopProducts
	}
	return &service{repo: repo, defaultLimit: defaultLimit, maxLimit: cfg.MaxProductsLimit}, nil
}

func (s *service) OrderStats(ctx context.Context, filter Filter) (*OrderStats, error) {
	row, err := s.repo.OrderCounts(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "aggregate order stats")
	}
	return &OrderStats{
		TotalOrders:     row.TotalOrders,
		ConfirmedOrders: row.ConfirmedOrders,
		QuotationOrders: row.QuotationOrders,
		TotalAmount:     money.Round2(row.TotalAmount),
		ConfirmedAmount: money.Round2(row.ConfirmedAmount),
	}, nil
}

// SalesByRepresentative is ordered by confirmed amount descending, then
// representative id.
func (s *service) SalesByRepresentative(ctx context.Context, filter Filter) ([]RepresentativeSales, error) {
	orderRows, err := s.repo.RepresentativeOrders(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "aggregate representative orders")
	}
	itemRows, err := s.repo.RepresentativeItems(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "aggregate representative items")
	}

	items := make(map[uint64]RepresentativeItemsRow, len(itemRows))
	for _, row := range itemRows {
		items[row.RepresentativeID] = row
	}

	out := make([]RepresentativeSales, 0, len(orderRows))
	for _, row := range orderRows {
		sales := RepresentativeSales{
			RepresentativeID: row.RepresentativeID,
			TotalOrders:      row.TotalOrders,
			ConfirmedOrders:  row.ConfirmedOrders,
			ConfirmedAmount:  money.Round2(row.ConfirmedAmount),
			Commission:       decimal.Zero,
		}
		if item, ok := items[row.RepresentativeID]; ok {
			sales.Pieces = item.Pieces
			sales.Commission = money.Round2(item.Commission)
		}
		out = append(out, sales)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ConfirmedAmount.Equal(out[j].ConfirmedAmount) {
			return out[i].ConfirmedAmount.GreaterThan(out[j].ConfirmedAmount)
		}
		return out[i].RepresentativeID < out[j].RepresentativeID
	})
	return out, nil
}

// SalesByBrand is ordered by pieces descending, then brand name.
func (s *service) SalesByBrand(ctx context.Context, filter Filter) ([]BrandSales, error) {
	rows, err := s.repo.Brands(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "aggregate brand sales")
	}
	out := make([]BrandSales, 0, len(rows))
	for _, row := range rows {
		out = append(out, BrandSales{
			Brand:      brandLabel(&row.Brand),
			Pieces:     row.Pieces,
			Value:      money.Round2(row.Value),
			Commission: money.Round2(row.Commission),
			Items:      row.Items,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pieces != out[j].Pieces {
			return out[i].Pieces > out[j].Pieces
		}
		return out[i].Brand < out[j].Brand
	})
	return out, nil
}

// TopSellingProducts returns at most limit products by pieces sold. A
// non-positive limit takes the configured default.
func (s *service) TopSellingProducts(ctx context.Context, limit int, filter Filter) ([]ProductSales, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if s.maxLimit > 0 && limit > s.maxLimit {
		limit = s.maxLimit
	}
	rows, err := s.repo.TopProducts(ctx, limit, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "aggregate top products")
	}
	out := make([]ProductSales, 0, len(rows))
	for _, row := range rows {
		out = append(out, ProductSales{
			ProductID: row.ProductID,
			Code:      row.Code,
			Name:      row.Name,
			Brand:     brandLabel(row.Brand),
			Pieces:    row.Pieces,
			Value:     money.Round2(row.Value),
			Orders:    row.Orders,
		})
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func brandLabel(brand *string) string {
	if brand == nil || strings.TrimSpace(*brand) == "" {
		return NoBrand
	}
	return strings.TrimSpace(*brand)
}
