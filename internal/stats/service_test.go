package stats

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/salesorders-backend/pkg/config"
	"github.com/angelmondragon/salesorders-backend/pkg/db/dbtest"
	"github.com/angelmondragon/salesorders-backend/pkg/db/models"
	"github.com/angelmondragon/salesorders-backend/pkg/enums"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func strPtr(v string) *string { return &v }

func expectInt(t *testing.T, field string, got, want int64) {
	t.Helper()
	if got != want {
		t.Fatalf("%s: expected %d, got %d", field, want, got)
	}
}

func expectDec(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s: expected %s, got %s", field, want, got)
	}
}

type line struct {
	product    models.Product
	quantity   int
	commission string
}

type seeder struct {
	t    *testing.T
	conn *gorm.DB
	seq  int
}

func (s *seeder) product(brand *string, price string) models.Product {
	s.t.Helper()
	s.seq++
	p := models.Product{
		Code:   fmt.Sprintf("SKU-%d", s.seq),
		Name:   fmt.Sprintf("Item %d", s.seq),
		Brand:  brand,
		Price:  dec(price),
		Active: true,
	}
	if err := s.conn.Create(&p).Error; err != nil {
		s.t.Fatalf("seed product: %v", err)
	}
	return p
}

func (s *seeder) order(rep uint64, status enums.OrderStatus, lines ...line) models.Order {
	s.t.Helper()
	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		lineSubtotal := l.product.Price.Mul(decimal.NewFromInt(int64(l.quantity)))
		subtotal = subtotal.Add(lineSubtotal)
		commission := decimal.Zero
		if l.commission != "" {
			commission = dec(l.commission)
		}
		items = append(items, models.OrderItem{
			ProductID:  l.product.ID,
			Quantity:   l.quantity,
			UnitPrice:  l.product.Price,
			Subtotal:   lineSubtotal,
			Commission: commission,
		})
	}
	order := models.Order{
		ClientID:         1,
		RepresentativeID: rep,
		Status:           status,
		Subtotal:         subtotal,
		Total:            subtotal,
		Items:            items,
	}
	if err := s.conn.Create(&order).Error; err != nil {
		s.t.Fatalf("seed order: %v", err)
	}
	return order
}

func newStats(t *testing.T, cfg config.StatsConfig) (Service, *seeder) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), cfg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, &seeder{t: t, conn: conn}
}

func TestTopSellingProducts(t *testing.T) {
	svc, seed := newStats(t, config.StatsConfig{})
	ctx := context.Background()

	var catalog []models.Product
	for i := 0; i < 5; i++ {
		catalog = append(catalog, seed.product(strPtr("Acme"), "1"))
	}
	pieces := []int{50, 40, 30, 20, 10}
	for i, p := range catalog {
		seed.order(7, enums.OrderStatusConfirmed, line{product: p, quantity: pieces[i]})
	}
	seed.order(7, enums.OrderStatusQuotation, line{product: catalog[4], quantity: 1000})

	top, err := svc.TopSellingProducts(ctx, 3, Filter{})
	if err != nil {
		t.Fatalf("top products: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(top))
	}
	for i, want := range []int64{50, 40, 30} {
		expectInt(t, fmt.Sprintf("top[%d].pieces", i), top[i].Pieces, want)
		expectInt(t, fmt.Sprintf("top[%d].orders", i), top[i].Orders, 1)
		if top[i].ProductID != catalog[i].ID {
			t.Fatalf("top[%d]: expected product %d, got %d", i, catalog[i].ID, top[i].ProductID)
		}
	}

	all, err := svc.TopSellingProducts(ctx, 0, Filter{})
	if err != nil {
		t.Fatalf("all products: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(all))
	}
	// quotation pieces do not count
	expectInt(t, "all[4].pieces", all[4].Pieces, 10)
}

func TestTopSellingProductsTiesAndCap(t *testing.T) {
	svc, seed := newStats(t, config.StatsConfig{TopProductsLimit: 20, MaxProductsLimit: 2})
	ctx := context.Background()

	a := seed.product(nil, "2")
	b := seed.product(nil, "2")
	c := seed.product(nil, "2")
	seed.order(1, enums.OrderStatusConfirmed, line{product: c, quantity: 5}, line{product: b, quantity: 5})
	seed.order(1, enums.OrderStatusConfirmed, line{product: a, quantity: 1})

	top, err := svc.TopSellingProducts(ctx, 10, Filter{})
	if err != nil {
		t.Fatalf("top products: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected limit capped to 2, got %d rows", len(top))
	}
	if top[0].ProductID != b.ID || top[1].ProductID != c.ID {
		t.Fatalf("expected ties ordered by id (%d, %d), got (%d, %d)", b.ID, c.ID, top[0].ProductID, top[1].ProductID)
	}
	if top[0].Brand != NoBrand {
		t.Fatalf("expected %q brand, got %q", NoBrand, top[0].Brand)
	}
}

func TestSalesByBrandUsesNoBrandSentinel(t *testing.T) {
	svc, seed := newStats(t, config.StatsConfig{})
	ctx := context.Background()

	unbranded := seed.product(nil, "1")
	blank := seed.product(strPtr("  "), "2")
	acme := seed.product(strPtr("Acme"), "3")
	zeta := seed.product(strPtr("Zeta"), "0.5")

	seed.order(7, enums.OrderStatusConfirmed,
		line{product: unbranded, quantity: 5, commission: "0.10"},
		line{product: blank, quantity: 3, commission: "0.20"},
		line{product: acme, quantity: 8, commission: "1"},
	)
	seed.order(8, enums.OrderStatusConfirmed, line{product: zeta, quantity: 20})
	seed.order(8, enums.OrderStatusQuotation, line{product: acme, quantity: 100})

	brands, err := svc.SalesByBrand(ctx, Filter{})
	if err != nil {
		t.Fatalf("sales by brand: %v", err)
	}
	if len(brands) != 3 {
		t.Fatalf("expected 3 brands, got %d", len(brands))
	}
	want := []string{"Zeta", "Acme", NoBrand}
	for i, name := range want {
		if brands[i].Brand != name {
			t.Fatalf("brands[%d]: expected %q, got %q", i, name, brands[i].Brand)
		}
	}

	expectInt(t, "zeta.pieces", brands[0].Pieces, 20)
	expectInt(t, "acme.pieces", brands[1].Pieces, 8)
	expectDec(t, "acme.value", brands[1].Value, "24")
	expectInt(t, "unbranded.pieces", brands[2].Pieces, 8)
	expectInt(t, "unbranded.items", brands[2].Items, 2)
	expectDec(t, "unbranded.value", brands[2].Value, "11")
	expectDec(t, "unbranded.commission", brands[2].Commission, "0.30")

	rep := uint64(8)
	filtered, err := svc.SalesByBrand(ctx, Filter{RepresentativeID: &rep})
	if err != nil {
		t.Fatalf("filtered sales by brand: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Brand != "Zeta" {
		t.Fatalf("expected only Zeta for representative 8, got %+v", filtered)
	}
}

func TestOrderStatsAndRepresentatives(t *testing.T) {
	svc, seed := newStats(t, config.StatsConfig{})
	ctx := context.Background()

	p := seed.product(strPtr("Acme"), "10.10")
	seed.order(7, enums.OrderStatusConfirmed, line{product: p, quantity: 10, commission: "2.02"})
	seed.order(7, enums.OrderStatusQuotation, line{product: p, quantity: 1})
	seed.order(8, enums.OrderStatusConfirmed, line{product: p, quantity: 5, commission: "1.01"})

	stats, err := svc.OrderStats(ctx, Filter{})
	if err != nil {
		t.Fatalf("order stats: %v", err)
	}
	expectInt(t, "total_orders", stats.TotalOrders, 3)
	expectInt(t, "confirmed_orders", stats.ConfirmedOrders, 2)
	expectInt(t, "quotation_orders", stats.QuotationOrders, 1)
	expectDec(t, "total_amount", stats.TotalAmount, "161.60")
	expectDec(t, "confirmed_amount", stats.ConfirmedAmount, "151.50")

	rep := uint64(7)
	repStats, err := svc.OrderStats(ctx, Filter{RepresentativeID: &rep})
	if err != nil {
		t.Fatalf("representative stats: %v", err)
	}
	expectInt(t, "rep.total_orders", repStats.TotalOrders, 2)
	expectDec(t, "rep.confirmed_amount", repStats.ConfirmedAmount, "101")

	reps, err := svc.SalesByRepresentative(ctx, Filter{})
	if err != nil {
		t.Fatalf("sales by representative: %v", err)
	}
	if len(reps) != 2 {
		t.Fatalf("expected 2 representatives, got %d", len(reps))
	}
	if reps[0].RepresentativeID != 7 || reps[1].RepresentativeID != 8 {
		t.Fatalf("unexpected representative order %d, %d", reps[0].RepresentativeID, reps[1].RepresentativeID)
	}
	expectInt(t, "rep7.total_orders", reps[0].TotalOrders, 2)
	expectInt(t, "rep7.confirmed_orders", reps[0].ConfirmedOrders, 1)
	expectInt(t, "rep7.pieces", reps[0].Pieces, 10)
	expectDec(t, "rep7.commission", reps[0].Commission, "2.02")
	expectInt(t, "rep8.pieces", reps[1].Pieces, 5)

	empty := uint64(99)
	none, err := svc.OrderStats(ctx, Filter{RepresentativeID: &empty})
	if err != nil {
		t.Fatalf("empty stats: %v", err)
	}
	expectInt(t, "empty.total_orders", none.TotalOrders, 0)
	if !none.TotalAmount.IsZero() {
		t.Fatalf("expected zero total amount, got %s", none.TotalAmount)
	}
}
