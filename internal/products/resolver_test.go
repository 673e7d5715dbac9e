package products

import (
	"context"
	"slices"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/salesorders-backend/pkg/db/dbtest"
	"github.com/angelmondragon/salesorders-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/salesorders-backend/pkg/errors"
)

type countingObserver struct {
	tiers map[string]int
}

func (c *countingObserver) IncResolution(tier string) {
	if c.tiers == nil {
		c.tiers = map[string]int{}
	}
	c.tiers[tier]++
}

func strPtr(v string) *string { return &v }

func seedProduct(t *testing.T, conn *gorm.DB, p models.Product) models.Product {
	t.Helper()
	if p.Price.IsZero() {
		p.Price = decimal.NewFromInt(10)
	}
	p.Active = true
	if err := conn.Create(&p).Error; err != nil {
		t.Fatalf("seed product %s: %v", p.Code, err)
	}
	return p
}

func newTestResolver(t *testing.T) (*Resolver, *gorm.DB, *countingObserver) {
	t.Helper()
	conn := dbtest.Open(t)
	observer := &countingObserver{}
	resolver, err := NewResolver(NewRepository(conn), observer, nil)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return resolver, conn, observer
}

func resolvedIDs(res *Resolution) []uint64 {
	ids := make([]uint64, 0, len(res.Products))
	for _, p := range res.Products {
		ids = append(ids, p.ID)
	}
	return ids
}

func expectResolution(t *testing.T, res *Resolution, err error, tier Tier, ids ...uint64) {
	t.Helper()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Tier != tier {
		t.Fatalf("expected tier %s, got %s", tier, res.Tier)
	}
	if got := resolvedIDs(res); !slices.Equal(got, ids) {
		t.Fatalf("expected products %v, got %v", ids, got)
	}
}

func expectTierCount(t *testing.T, observer *countingObserver, tier string, want int) {
	t.Helper()
	if got := observer.tiers[tier]; got != want {
		t.Fatalf("expected %d %s resolutions, got %d", want, tier, got)
	}
}

func TestResolveExactCodeIsSoleResult(t *testing.T) {
	resolver, conn, observer := newTestResolver(t)
	target := seedProduct(t, conn, models.Product{Code: "ABC-1", Name: "Hex bolt"})
	seedProduct(t, conn, models.Product{Code: "ABC-10", Name: "Hex bolt long"})

	res, err := resolver.Resolve(context.Background(), "ABC-1")
	expectResolution(t, res, err, TierExact, target.ID)
	expectTierCount(t, observer, "exact", 1)
}

func TestResolveExactIsCaseSensitive(t *testing.T) {
	resolver, conn, _ := newTestResolver(t)
	p := seedProduct(t, conn, models.Product{Code: "ABC-1", Name: "Hex bolt"})

	res, err := resolver.Resolve(context.Background(), "abc-1")
	expectResolution(t, res, err, TierPrefix, p.ID)
}

func TestResolveAliasPair(t *testing.T) {
	resolver, conn, _ := newTestResolver(t)
	a := seedProduct(t, conn, models.Product{Code: "TM4", Name: "Tornillo M4"})
	b := seedProduct(t, conn, models.Product{Code: "WUNI0004", Name: "Wurth screw M4", Conversion: strPtr("TM4")})

	res, err := resolver.Resolve(context.Background(), "TM4")
	expectResolution(t, res, err, TierExact, a.ID, b.ID)

	res, err = resolver.Resolve(context.Background(), "WUNI0004")
	expectResolution(t, res, err, TierExact, b.ID)
}

func TestResolveReciprocalFollowsBothDirections(t *testing.T) {
	resolver, conn, observer := newTestResolver(t)
	p1 := seedProduct(t, conn, models.Product{Code: "C-100", Name: "Widget", Conversion: strPtr("W-ALIAS")})
	p2 := seedProduct(t, conn, models.Product{Code: "C-200", Name: "W-ALIAS"})
	p3 := seedProduct(t, conn, models.Product{Code: "C-300", Name: "Gadget", Conversion: strPtr("Widget")})
	seedProduct(t, conn, models.Product{Code: "C-400", Name: "Unrelated"})

	res, err := resolver.Resolve(context.Background(), "C-100")
	expectResolution(t, res, err, TierReciprocal, p1.ID, p2.ID, p3.ID)
	expectTierCount(t, observer, "reciprocal", 1)

	one, err := resolver.ResolveOne(context.Background(), "C-100")
	if err != nil {
		t.Fatalf("resolve one: %v", err)
	}
	if one.ID != p1.ID {
		t.Fatalf("expected product %d, got %d", p1.ID, one.ID)
	}
}

func TestResolvePrefixIsCaseInsensitive(t *testing.T) {
	resolver, conn, _ := newTestResolver(t)
	p1 := seedProduct(t, conn, models.Product{Code: "C-100", Name: "Widget"})
	seedProduct(t, conn, models.Product{Code: "C-200", Name: "Gizmo"})
	p3 := seedProduct(t, conn, models.Product{Code: "C-300", Name: "Gadget", Conversion: strPtr("WIDE-9")})

	res, err := resolver.Resolve(context.Background(), "wId")
	expectResolution(t, res, err, TierPrefix, p1.ID, p3.ID)
}

func TestResolveContainmentFallback(t *testing.T) {
	resolver, conn, _ := newTestResolver(t)
	seedProduct(t, conn, models.Product{Code: "C-100", Name: "Widget"})
	byBrand := seedProduct(t, conn, models.Product{Code: "C-200", Name: "Gizmo", Brand: strPtr("Acme Tools")})
	byDesc := seedProduct(t, conn, models.Product{Code: "C-300", Name: "Gadget", Description: strPtr("heavy duty ACME clamp")})

	res, err := resolver.Resolve(context.Background(), "acme")
	expectResolution(t, res, err, TierContainment, byBrand.ID, byDesc.ID)
}

func TestResolveNotFound(t *testing.T) {
	resolver, conn, observer := newTestResolver(t)
	seedProduct(t, conn, models.Product{Code: "C-100", Name: "Widget"})

	_, err := resolver.Resolve(context.Background(), "does-not-exist")
	if !pkgerrors.HasCode(err, pkgerrors.CodeProductNotFound) {
		t.Fatalf("expected product not found, got %v", err)
	}
	expectTierCount(t, observer, "none", 1)

	// wildcards match literally
	_, err = resolver.Resolve(context.Background(), "%")
	if !pkgerrors.HasCode(err, pkgerrors.CodeProductNotFound) {
		t.Fatalf("expected %% to match nothing, got %v", err)
	}
}

func TestResolveRejectsBlankReference(t *testing.T) {
	resolver, _, _ := newTestResolver(t)
	_, err := resolver.Resolve(context.Background(), "   ")
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveOnePrefersLowestID(t *testing.T) {
	resolver, conn, _ := newTestResolver(t)
	first := seedProduct(t, conn, models.Product{Code: "D-1", Name: "Duplicate"})
	seedProduct(t, conn, models.Product{Code: "D-2", Name: "Duplicate"})

	one, err := resolver.ResolveOne(context.Background(), "Duplicate")
	if err != nil {
		t.Fatalf("resolve one: %v", err)
	}
	if one.ID != first.ID {
		t.Fatalf("expected product %d, got %d", first.ID, one.ID)
	}
}

func TestMergeUnique(t *testing.T) {
	base := []models.Product{{ID: 3}, {ID: 1}}
	extra := []models.Product{{ID: 1}, {ID: 7}, {ID: 3}}
	merged := mergeUnique(base, extra)
	ids := make([]uint64, 0, len(merged))
	for _, p := range merged {
		ids = append(ids, p.ID)
	}
	if want := []uint64{3, 1, 7}; !slices.Equal(ids, want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
}
