package conversions

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/salesorders-backend/internal/products"
	"github.com/angelmondragon/salesorders-backend/pkg/db"
	"github.com/angelmondragon/salesorders-backend/pkg/db/dbtest"
	"github.com/angelmondragon/salesorders-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/salesorders-backend/pkg/errors"
)

func setupRegistry(t *testing.T) (Registry, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	reg, err := NewRegistry(products.NewRepository(conn), db.Wrap(conn), nil)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return reg, conn
}

func createProduct(t *testing.T, conn *gorm.DB, code string) models.Product {
	t.Helper()
	p := models.Product{Code: code, Name: "Product " + code, Price: decimal.NewFromInt(5), Active: true}
	if err := conn.Create(&p).Error; err != nil {
		t.Fatalf("seed product %s: %v", code, err)
	}
	return p
}

func TestSaveAliasBindsReference(t *testing.T) {
	reg, conn := setupRegistry(t)
	p := createProduct(t, conn, "WUNI0004")

	saved, err := reg.SaveAlias(context.Background(), p.ID, "TM4")
	if err != nil {
		t.Fatalf("save alias: %v", err)
	}
	if saved.Conversion == nil || *saved.Conversion != "TM4" {
		t.Fatalf("expected conversion TM4, got %v", saved.Conversion)
	}

	found, err := reg.ResolveAlias(context.Background(), "TM4")
	if err != nil {
		t.Fatalf("resolve alias: %v", err)
	}
	if found == nil || found.ID != p.ID {
		t.Fatalf("expected product %d, got %+v", p.ID, found)
	}
}

func TestSaveAliasSameProductIsNoop(t *testing.T) {
	reg, conn := setupRegistry(t)
	p := createProduct(t, conn, "A-1")

	if _, err := reg.SaveAlias(context.Background(), p.ID, "REF-1"); err != nil {
		t.Fatalf("first save: %v", err)
	}
	again, err := reg.SaveAlias(context.Background(), p.ID, "REF-1")
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if again.Conversion == nil || *again.Conversion != "REF-1" {
		t.Fatalf("expected conversion REF-1, got %v", again.Conversion)
	}
}

func TestSaveAliasConflictKeepsOriginalBinding(t *testing.T) {
	reg, conn := setupRegistry(t)
	owner := createProduct(t, conn, "A-1")
	other := createProduct(t, conn, "B-1")

	if _, err := reg.SaveAlias(context.Background(), owner.ID, "REF-1"); err != nil {
		t.Fatalf("bind owner: %v", err)
	}

	_, err := reg.SaveAlias(context.Background(), other.ID, "REF-1")
	if !pkgerrors.HasCode(err, pkgerrors.CodeAliasConflict) {
		t.Fatalf("expected alias conflict, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	if !ok {
		t.Fatalf("expected map details, got %T", pkgerrors.As(err).Details())
	}
	if details["bound_product_id"] != owner.ID {
		t.Fatalf("expected bound_product_id %d, got %v", owner.ID, details["bound_product_id"])
	}

	found, err := reg.ResolveAlias(context.Background(), "REF-1")
	if err != nil {
		t.Fatalf("resolve alias: %v", err)
	}
	if found == nil || found.ID != owner.ID {
		t.Fatalf("expected alias to stay on %d, got %+v", owner.ID, found)
	}

	var reloaded models.Product
	if err := conn.First(&reloaded, other.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if reloaded.Conversion != nil {
		t.Fatalf("expected no conversion on losing product, got %q", *reloaded.Conversion)
	}
}

func TestSaveAliasUnknownProduct(t *testing.T) {
	reg, _ := setupRegistry(t)
	_, err := reg.SaveAlias(context.Background(), 999, "REF-1")
	if !pkgerrors.HasCode(err, pkgerrors.CodeProductNotFound) {
		t.Fatalf("expected product not found, got %v", err)
	}
}

func TestSaveAliasRejectsBlankReference(t *testing.T) {
	reg, conn := setupRegistry(t)
	p := createProduct(t, conn, "A-1")
	_, err := reg.SaveAlias(context.Background(), p.ID, "  ")
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveAliasUnbound(t *testing.T) {
	reg, _ := setupRegistry(t)
	found, err := reg.ResolveAlias(context.Background(), "missing")
	if err != nil {
		t.Fatalf("resolve alias: %v", err)
	}
	if found != nil {
		t.Fatalf("expected no product, got %+v", found)
	}
}

func TestConversionUniqueIndexBacksRegistry(t *testing.T) {
	_, conn := setupRegistry(t)
	ref := "REF-1"
	first := models.Product{Code: "A-1", Name: "A", Price: decimal.NewFromInt(1), Conversion: &ref}
	if err := conn.Create(&first).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	second := createProduct(t, conn, "B-1")
	err := products.NewRepository(conn).UpdateConversion(context.Background(), second.ID, ref)
	if err == nil {
		t.Fatal("expected unique violation")
	}
	if !isConversionUnique(err) {
		t.Fatalf("expected conversion unique violation, got %v", err)
	}
}
