package products

import (
	"context"
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/salesorders-backend/pkg/db"
	"github.com/angelmondragon/salesorders-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/salesorders-backend/pkg/errors"
)

// Service exposes catalog maintenance and reference resolution.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, id uint64) (*ProductDTO, error)
	ResolveReference(ctx context.Context, ref string) (*ResolutionDTO, error)
	ResolveOne(ctx context.Context, ref string) (*ProductDTO, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Code             string
	Name             string
	Barcode          *string
	Category         *string
	Brand            *string
	Description      *string
	Price            decimal.Decimal
	StockQuantity    int
	Active           bool
	Conversion       *string
	ConversionBrand  *string
	EquivalentBrands []string
}

type service struct {
	repo     Repository
	resolver *Resolver
}

// NewService builds the catalog service.
func NewService(repo Repository, resolver *Resolver) (Service, error) {
	if repo == nil {
		return nil, errors.New("product repository required")
	}
	if resolver == nil {
		return nil, errors.New("product resolver required")
	}
	return &service{repo: repo, resolver: resolver}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	code := strings.TrimSpace(input.Code)
	name := strings.TrimSpace(input.Name)
	if code == "" || name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code and name are required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.StockQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity must not be negative")
	}

	product := &models.Product{
		Code:             code,
		Name:             name,
		Barcode:          trimmedOrNil(input.Barcode),
		Category:         trimmedOrNil(input.Category),
		Brand:            trimmedOrNil(input.Brand),
		Description:      input.Description,
		Price:            input.Price,
		StockQuantity:    input.StockQuantity,
		Active:           input.Active,
		Conversion:       trimmedOrNil(input.Conversion),
		ConversionBrand:  trimmedOrNil(input.ConversionBrand),
		EquivalentBrands: pq.StringArray(input.EquivalentBrands),
	}
	if product.EquivalentBrands == nil {
		product.EquivalentBrands = pq.StringArray{}
	}

	if err := s.repo.Create(ctx, product); err != nil {
		switch {
		case db.IsUniqueViolation(err, ConversionIndexName), db.IsUniqueViolation(err, ConversionColumnUnique):
			return nil, pkgerrors.Wrap(pkgerrors.CodeAliasConflict, err, "conversion already bound to another product")
		case db.IsUniqueViolation(err, ""):
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create product")
	}

	dto := FromModel(*product)
	return &dto, nil
}

func (s *service) GetProduct(ctx context.Context, id uint64) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeProductNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load product")
	}
	dto := FromModel(*product)
	return &dto, nil
}

func (s *service) ResolveReference(ctx context.Context, ref string) (*ResolutionDTO, error) {
	resolution, err := s.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	dto := NewResolutionDTO(strings.TrimSpace(ref), resolution)
	return &dto, nil
}

func (s *service) ResolveOne(ctx context.Context, ref string) (*ProductDTO, error) {
	product, err := s.resolver.ResolveOne(ctx, ref)
	if err != nil {
		return nil, err
	}
	dto := FromModel(*product)
	return &dto, nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
