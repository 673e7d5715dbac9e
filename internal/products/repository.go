package products

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/salesorders-backend/internal/repo"
	"github.com/angelmondragon/salesorders-backend/pkg/db/models"
)

// Unique constraint identifiers for the conversion column, as reported by
// Postgres (index name) and sqlite (table.column).
const (
	ConversionIndexName    = "idx_products_conversion"
	ConversionColumnUnique = "products.conversion"
)

const likeEscape = `\`

// Repository is the product persistence surface used by the resolver, the
// alias registry and the pricing engine.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uint64) (*models.Product, error)
	FindByCode(ctx context.Context, code string) (*models.Product, error)
	FindByConversion(ctx context.Context, ref string) (*models.Product, error)
	UpdateConversion(ctx context.Context, id uint64, ref string) error
	FindExact(ctx context.Context, ref string) ([]models.Product, error)
	FindReciprocal(ctx context.Context, product models.Product) ([]models.Product, error)
	FindByPrefix(ctx context.Context, ref string, exclude []uint64) ([]models.Product, error)
	FindContaining(ctx context.Context, ref string, exclude []uint64) ([]models.Product, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, product *models.Product) error {
	return r.DB(ctx).Create(product).Error
}

// FindByID returns gorm.ErrRecordNotFound when the product does not exist.
func (r *repository) FindByID(ctx context.Context, id uint64) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindByConversion(ctx context.Context, ref string) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "conversion = ?", ref).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) UpdateConversion(ctx context.Context, id uint64, ref string) error {
	res := r.DB(ctx).Model(&models.Product{}).Where("id = ?", id).Update("conversion", ref)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) FindExact(ctx context.Context, ref string) ([]models.Product, error) {
	var products []models.Product
	err := r.DB(ctx).
		Where("code = ? OR name = ? OR conversion = ? OR barcode = ?", ref, ref, ref, ref).
		Order("id ASC").
		Find(&products).Error
	return products, err
}

// FindReciprocal follows an alias pair in both directions: products named
// after the given product's conversion, and products whose conversion is the
// given product's name.
func (r *repository) FindReciprocal(ctx context.Context, product models.Product) ([]models.Product, error) {
	query := r.DB(ctx).Where("conversion = ?", product.Name)
	if product.Conversion != nil && *product.Conversion != "" {
		query = query.Or("name = ?", *product.Conversion)
	}
	var products []models.Product
	err := query.Order("id ASC").Find(&products).Error
	return products, err
}

func (r *repository) FindByPrefix(ctx context.Context, ref string, exclude []uint64) ([]models.Product, error) {
	pattern := escapeLike(strings.ToLower(ref)) + "%"
	query := r.DB(ctx).Where(
		"LOWER(code) LIKE ? ESCAPE ? OR LOWER(conversion) LIKE ? ESCAPE ? OR LOWER(name) LIKE ? ESCAPE ?",
		pattern, likeEscape, pattern, likeEscape, pattern, likeEscape,
	)
	return findExcluding(query, exclude)
}

func (r *repository) FindContaining(ctx context.Context, ref string, exclude []uint64) ([]models.Product, error) {
	pattern := "%" + escapeLike(strings.ToLower(ref)) + "%"
	columns := []string{"name", "category", "brand", "barcode", "code", "conversion", "description"}
	clauses := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns)*2)
	for _, column := range columns {
		clauses = append(clauses, "LOWER("+column+") LIKE ? ESCAPE ?")
		args = append(args, pattern, likeEscape)
	}
	query := r.DB(ctx).Where(strings.Join(clauses, " OR "), args...)
	return findExcluding(query, exclude)
}

func findExcluding(query *gorm.DB, exclude []uint64) ([]models.Product, error) {
	if len(exclude) > 0 {
		query = query.Where("id NOT IN ?", exclude)
	}
	var products []models.Product
	err := query.Order("id ASC").Find(&products).Error
	return products, err
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
