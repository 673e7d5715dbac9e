// Package conversions maintains the binding between a client's own product
// reference and a catalog product, stored on the product's conversion column.
package conversions

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/salesorders-backend/internal/products"
	"github.com/angelmondragon/salesorders-backend/pkg/db"
	"github.com/angelmondragon/salesorders-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/salesorders-backend/pkg/errors"
	"github.com/angelmondragon/salesorders-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Registry saves and looks up client reference aliases.
type Registry interface {
	SaveAlias(ctx context.Context, productID uint64, clientRef string) (*products.ProductDTO, error)
	ResolveAlias(ctx context.Context, clientRef string) (*products.ProductDTO, error)
}

type registry struct {
	repo products.Repository
	tx   txRunner
	logg *logger.Logger
}

// NewRegistry wires the alias registry.
func NewRegistry(repo products.Repository, tx txRunner, logg *logger.Logger) (Registry, error) {
	if repo == nil {
		return nil, errors.New("product repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	return &registry{repo: repo, tx: tx, logg: logg}, nil
}

// SaveAlias binds clientRef to productID. Rebinding the same pair is a no-op;
// a reference held by another product is never overwritten.
func (r *registry) SaveAlias(ctx context.Context, productID uint64, clientRef string) (*products.ProductDTO, error) {
	clientRef = strings.TrimSpace(clientRef)
	if clientRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client reference is required")
	}

	var saved *models.Product
	err := r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := r.repo.WithTx(tx)

		product, err := txRepo.FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeProductNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load product")
		}

		holder, err := txRepo.FindByConversion(ctx, clientRef)
		switch {
		case err == nil && holder.ID != productID:
			return aliasConflict(nil, clientRef, holder.ID)
		case err == nil:
			saved = product
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "check alias binding")
		}

		if err := txRepo.UpdateConversion(ctx, productID, clientRef); err != nil {
			if isConversionUnique(err) {
				return aliasConflict(err, clientRef, 0)
			}
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "save alias")
		}
		product.Conversion = &clientRef
		saved = product
		return nil
	})
	if err != nil {
		return nil, err
	}

	if r.logg != nil {
		logCtx := r.logg.WithProductID(ctx, productID)
		r.logg.Info(r.logg.WithField(logCtx, "client_ref", clientRef), "alias.saved")
	}

	dto := products.FromModel(*saved)
	return &dto, nil
}

// ResolveAlias returns the product bound to clientRef, or nil when unbound.
func (r *registry) ResolveAlias(ctx context.Context, clientRef string) (*products.ProductDTO, error) {
	clientRef = strings.TrimSpace(clientRef)
	if clientRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client reference is required")
	}
	product, err := r.repo.FindByConversion(ctx, clientRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "resolve alias")
	}
	dto := products.FromModel(*product)
	return &dto, nil
}

func isConversionUnique(err error) bool {
	return db.IsUniqueViolation(err, products.ConversionIndexName) ||
		db.IsUniqueViolation(err, products.ConversionColumnUnique)
}

func aliasConflict(cause error, clientRef string, holderID uint64) *pkgerrors.Error {
	details := map[string]any{"client_ref": clientRef}
	if holderID != 0 {
		details["bound_product_id"] = holderID
	}
	return pkgerrors.Wrap(pkgerrors.CodeAliasConflict, cause, "alias already bound to another product").WithDetails(details)
}
