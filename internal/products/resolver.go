package products

import (
	"context"
	"strings"

	"github.com/angelmondragon/salesorders-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/salesorders-backend/pkg/errors"
	"github.com/angelmondragon/salesorders-backend/pkg/logger"
)

// Tier names the matching stage that produced a resolution.
type Tier string

const (
	TierExact       Tier = "exact"
	TierReciprocal  Tier = "reciprocal"
	TierPrefix      Tier = "prefix"
	TierContainment Tier = "containment"
	TierNone        Tier = "none"
)

// Resolution is the product set of the first tier that matched, in that
// tier's order. For a reciprocal resolution the exact match comes first.
type Resolution struct {
	Tier     Tier
	Products []models.Product
}

// TierObserver records which tier answered each lookup.
type TierObserver interface {
	IncResolution(tier string)
}

// Resolver maps free-form references (invoice codes, client SKUs, partial
// names) onto catalog products.
type Resolver struct {
	repo     Repository
	observer TierObserver
	logg     *logger.Logger
}

// NewResolver wires a resolver. observer and logg may be nil.
func NewResolver(repo Repository, observer TierObserver, logg *logger.Logger) (*Resolver, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product repository required")
	}
	return &Resolver{repo: repo, observer: observer, logg: logg}, nil
}

// Resolve runs the exact, reciprocal, prefix and containment tiers in order
// and returns the first non-empty one.
func (r *Resolver) Resolve(ctx context.Context, ref string) (*Resolution, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}

	resolution, err := r.resolve(ctx, ref)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "resolve product reference")
	}

	r.observe(resolution.Tier)
	if len(resolution.Products) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeProductNotFound, "no product matches reference").
			WithDetails(map[string]any{"reference": ref})
	}

	if r.logg != nil {
		ctx = r.logg.WithFields(ctx, map[string]any{
			"reference": ref,
			"tier":      string(resolution.Tier),
			"matches":   len(resolution.Products),
		})
		r.logg.Debug(ctx, "product.reference.resolved")
	}
	return resolution, nil
}

// ResolveOne returns the preferred product for single-product callers such
// as order entry: the first product of the winning tier.
func (r *Resolver) ResolveOne(ctx context.Context, ref string) (*models.Product, error) {
	resolution, err := r.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	product := resolution.Products[0]
	return &product, nil
}

func (r *Resolver) resolve(ctx context.Context, ref string) (*Resolution, error) {
	exact, err := r.repo.FindExact(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(exact) == 1 {
		related, err := r.repo.FindReciprocal(ctx, exact[0])
		if err != nil {
			return nil, err
		}
		merged := mergeUnique(exact, related)
		if len(merged) > len(exact) {
			return &Resolution{Tier: TierReciprocal, Products: merged}, nil
		}
		return &Resolution{Tier: TierExact, Products: exact}, nil
	}
	if len(exact) > 0 {
		return &Resolution{Tier: TierExact, Products: exact}, nil
	}

	prefix, err := r.repo.FindByPrefix(ctx, ref, productIDs(exact))
	if err != nil {
		return nil, err
	}
	if len(prefix) > 0 {
		return &Resolution{Tier: TierPrefix, Products: prefix}, nil
	}

	contained, err := r.repo.FindContaining(ctx, ref, productIDs(exact, prefix))
	if err != nil {
		return nil, err
	}
	if len(contained) > 0 {
		return &Resolution{Tier: TierContainment, Products: contained}, nil
	}
	return &Resolution{Tier: TierNone}, nil
}

func (r *Resolver) observe(tier Tier) {
	if r.observer != nil {
		r.observer.IncResolution(string(tier))
	}
}

// mergeUnique appends extra to base, skipping ids already present.
func mergeUnique(base, extra []models.Product) []models.Product {
	seen := make(map[uint64]struct{}, len(base)+len(extra))
	out := make([]models.Product, 0, len(base)+len(extra))
	for _, list := range [][]models.Product{base, extra} {
		for _, p := range list {
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

func productIDs(lists ...[]models.Product) []uint64 {
	var ids []uint64
	for _, list := range lists {
		for _, p := range list {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
