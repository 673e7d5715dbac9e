package discounts

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/salesorders-backend/pkg/db"
	"github.com/angelmondragon/salesorders-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/salesorders-backend/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// TierDTO is the API representation of a discount tier.
type TierDTO struct {
	ID         uint64          `json:"id"`
	Name       string          `json:"name"`
	Percentage decimal.Decimal `json:"percentage"`
	Commission decimal.Decimal `json:"commission"`
}

// TierInput carries the fields of a tier to create or update.
type TierInput struct {
	Name       string
	Percentage decimal.Decimal
	Commission decimal.Decimal
}

// Service manages discount tiers.
type Service interface {
	List(ctx context.Context) ([]TierDTO, error)
	Get(ctx context.Context, id uint64) (*TierDTO, error)
	Create(ctx context.Context, input TierInput) (*TierDTO, error)
	Update(ctx context.Context, id uint64, input TierInput) (*TierDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo Repository
	tx   txRunner
}

func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, errors.New("discount repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) List(ctx context.Context) ([]TierDTO, error) {
	tiers, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list discount tiers")
	}
	out := make([]TierDTO, 0, len(tiers))
	for _, tier := range tiers {
		out = append(out, toDTO(tier))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uint64) (*TierDTO, error) {
	tier, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	dto := toDTO(*tier)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input TierInput) (*TierDTO, error) {
	tier, err := validate(input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, tier); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "discount tier name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create discount tier")
	}
	dto := toDTO(*tier)
	return &dto, nil
}

// Update rewrites a tier that no order references yet. Referenced tiers are
// frozen so historical commissions stay reproducible.
func (s *service) Update(ctx context.Context, id uint64, input TierInput) (*TierDTO, error) {
	tier, err := validate(input)
	if err != nil {
		return nil, err
	}
	tier.ID = id

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := txRepo.FindByID(ctx, id); err != nil {
			return mapLoadError(err)
		}
		referenced, err := txRepo.IsReferenced(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "check discount tier usage")
		}
		if referenced {
			return pkgerrors.New(pkgerrors.CodeInvalidOrderState, "discount tier is referenced by orders and cannot change")
		}
		if err := txRepo.Update(ctx, tier); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update discount tier")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := toDTO(*tier)
	return &dto, nil
}

func validate(input TierInput) (*models.DiscountTier, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	for field, value := range map[string]decimal.Decimal{"percentage": input.Percentage, "commission": input.Commission} {
		if value.IsNegative() || value.GreaterThan(hundred) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentages must be between 0 and 100").
				WithDetails(map[string]any{"field": field})
		}
	}
	return &models.DiscountTier{Name: name, Percentage: input.Percentage, Commission: input.Commission}, nil
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "discount tier not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load discount tier")
}

func toDTO(tier models.DiscountTier) TierDTO {
	return TierDTO{ID: tier.ID, Name: tier.Name, Percentage: tier.Percentage, Commission: tier.Commission}
}
