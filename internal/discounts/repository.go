package discounts

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/salesorders-backend/internal/repo"
	"github.com/angelmondragon/salesorders-backend/pkg/db/models"
)

// Repository persists discount tiers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAll(ctx context.Context) ([]models.DiscountTier, error)
	FindByID(ctx context.Context, id uint64) (*models.DiscountTier, error)
	FindByIDs(ctx context.Context, ids []uint64) (map[uint64]models.DiscountTier, error)
	Create(ctx context.Context, tier *models.DiscountTier) error
	Update(ctx context.Context, tier *models.DiscountTier) error
	IsReferenced(ctx context.Context, id uint64) (bool, error)
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) FindAll(ctx context.Context) ([]models.DiscountTier, error) {
	var tiers []models.DiscountTier
	err := r.DB(ctx).Order("id ASC").Find(&tiers).Error
	return tiers, err
}

func (r *repository) FindByID(ctx context.Context, id uint64) (*models.DiscountTier, error) {
	var tier models.DiscountTier
	if err := r.DB(ctx).First(&tier, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tier, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uint64) (map[uint64]models.DiscountTier, error) {
	out := make(map[uint64]models.DiscountTier, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var tiers []models.DiscountTier
	if err := r.DB(ctx).Where("id IN ?", ids).Find(&tiers).Error; err != nil {
		return nil, err
	}
	for _, tier := range tiers {
		out[tier.ID] = tier
	}
	return out, nil
}

func (r *repository) Create(ctx context.Context, tier *models.DiscountTier) error {
	return r.DB(ctx).Create(tier).Error
}

func (r *repository) Update(ctx context.Context, tier *models.DiscountTier) error {
	return r.DB(ctx).Model(&models.DiscountTier{}).Where("id = ?", tier.ID).Updates(map[string]any{
		"name":       tier.Name,
		"percentage": tier.Percentage,
		"commission": tier.Commission,
	}).Error
}

// IsReferenced reports whether any order or order item points at the tier.
func (r *repository) IsReferenced(ctx context.Context, id uint64) (bool, error) {
	var count int64
	if err := r.DB(ctx).Model(&models.Order{}).Where("discount_id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}
	if err := r.DB(ctx).Model(&models.OrderItem{}).Where("discount_id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
