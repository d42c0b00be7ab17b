package repository

import (
	"context"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PolicyRepository interface {
	FindByOrg(ctx context.Context, orgID uuid.UUID) (*model.ProcurementPolicy, error)
	Save(ctx context.Context, policy *model.ProcurementPolicy) error
	CreateNotice(ctx context.Context, notice *model.ExceptionNotice) error
	ListNotices(ctx context.Context, orgID uuid.UUID, page, limit int) ([]model.ExceptionNotice, int64, error)
}

type policyRepository struct {
	db *gorm.DB
}

func NewPolicyRepository(db *gorm.DB) PolicyRepository {
	return &policyRepository{db: db}
}

func (r *policyRepository) FindByOrg(ctx context.Context, orgID uuid.UUID) (*model.ProcurementPolicy, error) {
	var policy model.ProcurementPolicy
	if err := GetDB(ctx, r.db).First(&policy, "org_id = ?", orgID).Error; err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *policyRepository) Save(ctx context.Context, policy *model.ProcurementPolicy) error {
	return GetDB(ctx, r.db).Save(policy).Error
}

func (r *policyRepository) CreateNotice(ctx context.Context, notice *model.ExceptionNotice) error {
	return GetDB(ctx, r.db).Create(notice).Error
}

func (r *policyRepository) ListNotices(ctx context.Context, orgID uuid.UUID, page, limit int) ([]model.ExceptionNotice, int64, error) {
	var notices []model.ExceptionNotice
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.ExceptionNotice{}).Where("org_id = ?", orgID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Creator").
		Where("org_id = ?", orgID).
		Order("created_at desc").Offset(offset).Limit(limit).
		Find(&notices).Error; err != nil {
		return nil, 0, err
	}

	return notices, total, nil
}
