package repository

import (
	"context"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RequisitionRepository interface {
	Create(ctx context.Context, pr *model.Requisition) error
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.Requisition, error)
	FindByIDWithLines(ctx context.Context, orgID, id uuid.UUID) (*model.Requisition, error)
	FindLineByID(ctx context.Context, id uuid.UUID) (*model.RequisitionLine, error)
	List(ctx context.Context, orgID uuid.UUID, status string, page, limit int) ([]model.Requisition, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	SaveLine(ctx context.Context, line *model.RequisitionLine) error
	SaveLines(ctx context.Context, lines []model.RequisitionLine) error
}

type requisitionRepository struct {
	db *gorm.DB
}

func NewRequisitionRepository(db *gorm.DB) RequisitionRepository {
	return &requisitionRepository{db: db}
}

func (r *requisitionRepository) Create(ctx context.Context, pr *model.Requisition) error {
	return GetDB(ctx, r.db).Create(pr).Error
}

func (r *requisitionRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.Requisition, error) {
	var pr model.Requisition
	if err := GetDB(ctx, r.db).First(&pr, "org_id = ? AND id = ?", orgID, id).Error; err != nil {
		return nil, err
	}
	return &pr, nil
}

func (r *requisitionRepository) FindByIDWithLines(ctx context.Context, orgID, id uuid.UUID) (*model.Requisition, error) {
	var pr model.Requisition
	if err := GetDB(ctx, r.db).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		Preload("Lines.Material").
		First(&pr, "org_id = ? AND id = ?", orgID, id).Error; err != nil {
		return nil, err
	}
	return &pr, nil
}

func (r *requisitionRepository) FindLineByID(ctx context.Context, id uuid.UUID) (*model.RequisitionLine, error) {
	var line model.RequisitionLine
	if err := GetDB(ctx, r.db).Preload("Material").First(&line, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *requisitionRepository) List(ctx context.Context, orgID uuid.UUID, status string, page, limit int) ([]model.Requisition, int64, error) {
	var prs []model.Requisition
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Requisition{}).Where("org_id = ?", orgID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetch := db.Preload("Lines").Where("org_id = ?", orgID)
	if status != "" {
		fetch = fetch.Where("status = ?", status)
	}
	if err := fetch.Order("created_at desc").Offset(offset).Limit(limit).Find(&prs).Error; err != nil {
		return nil, 0, err
	}

	return prs, total, nil
}

func (r *requisitionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.Requisition{}).Where("id = ?", id).Update("status", status).Error
}

func (r *requisitionRepository) SaveLine(ctx context.Context, line *model.RequisitionLine) error {
	return GetDB(ctx, r.db).Save(line).Error
}

func (r *requisitionRepository) SaveLines(ctx context.Context, lines []model.RequisitionLine) error {
	db := GetDB(ctx, r.db)
	for i := range lines {
		if err := db.Save(&lines[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
