package repository

import (
	"context"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, po *model.PurchaseOrder) error
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.PurchaseOrder, error)
	FindByIDWithItems(ctx context.Context, orgID, id uuid.UUID) (*model.PurchaseOrder, error)
	List(ctx context.Context, orgID uuid.UUID, status string, vendorID *uuid.UUID, page, limit int) ([]model.PurchaseOrder, int64, error)
	Save(ctx context.Context, po *model.PurchaseOrder) error
	CreateItem(ctx context.Context, item *model.POItem) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	SaveItems(ctx context.Context, items []model.POItem) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, po *model.PurchaseOrder) error {
	return GetDB(ctx, r.db).Create(po).Error
}

func (r *orderRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	if err := GetDB(ctx, r.db).First(&po, "org_id = ? AND id = ?", orgID, id).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *orderRepository) FindByIDWithItems(ctx context.Context, orgID, id uuid.UUID) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	if err := GetDB(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line_no asc") }).
		Preload("Vendor").
		First(&po, "org_id = ? AND id = ?", orgID, id).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *orderRepository) List(ctx context.Context, orgID uuid.UUID, status string, vendorID *uuid.UUID, page, limit int) ([]model.PurchaseOrder, int64, error) {
	var orders []model.PurchaseOrder
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.PurchaseOrder{}).Where("org_id = ?", orgID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if vendorID != nil {
		query = query.Where("vendor_id = ?", *vendorID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetch := db.Preload("Items").Preload("Vendor").Where("org_id = ?", orgID)
	if status != "" {
		fetch = fetch.Where("status = ?", status)
	}
	if vendorID != nil {
		fetch = fetch.Where("vendor_id = ?", *vendorID)
	}
	if err := fetch.Order("created_at desc").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *orderRepository) Save(ctx context.Context, po *model.PurchaseOrder) error {
	return GetDB(ctx, r.db).Omit("Items", "Vendor").Save(po).Error
}

func (r *orderRepository) CreateItem(ctx context.Context, item *model.POItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *orderRepository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.POItem{}, "id = ?", itemID).Error
}

func (r *orderRepository) SaveItems(ctx context.Context, items []model.POItem) error {
	db := GetDB(ctx, r.db)
	for i := range items {
		if err := db.Save(&items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
