package repository

import (
	"context"
	"fmt"
	"time"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StatisticsRepository interface {
	GetOrderSpend(ctx context.Context, orgID uuid.UUID, status string, start, end time.Time) (value float64, count int, err error)
	CountRequisitionsInStatus(ctx context.Context, orgID uuid.UUID, statuses []string) (int, error)
	CountExceptionNotices(ctx context.Context, orgID uuid.UUID, start, end time.Time) (int, error)
	GetTopVendors(ctx context.Context, orgID uuid.UUID, status string, start, end time.Time, limit int) ([]model.VendorSpend, error)
	GetTopMaterials(ctx context.Context, orgID uuid.UUID, status string, start, end time.Time, limit int) ([]model.MaterialRanking, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) GetOrderSpend(ctx context.Context, orgID uuid.UUID, status string, start, end time.Time) (float64, int, error) {
	var result struct {
		Value float64
		Count int
	}
	err := r.db.WithContext(ctx).Table("purchase_orders").
		Select("COALESCE(SUM(grand_total), 0) as value, COUNT(*) as count").
		Where("org_id = ? AND status = ? AND created_at >= ? AND created_at <= ?", orgID, status, start, end).
		Scan(&result).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query order spend: %w", err)
	}
	return result.Value, result.Count, nil
}

func (r *statisticsRepository) CountRequisitionsInStatus(ctx context.Context, orgID uuid.UUID, statuses []string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Requisition{}).
		Where("org_id = ? AND status IN ?", orgID, statuses).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count requisitions: %w", err)
	}
	return int(count), nil
}

func (r *statisticsRepository) CountExceptionNotices(ctx context.Context, orgID uuid.UUID, start, end time.Time) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ExceptionNotice{}).
		Where("org_id = ? AND created_at >= ? AND created_at <= ?", orgID, start, end).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count exception notices: %w", err)
	}
	return int(count), nil
}

func (r *statisticsRepository) GetTopVendors(ctx context.Context, orgID uuid.UUID, status string, start, end time.Time, limit int) ([]model.VendorSpend, error) {
	var rankings []model.VendorSpend
	if err := r.db.WithContext(ctx).Table("purchase_orders").
		Select("vendors.id as vendor_id, vendors.name as vendor_name, vendors.vendor_code as vendor_code, COUNT(purchase_orders.id) as order_count, SUM(purchase_orders.grand_total) as total_value").
		Joins("JOIN vendors ON vendors.id = purchase_orders.vendor_id").
		Where("purchase_orders.org_id = ? AND purchase_orders.status = ? AND purchase_orders.created_at >= ? AND purchase_orders.created_at <= ?", orgID, status, start, end).
		Group("vendors.id, vendors.name, vendors.vendor_code").
		Order("total_value DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top vendors: %w", err)
	}
	return rankings, nil
}

func (r *statisticsRepository) GetTopMaterials(ctx context.Context, orgID uuid.UUID, status string, start, end time.Time, limit int) ([]model.MaterialRanking, error) {
	var rankings []model.MaterialRanking
	if err := r.db.WithContext(ctx).Table("po_items").
		Select("materials.id as material_id, materials.name as material_name, materials.code as material_code, SUM(po_items.quantity) as total_quantity, SUM(po_items.total_amount) as total_value").
		Joins("JOIN materials ON materials.id = po_items.material_id").
		Joins("JOIN purchase_orders ON purchase_orders.id = po_items.po_id").
		Where("purchase_orders.org_id = ? AND purchase_orders.status = ? AND purchase_orders.created_at >= ? AND purchase_orders.created_at <= ?", orgID, status, start, end).
		Group("materials.id, materials.name, materials.code").
		Order("total_quantity DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top materials: %w", err)
	}
	return rankings, nil
}
