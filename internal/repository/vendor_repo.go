package repository

import (
	"context"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VendorRepository interface {
	Create(ctx context.Context, vendor *model.Vendor) error
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.Vendor, error)
	List(ctx context.Context, orgID uuid.UUID, search string, page, limit int) ([]model.Vendor, int64, error)
	Save(ctx context.Context, vendor *model.Vendor) error
}

type MaterialRepository interface {
	Create(ctx context.Context, material *model.Material) error
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.Material, error)
	List(ctx context.Context, orgID uuid.UUID, page, limit int) ([]model.Material, int64, error)
	SourcesForMaterial(ctx context.Context, orgID, materialID uuid.UUID) ([]model.MaterialSource, error)
	SourceForVendor(ctx context.Context, orgID, materialID, vendorID uuid.UUID) (*model.MaterialSource, error)
	SaveSource(ctx context.Context, source *model.MaterialSource) error
}

type vendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) VendorRepository {
	return &vendorRepository{db: db}
}

func (r *vendorRepository) Create(ctx context.Context, vendor *model.Vendor) error {
	return GetDB(ctx, r.db).Create(vendor).Error
}

func (r *vendorRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.Vendor, error) {
	var vendor model.Vendor
	if err := GetDB(ctx, r.db).First(&vendor, "org_id = ? AND id = ?", orgID, id).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *vendorRepository) List(ctx context.Context, orgID uuid.UUID, search string, page, limit int) ([]model.Vendor, int64, error) {
	var vendors []model.Vendor
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Vendor{}).Where("org_id = ?", orgID)
	if search != "" {
		query = query.Where("name ILIKE ? OR vendor_code ILIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetch := db.Where("org_id = ?", orgID)
	if search != "" {
		fetch = fetch.Where("name ILIKE ? OR vendor_code ILIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if err := fetch.Order("created_at desc").Offset(offset).Limit(limit).Find(&vendors).Error; err != nil {
		return nil, 0, err
	}

	return vendors, total, nil
}

func (r *vendorRepository) Save(ctx context.Context, vendor *model.Vendor) error {
	return GetDB(ctx, r.db).Save(vendor).Error
}

type materialRepository struct {
	db *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) MaterialRepository {
	return &materialRepository{db: db}
}

func (r *materialRepository) Create(ctx context.Context, material *model.Material) error {
	return GetDB(ctx, r.db).Create(material).Error
}

func (r *materialRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.Material, error) {
	var material model.Material
	if err := GetDB(ctx, r.db).First(&material, "org_id = ? AND id = ?", orgID, id).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

func (r *materialRepository) List(ctx context.Context, orgID uuid.UUID, page, limit int) ([]model.Material, int64, error) {
	var materials []model.Material
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Material{}).Where("org_id = ?", orgID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Where("org_id = ?", orgID).
		Order("code asc").Offset(offset).Limit(limit).
		Find(&materials).Error; err != nil {
		return nil, 0, err
	}

	return materials, total, nil
}

// SourcesForMaterial returns the vendor-specific sourcing records ordered by
// priority, the order the resolver walks them in.
func (r *materialRepository) SourcesForMaterial(ctx context.Context, orgID, materialID uuid.UUID) ([]model.MaterialSource, error) {
	var sources []model.MaterialSource
	if err := GetDB(ctx, r.db).
		Preload("Vendor").
		Where("org_id = ? AND material_id = ?", orgID, materialID).
		Order("priority asc").
		Find(&sources).Error; err != nil {
		return nil, err
	}
	return sources, nil
}

func (r *materialRepository) SourceForVendor(ctx context.Context, orgID, materialID, vendorID uuid.UUID) (*model.MaterialSource, error) {
	var source model.MaterialSource
	if err := GetDB(ctx, r.db).
		Preload("Vendor").
		Where("org_id = ? AND material_id = ? AND vendor_id = ?", orgID, materialID, vendorID).
		First(&source).Error; err != nil {
		return nil, err
	}
	return &source, nil
}

func (r *materialRepository) SaveSource(ctx context.Context, source *model.MaterialSource) error {
	return GetDB(ctx, r.db).Save(source).Error
}
