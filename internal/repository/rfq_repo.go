package repository

import (
	"context"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RFQRepository interface {
	Create(ctx context.Context, rfq *model.RFQ) error
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.RFQ, error)
	FindByIDWithItems(ctx context.Context, orgID, id uuid.UUID) (*model.RFQ, error)
	List(ctx context.Context, orgID uuid.UUID, status string, page, limit int) ([]model.RFQ, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	CreateItems(ctx context.Context, items []model.RFQItem) error
}

type QuoteRepository interface {
	Create(ctx context.Context, quote *model.Quote) error
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.Quote, error)
	FindByIDWithItems(ctx context.Context, orgID, id uuid.UUID) (*model.Quote, error)
	ListByRFQ(ctx context.Context, rfqID uuid.UUID) ([]model.Quote, error)
	CountByRFQAndStatus(ctx context.Context, rfqID uuid.UUID, status string) (int64, error)
	FindReceivedForMaterial(ctx context.Context, orgID, materialID, vendorID uuid.UUID) (*model.QuoteItem, *model.Quote, error)
	Save(ctx context.Context, quote *model.Quote) error
	SaveItem(ctx context.Context, item *model.QuoteItem) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type rfqRepository struct {
	db *gorm.DB
}

func NewRFQRepository(db *gorm.DB) RFQRepository {
	return &rfqRepository{db: db}
}

func (r *rfqRepository) Create(ctx context.Context, rfq *model.RFQ) error {
	return GetDB(ctx, r.db).Create(rfq).Error
}

func (r *rfqRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.RFQ, error) {
	var rfq model.RFQ
	if err := GetDB(ctx, r.db).First(&rfq, "org_id = ? AND id = ?", orgID, id).Error; err != nil {
		return nil, err
	}
	return &rfq, nil
}

func (r *rfqRepository) FindByIDWithItems(ctx context.Context, orgID, id uuid.UUID) (*model.RFQ, error) {
	var rfq model.RFQ
	if err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Items.Material").
		Preload("Quotes").
		First(&rfq, "org_id = ? AND id = ?", orgID, id).Error; err != nil {
		return nil, err
	}
	return &rfq, nil
}

func (r *rfqRepository) List(ctx context.Context, orgID uuid.UUID, status string, page, limit int) ([]model.RFQ, int64, error) {
	var rfqs []model.RFQ
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.RFQ{}).Where("org_id = ?", orgID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetch := db.Preload("Items").Where("org_id = ?", orgID)
	if status != "" {
		fetch = fetch.Where("status = ?", status)
	}
	if err := fetch.Order("created_at desc").Offset(offset).Limit(limit).Find(&rfqs).Error; err != nil {
		return nil, 0, err
	}

	return rfqs, total, nil
}

func (r *rfqRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.RFQ{}).Where("id = ?", id).Update("status", status).Error
}

func (r *rfqRepository) CreateItems(ctx context.Context, items []model.RFQItem) error {
	if len(items) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&items).Error
}

type quoteRepository struct {
	db *gorm.DB
}

func NewQuoteRepository(db *gorm.DB) QuoteRepository {
	return &quoteRepository{db: db}
}

func (r *quoteRepository) Create(ctx context.Context, quote *model.Quote) error {
	return GetDB(ctx, r.db).Create(quote).Error
}

func (r *quoteRepository) FindByID(ctx context.Context, orgID, id uuid.UUID) (*model.Quote, error) {
	var quote model.Quote
	if err := GetDB(ctx, r.db).First(&quote, "org_id = ? AND id = ?", orgID, id).Error; err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *quoteRepository) FindByIDWithItems(ctx context.Context, orgID, id uuid.UUID) (*model.Quote, error) {
	var quote model.Quote
	if err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Supplier").
		First(&quote, "org_id = ? AND id = ?", orgID, id).Error; err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *quoteRepository) ListByRFQ(ctx context.Context, rfqID uuid.UUID) ([]model.Quote, error) {
	var quotes []model.Quote
	if err := GetDB(ctx, r.db).
		Preload("Supplier").
		Where("rfq_id = ?", rfqID).
		Order("created_at asc").
		Find(&quotes).Error; err != nil {
		return nil, err
	}
	return quotes, nil
}

func (r *quoteRepository) CountByRFQAndStatus(ctx context.Context, rfqID uuid.UUID, status string) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Quote{}).
		Where("rfq_id = ? AND status = ?", rfqID, status).
		Count(&count).Error
	return count, err
}

// FindReceivedForMaterial returns the most recent RECEIVED quote item for a
// material from a specific vendor, used by the sourcing resolver's RFQ step.
func (r *quoteRepository) FindReceivedForMaterial(ctx context.Context, orgID, materialID, vendorID uuid.UUID) (*model.QuoteItem, *model.Quote, error) {
	db := GetDB(ctx, r.db)

	var item model.QuoteItem
	err := db.Joins("JOIN quotes ON quotes.id = quote_items.quote_id").
		Where("quotes.org_id = ? AND quotes.supplier_id = ? AND quotes.status = ? AND quote_items.material_id = ?",
			orgID, vendorID, model.QuoteStatusReceived, materialID).
		Order("quote_items.created_at desc").
		First(&item).Error
	if err != nil {
		return nil, nil, err
	}

	var quote model.Quote
	if err := db.First(&quote, "id = ?", item.QuoteID).Error; err != nil {
		return nil, nil, err
	}
	return &item, &quote, nil
}

func (r *quoteRepository) Save(ctx context.Context, quote *model.Quote) error {
	return GetDB(ctx, r.db).Save(quote).Error
}

func (r *quoteRepository) SaveItem(ctx context.Context, item *model.QuoteItem) error {
	return GetDB(ctx, r.db).Save(item).Error
}

func (r *quoteRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.Quote{}).Where("id = ?", id).Update("status", status).Error
}
