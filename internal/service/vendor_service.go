package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"procurement/internal/model"
	"procurement/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateVendorRequest struct {
	Name          string `json:"name" binding:"required"`
	TaxCode       string `json:"tax_code"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Currency      string `json:"currency"`
}

type UpdateVendorRequest struct {
	Name          *string `json:"name"`
	TaxCode       *string `json:"tax_code"`
	ContactPerson *string `json:"contact_person"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	Currency      *string `json:"currency"`
	IsActive      *bool   `json:"is_active"`
}

type CreateMaterialRequest struct {
	Code       string `json:"code" binding:"required"`
	Name       string `json:"name" binding:"required"`
	CategoryID string `json:"category_id"`
	UOM        string `json:"uom" binding:"required"`
	PriceUnit  string `json:"price_unit"`
	TaxPercent string `json:"tax_percent"`
}

type UpsertMaterialSourceRequest struct {
	VendorID        string  `json:"vendor_id" binding:"required"`
	Priority        int     `json:"priority"`
	HasAgreement    bool    `json:"has_agreement"`
	AgreementStatus string  `json:"agreement_status"`
	AgreementRef    string  `json:"agreement_ref"`
	ValidFrom       *string `json:"valid_from"` // YYYY-MM-DD
	ValidTo         *string `json:"valid_to"`
	LastPrice       string  `json:"last_price"`
	DiscountPercent string  `json:"discount_percent"`
	Currency        string  `json:"currency"`
	LeadTimeDays    int     `json:"lead_time_days"`
}

// --- Interface ---

// VendorService manages the supplier registry and the material master,
// including the per-vendor sourcing records the resolver walks.
type VendorService interface {
	CreateVendor(ctx context.Context, orgID uuid.UUID, userID string, req CreateVendorRequest) (*model.Vendor, error)
	GetVendor(ctx context.Context, orgID, id uuid.UUID) (*model.Vendor, error)
	ListVendors(ctx context.Context, orgID uuid.UUID, search string, page, limit int) ([]model.Vendor, int64, error)
	UpdateVendor(ctx context.Context, orgID, id uuid.UUID, req UpdateVendorRequest) (*model.Vendor, error)

	CreateMaterial(ctx context.Context, orgID uuid.UUID, req CreateMaterialRequest) (*model.Material, error)
	ListMaterials(ctx context.Context, orgID uuid.UUID, page, limit int) ([]model.Material, int64, error)
	UpsertMaterialSource(ctx context.Context, orgID, materialID uuid.UUID, req UpsertMaterialSourceRequest) (*model.MaterialSource, error)
	ListMaterialSources(ctx context.Context, orgID, materialID uuid.UUID) ([]model.MaterialSource, error)
}

type vendorService struct {
	vendorRepo   repository.VendorRepository
	materialRepo repository.MaterialRepository
	auditRepo    repository.AuditRepository
	sequences    SequenceService
	txManager    repository.TransactionManager
}

func NewVendorService(
	vendorRepo repository.VendorRepository,
	materialRepo repository.MaterialRepository,
	auditRepo repository.AuditRepository,
	sequences SequenceService,
	txManager repository.TransactionManager,
) VendorService {
	return &vendorService{
		vendorRepo:   vendorRepo,
		materialRepo: materialRepo,
		auditRepo:    auditRepo,
		sequences:    sequences,
		txManager:    txManager,
	}
}

// --- Implementation ---

func (s *vendorService) CreateVendor(ctx context.Context, orgID uuid.UUID, userID string, req CreateVendorRequest) (*model.Vendor, error) {
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	var vendor *model.Vendor
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		code, numErr := s.sequences.NextNumber(txCtx, orgID, model.SeqDomainVendor)
		if numErr != nil {
			return numErr
		}

		vendor = &model.Vendor{
			OrgID:         orgID,
			VendorCode:    code,
			Name:          req.Name,
			TaxCode:       req.TaxCode,
			ContactPerson: req.ContactPerson,
			Phone:         req.Phone,
			Email:         req.Email,
			Currency:      currency,
			IsActive:      true,
		}
		if createErr := s.vendorRepo.Create(txCtx, vendor); createErr != nil {
			return fmt.Errorf("failed to create vendor: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{"vendor_code": code})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			OrgID:      orgID,
			UserID:     parseUserID(userID),
			Action:     model.ActionCreateVendor,
			EntityID:   vendor.VendorCode,
			EntityName: vendor.Name,
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, err
	}
	return vendor, nil
}

func (s *vendorService) GetVendor(ctx context.Context, orgID, id uuid.UUID) (*model.Vendor, error) {
	vendor, err := s.vendorRepo.FindByID(ctx, orgID, id)
	if err != nil {
		return nil, refErr("vendor", id.String(), err)
	}
	return vendor, nil
}

func (s *vendorService) ListVendors(ctx context.Context, orgID uuid.UUID, search string, page, limit int) ([]model.Vendor, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.vendorRepo.List(ctx, orgID, search, page, limit)
}

func (s *vendorService) UpdateVendor(ctx context.Context, orgID, id uuid.UUID, req UpdateVendorRequest) (*model.Vendor, error) {
	vendor, err := s.vendorRepo.FindByID(ctx, orgID, id)
	if err != nil {
		return nil, refErr("vendor", id.String(), err)
	}

	if req.Name != nil {
		vendor.Name = *req.Name
	}
	if req.TaxCode != nil {
		vendor.TaxCode = *req.TaxCode
	}
	if req.ContactPerson != nil {
		vendor.ContactPerson = *req.ContactPerson
	}
	if req.Phone != nil {
		vendor.Phone = *req.Phone
	}
	if req.Email != nil {
		vendor.Email = *req.Email
	}
	if req.Currency != nil {
		vendor.Currency = *req.Currency
	}
	if req.IsActive != nil {
		vendor.IsActive = *req.IsActive
	}

	if err := s.vendorRepo.Save(ctx, vendor); err != nil {
		return nil, fmt.Errorf("failed to save vendor: %w", err)
	}
	return vendor, nil
}

func (s *vendorService) CreateMaterial(ctx context.Context, orgID uuid.UUID, req CreateMaterialRequest) (*model.Material, error) {
	priceUnit := decimal.NewFromInt(1)
	if req.PriceUnit != "" {
		parsed, err := decimal.NewFromString(req.PriceUnit)
		if err != nil || !parsed.IsPositive() {
			return nil, validationErr("price_unit", "must be a positive amount")
		}
		priceUnit = parsed
	}
	taxPercent := decimal.Zero
	if req.TaxPercent != "" {
		parsed, err := decimal.NewFromString(req.TaxPercent)
		if err != nil || parsed.IsNegative() {
			return nil, validationErr("tax_percent", "must be a non-negative percentage")
		}
		taxPercent = parsed
	}
	var categoryID *uuid.UUID
	if req.CategoryID != "" {
		parsed, err := uuid.Parse(req.CategoryID)
		if err != nil {
			return nil, validationErr("category_id", "invalid category id")
		}
		categoryID = &parsed
	}

	material := &model.Material{
		OrgID:      orgID,
		Code:       req.Code,
		Name:       req.Name,
		CategoryID: categoryID,
		UOM:        req.UOM,
		PriceUnit:  priceUnit,
		TaxPercent: taxPercent,
	}
	if err := s.materialRepo.Create(ctx, material); err != nil {
		return nil, fmt.Errorf("failed to create material: %w", err)
	}
	return material, nil
}

func (s *vendorService) ListMaterials(ctx context.Context, orgID uuid.UUID, page, limit int) ([]model.Material, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.materialRepo.List(ctx, orgID, page, limit)
}

// UpsertMaterialSource creates or updates the sourcing record for one
// (material, vendor) pair.
func (s *vendorService) UpsertMaterialSource(ctx context.Context, orgID, materialID uuid.UUID, req UpsertMaterialSourceRequest) (*model.MaterialSource, error) {
	vendorID, err := uuid.Parse(req.VendorID)
	if err != nil {
		return nil, validationErr("vendor_id", "invalid vendor id")
	}
	if _, err := s.materialRepo.FindByID(ctx, orgID, materialID); err != nil {
		return nil, refErr("material", materialID.String(), err)
	}
	if _, err := s.vendorRepo.FindByID(ctx, orgID, vendorID); err != nil {
		return nil, refErr("vendor", req.VendorID, err)
	}

	source, err := s.materialRepo.SourceForVendor(ctx, orgID, materialID, vendorID)
	if err != nil {
		source = &model.MaterialSource{OrgID: orgID, MaterialID: materialID, VendorID: vendorID}
	}

	if req.Priority > 0 {
		source.Priority = req.Priority
	}
	source.HasAgreement = req.HasAgreement
	source.AgreementStatus = req.AgreementStatus
	source.AgreementRef = req.AgreementRef
	source.LeadTimeDays = req.LeadTimeDays
	if req.Currency != "" {
		source.Currency = req.Currency
	}

	if req.ValidFrom != nil {
		from, parseErr := parseDate(*req.ValidFrom)
		if parseErr != nil {
			return nil, validationErr("valid_from", "must be YYYY-MM-DD")
		}
		source.ValidFrom = from
	}
	if req.ValidTo != nil {
		to, parseErr := parseDate(*req.ValidTo)
		if parseErr != nil {
			return nil, validationErr("valid_to", "must be YYYY-MM-DD")
		}
		source.ValidTo = to
	}
	if req.LastPrice != "" {
		price, parseErr := decimal.NewFromString(req.LastPrice)
		if parseErr != nil || price.IsNegative() {
			return nil, validationErr("last_price", "must be a non-negative amount")
		}
		source.LastPrice = &price
	}
	if req.DiscountPercent != "" {
		disc, parseErr := decimal.NewFromString(req.DiscountPercent)
		if parseErr != nil || disc.IsNegative() {
			return nil, validationErr("discount_percent", "must be a non-negative percentage")
		}
		source.DiscountPercent = disc
	}

	if err := s.materialRepo.SaveSource(ctx, source); err != nil {
		return nil, fmt.Errorf("failed to save material source: %w", err)
	}
	return source, nil
}

func (s *vendorService) ListMaterialSources(ctx context.Context, orgID, materialID uuid.UUID) ([]model.MaterialSource, error) {
	sources, err := s.materialRepo.SourcesForMaterial(ctx, orgID, materialID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch material sources: %w", err)
	}
	return sources, nil
}

func parseDate(s string) (*time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
