package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"procurement/internal/model"
	"procurement/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

// SourcingProposal is the resolver's answer for one demand line: the vendor,
// price, and terms the line should be processed with, plus the provenance.
type SourcingProposal struct {
	VendorID        *string `json:"vendor_id"`
	VendorName      string  `json:"vendor_name"`
	Price           *string `json:"price"`
	DiscountPercent string  `json:"discount_percent"`
	Currency        string  `json:"currency"`
	LeadTimeDays    int     `json:"lead_time_days"`
	SourcingMethod  string  `json:"sourcing_method"`
	SourcingRef     string  `json:"sourcing_ref"`
	QuoteID         *string `json:"quote_id"`
}

type AcceptSourcingRequest struct {
	VendorID        string `json:"vendor_id" binding:"required"`
	Price           string `json:"price" binding:"required"`
	DiscountPercent string `json:"discount_percent"`
	Currency        string `json:"currency"`
	LeadTimeDays    int    `json:"lead_time_days"`
	SourcingMethod  string `json:"sourcing_method" binding:"required,oneof=AGREEMENT PREFERRED_SUPPLIER RFQ MANUAL"`
	SourcingRef     string `json:"sourcing_ref"`
	QuoteID         string `json:"quote_id"`
}

// --- Interface ---

// SourcingService resolves vendor/price/terms for requisition lines and drives
// the line review state machine up to PROCESSED.
type SourcingService interface {
	Resolve(ctx context.Context, orgID, lineID uuid.UUID, candidateVendorID *uuid.UUID) (SourcingProposal, error)
	AcceptSourcing(ctx context.Context, orgID uuid.UUID, userID string, lineID uuid.UUID, req AcceptSourcingRequest) (*model.RequisitionLine, error)
	MarkReviewed(ctx context.Context, orgID uuid.UUID, lineID uuid.UUID) (*model.RequisitionLine, error)
	DelinkQuote(ctx context.Context, orgID uuid.UUID, userID string, lineID uuid.UUID) (*model.RequisitionLine, error)
}

type sourcingService struct {
	requisitionRepo repository.RequisitionRepository
	materialRepo    repository.MaterialRepository
	vendorRepo      repository.VendorRepository
	quoteRepo       repository.QuoteRepository
	auditRepo       repository.AuditRepository
	txManager       repository.TransactionManager
	now             func() time.Time
}

func NewSourcingService(
	requisitionRepo repository.RequisitionRepository,
	materialRepo repository.MaterialRepository,
	vendorRepo repository.VendorRepository,
	quoteRepo repository.QuoteRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) SourcingService {
	return &sourcingService{
		requisitionRepo: requisitionRepo,
		materialRepo:    materialRepo,
		vendorRepo:      vendorRepo,
		quoteRepo:       quoteRepo,
		auditRepo:       auditRepo,
		txManager:       txManager,
		now:             time.Now,
	}
}

// --- Implementation ---

// Resolve walks the sourcing priority ladder for a line: active in-window
// agreement, then priority-1 preferred supplier, then a received quote, then
// manual entry pre-seeded with the last known price. A candidate vendor
// restricts the first three steps to that vendor only.
func (s *sourcingService) Resolve(ctx context.Context, orgID, lineID uuid.UUID, candidateVendorID *uuid.UUID) (SourcingProposal, error) {
	line, err := s.requisitionRepo.FindLineByID(ctx, lineID)
	if err != nil {
		return SourcingProposal{}, refErr("requisition line", lineID.String(), err)
	}

	var sources []model.MaterialSource
	if candidateVendorID != nil {
		source, err := s.materialRepo.SourceForVendor(ctx, orgID, line.MaterialID, *candidateVendorID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return SourcingProposal{}, fmt.Errorf("failed to load sourcing record: %w", err)
		}
		if source != nil {
			sources = []model.MaterialSource{*source}
		}
	} else {
		sources, err = s.materialRepo.SourcesForMaterial(ctx, orgID, line.MaterialID)
		if err != nil {
			return SourcingProposal{}, fmt.Errorf("failed to load sourcing records: %w", err)
		}
	}

	today := s.now()

	// 1. Active agreement inside its validity window.
	for i := range sources {
		if sources[i].AgreementValidOn(today) {
			return proposalFromSource(&sources[i], model.SourcingAgreement, sources[i].AgreementRef), nil
		}
	}

	// 2. Priority-1 preferred supplier.
	for i := range sources {
		if sources[i].Priority == 1 {
			return proposalFromSource(&sources[i], model.SourcingPreferred, ""), nil
		}
	}

	// 3. Received quote for this material from one of the known vendors.
	for i := range sources {
		item, quote, err := s.quoteRepo.FindReceivedForMaterial(ctx, orgID, line.MaterialID, sources[i].VendorID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return SourcingProposal{}, fmt.Errorf("failed to look up quotes: %w", err)
		}
		return proposalFromQuote(item, quote, sources[i].Vendor), nil
	}

	// 4. Manual entry, pre-seeded with the last known price if any.
	proposal := SourcingProposal{
		SourcingMethod:  model.SourcingManual,
		DiscountPercent: decimal.Zero.StringFixed(4),
	}
	if len(sources) > 0 {
		src := sources[0]
		vid := src.VendorID.String()
		proposal.VendorID = &vid
		if src.Vendor != nil {
			proposal.VendorName = src.Vendor.Name
		}
		if src.LastPrice != nil {
			p := src.LastPrice.StringFixed(4)
			proposal.Price = &p
		}
		proposal.DiscountPercent = src.DiscountPercent.StringFixed(4)
		proposal.Currency = src.Currency
		proposal.LeadTimeDays = src.LeadTimeDays
	}
	return proposal, nil
}

func proposalFromSource(src *model.MaterialSource, method, ref string) SourcingProposal {
	vid := src.VendorID.String()
	proposal := SourcingProposal{
		VendorID:        &vid,
		SourcingMethod:  method,
		SourcingRef:     ref,
		DiscountPercent: src.DiscountPercent.StringFixed(4),
		Currency:        src.Currency,
		LeadTimeDays:    src.LeadTimeDays,
	}
	if src.Vendor != nil {
		proposal.VendorName = src.Vendor.Name
	}
	if src.LastPrice != nil {
		p := src.LastPrice.StringFixed(4)
		proposal.Price = &p
	}
	return proposal
}

func proposalFromQuote(item *model.QuoteItem, quote *model.Quote, vendor *model.Vendor) SourcingProposal {
	vid := quote.SupplierID.String()
	qid := quote.ID.String()
	proposal := SourcingProposal{
		VendorID:        &vid,
		SourcingMethod:  model.SourcingRFQ,
		SourcingRef:     quote.QuoteNumber,
		DiscountPercent: item.QuotedDiscount.StringFixed(4),
		Currency:        quote.Currency,
		LeadTimeDays:    item.LeadTimeDays(),
		QuoteID:         &qid,
	}
	if vendor != nil {
		proposal.VendorName = vendor.Name
	}
	if item.QuotedUnitPrice != nil {
		p := item.QuotedUnitPrice.StringFixed(4)
		proposal.Price = &p
	}
	return proposal
}

// AcceptSourcing applies an accepted proposal (or manual entry) to the line and
// moves it to PROCESSED. Vendor and price are mandatory; the review state
// machine only moves forward here.
func (s *sourcingService) AcceptSourcing(ctx context.Context, orgID uuid.UUID, userID string, lineID uuid.UUID, req AcceptSourcingRequest) (*model.RequisitionLine, error) {
	vendorID, err := uuid.Parse(req.VendorID)
	if err != nil {
		return nil, validationErr("vendor_id", "invalid vendor id")
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return nil, validationErr("price", "a non-negative price is required")
	}
	discount := decimal.Zero
	if req.DiscountPercent != "" {
		discount, err = decimal.NewFromString(req.DiscountPercent)
		if err != nil {
			return nil, validationErr("discount_percent", "invalid discount")
		}
	}
	var quoteID *uuid.UUID
	if req.QuoteID != "" {
		parsed, parseErr := uuid.Parse(req.QuoteID)
		if parseErr != nil {
			return nil, validationErr("quote_id", "invalid quote id")
		}
		quoteID = &parsed
	}

	var line *model.RequisitionLine
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		line, findErr = s.requisitionRepo.FindLineByID(txCtx, lineID)
		if findErr != nil {
			return refErr("requisition line", lineID.String(), findErr)
		}
		if line.Linked() {
			return stateConflictErr("requisition line", "already linked to a purchase order")
		}
		if line.ReviewStatus == model.ReviewProcessed {
			return stateConflictErr("requisition line", "already processed")
		}

		vendor, findErr := s.vendorRepo.FindByID(txCtx, orgID, vendorID)
		if findErr != nil {
			return refErr("vendor", vendorID.String(), findErr)
		}

		line.AssignedVendorID = &vendor.ID
		line.VendorName = vendor.Name
		line.AgreedPrice = &price
		line.DiscountPercent = discount
		line.Currency = req.Currency
		if line.Currency == "" {
			line.Currency = vendor.Currency
		}
		line.LeadTimeDays = req.LeadTimeDays
		line.SourcingMethod = req.SourcingMethod
		line.SourcingRef = req.SourcingRef
		line.QuoteID = quoteID
		line.ReviewStatus = model.ReviewProcessed

		if saveErr := s.requisitionRepo.SaveLine(txCtx, line); saveErr != nil {
			return fmt.Errorf("failed to save line: %w", saveErr)
		}

		if rollErr := s.rollUpRequisition(txCtx, orgID, line.RequisitionID); rollErr != nil {
			return rollErr
		}

		details, _ := json.Marshal(map[string]interface{}{
			"vendor_id":       req.VendorID,
			"price":           req.Price,
			"sourcing_method": req.SourcingMethod,
			"sourcing_ref":    req.SourcingRef,
		})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			OrgID:      orgID,
			UserID:     parseUserID(userID),
			Action:     model.ActionAcceptSourcing,
			EntityID:   line.ID.String(),
			EntityName: vendor.Name,
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// MarkReviewed moves a PENDING line to REVIEWED.
func (s *sourcingService) MarkReviewed(ctx context.Context, orgID uuid.UUID, lineID uuid.UUID) (*model.RequisitionLine, error) {
	var line *model.RequisitionLine
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		line, findErr = s.requisitionRepo.FindLineByID(txCtx, lineID)
		if findErr != nil {
			return refErr("requisition line", lineID.String(), findErr)
		}
		if line.ReviewStatus != model.ReviewPending {
			return stateConflictErr("requisition line", fmt.Sprintf("cannot review a line in status %s", line.ReviewStatus))
		}
		line.ReviewStatus = model.ReviewReviewed
		return s.requisitionRepo.SaveLine(txCtx, line)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// DelinkQuote reverts RFQ_PROCESS to REVIEWED, allowed only while the
// referenced quote is still DRAFT. Delinking a SENT/RECEIVED/AWARDED quote is
// rejected: the supplier is already engaged.
func (s *sourcingService) DelinkQuote(ctx context.Context, orgID uuid.UUID, userID string, lineID uuid.UUID) (*model.RequisitionLine, error) {
	var line *model.RequisitionLine
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		line, findErr = s.requisitionRepo.FindLineByID(txCtx, lineID)
		if findErr != nil {
			return refErr("requisition line", lineID.String(), findErr)
		}
		if line.ReviewStatus != model.ReviewRFQProcess {
			return stateConflictErr("requisition line", "not in an RFQ process")
		}
		if line.QuoteID != nil {
			quote, quoteErr := s.quoteRepo.FindByID(txCtx, orgID, *line.QuoteID)
			if quoteErr != nil {
				return refErr("quote", line.QuoteID.String(), quoteErr)
			}
			if quote.Status != model.QuoteStatusDraft {
				return stateConflictErr("quote", fmt.Sprintf("cannot delink a quote in status %s", quote.Status))
			}
		}

		line.ReviewStatus = model.ReviewReviewed
		line.QuoteID = nil
		line.SourcingMethod = ""
		line.SourcingRef = ""
		if saveErr := s.requisitionRepo.SaveLine(txCtx, line); saveErr != nil {
			return fmt.Errorf("failed to save line: %w", saveErr)
		}

		return s.auditRepo.Log(txCtx, &model.AuditLog{
			OrgID:    orgID,
			UserID:   parseUserID(userID),
			Action:   model.ActionDelinkQuote,
			EntityID: line.ID.String(),
			Details:  `{"delinked": true}`,
		})
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// rollUpRequisition recomputes the header status from the full line list.
func (s *sourcingService) rollUpRequisition(ctx context.Context, orgID, prID uuid.UUID) error {
	pr, err := s.requisitionRepo.FindByIDWithLines(ctx, orgID, prID)
	if err != nil {
		return refErr("requisition", prID.String(), err)
	}
	status := model.RollUpStatus(pr.Lines)
	if status != pr.Status {
		if err := s.requisitionRepo.UpdateStatus(ctx, pr.ID, status); err != nil {
			return fmt.Errorf("failed to update requisition status: %w", err)
		}
	}
	return nil
}

func parseUserID(userID string) *uuid.UUID {
	if parsed, err := uuid.Parse(userID); err == nil {
		return &parsed
	}
	return nil
}
