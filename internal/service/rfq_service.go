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

type CreateRFQRequest struct {
	CategoryID string `json:"category_id"`
	ValidUntil string `json:"valid_until"` // RFC3339 date
}

type LinkRequisitionItemsRequest struct {
	LineIDs []string `json:"line_ids" binding:"required,min=1"`
}

type InviteSupplierRequest struct {
	VendorID string `json:"vendor_id" binding:"required"`
}

type QuoteItemPrice struct {
	QuoteItemID   string `json:"quote_item_id" binding:"required"`
	UnitPrice     string `json:"unit_price" binding:"required"`
	Discount      string `json:"discount"`
	LeadTimeValue int    `json:"lead_time_value"`
	LeadTimeUnits string `json:"lead_time_units"`
}

// RecordResponseRequest carries a supplier's pricing. ConfirmationToken is the
// RFQ number retyped by the operator, a four-eyes control against entering a
// response on the wrong document, not a security boundary.
type RecordResponseRequest struct {
	ConfirmationToken string           `json:"confirmation_token" binding:"required"`
	Currency          string           `json:"currency"`
	PaymentTerms      string           `json:"payment_terms"`
	Items             []QuoteItemPrice `json:"items" binding:"required,min=1,dive"`
}

type AwardQuoteRequest struct {
	AwardReason   string `json:"award_reason" binding:"required"`
	Justification string `json:"justification"`
}

type AwardResult struct {
	Quote     *model.Quote    `json:"quote"`
	Threshold ThresholdResult `json:"threshold"`
	NoticeNo  string          `json:"exception_notice_number,omitempty"`
}

// --- Interface ---

// RFQService manages the request-for-quotation cycle: header creation, linking
// demand lines, inviting suppliers, recording responses, and awarding.
type RFQService interface {
	CreateRFQ(ctx context.Context, orgID uuid.UUID, userID string, req CreateRFQRequest) (*model.RFQ, error)
	GetRFQ(ctx context.Context, orgID, id uuid.UUID) (*model.RFQ, error)
	ListRFQs(ctx context.Context, orgID uuid.UUID, status string, page, limit int) ([]model.RFQ, int64, error)
	LinkRequisitionItems(ctx context.Context, orgID uuid.UUID, userID string, rfqID uuid.UUID, req LinkRequisitionItemsRequest) (*model.RFQ, error)
	InviteSupplier(ctx context.Context, orgID uuid.UUID, userID string, rfqID uuid.UUID, req InviteSupplierRequest) (*model.Quote, error)
	SendQuote(ctx context.Context, orgID, quoteID uuid.UUID) (*model.Quote, error)
	RecordResponse(ctx context.Context, orgID uuid.UUID, userID string, quoteID uuid.UUID, req RecordResponseRequest) (*model.Quote, error)
	AwardQuote(ctx context.Context, orgID uuid.UUID, userID string, quoteID uuid.UUID, req AwardQuoteRequest) (*AwardResult, error)
	GetQuote(ctx context.Context, orgID, id uuid.UUID) (*model.Quote, error)
}

type rfqService struct {
	rfqRepo         repository.RFQRepository
	quoteRepo       repository.QuoteRepository
	requisitionRepo repository.RequisitionRepository
	vendorRepo      repository.VendorRepository
	policyRepo      repository.PolicyRepository
	auditRepo       repository.AuditRepository
	sequences       SequenceService
	policies        PolicyService
	txManager       repository.TransactionManager
	now             func() time.Time
}

func NewRFQService(
	rfqRepo repository.RFQRepository,
	quoteRepo repository.QuoteRepository,
	requisitionRepo repository.RequisitionRepository,
	vendorRepo repository.VendorRepository,
	policyRepo repository.PolicyRepository,
	auditRepo repository.AuditRepository,
	sequences SequenceService,
	policies PolicyService,
	txManager repository.TransactionManager,
) RFQService {
	return &rfqService{
		rfqRepo:         rfqRepo,
		quoteRepo:       quoteRepo,
		requisitionRepo: requisitionRepo,
		vendorRepo:      vendorRepo,
		policyRepo:      policyRepo,
		auditRepo:       auditRepo,
		sequences:       sequences,
		policies:        policies,
		txManager:       txManager,
		now:             time.Now,
	}
}

// --- Implementation ---

func (s *rfqService) CreateRFQ(ctx context.Context, orgID uuid.UUID, userID string, req CreateRFQRequest) (*model.RFQ, error) {
	var categoryID *uuid.UUID
	if req.CategoryID != "" {
		parsed, err := uuid.Parse(req.CategoryID)
		if err != nil {
			return nil, validationErr("category_id", "invalid category id")
		}
		categoryID = &parsed
	}
	var validUntil *time.Time
	if req.ValidUntil != "" {
		parsed, err := time.Parse(time.RFC3339, req.ValidUntil)
		if err != nil {
			return nil, validationErr("valid_until", "invalid date, expected RFC3339")
		}
		validUntil = &parsed
	}

	var rfq *model.RFQ
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		number, numErr := s.sequences.NextNumber(txCtx, orgID, model.SeqDomainRFQ)
		if numErr != nil {
			return numErr
		}

		rfq = &model.RFQ{
			OrgID:      orgID,
			RFQNumber:  number,
			CategoryID: categoryID,
			ValidUntil: validUntil,
			Status:     model.RFQStatusDraft,
			CreatedBy:  parseUserID(userID),
		}
		if createErr := s.rfqRepo.Create(txCtx, rfq); createErr != nil {
			return fmt.Errorf("failed to create rfq: %w", createErr)
		}

		return s.auditRepo.Log(txCtx, &model.AuditLog{
			OrgID:      orgID,
			UserID:     parseUserID(userID),
			Action:     model.ActionCreateRFQ,
			EntityID:   rfq.RFQNumber,
			EntityName: rfq.RFQNumber,
			Details:    `{"status": "DRAFT"}`,
		})
	})
	if err != nil {
		return nil, err
	}
	return rfq, nil
}

func (s *rfqService) GetRFQ(ctx context.Context, orgID, id uuid.UUID) (*model.RFQ, error) {
	rfq, err := s.rfqRepo.FindByIDWithItems(ctx, orgID, id)
	if err != nil {
		return nil, refErr("rfq", id.String(), err)
	}
	return rfq, nil
}

func (s *rfqService) ListRFQs(ctx context.Context, orgID uuid.UUID, status string, page, limit int) ([]model.RFQ, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.rfqRepo.List(ctx, orgID, status, page, limit)
}

// LinkRequisitionItems appends requisition-line references to the RFQ's item
// list and flips the lines into the RFQ process. Lines already represented on
// the RFQ or already linked to any purchase order are excluded, guaranteeing no
// duplicate sourcing.
func (s *rfqService) LinkRequisitionItems(ctx context.Context, orgID uuid.UUID, userID string, rfqID uuid.UUID, req LinkRequisitionItemsRequest) (*model.RFQ, error) {
	lineIDs := make([]uuid.UUID, 0, len(req.LineIDs))
	for _, raw := range req.LineIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, validationErr("line_ids", "invalid line id "+raw)
		}
		lineIDs = append(lineIDs, id)
	}

	var rfq *model.RFQ
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		rfq, findErr = s.rfqRepo.FindByIDWithItems(txCtx, orgID, rfqID)
		if findErr != nil {
			return refErr("rfq", rfqID.String(), findErr)
		}
		if rfq.Status != model.RFQStatusDraft && rfq.Status != model.RFQStatusOpen {
			return stateConflictErr("rfq", fmt.Sprintf("cannot add items in status %s", rfq.Status))
		}

		existing := make(map[uuid.UUID]bool, len(rfq.Items))
		for _, item := range rfq.Items {
			existing[item.RequisitionLineID] = true
		}

		var newItems []model.RFQItem
		var flipped []model.RequisitionLine
		for _, lineID := range lineIDs {
			if existing[lineID] {
				continue
			}
			line, lineErr := s.requisitionRepo.FindLineByID(txCtx, lineID)
			if lineErr != nil {
				return refErr("requisition line", lineID.String(), lineErr)
			}
			if line.Linked() {
				continue
			}
			newItems = append(newItems, model.RFQItem{
				RFQID:             rfq.ID,
				RequisitionID:     line.RequisitionID,
				RequisitionLineID: line.ID,
				MaterialID:        line.MaterialID,
				Quantity:          line.RequestedQuantity,
				UOM:               line.UOM,
			})
			if line.ReviewStatus != model.ReviewProcessed {
				line.ReviewStatus = model.ReviewRFQProcess
				flipped = append(flipped, *line)
			}
		}
		if len(newItems) == 0 {
			return validationErr("line_ids", "no eligible lines to add")
		}

		if createErr := s.rfqRepo.CreateItems(txCtx, newItems); createErr != nil {
			return fmt.Errorf("failed to create rfq items: %w", createErr)
		}
		if saveErr := s.requisitionRepo.SaveLines(txCtx, flipped); saveErr != nil {
			return fmt.Errorf("failed to update requisition lines: %w", saveErr)
		}

		details, _ := json.Marshal(map[string]interface{}{"added_lines": len(newItems)})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			OrgID:    orgID,
			UserID:   parseUserID(userID),
			Action:   model.ActionCreateRFQ,
			EntityID: rfq.RFQNumber,
			Details:  string(details),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.rfqRepo.FindByIDWithItems(ctx, orgID, rfqID)
}

// InviteSupplier copies the RFQ's current item list into a new DRAFT quote for
// the vendor. The quote number is derived, not sequenced: {rfqNumber}-{vendorCode}.
func (s *rfqService) InviteSupplier(ctx context.Context, orgID uuid.UUID, userID string, rfqID uuid.UUID, req InviteSupplierRequest) (*model.Quote, error) {
	vendorID, err := uuid.Parse(req.VendorID)
	if err != nil {
		return nil, validationErr("vendor_id", "invalid vendor id")
	}

	var quote *model.Quote
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		rfq, findErr := s.rfqRepo.FindByIDWithItems(txCtx, orgID, rfqID)
		if findErr != nil {
			return refErr("rfq", rfqID.String(), findErr)
		}
		if rfq.Status != model.RFQStatusDraft && rfq.Status != model.RFQStatusOpen {
			return stateConflictErr("rfq", fmt.Sprintf("cannot invite suppliers in status %s", rfq.Status))
		}
		if len(rfq.Items) == 0 {
			return validationErr("rfq", "cannot invite suppliers to an rfq with no items")
		}

		vendor, vendorErr := s.vendorRepo.FindByID(txCtx, orgID, vendorID)
		if vendorErr != nil {
			return refErr("vendor", vendorID.String(), vendorErr)
		}

		quote = &model.Quote{
			OrgID:       orgID,
			QuoteNumber: rfq.RFQNumber + "-" + vendor.VendorCode,
			RFQID:       rfq.ID,
			SupplierID:  vendor.ID,
			Status:      model.QuoteStatusDraft,
			Currency:    vendor.Currency,
		}
		for _, item := range rfq.Items {
			quote.Items = append(quote.Items, model.QuoteItem{
				RFQItemID:         item.ID,
				RequisitionID:     item.RequisitionID,
				RequisitionLineID: item.RequisitionLineID,
				MaterialID:        item.MaterialID,
				Quantity:          item.Quantity,
				UOM:               item.UOM,
			})
		}
		if createErr := s.quoteRepo.Create(txCtx, quote); createErr != nil {
			return fmt.Errorf("failed to create quote: %w", createErr)
		}

		if rfq.Status == model.RFQStatusDraft {
			if statusErr := s.rfqRepo.UpdateStatus(txCtx, rfq.ID, model.RFQStatusOpen); statusErr != nil {
				return fmt.Errorf("failed to open rfq: %w", statusErr)
			}
		}

		details, _ := json.Marshal(map[string]interface{}{"vendor": vendor.Name, "quote_number": quote.QuoteNumber})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			OrgID:      orgID,
			UserID:     parseUserID(userID),
			Action:     model.ActionInviteSupplier,
			EntityID:   quote.QuoteNumber,
			EntityName: vendor.Name,
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

// SendQuote marks a DRAFT quote as sent to the supplier.
func (s *rfqService) SendQuote(ctx context.Context, orgID, quoteID uuid.UUID) (*model.Quote, error) {
	var quote *model.Quote
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		quote, findErr = s.quoteRepo.FindByID(txCtx, orgID, quoteID)
		if findErr != nil {
			return refErr("quote", quoteID.String(), findErr)
		}
		if quote.Status != model.QuoteStatusDraft {
			return stateConflictErr("quote", fmt.Sprintf("cannot send a quote in status %s", quote.Status))
		}
		quote.Status = model.QuoteStatusSent
		return s.quoteRepo.UpdateStatus(txCtx, quote.ID, model.QuoteStatusSent)
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

// RecordResponse transitions a quote to RECEIVED with the supplier's pricing.
// Each item total is unitPrice*qty*(1-discount/100); TotalValue is their sum.
func (s *rfqService) RecordResponse(ctx context.Context, orgID uuid.UUID, userID string, quoteID uuid.UUID, req RecordResponseRequest) (*model.Quote, error) {
	var quote *model.Quote
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		quote, findErr = s.quoteRepo.FindByIDWithItems(txCtx, orgID, quoteID)
		if findErr != nil {
			return refErr("quote", quoteID.String(), findErr)
		}
		if quote.Status != model.QuoteStatusDraft && quote.Status != model.QuoteStatusSent {
			return stateConflictErr("quote", fmt.Sprintf("cannot record a response in status %s", quote.Status))
		}

		rfq, rfqErr := s.rfqRepo.FindByID(txCtx, orgID, quote.RFQID)
		if rfqErr != nil {
			return refErr("rfq", quote.RFQID.String(), rfqErr)
		}
		if req.ConfirmationToken != rfq.RFQNumber {
			return validationErr("confirmation_token", "does not match the rfq number")
		}

		priced := make(map[uuid.UUID]QuoteItemPrice, len(req.Items))
		for _, p := range req.Items {
			itemID, parseErr := uuid.Parse(p.QuoteItemID)
			if parseErr != nil {
				return validationErr("items", "invalid quote item id "+p.QuoteItemID)
			}
			priced[itemID] = p
		}

		total := decimal.Zero
		for i := range quote.Items {
			item := &quote.Items[i]
			p, ok := priced[item.ID]
			if !ok {
				return validationErr("items", "missing price for item "+item.ID.String())
			}
			unitPrice, priceErr := decimal.NewFromString(p.UnitPrice)
			if priceErr != nil || unitPrice.IsNegative() {
				return validationErr("unit_price", "a non-negative price is required")
			}
			discount := decimal.Zero
			if p.Discount != "" {
				var discErr error
				discount, discErr = decimal.NewFromString(p.Discount)
				if discErr != nil {
					return validationErr("discount", "invalid discount")
				}
			}

			item.QuotedUnitPrice = &unitPrice
			item.QuotedDiscount = discount
			item.LeadTimeValue = p.LeadTimeValue
			if p.LeadTimeUnits != "" {
				item.LeadTimeUnits = p.LeadTimeUnits
			}
			item.QuotedTotalPrice = quotedItemTotal(unitPrice, item.Quantity, discount)
			total = total.Add(item.QuotedTotalPrice)

			if saveErr := s.quoteRepo.SaveItem(txCtx, item); saveErr != nil {
				return fmt.Errorf("failed to save quote item: %w", saveErr)
			}
		}

		now := s.now()
		quote.Status = model.QuoteStatusReceived
		quote.TotalValue = total
		quote.ReceivedAt = &now
		if req.Currency != "" {
			quote.Currency = req.Currency
		}
		quote.PaymentTerms = req.PaymentTerms
		if saveErr := s.quoteRepo.Save(txCtx, quote); saveErr != nil {
			return fmt.Errorf("failed to save quote: %w", saveErr)
		}

		details, _ := json.Marshal(map[string]interface{}{"total_value": total.StringFixed(4)})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			OrgID:      orgID,
			UserID:     parseUserID(userID),
			Action:     model.ActionRecordResponse,
			EntityID:   quote.QuoteNumber,
			EntityName: quote.QuoteNumber,
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

// quotedItemTotal computes unitPrice*qty*(1-discount/100).
func quotedItemTotal(unitPrice, quantity, discountPercent decimal.Decimal) decimal.Decimal {
	gross := unitPrice.Mul(quantity)
	return gross.Sub(gross.Mul(discountPercent).Div(decimal.NewFromInt(100)))
}

// AwardQuote runs the threshold evaluator and, when the rule is unsatisfied,
// demands a justification and records an exception notice in the same
// transaction. On success the quote becomes the awarded source for its
// requisition lines and the order consolidator may proceed.
func (s *rfqService) AwardQuote(ctx context.Context, orgID uuid.UUID, userID string, quoteID uuid.UUID, req AwardQuoteRequest) (*AwardResult, error) {
	var result *AwardResult
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		quote, findErr := s.quoteRepo.FindByIDWithItems(txCtx, orgID, quoteID)
		if findErr != nil {
			return refErr("quote", quoteID.String(), findErr)
		}
		if quote.Status != model.QuoteStatusReceived {
			return stateConflictErr("quote", fmt.Sprintf("only a RECEIVED quote can be awarded, got %s", quote.Status))
		}

		receivedCount, countErr := s.quoteRepo.CountByRFQAndStatus(txCtx, quote.RFQID, model.QuoteStatusReceived)
		if countErr != nil {
			return fmt.Errorf("failed to count received quotes: %w", countErr)
		}

		threshold, evalErr := s.policies.Evaluate(txCtx, orgID, quote.TotalValue, int(receivedCount))
		if evalErr != nil {
			return evalErr
		}

		noticeNo := ""
		if !threshold.Satisfied {
			// Explicit exception path: proceeding past an unsatisfied rule
			// demands a justification, not a soft warning.
			if req.Justification == "" {
				return validationErr("justification", "required when the award bypasses a policy threshold")
			}
			number, numErr := s.sequences.NextNumber(txCtx, orgID, model.SeqDomainException)
			if numErr != nil {
				return numErr
			}
			violation := model.ViolationQuoteCount
			if threshold.Required == model.RuleTender {
				violation = model.ViolationTender
			}
			supplierName := ""
			if quote.Supplier != nil {
				supplierName = quote.Supplier.Name
			}
			notice := &model.ExceptionNotice{
				OrgID:          orgID,
				NoticeNumber:   number,
				QuoteID:        quote.ID,
				QuoteNumber:    quote.QuoteNumber,
				SupplierName:   supplierName,
				QuoteValue:     quote.TotalValue,
				ThresholdLimit: threshold.Limit,
				ViolationType:  violation,
				AwardReason:    req.AwardReason,
				Justification:  req.Justification,
				CreatedBy:      parseUserID(userID),
			}
			if noticeErr := s.policyRepo.CreateNotice(txCtx, notice); noticeErr != nil {
				return fmt.Errorf("failed to create exception notice: %w", noticeErr)
			}
			noticeNo = number

			if auditErr := s.auditRepo.Log(txCtx, &model.AuditLog{
				OrgID:      orgID,
				UserID:     parseUserID(userID),
				Action:     model.ActionExceptionNotice,
				EntityID:   number,
				EntityName: quote.QuoteNumber,
				Details:    fmt.Sprintf(`{"violation": %q}`, violation),
			}); auditErr != nil {
				return auditErr
			}
		}

		quote.Status = model.QuoteStatusAwarded
		if saveErr := s.quoteRepo.Save(txCtx, quote); saveErr != nil {
			return fmt.Errorf("failed to save quote: %w", saveErr)
		}
		if statusErr := s.rfqRepo.UpdateStatus(txCtx, quote.RFQID, model.RFQStatusAwarded); statusErr != nil {
			return fmt.Errorf("failed to update rfq status: %w", statusErr)
		}

		// The awarded quote becomes each originating line's sourcing source.
		touched := make(map[uuid.UUID]bool)
		for i := range quote.Items {
			item := &quote.Items[i]
			if item.QuotedUnitPrice == nil {
				continue
			}
			line, lineErr := s.requisitionRepo.FindLineByID(txCtx, item.RequisitionLineID)
			if lineErr != nil {
				return refErr("requisition line", item.RequisitionLineID.String(), lineErr)
			}
			if line.Linked() {
				continue
			}
			line.AssignedVendorID = &quote.SupplierID
			if quote.Supplier != nil {
				line.VendorName = quote.Supplier.Name
			}
			line.AgreedPrice = item.QuotedUnitPrice
			line.DiscountPercent = item.QuotedDiscount
			line.Currency = quote.Currency
			line.LeadTimeDays = item.LeadTimeDays()
			line.SourcingMethod = model.SourcingRFQ
			line.SourcingRef = quote.QuoteNumber
			line.QuoteID = &quote.ID
			line.ReviewStatus = model.ReviewProcessed
			if saveErr := s.requisitionRepo.SaveLine(txCtx, line); saveErr != nil {
				return fmt.Errorf("failed to save line: %w", saveErr)
			}
			touched[line.RequisitionID] = true
		}
		for prID := range touched {
			if rollErr := s.rollUp(txCtx, orgID, prID); rollErr != nil {
				return rollErr
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"reason":    req.AwardReason,
			"required":  threshold.Required,
			"satisfied": threshold.Satisfied,
		})
		if auditErr := s.auditRepo.Log(txCtx, &model.AuditLog{
			OrgID:      orgID,
			UserID:     parseUserID(userID),
			Action:     model.ActionAwardQuote,
			EntityID:   quote.QuoteNumber,
			EntityName: quote.QuoteNumber,
			Details:    string(details),
		}); auditErr != nil {
			return auditErr
		}

		result = &AwardResult{Quote: quote, Threshold: threshold, NoticeNo: noticeNo}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *rfqService) GetQuote(ctx context.Context, orgID, id uuid.UUID) (*model.Quote, error) {
	quote, err := s.quoteRepo.FindByIDWithItems(ctx, orgID, id)
	if err != nil {
		return nil, refErr("quote", id.String(), err)
	}
	return quote, nil
}

func (s *rfqService) rollUp(ctx context.Context, orgID, prID uuid.UUID) error {
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
