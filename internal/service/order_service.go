package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"procurement/internal/model"
	"procurement/internal/repository"
	ws "procurement/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// deliveryBufferWorkingDays is the fixed buffer added on top of the vendor lead
// time: lead time in calendar days first, then seven working days.
const deliveryBufferWorkingDays = 7

// --- DTOs ---

type CreatePORequest struct {
	VendorID   string `json:"vendor_id" binding:"required"`
	CategoryID string `json:"category_id"`
	Currency   string `json:"currency"`
	Note       string `json:"note"`
}

type OrderEvent struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// --- Interface ---

// OrderService consolidates processed requisition lines into purchase orders
// and maintains the three-way requisition/quote/order consistency under link
// and unlink. Every mutation is a single transaction: all documents reflect
// the change or none do.
type OrderService interface {
	CreatePO(ctx context.Context, orgID uuid.UUID, userID string, req CreatePORequest) (*model.PurchaseOrder, error)
	GetPO(ctx context.Context, orgID, id uuid.UUID) (*model.PurchaseOrder, error)
	ListPOs(ctx context.Context, orgID uuid.UUID, status string, vendorID *uuid.UUID, page, limit int) ([]model.PurchaseOrder, int64, error)
	LinkLine(ctx context.Context, orgID uuid.UUID, userID string, poID, lineID uuid.UUID) (*model.PurchaseOrder, error)
	LinkRequisition(ctx context.Context, orgID uuid.UUID, userID string, poID, prID uuid.UUID) (*model.PurchaseOrder, error)
	UnlinkLine(ctx context.Context, orgID uuid.UUID, userID string, poID, lineID uuid.UUID) (*model.PurchaseOrder, error)
	IssuePO(ctx context.Context, orgID uuid.UUID, userID string, poID uuid.UUID) (*model.PurchaseOrder, error)
	RejectPO(ctx context.Context, orgID uuid.UUID, userID string, poID uuid.UUID, reason string) (*model.PurchaseOrder, error)
}

type orderService struct {
	orderRepo       repository.OrderRepository
	requisitionRepo repository.RequisitionRepository
	materialRepo    repository.MaterialRepository
	vendorRepo      repository.VendorRepository
	auditRepo       repository.AuditRepository
	sequences       SequenceService
	txManager       repository.TransactionManager
	hub             *ws.Hub
	now             func() time.Time
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	requisitionRepo repository.RequisitionRepository,
	materialRepo repository.MaterialRepository,
	vendorRepo repository.VendorRepository,
	auditRepo repository.AuditRepository,
	sequences SequenceService,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) OrderService {
	return &orderService{
		orderRepo:       orderRepo,
		requisitionRepo: requisitionRepo,
		materialRepo:    materialRepo,
		vendorRepo:      vendorRepo,
		auditRepo:       auditRepo,
		sequences:       sequences,
		txManager:       txManager,
		hub:             hub,
		now:             time.Now,
	}
}

// --- Pure computation helpers ---

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

func nextWorkingDay(t time.Time) time.Time {
	t = t.AddDate(0, 0, 1)
	for isWeekend(t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// computeDeliveryDate applies the vendor lead time in calendar days, rolls a
// weekend landing forward, then advances the fixed working-day buffer.
func computeDeliveryDate(start time.Time, leadTimeDays int) time.Time {
	d := start.AddDate(0, 0, leadTimeDays)
	for isWeekend(d) {
		d = d.AddDate(0, 0, 1)
	}
	for i := 0; i < deliveryBufferWorkingDays; i++ {
		d = nextWorkingDay(d)
	}
	return d
}

// buildPOItem computes one consolidated order line from a processed
// requisition line and its material master data:
// gross = price*qty/priceUnit, net = gross - discount, total = net + tax.
func buildPOItem(po *model.PurchaseOrder, line *model.RequisitionLine, material *model.Material, today time.Time) model.POItem {
	hundred := decimal.NewFromInt(100)
	price := decimal.Zero
	if line.AgreedPrice != nil {
		price = *line.AgreedPrice
	}
	priceUnit := material.PriceUnit
	if priceUnit.IsZero() {
		priceUnit = decimal.NewFromInt(1)
	}

	gross := price.Mul(line.RequestedQuantity).Div(priceUnit)
	discountAmount := gross.Mul(line.DiscountPercent).Div(hundred)
	net := gross.Sub(discountAmount)
	taxAmount := net.Mul(material.TaxPercent).Div(hundred)

	return model.POItem{
		POID:              po.ID,
		PRID:              line.RequisitionID,
		RequisitionLineID: line.ID,
		MaterialID:        line.MaterialID,
		MaterialCode:      material.Code,
		Quantity:          line.RequestedQuantity,
		UOM:               line.UOM,
		UnitPrice:         price,
		PriceUnit:         priceUnit,
		DiscountPercent:   line.DiscountPercent,
		DiscountAmount:    discountAmount,
		TaxPercent:        material.TaxPercent,
		TaxAmount:         taxAmount,
		NetAmount:         net,
		TotalAmount:       net.Add(taxAmount),
		DeliveryDate:      computeDeliveryDate(today, line.LeadTimeDays),
	}
}

// renumberItems dense-packs line numbers as (index+1)*10.
func renumberItems(items []model.POItem) {
	for i := range items {
		items[i].LineNo = (i + 1) * 10
	}
}

// recomputeAggregates derives the header sums from the full item list, never
// incrementally, so the stored aggregates cannot drift.
func recomputeAggregates(po *model.PurchaseOrder, items []model.POItem) {
	subTotal := decimal.Zero
	totalTax := decimal.Zero
	for i := range items {
		subTotal = subTotal.Add(items[i].NetAmount)
		totalTax = totalTax.Add(items[i].TaxAmount)
	}
	po.SubTotal = subTotal
	po.TotalTax = totalTax
	po.GrandTotal = subTotal.Add(totalTax)
}

// --- Implementation ---

func (s *orderService) CreatePO(ctx context.Context, orgID uuid.UUID, userID string, req CreatePORequest) (*model.PurchaseOrder, error) {
	vendorID, err := uuid.Parse(req.VendorID)
	if err != nil {
		return nil, validationErr("vendor_id", "invalid vendor id")
	}
	var categoryID *uuid.UUID
	if req.CategoryID != "" {
		parsed, parseErr := uuid.Parse(req.CategoryID)
		if parseErr != nil {
			return nil, validationErr("category_id", "invalid category id")
		}
		categoryID = &parsed
	}

	var po *model.PurchaseOrder
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		vendor, vendorErr := s.vendorRepo.FindByID(txCtx, orgID, vendorID)
		if vendorErr != nil {
			return refErr("vendor", vendorID.String(), vendorErr)
		}

		number, numErr := s.sequences.NextNumber(txCtx, orgID, model.SeqDomainPO)
		if numErr != nil {
			return numErr
		}

		currency := req.Currency
		if currency == "" {
			currency = vendor.Currency
		}
		po = &model.PurchaseOrder{
			OrgID:      orgID,
			PONumber:   number,
			VendorID:   vendor.ID,
			CategoryID: categoryID,
			Currency:   currency,
			Status:     model.POStatusCreated,
			Note:       req.Note,
			CreatedBy:  parseUserID(userID),
		}
		if createErr := s.orderRepo.Create(txCtx, po); createErr != nil {
			return fmt.Errorf("failed to create purchase order: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{"vendor": vendor.Name, "currency": currency})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			OrgID:      orgID,
			UserID:     parseUserID(userID),
			Action:     model.ActionCreatePO,
			EntityID:   po.PONumber,
			EntityName: vendor.Name,
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

func (s *orderService) GetPO(ctx context.Context, orgID, id uuid.UUID) (*model.PurchaseOrder, error) {
	po, err := s.orderRepo.FindByIDWithItems(ctx, orgID, id)
	if err != nil {
		return nil, refErr("purchase order", id.String(), err)
	}
	return po, nil
}

func (s *orderService) ListPOs(ctx context.Context, orgID uuid.UUID, status string, vendorID *uuid.UUID, page, limit int) ([]model.PurchaseOrder, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.orderRepo.List(ctx, orgID, status, vendorID, page, limit)
}

// LinkLine moves one processed requisition line into the purchase order. The
// transaction reads every document first (order, line, material, requisition),
// computes the full write set, then applies it: item append, dense renumber,
// aggregate recompute, line back-reference, and requisition roll-up.
func (s *orderService) LinkLine(ctx context.Context, orgID uuid.UUID, userID string, poID, lineID uuid.UUID) (*model.PurchaseOrder, error) {
	var po *model.PurchaseOrder
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		po, txErr = s.orderRepo.FindByIDWithItems(txCtx, orgID, poID)
		if txErr != nil {
			return refErr("purchase order", poID.String(), txErr)
		}

		line, txErr := s.requisitionRepo.FindLineByID(txCtx, lineID)
		if txErr != nil {
			return refErr("requisition line", lineID.String(), txErr)
		}

		material, txErr := s.materialRepo.FindByID(txCtx, orgID, line.MaterialID)
		if txErr != nil {
			return refErr("material", line.MaterialID.String(), txErr)
		}

		if planErr := validateLink(po, line); planErr != nil {
			return planErr
		}

		item := buildPOItem(po, line, material, s.now())
		if createErr := s.orderRepo.CreateItem(txCtx, &item); createErr != nil {
			return fmt.Errorf("failed to create order item: %w", createErr)
		}
		po.Items = append(po.Items, item)

		if applyErr := s.applyItemLayout(txCtx, po); applyErr != nil {
			return applyErr
		}

		line.POID = &po.ID
		line.PONumber = po.PONumber
		if saveErr := s.requisitionRepo.SaveLine(txCtx, line); saveErr != nil {
			return fmt.Errorf("failed to save line: %w", saveErr)
		}
		if rollErr := s.rollUp(txCtx, orgID, line.RequisitionID); rollErr != nil {
			return rollErr
		}

		details, _ := json.Marshal(map[string]interface{}{
			"line_id":     lineID.String(),
			"po_number":   po.PONumber,
			"grand_total": po.GrandTotal.StringFixed(4),
		})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			OrgID:      orgID,
			UserID:     parseUserID(userID),
			Action:     model.ActionLinkLine,
			EntityID:   po.PONumber,
			EntityName: material.Name,
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, err
	}

	s.broadcast("line_linked", map[string]interface{}{"po_number": po.PONumber, "line_id": lineID.String()})
	return po, nil
}

// LinkRequisition repeats the single-line link for every processed, unlinked
// line whose assigned vendor matches the order's vendor, all inside one
// transaction, so a partial failure rolls back entirely.
func (s *orderService) LinkRequisition(ctx context.Context, orgID uuid.UUID, userID string, poID, prID uuid.UUID) (*model.PurchaseOrder, error) {
	var po *model.PurchaseOrder
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		po, txErr = s.orderRepo.FindByIDWithItems(txCtx, orgID, poID)
		if txErr != nil {
			return refErr("purchase order", poID.String(), txErr)
		}
		if !po.Mutable() {
			return stateConflictErr("purchase order", fmt.Sprintf("cannot modify items in status %s", po.Status))
		}

		pr, txErr := s.requisitionRepo.FindByIDWithLines(txCtx, orgID, prID)
		if txErr != nil {
			return refErr("requisition", prID.String(), txErr)
		}

		today := s.now()
		linked := 0
		for i := range pr.Lines {
			line := &pr.Lines[i]
			if line.ReviewStatus != model.ReviewProcessed || line.Linked() {
				continue
			}
			if line.AssignedVendorID == nil || *line.AssignedVendorID != po.VendorID {
				continue
			}

			material, matErr := s.materialRepo.FindByID(txCtx, orgID, line.MaterialID)
			if matErr != nil {
				return refErr("material", line.MaterialID.String(), matErr)
			}

			item := buildPOItem(po, line, material, today)
			if createErr := s.orderRepo.CreateItem(txCtx, &item); createErr != nil {
				return fmt.Errorf("failed to create order item: %w", createErr)
			}
			po.Items = append(po.Items, item)

			line.POID = &po.ID
			line.PONumber = po.PONumber
			if saveErr := s.requisitionRepo.SaveLine(txCtx, line); saveErr != nil {
				return fmt.Errorf("failed to save line: %w", saveErr)
			}
			linked++
		}
		if linked == 0 {
			return validationErr("requisition", "no processed unlinked lines match the order's vendor")
		}

		if applyErr := s.applyItemLayout(txCtx, po); applyErr != nil {
			return applyErr
		}
		if rollErr := s.rollUp(txCtx, orgID, pr.ID); rollErr != nil {
			return rollErr
		}

		details, _ := json.Marshal(map[string]interface{}{"pr_number": pr.PRNumber, "lines_linked": linked})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			OrgID:      orgID,
			UserID:     parseUserID(userID),
			Action:     model.ActionLinkRequisition,
			EntityID:   po.PONumber,
			EntityName: pr.PRNumber,
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, err
	}

	s.broadcast("requisition_linked", map[string]interface{}{"po_number": po.PONumber})
	return po, nil
}

// UnlinkLine reverses a link: the item matching (prId, materialId) is removed,
// remaining items renumbered, aggregates recomputed, and the line's order
// reference cleared. Sourcing fields stay; only the order link is undone.
func (s *orderService) UnlinkLine(ctx context.Context, orgID uuid.UUID, userID string, poID, lineID uuid.UUID) (*model.PurchaseOrder, error) {
	var po *model.PurchaseOrder
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		po, txErr = s.orderRepo.FindByIDWithItems(txCtx, orgID, poID)
		if txErr != nil {
			return refErr("purchase order", poID.String(), txErr)
		}
		if !po.Mutable() {
			return stateConflictErr("purchase order", fmt.Sprintf("cannot unlink from an order in status %s", po.Status))
		}

		line, txErr := s.requisitionRepo.FindLineByID(txCtx, lineID)
		if txErr != nil {
			return refErr("requisition line", lineID.String(), txErr)
		}
		if line.POID == nil || *line.POID != po.ID {
			return stateConflictErr("requisition line", "not linked to this purchase order")
		}

		idx := -1
		for i := range po.Items {
			if po.Items[i].PRID == line.RequisitionID && po.Items[i].MaterialID == line.MaterialID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return &ReferentialIntegrityError{Entity: "order item", Ref: lineID.String()}
		}

		if delErr := s.orderRepo.DeleteItem(txCtx, po.Items[idx].ID); delErr != nil {
			return fmt.Errorf("failed to delete order item: %w", delErr)
		}
		po.Items = append(po.Items[:idx], po.Items[idx+1:]...)

		if applyErr := s.applyItemLayout(txCtx, po); applyErr != nil {
			return applyErr
		}

		line.POID = nil
		line.PONumber = ""
		if saveErr := s.requisitionRepo.SaveLine(txCtx, line); saveErr != nil {
			return fmt.Errorf("failed to save line: %w", saveErr)
		}
		if rollErr := s.rollUp(txCtx, orgID, line.RequisitionID); rollErr != nil {
			return rollErr
		}

		details, _ := json.Marshal(map[string]interface{}{"line_id": lineID.String()})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			OrgID:    orgID,
			UserID:   parseUserID(userID),
			Action:   model.ActionUnlinkLine,
			EntityID: po.PONumber,
			Details:  string(details),
		})
	})
	if err != nil {
		return nil, err
	}

	s.broadcast("line_unlinked", map[string]interface{}{"po_number": po.PONumber, "line_id": lineID.String()})
	return po, nil
}

func (s *orderService) IssuePO(ctx context.Context, orgID uuid.UUID, userID string, poID uuid.UUID) (*model.PurchaseOrder, error) {
	return s.transition(ctx, orgID, userID, poID, model.POStatusIssued, model.ActionIssuePO, "")
}

func (s *orderService) RejectPO(ctx context.Context, orgID uuid.UUID, userID string, poID uuid.UUID, reason string) (*model.PurchaseOrder, error) {
	return s.transition(ctx, orgID, userID, poID, model.POStatusRejected, model.ActionRejectPO, reason)
}

func (s *orderService) transition(ctx context.Context, orgID uuid.UUID, userID string, poID uuid.UUID, target, action, reason string) (*model.PurchaseOrder, error) {
	var po *model.PurchaseOrder
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		po, txErr = s.orderRepo.FindByIDWithItems(txCtx, orgID, poID)
		if txErr != nil {
			return refErr("purchase order", poID.String(), txErr)
		}

		switch target {
		case model.POStatusIssued:
			if po.Status != model.POStatusCreated {
				return stateConflictErr("purchase order", fmt.Sprintf("cannot issue from status %s", po.Status))
			}
			if len(po.Items) == 0 {
				return validationErr("purchase order", "cannot issue an order with no items")
			}
			now := s.now()
			po.IssuedAt = &now
		case model.POStatusRejected:
			if po.Status != model.POStatusCreated && po.Status != model.POStatusIssued {
				return stateConflictErr("purchase order", fmt.Sprintf("cannot reject from status %s", po.Status))
			}
		}
		po.Status = target
		if saveErr := s.orderRepo.Save(txCtx, po); saveErr != nil {
			return fmt.Errorf("failed to save purchase order: %w", saveErr)
		}

		details, _ := json.Marshal(map[string]interface{}{"status": target, "reason": reason})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			OrgID:    orgID,
			UserID:   parseUserID(userID),
			Action:   action,
			EntityID: po.PONumber,
			Details:  string(details),
		})
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

// validateLink checks the link preconditions against the read snapshot.
func validateLink(po *model.PurchaseOrder, line *model.RequisitionLine) error {
	if !po.Mutable() {
		return stateConflictErr("purchase order", fmt.Sprintf("cannot add items in status %s", po.Status))
	}
	if line.ReviewStatus != model.ReviewProcessed {
		return stateConflictErr("requisition line", fmt.Sprintf("line must be PROCESSED, got %s", line.ReviewStatus))
	}
	if line.Linked() {
		return stateConflictErr("requisition line", "already linked to a purchase order")
	}
	if line.AssignedVendorID == nil {
		return validationErr("requisition line", "no vendor assigned")
	}
	if *line.AssignedVendorID != po.VendorID {
		return stateConflictErr("requisition line", "assigned vendor does not match the order's vendor")
	}
	if line.AgreedPrice == nil {
		return validationErr("requisition line", "no agreed price")
	}
	return nil
}

// applyItemLayout renumbers the in-memory item list, recomputes the header
// aggregates from it, and persists both.
func (s *orderService) applyItemLayout(ctx context.Context, po *model.PurchaseOrder) error {
	renumberItems(po.Items)
	recomputeAggregates(po, po.Items)
	if err := s.orderRepo.SaveItems(ctx, po.Items); err != nil {
		return fmt.Errorf("failed to renumber order items: %w", err)
	}
	if err := s.orderRepo.Save(ctx, po); err != nil {
		return fmt.Errorf("failed to save order aggregates: %w", err)
	}
	return nil
}

func (s *orderService) rollUp(ctx context.Context, orgID, prID uuid.UUID) error {
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

func (s *orderService) broadcast(event string, data map[string]interface{}) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(OrderEvent{Event: event, Data: data})
	if err != nil {
		return
	}
	s.hub.Broadcast <- payload
}
