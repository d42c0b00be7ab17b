package service

import (
	"context"
	"encoding/json"
	"fmt"

	"procurement/internal/model"
	"procurement/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateRequisitionLineRequest struct {
	MaterialID string `json:"material_id" binding:"required"`
	Quantity   string `json:"quantity" binding:"required"`
	UOM        string `json:"uom"`
}

type CreateRequisitionRequest struct {
	CategoryID string                         `json:"category_id"`
	Source     string                         `json:"source"` // MANUAL, MRP
	Note       string                         `json:"note"`
	Lines      []CreateRequisitionLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// --- Interface ---

type RequisitionService interface {
	CreateRequisition(ctx context.Context, orgID uuid.UUID, userID string, req CreateRequisitionRequest) (*model.Requisition, error)
	GetRequisition(ctx context.Context, orgID, id uuid.UUID) (*model.Requisition, error)
	ListRequisitions(ctx context.Context, orgID uuid.UUID, status string, page, limit int) ([]model.Requisition, int64, error)
}

type requisitionService struct {
	requisitionRepo repository.RequisitionRepository
	materialRepo    repository.MaterialRepository
	auditRepo       repository.AuditRepository
	sequences       SequenceService
	txManager       repository.TransactionManager
}

func NewRequisitionService(
	requisitionRepo repository.RequisitionRepository,
	materialRepo repository.MaterialRepository,
	auditRepo repository.AuditRepository,
	sequences SequenceService,
	txManager repository.TransactionManager,
) RequisitionService {
	return &requisitionService{
		requisitionRepo: requisitionRepo,
		materialRepo:    materialRepo,
		auditRepo:       auditRepo,
		sequences:       sequences,
		txManager:       txManager,
	}
}

// --- Implementation ---

// CreateRequisition numbers and stores a demand document. Every line starts
// PENDING; the header starts CREATED and is only moved by line roll-up.
func (s *requisitionService) CreateRequisition(ctx context.Context, orgID uuid.UUID, userID string, req CreateRequisitionRequest) (*model.Requisition, error) {
	source := req.Source
	if source == "" {
		source = "MANUAL"
	}
	if source != "MANUAL" && source != "MRP" {
		return nil, validationErr("source", "must be MANUAL or MRP")
	}
	var categoryID *uuid.UUID
	if req.CategoryID != "" {
		parsed, err := uuid.Parse(req.CategoryID)
		if err != nil {
			return nil, validationErr("category_id", "invalid category id")
		}
		categoryID = &parsed
	}

	var pr *model.Requisition
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		lines := make([]model.RequisitionLine, 0, len(req.Lines))
		for i, lr := range req.Lines {
			materialID, parseErr := uuid.Parse(lr.MaterialID)
			if parseErr != nil {
				return validationErr(fmt.Sprintf("lines[%d].material_id", i), "invalid material id")
			}
			qty, parseErr := decimal.NewFromString(lr.Quantity)
			if parseErr != nil || !qty.IsPositive() {
				return validationErr(fmt.Sprintf("lines[%d].quantity", i), "must be a positive amount")
			}

			material, matErr := s.materialRepo.FindByID(txCtx, orgID, materialID)
			if matErr != nil {
				return refErr("material", lr.MaterialID, matErr)
			}
			uom := lr.UOM
			if uom == "" {
				uom = material.UOM
			}

			lines = append(lines, model.RequisitionLine{
				MaterialID:        material.ID,
				RequestedQuantity: qty,
				UOM:               uom,
				ReviewStatus:      model.ReviewPending,
			})
		}

		number, numErr := s.sequences.NextNumber(txCtx, orgID, model.SeqDomainPR)
		if numErr != nil {
			return numErr
		}

		pr = &model.Requisition{
			OrgID:       orgID,
			PRNumber:    number,
			CategoryID:  categoryID,
			Source:      source,
			Status:      model.PRStatusCreated,
			RequestedBy: parseUserID(userID),
			Note:        req.Note,
			Lines:       lines,
		}
		if createErr := s.requisitionRepo.Create(txCtx, pr); createErr != nil {
			return fmt.Errorf("failed to create requisition: %w", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{"source": source, "line_count": len(lines)})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			OrgID:    orgID,
			UserID:   parseUserID(userID),
			Action:   model.ActionCreateRequisition,
			EntityID: pr.PRNumber,
			Details:  string(details),
		})
	})
	if err != nil {
		return nil, err
	}
	return pr, nil
}

func (s *requisitionService) GetRequisition(ctx context.Context, orgID, id uuid.UUID) (*model.Requisition, error) {
	pr, err := s.requisitionRepo.FindByIDWithLines(ctx, orgID, id)
	if err != nil {
		return nil, refErr("requisition", id.String(), err)
	}
	return pr, nil
}

func (s *requisitionService) ListRequisitions(ctx context.Context, orgID uuid.UUID, status string, page, limit int) ([]model.Requisition, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.requisitionRepo.List(ctx, orgID, status, page, limit)
}
