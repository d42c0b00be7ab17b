package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"procurement/internal/model"
	"procurement/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Default thresholds applied until an org configures its own policy.
var (
	defaultThreeQuoteThreshold = decimal.NewFromInt(10000)
	defaultTenderThreshold     = decimal.NewFromInt(50000)
)

const defaultMinQuoteCount = 3

// --- DTOs ---

// ThresholdResult is the evaluator's verdict on a prospective award.
type ThresholdResult struct {
	Required  string          `json:"required"` // NONE, THREE_QUOTES, TENDER
	Satisfied bool            `json:"satisfied"`
	Limit     decimal.Decimal `json:"limit"`
}

type UpdatePolicyRequest struct {
	ThreeQuoteThreshold string `json:"three_quote_threshold" binding:"required"`
	TenderThreshold     string `json:"tender_threshold" binding:"required"`
	MinQuoteCount       int    `json:"min_quote_count"`
}

type ExceptionNoticeResponse struct {
	ID             string `json:"id"`
	NoticeNumber   string `json:"notice_number"`
	QuoteID        string `json:"quote_id"`
	QuoteNumber    string `json:"quote_number"`
	SupplierName   string `json:"supplier_name"`
	QuoteValue     string `json:"quote_value"`
	ThresholdLimit string `json:"threshold_limit"`
	ViolationType  string `json:"violation_type"`
	AwardReason    string `json:"award_reason"`
	Justification  string `json:"justification"`
	CreatedAt      string `json:"created_at"`
}

// --- Interface ---

// PolicyService is the threshold/exception evaluator: it decides which
// competitive-sourcing rule applies to an award and records the immutable
// exception notice when an operator proceeds past an unsatisfied rule.
type PolicyService interface {
	Evaluate(ctx context.Context, orgID uuid.UUID, awardValue decimal.Decimal, receivedQuoteCount int) (ThresholdResult, error)
	GetPolicy(ctx context.Context, orgID uuid.UUID) (*model.ProcurementPolicy, error)
	UpdatePolicy(ctx context.Context, orgID uuid.UUID, req UpdatePolicyRequest) (*model.ProcurementPolicy, error)
	ListNotices(ctx context.Context, orgID uuid.UUID, page, limit int) ([]ExceptionNoticeResponse, int64, error)
}

type policyService struct {
	policyRepo repository.PolicyRepository
}

func NewPolicyService(policyRepo repository.PolicyRepository) PolicyService {
	return &policyService{policyRepo: policyRepo}
}

// --- Implementation ---

// Evaluate applies the award rules in descending severity: a value at or above
// the tender threshold requires a formal tender; at or above the three-quote
// threshold, at least MinQuoteCount received quotes on the same RFQ.
func (s *policyService) Evaluate(ctx context.Context, orgID uuid.UUID, awardValue decimal.Decimal, receivedQuoteCount int) (ThresholdResult, error) {
	policy, err := s.GetPolicy(ctx, orgID)
	if err != nil {
		return ThresholdResult{}, err
	}
	return evaluateThresholds(policy, awardValue, receivedQuoteCount), nil
}

func evaluateThresholds(policy *model.ProcurementPolicy, awardValue decimal.Decimal, receivedQuoteCount int) ThresholdResult {
	if awardValue.GreaterThanOrEqual(policy.TenderThreshold) {
		// A tender process is external to this engine; proceeding always
		// requires the exception path.
		return ThresholdResult{Required: model.RuleTender, Satisfied: false, Limit: policy.TenderThreshold}
	}
	if awardValue.GreaterThanOrEqual(policy.ThreeQuoteThreshold) {
		return ThresholdResult{
			Required:  model.RuleThreeQuotes,
			Satisfied: receivedQuoteCount >= policy.MinQuoteCount,
			Limit:     policy.ThreeQuoteThreshold,
		}
	}
	return ThresholdResult{Required: model.RuleNone, Satisfied: true}
}

// GetPolicy returns the org's policy, falling back to defaults when none is stored.
func (s *policyService) GetPolicy(ctx context.Context, orgID uuid.UUID) (*model.ProcurementPolicy, error) {
	policy, err := s.policyRepo.FindByOrg(ctx, orgID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.ProcurementPolicy{
			OrgID:               orgID,
			ThreeQuoteThreshold: defaultThreeQuoteThreshold,
			TenderThreshold:     defaultTenderThreshold,
			MinQuoteCount:       defaultMinQuoteCount,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load procurement policy: %w", err)
	}
	return policy, nil
}

func (s *policyService) UpdatePolicy(ctx context.Context, orgID uuid.UUID, req UpdatePolicyRequest) (*model.ProcurementPolicy, error) {
	threeQuote, err := decimal.NewFromString(req.ThreeQuoteThreshold)
	if err != nil {
		return nil, validationErr("three_quote_threshold", "invalid amount")
	}
	tender, err := decimal.NewFromString(req.TenderThreshold)
	if err != nil {
		return nil, validationErr("tender_threshold", "invalid amount")
	}
	if tender.LessThan(threeQuote) {
		return nil, validationErr("tender_threshold", "must not be below three_quote_threshold")
	}
	minCount := req.MinQuoteCount
	if minCount <= 0 {
		minCount = defaultMinQuoteCount
	}

	policy, err := s.policyRepo.FindByOrg(ctx, orgID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		policy = &model.ProcurementPolicy{OrgID: orgID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load procurement policy: %w", err)
	}

	policy.ThreeQuoteThreshold = threeQuote
	policy.TenderThreshold = tender
	policy.MinQuoteCount = minCount

	if err := s.policyRepo.Save(ctx, policy); err != nil {
		return nil, fmt.Errorf("failed to save procurement policy: %w", err)
	}
	return policy, nil
}

func (s *policyService) ListNotices(ctx context.Context, orgID uuid.UUID, page, limit int) ([]ExceptionNoticeResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	notices, total, err := s.policyRepo.ListNotices(ctx, orgID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch exception notices: %w", err)
	}

	result := make([]ExceptionNoticeResponse, 0, len(notices))
	for _, n := range notices {
		result = append(result, ExceptionNoticeResponse{
			ID:             n.ID.String(),
			NoticeNumber:   n.NoticeNumber,
			QuoteID:        n.QuoteID.String(),
			QuoteNumber:    n.QuoteNumber,
			SupplierName:   n.SupplierName,
			QuoteValue:     n.QuoteValue.StringFixed(4),
			ThresholdLimit: n.ThresholdLimit.StringFixed(4),
			ViolationType:  n.ViolationType,
			AwardReason:    n.AwardReason,
			Justification:  n.Justification,
			CreatedAt:      n.CreatedAt.Format(time.RFC3339),
		})
	}
	return result, total, nil
}
