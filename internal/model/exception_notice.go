package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Threshold rule constants returned by the policy evaluator
const (
	RuleNone        = "NONE"
	RuleThreeQuotes = "THREE_QUOTES"
	RuleTender      = "TENDER"
)

// Violation type constants recorded on exception notices
const (
	ViolationQuoteCount = "INSUFFICIENT_QUOTES"
	ViolationTender     = "TENDER_BYPASSED"
)

// ProcurementPolicy stores the per-org award thresholds
type ProcurementPolicy struct {
	ID                  uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrgID               uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"org_id"`
	ThreeQuoteThreshold decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"three_quote_threshold"`
	TenderThreshold     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"tender_threshold"`
	MinQuoteCount       int             `gorm:"type:int;not null;default:3" json:"min_quote_count"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// ExceptionNotice is the immutable audit record justifying an award that
// bypassed a policy threshold. Created once, never updated.
type ExceptionNotice struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrgID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"org_id"`
	NoticeNumber   string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"notice_number"` // EX-{6-digit seq}
	QuoteID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"quote_id"`
	QuoteNumber    string          `gorm:"type:varchar(40);not null" json:"quote_number"`
	SupplierName   string          `gorm:"type:varchar(255);not null" json:"supplier_name"`
	QuoteValue     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quote_value"`
	ThresholdLimit decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"threshold_limit"`
	ViolationType  string          `gorm:"type:varchar(30);not null" json:"violation_type"`
	AwardReason    string          `gorm:"type:varchar(255);not null" json:"award_reason"`
	Justification  string          `gorm:"type:text;not null" json:"justification"`
	CreatedBy      *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	Creator        *User           `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
