package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Requisition roll-up status constants
const (
	PRStatusCreated   = "CREATED"    // no line processed yet
	PRStatusInProcess = "IN_PROCESS" // some lines processed
	PRStatusProcessed = "PROCESSED"  // all lines processed, none linked
	PRStatusLinked    = "LINKED"     // all lines carry a PO reference
)

// RequisitionLine review status constants (strict forward state machine; the one
// allowed reversal is RFQ_PROCESS -> REVIEWED while the quote is still DRAFT)
const (
	ReviewPending          = "PENDING"
	ReviewReviewed         = "REVIEWED"
	ReviewSupplierAssigned = "SUPPLIER_ASSIGNED"
	ReviewRFQProcess       = "RFQ_PROCESS"
	ReviewProcessed        = "PROCESSED"
)

// Sourcing method constants record the provenance of a line's price
const (
	SourcingAgreement = "AGREEMENT"
	SourcingPreferred = "PREFERRED_SUPPLIER"
	SourcingRFQ       = "RFQ"
	SourcingManual    = "MANUAL"
)

// Requisition represents a purchase requisition (demand document).
// Status is a pure roll-up of its lines and is recomputed after every line mutation.
type Requisition struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrgID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"org_id"`
	PRNumber    string            `gorm:"type:varchar(30);uniqueIndex;not null" json:"pr_number"`
	CategoryID  *uuid.UUID        `gorm:"type:uuid;index" json:"category_id"`
	Source      string            `gorm:"type:varchar(20);not null;default:'MANUAL'" json:"source"` // MANUAL, MRP
	Status      string            `gorm:"type:varchar(20);not null;default:'CREATED';index" json:"status"`
	RequestedBy *uuid.UUID        `gorm:"type:uuid" json:"requested_by"`
	Requester   *User             `gorm:"foreignKey:RequestedBy" json:"requester,omitempty"`
	Note        string            `gorm:"type:text" json:"note"`
	Lines       []RequisitionLine `gorm:"foreignKey:RequisitionID;constraint:OnDelete:CASCADE" json:"lines"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	DeletedAt   gorm.DeletedAt    `gorm:"index" json:"-"`
}

// RequisitionLine is one demanded material. The sourcing fields are written only
// by the sourcing resolver and the order linker; POID set implies the line is
// PROCESSED and a matching item exists on the referenced purchase order.
type RequisitionLine struct {
	ID                uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequisitionID     uuid.UUID `gorm:"type:uuid;not null;index" json:"requisition_id"`
	MaterialID        uuid.UUID `gorm:"type:uuid;not null;index" json:"material_id"`
	Material          *Material `gorm:"foreignKey:MaterialID" json:"material,omitempty"`
	RequestedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"requested_quantity"`
	UOM               string          `gorm:"type:varchar(20);not null" json:"uom"`

	ReviewStatus     string           `gorm:"type:varchar(30);not null;default:'PENDING';index" json:"review_status"`
	AssignedVendorID *uuid.UUID       `gorm:"type:uuid;index" json:"assigned_vendor_id"`
	AssignedVendor   *Vendor          `gorm:"foreignKey:AssignedVendorID" json:"assigned_vendor,omitempty"`
	VendorName       string           `gorm:"type:varchar(255)" json:"vendor_name"`
	AgreedPrice      *decimal.Decimal `gorm:"type:decimal(18,4)" json:"agreed_price"`
	DiscountPercent  decimal.Decimal  `gorm:"type:decimal(10,4);not null;default:0" json:"discount_percent"`
	Currency         string           `gorm:"type:varchar(10)" json:"currency"`
	LeadTimeDays     int              `gorm:"type:int;not null;default:0" json:"lead_time_days"`
	SourcingMethod   string           `gorm:"type:varchar(30)" json:"sourcing_method"`
	SourcingRef      string           `gorm:"type:varchar(40)" json:"sourcing_ref"` // agreement or quote number

	QuoteID  *uuid.UUID `gorm:"type:uuid;index" json:"quote_id"`
	POID     *uuid.UUID `gorm:"type:uuid;index" json:"po_id"`
	PONumber string     `gorm:"type:varchar(30)" json:"po_number"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Linked reports whether the line has been consolidated into a purchase order.
func (l *RequisitionLine) Linked() bool {
	return l.POID != nil
}

// RollUpStatus derives the requisition header status from its lines:
// all/some/none processed or linked. It never moves a header backwards on its
// own; callers persist the result after each line mutation.
func RollUpStatus(lines []RequisitionLine) string {
	if len(lines) == 0 {
		return PRStatusCreated
	}
	processed := 0
	linked := 0
	for _, l := range lines {
		if l.ReviewStatus == ReviewProcessed {
			processed++
		}
		if l.Linked() {
			linked++
		}
	}
	switch {
	case linked == len(lines):
		return PRStatusLinked
	case processed == len(lines):
		return PRStatusProcessed
	case processed > 0 || linked > 0:
		return PRStatusInProcess
	default:
		return PRStatusCreated
	}
}
