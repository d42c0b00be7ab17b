package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RFQ status constants
const (
	RFQStatusDraft   = "DRAFT"
	RFQStatusOpen    = "OPEN"
	RFQStatusAwarded = "AWARDED"
	RFQStatusClosed  = "CLOSED"
)

// Quote status constants. A quote is awardable only once RECEIVED.
const (
	QuoteStatusDraft     = "DRAFT"
	QuoteStatusSent      = "SENT"
	QuoteStatusReceived  = "RECEIVED"
	QuoteStatusAwarded   = "AWARDED"
	QuoteStatusCancelled = "CANCELLED"
)

// RFQ is a request-for-quotation header inviting suppliers to price a set of
// items. It owns zero or more Quote records, one per invited supplier.
type RFQ struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrgID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"org_id"`
	RFQNumber  string     `gorm:"type:varchar(30);uniqueIndex;not null" json:"rfq_number"` // RFQ{9-digit seq}
	CategoryID *uuid.UUID `gorm:"type:uuid;index" json:"category_id"`
	ValidUntil *time.Time `gorm:"type:date" json:"valid_until"`
	Status     string     `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	CreatedBy  *uuid.UUID `gorm:"type:uuid" json:"created_by"`
	Items      []RFQItem  `gorm:"foreignKey:RFQID;constraint:OnDelete:CASCADE" json:"items"`
	Quotes     []Quote    `gorm:"foreignKey:RFQID" json:"quotes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// RFQItem references one requisition line to be priced
type RFQItem struct {
	ID                uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RFQID             uuid.UUID       `gorm:"type:uuid;not null;index" json:"rfq_id"`
	RequisitionID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"requisition_id"`
	RequisitionLineID uuid.UUID       `gorm:"type:uuid;not null;index" json:"requisition_line_id"`
	MaterialID        uuid.UUID       `gorm:"type:uuid;not null" json:"material_id"`
	Material          *Material       `gorm:"foreignKey:MaterialID" json:"material,omitempty"`
	Quantity          decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`
	UOM               string          `gorm:"type:varchar(20);not null" json:"uom"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Quote is one supplier's priced response to an RFQ. TotalValue is the sum of
// item totals and is the quantity compared against policy thresholds.
type Quote struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrgID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"org_id"`
	QuoteNumber string          `gorm:"type:varchar(40);uniqueIndex;not null" json:"quote_number"` // {rfqNumber}-{vendorCode}
	RFQID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"rfq_id"`
	SupplierID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"supplier_id"`
	Supplier    *Vendor         `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	Status      string          `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	Currency    string          `gorm:"type:varchar(10)" json:"currency"`
	PaymentTerms string         `gorm:"type:varchar(255)" json:"payment_terms"`
	TotalValue  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total_value"`
	ReceivedAt  *time.Time      `json:"received_at"`
	Items       []QuoteItem     `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// QuoteItem mirrors an RFQ item plus the supplier-entered pricing
type QuoteItem struct {
	ID                uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	QuoteID           uuid.UUID        `gorm:"type:uuid;not null;index" json:"quote_id"`
	RFQItemID         uuid.UUID        `gorm:"type:uuid;not null" json:"rfq_item_id"`
	RequisitionID     uuid.UUID        `gorm:"type:uuid;not null" json:"requisition_id"`
	RequisitionLineID uuid.UUID        `gorm:"type:uuid;not null;index" json:"requisition_line_id"`
	MaterialID        uuid.UUID        `gorm:"type:uuid;not null" json:"material_id"`
	Quantity          decimal.Decimal  `gorm:"type:decimal(18,4);not null" json:"quantity"`
	UOM               string           `gorm:"type:varchar(20);not null" json:"uom"`
	QuotedUnitPrice   *decimal.Decimal `gorm:"type:decimal(18,4)" json:"quoted_unit_price"`
	QuotedDiscount    decimal.Decimal  `gorm:"type:decimal(10,4);not null;default:0" json:"quoted_discount"`
	QuotedTotalPrice  decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0" json:"quoted_total_price"`
	LeadTimeValue     int              `gorm:"type:int;not null;default:0" json:"lead_time_value"`
	LeadTimeUnits     string           `gorm:"type:varchar(10);not null;default:'DAYS'" json:"lead_time_units"` // DAYS, WEEKS
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// LeadTimeDays normalizes the quoted lead time to days.
func (i *QuoteItem) LeadTimeDays() int {
	if i.LeadTimeUnits == "WEEKS" {
		return i.LeadTimeValue * 7
	}
	return i.LeadTimeValue
}
