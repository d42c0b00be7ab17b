package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrder status constants. Only CREATED and REJECTED orders accept item
// mutations; ISSUED and later are immutable to the consolidation engine.
const (
	POStatusCreated  = "CREATED"
	POStatusIssued   = "ISSUED"
	POStatusRejected = "REJECTED"
	POStatusReceived = "RECEIVED"
	POStatusClosed   = "CLOSED"
)

// PurchaseOrder consolidates processed requisition lines for a single vendor.
// SubTotal, TotalTax, and GrandTotal are recomputed from the full item list on
// every item add/remove, never incrementally updated.
type PurchaseOrder struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrgID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"org_id"`
	PONumber   string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"po_number"` // PO{8-digit seq}
	VendorID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"vendor_id"`
	Vendor     *Vendor         `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
	CategoryID *uuid.UUID      `gorm:"type:uuid;index" json:"category_id"`
	Currency   string          `gorm:"type:varchar(10);not null;default:'USD'" json:"currency"`
	Status     string          `gorm:"type:varchar(20);not null;default:'CREATED';index" json:"status"`
	SubTotal   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"sub_total"`
	TotalTax   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total_tax"`
	GrandTotal decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"grand_total"`
	Note       string          `gorm:"type:text" json:"note"`
	CreatedBy  *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	IssuedAt   *time.Time      `json:"issued_at"`
	Items      []POItem        `gorm:"foreignKey:POID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Mutable reports whether the order still accepts item adds and removes.
func (po *PurchaseOrder) Mutable() bool {
	return po.Status == POStatusCreated || po.Status == POStatusRejected
}

// POItem is one consolidated order line. (PRID, MaterialID) is the composite
// key used to find and remove an item on unlink.
type POItem struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	POID   uuid.UUID `gorm:"type:uuid;not null;index" json:"po_id"`
	LineNo int       `gorm:"type:int;not null" json:"line_no"` // multiple of 10, dense-packed

	PRID              uuid.UUID `gorm:"type:uuid;not null;index" json:"pr_id"`
	RequisitionLineID uuid.UUID `gorm:"type:uuid;not null;index" json:"requisition_line_id"`
	MaterialID        uuid.UUID `gorm:"type:uuid;not null;index" json:"material_id"`
	MaterialCode      string    `gorm:"type:varchar(100)" json:"material_code"`

	Quantity        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`
	UOM             string          `gorm:"type:varchar(20);not null" json:"uom"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	PriceUnit       decimal.Decimal `gorm:"type:decimal(10,4);not null;default:1" json:"price_unit"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"discount_percent"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"discount_amount"`
	TaxPercent      decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"tax_percent"`
	TaxAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"tax_amount"`
	NetAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"net_amount"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total_amount"`
	DeliveryDate    time.Time       `gorm:"type:date;not null" json:"delivery_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
