package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Agreement status constants
const (
	AgreementActive  = "ACTIVE"
	AgreementExpired = "EXPIRED"
	AgreementDraft   = "DRAFT"
)

// Vendor represents a registered supplier
type Vendor struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrgID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"org_id"`
	VendorCode    string         `gorm:"type:varchar(20);uniqueIndex;not null" json:"vendor_code"` // V{5-digit seq}
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	TaxCode       string         `gorm:"type:varchar(50)" json:"tax_code"`
	ContactPerson string         `gorm:"type:varchar(255)" json:"contact_person"`
	Phone         string         `gorm:"type:varchar(50)" json:"phone"`
	Email         string         `gorm:"type:varchar(255)" json:"email"`
	Currency      string         `gorm:"type:varchar(10);not null;default:'USD'" json:"currency"`
	IsActive      bool           `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// Material represents an item in the material master
type Material struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrgID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"org_id"`
	Code        string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	CategoryID  *uuid.UUID      `gorm:"type:uuid;index" json:"category_id"`
	UOM         string          `gorm:"type:varchar(20);not null" json:"uom"`
	PriceUnit   decimal.Decimal `gorm:"type:decimal(10,4);not null;default:1" json:"price_unit"` // price is per this many units
	TaxPercent  decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"tax_percent"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// MaterialSource is a vendor-specific sourcing record for a material: priority
// ranking, an optional date-bounded agreement, and the last negotiated terms.
type MaterialSource struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrgID      uuid.UUID `gorm:"type:uuid;not null;index" json:"org_id"`
	MaterialID uuid.UUID `gorm:"type:uuid;not null;index" json:"material_id"`
	VendorID   uuid.UUID `gorm:"type:uuid;not null;index" json:"vendor_id"`
	Vendor     *Vendor   `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
	Priority   int       `gorm:"type:int;not null;default:99" json:"priority"` // 1 = preferred

	HasAgreement    bool       `gorm:"default:false" json:"has_agreement"`
	AgreementStatus string     `gorm:"type:varchar(20)" json:"agreement_status"`
	AgreementRef    string     `gorm:"type:varchar(40)" json:"agreement_ref"`
	ValidFrom       *time.Time `gorm:"type:date" json:"valid_from"`
	ValidTo         *time.Time `gorm:"type:date" json:"valid_to"`

	LastPrice       *decimal.Decimal `gorm:"type:decimal(18,4)" json:"last_price"`
	DiscountPercent decimal.Decimal  `gorm:"type:decimal(10,4);not null;default:0" json:"discount_percent"`
	Currency        string           `gorm:"type:varchar(10)" json:"currency"`
	LeadTimeDays    int              `gorm:"type:int;not null;default:0" json:"lead_time_days"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AgreementValidOn reports whether the source carries an active agreement whose
// validity window contains the given date.
func (s *MaterialSource) AgreementValidOn(day time.Time) bool {
	if !s.HasAgreement || s.AgreementStatus != AgreementActive {
		return false
	}
	if s.ValidFrom != nil && day.Before(*s.ValidFrom) {
		return false
	}
	if s.ValidTo != nil && day.After(*s.ValidTo) {
		return false
	}
	return true
}
