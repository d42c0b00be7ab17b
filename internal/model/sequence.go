package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Numbering domain constants
const (
	SeqDomainPO        = "po"
	SeqDomainRFQ       = "rfq"
	SeqDomainPR        = "pr"
	SeqDomainVendor    = "vendor"
	SeqDomainException = "exception"
)

// SequenceCounter is a singleton record per (org, numbering domain) holding the
// last-issued integer. It is mutated only inside the same transaction that
// creates the numbered document, so issued numbers are gap-free.
type SequenceCounter struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrgID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_counter_org_domain" json:"org_id"`
	Domain    string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_counter_org_domain" json:"domain"`
	LastValue int64     `gorm:"type:bigint;not null;default:0" json:"last_value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FormatDocumentNumber renders the zero-padded human-readable number for a
// domain, e.g. PO00000007, RFQ000000042, V00013, EX-000004.
func FormatDocumentNumber(domain string, n int64) string {
	switch domain {
	case SeqDomainPO:
		return fmt.Sprintf("PO%08d", n)
	case SeqDomainRFQ:
		return fmt.Sprintf("RFQ%09d", n)
	case SeqDomainPR:
		return fmt.Sprintf("PR%06d", n)
	case SeqDomainVendor:
		return fmt.Sprintf("V%05d", n)
	case SeqDomainException:
		return fmt.Sprintf("EX-%06d", n)
	default:
		return fmt.Sprintf("%s%d", domain, n)
	}
}
