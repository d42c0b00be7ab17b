package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateRequisition = "CREATE_REQUISITION"
	ActionAcceptSourcing    = "ACCEPT_SOURCING"
	ActionDelinkQuote       = "DELINK_QUOTE"
	ActionCreateRFQ         = "CREATE_RFQ"
	ActionInviteSupplier    = "INVITE_SUPPLIER"
	ActionRecordResponse    = "RECORD_QUOTE_RESPONSE"
	ActionAwardQuote        = "AWARD_QUOTE"
	ActionCreatePO          = "CREATE_PURCHASE_ORDER"
	ActionLinkLine          = "LINK_LINE_TO_ORDER"
	ActionLinkRequisition   = "LINK_REQUISITION_TO_ORDER"
	ActionUnlinkLine        = "UNLINK_LINE"
	ActionIssuePO           = "ISSUE_PURCHASE_ORDER"
	ActionRejectPO          = "REJECT_PURCHASE_ORDER"
	ActionCreateVendor      = "CREATE_VENDOR"
	ActionExceptionNotice   = "CREATE_EXCEPTION_NOTICE"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrgID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"org_id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated bot
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/document number)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
