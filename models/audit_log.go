package models

import (
	"encoding/json"
	"time"

	"github.com/amirphl/Kuruma-no-Ichiba/utils"
	"gorm.io/gorm"
)

type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	ActorID      *uint           `gorm:"index:idx_audit_actor_id" json:"actor_id,omitempty"`
	ActorRole    *string         `gorm:"size:32" json:"actor_role,omitempty"`
	Action       string          `gorm:"size:64;not null;index:idx_audit_action" json:"action"`
	EntityType   string          `gorm:"size:32;not null;index:idx_audit_entity,priority:1" json:"entity_type"`
	EntityID     *uint           `gorm:"index:idx_audit_entity,priority:2" json:"entity_id,omitempty"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"not null;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = utils.UTCNow()
	}
	return nil
}

// Audit entity types
const (
	AuditEntityCar       = "car"
	AuditEntityInquiry   = "inquiry"
	AuditEntityCatalog   = "filter_catalog"
	AuditEntityStaffUser = "staff_user"
)

// Audit action constants
const (
	AuditActionLoginSuccess       = "login_success"
	AuditActionLoginFailed        = "login_failed"
	AuditActionLogout             = "logout"
	AuditActionListingCreated     = "listing_created"
	AuditActionListingUpdated     = "listing_updated"
	AuditActionListingApproved    = "listing_approved"
	AuditActionListingRejected    = "listing_rejected"
	AuditActionListingDeleted     = "listing_deleted"
	AuditActionInquiryCreated     = "inquiry_created"
	AuditActionInquiryAssigned    = "inquiry_assigned"
	AuditActionInquiryStatus      = "inquiry_status_changed"
	AuditActionInquiryClosed      = "inquiry_closed"
	AuditActionInquiryNotes       = "inquiry_notes_updated"
	AuditActionInquiryDeleted     = "inquiry_deleted"
	AuditActionCatalogUpdated     = "catalog_updated"
	AuditActionCatalogUpdateStale = "catalog_update_stale"
	AuditActionReportExported     = "report_exported"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	ActorID       *uint
	Action        *string
	EntityType    *string
	EntityID      *uint
	Success       *bool
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}
