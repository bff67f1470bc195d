package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/amirphl/Kuruma-no-Ichiba/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InquiryStatus represents the progress of a purchase inquiry
type InquiryStatus string

const (
	InquiryStatusNew       InquiryStatus = "new"
	InquiryStatusContacted InquiryStatus = "contacted"
	InquiryStatusClosed    InquiryStatus = "closed"
)

func (s InquiryStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s InquiryStatus) Valid() bool {
	switch s {
	case InquiryStatusNew, InquiryStatusContacted, InquiryStatusClosed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for InquiryStatus
func (s *InquiryStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = InquiryStatus(v)
	case []byte:
		*s = InquiryStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into InquiryStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for InquiryStatus
func (s InquiryStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid InquiryStatus: %s", s)
	}
	return string(s), nil
}

// CallPreference is when the customer wants to be called back
type CallPreference string

const (
	CallPreferenceNow      CallPreference = "now"
	CallPreferenceSchedule CallPreference = "schedule"
)

func (p CallPreference) Valid() bool {
	return p == CallPreferenceNow || p == CallPreferenceSchedule
}

// Inquiry is a customer's purchase interest in a car.
// CarID is a plain reference; CarSummary is captured once and never recomputed.
type Inquiry struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	UUID              uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_inquiries_uuid" json:"uuid"`
	CarID             uint           `gorm:"not null;index:idx_inquiries_car_id" json:"car_id"`
	CustomerName      string         `gorm:"size:255;not null" json:"customer_name"`
	CustomerPhone     string         `gorm:"size:32;not null" json:"customer_phone"`
	CustomerID        *uint          `gorm:"index:idx_inquiries_customer_id" json:"customer_id,omitempty"`
	CarSummary        string         `gorm:"size:255;not null" json:"car_summary"`
	Status            InquiryStatus  `gorm:"size:20;not null;default:'new';index:idx_inquiries_status" json:"status"`
	AssignedTo        *uint          `gorm:"index:idx_inquiries_assigned_to" json:"assigned_to,omitempty"`
	Remarks           string         `gorm:"type:text;not null;default:''" json:"remarks"`
	PrivateNotes      string         `gorm:"type:text;not null;default:''" json:"-"`
	IsSeriousCustomer bool           `gorm:"not null;default:false" json:"is_serious_customer"`
	CallPreference    CallPreference `gorm:"size:20;not null;default:'now'" json:"call_preference"`
	ScheduledCallTime *time.Time     `json:"scheduled_call_time,omitempty"`
	SubmittedAt       time.Time      `gorm:"not null;index:idx_inquiries_submitted_at" json:"submitted_at"`
	UpdatedAt         time.Time      `gorm:"not null" json:"updated_at"`
}

func (Inquiry) TableName() string {
	return "inquiries"
}

// BeforeCreate sets identifiers, initial status and timestamps
func (i *Inquiry) BeforeCreate(tx *gorm.DB) error {
	if i.UUID == uuid.Nil {
		i.UUID = uuid.New()
	}
	if i.Status == "" {
		i.Status = InquiryStatusNew
	}
	if i.CallPreference == "" {
		i.CallPreference = CallPreferenceNow
	}
	if i.SubmittedAt.IsZero() {
		i.SubmittedAt = utils.UTCNow()
	}
	if i.UpdatedAt.IsZero() {
		i.UpdatedAt = i.SubmittedAt
	}
	return nil
}

func (i *Inquiry) IsClosed() bool {
	return i.Status == InquiryStatusClosed
}

// IsAssignedTo reports whether the actor is the current assignee
func (i *Inquiry) IsAssignedTo(actorID uint) bool {
	return i.AssignedTo != nil && *i.AssignedTo == actorID
}

// InquiryFilter represents filter criteria for inquiry queries
type InquiryFilter struct {
	ID              *uint          `json:"id,omitempty"`
	UUID            *uuid.UUID     `json:"uuid,omitempty"`
	CarID           *uint          `json:"car_id,omitempty"`
	CustomerID      *uint          `json:"customer_id,omitempty"`
	Status          *InquiryStatus `json:"status,omitempty"`
	AssignedTo      *uint          `json:"assigned_to,omitempty"`
	IsSerious       *bool          `json:"is_serious,omitempty"`
	SubmittedAfter  *time.Time     `json:"submitted_after,omitempty"`
	SubmittedBefore *time.Time     `json:"submitted_before,omitempty"`
}
