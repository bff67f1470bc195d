// Package models contains domain entities for the marketplace back office
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/amirphl/Kuruma-no-Ichiba/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CarStatus represents the review status of a listing
type CarStatus string

const (
	CarStatusPending  CarStatus = "pending"
	CarStatusApproved CarStatus = "approved"
	CarStatusRejected CarStatus = "rejected"
)

func (s CarStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CarStatus) Valid() bool {
	switch s {
	case CarStatusPending, CarStatusApproved, CarStatusRejected:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CarStatus
func (s *CarStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CarStatus(v)
	case []byte:
		*s = CarStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CarStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CarStatus
func (s CarStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CarStatus: %s", s)
	}
	return string(s), nil
}

// FuelType is the propulsion of a car
type FuelType string

const (
	FuelTypePetrol   FuelType = "Petrol"
	FuelTypeDiesel   FuelType = "Diesel"
	FuelTypeElectric FuelType = "Electric"
)

func (f FuelType) Valid() bool {
	switch f {
	case FuelTypePetrol, FuelTypeDiesel, FuelTypeElectric:
		return true
	default:
		return false
	}
}

// TransmissionType is the gearbox of a car
type TransmissionType string

const (
	TransmissionAutomatic TransmissionType = "Automatic"
	TransmissionManual    TransmissionType = "Manual"
)

func (t TransmissionType) Valid() bool {
	return t == TransmissionAutomatic || t == TransmissionManual
}

// CarBadge is a merchandising marker shown on a listing card
type CarBadge string

const (
	CarBadgeNew       CarBadge = "new"
	CarBadgeFeatured  CarBadge = "featured"
	CarBadgePriceDrop CarBadge = "price_drop"
)

func (b CarBadge) Valid() bool {
	switch b {
	case CarBadgeNew, CarBadgeFeatured, CarBadgePriceDrop:
		return true
	default:
		return false
	}
}

// StringList is an ordered list of strings persisted as a JSON array
type StringList []string

// Value implements the driver.Valuer interface for StringList
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for StringList
func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = StringList{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}

	var out []string
	if err := json.Unmarshal(bytes, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

// BadgeSet is a set of badges persisted as a sorted JSON array
type BadgeSet []CarBadge

// Normalize removes duplicates and sorts the set
func (s BadgeSet) Normalize() BadgeSet {
	out := make(BadgeSet, 0, len(s))
	for _, b := range s {
		if !slices.Contains(out, b) {
			out = append(out, b)
		}
	}
	slices.Sort(out)
	return out
}

// Has reports whether the badge is in the set
func (s BadgeSet) Has(b CarBadge) bool {
	return slices.Contains(s, b)
}

// Value implements the driver.Valuer interface for BadgeSet
func (s BadgeSet) Value() (driver.Value, error) {
	b, err := json.Marshal(s.Normalize())
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for BadgeSet
func (s *BadgeSet) Scan(value any) error {
	if value == nil {
		*s = BadgeSet{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into BadgeSet", value)
	}

	var out BadgeSet
	if err := json.Unmarshal(bytes, &out); err != nil {
		return err
	}
	*s = out
	return nil
}

// Car is a vehicle listing
type Car struct {
	ID                uint             `gorm:"primaryKey" json:"id"`
	UUID              uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uk_cars_uuid" json:"uuid"`
	Brand             string           `gorm:"size:100;not null;index:idx_cars_brand_model,priority:1" json:"brand"`
	Model             string           `gorm:"size:100;not null;index:idx_cars_brand_model,priority:2" json:"model"`
	Year              int              `gorm:"not null;index:idx_cars_year" json:"year"`
	RegistrationYear  *int             `json:"registration_year,omitempty"`
	Price             int64            `gorm:"not null" json:"price"`
	KmRun             int64            `gorm:"not null" json:"km_run"`
	Fuel              FuelType         `gorm:"size:20;not null" json:"fuel"`
	Transmission      TransmissionType `gorm:"size:20;not null" json:"transmission"`
	Ownership         int              `gorm:"not null;default:1" json:"ownership"`
	Color             string           `gorm:"size:50;not null" json:"color"`
	EngineCC          int              `gorm:"not null" json:"engine_cc"`
	AdditionalDetails *string          `gorm:"type:text" json:"additional_details,omitempty"`
	Images            StringList       `gorm:"type:jsonb;not null" json:"images"`
	Badges            BadgeSet         `gorm:"type:jsonb;not null" json:"badges"`
	InstagramReelURL  *string          `gorm:"size:512" json:"instagram_reel_url,omitempty"`
	Status            CarStatus        `gorm:"size:20;not null;default:'pending';index:idx_cars_status" json:"status"`
	SubmittedBy       uint             `gorm:"not null;index:idx_cars_submitted_by" json:"submitted_by"`
	CreatedAt         time.Time        `gorm:"not null;index:idx_cars_created_at" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"not null" json:"updated_at"`
}

func (Car) TableName() string {
	return "cars"
}

// BeforeCreate sets identifiers, initial status and timestamps
func (c *Car) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CarStatusPending
	}
	if c.Images == nil {
		c.Images = StringList{}
	}
	if c.Badges == nil {
		c.Badges = BadgeSet{}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	return nil
}

// Summary is the "brand model year" label frozen into inquiries
func (c *Car) Summary() string {
	return c.Brand + " " + c.Model + " " + strconv.Itoa(c.Year)
}

// SearchText is the haystack used by free text search
func (c *Car) SearchText() string {
	return c.Summary() + " " + c.Color
}

// IsVisible reports whether the listing may be shown to the public
func (c *Car) IsVisible() bool {
	return c.Status == CarStatusApproved
}

// CanTransitionTo checks if a review transition to the given status is allowed
func (c *Car) CanTransitionTo(newStatus CarStatus) bool {
	if c.Status != CarStatusPending {
		return false
	}
	return newStatus == CarStatusApproved || newStatus == CarStatusRejected
}

// CarFilter represents filter criteria for car queries
type CarFilter struct {
	ID            *uint      `json:"id,omitempty"`
	UUID          *uuid.UUID `json:"uuid,omitempty"`
	Status        *CarStatus `json:"status,omitempty"`
	Brand         *string    `json:"brand,omitempty"`
	Model         *string    `json:"model,omitempty"`
	Year          *int       `json:"year,omitempty"`
	SubmittedBy   *uint      `json:"submitted_by,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
