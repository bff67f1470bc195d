package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/amirphl/Kuruma-no-Ichiba/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the role an actor holds in the back office
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleManager       Role = "manager"
	RoleContentEditor Role = "content-editor"
	RoleSalesAgent    Role = "sales-agent"
	RoleCustomer      Role = "customer"
)

func (r Role) String() string {
	return string(r)
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleContentEditor, RoleSalesAgent, RoleCustomer:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for Role
func (r *Role) Scan(value any) error {
	if value == nil {
		*r = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*r = Role(v)
	case []byte:
		*r = Role(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Role", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for Role
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid Role: %s", r)
	}
	return string(r), nil
}

// StaffUser is an actor account. Customers who log in are stored here as well.
type StaffUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_staff_users_uuid" json:"uuid"`
	Username     string    `gorm:"size:255;not null;uniqueIndex:uk_staff_users_username" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	DisplayName  string    `gorm:"size:255;not null;default:''" json:"display_name"`
	Role         Role      `gorm:"size:32;not null;index:idx_staff_users_role" json:"role"`

	IsActive    *bool      `gorm:"default:true;index:idx_staff_users_is_active" json:"is_active"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func (StaffUser) TableName() string {
	return "staff_users"
}

func (u *StaffUser) BeforeCreate(tx *gorm.DB) error {
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	if u.IsActive == nil {
		u.IsActive = utils.ToPtr(true)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = utils.UTCNow()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	return nil
}

func (u *StaffUser) Active() bool {
	return utils.IsTrue(u.IsActive)
}

// StaffUserFilter represents filter criteria for staff user queries
type StaffUserFilter struct {
	ID       *uint
	UUID     *uuid.UUID
	Username *string
	Role     *Role
	IsActive *bool
}
