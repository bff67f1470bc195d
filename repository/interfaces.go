package repository

import (
	"context"
	"errors"

	"github.com/amirphl/Kuruma-no-Ichiba/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

// ErrStaleVersion is returned when a compare-and-swap write finds a different stored version
var ErrStaleVersion = errors.New("stored version changed")

// Repository defines the common operations shared by every entity repository
type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// CarRepository defines operations for car listings
type CarRepository interface {
	Repository[models.Car, models.CarFilter]
	Update(ctx context.Context, car *models.Car) error
	UpdateStatus(ctx context.Context, id uint, status models.CarStatus) error
	DeleteByID(ctx context.Context, id uint) (bool, error)
	ListApproved(ctx context.Context) ([]*models.Car, error)
}

// InquiryRepository defines operations for purchase inquiries
type InquiryRepository interface {
	Repository[models.Inquiry, models.InquiryFilter]
	Update(ctx context.Context, inquiry *models.Inquiry) error
	UpdatePrivateNotes(ctx context.Context, id uint, notes string) (bool, error)
	DeleteByID(ctx context.Context, id uint) (bool, error)
	DeleteByCarID(ctx context.Context, carID uint) (int64, error)
}

// FilterCatalogRepository defines operations on the single versioned catalog document
type FilterCatalogRepository interface {
	Current(ctx context.Context) (*models.FilterCatalog, error)
	CompareAndSwap(ctx context.Context, expectedVersion int64, doc models.CatalogDocument, updatedBy *uint) (*models.FilterCatalog, error)
}

// StaffUserRepository defines operations for actor accounts
type StaffUserRepository interface {
	Repository[models.StaffUser, models.StaffUserFilter]
	ByUsername(ctx context.Context, username string) (*models.StaffUser, error)
	UpdateLastLogin(ctx context.Context, id uint) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByEntity(ctx context.Context, entityType string, entityID uint, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
