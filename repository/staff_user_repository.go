package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/Kuruma-no-Ichiba/models"
	"github.com/amirphl/Kuruma-no-Ichiba/utils"
	"gorm.io/gorm"
)

// StaffUserRepositoryImpl implements StaffUserRepository interface
type StaffUserRepositoryImpl struct {
	*BaseRepository[models.StaffUser, models.StaffUserFilter]
}

// NewStaffUserRepository creates a new staff user repository
func NewStaffUserRepository(db *gorm.DB) StaffUserRepository {
	return &StaffUserRepositoryImpl{
		BaseRepository: NewBaseRepository[models.StaffUser, models.StaffUserFilter](db),
	}
}

// ByUsername retrieves a user by username
func (r *StaffUserRepositoryImpl) ByUsername(ctx context.Context, username string) (*models.StaffUser, error) {
	filter := models.StaffUserFilter{Username: &username}
	users, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}

	if len(users) == 0 {
		return nil, nil
	}

	return users[0], nil
}

// UpdateLastLogin stamps the last successful login
func (r *StaffUserRepositoryImpl) UpdateLastLogin(ctx context.Context, id uint) error {
	db := r.getDB(ctx)
	now := utils.UTCNow()
	return db.Model(&models.StaffUser{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_login_at": now,
			"updated_at":    now,
		}).Error
}

// applyFilter applies filter criteria to a GORM query
func (r *StaffUserRepositoryImpl) applyFilter(query *gorm.DB, filter models.StaffUserFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.Username != nil {
		query = query.Where("username = ?", *filter.Username)
	}
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	return query
}

// ByFilter retrieves users based on filter criteria
func (r *StaffUserRepositoryImpl) ByFilter(ctx context.Context, filter models.StaffUserFilter, orderBy string, limit, offset int) ([]*models.StaffUser, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.StaffUser{}), filter)
	query = paginate(query, orderBy, limit, offset)

	var users []*models.StaffUser
	if err := query.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to find staff users by filter: %w", err)
	}

	return users, nil
}

// Count returns the number of users matching the filter
func (r *StaffUserRepositoryImpl) Count(ctx context.Context, filter models.StaffUserFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.StaffUser{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count staff users: %w", err)
	}

	return count, nil
}

// Exists checks if any user matching the filter exists
func (r *StaffUserRepositoryImpl) Exists(ctx context.Context, filter models.StaffUserFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
