package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/Kuruma-no-Ichiba/models"
	"github.com/amirphl/Kuruma-no-Ichiba/utils"
	"gorm.io/gorm"
)

// CarRepositoryImpl implements CarRepository interface
type CarRepositoryImpl struct {
	*BaseRepository[models.Car, models.CarFilter]
}

// NewCarRepository creates a new car repository
func NewCarRepository(db *gorm.DB) CarRepository {
	return &CarRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Car, models.CarFilter](db),
	}
}

// Update writes the whole listing and bumps updated_at
func (r *CarRepositoryImpl) Update(ctx context.Context, car *models.Car) error {
	car.UpdatedAt = utils.UTCNow()
	return r.BaseRepository.Update(ctx, car)
}

// UpdateStatus updates only the status of a listing
func (r *CarRepositoryImpl) UpdateStatus(ctx context.Context, id uint, status models.CarStatus) (err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	defer func() { err = finish(db, shouldCommit, err) }()

	err = db.Model(&models.Car{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": utils.UTCNow(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update car status: %w", err)
	}

	return nil
}

// ListApproved returns every publicly visible listing
func (r *CarRepositoryImpl) ListApproved(ctx context.Context) ([]*models.Car, error) {
	status := models.CarStatusApproved
	return r.ByFilter(ctx, models.CarFilter{Status: &status}, "created_at DESC, id DESC", 0, 0)
}

// applyFilter applies filter criteria to a GORM query
func (r *CarRepositoryImpl) applyFilter(query *gorm.DB, filter models.CarFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Brand != nil {
		query = query.Where("brand = ?", *filter.Brand)
	}
	if filter.Model != nil {
		query = query.Where("model = ?", *filter.Model)
	}
	if filter.Year != nil {
		query = query.Where("year = ?", *filter.Year)
	}
	if filter.SubmittedBy != nil {
		query = query.Where("submitted_by = ?", *filter.SubmittedBy)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves cars based on filter criteria
func (r *CarRepositoryImpl) ByFilter(ctx context.Context, filter models.CarFilter, orderBy string, limit, offset int) ([]*models.Car, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Car{}), filter)
	query = paginate(query, orderBy, limit, offset)

	var cars []*models.Car
	if err := query.Find(&cars).Error; err != nil {
		return nil, fmt.Errorf("failed to find cars by filter: %w", err)
	}

	return cars, nil
}

// Count returns the number of cars matching the filter
func (r *CarRepositoryImpl) Count(ctx context.Context, filter models.CarFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Car{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count cars: %w", err)
	}

	return count, nil
}

// Exists checks if any car matching the filter exists
func (r *CarRepositoryImpl) Exists(ctx context.Context, filter models.CarFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
