package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/Kuruma-no-Ichiba/models"
	"github.com/amirphl/Kuruma-no-Ichiba/utils"
	"gorm.io/gorm"
)

// InquiryRepositoryImpl implements InquiryRepository interface
type InquiryRepositoryImpl struct {
	*BaseRepository[models.Inquiry, models.InquiryFilter]
}

// NewInquiryRepository creates a new inquiry repository
func NewInquiryRepository(db *gorm.DB) InquiryRepository {
	return &InquiryRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Inquiry, models.InquiryFilter](db),
	}
}

// Update writes the whole inquiry and bumps updated_at
func (r *InquiryRepositoryImpl) Update(ctx context.Context, inquiry *models.Inquiry) error {
	inquiry.UpdatedAt = utils.UTCNow()
	return r.BaseRepository.Update(ctx, inquiry)
}

// UpdatePrivateNotes writes only the notes column so a concurrent status change is never overwritten
func (r *InquiryRepositoryImpl) UpdatePrivateNotes(ctx context.Context, id uint, notes string) (updated bool, err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return false, err
	}
	defer func() { err = finish(db, shouldCommit, err) }()

	res := db.Model(&models.Inquiry{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"private_notes": notes,
			"updated_at":    utils.UTCNow(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to update notes of inquiry %d: %w", id, res.Error)
	}

	return res.RowsAffected > 0, nil
}

// DeleteByCarID removes every inquiry that references the car
func (r *InquiryRepositoryImpl) DeleteByCarID(ctx context.Context, carID uint) (n int64, err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { err = finish(db, shouldCommit, err) }()

	res := db.Where("car_id = ?", carID).Delete(&models.Inquiry{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete inquiries of car %d: %w", carID, res.Error)
	}

	return res.RowsAffected, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *InquiryRepositoryImpl) applyFilter(query *gorm.DB, filter models.InquiryFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.CarID != nil {
		query = query.Where("car_id = ?", *filter.CarID)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.AssignedTo != nil {
		query = query.Where("assigned_to = ?", *filter.AssignedTo)
	}
	if filter.IsSerious != nil {
		query = query.Where("is_serious_customer = ?", *filter.IsSerious)
	}
	if filter.SubmittedAfter != nil {
		query = query.Where("submitted_at > ?", *filter.SubmittedAfter)
	}
	if filter.SubmittedBefore != nil {
		query = query.Where("submitted_at < ?", *filter.SubmittedBefore)
	}
	return query
}

// ByFilter retrieves inquiries based on filter criteria
func (r *InquiryRepositoryImpl) ByFilter(ctx context.Context, filter models.InquiryFilter, orderBy string, limit, offset int) ([]*models.Inquiry, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Inquiry{}), filter)
	query = paginate(query, orderBy, limit, offset)

	var inquiries []*models.Inquiry
	if err := query.Find(&inquiries).Error; err != nil {
		return nil, fmt.Errorf("failed to find inquiries by filter: %w", err)
	}

	return inquiries, nil
}

// Count returns the number of inquiries matching the filter
func (r *InquiryRepositoryImpl) Count(ctx context.Context, filter models.InquiryFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Inquiry{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count inquiries: %w", err)
	}

	return count, nil
}

// Exists checks if any inquiry matching the filter exists
func (r *InquiryRepositoryImpl) Exists(ctx context.Context, filter models.InquiryFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
