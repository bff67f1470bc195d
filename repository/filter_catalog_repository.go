package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/Kuruma-no-Ichiba/models"
	"github.com/amirphl/Kuruma-no-Ichiba/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FilterCatalogRepositoryImpl implements FilterCatalogRepository interface
type FilterCatalogRepositoryImpl struct {
	*BaseRepository[models.FilterCatalog, struct{}]
}

// NewFilterCatalogRepository creates a new filter catalog repository
func NewFilterCatalogRepository(db *gorm.DB) FilterCatalogRepository {
	return &FilterCatalogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.FilterCatalog, struct{}](db),
	}
}

// Current returns the stored catalog, or nil when it was never written
func (r *FilterCatalogRepositoryImpl) Current(ctx context.Context) (*models.FilterCatalog, error) {
	db := r.getDB(ctx)

	var row models.FilterCatalog
	err := db.Where("id = ?", models.FilterCatalogID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load filter catalog: %w", err)
	}

	return &row, nil
}

// CompareAndSwap replaces the document only if the stored version equals expectedVersion.
// Version 0 means "never written" and inserts the first row.
// Returns ErrStaleVersion when the stored version moved on.
func (r *FilterCatalogRepositoryImpl) CompareAndSwap(
	ctx context.Context,
	expectedVersion int64,
	doc models.CatalogDocument,
	updatedBy *uint,
) (out *models.FilterCatalog, err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { err = finish(db, shouldCommit, err) }()

	now := utils.UTCNow()
	next := &models.FilterCatalog{
		ID:        models.FilterCatalogID,
		Version:   expectedVersion + 1,
		Document:  doc,
		UpdatedBy: updatedBy,
		UpdatedAt: now,
	}

	if expectedVersion == 0 {
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(next)
		if res.Error != nil {
			return nil, fmt.Errorf("failed to insert filter catalog: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, ErrStaleVersion
		}
		return next, nil
	}

	res := db.Model(&models.FilterCatalog{}).
		Where("id = ? AND version = ?", models.FilterCatalogID, expectedVersion).
		Updates(map[string]any{
			"version":    next.Version,
			"document":   doc,
			"updated_by": updatedBy,
			"updated_at": now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update filter catalog: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrStaleVersion
	}

	return next, nil
}
