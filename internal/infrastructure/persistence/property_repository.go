package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/rentals"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/propfolio/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPropertyRepository implements PropertyRepository using GORM
type GormPropertyRepository struct {
	db *gorm.DB
}

// NewGormPropertyRepository creates a new GormPropertyRepository
func NewGormPropertyRepository(db *gorm.DB) *GormPropertyRepository {
	return &GormPropertyRepository{db: db}
}

// FindByID finds a property by ID within a company
func (r *GormPropertyRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*rentals.Property, error) {
	var model models.PropertyModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ? AND company_id = ?", id, companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode finds a property by its document-number code within a company
func (r *GormPropertyRepository) FindByCode(ctx context.Context, companyID uuid.UUID, code string) (*rentals.Property, error) {
	var model models.PropertyModel
	if err := r.db.WithContext(ctx).
		First(&model, "code = ? AND company_id = ?", code, companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all properties for a company
func (r *GormPropertyRepository) FindAll(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]rentals.Property, error) {
	var propertyModels []models.PropertyModel
	query := r.db.WithContext(ctx).Where("company_id = ?", companyID)
	query = applySort(query, filter, PropertySortFields, "name")
	query = applyFilter(query, filter)
	if err := query.Find(&propertyModels).Error; err != nil {
		return nil, err
	}
	properties := make([]rentals.Property, len(propertyModels))
	for i, model := range propertyModels {
		properties[i] = *model.ToDomain()
	}
	return properties, nil
}

// ExistsByCode checks whether a property code is already taken in a company
func (r *GormPropertyRepository) ExistsByCode(ctx context.Context, companyID uuid.UUID, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PropertyModel{}).
		Where("company_id = ? AND code = ?", companyID, code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a property
func (r *GormPropertyRepository) Save(ctx context.Context, property *rentals.Property) error {
	model := models.PropertyModelFromDomain(property)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking. Domain mutations advance the
// in-memory version, so the stored row must still carry a strictly older
// version than the aggregate being saved.
func (r *GormPropertyRepository) SaveWithLock(ctx context.Context, property *rentals.Property) error {
	var currentVersion int
	if err := r.db.WithContext(ctx).
		Model(&models.PropertyModel{}).
		Where("id = ?", property.ID).
		Select("version").
		Scan(&currentVersion).Error; err != nil {
		return err
	}

	if currentVersion >= property.Version {
		return shared.NewDomainError("CONCURRENT_MODIFICATION", "The property has been modified by another user")
	}

	model := models.PropertyModelFromDomain(property)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", property.ID, currentVersion).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("CONCURRENT_MODIFICATION", "The property has been modified by another user")
	}
	return nil
}

// Delete deletes a property for a company
func (r *GormPropertyRepository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.PropertyModel{}, "id = ? AND company_id = ?", id, companyID).Error
}

// Count counts properties for a company
func (r *GormPropertyRepository) Count(ctx context.Context, companyID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PropertyModel{}).
		Where("company_id = ?", companyID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormPropertyRepository implements the interface
var _ rentals.PropertyRepository = (*GormPropertyRepository)(nil)
