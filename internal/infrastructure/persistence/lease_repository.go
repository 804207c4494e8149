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

// GormLeaseRepository implements LeaseRepository using GORM
type GormLeaseRepository struct {
	db *gorm.DB
}

// NewGormLeaseRepository creates a new GormLeaseRepository
func NewGormLeaseRepository(db *gorm.DB) *GormLeaseRepository {
	return &GormLeaseRepository{db: db}
}

// FindByID finds a lease by ID within a company
func (r *GormLeaseRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*rentals.Lease, error) {
	var model models.LeaseModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ? AND company_id = ?", id, companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds a lease by its number within a company
func (r *GormLeaseRepository) FindByNumber(ctx context.Context, companyID uuid.UUID, number string) (*rentals.Lease, error) {
	var model models.LeaseModel
	if err := r.db.WithContext(ctx).
		First(&model, "number = ? AND company_id = ?", number, companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all leases for a company
func (r *GormLeaseRepository) FindAll(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]rentals.Lease, error) {
	var leaseModels []models.LeaseModel
	query := r.db.WithContext(ctx).Where("company_id = ?", companyID)
	query = applySort(query, filter, LeaseSortFields, "start_date")
	query = applyFilter(query, filter)
	if err := query.Find(&leaseModels).Error; err != nil {
		return nil, err
	}
	return toDomainLeases(leaseModels), nil
}

// FindByProperty finds leases linked to a property
func (r *GormLeaseRepository) FindByProperty(ctx context.Context, companyID, propertyID uuid.UUID, filter shared.Filter) ([]rentals.Lease, error) {
	var leaseModels []models.LeaseModel
	query := r.db.WithContext(ctx).
		Where("company_id = ? AND property_id = ?", companyID, propertyID)
	query = applySort(query, filter, LeaseSortFields, "start_date")
	query = applyFilter(query, filter)
	if err := query.Find(&leaseModels).Error; err != nil {
		return nil, err
	}
	return toDomainLeases(leaseModels), nil
}

// FindByStatus finds leases by status for a company
func (r *GormLeaseRepository) FindByStatus(ctx context.Context, companyID uuid.UUID, status rentals.LeaseStatus, filter shared.Filter) ([]rentals.Lease, error) {
	var leaseModels []models.LeaseModel
	query := r.db.WithContext(ctx).
		Where("company_id = ? AND status = ?", companyID, status)
	query = applySort(query, filter, LeaseSortFields, "start_date")
	query = applyFilter(query, filter)
	if err := query.Find(&leaseModels).Error; err != nil {
		return nil, err
	}
	return toDomainLeases(leaseModels), nil
}

// ExistingNumbers returns every lease number issued for a company
func (r *GormLeaseRepository) ExistingNumbers(ctx context.Context, companyID uuid.UUID) ([]string, error) {
	var numbers []string
	if err := r.db.WithContext(ctx).
		Model(&models.LeaseModel{}).
		Where("company_id = ?", companyID).
		Pluck("number", &numbers).Error; err != nil {
		return nil, err
	}
	return numbers, nil
}

// NumberExists checks whether an exact lease number is already taken
func (r *GormLeaseRepository) NumberExists(ctx context.Context, companyID uuid.UUID, number string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.LeaseModel{}).
		Where("company_id = ? AND number = ?", companyID, number).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a lease
func (r *GormLeaseRepository) Save(ctx context.Context, lease *rentals.Lease) error {
	model := models.LeaseModelFromDomain(lease)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking. Domain mutations advance the
// in-memory version, so the stored row must still carry a strictly older
// version than the aggregate being saved.
func (r *GormLeaseRepository) SaveWithLock(ctx context.Context, lease *rentals.Lease) error {
	var currentVersion int
	if err := r.db.WithContext(ctx).
		Model(&models.LeaseModel{}).
		Where("id = ?", lease.ID).
		Select("version").
		Scan(&currentVersion).Error; err != nil {
		return err
	}

	if currentVersion >= lease.Version {
		return shared.NewDomainError("CONCURRENT_MODIFICATION", "The lease has been modified by another user")
	}

	model := models.LeaseModelFromDomain(lease)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", lease.ID, currentVersion).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("CONCURRENT_MODIFICATION", "The lease has been modified by another user")
	}
	return nil
}

// Delete deletes a lease for a company
func (r *GormLeaseRepository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.LeaseModel{}, "id = ? AND company_id = ?", id, companyID).Error
}

// Count counts leases for a company
func (r *GormLeaseRepository) Count(ctx context.Context, companyID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.LeaseModel{}).
		Where("company_id = ?", companyID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func toDomainLeases(leaseModels []models.LeaseModel) []rentals.Lease {
	leases := make([]rentals.Lease, len(leaseModels))
	for i, model := range leaseModels {
		leases[i] = *model.ToDomain()
	}
	return leases
}

// Ensure GormLeaseRepository implements the interface
var _ rentals.LeaseRepository = (*GormLeaseRepository)(nil)
