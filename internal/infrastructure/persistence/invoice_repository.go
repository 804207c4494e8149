package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/billing"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/propfolio/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by ID within a company
func (r *GormInvoiceRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ? AND company_id = ?", id, companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds an invoice by its number within a company
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, companyID uuid.UUID, number string) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		First(&model, "number = ? AND company_id = ?", number, companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all invoices for a company
func (r *GormInvoiceRepository) FindAll(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	query := r.db.WithContext(ctx).Where("company_id = ?", companyID)
	query = applySort(query, filter, InvoiceSortFields, "issue_date")
	query = applyFilter(query, filter)
	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	invoices := make([]billing.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices, nil
}

// FindByStatus finds invoices by status for a company
func (r *GormInvoiceRepository) FindByStatus(ctx context.Context, companyID uuid.UUID, status billing.InvoiceStatus, filter shared.Filter) ([]billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	query := r.db.WithContext(ctx).
		Where("company_id = ? AND status = ?", companyID, status)
	query = applySort(query, filter, InvoiceSortFields, "issue_date")
	query = applyFilter(query, filter)
	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	invoices := make([]billing.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices, nil
}

// FindOverdueCandidates finds sent invoices whose due date precedes asOf,
// across all companies. Used by the overdue sweep.
func (r *GormInvoiceRepository) FindOverdueCandidates(ctx context.Context, asOf time.Time) ([]billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND due_date < ?", billing.InvoiceStatusSent, asOf).
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	invoices := make([]billing.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices, nil
}

// FindWithPayments finds invoices that have at least one payment
func (r *GormInvoiceRepository) FindWithPayments(ctx context.Context, companyID uuid.UUID) ([]billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND id IN (?)", companyID,
			r.db.Model(&models.PaymentModel{}).
				Select("invoice_id").
				Where("company_id = ? AND invoice_id IS NOT NULL", companyID)).
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	invoices := make([]billing.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices, nil
}

// ExistingNumbers returns every invoice number issued for a company
func (r *GormInvoiceRepository) ExistingNumbers(ctx context.Context, companyID uuid.UUID) ([]string, error) {
	var numbers []string
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("company_id = ?", companyID).
		Pluck("number", &numbers).Error; err != nil {
		return nil, err
	}
	return numbers, nil
}

// NumberExists checks whether an exact invoice number is already taken
func (r *GormInvoiceRepository) NumberExists(ctx context.Context, companyID uuid.UUID, number string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("company_id = ? AND number = ?", companyID, number).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates an invoice
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking. Domain mutations advance the
// in-memory version, so the stored row must still carry a strictly older
// version than the aggregate being saved.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	var currentVersion int
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ?", invoice.ID).
		Select("version").
		Scan(&currentVersion).Error; err != nil {
		return err
	}

	if currentVersion >= invoice.Version {
		return shared.NewDomainError("CONCURRENT_MODIFICATION", "The invoice has been modified by another user")
	}

	model := models.InvoiceModelFromDomain(invoice)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", invoice.ID, currentVersion).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("CONCURRENT_MODIFICATION", "The invoice has been modified by another user")
	}
	return nil
}

// Count counts invoices for a company
func (r *GormInvoiceRepository) Count(ctx context.Context, companyID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("company_id = ?", companyID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies pagination from a shared filter to a query
func applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if filter.Page > 0 {
			query = query.Offset((filter.Page - 1) * filter.PageSize)
		}
	}
	return query
}

// Ensure GormInvoiceRepository implements the interface
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
