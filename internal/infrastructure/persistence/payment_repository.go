package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/billing"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/propfolio/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by ID within a company
func (r *GormPaymentRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*billing.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ? AND company_id = ?", id, companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInvoice finds all payments linked to an invoice
func (r *GormPaymentRepository) FindByInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) ([]billing.Payment, error) {
	var paymentModels []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND invoice_id = ?", companyID, invoiceID).
		Order("payment_date ASC, created_at ASC").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	return toDomainPayments(paymentModels), nil
}

// FindPendingByInvoice finds pending payments linked to an invoice
func (r *GormPaymentRepository) FindPendingByInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) ([]billing.Payment, error) {
	var paymentModels []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND invoice_id = ? AND status = ?",
			companyID, invoiceID, billing.PaymentStatusPending).
		Order("payment_date ASC, created_at ASC").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	return toDomainPayments(paymentModels), nil
}

// FindPending finds pending payments matching the reconciliation filter.
// With references, a pending payment matches when any reference in the set
// equals its receipt number, reference number or transaction ID. Without
// references, every pending payment carrying any reference is returned.
func (r *GormPaymentRepository) FindPending(ctx context.Context, companyID uuid.UUID, references []string) ([]billing.Payment, error) {
	var paymentModels []models.PaymentModel
	query := r.db.WithContext(ctx).
		Where("company_id = ? AND status = ?", companyID, billing.PaymentStatusPending)

	if len(references) > 0 {
		query = query.Where(
			"(receipt_number IN ? OR reference_number IN ? OR transaction_id IN ?)",
			references, references, references,
		)
	} else {
		query = query.Where("(reference_number <> '' OR transaction_id <> '')")
	}

	if err := query.Order("payment_date ASC, created_at ASC").Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	return toDomainPayments(paymentModels), nil
}

// FindByProviderReference finds the payment carrying the reference as either
// transaction ID or receipt number
func (r *GormPaymentRepository) FindByProviderReference(ctx context.Context, companyID uuid.UUID, reference string) (*billing.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Where("(transaction_id = ? OR receipt_number = ?)", reference, reference).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// SumSettledByInvoice sums amounts of approved and completed payments for an invoice
func (r *GormPaymentRepository) SumSettledByInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("company_id = ? AND invoice_id = ? AND status IN ?",
			companyID, invoiceID,
			[]billing.PaymentStatus{billing.PaymentStatusApproved, billing.PaymentStatusCompleted}).
		Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// ExistingReceiptNumbers returns every receipt number issued for a company
func (r *GormPaymentRepository) ExistingReceiptNumbers(ctx context.Context, companyID uuid.UUID) ([]string, error) {
	var numbers []string
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("company_id = ?", companyID).
		Pluck("receipt_number", &numbers).Error; err != nil {
		return nil, err
	}
	return numbers, nil
}

// ReceiptNumberExists checks whether an exact receipt number is taken
func (r *GormPaymentRepository) ReceiptNumberExists(ctx context.Context, companyID uuid.UUID, receiptNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("company_id = ? AND receipt_number = ?", companyID, receiptNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a payment
func (r *GormPaymentRepository) Save(ctx context.Context, payment *billing.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking. Domain mutations advance the
// in-memory version, so the stored row must still carry a strictly older
// version than the aggregate being saved.
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, payment *billing.Payment) error {
	var currentVersion int
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("id = ?", payment.ID).
		Select("version").
		Scan(&currentVersion).Error; err != nil {
		return err
	}

	if currentVersion >= payment.Version {
		return shared.NewDomainError("CONCURRENT_MODIFICATION", "The payment has been modified by another user")
	}

	model := models.PaymentModelFromDomain(payment)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", payment.ID, currentVersion).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("CONCURRENT_MODIFICATION", "The payment has been modified by another user")
	}
	return nil
}

// DeletePendingPlaceholders deletes internally generated pending placeholder
// payments for an invoice. The placeholder check runs in Go: the token shape
// is a domain rule and SQL regex support varies per driver.
func (r *GormPaymentRepository) DeletePendingPlaceholders(ctx context.Context, companyID, invoiceID uuid.UUID) (int64, error) {
	var paymentModels []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND invoice_id = ? AND status = ?",
			companyID, invoiceID, billing.PaymentStatusPending).
		Find(&paymentModels).Error; err != nil {
		return 0, err
	}

	ids := make([]uuid.UUID, 0, len(paymentModels))
	for _, model := range paymentModels {
		if billing.IsPlaceholderReference(model.ReceiptNumber) {
			ids = append(ids, model.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&models.PaymentModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Count counts payments for a company
func (r *GormPaymentRepository) Count(ctx context.Context, companyID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("company_id = ?", companyID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func toDomainPayments(paymentModels []models.PaymentModel) []billing.Payment {
	payments := make([]billing.Payment, len(paymentModels))
	for i, model := range paymentModels {
		payments[i] = *model.ToDomain()
	}
	return payments
}

// Ensure GormPaymentRepository implements the interface
var _ billing.PaymentRepository = (*GormPaymentRepository)(nil)
