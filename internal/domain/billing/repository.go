package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceRepository defines the interface for invoice persistence.
// ExistingNumbers and NumberExists back the invoice number series.
type InvoiceRepository interface {
	// FindByID finds an invoice by ID within a company
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*Invoice, error)

	// FindByNumber finds an invoice by its number within a company
	FindByNumber(ctx context.Context, companyID uuid.UUID, number string) (*Invoice, error)

	// FindAll finds all invoices for a company
	FindAll(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]Invoice, error)

	// FindByStatus finds invoices by status for a company
	FindByStatus(ctx context.Context, companyID uuid.UUID, status InvoiceStatus, filter shared.Filter) ([]Invoice, error)

	// FindOverdueCandidates finds sent invoices whose due date precedes asOf
	FindOverdueCandidates(ctx context.Context, asOf time.Time) ([]Invoice, error)

	// FindWithPayments finds invoices that have at least one payment
	FindWithPayments(ctx context.Context, companyID uuid.UUID) ([]Invoice, error)

	// ExistingNumbers returns every invoice number issued for a company
	ExistingNumbers(ctx context.Context, companyID uuid.UUID) ([]string, error)

	// NumberExists checks whether an exact invoice number is already taken
	NumberExists(ctx context.Context, companyID uuid.UUID, number string) (bool, error)

	// Save creates or updates an invoice
	Save(ctx context.Context, invoice *Invoice) error

	// SaveWithLock saves an invoice with optimistic locking (version check)
	SaveWithLock(ctx context.Context, invoice *Invoice) error

	// Count counts invoices for a company
	Count(ctx context.Context, companyID uuid.UUID) (int64, error)
}

// PaymentRepository defines the interface for payment persistence.
// ExistingReceiptNumbers and ReceiptNumberExists back the receipt series.
type PaymentRepository interface {
	// FindByID finds a payment by ID within a company
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*Payment, error)

	// FindByInvoice finds all payments linked to an invoice
	FindByInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) ([]Payment, error)

	// FindPendingByInvoice finds pending payments linked to an invoice
	FindPendingByInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) ([]Payment, error)

	// FindPending finds pending payments matching the reconciliation filter:
	// an explicit reference list, or all with any reference present
	FindPending(ctx context.Context, companyID uuid.UUID, references []string) ([]Payment, error)

	// FindByProviderReference finds the payment carrying the reference as
	// either transaction ID or receipt number
	FindByProviderReference(ctx context.Context, companyID uuid.UUID, reference string) (*Payment, error)

	// SumSettledByInvoice sums amounts of approved and completed payments
	// for an invoice
	SumSettledByInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) (decimal.Decimal, error)

	// ExistingReceiptNumbers returns every receipt number issued for a company
	ExistingReceiptNumbers(ctx context.Context, companyID uuid.UUID) ([]string, error)

	// ReceiptNumberExists checks whether an exact receipt number is taken
	ReceiptNumberExists(ctx context.Context, companyID uuid.UUID, receiptNumber string) (bool, error)

	// Save creates or updates a payment
	Save(ctx context.Context, payment *Payment) error

	// SaveWithLock saves a payment with optimistic locking (version check)
	SaveWithLock(ctx context.Context, payment *Payment) error

	// DeletePendingPlaceholders deletes internally-generated pending
	// placeholder payments for an invoice. Only valid inside the external
	// ingestion transaction, where the placeholder is replaced in the same
	// unit of work.
	DeletePendingPlaceholders(ctx context.Context, companyID, invoiceID uuid.UUID) (int64, error)

	// Count counts payments for a company
	Count(ctx context.Context, companyID uuid.UUID) (int64, error)
}
