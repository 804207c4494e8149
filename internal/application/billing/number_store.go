package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/billing"
	"github.com/propfolio/backend/internal/domain/numbering"
	"github.com/propfolio/backend/internal/domain/shared"
)

// invoiceNumberStore adapts the invoice repository to the allocator's
// NumberStore port for the invoice series.
type invoiceNumberStore struct {
	repo billing.InvoiceRepository
}

// NewInvoiceNumberStore wraps an invoice repository as a NumberStore
func NewInvoiceNumberStore(repo billing.InvoiceRepository) numbering.NumberStore {
	return &invoiceNumberStore{repo: repo}
}

func (s *invoiceNumberStore) ExistingNumbers(ctx context.Context, companyID uuid.UUID, kind numbering.DocumentKind) ([]string, error) {
	if kind != numbering.KindInvoice {
		return nil, shared.NewDomainError("INVALID_KIND", "Invoice store only serves the invoice series")
	}
	return s.repo.ExistingNumbers(ctx, companyID)
}

func (s *invoiceNumberStore) NumberExists(ctx context.Context, companyID uuid.UUID, kind numbering.DocumentKind, number string) (bool, error) {
	if kind != numbering.KindInvoice {
		return false, shared.NewDomainError("INVALID_KIND", "Invoice store only serves the invoice series")
	}
	return s.repo.NumberExists(ctx, companyID, number)
}

// receiptNumberStore adapts the payment repository to the allocator's
// NumberStore port for the receipt series.
type receiptNumberStore struct {
	repo billing.PaymentRepository
}

// NewReceiptNumberStore wraps a payment repository as a NumberStore
func NewReceiptNumberStore(repo billing.PaymentRepository) numbering.NumberStore {
	return &receiptNumberStore{repo: repo}
}

func (s *receiptNumberStore) ExistingNumbers(ctx context.Context, companyID uuid.UUID, kind numbering.DocumentKind) ([]string, error) {
	if kind != numbering.KindReceipt {
		return nil, shared.NewDomainError("INVALID_KIND", "Receipt store only serves the receipt series")
	}
	return s.repo.ExistingReceiptNumbers(ctx, companyID)
}

func (s *receiptNumberStore) NumberExists(ctx context.Context, companyID uuid.UUID, kind numbering.DocumentKind, number string) (bool, error) {
	if kind != numbering.KindReceipt {
		return false, shared.NewDomainError("INVALID_KIND", "Receipt store only serves the receipt series")
	}
	return s.repo.ReceiptNumberExists(ctx, companyID, number)
}
