package billing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/billing"
	"github.com/propfolio/backend/internal/domain/rentals"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// In-memory repository fakes with database copy semantics: loads return
// copies, so mutations only become visible after a save.

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]billing.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[uuid.UUID]billing.Payment)}
}

func (r *fakePaymentRepo) FindByID(_ context.Context, companyID, id uuid.UUID) (*billing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (r *fakePaymentRepo) FindByInvoice(_ context.Context, companyID, invoiceID uuid.UUID) ([]billing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []billing.Payment
	for _, p := range r.payments {
		if p.CompanyID == companyID && p.InvoiceID != nil && *p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) FindPendingByInvoice(_ context.Context, companyID, invoiceID uuid.UUID) ([]billing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []billing.Payment
	for _, p := range r.payments {
		if p.CompanyID == companyID && p.IsPending() && p.InvoiceID != nil && *p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) FindPending(_ context.Context, companyID uuid.UUID, references []string) ([]billing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	refSet := make(map[string]bool, len(references))
	for _, ref := range references {
		refSet[ref] = true
	}
	var out []billing.Payment
	for _, p := range r.payments {
		if p.CompanyID != companyID || !p.IsPending() {
			continue
		}
		if len(references) == 0 {
			if p.ReferenceNumber != "" || p.TransactionID != "" {
				out = append(out, p)
			}
			continue
		}
		if refSet[p.ReceiptNumber] || refSet[p.ReferenceNumber] || refSet[p.TransactionID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) FindByProviderReference(_ context.Context, companyID uuid.UUID, reference string) (*billing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.CompanyID == companyID && p.MatchesProviderReference(reference) {
			cp := p
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakePaymentRepo) SumSettledByInvoice(_ context.Context, companyID, invoiceID uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, p := range r.payments {
		if p.CompanyID == companyID && p.IsSettled() && p.InvoiceID != nil && *p.InvoiceID == invoiceID {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (r *fakePaymentRepo) ExistingReceiptNumbers(_ context.Context, companyID uuid.UUID) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, p := range r.payments {
		if p.CompanyID == companyID {
			out = append(out, p.ReceiptNumber)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) ReceiptNumberExists(_ context.Context, companyID uuid.UUID, receiptNumber string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.CompanyID == companyID && p.ReceiptNumber == receiptNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePaymentRepo) Save(_ context.Context, payment *billing.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[payment.ID] = *payment
	return nil
}

func (r *fakePaymentRepo) SaveWithLock(_ context.Context, payment *billing.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[payment.ID] = *payment
	return nil
}

func (r *fakePaymentRepo) DeletePendingPlaceholders(_ context.Context, companyID, invoiceID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, p := range r.payments {
		if p.CompanyID == companyID && p.IsPending() && p.HasPlaceholderReceipt() &&
			p.InvoiceID != nil && *p.InvoiceID == invoiceID {
			delete(r.payments, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *fakePaymentRepo) Count(_ context.Context, companyID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.payments {
		if p.CompanyID == companyID {
			n++
		}
	}
	return n, nil
}

type fakeInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]billing.Invoice
	payments *fakePaymentRepo
}

func newFakeInvoiceRepo(payments *fakePaymentRepo) *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: make(map[uuid.UUID]billing.Invoice), payments: payments}
}

func (r *fakeInvoiceRepo) FindByID(_ context.Context, companyID, id uuid.UUID) (*billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok || inv.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	cp := inv
	return &cp, nil
}

func (r *fakeInvoiceRepo) FindByNumber(_ context.Context, companyID uuid.UUID, number string) (*billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.CompanyID == companyID && inv.Number == number {
			cp := inv
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeInvoiceRepo) FindAll(_ context.Context, companyID uuid.UUID, _ shared.Filter) ([]billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []billing.Invoice
	for _, inv := range r.invoices {
		if inv.CompanyID == companyID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) FindByStatus(_ context.Context, companyID uuid.UUID, status billing.InvoiceStatus, _ shared.Filter) ([]billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []billing.Invoice
	for _, inv := range r.invoices {
		if inv.CompanyID == companyID && inv.Status == status {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) FindOverdueCandidates(_ context.Context, asOf time.Time) ([]billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []billing.Invoice
	for _, inv := range r.invoices {
		if inv.Status == billing.InvoiceStatusSent && inv.DueDate.Before(asOf) {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) FindWithPayments(ctx context.Context, companyID uuid.UUID) ([]billing.Invoice, error) {
	r.mu.Lock()
	invoices := make([]billing.Invoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		if inv.CompanyID == companyID {
			invoices = append(invoices, inv)
		}
	}
	r.mu.Unlock()

	var out []billing.Invoice
	for _, inv := range invoices {
		payments, err := r.payments.FindByInvoice(ctx, companyID, inv.ID)
		if err != nil {
			return nil, err
		}
		if len(payments) > 0 {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) ExistingNumbers(_ context.Context, companyID uuid.UUID) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, inv := range r.invoices {
		if inv.CompanyID == companyID {
			out = append(out, inv.Number)
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) NumberExists(_ context.Context, companyID uuid.UUID, number string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.CompanyID == companyID && inv.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeInvoiceRepo) Save(_ context.Context, invoice *billing.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[invoice.ID] = *invoice
	return nil
}

func (r *fakeInvoiceRepo) SaveWithLock(_ context.Context, invoice *billing.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[invoice.ID] = *invoice
	return nil
}

func (r *fakeInvoiceRepo) Count(_ context.Context, companyID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, inv := range r.invoices {
		if inv.CompanyID == companyID {
			n++
		}
	}
	return n, nil
}

type fakePropertyRepo struct {
	mu         sync.Mutex
	properties map[uuid.UUID]rentals.Property
}

func newFakePropertyRepo() *fakePropertyRepo {
	return &fakePropertyRepo{properties: make(map[uuid.UUID]rentals.Property)}
}

func (r *fakePropertyRepo) FindByID(_ context.Context, companyID, id uuid.UUID) (*rentals.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.properties[id]
	if !ok || p.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (r *fakePropertyRepo) FindByCode(_ context.Context, companyID uuid.UUID, code string) (*rentals.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.properties {
		if p.CompanyID == companyID && p.Code == code {
			cp := p
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakePropertyRepo) FindAll(_ context.Context, companyID uuid.UUID, _ shared.Filter) ([]rentals.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []rentals.Property
	for _, p := range r.properties {
		if p.CompanyID == companyID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePropertyRepo) ExistsByCode(_ context.Context, companyID uuid.UUID, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.properties {
		if p.CompanyID == companyID && p.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePropertyRepo) Save(_ context.Context, property *rentals.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.properties[property.ID] = *property
	return nil
}

func (r *fakePropertyRepo) SaveWithLock(_ context.Context, property *rentals.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.properties[property.ID] = *property
	return nil
}

func (r *fakePropertyRepo) Delete(_ context.Context, companyID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.properties[id]; ok && p.CompanyID == companyID {
		delete(r.properties, id)
	}
	return nil
}

func (r *fakePropertyRepo) Count(_ context.Context, companyID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.properties {
		if p.CompanyID == companyID {
			n++
		}
	}
	return n, nil
}

type fakeAuditRecorder struct {
	mu      sync.Mutex
	entries []billing.AuditEntry
}

func (r *fakeAuditRecorder) Record(_ context.Context, entry *billing.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRecorder) entriesFor(entityID uuid.UUID) []billing.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []billing.AuditEntry
	for _, e := range r.entries {
		if e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out
}

// countingTransactionScope counts Execute calls so tests can assert when a
// code path avoids opening a transaction.
type countingTransactionScope struct {
	inner TransactionScope
	mu    sync.Mutex
	calls int
}

func (s *countingTransactionScope) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.inner.Execute(ctx, fn)
}

func (s *countingTransactionScope) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeIdempotencyStore struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{seen: make(map[string]bool)}
}

func (s *fakeIdempotencyStore) MarkProcessed(_ context.Context, ref string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[ref] {
		return false, nil
	}
	s.seen[ref] = true
	return true, nil
}

func (s *fakeIdempotencyStore) IsProcessed(_ context.Context, ref string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[ref], nil
}

func (s *fakeIdempotencyStore) Close() error { return nil }

var (
	_ TransactionScope           = (*countingTransactionScope)(nil)
	_ billing.PaymentRepository  = (*fakePaymentRepo)(nil)
	_ billing.InvoiceRepository  = (*fakeInvoiceRepo)(nil)
	_ rentals.PropertyRepository = (*fakePropertyRepo)(nil)
	_ billing.AuditRecorder      = (*fakeAuditRecorder)(nil)
	_ shared.IdempotencyStore    = (*fakeIdempotencyStore)(nil)
)
