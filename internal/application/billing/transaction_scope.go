package billing

import (
	"context"

	"github.com/propfolio/backend/internal/domain/billing"
)

// TransactionScope provides transactional access to billing repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll
// back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the billing repositories
// within a transaction. All repositories returned share the same underlying
// database transaction.
//
// External payment ingestion depends on this boundary: it reads by provider
// reference, conditionally deletes placeholder payments, creates the settled
// payment and updates the invoice as one unit of work. Interleaving any of
// those steps across transactions is a correctness violation.
type TransactionalRepositories interface {
	// InvoiceRepo returns the invoice repository scoped to the current transaction
	InvoiceRepo() billing.InvoiceRepository
	// PaymentRepo returns the payment repository scoped to the current transaction
	PaymentRepo() billing.PaymentRepository
	// AuditRecorder returns the audit recorder scoped to the current transaction
	AuditRecorder() billing.AuditRecorder
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. This is useful for testing or when transaction support is
// not required.
type NoOpTransactionScope struct {
	invoiceRepo billing.InvoiceRepository
	paymentRepo billing.PaymentRepository
	audit       billing.AuditRecorder
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	invoiceRepo billing.InvoiceRepository,
	paymentRepo billing.PaymentRepository,
	audit billing.AuditRecorder,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		audit:       audit,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// InvoiceRepo returns the invoice repository.
func (s *NoOpTransactionScope) InvoiceRepo() billing.InvoiceRepository {
	return s.invoiceRepo
}

// PaymentRepo returns the payment repository.
func (s *NoOpTransactionScope) PaymentRepo() billing.PaymentRepository {
	return s.paymentRepo
}

// AuditRecorder returns the audit recorder.
func (s *NoOpTransactionScope) AuditRecorder() billing.AuditRecorder {
	return s.audit
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
