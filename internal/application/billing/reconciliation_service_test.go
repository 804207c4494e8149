package billing

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/billing"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reconcilerFixture struct {
	companyID   uuid.UUID
	invoiceRepo *fakeInvoiceRepo
	paymentRepo *fakePaymentRepo
	audit       *fakeAuditRecorder
	idempotency *fakeIdempotencyStore
	service     *ReconciliationService
}

func newReconcilerFixture(t *testing.T) *reconcilerFixture {
	t.Helper()
	paymentRepo := newFakePaymentRepo()
	invoiceRepo := newFakeInvoiceRepo(paymentRepo)
	audit := &fakeAuditRecorder{}
	idempotency := newFakeIdempotencyStore()

	service := NewReconciliationService(ReconciliationServiceConfig{
		Scope:       NewNoOpTransactionScope(invoiceRepo, paymentRepo, audit),
		InvoiceRepo: invoiceRepo,
		PaymentRepo: paymentRepo,
		Idempotency: idempotency,
	})

	return &reconcilerFixture{
		companyID:   uuid.New(),
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		audit:       audit,
		idempotency: idempotency,
		service:     service,
	}
}

func (f *reconcilerFixture) sentInvoice(t *testing.T, number string, total int64) *billing.Invoice {
	t.Helper()
	issue := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	invoice, err := billing.NewInvoice(f.companyID, number, decimal.NewFromInt(total), issue, issue.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.NoError(t, invoice.Send())
	require.NoError(t, f.invoiceRepo.Save(context.Background(), invoice))
	return invoice
}

func (f *reconcilerFixture) payment(t *testing.T, invoice *billing.Invoice, receipt string, amount int64, settle bool) *billing.Payment {
	t.Helper()
	payment, err := billing.NewPayment(f.companyID, receipt, decimal.NewFromInt(amount),
		time.Date(2026, time.August, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	payment.AttachInvoice(invoice.ID)
	payment.SetReferences(receipt, "")
	if settle {
		require.NoError(t, payment.Approve())
	}
	require.NoError(t, f.paymentRepo.Save(context.Background(), payment))
	return payment
}

func TestReconcilePending_PromotesAndSettles(t *testing.T) {
	f := newReconcilerFixture(t)
	ctx := context.Background()

	invoice := f.sentInvoice(t, "INV-2026-08-0001", 1000)
	f.payment(t, invoice, "RCT-2026-08-0001", 400, true)
	pending := f.payment(t, invoice, billing.NewPlaceholderReference(), 600, false)

	result, err := f.service.ReconcilePending(ctx, ReconcileCommand{CompanyID: f.companyID, All: true})
	require.NoError(t, err)

	assert.Equal(t, 1, result.ReconciledCount)
	assert.Contains(t, result.UpdatedIDs, pending.ID)
	assert.Empty(t, result.Failures)

	saved, err := f.paymentRepo.FindByID(ctx, f.companyID, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.PaymentStatusApproved, saved.Status)
	assert.True(t, strings.HasPrefix(saved.ReceiptNumber, "RCT-2026-08-"), "placeholder replaced, got %s", saved.ReceiptNumber)
	assert.False(t, saved.HasPlaceholderReceipt())

	settled, err := f.invoiceRepo.FindByID(ctx, f.companyID, invoice.ID)
	require.NoError(t, err)
	assert.True(t, settled.IsPaid())
	require.NotNil(t, settled.PaidDate)
	assert.Equal(t, saved.ReceiptNumber, settled.PaymentReference)

	assert.NotEmpty(t, f.audit.entriesFor(pending.ID))
	assert.NotEmpty(t, f.audit.entriesFor(invoice.ID))
}

func TestReconcilePending_UnderpaidInvoiceStaysSent(t *testing.T) {
	f := newReconcilerFixture(t)
	ctx := context.Background()

	invoice := f.sentInvoice(t, "INV-2026-08-0001", 1000)
	f.payment(t, invoice, "RCT-2026-08-0001", 400, true)
	pending := f.payment(t, invoice, billing.NewPlaceholderReference(), 300, false)

	result, err := f.service.ReconcilePending(ctx, ReconcileCommand{CompanyID: f.companyID, All: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ReconciledCount)

	saved, err := f.paymentRepo.FindByID(ctx, f.companyID, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.PaymentStatusApproved, saved.Status)

	// 700 < 1000: the invoice must not flip.
	current, err := f.invoiceRepo.FindByID(ctx, f.companyID, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceStatusSent, current.Status)
}

func TestReconcilePending_SupersededPlaceholderIsCancelled(t *testing.T) {
	f := newReconcilerFixture(t)
	ctx := context.Background()

	invoice := f.sentInvoice(t, "INV-2026-08-0001", 1000)
	f.payment(t, invoice, "RCT-2026-08-0001", 1000, true)
	pending := f.payment(t, invoice, billing.NewPlaceholderReference(), 1000, false)

	result, err := f.service.ReconcilePending(ctx, ReconcileCommand{CompanyID: f.companyID, All: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ReconciledCount)
	// Supersessions are reported apart from promotions.
	assert.Equal(t, []uuid.UUID{pending.ID}, result.CancelledIDs)
	assert.Empty(t, result.UpdatedIDs)

	saved, err := f.paymentRepo.FindByID(ctx, f.companyID, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.PaymentStatusCancelled, saved.Status)
	assert.Contains(t, saved.Notes, "Superseded")
	// Cancelled rows keep their placeholder receipt; no number is spent.
	assert.True(t, saved.HasPlaceholderReceipt())

	// The settled sum is unchanged, so the invoice settles on the existing
	// payment alone.
	sum, err := f.paymentRepo.SumSettledByInvoice(ctx, f.companyID, invoice.ID)
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.NewFromInt(1000)))
}

func TestReconcilePending_FiltersByReference(t *testing.T) {
	f := newReconcilerFixture(t)
	ctx := context.Background()

	invoiceA := f.sentInvoice(t, "INV-2026-08-0001", 500)
	invoiceB := f.sentInvoice(t, "INV-2026-08-0002", 500)
	targeted := f.payment(t, invoiceA, billing.NewPlaceholderReference(), 500, false)
	untouched := f.payment(t, invoiceB, billing.NewPlaceholderReference(), 500, false)

	result, err := f.service.ReconcilePending(ctx, ReconcileCommand{
		CompanyID:  f.companyID,
		References: []string{targeted.ReceiptNumber},
	})
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{targeted.ID}, result.UpdatedIDs)

	saved, err := f.paymentRepo.FindByID(ctx, f.companyID, untouched.ID)
	require.NoError(t, err)
	assert.True(t, saved.IsPending())
}

func TestReconcilePending_CollectsFailures(t *testing.T) {
	f := newReconcilerFixture(t)
	ctx := context.Background()

	invoice := f.sentInvoice(t, "INV-2026-08-0001", 500)
	ok := f.payment(t, invoice, billing.NewPlaceholderReference(), 500, false)

	// A pending payment with a reference but no invoice cannot be
	// reconciled; it must be reported without aborting the batch.
	orphan, err := billing.NewPayment(f.companyID, billing.NewPlaceholderReference(), decimal.NewFromInt(100), time.Now())
	require.NoError(t, err)
	orphan.SetReferences("ref-orphan", "")
	require.NoError(t, f.paymentRepo.Save(ctx, orphan))

	result, err := f.service.ReconcilePending(ctx, ReconcileCommand{CompanyID: f.companyID, All: true})
	require.NoError(t, err)

	assert.Contains(t, result.UpdatedIDs, ok.ID)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, orphan.ID, result.Failures[0].PaymentID)
	assert.Equal(t, "INCONSISTENT_STATE", result.Failures[0].Code)
}

func TestReconcilePending_Validation(t *testing.T) {
	f := newReconcilerFixture(t)
	ctx := context.Background()

	_, err := f.service.ReconcilePending(ctx, ReconcileCommand{All: true})
	assert.Error(t, err)

	_, err = f.service.ReconcilePending(ctx, ReconcileCommand{CompanyID: f.companyID})
	assert.Error(t, err)
}

func TestIngestExternalEvent_CreatesSettledPayment(t *testing.T) {
	f := newReconcilerFixture(t)
	ctx := context.Background()

	invoice := f.sentInvoice(t, "INV-2026-08-0001", 1000)
	placeholder := f.payment(t, invoice, billing.NewPlaceholderReference(), 1000, false)

	occurred := time.Date(2026, time.August, 12, 9, 30, 0, 0, time.UTC)
	payment, err := f.service.IngestExternalEvent(ctx, IngestPaymentCommand{
		CompanyID:         f.companyID,
		ProviderReference: "txn-ext-001",
		InvoiceID:         invoice.ID,
		Amount:            decimal.NewFromInt(1000),
		OccurredAt:        occurred,
		Method:            "bank_transfer",
	})
	require.NoError(t, err)

	assert.Equal(t, billing.PaymentStatusApproved, payment.Status)
	assert.Equal(t, "txn-ext-001", payment.TransactionID)
	assert.Equal(t, "txn-ext-001", payment.ReferenceNumber)
	assert.True(t, strings.HasPrefix(payment.ReceiptNumber, "RCT-2026-08-"))

	// The internal placeholder was deleted inside the same transaction.
	_, err = f.paymentRepo.FindByID(ctx, f.companyID, placeholder.ID)
	assert.Error(t, err)
	count, err := f.paymentRepo.Count(ctx, f.companyID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	settled, err := f.invoiceRepo.FindByID(ctx, f.companyID, invoice.ID)
	require.NoError(t, err)
	assert.True(t, settled.IsPaid())
	assert.Equal(t, "bank_transfer", settled.PaymentMethod)
	assert.Equal(t, payment.ReceiptNumber, settled.PaymentReference)

	seen, err := f.idempotency.IsProcessed(ctx, "payment:ingest:"+f.companyID.String()+":txn-ext-001")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestIngestExternalEvent_Idempotent(t *testing.T) {
	f := newReconcilerFixture(t)
	ctx := context.Background()

	invoice := f.sentInvoice(t, "INV-2026-08-0001", 1000)

	cmd := IngestPaymentCommand{
		CompanyID:         f.companyID,
		ProviderReference: "txn-ext-002",
		InvoiceID:         invoice.ID,
		Amount:            decimal.NewFromInt(1000),
		OccurredAt:        time.Now(),
		Method:            "card",
	}

	first, err := f.service.IngestExternalEvent(ctx, cmd)
	require.NoError(t, err)

	second, err := f.service.IngestExternalEvent(ctx, cmd)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ReceiptNumber, second.ReceiptNumber)

	count, err := f.paymentRepo.Count(ctx, f.companyID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestIngestExternalEvent_DuplicateDeliverySkipsIngestTransaction(t *testing.T) {
	paymentRepo := newFakePaymentRepo()
	invoiceRepo := newFakeInvoiceRepo(paymentRepo)
	audit := &fakeAuditRecorder{}
	idempotency := newFakeIdempotencyStore()
	scope := &countingTransactionScope{inner: NewNoOpTransactionScope(invoiceRepo, paymentRepo, audit)}

	service := NewReconciliationService(ReconciliationServiceConfig{
		Scope:       scope,
		InvoiceRepo: invoiceRepo,
		PaymentRepo: paymentRepo,
		Idempotency: idempotency,
	})

	ctx := context.Background()
	companyID := uuid.New()
	issue := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	invoice, err := billing.NewInvoice(companyID, "INV-2026-08-0001", decimal.NewFromInt(1000), issue, issue.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.NoError(t, invoice.Send())
	require.NoError(t, invoiceRepo.Save(ctx, invoice))

	cmd := IngestPaymentCommand{
		CompanyID:         companyID,
		ProviderReference: "txn-ext-010",
		InvoiceID:         invoice.ID,
		Amount:            decimal.NewFromInt(1000),
		OccurredAt:        time.Date(2026, time.August, 12, 9, 30, 0, 0, time.UTC),
		Method:            "card",
	}

	first, err := service.IngestExternalEvent(ctx, cmd)
	require.NoError(t, err)
	txAfterFirst := scope.count()

	// A pending placeholder that appears after the event settled. The miss
	// path would delete it; the replay path must leave it alone.
	leftover, err := billing.NewPayment(companyID, billing.NewPlaceholderReference(), decimal.NewFromInt(1000),
		time.Date(2026, time.August, 13, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	leftover.AttachInvoice(invoice.ID)
	auditBefore := len(audit.entriesFor(invoice.ID))
	require.NoError(t, paymentRepo.Save(ctx, leftover))

	second, err := service.IngestExternalEvent(ctx, cmd)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ReceiptNumber, second.ReceiptNumber)
	assert.Equal(t, txAfterFirst, scope.count(), "replaying a recorded event must not open the ingest transaction")

	surviving, err := paymentRepo.FindByID(ctx, companyID, leftover.ID)
	require.NoError(t, err)
	assert.True(t, surviving.IsPending())
	assert.Equal(t, auditBefore, len(audit.entriesFor(invoice.ID)))
}

func TestIngestExternalEvent_StaleIdempotencyEntryFallsBack(t *testing.T) {
	f := newReconcilerFixture(t)
	ctx := context.Background()

	invoice := f.sentInvoice(t, "INV-2026-08-0001", 1000)

	// A marked reference with no surviving payment row must not swallow
	// the event: the database is the source of truth.
	key := "payment:ingest:" + f.companyID.String() + ":txn-ext-011"
	_, err := f.idempotency.MarkProcessed(ctx, key, time.Hour)
	require.NoError(t, err)

	payment, err := f.service.IngestExternalEvent(ctx, IngestPaymentCommand{
		CompanyID:         f.companyID,
		ProviderReference: "txn-ext-011",
		InvoiceID:         invoice.ID,
		Amount:            decimal.NewFromInt(1000),
		OccurredAt:        time.Now(),
		Method:            "card",
	})
	require.NoError(t, err)
	assert.Equal(t, billing.PaymentStatusApproved, payment.Status)

	settled, err := f.invoiceRepo.FindByID(ctx, f.companyID, invoice.ID)
	require.NoError(t, err)
	assert.True(t, settled.IsPaid())
}

func TestIngestExternalEvent_FastPathDisabled(t *testing.T) {
	paymentRepo := newFakePaymentRepo()
	invoiceRepo := newFakeInvoiceRepo(paymentRepo)
	audit := &fakeAuditRecorder{}
	idempotency := newFakeIdempotencyStore()

	service := NewReconciliationService(ReconciliationServiceConfig{
		Scope:       NewNoOpTransactionScope(invoiceRepo, paymentRepo, audit),
		InvoiceRepo: invoiceRepo,
		PaymentRepo: paymentRepo,
		Idempotency: idempotency,
		IdemConfig:  &shared.IdempotencyConfig{TTL: time.Hour, Enabled: false},
	})

	ctx := context.Background()
	companyID := uuid.New()
	issue := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	invoice, err := billing.NewInvoice(companyID, "INV-2026-08-0001", decimal.NewFromInt(500), issue, issue.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.NoError(t, invoice.Send())
	require.NoError(t, invoiceRepo.Save(ctx, invoice))

	cmd := IngestPaymentCommand{
		CompanyID:         companyID,
		ProviderReference: "txn-ext-012",
		InvoiceID:         invoice.ID,
		Amount:            decimal.NewFromInt(500),
		OccurredAt:        time.Now(),
		Method:            "card",
	}

	first, err := service.IngestExternalEvent(ctx, cmd)
	require.NoError(t, err)

	// Disabled means the store is never written to; duplicates are still
	// caught by the reference lookup.
	seen, err := idempotency.IsProcessed(ctx, "payment:ingest:"+companyID.String()+":txn-ext-012")
	require.NoError(t, err)
	assert.False(t, seen)

	second, err := service.IngestExternalEvent(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	count, err := paymentRepo.Count(ctx, companyID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestIngestExternalEvent_Validation(t *testing.T) {
	f := newReconcilerFixture(t)
	ctx := context.Background()

	base := IngestPaymentCommand{
		CompanyID:         f.companyID,
		ProviderReference: "txn-ext-003",
		InvoiceID:         uuid.New(),
		Amount:            decimal.NewFromInt(100),
	}

	cmd := base
	cmd.CompanyID = uuid.Nil
	_, err := f.service.IngestExternalEvent(ctx, cmd)
	assert.Error(t, err)

	cmd = base
	cmd.ProviderReference = ""
	_, err = f.service.IngestExternalEvent(ctx, cmd)
	assert.Error(t, err)

	cmd = base
	cmd.InvoiceID = uuid.Nil
	_, err = f.service.IngestExternalEvent(ctx, cmd)
	assert.Error(t, err)

	cmd = base
	cmd.Amount = decimal.Zero
	_, err = f.service.IngestExternalEvent(ctx, cmd)
	assert.Error(t, err)

	// Unknown invoice aborts the transaction with nothing applied.
	cmd = base
	_, err = f.service.IngestExternalEvent(ctx, cmd)
	assert.Error(t, err)
	count, err := f.paymentRepo.Count(ctx, f.companyID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestSyncInvoicePaymentReferences(t *testing.T) {
	f := newReconcilerFixture(t)
	ctx := context.Background()

	invoice := f.sentInvoice(t, "INV-2026-08-0001", 1000)

	older, err := billing.NewPayment(f.companyID, "RCT-2026-08-0001", decimal.NewFromInt(400),
		time.Date(2026, time.August, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	older.AttachInvoice(invoice.ID)
	require.NoError(t, older.Approve())
	require.NoError(t, f.paymentRepo.Save(ctx, older))

	newer, err := billing.NewPayment(f.companyID, "RCT-2026-08-0002", decimal.NewFromInt(600),
		time.Date(2026, time.August, 9, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	newer.AttachInvoice(invoice.ID)
	require.NoError(t, newer.Approve())
	require.NoError(t, f.paymentRepo.Save(ctx, newer))

	cancelled, err := billing.NewPayment(f.companyID, "RCT-2026-08-0003", decimal.NewFromInt(50),
		time.Date(2026, time.August, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	cancelled.AttachInvoice(invoice.ID)
	require.NoError(t, cancelled.Cancel("void"))
	require.NoError(t, f.paymentRepo.Save(ctx, cancelled))

	synced, err := f.service.SyncInvoicePaymentReferences(ctx, f.companyID)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)

	// Cancelled payments are ignored even when they are the newest.
	current, err := f.invoiceRepo.FindByID(ctx, f.companyID, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, "RCT-2026-08-0002", current.PaymentReference)

	// A second pass is a no-op.
	synced, err = f.service.SyncInvoicePaymentReferences(ctx, f.companyID)
	require.NoError(t, err)
	assert.Equal(t, 0, synced)
}
