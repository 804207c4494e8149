package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/billing"
	"github.com/propfolio/backend/internal/domain/numbering"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// defaultReconcileWorkers bounds how many invoices a batch run processes
// concurrently. Payments for one invoice are always handled by a single
// worker inside a single transaction.
const defaultReconcileWorkers = 4

// ReconciliationService matches, promotes and cancels payments so that
// invoice and payment state stay consistent: an invoice is paid exactly
// when its approved/completed payments cover the total, at most one pending
// payment survives once a settled one exists, and one provider reference
// maps to at most one payment row.
type ReconciliationService struct {
	scope       TransactionScope
	invoiceRepo billing.InvoiceRepository
	paymentRepo billing.PaymentRepository
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	workers     int
	logger      *zap.Logger
}

// ReconciliationServiceConfig holds configuration for the reconciliation service
type ReconciliationServiceConfig struct {
	Scope       TransactionScope
	InvoiceRepo billing.InvoiceRepository
	PaymentRepo billing.PaymentRepository
	Idempotency shared.IdempotencyStore
	IdemConfig  *shared.IdempotencyConfig
	Workers     int
	Logger      *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(config ReconciliationServiceConfig) *ReconciliationService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := config.Workers
	if workers <= 0 {
		workers = defaultReconcileWorkers
	}
	idemConfig := shared.DefaultIdempotencyConfig()
	if config.IdemConfig != nil {
		idemConfig = *config.IdemConfig
	}
	return &ReconciliationService{
		scope:       config.Scope,
		invoiceRepo: config.InvoiceRepo,
		paymentRepo: config.PaymentRepo,
		idempotency: config.Idempotency,
		idemConfig:  idemConfig,
		workers:     workers,
		logger:      logger,
	}
}

// ReconcileCommand filters which pending payments a batch run considers
type ReconcileCommand struct {
	CompanyID  uuid.UUID
	References []string // Explicit reference list; empty means the All flag decides
	All        bool     // All pending payments with any reference present
}

// ReconcileFailure describes one payment the batch could not reconcile
type ReconcileFailure struct {
	PaymentID uuid.UUID  `json:"payment_id"`
	InvoiceID *uuid.UUID `json:"invoice_id,omitempty"`
	Code      string     `json:"code"`
	Message   string     `json:"message"`
}

// ReconcileResult reports a batch run: successes and failures, never
// all-or-nothing. UpdatedIDs holds promoted payments, CancelledIDs the
// pending rows superseded by an already-settled payment; ReconciledCount
// covers both.
type ReconcileResult struct {
	ReconciledCount int                `json:"reconciled_count"`
	UpdatedIDs      []uuid.UUID        `json:"updated_ids"`
	CancelledIDs    []uuid.UUID        `json:"cancelled_ids"`
	Failures        []ReconcileFailure `json:"failures"`
}

// ReconcilePending processes pending payments matching the filter.
// Independent invoices are handled concurrently by a bounded worker pool;
// payments for the same invoice are serialized within one transaction.
// Per-item failures are collected and reported, never aborting the batch.
func (s *ReconciliationService) ReconcilePending(ctx context.Context, cmd ReconcileCommand) (*ReconcileResult, error) {
	if cmd.CompanyID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Company ID is required")
	}
	if len(cmd.References) == 0 && !cmd.All {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Either a reference list or the all flag is required")
	}

	pending, err := s.paymentRepo.FindPending(ctx, cmd.CompanyID, cmd.References)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending payments: %w", err)
	}

	result := &ReconcileResult{UpdatedIDs: []uuid.UUID{}, CancelledIDs: []uuid.UUID{}, Failures: []ReconcileFailure{}}
	groups := make(map[uuid.UUID][]billing.Payment)
	for _, p := range pending {
		if p.InvoiceID == nil {
			result.Failures = append(result.Failures, ReconcileFailure{
				PaymentID: p.ID,
				Code:      "INCONSISTENT_STATE",
				Message:   "Pending payment is not linked to an invoice",
			})
			continue
		}
		groups[*p.InvoiceID] = append(groups[*p.InvoiceID], p)
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.workers)
	)
	for invoiceID, payments := range groups {
		wg.Add(1)
		sem <- struct{}{}
		go func(invoiceID uuid.UUID, payments []billing.Payment) {
			defer wg.Done()
			defer func() { <-sem }()

			updated, cancelled, failures := s.reconcileInvoiceGroup(ctx, cmd.CompanyID, invoiceID, payments)

			mu.Lock()
			result.UpdatedIDs = append(result.UpdatedIDs, updated...)
			result.CancelledIDs = append(result.CancelledIDs, cancelled...)
			result.Failures = append(result.Failures, failures...)
			mu.Unlock()
		}(invoiceID, payments)
	}
	wg.Wait()

	result.ReconciledCount = len(result.UpdatedIDs) + len(result.CancelledIDs)
	s.logger.Info("Reconciliation batch completed",
		zap.String("company_id", cmd.CompanyID.String()),
		zap.Int("reconciled", result.ReconciledCount),
		zap.Int("cancelled", len(result.CancelledIDs)),
		zap.Int("failures", len(result.Failures)))

	return result, nil
}

// reconcileInvoiceGroup handles all pending payments of one invoice inside
// one transaction. Pending payments of an already-covered invoice are
// superseded (cancelled with an annotation, never deleted); otherwise each
// is promoted, given a real receipt number if it carries a placeholder,
// and the invoice's status recomputed once the settled sum covers the
// total.
func (s *ReconciliationService) reconcileInvoiceGroup(ctx context.Context, companyID, invoiceID uuid.UUID, payments []billing.Payment) ([]uuid.UUID, []uuid.UUID, []ReconcileFailure) {
	var updated []uuid.UUID
	var cancelled []uuid.UUID
	var failures []ReconcileFailure

	groupFailure := func(err error) []ReconcileFailure {
		out := make([]ReconcileFailure, 0, len(payments))
		for _, p := range payments {
			out = append(out, ReconcileFailure{
				PaymentID: p.ID,
				InvoiceID: &invoiceID,
				Code:      failureCode(err),
				Message:   err.Error(),
			})
		}
		return out
	}

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		invoice, err := repos.InvoiceRepo().FindByID(ctx, companyID, invoiceID)
		if err != nil {
			return err
		}

		settled, err := repos.PaymentRepo().SumSettledByInvoice(ctx, companyID, invoiceID)
		if err != nil {
			return err
		}
		// A pending payment is superseded only when the invoice is already
		// covered without it; an undercovered invoice still promotes.
		covered := invoice.IsSettledBy(settled)

		allocator := numbering.NewAllocator(NewReceiptNumberStore(repos.PaymentRepo()), s.logger)

		for i := range payments {
			payment := &payments[i]
			oldStatus := payment.Status
			superseded := false

			if covered {
				if err := payment.Cancel("Superseded by a settled payment during reconciliation"); err != nil {
					failures = append(failures, itemFailure(payment, invoiceID, err))
					continue
				}
				superseded = true
			} else {
				if payment.HasPlaceholderReceipt() {
					receiptNumber, err := s.allocateReceipt(ctx, allocator, companyID, payment.PaymentDate)
					if err != nil {
						// Collision exhaustion is fatal for this payment
						// only; the rest of the group proceeds.
						failures = append(failures, itemFailure(payment, invoiceID, err))
						continue
					}
					if err := payment.ReplaceReceiptNumber(receiptNumber); err != nil {
						failures = append(failures, itemFailure(payment, invoiceID, err))
						continue
					}
				}
				if err := payment.Approve(); err != nil {
					failures = append(failures, itemFailure(payment, invoiceID, err))
					continue
				}
				settled = settled.Add(payment.Amount)
				covered = invoice.IsSettledBy(settled)
			}

			if err := repos.PaymentRepo().SaveWithLock(ctx, payment); err != nil {
				return err
			}
			s.recordPaymentTransition(ctx, repos.AuditRecorder(), payment, oldStatus)
			if superseded {
				cancelled = append(cancelled, payment.ID)
			} else {
				updated = append(updated, payment.ID)
			}
		}

		if invoice.Status.CanBePaid() && invoice.IsSettledBy(settled) {
			settling := latestSettled(payments)
			if settling == nil {
				// Covered entirely by pre-existing payments; pull the
				// settling row so paid_date and reference are real.
				all, err := repos.PaymentRepo().FindByInvoice(ctx, companyID, invoiceID)
				if err != nil {
					return err
				}
				settling = latestSettled(all)
			}
			if settling != nil {
				oldStatus := invoice.Status
				if err := invoice.MarkPaid(settling.PaymentDate, settling.Method, settling.ReceiptNumber); err != nil {
					return err
				}
				if err := repos.InvoiceRepo().SaveWithLock(ctx, invoice); err != nil {
					return err
				}
				s.recordInvoiceTransition(ctx, repos.AuditRecorder(), invoice, oldStatus)
			}
		}

		return nil
	})
	if err != nil {
		// The transaction rolled back: nothing in this group was applied.
		s.logger.Warn("Reconciliation group failed",
			zap.String("invoice_id", invoiceID.String()),
			zap.Error(err))
		return nil, nil, groupFailure(err)
	}

	return updated, cancelled, failures
}

// IngestPaymentCommand carries a provider-reported settlement event.
// Signature verification happens upstream.
type IngestPaymentCommand struct {
	CompanyID         uuid.UUID
	ProviderReference string
	InvoiceID         uuid.UUID
	Amount            decimal.Decimal
	OccurredAt        time.Time
	Method            string
}

// IngestExternalEvent is the idempotent entry point for provider-reported
// settlement. A reference already seen returns the existing payment after
// ensuring the invoice's status is consistent. A new reference executes one
// transaction that deletes internally-generated pending placeholders for
// the invoice, creates an approved payment carrying the reference, and
// marks the invoice paid. Partial application is a correctness violation.
func (s *ReconciliationService) IngestExternalEvent(ctx context.Context, cmd IngestPaymentCommand) (*billing.Payment, error) {
	if cmd.CompanyID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Company ID is required")
	}
	if cmd.ProviderReference == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Provider reference is required")
	}
	if cmd.InvoiceID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Invoice ID is required")
	}
	if !cmd.Amount.GreaterThan(decimal.Zero) {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Amount must be positive")
	}
	occurredAt := cmd.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	// Fast path for duplicate webhook deliveries: a reference already marked
	// processed is replayed from the recorded payment without opening the
	// ingest transaction. The database stays the source of truth; a stale
	// cache entry with no surviving row falls through to the full path.
	idempotencyKey := fmt.Sprintf("payment:ingest:%s:%s", cmd.CompanyID, cmd.ProviderReference)
	if s.idemConfig.Enabled && s.idempotency != nil {
		seen, err := s.idempotency.IsProcessed(ctx, idempotencyKey)
		if err != nil {
			s.logger.Warn("Idempotency lookup failed",
				zap.String("provider_reference", cmd.ProviderReference),
				zap.Error(err))
		} else if seen {
			existing, err := s.replayRecordedEvent(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				s.logger.Info("Duplicate payment event short-circuited",
					zap.String("provider_reference", cmd.ProviderReference))
				return existing, nil
			}
		}
	}

	var result *billing.Payment
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		existing, err := repos.PaymentRepo().FindByProviderReference(ctx, cmd.CompanyID, cmd.ProviderReference)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if existing != nil {
			if err := s.ensureInvoiceConsistent(ctx, repos, cmd.CompanyID, existing); err != nil {
				return err
			}
			result = existing
			return nil
		}

		invoice, err := repos.InvoiceRepo().FindByID(ctx, cmd.CompanyID, cmd.InvoiceID)
		if err != nil {
			return err
		}

		deleted, err := repos.PaymentRepo().DeletePendingPlaceholders(ctx, cmd.CompanyID, cmd.InvoiceID)
		if err != nil {
			return err
		}
		if deleted > 0 {
			s.logger.Info("Deleted pending placeholder payments",
				zap.String("invoice_id", cmd.InvoiceID.String()),
				zap.Int64("count", deleted))
		}

		allocator := numbering.NewAllocator(NewReceiptNumberStore(repos.PaymentRepo()), s.logger)
		receiptNumber, err := s.allocateReceipt(ctx, allocator, cmd.CompanyID, occurredAt)
		if err != nil {
			return err
		}

		payment, err := billing.NewPayment(cmd.CompanyID, receiptNumber, cmd.Amount, occurredAt)
		if err != nil {
			return err
		}
		payment.AttachInvoice(cmd.InvoiceID)
		payment.SetReferences(cmd.ProviderReference, cmd.ProviderReference)
		if err := payment.SetMethod(cmd.Method); err != nil {
			return err
		}
		if err := payment.Approve(); err != nil {
			return err
		}
		if err := repos.PaymentRepo().Save(ctx, payment); err != nil {
			return err
		}
		s.recordPaymentTransition(ctx, repos.AuditRecorder(), payment, billing.PaymentStatusPending)

		if !invoice.IsPaid() {
			oldStatus := invoice.Status
			if err := invoice.MarkPaid(occurredAt, cmd.Method, receiptNumber); err != nil {
				return err
			}
			if err := repos.InvoiceRepo().SaveWithLock(ctx, invoice); err != nil {
				return err
			}
			s.recordInvoiceTransition(ctx, repos.AuditRecorder(), invoice, oldStatus)
		}

		result = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.idemConfig.Enabled && s.idempotency != nil {
		if _, err := s.idempotency.MarkProcessed(ctx, idempotencyKey, s.idemConfig.TTL); err != nil {
			s.logger.Warn("Failed to mark payment event processed",
				zap.String("provider_reference", cmd.ProviderReference),
				zap.Error(err))
		}
	}

	return result, nil
}

// SyncInvoicePaymentReferences backfills each invoice's payment_reference
// with the receipt number of its most recent non-cancelled payment. Used
// after number-format migrations. Returns how many invoices were updated.
func (s *ReconciliationService) SyncInvoicePaymentReferences(ctx context.Context, companyID uuid.UUID) (int, error) {
	if companyID == uuid.Nil {
		return 0, shared.NewDomainError("VALIDATION_ERROR", "Company ID is required")
	}

	invoices, err := s.invoiceRepo.FindWithPayments(ctx, companyID)
	if err != nil {
		return 0, fmt.Errorf("failed to load invoices with payments: %w", err)
	}

	synced := 0
	for i := range invoices {
		invoice := &invoices[i]
		payments, err := s.paymentRepo.FindByInvoice(ctx, companyID, invoice.ID)
		if err != nil {
			s.logger.Warn("Failed to load payments for reference sync",
				zap.String("invoice_id", invoice.ID.String()),
				zap.Error(err))
			continue
		}

		latest := mostRecentNonCancelled(payments)
		if latest == nil || invoice.PaymentReference == latest.ReceiptNumber {
			continue
		}

		invoice.SetPaymentReference(latest.ReceiptNumber)
		if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
			s.logger.Warn("Failed to sync payment reference",
				zap.String("invoice_id", invoice.ID.String()),
				zap.Error(err))
			continue
		}
		synced++
	}

	s.logger.Info("Payment reference sync completed",
		zap.String("company_id", companyID.String()),
		zap.Int("synced", synced))

	return synced, nil
}

// replayRecordedEvent serves a redelivered event from the payment already
// recorded for its reference. Reads run outside the ingest transaction; a
// write transaction is opened only when the linked invoice still needs to
// flip to paid. Returns nil when no payment carries the reference, which
// sends the caller down the full path.
func (s *ReconciliationService) replayRecordedEvent(ctx context.Context, cmd IngestPaymentCommand) (*billing.Payment, error) {
	existing, err := s.paymentRepo.FindByProviderReference(ctx, cmd.CompanyID, cmd.ProviderReference)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if existing == nil || existing.InvoiceID == nil {
		return existing, nil
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, cmd.CompanyID, *existing.InvoiceID)
	if err != nil {
		return nil, err
	}
	if !invoice.Status.CanBePaid() {
		return existing, nil
	}
	settled, err := s.paymentRepo.SumSettledByInvoice(ctx, cmd.CompanyID, invoice.ID)
	if err != nil {
		return nil, err
	}
	if !invoice.IsSettledBy(settled) {
		return existing, nil
	}

	if err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		return s.ensureInvoiceConsistent(ctx, repos, cmd.CompanyID, existing)
	}); err != nil {
		return nil, err
	}
	return existing, nil
}

// ensureInvoiceConsistent recomputes the invoice linked to an already-known
// payment: if its settled sum now covers the total, flip it to paid. The
// payment row itself is returned unchanged by the caller.
func (s *ReconciliationService) ensureInvoiceConsistent(ctx context.Context, repos TransactionalRepositories, companyID uuid.UUID, payment *billing.Payment) error {
	if payment.InvoiceID == nil {
		return nil
	}

	invoice, err := repos.InvoiceRepo().FindByID(ctx, companyID, *payment.InvoiceID)
	if err != nil {
		return err
	}
	if !invoice.Status.CanBePaid() {
		return nil
	}

	settled, err := repos.PaymentRepo().SumSettledByInvoice(ctx, companyID, invoice.ID)
	if err != nil {
		return err
	}
	if !invoice.IsSettledBy(settled) {
		return nil
	}

	oldStatus := invoice.Status
	if err := invoice.MarkPaid(payment.PaymentDate, payment.Method, payment.ReceiptNumber); err != nil {
		return err
	}
	if err := repos.InvoiceRepo().SaveWithLock(ctx, invoice); err != nil {
		return err
	}
	s.recordInvoiceTransition(ctx, repos.AuditRecorder(), invoice, oldStatus)

	return nil
}

// allocateReceipt draws the next number from the receipt series
func (s *ReconciliationService) allocateReceipt(ctx context.Context, allocator *numbering.Allocator, companyID uuid.UUID, at time.Time) (string, error) {
	scope, err := numbering.ResolveScope(companyID, numbering.KindReceipt, at, "")
	if err != nil {
		return "", err
	}
	return allocator.Allocate(ctx, scope)
}

func (s *ReconciliationService) recordPaymentTransition(ctx context.Context, recorder billing.AuditRecorder, payment *billing.Payment, oldStatus billing.PaymentStatus) {
	if recorder == nil || oldStatus == payment.Status {
		return
	}
	entry := billing.NewAuditEntry(payment.CompanyID, "payment", payment.ID,
		"status", string(oldStatus), string(payment.Status), "reconciliation")
	if err := recorder.Record(ctx, entry); err != nil {
		s.logger.Warn("Failed to record payment audit entry",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err))
	}
}

func (s *ReconciliationService) recordInvoiceTransition(ctx context.Context, recorder billing.AuditRecorder, invoice *billing.Invoice, oldStatus billing.InvoiceStatus) {
	if recorder == nil || oldStatus == invoice.Status {
		return
	}
	entry := billing.NewAuditEntry(invoice.CompanyID, "invoice", invoice.ID,
		"status", string(oldStatus), string(invoice.Status), "reconciliation")
	if err := recorder.Record(ctx, entry); err != nil {
		s.logger.Warn("Failed to record invoice audit entry",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err))
	}
}

func itemFailure(payment *billing.Payment, invoiceID uuid.UUID, err error) ReconcileFailure {
	return ReconcileFailure{
		PaymentID: payment.ID,
		InvoiceID: &invoiceID,
		Code:      failureCode(err),
		Message:   err.Error(),
	}
}

func failureCode(err error) string {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return "INTERNAL_ERROR"
}

// latestSettled picks the payment whose settlement flipped the invoice:
// the most recent settled one by payment date, creation order as tiebreak.
// Returns nil when no payment in the slice is settled.
func latestSettled(payments []billing.Payment) *billing.Payment {
	var pick *billing.Payment
	for i := range payments {
		p := &payments[i]
		if !p.IsSettled() {
			continue
		}
		if pick == nil || p.PaymentDate.After(pick.PaymentDate) ||
			(p.PaymentDate.Equal(pick.PaymentDate) && p.CreatedAt.After(pick.CreatedAt)) {
			pick = p
		}
	}
	return pick
}

// mostRecentNonCancelled orders by payment date descending with creation
// order as tiebreak and returns the head, or nil.
func mostRecentNonCancelled(payments []billing.Payment) *billing.Payment {
	eligible := make([]billing.Payment, 0, len(payments))
	for _, p := range payments {
		if p.Status != billing.PaymentStatusCancelled {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) == 0 {
		return nil
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		if !eligible[i].PaymentDate.Equal(eligible[j].PaymentDate) {
			return eligible[i].PaymentDate.After(eligible[j].PaymentDate)
		}
		return eligible[i].CreatedAt.After(eligible[j].CreatedAt)
	})
	return &eligible[0]
}
