package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/billing"
	"github.com/propfolio/backend/internal/domain/numbering"
	"github.com/propfolio/backend/internal/domain/rentals"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InvoiceService orchestrates invoice creation and lifecycle operations.
// Numbers come from the scan-based allocator over the invoice series; the
// paid status is owned by the ReconciliationService and never set here.
type InvoiceService struct {
	invoiceRepo  billing.InvoiceRepository
	propertyRepo rentals.PropertyRepository
	audit        billing.AuditRecorder
	allocator    *numbering.Allocator
	logger       *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo billing.InvoiceRepository,
	propertyRepo rentals.PropertyRepository,
	audit billing.AuditRecorder,
	logger *zap.Logger,
) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		invoiceRepo:  invoiceRepo,
		propertyRepo: propertyRepo,
		audit:        audit,
		allocator:    numbering.NewAllocator(NewInvoiceNumberStore(invoiceRepo), logger),
		logger:       logger,
	}
}

// CreateInvoiceCommand carries the inputs for invoice creation
type CreateInvoiceCommand struct {
	CompanyID      uuid.UUID
	PropertyID     *uuid.UUID
	LeaseID        *uuid.UUID
	TotalAmount    decimal.Decimal
	IssueDate      time.Time
	DueDate        time.Time
	Description    string
	PropertyScoped bool // Number from the property's sub-series
}

// CreateInvoice allocates the next invoice number and persists a new draft
// invoice. A collision-exhausted allocation is surfaced to the caller; it is
// safe to resubmit, since the next attempt recomputes the scope's maximum.
func (s *InvoiceService) CreateInvoice(ctx context.Context, cmd CreateInvoiceCommand) (*billing.Invoice, error) {
	issueDate := cmd.IssueDate
	if issueDate.IsZero() {
		issueDate = time.Now()
	}

	propertyCode := ""
	if cmd.PropertyScoped {
		if cmd.PropertyID == nil {
			return nil, shared.NewDomainError("VALIDATION_ERROR", "Property-scoped numbering requires a property")
		}
		property, err := s.propertyRepo.FindByID(ctx, cmd.CompanyID, *cmd.PropertyID)
		if err != nil {
			return nil, fmt.Errorf("failed to load property: %w", err)
		}
		if !property.IsActive() {
			return nil, shared.NewDomainError("INVALID_STATE", "Archived properties cannot receive new invoices")
		}
		propertyCode = property.Code
	}

	scope, err := numbering.ResolveScope(cmd.CompanyID, numbering.KindInvoice, issueDate, propertyCode)
	if err != nil {
		return nil, err
	}

	number, err := s.allocator.Allocate(ctx, scope)
	if err != nil {
		return nil, err
	}

	invoice, err := billing.NewInvoice(cmd.CompanyID, number, cmd.TotalAmount, issueDate, cmd.DueDate)
	if err != nil {
		return nil, err
	}
	if cmd.PropertyID != nil {
		invoice.AttachProperty(*cmd.PropertyID)
	}
	if cmd.LeaseID != nil {
		invoice.AttachLease(*cmd.LeaseID)
	}
	invoice.Description = cmd.Description

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	s.logger.Info("Invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("number", invoice.Number),
		zap.String("company_id", cmd.CompanyID.String()))

	return invoice, nil
}

// GetInvoice returns an invoice by ID
func (s *InvoiceService) GetInvoice(ctx context.Context, companyID, id uuid.UUID) (*billing.Invoice, error) {
	return s.invoiceRepo.FindByID(ctx, companyID, id)
}

// ListInvoices returns invoices for a company
func (s *InvoiceService) ListInvoices(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]billing.Invoice, error) {
	return s.invoiceRepo.FindAll(ctx, companyID, filter)
}

// CountInvoices counts invoices for a company
func (s *InvoiceService) CountInvoices(ctx context.Context, companyID uuid.UUID) (int64, error) {
	return s.invoiceRepo.Count(ctx, companyID)
}

// SendInvoice issues a draft invoice
func (s *InvoiceService) SendInvoice(ctx context.Context, companyID, id uuid.UUID) (*billing.Invoice, error) {
	return s.transition(ctx, companyID, id, func(invoice *billing.Invoice) error {
		return invoice.Send()
	})
}

// CancelInvoice voids an invoice
func (s *InvoiceService) CancelInvoice(ctx context.Context, companyID, id uuid.UUID) (*billing.Invoice, error) {
	return s.transition(ctx, companyID, id, func(invoice *billing.Invoice) error {
		return invoice.Cancel()
	})
}

// MarkOverdueInvoices sweeps sent invoices past their due date and flags
// them overdue. Per-invoice failures are logged and skipped so one stale
// row cannot block the sweep.
func (s *InvoiceService) MarkOverdueInvoices(ctx context.Context, now time.Time) (int, error) {
	candidates, err := s.invoiceRepo.FindOverdueCandidates(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to find overdue candidates: %w", err)
	}

	flagged := 0
	for i := range candidates {
		invoice := &candidates[i]
		oldStatus := invoice.Status
		if err := invoice.MarkOverdue(now); err != nil {
			continue
		}
		if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
			s.logger.Warn("Failed to flag overdue invoice",
				zap.String("invoice_id", invoice.ID.String()),
				zap.Error(err))
			continue
		}
		s.recordStatusChange(ctx, s.audit, invoice, oldStatus, "overdue-sweep")
		flagged++
	}

	if flagged > 0 {
		s.logger.Info("Overdue sweep completed", zap.Int("flagged", flagged))
	}
	return flagged, nil
}

func (s *InvoiceService) transition(ctx context.Context, companyID, id uuid.UUID, fn func(*billing.Invoice) error) (*billing.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	oldStatus := invoice.Status
	if err := fn(invoice); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	s.recordStatusChange(ctx, s.audit, invoice, oldStatus, "api")
	return invoice, nil
}

// recordStatusChange appends an audit entry for an invoice status flip.
// Audit failures are logged, never propagated: the transition itself has
// already committed.
func (s *InvoiceService) recordStatusChange(ctx context.Context, recorder billing.AuditRecorder, invoice *billing.Invoice, oldStatus billing.InvoiceStatus, actor string) {
	if recorder == nil || oldStatus == invoice.Status {
		return
	}
	entry := billing.NewAuditEntry(invoice.CompanyID, "invoice", invoice.ID,
		"status", string(oldStatus), string(invoice.Status), actor)
	if err := recorder.Record(ctx, entry); err != nil {
		s.logger.Warn("Failed to record audit entry",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err))
	}
}
