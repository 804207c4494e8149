package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue" // Derived: sent past its due date
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// IsValid checks if the invoice status is valid
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// CanBePaid checks if an invoice in this status may flip to paid
func (s InvoiceStatus) CanBePaid() bool {
	return s == InvoiceStatusSent || s == InvoiceStatusOverdue
}

// IsTerminal checks if the status admits no further transitions
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// Invoice represents a billed amount owed under a lease or property.
// It is the aggregate root for invoice operations. Its number is unique
// per company and allocated from the invoice series; the paid status is
// owned by the reconciliation engine, never set by a generic update.
type Invoice struct {
	shared.CompanyAggregateRoot
	PropertyID       *uuid.UUID      `gorm:"type:uuid;index"`
	LeaseID          *uuid.UUID      `gorm:"type:uuid;index"`
	Number           string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoice_company_number,priority:2"`
	Status           InvoiceStatus   `gorm:"type:varchar(20);not null;default:'draft'"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	IssueDate        time.Time       `gorm:"not null"`
	DueDate          time.Time       `gorm:"not null;index"`
	PaidDate         *time.Time      `gorm:""`
	PaymentMethod    string          `gorm:"type:varchar(50)"`
	PaymentReference string          `gorm:"type:varchar(100)"`
	Description      string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Invoice) TableName() string {
	return "invoices"
}

// NewInvoice creates a new draft invoice with an already-allocated number
func NewInvoice(companyID uuid.UUID, number string, totalAmount decimal.Decimal, issueDate, dueDate time.Time) (*Invoice, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Invoice number cannot be empty")
	}
	if totalAmount.IsNegative() || totalAmount.IsZero() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Invoice total must be positive")
	}
	if issueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_ISSUE_DATE", "Invoice issue date is required")
	}
	if dueDate.IsZero() {
		dueDate = issueDate.AddDate(0, 1, 0)
	}
	if dueDate.Before(issueDate) {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Invoice due date cannot precede the issue date")
	}

	return &Invoice{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Number:               number,
		Status:               InvoiceStatusDraft,
		TotalAmount:          totalAmount,
		IssueDate:            issueDate,
		DueDate:              dueDate,
	}, nil
}

// AttachProperty links the invoice to a property
func (i *Invoice) AttachProperty(propertyID uuid.UUID) {
	i.PropertyID = &propertyID
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
}

// AttachLease links the invoice to a lease
func (i *Invoice) AttachLease(leaseID uuid.UUID) {
	i.LeaseID = &leaseID
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
}

// Send issues the invoice to the billed party
func (i *Invoice) Send() error {
	if i.Status != InvoiceStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Only draft invoices can be sent")
	}

	i.Status = InvoiceStatusSent
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	return nil
}

// Cancel voids the invoice. Cancelled is terminal.
func (i *Invoice) Cancel() error {
	if i.Status == InvoiceStatusPaid {
		return shared.NewDomainError("INVALID_STATE", "Paid invoices cannot be cancelled")
	}
	if i.Status == InvoiceStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Invoice is already cancelled")
	}

	i.Status = InvoiceStatusCancelled
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	return nil
}

// MarkOverdue flags a sent invoice that has passed its due date
func (i *Invoice) MarkOverdue(now time.Time) error {
	if i.Status != InvoiceStatusSent {
		return shared.NewDomainError("INVALID_STATE", "Only sent invoices can become overdue")
	}
	if !now.After(i.DueDate) {
		return shared.NewDomainError("INVALID_STATE", "Invoice is not past its due date")
	}

	i.Status = InvoiceStatusOverdue
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	return nil
}

// MarkPaid settles the invoice. Invoked only by the reconciliation engine
// after it has verified the settled payment sum covers the total.
func (i *Invoice) MarkPaid(paidDate time.Time, method, reference string) error {
	if !i.Status.CanBePaid() {
		return shared.NewDomainError("INVALID_STATE", "Invoice cannot be paid from status "+string(i.Status))
	}
	if paidDate.IsZero() {
		paidDate = time.Now()
	}

	i.Status = InvoiceStatusPaid
	i.PaidDate = &paidDate
	i.PaymentMethod = method
	i.PaymentReference = reference
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	return nil
}

// SetPaymentReference records the receipt number of the most recent
// settled payment without touching the status. Used by the reference
// backfill pass.
func (i *Invoice) SetPaymentReference(reference string) {
	i.PaymentReference = reference
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
}

// IsPaid returns true if the invoice is settled
func (i *Invoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid
}

// IsSettledBy reports whether the given settled payment sum covers the total
func (i *Invoice) IsSettledBy(settledSum decimal.Decimal) bool {
	return settledSum.GreaterThanOrEqual(i.TotalAmount)
}
