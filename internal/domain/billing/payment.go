package billing

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusApproved  PaymentStatus = "approved"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	PaymentStatusReversed  PaymentStatus = "reversed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// IsValid checks if the payment status is valid
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusApproved, PaymentStatusCompleted,
		PaymentStatusFailed, PaymentStatusRefunded, PaymentStatusReversed, PaymentStatusCancelled:
		return true
	}
	return false
}

// CountsTowardSettlement checks whether payments in this status count
// toward an invoice's settled sum
func (s PaymentStatus) CountsTowardSettlement() bool {
	return s == PaymentStatusApproved || s == PaymentStatusCompleted
}

// IsTerminal checks if the status admits no further transitions
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusFailed, PaymentStatusRefunded, PaymentStatusReversed, PaymentStatusCancelled:
		return true
	}
	return false
}

// placeholderPattern recognizes internally generated stand-in references:
// a fixed-length upper alphanumeric token, or the prefix used for in-flight
// internal references. Real provider identifiers never match either form.
var placeholderPattern = regexp.MustCompile(`^[A-Z0-9]{10}$`)

// PlaceholderPrefix marks system-generated in-flight references
const PlaceholderPrefix = "PENDING-"

// IsPlaceholderReference reports whether a reference is an internal
// stand-in rather than an external provider identifier.
func IsPlaceholderReference(reference string) bool {
	if reference == "" {
		return false
	}
	if strings.HasPrefix(reference, PlaceholderPrefix) {
		return true
	}
	return placeholderPattern.MatchString(reference)
}

const placeholderAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewPlaceholderReference generates a fresh internal stand-in reference.
// The token matches placeholderPattern so reconciliation can later
// recognize and replace it.
func NewPlaceholderReference() string {
	var b strings.Builder
	b.Grow(10)
	max := big.NewInt(int64(len(placeholderAlphabet)))
	for i := 0; i < 10; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform source is broken;
			// fall back to a prefix-marked reference which is also
			// recognized as a placeholder.
			return PlaceholderPrefix + uuid.NewString()[:8]
		}
		b.WriteByte(placeholderAlphabet[n.Int64()])
	}
	return b.String()
}

// Payment represents a settlement record against an invoice. It is the
// aggregate root for payment operations. ReceiptNumber is unique per
// company; ReferenceNumber and TransactionID may start life as internal
// placeholders and be replaced during reconciliation.
type Payment struct {
	shared.CompanyAggregateRoot
	InvoiceID       *uuid.UUID      `gorm:"type:uuid;index"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Status          PaymentStatus   `gorm:"type:varchar(20);not null;default:'pending';index"`
	ReceiptNumber   string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_payment_company_receipt,priority:2"`
	ReferenceNumber string          `gorm:"type:varchar(100);index"`
	TransactionID   string          `gorm:"type:varchar(100);index"`
	PaymentDate     time.Time       `gorm:"not null;index"`
	Method          string          `gorm:"type:varchar(50)"`
	Notes           string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// NewPayment creates a new pending payment
func NewPayment(companyID uuid.UUID, receiptNumber string, amount decimal.Decimal, paymentDate time.Time) (*Payment, error) {
	if receiptNumber == "" {
		return nil, shared.NewDomainError("INVALID_RECEIPT_NUMBER", "Receipt number cannot be empty")
	}
	if amount.IsNegative() || amount.IsZero() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	return &Payment{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Amount:               amount,
		Status:               PaymentStatusPending,
		ReceiptNumber:        receiptNumber,
		PaymentDate:          paymentDate,
	}, nil
}

// AttachInvoice links the payment to the invoice it settles
func (p *Payment) AttachInvoice(invoiceID uuid.UUID) {
	p.InvoiceID = &invoiceID
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// SetReferences sets the provider-facing identifiers
func (p *Payment) SetReferences(referenceNumber, transactionID string) {
	p.ReferenceNumber = referenceNumber
	p.TransactionID = transactionID
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// SetMethod sets the payment method
func (p *Payment) SetMethod(method string) error {
	if len(method) > 50 {
		return shared.NewDomainError("INVALID_METHOD", "Payment method cannot exceed 50 characters")
	}

	p.Method = method
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// ReplaceReceiptNumber swaps a placeholder receipt number for a real one
// from the receipt series. Rejected when the current number is not a
// placeholder: issued receipt numbers are immutable.
func (p *Payment) ReplaceReceiptNumber(receiptNumber string) error {
	if receiptNumber == "" {
		return shared.NewDomainError("INVALID_RECEIPT_NUMBER", "Receipt number cannot be empty")
	}
	if !p.HasPlaceholderReceipt() {
		return shared.NewDomainError("INVALID_STATE", "Only placeholder receipt numbers can be replaced")
	}

	p.ReceiptNumber = receiptNumber
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// Approve promotes a pending payment so it counts toward settlement
func (p *Payment) Approve() error {
	if p.Status != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending payments can be approved")
	}

	p.Status = PaymentStatusApproved
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// Complete finalizes an approved or pending payment
func (p *Payment) Complete() error {
	if p.Status != PaymentStatusPending && p.Status != PaymentStatusApproved {
		return shared.NewDomainError("INVALID_STATE", "Only pending or approved payments can be completed")
	}

	p.Status = PaymentStatusCompleted
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// Fail marks a pending payment as failed
func (p *Payment) Fail(reason string) error {
	if p.Status != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending payments can fail")
	}

	p.Status = PaymentStatusFailed
	p.appendNote(reason)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// Cancel voids a pending payment, annotating why. Superseded placeholder
// payments are cancelled, never deleted, so the audit trail survives.
func (p *Payment) Cancel(note string) error {
	if p.Status != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending payments can be cancelled")
	}

	p.Status = PaymentStatusCancelled
	p.appendNote(note)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// Refund reverses a settled payment at the payer's initiative
func (p *Payment) Refund(note string) error {
	if !p.Status.CountsTowardSettlement() {
		return shared.NewDomainError("INVALID_STATE", "Only approved or completed payments can be refunded")
	}

	p.Status = PaymentStatusRefunded
	p.appendNote(note)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// Reverse backs out a settled payment at the provider's initiative.
// A compensating payment record is created separately when needed.
func (p *Payment) Reverse(note string) error {
	if !p.Status.CountsTowardSettlement() {
		return shared.NewDomainError("INVALID_STATE", "Only approved or completed payments can be reversed")
	}

	p.Status = PaymentStatusReversed
	p.appendNote(note)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// IsPending returns true if the payment awaits reconciliation
func (p *Payment) IsPending() bool {
	return p.Status == PaymentStatusPending
}

// IsSettled returns true if the payment counts toward settlement
func (p *Payment) IsSettled() bool {
	return p.Status.CountsTowardSettlement()
}

// HasPlaceholderReceipt reports whether the receipt number is an internal
// stand-in awaiting a real number from the receipt series
func (p *Payment) HasPlaceholderReceipt() bool {
	return IsPlaceholderReference(p.ReceiptNumber)
}

// MatchesProviderReference reports whether the payment carries the given
// external reference as either its transaction ID or receipt number
func (p *Payment) MatchesProviderReference(reference string) bool {
	return reference != "" && (p.TransactionID == reference || p.ReceiptNumber == reference)
}

func (p *Payment) appendNote(note string) {
	if note == "" {
		return
	}
	if p.Notes == "" {
		p.Notes = note
		return
	}
	p.Notes = p.Notes + "\n" + note
}
