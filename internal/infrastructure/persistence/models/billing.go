package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	CompanyAggregateModel
	PropertyID       *uuid.UUID            `gorm:"type:uuid;index"`
	LeaseID          *uuid.UUID            `gorm:"type:uuid;index"`
	Number           string                `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoice_company_number,priority:2"`
	Status           billing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	TotalAmount      decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	IssueDate        time.Time             `gorm:"not null"`
	DueDate          time.Time             `gorm:"not null;index"`
	PaidDate         *time.Time
	PaymentMethod    string `gorm:"type:varchar(50)"`
	PaymentReference string `gorm:"type:varchar(100)"`
	Description      string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	return &billing.Invoice{
		CompanyAggregateRoot: m.companyAggregateRoot(),
		PropertyID:           m.PropertyID,
		LeaseID:              m.LeaseID,
		Number:               m.Number,
		Status:               m.Status,
		TotalAmount:          m.TotalAmount,
		IssueDate:            m.IssueDate,
		DueDate:              m.DueDate,
		PaidDate:             m.PaidDate,
		PaymentMethod:        m.PaymentMethod,
		PaymentReference:     m.PaymentReference,
		Description:          m.Description,
	}
}

// FromDomain populates the persistence model from a domain Invoice entity.
func (m *InvoiceModel) FromDomain(i *billing.Invoice) {
	m.FromDomainCompanyAggregateRoot(i.CompanyAggregateRoot)
	m.PropertyID = i.PropertyID
	m.LeaseID = i.LeaseID
	m.Number = i.Number
	m.Status = i.Status
	m.TotalAmount = i.TotalAmount
	m.IssueDate = i.IssueDate
	m.DueDate = i.DueDate
	m.PaidDate = i.PaidDate
	m.PaymentMethod = i.PaymentMethod
	m.PaymentReference = i.PaymentReference
	m.Description = i.Description
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(i *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(i)
	return m
}

// PaymentModel is the persistence model for the Payment aggregate root.
type PaymentModel struct {
	CompanyAggregateModel
	InvoiceID       *uuid.UUID            `gorm:"type:uuid;index"`
	Amount          decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Status          billing.PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	ReceiptNumber   string                `gorm:"type:varchar(50);not null;uniqueIndex:idx_payment_company_receipt,priority:2"`
	ReferenceNumber string                `gorm:"type:varchar(100);index"`
	TransactionID   string                `gorm:"type:varchar(100);index"`
	PaymentDate     time.Time             `gorm:"not null;index"`
	Method          string                `gorm:"type:varchar(50)"`
	Notes           string                `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *billing.Payment {
	return &billing.Payment{
		CompanyAggregateRoot: m.companyAggregateRoot(),
		InvoiceID:            m.InvoiceID,
		Amount:               m.Amount,
		Status:               m.Status,
		ReceiptNumber:        m.ReceiptNumber,
		ReferenceNumber:      m.ReferenceNumber,
		TransactionID:        m.TransactionID,
		PaymentDate:          m.PaymentDate,
		Method:               m.Method,
		Notes:                m.Notes,
	}
}

// FromDomain populates the persistence model from a domain Payment entity.
func (m *PaymentModel) FromDomain(p *billing.Payment) {
	m.FromDomainCompanyAggregateRoot(p.CompanyAggregateRoot)
	m.InvoiceID = p.InvoiceID
	m.Amount = p.Amount
	m.Status = p.Status
	m.ReceiptNumber = p.ReceiptNumber
	m.ReferenceNumber = p.ReferenceNumber
	m.TransactionID = p.TransactionID
	m.PaymentDate = p.PaymentDate
	m.Method = p.Method
	m.Notes = p.Notes
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// AuditEntryModel is the persistence model for settlement audit entries.
// Entries are append-only and never updated after creation.
type AuditEntryModel struct {
	BaseModel
	CompanyID  uuid.UUID `gorm:"type:uuid;not null;index"`
	EntityType string    `gorm:"type:varchar(50);not null;index:idx_audit_entity"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null;index:idx_audit_entity"`
	Field      string    `gorm:"type:varchar(100);not null"`
	OldValue   string    `gorm:"type:text"`
	NewValue   string    `gorm:"type:text"`
	Actor      string    `gorm:"type:varchar(100);not null"`
	OccurredAt time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditEntryModel) TableName() string {
	return "audit_entries"
}

// ToDomain converts the persistence model to a domain AuditEntry.
func (m *AuditEntryModel) ToDomain() *billing.AuditEntry {
	return &billing.AuditEntry{
		BaseEntity: m.BaseModel.ToDomain(),
		CompanyID:  m.CompanyID,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		Field:      m.Field,
		OldValue:   m.OldValue,
		NewValue:   m.NewValue,
		Actor:      m.Actor,
		OccurredAt: m.OccurredAt,
	}
}

// AuditEntryModelFromDomain creates a new persistence model from a domain AuditEntry.
func AuditEntryModelFromDomain(e *billing.AuditEntry) *AuditEntryModel {
	m := &AuditEntryModel{}
	m.FromDomainBaseEntity(e.BaseEntity)
	m.CompanyID = e.CompanyID
	m.EntityType = e.EntityType
	m.EntityID = e.EntityID
	m.Field = e.Field
	m.OldValue = e.OldValue
	m.NewValue = e.NewValue
	m.Actor = e.Actor
	m.OccurredAt = e.OccurredAt
	return m
}
