package rentals

import (
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LeaseStatus represents the status of a lease
type LeaseStatus string

const (
	LeaseStatusActive     LeaseStatus = "active"
	LeaseStatusTerminated LeaseStatus = "terminated" // Ended early by either party
	LeaseStatusExpired    LeaseStatus = "expired"    // Ran to its agreed end date
)

// IsValid checks if the lease status is valid
func (s LeaseStatus) IsValid() bool {
	switch s {
	case LeaseStatusActive, LeaseStatusTerminated, LeaseStatusExpired:
		return true
	}
	return false
}

// Lease represents a rental agreement for a property. It is the aggregate
// root for lease operations. The lease number is allocated from the lease
// series scoped by the start date's period.
type Lease struct {
	shared.CompanyAggregateRoot
	PropertyID  *uuid.UUID      `gorm:"type:uuid;index"`
	Number      string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_lease_company_number,priority:2"`
	TenantName  string          `gorm:"type:varchar(200);not null"` // The renting party
	UnitLabel   string          `gorm:"type:varchar(100)"`
	StartDate   time.Time       `gorm:"not null"`
	EndDate     *time.Time      `gorm:""`
	MonthlyRent decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status      LeaseStatus     `gorm:"type:varchar(20);not null;default:'active'"`
	Notes       string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Lease) TableName() string {
	return "leases"
}

// NewLease creates a new active lease with an already-allocated number
func NewLease(companyID uuid.UUID, number, tenantName string, startDate time.Time, monthlyRent decimal.Decimal) (*Lease, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Lease number cannot be empty")
	}
	if tenantName == "" {
		return nil, shared.NewDomainError("INVALID_TENANT_NAME", "Tenant name cannot be empty")
	}
	if len(tenantName) > 200 {
		return nil, shared.NewDomainError("INVALID_TENANT_NAME", "Tenant name cannot exceed 200 characters")
	}
	if startDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_START_DATE", "Lease start date is required")
	}
	if monthlyRent.IsNegative() {
		return nil, shared.NewDomainError("INVALID_RENT", "Monthly rent cannot be negative")
	}

	return &Lease{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Number:               number,
		TenantName:           tenantName,
		StartDate:            startDate,
		MonthlyRent:          monthlyRent,
		Status:               LeaseStatusActive,
	}, nil
}

// AttachProperty links the lease to a property
func (l *Lease) AttachProperty(propertyID uuid.UUID) {
	l.PropertyID = &propertyID
	l.UpdatedAt = time.Now()
	l.IncrementVersion()
}

// SetUnitLabel sets the unit designation within the property
func (l *Lease) SetUnitLabel(label string) error {
	if len(label) > 100 {
		return shared.NewDomainError("INVALID_UNIT_LABEL", "Unit label cannot exceed 100 characters")
	}

	l.UnitLabel = label
	l.UpdatedAt = time.Now()
	l.IncrementVersion()

	return nil
}

// SetEndDate sets the agreed end date. It must not precede the start date.
func (l *Lease) SetEndDate(endDate time.Time) error {
	if l.Status != LeaseStatusActive {
		return shared.NewDomainError("INVALID_STATUS", "Only active leases can change their end date")
	}
	if endDate.Before(l.StartDate) {
		return shared.NewDomainError("INVALID_END_DATE", "Lease end date cannot precede the start date")
	}

	l.EndDate = &endDate
	l.UpdatedAt = time.Now()
	l.IncrementVersion()

	return nil
}

// Terminate ends the lease before its agreed end date
func (l *Lease) Terminate(at time.Time) error {
	if l.Status != LeaseStatusActive {
		return shared.NewDomainError("INVALID_STATUS", "Only active leases can be terminated")
	}
	if at.Before(l.StartDate) {
		return shared.NewDomainError("INVALID_END_DATE", "Termination date cannot precede the start date")
	}

	l.Status = LeaseStatusTerminated
	l.EndDate = &at
	l.UpdatedAt = time.Now()
	l.IncrementVersion()

	return nil
}

// Expire marks the lease as having run to its agreed end date
func (l *Lease) Expire() error {
	if l.Status != LeaseStatusActive {
		return shared.NewDomainError("INVALID_STATUS", "Only active leases can expire")
	}
	if l.EndDate == nil {
		return shared.NewDomainError("INVALID_STATE", "Lease has no end date to expire against")
	}

	l.Status = LeaseStatusExpired
	l.UpdatedAt = time.Now()
	l.IncrementVersion()

	return nil
}

// SetNotes sets the lease notes
func (l *Lease) SetNotes(notes string) {
	l.Notes = notes
	l.UpdatedAt = time.Now()
	l.IncrementVersion()
}

// IsActive returns true if the lease is active
func (l *Lease) IsActive() bool {
	return l.Status == LeaseStatusActive
}
