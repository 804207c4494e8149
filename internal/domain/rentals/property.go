package rentals

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/numbering"
	"github.com/propfolio/backend/internal/domain/shared"
)

// PropertyStatus represents the status of a property
type PropertyStatus string

const (
	PropertyStatusActive   PropertyStatus = "active"
	PropertyStatusArchived PropertyStatus = "archived"
)

// Property represents a rental property owned or managed by a company.
// It is the aggregate root for property operations. The short code is
// derived from the name at creation and then frozen: issued document
// numbers embed it, so renaming the property never changes the code.
type Property struct {
	shared.CompanyAggregateRoot
	Name    string         `gorm:"type:varchar(200);not null"`
	Code    string         `gorm:"type:varchar(4);not null;uniqueIndex:idx_property_company_code,priority:2"`
	Address string         `gorm:"type:text"`
	City    string         `gorm:"type:varchar(100)"`
	Status  PropertyStatus `gorm:"type:varchar(20);not null;default:'active'"`
	Notes   string         `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Property) TableName() string {
	return "properties"
}

// NewProperty creates a new property and derives its document-number code
// from the name.
func NewProperty(companyID uuid.UUID, name, address string) (*Property, error) {
	if err := validatePropertyName(name); err != nil {
		return nil, err
	}

	code := numbering.DerivePropertyCode(name)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Property name must contain at least one letter")
	}

	return &Property{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Name:                 strings.TrimSpace(name),
		Code:                 code,
		Address:              address,
		Status:               PropertyStatusActive,
	}, nil
}

// Rename updates the display name. The code is intentionally left untouched.
func (p *Property) Rename(name string) error {
	if err := validatePropertyName(name); err != nil {
		return err
	}

	p.Name = strings.TrimSpace(name)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// SetAddress sets the property's address information
func (p *Property) SetAddress(address, city string) error {
	if address != "" && len(address) > 500 {
		return shared.NewDomainError("INVALID_ADDRESS", "Address cannot exceed 500 characters")
	}
	if city != "" && len(city) > 100 {
		return shared.NewDomainError("INVALID_CITY", "City cannot exceed 100 characters")
	}

	p.Address = address
	p.City = city
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// SetNotes sets the property's notes
func (p *Property) SetNotes(notes string) {
	p.Notes = notes
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// Archive archives the property. Archived properties keep their code and
// their issued documents; only new document creation is blocked.
func (p *Property) Archive() error {
	if p.Status == PropertyStatusArchived {
		return shared.NewDomainError("ALREADY_ARCHIVED", "Property is already archived")
	}

	p.Status = PropertyStatusArchived
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// Restore re-activates an archived property
func (p *Property) Restore() error {
	if p.Status == PropertyStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Property is already active")
	}

	p.Status = PropertyStatusActive
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// IsActive returns true if the property is active
func (p *Property) IsActive() bool {
	return p.Status == PropertyStatusActive
}

func validatePropertyName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Property name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Property name cannot exceed 200 characters")
	}
	return nil
}
