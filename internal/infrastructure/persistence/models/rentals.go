package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/rentals"
	"github.com/shopspring/decimal"
)

// PropertyModel is the persistence model for the Property aggregate root.
type PropertyModel struct {
	CompanyAggregateModel
	Name    string                 `gorm:"type:varchar(200);not null"`
	Code    string                 `gorm:"type:varchar(4);not null;uniqueIndex:idx_property_company_code,priority:2"`
	Address string                 `gorm:"type:text"`
	City    string                 `gorm:"type:varchar(100)"`
	Status  rentals.PropertyStatus `gorm:"type:varchar(20);not null;default:'active'"`
	Notes   string                 `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PropertyModel) TableName() string {
	return "properties"
}

// ToDomain converts the persistence model to a domain Property entity.
func (m *PropertyModel) ToDomain() *rentals.Property {
	return &rentals.Property{
		CompanyAggregateRoot: m.companyAggregateRoot(),
		Name:                 m.Name,
		Code:                 m.Code,
		Address:              m.Address,
		City:                 m.City,
		Status:               m.Status,
		Notes:                m.Notes,
	}
}

// FromDomain populates the persistence model from a domain Property entity.
func (m *PropertyModel) FromDomain(p *rentals.Property) {
	m.FromDomainCompanyAggregateRoot(p.CompanyAggregateRoot)
	m.Name = p.Name
	m.Code = p.Code
	m.Address = p.Address
	m.City = p.City
	m.Status = p.Status
	m.Notes = p.Notes
}

// PropertyModelFromDomain creates a new persistence model from a domain Property.
func PropertyModelFromDomain(p *rentals.Property) *PropertyModel {
	m := &PropertyModel{}
	m.FromDomain(p)
	return m
}

// LeaseModel is the persistence model for the Lease aggregate root.
type LeaseModel struct {
	CompanyAggregateModel
	PropertyID  *uuid.UUID          `gorm:"type:uuid;index"`
	Number      string              `gorm:"type:varchar(50);not null;uniqueIndex:idx_lease_company_number,priority:2"`
	TenantName  string              `gorm:"type:varchar(200);not null"`
	UnitLabel   string              `gorm:"type:varchar(100)"`
	StartDate   time.Time           `gorm:"not null"`
	EndDate     *time.Time
	MonthlyRent decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	Status      rentals.LeaseStatus `gorm:"type:varchar(20);not null;default:'active';index"`
	Notes       string              `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (LeaseModel) TableName() string {
	return "leases"
}

// ToDomain converts the persistence model to a domain Lease entity.
func (m *LeaseModel) ToDomain() *rentals.Lease {
	return &rentals.Lease{
		CompanyAggregateRoot: m.companyAggregateRoot(),
		PropertyID:           m.PropertyID,
		Number:               m.Number,
		TenantName:           m.TenantName,
		UnitLabel:            m.UnitLabel,
		StartDate:            m.StartDate,
		EndDate:              m.EndDate,
		MonthlyRent:          m.MonthlyRent,
		Status:               m.Status,
		Notes:                m.Notes,
	}
}

// FromDomain populates the persistence model from a domain Lease entity.
func (m *LeaseModel) FromDomain(l *rentals.Lease) {
	m.FromDomainCompanyAggregateRoot(l.CompanyAggregateRoot)
	m.PropertyID = l.PropertyID
	m.Number = l.Number
	m.TenantName = l.TenantName
	m.UnitLabel = l.UnitLabel
	m.StartDate = l.StartDate
	m.EndDate = l.EndDate
	m.MonthlyRent = l.MonthlyRent
	m.Status = l.Status
	m.Notes = l.Notes
}

// LeaseModelFromDomain creates a new persistence model from a domain Lease.
func LeaseModelFromDomain(l *rentals.Lease) *LeaseModel {
	m := &LeaseModel{}
	m.FromDomain(l)
	return m
}
