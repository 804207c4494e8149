package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCompanyProvider lists the companies known to the system by scanning
// the invoice and lease tables. There is no separate company registry;
// a company exists once it has documents.
type GormCompanyProvider struct {
	db *gorm.DB
}

// NewGormCompanyProvider creates a new company provider
func NewGormCompanyProvider(db *gorm.DB) *GormCompanyProvider {
	return &GormCompanyProvider{db: db}
}

// ActiveCompanyIDs returns the distinct company IDs across invoices and leases
func (p *GormCompanyProvider) ActiveCompanyIDs(ctx context.Context) ([]uuid.UUID, error) {
	var invoiceCompanies []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("invoices").
		Distinct("company_id").
		Pluck("company_id", &invoiceCompanies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice companies: %w", err)
	}

	var leaseCompanies []uuid.UUID
	err = p.db.WithContext(ctx).
		Table("leases").
		Distinct("company_id").
		Pluck("company_id", &leaseCompanies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list lease companies: %w", err)
	}

	seen := make(map[uuid.UUID]bool, len(invoiceCompanies)+len(leaseCompanies))
	ids := make([]uuid.UUID, 0, len(invoiceCompanies)+len(leaseCompanies))
	for _, id := range invoiceCompanies {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, id := range leaseCompanies {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	return ids, nil
}
