package rentals

import (
	"context"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
)

// PropertyRepository defines the interface for property persistence
type PropertyRepository interface {
	// FindByID finds a property by ID within a company
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*Property, error)

	// FindByCode finds a property by its document-number code within a company
	FindByCode(ctx context.Context, companyID uuid.UUID, code string) (*Property, error)

	// FindAll finds all properties for a company
	FindAll(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]Property, error)

	// ExistsByCode checks if a property with the given code exists in the company
	ExistsByCode(ctx context.Context, companyID uuid.UUID, code string) (bool, error)

	// Save creates or updates a property
	Save(ctx context.Context, property *Property) error

	// SaveWithLock saves a property with optimistic locking (version check)
	SaveWithLock(ctx context.Context, property *Property) error

	// Delete deletes a property within a company
	Delete(ctx context.Context, companyID, id uuid.UUID) error

	// Count counts properties for a company
	Count(ctx context.Context, companyID uuid.UUID) (int64, error)
}

// LeaseRepository defines the interface for lease persistence.
// It also backs the lease number series: ExistingNumbers and NumberExists
// feed the allocator's scan and collision check.
type LeaseRepository interface {
	// FindByID finds a lease by ID within a company
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*Lease, error)

	// FindByNumber finds a lease by its number within a company
	FindByNumber(ctx context.Context, companyID uuid.UUID, number string) (*Lease, error)

	// FindAll finds all leases for a company
	FindAll(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]Lease, error)

	// FindByProperty finds leases attached to a property
	FindByProperty(ctx context.Context, companyID, propertyID uuid.UUID, filter shared.Filter) ([]Lease, error)

	// FindByStatus finds leases by status for a company
	FindByStatus(ctx context.Context, companyID uuid.UUID, status LeaseStatus, filter shared.Filter) ([]Lease, error)

	// ExistingNumbers returns every lease number issued for a company
	ExistingNumbers(ctx context.Context, companyID uuid.UUID) ([]string, error)

	// NumberExists checks whether an exact lease number is already taken
	NumberExists(ctx context.Context, companyID uuid.UUID, number string) (bool, error)

	// Save creates or updates a lease
	Save(ctx context.Context, lease *Lease) error

	// SaveWithLock saves a lease with optimistic locking (version check)
	SaveWithLock(ctx context.Context, lease *Lease) error

	// Delete deletes a lease within a company
	Delete(ctx context.Context, companyID, id uuid.UUID) error

	// Count counts leases for a company
	Count(ctx context.Context, companyID uuid.UUID) (int64, error)
}
