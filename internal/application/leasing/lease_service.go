package leasing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/numbering"
	"github.com/propfolio/backend/internal/domain/rentals"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// leaseNumberStore adapts the lease repository to the allocator's
// NumberStore port for the lease series.
type leaseNumberStore struct {
	repo rentals.LeaseRepository
}

func (s *leaseNumberStore) ExistingNumbers(ctx context.Context, companyID uuid.UUID, kind numbering.DocumentKind) ([]string, error) {
	if kind != numbering.KindLease {
		return nil, shared.NewDomainError("INVALID_KIND", "Lease store only serves the lease series")
	}
	return s.repo.ExistingNumbers(ctx, companyID)
}

func (s *leaseNumberStore) NumberExists(ctx context.Context, companyID uuid.UUID, kind numbering.DocumentKind, number string) (bool, error) {
	if kind != numbering.KindLease {
		return false, shared.NewDomainError("INVALID_KIND", "Lease store only serves the lease series")
	}
	return s.repo.NumberExists(ctx, companyID, number)
}

// LeaseService orchestrates lease creation and lifecycle operations.
// Lease numbers come from the lease series scoped by the start date's
// period, optionally namespaced by the property's code.
type LeaseService struct {
	leaseRepo    rentals.LeaseRepository
	propertyRepo rentals.PropertyRepository
	allocator    *numbering.Allocator
	logger       *zap.Logger
}

// NewLeaseService creates a new LeaseService
func NewLeaseService(leaseRepo rentals.LeaseRepository, propertyRepo rentals.PropertyRepository, logger *zap.Logger) *LeaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaseService{
		leaseRepo:    leaseRepo,
		propertyRepo: propertyRepo,
		allocator:    numbering.NewAllocator(&leaseNumberStore{repo: leaseRepo}, logger),
		logger:       logger,
	}
}

// CreateLeaseCommand carries the inputs for lease creation
type CreateLeaseCommand struct {
	CompanyID      uuid.UUID
	PropertyID     *uuid.UUID
	TenantName     string
	UnitLabel      string
	StartDate      time.Time
	EndDate        *time.Time
	MonthlyRent    decimal.Decimal
	PropertyScoped bool // Number from the property's sub-series
}

// CreateLease allocates the next lease number and persists a new lease
func (s *LeaseService) CreateLease(ctx context.Context, cmd CreateLeaseCommand) (*rentals.Lease, error) {
	if cmd.StartDate.IsZero() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Lease start date is required")
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
			return nil, shared.NewDomainError("INVALID_STATE", "Archived properties cannot receive new leases")
		}
		propertyCode = property.Code
	}

	scope, err := numbering.ResolveScope(cmd.CompanyID, numbering.KindLease, cmd.StartDate, propertyCode)
	if err != nil {
		return nil, err
	}

	number, err := s.allocator.Allocate(ctx, scope)
	if err != nil {
		return nil, err
	}

	lease, err := rentals.NewLease(cmd.CompanyID, number, cmd.TenantName, cmd.StartDate, cmd.MonthlyRent)
	if err != nil {
		return nil, err
	}
	if cmd.PropertyID != nil {
		lease.AttachProperty(*cmd.PropertyID)
	}
	if cmd.UnitLabel != "" {
		if err := lease.SetUnitLabel(cmd.UnitLabel); err != nil {
			return nil, err
		}
	}
	if cmd.EndDate != nil {
		if err := lease.SetEndDate(*cmd.EndDate); err != nil {
			return nil, err
		}
	}

	if err := s.leaseRepo.Save(ctx, lease); err != nil {
		return nil, fmt.Errorf("failed to save lease: %w", err)
	}

	s.logger.Info("Lease created",
		zap.String("lease_id", lease.ID.String()),
		zap.String("number", lease.Number),
		zap.String("company_id", cmd.CompanyID.String()))

	return lease, nil
}

// GetLease returns a lease by ID
func (s *LeaseService) GetLease(ctx context.Context, companyID, id uuid.UUID) (*rentals.Lease, error) {
	return s.leaseRepo.FindByID(ctx, companyID, id)
}

// ListLeases returns leases for a company
func (s *LeaseService) ListLeases(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]rentals.Lease, error) {
	return s.leaseRepo.FindAll(ctx, companyID, filter)
}

// CountLeases counts leases for a company
func (s *LeaseService) CountLeases(ctx context.Context, companyID uuid.UUID) (int64, error) {
	return s.leaseRepo.Count(ctx, companyID)
}

// TerminateLease ends a lease before its agreed end date
func (s *LeaseService) TerminateLease(ctx context.Context, companyID, id uuid.UUID, at time.Time) (*rentals.Lease, error) {
	lease, err := s.leaseRepo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if at.IsZero() {
		at = time.Now()
	}
	if err := lease.Terminate(at); err != nil {
		return nil, err
	}
	if err := s.leaseRepo.SaveWithLock(ctx, lease); err != nil {
		return nil, fmt.Errorf("failed to save lease: %w", err)
	}
	return lease, nil
}

// ExpireLeases sweeps active leases whose end date has passed and marks
// them expired. Per-lease failures are logged and skipped.
func (s *LeaseService) ExpireLeases(ctx context.Context, companyID uuid.UUID, now time.Time) (int, error) {
	leases, err := s.leaseRepo.FindByStatus(ctx, companyID, rentals.LeaseStatusActive, shared.Filter{})
	if err != nil {
		return 0, fmt.Errorf("failed to load active leases: %w", err)
	}

	expired := 0
	for i := range leases {
		lease := &leases[i]
		if lease.EndDate == nil || lease.EndDate.After(now) {
			continue
		}
		if err := lease.Expire(); err != nil {
			continue
		}
		if err := s.leaseRepo.SaveWithLock(ctx, lease); err != nil {
			s.logger.Warn("Failed to expire lease",
				zap.String("lease_id", lease.ID.String()),
				zap.Error(err))
			continue
		}
		expired++
	}
	return expired, nil
}
