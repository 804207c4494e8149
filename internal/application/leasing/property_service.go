package leasing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/rentals"
	"github.com/propfolio/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// PropertyService orchestrates property registration. A property's derived
// code namespaces invoice and lease number series, so creation rejects a
// duplicate code inside the company up front rather than on the unique
// index.
type PropertyService struct {
	propertyRepo rentals.PropertyRepository
	logger       *zap.Logger
}

// NewPropertyService creates a new PropertyService
func NewPropertyService(propertyRepo rentals.PropertyRepository, logger *zap.Logger) *PropertyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PropertyService{propertyRepo: propertyRepo, logger: logger}
}

// CreatePropertyCommand carries the inputs for property creation
type CreatePropertyCommand struct {
	CompanyID uuid.UUID
	Name      string
	Address   string
	City      string
}

// CreateProperty derives the property code from the name and persists the
// property
func (s *PropertyService) CreateProperty(ctx context.Context, cmd CreatePropertyCommand) (*rentals.Property, error) {
	property, err := rentals.NewProperty(cmd.CompanyID, cmd.Name, cmd.Address)
	if err != nil {
		return nil, err
	}
	if cmd.City != "" {
		if err := property.SetAddress(cmd.Address, cmd.City); err != nil {
			return nil, err
		}
	}

	exists, err := s.propertyRepo.ExistsByCode(ctx, cmd.CompanyID, property.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to check property code: %w", err)
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS",
			fmt.Sprintf("A property with code %s already exists; rename to derive a distinct code", property.Code))
	}

	if err := s.propertyRepo.Save(ctx, property); err != nil {
		return nil, fmt.Errorf("failed to save property: %w", err)
	}

	s.logger.Info("Property created",
		zap.String("property_id", property.ID.String()),
		zap.String("code", property.Code),
		zap.String("company_id", cmd.CompanyID.String()))

	return property, nil
}

// GetProperty returns a property by ID
func (s *PropertyService) GetProperty(ctx context.Context, companyID, id uuid.UUID) (*rentals.Property, error) {
	return s.propertyRepo.FindByID(ctx, companyID, id)
}

// ListProperties returns properties for a company
func (s *PropertyService) ListProperties(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]rentals.Property, error) {
	return s.propertyRepo.FindAll(ctx, companyID, filter)
}

// CountProperties counts properties for a company
func (s *PropertyService) CountProperties(ctx context.Context, companyID uuid.UUID) (int64, error) {
	return s.propertyRepo.Count(ctx, companyID)
}

// ArchiveProperty archives a property, blocking new document creation
// against it
func (s *PropertyService) ArchiveProperty(ctx context.Context, companyID, id uuid.UUID) (*rentals.Property, error) {
	property, err := s.propertyRepo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := property.Archive(); err != nil {
		return nil, err
	}
	if err := s.propertyRepo.SaveWithLock(ctx, property); err != nil {
		return nil, fmt.Errorf("failed to save property: %w", err)
	}
	return property, nil
}
