package leasing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/rentals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyService_CreateProperty(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	repo := newFakePropertyRepo()
	service := NewPropertyService(repo, nil)

	t.Run("derives and persists the code", func(t *testing.T) {
		property, err := service.CreateProperty(ctx, CreatePropertyCommand{
			CompanyID: companyID,
			Name:      "Sunset Villa Estate",
			Address:   "5 Shore Rd",
			City:      "Brighton",
		})
		require.NoError(t, err)
		assert.Equal(t, "SVE", property.Code)
		assert.Equal(t, "Brighton", property.City)
	})

	t.Run("rejects a name deriving a duplicate code", func(t *testing.T) {
		_, err := service.CreateProperty(ctx, CreatePropertyCommand{
			CompanyID: companyID,
			Name:      "Silver Valley Edge",
		})
		assert.Error(t, err)
	})

	t.Run("same code is fine in another company", func(t *testing.T) {
		_, err := service.CreateProperty(ctx, CreatePropertyCommand{
			CompanyID: uuid.New(),
			Name:      "Silver Valley Edge",
		})
		assert.NoError(t, err)
	})
}

func TestPropertyService_ArchiveProperty(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	repo := newFakePropertyRepo()
	service := NewPropertyService(repo, nil)

	property, err := service.CreateProperty(ctx, CreatePropertyCommand{
		CompanyID: companyID,
		Name:      "Greenhill",
	})
	require.NoError(t, err)

	archived, err := service.ArchiveProperty(ctx, companyID, property.ID)
	require.NoError(t, err)
	assert.Equal(t, rentals.PropertyStatusArchived, archived.Status)

	_, err = service.ArchiveProperty(ctx, companyID, property.ID)
	assert.Error(t, err)
}
