package rentals

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLease(t *testing.T) *Lease {
	t.Helper()
	lease, err := NewLease(uuid.New(), "LSE-2026-08-0001", "Alex Morgan",
		time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC),
		decimal.NewFromInt(1200))
	require.NoError(t, err)
	return lease
}

func TestNewLease(t *testing.T) {
	companyID := uuid.New()
	start := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)

	t.Run("creates an active lease", func(t *testing.T) {
		lease, err := NewLease(companyID, "LSE-OAK-2026-08-0001", "Alex Morgan", start, decimal.NewFromInt(950))
		require.NoError(t, err)

		assert.Equal(t, LeaseStatusActive, lease.Status)
		assert.Equal(t, "LSE-OAK-2026-08-0001", lease.Number)
		assert.Nil(t, lease.EndDate)
		assert.True(t, lease.IsActive())
	})

	t.Run("rejects empty number", func(t *testing.T) {
		_, err := NewLease(companyID, "", "Alex Morgan", start, decimal.Zero)
		assert.Error(t, err)
	})

	t.Run("rejects empty tenant name", func(t *testing.T) {
		_, err := NewLease(companyID, "LSE-2026-08-0001", "", start, decimal.Zero)
		assert.Error(t, err)
	})

	t.Run("rejects zero start date", func(t *testing.T) {
		_, err := NewLease(companyID, "LSE-2026-08-0001", "Alex Morgan", time.Time{}, decimal.Zero)
		assert.Error(t, err)
	})

	t.Run("rejects negative rent", func(t *testing.T) {
		_, err := NewLease(companyID, "LSE-2026-08-0001", "Alex Morgan", start, decimal.NewFromInt(-1))
		assert.Error(t, err)
	})
}

func TestLease_SetEndDate(t *testing.T) {
	lease := newTestLease(t)

	t.Run("rejects end before start", func(t *testing.T) {
		err := lease.SetEndDate(lease.StartDate.AddDate(0, 0, -1))
		assert.Error(t, err)
	})

	t.Run("accepts end after start", func(t *testing.T) {
		end := lease.StartDate.AddDate(1, 0, 0)
		require.NoError(t, lease.SetEndDate(end))
		require.NotNil(t, lease.EndDate)
		assert.True(t, lease.EndDate.Equal(end))
	})
}

func TestLease_Terminate(t *testing.T) {
	lease := newTestLease(t)

	at := lease.StartDate.AddDate(0, 6, 0)
	require.NoError(t, lease.Terminate(at))

	assert.Equal(t, LeaseStatusTerminated, lease.Status)
	require.NotNil(t, lease.EndDate)
	assert.True(t, lease.EndDate.Equal(at))

	// Terminal states admit no further transitions.
	assert.Error(t, lease.Terminate(at))
	assert.Error(t, lease.Expire())
	assert.Error(t, lease.SetEndDate(at))
}

func TestLease_Expire(t *testing.T) {
	lease := newTestLease(t)

	t.Run("requires an end date", func(t *testing.T) {
		assert.Error(t, lease.Expire())
	})

	t.Run("expires once the end date is set", func(t *testing.T) {
		require.NoError(t, lease.SetEndDate(lease.StartDate.AddDate(1, 0, 0)))
		require.NoError(t, lease.Expire())
		assert.Equal(t, LeaseStatusExpired, lease.Status)
		assert.Error(t, lease.Expire())
	})
}
