package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInvoice(t *testing.T) *Invoice {
	t.Helper()
	issue := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	invoice, err := NewInvoice(uuid.New(), "INV-2026-08-0001", decimal.NewFromInt(1000), issue, issue.AddDate(0, 1, 0))
	require.NoError(t, err)
	return invoice
}

func TestNewInvoice(t *testing.T) {
	companyID := uuid.New()
	issue := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)

	t.Run("creates a draft invoice", func(t *testing.T) {
		invoice, err := NewInvoice(companyID, "INV-2026-08-0001", decimal.NewFromInt(1000), issue, issue.AddDate(0, 1, 0))
		require.NoError(t, err)

		assert.Equal(t, InvoiceStatusDraft, invoice.Status)
		assert.Equal(t, "INV-2026-08-0001", invoice.Number)
		assert.Nil(t, invoice.PaidDate)
	})

	t.Run("defaults due date to one month after issue", func(t *testing.T) {
		invoice, err := NewInvoice(companyID, "INV-2026-08-0002", decimal.NewFromInt(1000), issue, time.Time{})
		require.NoError(t, err)
		assert.True(t, invoice.DueDate.Equal(issue.AddDate(0, 1, 0)))
	})

	t.Run("rejects empty number", func(t *testing.T) {
		_, err := NewInvoice(companyID, "", decimal.NewFromInt(1000), issue, time.Time{})
		assert.Error(t, err)
	})

	t.Run("rejects non-positive total", func(t *testing.T) {
		_, err := NewInvoice(companyID, "INV-2026-08-0003", decimal.Zero, issue, time.Time{})
		assert.Error(t, err)

		_, err = NewInvoice(companyID, "INV-2026-08-0003", decimal.NewFromInt(-5), issue, time.Time{})
		assert.Error(t, err)
	})

	t.Run("rejects due date before issue date", func(t *testing.T) {
		_, err := NewInvoice(companyID, "INV-2026-08-0004", decimal.NewFromInt(1000), issue, issue.AddDate(0, 0, -1))
		assert.Error(t, err)
	})
}

func TestInvoice_Send(t *testing.T) {
	invoice := newTestInvoice(t)

	require.NoError(t, invoice.Send())
	assert.Equal(t, InvoiceStatusSent, invoice.Status)

	assert.Error(t, invoice.Send())
}

func TestInvoice_Cancel(t *testing.T) {
	t.Run("cancels a draft", func(t *testing.T) {
		invoice := newTestInvoice(t)
		require.NoError(t, invoice.Cancel())
		assert.Equal(t, InvoiceStatusCancelled, invoice.Status)
		assert.Error(t, invoice.Cancel())
	})

	t.Run("cancels a sent invoice", func(t *testing.T) {
		invoice := newTestInvoice(t)
		require.NoError(t, invoice.Send())
		require.NoError(t, invoice.Cancel())
	})

	t.Run("paid invoices cannot be cancelled", func(t *testing.T) {
		invoice := newTestInvoice(t)
		require.NoError(t, invoice.Send())
		require.NoError(t, invoice.MarkPaid(time.Now(), "bank_transfer", "RCT-2026-08-0001"))
		assert.Error(t, invoice.Cancel())
	})
}

func TestInvoice_MarkOverdue(t *testing.T) {
	invoice := newTestInvoice(t)

	t.Run("requires sent status", func(t *testing.T) {
		assert.Error(t, invoice.MarkOverdue(invoice.DueDate.AddDate(0, 0, 1)))
	})

	t.Run("requires the due date to have passed", func(t *testing.T) {
		require.NoError(t, invoice.Send())
		assert.Error(t, invoice.MarkOverdue(invoice.DueDate))
	})

	t.Run("flags a sent invoice past due", func(t *testing.T) {
		require.NoError(t, invoice.MarkOverdue(invoice.DueDate.AddDate(0, 0, 1)))
		assert.Equal(t, InvoiceStatusOverdue, invoice.Status)
	})
}

func TestInvoice_MarkPaid(t *testing.T) {
	t.Run("pays a sent invoice", func(t *testing.T) {
		invoice := newTestInvoice(t)
		require.NoError(t, invoice.Send())

		paidAt := time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC)
		require.NoError(t, invoice.MarkPaid(paidAt, "card", "RCT-2026-08-0007"))

		assert.True(t, invoice.IsPaid())
		require.NotNil(t, invoice.PaidDate)
		assert.True(t, invoice.PaidDate.Equal(paidAt))
		assert.Equal(t, "card", invoice.PaymentMethod)
		assert.Equal(t, "RCT-2026-08-0007", invoice.PaymentReference)
	})

	t.Run("pays an overdue invoice", func(t *testing.T) {
		invoice := newTestInvoice(t)
		require.NoError(t, invoice.Send())
		require.NoError(t, invoice.MarkOverdue(invoice.DueDate.AddDate(0, 0, 1)))
		require.NoError(t, invoice.MarkPaid(time.Now(), "cash", "RCT-2026-08-0008"))
	})

	t.Run("drafts cannot be paid", func(t *testing.T) {
		invoice := newTestInvoice(t)
		assert.Error(t, invoice.MarkPaid(time.Now(), "cash", "RCT-2026-08-0009"))
	})

	t.Run("cancelled invoices cannot be paid", func(t *testing.T) {
		invoice := newTestInvoice(t)
		require.NoError(t, invoice.Cancel())
		assert.Error(t, invoice.MarkPaid(time.Now(), "cash", "RCT-2026-08-0010"))
	})
}

func TestInvoice_IsSettledBy(t *testing.T) {
	invoice := newTestInvoice(t)

	assert.False(t, invoice.IsSettledBy(decimal.NewFromInt(999)))
	assert.True(t, invoice.IsSettledBy(decimal.NewFromInt(1000)))
	assert.True(t, invoice.IsSettledBy(decimal.NewFromInt(1500)))
}
