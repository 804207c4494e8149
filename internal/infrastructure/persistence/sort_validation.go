package persistence

import (
	"strings"

	"github.com/propfolio/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// applySort orders a query by the filter's sort options, falling back to
// defaultField when the requested column is not whitelisted.
func applySort(query *gorm.DB, filter shared.Filter, allowedFields map[string]bool, defaultField string) *gorm.DB {
	field := ValidateSortField(filter.OrderBy, allowedFields, defaultField)
	return query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
}

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// InvoiceSortFields contains allowed sort fields for invoices
var InvoiceSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"number":       true,
	"status":       true,
	"total_amount": true,
	"issue_date":   true,
	"due_date":     true,
	"paid_date":    true,
}

// PaymentSortFields contains allowed sort fields for payments
var PaymentSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"receipt_number": true,
	"status":         true,
	"amount":         true,
	"payment_date":   true,
	"method":         true,
}

// PropertySortFields contains allowed sort fields for properties
var PropertySortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"code":       true,
	"city":       true,
	"status":     true,
}

// LeaseSortFields contains allowed sort fields for leases
var LeaseSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"number":       true,
	"tenant_name":  true,
	"start_date":   true,
	"end_date":     true,
	"monthly_rent": true,
	"status":       true,
}
