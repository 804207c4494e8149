// Package billing provides domain models for invoicing and payment
// settlement in a multi-tenant property-management backend.
//
// This package implements the settlement bounded context, which is
// responsible for:
//   - Invoice lifecycle (draft, sent, paid, overdue, cancelled)
//   - Payment lifecycle (pending through approved/completed and the
//     terminal failed/cancelled/refunded/reversed states)
//   - The rule linking them: an invoice is paid exactly when the sum of
//     its approved and completed payments covers its total
//
// Key Aggregates:
//   - Invoice: a billed amount carrying a unique document number
//   - Payment: a settlement record carrying receipt and provider references
//
// Placeholder references (internally generated stand-ins used before a real
// provider identifier is known) are recognized here so that reconciliation
// can promote or supersede them.
//
// The billing domain integrates with:
//   - Numbering domain: for invoice, receipt and reference number series
//   - Rentals domain: invoices may be scoped to a property's number series
package billing
