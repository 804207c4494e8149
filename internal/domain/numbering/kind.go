package numbering

// DocumentKind identifies the numbered document series a value belongs to.
// Each kind owns an independent sequence per scope.
type DocumentKind string

const (
	KindInvoice              DocumentKind = "INVOICE"
	KindReceipt              DocumentKind = "RECEIPT"
	KindPaymentReference     DocumentKind = "PAYMENT_REFERENCE"
	KindTransactionReference DocumentKind = "TRANSACTION_REFERENCE"
	KindLease                DocumentKind = "LEASE"
)

// IsValid checks if the kind is a known DocumentKind
func (k DocumentKind) IsValid() bool {
	switch k {
	case KindInvoice, KindReceipt, KindPaymentReference, KindTransactionReference, KindLease:
		return true
	}
	return false
}

// String returns the string representation of DocumentKind
func (k DocumentKind) String() string {
	return string(k)
}

// Prefix returns the literal prefix used in formatted numbers of this kind
func (k DocumentKind) Prefix() string {
	switch k {
	case KindInvoice:
		return "INV"
	case KindReceipt:
		return "RCT"
	case KindPaymentReference:
		return "PAY"
	case KindTransactionReference:
		return "TXN"
	case KindLease:
		return "LSE"
	}
	return ""
}

// SequenceWidth returns the zero-padded sequence width of the current format
func (k DocumentKind) SequenceWidth() int {
	if k == KindPaymentReference {
		return 3
	}
	return 4
}

// SupportsPropertyCode reports whether numbers of this kind may carry a
// property short code segment. Only invoice and lease series are ever
// requested per property.
func (k DocumentKind) SupportsPropertyCode() bool {
	return k == KindInvoice || k == KindLease
}
