package numbering

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ParsedNumber is the structural decomposition of a formatted document number
type ParsedNumber struct {
	Kind         DocumentKind
	PropertyCode string
	Year         int
	Month        time.Month
	Day          int // non-zero only for transaction references
	Sequence     int
	Legacy       bool
}

// Format variants, tried in priority order. Legacy invoice forms
// (two-digit year+month block, three-digit sequence) predate the current
// period encoding and must stay parseable so scope scans do not undercount.
var (
	currentScopedPattern  = regexp.MustCompile(`^(INV|LSE)-([A-Z]{1,4})-(\d{4})-(\d{2})-(\d{4})$`)
	currentPlainPattern   = regexp.MustCompile(`^(INV|RCT|LSE)-(\d{4})-(\d{2})-(\d{4})$`)
	paymentRefPattern     = regexp.MustCompile(`^PAY-(\d{4})-(\d{2})-(\d{3})$`)
	transactionRefPattern = regexp.MustCompile(`^TXN-(\d{4})(\d{2})(\d{2})-(\d{4})$`)
	legacyScopedPattern   = regexp.MustCompile(`^INV-([A-Z]{1,4})-(\d{2})(\d{2})-(\d{3})$`)
	legacyPlainPattern    = regexp.MustCompile(`^INV-(\d{2})(\d{2})-(\d{3})$`)
	prefixToKind          = map[string]DocumentKind{"INV": KindInvoice, "RCT": KindReceipt, "LSE": KindLease}
)

// Parse decomposes a formatted number back into its kind, scope and sequence.
// It is pure and deterministic; the first structurally matching format wins.
// The second return value is false when no known format matches.
func Parse(number string) (*ParsedNumber, bool) {
	if m := currentScopedPattern.FindStringSubmatch(number); m != nil {
		p := &ParsedNumber{
			Kind:         prefixToKind[m[1]],
			PropertyCode: m[2],
			Year:         atoi(m[3]),
			Month:        time.Month(atoi(m[4])),
			Sequence:     atoi(m[5]),
		}
		return checked(p, p.monthValid())
	}

	if m := currentPlainPattern.FindStringSubmatch(number); m != nil {
		p := &ParsedNumber{
			Kind:     prefixToKind[m[1]],
			Year:     atoi(m[2]),
			Month:    time.Month(atoi(m[3])),
			Sequence: atoi(m[4]),
		}
		return checked(p, p.monthValid())
	}

	if m := paymentRefPattern.FindStringSubmatch(number); m != nil {
		p := &ParsedNumber{
			Kind:     KindPaymentReference,
			Year:     atoi(m[1]),
			Month:    time.Month(atoi(m[2])),
			Sequence: atoi(m[3]),
		}
		return checked(p, p.monthValid())
	}

	if m := transactionRefPattern.FindStringSubmatch(number); m != nil {
		p := &ParsedNumber{
			Kind:     KindTransactionReference,
			Year:     atoi(m[1]),
			Month:    time.Month(atoi(m[2])),
			Day:      atoi(m[3]),
			Sequence: atoi(m[4]),
		}
		return checked(p, p.dateValid())
	}

	if m := legacyScopedPattern.FindStringSubmatch(number); m != nil {
		p := &ParsedNumber{
			Kind:         KindInvoice,
			PropertyCode: m[1],
			Year:         2000 + atoi(m[2]),
			Month:        time.Month(atoi(m[3])),
			Sequence:     atoi(m[4]),
			Legacy:       true,
		}
		return checked(p, p.monthValid())
	}

	if m := legacyPlainPattern.FindStringSubmatch(number); m != nil {
		p := &ParsedNumber{
			Kind:     KindInvoice,
			Year:     2000 + atoi(m[1]),
			Month:    time.Month(atoi(m[2])),
			Sequence: atoi(m[3]),
			Legacy:   true,
		}
		return checked(p, p.monthValid())
	}

	return nil, false
}

// IsValid reports whether the number matches any supported format
func IsValid(number string) bool {
	_, ok := Parse(number)
	return ok
}

// String re-formats the parsed number in the format it was parsed from,
// so Parse and String round-trip for every variant.
func (p *ParsedNumber) String() string {
	if p.Legacy {
		if p.PropertyCode != "" {
			return fmt.Sprintf("INV-%s-%02d%02d-%03d", p.PropertyCode, p.Year%100, int(p.Month), p.Sequence)
		}
		return fmt.Sprintf("INV-%02d%02d-%03d", p.Year%100, int(p.Month), p.Sequence)
	}
	scope := Scope{
		Kind:         p.Kind,
		Year:         p.Year,
		Month:        p.Month,
		Day:          p.Day,
		PropertyCode: p.PropertyCode,
	}
	return scope.FormatNumber(p.Sequence)
}

func (p *ParsedNumber) monthValid() bool {
	return p.Month >= time.January && p.Month <= time.December
}

func (p *ParsedNumber) dateValid() bool {
	if !p.monthValid() {
		return false
	}
	d := time.Date(p.Year, p.Month, p.Day, 0, 0, 0, 0, time.UTC)
	return d.Day() == p.Day && d.Month() == p.Month
}

func checked(p *ParsedNumber, ok bool) (*ParsedNumber, bool) {
	if !ok {
		return nil, false
	}
	return p, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
