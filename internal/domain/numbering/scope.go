package numbering

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
)

// propertyCodePattern matches a derived property short code
var propertyCodePattern = regexp.MustCompile(`^[A-Z]{1,4}$`)

// Scope is the tuple numbering uniqueness is relative to: company, document
// kind, calendar period and an optional property short code. There is no
// persisted counter per scope; the current sequence is always derived from
// the documents that exist in it.
type Scope struct {
	CompanyID    uuid.UUID
	Kind         DocumentKind
	Year         int
	Month        time.Month
	Day          int // only rendered for transaction references
	PropertyCode string
}

// ResolveScope derives the numbering scope from a document's context.
// The period is the calendar month of the reference date (issue date for
// invoices, start date for leases). Inputs are validated before any store
// access.
func ResolveScope(companyID uuid.UUID, kind DocumentKind, at time.Time, propertyCode string) (Scope, error) {
	if at.IsZero() {
		return Scope{}, shared.NewDomainError("VALIDATION_ERROR", "Reference date is required")
	}

	scope := Scope{
		CompanyID:    companyID,
		Kind:         kind,
		Year:         at.Year(),
		Month:        at.Month(),
		Day:          at.Day(),
		PropertyCode: propertyCode,
	}
	if err := scope.Validate(); err != nil {
		return Scope{}, err
	}
	return scope, nil
}

// Validate checks the scope's fields without touching the store
func (s Scope) Validate() error {
	if s.CompanyID == uuid.Nil {
		return shared.NewDomainError("VALIDATION_ERROR", "Company ID cannot be empty")
	}
	if !s.Kind.IsValid() {
		return shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Unknown document kind %q", string(s.Kind)))
	}
	if s.Month < time.January || s.Month > time.December || s.Year <= 0 {
		return shared.NewDomainError("VALIDATION_ERROR", "Scope period is invalid")
	}
	if s.PropertyCode != "" {
		if !s.Kind.SupportsPropertyCode() {
			return shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("%s numbers cannot be property-scoped", string(s.Kind)))
		}
		if !propertyCodePattern.MatchString(s.PropertyCode) {
			return shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Invalid property code %q", s.PropertyCode))
		}
	}
	return nil
}

// FormatNumber renders the candidate number for a sequence within this scope
// using the kind's current format.
func (s Scope) FormatNumber(sequence int) string {
	switch s.Kind {
	case KindTransactionReference:
		return fmt.Sprintf("%s-%04d%02d%02d-%0*d", s.Kind.Prefix(), s.Year, int(s.Month), s.Day, s.Kind.SequenceWidth(), sequence)
	default:
		if s.PropertyCode != "" {
			return fmt.Sprintf("%s-%s-%04d-%02d-%0*d", s.Kind.Prefix(), s.PropertyCode, s.Year, int(s.Month), s.Kind.SequenceWidth(), sequence)
		}
		return fmt.Sprintf("%s-%04d-%02d-%0*d", s.Kind.Prefix(), s.Year, int(s.Month), s.Kind.SequenceWidth(), sequence)
	}
}

// Matches reports whether a parsed number belongs to this scope: same kind,
// same calendar period and the same property sub-scope. Legacy formats
// compare equal when they decode to the same period.
func (s Scope) Matches(p *ParsedNumber) bool {
	if p == nil || p.Kind != s.Kind {
		return false
	}
	return p.Year == s.Year && p.Month == s.Month && p.PropertyCode == s.PropertyCode
}

// DerivePropertyCode derives a property's short code from its name.
// The rule is fixed so historical numbers stay parseable:
//   - one word: first three letters
//   - two words: first letter of each word plus the second letter of word two
//   - three or more words: first letter of the first three words
//
// Non-letter runes are stripped before derivation; the result is uppercased
// and never longer than four letters.
func DerivePropertyCode(name string) string {
	words := splitLetterWords(name)
	if len(words) == 0 {
		return ""
	}

	var code string
	switch len(words) {
	case 1:
		code = firstN(words[0], 3)
	case 2:
		code = firstN(words[0], 1) + firstN(words[1], 1)
		if len([]rune(words[1])) > 1 {
			code += string([]rune(words[1])[1])
		}
	default:
		code = firstN(words[0], 1) + firstN(words[1], 1) + firstN(words[2], 1)
	}

	code = strings.ToUpper(code)
	if len(code) > 4 {
		code = code[:4]
	}
	return code
}

// splitLetterWords splits a name into words keeping only letters
func splitLetterWords(name string) []string {
	raw := strings.Fields(name)
	words := make([]string, 0, len(raw))
	for _, w := range raw {
		var b strings.Builder
		for _, r := range w {
			if unicode.IsLetter(r) {
				b.WriteRune(r)
			}
		}
		if b.Len() > 0 {
			words = append(words, b.String())
		}
	}
	return words
}

func firstN(s string, n int) string {
	r := []rune(s)
	if len(r) < n {
		return string(r)
	}
	return string(r[:n])
}
