package numbering

import (
	"context"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// maxAllocateAttempts bounds the collision retry loop. This is a fixed
// policy, not configurable per call: exhausting it means the scope is under
// pathological contention and the creation must fail rather than reuse a
// number.
const maxAllocateAttempts = 10

// ErrCollisionExhausted is returned when every candidate number within the
// retry budget already existed. It is fatal for the single document being
// created; callers surface it and never fall back to a non-unique number.
var ErrCollisionExhausted = shared.NewDomainError("COLLISION_EXHAUSTED", "Could not allocate a unique document number after 10 attempts")

// NumberStore is the slice of the document store the allocator needs.
// Implementations back each kind with the table that owns its number column.
type NumberStore interface {
	// ExistingNumbers returns every issued number of the kind for a company.
	// The allocator parses them to find the scope's maximum; string ranges
	// are never used so legacy formats keep counting toward the max.
	ExistingNumbers(ctx context.Context, companyID uuid.UUID, kind DocumentKind) ([]string, error)

	// NumberExists checks whether an exact formatted number is already taken
	NumberExists(ctx context.Context, companyID uuid.UUID, kind DocumentKind, number string) (bool, error)
}

// Allocator proposes the next number for a scope by scanning the documents
// that already exist in it. There is no persisted counter and no lock: the
// only defense against two concurrent allocations in the same scope is the
// exists-check plus bounded retry, which is therefore a correctness-critical
// control path.
type Allocator struct {
	store  NumberStore
	logger *zap.Logger
}

// NewAllocator creates a new Allocator
func NewAllocator(store NumberStore, logger *zap.Logger) *Allocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Allocator{store: store, logger: logger}
}

// Allocate returns a formatted number unique within the scope's company and
// kind, or ErrCollisionExhausted once the retry budget is spent.
func (a *Allocator) Allocate(ctx context.Context, scope Scope) (string, error) {
	if err := scope.Validate(); err != nil {
		return "", err
	}
	return a.allocate(ctx, scope, 0)
}

// allocate runs one attempt: scan for the scope's max sequence, add the
// attempt offset so repeated collisions move forward instead of retrying the
// identical candidate, then verify the candidate is free.
func (a *Allocator) allocate(ctx context.Context, scope Scope, attempt int) (string, error) {
	if attempt >= maxAllocateAttempts {
		a.logger.Error("Number allocation retry budget exhausted",
			zap.String("company_id", scope.CompanyID.String()),
			zap.String("kind", scope.Kind.String()),
			zap.Int("attempts", attempt))
		return "", ErrCollisionExhausted
	}

	maxSeq, err := a.maxSequence(ctx, scope)
	if err != nil {
		return "", err
	}

	candidate := scope.FormatNumber(maxSeq + 1 + attempt)
	exists, err := a.store.NumberExists(ctx, scope.CompanyID, scope.Kind, candidate)
	if err != nil {
		return "", err
	}
	if exists {
		a.logger.Debug("Document number collision, retrying",
			zap.String("candidate", candidate),
			zap.Int("attempt", attempt))
		return a.allocate(ctx, scope, attempt+1)
	}

	return candidate, nil
}

// maxSequence derives the highest sequence already issued in the scope by
// parsing every number of the kind and keeping period/property matches.
func (a *Allocator) maxSequence(ctx context.Context, scope Scope) (int, error) {
	numbers, err := a.store.ExistingNumbers(ctx, scope.CompanyID, scope.Kind)
	if err != nil {
		return 0, err
	}

	maxSeq := 0
	for _, n := range numbers {
		parsed, ok := Parse(n)
		if !ok {
			continue
		}
		if scope.Matches(parsed) && parsed.Sequence > maxSeq {
			maxSeq = parsed.Sequence
		}
	}
	return maxSeq, nil
}
