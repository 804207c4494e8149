package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
)

// AuditEntry records a single settlement-relevant field change. Entries
// are appended explicitly by the services on state transitions; there are
// no database-side hooks.
type AuditEntry struct {
	shared.BaseEntity
	CompanyID  uuid.UUID `gorm:"type:uuid;not null;index"`
	EntityType string    `gorm:"type:varchar(50);not null;index:idx_audit_entity"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null;index:idx_audit_entity"`
	Field      string    `gorm:"type:varchar(100);not null"`
	OldValue   string    `gorm:"type:text"`
	NewValue   string    `gorm:"type:text"`
	Actor      string    `gorm:"type:varchar(100);not null"`
	OccurredAt time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditEntry) TableName() string {
	return "audit_entries"
}

// NewAuditEntry creates an audit entry for one field transition
func NewAuditEntry(companyID uuid.UUID, entityType string, entityID uuid.UUID, field, oldValue, newValue, actor string) *AuditEntry {
	return &AuditEntry{
		BaseEntity: shared.NewBaseEntity(),
		CompanyID:  companyID,
		EntityType: entityType,
		EntityID:   entityID,
		Field:      field,
		OldValue:   oldValue,
		NewValue:   newValue,
		Actor:      actor,
		OccurredAt: time.Now(),
	}
}

// AuditRecorder appends audit entries for settlement transitions.
// Implementations must tolerate being called inside a transaction scope.
type AuditRecorder interface {
	Record(ctx context.Context, entry *AuditEntry) error
}
