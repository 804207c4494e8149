package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/billing"
	"github.com/propfolio/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAuditRecorder implements AuditRecorder using GORM. Entries are
// append-only; there is no update or delete path.
type GormAuditRecorder struct {
	db *gorm.DB
}

// NewGormAuditRecorder creates a new GormAuditRecorder
func NewGormAuditRecorder(db *gorm.DB) *GormAuditRecorder {
	return &GormAuditRecorder{db: db}
}

// Record appends an audit entry
func (r *GormAuditRecorder) Record(ctx context.Context, entry *billing.AuditEntry) error {
	model := models.AuditEntryModelFromDomain(entry)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByEntity returns the audit trail for one entity, oldest first
func (r *GormAuditRecorder) FindByEntity(ctx context.Context, companyID uuid.UUID, entityType string, entityID uuid.UUID) ([]billing.AuditEntry, error) {
	var entryModels []models.AuditEntryModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND entity_type = ? AND entity_id = ?", companyID, entityType, entityID).
		Order("occurred_at ASC, created_at ASC").
		Find(&entryModels).Error; err != nil {
		return nil, err
	}
	entries := make([]billing.AuditEntry, len(entryModels))
	for i, model := range entryModels {
		entries[i] = *model.ToDomain()
	}
	return entries, nil
}

// Ensure GormAuditRecorder implements the interface
var _ billing.AuditRecorder = (*GormAuditRecorder)(nil)
