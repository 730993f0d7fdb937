package storage

import (
	"context"

	"reseller/pkg/domain"
)

// AuditStorage defines the append-only audit log. Entries are immutable;
// there are no update or delete operations.
type AuditStorage interface {
	// AppendAudit inserts one or more audit entries.
	AppendAudit(ctx context.Context, entries ...domain.AuditEntry) error
	// AuditTrail returns the most recent entries for an entity, newest first,
	// limited by limit.
	AuditTrail(ctx context.Context, entity, entityID string, limit uint) ([]domain.AuditEntry, error)
}
