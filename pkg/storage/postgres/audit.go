package postgres

import (
	"context"
	"fmt"

	"reseller/pkg/domain"

	"github.com/doug-martin/goqu/v9"
)

const (
	auditTable = "audit_log"
)

// AppendAudit inserts audit entries. The table is append-only; no update or
// delete statements exist anywhere in this package.
func (p *PgSQL) AppendAudit(ctx context.Context, entries ...domain.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([]PgAuditEntry, len(entries))
	for i := range entries {
		rows[i].FromDomain(entries[i])
	}

	if _, err := p.Builder.Insert(auditTable).
		Rows(rows).
		Executor().ExecContext(ctx); err != nil {
		return fmt.Errorf("could not append audit entries into pg: %w", err)
	}

	return nil
}

// AuditTrail returns the newest entries for an entity.
func (p *PgSQL) AuditTrail(ctx context.Context,
	entity, entityID string,
	limit uint) ([]domain.AuditEntry, error) {
	var rows []PgAuditEntry
	if err := p.Builder.From(auditTable).
		Where(
			goqu.I("entity").Eq(entity),
			goqu.I("entity_id").Eq(entityID),
		).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc()).
		Limit(limit).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not fetch audit trail from pg: %w", err)
	}

	out := make([]domain.AuditEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row.ToDomain())
	}

	return out, nil
}
