package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"reseller/pkg/domain"
	"reseller/pkg/storage"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

const (
	domainsTable = "domains"
)

func (p *PgSQL) StoreDomain(ctx context.Context, d domain.Domain) (*domain.Domain, error) {
	var pgDomain PgDomain
	if err := pgDomain.FromDomain(d); err != nil {
		return nil, err
	}

	var row PgDomain
	found, err := p.Builder.Insert(domainsTable).
		Rows(pgDomain).
		Returning(&PgDomain{}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not store domain into pg: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("could not store domain into pg: no row returned")
	}

	return row.ToDomain()
}

// DomainByID fetches a domain by ID scoped to a tenant. Returns nil when not found.
func (p *PgSQL) DomainByID(ctx context.Context,
	tenantID domain.TenantID,
	id domain.DomainID) (*domain.Domain, error) {
	var row PgDomain
	found, err := p.Builder.From(domainsTable).
		Where(
			goqu.I("id").Eq(uuid.UUID(id)),
			goqu.I("tenant_id").Eq(uuid.UUID(tenantID)),
		).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch domain by id: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// DomainByName fetches a domain by name across tenants. Domain names are
// globally unique while the domain is not deleted.
func (p *PgSQL) DomainByName(ctx context.Context, name string) (*domain.Domain, error) {
	var row PgDomain
	found, err := p.Builder.From(domainsTable).
		Where(
			goqu.I("name").Eq(name),
			goqu.I("status").Neq(string(domain.DomainStatusDeleted)),
		).
		Order(goqu.I("created_at").Desc()).
		Limit(1).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch domain by name: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// UpdateDomainByID updates a single domain. Only provided fields are set and
// updated_at is maintained automatically. When ExpectStatus is set and the
// current status differs, no row matches and nil is returned.
func (p *PgSQL) UpdateDomainByID(ctx context.Context,
	id domain.DomainID,
	updates storage.DomainUpdates) (*domain.Domain, error) {
	rec := goqu.Record{
		"updated_at": goqu.L("CURRENT_TIMESTAMP"),
	}
	if updates.Status != "" {
		rec["status"] = string(updates.Status)
	}
	if updates.ExpiresAt != nil {
		rec["expires_at"] = *updates.ExpiresAt
	}
	if updates.AutoRenew != nil {
		rec["auto_renew"] = *updates.AutoRenew
	}
	if updates.AuthCode != nil {
		if *updates.AuthCode == "" {
			// clearing the transfer secret sets NULL
			rec["auth_code"] = goqu.L("NULL")
		} else {
			rec["auth_code"] = *updates.AuthCode
		}
	}
	if updates.Nameservers != nil {
		b, err := json.Marshal(updates.Nameservers)
		if err != nil {
			return nil, fmt.Errorf("could not marshal nameservers: %w", err)
		}

		rec["nameservers"] = b
	}
	if updates.TransferInitiatedAt != nil {
		rec["transfer_initiated_at"] = *updates.TransferInitiatedAt
	}
	if updates.TransferETA != nil {
		rec["transfer_eta"] = *updates.TransferETA
	}
	if updates.TransferMetadata != nil {
		rec["transfer_metadata"] = []byte(updates.TransferMetadata)
	}
	if updates.LastSyncedAt != nil {
		rec["last_synced_at"] = *updates.LastSyncedAt
	}
	if updates.LastSyncError != nil {
		if *updates.LastSyncError == "" {
			rec["last_sync_error"] = goqu.L("NULL")
		} else {
			rec["last_sync_error"] = *updates.LastSyncError
		}
	}
	if updates.SyncMetadata != nil {
		rec["sync_metadata"] = []byte(updates.SyncMetadata)
	}

	w := []goqu.Expression{
		goqu.I("id").Eq(uuid.UUID(id)),
	}
	if updates.ExpectStatus != "" {
		w = append(w, goqu.I("status").Eq(string(updates.ExpectStatus)))
	}

	var row PgDomain
	found, err := p.Builder.Update(domainsTable).
		Set(rec).
		Where(w...).
		Returning(&PgDomain{}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not update domain in pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// TenantDomains returns a page of domains for a tenant filtered by optional
// status and cursor, ordered by created_at DESC, id DESC.
func (p *PgSQL) TenantDomains(ctx context.Context,
	tenantID domain.TenantID,
	status domain.DomainStatus,
	cursor time.Time,
	limit uint) (storage.TenantDomains, error) {
	w := []goqu.Expression{
		goqu.I("tenant_id").Eq(uuid.UUID(tenantID)),
	}
	if status != "" {
		w = append(w, goqu.I("status").Eq(string(status)))
	}
	if !cursor.IsZero() {
		w = append(w, goqu.I("created_at").Lt(cursor))
	}

	// fetch one extra to determine if there is a next page
	fetch := limit + 1
	ds := p.Builder.From(domainsTable).
		Where(w...).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc()).
		Limit(fetch)

	var rows []PgDomain
	if err := ds.Executor().ScanStructsContext(ctx, &rows); err != nil {
		return storage.TenantDomains{}, fmt.Errorf("could not fetch tenant domains from pg: %w", err)
	}

	var nextCursor *time.Time
	if uint(len(rows)) > limit {
		trimmed := rows[:limit]
		nextCursor = &trimmed[len(trimmed)-1].CreatedAt
		rows = trimmed
	}

	domainRows, err := pgDomainsToDomain(rows)
	if err != nil {
		return storage.TenantDomains{}, err
	}

	return storage.TenantDomains{
		Domains:    domainRows,
		NextCursor: nextCursor,
	}, nil
}

// DomainsDueForSync selects domains of one registrar that were never synced
// or whose last sync predates staleBefore, nearest expiry first.
func (p *PgSQL) DomainsDueForSync(ctx context.Context,
	registrar string,
	staleBefore time.Time,
	limit uint) ([]domain.Domain, error) {
	var rows []PgDomain
	if err := p.Builder.From(domainsTable).
		Where(
			goqu.I("registrar").Eq(registrar),
			goqu.I("status").Neq(string(domain.DomainStatusDeleted)),
			goqu.Or(
				goqu.I("last_synced_at").IsNull(),
				goqu.I("last_synced_at").Lt(staleBefore),
			),
		).
		Order(goqu.I("expires_at").Asc()).
		Limit(limit).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not fetch domains due for sync from pg: %w", err)
	}

	return pgDomainsToDomain(rows)
}

// AutoRenewDue selects active auto-renew domains expiring before the given time.
func (p *PgSQL) AutoRenewDue(ctx context.Context, before time.Time, limit uint) ([]domain.Domain, error) {
	var rows []PgDomain
	if err := p.Builder.From(domainsTable).
		Where(
			goqu.I("auto_renew").IsTrue(),
			goqu.I("status").Eq(string(domain.DomainStatusActive)),
			goqu.I("expires_at").Lt(before),
		).
		Order(goqu.I("expires_at").Asc()).
		Limit(limit).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not fetch auto-renew due domains from pg: %w", err)
	}

	return pgDomainsToDomain(rows)
}

// ActiveTransfers selects domains in a non-terminal transfer state, oldest
// initiation first so long-running transfers are polled before fresh ones.
func (p *PgSQL) ActiveTransfers(ctx context.Context, limit uint) ([]domain.Domain, error) {
	var rows []PgDomain
	if err := p.Builder.From(domainsTable).
		Where(
			goqu.I("status").In(
				string(domain.DomainStatusPendingTransfer),
				string(domain.DomainStatusTransferInProgress),
				string(domain.DomainStatusTransferApproved),
			),
		).
		Order(goqu.I("transfer_initiated_at").Asc()).
		Limit(limit).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not fetch active transfers from pg: %w", err)
	}

	return pgDomainsToDomain(rows)
}
