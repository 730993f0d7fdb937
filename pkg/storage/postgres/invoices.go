package postgres

import (
	"context"
	"fmt"
	"time"

	"reseller/pkg/domain"
	"reseller/pkg/storage"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

const (
	invoicesTable = "invoices"
)

func (p *PgSQL) StoreInvoice(ctx context.Context, inv domain.Invoice) (*domain.Invoice, error) {
	var pgInvoice PgInvoice
	pgInvoice.FromDomain(inv)

	var row PgInvoice
	found, err := p.Builder.Insert(invoicesTable).
		Rows(pgInvoice).
		Returning(&PgInvoice{}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not store invoice into pg: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("could not store invoice into pg: no row returned")
	}

	return row.ToDomain(), nil
}

// InvoiceByID fetches an invoice by ID scoped to a tenant. Returns nil when not found.
func (p *PgSQL) InvoiceByID(ctx context.Context,
	tenantID domain.TenantID,
	id domain.InvoiceID) (*domain.Invoice, error) {
	var row PgInvoice
	found, err := p.Builder.From(invoicesTable).
		Where(
			goqu.I("id").Eq(uuid.UUID(id)),
			goqu.I("tenant_id").Eq(uuid.UUID(tenantID)),
		).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch invoice by id: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain(), nil
}

// UpdateInvoiceByID updates an invoice's status and domain linkage.
// Returns nil when the invoice does not exist.
func (p *PgSQL) UpdateInvoiceByID(ctx context.Context,
	id domain.InvoiceID,
	updates storage.InvoiceUpdates) (*domain.Invoice, error) {
	rec := goqu.Record{
		"updated_at": goqu.L("CURRENT_TIMESTAMP"),
	}
	if updates.Status != "" {
		rec["status"] = string(updates.Status)
	}
	if updates.DomainID != nil {
		rec["domain_id"] = uuid.UUID(*updates.DomainID)
	}

	var row PgInvoice
	found, err := p.Builder.Update(invoicesTable).
		Set(rec).
		Where(goqu.I("id").Eq(uuid.UUID(id))).
		Returning(&PgInvoice{}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not update invoice in pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain(), nil
}

// TenantInvoices returns a page of invoices for a tenant, newest first.
func (p *PgSQL) TenantInvoices(ctx context.Context,
	tenantID domain.TenantID,
	cursor time.Time,
	limit uint) (storage.TenantInvoices, error) {
	w := []goqu.Expression{
		goqu.I("tenant_id").Eq(uuid.UUID(tenantID)),
	}
	if !cursor.IsZero() {
		w = append(w, goqu.I("created_at").Lt(cursor))
	}

	// fetch one extra to determine if there is a next page
	fetch := limit + 1
	var rows []PgInvoice
	if err := p.Builder.From(invoicesTable).
		Where(w...).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc()).
		Limit(fetch).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return storage.TenantInvoices{}, fmt.Errorf("could not fetch tenant invoices from pg: %w", err)
	}

	var nextCursor *time.Time
	if uint(len(rows)) > limit {
		trimmed := rows[:limit]
		nextCursor = &trimmed[len(trimmed)-1].CreatedAt
		rows = trimmed
	}

	out := make([]domain.Invoice, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row.ToDomain())
	}

	return storage.TenantInvoices{
		Invoices:   out,
		NextCursor: nextCursor,
	}, nil
}
