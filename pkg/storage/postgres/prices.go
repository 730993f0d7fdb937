package postgres

import (
	"context"
	"fmt"

	"reseller/pkg/domain"

	"github.com/doug-martin/goqu/v9"
)

const (
	pricesTable = "tld_prices"
)

// StorePrices appends price rows. Callers only write rows that differ from
// the latest stored price, so the table doubles as a change history.
func (p *PgSQL) StorePrices(ctx context.Context, prices ...domain.TLDPrice) error {
	if len(prices) == 0 {
		return nil
	}

	rows := make([]PgTLDPrice, len(prices))
	for i := range prices {
		rows[i].FromDomain(prices[i])
	}

	if _, err := p.Builder.Insert(pricesTable).
		Rows(rows).
		Executor().ExecContext(ctx); err != nil {
		return fmt.Errorf("could not store tld prices into pg: %w", err)
	}

	return nil
}

// LatestPrice returns the newest price row for a registrar, TLD and action.
func (p *PgSQL) LatestPrice(ctx context.Context,
	registrar, tld string,
	action domain.InvoiceAction) (*domain.TLDPrice, error) {
	var row PgTLDPrice
	found, err := p.Builder.From(pricesTable).
		Where(
			goqu.I("registrar").Eq(registrar),
			goqu.I("tld").Eq(tld),
			goqu.I("action").Eq(string(action)),
		).
		Order(goqu.I("created_at").Desc()).
		Limit(1).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch latest tld price from pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain(), nil
}

// LatestPrices returns the current price per (tld, action) pair for a
// registrar using a DISTINCT ON over the newest row.
func (p *PgSQL) LatestPrices(ctx context.Context, registrar string) ([]domain.TLDPrice, error) {
	var rows []PgTLDPrice
	if err := p.Builder.From(pricesTable).
		Select(goqu.L("DISTINCT ON (tld, action) *")).
		Where(goqu.I("registrar").Eq(registrar)).
		Order(goqu.I("tld").Asc(), goqu.I("action").Asc(), goqu.I("created_at").Desc()).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not fetch latest tld prices from pg: %w", err)
	}

	out := make([]domain.TLDPrice, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row.ToDomain())
	}

	return out, nil
}
