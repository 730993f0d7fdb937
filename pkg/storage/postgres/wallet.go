package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"reseller/pkg/domain"
	"reseller/pkg/serrors"
	"reseller/pkg/storage"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

const (
	walletsTable       = "wallets"
	walletEntriesTable = "wallet_entries"
)

func (p *PgSQL) CreateWallet(ctx context.Context, w domain.Wallet) (*domain.Wallet, error) {
	var row PgWallet
	found, err := p.Builder.Insert(walletsTable).
		Rows(PgWallet{
			ID:       uuid.UUID(w.ID),
			TenantID: uuid.UUID(w.TenantID),
			Balance:  w.Balance,
			Currency: w.Currency,
		}).
		Returning(&PgWallet{}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not create wallet in pg: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("could not create wallet in pg: no row returned")
	}

	return row.ToDomain(), nil
}

// WalletByTenant fetches the tenant's wallet. Returns nil when none exists.
func (p *PgSQL) WalletByTenant(ctx context.Context, tenantID domain.TenantID) (*domain.Wallet, error) {
	var row PgWallet
	found, err := p.Builder.From(walletsTable).
		Where(goqu.I("tenant_id").Eq(uuid.UUID(tenantID))).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch wallet by tenant: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain(), nil
}

// Debit removes funds and appends a DEBIT entry. The balance guard lives in
// the UPDATE's WHERE clause, so a concurrent debit can never overdraw: if the
// balance no longer covers the amount, no row matches and the debit fails
// with ErrInsufficientFunds.
func (p *PgSQL) Debit(ctx context.Context, params storage.LedgerParams) (*domain.WalletEntry, error) {
	if !params.Amount.IsPositive() {
		return nil, serrors.With(serrors.ErrInvalidData, "debit amount must be positive")
	}

	var row PgWallet
	found, err := p.Builder.Update(walletsTable).
		Set(goqu.Record{
			"balance":    goqu.L("balance - ?", params.Amount),
			"updated_at": goqu.L("CURRENT_TIMESTAMP"),
		}).
		Where(
			goqu.I("tenant_id").Eq(uuid.UUID(params.TenantID)),
			goqu.I("balance").Gte(params.Amount),
		).
		Returning(&PgWallet{}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not debit wallet in pg: %w", err)
	}
	if !found {
		return nil, serrors.With(serrors.ErrInsufficientFunds,
			"wallet balance does not cover %s", params.Amount.String())
	}

	return p.appendEntry(ctx, row, domain.EntryDebit, params)
}

// Credit adds funds and appends a CREDIT entry.
func (p *PgSQL) Credit(ctx context.Context, params storage.LedgerParams) (*domain.WalletEntry, error) {
	return p.addFunds(ctx, domain.EntryCredit, params)
}

// Refund adds funds back and appends a REFUND entry referencing the reversed
// invoice.
func (p *PgSQL) Refund(ctx context.Context, params storage.LedgerParams) (*domain.WalletEntry, error) {
	return p.addFunds(ctx, domain.EntryRefund, params)
}

func (p *PgSQL) addFunds(ctx context.Context,
	entryType domain.EntryType,
	params storage.LedgerParams) (*domain.WalletEntry, error) {
	if !params.Amount.IsPositive() {
		return nil, serrors.With(serrors.ErrInvalidData, "%s amount must be positive", entryType)
	}

	var row PgWallet
	found, err := p.Builder.Update(walletsTable).
		Set(goqu.Record{
			"balance":    goqu.L("balance + ?", params.Amount),
			"updated_at": goqu.L("CURRENT_TIMESTAMP"),
		}).
		Where(goqu.I("tenant_id").Eq(uuid.UUID(params.TenantID))).
		Returning(&PgWallet{}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not credit wallet in pg: %w", err)
	}
	if !found {
		return nil, serrors.With(serrors.ErrNotFound, "tenant has no wallet")
	}

	return p.appendEntry(ctx, row, entryType, params)
}

func (p *PgSQL) appendEntry(ctx context.Context,
	wallet PgWallet,
	entryType domain.EntryType,
	params storage.LedgerParams) (*domain.WalletEntry, error) {
	entry := PgWalletEntry{
		WalletID:     wallet.ID,
		Type:         string(entryType),
		Amount:       params.Amount,
		BalanceAfter: wallet.Balance,
		InvoiceID: uuid.NullUUID{
			UUID:  uuid.UUID(params.InvoiceID),
			Valid: uuid.UUID(params.InvoiceID) != uuid.Nil,
		},
		Actor: params.Actor,
		Description: sql.NullString{
			String: params.Description,
			Valid:  params.Description != "",
		},
	}

	var row PgWalletEntry
	found, err := p.Builder.Insert(walletEntriesTable).
		Rows(entry).
		Returning(&PgWalletEntry{}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not append wallet entry in pg: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("could not append wallet entry in pg: no row returned")
	}

	return row.ToDomain(), nil
}

// WalletEntries returns the newest ledger entries for a tenant.
func (p *PgSQL) WalletEntries(ctx context.Context,
	tenantID domain.TenantID,
	limit uint) ([]domain.WalletEntry, error) {
	var rows []PgWalletEntry
	if err := p.Builder.From(walletEntriesTable).
		Where(goqu.I("wallet_id").In(
			goqu.From(walletsTable).
				Select(goqu.I("id")).
				Where(goqu.I("tenant_id").Eq(uuid.UUID(tenantID))),
		)).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc()).
		Limit(limit).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not fetch wallet entries from pg: %w", err)
	}

	out := make([]domain.WalletEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row.ToDomain())
	}

	return out, nil
}
