package storage

import (
	"context"

	"reseller/pkg/domain"

	"github.com/shopspring/decimal"
)

// LedgerParams carries the inputs for one wallet ledger movement. Amount is
// always positive; the called method determines the direction.
type LedgerParams struct {
	// TenantID selects the wallet.
	TenantID domain.TenantID
	// Amount is the positive amount to move.
	Amount decimal.Decimal
	// InvoiceID links the movement to the invoice that triggered it, when any.
	InvoiceID domain.InvoiceID
	// Actor identifies who or what triggered the movement.
	Actor string
	// Description is a short human-readable reason.
	Description string
}

// WalletStorage defines operations on tenant wallets and their append-only
// ledger. Implementations must write the balance change and the ledger entry
// atomically so the balance always equals the sum of the entries.
type WalletStorage interface {
	// CreateWallet inserts a wallet and returns the stored row.
	CreateWallet(ctx context.Context, w domain.Wallet) (*domain.Wallet, error)
	// WalletByTenant fetches the wallet for a tenant. Returns nil when the
	// tenant has no wallet.
	WalletByTenant(ctx context.Context, tenantID domain.TenantID) (*domain.Wallet, error)
	// Debit removes funds from the wallet and appends a DEBIT entry. It fails
	// with serrors.ErrInsufficientFunds when the balance does not cover the
	// amount, leaving the wallet untouched.
	Debit(ctx context.Context, params LedgerParams) (*domain.WalletEntry, error)
	// Credit adds funds to the wallet and appends a CREDIT entry.
	Credit(ctx context.Context, params LedgerParams) (*domain.WalletEntry, error)
	// Refund adds funds back to the wallet and appends a REFUND entry that
	// references the invoice whose debit is being reversed.
	Refund(ctx context.Context, params LedgerParams) (*domain.WalletEntry, error)
	// WalletEntries returns the most recent ledger entries for a tenant,
	// newest first, limited by limit.
	WalletEntries(ctx context.Context, tenantID domain.TenantID, limit uint) ([]domain.WalletEntry, error)
}
