package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletID uniquely identifies a tenant wallet.
type WalletID uuid.UUID

// WalletEntryID uniquely identifies one ledger entry.
type WalletEntryID uuid.UUID

// EntryType is the business reason for a wallet ledger entry.
type EntryType string

const (
	// EntryDebit removes funds to pay for a domain action.
	EntryDebit EntryType = "DEBIT"
	// EntryCredit adds funds (top-up).
	EntryCredit EntryType = "CREDIT"
	// EntryRefund reverses an earlier debit after a failed registrar call.
	EntryRefund EntryType = "REFUND"
	// EntryAdjustment is an administrative correction.
	EntryAdjustment EntryType = "ADJUSTMENT"
)

// Wallet is the per-tenant ledger head. Balance always equals the running
// sum of the wallet's entries; the storage layer enforces this by writing
// the entry and the balance change in one transaction.
type Wallet struct {
	ID       WalletID `json:"id"`
	TenantID TenantID `json:"tenantId"`

	// Balance is the current available balance.
	Balance decimal.Decimal `json:"balance"`
	// Currency is an ISO 4217 code, e.g. "USD".
	Currency string `json:"currency"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WalletEntry is a single append-only row in the wallet ledger.
type WalletEntry struct {
	ID       WalletEntryID `json:"id"`
	WalletID WalletID      `json:"walletId"`

	Type EntryType `json:"type"`
	// Amount is always positive; Type determines the sign applied to the balance.
	Amount decimal.Decimal `json:"amount"`
	// BalanceAfter is the wallet balance immediately after this entry.
	BalanceAfter decimal.Decimal `json:"balanceAfter"`

	// InvoiceID references the invoice that triggered the entry, when any.
	InvoiceID InvoiceID `json:"invoiceId,omitzero"`
	// Actor identifies who or what triggered the entry (tenant, system, admin).
	Actor string `json:"actor"`
	// Description is a short human-readable reason.
	Description string `json:"description,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}
