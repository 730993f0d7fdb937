package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TLDPrice is one registrar-reported price point for a TLD and action.
// A new row is only written when the price actually changed.
type TLDPrice struct {
	// Registrar is the backend slug that reported the price.
	Registrar string `json:"registrar"`
	// TLD is the top-level domain without the leading dot.
	TLD string `json:"tld"`
	// Action is the priced operation (REGISTER, RENEW, TRANSFER).
	Action InvoiceAction `json:"action"`

	// Price is the per-year price in the registrar's currency.
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`

	CreatedAt time.Time `json:"createdAt"`
}
