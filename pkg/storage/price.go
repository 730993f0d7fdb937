package storage

import (
	"context"

	"reseller/pkg/domain"
)

// PriceStorage defines the append-only TLD price history. A price row is only
// written when it differs from the latest stored one, so the newest row per
// (registrar, tld, action) is always the current price.
type PriceStorage interface {
	// StorePrices inserts price rows.
	StorePrices(ctx context.Context, prices ...domain.TLDPrice) error
	// LatestPrice returns the most recent price for a registrar, TLD and
	// action. Returns nil when no price is known.
	LatestPrice(ctx context.Context, registrar, tld string, action domain.InvoiceAction) (*domain.TLDPrice, error)
	// LatestPrices returns the current price per (tld, action) pair for a
	// registrar.
	LatestPrices(ctx context.Context, registrar string) ([]domain.TLDPrice, error)
}
