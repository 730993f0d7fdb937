package reconciler

import (
	"context"
	"errors"
	"fmt"

	"reseller/pkg/domain"
	"reseller/pkg/logger"
	"reseller/pkg/serrors"
	"reseller/pkg/storage"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceSyncResult summarizes one price sweep.
type PriceSyncResult struct {
	// Changed counts price points that differed and were stored.
	Changed int
	// Unchanged counts price points that matched the stored value.
	Unchanged int
}

// SyncPrices pulls the current TLD price list from every active registrar
// and appends a row only where the price actually changed, so the price
// table stays an exact change history. Large swings are logged loudly since
// they usually mean a vendor-side mistake rather than a real reprice.
func (r *Reconciler) SyncPrices(ctx context.Context) (PriceSyncResult, error) {
	var result PriceSyncResult
	warnRatio := decimal.NewFromInt(int64(r.priceWarnPct)).Div(decimal.NewFromInt(100))

	for _, client := range r.registry.Active(ctx) {
		res, err := client.TLDPrices(ctx)
		if err != nil {
			if errors.Is(err, serrors.ErrOperationFailed) {
				// backend has no price list capability
				logger.Debug(ctx, "registrar exposes no price list, skipping",
					zap.String("registrar", client.Name()))

				continue
			}

			logger.Warn(ctx, "could not fetch price list",
				zap.String("registrar", client.Name()), zap.Error(err))

			continue
		}

		for _, price := range res.Prices {
			changed, err := r.syncPrice(ctx, price, warnRatio)
			if err != nil {
				return result, err
			}
			if changed {
				result.Changed++
			} else {
				result.Unchanged++
			}
		}
	}

	return result, nil
}

func (r *Reconciler) syncPrice(ctx context.Context,
	price domain.TLDPrice,
	warnRatio decimal.Decimal) (bool, error) {
	current, err := r.storage.LatestPrice(ctx, price.Registrar, price.TLD, price.Action)
	if err != nil {
		return false, fmt.Errorf("could not look up current price: %w", err)
	}
	if current != nil && current.Price.Equal(price.Price) && current.Currency == price.Currency {
		return false, nil
	}

	err = r.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		if err := tx.StorePrices(ctx, price); err != nil {
			return err
		}

		oldValue := ""
		if current != nil {
			oldValue = current.Price.String()
		}

		return tx.AppendAudit(ctx, domain.AuditEntry{
			Action:   domain.AuditTLDPriceChanged,
			Entity:   "tld_price",
			EntityID: fmt.Sprintf("%s/.%s/%s", price.Registrar, price.TLD, price.Action),
			Field:    "price",
			OldValue: oldValue,
			NewValue: price.Price.String(),
			Actor:    "reconciler",
		})
	})
	if err != nil {
		return false, fmt.Errorf("could not store price change: %w", err)
	}

	if current != nil && current.Price.IsPositive() {
		delta := price.Price.Sub(current.Price).Abs().Div(current.Price)
		if delta.GreaterThan(warnRatio) {
			logger.Warn(ctx, "large tld price change",
				zap.String("registrar", price.Registrar),
				zap.String("tld", price.TLD),
				zap.String("action", string(price.Action)),
				zap.String("old", current.Price.String()),
				zap.String("new", price.Price.String()))
		}
	}

	return true, nil
}
