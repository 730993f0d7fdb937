package orchestrator

import (
	"context"
	"fmt"

	"reseller/pkg/domain"
	"reseller/pkg/logger"
	"reseller/pkg/metrics"
	"reseller/pkg/serrors"
	"reseller/pkg/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// priceFor resolves the total price for an action on a domain name from the
// latest stored price list of the given registrar.
func (o *Orchestrator) priceFor(ctx context.Context,
	registrarSlug, name string,
	action domain.InvoiceAction,
	years int) (decimal.Decimal, error) {
	tld := domain.TLD(name)
	if tld == "" {
		return decimal.Zero, serrors.With(serrors.ErrInvalidData, "domain %q has no tld", name)
	}

	price, err := o.storage.LatestPrice(ctx, registrarSlug, tld, action)
	if err != nil {
		return decimal.Zero, err
	}
	if price == nil {
		return decimal.Zero, serrors.With(serrors.ErrNotFound,
			"no %s price known for .%s on registrar %q", action, tld, registrarSlug)
	}

	return price.Price.Mul(decimal.NewFromInt(int64(years))), nil
}

// charge creates a draft invoice and debits the wallet in one transaction.
// The debit commits before any registrar call so a crash between the two
// leaves a reversible debit, never an unpaid registrar order.
func (o *Orchestrator) charge(ctx context.Context,
	tenantID domain.TenantID,
	action domain.InvoiceAction,
	name string,
	years int,
	total decimal.Decimal,
	actor string) (*domain.Invoice, error) {
	var invoice *domain.Invoice
	err := o.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		inv, err := tx.StoreInvoice(ctx, domain.Invoice{
			ID:         domain.InvoiceID(uuid.New()),
			TenantID:   tenantID,
			Status:     domain.InvoiceStatusDraft,
			Action:     action,
			Total:      total,
			DomainName: name,
			Years:      years,
		})
		if err != nil {
			return err
		}

		if _, err := tx.Debit(ctx, storage.LedgerParams{
			TenantID:    tenantID,
			Amount:      total,
			InvoiceID:   inv.ID,
			Actor:       actor,
			Description: fmt.Sprintf("%s %s for %d year(s)", action, name, years),
		}); err != nil {
			return err
		}

		invoice = inv

		return nil
	})
	if err != nil {
		return nil, err
	}

	return invoice, nil
}

// refund reverses a charge after a failed registrar call: the wallet gets the
// full amount back, the invoice is marked failed, and the failure is audited.
func (o *Orchestrator) refund(ctx context.Context,
	inv *domain.Invoice,
	auditAction domain.AuditAction,
	reason string,
	actor string) error {
	err := o.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		if _, err := tx.Refund(ctx, storage.LedgerParams{
			TenantID:    inv.TenantID,
			Amount:      inv.Total,
			InvoiceID:   inv.ID,
			Actor:       actor,
			Description: fmt.Sprintf("refund for failed %s of %s", inv.Action, inv.DomainName),
		}); err != nil {
			return err
		}

		if _, err := tx.UpdateInvoiceByID(ctx, inv.ID, storage.InvoiceUpdates{
			Status: domain.InvoiceStatusFailed,
		}); err != nil {
			return err
		}

		return tx.AppendAudit(ctx, domain.AuditEntry{
			TenantID: inv.TenantID,
			Action:   auditAction,
			Entity:   "invoice",
			EntityID: uuid.UUID(inv.ID).String(),
			Field:    "status",
			OldValue: string(domain.InvoiceStatusDraft),
			NewValue: string(domain.InvoiceStatusFailed),
			Actor:    actor,
		})
	})
	if err != nil {
		// The debit stands until an operator reconciles it.
		logger.Error(ctx, "could not refund failed charge",
			zap.String("invoice", uuid.UUID(inv.ID).String()),
			zap.String("domain", inv.DomainName),
			zap.Error(err))

		return fmt.Errorf("could not refund invoice %s: %w", uuid.UUID(inv.ID), err)
	}

	metrics.WalletRefunds.WithLabelValues(string(inv.Action)).Inc()
	logger.Warn(ctx, "charge refunded after registrar failure",
		zap.String("invoice", uuid.UUID(inv.ID).String()),
		zap.String("domain", inv.DomainName),
		zap.String("reason", reason))

	return nil
}
