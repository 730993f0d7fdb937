package orchestrator

import (
	"context"
	"fmt"
	"time"

	"reseller/pkg/domain"
	"reseller/pkg/logger"
	"reseller/pkg/serrors"
	"reseller/pkg/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Renewal window boundaries relative to the expiry date.
const (
	// TooEarlyBefore rejects renewals attempted more than this long before expiry.
	TooEarlyBefore = 90 * 24 * time.Hour
	// GraceAfter is the post-expiry window where renewal still works with a surcharge.
	GraceAfter = 30 * 24 * time.Hour
	// RedemptionAfter is the post-expiry window where only a manual restore can help.
	RedemptionAfter = 60 * 24 * time.Hour
)

// graceSurcharge is the multiplier applied to renewals inside the grace
// window: base price plus twenty percent.
var graceSurcharge = decimal.NewFromFloat(1.20) //nolint: gochecknoglobals

// RenewalWindow classifies when a renewal is attempted relative to expiry.
type RenewalWindow string

const (
	// WindowTooEarly: more than 90 days before expiry.
	WindowTooEarly RenewalWindow = "TOO_EARLY"
	// WindowStandard: within 90 days of expiry, not yet expired.
	WindowStandard RenewalWindow = "STANDARD"
	// WindowGrace: up to 30 days past expiry; renewal carries a surcharge.
	WindowGrace RenewalWindow = "GRACE"
	// WindowRedemption: 31 to 60 days past expiry; renewal is blocked.
	WindowRedemption RenewalWindow = "REDEMPTION"
	// WindowGone: more than 60 days past expiry; the name is released.
	WindowGone RenewalWindow = "GONE"
)

// ClassifyRenewal places now relative to the expiry date.
func ClassifyRenewal(now, expiresAt time.Time) RenewalWindow {
	switch {
	case now.Before(expiresAt.Add(-TooEarlyBefore)):
		return WindowTooEarly
	case now.Before(expiresAt):
		return WindowStandard
	case !now.After(expiresAt.Add(GraceAfter)):
		return WindowGrace
	case !now.After(expiresAt.Add(RedemptionAfter)):
		return WindowRedemption
	default:
		return WindowGone
	}
}

// Renew runs the renewal saga for one domain. Inside the grace window the
// price carries a 20% surcharge; inside redemption or beyond, renewal fails
// without touching the wallet.
func (o *Orchestrator) Renew(ctx context.Context,
	tenantID domain.TenantID,
	domainID domain.DomainID,
	years int,
	actor string) (*domain.Domain, *domain.Invoice, error) {
	d, err := o.storage.DomainByID(ctx, tenantID, domainID)
	if err != nil {
		return nil, nil, err
	}
	if d == nil {
		return nil, nil, serrors.With(serrors.ErrNotFound, "domain not found")
	}
	if actor == "" {
		actor = uuid.UUID(tenantID).String()
	}

	unlock := o.locks.lock(d.Name)
	defer unlock()

	window := ClassifyRenewal(o.now(), d.ExpiresAt)
	switch window {
	case WindowTooEarly:
		return nil, nil, serrors.With(serrors.ErrBadRequest,
			"renewal of %q is more than 90 days before expiry", d.Name)
	case WindowRedemption:
		return nil, nil, serrors.With(serrors.ErrBadRequest,
			"%q is in redemption; a manual restore is required", d.Name)
	case WindowGone:
		return nil, nil, serrors.With(serrors.ErrBadRequest,
			"%q expired more than 60 days ago and has been released", d.Name)
	case WindowStandard, WindowGrace:
	}

	total, err := o.priceFor(ctx, d.Registrar, d.Name, domain.ActionRenew, years)
	if err != nil {
		return nil, nil, err
	}
	if window == WindowGrace {
		total = total.Mul(graceSurcharge)
	}

	client, err := o.registry.Get(ctx, d.Registrar)
	if err != nil {
		return nil, nil, err
	}

	invoice, err := o.charge(ctx, tenantID, domain.ActionRenew, d.Name, years, total, actor)
	if err != nil {
		return nil, nil, err
	}

	res, err := client.Renew(ctx, d.Name, years)
	if err != nil || !res.Success {
		reason := "registrar rejected the renewal"
		if err != nil {
			reason = err.Error()
		} else if res.Message != "" {
			reason = res.Message
		}
		if refundErr := o.refund(ctx, invoice, domain.AuditRenewalFailed, reason, actor); refundErr != nil {
			return nil, nil, refundErr
		}
		if err != nil {
			return nil, nil, fmt.Errorf("could not renew %q: %w", d.Name, err)
		}

		return nil, nil, serrors.With(serrors.ErrOperationFailed, "could not renew %q: %s", d.Name, reason)
	}

	// an already lapsed expiry extends from now, not from the lapsed date
	base := d.ExpiresAt
	if now := o.now(); base.Before(now) {
		base = now
	}
	newExpiry := base.AddDate(years, 0, 0)
	if res.Info != nil && !res.Info.ExpiresAt.IsZero() {
		newExpiry = res.Info.ExpiresAt
	}

	var renewed *domain.Domain
	err = o.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		upd, err := tx.UpdateDomainByID(ctx, d.ID, storage.DomainUpdates{
			Status:    domain.DomainStatusActive,
			ExpiresAt: &newExpiry,
		})
		if err != nil {
			return err
		}
		if upd == nil {
			return serrors.With(serrors.ErrConflict, "domain %q changed concurrently", d.Name)
		}

		inv, err := tx.UpdateInvoiceByID(ctx, invoice.ID, storage.InvoiceUpdates{
			Status:   domain.InvoiceStatusPaid,
			DomainID: &d.ID,
		})
		if err != nil {
			return err
		}

		if err := tx.AppendAudit(ctx, domain.AuditEntry{
			TenantID: tenantID,
			Action:   domain.AuditDomainRenewed,
			Entity:   "domain",
			EntityID: uuid.UUID(d.ID).String(),
			Field:    "expires_at",
			OldValue: d.ExpiresAt.Format(time.RFC3339),
			NewValue: newExpiry.Format(time.RFC3339),
			Actor:    actor,
		}); err != nil {
			return err
		}

		renewed = upd
		invoice = inv

		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not persist renewal of %q: %w", d.Name, err)
	}

	logger.Info(ctx, "domain renewed",
		zap.String("domain", d.Name),
		zap.Int("years", years),
		zap.String("window", string(window)))

	return renewed, invoice, nil
}

// SweepResult summarizes one auto-renewal sweep.
type SweepResult struct {
	Renewed int
	Failed  int
}

// AutoRenewSweep renews every active auto-renew domain expiring before the
// horizon, one year each. Failures are isolated per domain; one tenant's
// empty wallet never blocks another tenant's renewal.
func (o *Orchestrator) AutoRenewSweep(ctx context.Context, horizon time.Time, limit uint) (SweepResult, error) {
	due, err := o.storage.AutoRenewDue(ctx, horizon, limit)
	if err != nil {
		return SweepResult{}, err
	}

	var result SweepResult
	for _, d := range due {
		if _, _, err := o.Renew(ctx, d.TenantID, d.ID, 1, SystemActor); err != nil {
			result.Failed++
			logger.Warn(ctx, "auto-renewal failed",
				zap.String("domain", d.Name), zap.Error(err))

			continue
		}
		result.Renewed++
	}

	return result, nil
}
