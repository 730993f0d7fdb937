package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"reseller/pkg/domain"
	"reseller/pkg/logger"
	"reseller/pkg/registrar"
	"reseller/pkg/serrors"
	"reseller/pkg/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// defaultTransferETA is assumed when the vendor reports no estimate.
const defaultTransferETA = 7 * 24 * time.Hour

// minTransferAge is the ICANN-mandated minimum registration age before a
// domain may be transferred.
const minTransferAge = 60 * 24 * time.Hour

// transferMeta is the bookkeeping stored alongside a transfer so that
// cancellation can refund the right invoice later.
type transferMeta struct {
	InvoiceID string `json:"invoiceId"`
	OrderID   string `json:"orderId,omitempty"`
}

// TransferParams are the inputs for initiating a transfer-in.
type TransferParams struct {
	TenantID  domain.TenantID
	Registrar string

	Name     string
	AuthCode string

	Actor string
}

// InitiateTransfer starts the transfer-in saga: charge the transfer fee,
// hand the auth code to the gaining registrar, and persist the domain in the
// PENDING_TRANSFER state. The eligibility probe is advisory; when the losing
// registrar cannot be consulted the transfer proceeds and the vendor has the
// final word.
func (o *Orchestrator) InitiateTransfer(ctx context.Context,
	params TransferParams) (*domain.Domain, *domain.Invoice, error) {
	name, err := registrar.NormalizeDomainName(params.Name)
	if err != nil {
		return nil, nil, err
	}
	if err := registrar.ValidateAuthCode(params.AuthCode); err != nil {
		return nil, nil, err
	}
	actor := params.Actor
	if actor == "" {
		actor = uuid.UUID(params.TenantID).String()
	}

	unlock := o.locks.lock(name)
	defer unlock()

	if existing, err := o.storage.DomainByName(ctx, name); err != nil {
		return nil, nil, err
	} else if existing != nil {
		if existing.Status.IsTransferState() && !existing.Status.IsTerminalTransferState() {
			return nil, nil, serrors.With(serrors.ErrConflict,
				"a transfer of %q is already in progress", name)
		}

		return nil, nil, serrors.With(serrors.ErrConflict, "domain %q already exists", name)
	}

	client, err := o.registry.Get(ctx, params.Registrar)
	if err != nil {
		return nil, nil, err
	}

	// advisory eligibility probe; degraded visibility must not block transfers
	if info, err := client.Info(ctx, name); err != nil {
		logger.Warn(ctx, "transfer eligibility probe failed, proceeding",
			zap.String("domain", name), zap.Error(err))
	} else if info.Info != nil {
		if info.Info.Locked {
			return nil, nil, serrors.With(serrors.ErrBadRequest,
				"%q is transfer-locked at the current registrar", name)
		}
		if !info.Info.CreatedAt.IsZero() && o.now().Sub(info.Info.CreatedAt) < minTransferAge {
			return nil, nil, serrors.With(serrors.ErrBadRequest,
				"%q was registered fewer than 60 days ago and cannot be transferred yet", name)
		}
	}

	total, err := o.priceFor(ctx, params.Registrar, name, domain.ActionTransfer, 1)
	if err != nil {
		return nil, nil, err
	}

	invoice, err := o.charge(ctx, params.TenantID, domain.ActionTransfer, name, 1, total, actor)
	if err != nil {
		return nil, nil, err
	}

	res, err := client.Transfer(ctx, name, params.AuthCode)
	if err != nil || !res.Success {
		reason := "registrar rejected the transfer"
		if err != nil {
			reason = err.Error()
		} else if res.Message != "" {
			reason = res.Message
		}
		if refundErr := o.refund(ctx, invoice, domain.AuditTransferFailed, reason, actor); refundErr != nil {
			return nil, nil, refundErr
		}
		if err != nil {
			return nil, nil, fmt.Errorf("could not initiate transfer of %q: %w", name, err)
		}

		return nil, nil, serrors.With(serrors.ErrOperationFailed,
			"could not initiate transfer of %q: %s", name, reason)
	}

	now := o.now()
	eta := now.Add(defaultTransferETA)
	if res.Transfer != nil && !res.Transfer.ETA.IsZero() {
		eta = res.Transfer.ETA
	}

	meta, err := json.Marshal(transferMeta{
		InvoiceID: uuid.UUID(invoice.ID).String(),
		OrderID:   res.OrderID,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not marshal transfer metadata: %w", err)
	}

	var created *domain.Domain
	err = o.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		d, err := tx.StoreDomain(ctx, domain.Domain{
			ID:                  domain.DomainID(uuid.New()),
			TenantID:            params.TenantID,
			Name:                name,
			Status:              domain.DomainStatusPendingTransfer,
			Registrar:           params.Registrar,
			AuthCode:            params.AuthCode,
			TransferInitiatedAt: now,
			TransferETA:         eta,
			TransferMetadata:    meta,
		})
		if err != nil {
			return err
		}

		inv, err := tx.UpdateInvoiceByID(ctx, invoice.ID, storage.InvoiceUpdates{
			Status:   domain.InvoiceStatusPaid,
			DomainID: &d.ID,
		})
		if err != nil {
			return err
		}

		if err := tx.AppendAudit(ctx, domain.AuditEntry{
			TenantID: params.TenantID,
			Action:   domain.AuditTransferInitiated,
			Entity:   "domain",
			EntityID: uuid.UUID(d.ID).String(),
			NewValue: string(domain.DomainStatusPendingTransfer),
			Actor:    actor,
		}); err != nil {
			return err
		}

		created = d
		invoice = inv

		return nil
	})
	if err != nil {
		logger.Error(ctx, "transfer initiated at registrar but not persisted locally",
			zap.String("domain", name),
			zap.String("orderId", res.OrderID),
			zap.Error(err))

		return nil, nil, fmt.Errorf("could not persist transfer of %q (order %s): %w",
			name, res.OrderID, err)
	}

	logger.Info(ctx, "transfer initiated",
		zap.String("domain", name),
		zap.String("registrar", params.Registrar),
		zap.Time("eta", eta))

	return created, invoice, nil
}

// PollTransfer asks the registrar for the current transfer state of one
// domain and advances local state accordingly. Unrecognized vendor statuses
// and backwards movements are ignored. The failure notification fires at
// most once because the guarded update only succeeds for the first poller
// that observes the change.
func (o *Orchestrator) PollTransfer(ctx context.Context, d domain.Domain) error {
	if !d.Status.IsTransferState() || d.Status.IsTerminalTransferState() {
		return nil
	}

	client, err := o.registry.Get(ctx, d.Registrar)
	if err != nil {
		return err
	}

	res, err := client.TransferStatus(ctx, d.Name)
	if err != nil {
		return err
	}
	if res.Transfer == nil || res.Transfer.Status == "" {
		logger.Warn(ctx, "unrecognized vendor transfer status, leaving state unchanged",
			zap.String("domain", d.Name),
			zap.String("vendorStatus", vendorStatusOf(res)))

		return nil
	}

	next := res.Transfer.Status
	if !d.Status.TransferAdvances(next) {
		return nil
	}

	updates := storage.DomainUpdates{
		Status:       next,
		ExpectStatus: d.Status,
	}
	if next == domain.DomainStatusTransferCompleted {
		// the secret is spent once the transfer lands on this side
		empty := ""
		updates.AuthCode = &empty
		if info, err := client.Info(ctx, d.Name); err == nil && info.Info != nil && !info.Info.ExpiresAt.IsZero() {
			updates.ExpiresAt = &info.Info.ExpiresAt
		}
	}

	var changed *domain.Domain
	err = o.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		upd, err := tx.UpdateDomainByID(ctx, d.ID, updates)
		if err != nil {
			return err
		}
		if upd == nil {
			// another poller won the race
			return nil
		}

		changed = upd

		return tx.AppendAudit(ctx, domain.AuditEntry{
			TenantID: d.TenantID,
			Action:   domain.AuditTransferStatusChanged,
			Entity:   "domain",
			EntityID: uuid.UUID(d.ID).String(),
			Field:    "status",
			OldValue: string(d.Status),
			NewValue: string(next),
			Actor:    SystemActor,
		})
	})
	if err != nil {
		return fmt.Errorf("could not advance transfer of %q: %w", d.Name, err)
	}
	if changed == nil {
		return nil
	}

	logger.Info(ctx, "transfer advanced",
		zap.String("domain", d.Name),
		zap.String("from", string(d.Status)),
		zap.String("to", string(next)))

	if next == domain.DomainStatusTransferFailed {
		reason := res.Message
		if reason == "" && res.Transfer != nil {
			reason = res.Transfer.VendorStatus
		}
		o.notifier.TransferFailed(ctx, *changed, reason)
	}

	return nil
}

// PollTransfers runs PollTransfer over every non-terminal transfer, isolating
// per-domain failures.
func (o *Orchestrator) PollTransfers(ctx context.Context, limit uint) error {
	active, err := o.storage.ActiveTransfers(ctx, limit)
	if err != nil {
		return err
	}

	for _, d := range active {
		if err := o.PollTransfer(ctx, d); err != nil {
			// once one poll is rate limited the rest of the batch will be too
			if errors.Is(err, serrors.ErrRateLimited) {
				return err
			}

			logger.Warn(ctx, "transfer poll failed",
				zap.String("domain", d.Name), zap.Error(err))
		}
	}

	return nil
}

// CancelTransfer cancels an in-flight transfer within the cancellation window
// and refunds the transfer fee.
func (o *Orchestrator) CancelTransfer(ctx context.Context,
	tenantID domain.TenantID,
	domainID domain.DomainID,
	actor string) (*domain.Domain, error) {
	d, err := o.storage.DomainByID(ctx, tenantID, domainID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, serrors.With(serrors.ErrNotFound, "domain not found")
	}
	if actor == "" {
		actor = uuid.UUID(tenantID).String()
	}

	unlock := o.locks.lock(d.Name)
	defer unlock()

	if !d.Status.CanCancelTransfer() {
		return nil, serrors.With(serrors.ErrBadRequest,
			"transfer of %q is in state %s and can no longer be cancelled", d.Name, d.Status)
	}
	if o.now().After(d.TransferInitiatedAt.Add(o.cancelWindow)) {
		return nil, serrors.With(serrors.ErrBadRequest,
			"the cancellation window for %q has closed", d.Name)
	}

	client, err := o.registry.Get(ctx, d.Registrar)
	if err != nil {
		return nil, err
	}

	res, err := client.CancelTransfer(ctx, d.Name)
	if err != nil {
		return nil, fmt.Errorf("could not cancel transfer of %q: %w", d.Name, err)
	}
	if !res.Success {
		return nil, serrors.With(serrors.ErrOperationFailed,
			"registrar refused to cancel transfer of %q: %s", d.Name, res.Message)
	}

	var meta transferMeta
	if len(d.TransferMetadata) > 0 {
		if err := json.Unmarshal(d.TransferMetadata, &meta); err != nil {
			logger.Warn(ctx, "could not decode transfer metadata, skipping refund",
				zap.String("domain", d.Name), zap.Error(err))
		}
	}

	var cancelled *domain.Domain
	err = o.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		upd, err := tx.UpdateDomainByID(ctx, d.ID, storage.DomainUpdates{
			Status:       domain.DomainStatusTransferCancelled,
			ExpectStatus: d.Status,
		})
		if err != nil {
			return err
		}
		if upd == nil {
			return serrors.With(serrors.ErrConflict, "transfer of %q changed concurrently", d.Name)
		}

		if meta.InvoiceID != "" {
			invoiceUUID, err := uuid.Parse(meta.InvoiceID)
			if err != nil {
				return fmt.Errorf("could not parse transfer invoice id: %w", err)
			}
			inv, err := tx.InvoiceByID(ctx, tenantID, domain.InvoiceID(invoiceUUID))
			if err != nil {
				return err
			}
			if inv != nil && inv.Status == domain.InvoiceStatusPaid {
				if _, err := tx.Refund(ctx, storage.LedgerParams{
					TenantID:    tenantID,
					Amount:      inv.Total,
					InvoiceID:   inv.ID,
					Actor:       actor,
					Description: fmt.Sprintf("refund for cancelled transfer of %s", d.Name),
				}); err != nil {
					return err
				}
				if _, err := tx.UpdateInvoiceByID(ctx, inv.ID, storage.InvoiceUpdates{
					Status: domain.InvoiceStatusRefunded,
				}); err != nil {
					return err
				}
			}
		}

		cancelled = upd

		return tx.AppendAudit(ctx, domain.AuditEntry{
			TenantID: tenantID,
			Action:   domain.AuditTransferCancelled,
			Entity:   "domain",
			EntityID: uuid.UUID(d.ID).String(),
			Field:    "status",
			OldValue: string(d.Status),
			NewValue: string(domain.DomainStatusTransferCancelled),
			Actor:    actor,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("could not persist transfer cancellation of %q: %w", d.Name, err)
	}

	logger.Info(ctx, "transfer cancelled", zap.String("domain", d.Name))

	return cancelled, nil
}

// AuthCode fetches the transfer auth code for a managed domain so the tenant
// can move it away. The code itself is returned to the caller and never logged.
func (o *Orchestrator) AuthCode(ctx context.Context,
	tenantID domain.TenantID,
	domainID domain.DomainID) (string, error) {
	d, err := o.storage.DomainByID(ctx, tenantID, domainID)
	if err != nil {
		return "", err
	}
	if d == nil {
		return "", serrors.With(serrors.ErrNotFound, "domain not found")
	}

	client, err := o.registry.Get(ctx, d.Registrar)
	if err != nil {
		return "", err
	}

	res, err := client.AuthCode(ctx, d.Name)
	if err != nil {
		return "", err
	}
	if !res.Success || res.AuthCode == "" {
		return "", serrors.With(serrors.ErrOperationFailed,
			"registrar did not return an auth code for %q", d.Name)
	}

	return res.AuthCode, nil
}

func vendorStatusOf(res *registrar.Response) string {
	if res.Transfer != nil {
		return res.Transfer.VendorStatus
	}

	return res.Message
}
