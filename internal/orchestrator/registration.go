package orchestrator

import (
	"context"
	"fmt"

	"reseller/pkg/domain"
	"reseller/pkg/logger"
	"reseller/pkg/registrar"
	"reseller/pkg/serrors"
	"reseller/pkg/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RegistrationParams are the inputs for registering a new domain.
type RegistrationParams struct {
	TenantID  domain.TenantID
	Registrar string

	Name        string
	Years       int
	Nameservers []string
	Contacts    []domain.Contact
	AutoRenew   bool

	// Actor identifies who triggered the registration; defaults to the tenant.
	Actor string
}

// Register runs the full registration saga and returns the created domain
// and its paid invoice. On registrar failure the wallet debit is refunded,
// the invoice is marked failed and no domain row is created.
func (o *Orchestrator) Register(ctx context.Context,
	params RegistrationParams) (*domain.Domain, *domain.Invoice, error) {
	name, err := registrar.NormalizeDomainName(params.Name)
	if err != nil {
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
		return nil, nil, serrors.With(serrors.ErrConflict, "domain %q already exists", name)
	}

	client, err := o.registry.Get(ctx, params.Registrar)
	if err != nil {
		return nil, nil, err
	}

	available, err := client.CheckAvailability(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	if !available {
		return nil, nil, serrors.With(serrors.ErrConflict, "domain %q is not available", name)
	}

	total, err := o.priceFor(ctx, params.Registrar, name, domain.ActionRegister, params.Years)
	if err != nil {
		return nil, nil, err
	}

	invoice, err := o.charge(ctx, params.TenantID, domain.ActionRegister, name, params.Years, total, actor)
	if err != nil {
		return nil, nil, err
	}

	// registrar call happens outside any transaction
	res, err := client.Register(ctx, registrar.RegisterParams{
		Name:        name,
		Years:       params.Years,
		Nameservers: params.Nameservers,
		Contacts:    params.Contacts,
	})
	if err != nil || !res.Success {
		reason := "registrar rejected the registration"
		if err != nil {
			reason = err.Error()
		} else if res.Message != "" {
			reason = res.Message
		}
		if refundErr := o.refund(ctx, invoice, domain.AuditRegistrationFailed, reason, actor); refundErr != nil {
			return nil, nil, refundErr
		}
		if err != nil {
			return nil, nil, fmt.Errorf("could not register %q: %w", name, err)
		}

		return nil, nil, serrors.With(serrors.ErrOperationFailed, "could not register %q: %s", name, reason)
	}

	expiresAt := o.now().AddDate(params.Years, 0, 0)
	if res.Info != nil && !res.Info.ExpiresAt.IsZero() {
		expiresAt = res.Info.ExpiresAt
	}

	var created *domain.Domain
	err = o.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		d, err := tx.StoreDomain(ctx, domain.Domain{
			ID:          domain.DomainID(uuid.New()),
			TenantID:    params.TenantID,
			Name:        name,
			Status:      domain.DomainStatusPendingRegistration,
			Registrar:   params.Registrar,
			ExpiresAt:   expiresAt,
			AutoRenew:   params.AutoRenew,
			Nameservers: params.Nameservers,
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
			Action:   domain.AuditDomainRegistered,
			Entity:   "domain",
			EntityID: uuid.UUID(d.ID).String(),
			NewValue: string(d.Status),
			Actor:    actor,
		}); err != nil {
			return err
		}

		created = d
		invoice = inv

		return nil
	})
	if err != nil {
		// the registrar order went through; surface the order id for repair
		logger.Error(ctx, "registration persisted at registrar but not locally",
			zap.String("domain", name),
			zap.String("orderId", res.OrderID),
			zap.Error(err))

		return nil, nil, fmt.Errorf("could not persist registration of %q (order %s): %w",
			name, res.OrderID, err)
	}

	logger.Info(ctx, "domain registered",
		zap.String("domain", name),
		zap.String("registrar", params.Registrar),
		zap.Int("years", params.Years))

	return created, invoice, nil
}
