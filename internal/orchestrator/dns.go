package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"reseller/pkg/domain"
	"reseller/pkg/logger"
	"reseller/pkg/serrors"
	"reseller/pkg/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Infrastructure updates are free of charge: no wallet movement, no invoice.
// Each applies the change at the registrar first, then persists and audits
// the old/new pair locally.

// UpdateNameservers replaces a domain's delegation set.
func (o *Orchestrator) UpdateNameservers(ctx context.Context,
	tenantID domain.TenantID,
	domainID domain.DomainID,
	nameservers []string,
	actor string) (*domain.Domain, error) {
	d, err := o.ownedDomain(ctx, tenantID, domainID)
	if err != nil {
		return nil, err
	}
	if actor == "" {
		actor = uuid.UUID(tenantID).String()
	}

	unlock := o.locks.lock(d.Name)
	defer unlock()

	client, err := o.registry.Get(ctx, d.Registrar)
	if err != nil {
		return nil, err
	}

	res, err := client.UpdateNameservers(ctx, d.Name, nameservers)
	if err != nil {
		return nil, fmt.Errorf("could not update nameservers of %q: %w", d.Name, err)
	}
	if !res.Success {
		return nil, serrors.With(serrors.ErrOperationFailed,
			"registrar refused nameserver update for %q: %s", d.Name, res.Message)
	}

	oldNS, _ := json.Marshal(d.Nameservers)
	newNS, _ := json.Marshal(nameservers)

	var updated *domain.Domain
	err = o.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		upd, err := tx.UpdateDomainByID(ctx, d.ID, storage.DomainUpdates{
			Nameservers: nameservers,
		})
		if err != nil {
			return err
		}
		if upd == nil {
			return serrors.With(serrors.ErrNotFound, "domain %q disappeared", d.Name)
		}

		updated = upd

		return tx.AppendAudit(ctx, domain.AuditEntry{
			TenantID: tenantID,
			Action:   domain.AuditNameserversUpdated,
			Entity:   "domain",
			EntityID: uuid.UUID(d.ID).String(),
			Field:    "nameservers",
			OldValue: string(oldNS),
			NewValue: string(newNS),
			Actor:    actor,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("could not persist nameserver update of %q: %w", d.Name, err)
	}

	logger.Info(ctx, "nameservers updated", zap.String("domain", d.Name))

	return updated, nil
}

// UpdateDNSRecords replaces the records managed at the registrar. The
// registrar applies the full set as a unit; local state only records the
// audit trail since records live at the vendor.
func (o *Orchestrator) UpdateDNSRecords(ctx context.Context,
	tenantID domain.TenantID,
	domainID domain.DomainID,
	records []domain.DNSRecord,
	actor string) error {
	d, err := o.ownedDomain(ctx, tenantID, domainID)
	if err != nil {
		return err
	}
	if actor == "" {
		actor = uuid.UUID(tenantID).String()
	}

	unlock := o.locks.lock(d.Name)
	defer unlock()

	client, err := o.registry.Get(ctx, d.Registrar)
	if err != nil {
		return err
	}

	// capture the previous set for the audit pair before replacing it
	var oldRecords []domain.DNSRecord
	if prev, err := client.DNSRecords(ctx, d.Name); err != nil {
		logger.Warn(ctx, "could not fetch previous dns records for audit",
			zap.String("domain", d.Name), zap.Error(err))
	} else {
		oldRecords = prev.Records
	}

	res, err := client.UpdateDNSRecords(ctx, d.Name, records)
	if err != nil {
		return fmt.Errorf("could not update dns records of %q: %w", d.Name, err)
	}
	if !res.Success {
		return serrors.With(serrors.ErrOperationFailed,
			"registrar refused dns update for %q: %s", d.Name, res.Message)
	}

	oldJSON, _ := json.Marshal(oldRecords)
	newJSON, _ := json.Marshal(records)

	if err := o.storage.AppendAudit(ctx, domain.AuditEntry{
		TenantID: tenantID,
		Action:   domain.AuditDNSRecordsUpdated,
		Entity:   "domain",
		EntityID: uuid.UUID(d.ID).String(),
		Field:    "dns_records",
		OldValue: string(oldJSON),
		NewValue: string(newJSON),
		Actor:    actor,
	}); err != nil {
		return fmt.Errorf("could not audit dns update of %q: %w", d.Name, err)
	}

	logger.Info(ctx, "dns records updated",
		zap.String("domain", d.Name), zap.Int("records", len(records)))

	return nil
}

// UpdateContacts replaces the contacts attached to a domain.
func (o *Orchestrator) UpdateContacts(ctx context.Context,
	tenantID domain.TenantID,
	domainID domain.DomainID,
	contacts []domain.Contact,
	actor string) error {
	d, err := o.ownedDomain(ctx, tenantID, domainID)
	if err != nil {
		return err
	}
	if actor == "" {
		actor = uuid.UUID(tenantID).String()
	}

	unlock := o.locks.lock(d.Name)
	defer unlock()

	client, err := o.registry.Get(ctx, d.Registrar)
	if err != nil {
		return err
	}

	var oldContacts []domain.Contact
	if prev, err := client.Contacts(ctx, d.Name); err != nil {
		logger.Warn(ctx, "could not fetch previous contacts for audit",
			zap.String("domain", d.Name), zap.Error(err))
	} else {
		oldContacts = prev.Contacts
	}

	res, err := client.UpdateContacts(ctx, d.Name, contacts)
	if err != nil {
		return fmt.Errorf("could not update contacts of %q: %w", d.Name, err)
	}
	if !res.Success {
		return serrors.With(serrors.ErrOperationFailed,
			"registrar refused contact update for %q: %s", d.Name, res.Message)
	}

	oldJSON, _ := json.Marshal(oldContacts)
	newJSON, _ := json.Marshal(contacts)

	if err := o.storage.AppendAudit(ctx, domain.AuditEntry{
		TenantID: tenantID,
		Action:   domain.AuditContactsUpdated,
		Entity:   "domain",
		EntityID: uuid.UUID(d.ID).String(),
		Field:    "contacts",
		OldValue: string(oldJSON),
		NewValue: string(newJSON),
		Actor:    actor,
	}); err != nil {
		return fmt.Errorf("could not audit contact update of %q: %w", d.Name, err)
	}

	return nil
}

// SetAutoRenew toggles the local auto-renew flag.
func (o *Orchestrator) SetAutoRenew(ctx context.Context,
	tenantID domain.TenantID,
	domainID domain.DomainID,
	autoRenew bool) (*domain.Domain, error) {
	if _, err := o.ownedDomain(ctx, tenantID, domainID); err != nil {
		return nil, err
	}

	upd, err := o.storage.UpdateDomainByID(ctx, domainID, storage.DomainUpdates{
		AutoRenew: &autoRenew,
	})
	if err != nil {
		return nil, err
	}
	if upd == nil {
		return nil, serrors.With(serrors.ErrNotFound, "domain not found")
	}

	return upd, nil
}

// ownedDomain loads a domain and verifies tenant ownership.
func (o *Orchestrator) ownedDomain(ctx context.Context,
	tenantID domain.TenantID,
	domainID domain.DomainID) (*domain.Domain, error) {
	d, err := o.storage.DomainByID(ctx, tenantID, domainID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, serrors.With(serrors.ErrNotFound, "domain not found")
	}

	return d, nil
}
