package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"reseller/pkg/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PgDomain struct {
	ID       uuid.UUID `db:"id"        goqu:"skipinsert"`
	TenantID uuid.UUID `db:"tenant_id"`

	Name      string `db:"name"`
	Status    string `db:"status"`
	Registrar string `db:"registrar"`

	ExpiresAt time.Time `db:"expires_at"`
	AutoRenew bool      `db:"auto_renew"`

	AuthCode            sql.NullString `db:"auth_code"`
	TransferInitiatedAt sql.NullTime   `db:"transfer_initiated_at"`
	TransferETA         sql.NullTime   `db:"transfer_eta"`

	LastSyncedAt  sql.NullTime    `db:"last_synced_at"  goqu:"skipinsert"`
	LastSyncError sql.NullString  `db:"last_sync_error" goqu:"skipinsert"`
	SyncMetadata  json.RawMessage `db:"sync_metadata"   goqu:"skipinsert"`
	TransferMeta  json.RawMessage `db:"transfer_metadata"`

	Nameservers json.RawMessage `db:"nameservers"`

	CreatedAt time.Time    `db:"created_at" goqu:"skipinsert"`
	UpdatedAt sql.NullTime `db:"updated_at" goqu:"skipinsert"`
}

func (p *PgDomain) ToDomain() (*domain.Domain, error) {
	var ns []string
	if len(p.Nameservers) > 0 {
		if err := json.Unmarshal(p.Nameservers, &ns); err != nil {
			return nil, fmt.Errorf("could not unmarshal nameservers: %w", err)
		}
	}

	return &domain.Domain{
		ID:                  domain.DomainID(p.ID),
		TenantID:            domain.TenantID(p.TenantID),
		Name:                p.Name,
		Status:              domain.DomainStatus(p.Status),
		Registrar:           p.Registrar,
		ExpiresAt:           p.ExpiresAt,
		AutoRenew:           p.AutoRenew,
		AuthCode:            p.AuthCode.String,
		TransferInitiatedAt: p.TransferInitiatedAt.Time,
		TransferETA:         p.TransferETA.Time,
		LastSyncedAt:        p.LastSyncedAt.Time,
		LastSyncError:       p.LastSyncError.String,
		SyncMetadata:        p.SyncMetadata,
		TransferMetadata:    p.TransferMeta,
		Nameservers:         ns,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt.Time,
	}, nil
}

func (p *PgDomain) FromDomain(d domain.Domain) error {
	ns, err := json.Marshal(d.Nameservers)
	if err != nil {
		return fmt.Errorf("could not marshal nameservers: %w", err)
	}

	*p = PgDomain{
		ID:        uuid.UUID(d.ID),
		TenantID:  uuid.UUID(d.TenantID),
		Name:      d.Name,
		Status:    string(d.Status),
		Registrar: d.Registrar,
		ExpiresAt: d.ExpiresAt,
		AutoRenew: d.AutoRenew,
		AuthCode: sql.NullString{
			String: d.AuthCode,
			Valid:  d.AuthCode != "",
		},
		TransferInitiatedAt: sql.NullTime{
			Time:  d.TransferInitiatedAt,
			Valid: !d.TransferInitiatedAt.IsZero(),
		},
		TransferETA: sql.NullTime{
			Time:  d.TransferETA,
			Valid: !d.TransferETA.IsZero(),
		},
		LastSyncedAt: sql.NullTime{
			Time:  d.LastSyncedAt,
			Valid: !d.LastSyncedAt.IsZero(),
		},
		LastSyncError: sql.NullString{
			String: d.LastSyncError,
			Valid:  d.LastSyncError != "",
		},
		SyncMetadata: d.SyncMetadata,
		TransferMeta: d.TransferMetadata,
		Nameservers:  ns,
		CreatedAt:    d.CreatedAt,
		UpdatedAt: sql.NullTime{
			Time:  d.UpdatedAt,
			Valid: !d.UpdatedAt.IsZero(),
		},
	}

	return nil
}

func pgDomainsToDomain(rows []PgDomain) ([]domain.Domain, error) {
	out := make([]domain.Domain, 0, len(rows))
	for _, row := range rows {
		d, err := row.ToDomain()
		if err != nil {
			return nil, err
		}

		out = append(out, *d)
	}

	return out, nil
}

type PgWallet struct {
	ID       uuid.UUID `db:"id"        goqu:"skipinsert"`
	TenantID uuid.UUID `db:"tenant_id"`

	Balance  decimal.Decimal `db:"balance"`
	Currency string          `db:"currency"`

	CreatedAt time.Time    `db:"created_at" goqu:"skipinsert"`
	UpdatedAt sql.NullTime `db:"updated_at" goqu:"skipinsert"`
}

func (p *PgWallet) ToDomain() *domain.Wallet {
	return &domain.Wallet{
		ID:        domain.WalletID(p.ID),
		TenantID:  domain.TenantID(p.TenantID),
		Balance:   p.Balance,
		Currency:  p.Currency,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt.Time,
	}
}

type PgWalletEntry struct {
	ID       uuid.UUID `db:"id" goqu:"skipinsert"`
	WalletID uuid.UUID `db:"wallet_id"`

	Type         string          `db:"type"`
	Amount       decimal.Decimal `db:"amount"`
	BalanceAfter decimal.Decimal `db:"balance_after"`

	InvoiceID   uuid.NullUUID  `db:"invoice_id"`
	Actor       string         `db:"actor"`
	Description sql.NullString `db:"description"`

	CreatedAt time.Time `db:"created_at" goqu:"skipinsert"`
}

func (p *PgWalletEntry) ToDomain() *domain.WalletEntry {
	return &domain.WalletEntry{
		ID:           domain.WalletEntryID(p.ID),
		WalletID:     domain.WalletID(p.WalletID),
		Type:         domain.EntryType(p.Type),
		Amount:       p.Amount,
		BalanceAfter: p.BalanceAfter,
		InvoiceID:    domain.InvoiceID(p.InvoiceID.UUID),
		Actor:        p.Actor,
		Description:  p.Description.String,
		CreatedAt:    p.CreatedAt,
	}
}

type PgInvoice struct {
	ID       uuid.UUID `db:"id" goqu:"skipinsert"`
	TenantID uuid.UUID `db:"tenant_id"`

	Status string          `db:"status"`
	Action string          `db:"action"`
	Total  decimal.Decimal `db:"total"`

	DomainName string        `db:"domain_name"`
	DomainID   uuid.NullUUID `db:"domain_id"`
	Years      int           `db:"years"`

	CreatedAt time.Time    `db:"created_at" goqu:"skipinsert"`
	UpdatedAt sql.NullTime `db:"updated_at" goqu:"skipinsert"`
}

func (p *PgInvoice) ToDomain() *domain.Invoice {
	return &domain.Invoice{
		ID:         domain.InvoiceID(p.ID),
		TenantID:   domain.TenantID(p.TenantID),
		Status:     domain.InvoiceStatus(p.Status),
		Action:     domain.InvoiceAction(p.Action),
		Total:      p.Total,
		DomainName: p.DomainName,
		DomainID:   domain.DomainID(p.DomainID.UUID),
		Years:      p.Years,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt.Time,
	}
}

func (p *PgInvoice) FromDomain(inv domain.Invoice) {
	*p = PgInvoice{
		ID:         uuid.UUID(inv.ID),
		TenantID:   uuid.UUID(inv.TenantID),
		Status:     string(inv.Status),
		Action:     string(inv.Action),
		Total:      inv.Total,
		DomainName: inv.DomainName,
		DomainID: uuid.NullUUID{
			UUID:  uuid.UUID(inv.DomainID),
			Valid: uuid.UUID(inv.DomainID) != uuid.Nil,
		},
		Years:     inv.Years,
		CreatedAt: inv.CreatedAt,
		UpdatedAt: sql.NullTime{
			Time:  inv.UpdatedAt,
			Valid: !inv.UpdatedAt.IsZero(),
		},
	}
}

type PgAuditEntry struct {
	ID       uuid.UUID     `db:"id" goqu:"skipinsert"`
	TenantID uuid.NullUUID `db:"tenant_id"`

	Action   string `db:"action"`
	Entity   string `db:"entity"`
	EntityID string `db:"entity_id"`

	Field    sql.NullString `db:"field"`
	OldValue sql.NullString `db:"old_value"`
	NewValue sql.NullString `db:"new_value"`

	Actor string `db:"actor"`

	CreatedAt time.Time `db:"created_at" goqu:"skipinsert"`
}

func (p *PgAuditEntry) ToDomain() *domain.AuditEntry {
	return &domain.AuditEntry{
		ID:        domain.AuditEntryID(p.ID),
		TenantID:  domain.TenantID(p.TenantID.UUID),
		Action:    domain.AuditAction(p.Action),
		Entity:    p.Entity,
		EntityID:  p.EntityID,
		Field:     p.Field.String,
		OldValue:  p.OldValue.String,
		NewValue:  p.NewValue.String,
		Actor:     p.Actor,
		CreatedAt: p.CreatedAt,
	}
}

func (p *PgAuditEntry) FromDomain(e domain.AuditEntry) {
	*p = PgAuditEntry{
		ID: uuid.UUID(e.ID),
		TenantID: uuid.NullUUID{
			UUID:  uuid.UUID(e.TenantID),
			Valid: uuid.UUID(e.TenantID) != uuid.Nil,
		},
		Action:   string(e.Action),
		Entity:   e.Entity,
		EntityID: e.EntityID,
		Field: sql.NullString{
			String: e.Field,
			Valid:  e.Field != "",
		},
		OldValue: sql.NullString{
			String: e.OldValue,
			Valid:  e.OldValue != "",
		},
		NewValue: sql.NullString{
			String: e.NewValue,
			Valid:  e.NewValue != "",
		},
		Actor:     e.Actor,
		CreatedAt: e.CreatedAt,
	}
}

type PgTLDPrice struct {
	Registrar string `db:"registrar"`
	TLD       string `db:"tld"`
	Action    string `db:"action"`

	Price    decimal.Decimal `db:"price"`
	Currency string          `db:"currency"`

	CreatedAt time.Time `db:"created_at" goqu:"skipinsert"`
}

func (p *PgTLDPrice) ToDomain() *domain.TLDPrice {
	return &domain.TLDPrice{
		Registrar: p.Registrar,
		TLD:       p.TLD,
		Action:    domain.InvoiceAction(p.Action),
		Price:     p.Price,
		Currency:  p.Currency,
		CreatedAt: p.CreatedAt,
	}
}

func (p *PgTLDPrice) FromDomain(tp domain.TLDPrice) {
	*p = PgTLDPrice{
		Registrar: tp.Registrar,
		TLD:       tp.TLD,
		Action:    string(tp.Action),
		Price:     tp.Price,
		Currency:  tp.Currency,
		CreatedAt: tp.CreatedAt,
	}
}
