package storage

import (
	"context"
	"time"

	"reseller/pkg/domain"
)

// InvoiceUpdates describes the optional fields that can be applied to an
// existing invoice. Only provided fields are changed.
type InvoiceUpdates struct {
	// Status is the new status to set. Empty leaves it unchanged.
	Status domain.InvoiceStatus
	// DomainID, when provided, links the invoice to the domain row created
	// after payment succeeded.
	DomainID *domain.DomainID
}

// TenantInvoices groups a page of invoices with an optional pagination cursor.
type TenantInvoices struct {
	Invoices   []domain.Invoice
	NextCursor *time.Time
}

// InvoiceStorage defines operations on invoices.
type InvoiceStorage interface {
	// StoreInvoice inserts an invoice and returns the stored row.
	StoreInvoice(ctx context.Context, inv domain.Invoice) (*domain.Invoice, error)
	// InvoiceByID fetches an invoice by its ID for the given tenant.
	// Returns nil when not found.
	InvoiceByID(ctx context.Context, tenantID domain.TenantID, ID domain.InvoiceID) (*domain.Invoice, error)
	// UpdateInvoiceByID updates a single invoice and returns the updated row.
	// Returns nil when the invoice does not exist.
	UpdateInvoiceByID(ctx context.Context, ID domain.InvoiceID, updates InvoiceUpdates) (*domain.Invoice, error)
	// TenantInvoices returns a page of invoices for a tenant created before the
	// optional cursor time, newest first, limited by limit.
	TenantInvoices(ctx context.Context,
		tenantID domain.TenantID,
		cursor time.Time,
		limit uint) (TenantInvoices, error)
}
