// Package memory implements the storage interfaces with in-process maps.
// It backs unit tests and local development where PostgreSQL is unavailable.
// Transactions are not isolated: Begin returns a handle over the same state
// and Commit/Rollback are accounting no-ops. Callers that need rollback
// semantics in tests should assert on the compensation writes instead.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"reseller/pkg/domain"
	"reseller/pkg/serrors"
	"reseller/pkg/storage"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// Job is one enqueued background job recorded for inspection.
type Job struct {
	Args river.JobArgs
	Opts *river.InsertOpts
}

// Store holds all state behind one mutex. Safe for concurrent use.
type Store struct {
	mu sync.Mutex

	domains  map[uuid.UUID]domain.Domain
	wallets  map[uuid.UUID]domain.Wallet // keyed by tenant ID
	entries  []domain.WalletEntry
	invoices map[uuid.UUID]domain.Invoice
	audit    []domain.AuditEntry
	prices   []domain.TLDPrice

	// Jobs records every enqueued job in insertion order.
	Jobs []Job

	// Now is swappable for deterministic timestamps in tests.
	Now func() time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		domains:  make(map[uuid.UUID]domain.Domain),
		wallets:  make(map[uuid.UUID]domain.Wallet),
		invoices: make(map[uuid.UUID]domain.Invoice),
		Now:      time.Now,
	}
}

func (s *Store) Close() error { return nil }

// Begin returns a transactional view over the same state.
func (s *Store) Begin(_ context.Context) (storage.TxStorage, error) {
	return &memTx{Store: s}, nil
}

// WithTx runs the callback against the store directly.
func (s *Store) WithTx(ctx context.Context, cb func(storage storage.AllStorage) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}

	if err := cb(tx); err != nil {
		_ = tx.Rollback()

		return err
	}

	return tx.Commit()
}

type memTx struct {
	*Store
}

func (t *memTx) Commit() error   { return nil }
func (t *memTx) Rollback() error { return nil }

// --- DomainStorage ---

func (s *Store) StoreDomain(_ context.Context, d domain.Domain) (*domain.Domain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if uuid.UUID(d.ID) == uuid.Nil {
		d.ID = domain.DomainID(uuid.New())
	}
	d.CreatedAt = s.Now()
	s.domains[uuid.UUID(d.ID)] = d

	out := d

	return &out, nil
}

func (s *Store) DomainByID(_ context.Context,
	tenantID domain.TenantID,
	id domain.DomainID) (*domain.Domain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.domains[uuid.UUID(id)]
	if !ok || d.TenantID != tenantID {
		return nil, nil
	}

	out := d

	return &out, nil
}

func (s *Store) DomainByName(_ context.Context, name string) (*domain.Domain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.domains {
		if d.Name == name && d.Status != domain.DomainStatusDeleted {
			out := d

			return &out, nil
		}
	}

	return nil, nil
}

func (s *Store) UpdateDomainByID(_ context.Context,
	id domain.DomainID,
	updates storage.DomainUpdates) (*domain.Domain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.domains[uuid.UUID(id)]
	if !ok {
		return nil, nil
	}
	if updates.ExpectStatus != "" && d.Status != updates.ExpectStatus {
		return nil, nil
	}

	if updates.Status != "" {
		d.Status = updates.Status
	}
	if updates.ExpiresAt != nil {
		d.ExpiresAt = *updates.ExpiresAt
	}
	if updates.AutoRenew != nil {
		d.AutoRenew = *updates.AutoRenew
	}
	if updates.AuthCode != nil {
		d.AuthCode = *updates.AuthCode
	}
	if updates.Nameservers != nil {
		d.Nameservers = append([]string(nil), updates.Nameservers...)
	}
	if updates.TransferInitiatedAt != nil {
		d.TransferInitiatedAt = *updates.TransferInitiatedAt
	}
	if updates.TransferETA != nil {
		d.TransferETA = *updates.TransferETA
	}
	if updates.TransferMetadata != nil {
		d.TransferMetadata = updates.TransferMetadata
	}
	if updates.LastSyncedAt != nil {
		d.LastSyncedAt = *updates.LastSyncedAt
	}
	if updates.LastSyncError != nil {
		d.LastSyncError = *updates.LastSyncError
	}
	if updates.SyncMetadata != nil {
		d.SyncMetadata = updates.SyncMetadata
	}
	d.UpdatedAt = s.Now()
	s.domains[uuid.UUID(id)] = d

	out := d

	return &out, nil
}

func (s *Store) TenantDomains(_ context.Context,
	tenantID domain.TenantID,
	status domain.DomainStatus,
	cursor time.Time,
	limit uint) (storage.TenantDomains, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []domain.Domain
	for _, d := range s.domains {
		if d.TenantID != tenantID {
			continue
		}
		if status != "" && d.Status != status {
			continue
		}
		if !cursor.IsZero() && !d.CreatedAt.Before(cursor) {
			continue
		}
		rows = append(rows, d)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })

	var nextCursor *time.Time
	if uint(len(rows)) > limit {
		rows = rows[:limit]
		c := rows[len(rows)-1].CreatedAt
		nextCursor = &c
	}

	return storage.TenantDomains{Domains: rows, NextCursor: nextCursor}, nil
}

func (s *Store) DomainsDueForSync(_ context.Context,
	registrar string,
	staleBefore time.Time,
	limit uint) ([]domain.Domain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []domain.Domain
	for _, d := range s.domains {
		if d.Registrar != registrar || d.Status == domain.DomainStatusDeleted {
			continue
		}
		if d.LastSyncedAt.IsZero() || d.LastSyncedAt.Before(staleBefore) {
			rows = append(rows, d)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ExpiresAt.Before(rows[j].ExpiresAt) })
	if uint(len(rows)) > limit {
		rows = rows[:limit]
	}

	return rows, nil
}

func (s *Store) AutoRenewDue(_ context.Context, before time.Time, limit uint) ([]domain.Domain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []domain.Domain
	for _, d := range s.domains {
		if d.AutoRenew && d.Status == domain.DomainStatusActive && d.ExpiresAt.Before(before) {
			rows = append(rows, d)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ExpiresAt.Before(rows[j].ExpiresAt) })
	if uint(len(rows)) > limit {
		rows = rows[:limit]
	}

	return rows, nil
}

func (s *Store) ActiveTransfers(_ context.Context, limit uint) ([]domain.Domain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []domain.Domain
	for _, d := range s.domains {
		if d.Status.IsTransferState() && !d.Status.IsTerminalTransferState() {
			rows = append(rows, d)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].TransferInitiatedAt.Before(rows[j].TransferInitiatedAt)
	})
	if uint(len(rows)) > limit {
		rows = rows[:limit]
	}

	return rows, nil
}

// --- WalletStorage ---

func (s *Store) CreateWallet(_ context.Context, w domain.Wallet) (*domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if uuid.UUID(w.ID) == uuid.Nil {
		w.ID = domain.WalletID(uuid.New())
	}
	w.CreatedAt = s.Now()
	s.wallets[uuid.UUID(w.TenantID)] = w

	out := w

	return &out, nil
}

func (s *Store) WalletByTenant(_ context.Context, tenantID domain.TenantID) (*domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[uuid.UUID(tenantID)]
	if !ok {
		return nil, nil
	}

	out := w

	return &out, nil
}

func (s *Store) Debit(_ context.Context, params storage.LedgerParams) (*domain.WalletEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !params.Amount.IsPositive() {
		return nil, serrors.With(serrors.ErrInvalidData, "debit amount must be positive")
	}

	w, ok := s.wallets[uuid.UUID(params.TenantID)]
	if !ok {
		return nil, serrors.With(serrors.ErrNotFound, "tenant has no wallet")
	}
	if w.Balance.LessThan(params.Amount) {
		return nil, serrors.With(serrors.ErrInsufficientFunds,
			"wallet balance does not cover %s", params.Amount.String())
	}

	w.Balance = w.Balance.Sub(params.Amount)

	return s.applyEntry(w, domain.EntryDebit, params), nil
}

func (s *Store) Credit(_ context.Context, params storage.LedgerParams) (*domain.WalletEntry, error) {
	return s.addFunds(domain.EntryCredit, params)
}

func (s *Store) Refund(_ context.Context, params storage.LedgerParams) (*domain.WalletEntry, error) {
	return s.addFunds(domain.EntryRefund, params)
}

func (s *Store) addFunds(entryType domain.EntryType, params storage.LedgerParams) (*domain.WalletEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !params.Amount.IsPositive() {
		return nil, serrors.With(serrors.ErrInvalidData, "%s amount must be positive", entryType)
	}

	w, ok := s.wallets[uuid.UUID(params.TenantID)]
	if !ok {
		return nil, serrors.With(serrors.ErrNotFound, "tenant has no wallet")
	}

	w.Balance = w.Balance.Add(params.Amount)

	return s.applyEntry(w, entryType, params), nil
}

// applyEntry stores the updated wallet and appends the ledger row.
// Caller must hold s.mu.
func (s *Store) applyEntry(w domain.Wallet,
	entryType domain.EntryType,
	params storage.LedgerParams) *domain.WalletEntry {
	w.UpdatedAt = s.Now()
	s.wallets[uuid.UUID(w.TenantID)] = w

	entry := domain.WalletEntry{
		ID:           domain.WalletEntryID(uuid.New()),
		WalletID:     w.ID,
		Type:         entryType,
		Amount:       params.Amount,
		BalanceAfter: w.Balance,
		InvoiceID:    params.InvoiceID,
		Actor:        params.Actor,
		Description:  params.Description,
		CreatedAt:    s.Now(),
	}
	s.entries = append(s.entries, entry)

	out := entry

	return &out
}

func (s *Store) WalletEntries(_ context.Context,
	tenantID domain.TenantID,
	limit uint) ([]domain.WalletEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[uuid.UUID(tenantID)]
	if !ok {
		return nil, nil
	}

	var rows []domain.WalletEntry
	for i := len(s.entries) - 1; i >= 0 && uint(len(rows)) < limit; i-- {
		if s.entries[i].WalletID == w.ID {
			rows = append(rows, s.entries[i])
		}
	}

	return rows, nil
}

// --- InvoiceStorage ---

func (s *Store) StoreInvoice(_ context.Context, inv domain.Invoice) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if uuid.UUID(inv.ID) == uuid.Nil {
		inv.ID = domain.InvoiceID(uuid.New())
	}
	inv.CreatedAt = s.Now()
	s.invoices[uuid.UUID(inv.ID)] = inv

	out := inv

	return &out, nil
}

func (s *Store) InvoiceByID(_ context.Context,
	tenantID domain.TenantID,
	id domain.InvoiceID) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[uuid.UUID(id)]
	if !ok || inv.TenantID != tenantID {
		return nil, nil
	}

	out := inv

	return &out, nil
}

func (s *Store) UpdateInvoiceByID(_ context.Context,
	id domain.InvoiceID,
	updates storage.InvoiceUpdates) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[uuid.UUID(id)]
	if !ok {
		return nil, nil
	}

	if updates.Status != "" {
		inv.Status = updates.Status
	}
	if updates.DomainID != nil {
		inv.DomainID = *updates.DomainID
	}
	inv.UpdatedAt = s.Now()
	s.invoices[uuid.UUID(id)] = inv

	out := inv

	return &out, nil
}

func (s *Store) TenantInvoices(_ context.Context,
	tenantID domain.TenantID,
	cursor time.Time,
	limit uint) (storage.TenantInvoices, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []domain.Invoice
	for _, inv := range s.invoices {
		if inv.TenantID != tenantID {
			continue
		}
		if !cursor.IsZero() && !inv.CreatedAt.Before(cursor) {
			continue
		}
		rows = append(rows, inv)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })

	var nextCursor *time.Time
	if uint(len(rows)) > limit {
		rows = rows[:limit]
		c := rows[len(rows)-1].CreatedAt
		nextCursor = &c
	}

	return storage.TenantInvoices{Invoices: rows, NextCursor: nextCursor}, nil
}

// --- AuditStorage ---

func (s *Store) AppendAudit(_ context.Context, entries ...domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if uuid.UUID(e.ID) == uuid.Nil {
			e.ID = domain.AuditEntryID(uuid.New())
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = s.Now()
		}
		s.audit = append(s.audit, e)
	}

	return nil
}

func (s *Store) AuditTrail(_ context.Context,
	entity, entityID string,
	limit uint) ([]domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []domain.AuditEntry
	for i := len(s.audit) - 1; i >= 0 && uint(len(rows)) < limit; i-- {
		if s.audit[i].Entity == entity && s.audit[i].EntityID == entityID {
			rows = append(rows, s.audit[i])
		}
	}

	return rows, nil
}

// --- PriceStorage ---

func (s *Store) StorePrices(_ context.Context, prices ...domain.TLDPrice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tp := range prices {
		if tp.CreatedAt.IsZero() {
			tp.CreatedAt = s.Now()
		}
		s.prices = append(s.prices, tp)
	}

	return nil
}

func (s *Store) LatestPrice(_ context.Context,
	registrar, tld string,
	action domain.InvoiceAction) (*domain.TLDPrice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.prices) - 1; i >= 0; i-- {
		tp := s.prices[i]
		if tp.Registrar == registrar && tp.TLD == tld && tp.Action == action {
			out := tp

			return &out, nil
		}
	}

	return nil, nil
}

func (s *Store) LatestPrices(_ context.Context, registrar string) ([]domain.TLDPrice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	var rows []domain.TLDPrice
	for i := len(s.prices) - 1; i >= 0; i-- {
		tp := s.prices[i]
		if tp.Registrar != registrar {
			continue
		}
		key := tp.TLD + "/" + string(tp.Action)
		if seen[key] {
			continue
		}
		seen[key] = true
		rows = append(rows, tp)
	}

	return rows, nil
}

// --- JobStorage ---

func (s *Store) AddJob(_ context.Context, args river.JobArgs, opts *river.InsertOpts) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Jobs = append(s.Jobs, Job{Args: args, Opts: opts})

	return true, nil
}

// AuditEntries returns a copy of the full audit log for test assertions.
func (s *Store) AuditEntries() []domain.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]domain.AuditEntry(nil), s.audit...)
}

// compile-time interface check
var _ storage.Storage = (*Store)(nil)
