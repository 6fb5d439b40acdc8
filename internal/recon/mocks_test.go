package recon

import (
	"context"
	"fmt"
	"time"

	"github.com/shekelsync/shekelsync/internal/common"
	"github.com/shekelsync/shekelsync/internal/model"
	"github.com/shekelsync/shekelsync/internal/service"
)

// mockStore counts session checkouts so tests can assert that every public
// operation acquires exactly one session and releases it on every exit path.
type mockStore struct {
	session    *mockSession
	acquireErr error
	acquired   int
}

func (m *mockStore) Acquire(_ context.Context) (service.Session, error) {
	if m.acquireErr != nil {
		return nil, m.acquireErr
	}
	m.acquired++
	return m.session, nil
}

func (m *mockStore) Migrate(_ context.Context) error { return nil }
func (m *mockStore) Close() error                    { return nil }

func (m *mockStore) assertBalanced(t interface {
	Helper()
	Errorf(format string, args ...any)
}) {
	t.Helper()
	if m.session == nil {
		return
	}
	if m.acquired != m.session.released {
		t.Errorf("acquired %d sessions but released %d", m.acquired, m.session.released)
	}
}

// mockSession implements service.Session with overridable function fields.
// Unset fields fall back to empty results; category lookups default to not
// found. Audit log appends and transaction inserts are recorded for
// inspection.
type mockSession struct {
	createPairingFn       func(ctx context.Context, pairing *model.AccountPairing) error
	getPairingFn          func(ctx context.Context, id int64) (*model.AccountPairing, error)
	findPairingFn         func(ctx context.Context, ccVendor string, ccAccount *string, bankVendor string, bankAccount *string) (*model.AccountPairing, error)
	listPairingsFn        func(ctx context.Context, activeOnly bool) ([]model.AccountPairing, error)
	updatePairingFn       func(ctx context.Context, pairing *model.AccountPairing) error
	deletePairingFn       func(ctx context.Context, id int64) error
	listRepaymentsFn      func(ctx context.Context, categoryID int64, excludeVendors []string, since time.Time) ([]model.Transaction, error)
	listByVendorsFn       func(ctx context.Context, categoryID int64, vendors []string, since time.Time) ([]model.Transaction, error)
	listAccountRepayFn    func(ctx context.Context, categoryID int64, bankVendor string, bankAccount *string, since time.Time) ([]model.Transaction, error)
	listChargesFn         func(ctx context.Context, ccVendor string, ccAccount *string, date time.Time) ([]model.Transaction, error)
	listCardMentionsFn    func(ctx context.Context, keywords []string, categoryID int64, since time.Time) ([]model.Transaction, error)
	searchByPatternsFn    func(ctx context.Context, patterns []string, excludeVendors []string, limit int) ([]model.Transaction, error)
	earliestFn            func(ctx context.Context, vendor string, account *string) (*time.Time, error)
	recategorizeFn        func(ctx context.Context, patterns []string, categoryID int64) (int64, error)
	getCategoryFn         func(ctx context.Context, name string) (*model.Category, error)
	ensureCategoryFn      func(ctx context.Context, name string) (*model.Category, error)
	appendLogErr          error
	loggedActions         []model.PairingAction
	loggedDetails         []map[string]any
	insertedTransactions  []model.Transaction
	released              int
}

func (m *mockSession) CreatePairing(ctx context.Context, pairing *model.AccountPairing) error {
	if m.createPairingFn != nil {
		return m.createPairingFn(ctx, pairing)
	}
	pairing.ID = 1
	return nil
}

func (m *mockSession) GetPairing(ctx context.Context, id int64) (*model.AccountPairing, error) {
	if m.getPairingFn != nil {
		return m.getPairingFn(ctx, id)
	}
	return nil, fmt.Errorf("pairing %d: %w", id, common.ErrNotFound)
}

func (m *mockSession) FindPairingByAccounts(ctx context.Context, ccVendor string, ccAccount *string, bankVendor string, bankAccount *string) (*model.AccountPairing, error) {
	if m.findPairingFn != nil {
		return m.findPairingFn(ctx, ccVendor, ccAccount, bankVendor, bankAccount)
	}
	return nil, fmt.Errorf("pairing: %w", common.ErrNotFound)
}

func (m *mockSession) ListPairings(ctx context.Context, activeOnly bool) ([]model.AccountPairing, error) {
	if m.listPairingsFn != nil {
		return m.listPairingsFn(ctx, activeOnly)
	}
	return nil, nil
}

func (m *mockSession) UpdatePairing(ctx context.Context, pairing *model.AccountPairing) error {
	if m.updatePairingFn != nil {
		return m.updatePairingFn(ctx, pairing)
	}
	return nil
}

func (m *mockSession) DeletePairing(ctx context.Context, id int64) error {
	if m.deletePairingFn != nil {
		return m.deletePairingFn(ctx, id)
	}
	return nil
}

func (m *mockSession) AppendPairingLog(_ context.Context, _ int64, action model.PairingAction, details map[string]any) error {
	if m.appendLogErr != nil {
		return m.appendLogErr
	}
	m.loggedActions = append(m.loggedActions, action)
	m.loggedDetails = append(m.loggedDetails, details)
	return nil
}

func (m *mockSession) GetPairingLog(_ context.Context, _ int64) ([]model.PairingLogEntry, error) {
	return nil, nil
}

func (m *mockSession) ListRepayments(ctx context.Context, categoryID int64, excludeVendors []string, since time.Time) ([]model.Transaction, error) {
	if m.listRepaymentsFn != nil {
		return m.listRepaymentsFn(ctx, categoryID, excludeVendors, since)
	}
	return nil, nil
}

func (m *mockSession) ListRepaymentsByVendors(ctx context.Context, categoryID int64, vendors []string, since time.Time) ([]model.Transaction, error) {
	if m.listByVendorsFn != nil {
		return m.listByVendorsFn(ctx, categoryID, vendors, since)
	}
	return nil, nil
}

func (m *mockSession) ListAccountRepayments(ctx context.Context, categoryID int64, bankVendor string, bankAccount *string, since time.Time) ([]model.Transaction, error) {
	if m.listAccountRepayFn != nil {
		return m.listAccountRepayFn(ctx, categoryID, bankVendor, bankAccount, since)
	}
	return nil, nil
}

func (m *mockSession) ListChargesByProcessedDate(ctx context.Context, ccVendor string, ccAccount *string, date time.Time) ([]model.Transaction, error) {
	if m.listChargesFn != nil {
		return m.listChargesFn(ctx, ccVendor, ccAccount, date)
	}
	return nil, nil
}

func (m *mockSession) ListCardMentions(ctx context.Context, keywords []string, categoryID int64, since time.Time) ([]model.Transaction, error) {
	if m.listCardMentionsFn != nil {
		return m.listCardMentionsFn(ctx, keywords, categoryID, since)
	}
	return nil, nil
}

func (m *mockSession) SearchTransactionsByPatterns(ctx context.Context, patterns []string, excludeVendors []string, limit int) ([]model.Transaction, error) {
	if m.searchByPatternsFn != nil {
		return m.searchByPatternsFn(ctx, patterns, excludeVendors, limit)
	}
	return nil, nil
}

func (m *mockSession) EarliestTransactionDate(ctx context.Context, vendor string, account *string) (*time.Time, error) {
	if m.earliestFn != nil {
		return m.earliestFn(ctx, vendor, account)
	}
	return nil, nil
}

func (m *mockSession) RecategorizeByPatterns(ctx context.Context, patterns []string, categoryID int64) (int64, error) {
	if m.recategorizeFn != nil {
		return m.recategorizeFn(ctx, patterns, categoryID)
	}
	return 0, nil
}

func (m *mockSession) InsertTransaction(_ context.Context, txn *model.Transaction) error {
	m.insertedTransactions = append(m.insertedTransactions, *txn)
	return nil
}

func (m *mockSession) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if m.getCategoryFn != nil {
		return m.getCategoryFn(ctx, name)
	}
	return nil, fmt.Errorf("category %q: %w", name, common.ErrNotFound)
}

func (m *mockSession) EnsureCategory(ctx context.Context, name string) (*model.Category, error) {
	if m.ensureCategoryFn != nil {
		return m.ensureCategoryFn(ctx, name)
	}
	return &model.Category{ID: 1, Name: name}, nil
}

func (m *mockSession) Release() error {
	m.released++
	return nil
}

// mockRegistry implements service.VendorRegistry for tests.
type mockRegistry struct {
	vendors []string
	err     error
	calls   int
}

func (m *mockRegistry) BankVendors(_ context.Context) ([]string, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.vendors, nil
}

// newTestEngine wires an engine over a mock store with a fixed repayment
// category and a static bank-vendor registry.
func newTestEngine(session *mockSession) (*Engine, *mockStore) {
	store := &mockStore{session: session}
	engine := NewEngine(store, &mockRegistry{vendors: []string{"hapoalim", "leumi"}})
	return engine, store
}

// withRepaymentCategory configures the session to resolve the repayment
// category with the given id.
func withRepaymentCategory(session *mockSession, id int64) {
	session.getCategoryFn = func(_ context.Context, name string) (*model.Category, error) {
		if name == model.CategoryCardRepayments {
			return &model.Category{ID: id, Name: name}, nil
		}
		return nil, fmt.Errorf("category %q: %w", name, common.ErrNotFound)
	}
}

func strPtr(s string) *string { return &s }

func bankRow(name string, price float64, vendor, account string) model.Transaction {
	return model.Transaction{
		Identifier:    name,
		Vendor:        vendor,
		AccountNumber: strPtr(account),
		Date:          time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
		Name:          name,
		Price:         price,
		Status:        model.TransactionStatusCompleted,
	}
}
