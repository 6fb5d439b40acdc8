package recon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shekelsync/shekelsync/internal/model"
)

func TestUnpairedTransactions_RegistryFailureFailsOpen(t *testing.T) {
	store := &mockStore{session: &mockSession{}}
	engine := NewEngine(store, &mockRegistry{err: errors.New("registry unreachable")})

	report, err := engine.UnpairedTransactions(context.Background())
	if err != nil {
		t.Fatalf("a registry failure must not fail the operation, got %v", err)
	}
	if report.Count != 0 || len(report.Transactions) != 0 {
		t.Errorf("expected empty report, got %+v", report)
	}
	if store.acquired != 0 {
		t.Errorf("no session should be acquired when the registry fails, acquired %d", store.acquired)
	}
}

func TestUnpairedTransactions_FiltersCoveredRows(t *testing.T) {
	session := &mockSession{}
	withRepaymentCategory(session, 7)
	session.listByVendorsFn = func(_ context.Context, categoryID int64, vendorList []string, _ time.Time) ([]model.Transaction, error) {
		if categoryID != 7 {
			t.Errorf("categoryID = %d, want 7", categoryID)
		}
		if len(vendorList) != 2 {
			t.Errorf("vendor list = %v, want the registry's two vendors", vendorList)
		}
		return []model.Transaction{
			bankRow("ישראכרט 5678", -1000, "hapoalim", "111"),
			bankRow("תשלום אחר", -200, "leumi", "222"),
		}, nil
	}
	session.listPairingsFn = func(_ context.Context, _ bool) ([]model.AccountPairing, error) {
		return []model.AccountPairing{
			{ID: 1, CreditCardVendor: "isracard", BankVendor: "hapoalim", MatchPatterns: []string{"ישראכרט"}, IsActive: true},
		}, nil
	}
	engine, store := newTestEngine(session)

	report, err := engine.UnpairedTransactions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Count != 1 {
		t.Fatalf("count = %d, want 1", report.Count)
	}
	if report.Transactions[0].Name != "תשלום אחר" {
		t.Errorf("unpaired row = %q, want the uncovered one", report.Transactions[0].Name)
	}
	store.assertBalanced(t)
}

func TestUnpairedTransactions_NoCategory(t *testing.T) {
	session := &mockSession{}
	engine, store := newTestEngine(session)

	report, err := engine.UnpairedTransactions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Count != 0 {
		t.Errorf("count = %d, want 0", report.Count)
	}
	store.assertBalanced(t)
}
