package recon

import (
	"context"
	"testing"
	"time"

	"github.com/shekelsync/shekelsync/internal/common"
	"github.com/shekelsync/shekelsync/internal/model"
)

var (
	testNow      = time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	testEarliest = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
)

// cycleEngine builds an engine whose single cycle (2026-05-02) repays the
// card with the given bank rows against the given card charges.
func cycleEngine(repayments, charges []model.Transaction) (*Engine, *mockStore) {
	session := &mockSession{}
	withRepaymentCategory(session, 7)
	session.listAccountRepayFn = func(_ context.Context, _ int64, _ string, _ *string, _ time.Time) ([]model.Transaction, error) {
		return repayments, nil
	}
	session.listChargesFn = func(_ context.Context, _ string, _ *string, _ time.Time) ([]model.Transaction, error) {
		return charges, nil
	}
	session.earliestFn = func(_ context.Context, _ string, _ *string) (*time.Time, error) {
		earliest := testEarliest
		return &earliest, nil
	}
	engine, store := newTestEngine(session)
	engine.now = func() time.Time { return testNow }
	return engine, store
}

func isracardRequest() DiscrepancyRequest {
	return DiscrepancyRequest{
		BankVendor:              "hapoalim",
		BankAccountNumber:       strPtr("111"),
		CreditCardVendor:        "isracard",
		CreditCardAccountNumber: strPtr("5678"),
	}
}

func charge(price float64) model.Transaction {
	processed := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	return model.Transaction{
		Identifier:    "charge",
		Vendor:        "isracard",
		AccountNumber: strPtr("5678"),
		Date:          processed,
		ProcessedDate: &processed,
		Name:          "חיוב חודשי",
		Price:         price,
		Status:        model.TransactionStatusCompleted,
	}
}

func TestCheckDiscrepancy_Validation(t *testing.T) {
	engine, store := newTestEngine(&mockSession{})

	tests := []struct {
		name string
		req  DiscrepancyRequest
	}{
		{name: "missing bank vendor", req: DiscrepancyRequest{CreditCardVendor: "isracard"}},
		{name: "missing card vendor", req: DiscrepancyRequest{BankVendor: "hapoalim"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.CheckDiscrepancy(context.Background(), tt.req)
			if common.StatusOf(err) != 400 {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
	if store.acquired != 0 {
		t.Errorf("validation failures must not acquire sessions, acquired %d", store.acquired)
	}
}

func TestCheckDiscrepancy_CycleClassification(t *testing.T) {
	tests := []struct {
		name       string
		bankAmount float64
		ccAmount   float64
		want       CycleStatus
	}{
		{name: "exact match", bankAmount: -1000, ccAmount: -1000, want: StatusMatched},
		{name: "difference at epsilon is matched", bankAmount: -1001, ccAmount: -1000, want: StatusMatched},
		{name: "just over epsilon is a fee candidate", bankAmount: -1001.01, ccAmount: -1000, want: StatusFeeCandidate},
		{name: "difference at fee ceiling is a fee candidate", bankAmount: -1200, ccAmount: -1000, want: StatusFeeCandidate},
		{name: "over the ceiling is a large discrepancy", bankAmount: -1200.01, ccAmount: -1000, want: StatusLargeDiscrepancy},
		{name: "card over bank", bankAmount: -900, ccAmount: -1000, want: StatusCCOverBank},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repayments := []model.Transaction{bankRow("ישראכרט 5678", tt.bankAmount, "hapoalim", "111")}
			engine, store := cycleEngine(repayments, []model.Transaction{charge(tt.ccAmount)})

			report, err := engine.CheckDiscrepancy(context.Background(), isracardRequest())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(report.Cycles) != 1 {
				t.Fatalf("expected 1 cycle, got %d", len(report.Cycles))
			}
			if report.Cycles[0].Status != tt.want {
				t.Errorf("cycle status = %q, want %q", report.Cycles[0].Status, tt.want)
			}
			wantDiscrepancy := tt.want != StatusMatched
			if report.HasDiscrepancy != wantDiscrepancy {
				t.Errorf("HasDiscrepancy = %t, want %t", report.HasDiscrepancy, wantDiscrepancy)
			}
			store.assertBalanced(t)
		})
	}
}

func TestCheckDiscrepancy_MissingCCCycle(t *testing.T) {
	repayments := []model.Transaction{bankRow("ישראכרט 5678", -1000, "hapoalim", "111")}
	engine, store := cycleEngine(repayments, nil)

	report, err := engine.CheckDiscrepancy(context.Background(), isracardRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(report.Cycles))
	}
	cycle := report.Cycles[0]
	if cycle.Status != StatusMissingCCCycle {
		t.Errorf("status = %q, want %q", cycle.Status, StatusMissingCCCycle)
	}
	if cycle.CCTotal != nil {
		t.Error("a missing card cycle must have no CCTotal")
	}
	// Cycles without a card total stay out of the report aggregates.
	if report.BankTotal != 0 || report.CCTotal != 0 {
		t.Errorf("aggregates = %.2f/%.2f, want 0/0", report.BankTotal, report.CCTotal)
	}
	store.assertBalanced(t)
}

func TestCheckDiscrepancy_WaivedCardFeeSubtracted(t *testing.T) {
	repayments := []model.Transaction{bankRow("ישראכרט 5678", -980, "hapoalim", "111")}

	feeCategoryID := int64(9)
	waivedFee := charge(-10)
	waivedFee.Name = "דמי כרטיס פטור"
	waivedFee.CategoryDefinitionID = &feeCategoryID

	engine, store := cycleEngine(repayments, []model.Transaction{charge(-1000), waivedFee})
	// Resolve both categories: repayments and fees.
	store.session.getCategoryFn = func(_ context.Context, name string) (*model.Category, error) {
		switch name {
		case model.CategoryCardRepayments:
			return &model.Category{ID: 7, Name: name}, nil
		case model.CategoryBankFees:
			return &model.Category{ID: feeCategoryID, Name: name}, nil
		}
		return nil, common.ErrNotFound
	}

	report, err := engine.CheckDiscrepancy(context.Background(), isracardRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(report.Cycles))
	}
	cycle := report.Cycles[0]
	// 1000 charged minus the 10 waiver refund equals 990; the bank paid 980,
	// which is card-over-bank beyond epsilon.
	if cycle.CCTotal == nil || *cycle.CCTotal != 990 {
		t.Fatalf("CCTotal = %v, want 990", cycle.CCTotal)
	}
	if cycle.Status != StatusCCOverBank {
		t.Errorf("status = %q, want %q", cycle.Status, StatusCCOverBank)
	}
	store.assertBalanced(t)
}

func TestCheckDiscrepancy_IncompleteHistoryGuard(t *testing.T) {
	tests := []struct {
		name      string
		cycleDate time.Time
		want      CycleStatus
	}{
		{
			name:      "cycle too close to the earliest known charge",
			cycleDate: testEarliest.AddDate(0, 0, 10),
			want:      StatusIncompleteHistory,
		},
		{
			name:      "cycle too recent",
			cycleDate: testNow.AddDate(0, 0, -5),
			want:      StatusIncompleteHistory,
		},
		{
			name:      "cycle in the safe middle",
			cycleDate: time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
			want:      StatusFeeCandidate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := bankRow("ישראכרט 5678", -1050, "hapoalim", "111")
			row.Date = tt.cycleDate
			engine, store := cycleEngine([]model.Transaction{row}, []model.Transaction{charge(-1000)})

			report, err := engine.CheckDiscrepancy(context.Background(), isracardRequest())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(report.Cycles) != 1 {
				t.Fatalf("expected 1 cycle, got %d", len(report.Cycles))
			}
			if report.Cycles[0].Status != tt.want {
				t.Errorf("status = %q, want %q", report.Cycles[0].Status, tt.want)
			}
			store.assertBalanced(t)
		})
	}
}

func TestCheckDiscrepancy_MatchedCycleNeverGuarded(t *testing.T) {
	row := bankRow("ישראכרט 5678", -1000, "hapoalim", "111")
	row.Date = testNow.AddDate(0, 0, -2)
	engine, store := cycleEngine([]model.Transaction{row}, []model.Transaction{charge(-1000)})

	report, err := engine.CheckDiscrepancy(context.Background(), isracardRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Cycles[0].Status != StatusMatched {
		t.Errorf("status = %q, want %q", report.Cycles[0].Status, StatusMatched)
	}
	store.assertBalanced(t)
}

func TestCheckDiscrepancy_AcknowledgedSuppressesExists(t *testing.T) {
	repayments := []model.Transaction{bankRow("ישראכרט 5678", -1050, "hapoalim", "111")}
	engine, store := cycleEngine(repayments, []model.Transaction{charge(-1000)})
	store.session.findPairingFn = func(_ context.Context, _ string, _ *string, _ string, _ *string) (*model.AccountPairing, error) {
		return &model.AccountPairing{ID: 1, DiscrepancyAcknowledged: true}, nil
	}

	report, err := engine.CheckDiscrepancy(context.Background(), isracardRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.HasDiscrepancy {
		t.Fatal("expected the underlying discrepancy to remain visible")
	}
	if !report.Acknowledged {
		t.Error("expected Acknowledged=true from the pairing")
	}
	if report.Exists {
		t.Error("an acknowledged discrepancy must not be reported as existing")
	}
	store.assertBalanced(t)
}

func TestCheckDiscrepancy_SharedAccountAllocation(t *testing.T) {
	// Two isracard cards repaid through one hapoalim account. Rows carry
	// last-4 digit hints, so each card gets its own rows.
	cycleDate := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)

	rowA := bankRow("ישראכרט 5678", -1000, "hapoalim", "111")
	rowB := bankRow("ישראכרט 4321", -2000, "hapoalim", "111")
	rowA.Date = cycleDate
	rowB.Date = cycleDate

	session := &mockSession{}
	withRepaymentCategory(session, 7)
	session.listAccountRepayFn = func(_ context.Context, _ int64, _ string, _ *string, _ time.Time) ([]model.Transaction, error) {
		return []model.Transaction{rowA, rowB}, nil
	}
	session.listPairingsFn = func(_ context.Context, activeOnly bool) ([]model.AccountPairing, error) {
		if !activeOnly {
			t.Error("shared-account discovery must consider only active pairings")
		}
		return []model.AccountPairing{
			{ID: 1, CreditCardVendor: "isracard", CreditCardAccountNumber: strPtr("5678"), BankVendor: "hapoalim", BankAccountNumber: strPtr("111"), MatchPatterns: []string{"x"}, IsActive: true},
			{ID: 2, CreditCardVendor: "isracard", CreditCardAccountNumber: strPtr("4321"), BankVendor: "hapoalim", BankAccountNumber: strPtr("111"), MatchPatterns: []string{"x"}, IsActive: true},
		}, nil
	}
	session.listChargesFn = func(_ context.Context, _ string, ccAccount *string, _ time.Time) ([]model.Transaction, error) {
		switch *ccAccount {
		case "5678":
			return []model.Transaction{charge(-1000)}, nil
		case "4321":
			return []model.Transaction{charge(-2000)}, nil
		}
		return nil, nil
	}
	session.earliestFn = func(_ context.Context, _ string, _ *string) (*time.Time, error) {
		earliest := testEarliest
		return &earliest, nil
	}

	engine, store := newTestEngine(session)
	engine.now = func() time.Time { return testNow }

	report, err := engine.CheckDiscrepancy(context.Background(), isracardRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(report.Cycles))
	}
	cycle := report.Cycles[0]
	if cycle.Status != StatusMatched {
		t.Errorf("status = %q, want %q", cycle.Status, StatusMatched)
	}
	if cycle.BankTotal != 1000 {
		t.Errorf("allocated bank total = %.2f, want 1000 (only this card's row)", cycle.BankTotal)
	}
	store.assertBalanced(t)
}
