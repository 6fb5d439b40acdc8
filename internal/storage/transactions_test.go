package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shekelsync/shekelsync/internal/model"
	"github.com/shekelsync/shekelsync/internal/service"
)

func insertTestTransaction(t *testing.T, sess service.Session, txn model.Transaction) {
	t.Helper()
	if txn.Status == "" {
		txn.Status = model.TransactionStatusCompleted
	}
	if err := sess.InsertTransaction(context.Background(), &txn); err != nil {
		t.Fatalf("InsertTransaction(%s) failed: %v", txn.Identifier, err)
	}
}

func mustCategory(t *testing.T, sess service.Session, name string) *model.Category {
	t.Helper()
	category, err := sess.EnsureCategory(context.Background(), name)
	if err != nil {
		t.Fatalf("EnsureCategory(%s) failed: %v", name, err)
	}
	return category
}

func TestListRepayments(t *testing.T) {
	store := createTestStore(t)
	sess := acquireSession(t, store)
	ctx := context.Background()

	repay := mustCategory(t, sess, model.CategoryCardRepayments)
	date := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)

	insertTestTransaction(t, sess, model.Transaction{
		Identifier: "r1", Vendor: "hapoalim", Date: date,
		Name: "תשלום ישראכרט 5678", Price: -1500, CategoryDefinitionID: &repay.ID,
	})
	// Positive rows are inflows, never repayments.
	insertTestTransaction(t, sess, model.Transaction{
		Identifier: "r2", Vendor: "hapoalim", Date: date,
		Name: "זיכוי", Price: 100, CategoryDefinitionID: &repay.ID,
	})
	// Card-side rows are excluded by vendor.
	insertTestTransaction(t, sess, model.Transaction{
		Identifier: "r3", Vendor: "isracard", Date: date,
		Name: "חיוב", Price: -500, CategoryDefinitionID: &repay.ID,
	})
	// Out of the lookback window.
	insertTestTransaction(t, sess, model.Transaction{
		Identifier: "r4", Vendor: "hapoalim", Date: date.AddDate(-1, 0, 0),
		Name: "תשלום ישן", Price: -900, CategoryDefinitionID: &repay.ID,
	})

	since := date.AddDate(0, -3, 0)
	rows, err := sess.ListRepayments(ctx, repay.ID, []string{"isracard"}, since)
	if err != nil {
		t.Fatalf("ListRepayments failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Identifier != "r1" {
		t.Errorf("rows = %+v, want only r1", rows)
	}
}

func TestListAccountRepayments_NullableAccount(t *testing.T) {
	store := createTestStore(t)
	sess := acquireSession(t, store)
	ctx := context.Background()

	repay := mustCategory(t, sess, model.CategoryCardRepayments)
	date := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)

	insertTestTransaction(t, sess, model.Transaction{
		Identifier: "a1", Vendor: "hapoalim", AccountNumber: strPtr("111"), Date: date,
		Name: "תשלום", Price: -100, CategoryDefinitionID: &repay.ID,
	})
	insertTestTransaction(t, sess, model.Transaction{
		Identifier: "a2", Vendor: "hapoalim", AccountNumber: strPtr("222"), Date: date,
		Name: "תשלום", Price: -200, CategoryDefinitionID: &repay.ID,
	})

	scoped, err := sess.ListAccountRepayments(ctx, repay.ID, "hapoalim", strPtr("111"), date.AddDate(0, -1, 0))
	if err != nil {
		t.Fatalf("ListAccountRepayments failed: %v", err)
	}
	if len(scoped) != 1 || scoped[0].Identifier != "a1" {
		t.Errorf("scoped rows = %+v, want only a1", scoped)
	}

	all, err := sess.ListAccountRepayments(ctx, repay.ID, "hapoalim", nil, date.AddDate(0, -1, 0))
	if err != nil {
		t.Fatalf("ListAccountRepayments failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("unscoped rows = %d, want 2", len(all))
	}
}

func TestListChargesByProcessedDate(t *testing.T) {
	store := createTestStore(t)
	sess := acquireSession(t, store)
	ctx := context.Background()

	cycleDate := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	offCycle := cycleDate.AddDate(0, 0, 1)
	// Purchase date differs from processed date; the cycle key is the
	// processed date.
	purchase := cycleDate.AddDate(0, 0, -20)

	insertTestTransaction(t, sess, model.Transaction{
		Identifier: "c1", Vendor: "isracard", AccountNumber: strPtr("5678"),
		Date: purchase, ProcessedDate: &cycleDate, Name: "סופרמרקט", Price: -300,
	})
	insertTestTransaction(t, sess, model.Transaction{
		Identifier: "c2", Vendor: "isracard", AccountNumber: strPtr("5678"),
		Date: purchase, ProcessedDate: &offCycle, Name: "דלק", Price: -200,
	})
	// No processed date at all.
	insertTestTransaction(t, sess, model.Transaction{
		Identifier: "c3", Vendor: "isracard", AccountNumber: strPtr("5678"),
		Date: purchase, Name: "ממתין", Price: -50, Status: model.TransactionStatusPending,
	})

	charges, err := sess.ListChargesByProcessedDate(ctx, "isracard", strPtr("5678"), cycleDate)
	if err != nil {
		t.Fatalf("ListChargesByProcessedDate failed: %v", err)
	}
	if len(charges) != 1 || charges[0].Identifier != "c1" {
		t.Errorf("charges = %+v, want only c1", charges)
	}
}

func TestSearchTransactionsByPatterns(t *testing.T) {
	store := createTestStore(t)
	sess := acquireSession(t, store)
	ctx := context.Background()

	date := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	insertTestTransaction(t, sess, model.Transaction{
		Identifier: "s1", Vendor: "hapoalim", Date: date, Name: "תשלום ישראכרט", Price: -100,
	})
	insertTestTransaction(t, sess, model.Transaction{
		Identifier: "s2", Vendor: "isracard", Date: date, Name: "ישראכרט חיוב", Price: -100,
	})
	insertTestTransaction(t, sess, model.Transaction{
		Identifier: "s3", Vendor: "hapoalim", Date: date, Name: "משהו אחר", Price: -100,
	})

	rows, err := sess.SearchTransactionsByPatterns(ctx, []string{"ישראכרט"}, []string{"isracard"}, 10)
	if err != nil {
		t.Fatalf("SearchTransactionsByPatterns failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Identifier != "s1" {
		t.Errorf("rows = %+v, want only s1", rows)
	}

	// Empty patterns are rejected before any SQL runs.
	if _, err := sess.SearchTransactionsByPatterns(ctx, nil, nil, 10); err == nil {
		t.Error("expected empty patterns to be rejected")
	}
}

func TestRecategorizeByPatterns(t *testing.T) {
	store := createTestStore(t)
	sess := acquireSession(t, store)
	ctx := context.Background()

	repay := mustCategory(t, sess, model.CategoryCardRepayments)
	date := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)

	insertTestTransaction(t, sess, model.Transaction{
		Identifier: "m1", Vendor: "hapoalim", Date: date, Name: "תשלום ישראכרט 5678", Price: -100,
	})
	insertTestTransaction(t, sess, model.Transaction{
		Identifier: "m2", Vendor: "hapoalim", Date: date, Name: "חיוב 5678", Price: -100,
	})
	insertTestTransaction(t, sess, model.Transaction{
		Identifier: "m3", Vendor: "hapoalim", Date: date, Name: "לא קשור", Price: -100,
	})

	count, err := sess.RecategorizeByPatterns(ctx, []string{"ישראכרט", "5678"}, repay.ID)
	if err != nil {
		t.Fatalf("RecategorizeByPatterns failed: %v", err)
	}
	if count != 2 {
		t.Errorf("recategorized %d rows, want 2", count)
	}

	rows, err := sess.ListRepayments(ctx, repay.ID, nil, date.AddDate(0, -1, 0))
	if err != nil {
		t.Fatalf("ListRepayments failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("repayment rows = %d, want 2", len(rows))
	}

	// Patterns containing SQL metacharacters stay inert parameters.
	if _, err := sess.RecategorizeByPatterns(ctx, []string{"'; DROP TABLE transactions; --"}, repay.ID); err != nil {
		t.Fatalf("metacharacter pattern failed: %v", err)
	}
	if _, err := sess.ListRepayments(ctx, repay.ID, nil, date.AddDate(0, -1, 0)); err != nil {
		t.Fatalf("transactions table is gone: %v", err)
	}
}

func TestEarliestTransactionDate(t *testing.T) {
	store := createTestStore(t)
	sess := acquireSession(t, store)
	ctx := context.Background()

	earliest, err := sess.EarliestTransactionDate(ctx, "isracard", nil)
	if err != nil {
		t.Fatalf("EarliestTransactionDate failed: %v", err)
	}
	if earliest != nil {
		t.Errorf("expected nil for an account with no history, got %v", earliest)
	}

	older := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	insertTestTransaction(t, sess, model.Transaction{
		Identifier: "e1", Vendor: "isracard", AccountNumber: strPtr("5678"), Date: newer, Name: "חיוב", Price: -100,
	})
	insertTestTransaction(t, sess, model.Transaction{
		Identifier: "e2", Vendor: "isracard", AccountNumber: strPtr("5678"), Date: older, Name: "חיוב", Price: -100,
	})

	earliest, err = sess.EarliestTransactionDate(ctx, "isracard", strPtr("5678"))
	if err != nil {
		t.Fatalf("EarliestTransactionDate failed: %v", err)
	}
	if earliest == nil || !earliest.Equal(older) {
		t.Errorf("earliest = %v, want %v", earliest, older)
	}
}

func TestInsertTransaction_Validation(t *testing.T) {
	store := createTestStore(t)
	sess := acquireSession(t, store)
	ctx := context.Background()

	tests := []struct {
		name string
		txn  *model.Transaction
	}{
		{name: "nil transaction", txn: nil},
		{name: "missing identifier", txn: &model.Transaction{Vendor: "isracard", Date: time.Now(), Name: "x"}},
		{name: "missing vendor", txn: &model.Transaction{Identifier: "i", Date: time.Now(), Name: "x"}},
		{name: "missing date", txn: &model.Transaction{Identifier: "i", Vendor: "isracard", Name: "x"}},
		{name: "missing name", txn: &model.Transaction{Identifier: "i", Vendor: "isracard", Date: time.Now()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := sess.InsertTransaction(ctx, tt.txn); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}
