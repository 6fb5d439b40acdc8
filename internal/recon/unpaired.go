package recon

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shekelsync/shekelsync/internal/common"
	"github.com/shekelsync/shekelsync/internal/model"
)

// UnpairedTransactions counts and lists repayment-category transactions at
// known bank vendors that no active pairing covers. A registry failure is an
// explicit, documented degradation: the service warns and returns an empty
// report rather than failing the caller.
func (e *Engine) UnpairedTransactions(ctx context.Context) (*UnpairedReport, error) {
	report := &UnpairedReport{}

	bankVendors, err := e.registry.BankVendors(ctx)
	if err != nil {
		slog.Warn("bank vendor registry unreachable, returning empty unpaired report", "error", err)
		return report, nil
	}
	if len(bankVendors) == 0 {
		return report, nil
	}

	sess, err := e.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sess.Release() }()

	category, err := sess.GetCategoryByName(ctx, model.CategoryCardRepayments)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return report, nil
		}
		return nil, err
	}

	rows, err := sess.ListRepaymentsByVendors(ctx, category.ID, bankVendors, time.Time{})
	if err != nil {
		return nil, err
	}

	pairings, err := sess.ListPairings(ctx, true)
	if err != nil {
		return nil, err
	}
	coveredPatterns := collectActivePatterns(pairings)

	for _, row := range rows {
		if coveredByPatterns(row.Name, coveredPatterns) {
			continue
		}
		report.Transactions = append(report.Transactions, row)
	}
	report.Count = len(report.Transactions)
	return report, nil
}
