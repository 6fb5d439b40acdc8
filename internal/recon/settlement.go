package recon

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/shekelsync/shekelsync/internal/common"
	"github.com/shekelsync/shekelsync/internal/model"
	"github.com/shekelsync/shekelsync/internal/vendors"
)

// SettlementCandidates lists repayment transactions that could be manually
// paired, excluding any already covered by an active pairing's patterns, and
// aggregates totals by match reason.
func (e *Engine) SettlementCandidates(ctx context.Context) (*SettlementReport, error) {
	sess, err := e.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sess.Release() }()

	report := &SettlementReport{
		TotalsByReason: make(map[string]SettlementTotals),
	}

	category, err := sess.GetCategoryByName(ctx, model.CategoryCardRepayments)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return report, nil
		}
		return nil, err
	}

	rows, err := sess.ListRepayments(ctx, category.ID, vendors.CardVendors(), time.Time{})
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

		reason := settlementReason(row.Name)
		if reason == "" {
			continue
		}

		report.Candidates = append(report.Candidates, SettlementCandidate{
			Transaction: row,
			MatchReason: reason,
		})
		totals := report.TotalsByReason[reason]
		totals.Count++
		totals.Total += math.Abs(row.Price)
		report.TotalsByReason[reason] = totals
	}

	return report, nil
}

// settlementReason tags a candidate with how it could be paired: by an
// account-number mention or by a card-vendor keyword. Rows with neither
// signal are not candidates.
func settlementReason(name string) string {
	if len(vendors.ExtractDigitRuns(name)) > 0 {
		return ReasonAccountNumberMatch
	}
	if _, ok := vendors.DetectVendorFromText(name); ok {
		return ReasonKeywordMatch
	}
	return ""
}

func collectActivePatterns(pairings []model.AccountPairing) []string {
	var patterns []string
	for i := range pairings {
		patterns = append(patterns, pairings[i].MatchPatterns...)
	}
	return patterns
}

func coveredByPatterns(name string, patterns []string) bool {
	lowered := strings.ToLower(name)
	for _, pattern := range patterns {
		if pattern != "" && strings.Contains(lowered, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}
