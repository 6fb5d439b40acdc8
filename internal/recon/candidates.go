package recon

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shekelsync/shekelsync/internal/common"
	"github.com/shekelsync/shekelsync/internal/model"
	"github.com/shekelsync/shekelsync/internal/service"
	"github.com/shekelsync/shekelsync/internal/vendors"
)

// FindBestBankAccount discovers the bank account most likely to be repaying
// the given credit card, ranked by last-4 matches, then vendor-keyword
// matches, then transaction count.
func (e *Engine) FindBestBankAccount(ctx context.Context, ccVendor string, ccAccount *string) (*DetectionResult, error) {
	if ccVendor == "" {
		return nil, common.NewValidationError("creditCardVendor is required")
	}

	sess, err := e.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sess.Release() }()

	return findBestBankAccount(ctx, sess, ccVendor, ccAccount)
}

func findBestBankAccount(ctx context.Context, sess service.Session, ccVendor string, ccAccount *string) (*DetectionResult, error) {
	category, err := sess.GetCategoryByName(ctx, model.CategoryCardRepayments)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return &DetectionResult{Reason: "no credit card repayment category is defined"}, nil
		}
		return nil, err
	}

	// A transaction vendor cannot be both payer and payee.
	rows, err := sess.ListRepayments(ctx, category.ID, vendors.CardVendors(), time.Time{})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &DetectionResult{Reason: "no credit card repayment transactions were found in any bank account"}, nil
	}

	var last4, fullNumber string
	if ccAccount != nil {
		fullNumber = *ccAccount
		last4 = vendors.LastFour(*ccAccount)
	}

	candidates := groupCandidates(rows, ccVendor, fullNumber, last4)
	rankCandidates(candidates)

	best := &candidates[0]
	if best.MatchingLast4Count == 0 && best.MatchingVendorCount == 0 {
		return &DetectionResult{Reason: "repayment transactions exist but none reference this card"}, nil
	}

	runnersUp := candidates[1:]
	if len(runnersUp) > maxRunnersUp {
		runnersUp = runnersUp[:maxRunnersUp]
	}

	return &DetectionResult{
		Found:     true,
		Best:      best,
		RunnersUp: runnersUp,
	}, nil
}

// groupCandidates buckets repayment rows by bank account and counts how many
// reference the card by digits or by vendor keyword.
func groupCandidates(rows []model.Transaction, ccVendor, fullNumber, last4 string) []BankCandidate {
	index := make(map[string]*BankCandidate)
	var order []string

	for i := range rows {
		row := &rows[i]
		key := row.Vendor
		if row.AccountNumber != nil {
			key += "\x00" + *row.AccountNumber
		}

		candidate, ok := index[key]
		if !ok {
			candidate = &BankCandidate{
				BankVendor:        row.Vendor,
				BankAccountNumber: row.AccountNumber,
			}
			index[key] = candidate
			order = append(order, key)
		}
		candidate.TransactionCount++

		matched := false
		if last4 != "" {
			runs := vendors.ExtractDigitRuns(row.Name)
			for _, run := range runs {
				if run == last4 || run == fullNumber {
					candidate.MatchingLast4Count++
					matched = true
					break
				}
			}
		}
		if vendors.ContainsVendorKeyword(row.Name, ccVendor) {
			candidate.MatchingVendorCount++
			matched = true
		}
		if matched && len(candidate.Samples) < maxSampleTransactions {
			candidate.Samples = append(candidate.Samples, *row)
		}
	}

	out := make([]BankCandidate, 0, len(order))
	for _, key := range order {
		out = append(out, *index[key])
	}
	return out
}

// rankCandidates orders candidates by descending last-4 matches, then vendor
// matches, then transaction count. Ties resolve by bank vendor for stability.
func rankCandidates(candidates []BankCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := &candidates[i], &candidates[j]
		if a.MatchingLast4Count != b.MatchingLast4Count {
			return a.MatchingLast4Count > b.MatchingLast4Count
		}
		if a.MatchingVendorCount != b.MatchingVendorCount {
			return a.MatchingVendorCount > b.MatchingVendorCount
		}
		if a.TransactionCount != b.TransactionCount {
			return a.TransactionCount > b.TransactionCount
		}
		return a.BankVendor < b.BankVendor
	})
}
