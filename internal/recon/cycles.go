package recon

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shekelsync/shekelsync/internal/common"
	"github.com/shekelsync/shekelsync/internal/model"
	"github.com/shekelsync/shekelsync/internal/service"
	"github.com/shekelsync/shekelsync/internal/vendors"
)

// CheckDiscrepancy reconciles the repayment cycles between one bank account
// and one credit card over the lookback window and classifies each cycle.
func (e *Engine) CheckDiscrepancy(ctx context.Context, req DiscrepancyRequest) (*DiscrepancyReport, error) {
	if req.BankVendor == "" {
		return nil, common.NewValidationError("bankVendor is required")
	}
	if req.CreditCardVendor == "" {
		return nil, common.NewValidationError("creditCardVendor is required")
	}

	sess, err := e.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sess.Release() }()

	acknowledged := false
	pairing, err := sess.FindPairingByAccounts(ctx, req.CreditCardVendor, req.CreditCardAccountNumber, req.BankVendor, req.BankAccountNumber)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	if pairing != nil {
		acknowledged = pairing.DiscrepancyAcknowledged
	}

	return e.checkDiscrepancy(ctx, sess, req, acknowledged)
}

func (e *Engine) checkDiscrepancy(ctx context.Context, sess service.Session, req DiscrepancyRequest, acknowledged bool) (*DiscrepancyReport, error) {
	monthsBack := req.MonthsBack
	if monthsBack <= 0 {
		monthsBack = defaultMonthsBack
	}
	now := e.now()
	since := now.AddDate(0, -monthsBack, 0)

	report := &DiscrepancyReport{
		StatusCounts: make(map[CycleStatus]int),
		Acknowledged: acknowledged,
	}

	repayCategory, err := sess.GetCategoryByName(ctx, model.CategoryCardRepayments)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return report, nil
		}
		return nil, err
	}

	rows, err := sess.ListAccountRepayments(ctx, repayCategory.ID, req.BankVendor, req.BankAccountNumber, since)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return report, nil
	}

	// The fee category is optional; without it the waiver exception is inert.
	var feeCategoryID *int64
	if feeCategory, catErr := sess.GetCategoryByName(ctx, model.CategoryBankFees); catErr == nil {
		feeCategoryID = &feeCategory.ID
	} else if !errors.Is(catErr, common.ErrNotFound) {
		return nil, catErr
	}

	sharedCandidates, err := e.sharedAccountCandidates(ctx, sess, req)
	if err != nil {
		return nil, err
	}

	earliest, err := sess.EarliestTransactionDate(ctx, req.CreditCardVendor, req.CreditCardAccountNumber)
	if err != nil {
		return nil, err
	}

	cycles := groupByCycleDate(rows)
	for _, cycleDate := range sortedCycleDates(cycles) {
		cycleRows := cycles[cycleDate]
		date, _ := time.Parse("2006-01-02", cycleDate)

		var repayments []model.Transaction
		var charges []model.Transaction
		if len(sharedCandidates) >= 2 && req.CreditCardAccountNumber != nil {
			repayments, charges, err = e.allocateSharedCycle(ctx, sess, req, cycleRows, sharedCandidates, date)
		} else {
			repayments = filterCardRepayments(cycleRows, req.CreditCardVendor, req.CreditCardAccountNumber)
			if len(repayments) > 0 {
				charges, err = sess.ListChargesByProcessedDate(ctx, req.CreditCardVendor, req.CreditCardAccountNumber, date)
			}
		}
		if err != nil {
			return nil, err
		}
		if len(repayments) == 0 {
			continue
		}

		cycle := buildCycle(date, repayments, charges, feeCategoryID, req.CreditCardAccountNumber)
		cycle.Status = guardIncompleteHistory(cycle.Status, date, earliest, now)

		report.Cycles = append(report.Cycles, cycle)
		report.StatusCounts[cycle.Status]++
		if cycle.CCTotal != nil {
			report.BankTotal += cycle.BankTotal
			report.CCTotal += *cycle.CCTotal
		}
		if isActionable(cycle.Status) {
			report.HasDiscrepancy = true
		}
	}

	if report.CCTotal != 0 {
		report.PercentDiff = (report.BankTotal - report.CCTotal) / report.CCTotal * 100
	}
	report.Exists = report.HasDiscrepancy && !report.Acknowledged
	return report, nil
}

// buildCycle totals one cycle's repayments against the card's charges for
// that processed date and classifies the difference.
func buildCycle(date time.Time, repayments, charges []model.Transaction, feeCategoryID *int64, ccAccount *string) Cycle {
	cycle := Cycle{
		CycleDate:  date,
		Repayments: repayments,
	}
	if ccAccount != nil {
		cycle.MatchedAccount = *ccAccount
	}
	for _, row := range repayments {
		cycle.BankTotal += math.Abs(row.Price)
	}

	if len(charges) == 0 {
		cycle.Status = StatusMissingCCCycle
		return cycle
	}

	ccTotal := sumCharges(charges, feeCategoryID)
	difference := cycle.BankTotal - ccTotal
	cycle.CCTotal = &ccTotal
	cycle.Difference = &difference

	switch {
	case math.Abs(difference) <= matchEpsilon:
		cycle.Status = StatusMatched
	case difference > matchEpsilon && difference <= feeCeiling:
		cycle.Status = StatusFeeCandidate
	case difference > feeCeiling:
		cycle.Status = StatusLargeDiscrepancy
	default:
		cycle.Status = StatusCCOverBank
	}
	return cycle
}

// sumCharges sums a cycle's card charges by absolute amount, with one
// exception: a fee-category charge whose name marks it as a waived or
// discounted card fee represents a refund and is subtracted instead.
func sumCharges(charges []model.Transaction, feeCategoryID *int64) float64 {
	var total float64
	for _, charge := range charges {
		amount := math.Abs(charge.Price)
		if isWaivedCardFee(&charge, feeCategoryID) {
			total -= amount
			continue
		}
		total += amount
	}
	return total
}

var (
	cardFeeMarkers = []string{"card fee", "דמי כרטיס"}
	waiverMarkers  = []string{"exempt", "discount", "פטור", "הנחה"}
)

func isWaivedCardFee(txn *model.Transaction, feeCategoryID *int64) bool {
	if feeCategoryID == nil || txn.CategoryDefinitionID == nil || *txn.CategoryDefinitionID != *feeCategoryID {
		return false
	}
	name := strings.ToLower(txn.Name)
	return containsAny(name, cardFeeMarkers) && containsAny(name, waiverMarkers)
}

func containsAny(text string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// guardIncompleteHistory reclassifies actionable statuses when the cycle sits
// within the guard window at either edge of known card history. Matched
// cycles are never reclassified.
func guardIncompleteHistory(status CycleStatus, cycleDate time.Time, earliest *time.Time, now time.Time) CycleStatus {
	if !isActionable(status) {
		return status
	}
	guard := historyGuardDays * 24 * time.Hour
	if earliest != nil && cycleDate.Before(earliest.Add(guard)) {
		return StatusIncompleteHistory
	}
	if cycleDate.After(now.Add(-guard)) {
		return StatusIncompleteHistory
	}
	return status
}

func isActionable(status CycleStatus) bool {
	switch status {
	case StatusFeeCandidate, StatusLargeDiscrepancy, StatusCCOverBank, StatusMissingCCCycle:
		return true
	default:
		return false
	}
}

// filterCardRepayments keeps the bank rows that reference this specific card,
// by digit run or by vendor keyword.
func filterCardRepayments(rows []model.Transaction, ccVendor string, ccAccount *string) []model.Transaction {
	var last4, fullNumber string
	if ccAccount != nil {
		fullNumber = *ccAccount
		last4 = vendors.LastFour(*ccAccount)
	}

	var matched []model.Transaction
	for _, row := range rows {
		if last4 != "" {
			found := false
			for _, run := range vendors.ExtractDigitRuns(row.Name) {
				if run == last4 || run == fullNumber {
					found = true
					break
				}
			}
			if found {
				matched = append(matched, row)
				continue
			}
		}
		if vendors.ContainsVendorKeyword(row.Name, ccVendor) {
			matched = append(matched, row)
		}
	}
	return matched
}

// sharedAccountCandidates returns the credit-card account numbers of every
// active pairing sharing this bank account and card vendor. Two or more
// means per-transaction attribution is ambiguous and allocation kicks in.
func (e *Engine) sharedAccountCandidates(ctx context.Context, sess service.Session, req DiscrepancyRequest) ([]string, error) {
	pairings, err := sess.ListPairings(ctx, true)
	if err != nil {
		return nil, err
	}

	var accounts []string
	for i := range pairings {
		p := &pairings[i]
		if p.BankVendor != req.BankVendor || p.CreditCardVendor != req.CreditCardVendor {
			continue
		}
		if !nullableEqual(p.BankAccountNumber, req.BankAccountNumber) {
			continue
		}
		if p.CreditCardAccountNumber != nil {
			accounts = append(accounts, *p.CreditCardAccountNumber)
		}
	}
	return accounts, nil
}

// allocateSharedCycle attributes one cycle's repayment rows among the cards
// sharing this bank account and returns the rows assigned to the requested
// card plus that card's charges for the cycle date.
func (e *Engine) allocateSharedCycle(ctx context.Context, sess service.Session, req DiscrepancyRequest, cycleRows []model.Transaction, accounts []string, date time.Time) ([]model.Transaction, []model.Transaction, error) {
	target := *req.CreditCardAccountNumber

	candidates := make([]allocationCandidate, 0, len(accounts))
	var targetCharges []model.Transaction
	for _, account := range accounts {
		account := account
		charges, err := sess.ListChargesByProcessedDate(ctx, req.CreditCardVendor, &account, date)
		if err != nil {
			return nil, nil, err
		}
		if account == target {
			targetCharges = charges
		}
		candidates = append(candidates, allocationCandidate{
			account:    account,
			last4:      vendors.LastFour(account),
			knownTotal: sumCharges(charges, nil),
		})
	}

	assignments := allocateSharedRepayments(cycleRows, candidates, req.CreditCardVendor)
	return assignments[target], targetCharges, nil
}

func nullableEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func groupByCycleDate(rows []model.Transaction) map[string][]model.Transaction {
	cycles := make(map[string][]model.Transaction)
	for _, row := range rows {
		key := row.Date.Format("2006-01-02")
		cycles[key] = append(cycles[key], row)
	}
	return cycles
}

func sortedCycleDates(cycles map[string][]model.Transaction) []string {
	dates := make([]string, 0, len(cycles))
	for date := range cycles {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}
