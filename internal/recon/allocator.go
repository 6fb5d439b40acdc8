package recon

import (
	"math"
	"sort"

	"github.com/shekelsync/shekelsync/internal/model"
	"github.com/shekelsync/shekelsync/internal/vendors"
)

// allocationCandidate is one card account competing for a shared bank
// account's repayment rows on a given cycle date.
type allocationCandidate struct {
	account    string
	last4      string
	knownTotal float64 // the card's charge total for the cycle date
}

// allocateSharedRepayments attributes same-day repayment rows among the card
// accounts of one issuer billed through a single bank account.
//
// Greedy, largest-first: rows are walked in descending absolute amount so the
// big, decisive assignments happen before small ones can compound error. Each
// row's digit hints narrow the candidate set when present; rows whose text
// names a different card vendor are skipped outright. The row goes to the
// candidate whose cumulative assignment lands closest to its known charge
// total, and a row carrying no digit or vendor signal is only accepted when
// that deviation stays within the match tolerance.
//
// This is a local heuristic, not a global optimum: when digit hints are
// absent and two cards' totals are coincidentally close it can misattribute.
// That imprecision is accepted; do not replace with a solver.
func allocateSharedRepayments(rows []model.Transaction, candidates []allocationCandidate, ccVendor string) map[string][]model.Transaction {
	sorted := make([]model.Transaction, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return math.Abs(sorted[i].Price) > math.Abs(sorted[j].Price)
	})

	assignments := make(map[string][]model.Transaction, len(candidates))
	assigned := make(map[string]float64, len(candidates))

	for _, row := range sorted {
		hints := vendors.ExtractDigitRuns(row.Name)
		digitMatches := matchCandidatesByDigits(candidates, hints)

		eligible := candidates
		if len(digitMatches) > 0 {
			eligible = digitMatches
		} else if detected, ok := vendors.DetectVendorFromText(row.Name); ok && detected != ccVendor {
			// The row names another issuer's card; it is not ours to allocate.
			continue
		}

		hasSignal := len(digitMatches) > 0 || vendors.ContainsVendorKeyword(row.Name, ccVendor)
		amount := math.Abs(row.Price)

		best := ""
		bestDeviation := math.Inf(1)
		for _, candidate := range eligible {
			deviation := math.Abs(assigned[candidate.account] + amount - candidate.knownTotal)
			if deviation < bestDeviation {
				bestDeviation = deviation
				best = candidate.account
			}
		}
		if best == "" {
			continue
		}
		if !hasSignal && bestDeviation > matchEpsilon {
			continue
		}

		assigned[best] += amount
		assignments[best] = append(assignments[best], row)
	}

	return assignments
}

func matchCandidatesByDigits(candidates []allocationCandidate, hints []string) []allocationCandidate {
	if len(hints) == 0 {
		return nil
	}
	hintSet := make(map[string]bool, len(hints))
	for _, hint := range hints {
		hintSet[hint] = true
	}

	var matched []allocationCandidate
	for _, candidate := range candidates {
		if hintSet[candidate.account] || hintSet[candidate.last4] {
			matched = append(matched, candidate)
		}
	}
	return matched
}
