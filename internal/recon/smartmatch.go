package recon

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/shekelsync/shekelsync/internal/common"
	"github.com/shekelsync/shekelsync/internal/model"
	"github.com/shekelsync/shekelsync/internal/vendors"
)

const smartMatchLimit = 50

// SmartMatch searches bank transactions for mentions of a card described by
// vendor, account digits, nickname, or partial digits, and ranks the hits by
// a confidence score.
func (e *Engine) SmartMatch(ctx context.Context, req SmartMatchRequest) ([]SmartMatchHit, error) {
	patterns := buildSearchPatterns(req)
	if len(patterns) == 0 {
		return nil, common.NewValidationError("at least one of vendor, accountNumber, nickname, or partialDigits is required")
	}

	sess, err := e.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sess.Release() }()

	var repayCategoryID *int64
	if category, catErr := sess.GetCategoryByName(ctx, model.CategoryCardRepayments); catErr == nil {
		repayCategoryID = &category.ID
	} else if !errors.Is(catErr, common.ErrNotFound) {
		return nil, catErr
	}

	rows, err := sess.SearchTransactionsByPatterns(ctx, patterns, vendors.CardVendors(), smartMatchLimit)
	if err != nil {
		return nil, err
	}

	hits := make([]SmartMatchHit, 0, len(rows))
	for _, row := range rows {
		hit := scoreSmartMatch(row, req, patterns, repayCategoryID)
		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Confidence > hits[j].Confidence
	})
	return hits, nil
}

// buildSearchPatterns assembles the deduplicated search-pattern set: vendor
// keywords, full and last-4 digits, and nickname words longer than two chars.
func buildSearchPatterns(req SmartMatchRequest) []string {
	var patterns []string
	seen := make(map[string]bool)
	add := func(pattern string) {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" || seen[pattern] {
			return
		}
		seen[pattern] = true
		patterns = append(patterns, pattern)
	}

	for _, keyword := range vendors.KeywordsFor(req.Vendor) {
		add(keyword)
	}
	if req.AccountNumber != nil {
		add(*req.AccountNumber)
		add(vendors.LastFour(*req.AccountNumber))
	}
	if req.PartialDigits != "" {
		add(req.PartialDigits)
		add(vendors.LastFour(req.PartialDigits))
	}
	for _, word := range strings.Fields(req.Nickname) {
		if len([]rune(word)) > 2 {
			add(word)
		}
	}
	return patterns
}

func scoreSmartMatch(row model.Transaction, req SmartMatchRequest, patterns []string, repayCategoryID *int64) SmartMatchHit {
	name := strings.ToLower(row.Name)

	var matched []string
	longMatch := false
	for _, pattern := range patterns {
		if strings.Contains(name, strings.ToLower(pattern)) {
			matched = append(matched, pattern)
			if len([]rune(pattern)) >= 5 {
				longMatch = true
			}
		}
	}

	confidence := 0
	if req.Nickname != "" && strings.EqualFold(strings.TrimSpace(row.Name), strings.TrimSpace(req.Nickname)) {
		confidence += 5
	}
	if len(matched) > 0 {
		if longMatch {
			confidence += 2
		} else {
			confidence++
		}
	}
	for _, keyword := range vendors.KeywordsFor(req.Vendor) {
		if strings.Contains(name, strings.ToLower(keyword)) {
			confidence++
		}
	}
	if repayCategoryID != nil && row.CategoryDefinitionID != nil && *row.CategoryDefinitionID == *repayCategoryID {
		confidence += 3
	}

	return SmartMatchHit{
		Transaction:     row,
		MatchedPatterns: matched,
		Confidence:      confidence,
	}
}
