package recon

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shekelsync/shekelsync/internal/common"
	"github.com/shekelsync/shekelsync/internal/model"
	"github.com/shekelsync/shekelsync/internal/vendors"
)

// SuggestCards scans transaction history for unregistered credit cards,
// detected by vendor-keyword or repayment-category hits, and ranks the
// suggestions by confidence.
func (e *Engine) SuggestCards(ctx context.Context) ([]CardSuggestion, error) {
	sess, err := e.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sess.Release() }()

	var repayCategoryID int64 = -1
	if category, catErr := sess.GetCategoryByName(ctx, model.CategoryCardRepayments); catErr == nil {
		repayCategoryID = category.ID
	} else if !errors.Is(catErr, common.ErrNotFound) {
		return nil, catErr
	}

	keywords := allCardKeywords()
	rows, err := sess.ListCardMentions(ctx, keywords, repayCategoryID, time.Time{})
	if err != nil {
		return nil, err
	}

	pairings, err := sess.ListPairings(ctx, true)
	if err != nil {
		return nil, err
	}

	suggestions := detectSuggestions(rows, repayCategoryID)
	suggestions = dropRegistered(suggestions, pairings)

	for i := range suggestions {
		s := &suggestions[i]
		s.Confidence = calculateConfidence(s.HasCategoryMatch, s.UniqueKeywords, s.HasKeywordMatch, s.CardNumber != "", s.TransactionCount)
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	return suggestions, nil
}

// calculateConfidence scores one suggestion. Each signal contributes
// independently; the transaction-count bonus caps at 5 (reached at 25 rows).
func calculateConfidence(hasCategoryMatch bool, uniqueKeywords int, hasKeywordMatch, hasCardNumber bool, count int) int {
	score := 0
	if hasCategoryMatch {
		score += 3
	}
	if hasKeywordMatch {
		score += uniqueKeywords
	}
	if hasCardNumber {
		score += 2
	}
	bonus := count / 5
	if bonus > 5 {
		bonus = 5
	}
	return score + bonus
}

func detectSuggestions(rows []model.Transaction, repayCategoryID int64) []CardSuggestion {
	type group struct {
		keywords map[string]bool
		CardSuggestion
	}
	index := make(map[string]*group)
	var order []string

	for _, row := range rows {
		vendor, detected := vendors.DetectVendorFromText(row.Name)
		if !detected {
			// A category hit with no attributable vendor cannot become a
			// card suggestion.
			continue
		}

		cardNumber := trailingCardNumber(row.Name)
		key := vendor + "\x00" + cardNumber
		g, ok := index[key]
		if !ok {
			g = &group{
				keywords: make(map[string]bool),
				CardSuggestion: CardSuggestion{
					Vendor:     vendor,
					CardNumber: cardNumber,
				},
			}
			index[key] = g
			order = append(order, key)
		}

		g.TransactionCount++
		lowered := strings.ToLower(row.Name)
		for _, keyword := range vendors.KeywordsFor(vendor) {
			if strings.Contains(lowered, strings.ToLower(keyword)) {
				g.keywords[keyword] = true
				g.HasKeywordMatch = true
			}
		}
		if repayCategoryID >= 0 && row.CategoryDefinitionID != nil && *row.CategoryDefinitionID == repayCategoryID {
			g.HasCategoryMatch = true
		}
	}

	out := make([]CardSuggestion, 0, len(order))
	for _, key := range order {
		g := index[key]
		g.UniqueKeywords = len(g.keywords)
		out = append(out, g.CardSuggestion)
	}
	return out
}

// trailingCardNumber extracts the card number hint from the last digit run in
// the name: its trailing four digits.
func trailingCardNumber(name string) string {
	runs := vendors.ExtractDigitRuns(name)
	if len(runs) == 0 {
		return ""
	}
	last := runs[len(runs)-1]
	return vendors.LastFour(last)
}

func dropRegistered(suggestions []CardSuggestion, pairings []model.AccountPairing) []CardSuggestion {
	// A pairing with an account number covers that specific card; one without
	// covers every card of its vendor.
	registeredVendors := make(map[string]bool)
	registeredCards := make(map[string]bool)
	for i := range pairings {
		p := &pairings[i]
		if p.CreditCardAccountNumber != nil {
			registeredCards[p.CreditCardVendor+"\x00"+vendors.LastFour(*p.CreditCardAccountNumber)] = true
		} else {
			registeredVendors[p.CreditCardVendor] = true
		}
	}

	var out []CardSuggestion
	for _, s := range suggestions {
		if registeredVendors[s.Vendor] || registeredCards[s.Vendor+"\x00"+s.CardNumber] {
			continue
		}
		out = append(out, s)
	}
	return out
}

func allCardKeywords() []string {
	var keywords []string
	for _, vendor := range vendors.CardVendors() {
		keywords = append(keywords, vendors.KeywordsFor(vendor)...)
	}
	return keywords
}
