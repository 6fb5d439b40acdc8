package vendors

import (
	"regexp"
	"strings"
)

var digitRunRegex = regexp.MustCompile(`\d{4,}`)

// LastFour returns the trailing four characters of an account number, the
// whole string when it is four characters or fewer, and "" for empty input.
func LastFour(accountNumber string) string {
	if accountNumber == "" {
		return ""
	}
	if len(accountNumber) <= 4 {
		return accountNumber
	}
	return accountNumber[len(accountNumber)-4:]
}

// ExtractDigitRuns returns every digit sequence of length >= 4 found in text,
// and for every sequence longer than four digits also its trailing four-digit
// suffix. This captures both full and partial card-number mentions. The
// result is deduplicated, in order of first appearance.
func ExtractDigitRuns(text string) []string {
	var runs []string
	seen := make(map[string]bool)
	add := func(run string) {
		if !seen[run] {
			seen[run] = true
			runs = append(runs, run)
		}
	}

	for _, run := range digitRunRegex.FindAllString(text, -1) {
		add(run)
		if len(run) > 4 {
			add(run[len(run)-4:])
		}
	}
	return runs
}

// ContainsVendorKeyword reports whether text contains any of the vendor's
// keywords, case-insensitively. Unknown vendors never match.
func ContainsVendorKeyword(text, vendor string) bool {
	keywords := KeywordsFor(vendor)
	if len(keywords) == 0 {
		return false
	}
	lowered := strings.ToLower(text)
	for _, keyword := range keywords {
		if strings.Contains(lowered, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// DetectVendorFromText returns the first vendor in table order whose keyword
// substring-matches text. Ambiguous substrings resolve by table order.
func DetectVendorFromText(text string) (string, bool) {
	lowered := strings.ToLower(text)
	for _, entry := range cardVendorTable {
		for _, keyword := range entry.Keywords {
			if strings.Contains(lowered, strings.ToLower(keyword)) {
				return entry.Vendor, true
			}
		}
	}
	return "", false
}

// BuildMatchPatterns returns the deduplicated union of the vendor's keywords,
// the full account number, and its last-four suffix. Empty strings are never
// included; the result is non-empty for any known vendor or non-empty account.
func BuildMatchPatterns(vendor, accountNumber string) []string {
	var patterns []string
	seen := make(map[string]bool)
	add := func(pattern string) {
		if pattern == "" || seen[pattern] {
			return
		}
		seen[pattern] = true
		patterns = append(patterns, pattern)
	}

	for _, keyword := range KeywordsFor(vendor) {
		add(keyword)
	}
	add(accountNumber)
	add(LastFour(accountNumber))
	return patterns
}
