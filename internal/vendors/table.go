// Package vendors provides the static credit-card vendor keyword table and
// the pure text-matching helpers built on top of it. Transaction descriptions
// are bilingual (Hebrew/English) and carry no foreign key back to the card
// ledger, so matching is keyword- and digit-based.
package vendors

// VendorKeywords maps a credit-card vendor to the keyword substrings that
// identify it in free-text transaction names.
type VendorKeywords struct {
	Vendor   string
	Keywords []string
}

// cardVendorTable is the ordered vendor keyword table. Detection resolves
// ambiguous substrings by first match in table order; keep more specific
// vendors earlier when adding entries.
var cardVendorTable = []VendorKeywords{
	{
		Vendor:   "isracard",
		Keywords: []string{"ישראכרט", "isracard"},
	},
	{
		Vendor:   "amex",
		Keywords: []string{"אמריקן אקספרס", "אמקס", "american express", "amex"},
	},
	{
		Vendor:   "visaCal",
		Keywords: []string{"ויזה כאל", "כאל", "visa cal", "cal"},
	},
	{
		Vendor:   "max",
		Keywords: []string{"מקס איט", "מקס", "לאומי קארד", "max", "leumi card"},
	},
	{
		Vendor:   "behatsdaa",
		Keywords: []string{"בהצדעה", "behatsdaa"},
	},
}

// knownBankVendors is the static registry of bank-side scraper vendors.
// The scraper owns this list; it is mirrored here as the fallback registry.
var knownBankVendors = []string{
	"hapoalim",
	"leumi",
	"discount",
	"mercantile",
	"mizrahi",
	"otsarHahayal",
	"beinleumi",
	"massad",
	"yahav",
	"union",
	"oneZero",
}

// CardVendors returns the known credit-card vendors in table order.
func CardVendors() []string {
	out := make([]string, 0, len(cardVendorTable))
	for _, entry := range cardVendorTable {
		out = append(out, entry.Vendor)
	}
	return out
}

// BankVendors returns the static list of known bank vendors.
func BankVendors() []string {
	out := make([]string, len(knownBankVendors))
	copy(out, knownBankVendors)
	return out
}

// IsCardVendor reports whether vendor is a known credit-card vendor.
func IsCardVendor(vendor string) bool {
	for _, entry := range cardVendorTable {
		if entry.Vendor == vendor {
			return true
		}
	}
	return false
}

// KeywordsFor returns the keyword list for a card vendor, or nil when the
// vendor is unknown.
func KeywordsFor(vendor string) []string {
	for _, entry := range cardVendorTable {
		if entry.Vendor == vendor {
			return entry.Keywords
		}
	}
	return nil
}
