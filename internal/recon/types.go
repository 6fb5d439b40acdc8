// Package recon implements the account reconciliation engine: discovering
// which bank account repays which credit card, grouping repayments into
// billing cycles, and quantifying the discrepancy between what the bank paid
// and what the card charged.
package recon

import (
	"time"

	"github.com/shekelsync/shekelsync/internal/model"
	"github.com/shekelsync/shekelsync/internal/service"
)

// Reconciliation thresholds.
const (
	// matchEpsilon is the tolerance, in currency units, under which a bank
	// repayment and a card cycle total are considered matched.
	matchEpsilon = 1.0
	// feeCeiling bounds the bank-over-card difference still explainable as a
	// card fee. Above it the cycle is a large discrepancy.
	feeCeiling = 200.0
	// historyGuardDays protects cycles near the edges of known card history
	// from false positives caused by partial data.
	historyGuardDays = 14
	// defaultMonthsBack is the default reconciliation lookback window.
	defaultMonthsBack = 3

	maxSampleTransactions = 3
	maxRunnersUp          = 2
)

// CycleStatus classifies one billing cycle's reconciliation outcome.
type CycleStatus string

// Cycle statuses.
const (
	StatusMatched           CycleStatus = "matched"
	StatusFeeCandidate      CycleStatus = "fee_candidate"
	StatusLargeDiscrepancy  CycleStatus = "large_discrepancy"
	StatusCCOverBank        CycleStatus = "cc_over_bank"
	StatusMissingCCCycle    CycleStatus = "missing_cc_cycle"
	StatusIncompleteHistory CycleStatus = "incomplete_history"
)

// Engine composes the reconciliation operations over an injected store and
// bank-vendor registry. All public methods acquire exactly one database
// session at entry and release it on every exit path.
type Engine struct {
	store    service.Store
	registry service.VendorRegistry
	now      func() time.Time
}

// NewEngine creates a reconciliation engine.
func NewEngine(store service.Store, registry service.VendorRegistry) *Engine {
	return &Engine{
		store:    store,
		registry: registry,
		now:      time.Now,
	}
}

// BankCandidate is one bank account considered as the payer for a card.
type BankCandidate struct {
	BankVendor          string
	BankAccountNumber   *string
	Samples             []model.Transaction // up to 3 matching rows, for auditability
	TransactionCount    int
	MatchingLast4Count  int
	MatchingVendorCount int
}

// DetectionResult is the outcome of the candidate search for one card.
type DetectionResult struct {
	Best      *BankCandidate
	Reason    string // human-readable, set when Found is false
	RunnersUp []BankCandidate
	Found     bool
}

// Cycle is one reconciled billing cycle. Derived, never persisted.
type Cycle struct {
	CycleDate      time.Time
	CCTotal        *float64
	Difference     *float64
	MatchedAccount string
	Status         CycleStatus
	Repayments     []model.Transaction
	BankTotal      float64
}

// DiscrepancyReport aggregates the reconciled cycles for one pairing.
type DiscrepancyReport struct {
	StatusCounts   map[CycleStatus]int
	Cycles         []Cycle
	BankTotal      float64 // sum over matched-period cycles
	CCTotal        float64
	PercentDiff    float64
	HasDiscrepancy bool
	Acknowledged   bool
	Exists         bool // HasDiscrepancy && !Acknowledged
}

// DiscrepancyRequest parameterizes a cycle reconciliation run.
type DiscrepancyRequest struct {
	BankAccountNumber       *string
	CreditCardAccountNumber *string
	BankVendor              string
	CreditCardVendor        string
	MonthsBack              int // 0 means the default of 3
}

// AutoPairRequest parameterizes the auto-pair workflow.
type AutoPairRequest struct {
	CreditCardAccountNumber *string
	CreditCardVendor        string
	ApplyTransactions       bool
}

// AutoPairResult is the composed outcome of the auto-pair workflow.
type AutoPairResult struct {
	Pairing       *model.AccountPairing
	Detection     *DetectionResult
	Discrepancy   *DiscrepancyReport
	Reason        string
	Recategorized int64
	Success       bool
}

// Resolution actions.
const (
	ActionIgnore   = "ignore"
	ActionAddCCFee = "add_cc_fee"
)

// FeeDetails describes the synthetic fee transaction to create.
type FeeDetails struct {
	Name   string
	Date   string // YYYY-MM-DD
	Amount float64
}

// ResolveRequest parameterizes a discrepancy resolution.
type ResolveRequest struct {
	FeeDetails *FeeDetails
	CycleDate  string
	Action     string
	PairingID  int64
}

// ResolveResult reports the outcome of a resolution.
type ResolveResult struct {
	Transaction   *model.Transaction // set for add_cc_fee
	TransactionID string
	Action        string
	PairingID     int64
}

// SmartMatchRequest describes the card being searched for.
type SmartMatchRequest struct {
	AccountNumber *string
	Vendor        string
	Nickname      string
	PartialDigits string
}

// SmartMatchHit is one scored bank transaction candidate.
type SmartMatchHit struct {
	Transaction     model.Transaction
	MatchedPatterns []string
	Confidence      int
}

// Settlement candidate match reasons.
const (
	ReasonAccountNumberMatch = "account_number_match"
	ReasonKeywordMatch       = "keyword_match"
)

// SettlementCandidate is a transaction that could be manually paired.
type SettlementCandidate struct {
	MatchReason string
	Transaction model.Transaction
}

// SettlementTotals aggregates candidates by match reason.
type SettlementTotals struct {
	Count int
	Total float64 // sum of absolute amounts
}

// SettlementReport lists pairable transactions not covered by any pairing.
type SettlementReport struct {
	TotalsByReason map[string]SettlementTotals
	Candidates     []SettlementCandidate
}

// UnpairedReport counts repayment transactions at known bank vendors that no
// active pairing covers.
type UnpairedReport struct {
	Transactions []model.Transaction
	Count        int
}

// CardSuggestion is one unregistered card detected in transaction history.
type CardSuggestion struct {
	Vendor           string
	CardNumber       string // trailing 4-digit run, may be empty
	TransactionCount int
	UniqueKeywords   int
	Confidence       int
	HasCategoryMatch bool
	HasKeywordMatch  bool
}
