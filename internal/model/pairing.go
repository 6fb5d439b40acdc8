package model

import (
	"fmt"
	"strings"
	"time"
)

// PairingAction identifies an entry type in the pairing audit log.
type PairingAction string

// Audit log actions. The log is append-only; entries are never mutated.
const (
	PairingActionCreated    PairingAction = "created"
	PairingActionUpdated    PairingAction = "updated"
	PairingActionDeleted    PairingAction = "deleted"
	PairingActionApplied    PairingAction = "applied"
	PairingActionIgnore     PairingAction = "ignore"
	PairingActionFeeCreated PairingAction = "fee_created"
)

// AccountPairing is a confirmed association between one credit-card account
// and the bank account that repays it.
type AccountPairing struct {
	CreatedAt               time.Time
	UpdatedAt               time.Time
	CreditCardAccountNumber *string
	BankAccountNumber       *string
	CreditCardVendor        string
	BankVendor              string
	MatchPatterns           []string // never empty
	ID                      int64
	IsActive                bool
	DiscrepancyAcknowledged bool
}

// Validate checks the invariants enforced before a pairing is persisted.
func (p *AccountPairing) Validate() error {
	if strings.TrimSpace(p.CreditCardVendor) == "" {
		return fmt.Errorf("pairing missing credit card vendor")
	}
	if strings.TrimSpace(p.BankVendor) == "" {
		return fmt.Errorf("pairing missing bank vendor")
	}
	if len(p.MatchPatterns) == 0 {
		return fmt.Errorf("pairing must have at least one match pattern")
	}
	for _, pattern := range p.MatchPatterns {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("pairing match patterns cannot be empty strings")
		}
	}
	return nil
}

// PairingLogEntry is one append-only audit record for a pairing.
type PairingLogEntry struct {
	CreatedAt time.Time
	Details   map[string]any
	Action    PairingAction
	ID        int64
	PairingID int64
}
