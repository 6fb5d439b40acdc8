// Package model defines the core domain types shared across the application.
package model

import "time"

// Transaction statuses as written by the scraper subsystem.
const (
	TransactionStatusCompleted = "completed"
	TransactionStatusPending   = "pending"
)

// Transaction represents a single scraped financial transaction.
// Rows are owned by the import subsystem; the reconciliation engine only
// reads them, rewrites CategoryDefinitionID, or inserts synthetic fee rows.
type Transaction struct {
	Date                 time.Time
	ProcessedDate        *time.Time
	AccountNumber        *string
	CategoryDefinitionID *int64
	Identifier           string // unique per vendor
	Vendor               string
	Name                 string // free text, bilingual (Hebrew/English)
	Status               string
	Price                float64 // signed; negative = outflow
}

// IsOutflow reports whether the transaction represents money leaving the account.
func (t *Transaction) IsOutflow() bool {
	return t.Price < 0
}
