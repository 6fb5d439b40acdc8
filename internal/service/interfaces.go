// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/shekelsync/shekelsync/internal/model"
)

// Store is the persistence entry point. Every engine operation acquires
// exactly one Session at entry and must release it on every exit path.
type Store interface {
	// Acquire checks out one pooled database client.
	Acquire(ctx context.Context) (Session, error)
	// Migrate brings the schema to the expected version.
	Migrate(ctx context.Context) error
	Close() error
}

// Session is a checked-out database client. It exposes every query the
// reconciliation engine runs; Release returns the client to the pool.
type Session interface {
	// Pairing operations
	CreatePairing(ctx context.Context, pairing *model.AccountPairing) error
	GetPairing(ctx context.Context, id int64) (*model.AccountPairing, error)
	FindPairingByAccounts(ctx context.Context, ccVendor string, ccAccount *string, bankVendor string, bankAccount *string) (*model.AccountPairing, error)
	ListPairings(ctx context.Context, activeOnly bool) ([]model.AccountPairing, error)
	UpdatePairing(ctx context.Context, pairing *model.AccountPairing) error
	DeletePairing(ctx context.Context, id int64) error

	// Audit log operations (append-only)
	AppendPairingLog(ctx context.Context, pairingID int64, action model.PairingAction, details map[string]any) error
	GetPairingLog(ctx context.Context, pairingID int64) ([]model.PairingLogEntry, error)

	// Transaction queries
	ListRepayments(ctx context.Context, categoryID int64, excludeVendors []string, since time.Time) ([]model.Transaction, error)
	ListRepaymentsByVendors(ctx context.Context, categoryID int64, vendors []string, since time.Time) ([]model.Transaction, error)
	ListAccountRepayments(ctx context.Context, categoryID int64, bankVendor string, bankAccount *string, since time.Time) ([]model.Transaction, error)
	ListChargesByProcessedDate(ctx context.Context, ccVendor string, ccAccount *string, date time.Time) ([]model.Transaction, error)
	ListCardMentions(ctx context.Context, keywords []string, categoryID int64, since time.Time) ([]model.Transaction, error)
	SearchTransactionsByPatterns(ctx context.Context, patterns []string, excludeVendors []string, limit int) ([]model.Transaction, error)
	EarliestTransactionDate(ctx context.Context, vendor string, account *string) (*time.Time, error)
	RecategorizeByPatterns(ctx context.Context, patterns []string, categoryID int64) (int64, error)
	InsertTransaction(ctx context.Context, txn *model.Transaction) error

	// Category lookup
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	EnsureCategory(ctx context.Context, name string) (*model.Category, error)

	// Release returns the client to the pool. It must be called exactly once.
	Release() error
}

// VendorRegistry resolves the set of known bank-side scraper vendors.
type VendorRegistry interface {
	BankVendors(ctx context.Context) ([]string, error)
}
