package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shekelsync/shekelsync/internal/model"
)

const transactionColumns = `
	identifier, vendor, account_number, date, processed_date,
	name, price, category_definition_id, status`

// ListRepayments returns outgoing transactions in the given category whose
// vendor is not in excludeVendors (credit-card vendors cannot be payers).
func (t *sqliteSession) ListRepayments(ctx context.Context, categoryID int64, excludeVendors []string, since time.Time) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT` + transactionColumns + `
		FROM transactions
		WHERE category_definition_id = ?
		  AND price < 0
		  AND date >= ?`
	args := []any{categoryID, since}

	if len(excludeVendors) > 0 {
		query += ` AND vendor NOT IN (` + placeholders(len(excludeVendors)) + `)`
		for _, vendor := range excludeVendors {
			args = append(args, vendor)
		}
	}
	query += ` ORDER BY date DESC`

	return t.queryTransactions(ctx, query, args...)
}

// ListRepaymentsByVendors returns repayment-category transactions at any of
// the given vendors.
func (t *sqliteSession) ListRepaymentsByVendors(ctx context.Context, categoryID int64, vendorList []string, since time.Time) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if len(vendorList) == 0 {
		return nil, nil
	}

	query := `
		SELECT` + transactionColumns + `
		FROM transactions
		WHERE category_definition_id = ?
		  AND price < 0
		  AND date >= ?
		  AND vendor IN (` + placeholders(len(vendorList)) + `)
		ORDER BY date DESC`

	args := []any{categoryID, since}
	for _, vendor := range vendorList {
		args = append(args, vendor)
	}
	return t.queryTransactions(ctx, query, args...)
}

// ListAccountRepayments returns repayment rows for one bank account within
// the lookback window. A nil account number matches rows with NULL accounts.
func (t *sqliteSession) ListAccountRepayments(ctx context.Context, categoryID int64, bankVendor string, bankAccount *string, since time.Time) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(bankVendor, "bankVendor"); err != nil {
		return nil, err
	}

	query := `
		SELECT` + transactionColumns + `
		FROM transactions
		WHERE category_definition_id = ?
		  AND price < 0
		  AND vendor = ?
		  AND date >= ?`
	args := []any{categoryID, bankVendor, since}

	if bankAccount != nil {
		query += ` AND account_number = ?`
		args = append(args, *bankAccount)
	}
	query += ` ORDER BY date`

	return t.queryTransactions(ctx, query, args...)
}

// ListChargesByProcessedDate returns card transactions whose processed date
// falls on the given cycle date.
func (t *sqliteSession) ListChargesByProcessedDate(ctx context.Context, ccVendor string, ccAccount *string, date time.Time) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ccVendor, "ccVendor"); err != nil {
		return nil, err
	}

	query := `
		SELECT` + transactionColumns + `
		FROM transactions
		WHERE vendor = ?
		  AND processed_date IS NOT NULL
		  AND date(processed_date) = date(?)`
	args := []any{ccVendor, date.Format("2006-01-02")}

	if ccAccount != nil {
		query += ` AND account_number = ?`
		args = append(args, *ccAccount)
	}
	query += ` ORDER BY date`

	return t.queryTransactions(ctx, query, args...)
}

// ListCardMentions returns transactions since the given date that either sit
// in the given category or mention any of the keywords in their name.
func (t *sqliteSession) ListCardMentions(ctx context.Context, keywords []string, categoryID int64, since time.Time) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if len(keywords) == 0 {
		return nil, fmt.Errorf("%w: keywords", ErrEmptySlice)
	}

	likeClause, likeArgs := buildLikeClause("name", keywords)
	query := `
		SELECT` + transactionColumns + `
		FROM transactions
		WHERE date >= ?
		  AND (category_definition_id = ? OR ` + likeClause + `)
		ORDER BY date DESC`

	args := []any{since, categoryID}
	args = append(args, likeArgs...)
	return t.queryTransactions(ctx, query, args...)
}

// SearchTransactionsByPatterns returns transactions whose name contains any
// of the given patterns, excluding the listed vendors.
func (t *sqliteSession) SearchTransactionsByPatterns(ctx context.Context, patterns []string, excludeVendors []string, limit int) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validatePatterns(patterns); err != nil {
		return nil, err
	}

	likeClause, likeArgs := buildLikeClause("name", patterns)
	query := `
		SELECT` + transactionColumns + `
		FROM transactions
		WHERE (` + likeClause + `)`
	args := likeArgs

	if len(excludeVendors) > 0 {
		query += ` AND vendor NOT IN (` + placeholders(len(excludeVendors)) + `)`
		for _, vendor := range excludeVendors {
			args = append(args, vendor)
		}
	}
	query += ` ORDER BY date DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	return t.queryTransactions(ctx, query, args...)
}

// EarliestTransactionDate returns the date of the oldest known transaction
// for an account, or nil when the account has no history.
func (t *sqliteSession) EarliestTransactionDate(ctx context.Context, vendor string, account *string) (*time.Time, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(vendor, "vendor"); err != nil {
		return nil, err
	}

	// Select the column itself rather than MIN(date): aggregate expressions
	// lose the declared column type and scan back as raw strings.
	query := `SELECT date FROM transactions WHERE vendor = ?`
	args := []any{vendor}
	if account != nil {
		query += ` AND account_number = ?`
		args = append(args, *account)
	}
	query += ` ORDER BY date ASC LIMIT 1`

	var earliest time.Time
	err := t.conn.QueryRowContext(ctx, query, args...).Scan(&earliest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query earliest transaction date: %w", err)
	}
	return &earliest, nil
}

// RecategorizeByPatterns moves every transaction whose name matches any of
// the patterns into the given category with a single UPDATE. The OR-joined
// LIKE clauses bind every pattern as a parameter; no string concatenation of
// user input reaches the SQL text.
func (t *sqliteSession) RecategorizeByPatterns(ctx context.Context, patterns []string, categoryID int64) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validatePatterns(patterns); err != nil {
		return 0, err
	}

	likeClause, likeArgs := buildLikeClause("name", patterns)
	query := `UPDATE transactions SET category_definition_id = ? WHERE ` + likeClause

	args := append([]any{categoryID}, likeArgs...)
	result, err := t.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to recategorize transactions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	slog.Info("recategorized transactions", "count", affected, "category_id", categoryID)
	return affected, nil
}

// InsertTransaction inserts a single transaction row. Used for synthetic fee
// rows created by the discrepancy resolver.
func (t *sqliteSession) InsertTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	_, err := t.conn.ExecContext(ctx, `
		INSERT INTO transactions (
			identifier, vendor, account_number, date, processed_date,
			name, price, category_definition_id, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.Identifier, txn.Vendor, txn.AccountNumber, txn.Date, txn.ProcessedDate,
		txn.Name, txn.Price, txn.CategoryDefinitionID, txn.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction %s: %w", txn.Identifier, err)
	}
	return nil
}

func (t *sqliteSession) queryTransactions(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := t.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", scanErr)
		}
		transactions = append(transactions, *txn)
	}
	return transactions, rows.Err()
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	txn := &model.Transaction{}
	var accountNumber sql.NullString
	var processedDate sql.NullTime
	var categoryID sql.NullInt64

	err := row.Scan(
		&txn.Identifier, &txn.Vendor, &accountNumber, &txn.Date, &processedDate,
		&txn.Name, &txn.Price, &categoryID, &txn.Status,
	)
	if err != nil {
		return nil, err
	}

	if accountNumber.Valid {
		txn.AccountNumber = &accountNumber.String
	}
	if processedDate.Valid {
		txn.ProcessedDate = &processedDate.Time
	}
	if categoryID.Valid {
		txn.CategoryDefinitionID = &categoryID.Int64
	}
	return txn, nil
}

// placeholders returns n comma-separated SQL placeholders.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// buildLikeClause emits an OR-joined list of parameterized LIKE conditions
// over the given column, one bound parameter per pattern.
func buildLikeClause(column string, patterns []string) (string, []any) {
	conditions := make([]string, 0, len(patterns))
	args := make([]any, 0, len(patterns))
	for _, pattern := range patterns {
		conditions = append(conditions, column+` LIKE '%' || ? || '%'`)
		args = append(args, pattern)
	}
	return "(" + strings.Join(conditions, " OR ") + ")", args
}
