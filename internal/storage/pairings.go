package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shekelsync/shekelsync/internal/common"
	"github.com/shekelsync/shekelsync/internal/model"
)

// ErrPairingNotFound is returned when an account pairing is not found.
var ErrPairingNotFound = fmt.Errorf("account pairing: %w", common.ErrNotFound)

// CreatePairing inserts a new account pairing and sets its ID and timestamps.
// A UNIQUE constraint on the account tuple backs the engine's duplicate check
// against the benign concurrent-creation race.
func (t *sqliteSession) CreatePairing(ctx context.Context, pairing *model.AccountPairing) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePairing(pairing); err != nil {
		return err
	}

	patternsJSON, err := json.Marshal(pairing.MatchPatterns)
	if err != nil {
		return fmt.Errorf("failed to marshal match patterns: %w", err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO account_pairings (
			credit_card_vendor, credit_card_account_number,
			bank_vendor, bank_account_number,
			match_patterns, is_active, discrepancy_acknowledged,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := t.conn.ExecContext(ctx, query,
		pairing.CreditCardVendor, pairing.CreditCardAccountNumber,
		pairing.BankVendor, pairing.BankAccountNumber,
		string(patternsJSON), pairing.IsActive, pairing.DiscrepancyAcknowledged,
		now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create pairing: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	pairing.ID = id
	pairing.CreatedAt = now
	pairing.UpdatedAt = now
	slog.Info("created account pairing",
		"id", id,
		"cc_vendor", pairing.CreditCardVendor,
		"bank_vendor", pairing.BankVendor)
	return nil
}

const pairingColumns = `
	id, credit_card_vendor, credit_card_account_number,
	bank_vendor, bank_account_number, match_patterns,
	is_active, discrepancy_acknowledged, created_at, updated_at`

// GetPairing retrieves a pairing by ID.
func (t *sqliteSession) GetPairing(ctx context.Context, id int64) (*model.AccountPairing, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := t.conn.QueryRowContext(ctx,
		`SELECT`+pairingColumns+` FROM account_pairings WHERE id = ?`, id)

	pairing, err := scanPairing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPairingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query pairing: %w", err)
	}
	return pairing, nil
}

// FindPairingByAccounts looks up a pairing by its full account tuple,
// including inactive rows. Nullable account numbers compare with IS so that
// NULL matches NULL.
func (t *sqliteSession) FindPairingByAccounts(ctx context.Context, ccVendor string, ccAccount *string, bankVendor string, bankAccount *string) (*model.AccountPairing, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ccVendor, "ccVendor"); err != nil {
		return nil, err
	}
	if err := validateString(bankVendor, "bankVendor"); err != nil {
		return nil, err
	}

	row := t.conn.QueryRowContext(ctx, `
		SELECT`+pairingColumns+`
		FROM account_pairings
		WHERE credit_card_vendor = ?
		  AND credit_card_account_number IS ?
		  AND bank_vendor = ?
		  AND bank_account_number IS ?`,
		ccVendor, ccAccount, bankVendor, bankAccount)

	pairing, err := scanPairing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPairingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query pairing by accounts: %w", err)
	}
	return pairing, nil
}

// ListPairings returns all pairings, or only the active ones.
func (t *sqliteSession) ListPairings(ctx context.Context, activeOnly bool) ([]model.AccountPairing, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT` + pairingColumns + ` FROM account_pairings`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY id`

	rows, err := t.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pairings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pairings []model.AccountPairing
	for rows.Next() {
		pairing, scanErr := scanPairing(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan pairing: %w", scanErr)
		}
		pairings = append(pairings, *pairing)
	}
	return pairings, rows.Err()
}

// UpdatePairing persists pattern, activation, and acknowledgment changes.
func (t *sqliteSession) UpdatePairing(ctx context.Context, pairing *model.AccountPairing) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePairing(pairing); err != nil {
		return err
	}

	patternsJSON, err := json.Marshal(pairing.MatchPatterns)
	if err != nil {
		return fmt.Errorf("failed to marshal match patterns: %w", err)
	}

	now := time.Now().UTC()
	result, err := t.conn.ExecContext(ctx, `
		UPDATE account_pairings
		SET match_patterns = ?, is_active = ?, discrepancy_acknowledged = ?, updated_at = ?
		WHERE id = ?`,
		string(patternsJSON), pairing.IsActive, pairing.DiscrepancyAcknowledged, now, pairing.ID)
	if err != nil {
		return fmt.Errorf("failed to update pairing: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrPairingNotFound
	}

	pairing.UpdatedAt = now
	return nil
}

// DeletePairing hard-deletes a pairing row. The audit log is retained.
func (t *sqliteSession) DeletePairing(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := t.conn.ExecContext(ctx, `DELETE FROM account_pairings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pairing: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrPairingNotFound
	}

	slog.Info("deleted account pairing", "id", id)
	return nil
}

// AppendPairingLog appends one audit record. Log rows are never mutated.
func (t *sqliteSession) AppendPairingLog(ctx context.Context, pairingID int64, action model.PairingAction, details map[string]any) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var detailsJSON []byte
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to marshal log details: %w", err)
		}
		detailsJSON = data
	}

	_, err := t.conn.ExecContext(ctx, `
		INSERT INTO account_pairing_log (pairing_id, action, details, created_at)
		VALUES (?, ?, ?, ?)`,
		pairingID, string(action), string(detailsJSON), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to append pairing log: %w", err)
	}
	return nil
}

// GetPairingLog returns the audit trail for one pairing, oldest first.
func (t *sqliteSession) GetPairingLog(ctx context.Context, pairingID int64) ([]model.PairingLogEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := t.conn.QueryContext(ctx, `
		SELECT id, pairing_id, action, details, created_at
		FROM account_pairing_log
		WHERE pairing_id = ?
		ORDER BY id`, pairingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pairing log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.PairingLogEntry
	for rows.Next() {
		var entry model.PairingLogEntry
		var action string
		var detailsJSON sql.NullString
		if scanErr := rows.Scan(&entry.ID, &entry.PairingID, &action, &detailsJSON, &entry.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", scanErr)
		}
		entry.Action = model.PairingAction(action)
		if detailsJSON.Valid && detailsJSON.String != "" {
			if unmarshalErr := json.Unmarshal([]byte(detailsJSON.String), &entry.Details); unmarshalErr != nil {
				return nil, fmt.Errorf("failed to unmarshal log details: %w", unmarshalErr)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPairing(row rowScanner) (*model.AccountPairing, error) {
	pairing := &model.AccountPairing{}
	var ccAccount, bankAccount sql.NullString
	var patternsJSON string

	err := row.Scan(
		&pairing.ID, &pairing.CreditCardVendor, &ccAccount,
		&pairing.BankVendor, &bankAccount, &patternsJSON,
		&pairing.IsActive, &pairing.DiscrepancyAcknowledged,
		&pairing.CreatedAt, &pairing.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if ccAccount.Valid {
		pairing.CreditCardAccountNumber = &ccAccount.String
	}
	if bankAccount.Valid {
		pairing.BankAccountNumber = &bankAccount.String
	}
	if err := json.Unmarshal([]byte(patternsJSON), &pairing.MatchPatterns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match patterns: %w", err)
	}
	return pairing, nil
}
