// Package storage provides the data persistence layer for the reconciliation engine.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shekelsync/shekelsync/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrEmptySlice     = errors.New("slice cannot be empty")
	ErrInvalidPairing = errors.New("invalid pairing")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validatePatterns ensures a pattern list is non-empty and has no blanks.
func validatePatterns(patterns []string) error {
	if len(patterns) == 0 {
		return fmt.Errorf("%w: patterns", ErrEmptySlice)
	}
	for i, p := range patterns {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%w: patterns[%d]", ErrEmptyString, i)
		}
	}
	return nil
}

// validatePairing validates a pairing before persistence.
func validatePairing(pairing *model.AccountPairing) error {
	if pairing == nil {
		return fmt.Errorf("%w: pairing", ErrNilParameter)
	}
	if err := pairing.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPairing, err)
	}
	return nil
}

// validateTransaction validates a transaction before insertion.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.Identifier == "" {
		return fmt.Errorf("transaction missing identifier")
	}
	if txn.Vendor == "" {
		return fmt.Errorf("transaction missing vendor")
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("transaction missing date")
	}
	if txn.Name == "" {
		return fmt.Errorf("transaction missing name")
	}
	return nil
}
