package recon

import (
	"context"
	"errors"

	"github.com/shekelsync/shekelsync/internal/common"
	"github.com/shekelsync/shekelsync/internal/model"
)

// CreatePairing validates and persists a manually constructed pairing.
// Validation fails with a 400 before any insertion; a duplicate account tuple
// (active or inactive) is rejected with a 409 carrying the existing id.
func (e *Engine) CreatePairing(ctx context.Context, pairing *model.AccountPairing) error {
	if pairing == nil {
		return common.NewValidationError("pairing is required")
	}
	if pairing.CreditCardVendor == "" || pairing.BankVendor == "" {
		return common.NewValidationError("creditCardVendor and bankVendor are required")
	}
	if len(pairing.MatchPatterns) == 0 {
		return common.NewValidationError("matchPatterns must not be empty")
	}

	sess, err := e.store.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Release() }()

	existing, err := sess.FindPairingByAccounts(ctx,
		pairing.CreditCardVendor, pairing.CreditCardAccountNumber,
		pairing.BankVendor, pairing.BankAccountNumber)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}
	if existing != nil {
		return common.NewConflictError("a pairing for these accounts already exists", existing.ID)
	}

	// Two identical concurrent creations can both pass this check; the
	// storage layer's unique constraint settles the race.
	if err := sess.CreatePairing(ctx, pairing); err != nil {
		return err
	}
	return sess.AppendPairingLog(ctx, pairing.ID, model.PairingActionCreated, map[string]any{
		"matchPatterns": pairing.MatchPatterns,
		"manual":        true,
	})
}

// UpdatePairingPatterns replaces a pairing's match patterns. Changing the
// patterns clears any earlier discrepancy acknowledgment.
func (e *Engine) UpdatePairingPatterns(ctx context.Context, id int64, patterns []string) (*model.AccountPairing, error) {
	if len(patterns) == 0 {
		return nil, common.NewValidationError("matchPatterns must not be empty")
	}

	sess, err := e.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sess.Release() }()

	pairing, err := sess.GetPairing(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewNotFoundError("pairing not found", err)
		}
		return nil, err
	}

	pairing.MatchPatterns = patterns
	pairing.DiscrepancyAcknowledged = false
	if err := sess.UpdatePairing(ctx, pairing); err != nil {
		return nil, err
	}
	if err := sess.AppendPairingLog(ctx, id, model.PairingActionUpdated, map[string]any{
		"matchPatterns": patterns,
	}); err != nil {
		return nil, err
	}
	return pairing, nil
}

// DeactivatePairing soft-deletes a pairing by clearing its active flag.
func (e *Engine) DeactivatePairing(ctx context.Context, id int64) error {
	return e.setPairingActive(ctx, id, false)
}

// ReactivatePairing restores a soft-deleted pairing.
func (e *Engine) ReactivatePairing(ctx context.Context, id int64) error {
	return e.setPairingActive(ctx, id, true)
}

func (e *Engine) setPairingActive(ctx context.Context, id int64, active bool) error {
	sess, err := e.store.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Release() }()

	pairing, err := sess.GetPairing(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.NewNotFoundError("pairing not found", err)
		}
		return err
	}

	pairing.IsActive = active
	if err := sess.UpdatePairing(ctx, pairing); err != nil {
		return err
	}
	return sess.AppendPairingLog(ctx, id, model.PairingActionUpdated, map[string]any{
		"isActive": active,
	})
}

// DeletePairing hard-deletes a pairing. The audit trail keeps a final entry.
func (e *Engine) DeletePairing(ctx context.Context, id int64) error {
	sess, err := e.store.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Release() }()

	if err := sess.DeletePairing(ctx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.NewNotFoundError("pairing not found", err)
		}
		return err
	}
	return sess.AppendPairingLog(ctx, id, model.PairingActionDeleted, nil)
}

// GetPairing returns one pairing by id.
func (e *Engine) GetPairing(ctx context.Context, id int64) (*model.AccountPairing, error) {
	sess, err := e.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sess.Release() }()

	pairing, err := sess.GetPairing(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewNotFoundError("pairing not found", err)
		}
		return nil, err
	}
	return pairing, nil
}

// ListPairings returns all pairings, optionally only the active ones.
func (e *Engine) ListPairings(ctx context.Context, activeOnly bool) ([]model.AccountPairing, error) {
	sess, err := e.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sess.Release() }()

	return sess.ListPairings(ctx, activeOnly)
}

// PairingLog returns the audit trail for one pairing.
func (e *Engine) PairingLog(ctx context.Context, id int64) ([]model.PairingLogEntry, error) {
	sess, err := e.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sess.Release() }()

	return sess.GetPairingLog(ctx, id)
}
