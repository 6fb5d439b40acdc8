package recon

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shekelsync/shekelsync/internal/common"
	"github.com/shekelsync/shekelsync/internal/model"
	"github.com/shekelsync/shekelsync/internal/service"
	"github.com/shekelsync/shekelsync/internal/vendors"
)

// AutoPair runs the full auto-pair workflow for one credit card: detect the
// repaying bank account, create or revive the pairing, optionally
// recategorize matching transactions, and report the current discrepancy
// state. A failed detection returns a structured failure with no side effects.
func (e *Engine) AutoPair(ctx context.Context, req AutoPairRequest) (*AutoPairResult, error) {
	if req.CreditCardVendor == "" {
		return nil, common.NewValidationError("creditCardVendor is required")
	}

	sess, err := e.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sess.Release() }()

	detection, err := findBestBankAccount(ctx, sess, req.CreditCardVendor, req.CreditCardAccountNumber)
	if err != nil {
		return nil, err
	}
	if !detection.Found {
		return &AutoPairResult{Detection: detection, Reason: detection.Reason}, nil
	}

	var account string
	if req.CreditCardAccountNumber != nil {
		account = *req.CreditCardAccountNumber
	}
	patterns := vendors.BuildMatchPatterns(req.CreditCardVendor, account)
	if len(patterns) == 0 {
		return nil, common.NewValidationError("cannot build match patterns: unknown vendor and no account number")
	}

	best := detection.Best
	pairing, err := e.upsertPairing(ctx, sess, req, best, patterns)
	if err != nil {
		return nil, err
	}

	result := &AutoPairResult{
		Success:   true,
		Pairing:   pairing,
		Detection: detection,
	}

	if req.ApplyTransactions {
		count, applyErr := e.applyPatterns(ctx, sess, pairing, patterns)
		if applyErr != nil {
			return nil, applyErr
		}
		result.Recategorized = count
	}

	discrepancy, err := e.checkDiscrepancy(ctx, sess, DiscrepancyRequest{
		BankVendor:              best.BankVendor,
		BankAccountNumber:       best.BankAccountNumber,
		CreditCardVendor:        req.CreditCardVendor,
		CreditCardAccountNumber: req.CreditCardAccountNumber,
	}, pairing.DiscrepancyAcknowledged)
	if err != nil {
		return nil, err
	}
	result.Discrepancy = discrepancy

	return result, nil
}

// upsertPairing reuses an exact match (reactivating it when inactive, and
// refreshing its patterns) or creates a new pairing.
func (e *Engine) upsertPairing(ctx context.Context, sess service.Session, req AutoPairRequest, best *BankCandidate, patterns []string) (*model.AccountPairing, error) {
	existing, err := sess.FindPairingByAccounts(ctx,
		req.CreditCardVendor, req.CreditCardAccountNumber,
		best.BankVendor, best.BankAccountNumber)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		reactivated := !existing.IsActive
		existing.IsActive = true
		existing.MatchPatterns = patterns
		if err := sess.UpdatePairing(ctx, existing); err != nil {
			return nil, err
		}
		if err := sess.AppendPairingLog(ctx, existing.ID, model.PairingActionUpdated, map[string]any{
			"matchPatterns": patterns,
			"reactivated":   reactivated,
		}); err != nil {
			return nil, err
		}
		slog.Info("reused existing pairing",
			"id", existing.ID,
			"reactivated", reactivated)
		return existing, nil
	}

	pairing := &model.AccountPairing{
		CreditCardVendor:        req.CreditCardVendor,
		CreditCardAccountNumber: req.CreditCardAccountNumber,
		BankVendor:              best.BankVendor,
		BankAccountNumber:       best.BankAccountNumber,
		MatchPatterns:           patterns,
		IsActive:                true,
	}
	if err := sess.CreatePairing(ctx, pairing); err != nil {
		return nil, err
	}
	if err := sess.AppendPairingLog(ctx, pairing.ID, model.PairingActionCreated, map[string]any{
		"matchPatterns":       patterns,
		"matchingLast4Count":  best.MatchingLast4Count,
		"matchingVendorCount": best.MatchingVendorCount,
	}); err != nil {
		return nil, err
	}
	return pairing, nil
}

// applyPatterns bulk-recategorizes existing transactions matching the built
// patterns into the repayment category. Skipped with a warning when the
// target category cannot be resolved.
func (e *Engine) applyPatterns(ctx context.Context, sess service.Session, pairing *model.AccountPairing, patterns []string) (int64, error) {
	category, err := sess.GetCategoryByName(ctx, model.CategoryCardRepayments)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			slog.Warn("skipping bulk recategorization: repayment category not found",
				"pairing_id", pairing.ID)
			return 0, nil
		}
		return 0, err
	}

	count, err := sess.RecategorizeByPatterns(ctx, patterns, category.ID)
	if err != nil {
		return 0, err
	}
	if err := sess.AppendPairingLog(ctx, pairing.ID, model.PairingActionApplied, map[string]any{
		"recategorized": count,
		"categoryId":    category.ID,
	}); err != nil {
		return 0, err
	}
	return count, nil
}
