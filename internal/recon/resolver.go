package recon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shekelsync/shekelsync/internal/common"
	"github.com/shekelsync/shekelsync/internal/model"
	"github.com/shekelsync/shekelsync/internal/service"
)

// ResolveDiscrepancy acknowledges a flagged cycle or explains it by
// synthesizing a fee transaction. All input validation happens before a
// database client is acquired.
func (e *Engine) ResolveDiscrepancy(ctx context.Context, req ResolveRequest) (*ResolveResult, error) {
	if req.PairingID <= 0 {
		return nil, common.NewValidationError("pairingId is required")
	}
	switch req.Action {
	case ActionIgnore:
	case ActionAddCCFee:
		if req.FeeDetails == nil {
			return nil, common.NewValidationError("feeDetails is required for add_cc_fee")
		}
		if req.FeeDetails.Amount <= 0 {
			return nil, common.NewValidationError("feeDetails.amount must be positive")
		}
		if req.FeeDetails.Date == "" || req.FeeDetails.Name == "" {
			return nil, common.NewValidationError("feeDetails.date and feeDetails.name are required")
		}
		if _, err := time.Parse("2006-01-02", req.FeeDetails.Date); err != nil {
			return nil, common.NewValidationError("feeDetails.date must be YYYY-MM-DD")
		}
	default:
		return nil, common.NewValidationError(fmt.Sprintf("invalid action %q", req.Action))
	}

	sess, err := e.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sess.Release() }()

	pairing, err := sess.GetPairing(ctx, req.PairingID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewNotFoundError("pairing not found", err)
		}
		return nil, err
	}

	if req.Action == ActionIgnore {
		return e.ignoreDiscrepancy(ctx, sess, pairing, req.CycleDate)
	}
	return e.addCardFee(ctx, sess, pairing, req.FeeDetails)
}

func (e *Engine) ignoreDiscrepancy(ctx context.Context, sess service.Session, pairing *model.AccountPairing, cycleDate string) (*ResolveResult, error) {
	pairing.DiscrepancyAcknowledged = true
	if err := sess.UpdatePairing(ctx, pairing); err != nil {
		return nil, err
	}
	if err := sess.AppendPairingLog(ctx, pairing.ID, model.PairingActionIgnore, map[string]any{
		"cycleDate": cycleDate,
	}); err != nil {
		return nil, err
	}
	return &ResolveResult{
		PairingID: pairing.ID,
		Action:    ActionIgnore,
	}, nil
}

// addCardFee synthesizes a negative-amount fee transaction on the card's
// ledger so the cycle totals reconcile.
func (e *Engine) addCardFee(ctx context.Context, sess service.Session, pairing *model.AccountPairing, fee *FeeDetails) (*ResolveResult, error) {
	category, err := sess.EnsureCategory(ctx, model.CategoryBankFees)
	if err != nil {
		return nil, err
	}

	feeDate, err := time.Parse("2006-01-02", fee.Date)
	if err != nil {
		return nil, common.NewValidationError("feeDetails.date must be YYYY-MM-DD")
	}

	transactionID := fmt.Sprintf("fee-%d-%s", pairing.ID, randomHex8())
	txn := &model.Transaction{
		Identifier:           transactionID,
		Vendor:               pairing.CreditCardVendor,
		AccountNumber:        pairing.CreditCardAccountNumber,
		Date:                 feeDate,
		ProcessedDate:        &feeDate,
		Name:                 fee.Name,
		Price:                -fee.Amount,
		CategoryDefinitionID: &category.ID,
		Status:               model.TransactionStatusCompleted,
	}
	if err := sess.InsertTransaction(ctx, txn); err != nil {
		return nil, err
	}

	if err := sess.AppendPairingLog(ctx, pairing.ID, model.PairingActionFeeCreated, map[string]any{
		"amount":        fee.Amount,
		"categoryId":    category.ID,
		"processedDate": fee.Date,
	}); err != nil {
		return nil, err
	}

	return &ResolveResult{
		PairingID:     pairing.ID,
		Action:        ActionAddCCFee,
		TransactionID: transactionID,
		Transaction:   txn,
	}, nil
}

// randomHex8 returns eight random lowercase hex characters.
func randomHex8() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
