package model

// Well-known category names used by the reconciliation engine.
const (
	// CategoryCardRepayments tags bank transactions that repay a credit card.
	CategoryCardRepayments = "Credit Card Repayments"
	// CategoryBankFees tags bank and card fee charges, including synthetic
	// fee rows created by the discrepancy resolver.
	CategoryBankFees = "Bank and Card Fees"
)

// Category represents a category definition row.
type Category struct {
	Name string
	ID   int64
}
