package models

import "time"

// BankTransaction is one row extracted from a bank statement CSV that
// matched the marketplace keyword filter.
type BankTransaction struct {
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"` // negative for outgoing, positive for incoming
}

// PayoutValidationResult is the outcome of cross-checking invoice gross
// totals and platform fees against the payout that actually arrived.
//
// TotalFees carries the signed-fee convention: fee deductions are
// negative, so ExpectedPayout = GrossInvoices + TotalFees.
type PayoutValidationResult struct {
	GrossInvoices  float64 `json:"gross_invoices"`
	TotalFees      float64 `json:"total_fees"`
	ExpectedPayout float64 `json:"expected_payout"`
	PayoutAmount   float64 `json:"payout_amount"`
	Difference     float64 `json:"difference"` // expected - actual
	Discrepancy    bool    `json:"discrepancy"`
	Explanation    string  `json:"explanation"`
}
