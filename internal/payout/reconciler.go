// Package payout cross-checks derived invoice totals against the payout
// an Etsy seller actually received: bank statements supply the payout
// figure, an extracted payment statement supplies the platform fees.
package payout

import (
	"math"

	"github.com/faktorino/faktorino/pkg/models"
)

// Tolerance absorbs rounding differences, not real discrepancies.
const Tolerance = 0.01

// Advisory texts. The explanation is not derived from transaction-level
// analysis; it only points the user at the usual causes.
const (
	explanationOK          = "Keine Abweichung festgestellt. Erwartete und tatsächliche Auszahlung stimmen überein."
	explanationDiscrepancy = "Abweichung festgestellt. Mögliche Ursachen: Rückerstattung, Rückbuchung oder eine noch nicht gebuchte Gebühr."
)

// Reconcile compares the expected payout against the amount that
// arrived on the bank account.
//
// totalFees carries the signed-fee convention used throughout this
// repository: fee deductions are negative addends, so
// expected = grossInvoices + totalFees. Callers holding a positive fee
// sum must negate it before calling.
func Reconcile(grossInvoices, totalFees, actualPayout float64) models.PayoutValidationResult {
	expected := grossInvoices + totalFees
	difference := expected - actualPayout

	result := models.PayoutValidationResult{
		GrossInvoices:  grossInvoices,
		TotalFees:      totalFees,
		ExpectedPayout: expected,
		PayoutAmount:   actualPayout,
		Difference:     difference,
		Discrepancy:    math.Abs(difference) > Tolerance,
	}

	if result.Discrepancy {
		result.Explanation = explanationDiscrepancy
	} else {
		result.Explanation = explanationOK
	}
	return result
}
