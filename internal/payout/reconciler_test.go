package payout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconcile_NoDiscrepancy(t *testing.T) {
	result := Reconcile(1000, -100, 900)

	assert.InDelta(t, 900, result.ExpectedPayout, 0.001)
	assert.InDelta(t, 0, result.Difference, 0.001)
	assert.False(t, result.Discrepancy)
	assert.Contains(t, result.Explanation, "Keine Abweichung")
}

func TestReconcile_Discrepancy(t *testing.T) {
	result := Reconcile(1000, -100, 850)

	assert.InDelta(t, 900, result.ExpectedPayout, 0.001)
	assert.InDelta(t, 50, result.Difference, 0.001)
	assert.True(t, result.Discrepancy)
	assert.Contains(t, result.Explanation, "Rückerstattung")
}

func TestReconcile_ToleranceAbsorbsRounding(t *testing.T) {
	result := Reconcile(1000, -100, 899.995)
	assert.False(t, result.Discrepancy)

	result = Reconcile(1000, -100, 899.98)
	assert.True(t, result.Discrepancy)
}

func TestReconcile_SignedFeeConvention(t *testing.T) {
	// Fees are a signed addend: a caller holding positive fee figures
	// must negate them. Passing them positive inflates the expectation.
	result := Reconcile(1000, 100, 900)
	assert.InDelta(t, 1100, result.ExpectedPayout, 0.001)
	assert.True(t, result.Discrepancy)
}

func TestReconcile_NegativeDifference(t *testing.T) {
	// Payout larger than expected is a discrepancy too.
	result := Reconcile(1000, -100, 950)
	assert.InDelta(t, -50, result.Difference, 0.001)
	assert.True(t, result.Discrepancy)
}

func TestReconcile_ZeroFigures(t *testing.T) {
	result := Reconcile(0, 0, 0)
	assert.False(t, result.Discrepancy)
}
