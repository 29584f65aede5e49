package payout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faktorino/faktorino/internal/etsy"
)

const bankCSV = "Buchungstag,Verwendungszweck,Betrag\n" +
	"02.01.2026,ETSY IRELAND UC AUSZAHLUNG,\"450,00\"\n" +
	"03.01.2026,Miete Januar,\"-900,00\"\n" +
	"15.01.2026,Etsy Ireland UC Auszahlung,\"300,50\"\n"

func TestMatch_FiltersByKeyword(t *testing.T) {
	matcher := NewStatementMatcher()
	txns, sum, err := matcher.Match([]string{bankCSV})
	require.NoError(t, err)

	require.Len(t, txns, 2)
	assert.InDelta(t, 750.50, sum, 0.001)
	assert.Equal(t, 2026, txns[0].Date.Year())
	assert.Equal(t, 2, txns[0].Date.Day())
	assert.InDelta(t, 450.00, txns[0].Amount, 0.001)
}

func TestMatch_CaseInsensitive(t *testing.T) {
	csv := "Buchungstag,Verwendungszweck,Betrag\n" +
		"02.01.2026,eTsY payment,\"100,00\"\n"
	matcher := NewStatementMatcher()
	txns, sum, err := matcher.Match([]string{csv})
	require.NoError(t, err)
	assert.Len(t, txns, 1)
	assert.InDelta(t, 100, sum, 0.001)
}

func TestMatch_SignedAmounts(t *testing.T) {
	// Chargebacks show up as negative Etsy transactions and reduce the
	// payout sum.
	csv := "Buchungstag,Verwendungszweck,Betrag\n" +
		"02.01.2026,Etsy Auszahlung,\"450,00\"\n" +
		"04.01.2026,Etsy Rückbuchung,\"-50,00\"\n"
	matcher := NewStatementMatcher()
	txns, sum, err := matcher.Match([]string{csv})
	require.NoError(t, err)
	assert.Len(t, txns, 2)
	assert.InDelta(t, 400, sum, 0.001)
}

func TestMatch_MultiFileHeaderStripping(t *testing.T) {
	file1 := "Buchungstag,Verwendungszweck,Betrag\n" +
		"02.01.2026,Etsy Auszahlung,\"450,00\"\n"
	file2 := "Buchungstag,Verwendungszweck,Betrag\n" +
		"02.02.2026,Etsy Auszahlung,\"300,00\"\n"

	matcher := NewStatementMatcher()
	txns, sum, err := matcher.Match([]string{file1, file2})
	require.NoError(t, err)
	assert.Len(t, txns, 2)
	assert.InDelta(t, 750, sum, 0.001)
}

func TestMatch_EnglishHeaders(t *testing.T) {
	csv := "Date,Description,Amount\n" +
		"2026-01-02,ETSY DEPOSIT,450.00\n"
	matcher := NewStatementMatcher()
	txns, sum, err := matcher.Match([]string{csv})
	require.NoError(t, err)
	assert.Len(t, txns, 1)
	assert.InDelta(t, 450, sum, 0.001)
}

func TestMatch_EmptyFile(t *testing.T) {
	matcher := NewStatementMatcher()
	_, _, err := matcher.Match([]string{""})
	assert.ErrorIs(t, err, etsy.ErrEmptyFile)
}

func TestMatch_NoMatches(t *testing.T) {
	csv := "Buchungstag,Verwendungszweck,Betrag\n" +
		"03.01.2026,Miete Januar,\"-900,00\"\n"
	matcher := NewStatementMatcher()
	txns, sum, err := matcher.Match([]string{csv})
	require.NoError(t, err)
	assert.Empty(t, txns)
	assert.Zero(t, sum)
}

func TestScanStatementText(t *testing.T) {
	text := "Zusammenfassung Januar\n" +
		"Umsatz 1.000,00 €\n" +
		"Gebühren und Steuern 100,00 €\n" +
		"Auszahlung 900,00 €\n"

	figures := &Figures{}
	found := scanStatementText(text, figures)

	require.True(t, found)
	assert.InDelta(t, 1000, figures.GrossInvoices, 0.001)
	assert.InDelta(t, -100, figures.TotalFees, 0.001) // signed convention
	assert.InDelta(t, 900, figures.PayoutAmount, 0.001)
}

func TestScanStatementText_EnglishLabels(t *testing.T) {
	text := "Gross sales 1,000.00\nFees & taxes 100.00\nDeposit 900.00\n"

	figures := &Figures{}
	found := scanStatementText(text, figures)

	require.True(t, found)
	assert.InDelta(t, 1000, figures.GrossInvoices, 0.001)
	assert.InDelta(t, -100, figures.TotalFees, 0.001)
	assert.InDelta(t, 900, figures.PayoutAmount, 0.001)
}

func TestScanStatementText_NothingFound(t *testing.T) {
	figures := &Figures{}
	assert.False(t, scanStatementText("nur Text ohne Zahlen", figures))
}
