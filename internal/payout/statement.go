package payout

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/faktorino/faktorino/internal/etsy"
	"github.com/faktorino/faktorino/internal/logger"
	"github.com/faktorino/faktorino/pkg/models"
)

// marketplaceKeyword filters bank statement rows down to marketplace
// payouts. Matched case-insensitively against the description.
const marketplaceKeyword = "etsy"

// Bank statement column synonyms (German online banking exports and
// common English variants).
var (
	colBankDate        = []string{"buchungstag", "datum", "date", "valutadatum", "booking date"}
	colBankDescription = []string{"verwendungszweck", "beschreibung", "buchungstext", "description", "empfänger"}
	colBankAmount      = []string{"betrag", "amount", "umsatz", "betrag (eur)"}
)

var bankDateFormats = []string{
	"02.01.2006",
	"2.1.2006",
	"02.01.06",
	"2006-01-02",
	"01/02/2006",
}

// StatementMatcher extracts marketplace payout transactions from bank
// statement CSVs.
type StatementMatcher struct {
	log zerolog.Logger
}

// NewStatementMatcher creates a matcher.
func NewStatementMatcher() *StatementMatcher {
	return &StatementMatcher{log: logger.WithComponent("statement-matcher")}
}

// Match parses the given bank statement files (concatenated with
// duplicate-header stripping) and returns the transactions whose
// description contains the marketplace keyword, plus their signed sum.
// Rows without a parsable amount or description are skipped.
func (m *StatementMatcher) Match(files []string) ([]models.BankTransaction, float64, error) {
	rows, err := etsy.ReadFiles(files)
	if err != nil {
		return nil, 0, err
	}

	var txns []models.BankTransaction
	var sum float64
	for _, row := range rows {
		description, ok := row.ResolveField(colBankDescription...)
		if !ok || !strings.Contains(strings.ToLower(description), marketplaceKeyword) {
			continue
		}

		amountStr, ok := row.ResolveField(colBankAmount...)
		if !ok {
			m.log.Warn().Str("description", description).Msg("Matched row without amount, skipping")
			continue
		}
		amount := etsy.ParseAmount(amountStr)

		txn := models.BankTransaction{
			Description: description,
			Amount:      amount,
		}
		if dateStr, ok := row.ResolveField(colBankDate...); ok {
			txn.Date = parseBankDate(dateStr)
		}

		txns = append(txns, txn)
		sum += amount
	}

	m.log.Info().
		Int("rows", len(rows)).
		Int("matched", len(txns)).
		Float64("sum", sum).
		Msg("Bank statement matched")

	return txns, sum, nil
}

func parseBankDate(value string) time.Time {
	cleaned := strings.TrimSpace(value)
	for _, format := range bankDateFormats {
		if date, err := time.Parse(format, cleaned); err == nil {
			return date
		}
	}
	return time.Time{}
}
