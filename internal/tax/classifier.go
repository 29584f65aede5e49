// Package tax decides VAT rate, legal tax note, and destination
// classification for invoices issued by a German seller.
package tax

import (
	"strings"

	"github.com/faktorino/faktorino/pkg/models"
)

// StandardRate is the German standard VAT rate in percent.
const StandardRate = 19.0

// euMemberStates holds the two-letter ISO codes of the 27 EU member
// states. Unrecognized or empty codes are treated as non-EU.
var euMemberStates = map[string]struct{}{
	"AT": {}, "BE": {}, "BG": {}, "CY": {}, "CZ": {}, "DE": {}, "DK": {},
	"EE": {}, "ES": {}, "FI": {}, "FR": {}, "GR": {}, "HR": {}, "HU": {},
	"IE": {}, "IT": {}, "LT": {}, "LU": {}, "LV": {}, "MT": {}, "NL": {},
	"PL": {}, "PT": {}, "RO": {}, "SE": {}, "SI": {}, "SK": {},
}

// Result is the classification for one line or one invoice.
type Result struct {
	VATRate float64
	TaxNote string
}

// IsEU reports whether the country code belongs to an EU member state.
func IsEU(countryCode string) bool {
	_, ok := euMemberStates[strings.ToUpper(strings.TrimSpace(countryCode))]
	return ok
}

// Classify applies the fixed decision table for a German seller:
//
//	physical + EU destination (incl. Germany) → 19%, VAT shown
//	physical + non-EU                         → 0%, export exemption
//	digital  + EU                             → 0%, platform remits (OSS)
//	digital  + non-EU                         → 0%, out of scope
//
// Shipping lines are always classified as physical by the caller.
func Classify(countryCode string, physical bool) Result {
	eu := IsEU(countryCode)

	switch {
	case physical && eu:
		return Result{
			VATRate: StandardRate,
			TaxNote: "Im Betrag sind 19 % Umsatzsteuer enthalten.",
		}
	case physical && !eu:
		return Result{
			VATRate: 0,
			TaxNote: "Steuerfreie Ausfuhrlieferung (§ 6 UStG).",
		}
	case eu:
		return Result{
			VATRate: 0,
			TaxNote: "Umsatzsteuer wird über das One-Stop-Shop-Verfahren durch die Plattform abgeführt.",
		}
	default:
		return Result{
			VATRate: 0,
			TaxNote: "Nicht steuerbare Leistung (Leistungsort außerhalb der EU).",
		}
	}
}

// ClassifyCountry maps a destination to the three-way classification
// printed on the invoice.
func ClassifyCountry(countryCode string) models.CountryClassification {
	code := strings.ToUpper(strings.TrimSpace(countryCode))
	switch {
	case code == "DE":
		return models.ClassificationDomestic
	case IsEU(code):
		return models.ClassificationEU
	default:
		return models.ClassificationThirdState
	}
}
