package models

// CountryClassification is the three-way destination classification used
// on German invoices.
type CountryClassification string

const (
	ClassificationDomestic   CountryClassification = "Deutschland"
	ClassificationEU         CountryClassification = "EU-Ausland"
	ClassificationThirdState CountryClassification = "Drittland"
)

// LineItem is a single billable position on an invoice.
//
// NetAmount is the per-unit net price; VATAmount and GrossAmount are
// totals for the whole line. GrossAmount = NetAmount*Quantity + VATAmount
// within one cent.
type LineItem struct {
	Quantity    int     `json:"quantity"`
	Name        string  `json:"name"`
	NetAmount   float64 `json:"net_amount"`
	VATRate     float64 `json:"vat_rate"` // percent, 0-100
	VATAmount   float64 `json:"vat_amount"`
	GrossAmount float64 `json:"gross_amount"`
}

// Invoice is one derived invoice for a single marketplace order.
//
// Amounts are EUR. Dates use the German display format DD.MM.YYYY; the
// store boundary converts to ISO (see internal/store).
type Invoice struct {
	ID            string `json:"id"`
	InvoiceNumber string `json:"invoice_number"`
	OrderDate     string `json:"order_date"`
	ServiceDate   string `json:"service_date"`

	BuyerName      string                `json:"buyer_name"`
	BuyerAddress   string                `json:"buyer_address"` // newline-joined, country last
	Country        string                `json:"country"`
	Classification CountryClassification `json:"country_classification"`

	Items []LineItem `json:"items"`

	NetTotal   float64 `json:"net_total"`
	VATTotal   float64 `json:"vat_total"`
	GrossTotal float64 `json:"gross_total"`

	TaxNote string `json:"tax_note"`
}

// Recompute derives the line totals from the per-unit net, quantity,
// and rate, discarding whatever VAT and gross amounts the line carried.
func (item *LineItem) Recompute() {
	net := item.NetAmount * float64(item.Quantity)
	item.VATAmount = net * item.VATRate / 100
	item.GrossAmount = net + item.VATAmount
}

// RecomputeTotals replaces the invoice totals with the sums over the
// current item list. This is the authoritative reconciliation pass: net
// is summed as per-unit net times quantity, VAT and gross as line totals.
func (inv *Invoice) RecomputeTotals() {
	var net, vat, gross float64
	for _, item := range inv.Items {
		net += item.NetAmount * float64(item.Quantity)
		vat += item.VATAmount
		gross += item.GrossAmount
	}
	inv.NetTotal = net
	inv.VATTotal = vat
	inv.GrossTotal = gross
}

// Summary describes one aggregation run over an uploaded CSV batch.
type Summary struct {
	InvoiceCount int     `json:"invoice_count"`
	RowCount     int     `json:"row_count"`
	SkippedRows  int     `json:"skipped_rows"`
	NetTotal     float64 `json:"net_total"`
	VATTotal     float64 `json:"vat_total"`
	GrossTotal   float64 `json:"gross_total"`

	// Invoices per destination classification.
	ByClassification map[CountryClassification]int `json:"by_classification"`
}
