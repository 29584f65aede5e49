// Package invoice derives German invoices from marketplace CSV rows.
//
// One aggregation run groups the raw export rows by order id, builds
// per-order line items with VAT back-calculated from gross amounts, and
// assembles the result into numbered invoice objects plus a run summary.
// Row-level defects are skipped, never fatal; the only batch-level
// failure is a run that produces no invoices at all.
package invoice

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/faktorino/faktorino/internal/etsy"
	"github.com/faktorino/faktorino/internal/logger"
	"github.com/faktorino/faktorino/internal/tax"
	"github.com/faktorino/faktorino/pkg/models"
)

// Column synonyms across Etsy export locales and versions. Any entry in
// a list is equally acceptable; see etsy.ResolveField for match order.
var (
	colOrderID          = []string{"order id", "bestellnummer", "sale id"}
	colCountry          = []string{"ship country", "versandland", "country", "land", "lieferland"}
	colItemName         = []string{"item name", "artikelname", "title", "titel"}
	colItemTotal        = []string{"item total", "artikelsumme", "artikelgesamtpreis", "item total price"}
	colDiscount         = []string{"discount amount", "rabattbetrag", "discount"}
	colShippingDiscount = []string{"shipping discount", "versandrabatt"}
	colShipping         = []string{"shipping", "versandkosten", "shipping costs", "versand"}
	colSKU              = []string{"sku"}
	colQuantity         = []string{"anzahl", "items", "quantity"}
	colOrderDate        = []string{"sale date", "verkaufsdatum", "order date", "bestelldatum", "date", "datum"}
	colBuyerName        = []string{"ship name", "full name", "buyer", "käufer", "name des käufers"}
	colStreet1          = []string{"street 1", "straße 1", "ship address1", "address 1", "adresse 1"}
	colStreet2          = []string{"street 2", "straße 2", "ship address2", "address 2", "adresse 2"}
	colCity             = []string{"ship city", "city", "stadt", "ort"}
	colState            = []string{"ship state", "state", "bundesland"}
	colZip              = []string{"ship zipcode", "zipcode", "zip", "postleitzahl", "plz"}
)

// DisplayDateFormat is the German date format used on invoices.
const DisplayDateFormat = "02.01.2006"

// shippingLineName is the synthesized line for order-level shipping.
const shippingLineName = "Versandkosten"

// fallbackBuyerName is used when no buyer name column resolves.
const fallbackBuyerName = "Unbekannter Käufer"

// Result is the outcome of one aggregation run.
type Result struct {
	Invoices []models.Invoice
	Summary  models.Summary
}

// Aggregator turns raw export rows into invoices. The number sequence
// is injected so callers decide whether numbering is run-local or
// globally persisted.
type Aggregator struct {
	seq NumberSequence
	now func() time.Time
	log zerolog.Logger
}

// NewAggregator creates an aggregator using the given number sequence.
func NewAggregator(seq NumberSequence) *Aggregator {
	return &Aggregator{
		seq: seq,
		now: time.Now,
		log: logger.WithComponent("aggregator"),
	}
}

// Aggregate groups rows by order id and derives one invoice per order.
// Rows without an order id and defective lines are skipped with a
// warning. Returns ErrNoValidOrders when no order survives.
func (a *Aggregator) Aggregate(rows []*etsy.RawRow) (*Result, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	summary := models.Summary{
		RowCount:         len(rows),
		ByClassification: make(map[models.CountryClassification]int),
	}

	// Group rows by order id, preserving first-seen order.
	groups := make(map[string][]*etsy.RawRow)
	var orderIDs []string
	for _, row := range rows {
		orderID, ok := row.ResolveField(colOrderID...)
		if !ok {
			summary.SkippedRows++
			a.log.Warn().Msg("Row without order id, skipping")
			continue
		}
		if _, seen := groups[orderID]; !seen {
			orderIDs = append(orderIDs, orderID)
		}
		groups[orderID] = append(groups[orderID], row)
	}

	var invoices []models.Invoice
	for _, orderID := range orderIDs {
		inv, ok := a.buildInvoice(orderID, groups[orderID], &summary)
		if !ok {
			continue
		}
		invoices = append(invoices, inv)
	}

	if len(invoices) == 0 {
		return nil, ErrNoValidOrders
	}

	for _, inv := range invoices {
		summary.NetTotal += inv.NetTotal
		summary.VATTotal += inv.VATTotal
		summary.GrossTotal += inv.GrossTotal
		summary.ByClassification[inv.Classification]++
	}
	summary.InvoiceCount = len(invoices)

	a.log.Info().
		Int("rows", summary.RowCount).
		Int("invoices", summary.InvoiceCount).
		Int("skipped_rows", summary.SkippedRows).
		Msg("Aggregation completed")

	return &Result{Invoices: invoices, Summary: summary}, nil
}

// buildInvoice derives one invoice from the rows of a single order.
// Returns ok=false for degenerate orders (no surviving line items).
func (a *Aggregator) buildInvoice(orderID string, rows []*etsy.RawRow, summary *models.Summary) (models.Invoice, bool) {
	first := rows[0]
	country, _ := first.ResolveField(colCountry...)

	var items []models.LineItem
	var shippingCost float64
	anySKU := false

	for _, row := range rows {
		if sku, ok := row.ResolveField(colSKU...); ok && sku != "" {
			anySKU = true
		}
		// Shipping is an order-level amount that the export repeats on
		// every item row; the first positive value stands for the order.
		if shippingCost == 0 {
			if shipping, ok := row.ResolveField(colShipping...); ok {
				shippingCost = etsy.ParseAmount(shipping)
			}
		}

		item, ok := a.buildLineItem(row, country)
		if !ok {
			summary.SkippedRows++
			continue
		}
		items = append(items, item)
	}

	// Order-level shipping becomes its own line, always physical.
	if shippingCost > 0 {
		items = append(items, makeLineItem(shippingLineName, shippingCost, 1, tax.Classify(country, true)))
	}

	if len(items) == 0 {
		a.log.Warn().Str("order_id", orderID).Msg("Order without billable lines, skipping")
		return models.Invoice{}, false
	}

	orderDate := a.resolveOrderDate(first)
	seq, err := a.seq.Next(a.now().Year())
	if err != nil {
		a.log.Error().Err(err).Str("order_id", orderID).Msg("Number sequence failed, skipping order")
		return models.Invoice{}, false
	}

	// The printed note treats mixed digital/physical orders as physical.
	note := tax.Classify(country, anySKU)

	inv := models.Invoice{
		InvoiceNumber:  FormatNumber(a.now().Year(), seq),
		OrderDate:      orderDate,
		ServiceDate:    orderDate,
		BuyerName:      a.resolveBuyerName(first),
		BuyerAddress:   formatAddress(first, country),
		Country:        country,
		Classification: tax.ClassifyCountry(country),
		Items:          items,
		TaxNote:        note.TaxNote,
	}
	inv.RecomputeTotals()
	return inv, true
}

// buildLineItem derives one invoice line from one raw row. Lines whose
// gross after discounts is not positive carry no charge (refunded or
// fully discounted) and are dropped.
func (a *Aggregator) buildLineItem(row *etsy.RawRow, country string) (models.LineItem, bool) {
	name, ok := row.ResolveField(colItemName...)
	if !ok {
		return models.LineItem{}, false
	}
	totalStr, ok := row.ResolveField(colItemTotal...)
	if !ok {
		return models.LineItem{}, false
	}

	gross := etsy.ParseAmount(totalStr)
	if discount, ok := row.ResolveField(colDiscount...); ok {
		gross -= etsy.ParseAmount(discount)
	}
	if shippingDiscount, ok := row.ResolveField(colShippingDiscount...); ok {
		gross -= etsy.ParseAmount(shippingDiscount)
	}
	if gross <= 0 {
		return models.LineItem{}, false
	}

	physical := false
	if sku, ok := row.ResolveField(colSKU...); ok && sku != "" {
		physical = true
	}

	quantity := 1
	if qty, ok := row.ResolveField(colQuantity...); ok {
		quantity = etsy.ParseQuantity(qty)
	}

	return makeLineItem(name, gross, quantity, tax.Classify(country, physical)), true
}

// makeLineItem back-calculates net and VAT from a gross line total and
// stores the per-unit net on the item.
func makeLineItem(name string, gross float64, quantity int, cls tax.Result) models.LineItem {
	net := gross
	if cls.VATRate > 0 {
		net = gross / (1 + cls.VATRate/100)
	}
	return models.LineItem{
		Quantity:    quantity,
		Name:        name,
		NetAmount:   net / float64(quantity),
		VATRate:     cls.VATRate,
		VATAmount:   gross - net,
		GrossAmount: gross,
	}
}

// orderDateFormats are tried in order. Etsy writes US-style dates in
// English exports and dotted dates in German ones.
var orderDateFormats = []string{
	"02.01.2006",
	"2.1.2006",
	"01/02/06",
	"01/02/2006",
	"2006-01-02",
}

func (a *Aggregator) resolveOrderDate(row *etsy.RawRow) string {
	raw, ok := row.ResolveField(colOrderDate...)
	if ok {
		for _, format := range orderDateFormats {
			if date, err := time.Parse(format, raw); err == nil {
				return date.Format(DisplayDateFormat)
			}
		}
		a.log.Warn().Str("value", raw).Msg("Unparseable order date, using today")
	}
	return a.now().Format(DisplayDateFormat)
}

func (a *Aggregator) resolveBuyerName(row *etsy.RawRow) string {
	if name, ok := row.ResolveField(colBuyerName...); ok {
		return name
	}
	return fallbackBuyerName
}

// formatAddress joins the available address pieces with newlines.
// Missing pieces are omitted, the state only appears when it differs
// from the city, and the country is always the last line.
func formatAddress(row *etsy.RawRow, country string) string {
	var lines []string

	if street1, ok := row.ResolveField(colStreet1...); ok {
		lines = append(lines, street1)
	}
	if street2, ok := row.ResolveField(colStreet2...); ok {
		lines = append(lines, street2)
	}

	city, _ := row.ResolveField(colCity...)
	zip, _ := row.ResolveField(colZip...)
	if cityLine := strings.TrimSpace(zip + " " + city); cityLine != "" {
		lines = append(lines, cityLine)
	}

	if state, ok := row.ResolveField(colState...); ok && !strings.EqualFold(state, city) {
		lines = append(lines, state)
	}

	if country = strings.TrimSpace(country); country != "" {
		lines = append(lines, country)
	}

	return strings.Join(lines, "\n")
}
