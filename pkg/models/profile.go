package models

// SellerProfile is the sender block printed on generated invoices.
//
// Kleinunternehmer marks §19 UStG small-business status. It is carried
// as profile data for the invoice footer; the VAT classification table
// itself is not affected by it.
type SellerProfile struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Street    string `json:"street"`
	City      string `json:"city"`
	ZipCode   string `json:"zip_code"`
	Country   string `json:"country"`
	TaxNumber string `json:"tax_number"` // Steuernummer
	VATID     string `json:"vat_id"`     // USt-IdNr.

	Kleinunternehmer bool `json:"kleinunternehmer"`
}
