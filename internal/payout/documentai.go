package payout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/faktorino/faktorino/internal/etsy"
	"github.com/faktorino/faktorino/internal/logger"
)

// Extraction errors.
var (
	ErrInvalidPDF           = errors.New("invalid or corrupted PDF document")
	ErrExtractionFailed     = errors.New("payout statement extraction failed")
	ErrMissingCredentials   = errors.New("missing Google Cloud credentials")
	ErrInvalidConfiguration = errors.New("invalid Document AI configuration")
	ErrFiguresNotFound      = errors.New("no payout figures found in statement")
)

// MaxStatementSizeBytes is the Document AI synchronous processing limit.
const MaxStatementSizeBytes = 20 * 1024 * 1024

// Figures are the three numbers a payout validation needs, pulled from
// an Etsy payment statement PDF. TotalFees follows the signed-fee
// convention (negative for deductions).
type Figures struct {
	GrossInvoices float64
	TotalFees     float64
	PayoutAmount  float64
}

// ExtractorConfig holds Document AI settings for statement extraction.
type ExtractorConfig struct {
	ProjectID   string
	Location    string
	ProcessorID string
	Timeout     time.Duration
}

// StatementExtractor pulls payout figures from PDF payment statements
// using Google Document AI.
type StatementExtractor struct {
	client *documentai.DocumentProcessorClient
	config ExtractorConfig
	log    zerolog.Logger
}

// NewStatementExtractor creates an extractor with credentials from the
// environment (GOOGLE_CREDENTIALS or GOOGLE_APPLICATION_CREDENTIALS).
func NewStatementExtractor(ctx context.Context, config ExtractorConfig) (*StatementExtractor, error) {
	const op = "NewStatementExtractor"

	if config.ProjectID == "" {
		return nil, fmt.Errorf("%s: %w: project ID is required", op, ErrInvalidConfiguration)
	}
	if config.Location == "" {
		config.Location = "eu"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	var clientOptions []option.ClientOption
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(credFile))
	} else {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingCredentials)
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create Document AI client: %w", op, err)
	}

	return &StatementExtractor{
		client: client,
		config: config,
		log:    logger.WithComponent("statement-extractor"),
	}, nil
}

// Close releases the underlying client.
func (e *StatementExtractor) Close() error {
	return e.client.Close()
}

// ExtractFigures processes a payment statement PDF and returns the
// payout figures. Figures missing from the document stay zero; when
// none of the three can be found, ErrFiguresNotFound is returned.
func (e *StatementExtractor) ExtractFigures(ctx context.Context, pdfData io.Reader) (*Figures, error) {
	const op = "ExtractFigures"

	pdfBytes, err := io.ReadAll(pdfData)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read PDF data: %w", op, err)
	}
	if len(pdfBytes) > MaxStatementSizeBytes {
		return nil, fmt.Errorf("%s: %w: %d bytes", op, ErrInvalidPDF, len(pdfBytes))
	}
	if len(pdfBytes) < 4 || string(pdfBytes[:4]) != "%PDF" {
		return nil, fmt.Errorf("%s: %w: missing PDF header", op, ErrInvalidPDF)
	}

	processCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: e.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  pdfBytes,
				MimeType: "application/pdf",
			},
		},
	}

	resp, err := e.client.ProcessDocument(processCtx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrExtractionFailed, err)
	}
	if resp.Document == nil {
		return nil, fmt.Errorf("%s: %w: no document in response", op, ErrExtractionFailed)
	}

	return e.extractFigures(resp.Document)
}

func (e *StatementExtractor) processorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		e.config.ProjectID, e.config.Location, e.config.ProcessorID)
}

// extractFigures reads the custom processor's entities. For generic
// processors without entities it falls back to scanning labeled lines
// in the document text.
func (e *StatementExtractor) extractFigures(doc *documentaipb.Document) (*Figures, error) {
	const op = "extractFigures"

	figures := &Figures{}
	found := false

	for _, entity := range doc.Entities {
		value := etsy.ParseAmount(strings.TrimSpace(entity.MentionText))

		e.log.Debug().
			Str("entity_type", entity.Type).
			Str("value", entity.MentionText).
			Float32("confidence", entity.Confidence).
			Msg("Processing Document AI entity")

		switch entity.Type {
		case "gross_sales", "order_total":
			figures.GrossInvoices = value
			found = true
		case "total_fees", "fees_and_taxes":
			// Statements print fees as positive deductions.
			figures.TotalFees = -abs(value)
			found = true
		case "payout_amount", "deposit_amount":
			figures.PayoutAmount = value
			found = true
		}
	}

	if !found {
		found = scanStatementText(doc.Text, figures)
	}
	if !found {
		return nil, fmt.Errorf("%s: %w", op, ErrFiguresNotFound)
	}
	return figures, nil
}

// statement text labels as printed on Etsy payment statements.
var textLabels = []struct {
	label  string
	assign func(*Figures, float64)
}{
	{"umsatz", func(f *Figures, v float64) { f.GrossInvoices = v }},
	{"gross sales", func(f *Figures, v float64) { f.GrossInvoices = v }},
	{"gebühren und steuern", func(f *Figures, v float64) { f.TotalFees = -abs(v) }},
	{"fees & taxes", func(f *Figures, v float64) { f.TotalFees = -abs(v) }},
	{"auszahlung", func(f *Figures, v float64) { f.PayoutAmount = v }},
	{"deposit", func(f *Figures, v float64) { f.PayoutAmount = v }},
}

func scanStatementText(text string, figures *Figures) bool {
	found := false
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		for _, tl := range textLabels {
			if !strings.Contains(lower, tl.label) {
				continue
			}
			if amount := lastAmountIn(line); amount != 0 {
				tl.assign(figures, amount)
				found = true
			}
			break
		}
	}
	return found
}

// lastAmountIn parses the trailing numeric token of a statement line.
func lastAmountIn(line string) float64 {
	fields := strings.Fields(strings.NewReplacer("€", "", "EUR", "").Replace(line))
	for i := len(fields) - 1; i >= 0; i-- {
		if amount := etsy.ParseAmount(fields[i]); amount != 0 {
			return amount
		}
	}
	return 0
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
