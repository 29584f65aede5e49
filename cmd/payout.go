package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/faktorino/faktorino/internal/config"
	"github.com/faktorino/faktorino/internal/logger"
	"github.com/faktorino/faktorino/internal/payout"
)

var payoutCmd = &cobra.Command{
	Use:   "payout <bank-statement.csv> [more.csv...]",
	Short: "Validate an Etsy payout against bank statements",
	Long: `Cross-check the expected Etsy payout against the payout that
actually arrived on the bank account.

The bank statement CSVs are scanned for transactions whose description
contains "etsy"; their signed sum is the actual payout. The gross
invoice total and the platform fees come from flags, or from an Etsy
payment statement PDF when Document AI is configured.

Fees use the signed convention: pass deductions as a negative value.`,
	Example: `  # Figures supplied directly
  faktorino payout bank.csv --gross 1000 --fees=-100

  # Figures extracted from the payment statement PDF
  faktorino payout bank.csv --statement etsy_statement.pdf

  # Enriched explanation via OpenAI
  faktorino payout bank.csv --gross 1000 --fees=-100 --explain`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPayout,
}

func init() {
	rootCmd.AddCommand(payoutCmd)

	payoutCmd.Flags().Float64("gross", 0, "Gross invoice total (EUR)")
	payoutCmd.Flags().Float64("fees", 0, "Platform fees, signed (negative for deductions)")
	payoutCmd.Flags().String("statement", "", "Etsy payment statement PDF (requires Document AI configuration)")
	payoutCmd.Flags().Bool("explain", false, "Ask OpenAI for a discrepancy assessment")
}

func runPayout(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("payout")
	ctx := context.Background()

	gross, _ := cmd.Flags().GetFloat64("gross")
	fees, _ := cmd.Flags().GetFloat64("fees")
	statementPath, _ := cmd.Flags().GetString("statement")
	explain, _ := cmd.Flags().GetBool("explain")

	files := make([]string, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		files = append(files, string(data))
	}

	matcher := payout.NewStatementMatcher()
	txns, actualPayout, err := matcher.Match(files)
	if err != nil {
		return err
	}
	if len(txns) == 0 {
		return fmt.Errorf("keine Etsy-Transaktionen im Kontoauszug gefunden")
	}

	if statementPath != "" {
		figures, err := extractStatementFigures(ctx, statementPath)
		if err != nil {
			return err
		}
		gross = figures.GrossInvoices
		fees = figures.TotalFees
		log.Info().
			Float64("gross", gross).
			Float64("fees", fees).
			Msg("Figures extracted from payment statement")
	}

	result := payout.Reconcile(gross, fees, actualPayout)

	if explain && result.Discrepancy {
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for --explain")
		}
		advisor := payout.NewAdvisor(openai.NewClient(apiKey))
		result.Explanation = advisor.Explain(ctx, result, txns)
	}

	fmt.Printf("Bruttoumsatz:          %10.2f EUR\n", result.GrossInvoices)
	fmt.Printf("Gebühren:              %10.2f EUR\n", result.TotalFees)
	fmt.Printf("Erwartete Auszahlung:  %10.2f EUR\n", result.ExpectedPayout)
	fmt.Printf("Tatsächliche Auszahlung: %8.2f EUR (%d Transaktionen)\n", result.PayoutAmount, len(txns))
	fmt.Printf("Differenz:             %10.2f EUR\n", result.Difference)
	fmt.Println(result.Explanation)

	if result.Discrepancy {
		os.Exit(1)
	}
	return nil
}

func extractStatementFigures(ctx context.Context, path string) (*payout.Figures, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.GoogleCloudProject == "" || cfg.PayoutProcessorID == "" {
		return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT and PAYOUT_PROCESSOR_ID are required for --statement")
	}

	extractor, err := payout.NewStatementExtractor(ctx, payout.ExtractorConfig{
		ProjectID:   cfg.GoogleCloudProject,
		Location:    cfg.GoogleCloudLocation,
		ProcessorID: cfg.PayoutProcessorID,
	})
	if err != nil {
		return nil, err
	}
	defer extractor.Close()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	return extractor.ExtractFigures(ctx, file)
}
