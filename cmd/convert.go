package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/faktorino/faktorino/internal/etsy"
	"github.com/faktorino/faktorino/internal/invoice"
	"github.com/faktorino/faktorino/internal/logger"
)

var convertCmd = &cobra.Command{
	Use:   "convert <export.csv> [more.csv...]",
	Short: "Convert Etsy order exports into invoices",
	Long: `Convert one or more Etsy order CSV exports into invoice objects.

Multiple files are concatenated; repeated header lines in subsequent
files are stripped automatically. Invoice numbers are run-local
(RE-<year>-0001 upwards); persisted numbering is handled by the server.`,
	Example: `  # Single export to stdout
  faktorino convert EtsySoldOrders2026.csv

  # Two exports merged, result written to a file
  faktorino convert january.csv february.csv --output invoices.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringP("output", "o", "", "Write invoices as JSON to this file (default: stdout)")
	convertCmd.Flags().Bool("summary-only", false, "Print only the run summary")
}

func runConvert(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("convert")

	outputPath, _ := cmd.Flags().GetString("output")
	summaryOnly, _ := cmd.Flags().GetBool("summary-only")

	files := make([]string, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		files = append(files, string(data))
	}

	rows, err := etsy.ReadFiles(files)
	if err != nil {
		return err
	}

	log.Info().Int("files", len(files)).Int("rows", len(rows)).Msg("Starting conversion")

	aggregator := invoice.NewAggregator(invoice.NewRunSequence())
	result, err := aggregator.Aggregate(rows)
	if err != nil {
		return err
	}

	fmt.Printf("Rechnungen: %d  Netto: %.2f  USt: %.2f  Brutto: %.2f\n",
		result.Summary.InvoiceCount,
		result.Summary.NetTotal,
		result.Summary.VATTotal,
		result.Summary.GrossTotal)
	for classification, count := range result.Summary.ByClassification {
		fmt.Printf("  %s: %d\n", classification, count)
	}
	if result.Summary.SkippedRows > 0 {
		fmt.Printf("Übersprungene Zeilen: %d\n", result.Summary.SkippedRows)
	}

	if summaryOnly {
		return nil
	}

	encoded, err := json.MarshalIndent(result.Invoices, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding invoices: %w", err)
	}

	if outputPath == "" {
		fmt.Println(string(encoded))
		return nil
	}
	if err := os.WriteFile(outputPath, encoded, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", outputPath, err)
	}

	log.Info().Str("output", outputPath).Int("invoices", result.Summary.InvoiceCount).Msg("Conversion completed")
	return nil
}
