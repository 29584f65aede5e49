package cmd

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/faktorino/faktorino/internal/config"
	"github.com/faktorino/faktorino/internal/credits"
	"github.com/faktorino/faktorino/internal/logger"
	"github.com/faktorino/faktorino/internal/payout"
	"github.com/faktorino/faktorino/internal/server"
	"github.com/faktorino/faktorino/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the faktorino HTTP API",
	Long: `Run the HTTP API the web frontend talks to: CSV upload, invoice
CRUD, payout validation, credit balance, and the seller profile.

Required environment variables:
  JWT_SECRET - shared secret for bearer token verification

Optional:
  DATABASE_URL        - Postgres DSN (default: local SQLite file)
  OPENAI_API_KEY      - enables the discrepancy advisor
  GOOGLE_CLOUD_PROJECT, PAYOUT_PROCESSOR_ID - enable statement PDF extraction`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", "", "Listen address (overrides LISTEN_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	listenAddr := cfg.ListenAddr
	if flagAddr, _ := cmd.Flags().GetString("listen"); flagAddr != "" {
		listenAddr = flagAddr
	}

	db, err := store.Open(cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	gormStore := store.NewGormStore(db)

	creditService, err := credits.NewGormService(db, cfg.FreeCredits)
	if err != nil {
		return fmt.Errorf("initializing credits: %w", err)
	}

	opts := server.Options{
		Invoices:  gormStore,
		Profiles:  gormStore,
		Credits:   creditService,
		Sequence:  store.NewDBSequence(db),
		JWTSecret: cfg.JWTSecret,
	}

	if cfg.OpenAIAPIKey != "" {
		opts.Advisor = payout.NewAdvisor(openai.NewClient(cfg.OpenAIAPIKey))
		log.Info().Msg("Discrepancy advisor enabled")
	}
	if cfg.GoogleCloudProject != "" && cfg.PayoutProcessorID != "" {
		extractor, err := payout.NewStatementExtractor(ctx, payout.ExtractorConfig{
			ProjectID:   cfg.GoogleCloudProject,
			Location:    cfg.GoogleCloudLocation,
			ProcessorID: cfg.PayoutProcessorID,
		})
		if err != nil {
			return fmt.Errorf("initializing statement extractor: %w", err)
		}
		defer extractor.Close()
		opts.Extractor = extractor
		log.Info().Msg("Statement PDF extraction enabled")
	}

	app := server.New(opts).App()

	log.Info().Str("listen", listenAddr).Msg("Starting HTTP API")
	return app.Listen(listenAddr)
}
