// Package server exposes the invoice derivation engine over HTTP:
// CSV upload, invoice CRUD, payout validation, and the credit balance.
// Authentication pages and payment providers live elsewhere; requests
// arrive with a JWT bearer token that supplies the user id.
package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/faktorino/faktorino/internal/credits"
	"github.com/faktorino/faktorino/internal/invoice"
	"github.com/faktorino/faktorino/internal/logger"
	"github.com/faktorino/faktorino/internal/payout"
	"github.com/faktorino/faktorino/internal/store"
)

// Server wires the HTTP API to its collaborators. Advisor and
// extractor are optional; when nil the corresponding enrichment is
// skipped.
type Server struct {
	invoices  store.InvoiceStore
	profiles  store.ProfileStore
	credits   credits.Service
	sequence  invoice.NumberSequence
	matcher   *payout.StatementMatcher
	advisor   *payout.Advisor
	extractor *payout.StatementExtractor

	jwtSecret string
	log       zerolog.Logger
}

// Options carries the collaborator set for New.
type Options struct {
	Invoices  store.InvoiceStore
	Profiles  store.ProfileStore
	Credits   credits.Service
	Sequence  invoice.NumberSequence
	Advisor   *payout.Advisor
	Extractor *payout.StatementExtractor
	JWTSecret string
}

// New creates the server.
func New(opts Options) *Server {
	return &Server{
		invoices:  opts.Invoices,
		profiles:  opts.Profiles,
		credits:   opts.Credits,
		sequence:  opts.Sequence,
		matcher:   payout.NewStatementMatcher(),
		advisor:   opts.Advisor,
		extractor: opts.Extractor,
		jwtSecret: opts.JWTSecret,
		log:       logger.WithComponent("server"),
	}
}

// App builds the fiber application with all routes registered.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "faktorino",
		BodyLimit: 32 * 1024 * 1024, // multi-file CSV uploads
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", s.jwtMiddleware)

	api.Post("/invoices/upload", s.handleUpload)
	api.Get("/invoices", s.handleList)
	api.Put("/invoices/:id", s.handleUpdate)
	api.Delete("/invoices/:id", s.handleDelete)
	api.Delete("/invoices", s.handleDeleteAll)

	api.Post("/payout/validate", s.handlePayoutValidate)

	api.Get("/credits", s.handleCredits)

	api.Get("/profile", s.handleGetProfile)
	api.Put("/profile", s.handleSaveProfile)

	return app
}
