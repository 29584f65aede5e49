package server

import (
	"errors"
	"io"
	"mime/multipart"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/faktorino/faktorino/internal/credits"
	"github.com/faktorino/faktorino/internal/etsy"
	"github.com/faktorino/faktorino/internal/invoice"
	"github.com/faktorino/faktorino/internal/payout"
	"github.com/faktorino/faktorino/internal/store"
	"github.com/faktorino/faktorino/pkg/models"
)

// handleUpload derives invoices from uploaded order CSVs, meters the
// credits, and persists the batch. Derivation errors, credit refusals,
// and persistence failures are reported distinctly so the client always
// learns how many invoices were derived versus persisted.
func (s *Server) handleUpload(c *fiber.Ctx) error {
	user := userID(c)
	log := s.log.With().Str("user_id", user).Logger()

	files, err := formFiles(c, "files")
	if err != nil || len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Mindestens eine CSV-Datei wird benötigt"})
	}

	rows, err := etsy.ReadFiles(files)
	if errors.Is(err, etsy.ErrEmptyFile) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "CSV-Datei konnte nicht gelesen werden. Bitte das unveränderte Etsy-Export-Format hochladen.",
		})
	}

	aggregator := invoice.NewAggregator(s.sequence)
	result, err := aggregator.Aggregate(rows)
	if errors.Is(err, invoice.ErrNoValidOrders) || errors.Is(err, invoice.ErrNoRows) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		log.Error().Err(err).Msg("Aggregation failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Verarbeitung fehlgeschlagen"})
	}

	derived := len(result.Invoices)
	newBalance, err := s.credits.UseCredits(c.Context(), user, derived, "Rechnungserstellung aus CSV-Upload")
	if errors.Is(err, credits.ErrInsufficientCredits) {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error":   err.Error(),
			"derived": derived,
		})
	}
	if err != nil {
		log.Error().Err(err).Msg("Credit decrement failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Guthaben konnte nicht verbucht werden"})
	}

	stored, persisted, err := s.invoices.CreateMany(c.Context(), user, result.Invoices)
	if err != nil {
		// Derived invoices must not silently vanish: report counts and
		// refund the credits spent on invoices that were never stored.
		log.Error().Err(err).Int("derived", derived).Int("persisted", persisted).Msg("Persistence failed")
		if unpersisted := derived - persisted; unpersisted > 0 {
			refunded, refundErr := s.credits.AddCredits(c.Context(), user, unpersisted, "Gutschrift nach Speicherfehler")
			if refundErr != nil {
				log.Error().Err(refundErr).Int("credits", unpersisted).Msg("Credit refund failed")
			} else {
				newBalance = refunded
			}
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":     "Rechnungen konnten nur teilweise gespeichert werden",
			"derived":   derived,
			"persisted": persisted,
			"invoices":  stored,
			"credits":   newBalance,
		})
	}

	return c.JSON(fiber.Map{
		"invoices":  stored,
		"summary":   result.Summary,
		"derived":   derived,
		"persisted": persisted,
		"credits":   newBalance,
	})
}

func (s *Server) handleList(c *fiber.Ctx) error {
	invoices, err := s.invoices.List(c.Context(), userID(c))
	if err != nil {
		s.log.Error().Err(err).Msg("Listing invoices failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Rechnungen konnten nicht geladen werden"})
	}
	return c.JSON(fiber.Map{"invoices": invoices})
}

func (s *Server) handleUpdate(c *fiber.Ctx) error {
	var inv models.Invoice
	if err := c.BodyParser(&inv); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Ungültiger Rechnungs-Datensatz"})
	}

	updated, err := s.invoices.Update(c.Context(), userID(c), c.Params("id"), inv)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Rechnung nicht gefunden"})
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Updating invoice failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Rechnung konnte nicht aktualisiert werden"})
	}
	return c.JSON(updated)
}

func (s *Server) handleDelete(c *fiber.Ctx) error {
	deleted, err := s.invoices.Delete(c.Context(), userID(c), c.Params("id"))
	if err != nil {
		s.log.Error().Err(err).Msg("Deleting invoice failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Rechnung konnte nicht gelöscht werden"})
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Rechnung nicht gefunden"})
	}
	return c.JSON(fiber.Map{"deleted": true})
}

func (s *Server) handleDeleteAll(c *fiber.Ctx) error {
	deleted, err := s.invoices.DeleteAll(c.Context(), userID(c))
	if err != nil {
		s.log.Error().Err(err).Msg("Deleting invoices failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Rechnungen konnten nicht gelöscht werden"})
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}

// handlePayoutValidate validates a payout. Bank statements arrive as
// CSV files under "bank"; gross and fee figures arrive either as form
// values or inside a payment statement PDF under "statement" when the
// Document AI extractor is configured.
func (s *Server) handlePayoutValidate(c *fiber.Ctx) error {
	bankFiles, err := formFiles(c, "bank")
	if err != nil || len(bankFiles) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Mindestens ein Kontoauszug (CSV) wird benötigt"})
	}

	txns, actualPayout, err := s.matcher.Match(bankFiles)
	if errors.Is(err, etsy.ErrEmptyFile) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Kontoauszug konnte nicht gelesen werden"})
	}

	gross, fees, err := s.payoutFigures(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result := payout.Reconcile(gross, fees, actualPayout)
	if s.advisor != nil {
		result.Explanation = s.advisor.Explain(c.Context(), result, txns)
	}

	return c.JSON(fiber.Map{
		"result":       result,
		"transactions": txns,
	})
}

// payoutFigures resolves gross invoice total and signed fees from the
// request: explicit form values win; otherwise an uploaded statement
// PDF is extracted.
func (s *Server) payoutFigures(c *fiber.Ctx) (gross, fees float64, err error) {
	grossStr := c.FormValue("gross_invoices")
	feesStr := c.FormValue("total_fees")
	if grossStr != "" || feesStr != "" {
		gross, _ = strconv.ParseFloat(grossStr, 64)
		fees, _ = strconv.ParseFloat(feesStr, 64)
		return gross, fees, nil
	}

	if s.extractor == nil {
		return 0, 0, errors.New("Bruttobetrag und Gebühren werden benötigt (gross_invoices, total_fees)")
	}

	fileHeader, err := c.FormFile("statement")
	if err != nil {
		return 0, 0, errors.New("Zahlungsaufstellung (PDF) oder Beträge werden benötigt")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return 0, 0, errors.New("Zahlungsaufstellung konnte nicht geöffnet werden")
	}
	defer file.Close()

	figures, err := s.extractor.ExtractFigures(c.Context(), file)
	if err != nil {
		s.log.Warn().Err(err).Msg("Statement extraction failed")
		return 0, 0, errors.New("Zahlungsaufstellung konnte nicht ausgewertet werden")
	}
	return figures.GrossInvoices, figures.TotalFees, nil
}

func (s *Server) handleCredits(c *fiber.Ctx) error {
	balance, err := s.credits.Balance(c.Context(), userID(c))
	if err != nil {
		s.log.Error().Err(err).Msg("Loading credit balance failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Guthaben konnte nicht geladen werden"})
	}
	return c.JSON(fiber.Map{"credits": balance})
}

func (s *Server) handleGetProfile(c *fiber.Ctx) error {
	profile, err := s.profiles.GetProfile(c.Context(), userID(c))
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profil nicht gefunden"})
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Loading profile failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Profil konnte nicht geladen werden"})
	}
	return c.JSON(profile)
}

func (s *Server) handleSaveProfile(c *fiber.Ctx) error {
	var profile models.SellerProfile
	if err := c.BodyParser(&profile); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Ungültiges Profil"})
	}
	profile.UserID = userID(c)

	if err := s.profiles.SaveProfile(c.Context(), profile); err != nil {
		s.log.Error().Err(err).Msg("Saving profile failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Profil konnte nicht gespeichert werden"})
	}
	return c.JSON(profile)
}

// formFiles reads all multipart files under the given field name and
// materializes them fully as strings, as the multi-file header
// stripping depends on sequential ordering.
func formFiles(c *fiber.Ctx, field string) ([]string, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}

	var contents []string
	for _, fileHeader := range form.File[field] {
		content, err := readMultipartFile(fileHeader)
		if err != nil {
			return nil, err
		}
		contents = append(contents, content)
	}
	return contents, nil
}

func readMultipartFile(fileHeader *multipart.FileHeader) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
