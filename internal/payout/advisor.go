package payout

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/faktorino/faktorino/internal/logger"
	"github.com/faktorino/faktorino/pkg/models"
)

// Advisor enriches the generic discrepancy explanation with a
// ChatGPT-generated assessment of the matched bank transactions. It is
// strictly optional: validation results are complete without it, and
// any advisor failure falls back to the built-in text.
type Advisor struct {
	openaiClient *openai.Client
	log          zerolog.Logger
}

// NewAdvisor creates an advisor backed by the given OpenAI client.
func NewAdvisor(openaiClient *openai.Client) *Advisor {
	return &Advisor{
		openaiClient: openaiClient,
		log:          logger.WithComponent("payout-advisor"),
	}
}

// Explain asks the model for a short German assessment of a flagged
// discrepancy. The built-in advisory text is returned unchanged when
// there is no discrepancy or the request fails.
func (a *Advisor) Explain(ctx context.Context, result models.PayoutValidationResult, txns []models.BankTransaction) string {
	if !result.Discrepancy {
		return result.Explanation
	}

	prompt := a.buildPrompt(result, txns)

	resp, err := a.openaiClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4oMini,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "Du bist ein Buchhaltungsassistent für Etsy-Verkäufer. " +
					"Antworte in höchstens drei Sätzen auf Deutsch.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.2,
	})
	if err != nil {
		a.log.Warn().Err(err).Msg("Advisor request failed, using built-in explanation")
		return result.Explanation
	}
	if len(resp.Choices) == 0 {
		return result.Explanation
	}

	explanation := strings.TrimSpace(resp.Choices[0].Message.Content)
	if explanation == "" {
		return result.Explanation
	}
	return explanation
}

func (a *Advisor) buildPrompt(result models.PayoutValidationResult, txns []models.BankTransaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bei der Auszahlungsprüfung wurde eine Abweichung von %.2f EUR festgestellt.\n", result.Difference)
	fmt.Fprintf(&b, "Rechnungssumme brutto: %.2f EUR, Gebühren: %.2f EUR, erwartete Auszahlung: %.2f EUR, tatsächliche Auszahlung: %.2f EUR.\n",
		result.GrossInvoices, result.TotalFees, result.ExpectedPayout, result.PayoutAmount)

	if len(txns) > 0 {
		b.WriteString("Gefundene Etsy-Transaktionen auf dem Kontoauszug:\n")
		for _, txn := range txns {
			fmt.Fprintf(&b, "- %s: %.2f EUR (%s)\n", txn.Date.Format("02.01.2006"), txn.Amount, txn.Description)
		}
	}

	b.WriteString("Nenne die wahrscheinlichste Ursache der Abweichung.")
	return b.String()
}
