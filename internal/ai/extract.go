package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

// ExtractedTransaction is one transaction as read by the model. Category is a
// free-text name that the caller maps onto its own categories.
type ExtractedTransaction struct {
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
}

type TranscriptRequest struct {
	Transcript string
	Language   string
	Categories []string
	Today      time.Time
}

type BillRequest struct {
	Image      []byte
	MIMEType   string
	Language   string
	Categories []string
	Today      time.Time
}

const extractionRules = "Each object must have these fields:\n" +
	"- \"type\": \"income\" or \"expense\"\n" +
	"- \"amount\": positive number, at most two decimals, in the user's currency\n" +
	"- \"category\": one of the listed categories, or \"Other\"\n" +
	"- \"description\": short description, at most 100 characters\n" +
	"- \"date\": ISO date \"YYYY-MM-DD\"; resolve words like \"yesterday\" against today's date\n\n" +
	"Return ONLY valid raw JSON. Do NOT wrap the response in code fences.\n"

// ParseTranscript turns a spoken description of one or more transactions
// into structured items.
func (g *Gateway) ParseTranscript(ctx context.Context, req TranscriptRequest) ([]ExtractedTransaction, error) {
	if strings.TrimSpace(req.Transcript) == "" {
		return nil, nil
	}
	system := "You extract financial transactions from voice transcripts in English, Urdu or Roman Urdu.\n" +
		"Output a JSON array of objects, one per transaction mentioned.\n\n" +
		extractionRules + "\n" + contextPrompt(req.Language, req.Categories, req.Today)

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: "Transcript:\n" + req.Transcript}},
	}}

	text, err := g.generateText(ctx, contents, jsonConfig(system))
	if err != nil {
		return nil, fmt.Errorf("parse transcript: %w", err)
	}
	items, err := decodeTransactions(text)
	if err != nil {
		return nil, fmt.Errorf("parse transcript: %w", err)
	}
	return items, nil
}

// ExtractBill reads a receipt or bill image and returns its total as a single
// expense.
func (g *Gateway) ExtractBill(ctx context.Context, req BillRequest) (*ExtractedTransaction, error) {
	system := "You read photos of receipts, utility bills and invoices.\n" +
		"Output a single JSON object describing the total amount paid. Utility bills are expenses.\n\n" +
		extractionRules + "\n" + contextPrompt(req.Language, req.Categories, req.Today)

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: "Extract the transaction from this bill."},
			{InlineData: &genai.Blob{MIMEType: req.MIMEType, Data: req.Image}},
		},
	}}

	text, err := g.generateText(ctx, contents, jsonConfig(system))
	if err != nil {
		return nil, fmt.Errorf("extract bill: %w", err)
	}
	items, err := decodeTransactions(text)
	if err != nil {
		return nil, fmt.Errorf("extract bill: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("extract bill: %w", ErrEmptyResponse)
	}
	return &items[0], nil
}

func contextPrompt(language string, categories []string, today time.Time) string {
	descLang := "English"
	if language == "ur" {
		descLang = "Urdu"
	}
	return "Today's date: " + today.Format("2006-01-02") + "\n" +
		"Write descriptions in " + descLang + ".\n" +
		"Categories: " + strings.Join(categories, ", ") + "\n"
}

// decodeTransactions accepts an array, a single object, or an object wrapping
// the array under "transactions".
func decodeTransactions(raw string) ([]ExtractedTransaction, error) {
	clean := cleanModelJSON(raw)

	var items []ExtractedTransaction
	if strings.HasPrefix(clean, "[") {
		if err := json.Unmarshal([]byte(clean), &items); err != nil {
			return nil, fmt.Errorf("unmarshal JSON: %w", err)
		}
		return items, nil
	}

	var wrapped struct {
		Transactions []ExtractedTransaction `json:"transactions"`
	}
	if err := json.Unmarshal([]byte(clean), &wrapped); err == nil && len(wrapped.Transactions) > 0 {
		return wrapped.Transactions, nil
	}

	var single ExtractedTransaction
	if err := json.Unmarshal([]byte(clean), &single); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}
	return []ExtractedTransaction{single}, nil
}
