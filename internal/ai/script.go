package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const maxScriptRunes = 1200

// CallFacts is the account snapshot a call script is written from.
type CallFacts struct {
	Name          string
	AccountName   string
	Currency      string
	Period        string
	Income        string
	Expense       string
	Balance       string
	TopCategories []string
}

// GenerateCallScript writes a short spoken summary to be read by text-to-speech.
func (g *Gateway) GenerateCallScript(ctx context.Context, language string, facts CallFacts) (string, error) {
	lang := "English"
	if language == "ur" {
		lang = "Urdu, written in Urdu script"
	}
	system := "You write short, friendly phone call scripts for a personal finance assistant called HisaabKitaab.\n" +
		"The script is read aloud by text-to-speech, so use plain sentences without lists, symbols or emojis.\n" +
		"Keep it under 80 words. Write in " + lang + ".\n"

	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\nAccount: %s\nPeriod: %s\nCurrency: %s\n", facts.Name, facts.AccountName, facts.Period, facts.Currency)
	fmt.Fprintf(&b, "Income: %s\nExpenses: %s\nBalance: %s\n", facts.Income, facts.Expense, facts.Balance)
	if len(facts.TopCategories) > 0 {
		fmt.Fprintf(&b, "Top spending: %s\n", strings.Join(facts.TopCategories, ", "))
	}

	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: b.String()}}}}
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		Temperature:       float32Ptr(0.6),
	}

	text, err := g.generateText(ctx, contents, config)
	if err != nil {
		return "", fmt.Errorf("generate call script: %w", err)
	}
	text = strings.Trim(text, "\"` \n")
	if r := []rune(text); len(r) > maxScriptRunes {
		text = string(r[:maxScriptRunes])
	}
	return text, nil
}
