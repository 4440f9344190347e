package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hisaabkitaab/hisaabkitaab/internal/logger"
	"google.golang.org/genai"
)

const (
	MaxAdvisorRounds = 10
	maxHistory       = 20

	toolGetTransactions      = "get_transactions"
	toolGetSpendingSummary   = "get_spending_summary"
	toolGetCategoryBreakdown = "get_category_breakdown"
	toolAddTransaction       = "add_transaction"
)

var ErrRoundLimit = errors.New("advisor did not produce an answer within the round limit")

type TransactionQuery struct {
	Type      string `json:"type"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Limit     int    `json:"limit"`
}

type PeriodQuery struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type BreakdownQuery struct {
	Type      string `json:"type"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Tools are the account operations the advisor may call. Implementations are
// bound to the caller's account.
type Tools interface {
	GetTransactions(ctx context.Context, q TransactionQuery) (any, error)
	GetSpendingSummary(ctx context.Context, q PeriodQuery) (any, error)
	GetCategoryBreakdown(ctx context.Context, q BreakdownQuery) (any, error)
	AddTransaction(ctx context.Context, t ExtractedTransaction) (any, error)
}

type ChatMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type ChatRequest struct {
	Language string        `json:"language"`
	History  []ChatMessage `json:"history"`
	Message  string        `json:"message"`
	Currency string        `json:"-"`
	Today    time.Time     `json:"-"`
}

type ChatResponse struct {
	Reply     string   `json:"reply"`
	ToolCalls []string `json:"tool_calls"`
	Rounds    int      `json:"rounds"`
}

type Advisor struct {
	gw        *Gateway
	maxRounds int
}

func NewAdvisor(gw *Gateway) *Advisor {
	return &Advisor{gw: gw, maxRounds: MaxAdvisorRounds}
}

// Chat runs the tool-calling loop. Every function call in a round is executed
// and answered before the next round; the first text-only answer ends the loop.
func (a *Advisor) Chat(ctx context.Context, req ChatRequest, tools Tools) (*ChatResponse, error) {
	if a == nil || a.gw == nil || a.gw.models == nil {
		return nil, ErrNotConfigured
	}
	log := logger.FromContext(ctx)

	contents := historyContents(req.History)
	contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: req.Message}}})

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: advisorPrompt(req)}}},
		Tools:             []*genai.Tool{{FunctionDeclarations: toolDeclarations()}},
		Temperature:       float32Ptr(0.4),
	}

	out := &ChatResponse{ToolCalls: []string{}}
	for round := 1; round <= a.maxRounds; round++ {
		out.Rounds = round
		resp, err := a.gw.models.GenerateContent(ctx, a.gw.model, contents, config)
		if err != nil {
			return nil, fmt.Errorf("advisor round %d: %w", round, err)
		}

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			out.Reply = strings.TrimSpace(resp.Text())
			if out.Reply == "" {
				return nil, ErrEmptyResponse
			}
			return out, nil
		}

		if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
			contents = append(contents, resp.Candidates[0].Content)
		} else {
			contents = append(contents, modelCallContent(calls))
		}

		parts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			out.ToolCalls = append(out.ToolCalls, call.Name)
			result := executeTool(ctx, tools, call)
			log.Debug().Str("tool", call.Name).Int("round", round).Msg("Advisor tool executed")
			parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       call.ID,
				Name:     call.Name,
				Response: result,
			}})
		}
		contents = append(contents, &genai.Content{Role: "user", Parts: parts})
	}

	log.Warn().Int("rounds", a.maxRounds).Msg("Advisor hit round limit")
	return nil, ErrRoundLimit
}

func executeTool(ctx context.Context, tools Tools, call *genai.FunctionCall) map[string]any {
	result, err := dispatch(ctx, tools, call)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return map[string]any{"output": toPlainJSON(result)}
}

func dispatch(ctx context.Context, tools Tools, call *genai.FunctionCall) (any, error) {
	switch call.Name {
	case toolGetTransactions:
		var q TransactionQuery
		if err := decodeArgs(call.Args, &q); err != nil {
			return nil, err
		}
		return tools.GetTransactions(ctx, q)
	case toolGetSpendingSummary:
		var q PeriodQuery
		if err := decodeArgs(call.Args, &q); err != nil {
			return nil, err
		}
		return tools.GetSpendingSummary(ctx, q)
	case toolGetCategoryBreakdown:
		var q BreakdownQuery
		if err := decodeArgs(call.Args, &q); err != nil {
			return nil, err
		}
		return tools.GetCategoryBreakdown(ctx, q)
	case toolAddTransaction:
		var t ExtractedTransaction
		if err := decodeArgs(call.Args, &t); err != nil {
			return nil, err
		}
		return tools.AddTransaction(ctx, t)
	default:
		return nil, fmt.Errorf("unknown tool %q", call.Name)
	}
}

func decodeArgs(args map[string]any, dst any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// toPlainJSON re-serializes v so decimals and times reach the model as
// plain JSON values.
func toPlainJSON(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	var plain any
	if err := json.Unmarshal(raw, &plain); err != nil {
		return string(raw)
	}
	return plain
}

func modelCallContent(calls []*genai.FunctionCall) *genai.Content {
	parts := make([]*genai.Part, 0, len(calls))
	for _, c := range calls {
		parts = append(parts, &genai.Part{FunctionCall: c})
	}
	return &genai.Content{Role: "model", Parts: parts}
}

func historyContents(history []ChatMessage) []*genai.Content {
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		role := "user"
		if m.Role == "assistant" || m.Role == "model" {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: text}}})
	}
	return contents
}

func advisorPrompt(req ChatRequest) string {
	lang := "English"
	if req.Language == "ur" {
		lang = "Urdu"
	}
	currency := req.Currency
	if currency == "" {
		currency = "PKR"
	}
	return "You are HisaabKitaab's personal finance advisor for households and small shops in Pakistan.\n" +
		"Answer in " + lang + ". Amounts are in " + currency + ".\n" +
		"Today's date: " + req.Today.Format("2006-01-02") + ".\n" +
		"Use the tools to look up the user's real data before answering questions about it. " +
		"Only call add_transaction when the user clearly asks to record something. " +
		"Keep answers short and practical."
}

func toolDeclarations() []*genai.FunctionDeclaration {
	date := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc + " (YYYY-MM-DD)"}
	}
	txType := &genai.Schema{Type: genai.TypeString, Enum: []string{"income", "expense"}}

	return []*genai.FunctionDeclaration{
		{
			Name:        toolGetTransactions,
			Description: "List the account's transactions, newest first.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"type":       txType,
					"start_date": date("First day to include"),
					"end_date":   date("Last day to include"),
					"limit":      {Type: genai.TypeInteger, Description: "Maximum number of transactions, default 20"},
				},
			},
		},
		{
			Name:        toolGetSpendingSummary,
			Description: "Total income, expenses, balance and transaction count for a period.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"start_date": date("First day of the period"),
					"end_date":   date("Last day of the period"),
				},
			},
		},
		{
			Name:        toolGetCategoryBreakdown,
			Description: "Totals per category for a period.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"type":       txType,
					"start_date": date("First day of the period"),
					"end_date":   date("Last day of the period"),
				},
			},
		},
		{
			Name:        toolAddTransaction,
			Description: "Record a new transaction for the user.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"type":        txType,
					"amount":      {Type: genai.TypeNumber, Description: "Positive amount"},
					"category":    {Type: genai.TypeString, Description: "Category name"},
					"description": {Type: genai.TypeString},
					"date":        date("Transaction date"),
				},
				Required: []string{"type", "amount"},
			},
		},
	}
}
