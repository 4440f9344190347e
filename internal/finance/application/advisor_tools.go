package application

import (
	"context"
	"time"

	"github.com/hisaabkitaab/hisaabkitaab/internal/ai"
	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/domain"
	financeErrors "github.com/hisaabkitaab/hisaabkitaab/internal/finance/errors"
	"github.com/hisaabkitaab/hisaabkitaab/internal/session"
)

const maxToolTransactions = 50

type toolTransaction struct {
	Date        string `json:"date"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	AddedBy     string `json:"added_by,omitempty"`
}

// AdvisorTools runs the advisor's tool calls against one caller's account.
type AdvisorTools struct {
	transactions *TransactionService
	summaries    *SummaryService
	categories   CategoryServiceInterface
	principal    session.Principal
	now          func() time.Time
}

func NewAdvisorTools(transactions *TransactionService, summaries *SummaryService, categories CategoryServiceInterface, p session.Principal) *AdvisorTools {
	return &AdvisorTools{
		transactions: transactions,
		summaries:    summaries,
		categories:   categories,
		principal:    p,
		now:          time.Now,
	}
}

var _ ai.Tools = (*AdvisorTools)(nil)

func (t *AdvisorTools) GetTransactions(ctx context.Context, q ai.TransactionQuery) (any, error) {
	start, end, err := t.period(q.StartDate, q.EndDate)
	if err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 || limit > maxToolTransactions {
		limit = defaultPageSize
	}
	transactionType := q.Type
	if !domain.IsValidTransactionType(transactionType) {
		transactionType = ""
	}

	page, err := t.transactions.ListTransactions(ctx, t.principal, domain.TransactionFilter{
		Type:      transactionType,
		StartDate: start,
		EndDate:   end,
		Limit:     limit,
		Page:      1,
	})
	if err != nil {
		return nil, err
	}

	out := make([]toolTransaction, 0, len(page.Transactions))
	for _, tx := range page.Transactions {
		row := toStatementRow(tx)
		out = append(out, toolTransaction{
			Date:        row.Date,
			Type:        row.Type,
			Amount:      row.Amount,
			Category:    row.Category,
			Description: row.Description,
			AddedBy:     tx.AddedByName,
		})
	}
	return map[string]any{"transactions": out, "total": page.Total}, nil
}

func (t *AdvisorTools) GetSpendingSummary(ctx context.Context, q ai.PeriodQuery) (any, error) {
	start, end, err := t.period(q.StartDate, q.EndDate)
	if err != nil {
		return nil, err
	}
	overview, err := t.summaries.GetOverview(ctx, t.principal.AccountID, start, end)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"start_date": start.Format(domain.DateLayout),
		"end_date":   end.Format(domain.DateLayout),
		"income":     overview.IncomeTotal.StringFixed(2),
		"expense":    overview.ExpenseTotal.StringFixed(2),
		"balance":    overview.Balance.StringFixed(2),
		"count":      overview.Count,
	}, nil
}

func (t *AdvisorTools) GetCategoryBreakdown(ctx context.Context, q ai.BreakdownQuery) (any, error) {
	start, end, err := t.period(q.StartDate, q.EndDate)
	if err != nil {
		return nil, err
	}
	transactionType := q.Type
	if !domain.IsValidTransactionType(transactionType) {
		transactionType = domain.TypeExpense
	}
	summary, err := t.summaries.GetCategorySummary(ctx, t.principal.AccountID, transactionType, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(summary))
	for _, s := range summary {
		out = append(out, map[string]any{
			"category": s.CategoryName,
			"total":    s.TotalAmount.StringFixed(2),
			"count":    s.Count,
		})
	}
	return map[string]any{"type": transactionType, "categories": out}, nil
}

// AddTransaction records a transaction the user asked the advisor to add.
func (t *AdvisorTools) AddTransaction(ctx context.Context, item ai.ExtractedTransaction) (any, error) {
	if !t.principal.CanWrite() {
		return nil, financeErrors.ErrReadOnly
	}
	categories, err := t.categories.GetCategories(ctx, t.principal.AccountID, "")
	if err != nil {
		return nil, err
	}
	transaction := FromExtracted(item, categories, t.principal, domain.SourceAuto, domain.Today(t.now()))
	if err := t.transactions.save(ctx, transaction); err != nil {
		return nil, err
	}
	return map[string]any{
		"id":      transaction.ID,
		"date":    transaction.Date.Format(domain.DateLayout),
		"summary": describeAmount(transaction),
	}, nil
}

// period defaults to the current month and rejects malformed dates.
func (t *AdvisorTools) period(startStr, endStr string) (time.Time, time.Time, error) {
	start, end := CurrentMonth(t.now())
	var err error
	if startStr != "" {
		if start, err = domain.ParseDate(startStr); err != nil {
			return time.Time{}, time.Time{}, financeErrors.ErrInvalidDate
		}
	}
	if endStr != "" {
		if end, err = domain.ParseDate(endStr); err != nil {
			return time.Time{}, time.Time{}, financeErrors.ErrInvalidDate
		}
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, financeErrors.ErrInvalidDateRange
	}
	return start, end, nil
}
