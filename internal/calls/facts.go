package calls

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hisaabkitaab/hisaabkitaab/internal/account"
	"github.com/hisaabkitaab/hisaabkitaab/internal/ai"
	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/domain"
	"github.com/hisaabkitaab/hisaabkitaab/internal/session"
)

const topCategoryCount = 3

// SummaryReader is the part of the finance summary service a call script needs.
type SummaryReader interface {
	GetOverview(ctx context.Context, accountID string, startDate, endDate time.Time) (*domain.Overview, error)
	GetCategorySummary(ctx context.Context, accountID, transactionType string, startDate, endDate time.Time) ([]domain.TransactionByCategorySummary, error)
}

type AccountReader interface {
	GetAccount(ctx context.Context, accountID string) (*account.Account, error)
}

// monthFacts collects the current month's figures for the caller's account.
func monthFacts(ctx context.Context, summaries SummaryReader, accounts AccountReader, p session.Principal, now time.Time) (ai.CallFacts, error) {
	a, err := accounts.GetAccount(ctx, p.AccountID)
	if err != nil {
		return ai.CallFacts{}, fmt.Errorf("load account: %w", err)
	}
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)

	overview, err := summaries.GetOverview(ctx, p.AccountID, start, end)
	if err != nil {
		return ai.CallFacts{}, fmt.Errorf("load overview: %w", err)
	}
	categories, err := summaries.GetCategorySummary(ctx, p.AccountID, domain.TypeExpense, start, end)
	if err != nil {
		return ai.CallFacts{}, fmt.Errorf("load categories: %w", err)
	}

	facts := ai.CallFacts{
		Name:        p.FullName,
		AccountName: a.Name,
		Currency:    a.Currency,
		Period:      start.Format("January 2006"),
		Income:      overview.IncomeTotal.StringFixed(0),
		Expense:     overview.ExpenseTotal.StringFixed(0),
		Balance:     overview.Balance.StringFixed(0),
	}
	for i, c := range topByTotal(categories) {
		if i == topCategoryCount {
			break
		}
		facts.TopCategories = append(facts.TopCategories, fmt.Sprintf("%s %s", c.CategoryName, c.TotalAmount.StringFixed(0)))
	}
	return facts, nil
}

func topByTotal(categories []domain.TransactionByCategorySummary) []domain.TransactionByCategorySummary {
	sorted := append([]domain.TransactionByCategorySummary(nil), categories...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalAmount.GreaterThan(sorted[j].TotalAmount)
	})
	return sorted
}
