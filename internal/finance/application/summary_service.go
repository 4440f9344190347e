package application

import (
	"context"
	"time"

	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/domain"
	financeErrors "github.com/hisaabkitaab/hisaabkitaab/internal/finance/errors"
	"github.com/shopspring/decimal"
)

type SummaryService struct {
	repo domain.TransactionRepository
	now  func() time.Time
}

func NewSummaryService(repo domain.TransactionRepository) *SummaryService {
	return &SummaryService{repo: repo, now: time.Now}
}

// GetMonthlySummary returns income, expense and balance for each of the
// twelve months of year, including empty months.
func (s *SummaryService) GetMonthlySummary(ctx context.Context, accountID string, year int) (*domain.YearSummary, error) {
	startDate := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	transactions, err := s.repo.GetTransactionsInDateRange(ctx, accountID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	summary := &domain.YearSummary{
		Year:         year,
		IncomeTotal:  decimal.Zero,
		ExpenseTotal: decimal.Zero,
		Months:       make([]domain.MonthSummary, 12),
	}
	for i := range summary.Months {
		summary.Months[i] = domain.MonthSummary{
			Month:        i + 1,
			Name:         time.Month(i + 1).String(),
			IncomeTotal:  decimal.Zero,
			ExpenseTotal: decimal.Zero,
		}
	}

	for _, transaction := range transactions {
		if transaction.Date.Year() != year {
			continue
		}
		month := &summary.Months[transaction.Date.Month()-1]
		switch transaction.Type {
		case domain.TypeIncome:
			summary.IncomeTotal = summary.IncomeTotal.Add(transaction.Amount)
			month.IncomeTotal = month.IncomeTotal.Add(transaction.Amount)
		case domain.TypeExpense:
			summary.ExpenseTotal = summary.ExpenseTotal.Add(transaction.Amount)
			month.ExpenseTotal = month.ExpenseTotal.Add(transaction.Amount)
		}
	}

	for i := range summary.Months {
		summary.Months[i].Balance = summary.Months[i].IncomeTotal.Sub(summary.Months[i].ExpenseTotal)
	}
	summary.Balance = summary.IncomeTotal.Sub(summary.ExpenseTotal)
	return summary, nil
}

func (s *SummaryService) GetCategorySummary(ctx context.Context, accountID, transactionType string, startDate, endDate time.Time) ([]domain.TransactionByCategorySummary, error) {
	if transactionType == "" {
		transactionType = domain.TypeExpense
	}
	if !domain.IsValidTransactionType(transactionType) {
		return nil, financeErrors.NewValidationError("Invalid transaction type")
	}
	if startDate.After(endDate) {
		return nil, financeErrors.ErrInvalidDateRange
	}
	summary, err := s.repo.GetTransactionSummaryByCategory(ctx, accountID, startDate, endDate, transactionType)
	if err != nil {
		return nil, err
	}
	for i := range summary {
		if summary[i].CategoryName == "" {
			summary[i].CategoryName = domain.FallbackCategory
		}
	}
	if summary == nil {
		summary = []domain.TransactionByCategorySummary{}
	}
	return summary, nil
}

func (s *SummaryService) GetMemberSummary(ctx context.Context, accountID string, startDate, endDate time.Time) ([]domain.TransactionByMemberSummary, error) {
	if startDate.After(endDate) {
		return nil, financeErrors.ErrInvalidDateRange
	}
	summary, err := s.repo.GetTransactionSummaryByMember(ctx, accountID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	for i := range summary {
		if summary[i].Name == "" {
			summary[i].Name = "Unknown"
		}
	}
	if summary == nil {
		summary = []domain.TransactionByMemberSummary{}
	}
	return summary, nil
}

func (s *SummaryService) GetOverview(ctx context.Context, accountID string, startDate, endDate time.Time) (*domain.Overview, error) {
	if startDate.After(endDate) {
		return nil, financeErrors.ErrInvalidDateRange
	}
	transactions, err := s.repo.GetTransactionsInDateRange(ctx, accountID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	overview := &domain.Overview{IncomeTotal: decimal.Zero, ExpenseTotal: decimal.Zero}
	for _, transaction := range transactions {
		switch transaction.Type {
		case domain.TypeIncome:
			overview.IncomeTotal = overview.IncomeTotal.Add(transaction.Amount)
		case domain.TypeExpense:
			overview.ExpenseTotal = overview.ExpenseTotal.Add(transaction.Amount)
		}
		overview.Count++
	}
	overview.Balance = overview.IncomeTotal.Sub(overview.ExpenseTotal)
	return overview, nil
}

// CurrentMonth is the first and last day of the month containing now.
func CurrentMonth(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1)
}

// CurrentMonth returns the current month bounds using the service clock.
func (s *SummaryService) CurrentMonth() (time.Time, time.Time) {
	return CurrentMonth(s.now())
}
