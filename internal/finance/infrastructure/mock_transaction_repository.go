package infrastructure

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/domain"
	financeErrors "github.com/hisaabkitaab/hisaabkitaab/internal/finance/errors"
	"github.com/shopspring/decimal"
)

// MockTransactionRepository is an in-memory TransactionRepository for tests.
type MockTransactionRepository struct {
	Transactions []domain.Transaction
	Categories   map[string]string
	Members      map[string]string
	FailWith     error
	seq          int
}

func (m *MockTransactionRepository) nextID() string {
	m.seq++
	return "tx-" + strconv.Itoa(m.seq)
}

func (m *MockTransactionRepository) Save(_ context.Context, transaction *domain.Transaction) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	transaction.ID = m.nextID()
	transaction.CreatedAt = time.Now()
	transaction.UpdatedAt = transaction.CreatedAt
	m.Transactions = append(m.Transactions, *transaction)
	return nil
}

func (m *MockTransactionRepository) SaveAll(ctx context.Context, transactions []*domain.Transaction) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	for _, t := range transactions {
		if err := m.Save(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockTransactionRepository) FindByID(_ context.Context, accountID, transactionID string) (*domain.Transaction, error) {
	for _, t := range m.Transactions {
		if t.AccountID == accountID && t.ID == transactionID {
			cp := t
			return &cp, nil
		}
	}
	return nil, financeErrors.ErrTransactionNotFound
}

func (m *MockTransactionRepository) List(_ context.Context, accountID string, filter domain.TransactionFilter) ([]domain.Transaction, int, error) {
	if m.FailWith != nil {
		return nil, 0, m.FailWith
	}
	var matched []domain.Transaction
	for _, t := range m.Transactions {
		if t.AccountID != accountID ||
			(filter.Type != "" && t.Type != filter.Type) ||
			(filter.CategoryID != "" && (t.CategoryID == nil || *t.CategoryID != filter.CategoryID)) ||
			(!filter.StartDate.IsZero() && t.Date.Before(filter.StartDate)) ||
			(!filter.EndDate.IsZero() && t.Date.After(filter.EndDate)) {
			continue
		}
		matched = append(matched, t)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Date.After(matched[j].Date) })

	total := len(matched)
	start := (filter.Page - 1) * filter.Limit
	if start > total {
		return nil, total, nil
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *MockTransactionRepository) Update(_ context.Context, transaction *domain.Transaction) error {
	for i, t := range m.Transactions {
		if t.AccountID == transaction.AccountID && t.ID == transaction.ID {
			m.Transactions[i] = *transaction
			return nil
		}
	}
	return financeErrors.ErrTransactionNotFound
}

func (m *MockTransactionRepository) Delete(_ context.Context, accountID, transactionID string) error {
	for i, t := range m.Transactions {
		if t.AccountID == accountID && t.ID == transactionID {
			m.Transactions = append(m.Transactions[:i], m.Transactions[i+1:]...)
			return nil
		}
	}
	return financeErrors.ErrTransactionNotFound
}

func (m *MockTransactionRepository) GetTransactionsInDateRange(_ context.Context, accountID string, startDate, endDate time.Time) ([]domain.Transaction, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	var filtered []domain.Transaction
	for _, transaction := range m.Transactions {
		if accountID != "" && transaction.AccountID != "" && transaction.AccountID != accountID {
			continue
		}
		if !transaction.Date.Before(startDate) && !transaction.Date.After(endDate) {
			filtered = append(filtered, transaction)
		}
	}
	return filtered, nil
}

func (m *MockTransactionRepository) GetTransactionSummaryByCategory(ctx context.Context, accountID string, startDate, endDate time.Time, transactionType string) ([]domain.TransactionByCategorySummary, error) {
	transactions, err := m.GetTransactionsInDateRange(ctx, accountID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	byKey := map[string]*domain.TransactionByCategorySummary{}
	var order []string
	for _, t := range transactions {
		if t.Type != transactionType {
			continue
		}
		key, name := "", domain.FallbackCategory
		if t.CategoryID != nil {
			key = *t.CategoryID
			if n, ok := m.Categories[key]; ok {
				name = n
			}
		}
		s, ok := byKey[key]
		if !ok {
			s = &domain.TransactionByCategorySummary{CategoryID: t.CategoryID, CategoryName: name, TotalAmount: decimal.Zero}
			byKey[key] = s
			order = append(order, key)
		}
		s.TotalAmount = s.TotalAmount.Add(t.Amount)
		s.Count++
	}
	out := make([]domain.TransactionByCategorySummary, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	return out, nil
}

func (m *MockTransactionRepository) GetTransactionSummaryByMember(ctx context.Context, accountID string, startDate, endDate time.Time) ([]domain.TransactionByMemberSummary, error) {
	transactions, err := m.GetTransactionsInDateRange(ctx, accountID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	byKey := map[string]*domain.TransactionByMemberSummary{}
	var order []string
	for _, t := range transactions {
		key, name := "", "Unknown"
		if t.AddedBy != nil {
			key = *t.AddedBy
			if n, ok := m.Members[key]; ok {
				name = n
			}
		}
		s, ok := byKey[key]
		if !ok {
			s = &domain.TransactionByMemberSummary{ProfileID: t.AddedBy, Name: name, IncomeTotal: decimal.Zero, ExpenseTotal: decimal.Zero}
			byKey[key] = s
			order = append(order, key)
		}
		if t.Type == domain.TypeIncome {
			s.IncomeTotal = s.IncomeTotal.Add(t.Amount)
		} else {
			s.ExpenseTotal = s.ExpenseTotal.Add(t.Amount)
		}
		s.Count++
	}
	out := make([]domain.TransactionByMemberSummary, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	return out, nil
}

// MockCategoryRepository is an in-memory CategoryRepository for tests.
type MockCategoryRepository struct {
	Categories []domain.Category
	FailWith   error
}

func (m *MockCategoryRepository) FindForAccount(_ context.Context, accountID, categoryType string) ([]domain.Category, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	var out []domain.Category
	for _, c := range m.Categories {
		if c.AccountID != nil && *c.AccountID != accountID {
			continue
		}
		if categoryType != "" && c.Type != categoryType && c.Type != domain.CategoryTypeBoth {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *MockCategoryRepository) DoesCategoryExistForAccount(ctx context.Context, categoryID, accountID string) (bool, error) {
	categories, err := m.FindForAccount(ctx, accountID, "")
	if err != nil {
		return false, err
	}
	for _, c := range categories {
		if c.ID == categoryID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockCategoryRepository) Save(_ context.Context, category *domain.Category) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	for _, c := range m.Categories {
		if c.AccountID != nil && category.AccountID != nil && *c.AccountID == *category.AccountID && c.NameEn == category.NameEn {
			return errors.New("duplicate category")
		}
	}
	category.ID = "cat-" + strconv.Itoa(len(m.Categories)+1)
	m.Categories = append(m.Categories, *category)
	return nil
}
