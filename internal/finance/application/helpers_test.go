package application

import (
	"time"

	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/domain"
	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/infrastructure"
	"github.com/hisaabkitaab/hisaabkitaab/internal/session"
	"github.com/shopspring/decimal"
)

const (
	testAccountID = "acc-1"
	foodID        = "11111111-1111-1111-1111-111111111111"
	salaryID      = "22222222-2222-2222-2222-222222222222"
	otherID       = "33333333-3333-3333-3333-333333333333"
)

var fixedNow = time.Date(2025, time.March, 14, 10, 30, 0, 0, time.UTC)

func owner() session.Principal {
	return session.Principal{ProfileID: "prof-1", FullName: "Ayesha", Language: "en", AccountID: testAccountID, Role: session.RoleOwner}
}

func viewer() session.Principal {
	p := owner()
	p.ProfileID = "prof-2"
	p.Role = session.RoleViewer
	return p
}

func defaultCategories() []domain.Category {
	return []domain.Category{
		{ID: foodID, NameEn: "Food", NameUr: "کھانا", Type: domain.TypeExpense},
		{ID: salaryID, NameEn: "Salary", NameUr: "تنخواہ", Type: domain.TypeIncome},
		{ID: otherID, NameEn: "Other", NameUr: "دیگر", Type: domain.CategoryTypeBoth},
	}
}

func newServices() (*infrastructure.MockTransactionRepository, *TransactionService, *CategoryService) {
	repo := &infrastructure.MockTransactionRepository{}
	categories := NewCategoryService(&infrastructure.MockCategoryRepository{Categories: defaultCategories()})
	transactions := NewTransactionService(repo, categories)
	transactions.now = func() time.Time { return fixedNow }
	return repo, transactions, categories
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(s string) time.Time {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func strPtr(s string) *string {
	return &s
}
