package domain

import "github.com/shopspring/decimal"

type MonthSummary struct {
	Month        int             `json:"month"`
	Name         string          `json:"name"`
	IncomeTotal  decimal.Decimal `json:"income"`
	ExpenseTotal decimal.Decimal `json:"expense"`
	Balance      decimal.Decimal `json:"balance"`
}

type YearSummary struct {
	Year         int             `json:"year"`
	IncomeTotal  decimal.Decimal `json:"income"`
	ExpenseTotal decimal.Decimal `json:"expense"`
	Balance      decimal.Decimal `json:"balance"`
	Months       []MonthSummary  `json:"months"`
}

type TransactionByCategorySummary struct {
	CategoryID     *string         `json:"category_id"`
	CategoryName   string          `json:"category_name"`
	CategoryNameUr string          `json:"category_name_ur"`
	Color          string          `json:"color"`
	TotalAmount    decimal.Decimal `json:"total"`
	Count          int             `json:"count"`
}

type TransactionByMemberSummary struct {
	ProfileID    *string         `json:"profile_id"`
	Name         string          `json:"name"`
	IncomeTotal  decimal.Decimal `json:"income"`
	ExpenseTotal decimal.Decimal `json:"expense"`
	Count        int             `json:"count"`
}

type Overview struct {
	IncomeTotal  decimal.Decimal `json:"income"`
	ExpenseTotal decimal.Decimal `json:"expense"`
	Balance      decimal.Decimal `json:"balance"`
	Count        int             `json:"count"`
}
