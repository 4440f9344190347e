package domain

import (
	"context"
	"time"

	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/errors"
	"github.com/shopspring/decimal"
)

const (
	TypeIncome  = "income"
	TypeExpense = "expense"

	SourceManual   = "manual"
	SourceVoice    = "voice"
	SourceAuto     = "auto"
	SourceBillScan = "bill_scan"

	MaxDescriptionLength = 500
	DateLayout           = "2006-01-02"
)

type TransactionRepository interface {
	Save(ctx context.Context, transaction *Transaction) error
	SaveAll(ctx context.Context, transactions []*Transaction) error
	FindByID(ctx context.Context, accountID, transactionID string) (*Transaction, error)
	List(ctx context.Context, accountID string, filter TransactionFilter) ([]Transaction, int, error)
	Update(ctx context.Context, transaction *Transaction) error
	Delete(ctx context.Context, accountID, transactionID string) error
	GetTransactionsInDateRange(ctx context.Context, accountID string, startDate, endDate time.Time) ([]Transaction, error)
	GetTransactionSummaryByCategory(ctx context.Context, accountID string, startDate, endDate time.Time, transactionType string) ([]TransactionByCategorySummary, error)
	GetTransactionSummaryByMember(ctx context.Context, accountID string, startDate, endDate time.Time) ([]TransactionByMemberSummary, error)
}

type Transaction struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id"`
	AddedBy     *string         `json:"added_by"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	CategoryID  *string         `json:"category_id"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	Source      string          `json:"source"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	CategoryName   string `json:"category_name,omitempty"`
	CategoryNameUr string `json:"category_name_ur,omitempty"`
	AddedByName    string `json:"added_by_name,omitempty"`
}

// TransactionFilter narrows List. Zero values mean "no filter"; Page is 1-based.
type TransactionFilter struct {
	Type       string
	CategoryID string
	StartDate  time.Time
	EndDate    time.Time
	Limit      int
	Page       int
}

// TransactionInput is the writable part of a transaction as sent by clients.
type TransactionInput struct {
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	CategoryID  *string         `json:"category_id"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
}

func IsValidTransactionType(transactionType string) bool {
	return transactionType == TypeIncome || transactionType == TypeExpense
}

func IsValidSource(source string) bool {
	switch source {
	case SourceManual, SourceVoice, SourceAuto, SourceBillScan:
		return true
	}
	return false
}

func (t *Transaction) RoundToTwoDecimalPlaces() {
	t.Amount = t.Amount.Round(2)
}

func (t *Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return errors.NewValidationError("Amount must be greater than zero")
	}
	if !t.Amount.Equal(t.Amount.Round(2)) {
		return errors.NewValidationError("Amount must have at most two decimal places")
	}
	if !IsValidTransactionType(t.Type) {
		return errors.NewValidationError("Type must be 'income' or 'expense'")
	}
	if len([]rune(t.Description)) > MaxDescriptionLength {
		return errors.NewValidationError("Description must be at most 500 characters")
	}
	if !IsValidSource(t.Source) {
		return errors.NewValidationError("Source must be one of 'manual', 'voice', 'auto' or 'bill_scan'")
	}
	if t.Date.IsZero() {
		return errors.NewValidationError("Date is required")
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Today is the current calendar date as UTC midnight.
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
