package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/domain"
	financeErrors "github.com/hisaabkitaab/hisaabkitaab/internal/finance/errors"
	"github.com/hisaabkitaab/hisaabkitaab/internal/session"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// MaxPage bounds the page number so the row offset stays small.
	MaxPage = 10000
)

type CategoryServiceInterface interface {
	DoesCategoryExist(ctx context.Context, categoryID, accountID string) (bool, error)
	GetCategories(ctx context.Context, accountID, categoryType string) ([]domain.Category, error)
}

type TransactionService struct {
	repo            domain.TransactionRepository
	categoryService CategoryServiceInterface
	now             func() time.Time
}

func NewTransactionService(repo domain.TransactionRepository, categoryService CategoryServiceInterface) *TransactionService {
	return &TransactionService{repo: repo, categoryService: categoryService, now: time.Now}
}

type TransactionPage struct {
	Transactions []domain.Transaction `json:"transactions"`
	Total        int                  `json:"total"`
	Page         int                  `json:"page"`
	Limit        int                  `json:"limit"`
}

func (s *TransactionService) CreateTransaction(ctx context.Context, p session.Principal, input domain.TransactionInput) (*domain.Transaction, error) {
	if !p.CanWrite() {
		return nil, financeErrors.ErrReadOnly
	}
	transaction, err := s.fromInput(p, input)
	if err != nil {
		return nil, err
	}
	transaction.Source = domain.SourceManual
	if err := s.save(ctx, transaction); err != nil {
		return nil, err
	}
	return transaction, nil
}

// save validates and inserts a transaction whose source is already set.
func (s *TransactionService) save(ctx context.Context, transaction *domain.Transaction) error {
	transaction.RoundToTwoDecimalPlaces()
	if err := transaction.Validate(); err != nil {
		return err
	}
	if err := s.checkCategory(ctx, transaction); err != nil {
		return err
	}
	return s.repo.Save(ctx, transaction)
}

// CreateTransactionsBulk inserts all transactions in one database transaction
// or none of them, reporting every invalid item.
func (s *TransactionService) CreateTransactionsBulk(ctx context.Context, p session.Principal, transactions []*domain.Transaction) error {
	if !p.CanWrite() {
		return financeErrors.ErrReadOnly
	}
	categories, err := s.categoryService.GetCategories(ctx, p.AccountID, "")
	if err != nil {
		return err
	}
	categoryMap := make(map[string]bool, len(categories))
	for _, category := range categories {
		categoryMap[category.ID] = true
	}

	validationErrors := &financeErrors.ValidationErrors{}
	for i, transaction := range transactions {
		transaction.AccountID = p.AccountID
		transaction.AddedBy = addedBy(p)
		transaction.RoundToTwoDecimalPlaces()
		if err := transaction.Validate(); err != nil {
			validationErrors.Add(financeErrors.NewIndexedValidationError(i+1, err.Error()))
			continue
		}
		if transaction.CategoryID != nil && !categoryMap[*transaction.CategoryID] {
			validationErrors.Add(financeErrors.NewIndexedValidationError(i+1, financeErrors.ErrInvalidCategory.Error()))
		}
	}
	if len(validationErrors.Errors) > 0 {
		return validationErrors
	}
	return s.repo.SaveAll(ctx, transactions)
}

func (s *TransactionService) GetTransaction(ctx context.Context, p session.Principal, transactionID string) (*domain.Transaction, error) {
	return s.repo.FindByID(ctx, p.AccountID, transactionID)
}

func (s *TransactionService) ListTransactions(ctx context.Context, p session.Principal, filter domain.TransactionFilter) (*TransactionPage, error) {
	if filter.Type != "" && !domain.IsValidTransactionType(filter.Type) {
		return nil, financeErrors.NewValidationError("Invalid transaction type")
	}
	if filter.CategoryID != "" {
		if _, err := uuid.Parse(filter.CategoryID); err != nil {
			return nil, financeErrors.NewValidationError("Invalid category ID")
		}
	}
	if filter.Page > MaxPage {
		return nil, financeErrors.NewValidationError("Invalid page value")
	}
	if !filter.StartDate.IsZero() && !filter.EndDate.IsZero() && filter.StartDate.After(filter.EndDate) {
		return nil, financeErrors.ErrInvalidDateRange
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	transactions, total, err := s.repo.List(ctx, p.AccountID, filter)
	if err != nil {
		return nil, err
	}
	if transactions == nil {
		transactions = []domain.Transaction{}
	}
	return &TransactionPage{Transactions: transactions, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *TransactionService) UpdateTransaction(ctx context.Context, p session.Principal, transactionID string, input domain.TransactionInput) (*domain.Transaction, error) {
	if !p.CanWrite() {
		return nil, financeErrors.ErrReadOnly
	}
	existing, err := s.repo.FindByID(ctx, p.AccountID, transactionID)
	if err != nil {
		return nil, err
	}
	updated, err := s.fromInput(p, input)
	if err != nil {
		return nil, err
	}

	existing.Type = updated.Type
	existing.Amount = updated.Amount
	existing.CategoryID = updated.CategoryID
	existing.Description = updated.Description
	if input.Date != "" {
		existing.Date = updated.Date
	}
	existing.RoundToTwoDecimalPlaces()
	if err := existing.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, existing); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *TransactionService) DeleteTransaction(ctx context.Context, p session.Principal, transactionID string) error {
	if !p.CanWrite() {
		return financeErrors.ErrReadOnly
	}
	return s.repo.Delete(ctx, p.AccountID, transactionID)
}

func (s *TransactionService) fromInput(p session.Principal, input domain.TransactionInput) (*domain.Transaction, error) {
	date := domain.Today(s.now())
	if input.Date != "" {
		parsed, err := domain.ParseDate(input.Date)
		if err != nil {
			return nil, financeErrors.ErrInvalidDate
		}
		date = parsed
	}
	categoryID := input.CategoryID
	if categoryID != nil && strings.TrimSpace(*categoryID) == "" {
		categoryID = nil
	}
	return &domain.Transaction{
		AccountID:   p.AccountID,
		AddedBy:     addedBy(p),
		Type:        input.Type,
		Amount:      input.Amount,
		CategoryID:  categoryID,
		Description: strings.TrimSpace(input.Description),
		Date:        date,
	}, nil
}

func (s *TransactionService) checkCategory(ctx context.Context, transaction *domain.Transaction) error {
	if transaction.CategoryID == nil {
		return nil
	}
	exists, err := s.categoryService.DoesCategoryExist(ctx, *transaction.CategoryID, transaction.AccountID)
	if err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if !exists {
		return financeErrors.ErrInvalidCategory
	}
	return nil
}

func addedBy(p session.Principal) *string {
	if p.ProfileID == "" {
		return nil
	}
	id := p.ProfileID
	return &id
}
