package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hisaabkitaab/hisaabkitaab/internal/ai"
	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/domain"
	financeErrors "github.com/hisaabkitaab/hisaabkitaab/internal/finance/errors"
	"github.com/hisaabkitaab/hisaabkitaab/internal/logger"
	"github.com/hisaabkitaab/hisaabkitaab/internal/session"
)

const MaxBillSize = 10 << 20

var allowedBillTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
}

// Extractor reads transactions out of transcripts and bill images.
type Extractor interface {
	ParseTranscript(ctx context.Context, req ai.TranscriptRequest) ([]ai.ExtractedTransaction, error)
	ExtractBill(ctx context.Context, req ai.BillRequest) (*ai.ExtractedTransaction, error)
}

// BillArchiver keeps a copy of scanned bills.
type BillArchiver interface {
	Archive(ctx context.Context, accountID, mimeType string, data []byte) (string, error)
}

type IngestionService struct {
	transactions *TransactionService
	categories   CategoryServiceInterface
	extractor    Extractor
	archive      BillArchiver
	now          func() time.Time
}

// NewIngestionService wires AI extraction into transaction creation. archive
// may be nil when no bucket is configured.
func NewIngestionService(transactions *TransactionService, categories CategoryServiceInterface, extractor Extractor, archive BillArchiver) *IngestionService {
	return &IngestionService{
		transactions: transactions,
		categories:   categories,
		extractor:    extractor,
		archive:      archive,
		now:          time.Now,
	}
}

type TranscriptResult struct {
	Transactions []domain.Transaction `json:"transactions"`
	Skipped      []string             `json:"skipped"`
}

type BillResult struct {
	Transaction *domain.Transaction `json:"transaction"`
	Preview     bool                `json:"preview"`
	ArchiveURI  string              `json:"archive_uri,omitempty"`
}

// CreateFromTranscript inserts every valid item the model finds in a voice
// transcript. Items that fail validation are reported, not inserted.
func (s *IngestionService) CreateFromTranscript(ctx context.Context, p session.Principal, transcript string) (*TranscriptResult, error) {
	if !p.CanWrite() {
		return nil, financeErrors.ErrReadOnly
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, financeErrors.ErrEmptyTranscript
	}

	categories, err := s.categories.GetCategories(ctx, p.AccountID, "")
	if err != nil {
		return nil, err
	}
	today := domain.Today(s.now())

	items, err := s.extractor.ParseTranscript(ctx, ai.TranscriptRequest{
		Transcript: transcript,
		Language:   p.Language,
		Categories: CategoryNames(categories),
		Today:      today,
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, financeErrors.ErrNothingExtracted
	}

	result := &TranscriptResult{Transactions: []domain.Transaction{}, Skipped: []string{}}
	var valid []*domain.Transaction
	for i, item := range items {
		transaction := FromExtracted(item, categories, p, domain.SourceVoice, today)
		if err := transaction.Validate(); err != nil {
			result.Skipped = append(result.Skipped, financeErrors.NewIndexedValidationError(i+1, err.Error()).Error())
			continue
		}
		valid = append(valid, transaction)
	}
	if len(valid) == 0 {
		return result, nil
	}

	if err := s.transactions.CreateTransactionsBulk(ctx, p, valid); err != nil {
		return nil, err
	}
	for _, t := range valid {
		result.Transactions = append(result.Transactions, *t)
	}
	return result, nil
}

// CreateFromBill extracts one transaction from a bill image. With preview set
// nothing is stored.
func (s *IngestionService) CreateFromBill(ctx context.Context, p session.Principal, image []byte, mimeType string, preview bool) (*BillResult, error) {
	if !preview && !p.CanWrite() {
		return nil, financeErrors.ErrReadOnly
	}
	if len(image) > MaxBillSize {
		return nil, financeErrors.ErrImageTooLarge
	}
	mimeType = NormalizeImageType(mimeType)
	if !allowedBillTypes[mimeType] || len(image) == 0 {
		return nil, financeErrors.ErrUnsupportedImage
	}

	categories, err := s.categories.GetCategories(ctx, p.AccountID, "")
	if err != nil {
		return nil, err
	}
	today := domain.Today(s.now())

	item, err := s.extractor.ExtractBill(ctx, ai.BillRequest{
		Image:      image,
		MIMEType:   mimeType,
		Language:   p.Language,
		Categories: CategoryNames(categories),
		Today:      today,
	})
	if err != nil {
		return nil, err
	}

	transaction := FromExtracted(*item, categories, p, domain.SourceBillScan, today)
	if err := transaction.Validate(); err != nil {
		return nil, err
	}
	if preview {
		return &BillResult{Transaction: transaction, Preview: true}, nil
	}

	if err := s.transactions.save(ctx, transaction); err != nil {
		return nil, err
	}

	result := &BillResult{Transaction: transaction}
	if s.archive != nil {
		uri, err := s.archive.Archive(ctx, p.AccountID, mimeType, image)
		if err != nil {
			logger.FromContext(ctx).Warn().Err(err).Str("transaction_id", transaction.ID).Msg("Archiving bill image failed")
		} else {
			result.ArchiveURI = uri
		}
	}
	return result, nil
}

// FromExtracted converts model output into a transaction. Missing or
// unparseable fields fall back to defaults instead of failing: an unknown
// type becomes an expense, a bad date becomes today.
func FromExtracted(item ai.ExtractedTransaction, categories []domain.Category, p session.Principal, source string, today time.Time) *domain.Transaction {
	transactionType := strings.ToLower(strings.TrimSpace(item.Type))
	if !domain.IsValidTransactionType(transactionType) {
		transactionType = domain.TypeExpense
	}

	date := today
	if parsed, err := domain.ParseDate(strings.TrimSpace(item.Date)); err == nil {
		date = parsed
	}

	description := strings.TrimSpace(item.Description)
	if r := []rune(description); len(r) > domain.MaxDescriptionLength {
		description = string(r[:domain.MaxDescriptionLength])
	}

	transaction := &domain.Transaction{
		AccountID:   p.AccountID,
		AddedBy:     addedBy(p),
		Type:        transactionType,
		Amount:      item.Amount.Abs(),
		CategoryID:  MatchCategory(categories, item.Category),
		Description: description,
		Date:        date,
		Source:      source,
	}
	transaction.RoundToTwoDecimalPlaces()
	return transaction
}

// NormalizeImageType maps common aliases onto the supported MIME types.
func NormalizeImageType(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mimeType, ";"); i != -1 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	switch mimeType {
	case "image/jpg", "image/pjpeg":
		return "image/jpeg"
	case "image/heif":
		return "image/heic"
	}
	return mimeType
}

func describeAmount(t *domain.Transaction) string {
	return fmt.Sprintf("%s %s", t.Type, t.Amount.StringFixed(2))
}
