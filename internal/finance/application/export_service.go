package application

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/domain"
	financeErrors "github.com/hisaabkitaab/hisaabkitaab/internal/finance/errors"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

var csvHeader = []string{"Date", "Type", "Category", "Description", "Amount", "Source", "Added By"}

type Statement struct {
	Filename    string
	ContentType string
	Body        []byte
}

type statementRow struct {
	Date        string `json:"date"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Source      string `json:"source"`
	AddedBy     string `json:"added_by"`
}

type ExportService struct {
	repo domain.TransactionRepository
}

func NewExportService(repo domain.TransactionRepository) *ExportService {
	return &ExportService{repo: repo}
}

// Export renders the account's transactions between the two dates, oldest
// first, as a downloadable statement.
func (s *ExportService) Export(ctx context.Context, accountID, format string, startDate, endDate time.Time) (*Statement, error) {
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatJSON {
		return nil, financeErrors.ErrInvalidExportFormat
	}
	if startDate.After(endDate) {
		return nil, financeErrors.ErrInvalidDateRange
	}

	transactions, err := s.repo.GetTransactionsInDateRange(ctx, accountID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	rows := make([]statementRow, 0, len(transactions))
	for _, t := range transactions {
		rows = append(rows, toStatementRow(t))
	}

	base := fmt.Sprintf("hisaabkitaab-%s-%s", startDate.Format(domain.DateLayout), endDate.Format(domain.DateLayout))
	if format == FormatJSON {
		body, err := json.MarshalIndent(map[string]interface{}{
			"start_date":   startDate.Format(domain.DateLayout),
			"end_date":     endDate.Format(domain.DateLayout),
			"transactions": rows,
		}, "", "  ")
		if err != nil {
			return nil, err
		}
		return &Statement{Filename: base + ".json", ContentType: "application/json", Body: body}, nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := w.Write([]string{r.Date, r.Type, csvText(r.Category), csvText(r.Description), r.Amount, r.Source, csvText(r.AddedBy)}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return &Statement{Filename: base + ".csv", ContentType: "text/csv; charset=utf-8", Body: buf.Bytes()}, nil
}

// csvText keeps spreadsheets from evaluating free text as a formula.
func csvText(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

func toStatementRow(t domain.Transaction) statementRow {
	category := t.CategoryName
	if category == "" {
		category = domain.FallbackCategory
	}
	addedBy := t.AddedByName
	if addedBy == "" {
		addedBy = "Unknown"
	}
	return statementRow{
		Date:        t.Date.Format(domain.DateLayout),
		Type:        t.Type,
		Category:    category,
		Description: t.Description,
		Amount:      t.Amount.StringFixed(2),
		Source:      t.Source,
		AddedBy:     addedBy,
	}
}
