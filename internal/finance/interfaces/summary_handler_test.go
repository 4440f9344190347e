package interfaces

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mustDate(s string) time.Time {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seeded() *fixture {
	f := newFixture()
	food := foodID
	by := "prof-1"
	f.repo.Members = map[string]string{"prof-1": "Ayesha"}
	f.repo.Transactions = []domain.Transaction{
		{ID: "t1", AccountID: testAccountID, Type: domain.TypeIncome, Amount: mustDecimal("1000"), Date: mustDate("2025-03-01"), Source: domain.SourceManual, AddedBy: &by},
		{ID: "t2", AccountID: testAccountID, Type: domain.TypeExpense, Amount: mustDecimal("250"), Date: mustDate("2025-03-02"), Source: domain.SourceVoice, CategoryID: &food, CategoryName: "Food", AddedByName: "Ayesha"},
		{ID: "t3", AccountID: testAccountID, Type: domain.TypeExpense, Amount: mustDecimal("75"), Date: mustDate("2025-01-20"), Source: domain.SourceManual},
	}
	return f
}

func TestGetMonthlySummary(t *testing.T) {
	mux := seeded().mux(owner())

	w := do(mux, http.MethodGet, "/summary/monthly", "")
	require.Equal(t, http.StatusOK, w.Code)
	var summary domain.YearSummary
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &summary))
	assert.Equal(t, 2025, summary.Year)
	assert.Equal(t, "675", summary.Balance.String())
	assert.Equal(t, "75", summary.Months[0].ExpenseTotal.String())

	assert.Equal(t, http.StatusBadRequest, do(mux, http.MethodGet, "/summary/monthly?year=twenty", "").Code)
}

func TestGetCategoryAndMemberSummary(t *testing.T) {
	mux := seeded().mux(owner())

	w := do(mux, http.MethodGet, "/summary/categories", "")
	require.Equal(t, http.StatusOK, w.Code)
	var categories []domain.TransactionByCategorySummary
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &categories))
	require.Len(t, categories, 1)
	assert.Equal(t, "Food", categories[0].CategoryName)

	w = do(mux, http.MethodGet, "/summary/members?start_date=2025-01-01&end_date=2025-03-31", "")
	require.Equal(t, http.StatusOK, w.Code)
	var members []domain.TransactionByMemberSummary
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &members))
	require.Len(t, members, 2)
	assert.Equal(t, "Ayesha", members[0].Name)
	assert.Equal(t, "Unknown", members[1].Name)

	assert.Equal(t, http.StatusBadRequest, do(mux, http.MethodGet, "/summary/categories?type=gift", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(mux, http.MethodGet, "/summary/members?end_date=2025-02-30", "").Code)
}

func TestGetOverview(t *testing.T) {
	w := do(seeded().mux(owner()), http.MethodGet, "/summary/overview", "")
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		StartDate string          `json:"start_date"`
		Overview  domain.Overview `json:"overview"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.Equal(t, "2025-03-01", data.StartDate)
	assert.Equal(t, "750", data.Overview.Balance.String())
	assert.Equal(t, 2, data.Overview.Count)
}

func TestExport(t *testing.T) {
	mux := seeded().mux(owner())

	w := do(mux, http.MethodGet, "/export?format=csv&start_date=2025-01-01&end_date=2025-03-31", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="hisaabkitaab-2025-01-01-2025-03-31.csv"`, w.Header().Get("Content-Disposition"))
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "Date,Type,Category"))

	w = do(mux, http.MethodGet, "/export?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
