package interfaces

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/application"
	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/domain"
	"github.com/hisaabkitaab/hisaabkitaab/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	h.ServeHTTP(w, req)
	return w
}

func TestCreateTransaction_Created(t *testing.T) {
	f := newFixture()

	w := do(f.mux(owner()), http.MethodPost, "/transactions",
		`{"type":"expense","amount":"250.50","category_id":"`+foodID+`","description":"Sabzi","date":"2025-03-10"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	body := decode(t, w)
	assert.Equal(t, "success", body.Status)
	var created domain.Transaction
	require.NoError(t, json.Unmarshal(body.Data, &created))
	assert.Equal(t, "250.5", created.Amount.String())
	assert.Equal(t, domain.SourceManual, created.Source)
	assert.Len(t, f.repo.Transactions, 1)
}

func TestCreateTransaction_NumericAmount(t *testing.T) {
	f := newFixture()
	w := do(f.mux(owner()), http.MethodPost, "/transactions", `{"type":"income","amount":1200}`)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateTransaction_Errors(t *testing.T) {
	tests := []struct {
		name   string
		p      session.Principal
		body   string
		status int
	}{
		{"unauthenticated", session.Principal{}, `{"type":"income","amount":1}`, http.StatusUnauthorized},
		{"invalid body", owner(), `not json`, http.StatusBadRequest},
		{"zero amount", owner(), `{"type":"income","amount":0}`, http.StatusBadRequest},
		{"bad category", owner(), `{"type":"income","amount":1,"category_id":"nope"}`, http.StatusBadRequest},
		{"viewer", viewer(), `{"type":"income","amount":1}`, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newFixture().mux(tt.p), http.MethodPost, "/transactions", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "error", decode(t, w).Status)
		})
	}
}

func TestListTransactions_QueryValidation(t *testing.T) {
	mux := newFixture().mux(owner())

	for _, target := range []string{
		"/transactions?type=transfer",
		"/transactions?start_date=03-01-2025",
		"/transactions?limit=-1",
		"/transactions?page=abc",
		"/transactions?category_id=abc",
		"/transactions?page=9223372036854775807",
		"/transactions?page=10001",
		"/transactions?start_date=2025-04-01&end_date=2025-03-01",
	} {
		w := do(mux, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestListTransactions_Page(t *testing.T) {
	f := newFixture()
	mux := f.mux(owner())
	for _, amount := range []string{"1", "2", "3"} {
		require.Equal(t, http.StatusCreated, do(mux, http.MethodPost, "/transactions", `{"type":"expense","amount":`+amount+`,"date":"2025-03-0`+amount+`"}`).Code)
	}

	w := do(mux, http.MethodGet, "/transactions?type=expense&limit=2&page=1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var page application.TransactionPage
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &page))
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Limit)
	require.Len(t, page.Transactions, 2)
	assert.Equal(t, "2025-03-03", page.Transactions[0].Date.Format(domain.DateLayout))
}

func TestTransactionByID(t *testing.T) {
	f := newFixture()
	mux := f.mux(owner())

	assert.Equal(t, http.StatusNotFound, do(mux, http.MethodGet, "/transactions/not-a-uuid", "").Code)
	assert.Equal(t, http.StatusNotFound, do(mux, http.MethodGet, "/transactions/44444444-4444-4444-4444-444444444444", "").Code)

	id := "55555555-5555-5555-5555-555555555555"
	f.repo.Transactions = append(f.repo.Transactions, domain.Transaction{
		ID: id, AccountID: testAccountID, Type: domain.TypeExpense, Amount: mustDecimal("10"),
		Date: mustDate("2025-03-01"), Source: domain.SourceManual,
	})

	w := do(mux, http.MethodGet, "/transactions/"+id, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(mux, http.MethodPut, "/transactions/"+id, `{"type":"income","amount":"99.99","description":"Refund"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "99.99", f.repo.Transactions[0].Amount.StringFixed(2))

	assert.Equal(t, http.StatusForbidden, do(f.mux(viewer()), http.MethodDelete, "/transactions/"+id, "").Code)
	assert.Equal(t, http.StatusOK, do(mux, http.MethodDelete, "/transactions/"+id, "").Code)
	assert.Empty(t, f.repo.Transactions)
}
