package interfaces

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/application"
	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/domain"
	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/infrastructure"
	"github.com/hisaabkitaab/hisaabkitaab/internal/middleware"
	"github.com/hisaabkitaab/hisaabkitaab/internal/session"
	"github.com/stretchr/testify/require"
)

const (
	testAccountID = "acc-1"
	foodID        = "11111111-1111-1111-1111-111111111111"
	otherID       = "33333333-3333-3333-3333-333333333333"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Code    int             `json:"code"`
	Details []string        `json:"details"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var body envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func owner() session.Principal {
	return session.Principal{ProfileID: "prof-1", AccountID: testAccountID, Language: "en", Role: session.RoleOwner}
}

func viewer() session.Principal {
	p := owner()
	p.Role = session.RoleViewer
	return p
}

func withPrincipal(p session.Principal, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p.ProfileID != "" {
			r = r.WithContext(session.WithPrincipal(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}

type fixture struct {
	repo         *infrastructure.MockTransactionRepository
	categories   *application.CategoryService
	transactions *application.TransactionService
	summaries    *application.SummaryService
}

func newFixture() *fixture {
	repo := &infrastructure.MockTransactionRepository{Categories: map[string]string{foodID: "Food"}}
	categories := application.NewCategoryService(&infrastructure.MockCategoryRepository{Categories: []domain.Category{
		{ID: foodID, NameEn: "Food", NameUr: "کھانا", Type: domain.TypeExpense},
		{ID: otherID, NameEn: "Other", Type: domain.CategoryTypeBoth},
	}})
	return &fixture{
		repo:         repo,
		categories:   categories,
		transactions: application.NewTransactionService(repo, categories),
		summaries:    application.NewSummaryService(repo),
	}
}

func (f *fixture) mux(p session.Principal) http.Handler {
	transactions := NewTransactionHandler(f.transactions, middleware.RespondJSON, middleware.RespondError)
	categories := NewCategoryHandler(f.categories, middleware.RespondJSON, middleware.RespondError)
	summaries := NewSummaryHandler(f.summaries, middleware.RespondJSON, middleware.RespondError)
	summaries.now = func() time.Time { return time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC) }
	exports := NewExportHandler(application.NewExportService(f.repo), middleware.RespondError)
	exports.now = summaries.now

	withID := middleware.ValidateUUIDPathParams(middleware.RespondError, "transactionID")
	mux := http.NewServeMux()
	mux.HandleFunc("GET /transactions", transactions.ListTransactions)
	mux.HandleFunc("POST /transactions", transactions.CreateTransaction)
	mux.Handle("GET /transactions/{transactionID}", withID(http.HandlerFunc(transactions.GetTransaction)))
	mux.Handle("PUT /transactions/{transactionID}", withID(http.HandlerFunc(transactions.UpdateTransaction)))
	mux.Handle("DELETE /transactions/{transactionID}", withID(http.HandlerFunc(transactions.DeleteTransaction)))
	mux.HandleFunc("GET /categories", categories.GetCategories)
	mux.HandleFunc("POST /categories", categories.CreateCategory)
	mux.HandleFunc("GET /summary/monthly", summaries.GetMonthlySummary)
	mux.HandleFunc("GET /summary/categories", summaries.GetCategorySummary)
	mux.HandleFunc("GET /summary/members", summaries.GetMemberSummary)
	mux.HandleFunc("GET /summary/overview", summaries.GetOverview)
	mux.HandleFunc("GET /export", exports.Export)
	return withPrincipal(p, mux)
}
