package calls

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/hisaabkitaab/hisaabkitaab/internal/account"
	"github.com/hisaabkitaab/hisaabkitaab/internal/ai"
	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/domain"
	"github.com/hisaabkitaab/hisaabkitaab/internal/profile"
	"github.com/shopspring/decimal"
)

type mockRepository struct {
	calls    map[string]*ScheduledCall
	seq      int
	failWith error
}

func newMockRepository() *mockRepository {
	return &mockRepository{calls: map[string]*ScheduledCall{}}
}

func (m *mockRepository) insert(_ context.Context, c *ScheduledCall) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.seq++
	c.ID = "00000000-0000-0000-0000-00000000000" + strconv.Itoa(m.seq)
	c.Status = StatusPending
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.calls[c.ID] = &cp
	return nil
}

func (m *mockRepository) get(_ context.Context, id string) (*ScheduledCall, error) {
	c, ok := m.calls[id]
	if !ok {
		return nil, ErrCallNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockRepository) listForAccount(_ context.Context, accountID string, limit int) ([]ScheduledCall, error) {
	var out []ScheduledCall
	for _, c := range m.calls {
		if c.AccountID == accountID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.After(out[j].ScheduledFor) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockRepository) listDue(_ context.Context, now time.Time, limit int) ([]ScheduledCall, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []ScheduledCall
	for _, c := range m.calls {
		if c.Status == StatusPending && !c.ScheduledFor.After(now) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockRepository) markCompleted(_ context.Context, id, callSID string) error {
	c, ok := m.calls[id]
	if !ok {
		return ErrCallNotFound
	}
	c.Status, c.Error = StatusCompleted, ""
	if callSID != "" {
		c.CallSID = callSID
	}
	return nil
}

func (m *mockRepository) markFailed(_ context.Context, id, reason string) error {
	c, ok := m.calls[id]
	if !ok {
		return ErrCallNotFound
	}
	c.Status, c.Error = StatusFailed, reason
	return nil
}

func (m *mockRepository) deletePending(_ context.Context, accountID, id string) (bool, error) {
	c, ok := m.calls[id]
	if !ok || c.AccountID != accountID || c.Status != StatusPending {
		return false, nil
	}
	delete(m.calls, id)
	return true, nil
}

type fakeTelephony struct {
	said      []string
	dialed    []string
	failWith  error
	validSigs bool
}

func (f *fakeTelephony) Say(_ context.Context, to, message, language string) (string, error) {
	if f.failWith != nil {
		return "", f.failWith
	}
	f.said = append(f.said, to+"|"+language+"|"+message)
	return "CA" + strconv.Itoa(len(f.said)), nil
}

func (f *fakeTelephony) Dial(_ context.Context, to, twimlURL, statusURL string) (string, error) {
	if f.failWith != nil {
		return "", f.failWith
	}
	f.dialed = append(f.dialed, to+"|"+twimlURL+"|"+statusURL)
	return "CD" + strconv.Itoa(len(f.dialed)), nil
}

func (f *fakeTelephony) TwiML(message, language string) (string, error) {
	return `<?xml version="1.0" encoding="UTF-8"?><Response><Say language="` + language + `">` + message + `</Say></Response>`, nil
}

func (f *fakeTelephony) ValidSignature(_ string, _ map[string]string, signature string) bool {
	return f.validSigs || signature == "good"
}

type fakeProfiles map[string]*profile.Profile

func (f fakeProfiles) GetByID(_ context.Context, id string) (*profile.Profile, error) {
	p, ok := f[id]
	if !ok {
		return nil, profile.ErrProfileNotFound
	}
	return p, nil
}

type fakeAccounts struct{}

func (fakeAccounts) GetAccount(_ context.Context, accountID string) (*account.Account, error) {
	if accountID == "" {
		return nil, errors.New("no account")
	}
	return &account.Account{ID: accountID, Name: "Khan Family", Currency: "PKR"}, nil
}

type fakeSummaries struct{}

func (fakeSummaries) GetOverview(context.Context, string, time.Time, time.Time) (*domain.Overview, error) {
	return &domain.Overview{
		IncomeTotal:  decimal.RequireFromString("85000"),
		ExpenseTotal: decimal.RequireFromString("42350.50"),
		Balance:      decimal.RequireFromString("42649.50"),
		Count:        31,
	}, nil
}

func (fakeSummaries) GetCategorySummary(context.Context, string, string, time.Time, time.Time) ([]domain.TransactionByCategorySummary, error) {
	return []domain.TransactionByCategorySummary{
		{CategoryName: "Transport", TotalAmount: decimal.RequireFromString("5000")},
		{CategoryName: "Food", TotalAmount: decimal.RequireFromString("20000")},
		{CategoryName: "Bills", TotalAmount: decimal.RequireFromString("12000")},
		{CategoryName: "Other", TotalAmount: decimal.RequireFromString("350.50")},
	}, nil
}

type fakeScripts struct {
	language string
	facts    ai.CallFacts
}

func (f *fakeScripts) GenerateCallScript(_ context.Context, language string, facts ai.CallFacts) (string, error) {
	f.language = language
	f.facts = facts
	return "Assalam o alaikum, this month you spent 42351 rupees.", nil
}
