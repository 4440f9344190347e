package calls

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hisaabkitaab/hisaabkitaab/internal/ai"
	"github.com/hisaabkitaab/hisaabkitaab/internal/logger"
	"github.com/hisaabkitaab/hisaabkitaab/internal/profile"
	"github.com/hisaabkitaab/hisaabkitaab/internal/session"
)

// Telephony places calls and answers Twilio's webhooks.
type Telephony interface {
	Say(ctx context.Context, to, message, language string) (string, error)
	Dial(ctx context.Context, to, twimlURL, statusURL string) (string, error)
	TwiML(message, language string) (string, error)
	ValidSignature(url string, params map[string]string, signature string) bool
}

type ScriptWriter interface {
	GenerateCallScript(ctx context.Context, language string, facts ai.CallFacts) (string, error)
}

type ProfileReader interface {
	GetByID(ctx context.Context, id string) (*profile.Profile, error)
}

type Service interface {
	Schedule(ctx context.Context, p session.Principal, req ScheduleRequest) (*ScheduledCall, error)
	List(ctx context.Context, p session.Principal) ([]ScheduledCall, error)
	Cancel(ctx context.Context, p session.Principal, callID string) error
	ProcessDue(ctx context.Context) (int, error)
	Get(ctx context.Context, callID string) (*ScheduledCall, error)
	UpdateStatus(ctx context.Context, callID, twilioStatus string) error
}

type Deps struct {
	Profiles  ProfileReader
	Accounts  AccountReader
	Summaries SummaryReader
	Scripts   ScriptWriter
	Telephony Telephony
	// PublicBaseURL lets Twilio fetch TwiML and post status updates. Without
	// it calls carry inline TwiML and no status callback.
	PublicBaseURL string
}

type service struct {
	repo Repository
	deps Deps
	now  func() time.Time
}

func NewCallService(repo Repository, deps Deps) Service {
	deps.PublicBaseURL = strings.TrimRight(deps.PublicBaseURL, "/")
	return &service{repo: repo, deps: deps, now: time.Now}
}

func (s *service) Schedule(ctx context.Context, p session.Principal, req ScheduleRequest) (*ScheduledCall, error) {
	if s.deps.Telephony == nil {
		return nil, ErrTelephonyUnavailable
	}
	prof, err := s.deps.Profiles.GetByID(ctx, p.ProfileID)
	if err != nil {
		return nil, err
	}

	phone, err := targetNumber(p, prof, strings.TrimSpace(req.PhoneNumber))
	if err != nil {
		return nil, err
	}

	language := req.Language
	if language == "" {
		language = prof.Language
	}
	if !profile.IsValidLanguage(language) {
		return nil, ErrInvalidLanguage
	}

	now := s.now()
	scheduledFor := now
	if req.ScheduledFor != nil && !req.Immediate {
		scheduledFor = req.ScheduledFor.UTC()
		if scheduledFor.Before(now.Add(-time.Minute)) || scheduledFor.After(now.Add(maxScheduleAhead)) {
			return nil, ErrInvalidSchedule
		}
	}

	message := strings.TrimSpace(req.Message)
	if len([]rune(message)) > maxMessageLength {
		return nil, ErrMessageTooLong
	}
	if message == "" {
		if message, err = s.script(ctx, p, language, now); err != nil {
			return nil, err
		}
	}

	profileID := p.ProfileID
	call := &ScheduledCall{
		AccountID:    p.AccountID,
		ProfileID:    &profileID,
		PhoneNumber:  phone,
		Message:      message,
		Language:     language,
		ScheduledFor: scheduledFor,
	}
	if err := s.repo.insert(ctx, call); err != nil {
		return nil, err
	}
	if req.Immediate {
		s.place(ctx, call)
	}
	return call, nil
}

// targetNumber defaults to the caller's verified phone. Other numbers are
// reserved for owners and admins.
func targetNumber(p session.Principal, prof *profile.Profile, requested string) (string, error) {
	if requested == "" || requested == prof.Phone {
		if prof.Phone == "" || !prof.PhoneVerified {
			return "", ErrPhoneNotVerified
		}
		return prof.Phone, nil
	}
	if !profile.IsValidPhone(requested) {
		return "", ErrInvalidPhone
	}
	if !p.CanManageMembers() {
		return "", ErrForeignNumber
	}
	return requested, nil
}

func (s *service) script(ctx context.Context, p session.Principal, language string, now time.Time) (string, error) {
	if s.deps.Scripts == nil {
		return "", ai.ErrNotConfigured
	}
	facts, err := monthFacts(ctx, s.deps.Summaries, s.deps.Accounts, p, now)
	if err != nil {
		return "", err
	}
	return s.deps.Scripts.GenerateCallScript(ctx, language, facts)
}

func (s *service) List(ctx context.Context, p session.Principal) ([]ScheduledCall, error) {
	calls, err := s.repo.listForAccount(ctx, p.AccountID, listLimit)
	if err != nil {
		return nil, err
	}
	if calls == nil {
		calls = []ScheduledCall{}
	}
	return calls, nil
}

func (s *service) Cancel(ctx context.Context, p session.Principal, callID string) error {
	deleted, err := s.repo.deletePending(ctx, p.AccountID, callID)
	if err != nil {
		return err
	}
	if deleted {
		return nil
	}
	call, err := s.repo.get(ctx, callID)
	if err != nil || call.AccountID != p.AccountID {
		return ErrCallNotFound
	}
	return ErrNotPending
}

func (s *service) Get(ctx context.Context, callID string) (*ScheduledCall, error) {
	return s.repo.get(ctx, callID)
}

// ProcessDue places every pending call whose time has come, one batch per
// run. Rows are not leased: overlapping runs may place a call twice.
func (s *service) ProcessDue(ctx context.Context) (int, error) {
	if s.deps.Telephony == nil {
		return 0, ErrTelephonyUnavailable
	}
	due, err := s.repo.listDue(ctx, s.now(), dueBatchSize)
	if err != nil {
		return 0, err
	}
	for i := range due {
		s.place(ctx, &due[i])
	}
	return len(due), nil
}

// place dials the call and records the outcome on the row.
func (s *service) place(ctx context.Context, call *ScheduledCall) {
	log := logger.FromContext(ctx).With().Str("call_id", call.ID).Logger()

	var sid string
	var err error
	if s.deps.PublicBaseURL != "" {
		sid, err = s.deps.Telephony.Dial(ctx, call.PhoneNumber,
			fmt.Sprintf("%s/api/telephony/twiml/%s", s.deps.PublicBaseURL, call.ID),
			fmt.Sprintf("%s/api/telephony/status/%s", s.deps.PublicBaseURL, call.ID))
	} else {
		sid, err = s.deps.Telephony.Say(ctx, call.PhoneNumber, call.Message, call.Language)
	}

	if err != nil {
		log.Warn().Err(err).Msg("Placing call failed")
		call.Status, call.Error = StatusFailed, err.Error()
		if err := s.repo.markFailed(ctx, call.ID, err.Error()); err != nil {
			log.Error().Err(err).Msg("Recording failed call")
		}
		return
	}
	call.Status, call.CallSID = StatusCompleted, sid
	if err := s.repo.markCompleted(ctx, call.ID, sid); err != nil {
		log.Error().Err(err).Msg("Recording placed call")
	}
}

// UpdateStatus applies a Twilio status callback. Intermediate statuses are
// ignored.
func (s *service) UpdateStatus(ctx context.Context, callID, twilioStatus string) error {
	if _, err := s.repo.get(ctx, callID); err != nil {
		return err
	}
	switch statusFromTwilio(twilioStatus) {
	case StatusCompleted:
		return s.repo.markCompleted(ctx, callID, "")
	case StatusFailed:
		return s.repo.markFailed(ctx, callID, "call "+twilioStatus)
	}
	return nil
}
