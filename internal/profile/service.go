package profile

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hisaabkitaab/hisaabkitaab/internal/logger"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	LanguageEnglish = "en"
	LanguageUrdu    = "ur"

	maxNameLength   = 100
	phoneCodePeriod = 300
	phoneCodeIssuer = "HisaabKitaab"
)

var (
	ErrInvalidLanguage      = errors.New("language must be 'en' or 'ur'")
	ErrInvalidPhone         = errors.New("phone number must be in E.164 format, e.g. +923001234567")
	ErrNameTooLong          = fmt.Errorf("full name is too long, max length: %d", maxNameLength)
	ErrMissingExternalID    = errors.New("identity has no user id")
	ErrNoPhone              = errors.New("profile has no phone number")
	ErrNoPendingPhoneCode   = errors.New("no phone verification requested")
	ErrInvalidPhoneCode     = errors.New("invalid or expired verification code")
	ErrPhoneAlreadyVerified = errors.New("phone number already verified")
	ErrTelephonyUnavailable = errors.New("phone calls are not configured")
)

var phonePattern = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

type Profile struct {
	ID             string    `json:"id"`
	ExternalID     string    `json:"external_id"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name"`
	Phone          string    `json:"phone"`
	PhoneVerified  bool      `json:"phone_verified"`
	PhoneOTPSecret string    `json:"-"`
	Language       string    `json:"language"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DisplayName is the name shown to other account members.
func (p *Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	if at := strings.Index(p.Email, "@"); at > 0 {
		return p.Email[:at]
	}
	return "Unknown"
}

// Identity is what the identity provider tells us about a user.
type Identity struct {
	ExternalID string
	Email      string
	FullName   string
	Phone      string
}

type UpdateRequest struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	Language *string `json:"language"`
}

// InvitationLinker attaches pending account invitations to a newly seen profile.
type InvitationLinker interface {
	LinkPendingInvitations(ctx context.Context, profileID, email string) (int, error)
}

// VoiceNotifier reads a short message to a phone number.
type VoiceNotifier interface {
	Say(ctx context.Context, to, message, language string) (string, error)
}

type Service interface {
	GetOrCreate(ctx context.Context, identity Identity) (*Profile, error)
	GetByID(ctx context.Context, id string) (*Profile, error)
	UpsertFromIdentity(ctx context.Context, identity Identity) (*Profile, error)
	DeleteByExternalID(ctx context.Context, externalID string) error
	Update(ctx context.Context, id string, req UpdateRequest) (*Profile, error)
	RequestPhoneVerification(ctx context.Context, id string) error
	ConfirmPhoneVerification(ctx context.Context, id, code string) error
}

type service struct {
	repo   Repository
	linker InvitationLinker
	voice  VoiceNotifier
	now    func() time.Time
}

func NewProfileService(repo Repository, linker InvitationLinker, voice VoiceNotifier) Service {
	return &service{
		repo:   repo,
		linker: linker,
		voice:  voice,
		now:    time.Now,
	}
}

func IsValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

func IsValidLanguage(language string) bool {
	return language == LanguageEnglish || language == LanguageUrdu
}

func (s *service) GetOrCreate(ctx context.Context, identity Identity) (*Profile, error) {
	if identity.ExternalID == "" {
		return nil, ErrMissingExternalID
	}

	p, err := s.repo.getByExternalID(ctx, identity.ExternalID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}

	p, created, err := s.repo.createIfMissing(ctx, normalizeIdentity(identity))
	if err != nil {
		return nil, err
	}
	if created {
		logger.FromContext(ctx).Info().Str("profile_id", p.ID).Msg("Provisioned profile")
		s.linkInvitations(ctx, p)
	}
	return p, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Profile, error) {
	return s.repo.getByID(ctx, id)
}

func (s *service) UpsertFromIdentity(ctx context.Context, identity Identity) (*Profile, error) {
	if identity.ExternalID == "" {
		return nil, ErrMissingExternalID
	}
	p, err := s.repo.upsertIdentity(ctx, normalizeIdentity(identity))
	if err != nil {
		return nil, err
	}
	s.linkInvitations(ctx, p)
	return p, nil
}

func (s *service) DeleteByExternalID(ctx context.Context, externalID string) error {
	if externalID == "" {
		return ErrMissingExternalID
	}
	deleted, err := s.repo.deleteByExternalID(ctx, externalID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrProfileNotFound
	}
	return nil
}

func (s *service) Update(ctx context.Context, id string, req UpdateRequest) (*Profile, error) {
	p, err := s.repo.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if len([]rune(name)) > maxNameLength {
			return nil, ErrNameTooLong
		}
		p.FullName = name
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		if phone != "" && !IsValidPhone(phone) {
			return nil, ErrInvalidPhone
		}
		if phone != p.Phone {
			p.Phone = phone
			p.PhoneVerified = false
			p.PhoneOTPSecret = ""
		}
	}
	if req.Language != nil {
		if !IsValidLanguage(*req.Language) {
			return nil, ErrInvalidLanguage
		}
		p.Language = *req.Language
	}

	if err := s.repo.update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// RequestPhoneVerification stores a fresh TOTP secret and reads the current
// code to the profile's phone.
func (s *service) RequestPhoneVerification(ctx context.Context, id string) error {
	if s.voice == nil {
		return ErrTelephonyUnavailable
	}
	p, err := s.repo.getByID(ctx, id)
	if err != nil {
		return err
	}
	if p.Phone == "" {
		return ErrNoPhone
	}
	if p.PhoneVerified {
		return ErrPhoneAlreadyVerified
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      phoneCodeIssuer,
		AccountName: p.ID,
		Period:      phoneCodePeriod,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return fmt.Errorf("generate phone secret: %w", err)
	}
	code, err := totp.GenerateCodeCustom(key.Secret(), s.now(), phoneCodeOpts())
	if err != nil {
		return fmt.Errorf("generate phone code: %w", err)
	}

	if err := s.repo.savePhoneSecret(ctx, p.ID, p.Phone, key.Secret()); err != nil {
		return err
	}
	if _, err := s.voice.Say(ctx, p.Phone, phoneCodeMessage(code, p.Language), p.Language); err != nil {
		return fmt.Errorf("call phone: %w", err)
	}
	return nil
}

func (s *service) ConfirmPhoneVerification(ctx context.Context, id, code string) error {
	p, err := s.repo.getByID(ctx, id)
	if err != nil {
		return err
	}
	if p.PhoneVerified {
		return ErrPhoneAlreadyVerified
	}
	if p.PhoneOTPSecret == "" {
		return ErrNoPendingPhoneCode
	}

	valid, err := totp.ValidateCustom(strings.TrimSpace(code), p.PhoneOTPSecret, s.now(), phoneCodeOpts())
	if err != nil || !valid {
		return ErrInvalidPhoneCode
	}
	return s.repo.setPhoneVerified(ctx, p.ID, true)
}

func (s *service) linkInvitations(ctx context.Context, p *Profile) {
	if s.linker == nil || p.Email == "" {
		return
	}
	n, err := s.linker.LinkPendingInvitations(ctx, p.ID, p.Email)
	if err != nil {
		// the invitee can still accept by token
		logger.FromContext(ctx).Warn().Err(err).Str("profile_id", p.ID).Msg("Linking pending invitations failed")
		return
	}
	if n > 0 {
		logger.FromContext(ctx).Info().Str("profile_id", p.ID).Int("invitations", n).Msg("Linked pending invitations")
	}
}

func phoneCodeOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    phoneCodePeriod,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// phoneCodeMessage spaces the digits so text-to-speech reads them one by one.
func phoneCodeMessage(code, language string) string {
	spaced := strings.Join(strings.Split(code, ""), ", ")
	if language == LanguageUrdu {
		return "آپ کا حساب کتاب تصدیقی کوڈ ہے: " + spaced + ". دوبارہ: " + spaced
	}
	return "Your HisaabKitaab verification code is: " + spaced + ". Again: " + spaced
}

func normalizeIdentity(identity Identity) Identity {
	identity.Email = strings.ToLower(strings.TrimSpace(identity.Email))
	identity.FullName = strings.TrimSpace(identity.FullName)
	identity.Phone = strings.TrimSpace(identity.Phone)
	if identity.Phone != "" && !IsValidPhone(identity.Phone) {
		identity.Phone = ""
	}
	return identity
}
