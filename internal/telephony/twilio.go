// Package telephony places outbound voice calls through Twilio.
package telephony

import (
	"context"
	"errors"
	"fmt"

	"github.com/hisaabkitaab/hisaabkitaab/internal/logger"
	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/twilio/twilio-go/twiml"
)

var ErrNoCallSid = errors.New("twilio returned no call sid")

type voice struct {
	language string
	name     string
}

// Urdu has no Polly voice; Google's ur-IN voice reads Urdu script.
var voices = map[string]voice{
	"en": {language: "en-US", name: "Polly.Joanna"},
	"ur": {language: "ur-IN", name: "Google.ur-IN-Standard-A"},
}

type callCreator interface {
	CreateCall(params *twilioApi.CreateCallParams) (*twilioApi.ApiV2010Call, error)
}

type Config struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

type Client struct {
	calls     callCreator
	validator twilioclient.RequestValidator
	from      string
}

func NewClient(cfg Config) *Client {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newClient(rest.Api, cfg)
}

func newClient(calls callCreator, cfg Config) *Client {
	return &Client{
		calls:     calls,
		validator: twilioclient.NewRequestValidator(cfg.AuthToken),
		from:      cfg.FromNumber,
	}
}

// Say calls to and reads message with inline TwiML.
func (c *Client) Say(ctx context.Context, to, message, language string) (string, error) {
	doc, err := c.TwiML(message, language)
	if err != nil {
		return "", err
	}
	params := &twilioApi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(c.from)
	params.SetTwiml(doc)
	return c.create(ctx, params)
}

// Dial calls to and lets Twilio fetch the TwiML from twimlURL. statusURL may
// be empty.
func (c *Client) Dial(ctx context.Context, to, twimlURL, statusURL string) (string, error) {
	params := &twilioApi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(c.from)
	params.SetUrl(twimlURL)
	params.SetMethod("POST")
	if statusURL != "" {
		params.SetStatusCallback(statusURL)
		params.SetStatusCallbackMethod("POST")
		params.SetStatusCallbackEvent([]string{"completed"})
	}
	return c.create(ctx, params)
}

func (c *Client) create(ctx context.Context, params *twilioApi.CreateCallParams) (string, error) {
	resp, err := c.calls.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("create call: %w", err)
	}
	if resp == nil || resp.Sid == nil {
		return "", ErrNoCallSid
	}
	logger.FromContext(ctx).Info().Str("call_sid", *resp.Sid).Msg("Outbound call placed")
	return *resp.Sid, nil
}

// TwiML renders a <Say> document for message in the given language.
func (c *Client) TwiML(message, language string) (string, error) {
	v, ok := voices[language]
	if !ok {
		v = voices["en"]
	}
	say := &twiml.VoiceSay{
		Message:  message,
		Language: v.language,
		Voice:    v.name,
	}
	pause := &twiml.VoicePause{Length: "1"}
	doc, err := twiml.Voice([]twiml.Element{say, pause, &twiml.VoiceHangup{}})
	if err != nil {
		return "", fmt.Errorf("render twiml: %w", err)
	}
	return doc, nil
}

// ValidSignature checks the X-Twilio-Signature of a webhook request.
func (c *Client) ValidSignature(url string, params map[string]string, signature string) bool {
	return c.validator.Validate(url, params, signature)
}
