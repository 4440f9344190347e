// Package calls schedules and places outbound phone calls that read a
// short finance summary to the user.
package calls

import (
	"errors"
	"time"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"

	dueBatchSize     = 20
	listLimit        = 50
	maxMessageLength = 1200
	maxScheduleAhead = 90 * 24 * time.Hour
)

var (
	ErrCallNotFound         = errors.New("call not found")
	ErrNotPending           = errors.New("only pending calls can be cancelled")
	ErrPhoneNotVerified     = errors.New("verify your phone number before scheduling calls")
	ErrInvalidPhone         = errors.New("phone number must be in E.164 format, e.g. +923001234567")
	ErrForeignNumber        = errors.New("only account owners and admins can call other numbers")
	ErrInvalidLanguage      = errors.New("language must be 'en' or 'ur'")
	ErrMessageTooLong       = errors.New("message must be at most 1200 characters")
	ErrInvalidSchedule      = errors.New("scheduled_for must be within the next 90 days")
	ErrTelephonyUnavailable = errors.New("phone calls are not configured")
)

type ScheduledCall struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	ProfileID    *string   `json:"profile_id"`
	PhoneNumber  string    `json:"phone_number"`
	Message      string    `json:"message"`
	Language     string    `json:"language"`
	Status       string    `json:"status"`
	ScheduledFor time.Time `json:"scheduled_for"`
	CallSID      string    `json:"call_sid,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ScheduleRequest struct {
	PhoneNumber  string     `json:"phone_number"`
	Message      string     `json:"message"`
	Language     string     `json:"language"`
	ScheduledFor *time.Time `json:"scheduled_for"`
	Immediate    bool       `json:"immediate"`
}

// statusFromTwilio maps a Twilio CallStatus onto a call status. Intermediate
// states return "".
func statusFromTwilio(callStatus string) string {
	switch callStatus {
	case "completed":
		return StatusCompleted
	case "busy", "failed", "no-answer", "canceled":
		return StatusFailed
	}
	return ""
}
