package telephony

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"voice-receptionist/internal/calls"
	"voice-receptionist/internal/routing"
)

var ErrMissingField = errors.New("telephony: required webhook field missing")

// TwilioInboundForm is the subset of Twilio's voice webhook fields the router
// needs. Twilio posts application/x-www-form-urlencoded.
type TwilioInboundForm struct {
	CallSid    string
	AccountSid string
	From       string
	To         string
	Direction  string
	CallStatus string
}

func ParseTwilioInboundCall(r *http.Request) (TwilioInboundForm, error) {
	if err := r.ParseForm(); err != nil {
		return TwilioInboundForm{}, err
	}
	f := TwilioInboundForm{
		CallSid:    strings.TrimSpace(r.PostFormValue("CallSid")),
		AccountSid: strings.TrimSpace(r.PostFormValue("AccountSid")),
		From:       normalizeCaller(r.PostFormValue("From")),
		To:         NormalizeE164(r.PostFormValue("To")),
		Direction:  strings.TrimSpace(r.PostFormValue("Direction")),
		CallStatus: strings.TrimSpace(r.PostFormValue("CallStatus")),
	}
	switch {
	case f.CallSid == "":
		return f, errors.Join(ErrMissingField, errors.New("CallSid"))
	case f.To == "":
		return f, errors.Join(ErrMissingField, errors.New("To"))
	case f.From == "":
		return f, errors.Join(ErrMissingField, errors.New("From"))
	}
	return f, nil
}

// Withheld callers arrive as "anonymous" or similar; keep those verbatim.
func normalizeCaller(s string) string {
	s = strings.TrimSpace(s)
	if n := NormalizeE164(s); IsE164(n) {
		return n
	}
	return s
}

func (f TwilioInboundForm) ToInboundCall(receivedAt time.Time) routing.InboundCall {
	return routing.InboundCall{
		CallSID:    f.CallSid,
		From:       f.From,
		To:         f.To,
		ReceivedAt: receivedAt,
	}
}

// TwilioStatusForm is the status callback Twilio posts when a call ends.
type TwilioStatusForm struct {
	CallSid      string
	CallStatus   string
	CallDuration int
	AnsweredBy   string
}

func ParseTwilioStatusCallback(r *http.Request) (TwilioStatusForm, error) {
	if err := r.ParseForm(); err != nil {
		return TwilioStatusForm{}, err
	}
	f := TwilioStatusForm{
		CallSid:    strings.TrimSpace(r.PostFormValue("CallSid")),
		CallStatus: strings.ToLower(strings.TrimSpace(r.PostFormValue("CallStatus"))),
		AnsweredBy: strings.ToLower(strings.TrimSpace(r.PostFormValue("AnsweredBy"))),
	}
	if f.CallSid == "" {
		return f, errors.Join(ErrMissingField, errors.New("CallSid"))
	}
	if d := strings.TrimSpace(r.PostFormValue("CallDuration")); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil {
			return f, err
		}
		f.CallDuration = n
	}
	return f, nil
}

// Completion maps a Twilio call status to a terminal call log update. ok is
// false for non-terminal statuses such as ringing or in-progress.
func (f TwilioStatusForm) Completion(endedAt time.Time) (calls.Completion, bool) {
	c := calls.Completion{
		CallSID:         f.CallSid,
		DurationSeconds: f.CallDuration,
		EndedAt:         endedAt.UTC(),
		Outcome:         f.CallStatus,
	}
	switch f.CallStatus {
	case "completed":
		c.Status = calls.StatusCompleted
		if strings.HasPrefix(f.AnsweredBy, "machine") || f.AnsweredBy == "fax" {
			c.Status = calls.StatusVoicemail
		}
	case "busy", "no-answer", "failed", "canceled":
		c.Status = calls.StatusFailed
	default:
		return calls.Completion{}, false
	}
	return c, true
}
