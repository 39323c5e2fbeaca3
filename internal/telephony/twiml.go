package telephony

import (
	"errors"
	"strings"

	"voice-receptionist/internal/voice"

	"github.com/twilio/twilio-go/twiml"
)

// Spoken when the dialed number has no agent, or is not ours.
const UnavailableMessage = "Sorry, no one is available to take your call. Please try again later."

// Spoken when the call cannot be handled at all.
const ApologyMessage = "An error occurred. Please try again later."

const sayLanguage = "en-GB"

// Instructions is the provider-agnostic call-control plan: speak Say, then
// either stream the call to Connect or hang up.
type Instructions struct {
	Say     string
	Connect *voice.Directive
	Hangup  bool
}

// Unavailable is the plan for unrouted calls.
func Unavailable() Instructions {
	return Instructions{Say: UnavailableMessage, Hangup: true}
}

// Apology is the plan for any failure while handling a call.
func Apology() Instructions {
	return Instructions{Say: ApologyMessage, Hangup: true}
}

// Bridge is the plan for a routed call: greet, then hand off to the voice AI.
func Bridge(greeting string, d voice.Directive) Instructions {
	return Instructions{Say: greeting, Connect: &d}
}

// RenderTwiML maps Instructions to a TwiML document.
func RenderTwiML(in Instructions) (string, error) {
	var verbs []twiml.Element

	if strings.TrimSpace(in.Say) != "" {
		verbs = append(verbs, &twiml.VoiceSay{Message: in.Say, Language: sayLanguage})
	}

	if in.Connect != nil {
		if in.Hangup {
			return "", errors.New("telephony: connect and hangup are exclusive")
		}
		if strings.TrimSpace(in.Connect.URL) == "" {
			return "", errors.New("telephony: connect url required")
		}
		params := make([]twiml.Element, 0, len(in.Connect.Parameters))
		for _, p := range in.Connect.Parameters {
			params = append(params, &twiml.VoiceParameter{Name: p.Name, Value: p.Value})
		}
		stream := &twiml.VoiceStream{Url: in.Connect.URL, InnerElements: params}
		verbs = append(verbs, &twiml.VoiceConnect{InnerElements: []twiml.Element{stream}})
	}

	if in.Hangup {
		verbs = append(verbs, &twiml.VoiceHangup{})
	}

	if len(verbs) == 0 {
		return "", errors.New("telephony: empty instructions")
	}
	return twiml.Voice(verbs)
}

// MustRender renders in and falls back to a fixed apology document if
// rendering fails, so a caller is never left without instructions.
func MustRender(in Instructions) string {
	doc, err := RenderTwiML(in)
	if err == nil {
		return doc
	}
	if doc, err = RenderTwiML(Apology()); err == nil {
		return doc
	}
	return `<?xml version="1.0" encoding="UTF-8"?><Response><Say>` + ApologyMessage + `</Say><Hangup/></Response>`
}
