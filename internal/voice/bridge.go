// Package voice builds the directive that hands a live call's audio to the
// voice AI provider. The provider is never called directly; the directive is
// embedded in the call-control document returned to the telephony provider.
package voice

import (
	"errors"
	"net/url"

	"voice-receptionist/internal/config"
)

// Parameter is a name/value pair passed to the provider with the stream.
type Parameter struct {
	Name  string
	Value string
}

// Directive tells the telephony provider where to stream the call.
type Directive struct {
	URL        string
	Parameters []Parameter
}

// Bridge holds the voice AI provider endpoint and credentials.
type Bridge struct {
	endpoint    string
	apiKey      string
	assistantID string
}

func NewBridge(cfg config.VoiceConfig) (*Bridge, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return nil, errors.New("voice: endpoint must be an absolute ws(s) URL")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("voice: api key is required")
	}
	return &Bridge{endpoint: cfg.Endpoint, apiKey: cfg.APIKey, assistantID: cfg.AssistantID}, nil
}

// Directive returns the connect directive for one routed call. The parameter
// order is stable.
func (b *Bridge) Directive(callSID, tenantID, agentID string) Directive {
	params := []Parameter{
		{Name: "apiKey", Value: b.apiKey},
	}
	if b.assistantID != "" {
		params = append(params, Parameter{Name: "assistantId", Value: b.assistantID})
	}
	params = append(params,
		Parameter{Name: "agentId", Value: agentID},
		Parameter{Name: "tenantId", Value: tenantID},
		Parameter{Name: "callSid", Value: callSID},
	)
	return Directive{URL: b.endpoint, Parameters: params}
}
