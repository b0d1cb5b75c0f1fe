package alexa

import (
	"particle-skill/internal/domain"
)

const envelopeVersion = "1.0"

// RequestEnvelope is the JSON body the voice platform posts for each turn.
type RequestEnvelope struct {
	Version string       `json:"version"`
	Session *sessionJSON `json:"session,omitempty"`
	Context *contextJSON `json:"context,omitempty"`
	Request requestJSON  `json:"request"`
}

type sessionJSON struct {
	New         bool            `json:"new"`
	SessionID   string          `json:"sessionId"`
	Application applicationJSON `json:"application"`
	Attributes  map[string]any  `json:"attributes"`
	User        userJSON        `json:"user"`
}

type contextJSON struct {
	System struct {
		Application applicationJSON `json:"application"`
		User        userJSON        `json:"user"`
	} `json:"System"`
}

type applicationJSON struct {
	ApplicationID string `json:"applicationId"`
}

type userJSON struct {
	UserID      string `json:"userId"`
	AccessToken string `json:"accessToken,omitempty"`
}

type requestJSON struct {
	Type      string      `json:"type"`
	RequestID string      `json:"requestId"`
	Timestamp string      `json:"timestamp,omitempty"`
	Locale    string      `json:"locale,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	Intent    *intentJSON `json:"intent,omitempty"`
}

type intentJSON struct {
	Name  string              `json:"name"`
	Slots map[string]slotJSON `json:"slots,omitempty"`
}

type slotJSON struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

// ApplicationID returns the skill id the request was addressed to.
func (e *RequestEnvelope) ApplicationID() string {
	if e.Session != nil && e.Session.Application.ApplicationID != "" {
		return e.Session.Application.ApplicationID
	}
	if e.Context != nil {
		return e.Context.System.Application.ApplicationID
	}
	return ""
}

// Turn converts the envelope into the dispatcher's view of the request.
// The access token is taken from the session user, then from the context.
func (e *RequestEnvelope) Turn() domain.Turn {
	turn := domain.Turn{
		RequestID:   e.Request.RequestID,
		RequestType: e.Request.Type,
		Locale:      e.Request.Locale,
	}

	if e.Session != nil {
		turn.Session = domain.Session{
			ID:          e.Session.SessionID,
			New:         e.Session.New,
			UserID:      e.Session.User.UserID,
			AccessToken: e.Session.User.AccessToken,
			Attributes:  attributesFrom(e.Session.Attributes),
		}
	}
	if e.Context != nil {
		if turn.Session.UserID == "" {
			turn.Session.UserID = e.Context.System.User.UserID
		}
		if turn.Session.AccessToken == "" {
			turn.Session.AccessToken = e.Context.System.User.AccessToken
		}
	}

	if e.Request.Intent != nil {
		turn.Intent.Name = e.Request.Intent.Name
		turn.Intent.Slots = make(map[string]string, len(e.Request.Intent.Slots))
		for key, slot := range e.Request.Intent.Slots {
			if slot.Value == "" {
				continue
			}
			name := slot.Name
			if name == "" {
				name = key
			}
			turn.Intent.Slots[name] = slot.Value
		}
	}

	return turn
}

// attributesFrom picks the skill's keys out of the session attributes. Values
// of another type, left by an older skill version, are ignored.
func attributesFrom(raw map[string]any) domain.Attributes {
	var attrs domain.Attributes
	attrs.CurrentDevice, _ = raw["currentDevice"].(string)
	attrs.CurrentDeviceID, _ = raw["currentDeviceId"].(string)
	if attrs.CurrentDevice == "" {
		attrs.CurrentDeviceID = ""
	}
	return attrs
}

// ResponseEnvelope is the JSON body returned for a turn.
type ResponseEnvelope struct {
	Version           string             `json:"version"`
	SessionAttributes *domain.Attributes `json:"sessionAttributes,omitempty"`
	Response          responseBody       `json:"response"`
}

type responseBody struct {
	OutputSpeech     *outputSpeech `json:"outputSpeech,omitempty"`
	Reprompt         *reprompt     `json:"reprompt,omitempty"`
	Card             *card         `json:"card,omitempty"`
	ShouldEndSession bool          `json:"shouldEndSession"`
}

type outputSpeech struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type reprompt struct {
	OutputSpeech outputSpeech `json:"outputSpeech"`
}

type card struct {
	Type string `json:"type"`
}

// NewResponseEnvelope encodes a dispatcher response.
func NewResponseEnvelope(resp domain.Response) ResponseEnvelope {
	env := ResponseEnvelope{
		Version: envelopeVersion,
		Response: responseBody{
			ShouldEndSession: resp.EndSession,
		},
	}

	if resp.Attributes != (domain.Attributes{}) {
		attrs := resp.Attributes
		env.SessionAttributes = &attrs
	}
	if resp.Speech != "" {
		env.Response.OutputSpeech = &outputSpeech{Type: "PlainText", Text: resp.Speech}
	}
	if resp.Reprompt != "" {
		env.Response.Reprompt = &reprompt{OutputSpeech: outputSpeech{Type: "PlainText", Text: resp.Reprompt}}
	}
	if resp.LinkAccount {
		env.Response.Card = &card{Type: "LinkAccount"}
	}

	return env
}
