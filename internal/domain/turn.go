package domain

// Request types the dispatcher distinguishes.
const (
	RequestLaunch       = "LaunchRequest"
	RequestIntent       = "IntentRequest"
	RequestSessionEnded = "SessionEndedRequest"
)

// Attributes is the session state persisted by the voice platform between turns.
type Attributes struct {
	CurrentDevice   string `json:"currentDevice,omitempty"`
	CurrentDeviceID string `json:"currentDeviceId,omitempty"`
}

// Session is the per-conversation context handed to every handler.
type Session struct {
	ID          string
	New         bool
	UserID      string
	AccessToken string
	Attributes  Attributes
}

// Intent is a named request with its filled slots. Empty slot values are omitted.
type Intent struct {
	Name  string
	Slots map[string]string
}

// Slot returns the value of the named slot, or "" if it was not filled.
func (i Intent) Slot(name string) string {
	if i.Slots == nil {
		return ""
	}
	return i.Slots[name]
}

// Turn is one inbound voice interaction.
type Turn struct {
	RequestID   string
	RequestType string
	Locale      string
	Intent      Intent
	Session     Session
}

// Response is the single terminal action of a turn.
type Response struct {
	Speech      string
	Reprompt    string
	LinkAccount bool
	EndSession  bool
	Attributes  Attributes
}
