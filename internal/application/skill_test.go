package application_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"particle-skill/internal/application"
	"particle-skill/internal/domain"
)

func newTestSkill(cloud *fakeCloud, store application.SessionStore, notifier application.Notifier) *application.Skill {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if store == nil {
		store = &application.NoopSessionStore{}
	}
	if notifier == nil {
		notifier = &application.NoopNotifier{}
	}
	return application.NewSkill(application.NewDeviceService(cloud), store, notifier, logger)
}

func intentTurn(name string, slots map[string]string) domain.Turn {
	return domain.Turn{
		RequestID:   "req-1",
		RequestType: domain.RequestIntent,
		Intent:      domain.Intent{Name: name, Slots: slots},
		Session: domain.Session{
			ID:          "session-1",
			UserID:      "user-1",
			AccessToken: "user-token",
		},
	}
}

func TestSkill_Responses(t *testing.T) {
	tests := []struct {
		name       string
		turn       domain.Turn
		wantSpeech string
		wantEnd    bool
	}{
		{
			name:       "number of devices",
			turn:       intentTurn(application.IntentNumberOfDevices, nil),
			wantSpeech: "There are 2 devices online at the moment.",
			wantEnd:    true,
		},
		{
			name:       "list devices",
			turn:       intentTurn(application.IntentListDevices, nil),
			wantSpeech: "You have 2 devices online. Their names are kitchen light and weather station.",
			wantEnd:    true,
		},
		{
			name:       "list functions",
			turn:       intentTurn(application.IntentListFunctions, map[string]string{"device": "Kitchen Light"}),
			wantSpeech: "Here are the functions for the device named kitchen light: toggle led and set level.",
			wantEnd:    true,
		},
		{
			name:       "list variables",
			turn:       intentTurn(application.IntentListVariables, map[string]string{"device": "weather station"}),
			wantSpeech: "Here are the variables for the device named weather station: status and temp c.",
			wantEnd:    true,
		},
		{
			name:       "call function",
			turn:       intentTurn(application.IntentCallFunction, map[string]string{"device": "kitchen light", "function": "toggle led", "argument": "on"}),
			wantSpeech: "I called toggle led on kitchen light. It returned 1.",
			wantEnd:    true,
		},
		{
			name:       "get variable",
			turn:       intentTurn(application.IntentGetVariable, map[string]string{"device": "weather station", "variable": "temp c"}),
			wantSpeech: "The value of temp c on weather station is 21.5.",
			wantEnd:    true,
		},
		{
			name:       "device status",
			turn:       intentTurn(application.IntentDeviceStatus, map[string]string{"device": "garage door"}),
			wantSpeech: "garage door is offline.",
			wantEnd:    true,
		},
		{
			name:       "unknown device",
			turn:       intentTurn(application.IntentListFunctions, map[string]string{"device": "toaster"}),
			wantSpeech: "Sorry, I couldn't find a device by that name.",
			wantEnd:    true,
		},
		{
			name:       "unknown function",
			turn:       intentTurn(application.IntentCallFunction, map[string]string{"device": "kitchen light", "function": "explode"}),
			wantSpeech: "Sorry, that device doesn't have a function by that name.",
			wantEnd:    true,
		},
		{
			name:       "unknown variable",
			turn:       intentTurn(application.IntentGetVariable, map[string]string{"device": "weather station", "variable": "humidity"}),
			wantSpeech: "Sorry, that device doesn't have a variable by that name.",
			wantEnd:    true,
		},
		{
			name:       "missing function slot",
			turn:       intentTurn(application.IntentCallFunction, map[string]string{"device": "kitchen light"}),
			wantSpeech: "Which function would you like me to call?",
		},
		{
			name:       "stop",
			turn:       intentTurn(application.IntentStop, nil),
			wantSpeech: "Goodbye!",
			wantEnd:    true,
		},
		{
			name:       "unknown intent",
			turn:       intentTurn("OrderPizzaIntent", nil),
			wantSpeech: "Sorry, I don't know how to do that. You can ask me for help.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skill := newTestSkill(newFakeCloud(), nil, nil)

			resp := skill.Handle(context.Background(), tt.turn)

			if resp.Speech != tt.wantSpeech {
				t.Errorf("speech: got %q, want %q", resp.Speech, tt.wantSpeech)
			}
			if resp.EndSession != tt.wantEnd {
				t.Errorf("end session: got %t, want %t", resp.EndSession, tt.wantEnd)
			}
			if !resp.EndSession && resp.Reprompt == "" {
				t.Error("open session without reprompt")
			}
		})
	}
}

func TestSkill_NoDeviceAndNoActiveDevice(t *testing.T) {
	intents := []string{
		application.IntentListFunctions,
		application.IntentListVariables,
		application.IntentCallFunction,
		application.IntentGetVariable,
		application.IntentDeviceStatus,
	}

	for _, name := range intents {
		t.Run(name, func(t *testing.T) {
			cloud := newFakeCloud()
			skill := newTestSkill(cloud, nil, nil)

			resp := skill.Handle(context.Background(), intentTurn(name, map[string]string{"function": "toggle led", "variable": "tempC"}))

			if resp.Speech != "Please provide a device name or set an active device." {
				t.Errorf("speech: got %q", resp.Speech)
			}
			if resp.Reprompt == "" || resp.EndSession {
				t.Errorf("expected reprompt, got %+v", resp)
			}
			if cloud.listCalls != 0 || len(cloud.getCalls) != 0 {
				t.Errorf("unexpected remote calls: list=%d get=%v", cloud.listCalls, cloud.getCalls)
			}
		})
	}
}

func TestSkill_AccountNotLinked(t *testing.T) {
	for _, name := range []string{application.IntentListDevices, application.IntentCallFunction, application.IntentHelp} {
		cloud := newFakeCloud()
		skill := newTestSkill(cloud, nil, nil)

		turn := intentTurn(name, map[string]string{"device": "kitchen light", "function": "toggleLed"})
		turn.Session.AccessToken = ""

		resp := skill.Handle(context.Background(), turn)

		if !resp.LinkAccount {
			t.Errorf("%s: expected link account response, got %+v", name, resp)
		}
		if cloud.listCalls != 0 || len(cloud.functionCalls) != 0 {
			t.Errorf("%s: device cloud must not be reached", name)
		}
	}
}

func TestSkill_UnauthorizedTokenAsksToRelink(t *testing.T) {
	cloud := newFakeCloud()
	cloud.listErr = domain.ErrUnauthorized
	skill := newTestSkill(cloud, nil, nil)

	resp := skill.Handle(context.Background(), intentTurn(application.IntentListDevices, nil))

	if !resp.LinkAccount || !resp.EndSession {
		t.Errorf("expected link account response, got %+v", resp)
	}
}

func TestSkill_TransportFailureIsSpoken(t *testing.T) {
	cloud := newFakeCloud()
	cloud.listErr = errors.New("dial tcp: connection refused")
	skill := newTestSkill(cloud, nil, nil)

	resp := skill.Handle(context.Background(), intentTurn(application.IntentNumberOfDevices, nil))

	if resp.Speech != "Sorry, I couldn't get what you wanted. Please try again." {
		t.Errorf("speech: got %q", resp.Speech)
	}
	if !resp.EndSession {
		t.Error("expected session to end")
	}
}

func TestSkill_ActiveDeviceFlow(t *testing.T) {
	cloud := newFakeCloud()
	store := &memoryStore{}
	skill := newTestSkill(cloud, store, nil)

	resp := skill.Handle(context.Background(), intentTurn(application.IntentSetActiveDevice, map[string]string{"device": "kitchen-light"}))

	want := domain.Attributes{CurrentDevice: "kitchen light", CurrentDeviceID: "dev1"}
	if resp.Attributes != want {
		t.Fatalf("attributes: got %+v, want %+v", resp.Attributes, want)
	}
	if resp.EndSession {
		t.Error("set active device should keep the session open")
	}
	if store.saves != 1 || store.data["user-1"] != want {
		t.Errorf("expected attributes persisted, got %+v", store.data)
	}

	next := intentTurn(application.IntentCallFunction, map[string]string{"function": "set level", "argument": "50"})
	next.Session.Attributes = resp.Attributes

	resp = skill.Handle(context.Background(), next)

	if !strings.HasPrefix(resp.Speech, "I called set level on kitchen light") {
		t.Errorf("speech: got %q", resp.Speech)
	}
	if resp.Attributes != want {
		t.Errorf("attributes must carry over, got %+v", resp.Attributes)
	}
	if store.saves != 1 {
		t.Errorf("unchanged attributes must not be saved again, saves=%d", store.saves)
	}
}

func TestSkill_RestoresActiveDeviceOnNewSession(t *testing.T) {
	store := &memoryStore{data: map[string]domain.Attributes{
		"user-1": {CurrentDevice: "weather station", CurrentDeviceID: "dev3"},
	}}
	skill := newTestSkill(newFakeCloud(), store, nil)

	turn := intentTurn(application.IntentGetActiveDevice, nil)
	turn.Session.New = true

	resp := skill.Handle(context.Background(), turn)

	if resp.Speech != "Your active device is weather station." {
		t.Errorf("speech: got %q", resp.Speech)
	}
	if resp.Attributes.CurrentDeviceID != "dev3" {
		t.Errorf("attributes: got %+v", resp.Attributes)
	}
}

func TestSkill_NotifiesOnFunctionCall(t *testing.T) {
	notifier := &recordingNotifier{}
	skill := newTestSkill(newFakeCloud(), nil, notifier)

	skill.Handle(context.Background(), intentTurn(application.IntentCallFunction, map[string]string{
		"device":   "kitchen light",
		"function": "toggle led",
		"argument": "on",
	}))

	if len(notifier.messages) != 1 {
		t.Fatalf("notifications: got %d, want 1", len(notifier.messages))
	}
	if notifier.messages[0] != "Called toggleLed(on) on kitchen light: returned 1" {
		t.Errorf("message: got %q", notifier.messages[0])
	}
}

func TestSkill_SlowNotifierDoesNotHoldTheReply(t *testing.T) {
	skill := newTestSkill(newFakeCloud(), nil, blockingNotifier{}).WithNotifyTimeout(20 * time.Millisecond)

	start := time.Now()
	resp := skill.Handle(context.Background(), intentTurn(application.IntentCallFunction, map[string]string{
		"device":   "kitchen light",
		"function": "toggle led",
	}))

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("turn took %v", elapsed)
	}
	if !strings.HasPrefix(resp.Speech, "I called toggle led on kitchen light.") {
		t.Errorf("speech: got %q", resp.Speech)
	}
}

func TestSkill_SessionEnded(t *testing.T) {
	cloud := newFakeCloud()
	skill := newTestSkill(cloud, nil, nil)

	turn := intentTurn("", nil)
	turn.RequestType = domain.RequestSessionEnded

	resp := skill.Handle(context.Background(), turn)

	if resp.Speech != "" || !resp.EndSession {
		t.Errorf("unexpected response: %+v", resp)
	}
	if cloud.listCalls != 0 {
		t.Error("session end must not reach the device cloud")
	}
}

func TestSkill_UnknownIntentsShareOneMetricSeries(t *testing.T) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(application.MetricsCollectors()...)

	skill := newTestSkill(newFakeCloud(), nil, nil)
	skill.Handle(context.Background(), intentTurn("Junk", nil))

	before, err := testutil.GatherAndCount(registry, "skill_turns_total")
	if err != nil {
		t.Fatalf("gathering: %v", err)
	}

	for i := 0; i < 200; i++ {
		resp := skill.Handle(context.Background(), intentTurn(fmt.Sprintf("Junk%d", i), nil))
		if resp.Reprompt == "" {
			t.Fatalf("unknown intent should fall back with a reprompt, got %+v", resp)
		}
	}

	after, err := testutil.GatherAndCount(registry, "skill_turns_total")
	if err != nil {
		t.Fatalf("gathering: %v", err)
	}
	if after != before {
		t.Errorf("series grew from %d to %d", before, after)
	}
}

func TestSayList(t *testing.T) {
	tests := []struct {
		items []string
		want  string
	}{
		{nil, ""},
		{[]string{"a"}, "a"},
		{[]string{"a", "b"}, "a and b"},
		{[]string{"a", "b", "c"}, "a, b and c"},
	}
	for _, tt := range tests {
		if got := application.SayList(tt.items, "and"); got != tt.want {
			t.Errorf("SayList(%v): got %q, want %q", tt.items, got, tt.want)
		}
	}
}
