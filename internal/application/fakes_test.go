package application_test

import (
	"context"
	"errors"
	"fmt"

	"particle-skill/internal/application"
	"particle-skill/internal/domain"
)

type call struct {
	deviceID string
	name     string
	arg      string
}

type fakeCloud struct {
	devices   []domain.DeviceSummary
	details   map[string]*domain.Device
	variables map[string]any
	listErr   error

	listCalls     int
	getCalls      []string
	functionCalls []call
	variableCalls []call
	tokens        []string
}

func (f *fakeCloud) ListDevices(_ context.Context, token string) ([]domain.DeviceSummary, error) {
	f.listCalls++
	f.tokens = append(f.tokens, token)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.devices, nil
}

func (f *fakeCloud) GetDevice(_ context.Context, token, deviceID string) (*domain.Device, error) {
	f.getCalls = append(f.getCalls, deviceID)
	f.tokens = append(f.tokens, token)
	d, ok := f.details[deviceID]
	if !ok {
		return nil, fmt.Errorf("device %s: %w", deviceID, errors.New("404"))
	}
	return d, nil
}

func (f *fakeCloud) CallFunction(_ context.Context, _, deviceID, name, arg string) (int, error) {
	f.functionCalls = append(f.functionCalls, call{deviceID: deviceID, name: name, arg: arg})
	return 1, nil
}

func (f *fakeCloud) GetVariable(_ context.Context, _, deviceID, name string) (*domain.Variable, error) {
	f.variableCalls = append(f.variableCalls, call{deviceID: deviceID, name: name})
	v, ok := f.variables[name]
	if !ok {
		return nil, domain.ErrVariableNotFound
	}
	return &domain.Variable{Name: name, Value: v}, nil
}

func newFakeCloud() *fakeCloud {
	return &fakeCloud{
		devices: []domain.DeviceSummary{
			{ID: "dev1", Name: "Kitchen_Light", Connected: true},
			{ID: "dev2", Name: "garage-door", Connected: false},
			{ID: "dev3", Name: "Weather Station", Connected: true},
		},
		details: map[string]*domain.Device{
			"dev1": {
				ID:        "dev1",
				Name:      "Kitchen_Light",
				Connected: true,
				Functions: []string{"toggleLed", "setLevel"},
				Variables: map[string]string{"brightness": "int32"},
			},
			"dev2": {ID: "dev2", Name: "garage-door", Connected: false},
			"dev3": {
				ID:        "dev3",
				Name:      "Weather Station",
				Connected: true,
				Variables: map[string]string{"tempC": "double", "status": "string"},
			},
		},
		variables: map[string]any{"brightness": 42.0, "tempC": 21.5},
	}
}

type memoryStore struct {
	data  map[string]domain.Attributes
	saves int
}

func (m *memoryStore) Load(_ context.Context, userID string) (domain.Attributes, error) {
	if attrs, ok := m.data[userID]; ok {
		return attrs, nil
	}
	return domain.Attributes{}, application.ErrNotFound
}

func (m *memoryStore) Save(_ context.Context, userID string, attrs domain.Attributes) error {
	if m.data == nil {
		m.data = make(map[string]domain.Attributes)
	}
	m.data[userID] = attrs
	m.saves++
	return nil
}

type recordingNotifier struct {
	messages []string
}

func (r *recordingNotifier) Notify(_ context.Context, message string) error {
	r.messages = append(r.messages, message)
	return nil
}

// blockingNotifier waits until its context is done.
type blockingNotifier struct{}

func (blockingNotifier) Notify(ctx context.Context, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}
