package application

import (
	"context"
	"errors"

	"particle-skill/internal/domain"
)

// DeviceCloud is the remote device-cloud API. Every call is scoped to the
// end user's access token.
type DeviceCloud interface {
	ListDevices(ctx context.Context, token string) ([]domain.DeviceSummary, error)
	GetDevice(ctx context.Context, token, deviceID string) (*domain.Device, error)
	CallFunction(ctx context.Context, token, deviceID, name, arg string) (int, error)
	GetVariable(ctx context.Context, token, deviceID, name string) (*domain.Variable, error)
}

// ErrNotFound is returned by SessionStore.Load when nothing is stored for the user.
var ErrNotFound = errors.New("no stored attributes")

// SessionStore keeps a user's attributes across sessions. Writes are last-writer-wins.
type SessionStore interface {
	Load(ctx context.Context, userID string) (domain.Attributes, error)
	Save(ctx context.Context, userID string, attrs domain.Attributes) error
}

// Notifier receives a short audit line whenever a remote function is invoked by voice.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type NoopSessionStore struct{}

func (n *NoopSessionStore) Load(_ context.Context, _ string) (domain.Attributes, error) {
	return domain.Attributes{}, ErrNotFound
}

func (n *NoopSessionStore) Save(_ context.Context, _ string, _ domain.Attributes) error {
	return nil
}

type NoopNotifier struct{}

func (n *NoopNotifier) Notify(_ context.Context, _ string) error {
	return nil
}
