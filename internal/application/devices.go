package application

import (
	"context"
	"fmt"

	"particle-skill/internal/domain"
)

// DeviceService resolves spoken device names against the cloud and performs
// the function and variable operations on the resolved device. Nothing is cached:
// every operation starts from a fresh listing.
type DeviceService struct {
	cloud DeviceCloud
}

func NewDeviceService(cloud DeviceCloud) *DeviceService {
	return &DeviceService{cloud: cloud}
}

// ListOnlineDevices returns the connected devices in listing order.
func (s *DeviceService) ListOnlineDevices(ctx context.Context, token string) ([]domain.DeviceSummary, error) {
	devices, err := s.cloud.ListDevices(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}

	online := make([]domain.DeviceSummary, 0, len(devices))
	for _, d := range devices {
		if d.Connected {
			online = append(online, d)
		}
	}
	return online, nil
}

// GetDeviceByName fetches the full record of the first listed device whose
// normalized name equals the normalized argument. Devices whose names normalize
// identically are not disambiguated.
func (s *DeviceService) GetDeviceByName(ctx context.Context, token, name string) (*domain.Device, error) {
	want := domain.NormalizeDeviceName(name)
	if want == "" {
		return nil, domain.ErrDeviceNotFound
	}

	devices, err := s.cloud.ListDevices(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}

	for _, d := range devices {
		if domain.NormalizeDeviceName(d.Name) != want {
			continue
		}
		device, err := s.cloud.GetDevice(ctx, token, d.ID)
		if err != nil {
			return nil, fmt.Errorf("fetching device %s: %w", d.ID, err)
		}
		return device, nil
	}

	return nil, domain.ErrDeviceNotFound
}

func (s *DeviceService) GetDeviceFunctions(ctx context.Context, token, name string) ([]string, error) {
	device, err := s.GetDeviceByName(ctx, token, name)
	if err != nil {
		return nil, err
	}
	return device.Functions, nil
}

func (s *DeviceService) GetDeviceVariables(ctx context.Context, token, name string) (map[string]string, error) {
	device, err := s.GetDeviceByName(ctx, token, name)
	if err != nil {
		return nil, err
	}
	return device.Variables, nil
}

// CallFunction invokes fn on the named device and returns the remote return value.
// fn must appear verbatim in the device's function manifest.
func (s *DeviceService) CallFunction(ctx context.Context, token, name, fn, arg string) (int, error) {
	device, err := s.GetDeviceByName(ctx, token, name)
	if err != nil {
		return 0, err
	}

	if !device.HasFunction(fn) {
		return 0, domain.ErrFunctionNotFound
	}

	result, err := s.cloud.CallFunction(ctx, token, device.ID, fn, arg)
	if err != nil {
		return 0, fmt.Errorf("calling %s on %s: %w", fn, device.ID, err)
	}
	return result, nil
}

// GetVariable reads the current value of variable on the named device.
func (s *DeviceService) GetVariable(ctx context.Context, token, name, variable string) (*domain.Variable, error) {
	device, err := s.GetDeviceByName(ctx, token, name)
	if err != nil {
		return nil, err
	}

	v, err := s.cloud.GetVariable(ctx, token, device.ID, variable)
	if err != nil {
		return nil, fmt.Errorf("reading %s on %s: %w", variable, device.ID, err)
	}
	return v, nil
}
