package application

import (
	"context"
	"fmt"
	"log/slog"

	"particle-skill/internal/domain"
)

func (s *Skill) handleLaunch(_ context.Context, turn domain.Turn, _ *slog.Logger) domain.Response {
	return ask(turn.Session.Attributes, msgWelcome, msgHelpReprompt)
}

func (s *Skill) handleHelp(_ context.Context, turn domain.Turn, _ *slog.Logger) domain.Response {
	return ask(turn.Session.Attributes, msgHelp, msgHelpReprompt)
}

func (s *Skill) handleStop(_ context.Context, turn domain.Turn, _ *slog.Logger) domain.Response {
	return tell(turn.Session.Attributes, msgGoodbye)
}

func (s *Skill) handleFallback(_ context.Context, turn domain.Turn, _ *slog.Logger) domain.Response {
	return ask(turn.Session.Attributes, msgFallback, msgHelpReprompt)
}

func (s *Skill) handleNumberOfDevices(ctx context.Context, turn domain.Turn, logger *slog.Logger) domain.Response {
	devices, err := s.devices.ListOnlineDevices(ctx, turn.Session.AccessToken)
	if err != nil {
		return s.fail(turn, logger, err)
	}
	return tell(turn.Session.Attributes, sayDeviceCount(len(devices)))
}

func (s *Skill) handleListDevices(ctx context.Context, turn domain.Turn, logger *slog.Logger) domain.Response {
	devices, err := s.devices.ListOnlineDevices(ctx, turn.Session.AccessToken)
	if err != nil {
		return s.fail(turn, logger, err)
	}
	return tell(turn.Session.Attributes, sayDeviceList(devices))
}

func (s *Skill) handleListFunctions(ctx context.Context, turn domain.Turn, logger *slog.Logger) domain.Response {
	device, ok := resolveDevice(turn)
	if !ok {
		return ask(turn.Session.Attributes, msgNoDevice, msgNoDevice)
	}

	functions, err := s.devices.GetDeviceFunctions(ctx, turn.Session.AccessToken, device)
	if err != nil {
		return s.fail(turn, logger, err)
	}
	return tell(turn.Session.Attributes, sayFunctions(device, functions))
}

func (s *Skill) handleListVariables(ctx context.Context, turn domain.Turn, logger *slog.Logger) domain.Response {
	device, ok := resolveDevice(turn)
	if !ok {
		return ask(turn.Session.Attributes, msgNoDevice, msgNoDevice)
	}

	variables, err := s.devices.GetDeviceVariables(ctx, turn.Session.AccessToken, device)
	if err != nil {
		return s.fail(turn, logger, err)
	}
	return tell(turn.Session.Attributes, sayVariables(device, variables))
}

func (s *Skill) handleCallFunction(ctx context.Context, turn domain.Turn, logger *slog.Logger) domain.Response {
	device, ok := resolveDevice(turn)
	if !ok {
		return ask(turn.Session.Attributes, msgNoDevice, msgNoDevice)
	}

	spoken := turn.Intent.Slot(SlotFunction)
	if spoken == "" {
		return ask(turn.Session.Attributes, msgWhichFunction, msgWhichFunction)
	}
	fn := domain.NormalizeFunctionName(spoken)
	arg := turn.Intent.Slot(SlotArgument)

	result, err := s.devices.CallFunction(ctx, turn.Session.AccessToken, device, fn, arg)
	if err != nil {
		return s.fail(turn, logger, err)
	}

	logger.Info("function called", "device", device, "function", fn, "result", result)
	note := fmt.Sprintf("Called %s(%s) on %s: returned %d", fn, arg, device, result)
	notifyCtx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(notifyCtx, note); err != nil {
		logger.Error("notifying function call", "error", err)
	}

	return tell(turn.Session.Attributes, sayFunctionResult(device, fn, result))
}

func (s *Skill) handleGetVariable(ctx context.Context, turn domain.Turn, logger *slog.Logger) domain.Response {
	device, ok := resolveDevice(turn)
	if !ok {
		return ask(turn.Session.Attributes, msgNoDevice, msgNoDevice)
	}

	spoken := turn.Intent.Slot(SlotVariable)
	if spoken == "" {
		return ask(turn.Session.Attributes, msgWhichVariable, msgWhichVariable)
	}

	v, err := s.devices.GetVariable(ctx, turn.Session.AccessToken, device, domain.NormalizeFunctionName(spoken))
	if err != nil {
		return s.fail(turn, logger, err)
	}
	return tell(turn.Session.Attributes, sayVariable(device, v))
}

// handleSetActiveDevice keeps the session open so the selection carries into
// the next turn.
func (s *Skill) handleSetActiveDevice(ctx context.Context, turn domain.Turn, logger *slog.Logger) domain.Response {
	spoken := turn.Intent.Slot(SlotDevice)
	if spoken == "" {
		return ask(turn.Session.Attributes, msgWhichDevice, msgWhichDevice)
	}

	device, err := s.devices.GetDeviceByName(ctx, turn.Session.AccessToken, spoken)
	if err != nil {
		return s.fail(turn, logger, err)
	}

	name := domain.NormalizeDeviceName(device.Name)
	attrs := domain.Attributes{CurrentDevice: name, CurrentDeviceID: device.ID}
	logger.Info("active device set", "device", name, "device_id", device.ID)

	return ask(attrs,
		fmt.Sprintf("OK, %s is now your active device. What would you like to do with it?", name),
		fmt.Sprintf("What would you like to do with %s?", name),
	)
}

func (s *Skill) handleGetActiveDevice(_ context.Context, turn domain.Turn, _ *slog.Logger) domain.Response {
	current := turn.Session.Attributes.CurrentDevice
	if current == "" {
		return tell(turn.Session.Attributes, msgNoActiveDevice)
	}
	return tell(turn.Session.Attributes, fmt.Sprintf("Your active device is %s.", current))
}

func (s *Skill) handleDeviceStatus(ctx context.Context, turn domain.Turn, logger *slog.Logger) domain.Response {
	name, ok := resolveDevice(turn)
	if !ok {
		return ask(turn.Session.Attributes, msgNoDevice, msgNoDevice)
	}

	device, err := s.devices.GetDeviceByName(ctx, turn.Session.AccessToken, name)
	if err != nil {
		return s.fail(turn, logger, err)
	}
	return tell(turn.Session.Attributes, sayStatus(name, device.Connected))
}

// resolveDevice picks the device slot if filled, otherwise the session's
// active device.
func resolveDevice(turn domain.Turn) (string, bool) {
	if slot := turn.Intent.Slot(SlotDevice); slot != "" {
		return domain.NormalizeDeviceName(slot), true
	}
	if current := turn.Session.Attributes.CurrentDevice; current != "" {
		return current, true
	}
	return "", false
}
