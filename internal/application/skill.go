package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"particle-skill/internal/domain"
)

// Intent names the skill understands.
const (
	IntentNumberOfDevices = "NumberOfDevicesIntent"
	IntentListDevices     = "ListDevicesIntent"
	IntentListFunctions   = "ListFunctionsIntent"
	IntentListVariables   = "ListVariablesIntent"
	IntentCallFunction    = "CallFunctionIntent"
	IntentGetVariable     = "GetVariableIntent"
	IntentSetActiveDevice = "SetActiveDeviceIntent"
	IntentGetActiveDevice = "GetActiveDeviceIntent"
	IntentDeviceStatus    = "DeviceStatusIntent"
	IntentHelp            = "AMAZON.HelpIntent"
	IntentStop            = "AMAZON.StopIntent"
	IntentCancel          = "AMAZON.CancelIntent"
	IntentFallback        = "AMAZON.FallbackIntent"
)

// Slot names.
const (
	SlotDevice   = "device"
	SlotFunction = "function"
	SlotArgument = "argument"
	SlotVariable = "variable"
)

// DefaultNotifyTimeout bounds the function-call notification within a turn.
const DefaultNotifyTimeout = 2 * time.Second

type handlerFunc func(ctx context.Context, turn domain.Turn, logger *slog.Logger) domain.Response

// Skill dispatches one voice turn to its intent handler and returns the single
// response for that turn.
type Skill struct {
	devices  *DeviceService
	store    SessionStore
	notifier Notifier
	logger   *slog.Logger
	handlers map[string]handlerFunc

	notifyTimeout time.Duration
}

func NewSkill(
	devices *DeviceService,
	store SessionStore,
	notifier Notifier,
	logger *slog.Logger,
) *Skill {
	s := &Skill{
		devices:  devices,
		store:    store,
		notifier: notifier,
		logger:   logger,

		notifyTimeout: DefaultNotifyTimeout,
	}
	s.handlers = map[string]handlerFunc{
		domain.RequestLaunch:  s.handleLaunch,
		IntentNumberOfDevices: s.handleNumberOfDevices,
		IntentListDevices:     s.handleListDevices,
		IntentListFunctions:   s.handleListFunctions,
		IntentListVariables:   s.handleListVariables,
		IntentCallFunction:    s.handleCallFunction,
		IntentGetVariable:     s.handleGetVariable,
		IntentSetActiveDevice: s.handleSetActiveDevice,
		IntentGetActiveDevice: s.handleGetActiveDevice,
		IntentDeviceStatus:    s.handleDeviceStatus,
		IntentHelp:            s.handleHelp,
		IntentStop:            s.handleStop,
		IntentCancel:          s.handleStop,
		IntentFallback:        s.handleFallback,
	}
	return s
}

// WithNotifyTimeout overrides how long a function-call notification may take.
func (s *Skill) WithNotifyTimeout(d time.Duration) *Skill {
	s.notifyTimeout = d
	return s
}

// Handle runs one turn. A turn without an access token never reaches the
// device cloud and is answered with the account-linking response.
func (s *Skill) Handle(ctx context.Context, turn domain.Turn) domain.Response {
	name := handlerName(turn)
	label := s.metricLabel(name)
	logger := s.logger.With(
		"request_id", turn.RequestID,
		"session_id", turn.Session.ID,
		"intent", name,
	)

	if turn.RequestType == domain.RequestSessionEnded {
		logger.Info("session ended")
		turnsTotal.WithLabelValues(label, outcomeEnded).Inc()
		return domain.Response{EndSession: true, Attributes: turn.Session.Attributes}
	}

	if turn.Session.AccessToken == "" {
		logger.Info("account not linked")
		turnsTotal.WithLabelValues(label, outcomeLinkAccount).Inc()
		return linkAccount(turn.Session.Attributes)
	}

	turn.Session.Attributes = s.preload(ctx, turn.Session, logger)

	handler, ok := s.handlers[name]
	if !ok {
		logger.Warn("no handler for intent, using fallback")
		handler = s.handleFallback
	}

	resp := handler(ctx, turn, logger)

	if resp.Attributes != turn.Session.Attributes {
		s.persist(ctx, turn.Session.UserID, resp.Attributes, logger)
	}

	outcome := outcomeOK
	switch {
	case resp.LinkAccount:
		outcome = outcomeLinkAccount
	case resp.Reprompt != "":
		outcome = outcomeReprompt
	}
	turnsTotal.WithLabelValues(label, outcome).Inc()
	logger.Info("turn handled", "outcome", outcome, "end_session", resp.EndSession)

	return resp
}

// metricLabel bounds the intent label to the names the skill handles.
func (s *Skill) metricLabel(name string) string {
	if name == domain.RequestSessionEnded {
		return name
	}
	if _, ok := s.handlers[name]; ok {
		return name
	}
	return labelUnknown
}

func handlerName(turn domain.Turn) string {
	if turn.RequestType == domain.RequestIntent {
		return turn.Intent.Name
	}
	return turn.RequestType
}

// preload restores the stored active device at the start of a new session.
func (s *Skill) preload(ctx context.Context, session domain.Session, logger *slog.Logger) domain.Attributes {
	attrs := session.Attributes
	if !session.New || attrs.CurrentDevice != "" || session.UserID == "" {
		return attrs
	}

	stored, err := s.store.Load(ctx, session.UserID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			storeFailures.WithLabelValues("load").Inc()
			logger.Warn("loading stored attributes", "error", err)
		}
		return attrs
	}

	logger.Debug("restored active device", "device", stored.CurrentDevice)
	return stored
}

func (s *Skill) persist(ctx context.Context, userID string, attrs domain.Attributes, logger *slog.Logger) {
	if userID == "" {
		return
	}
	if err := s.store.Save(ctx, userID, attrs); err != nil {
		storeFailures.WithLabelValues("save").Inc()
		logger.Warn("saving attributes", "error", err)
	}
}

// fail maps an adapter error to its fixed spoken sentence.
func (s *Skill) fail(turn domain.Turn, logger *slog.Logger, err error) domain.Response {
	attrs := turn.Session.Attributes

	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		handlerErrors.WithLabelValues("unauthorized").Inc()
		logger.Warn("device cloud rejected token", "error", err)
		return linkAccount(attrs)
	case errors.Is(err, domain.ErrDeviceNotFound):
		handlerErrors.WithLabelValues("device_not_found").Inc()
		return tell(attrs, msgDeviceNotFound)
	case errors.Is(err, domain.ErrFunctionNotFound):
		handlerErrors.WithLabelValues("function_not_found").Inc()
		return tell(attrs, msgFunctionNotFound)
	case errors.Is(err, domain.ErrVariableNotFound):
		handlerErrors.WithLabelValues("variable_not_found").Inc()
		return tell(attrs, msgVariableNotFound)
	default:
		handlerErrors.WithLabelValues("other").Inc()
		logger.Error("handling intent", "error", err)
		return tell(attrs, msgGenericFailure)
	}
}

func tell(attrs domain.Attributes, speech string) domain.Response {
	return domain.Response{Speech: speech, EndSession: true, Attributes: attrs}
}

func ask(attrs domain.Attributes, speech, reprompt string) domain.Response {
	return domain.Response{Speech: speech, Reprompt: reprompt, Attributes: attrs}
}

func linkAccount(attrs domain.Attributes) domain.Response {
	return domain.Response{Speech: msgLinkAccount, LinkAccount: true, EndSession: true, Attributes: attrs}
}
