package notify

import (
	"context"
	"errors"

	"github.com/wolfman30/voicemail-notifier/internal/observability/metrics"
	"github.com/wolfman30/voicemail-notifier/internal/voicemail"
	"github.com/wolfman30/voicemail-notifier/pkg/logging"
)

// TransportSelector picks the transport for one notification.
type TransportSelector interface {
	Select(ctx context.Context) (Transport, error)
}

// ServiceConfig wires the pipeline stages.
type ServiceConfig struct {
	Formatter  voicemail.Formatter
	Renderer   Renderer
	Selector   TransportSelector
	Dispatcher *Dispatcher
	Recipient  string
	Metrics    *metrics.NotificationMetrics
	Logger     *logging.Logger
}

// Outcome is everything the pipeline derived for one request.
type Outcome struct {
	Event        voicemail.CallEvent
	Presentation voicemail.Presentation
	Result       DeliveryResult
}

// Service runs normalize, format, render, select and dispatch for one
// inbound event. It holds no per-request state.
type Service struct {
	formatter  voicemail.Formatter
	renderer   Renderer
	selector   TransportSelector
	dispatcher *Dispatcher
	recipient  string
	metrics    *metrics.NotificationMetrics
	logger     *logging.Logger
}

// NewService creates a notification service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Selector == nil {
		return nil, errors.New("notify: selector is required")
	}
	if cfg.Recipient == "" {
		return nil, errors.New("notify: recipient is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = &Dispatcher{Metrics: cfg.Metrics, Logger: cfg.Logger}
	}
	return &Service{
		formatter:  cfg.Formatter,
		renderer:   cfg.Renderer,
		selector:   cfg.Selector,
		dispatcher: cfg.Dispatcher,
		recipient:  cfg.Recipient,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}, nil
}

// Notify normalizes raw as shape and delivers the resulting notification.
func (s *Service) Notify(ctx context.Context, raw []byte, shape voicemail.Shape) (Outcome, error) {
	s.logger.Debug("voicemail webhook received", "shape", shape.String(), "body", string(raw))

	evt, err := voicemail.Normalize(raw, shape)
	if err != nil {
		s.metrics.ObserveInbound(shape.String(), "invalid")
		s.logger.Warn("rejected voicemail payload", "shape", shape.String(), "error", err)
		return Outcome{}, err
	}
	return s.NotifyEvent(ctx, evt)
}

// NotifyEvent delivers a notification for an already-normalized event.
func (s *Service) NotifyEvent(ctx context.Context, evt voicemail.CallEvent) (Outcome, error) {
	source := string(evt.Source)
	if err := evt.Validate(); err != nil {
		s.metrics.ObserveInbound(source, "invalid")
		return Outcome{}, err
	}

	pres := s.formatter.Present(evt)
	out := Outcome{Event: evt, Presentation: pres}
	s.logger.Info("voicemail normalized",
		"source", source,
		"event_type", evt.EventType,
		"call_id", evt.CallID,
		"caller_name", evt.CallerName,
		"phone", pres.Phone,
		"has_recording", evt.RecordingURL != "",
		"transcript_synthesized", pres.TranscriptSynthesized,
	)

	n, err := s.renderer.Render(evt, pres, s.recipient)
	if err != nil {
		s.metrics.ObserveInbound(source, "failed")
		return out, err
	}

	t, err := s.selector.Select(ctx)
	if err != nil {
		s.metrics.ObserveInbound(source, "no_transport")
		s.logger.Error("no email transport available", "error", err)
		return out, err
	}

	res, err := s.dispatcher.Dispatch(ctx, t, n)
	if err != nil {
		s.metrics.ObserveInbound(source, "failed")
		return out, err
	}
	out.Result = res
	s.metrics.ObserveInbound(source, "sent")
	return out, nil
}
