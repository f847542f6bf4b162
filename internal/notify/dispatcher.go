package notify

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/voicemail-notifier/internal/observability/metrics"
	"github.com/wolfman30/voicemail-notifier/pkg/logging"
)

var dispatchTracer = otel.Tracer("voicemail.internal.notify.dispatch")

// Dispatcher makes exactly one delivery attempt per call.
type Dispatcher struct {
	// Timeout bounds the send; zero means the caller's context alone.
	Timeout time.Duration
	Metrics *metrics.NotificationMetrics
	Logger  *logging.Logger
	Now     func() time.Time
}

// Dispatch sends n through t. Failures are returned as *DeliveryFailedError.
func (d *Dispatcher) Dispatch(ctx context.Context, t Transport, n Notification) (DeliveryResult, error) {
	logger := d.logger()
	now := d.now()

	ctx, span := dispatchTracer.Start(ctx, "notify.dispatch", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("notify.transport", string(t.Kind())),
		attribute.String("notify.service", t.Name()),
	)

	if d != nil && d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	start := now()
	receipt, err := t.Send(ctx, n)
	elapsed := now().Sub(start).Seconds()

	if err != nil {
		failed := newDeliveryFailed(t.Kind(), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "delivery failed")
		span.SetAttributes(attribute.String("notify.error_code", failed.Code))
		d.metrics().ObserveDelivery(string(t.Kind()), "failed", elapsed)
		logger.Error("notification delivery failed",
			"transport", t.Kind(),
			"code", failed.Code,
			"response_code", failed.ResponseCode,
			"error", err,
		)
		return DeliveryResult{}, failed
	}

	span.SetAttributes(attribute.String("notify.message_id", receipt.MessageID))
	d.metrics().ObserveDelivery(string(t.Kind()), "sent", elapsed)
	logger.Info("notification delivered",
		"transport", t.Kind(),
		"message_id", receipt.MessageID,
		"preview_url", receipt.PreviewURL,
		"to", n.Recipient,
	)
	return DeliveryResult{
		TransportKind: t.Kind(),
		Service:       t.Name(),
		MessageID:     receipt.MessageID,
		PreviewURL:    receipt.PreviewURL,
		Recipient:     n.Recipient,
	}, nil
}

func (d *Dispatcher) logger() *logging.Logger {
	if d == nil || d.Logger == nil {
		return logging.Default()
	}
	return d.Logger
}

func (d *Dispatcher) metrics() *metrics.NotificationMetrics {
	if d == nil {
		return nil
	}
	return d.Metrics
}

func (d *Dispatcher) now() func() time.Time {
	if d == nil || d.Now == nil {
		return time.Now
	}
	return d.Now
}
