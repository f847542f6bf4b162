package mainconfig

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/voicemail-notifier/internal/api/router"
	appconfig "github.com/wolfman30/voicemail-notifier/internal/config"
	"github.com/wolfman30/voicemail-notifier/internal/http/handlers"
	"github.com/wolfman30/voicemail-notifier/internal/notify"
	"github.com/wolfman30/voicemail-notifier/internal/observability/metrics"
	"github.com/wolfman30/voicemail-notifier/internal/voicemail"
	"github.com/wolfman30/voicemail-notifier/pkg/logging"
)

// Pipeline is the notification pipeline wired from configuration. The API
// server, the Lambda adapter and the CLI all build it the same way.
type Pipeline struct {
	Config         *appconfig.Config
	Logger         *logging.Logger
	Selector       *notify.Selector
	Service        *notify.Service
	Metrics        *metrics.NotificationMetrics
	MetricsHandler http.Handler
}

// Build wires the pipeline. Extra selector options are passed through,
// which tests use to point transports at fakes.
func Build(cfg *appconfig.Config, logger *logging.Logger, opts ...notify.SelectorOption) (*Pipeline, error) {
	if logger == nil {
		logger = logging.New(cfg.LogLevel)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewNotificationMetrics(reg)

	tc := cfg.TransportConfig()
	selector := notify.NewSelector(tc, logger, opts...)
	svc, err := notify.NewService(notify.ServiceConfig{
		Formatter:  voicemail.Formatter{Location: loc},
		Renderer:   notify.Renderer{ServiceName: cfg.FromName, Business: cfg.BusinessName},
		Selector:   selector,
		Dispatcher: &notify.Dispatcher{Timeout: tc.Timeout, Metrics: m, Logger: logger},
		Recipient:  tc.Recipient,
		Metrics:    m,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("mainconfig: build service: %w", err)
	}

	return &Pipeline{
		Config:         cfg,
		Logger:         logger,
		Selector:       selector,
		Service:        svc,
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}, nil
}

// Router returns the HTTP surface for p.
func (p *Pipeline) Router() http.Handler {
	return router.New(&router.Config{
		Logger:             p.Logger,
		Voicemail:          handlers.NewVoicemailWebhookHandler(p.Service, p.Logger),
		MetricsHandler:     p.MetricsHandler,
		CORSAllowedOrigins: p.Config.CORSAllowedOrigins,
	})
}
