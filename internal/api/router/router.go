package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/voicemail-notifier/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/voicemail-notifier/internal/http/middleware"
	"github.com/wolfman30/voicemail-notifier/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Voicemail          *handlers.VoicemailWebhookHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	r.Get("/health", handlers.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	if vm := cfg.Voicemail; vm != nil {
		webhook := func(path string, handle http.HandlerFunc) {
			r.Post(path, handle)
			r.Options(path, vm.Preflight)
		}
		webhook("/api/telnyx", vm.HandleAuto)
		webhook("/webhooks/telnyx/voicemail", vm.HandleTelephony)
		webhook("/webhooks/voice-assistant/voicemail", vm.HandleVoiceAssistant)
	}

	return r
}
