package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/wolfman30/voicemail-notifier/internal/notify"
	"github.com/wolfman30/voicemail-notifier/internal/voicemail"
	"github.com/wolfman30/voicemail-notifier/pkg/logging"
)

// MaxBodyBytes caps inbound webhook bodies.
const MaxBodyBytes = 1 << 20

// Notifier runs the voicemail pipeline for one raw payload.
type Notifier interface {
	Notify(ctx context.Context, raw []byte, shape voicemail.Shape) (notify.Outcome, error)
}

// VoicemailWebhookHandler accepts call/voicemail webhooks and answers with
// the delivery outcome.
type VoicemailWebhookHandler struct {
	notifier Notifier
	logger   *logging.Logger
}

func NewVoicemailWebhookHandler(notifier Notifier, logger *logging.Logger) *VoicemailWebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &VoicemailWebhookHandler{notifier: notifier, logger: logger}
}

// VoicemailResponse is the success body.
type VoicemailResponse struct {
	Success    bool   `json:"success"`
	From       string `json:"from"`
	MessageID  string `json:"messageId"`
	SentTo     string `json:"sentTo"`
	PreviewURL string `json:"previewUrl,omitempty"`
	Service    string `json:"service"`
}

// ErrorResponse is the failure body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code,omitempty"`
}

// HandleAuto detects the payload shape from the body.
func (h *VoicemailWebhookHandler) HandleAuto(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, voicemail.ShapeAuto)
}

// HandleTelephony handles provider call/voicemail webhooks.
func (h *VoicemailWebhookHandler) HandleTelephony(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, voicemail.ShapeTelephony)
}

// HandleVoiceAssistant handles voice-assistant tool callbacks.
func (h *VoicemailWebhookHandler) HandleVoiceAssistant(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, voicemail.ShapeVoiceAssistant)
}

// Preflight answers CORS preflight requests; headers come from the CORS
// middleware.
func (h *VoicemailWebhookHandler) Preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// MethodNotAllowed answers any method other than POST and OPTIONS.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
}

func (h *VoicemailWebhookHandler) handle(w http.ResponseWriter, r *http.Request, shape voicemail.Shape) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w, r)
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "Payload too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid payload", Details: err.Error()})
		return
	}

	out, err := h.notifier.Notify(r.Context(), raw, shape)
	status, body := Respond(out, err)
	if status == http.StatusInternalServerError {
		h.logger.Error("voicemail notification failed", "shape", shape.String(), "error", err)
	}
	writeJSON(w, status, body)
}

// Respond maps a pipeline result to an HTTP status and JSON body.
func Respond(out notify.Outcome, err error) (int, any) {
	if err == nil {
		return http.StatusOK, VoicemailResponse{
			Success:    true,
			From:       out.Presentation.Phone,
			MessageID:  out.Result.MessageID,
			SentTo:     out.Result.Recipient,
			PreviewURL: out.Result.PreviewURL,
			Service:    out.Result.Service,
		}
	}

	var failed *notify.DeliveryFailedError
	switch {
	case errors.Is(err, voicemail.ErrInvalidPayload):
		return http.StatusBadRequest, ErrorResponse{Error: "Invalid payload", Details: err.Error()}
	case errors.Is(err, notify.ErrNoTransportAvailable):
		return http.StatusInternalServerError, ErrorResponse{Error: "No email transport available", Details: err.Error()}
	case errors.As(err, &failed):
		return http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to send voicemail notification",
			Details: failed.Details(),
			Code:    failed.Code,
		}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "Failed to send voicemail notification", Details: err.Error()}
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
