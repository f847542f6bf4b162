package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/voicemail-notifier/internal/notify"
	"github.com/wolfman30/voicemail-notifier/internal/voicemail"
	"github.com/wolfman30/voicemail-notifier/pkg/logging"
)

type fakeNotifier struct {
	out   notify.Outcome
	err   error
	raw   []byte
	shape voicemail.Shape
	calls int
}

func (f *fakeNotifier) Notify(_ context.Context, raw []byte, shape voicemail.Shape) (notify.Outcome, error) {
	f.calls++
	f.raw = raw
	f.shape = shape
	return f.out, f.err
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestVoicemailWebhookSuccess(t *testing.T) {
	n := &fakeNotifier{out: notify.Outcome{
		Presentation: voicemail.Presentation{Phone: "+1 (555) 123-4567"},
		Result: notify.DeliveryResult{
			TransportKind: notify.KindDisposable,
			Service:       "Ethereal (test)",
			MessageID:     "<id@ethereal.email>",
			PreviewURL:    "https://ethereal.email/message/abc",
			Recipient:     "office@example.com",
		},
	}}
	h := NewVoicemailWebhookHandler(n, logging.New("error"))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/telnyx/voicemail", strings.NewReader(`{"data":{"payload":{"from":"+15551234567"}}}`))
	rec := httptest.NewRecorder()
	h.HandleTelephony(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, map[string]any{
		"success":    true,
		"from":       "+1 (555) 123-4567",
		"messageId":  "<id@ethereal.email>",
		"sentTo":     "office@example.com",
		"previewUrl": "https://ethereal.email/message/abc",
		"service":    "Ethereal (test)",
	}, decodeBody(t, rec))
	assert.Equal(t, voicemail.ShapeTelephony, n.shape)
	assert.JSONEq(t, `{"data":{"payload":{"from":"+15551234567"}}}`, string(n.raw))
}

func TestVoicemailWebhookOmitsEmptyPreview(t *testing.T) {
	n := &fakeNotifier{out: notify.Outcome{Result: notify.DeliveryResult{Service: "Custom SMTP", Recipient: "office@example.com"}}}
	h := NewVoicemailWebhookHandler(n, nil)

	rec := httptest.NewRecorder()
	h.HandleVoiceAssistant(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":"hi"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, decodeBody(t, rec), "previewUrl")
	assert.Equal(t, voicemail.ShapeVoiceAssistant, n.shape)
}

func TestVoicemailWebhookErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
		wantCode   string
	}{
		{
			name:       "invalid payload",
			err:        fmt.Errorf("%w: missing message", voicemail.ErrInvalidPayload),
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid payload",
		},
		{
			name:       "no transport",
			err:        errors.Join(notify.ErrNoTransportAvailable, errors.New("disposable: offline")),
			wantStatus: http.StatusInternalServerError,
			wantError:  "No email transport available",
		},
		{
			name:       "delivery failed",
			err:        &notify.DeliveryFailedError{Transport: notify.KindCustomSMTP, Code: "EAUTH", Cause: errors.New("535 bad credentials")},
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to send voicemail notification",
			wantCode:   "EAUTH",
		},
		{
			name:       "unexpected",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to send voicemail notification",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewVoicemailWebhookHandler(&fakeNotifier{err: tc.err}, logging.New("error"))
			rec := httptest.NewRecorder()
			h.HandleAuto(rec, httptest.NewRequest(http.MethodPost, "/api/telnyx", strings.NewReader(`{}`)))

			require.Equal(t, tc.wantStatus, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, tc.wantError, body["error"])
			assert.NotEmpty(t, body["details"])
			if tc.wantCode != "" {
				assert.Equal(t, tc.wantCode, body["code"])
			}
		})
	}
}

func TestVoicemailWebhookRejectsOversizedBody(t *testing.T) {
	n := &fakeNotifier{}
	h := NewVoicemailWebhookHandler(n, nil)

	big := `{"message":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	rec := httptest.NewRecorder()
	h.HandleAuto(rec, httptest.NewRequest(http.MethodPost, "/api/telnyx", strings.NewReader(big)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, n.calls)
}

func TestVoicemailWebhookMethodHandling(t *testing.T) {
	n := &fakeNotifier{}
	h := NewVoicemailWebhookHandler(n, nil)

	rec := httptest.NewRecorder()
	h.HandleAuto(rec, httptest.NewRequest(http.MethodGet, "/api/telnyx", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method not allowed", decodeBody(t, rec)["error"])

	rec = httptest.NewRecorder()
	h.Preflight(rec, httptest.NewRequest(http.MethodOptions, "/api/telnyx", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, n.calls)
}
