package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostmarkTransportSend(t *testing.T) {
	var got map[string]any
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/email", r.URL.Path)
		assert.Equal(t, "pm-token", r.Header.Get("X-Postmark-Server-Token"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"To":"office@example.com","SubmittedAt":"2025-03-14T09:05:00Z","MessageID":"pm-123","ErrorCode":0,"Message":"OK"}`))
	}))
	defer api.Close()

	cfg := TransportConfig{
		Recipient: "office@example.com",
		FromEmail: "alerts@example.com",
		Postmark:  PostmarkCredentials{ServerToken: "pm-token", BaseURL: api.URL},
	}
	tr, err := NewPostmarkTransport(cfg, nil)
	require.NoError(t, err)

	receipt, err := tr.Send(context.Background(), Notification{Subject: "s", TextBody: "text", HTMLBody: "<p>html</p>", Recipient: cfg.Recipient})
	require.NoError(t, err)
	assert.Equal(t, "pm-123", receipt.MessageID)
	assert.Equal(t, "office@example.com", got["To"])
	assert.Equal(t, "text", got["TextBody"])
}

func TestNewPostmarkTransportRequiresToken(t *testing.T) {
	_, err := NewPostmarkTransport(TransportConfig{Recipient: "office@example.com"}, nil)
	assert.Error(t, err)
}
