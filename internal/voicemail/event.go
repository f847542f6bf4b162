// Package voicemail turns inbound call and voicemail webhooks into a
// canonical CallEvent and derives the display fields used by notifications.
package voicemail

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPayload reports that a request body could not be normalized into
// a valid CallEvent. It is a client error and is never retried.
var ErrInvalidPayload = errors.New("voicemail: invalid payload")

// Source identifies which inbound schema produced a CallEvent.
type Source string

const (
	SourceVoiceAssistant Source = "voice_assistant"
	SourceTelephony      Source = "telephony"
)

// NotProvided is the placeholder used for missing values, both on input
// (voice assistants send it for empty transcripts) and in rendered output.
const NotProvided = "Not provided"

// CallEvent is the canonical inbound call/voicemail record. An empty string
// means the value was absent. CallEvents are passed by value and never
// modified after Normalize returns them.
type CallEvent struct {
	CallerName   string
	CallerPhone  string
	Message      string
	Transcript   string
	CallTime     string
	RecordingURL string
	Source       Source

	// Provider metadata, used for logging only.
	EventType string
	CallID    string
}

// Validate enforces the minimum content rule: a message or transcript, or a
// caller number on a telephony event.
func (e CallEvent) Validate() error {
	if strings.TrimSpace(e.Message) != "" || strings.TrimSpace(e.Transcript) != "" {
		return nil
	}
	if e.Source == SourceTelephony && strings.TrimSpace(e.CallerPhone) != "" {
		return nil
	}
	if e.Source == SourceVoiceAssistant {
		return fmt.Errorf("%w: missing message", ErrInvalidPayload)
	}
	return fmt.Errorf("%w: missing caller number and message", ErrInvalidPayload)
}

// HasTranscript reports whether the event carries a provider transcript.
func (e CallEvent) HasTranscript() bool {
	t := strings.TrimSpace(e.Transcript)
	return t != "" && t != NotProvided
}
