package voicemail

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Shape selects the extraction rules applied to an inbound body.
type Shape int

const (
	// ShapeAuto detects the shape from the body's keys.
	ShapeAuto Shape = iota
	// ShapeVoiceAssistant is the flat voice-assistant tool callback.
	ShapeVoiceAssistant
	// ShapeTelephony is the provider webhook with a nested payload.
	ShapeTelephony
)

func (s Shape) String() string {
	switch s {
	case ShapeVoiceAssistant:
		return "assistant"
	case ShapeTelephony:
		return "telephony"
	default:
		return "auto"
	}
}

// ParseShape maps a CLI/route name to a Shape.
func ParseShape(name string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return ShapeAuto, nil
	case "assistant", "voice-assistant", "voice_assistant":
		return ShapeVoiceAssistant, nil
	case "telephony", "telnyx", "webhook":
		return ShapeTelephony, nil
	default:
		return ShapeAuto, fmt.Errorf("voicemail: unknown payload shape %q", name)
	}
}

// Synonym lists for the telephony shape. Order is significant: the first
// non-empty key wins when a payload carries several of them.
var (
	telephonyCallerNumberKeys = []string{"from", "from_number", "caller_id_number"}
	telephonyMessageKeys      = []string{"transcription", "transcript", "message"}
	telephonyRecordingKeys    = []string{"recording_url", "media_url"}
	telephonyCallerNameKeys   = []string{"caller_name", "caller_id_name", "from_name"}
	telephonyCallTimeKeys     = []string{"call_time", "occurred_at", "start_time"}
	telephonyCallIDKeys       = []string{"call_control_id", "call_session_id"}

	// Keys looked up inside object values, e.g. {"from": {"phone_number": ...}}.
	nestedNumberKeys = []string{"phone_number"}
	nestedTextKeys   = []string{"transcription_text", "transcript", "text"}
)

// Normalize decodes a JSON request body and maps it to a CallEvent.
func Normalize(raw []byte, hint Shape) (CallEvent, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		return CallEvent{}, fmt.Errorf("%w: decode body: %v", ErrInvalidPayload, err)
	}
	obj, ok := body.(map[string]any)
	if !ok {
		return CallEvent{}, fmt.Errorf("%w: body must be a JSON object", ErrInvalidPayload)
	}
	return NormalizeMap(obj, hint)
}

// NormalizeMap maps an already decoded JSON object to a CallEvent.
func NormalizeMap(body map[string]any, hint Shape) (CallEvent, error) {
	if body == nil {
		return CallEvent{}, fmt.Errorf("%w: empty body", ErrInvalidPayload)
	}
	shape := hint
	if shape == ShapeAuto {
		shape = DetectShape(body)
	}

	var evt CallEvent
	switch shape {
	case ShapeVoiceAssistant:
		evt = fromVoiceAssistant(body)
	case ShapeTelephony:
		evt = fromTelephony(body)
	default:
		return CallEvent{}, fmt.Errorf("%w: unsupported shape %d", ErrInvalidPayload, shape)
	}
	if err := evt.Validate(); err != nil {
		return CallEvent{}, err
	}
	return evt, nil
}

// DetectShape picks the telephony shape when the body has a nested payload
// or a telephony caller-number key, and the voice-assistant shape otherwise.
func DetectShape(body map[string]any) Shape {
	if _, ok := body["data"].(map[string]any); ok {
		return ShapeTelephony
	}
	if _, ok := body["payload"].(map[string]any); ok {
		return ShapeTelephony
	}
	for _, key := range telephonyCallerNumberKeys {
		if _, ok := body[key]; ok {
			return ShapeTelephony
		}
	}
	return ShapeVoiceAssistant
}

func fromVoiceAssistant(body map[string]any) CallEvent {
	return CallEvent{
		CallerName:   textOf(body["caller_name"]),
		CallerPhone:  textOf(body["caller_phone"]),
		Message:      textOf(body["message"]),
		Transcript:   dropPlaceholder(textOf(body["transcript"])),
		CallTime:     textOf(body["call_time"]),
		RecordingURL: textOf(body["recording_url"]),
		Source:       SourceVoiceAssistant,
	}
}

func fromTelephony(body map[string]any) CallEvent {
	payload, envelope := telephonyPayload(body)

	evt := CallEvent{
		CallerPhone:  firstText(payload, telephonyCallerNumberKeys, nestedNumberKeys...),
		Message:      firstText(payload, telephonyMessageKeys, nestedTextKeys...),
		RecordingURL: recordingURL(payload),
		CallerName:   firstText(payload, telephonyCallerNameKeys),
		CallTime:     firstText(payload, telephonyCallTimeKeys),
		CallID:       firstText(payload, telephonyCallIDKeys),
		EventType:    textOf(envelope["event_type"]),
		Source:       SourceTelephony,
	}
	if evt.CallTime == "" {
		evt.CallTime = firstText(envelope, telephonyCallTimeKeys)
	}
	if evt.EventType == "" {
		evt.EventType = textOf(payload["event_type"])
	}
	return evt
}

// telephonyPayload resolves data.payload, then payload, then the body itself.
// The envelope is the object the payload was found in.
func telephonyPayload(body map[string]any) (payload, envelope map[string]any) {
	if data, ok := body["data"].(map[string]any); ok {
		if p, ok := data["payload"].(map[string]any); ok {
			return p, data
		}
	}
	if p, ok := body["payload"].(map[string]any); ok {
		return p, body
	}
	return body, body
}

func recordingURL(payload map[string]any) string {
	if url := firstText(payload, telephonyRecordingKeys); url != "" {
		return url
	}
	if urls, ok := payload["recording_urls"].(map[string]any); ok {
		if url := firstText(urls, []string{"mp3", "wav"}); url != "" {
			return url
		}
	}
	if list, ok := payload["media_urls"].([]any); ok {
		for _, item := range list {
			if url := textOf(item); url != "" {
				return url
			}
		}
	}
	return ""
}

// firstText returns the first non-empty value among keys, in order.
func firstText(m map[string]any, keys []string, nested ...string) string {
	for _, key := range keys {
		if v := textOf(m[key], nested...); v != "" {
			return v
		}
	}
	return ""
}

// textOf renders scalar JSON values as trimmed text. Objects are searched
// for the nested keys, if any.
func textOf(v any, nested ...string) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case map[string]any:
		if len(nested) == 0 {
			return ""
		}
		return firstText(val, nested)
	default:
		return ""
	}
}

func dropPlaceholder(s string) string {
	if s == NotProvided {
		return ""
	}
	return s
}
