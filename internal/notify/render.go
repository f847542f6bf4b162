package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/wolfman30/voicemail-notifier/internal/voicemail"
)

const (
	defaultServiceName = "Answering Service"
	bannerText         = "New voicemail message"
	noTranscription    = "(No transcription available)"
	transcriptLabel    = "Full Transcript"
	summaryLabel       = "Call Summary (full transcript unavailable)"
)

// Notification is a rendered email ready for a transport.
type Notification struct {
	Subject   string
	TextBody  string
	HTMLBody  string
	Recipient string
}

// Field is one labelled line of a notification.
type Field struct {
	Label string
	Value string
}

// Content is the structured notification both bodies are rendered from.
type Content struct {
	Subject  string
	Banner   string
	Business string
	Fields   []Field
	// Message is display-ready: quoted caller text or the no-transcription
	// placeholder.
	Message          string
	MessageAvailable bool
	RecordingURL     string
	TranscriptLabel  string
	Transcript       string
	Signature        string
}

// Renderer turns a call event into notification content. Rendering is pure.
type Renderer struct {
	ServiceName string
	// Business is shown under the banner when set.
	Business string
}

// Content builds the structured notification for evt.
func (r Renderer) Content(evt voicemail.CallEvent, pres voicemail.Presentation) Content {
	c := Content{
		Subject:         "📞 Message from " + subjectName(evt, pres),
		Banner:          bannerText,
		Business:        strings.TrimSpace(r.Business),
		Message:         noTranscription,
		RecordingURL:    evt.RecordingURL,
		TranscriptLabel: transcriptLabel,
		Transcript:      pres.Transcript,
		Signature:       "Sent by " + r.serviceName(),
	}
	if pres.TranscriptSynthesized {
		c.TranscriptLabel = summaryLabel
	}
	if evt.Message != "" {
		c.Message = `"` + evt.Message + `"`
		c.MessageAvailable = true
	}

	if evt.Source == voicemail.SourceVoiceAssistant {
		name := evt.CallerName
		if name == "" {
			name = voicemail.NotProvided
		}
		c.Fields = append(c.Fields, Field{Label: "From", Value: name}, Field{Label: "Phone", Value: pres.Phone})
	} else {
		from := pres.Phone
		if evt.CallerName != "" {
			from = evt.CallerName + ", " + pres.Phone
		}
		c.Fields = append(c.Fields, Field{Label: "From", Value: from})
	}
	c.Fields = append(c.Fields, Field{Label: "Time", Value: pres.Time})
	return c
}

// RenderText renders the plain-text body.
func (r Renderer) RenderText(c Content) string {
	var buf bytes.Buffer
	// Content is plain data; execution cannot fail on a bytes.Buffer.
	_ = textLayout.Execute(&buf, c)
	return buf.String()
}

// RenderHTML renders the HTML body; caller-supplied values are escaped.
func (r Renderer) RenderHTML(c Content) (string, error) {
	var buf bytes.Buffer
	if err := htmlLayout.Execute(&buf, c); err != nil {
		return "", fmt.Errorf("notify: render html: %w", err)
	}
	return buf.String(), nil
}

// Render produces the notification for recipient.
func (r Renderer) Render(evt voicemail.CallEvent, pres voicemail.Presentation, recipient string) (Notification, error) {
	c := r.Content(evt, pres)
	html, err := r.RenderHTML(c)
	if err != nil {
		return Notification{}, err
	}
	return Notification{
		Subject:   c.Subject,
		TextBody:  r.RenderText(c),
		HTMLBody:  html,
		Recipient: recipient,
	}, nil
}

func (r Renderer) serviceName() string {
	if name := strings.TrimSpace(r.ServiceName); name != "" {
		return name
	}
	return defaultServiceName
}

func subjectName(evt voicemail.CallEvent, pres voicemail.Presentation) string {
	if evt.CallerName != "" {
		return evt.CallerName
	}
	return pres.Phone
}

var textLayout = texttemplate.Must(texttemplate.New("text").Parse(`{{.Banner}}
{{- if .Business}}
{{.Business}}
{{- end}}

{{range .Fields}}{{.Label}}: {{.Value}}
{{end}}Message: {{.Message}}
{{if .RecordingURL}}Recording: {{.RecordingURL}}
{{end}}
{{.TranscriptLabel}}:
{{.Transcript}}

{{.Signature}}
`))

var htmlLayout = htmltemplate.Must(htmltemplate.New("html").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: #1a73e8; color: white; padding: 20px; border-radius: 8px 8px 0 0;">
    <h1 style="margin: 0;">📞 {{.Banner}}</h1>
    {{- if .Business}}
    <p style="margin: 5px 0 0 0;">{{.Business}}</p>
    {{- end}}
  </div>
  <div style="border: 1px solid #ddd; border-top: none; padding: 20px; border-radius: 0 0 8px 8px;">
    {{- range .Fields}}
    <p><strong>{{.Label}}:</strong> {{.Value}}</p>
    {{- end}}
    <div style="background: #f0f8ff; padding: 15px; border-radius: 5px; margin: 15px 0;">
      <strong>Message:</strong><br>
      <em>{{.Message}}</em>
    </div>
    {{- if .RecordingURL}}
    <p><strong>Recording:</strong> <a href="{{.RecordingURL}}">{{.RecordingURL}}</a></p>
    {{- end}}
    <div style="background: #f9f9f9; padding: 15px; border-radius: 5px; margin: 15px 0;">
      <strong>{{.TranscriptLabel}}:</strong><br>
      <pre style="white-space: pre-wrap; font-family: monospace; font-size: 12px;">{{.Transcript}}</pre>
    </div>
    <p style="color: #888; font-size: 12px;">{{.Signature}}</p>
  </div>
</div>
`))
