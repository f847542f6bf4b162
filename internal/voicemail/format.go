package voicemail

import (
	"regexp"
	"strings"
	"time"
)

// TimeLayout renders processing timestamps the way operators read them in
// email clients, e.g. "3/14/2025, 9:05:00 AM".
const TimeLayout = "1/2/2006, 3:04:05 PM"

// TranscriptUnavailableNote closes every synthesized transcript so it is
// never mistaken for provider output.
const TranscriptUnavailableNote = "(Full transcript not available from the provider)"

var northAmericanNumber = regexp.MustCompile(`^\+1(\d{3})(\d{3})(\d{4})$`)

// Presentation holds display values derived from a CallEvent.
type Presentation struct {
	Phone                 string
	Time                  string
	Transcript            string
	TranscriptSynthesized bool
	ProcessedAt           time.Time
}

// Formatter derives a Presentation. The zero value uses time.Now and the
// local time zone.
type Formatter struct {
	Now      func() time.Time
	Location *time.Location
}

// Present derives display values without touching evt.
func (f Formatter) Present(evt CallEvent) Presentation {
	processedAt := f.now()
	p := Presentation{
		Phone:       FormatPhone(evt.CallerPhone),
		Time:        strings.TrimSpace(evt.CallTime),
		ProcessedAt: processedAt,
	}
	if p.Time == "" {
		p.Time = processedAt.Format(TimeLayout)
	}
	if evt.HasTranscript() {
		p.Transcript = strings.TrimSpace(evt.Transcript)
	} else {
		p.Transcript = SynthesizeTranscript(evt, processedAt)
		p.TranscriptSynthesized = true
	}
	return p
}

func (f Formatter) now() time.Time {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc)
}

// FormatPhone rewrites +1AAABBBCCCC as "+1 (AAA) BBB-CCCC". Any other value
// is returned unchanged; an empty value renders as NotProvided.
func FormatPhone(raw string) string {
	if raw == "" {
		return NotProvided
	}
	if !strings.Contains(raw, "+1") {
		return raw
	}
	if !northAmericanNumber.MatchString(raw) {
		return raw
	}
	return northAmericanNumber.ReplaceAllString(raw, "+1 ($1) $2-$3")
}

// SynthesizeTranscript builds placeholder transcript text from the fields
// that are available. The result always ends with TranscriptUnavailableNote.
func SynthesizeTranscript(evt CallEvent, processedAt time.Time) string {
	name := evt.CallerName
	if name == "" {
		name = "Unknown"
	}
	phone := evt.CallerPhone
	if phone == "" {
		phone = NotProvided
	}
	message := evt.Message
	if message == "" {
		message = "(no message)"
	}

	var b strings.Builder
	b.WriteString("Call received at " + processedAt.Format(TimeLayout) + "\n")
	b.WriteString("Caller: " + name + "\n")
	b.WriteString("Phone: " + phone + "\n")
	b.WriteString("Message: " + message + "\n")
	b.WriteString(TranscriptUnavailableNote)
	return b.String()
}
