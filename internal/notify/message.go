package notify

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
)

// envelope carries the addressing of one outgoing message.
type envelope struct {
	From      mail.Address
	To        string
	MessageID string
	Date      time.Time
}

func newMessageID(from string) string {
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain = from[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

// buildMessage renders n as an RFC 5322 message with a multipart/alternative
// body.
func buildMessage(env envelope, n Notification) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := writePart(mw, "text/plain; charset=utf-8", n.TextBody); err != nil {
		return nil, err
	}
	if n.HTMLBody != "" {
		if err := writePart(mw, "text/html; charset=utf-8", n.HTMLBody); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("notify: close multipart: %w", err)
	}

	var msg bytes.Buffer
	header := func(key, value string) {
		msg.WriteString(key + ": " + sanitizeHeader(value) + "\r\n")
	}
	header("From", env.From.String())
	header("To", (&mail.Address{Address: env.To}).String())
	header("Subject", mime.QEncoding.Encode("utf-8", n.Subject))
	header("Date", env.Date.UTC().Format(time.RFC1123Z))
	header("Message-ID", env.MessageID)
	header("MIME-Version", "1.0")
	header("Content-Type", "multipart/alternative; boundary="+mw.Boundary())
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

func writePart(mw *multipart.Writer, contentType, content string) error {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", contentType)
	h.Set("Content-Transfer-Encoding", "quoted-printable")
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("notify: create part: %w", err)
	}
	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write([]byte(crlf(content))); err != nil {
		return fmt.Errorf("notify: write part: %w", err)
	}
	return qp.Close()
}

func crlf(body string) string {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	return strings.ReplaceAll(normalized, "\n", "\r\n")
}

func sanitizeHeader(value string) string {
	clean := strings.ReplaceAll(value, "\r", " ")
	clean = strings.ReplaceAll(clean, "\n", " ")
	return strings.TrimSpace(clean)
}
