package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/voicemail-notifier/pkg/logging"
)

// SMTP failure codes, one per protocol stage.
const (
	CodeConnection = "ECONNECTION"
	CodeTimeout    = "ETIMEDOUT"
	CodeProtocol   = "EPROTOCOL"
	CodeTLS        = "ETLS"
	CodeAuth       = "EAUTH"
	CodeEnvelope   = "EENVELOPE"
	CodeMessage    = "EMESSAGE"
)

// Dialer abstracts net.Dialer so tests can point the transport at a fake
// server.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// SMTPOption configures an SMTPTransport.
type SMTPOption func(*SMTPTransport)

// WithSMTPDialer swaps the network dialer.
func WithSMTPDialer(d Dialer) SMTPOption {
	return func(t *SMTPTransport) {
		if d != nil {
			t.dialer = d
		}
	}
}

// WithSMTPTLSConfig overrides the TLS configuration used for STARTTLS and
// implicit TLS.
func WithSMTPTLSConfig(cfg *tls.Config) SMTPOption {
	return func(t *SMTPTransport) {
		t.tlsConfig = cfg
	}
}

// WithSMTPHelloName sets the EHLO identity.
func WithSMTPHelloName(name string) SMTPOption {
	return func(t *SMTPTransport) {
		if strings.TrimSpace(name) != "" {
			t.helloName = strings.TrimSpace(name)
		}
	}
}

// WithSMTPClock replaces the clock used for the Date header.
func WithSMTPClock(now func() time.Time) SMTPOption {
	return func(t *SMTPTransport) {
		if now != nil {
			t.now = now
		}
	}
}

// WithSMTPTimeout bounds one delivery, dial to QUIT.
func WithSMTPTimeout(d time.Duration) SMTPOption {
	return func(t *SMTPTransport) {
		t.timeout = d
	}
}

func withPreview(fn func(reply string) string) SMTPOption {
	return func(t *SMTPTransport) {
		t.preview = fn
	}
}

// SMTPSettings identify one SMTP account.
type SMTPSettings struct {
	Kind     Kind
	Name     string
	Host     string
	Port     int
	Secure   bool
	User     string
	Password string
	From     mail.Address
}

// SMTPTransport delivers notifications over SMTP, upgrading with STARTTLS
// and authenticating when the server advertises support.
type SMTPTransport struct {
	kind      Kind
	name      string
	host      string
	port      int
	secure    bool
	auth      smtp.Auth
	from      mail.Address
	helloName string
	dialer    Dialer
	tlsConfig *tls.Config
	timeout   time.Duration
	now       func() time.Time
	preview   func(reply string) string
	logger    *logging.Logger
}

// NewSMTPTransport validates settings and returns a transport.
func NewSMTPTransport(s SMTPSettings, logger *logging.Logger, opts ...SMTPOption) (*SMTPTransport, error) {
	if strings.TrimSpace(s.Host) == "" {
		return nil, errors.New("notify: smtp host is required")
	}
	if s.Port <= 0 || s.Port > 65535 {
		return nil, fmt.Errorf("notify: invalid smtp port %d", s.Port)
	}
	if _, err := mail.ParseAddress(s.From.Address); err != nil {
		return nil, fmt.Errorf("notify: invalid sender %q: %w", s.From.Address, err)
	}
	if logger == nil {
		logger = logging.Default()
	}
	if s.Kind == "" {
		s.Kind = KindCustomSMTP
	}
	if s.Name == "" {
		s.Name = "Custom SMTP"
	}

	t := &SMTPTransport{
		kind:      s.Kind,
		name:      s.Name,
		host:      s.Host,
		port:      s.Port,
		secure:    s.Secure,
		from:      s.From,
		helloName: "localhost",
		dialer:    &net.Dialer{Timeout: 30 * time.Second},
		tlsConfig: &tls.Config{ServerName: s.Host, MinVersion: tls.VersionTLS12},
		now:       time.Now,
		logger:    logger,
	}
	if strings.TrimSpace(s.User) != "" {
		t.auth = smtp.PlainAuth("", s.User, s.Password, s.Host)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t, nil
}

func (t *SMTPTransport) Kind() Kind   { return t.kind }
func (t *SMTPTransport) Name() string { return t.name }

// Send makes one delivery attempt to n.Recipient.
func (t *SMTPTransport) Send(ctx context.Context, n Notification) (Receipt, error) {
	rcpt, err := mail.ParseAddress(n.Recipient)
	if err != nil {
		return Receipt{}, newSendError(CodeEnvelope, 0, fmt.Errorf("notify: invalid recipient %q: %w", n.Recipient, err))
	}

	env := envelope{
		From:      t.from,
		To:        rcpt.Address,
		MessageID: newMessageID(t.from.Address),
		Date:      t.now(),
	}
	msg, err := buildMessage(env, n)
	if err != nil {
		return Receipt{}, newSendError(CodeMessage, 0, err)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	reply, err := t.deliver(ctx, env, msg)
	if err != nil {
		return Receipt{}, err
	}

	receipt := Receipt{MessageID: env.MessageID, Response: reply}
	if t.preview != nil {
		receipt.PreviewURL = t.preview(reply)
	}
	t.logger.Debug("smtp message accepted", "transport", t.kind, "host", t.host, "response", reply)
	return receipt, nil
}

// deliver runs the SMTP session and returns the server's reply to the
// message data.
func (t *SMTPTransport) deliver(ctx context.Context, env envelope, msg []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", stageError(CodeConnection, "dial", err)
	}

	addr := net.JoinHostPort(t.host, strconv.Itoa(t.port))
	conn, err := t.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", stageError(CodeConnection, "dial", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if t.secure {
		tlsConn := tls.Client(conn, t.sessionTLSConfig())
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return "", stageError(CodeTLS, "tls handshake", err)
		}
		conn = tlsConn
	}

	client, err := smtp.NewClient(conn, t.host)
	if err != nil {
		return "", stageError(CodeProtocol, "greeting", err)
	}
	defer client.Close()

	if err := client.Hello(t.helloName); err != nil {
		return "", stageError(CodeProtocol, "hello", err)
	}

	if !t.secure {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(t.sessionTLSConfig()); err != nil {
				return "", stageError(CodeTLS, "starttls", err)
			}
		}
	}

	if t.auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(t.auth); err != nil {
				return "", stageError(CodeAuth, "auth", err)
			}
		}
	}

	if err := client.Mail(env.From.Address); err != nil {
		return "", stageError(CodeEnvelope, "mail from", err)
	}
	if err := client.Rcpt(env.To); err != nil {
		return "", stageError(CodeEnvelope, "rcpt to", err)
	}

	reply, err := sendData(client.Text, msg)
	if err != nil {
		return "", stageError(CodeMessage, "data", err)
	}

	if err := client.Quit(); err != nil && !errors.Is(err, io.EOF) {
		t.logger.Warn("smtp quit failed", "transport", t.kind, "error", err)
	}
	return reply, nil
}

// sendData runs the DATA exchange directly so the final reply text, which
// some servers use to report queue ids, is kept.
func sendData(text *textproto.Conn, msg []byte) (string, error) {
	id, err := text.Cmd("DATA")
	if err != nil {
		return "", err
	}
	text.StartResponse(id)
	_, _, err = text.ReadResponse(354)
	text.EndResponse(id)
	if err != nil {
		return "", err
	}

	w := text.DotWriter()
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	_, reply, err := text.ReadResponse(250)
	if err != nil {
		return "", err
	}
	return reply, nil
}

func (t *SMTPTransport) sessionTLSConfig() *tls.Config {
	if t.tlsConfig == nil {
		return &tls.Config{ServerName: t.host, MinVersion: tls.VersionTLS12}
	}
	cfg := t.tlsConfig.Clone()
	if cfg.ServerName == "" {
		cfg.ServerName = t.host
	}
	return cfg
}

func stageError(code, stage string, err error) error {
	if isTimeout(err) {
		code = CodeTimeout
	}
	responseCode := 0
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		responseCode = tpErr.Code
	}
	return newSendError(code, responseCode, fmt.Errorf("smtp %s: %w", stage, err))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

var _ Transport = (*SMTPTransport)(nil)
