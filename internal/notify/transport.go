package notify

import (
	"context"
	"time"
)

// Kind identifies a delivery transport in the selection table.
type Kind string

const (
	KindCustomSMTP  Kind = "custom_smtp"
	KindManagedSMTP Kind = "managed_smtp"
	KindSendGrid    Kind = "sendgrid"
	KindSES         Kind = "ses"
	KindPostmark    Kind = "postmark"
	KindDisposable  Kind = "disposable"
)

// Transport sends one rendered notification. Implementations make exactly
// one delivery attempt per Send call.
type Transport interface {
	Kind() Kind
	// Name is the human-readable service label reported to callers.
	Name() string
	Send(ctx context.Context, n Notification) (Receipt, error)
}

// Receipt is what a transport learned from a successful send.
type Receipt struct {
	MessageID  string
	PreviewURL string
	// Response is the raw provider acknowledgement, e.g. the final SMTP reply.
	Response string
}

// DeliveryResult is the outcome of a successful dispatch.
type DeliveryResult struct {
	TransportKind Kind
	Service       string
	MessageID     string
	PreviewURL    string
	Recipient     string
}

// SMTPCredentials configure the direct SMTP candidate.
type SMTPCredentials struct {
	Host     string
	Port     int
	User     string
	Password string
	// Secure selects implicit TLS (SMTPS) instead of opportunistic STARTTLS.
	Secure bool
}

// ServiceCredentials configure a well-known mail service such as Gmail.
type ServiceCredentials struct {
	Service  string
	User     string
	Password string
}

type SendGridCredentials struct {
	APIKey    string
	FromEmail string
	// BaseURL overrides the API host, e.g. https://api.eu.sendgrid.com.
	BaseURL string
}

type SESCredentials struct {
	FromEmail       string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

type PostmarkCredentials struct {
	ServerToken  string
	AccountToken string
	FromEmail    string
	BaseURL      string
}

// DisposableSettings configure the zero-credential test account fallback.
type DisposableSettings struct {
	Disabled bool
	APIURL   string
}

// TransportConfig is built once at start-up and shared read-only by every
// request.
type TransportConfig struct {
	// Recipient is the single destination for every notification.
	Recipient string
	// FromEmail, when set, is the envelope sender for every transport.
	FromEmail string
	FromName  string

	SMTP       SMTPCredentials
	Service    ServiceCredentials
	SendGrid   SendGridCredentials
	SES        SESCredentials
	Postmark   PostmarkCredentials
	Disposable DisposableSettings

	// Timeout bounds account provisioning and each send.
	Timeout   time.Duration
	HelloName string
}

// sender resolves the envelope sender: the configured sender address, else
// the transport's own account, else the destination address.
func (c TransportConfig) sender(account string) string {
	for _, candidate := range []string{c.FromEmail, account, c.Recipient} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}
