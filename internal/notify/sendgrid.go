package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/wolfman30/voicemail-notifier/pkg/logging"
)

// SendGridTransport sends notifications through the SendGrid v3 mail API.
type SendGridTransport struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// NewSendGridTransport creates a SendGrid transport. The sender is
// FromEmail, else the SendGrid sender address, else the recipient.
func NewSendGridTransport(cfg TransportConfig, logger *logging.Logger) (*SendGridTransport, error) {
	if strings.TrimSpace(cfg.SendGrid.APIKey) == "" {
		return nil, errors.New("notify: sendgrid api key is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	client := sendgrid.NewSendClient(cfg.SendGrid.APIKey)
	if base := strings.TrimRight(cfg.SendGrid.BaseURL, "/"); base != "" {
		client.BaseURL = base + "/v3/mail/send"
	}
	return &SendGridTransport{
		client:    client,
		fromEmail: cfg.sender(cfg.SendGrid.FromEmail),
		fromName:  cfg.FromName,
		logger:    logger,
	}, nil
}

func (s *SendGridTransport) Kind() Kind   { return KindSendGrid }
func (s *SendGridTransport) Name() string { return "SendGrid" }

// Send sends n via SendGrid.
func (s *SendGridTransport) Send(ctx context.Context, n Notification) (Receipt, error) {
	from := sgmail.NewEmail(s.fromName, s.fromEmail)
	to := sgmail.NewEmail("", n.Recipient)

	html := n.HTMLBody
	if html == "" {
		html = n.TextBody
	}
	message := sgmail.NewSingleEmail(from, n.Subject, to, n.TextBody, html)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		code := CodeConnection
		if isTimeout(err) {
			code = CodeTimeout
		}
		return Receipt{}, newSendError(code, 0, fmt.Errorf("sendgrid send: %w", err))
	}
	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid returned error status", "status", response.StatusCode, "body", response.Body)
		return Receipt{}, newSendError(strconv.Itoa(response.StatusCode), response.StatusCode,
			fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, strings.TrimSpace(response.Body)))
	}

	receipt := Receipt{Response: strconv.Itoa(response.StatusCode)}
	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 {
		receipt.MessageID = ids[0]
	}
	return receipt, nil
}

var _ Transport = (*SendGridTransport)(nil)
