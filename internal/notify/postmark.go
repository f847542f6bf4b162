package notify

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"github.com/mrz1836/postmark"
	"github.com/wolfman30/voicemail-notifier/pkg/logging"
)

// PostmarkTransport sends notifications through Postmark's transactional API.
type PostmarkTransport struct {
	client *postmark.Client
	from   mail.Address
	logger *logging.Logger
}

// NewPostmarkTransport creates a Postmark transport from cfg.
func NewPostmarkTransport(cfg TransportConfig, logger *logging.Logger) (*PostmarkTransport, error) {
	if strings.TrimSpace(cfg.Postmark.ServerToken) == "" {
		return nil, errors.New("notify: postmark server token is required")
	}
	from := cfg.sender(cfg.Postmark.FromEmail)
	if from == "" {
		return nil, errors.New("notify: postmark sender address is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	client := postmark.NewClient(cfg.Postmark.ServerToken, cfg.Postmark.AccountToken)
	if base := strings.TrimRight(cfg.Postmark.BaseURL, "/"); base != "" {
		client.BaseURL = base
	}
	return &PostmarkTransport{
		client: client,
		from:   mail.Address{Name: cfg.FromName, Address: from},
		logger: logger,
	}, nil
}

func (p *PostmarkTransport) Kind() Kind   { return KindPostmark }
func (p *PostmarkTransport) Name() string { return "Postmark" }

// Send sends n via Postmark.
func (p *PostmarkTransport) Send(ctx context.Context, n Notification) (Receipt, error) {
	resp, err := p.client.SendEmail(ctx, postmark.Email{
		From:     p.from.String(),
		To:       n.Recipient,
		Subject:  n.Subject,
		TextBody: n.TextBody,
		HTMLBody: n.HTMLBody,
		Tag:      "voicemail",
	})
	if resp.ErrorCode > 0 {
		return Receipt{}, newSendError(strconv.FormatInt(resp.ErrorCode, 10), 0,
			fmt.Errorf("postmark error %d: %s", resp.ErrorCode, resp.Message))
	}
	if err != nil {
		code := CodeConnection
		if isTimeout(err) {
			code = CodeTimeout
		}
		return Receipt{}, newSendError(code, 0, fmt.Errorf("postmark send: %w", err))
	}
	return Receipt{MessageID: resp.MessageID, Response: resp.Message}, nil
}

var _ Transport = (*PostmarkTransport)(nil)
