package notify

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"
	"github.com/wolfman30/voicemail-notifier/pkg/logging"
)

// SESAPI is the subset of the SES v2 client the transport uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESTransport sends notifications through AWS SES.
type SESTransport struct {
	client SESAPI
	from   mail.Address
	logger *logging.Logger
}

// NewSESTransport loads AWS configuration for the SES credentials in cfg and
// returns a transport. Static keys are used when both are set; otherwise the
// default credential chain applies.
func NewSESTransport(ctx context.Context, cfg TransportConfig, logger *logging.Logger) (*SESTransport, error) {
	if strings.TrimSpace(cfg.SES.Region) == "" {
		return nil, errors.New("notify: ses region is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.SES.Region)}
	if cfg.SES.AccessKeyID != "" && cfg.SES.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.SES.AccessKeyID, cfg.SES.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("notify: load aws config: %w", err)
	}

	client := sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
		if cfg.SES.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.SES.Endpoint)
		}
		// one attempt per request
		o.RetryMaxAttempts = 1
	})
	return NewSESTransportWithClient(client, cfg, logger)
}

// NewSESTransportWithClient wraps an existing SES client.
func NewSESTransportWithClient(client SESAPI, cfg TransportConfig, logger *logging.Logger) (*SESTransport, error) {
	if client == nil {
		return nil, errors.New("notify: ses client is required")
	}
	from := cfg.sender(cfg.SES.FromEmail)
	if from == "" {
		return nil, errors.New("notify: ses sender address is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SESTransport{
		client: client,
		from:   mail.Address{Name: cfg.FromName, Address: from},
		logger: logger,
	}, nil
}

func (s *SESTransport) Kind() Kind   { return KindSES }
func (s *SESTransport) Name() string { return "Amazon SES" }

// Send sends n via SES.
func (s *SESTransport) Send(ctx context.Context, n Notification) (Receipt, error) {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from.String()),
		Destination: &types.Destination{
			ToAddresses: []string{n.Recipient},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(n.Subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Text: &types.Content{
						Data:    aws.String(n.TextBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}
	if n.HTMLBody != "" {
		input.Content.Simple.Body.Html = &types.Content{
			Data:    aws.String(n.HTMLBody),
			Charset: aws.String("UTF-8"),
		}
	}

	output, err := s.client.SendEmail(ctx, input)
	if err != nil {
		code := CodeConnection
		var apiErr smithy.APIError
		switch {
		case errors.As(err, &apiErr):
			code = apiErr.ErrorCode()
		case isTimeout(err):
			code = CodeTimeout
		}
		return Receipt{}, newSendError(code, 0, fmt.Errorf("ses send: %w", err))
	}
	return Receipt{MessageID: aws.ToString(output.MessageId)}, nil
}

var _ Transport = (*SESTransport)(nil)
