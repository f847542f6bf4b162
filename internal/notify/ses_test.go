package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-123")}, nil
}

func TestSESTransportSend(t *testing.T) {
	client := &fakeSES{}
	cfg := TransportConfig{
		Recipient: "office@example.com",
		FromName:  "Answering Service",
		SES:       SESCredentials{FromEmail: "ses@example.com", Region: "us-east-1"},
	}
	tr, err := NewSESTransportWithClient(client, cfg, nil)
	require.NoError(t, err)

	receipt, err := tr.Send(context.Background(), Notification{
		Subject:   "subject",
		TextBody:  "text",
		HTMLBody:  "<p>html</p>",
		Recipient: cfg.Recipient,
	})
	require.NoError(t, err)
	assert.Equal(t, "ses-123", receipt.MessageID)

	require.NotNil(t, client.input)
	assert.Equal(t, `"Answering Service" <ses@example.com>`, aws.ToString(client.input.FromEmailAddress))
	assert.Equal(t, []string{"office@example.com"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "text", aws.ToString(client.input.Content.Simple.Body.Text.Data))
	assert.Equal(t, "<p>html</p>", aws.ToString(client.input.Content.Simple.Body.Html.Data))
}

func TestSESTransportAPIErrorCode(t *testing.T) {
	client := &fakeSES{err: &smithy.GenericAPIError{Code: "MessageRejected", Message: "Email address is not verified."}}
	cfg := TransportConfig{Recipient: "office@example.com", SES: SESCredentials{FromEmail: "ses@example.com"}}
	tr, err := NewSESTransportWithClient(client, cfg, nil)
	require.NoError(t, err)

	_, err = tr.Send(context.Background(), Notification{Subject: "s", TextBody: "b", Recipient: cfg.Recipient})
	var se *sendError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "MessageRejected", se.Code())
}

func TestNewSESTransport(t *testing.T) {
	cfg := TransportConfig{
		Recipient: "office@example.com",
		SES: SESCredentials{
			FromEmail:       "ses@example.com",
			Region:          "us-west-2",
			AccessKeyID:     "AKIDEXAMPLE",
			SecretAccessKey: "secret",
			Endpoint:        "http://127.0.0.1:4566",
		},
	}
	tr, err := NewSESTransport(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, KindSES, tr.Kind())

	_, err = NewSESTransport(context.Background(), TransportConfig{}, nil)
	assert.Error(t, err)
}
