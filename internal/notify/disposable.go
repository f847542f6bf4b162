package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"regexp"
	"strings"

	"github.com/wolfman30/voicemail-notifier/pkg/logging"
)

// DefaultDisposableAPI is the public test-account service.
const DefaultDisposableAPI = "https://api.nodemailer.com"

const defaultDisposableWeb = "https://ethereal.email"

var acceptedMessageID = regexp.MustCompile(`MSGID=([^\s\]]+)`)

// DisposableAccount is a throwaway SMTP account whose mail is captured for
// preview instead of delivered.
type DisposableAccount struct {
	User string `json:"user"`
	Pass string `json:"pass"`
	SMTP struct {
		Host   string `json:"host"`
		Port   int    `json:"port"`
		Secure bool   `json:"secure"`
	} `json:"smtp"`
	Web string `json:"web"`
}

// DisposableProvisioner creates test accounts through the account API.
type DisposableProvisioner struct {
	apiURL string
	client *http.Client
	logger *logging.Logger
}

// NewDisposableProvisioner returns a provisioner for apiURL, or the public
// service when apiURL is empty.
func NewDisposableProvisioner(apiURL string, client *http.Client, logger *logging.Logger) *DisposableProvisioner {
	if strings.TrimSpace(apiURL) == "" {
		apiURL = DefaultDisposableAPI
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DisposableProvisioner{
		apiURL: strings.TrimRight(apiURL, "/"),
		client: client,
		logger: logger,
	}
}

// Provision requests a new account.
func (p *DisposableProvisioner) Provision(ctx context.Context) (DisposableAccount, error) {
	payload, err := json.Marshal(map[string]string{
		"requestor": "voicemail-notifier",
		"version":   "1.0.0",
	})
	if err != nil {
		return DisposableAccount{}, fmt.Errorf("notify: encode account request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/user", bytes.NewReader(payload))
	if err != nil {
		return DisposableAccount{}, fmt.Errorf("notify: build account request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return DisposableAccount{}, fmt.Errorf("notify: provision test account: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return DisposableAccount{}, fmt.Errorf("notify: read account response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return DisposableAccount{}, fmt.Errorf("notify: account api returned status %d", resp.StatusCode)
	}

	var account DisposableAccount
	if err := json.Unmarshal(body, &account); err != nil {
		return DisposableAccount{}, fmt.Errorf("notify: decode account response: %w", err)
	}
	if account.User == "" || account.SMTP.Host == "" || account.SMTP.Port == 0 {
		return DisposableAccount{}, fmt.Errorf("notify: account api returned incomplete account")
	}
	if account.Web == "" {
		account.Web = defaultDisposableWeb
	}

	p.logger.Info("provisioned disposable test account", "user", account.User, "smtp_host", account.SMTP.Host)
	return account, nil
}

// NewDisposableTransport provisions an account and returns an SMTP transport
// bound to it. Receipts carry a preview URL for the captured message.
func NewDisposableTransport(ctx context.Context, cfg TransportConfig, p *DisposableProvisioner, logger *logging.Logger, opts ...SMTPOption) (*SMTPTransport, error) {
	account, err := p.Provision(ctx)
	if err != nil {
		return nil, err
	}

	settings := SMTPSettings{
		Kind:     KindDisposable,
		Name:     "Ethereal (test)",
		Host:     account.SMTP.Host,
		Port:     account.SMTP.Port,
		Secure:   account.SMTP.Secure,
		User:     account.User,
		Password: account.Pass,
		From:     mail.Address{Name: cfg.FromName, Address: cfg.sender(account.User)},
	}
	opts = append(opts, withPreview(previewURL(account.Web)))
	return NewSMTPTransport(settings, logger, opts...)
}

// previewURL maps a "250 Accepted [STATUS=new MSGID=...]" reply to the
// message's web preview.
func previewURL(web string) func(string) string {
	web = strings.TrimRight(web, "/")
	return func(reply string) string {
		m := acceptedMessageID.FindStringSubmatch(reply)
		if m == nil {
			return ""
		}
		return web + "/message/" + m[1]
	}
}
