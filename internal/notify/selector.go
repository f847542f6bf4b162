package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/wolfman30/voicemail-notifier/pkg/logging"
)

// BuildFunc constructs a transport from the shared configuration.
type BuildFunc func(ctx context.Context, cfg TransportConfig) (Transport, error)

type credential struct {
	Name  string
	Value string
}

type strategy struct {
	kind     Kind
	required func(TransportConfig) []credential
	build    BuildFunc
}

// Candidate reports whether one strategy has everything it needs.
type Candidate struct {
	Kind    Kind
	Ready   bool
	Missing []string
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithHTTPClient sets the client used to provision disposable accounts.
func WithHTTPClient(c *http.Client) SelectorOption {
	return func(s *Selector) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithSMTPOptions applies opts to every SMTP-based transport.
func WithSMTPOptions(opts ...SMTPOption) SelectorOption {
	return func(s *Selector) {
		s.smtpOpts = append(s.smtpOpts, opts...)
	}
}

// WithBuilder replaces the constructor for kind.
func WithBuilder(kind Kind, build BuildFunc) SelectorOption {
	return func(s *Selector) {
		if build != nil {
			s.overrides[kind] = build
		}
	}
}

// Selector picks the first transport, in fixed priority order, whose
// credentials are complete and whose constructor succeeds.
type Selector struct {
	cfg        TransportConfig
	strategies []strategy
	httpClient *http.Client
	smtpOpts   []SMTPOption
	overrides  map[Kind]BuildFunc
	logger     *logging.Logger
}

// NewSelector returns a selector over cfg.
func NewSelector(cfg TransportConfig, logger *logging.Logger, opts ...SelectorOption) *Selector {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Selector{
		cfg:       cfg,
		overrides: make(map[Kind]BuildFunc),
		logger:    logger,
	}
	if cfg.HelloName != "" {
		s.smtpOpts = append(s.smtpOpts, WithSMTPHelloName(cfg.HelloName))
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.strategies = s.table()
	return s
}

func (s *Selector) table() []strategy {
	table := []strategy{
		{
			kind: KindCustomSMTP,
			required: func(c TransportConfig) []credential {
				return []credential{
					{"SMTP_HOST", c.SMTP.Host},
					{"SMTP_USER", c.SMTP.User},
					{"SMTP_PASS", c.SMTP.Password},
				}
			},
			build: s.buildCustomSMTP,
		},
		{
			kind: KindManagedSMTP,
			required: func(c TransportConfig) []credential {
				return []credential{
					{"EMAIL_USER", c.Service.User},
					{"EMAIL_PASS", c.Service.Password},
				}
			},
			build: s.buildManagedSMTP,
		},
		{
			kind: KindSendGrid,
			required: func(c TransportConfig) []credential {
				return []credential{
					{"SENDGRID_API_KEY", c.SendGrid.APIKey},
					{"SENDGRID_FROM_EMAIL", firstNonEmpty(c.SendGrid.FromEmail, c.FromEmail)},
				}
			},
			build: func(_ context.Context, c TransportConfig) (Transport, error) {
				return NewSendGridTransport(c, s.logger)
			},
		},
		{
			kind: KindSES,
			required: func(c TransportConfig) []credential {
				return []credential{
					{"SES_FROM_EMAIL", c.SES.FromEmail},
					{"AWS_REGION", c.SES.Region},
				}
			},
			build: func(ctx context.Context, c TransportConfig) (Transport, error) {
				return NewSESTransport(ctx, c, s.logger)
			},
		},
		{
			kind: KindPostmark,
			required: func(c TransportConfig) []credential {
				return []credential{
					{"POSTMARK_SERVER_TOKEN", c.Postmark.ServerToken},
					{"POSTMARK_FROM_EMAIL", firstNonEmpty(c.Postmark.FromEmail, c.FromEmail)},
				}
			},
			build: func(_ context.Context, c TransportConfig) (Transport, error) {
				return NewPostmarkTransport(c, s.logger)
			},
		},
		{
			kind: KindDisposable,
			required: func(c TransportConfig) []credential {
				if c.Disposable.Disabled {
					return []credential{{"DISPOSABLE_FALLBACK", ""}}
				}
				return nil
			},
			build: s.buildDisposable,
		},
	}
	for i := range table {
		if build, ok := s.overrides[table[i].kind]; ok {
			table[i].build = build
		}
	}
	return table
}

// Select returns the first buildable transport. When none can be built the
// error matches ErrNoTransportAvailable and carries each candidate's cause.
func (s *Selector) Select(ctx context.Context) (Transport, error) {
	var errs []error
	for _, st := range s.strategies {
		if len(missing(st.required(s.cfg))) > 0 {
			continue
		}
		t, err := st.build(ctx, s.cfg)
		if err != nil {
			s.logger.Warn("transport unavailable", "transport", st.kind, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", st.kind, err))
			continue
		}
		s.logger.Info("transport selected", "transport", st.kind, "service", t.Name())
		return t, nil
	}
	return nil, errors.Join(append([]error{ErrNoTransportAvailable}, errs...)...)
}

// Plan reports readiness for every candidate in priority order without
// building anything.
func (s *Selector) Plan() []Candidate {
	plan := make([]Candidate, 0, len(s.strategies))
	for _, st := range s.strategies {
		m := missing(st.required(s.cfg))
		plan = append(plan, Candidate{Kind: st.kind, Ready: len(m) == 0, Missing: m})
	}
	return plan
}

func (s *Selector) buildCustomSMTP(_ context.Context, c TransportConfig) (Transport, error) {
	port := c.SMTP.Port
	if port == 0 {
		port = 587
	}
	return NewSMTPTransport(SMTPSettings{
		Kind:     KindCustomSMTP,
		Name:     "Custom SMTP",
		Host:     strings.TrimSpace(c.SMTP.Host),
		Port:     port,
		Secure:   c.SMTP.Secure,
		User:     c.SMTP.User,
		Password: c.SMTP.Password,
		From:     mail.Address{Name: c.FromName, Address: c.sender(c.SMTP.User)},
	}, s.logger, s.smtpOpts...)
}

func (s *Selector) buildManagedSMTP(_ context.Context, c TransportConfig) (Transport, error) {
	svc, err := LookupMailService(c.Service.Service)
	if err != nil {
		return nil, err
	}
	return NewSMTPTransport(SMTPSettings{
		Kind:     KindManagedSMTP,
		Name:     svc.Label,
		Host:     svc.Host,
		Port:     svc.Port,
		Secure:   svc.Secure,
		User:     c.Service.User,
		Password: c.Service.Password,
		From:     mail.Address{Name: c.FromName, Address: c.sender(c.Service.User)},
	}, s.logger, s.smtpOpts...)
}

func (s *Selector) buildDisposable(ctx context.Context, c TransportConfig) (Transport, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	p := NewDisposableProvisioner(c.Disposable.APIURL, s.httpClient, s.logger)
	return NewDisposableTransport(ctx, c, p, s.logger, s.smtpOpts...)
}

func missing(creds []credential) []string {
	var names []string
	for _, c := range creds {
		if strings.TrimSpace(c.Value) == "" {
			names = append(names, c.Name)
		}
	}
	return names
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
