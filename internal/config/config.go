package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/wolfman30/voicemail-notifier/internal/notify"
)

// ErrParsingConfig wraps every environment parsing failure.
var ErrParsingConfig = errors.New("config: parse environment")

// Config holds application configuration
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	Env      string `env:"ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// WorkEmail receives every notification.
	WorkEmail    string `env:"WORK_EMAIL,required,notEmpty"`
	FromEmail    string `env:"FROM_EMAIL"`
	FromName     string `env:"FROM_NAME" envDefault:"Answering Service"`
	BusinessName string `env:"BUSINESS_NAME"`
	Timezone     string `env:"TIMEZONE"`

	SMTPHost      string `env:"SMTP_HOST"`
	SMTPPort      int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser      string `env:"SMTP_USER"`
	SMTPPass      string `env:"SMTP_PASS"`
	SMTPSecure    bool   `env:"SMTP_SECURE" envDefault:"false"`
	SMTPHelloName string `env:"SMTP_HELLO_NAME"`

	EmailService string `env:"EMAIL_SERVICE" envDefault:"gmail"`
	EmailUser    string `env:"EMAIL_USER"`
	EmailPass    string `env:"EMAIL_PASS"`

	SendGridAPIKey    string `env:"SENDGRID_API_KEY"`
	SendGridFromEmail string `env:"SENDGRID_FROM_EMAIL"`
	SendGridBaseURL   string `env:"SENDGRID_BASE_URL"`

	SESFromEmail        string `env:"SES_FROM_EMAIL"`
	AWSRegion           string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSAccessKeyID      string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey  string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSEndpointOverride string `env:"AWS_ENDPOINT_OVERRIDE"`

	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	PostmarkFromEmail    string `env:"POSTMARK_FROM_EMAIL"`

	DisposableFallback bool   `env:"DISPOSABLE_FALLBACK" envDefault:"true"`
	DisposableAPIURL   string `env:"DISPOSABLE_API_URL" envDefault:"https://api.nodemailer.com"`

	SendTimeout        time.Duration `env:"SEND_TIMEOUT" envDefault:"30s"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads an optional .env file, then parses the process environment.
func Load() (*Config, error) {
	// a missing .env file is fine
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Join(ErrParsingConfig, err)
	}
	return cfg.normalize(), nil
}

// Parse builds a Config from an explicit environment, ignoring the process
// environment and .env files.
func Parse(environ map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, errors.Join(ErrParsingConfig, err)
	}
	return cfg.normalize(), nil
}

func (c *Config) normalize() *Config {
	c.WorkEmail = strings.TrimSpace(c.WorkEmail)
	origins := c.CORSAllowedOrigins[:0]
	for _, origin := range c.CORSAllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	c.CORSAllowedOrigins = origins
	return c
}

// Location resolves TIMEZONE; empty means the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	if strings.TrimSpace(c.Timezone) == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(strings.TrimSpace(c.Timezone))
	if err != nil {
		return nil, fmt.Errorf("config: invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// TransportConfig builds the immutable delivery configuration.
func (c *Config) TransportConfig() notify.TransportConfig {
	return notify.TransportConfig{
		Recipient: c.WorkEmail,
		FromEmail: strings.TrimSpace(c.FromEmail),
		FromName:  c.FromName,
		HelloName: c.SMTPHelloName,
		Timeout:   c.SendTimeout,
		SMTP: notify.SMTPCredentials{
			Host:     c.SMTPHost,
			Port:     c.SMTPPort,
			User:     c.SMTPUser,
			Password: c.SMTPPass,
			Secure:   c.SMTPSecure,
		},
		Service: notify.ServiceCredentials{
			Service:  c.EmailService,
			User:     c.EmailUser,
			Password: c.EmailPass,
		},
		SendGrid: notify.SendGridCredentials{
			APIKey:    c.SendGridAPIKey,
			FromEmail: c.SendGridFromEmail,
			BaseURL:   c.SendGridBaseURL,
		},
		SES: notify.SESCredentials{
			FromEmail:       c.SESFromEmail,
			Region:          c.AWSRegion,
			AccessKeyID:     c.AWSAccessKeyID,
			SecretAccessKey: c.AWSSecretAccessKey,
			Endpoint:        c.AWSEndpointOverride,
		},
		Postmark: notify.PostmarkCredentials{
			ServerToken:  c.PostmarkServerToken,
			AccountToken: c.PostmarkAccountToken,
			FromEmail:    c.PostmarkFromEmail,
		},
		Disposable: notify.DisposableSettings{
			Disabled: !c.DisposableFallback,
			APIURL:   c.DisposableAPIURL,
		},
	}
}
