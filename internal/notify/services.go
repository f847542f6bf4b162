package notify

import (
	"fmt"
	"strings"
)

// MailService describes a well-known provider reachable with account
// credentials alone.
type MailService struct {
	Label  string
	Host   string
	Port   int
	Secure bool
}

var mailServices = map[string]MailService{
	"gmail":   {Label: "Gmail", Host: "smtp.gmail.com", Port: 465, Secure: true},
	"outlook": {Label: "Outlook", Host: "smtp-mail.outlook.com", Port: 587},
	"hotmail": {Label: "Hotmail", Host: "smtp-mail.outlook.com", Port: 587},
	"yahoo":   {Label: "Yahoo", Host: "smtp.mail.yahoo.com", Port: 465, Secure: true},
	"icloud":  {Label: "iCloud", Host: "smtp.mail.me.com", Port: 587},
	"zoho":    {Label: "Zoho", Host: "smtp.zoho.com", Port: 465, Secure: true},
	"brevo":   {Label: "Brevo", Host: "smtp-relay.brevo.com", Port: 587},
}

// LookupMailService resolves a service name case-insensitively.
func LookupMailService(name string) (MailService, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = "gmail"
	}
	svc, ok := mailServices[key]
	if !ok {
		return MailService{}, fmt.Errorf("notify: unknown mail service %q", name)
	}
	return svc, nil
}
