// internal/pkg/email/api_providers.go
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ruralcare/medreserve/internal/config"
)

// Resend API structures
type ResendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

// SendGrid API structures
type SendGridEmailRequest struct {
	Personalizations []SendGridPersonalization `json:"personalizations"`
	From             Address                   `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []SendGridContent         `json:"content"`
	ReplyTo          *Address                  `json:"reply_to,omitempty"`
}

type SendGridPersonalization struct {
	To []Address `json:"to"`
}

type SendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// MailerSend API structures
type MailerSendRequest struct {
	From    Address   `json:"from"`
	To      []Address `json:"to"`
	Subject string    `json:"subject"`
	HTML    string    `json:"html"`
	ReplyTo *Address  `json:"reply_to,omitempty"`
	Tags    []string  `json:"tags,omitempty"`
}

// Address is the object form SendGrid and MailerSend use for mailboxes
type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// apiProvider describes one HTTP email API
type apiProvider struct {
	label    string
	accepted int
	payload  func(cfg config.EmailConfig, email *Email) interface{}
}

var apiProviders = map[string]apiProvider{
	"resend": {
		label:    "Resend",
		accepted: http.StatusOK,
		payload: func(cfg config.EmailConfig, email *Email) interface{} {
			return ResendEmailRequest{
				From:    formatFrom(cfg),
				To:      email.To,
				Subject: email.Subject,
				HTML:    email.HTMLContent,
				ReplyTo: cfg.ReplyTo,
			}
		},
	},
	"sendgrid": {
		label:    "SendGrid",
		accepted: http.StatusAccepted,
		payload: func(cfg config.EmailConfig, email *Email) interface{} {
			return SendGridEmailRequest{
				Personalizations: []SendGridPersonalization{{To: addresses(email.To)}},
				From:             Address{Email: cfg.FromEmail, Name: cfg.FromName},
				Subject:          email.Subject,
				Content:          []SendGridContent{{Type: "text/html", Value: email.HTMLContent}},
				ReplyTo:          replyTo(cfg),
			}
		},
	},
	"mailersend": {
		label:    "MailerSend",
		accepted: http.StatusAccepted,
		payload: func(cfg config.EmailConfig, email *Email) interface{} {
			return MailerSendRequest{
				From:    Address{Email: cfg.FromEmail, Name: cfg.FromName},
				To:      addresses(email.To),
				Subject: email.Subject,
				HTML:    email.HTMLContent,
				ReplyTo: replyTo(cfg),
				Tags:    []string{string(email.Type)},
			}
		},
	},
}

// sendAPIEmail posts email to the named provider's HTTP API
func (s *EmailService) sendAPIEmail(ctx context.Context, name string, email *Email) error {
	provider := apiProviders[name]
	cfg := s.config.External.Email
	if cfg.APIKey == "" {
		return fmt.Errorf("%s API key not configured", provider.label)
	}

	body, err := json.Marshal(provider.payload(cfg, email))
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", provider.label, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoints[name], bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", provider.label, err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s request: %w", provider.label, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != provider.accepted {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s API returned status %d: %s", provider.label, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	s.logger.WithField("provider", name).WithField("type", email.Type).Debug("Email accepted")
	return nil
}

func formatFrom(cfg config.EmailConfig) string {
	if cfg.FromName == "" {
		return cfg.FromEmail
	}
	return fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)
}

func addresses(to []string) []Address {
	out := make([]Address, 0, len(to))
	for _, recipient := range to {
		out = append(out, Address{Email: recipient})
	}
	return out
}

func replyTo(cfg config.EmailConfig) *Address {
	if cfg.ReplyTo == "" {
		return nil
	}
	return &Address{Email: cfg.ReplyTo}
}
