// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/ruralcare/medreserve/internal/config"
	"github.com/sirupsen/logrus"
)

// Sender delivers a rendered email
type Sender interface {
	SendEmail(ctx context.Context, email *Email) error
}

// EmailService handles all email operations
type EmailService struct {
	config    *config.Config
	logger    logrus.FieldLogger
	templates map[string]*template.Template
	client    *http.Client
	endpoints map[string]string
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.Config, logger logrus.FieldLogger) *EmailService {
	service := &EmailService{
		config:    cfg,
		logger:    logger.WithField("component", "email"),
		templates: make(map[string]*template.Template),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		endpoints: map[string]string{
			"resend":     "https://api.resend.com/emails",
			"sendgrid":   "https://api.sendgrid.com/v3/mail/send",
			"mailersend": "https://api.mailersend.com/v1/email",
		},
	}

	service.loadTemplates()

	return service
}

// SendEmail sends an email using the configured provider
func (s *EmailService) SendEmail(ctx context.Context, email *Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}

	switch s.config.External.Email.Provider {
	case "smtp":
		return s.sendSMTPEmail(ctx, email)
	case "resend", "sendgrid", "mailersend":
		return s.sendAPIEmail(ctx, s.config.External.Email.Provider, email)
	default:
		return fmt.Errorf("unsupported email provider: %s", s.config.External.Email.Provider)
	}
}

// RenderReservationEmail builds the email sent to a patient when a
// reservation is created or changes status
func (s *EmailService) RenderReservationEmail(emailType EmailType, data ReservationEmailData) (*Email, error) {
	data.EmailTemplateData = GetBaseTemplateData(
		s.config.External.Email.FromName,
		s.config.App.BaseURL,
		data.UserName,
		data.UserEmail,
	)

	htmlContent, err := s.renderTemplate(string(emailType), data)
	if err != nil {
		return nil, fmt.Errorf("failed to render reservation template: %w", err)
	}

	subject := fmt.Sprintf("Reservation %s - %s", data.ReservationCode, data.StatusMessage)
	if emailType == EmailTypeReservationCreated {
		subject = fmt.Sprintf("Reservation Confirmed - %s", data.ReservationCode)
	}

	return &Email{
		To:          []string{data.UserEmail},
		Subject:     subject,
		HTMLContent: htmlContent,
		Type:        emailType,
		Data: map[string]interface{}{
			"reservation_code": data.ReservationCode,
			"status":           data.Status,
		},
	}, nil
}

// RenderStockAlertEmail builds the low stock digest sent to a pharmacy
func (s *EmailService) RenderStockAlertEmail(data StockAlertData) (*Email, error) {
	data.EmailTemplateData = GetBaseTemplateData(
		s.config.External.Email.FromName,
		s.config.App.BaseURL,
		data.UserName,
		data.UserEmail,
	)

	htmlContent, err := s.renderTemplate(string(EmailTypeStockAlert), data)
	if err != nil {
		return nil, fmt.Errorf("failed to render stock alert template: %w", err)
	}

	return &Email{
		To:          []string{data.UserEmail},
		Subject:     fmt.Sprintf("Low Stock Alert - %d medicines need restocking", len(data.Items)),
		HTMLContent: htmlContent,
		Type:        EmailTypeStockAlert,
		Data:        map[string]interface{}{"items": len(data.Items)},
	}, nil
}

// loadTemplates parses the built-in templates
func (s *EmailService) loadTemplates() {
	sources := map[string]string{
		string(EmailTypeReservationCreated): reservationCreatedTemplate,
		string(EmailTypeReservationUpdate):  reservationUpdateTemplate,
		string(EmailTypeStockAlert):         stockAlertTemplate,
	}

	for name, src := range sources {
		tmpl, err := template.New(name).Parse(layoutTemplate + src)
		if err != nil {
			s.logger.WithError(err).Warnf("Could not parse email template %s", name)
			continue
		}
		s.templates[name] = tmpl
	}
}

// renderTemplate renders an email template with data
func (s *EmailService) renderTemplate(templateName string, data interface{}) (string, error) {
	tmpl, exists := s.templates[templateName]
	if !exists {
		return "", fmt.Errorf("template %s not found", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	return buf.String(), nil
}

const layoutTemplate = `{{define "layout"}}<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.SiteName}}</title>
</head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
    <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
        <h1 style="color: #2e7d32;">{{.SiteName}}</h1>
        <p>Hello {{.UserName}},</p>
        {{template "body" .}}
        <p>Best regards,<br>{{.SiteName}} Team</p>
        <hr>
        <p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}</p>
    </div>
</body>
</html>{{end}}`

const reservationCreatedTemplate = `{{define "body"}}
        <p>Your reservation <strong>{{.ReservationCode}}</strong> has been placed.</p>
        <table style="width: 100%; border-collapse: collapse;">
            <tr><td>Medicine</td><td>{{.MedicineName}}</td></tr>
            <tr><td>Pharmacy</td><td>{{.PharmacyName}}</td></tr>
            <tr><td>Quantity</td><td>{{.Quantity}}</td></tr>
            <tr><td>Total</td><td>{{.TotalPrice}}</td></tr>
            <tr><td>Collect before</td><td>{{.ExpiresAt}}</td></tr>
        </table>
        <p>Show this code at the pharmacy counter when you collect your medicine.</p>
{{end}}`

const reservationUpdateTemplate = `{{define "body"}}
        <p>Your reservation <strong>{{.ReservationCode}}</strong> is now <strong>{{.Status}}</strong>.</p>
        <p>{{.StatusMessage}}</p>
        {{if .PickupInstructions}}<p>Pickup instructions: {{.PickupInstructions}}</p>{{end}}
{{end}}`

const stockAlertTemplate = `{{define "body"}}
        <p>The following medicines are low or out of stock:</p>
        <table style="width: 100%; border-collapse: collapse;">
            <tr><th align="left">Medicine</th><th>Stock</th><th>Minimum</th><th>Available</th><th>Status</th></tr>
            {{range .Items}}<tr><td>{{.MedicineName}}</td><td>{{.CurrentStock}}</td><td>{{.MinStockLevel}}</td><td>{{.AvailableStock}}</td><td>{{.Status}}</td></tr>
            {{end}}
        </table>
{{end}}`
