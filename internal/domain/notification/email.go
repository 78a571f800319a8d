// internal/domain/notification/email.go
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/ruralcare/medreserve/internal/pkg/email"
)

// ContactBook resolves a user ID to a display name and email address
type ContactBook interface {
	Contact(ctx context.Context, userID uint) (name, address string, err error)
}

// Catalog resolves medicine names
type Catalog interface {
	MedicineName(ctx context.Context, medicineID uint) (string, error)
}

// EmailRenderer renders and sends emails
type EmailRenderer interface {
	email.Sender
	RenderReservationEmail(emailType email.EmailType, data email.ReservationEmailData) (*email.Email, error)
	RenderStockAlertEmail(data email.StockAlertData) (*email.Email, error)
}

// EmailGateway emails patients about their reservations and pharmacies
// about low stock
type EmailGateway struct {
	emails   EmailRenderer
	contacts ContactBook
	catalog  Catalog
}

// NewEmailGateway creates an email gateway
func NewEmailGateway(emails EmailRenderer, contacts ContactBook, catalog Catalog) *EmailGateway {
	return &EmailGateway{emails: emails, contacts: contacts, catalog: catalog}
}

func (g *EmailGateway) Name() string { return "email" }

// Deliver implements Gateway
func (g *EmailGateway) Deliver(ctx context.Context, event Event) error {
	var (
		msg *email.Email
		err error
	)

	if event.Type == EventStockAlert {
		msg, err = g.stockAlert(ctx, event)
	} else {
		msg, err = g.reservation(ctx, event)
	}
	if err != nil {
		return err
	}
	if msg == nil {
		return nil
	}

	return g.emails.SendEmail(ctx, msg)
}

func (g *EmailGateway) reservation(ctx context.Context, event Event) (*email.Email, error) {
	patientName, patientEmail, err := g.contacts.Contact(ctx, event.PatientID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve patient %d: %w", event.PatientID, err)
	}
	if patientEmail == "" {
		return nil, nil
	}
	pharmacyName, _, err := g.contacts.Contact(ctx, event.PharmacyID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve pharmacy %d: %w", event.PharmacyID, err)
	}
	medicineName, err := g.catalog.MedicineName(ctx, event.MedicineID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve medicine %d: %w", event.MedicineID, err)
	}

	data := email.ReservationEmailData{
		EmailTemplateData:  email.EmailTemplateData{UserName: patientName, UserEmail: patientEmail},
		ReservationCode:    event.ReservationCode,
		MedicineName:       medicineName,
		PharmacyName:       pharmacyName,
		Quantity:           event.Quantity,
		TotalPrice:         email.FormatPaise(event.TotalPrice),
		Status:             event.Status,
		StatusMessage:      statusMessage(event.Type),
		PickupInstructions: event.PickupInstructions,
	}
	if event.ExpiresAt != nil {
		data.ExpiresAt = event.ExpiresAt.Format(time.RFC1123)
	}

	emailType := email.EmailTypeReservationUpdate
	if event.Type == EventReservationCreated {
		emailType = email.EmailTypeReservationCreated
	}
	return g.emails.RenderReservationEmail(emailType, data)
}

func (g *EmailGateway) stockAlert(ctx context.Context, event Event) (*email.Email, error) {
	name, address, err := g.contacts.Contact(ctx, event.PharmacyID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve pharmacy %d: %w", event.PharmacyID, err)
	}
	if address == "" {
		return nil, nil
	}

	items := make([]email.StockAlertItem, 0, len(event.LowStock))
	for _, level := range event.LowStock {
		medicineName, err := g.catalog.MedicineName(ctx, level.MedicineID)
		if err != nil {
			medicineName = fmt.Sprintf("Medicine #%d", level.MedicineID)
		}
		items = append(items, email.StockAlertItem{
			MedicineName:   medicineName,
			CurrentStock:   level.CurrentStock,
			MinStockLevel:  level.MinStockLevel,
			AvailableStock: level.AvailableStock,
			Status:         level.Status,
		})
	}

	return g.emails.RenderStockAlertEmail(email.StockAlertData{
		EmailTemplateData: email.EmailTemplateData{UserName: name, UserEmail: address},
		Items:             items,
	})
}

func statusMessage(eventType EventType) string {
	switch eventType {
	case EventReservationCreated:
		return "Reservation placed"
	case EventReservationConfirmed:
		return "The pharmacy has confirmed your reservation"
	case EventReservationReady:
		return "Your medicine is ready for pickup"
	case EventReservationCompleted:
		return "Medicine collected, thank you"
	case EventReservationCancelled:
		return "Your reservation was cancelled"
	case EventReservationExpired:
		return "Your reservation expired before pickup"
	default:
		return string(eventType)
	}
}
