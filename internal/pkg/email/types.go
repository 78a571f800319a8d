// internal/pkg/email/types.go
package email

import (
	"fmt"
	"time"
)

// EmailType represents the type of email being sent
type EmailType string

const (
	EmailTypeReservationCreated EmailType = "reservation_created"
	EmailTypeReservationUpdate  EmailType = "reservation_update"
	EmailTypeStockAlert         EmailType = "stock_alert"
)

// Email represents an email message
type Email struct {
	To          []string               `json:"to"`
	Subject     string                 `json:"subject"`
	HTMLContent string                 `json:"html_content"`
	Type        EmailType              `json:"type"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// EmailTemplateData contains common data for all email templates
type EmailTemplateData struct {
	SiteName  string `json:"site_name"`
	SiteURL   string `json:"site_url"`
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
	Year      int    `json:"year"`
}

// ReservationEmailData contains data for reservation emails
type ReservationEmailData struct {
	EmailTemplateData
	ReservationCode    string `json:"reservation_code"`
	MedicineName       string `json:"medicine_name"`
	PharmacyName       string `json:"pharmacy_name"`
	Quantity           int    `json:"quantity"`
	TotalPrice         string `json:"total_price"`
	Status             string `json:"status"`
	StatusMessage      string `json:"status_message"`
	ExpiresAt          string `json:"expires_at"`
	PickupInstructions string `json:"pickup_instructions,omitempty"`
}

// StockAlertItem is one low or out of stock line
type StockAlertItem struct {
	MedicineName   string `json:"medicine_name"`
	CurrentStock   int    `json:"current_stock"`
	MinStockLevel  int    `json:"min_stock_level"`
	AvailableStock int    `json:"available_stock"`
	Status         string `json:"status"`
}

// StockAlertData contains data for the daily pharmacy stock alert
type StockAlertData struct {
	EmailTemplateData
	Items []StockAlertItem `json:"items"`
}

// GetBaseTemplateData returns common template data
func GetBaseTemplateData(siteName, siteURL, userName, userEmail string) EmailTemplateData {
	return EmailTemplateData{
		SiteName:  siteName,
		SiteURL:   siteURL,
		UserName:  userName,
		UserEmail: userEmail,
		Year:      time.Now().Year(),
	}
}

// FormatPaise renders an amount in paise as rupees
func FormatPaise(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%sRs. %d.%02d", sign, amount/100, amount%100)
}
