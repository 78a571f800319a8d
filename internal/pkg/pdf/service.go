// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/ruralcare/medreserve/internal/config"
	"github.com/ruralcare/medreserve/internal/domain/reservation"
)

// Service handles PDF generation
type Service struct {
	config *config.Config
	tmpl   *template.Template
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		tmpl:   template.Must(template.New("slip").Parse(slipTemplate)),
	}
}

// SlipData represents the data passed to the pickup slip template
type SlipData struct {
	AppName            string
	Code               string
	Status             string
	PatientName        string
	PharmacyName       string
	PharmacyAddress    string
	MedicineName       string
	Quantity           int
	UnitPrice          string
	TotalPrice         string
	ExpiresAt          string
	PickupInstructions string
	IssuedAt           string
}

// Parties names the people and medicine printed on a slip
type Parties struct {
	PatientName     string
	PharmacyName    string
	PharmacyAddress string
	MedicineName    string
}

// NewSlipData prepares a reservation for the slip template
func (s *Service) NewSlipData(r *reservation.Reservation, parties Parties, issuedAt time.Time) SlipData {
	return SlipData{
		AppName:            s.config.App.Name,
		Code:               r.Code,
		Status:             string(r.Status),
		PatientName:        parties.PatientName,
		PharmacyName:       parties.PharmacyName,
		PharmacyAddress:    parties.PharmacyAddress,
		MedicineName:       parties.MedicineName,
		Quantity:           r.Quantity,
		UnitPrice:          FormatRupees(r.UnitPrice),
		TotalPrice:         FormatRupees(r.TotalPrice),
		ExpiresAt:          r.ExpiresAt.Format("02 Jan 2006 15:04 MST"),
		PickupInstructions: r.PickupInstructions,
		IssuedAt:           issuedAt.Format("January 2, 2006"),
	}
}

// GeneratePickupSlip renders the slip to PDF with wkhtmltopdf
func (s *Service) GeneratePickupSlip(data SlipData) (*bytes.Buffer, error) {
	htmlContent, err := s.GenerateHTML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.PageSize.Set(wkhtmltopdf.PageSizeA5)
	pdfg.Grayscale.Set(true)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)

	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return bytes.NewBuffer(pdfg.Bytes()), nil
}

// GenerateHTML renders the slip template
func (s *Service) GenerateHTML(data SlipData) (string, error) {
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// FormatRupees formats an amount in paise
func FormatRupees(paise int64) string {
	sign := ""
	if paise < 0 {
		sign = "-"
		paise = -paise
	}
	return fmt.Sprintf("%s₹%d.%02d", sign, paise/100, paise%100)
}

// Pickup slip HTML template
const slipTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Reservation {{.Code}}</title>
    <style>
        body {
            font-family: Arial, sans-serif;
            margin: 0;
            padding: 20px;
            color: #333;
        }
        .header {
            border-bottom: 2px solid #eee;
            padding-bottom: 15px;
            margin-bottom: 20px;
        }
        .title {
            font-size: 22px;
            font-weight: bold;
            color: #15803d;
        }
        .code {
            font-size: 26px;
            font-family: monospace;
            letter-spacing: 2px;
            margin: 15px 0;
        }
        .details td {
            padding: 5px 0;
            vertical-align: top;
        }
        .details .label {
            font-weight: bold;
            width: 140px;
        }
        .instructions {
            margin-top: 20px;
            padding: 10px;
            border: 1px dashed #999;
        }
        .footer {
            margin-top: 30px;
            text-align: center;
            color: #666;
            font-size: 11px;
        }
    </style>
</head>
<body>
    <div class="header">
        <div class="title">{{.AppName}} pickup slip</div>
        <div>Issued {{.IssuedAt}}</div>
    </div>

    <div class="code">{{.Code}}</div>

    <table class="details">
        <tr><td class="label">Status</td><td>{{.Status}}</td></tr>
        <tr><td class="label">Patient</td><td>{{.PatientName}}</td></tr>
        <tr><td class="label">Pharmacy</td><td>{{.PharmacyName}}{{if .PharmacyAddress}}<br>{{.PharmacyAddress}}{{end}}</td></tr>
        <tr><td class="label">Medicine</td><td>{{.MedicineName}}</td></tr>
        <tr><td class="label">Quantity</td><td>{{.Quantity}}</td></tr>
        <tr><td class="label">Unit price</td><td>{{.UnitPrice}}</td></tr>
        <tr><td class="label">Total</td><td>{{.TotalPrice}}</td></tr>
        <tr><td class="label">Collect before</td><td>{{.ExpiresAt}}</td></tr>
    </table>

    {{if .PickupInstructions}}
    <div class="instructions">{{.PickupInstructions}}</div>
    {{end}}

    <div class="footer">Show this code at the pharmacy counter. Unconfirmed holds lapse at the time above.</div>
</body>
</html>
`
