package pdf

import (
	"testing"
	"time"

	"github.com/ruralcare/medreserve/internal/config"
	"github.com/ruralcare/medreserve/internal/domain/reservation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatRupees(t *testing.T) {
	assert.Equal(t, "₹36.00", FormatRupees(3600))
	assert.Equal(t, "₹0.05", FormatRupees(5))
	assert.Equal(t, "-₹1.50", FormatRupees(-150))
}

func TestGenerateHTML(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Name = "MedReserve"
	svc := NewService(cfg)

	r := &reservation.Reservation{
		Code:               "RES19600123AB12",
		Status:             reservation.StatusReady,
		Quantity:           3,
		UnitPrice:          1200,
		TotalPrice:         3600,
		ExpiresAt:          time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC),
		PickupInstructions: "Counter 2 <after noon>",
	}
	data := svc.NewSlipData(r, Parties{
		PatientName:  "Ravi",
		PharmacyName: "Asha Medicals",
		MedicineName: "Paracetamol",
	}, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))

	html, err := svc.GenerateHTML(data)
	require.NoError(t, err)

	assert.Contains(t, html, "RES19600123AB12")
	assert.Contains(t, html, "MedReserve pickup slip")
	assert.Contains(t, html, "Asha Medicals")
	assert.Contains(t, html, "₹36.00")
	assert.Contains(t, html, "02 Mar 2025 09:00 UTC")
	assert.Contains(t, html, "Counter 2 &lt;after noon&gt;")
	assert.NotContains(t, html, "<br>")
}
