// internal/interfaces/http/handlers/services.go
package handlers

import (
	"github.com/ruralcare/medreserve/internal/domain/inventory"
	"github.com/ruralcare/medreserve/internal/domain/medicine"
	"github.com/ruralcare/medreserve/internal/domain/reservation"
	"github.com/ruralcare/medreserve/internal/domain/user"
	"github.com/ruralcare/medreserve/internal/pkg/clock"
	"github.com/ruralcare/medreserve/internal/pkg/pdf"
	"github.com/ruralcare/medreserve/internal/sweeper"
)

// Services bundles the domain services the handlers call
type Services struct {
	Users        *user.Service
	Medicines    *medicine.Service
	Inventory    *inventory.Service
	Reservations *reservation.Service
	Sweeper      *sweeper.Sweeper
	PDF          *pdf.Service
	Clock        clock.Clock
}
