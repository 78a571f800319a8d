// internal/interfaces/http/handlers/reservation.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ruralcare/medreserve/internal/domain/medicine"
	"github.com/ruralcare/medreserve/internal/domain/reservation"
	"github.com/ruralcare/medreserve/internal/domain/user"
	"github.com/ruralcare/medreserve/internal/pkg/clock"
	"github.com/ruralcare/medreserve/internal/pkg/pdf"
)

// ReservationHandler handles reservation endpoints
type ReservationHandler struct {
	reservationService *reservation.Service
	userService        *user.Service
	medicineService    *medicine.Service
	pdfService         *pdf.Service
	clock              clock.Clock
}

// NewReservationHandler creates a new reservation handler
func NewReservationHandler(svc *Services) *ReservationHandler {
	return &ReservationHandler{
		reservationService: svc.Reservations,
		userService:        svc.Users,
		medicineService:    svc.Medicines,
		pdfService:         svc.PDF,
		clock:              svc.Clock,
	}
}

// CreateReservation handles POST /reservations
func (h *ReservationHandler) CreateReservation(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req reservation.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	r, err := h.reservationService.Create(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Reservation created successfully",
		"data":    r,
	})
}

// GetReservations handles GET /reservations?status=&page=&limit=
func (h *ReservationHandler) GetReservations(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	filter := reservation.Filter{
		Status: reservation.Status(c.Query("status")),
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 20),
	}

	response, err := h.reservationService.List(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reservations retrieved successfully",
		"data":    response,
	})
}

// GetReservation handles GET /reservations/:id
func (h *ReservationHandler) GetReservation(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	r, err := h.reservationService.Get(c.Request.Context(), id, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reservation retrieved successfully",
		"data":    r,
	})
}

// GetReservationByCode handles GET /reservations/code/:code
func (h *ReservationHandler) GetReservationByCode(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	r, err := h.reservationService.GetByCode(c.Request.Context(), c.Param("code"), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reservation retrieved successfully",
		"data":    r,
	})
}

// UpdateStatus handles PUT /reservations/:id/status
func (h *ReservationHandler) UpdateStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req reservation.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	r, err := h.reservationService.Transition(c.Request.Context(), id, &req, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reservation status updated successfully",
		"data":    r,
	})
}

// CancelReservation handles PUT /reservations/:id/cancel
func (h *ReservationHandler) CancelReservation(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	r, err := h.reservationService.Cancel(c.Request.Context(), id, actor, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reservation cancelled successfully",
		"data":    r,
	})
}

// GetPickupSlip handles GET /reservations/code/:code/slip. ?format=html
// returns the markup instead of the PDF.
func (h *ReservationHandler) GetPickupSlip(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	r, err := h.reservationService.GetByCode(ctx, c.Param("code"), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	var parties pdf.Parties
	if parties.PatientName, _, err = h.userService.Contact(ctx, r.PatientID); err != nil {
		respondError(c, err)
		return
	}
	pharmacy, err := h.userService.GetProfile(ctx, r.PharmacyID)
	if err != nil {
		respondError(c, err)
		return
	}
	parties.PharmacyName = pharmacy.GetDisplayName()
	parties.PharmacyAddress = pharmacy.Address
	if parties.MedicineName, err = h.medicineService.MedicineName(ctx, r.MedicineID); err != nil {
		respondError(c, err)
		return
	}

	data := h.pdfService.NewSlipData(r, parties, h.clock.Now())

	if c.Query("format") == "html" {
		html, err := h.pdfService.GenerateHTML(data)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
		return
	}

	buf, err := h.pdfService.GeneratePickupSlip(data)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=reservation-%s.pdf", r.Code))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
