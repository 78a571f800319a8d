// internal/interfaces/http/handlers/medicine.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ruralcare/medreserve/internal/domain/medicine"
)

// MedicineHandler handles catalog endpoints
type MedicineHandler struct {
	medicineService *medicine.Service
}

// NewMedicineHandler creates a new medicine handler
func NewMedicineHandler(svc *Services) *MedicineHandler {
	return &MedicineHandler{medicineService: svc.Medicines}
}

// SearchMedicines handles GET /medicines?search=&category=&page=&limit=
func (h *MedicineHandler) SearchMedicines(c *gin.Context) {
	filter := medicine.SearchFilter{
		Query:    c.Query("search"),
		Category: medicine.Category(c.Query("category")),
		Page:     queryInt(c, "page", 1),
		Limit:    queryInt(c, "limit", 20),
	}

	medicines, total, err := h.medicineService.Search(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Medicines retrieved successfully",
		"data": gin.H{
			"medicines": medicines,
			"total":     total,
		},
	})
}

// GetMedicine handles GET /medicines/:id
func (h *MedicineHandler) GetMedicine(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	m, err := h.medicineService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Medicine retrieved successfully",
		"data":    m,
	})
}

// CreateMedicine handles POST /admin/medicines
func (h *MedicineHandler) CreateMedicine(c *gin.Context) {
	var req medicine.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	m, err := h.medicineService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Medicine created successfully",
		"data":    m,
	})
}
