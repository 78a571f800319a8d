// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ruralcare/medreserve/internal/domain/inventory"
	"github.com/ruralcare/medreserve/internal/domain/medicine"
	"github.com/ruralcare/medreserve/internal/interfaces/http/middleware"
)

// InventoryHandler handles inventory endpoints
type InventoryHandler struct {
	inventoryService *inventory.Service
	medicineService  *medicine.Service
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(svc *Services) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: svc.Inventory,
		medicineService:  svc.Medicines,
	}
}

// GetAvailability handles GET /inventory/:pharmacyId/:medicineId
func (h *InventoryHandler) GetAvailability(c *gin.Context) {
	pharmacyID, ok := parseID(c, "pharmacyId")
	if !ok {
		return
	}
	medicineID, ok := parseID(c, "medicineId")
	if !ok {
		return
	}

	availability, err := h.inventoryService.GetAvailability(c.Request.Context(), pharmacyID, medicineID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Availability retrieved successfully",
		"data":    availability,
	})
}

// PHARMACY ENDPOINTS

// ListInventory handles GET /pharmacy/inventory?status=low,out-of-stock
func (h *InventoryHandler) ListInventory(c *gin.Context) {
	pharmacyID, _ := middleware.GetUserIDFromContext(c)

	filter := inventory.Filter{
		PharmacyID: pharmacyID,
		Page:       queryInt(c, "page", 1),
		Limit:      queryInt(c, "limit", 50),
	}
	if statuses := c.Query("status"); statuses != "" {
		for _, status := range strings.Split(statuses, ",") {
			filter.Statuses = append(filter.Statuses, inventory.Status(strings.TrimSpace(status)))
		}
	}

	entries, total, err := h.inventoryService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Inventory retrieved successfully",
		"data": gin.H{
			"inventory": entries,
			"total":     total,
		},
	})
}

// StockMedicine handles POST /pharmacy/inventory
func (h *InventoryHandler) StockMedicine(c *gin.Context) {
	pharmacyID, _ := middleware.GetUserIDFromContext(c)

	var req inventory.StockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.PharmacyID = pharmacyID

	if _, err := h.medicineService.Get(c.Request.Context(), req.MedicineID); err != nil {
		respondError(c, err)
		return
	}

	entry, err := h.inventoryService.Stock(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Medicine added to inventory",
		"data":    entry,
	})
}

// UpdateInventory handles PUT /pharmacy/inventory/:medicineId
func (h *InventoryHandler) UpdateInventory(c *gin.Context) {
	pharmacyID, _ := middleware.GetUserIDFromContext(c)
	medicineID, ok := parseID(c, "medicineId")
	if !ok {
		return
	}

	var req inventory.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	entry, err := h.inventoryService.Restock(c.Request.Context(), pharmacyID, medicineID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Inventory updated successfully",
		"data":    entry,
	})
}

// GetMovements handles GET /pharmacy/inventory/:medicineId/movements
func (h *InventoryHandler) GetMovements(c *gin.Context) {
	pharmacyID, _ := middleware.GetUserIDFromContext(c)
	medicineID, ok := parseID(c, "medicineId")
	if !ok {
		return
	}

	entry, err := h.inventoryService.GetEntry(c.Request.Context(), pharmacyID, medicineID)
	if err != nil {
		respondError(c, err)
		return
	}

	movements, err := h.inventoryService.Movements(c.Request.Context(), entry.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock movements retrieved successfully",
		"data":    movements,
	})
}

// GetDashboard handles GET /pharmacy/dashboard
func (h *InventoryHandler) GetDashboard(c *gin.Context) {
	pharmacyID, _ := middleware.GetUserIDFromContext(c)
	ctx := c.Request.Context()

	summary, err := h.inventoryService.Summary(ctx, pharmacyID)
	if err != nil {
		respondError(c, err)
		return
	}

	lowStock, _, err := h.inventoryService.List(ctx, inventory.Filter{
		PharmacyID: pharmacyID,
		Statuses:   []inventory.Status{inventory.StatusLow, inventory.StatusOutOfStock},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Dashboard retrieved successfully",
		"data": gin.H{
			"summary":   summary,
			"low_stock": lowStock,
		},
	})
}
