// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/ruralcare/medreserve/internal/config"
	"github.com/ruralcare/medreserve/internal/domain/user"
	"github.com/ruralcare/medreserve/internal/interfaces/http/handlers"
	"github.com/ruralcare/medreserve/internal/interfaces/http/middleware"
)

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, svc *handlers.Services, cfg *config.Config) {
	authHandler := handlers.NewAuthHandler(svc)

	auth := rg.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)

		protected := auth.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.GET("/profile", authHandler.GetProfile)
		}
	}
}

// SetupMedicineRoutes sets up catalog routes
func SetupMedicineRoutes(rg *gin.RouterGroup, svc *handlers.Services, cfg *config.Config) {
	medicineHandler := handlers.NewMedicineHandler(svc)

	medicines := rg.Group("/medicines")
	medicines.Use(middleware.AuthMiddleware(cfg))
	{
		medicines.GET("", medicineHandler.SearchMedicines)
		medicines.GET("/:id", medicineHandler.GetMedicine)
	}
}

// SetupInventoryRoutes sets up availability and pharmacy stock routes
func SetupInventoryRoutes(rg *gin.RouterGroup, svc *handlers.Services, cfg *config.Config) {
	inventoryHandler := handlers.NewInventoryHandler(svc)

	inventory := rg.Group("/inventory")
	inventory.Use(middleware.AuthMiddleware(cfg))
	{
		inventory.GET("/:pharmacyId/:medicineId", inventoryHandler.GetAvailability)
	}

	pharmacy := rg.Group("/pharmacy")
	pharmacy.Use(middleware.AuthMiddleware(cfg), middleware.RequireRole(string(user.RolePharmacy)))
	{
		pharmacy.GET("/inventory", inventoryHandler.ListInventory)
		pharmacy.POST("/inventory", inventoryHandler.StockMedicine)
		pharmacy.PUT("/inventory/:medicineId", inventoryHandler.UpdateInventory)
		pharmacy.GET("/inventory/:medicineId/movements", inventoryHandler.GetMovements)
		pharmacy.GET("/dashboard", inventoryHandler.GetDashboard)
	}
}

// SetupReservationRoutes sets up reservation routes
func SetupReservationRoutes(rg *gin.RouterGroup, svc *handlers.Services, cfg *config.Config) {
	reservationHandler := handlers.NewReservationHandler(svc)

	reservations := rg.Group("/reservations")
	reservations.Use(middleware.AuthMiddleware(cfg))
	{
		reservations.POST("", middleware.RequireRole(string(user.RolePatient), string(user.RoleAdmin)), reservationHandler.CreateReservation)
		reservations.GET("", reservationHandler.GetReservations)
		reservations.GET("/:id", reservationHandler.GetReservation)
		reservations.GET("/code/:code", reservationHandler.GetReservationByCode)
		reservations.GET("/code/:code/slip", reservationHandler.GetPickupSlip)
		reservations.PUT("/:id/status", reservationHandler.UpdateStatus)
		reservations.PUT("/:id/cancel", reservationHandler.CancelReservation)
	}
}

// SetupAdminRoutes sets up admin-only routes
func SetupAdminRoutes(rg *gin.RouterGroup, svc *handlers.Services, cfg *config.Config) {
	medicineHandler := handlers.NewMedicineHandler(svc)
	jobsHandler := handlers.NewJobsHandler(svc)

	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.AdminMiddleware())
	{
		admin.POST("/medicines", medicineHandler.CreateMedicine)
		admin.POST("/jobs/:job", jobsHandler.RunJob)
	}
}

// SetupRoutes sets up all API routes
func SetupRoutes(rg *gin.RouterGroup, svc *handlers.Services, cfg *config.Config) {
	SetupAuthRoutes(rg, svc, cfg)
	SetupMedicineRoutes(rg, svc, cfg)
	SetupInventoryRoutes(rg, svc, cfg)
	SetupReservationRoutes(rg, svc, cfg)
	SetupAdminRoutes(rg, svc, cfg)
}
