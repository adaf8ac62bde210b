package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/rsleiman/souqly_backend/controllers"
	"github.com/rsleiman/souqly_backend/middleware"
)

// RegisterNetworkRoutes sets up the protected network routes
func RegisterNetworkRoutes(e *echo.Echo, networkController *controllers.NetworkController) {
	r := e.Group("/api/network")
	r.Use(middleware.JWTMiddleware())

	r.GET("/tree", networkController.GetNetworkTree)
	r.GET("/earnings", networkController.GetEarnings)
	r.GET("/referral-qr", networkController.GetReferralQRCode)
	r.GET("/ws", networkController.HandleNotifications)
}
