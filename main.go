package main

import (
	"log"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/rsleiman/souqly_backend/config"
	"github.com/rsleiman/souqly_backend/controllers"
	"github.com/rsleiman/souqly_backend/middleware"
	"github.com/rsleiman/souqly_backend/network"
	"github.com/rsleiman/souqly_backend/repositories"
	"github.com/rsleiman/souqly_backend/routes"
	"github.com/rsleiman/souqly_backend/websocket"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	// Connect to Redis (optional; tree views fall through to MongoDB)
	redisClient := config.ConnectRedis()

	// Connect to database
	client := config.ConnectDB()

	// Create WebSocket hub for pair-bonus notifications
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Wire up the placement and commission engine
	memberRepo := repositories.NewMemberRepository(client)
	resolver := network.NewPlacementResolver(memberRepo)
	aggregator := network.NewAggregator(memberRepo)
	propagator := network.NewPropagator(memberRepo, aggregator, pairBonusRate())
	propagator.SetNotifier(wsHub)
	orchestrator := network.NewOrchestrator(memberRepo, resolver, propagator)
	orchestrator.RequireReferrer = os.Getenv("REQUIRE_REFERRER") == "true"

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	customValidator := &CustomValidator{validator: validator.New()}
	e.Validator = customValidator

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.Secure())
	e.Use(rateLimiter.RateLimit())

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "Souqly Backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	// Initialize controllers
	authController := controllers.NewAuthController(client, memberRepo, orchestrator)
	networkController := controllers.NewNetworkController(memberRepo, redisClient, wsHub)

	// Register routes
	routes.RegisterAuthRoutes(e, authController)
	routes.RegisterNetworkRoutes(e, networkController)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}

// pairBonusRate reads the configured bonus per completed pair.
func pairBonusRate() float64 {
	if rateStr := os.Getenv("PAIR_BONUS_RATE"); rateStr != "" {
		if rate, err := strconv.ParseFloat(rateStr, 64); err == nil && rate > 0 {
			return rate
		}
		log.Printf("Warning: invalid PAIR_BONUS_RATE %q, using default", rateStr)
	}
	return network.DefaultPairBonusRate
}
