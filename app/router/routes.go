// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/redline-telecom/redline/app/dto"
	"github.com/redline-telecom/redline/app/handlers"
	"github.com/redline-telecom/redline/app/middleware"
	"github.com/redline-telecom/redline/config"
	"github.com/redline-telecom/redline/utils"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app                *fiber.App
	cfg                *config.ProductionConfig
	authMiddleware     *middleware.AuthMiddleware
	authHandler        handlers.AuthHandlerInterface
	redAccountHandler  handlers.RedAccountHandlerInterface
	lineRequestHandler handlers.LineRequestHandlerInterface
	reservationHandler handlers.LineReservationHandlerInterface
	reportHandler      handlers.ReportHandlerInterface
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	cfg *config.ProductionConfig,
	authMiddleware *middleware.AuthMiddleware,
	authHandler handlers.AuthHandlerInterface,
	redAccountHandler handlers.RedAccountHandlerInterface,
	lineRequestHandler handlers.LineRequestHandlerInterface,
	reservationHandler handlers.LineReservationHandlerInterface,
	reportHandler handlers.ReportHandlerInterface,
) Router {
	app := fiber.New(fiber.Config{
		AppName:      "Redline API",
		ServerHeader: "Redline",
		ErrorHandler: errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:                app,
		cfg:                cfg,
		authMiddleware:     authMiddleware,
		authHandler:        authHandler,
		redAccountHandler:  redAccountHandler,
		lineRequestHandler: lineRequestHandler,
		reservationHandler: reservationHandler,
		reportHandler:      reportHandler,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	r.setupMiddleware()

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	api.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.GlobalRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	// Auth routes with stricter rate limiting
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.AuthRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
	}))

	auth.Post("/login", r.authHandler.Login)
	auth.Post("/refresh", r.authHandler.Refresh)
	auth.Get("/captcha", r.authHandler.Captcha)
	auth.Post("/logout", r.authMiddleware.Authenticate(), r.authHandler.Logout)

	// Everything below requires a valid access token
	protected := api.Group("", r.authMiddleware.Authenticate())

	// RED accounts and their lines
	protected.Get("/red-accounts", r.redAccountHandler.ListRedAccounts)
	protected.Get("/red-accounts/availability", r.redAccountHandler.Availability)
	protected.Post("/red-accounts", r.authMiddleware.RequireSupervisor(), r.redAccountHandler.CreateRedAccount)
	protected.Get("/red-accounts/:id", r.redAccountHandler.GetRedAccount)
	protected.Get("/red-accounts/:id/lines", r.redAccountHandler.ListAccountLines)
	protected.Post("/red-accounts/:id/lines", r.redAccountHandler.CreateLine)
	protected.Post("/red-accounts/:id/reveal-password", r.authMiddleware.RequireSupervisor(), r.redAccountHandler.RevealPassword)
	protected.Patch("/lines/:lineId/status", r.redAccountHandler.UpdateLineStatus)
	protected.Get("/lines/buckets", r.redAccountHandler.LineBuckets)

	// Demand intake
	protected.Post("/line-requests", r.lineRequestHandler.CreateLineRequest)
	protected.Delete("/line-requests/:id", r.lineRequestHandler.CancelLineRequest)
	protected.Get("/clients-to-order", r.lineRequestHandler.ClientsToOrder)
	protected.Get("/line-reservation-quotas/red-account/:id", r.lineRequestHandler.QuotaQueue)

	// Reservation coordinator and activation
	reservations := protected.Group("/line-reservations")
	reservations.Post("/reserve", r.reservationHandler.ReserveLine)
	reservations.Post("/reserve-existing", r.reservationHandler.ReserveExisting)
	reservations.Delete("/reservations/:phoneId", r.reservationHandler.CancelReservation)
	reservations.Post("/activate", r.reservationHandler.ActivateLine)
	reservations.Post("/analyze-iccid", r.reservationHandler.AnalyzeICCID)

	// Exports are supervisor-only
	protected.Get("/reports/lines.xlsx", r.authMiddleware.RequireSupervisor(), r.reportHandler.ExportLines)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'; frame-ancestors 'none';",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// CORS middleware with production settings
	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     r.cfg.Security.AllowedOrigins,
		AllowMethods:     r.cfg.Security.AllowedMethods,
		AllowHeaders:     r.cfg.Security.AllowedHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           r.cfg.Security.CORSMaxAge,
	}))

	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
			Next: func(c fiber.Ctx) bool {
				// xlsx payloads are already deflate-compressed
				return strings.Contains(c.Path(), ".xlsx")
			},
		}))
	}

	// Request logging
	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	if r.cfg.Server.EnableMetrics {
		r.app.Use(middleware.Metrics())
	}

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   "1.0.0",
			"service":   "redline-api",
		},
	})
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	requestID := c.Locals("requestid")

	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestID,
			},
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error %d: %v", code, err)

	requestID := c.Locals("requestid")

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

func rateLimitReached(c fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
		Success: false,
		Message: "Too many requests. Please try again later.",
		Error: dto.ErrorDetail{
			Code: "RATE_LIMIT_EXCEEDED",
		},
	})
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
