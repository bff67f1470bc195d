// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/amirphl/Kuruma-no-Ichiba/app/dto"
	"github.com/amirphl/Kuruma-no-Ichiba/app/handlers"
	"github.com/amirphl/Kuruma-no-Ichiba/app/middleware"
	"github.com/amirphl/Kuruma-no-Ichiba/config"
	_ "github.com/amirphl/Kuruma-no-Ichiba/docs"
	"github.com/amirphl/Kuruma-no-Ichiba/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cache"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/swag"
	"go.uber.org/zap"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// Handlers groups the endpoint handlers mounted by the router
type Handlers struct {
	Auth     handlers.AuthHandlerInterface
	Catalog  handlers.CatalogHandlerInterface
	Listing  handlers.ListingHandlerInterface
	Inquiry  handlers.InquiryHandlerInterface
	Report   handlers.ReportHandlerInterface
	AuthGate *middleware.AuthMiddleware
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app      *fiber.App
	cfg      *config.ProductionConfig
	handlers Handlers
	logger   *zap.Logger
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(cfg *config.ProductionConfig, h Handlers, log *zap.Logger) Router {
	app := fiber.New(fiber.Config{
		AppName:      "Kuruma no Ichiba API",
		ServerHeader: "Kuruma-no-Ichiba",
		ErrorHandler: errorHandler(log),
		BodyLimit:    orDefault(cfg.Server.BodyLimit, 4*1024*1024),
		ReadTimeout:  orDefaultDuration(cfg.Server.ReadTimeout, 10*time.Second),
		WriteTimeout: orDefaultDuration(cfg.Server.WriteTimeout, 10*time.Second),
		IdleTimeout:  orDefaultDuration(cfg.Server.IdleTimeout, 60*time.Second),
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:      app,
		cfg:      cfg,
		handlers: h,
		logger:   log,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.logger.Info("Setting up routes")

	r.setupMiddleware()

	if r.cfg.Metrics.Enabled {
		r.app.Get(orDefaultString(r.cfg.Metrics.Path, "/metrics"), adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)
	api.Get("/docs", r.getAPIDocumentation)
	api.Get("/docs/swagger.json", r.swaggerDocument)

	api.Use(limiter.New(limiter.Config{
		Max:          orDefault(r.cfg.Security.GlobalRateLimit, 2000),
		Expiration:   orDefaultDuration(r.cfg.Security.RateLimitWindow, time.Minute),
		KeyGenerator: func(c fiber.Ctx) string { return c.IP() },
		LimitReached: rateLimitReached,
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	gate := r.handlers.AuthGate

	// Auth routes with stricter rate limiting
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:          orDefault(r.cfg.Security.AuthRateLimit, 20),
		Expiration:   orDefaultDuration(r.cfg.Security.RateLimitWindow, time.Minute),
		KeyGenerator: func(c fiber.Ctx) string { return c.IP() },
		LimitReached: rateLimitReached,
	}))
	auth.Post("/login", r.handlers.Auth.Login)
	auth.Post("/refresh", r.handlers.Auth.Refresh)
	auth.Post("/logout", gate.Authenticate(), r.handlers.Auth.Logout)

	// Public catalog
	api.Get("/catalog/filters", r.handlers.Catalog.GetFilters)
	api.Get("/listings/search", r.handlers.Listing.Search)
	api.Get("/listings/:id", gate.OptionalAuth(), r.handlers.Listing.Get)
	api.Post("/inquiries", gate.OptionalAuth(), r.handlers.Inquiry.Create)

	// Back office. Every route needs a token; capabilities are checked per operation.
	admin := api.Group("/admin", gate.Authenticate())

	admin.Put("/catalog/filters", r.handlers.Catalog.UpdateFilters)
	admin.Post("/catalog/filters/operations", r.handlers.Catalog.ApplyOperation)

	admin.Get("/listings", r.handlers.Listing.List)
	admin.Post("/listings", r.handlers.Listing.Create)
	admin.Put("/listings/:id", r.handlers.Listing.Update)
	admin.Post("/listings/:id/transition", r.handlers.Listing.Transition)
	admin.Delete("/listings/:id", r.handlers.Listing.Delete)

	admin.Get("/inquiries", r.handlers.Inquiry.List)
	admin.Get("/inquiries/:id", r.handlers.Inquiry.Get)
	admin.Post("/inquiries/:id/assign", r.handlers.Inquiry.Assign)
	admin.Post("/inquiries/:id/status", r.handlers.Inquiry.UpdateStatus)
	admin.Put("/inquiries/:id/notes", r.handlers.Inquiry.UpdateNotes)
	admin.Delete("/inquiries/:id", r.handlers.Inquiry.Delete)

	admin.Get("/reports/inquiries.xlsx", r.handlers.Report.ExportInquiries)
	admin.Get("/reports/listings.xlsx", r.handlers.Report.ExportListings)

	r.app.Use(r.notFoundHandler)

	r.logger.Info("Routes configured successfully")
}

func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header:    "X-Request-ID",
		Generator: uuid.NewString,
	}))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.Error("panic recovered",
				zap.Any("error", e),
				zap.String("request_id", requestid.FromContext(c)),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.String("ip", c.IP()),
			)
		},
	}))

	r.app.Use(middleware.Metrics())

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             orDefaultString(r.cfg.Security.XFrameOptions, "DENY"),
		HSTSMaxAge:                31536000,
		ContentSecurityPolicy:     orDefaultString(r.cfg.Security.CSPPolicy, "default-src 'self'; img-src 'self' data: https:; frame-ancestors 'none';"),
		ReferrerPolicy:            orDefaultString(r.cfg.Security.ReferrerPolicy, "strict-origin-when-cross-origin"),
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	origins := r.cfg.Security.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-Request-ID",
		},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: r.cfg.Security.AllowCredentials && !slices.Contains(origins, "*"),
		MaxAge:           orDefault(r.cfg.Security.CORSMaxAge, utils.CORSMaxAge),
	}))

	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
			Next: func(c fiber.Ctx) bool {
				return strings.HasPrefix(c.Get("Content-Type"), "image/")
			},
		}))
	}

	// Only the health probe is cached; every API read must reflect the store.
	r.app.Use(cache.New(cache.Config{
		Next: func(c fiber.Ctx) bool {
			return c.Method() != fiber.MethodGet || c.Path() != "/api/v1/health"
		},
		Expiration: 5 * time.Second,
	}))

	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${respHeader:X-Request-ID}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	r.app.Use(r.securityMiddleware)
}

// securityMiddleware rejects blacklisted client addresses
func (r *FiberRouter) securityMiddleware(c fiber.Ctx) error {
	c.Set("X-Response-Time", utils.UTCNow().Format(time.RFC3339))

	if slices.Contains(r.cfg.Security.IPBlacklist, c.IP()) {
		return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
			Success: false,
			Message: "Access denied from this IP address",
			Error:   dto.ErrorDetail{Code: "ACCESS_DENIED"},
		})
	}
	return c.Next()
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	r.logger.Info("Starting server", zap.String("address", address))
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   orDefaultString(r.cfg.Deployment.Version, "dev"),
			"service":   "kuruma-no-ichiba-api",
		},
	})
}

func (r *FiberRouter) getAPIDocumentation(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "API documentation retrieved successfully",
		Data: fiber.Map{
			"title":       "Kuruma no Ichiba API Documentation",
			"version":     orDefaultString(r.cfg.Deployment.Version, "dev"),
			"description": "Used-vehicle marketplace back office",
			"endpoints":   GetRouteDocumentation(),
		},
	})
}

func (r *FiberRouter) swaggerDocument(c fiber.Ctx) error {
	doc, err := swag.ReadDoc()
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.SendString(doc)
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "An internal server error occurred"
		errorCode := "INTERNAL_ERROR"

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			if code < fiber.StatusInternalServerError {
				message = e.Message
				errorCode = "REQUEST_ERROR"
			}
		}

		log.Error("unhandled request error",
			zap.Int("status", code),
			zap.String("path", c.Path()),
			zap.String("request_id", requestid.FromContext(c)),
			zap.Error(err),
		)

		return c.Status(code).JSON(dto.APIResponse{
			Success: false,
			Message: message,
			Error: dto.ErrorDetail{
				Code: errorCode,
				Details: fiber.Map{
					"timestamp":  utils.UTCNow().Unix(),
					"request_id": requestid.FromContext(c),
				},
			},
		})
	}
}

func rateLimitReached(c fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
		Success: false,
		Message: "Too many requests. Please try again later.",
		Error:   dto.ErrorDetail{Code: "RATE_LIMIT_EXCEEDED"},
	})
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func orDefaultDuration(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
}

func orDefaultString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

// GetRouteDocumentation returns API documentation
func GetRouteDocumentation() []map[string]any {
	return []map[string]any{
		{"method": "POST", "path": "/api/v1/auth/login", "auth": "none", "description": "Authenticate and receive a role-bearing token pair"},
		{"method": "POST", "path": "/api/v1/auth/refresh", "auth": "none", "description": "Exchange a refresh token for a new pair"},
		{"method": "POST", "path": "/api/v1/auth/logout", "auth": "bearer", "description": "Revoke the caller's access token and optional refresh token"},
		{"method": "GET", "path": "/api/v1/catalog/filters", "auth": "none", "description": "Current brand/model/year catalog with its version"},
		{"method": "PUT", "path": "/api/v1/admin/catalog/filters", "auth": "catalog.write", "description": "Replace the catalog at a version"},
		{"method": "POST", "path": "/api/v1/admin/catalog/filters/operations", "auth": "catalog.write", "description": "Apply one catalog operation at a version"},
		{"method": "GET", "path": "/api/v1/listings/search", "auth": "none", "description": "Search approved listings"},
		{"method": "GET", "path": "/api/v1/listings/:id", "auth": "optional", "description": "Read one listing"},
		{"method": "GET", "path": "/api/v1/admin/listings", "auth": "bearer", "description": "Back-office listing table"},
		{"method": "POST", "path": "/api/v1/admin/listings", "auth": "listing.create", "description": "Submit a listing for review"},
		{"method": "PUT", "path": "/api/v1/admin/listings/:id", "auth": "listing.update.own|any", "description": "Edit a listing and send it back to review"},
		{"method": "POST", "path": "/api/v1/admin/listings/:id/transition", "auth": "listing.review", "description": "Approve or reject a pending listing"},
		{"method": "DELETE", "path": "/api/v1/admin/listings/:id", "auth": "listing.delete", "description": "Delete a listing and its inquiries"},
		{"method": "POST", "path": "/api/v1/inquiries", "auth": "optional", "description": "Register interest in an approved listing"},
		{"method": "GET", "path": "/api/v1/admin/inquiries", "auth": "bearer", "description": "Inquiries visible to the caller"},
		{"method": "GET", "path": "/api/v1/admin/inquiries/:id", "auth": "bearer", "description": "Read one inquiry"},
		{"method": "POST", "path": "/api/v1/admin/inquiries/:id/assign", "auth": "inquiry.assign", "description": "Route an inquiry to a sales agent"},
		{"method": "POST", "path": "/api/v1/admin/inquiries/:id/status", "auth": "inquiry.status.edit", "description": "Change inquiry status; closing needs remarks"},
		{"method": "PUT", "path": "/api/v1/admin/inquiries/:id/notes", "auth": "assignee", "description": "Edit the assignee's private notes"},
		{"method": "DELETE", "path": "/api/v1/admin/inquiries/:id", "auth": "inquiry.delete", "description": "Delete an inquiry"},
		{"method": "GET", "path": "/api/v1/admin/reports/inquiries.xlsx", "auth": "report.export", "description": "Inquiry spreadsheet without private notes"},
		{"method": "GET", "path": "/api/v1/admin/reports/listings.xlsx", "auth": "report.export", "description": "Listing spreadsheet, one sheet per status"},
		{"method": "GET", "path": "/api/v1/health", "auth": "none", "description": "Health check"},
		{"method": "GET", "path": "/api/v1/docs/swagger.json", "auth": "none", "description": "Swagger 2.0 description of this API"},
	}
}
