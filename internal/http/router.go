package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Byiringiro215/lms/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	setupValidation()

	router := gin.New()
	router.Use(RequestLogger(cfg.Logger))
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.HSTSMaxAge > 0 {
		router.Use(auth.StrictTransportSecurityMiddleware(cfg.HSTSMaxAge))
	}

	if cfg.FrontendURL != "" {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     []string{strings.TrimRight(cfg.FrontendURL, "/")},
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.GinMiddleware())
	}

	// Resolve the session on every request; guards below decide access.
	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	}

	// Health endpoints
	health := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	requireAuth := auth.RequireAuth()
	requirePrivileged := auth.RequirePrivileged()

	// Auth endpoints
	if cfg.Auth != nil && cfg.Sessions != nil {
		authController := NewAuthController(cfg)
		authGroup := router.Group("/auth")
		authGroup.GET("/login", authController.Login)
		if cfg.RateLimiter != nil {
			authGroup.GET("/callback", cfg.RateLimiter.RateLimitMiddleware(), authController.Callback)
			authGroup.POST("/google", cfg.RateLimiter.RateLimitMiddleware(), authController.Google)
		} else {
			authGroup.GET("/callback", authController.Callback)
			authGroup.POST("/google", authController.Google)
		}
		authGroup.POST("/logout", authController.Logout)
	}

	// User endpoints
	if cfg.Users != nil {
		usersController := NewUsersController(cfg.Users)
		usersGroup := router.Group("/users", requireAuth)
		usersGroup.GET("/profile", usersController.Profile)
		usersGroup.GET("", requirePrivileged, usersController.List)
		usersGroup.GET("/:id", usersController.Get)
		usersGroup.PATCH("/:id", requirePrivileged, usersController.Update)
	}

	// Book catalog endpoints
	if cfg.Catalog != nil {
		booksController := NewBooksController(cfg.Catalog)
		router.GET("/books", booksController.List)
		router.GET("/books/:id", booksController.Get)
		router.POST("/books", requireAuth, booksController.Create)
		router.PATCH("/books/:id", requireAuth, booksController.Update)
		router.DELETE("/books/:id", requireAuth, booksController.Delete)
	}

	// Borrowing endpoints
	if cfg.Ledger != nil {
		borrowingsController := NewBorrowingsController(cfg.Ledger)
		borrowingsGroup := router.Group("/borrowings", requireAuth)
		borrowingsGroup.POST("/borrow", borrowingsController.Borrow)
		borrowingsGroup.POST("/return/:borrowingId", borrowingsController.Return)
		borrowingsGroup.GET("/user/:userId", borrowingsController.ListByUser)
		borrowingsGroup.GET("/:id", borrowingsController.Get)
	}

	// Analytics endpoints
	if cfg.Analytics != nil {
		analyticsController := NewAnalyticsController(cfg.Analytics)
		analyticsGroup := router.Group("/analytics", requireAuth)
		analyticsGroup.GET("/top-borrowed", analyticsController.TopBorrowed)
		analyticsGroup.GET("/overdue", analyticsController.Overdue)
		analyticsGroup.GET("/trends", analyticsController.Trends)
		analyticsGroup.GET("/summary", analyticsController.Summary)
	}

	// Admin endpoints
	adminGroup := router.Group("/admin", requireAuth, requirePrivileged)
	adminController := NewAdminController(cfg.Tasks, cfg.Sweep)
	adminGroup.POST("/sweep", adminController.TriggerSweep)
	adminGroup.GET("/sweep", adminController.SweepStatus)
	adminGroup.GET("/tasks/:id", adminController.TaskStatus)
	if cfg.Audit != nil {
		auditController := NewAuditController(cfg.Audit)
		adminGroup.GET("/audit", auditController.List)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Route not found", Code: "not_found"})
	})

	return router
}

// RequestLogger logs one line per request and exposes a request-scoped logger
// to handlers.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Set(contextKeyLogger, log.With(zap.String("method", c.Request.Method), zap.String("path", c.Request.URL.Path)))

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if userID := auth.GetUserID(c); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			log.Error("Request completed", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("Request completed", fields...)
		default:
			log.Info("Request completed", fields...)
		}
	}
}
