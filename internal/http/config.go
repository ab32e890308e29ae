package http

import (
	"go.uber.org/zap"

	"github.com/Byiringiro215/lms/internal/auth"
	"github.com/Byiringiro215/lms/internal/metrics"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core services
	Database  Pinger
	Catalog   BookCatalog
	Users     UserDirectory
	Ledger    BorrowingLedger
	Analytics AnalyticsReader
	Audit     AuditReader

	// Authentication
	Auth           Authenticator
	Sessions       *auth.SessionIssuer
	AuthMiddleware *auth.Middleware
	RateLimiter    *auth.RateLimiter

	// Identity provider redirects
	LoginURL       string
	AppRedirectURL string
	FrontendURL    string

	// Task queue client (optional)
	Tasks TaskQueue

	// Overdue sweep scheduler (optional)
	Sweep SweepStatusReader

	Metrics *metrics.Metrics
	Logger  *zap.Logger

	// HSTS max-age in seconds; zero disables the header
	HSTSMaxAge int

	// Application info
	Version string
}
