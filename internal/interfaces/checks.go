package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/Byiringiro215/lms/internal/analytics"
	"github.com/Byiringiro215/lms/internal/audit"
	"github.com/Byiringiro215/lms/internal/auth"
	"github.com/Byiringiro215/lms/internal/catalog"
	"github.com/Byiringiro215/lms/internal/database"
	"github.com/Byiringiro215/lms/internal/entrypoint"
	"github.com/Byiringiro215/lms/internal/events"
	"github.com/Byiringiro215/lms/internal/http"
	"github.com/Byiringiro215/lms/internal/ledger"
	"github.com/Byiringiro215/lms/internal/metrics"
	"github.com/Byiringiro215/lms/internal/scheduler"
	"github.com/Byiringiro215/lms/internal/seed"
	"github.com/Byiringiro215/lms/internal/tasks"
	"github.com/Byiringiro215/lms/internal/users"
)

// =============================================================================
// HTTP Controllers
// =============================================================================

var _ http.Pinger = (*database.Database)(nil)
var _ http.Pinger = (*entrypoint.App)(nil)
var _ http.Authenticator = (*auth.Service)(nil)
var _ http.BookCatalog = (*catalog.Service)(nil)
var _ http.UserDirectory = (*users.Service)(nil)
var _ http.BorrowingLedger = (*ledger.Service)(nil)
var _ http.AnalyticsReader = (*analytics.Service)(nil)
var _ http.AuditReader = (*audit.Service)(nil)
var _ http.TaskQueue = (*tasks.Client)(nil)
var _ http.SweepStatusReader = (*scheduler.OverdueSweepScheduler)(nil)

// =============================================================================
// Ledger Collaborators
// =============================================================================

var _ ledger.Auditor = (*audit.Service)(nil)
var _ ledger.Recorder = (*metrics.Metrics)(nil)
var _ ledger.Publisher = (*events.AMQPPublisher)(nil)
var _ ledger.Publisher = events.NoopPublisher{}
var _ events.Publisher = (*events.AMQPPublisher)(nil)

// =============================================================================
// Auditors
// =============================================================================

var _ catalog.Auditor = (*audit.Service)(nil)
var _ users.Auditor = (*audit.Service)(nil)
var _ auth.Auditor = (*audit.Service)(nil)

// =============================================================================
// Identity
// =============================================================================

var _ auth.UserDirectory = (*users.Service)(nil)
var _ auth.IdentityProvider = (*auth.ProfileProvider)(nil)
var _ auth.IdentityProvider = (*auth.GoogleProvider)(nil)

// =============================================================================
// Background Jobs
// =============================================================================

var _ scheduler.Sweeper = (*ledger.Service)(nil)
var _ tasks.SweepRunner = (*scheduler.OverdueSweepScheduler)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)
var _ seed.Catalog = (*catalog.Service)(nil)
