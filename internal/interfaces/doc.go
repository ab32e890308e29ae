// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Controller Dependencies
//
// Each HTTP controller depends on a narrow interface declared in
// internal/http/stores.go:
//
//   - BookCatalog: catalog listing and librarian edits (catalog.Service)
//   - BorrowingLedger: borrow, return and loan history (ledger.Service)
//   - UserDirectory: profiles and role management (users.Service)
//   - AnalyticsReader: librarian dashboards (analytics.Service)
//   - AuditReader: audit trail listing (audit.Service)
//   - TaskQueue: on-demand background jobs (tasks.Client)
//
// ## Ledger Collaborators
//
// The ledger reports every operation to three optional collaborators, set
// after construction:
//
//   - Auditor: persisted audit trail (audit.Service)
//   - Recorder: Prometheus counters and timings (metrics.Metrics)
//   - Publisher: domain events after commit (events.AMQPPublisher, events.NoopPublisher)
//
// ## Identity Providers
//
// auth.IdentityProvider turns an external token into an ExternalIdentity.
// ProfileProvider calls the institution's profile endpoint; GoogleProvider
// verifies Google ID tokens.
//
// # Adding a New Identity Provider
//
//  1. Implement IdentityProvider in internal/auth/
//
//     type GitHubProvider struct {
//         httpClient *http.Client
//     }
//
//     func (p *GitHubProvider) Exchange(ctx context.Context, token string) (*entities.ExternalIdentity, error)
//
//     var _ IdentityProvider = (*GitHubProvider)(nil)
//
//  2. Register it in entrypoint.App.wire with Auth.RegisterProvider
//
//  3. Add a route in internal/http/auth.go
//
// # Adding a New Background Task
//
//  1. Define the task and its queue config in internal/tasks/
//
//  2. Write a processor against a narrow interface and register the queue in
//     entrypoint.Run
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
