// Package database provides the data access layer for the library service.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup (sqlite or postgres), migrations
//	├── retry.go         # Backoff retry for lock and serialization conflicts
//	├── gorm_logger.go   # zap-backed gorm logger
//	├── books/           # Catalog CRUD
//	├── users/           # User directory
//	├── borrowings/      # Borrowing ledger and copy counter mutations
//	├── analytics/       # Read-only rollups built with goqu and scanned with sqlx
//	├── audit/           # Audit trail
//	└── settings/        # Persisted runtime state (last sweep outcome)
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type constructed from the shared
// gorm handle:
//
//	db, err := database.NewDatabase(cfg.Database, log)
//
//	booksRepo := books.NewRepository(db.DB)
//	ledgerRepo := borrowings.NewRepository(db.DB)
//
// Repositories that take part in a ledger transaction expose WithTx so the
// same statements run on the transaction handle.
//
// # SQLite
//
// SQLite connections use WAL, a 5s busy timeout, enforced foreign keys and
// BEGIN IMMEDIATE, with a single pooled connection. Tests open MemoryPath.
package database
