package config

const (
	// DefaultDatabasePath is the default SQLite database location.
	DefaultDatabasePath = "./data/lms.db"

	// DefaultSweepSchedule runs the overdue sweep at midnight server time.
	DefaultSweepSchedule = "0 0 * * *"

	// SessionCookieName is the cookie carrying the signed session token.
	SessionCookieName = "jwt"
)
