package entrypoint

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Byiringiro215/lms/internal/analytics"
	"github.com/Byiringiro215/lms/internal/audit"
	"github.com/Byiringiro215/lms/internal/auth"
	"github.com/Byiringiro215/lms/internal/catalog"
	"github.com/Byiringiro215/lms/internal/config"
	"github.com/Byiringiro215/lms/internal/database"
	dbanalytics "github.com/Byiringiro215/lms/internal/database/analytics"
	dbaudit "github.com/Byiringiro215/lms/internal/database/audit"
	"github.com/Byiringiro215/lms/internal/database/books"
	"github.com/Byiringiro215/lms/internal/database/borrowings"
	"github.com/Byiringiro215/lms/internal/database/settings"
	dbusers "github.com/Byiringiro215/lms/internal/database/users"
	"github.com/Byiringiro215/lms/internal/events"
	"github.com/Byiringiro215/lms/internal/ledger"
	"github.com/Byiringiro215/lms/internal/metrics"
	"github.com/Byiringiro215/lms/internal/scheduler"
	"github.com/Byiringiro215/lms/internal/users"
)

// App holds the services shared by the HTTP server and the CLI commands.
type App struct {
	Config *config.Config
	Log    *zap.Logger

	DB        *database.Database
	Metrics   *metrics.Metrics
	Publisher events.Publisher
	Settings  *settings.Repository

	Audit     *audit.Service
	Catalog   *catalog.Service
	Users     *users.Service
	Ledger    *ledger.Service
	Analytics *analytics.Service
	Auth      *auth.Service
	Sessions  *auth.SessionIssuer
	Sweeper   *scheduler.OverdueSweepScheduler
}

// NewApp connects to the store and wires every service. Callers must Close
// the returned App.
func NewApp(cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := database.NewDatabase(cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app := &App{
		Config:    cfg,
		Log:       log,
		DB:        db,
		Metrics:   metrics.New(),
		Publisher: events.NoopPublisher{},
		Settings:  settings.NewRepository(db.DB),
	}

	if err := app.wire(); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wire() error {
	cfg, log := a.Config, a.Log

	if cfg.Events.AMQPURL != "" {
		publisher, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, log.Named("events"))
		if err != nil {
			// Events are a side channel; the ledger keeps working without them.
			log.Warn("Event publishing disabled", zap.Error(err))
		} else {
			a.Publisher = publisher
		}
	}

	a.Audit = audit.NewService(dbaudit.NewRepository(a.DB.DB), log.Named("audit"))

	a.Catalog = catalog.NewService(books.NewRepository(a.DB.DB), log.Named("catalog"))
	a.Catalog.SetAuditor(a.Audit)

	a.Users = users.NewService(dbusers.NewRepository(a.DB.DB), log.Named("users"))
	a.Users.SetAuditor(a.Audit)

	ledgerSvc, err := ledger.NewService(borrowings.NewRepository(a.DB.DB), ledger.Config{
		StudentBorrowLimit: cfg.Ledger.StudentBorrowLimit,
		MaxLoanDays:        cfg.Ledger.MaxLoanDays,
		TxTimeout:          cfg.Ledger.TxTimeout,
	}, log.Named("ledger"))
	if err != nil {
		return err
	}
	ledgerSvc.SetAuditor(a.Audit)
	ledgerSvc.SetRecorder(a.Metrics)
	ledgerSvc.SetPublisher(a.Publisher)
	a.Ledger = ledgerSvc

	sqlxDB, err := a.DB.SQLX()
	if err != nil {
		return fmt.Errorf("failed to open analytics connection: %w", err)
	}
	a.Analytics = analytics.NewService(dbanalytics.NewRepository(sqlxDB, a.DB.SQLDialect()), log.Named("analytics"))

	a.Sessions, err = auth.NewSessionIssuer(cfg.Auth)
	if err != nil {
		return err
	}
	a.Auth = auth.NewService(a.Sessions, a.Users, log.Named("auth"))
	a.Auth.SetAuditor(a.Audit)
	if cfg.Identity.ProfileURL != "" {
		a.Auth.RegisterProvider(auth.ProviderProfile, auth.NewProfileProvider(cfg.Identity.ProfileURL))
	} else {
		log.Warn("IDENTITY_PROFILE_URL is not set; /auth/callback will reject every sign-in")
	}
	if cfg.Identity.GoogleClientID != "" {
		a.Auth.RegisterProvider(auth.ProviderGoogle, auth.NewGoogleProvider(cfg.Identity.GoogleClientID))
	}

	schedule := cfg.Sweep.Schedule
	if schedule == "" {
		schedule = config.DefaultSweepSchedule
	}
	a.Sweeper, err = scheduler.NewOverdueSweepScheduler(a.Ledger, a.Settings, schedule, log.Named("sweep"))
	if err != nil {
		return err
	}

	return nil
}

// Close releases the store and the event publisher after pending audit
// writes finish.
func (a *App) Close() error {
	var errs []error
	if a.Sweeper != nil {
		a.Sweeper.Stop()
	}
	if a.Audit != nil {
		a.Audit.Wait()
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Ping checks store connectivity.
func (a *App) Ping(ctx context.Context) error {
	return a.DB.Ping(ctx)
}
