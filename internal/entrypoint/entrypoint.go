package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Byiringiro215/lms/internal/auth"
	"github.com/Byiringiro215/lms/internal/config"
	http_controllers "github.com/Byiringiro215/lms/internal/http"
	"github.com/Byiringiro215/lms/internal/scheduler"
	"github.com/Byiringiro215/lms/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// within the configured timeout.
func Serve(ctx context.Context, router *gin.Engine, cfg *config.Config, log *zap.Logger, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down server", zap.Duration("timeout", timeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop task queue)
	if onShutdown != nil {
		onShutdown(shutdownCtx)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info("Server exiting")
	return nil
}

// Run wires the application and serves HTTP until SIGINT or SIGTERM.
func Run(cfg *config.Config, version string, log *zap.Logger) error {
	log.Info("Starting library service", zap.String("version", version))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn("Error during cleanup", zap.Error(err))
		}
	}()

	var queue *taskQueue
	if cfg.Tasks.Enabled {
		queue, err = startTaskQueue(cfg, app, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := queue.Close(); err != nil {
				log.Warn("Error closing task client", zap.Error(err))
			}
		}()
	} else {
		log.Info("Task queue disabled; POST /admin/sweep will return 503")
	}

	if cfg.Sweep.Enabled {
		if err := app.Sweeper.Start(ctx); err != nil {
			return fmt.Errorf("failed to start overdue sweep scheduler: %w", err)
		}
	} else {
		log.Info("Scheduled overdue sweep disabled")
	}

	limits := auth.DefaultRateLimitConfig()
	limits.MaxAttempts = cfg.Auth.MaxCallbackAttempts
	limits.WindowDuration = cfg.Auth.RateLimitWindow
	limits.LockoutDuration = cfg.Auth.LockoutDuration
	limiter := auth.NewRateLimiter(limits)
	defer limiter.Stop()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Build router configuration with all dependencies
	routerCfg := http_controllers.RouterConfig{
		Database:       app,
		Catalog:        app.Catalog,
		Users:          app.Users,
		Ledger:         app.Ledger,
		Analytics:      app.Analytics,
		Audit:          app.Audit,
		Auth:           app.Auth,
		Sessions:       app.Sessions,
		AuthMiddleware: auth.NewMiddleware(app.Sessions),
		RateLimiter:    limiter,
		LoginURL:       cfg.Identity.LoginURL,
		AppRedirectURL: cfg.Identity.AppRedirectURL,
		FrontendURL:    cfg.HTTP.FrontendURL,
		Sweep:          app.Sweeper,
		Metrics:        app.Metrics,
		Logger:         log.Named("http"),
		Version:        version,
	}
	if cfg.Auth.SecureCookies {
		routerCfg.HSTSMaxAge = 31536000
	}
	if queue != nil {
		routerCfg.Tasks = queue.client
	}

	router := http_controllers.NewRouter(routerCfg)

	// Shutdown callback for graceful cleanup
	onShutdown := func(ctx context.Context) {
		app.Sweeper.Stop()
		if queue != nil {
			queue.Shutdown(ctx)
		}
	}

	return Serve(ctx, router, cfg, log, onShutdown)
}

// taskQueue owns the backlite client and the context its workers run under.
type taskQueue struct {
	client *tasks.Client
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// startTaskQueue opens the task database, registers the queues, starts the
// workers and enqueues the audit cleanup.
func startTaskQueue(cfg *config.Config, app *App, log *zap.Logger) (*taskQueue, error) {
	mainPath := ""
	if app.DB.Driver() == config.DatabaseDriverSQLite {
		mainPath = cfg.Database.Path
	}
	client, err := tasks.NewClient(
		tasks.DBPathFor(mainPath, config.DefaultDatabasePath),
		tasks.ConfigFrom(cfg.Tasks, cfg.Audit),
		log.Named("tasks"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize task queue: %w", err)
	}

	client.Register(
		tasks.NewSweepOverdueQueue(app.Sweeper, scheduler.ErrSweepInProgress, log.Named("tasks")),
		tasks.NewCleanupAuditEventsQueue(app.Audit, log.Named("tasks")),
	)

	q := &taskQueue{client: client}
	q.ctx, q.cancel = context.WithCancel(context.Background())
	go client.Start(q.ctx)

	if _, err := client.Enqueue(tasks.CleanupAuditEventsTask{RetentionDays: cfg.Audit.RetentionDays}); err != nil {
		log.Warn("Failed to enqueue audit cleanup", zap.Error(err))
	}
	return q, nil
}

// Shutdown waits for running tasks until ctx expires and cancels the workers.
// Calls after the first are no-ops.
func (q *taskQueue) Shutdown(ctx context.Context) {
	q.once.Do(func() {
		q.client.Stop(ctx)
		q.cancel()
	})
}

// Close shuts the workers down if that has not happened yet and releases the
// task database.
func (q *taskQueue) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)
	return q.client.Close()
}
