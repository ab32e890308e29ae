package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Byiringiro215/lms/internal/database/settings"
	"github.com/Byiringiro215/lms/internal/entities"
	"github.com/Byiringiro215/lms/internal/ledger"
)

const sweepTimeout = 5 * time.Minute

// Sweeper marks overdue borrowings.
type Sweeper interface {
	SweepOverdue(ctx context.Context, now time.Time, trigger string) (int64, error)
}

// SweepStatus describes the scheduler and its most recent run.
type SweepStatus struct {
	Enabled     bool       `json:"enabled"`
	Running     bool       `json:"running"`
	Sweeping    bool       `json:"sweeping"`
	Schedule    string     `json:"schedule"`
	NextRun     *time.Time `json:"nextRun,omitempty"`
	LastRunAt   *time.Time `json:"lastRunAt,omitempty"`
	LastStatus  string     `json:"lastStatus,omitempty"`
	LastMessage string     `json:"lastMessage,omitempty"`
	LastMarked  int64      `json:"lastMarked"`
}

// OverdueSweepScheduler runs the overdue sweep on a cron schedule.
type OverdueSweepScheduler struct {
	sweeper  Sweeper
	settings *settings.Repository
	schedule string
	log      *zap.Logger
	now      func() time.Time

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isSweeping bool
	cancelFunc context.CancelFunc
}

// NewOverdueSweepScheduler validates schedule and returns a stopped scheduler.
func NewOverdueSweepScheduler(sweeper Sweeper, settingsRepo *settings.Repository, schedule string, log *zap.Logger) (*OverdueSweepScheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := ValidateCronSchedule(schedule); err != nil {
		return nil, fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}

	cronLogger := cron.PrintfLogger(zap.NewStdLog(log.Named("cron")))
	return &OverdueSweepScheduler{
		sweeper:  sweeper,
		settings: settingsRepo,
		schedule: schedule,
		log:      log,
		now:      time.Now,
		cron: cron.New(
			cron.WithParser(cronParser),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
	}, nil
}

// Start registers the sweep job and starts the cron loop. Cancelling ctx
// stops the scheduler.
func (s *OverdueSweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if s.entryID == 0 {
		entryID, err := s.cron.AddFunc(s.schedule, func() {
			s.runSweep(ledger.TriggerSchedule)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule sweep job: %w", err)
		}
		s.entryID = entryID
	}

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := GetNextRunTime(s.schedule)
	s.log.Info("Overdue sweep scheduler started",
		zap.String("schedule", s.schedule),
		zap.Time("next_run", nextRun),
	)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running sweep to finish and stops the cron loop.
func (s *OverdueSweepScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	cancel := s.cancelFunc
	s.cancelFunc = nil
	s.mu.Unlock()

	// Stop accepting new jobs and wait for running jobs to complete
	ctx := s.cron.Stop()
	<-ctx.Done()

	if cancel != nil {
		cancel()
	}
	s.log.Info("Overdue sweep scheduler stopped")
}

// RunNow runs one sweep synchronously, outside the schedule.
func (s *OverdueSweepScheduler) RunNow(trigger string) (int64, error) {
	return s.runSweep(trigger)
}

func (s *OverdueSweepScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *OverdueSweepScheduler) IsSweeping() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSweeping
}

// NextRun returns when the next scheduled sweep will occur.
func (s *OverdueSweepScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// Status reports the scheduler state and the outcome of the last sweep.
func (s *OverdueSweepScheduler) Status(ctx context.Context) (SweepStatus, error) {
	status := SweepStatus{
		Enabled:  true,
		Running:  s.IsRunning(),
		Sweeping: s.IsSweeping(),
		Schedule: s.schedule,
		NextRun:  s.NextRun(),
	}
	if s.settings == nil {
		return status, nil
	}

	lastAt, err := s.settings.GetValue(ctx, entities.SettingKeySweepLastAt, "")
	if err != nil {
		return status, err
	}
	if t, err := time.Parse(time.RFC3339, lastAt); err == nil {
		status.LastRunAt = &t
	}
	if status.LastStatus, err = s.settings.GetValue(ctx, entities.SettingKeySweepLastStatus, ""); err != nil {
		return status, err
	}
	if status.LastMessage, err = s.settings.GetValue(ctx, entities.SettingKeySweepLastMessage, ""); err != nil {
		return status, err
	}
	marked, err := s.settings.GetValue(ctx, entities.SettingKeySweepLastMarked, "0")
	if err != nil {
		return status, err
	}
	status.LastMarked, _ = strconv.ParseInt(marked, 10, 64)
	return status, nil
}

// ErrSweepInProgress is returned by RunNow while another sweep runs.
var ErrSweepInProgress = errors.New("overdue sweep already in progress")

func (s *OverdueSweepScheduler) runSweep(trigger string) (int64, error) {
	s.mu.Lock()
	if s.isSweeping {
		s.mu.Unlock()
		s.log.Info("Overdue sweep skipped (already sweeping)", zap.String("trigger", trigger))
		return 0, ErrSweepInProgress
	}
	s.isSweeping = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSweeping = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	startedAt := s.now()
	marked, err := s.sweeper.SweepOverdue(ctx, startedAt, trigger)

	status, message := "success", fmt.Sprintf("Marked %d borrowings overdue", marked)
	if err != nil {
		status, message = "failed", err.Error()
	}
	s.recordStatus(ctx, startedAt, status, message, marked)

	return marked, err
}

func (s *OverdueSweepScheduler) recordStatus(ctx context.Context, at time.Time, status, message string, marked int64) {
	if s.settings == nil {
		return
	}
	err := s.settings.SetMany(ctx, map[string]string{
		entities.SettingKeySweepLastAt:      at.UTC().Format(time.RFC3339),
		entities.SettingKeySweepLastStatus:  status,
		entities.SettingKeySweepLastMessage: message,
		entities.SettingKeySweepLastMarked:  strconv.FormatInt(marked, 10),
	})
	if err != nil {
		s.log.Warn("Failed to record sweep status", zap.Error(err))
	}
}
