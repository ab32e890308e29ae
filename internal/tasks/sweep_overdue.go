package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"

	"github.com/Byiringiro215/lms/internal/ledger"
)

const QueueSweepOverdue = "sweep_overdue"

// SweepRunner runs one overdue sweep.
type SweepRunner interface {
	RunNow(trigger string) (int64, error)
}

// SweepOverdueTask runs an on-demand overdue sweep.
type SweepOverdueTask struct {
	RequestedBy string `json:"requested_by"`
}

func (t SweepOverdueTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        QueueSweepOverdue,
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     10 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// SweepOverdueProcessor creates a processor function for SweepOverdueTask.
// busy is the error the runner returns when a sweep is already running; a
// task that hits it succeeds without retrying.
func SweepOverdueProcessor(runner SweepRunner, busy error, log *zap.Logger) backlite.QueueProcessor[SweepOverdueTask] {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, task SweepOverdueTask) error {
		if runner == nil {
			return fmt.Errorf("sweep runner not configured")
		}

		marked, err := runner.RunNow(ledger.TriggerTask)
		if busy != nil && errors.Is(err, busy) {
			log.Info("Overdue sweep task skipped, a sweep is already running",
				zap.String("requested_by", task.RequestedBy))
			return nil
		}
		if err != nil {
			return fmt.Errorf("sweep overdue: %w", err)
		}

		log.Info("Overdue sweep task completed",
			zap.Int64("marked", marked),
			zap.String("requested_by", task.RequestedBy),
		)
		return nil
	}
}

func NewSweepOverdueQueue(runner SweepRunner, busy error, log *zap.Logger) backlite.Queue {
	return backlite.NewQueue(SweepOverdueProcessor(runner, busy, log))
}
