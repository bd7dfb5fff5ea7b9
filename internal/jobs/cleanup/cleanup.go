package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const defaultRetention = 48 * time.Hour

type sessionCleaner interface {
	Cleanup(ctx context.Context) (int64, error)
}

type messageCleaner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Job is the periodic backstop for voting sessions that never reached a
// quorum, plus the recorded media group messages they could refer to.
type Job struct {
	sessions  sessionCleaner
	messages  messageCleaner
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewJob(sessions sessionCleaner, messages messageCleaner, retention time.Duration, logger *zap.Logger) *Job {
	if retention <= 0 {
		retention = defaultRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		sessions:  sessions,
		messages:  messages,
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.sessions != nil {
		deleted, err := j.sessions.Cleanup(ctx)
		if err != nil {
			return fmt.Errorf("cleanup voteban sessions: %w", err)
		}
		if deleted > 0 {
			j.logger.Info("cleanup voteban sessions completed", zap.Int64("deleted", deleted))
		}
	}

	if j.messages != nil {
		cutoff := j.now().Add(-j.retention)
		deleted, err := j.messages.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("cleanup chat messages: %w", err)
		}
		if deleted > 0 {
			j.logger.Info("cleanup chat messages completed", zap.Int64("deleted", deleted))
		}
	}

	return nil
}

// Loop runs the job once and then on every tick until ctx is done. A failed
// run is logged and retried on the next tick.
func (j *Job) Loop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	j.runLogged(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.runLogged(ctx)
		}
	}
}

func (j *Job) runLogged(ctx context.Context) {
	if err := j.Run(ctx); err != nil && ctx.Err() == nil {
		j.logger.Error("cleanup job failed", zap.Error(err))
	}
}
