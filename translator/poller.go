package translator

import (
	"context"
	"fmt"
	"time"

	"github.com/crowdflux/DeckLingo-AI/models"
	"github.com/rs/zerolog"
)

// StatusChecker is the part of the remote API the poller needs.
type StatusChecker interface {
	PollStatus(ctx context.Context, requestID string) (StatusReport, error)
}

// Poller waits for a submitted job to reach a terminal state.
type Poller struct {
	Checker  StatusChecker
	Interval time.Duration
	Deadline time.Duration

	now func() time.Time
}

// NewPoller creates a poller with a fixed inter-poll delay and an overall
// deadline measured from the job's submit time.
func NewPoller(checker StatusChecker, interval, deadline time.Duration) *Poller {
	return &Poller{Checker: checker, Interval: interval, Deadline: deadline, now: time.Now}
}

// Wait polls until COMPLETE (nil), FAILED (ErrJobFailed), the deadline
// (ErrJobTimedOut) or ctx cancellation (ErrCanceled). A failed status call
// ends the wait with that error. job.State always ends terminal.
// progress, if set, receives a copy of job after every poll and on return.
func (p *Poller) Wait(ctx context.Context, job *models.RemoteJob, progress func(models.RemoteJob)) error {
	logger := zerolog.Ctx(ctx).With().Str("remote_request_id", job.RequestID).Logger()
	deadline := job.SubmittedAt.Add(p.Deadline)
	defer func() { notify(progress, job) }()

	for {
		if err := ctx.Err(); err != nil {
			job.Finish(models.JobStateCanceled)
			return fmt.Errorf("poll: %w: %v", ErrCanceled, context.Cause(ctx))
		}
		if !p.now().Before(deadline) {
			job.Finish(models.JobStateTimedOut)
			logger.Warn().Int("polls", job.Polls).Dur("deadline", p.Deadline).Msg("job deadline reached")
			return fmt.Errorf("after %d polls: %w", job.Polls, ErrJobTimedOut)
		}

		report, err := p.Checker.PollStatus(ctx, job.RequestID)
		if err != nil {
			if ctx.Err() != nil {
				job.Finish(models.JobStateCanceled)
			} else {
				job.Finish(models.JobStateErrored)
			}
			return err
		}

		switch job.Observe(report.Status) {
		case models.JobStateCompleted:
			logger.Debug().Int("polls", job.Polls).Msg("job complete")
			return nil
		case models.JobStateFailed:
			return fmt.Errorf("remote job %s: %w", job.RequestID, ErrJobFailed)
		case models.JobStatePolling:
			if report.Status == models.JobStatusUnknown {
				logger.Warn().Str("status", report.Raw).Msg("unrecognised job status, still polling")
			}
			notify(progress, job)
		}

		if err := p.sleep(ctx, deadline); err != nil {
			job.Finish(models.JobStateCanceled)
			return fmt.Errorf("poll: %w: %v", ErrCanceled, err)
		}
	}
}

// sleep waits one interval, cut short at the deadline, or returns the cause
// if ctx ends first.
func (p *Poller) sleep(ctx context.Context, deadline time.Time) error {
	wait := p.Interval
	if remaining := deadline.Sub(p.now()); remaining < wait {
		wait = remaining
	}
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-timer.C:
		return nil
	}
}

func notify(progress func(models.RemoteJob), job *models.RemoteJob) {
	if progress != nil {
		progress(*job)
	}
}
