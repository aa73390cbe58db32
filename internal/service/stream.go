package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/raphaelgruber/legtrack/internal/models"
)

// EventType names a progress event emitted during a streamed sync run.
type EventType string

const (
	EventTypeStarted   EventType = "category_started"
	EventBillProcessed EventType = "bill_processed"
	EventTypeCompleted EventType = "category_completed"
	EventSyncCompleted EventType = "sync_completed"
	EventSyncError     EventType = "sync_error"
)

// Event is one progress update pushed to a streaming consumer. Counters are
// the job's cumulative totals at the time of the event.
type Event struct {
	Type      EventType        `json:"type"`
	JobID     string           `json:"job_id"`
	BillType  string           `json:"bill_type,omitempty"`
	Bill      string           `json:"bill,omitempty"`
	Outcome   string           `json:"outcome,omitempty"`
	Status    models.JobStatus `json:"status,omitempty"`
	Processed int              `json:"processed"`
	Created   int              `json:"created"`
	Updated   int              `json:"updated"`
	Errored   int              `json:"errored"`
	Message   string           `json:"message,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Sink receives progress events. The consumer owns transport-specific
// encoding; a send error means the consumer is gone and ends the stream.
type Sink interface {
	Send(event Event) error
}

// Runner drives a job's batch step in a loop, translating each batch delta
// into progress events. One Runner call serves one streamed run.
type Runner struct {
	controller *Controller
}

// NewRunner creates a progress runner for the controller.
func NewRunner(controller *Controller) *Runner {
	return &Runner{controller: controller}
}

// Run processes batches of jobID until the job is terminal, the context is
// cancelled, or the sink stops accepting events. Cancellation is cooperative
// and checked before each batch; a cancelled run leaves the job RUNNING so a
// later caller can resume it. An unrecoverable batch error emits a terminal
// sync_error event and is returned; the runner does not retry.
func (r *Runner) Run(ctx context.Context, jobID string, sink Sink) error {
	for {
		if ctx.Err() != nil {
			slog.Info("stream cancelled by client", "job_id", jobID)
			return nil
		}

		res, err := r.controller.ProcessNextBatch(ctx, jobID)
		if err != nil {
			if errors.Is(err, ErrInvalidTransition) {
				// Paused or stopped out from under the stream: report and end.
				_ = sink.Send(event(EventSyncError, jobID, nil, err.Error()))
				return err
			}
			_ = sink.Send(event(EventSyncError, jobID, res.job(), err.Error()))
			return err
		}

		job := res.Job

		if res.TypeStarted && res.BillType != "" {
			ev := event(EventTypeStarted, jobID, job, "")
			ev.BillType = res.BillType
			if err := sink.Send(ev); err != nil {
				return nil
			}
		}

		for _, item := range res.Items {
			ev := event(EventBillProcessed, jobID, job, "")
			ev.BillType = res.BillType
			ev.Bill = item.BillNumber
			ev.Outcome = item.Outcome.String()
			if err := sink.Send(ev); err != nil {
				return nil
			}
		}

		if res.TypeCompleted {
			ev := event(EventTypeCompleted, jobID, job, "")
			ev.BillType = res.BillType
			if err := sink.Send(ev); err != nil {
				return nil
			}
		}

		if job.Status.Terminal() {
			if job.Status == models.JobStatusError {
				_ = sink.Send(event(EventSyncError, jobID, job, job.Error))
				return nil
			}
			_ = sink.Send(event(EventSyncCompleted, jobID, job, ""))
			return nil
		}
	}
}

func event(t EventType, jobID string, job *models.SyncJob, msg string) Event {
	ev := Event{
		Type:      t,
		JobID:     jobID,
		Message:   msg,
		Timestamp: time.Now(),
	}
	if job != nil {
		ev.Status = job.Status
		ev.Processed = job.Processed
		ev.Created = job.Created
		ev.Updated = job.Updated
		ev.Errored = job.Errored
	}
	return ev
}

// job is a nil-safe accessor for error paths where the batch result may be
// absent.
func (r *BatchResult) job() *models.SyncJob {
	if r == nil {
		return nil
	}
	return r.Job
}
