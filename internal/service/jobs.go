package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/legtrack/internal/metrics"
	"github.com/raphaelgruber/legtrack/internal/models"
)

// batchSize bounds the number of detail fetches done in a single
// ProcessNextBatch call, so the controller can be driven by a poller with
// bounded per-call work as well as by the streaming loop.
const batchSize = 10

// pausePollInterval is how often a blocking Run re-checks a paused job.
const pausePollInterval = 500 * time.Millisecond

// TriggerOptions are the optional per-run overrides accepted by Trigger.
// Zero values fall back to the resolved settings.
type TriggerOptions struct {
	MaxBills  int      `json:"max_bills,omitempty"`
	BillTypes []string `json:"bill_types,omitempty"`
}

// BatchItem records the outcome of one bill within a batch.
type BatchItem struct {
	BillNumber string
	Outcome    Outcome
}

// BatchResult is the delta produced by one ProcessNextBatch call, consumed
// by the progress stream.
type BatchResult struct {
	Job           *models.SyncJob // post-batch snapshot
	BillType      string
	TypeStarted   bool
	TypeCompleted bool
	Items         []BatchItem
}

// Controller owns the sync job state machine. The batch step is the sole
// unit of forward progress and the sole persistence checkpoint; everything
// else is bookkeeping around it. At most one RUNNING or PAUSED job exists at
// a time (single-flight), enforced by the trigger mutex plus the persisted
// active-job check.
type Controller struct {
	store      Store
	fetcher    BillFetcher
	reconciler *Reconciler

	// triggerMu closes the check-then-create race between concurrent
	// trigger calls. It is never held across a fetch or a delay.
	triggerMu sync.Mutex

	// Candidate lists are process-local: they are refetched (and re-sorted)
	// after a restart, which the per-type cursor is designed to survive.
	candMu     sync.Mutex
	candidates map[string][]int
}

// NewController creates a job controller. collector may be nil.
func NewController(store Store, fetcher BillFetcher, collector *metrics.Collector) *Controller {
	return &Controller{
		store:      store,
		fetcher:    fetcher,
		reconciler: NewReconciler(store, collector),
		candidates: make(map[string][]int),
	}
}

// Trigger creates a new sync job from the resolved settings (with optional
// overrides) and transitions it to RUNNING. Fails with ErrSyncDisabled or
// ErrSyncAlreadyRunning without mutating any state.
func (c *Controller) Trigger(ctx context.Context, opts TriggerOptions) (*models.SyncJob, error) {
	c.triggerMu.Lock()
	defer c.triggerMu.Unlock()

	settings, err := resolveSettings(ctx, c.store)
	if err != nil {
		return nil, err
	}
	if !settings.Enabled {
		return nil, ErrSyncDisabled
	}

	active, err := c.store.ActiveSyncJob(ctx)
	if err != nil {
		return nil, fmt.Errorf("check active job: %w", err)
	}
	if active != nil {
		return nil, fmt.Errorf("%w: job %s is %s", ErrSyncAlreadyRunning, active.ID, active.Status)
	}

	maxBills := settings.MaxBills
	if opts.MaxBills > 0 {
		maxBills = opts.MaxBills
	}
	billTypes := settings.BillTypes
	if len(opts.BillTypes) > 0 {
		billTypes = opts.BillTypes
	}

	now := time.Now()
	job := &models.SyncJob{
		ID:             uuid.New().String()[:8], // short id for convenience
		Status:         models.JobStatusPending,
		SessionCode:    settings.SessionCode,
		SessionName:    settings.SessionName,
		BillTypes:      billTypes,
		CompletedTypes: make(map[string]bool),
		Cursors:        make(map[string]int),
		MaxBills:       maxBills,
		BatchDelayMs:   int(settings.BatchDelay / time.Millisecond),
		StartedAt:      now,
		UpdatedAt:      now,
	}
	if err := c.store.CreateSyncJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	job.Status = models.JobStatusRunning
	if err := c.store.UpdateSyncJob(ctx, job); err != nil {
		return nil, fmt.Errorf("start job: %w", err)
	}

	slog.Info("sync job triggered",
		"job_id", job.ID,
		"session", job.SessionCode,
		"bill_types", job.BillTypes,
		"max_bills", job.MaxBills)
	return job, nil
}

// ProcessNextBatch advances the RUNNING job by one bounded batch: it fetches
// or continues the current type's sorted candidate list from the last
// cursor, runs a slice of it through detail fetch and reconcile, and
// persists the updated job state before returning. This is the single
// checkpoint that makes a run resumable.
func (c *Controller) ProcessNextBatch(ctx context.Context, jobID string) (*BatchResult, error) {
	job, err := c.store.GetSyncJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Status != models.JobStatusRunning {
		return nil, fmt.Errorf("%w: cannot process batch while %s", ErrInvalidTransition, job.Status)
	}

	res := &BatchResult{Job: job}

	billType := job.CurrentType()
	if billType == "" {
		return res, c.finish(ctx, job, models.JobStatusCompleted)
	}
	res.BillType = billType

	cursor := job.Cursors[billType]
	res.TypeStarted = cursor == 0

	candidates := c.candidateList(ctx, job, billType)
	delay := time.Duration(job.BatchDelayMs) * time.Millisecond

	end := min(cursor+batchSize, len(candidates))
	for i := cursor; i < end; i++ {
		if job.Processed >= job.MaxBills {
			break
		}
		// Politeness throttle between consecutive detail fetches. A
		// cancellation here ends the batch early; the in-flight state is
		// still checkpointed below.
		if i > cursor {
			if err := sleepCtx(ctx, delay); err != nil {
				break
			}
		}

		number := candidates[i]
		item := BatchItem{BillNumber: models.NaturalKey(billType, number)}

		parsed, ok := c.fetcher.BillDetail(ctx, job.SessionCode, billType, number)
		job.Processed++
		if !ok {
			job.Errored++
			item.Outcome = OutcomeErrored
		} else {
			item.Outcome = c.reconciler.Reconcile(ctx, job.SessionCode, job.SessionName, parsed)
			switch item.Outcome {
			case OutcomeCreated:
				job.Created++
			case OutcomeUpdated:
				job.Updated++
			case OutcomeErrored:
				job.Errored++
			}
		}
		job.Cursors[billType] = i + 1
		res.Items = append(res.Items, item)
	}

	if job.Cursors[billType] >= len(candidates) || job.Processed >= job.MaxBills {
		job.CompletedTypes[billType] = true
		res.TypeCompleted = true
	}

	if job.AllTypesComplete() {
		return res, c.finish(ctx, job, models.JobStatusCompleted)
	}

	job.UpdatedAt = time.Now()
	if err := c.store.UpdateSyncJob(ctx, job); err != nil {
		// The checkpoint write is the one failure the batch step cannot
		// absorb: mark the job ERROR so it does not stay RUNNING forever.
		c.fail(ctx, job, err)
		return nil, fmt.Errorf("persist batch: %w", err)
	}
	return res, nil
}

// Run drives the job's batch step until it reaches a terminal state and
// returns the summary. A paused job is waited on, not failed. Context
// cancellation stops the loop between batches, leaving the job resumable.
func (c *Controller) Run(ctx context.Context, jobID string) (*models.SyncSummary, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		job, err := c.store.GetSyncJob(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("load job: %w", err)
		}
		if job == nil {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}

		if job.Status.Terminal() {
			summary := job.Summary()
			return &summary, nil
		}
		if job.Status == models.JobStatusPaused {
			if err := sleepCtx(ctx, pausePollInterval); err != nil {
				return nil, err
			}
			continue
		}

		if _, err := c.ProcessNextBatch(ctx, jobID); err != nil {
			return nil, err
		}
	}
}

// Pause transitions a RUNNING job to PAUSED.
func (c *Controller) Pause(ctx context.Context, jobID string) (*models.SyncJob, error) {
	return c.transition(ctx, jobID, models.JobStatusRunning, models.JobStatusPaused)
}

// Resume transitions a PAUSED job back to RUNNING.
func (c *Controller) Resume(ctx context.Context, jobID string) (*models.SyncJob, error) {
	return c.transition(ctx, jobID, models.JobStatusPaused, models.JobStatusRunning)
}

// Stop forces STOPPED from any non-terminal state. Idempotent once the job
// is terminal.
func (c *Controller) Stop(ctx context.Context, jobID string) (*models.SyncJob, error) {
	job, err := c.store.GetSyncJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Status.Terminal() {
		return job, nil
	}
	if err := c.finish(ctx, job, models.JobStatusStopped); err != nil {
		return nil, err
	}
	return job, nil
}

// Status returns the current job snapshot: the active job if one exists,
// otherwise the most recently started job, otherwise nil.
func (c *Controller) Status(ctx context.Context) (*models.SyncJob, error) {
	job, err := c.store.ActiveSyncJob(ctx)
	if err != nil {
		return nil, fmt.Errorf("active job: %w", err)
	}
	if job != nil {
		return job, nil
	}

	jobs, err := c.store.ListSyncJobs(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	return &jobs[0], nil
}

// GetJob retrieves one job by id.
func (c *Controller) GetJob(ctx context.Context, jobID string) (*models.SyncJob, error) {
	job, err := c.store.GetSyncJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return job, nil
}

// ListJobs returns recent jobs, most recent first.
func (c *Controller) ListJobs(ctx context.Context, limit int) ([]models.SyncJob, error) {
	return c.store.ListSyncJobs(ctx, limit)
}

func (c *Controller) transition(ctx context.Context, jobID string, from, to models.JobStatus) (*models.SyncJob, error) {
	job, err := c.store.GetSyncJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Status != from {
		return nil, fmt.Errorf("%w: %s -> %s (job is %s)", ErrInvalidTransition, from, to, job.Status)
	}

	job.Status = to
	job.UpdatedAt = time.Now()
	if err := c.store.UpdateSyncJob(ctx, job); err != nil {
		return nil, fmt.Errorf("persist transition: %w", err)
	}
	slog.Info("sync job transition", "job_id", job.ID, "from", from, "to", to)
	return job, nil
}

// finish persists a terminal status and drops the job's candidate cache.
func (c *Controller) finish(ctx context.Context, job *models.SyncJob, status models.JobStatus) error {
	now := time.Now()
	job.Status = status
	job.UpdatedAt = now
	job.CompletedAt = &now
	if err := c.store.UpdateSyncJob(ctx, job); err != nil {
		return fmt.Errorf("persist %s: %w", status, err)
	}
	c.dropCandidates(job.ID)
	slog.Info("sync job finished",
		"job_id", job.ID,
		"status", status,
		"processed", job.Processed,
		"created", job.Created,
		"updated", job.Updated,
		"errored", job.Errored)
	return nil
}

// fail best-effort persists the ERROR state after an unrecoverable fault.
func (c *Controller) fail(ctx context.Context, job *models.SyncJob, cause error) {
	now := time.Now()
	job.Status = models.JobStatusError
	job.Error = cause.Error()
	job.UpdatedAt = now
	job.CompletedAt = &now
	if err := c.store.UpdateSyncJob(ctx, job); err != nil {
		slog.Error("failed to persist job error state", "job_id", job.ID, "error", err)
	}
	c.dropCandidates(job.ID)
	slog.Error("sync job failed", "job_id", job.ID, "error", cause)
}

// candidateList returns the sorted candidate identifiers for a type,
// fetching the listing on first use per job. Sorting ascending makes runs
// deterministic and the cursor meaningful across restarts.
func (c *Controller) candidateList(ctx context.Context, job *models.SyncJob, billType string) []int {
	key := job.ID + "/" + billType

	c.candMu.Lock()
	cached, ok := c.candidates[key]
	c.candMu.Unlock()
	if ok {
		return cached
	}

	numbers := c.fetcher.BillNumbers(ctx, job.SessionCode, billType)
	sort.Ints(numbers)

	c.candMu.Lock()
	c.candidates[key] = numbers
	c.candMu.Unlock()
	return numbers
}

func (c *Controller) dropCandidates(jobID string) {
	c.candMu.Lock()
	defer c.candMu.Unlock()
	for key := range c.candidates {
		if len(key) > len(jobID) && key[:len(jobID)] == jobID && key[len(jobID)] == '/' {
			delete(c.candidates, key)
		}
	}
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
