package models

import "time"

// JobStatus is the lifecycle state of a sync job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusPaused    JobStatus = "PAUSED"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusStopped   JobStatus = "STOPPED"
	JobStatusError     JobStatus = "ERROR"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusStopped, JobStatusError:
		return true
	}
	return false
}

// Active reports whether the job counts against the single-flight rule.
func (s JobStatus) Active() bool {
	return s == JobStatusRunning || s == JobStatusPaused
}

// SyncJob is the persisted state of one bill synchronization run. The whole
// record is written back at the end of every batch, which is what makes a
// run resumable across process restarts.
type SyncJob struct {
	ID             string          `json:"id,omitempty"`
	Status         JobStatus       `json:"status"`
	SessionCode    string          `json:"session_code"`
	SessionName    string          `json:"session_name"`
	BillTypes      []string        `json:"bill_types"`
	CompletedTypes map[string]bool `json:"completed_types"`
	Cursors        map[string]int  `json:"cursors"`
	Processed      int             `json:"processed"`
	Created        int             `json:"created"`
	Updated        int             `json:"updated"`
	Errored        int             `json:"errored"`
	MaxBills       int             `json:"max_bills"`
	BatchDelayMs   int             `json:"batch_delay_ms"`
	Error          string          `json:"error,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// CurrentType returns the first bill type not yet marked complete, or ""
// when every type is drained.
func (j *SyncJob) CurrentType() string {
	for _, t := range j.BillTypes {
		if !j.CompletedTypes[t] {
			return t
		}
	}
	return ""
}

// AllTypesComplete reports whether every configured bill type is drained.
func (j *SyncJob) AllTypesComplete() bool {
	return j.CurrentType() == ""
}

// Summary condenses the job's counters for trigger callers. The fetched
// count is the number of bills actually visited, so created + updated +
// errored never exceeds it.
func (j *SyncJob) Summary() SyncSummary {
	finished := j.UpdatedAt
	if j.CompletedAt != nil {
		finished = *j.CompletedAt
	}
	return SyncSummary{
		JobID:       j.ID,
		Status:      j.Status,
		SessionCode: j.SessionCode,
		BillTypes:   j.BillTypes,
		MaxBills:    j.MaxBills,
		Fetched:     j.Processed,
		Created:     j.Created,
		Updated:     j.Updated,
		Errored:     j.Errored,
		Duration:    finished.Sub(j.StartedAt).Round(time.Millisecond).String(),
		FinishedAt:  finished,
	}
}

// SyncSummary is returned to trigger callers once a run reaches a terminal
// state. It is not persisted beyond the job's own counters.
type SyncSummary struct {
	JobID       string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	SessionCode string    `json:"session_code"`
	BillTypes   []string  `json:"bill_types"`
	MaxBills    int       `json:"max_bills"`
	Fetched     int       `json:"fetched"`
	Created     int       `json:"created"`
	Updated     int       `json:"updated"`
	Errored     int       `json:"errored"`
	Duration    string    `json:"duration"`
	FinishedAt  time.Time `json:"finished_at"`
}
