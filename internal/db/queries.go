// Package db provides SurrealDB query functions for bill sync operations.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raphaelgruber/legtrack/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// defaultSettings are seeded on schema init so a fresh database is runnable.
var defaultSettings = map[string]string{
	models.SettingSessionCode:  "891",
	models.SettingSessionName:  "89th Legislature, Regular Session",
	models.SettingMaxBills:     "500",
	models.SettingBatchDelayMs: "300",
	models.SettingSyncEnabled:  "true",
	models.SettingBillTypes:    "HB,SB",
}

// =============================================================================
// SETTINGS
// =============================================================================

// GetSetting returns the value for a settings key.
// Returns ErrNotFound if the key does not exist.
func (c *Client) GetSetting(ctx context.Context, key string) (string, error) {
	results, err := surrealdb.Query[[]models.Setting](ctx, c.db, `
		SELECT *, record::id(id) AS id FROM type::record("setting", $key)
	`, map[string]any{"key": key})
	if err != nil {
		return "", fmt.Errorf("get setting: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return "", fmt.Errorf("setting %q: %w", key, ErrNotFound)
	}
	return (*results)[0].Result[0].Value, nil
}

// SetSetting creates or replaces a settings key.
func (c *Client) SetSetting(ctx context.Context, key, value string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPSERT type::record("setting", $key) SET
			value = $value,
			updated_at = time::now()
	`, map[string]any{"key": key, "value": value})
	if err != nil {
		return fmt.Errorf("set setting: %w", wrapQueryError(err))
	}
	return nil
}

// SeedDefaultSettings creates any missing default settings rows. Existing
// values are never overwritten.
func (c *Client) SeedDefaultSettings(ctx context.Context) error {
	for key, value := range defaultSettings {
		_, err := c.GetSetting(ctx, key)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := c.SetSetting(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SESSIONS
// =============================================================================

// EnsureSession creates the session row for a code if it does not exist.
// Idempotent: the session record id is the session code.
func (c *Client) EnsureSession(ctx context.Context, code, name string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPSERT type::record("session", $code) SET
			code = $code,
			name = $name
	`, map[string]any{"code": code, "name": name})
	if err != nil {
		return fmt.Errorf("ensure session: %w", wrapQueryError(err))
	}
	return nil
}

// =============================================================================
// BILLS
// =============================================================================

// FindBill looks up a bill by its natural key ("HB 123").
// Returns nil if not found.
func (c *Client) FindBill(ctx context.Context, billNumber string) (*models.Bill, error) {
	results, err := surrealdb.Query[[]models.Bill](ctx, c.db, `
		SELECT *, record::id(id) AS id FROM bill
		WHERE bill_number = $bill_number
		LIMIT 1
	`, map[string]any{"bill_number": billNumber})
	if err != nil {
		return nil, fmt.Errorf("find bill: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// CreateBill inserts a new bill record.
func (c *Client) CreateBill(ctx context.Context, bill *models.Bill) error {
	content := map[string]any{
		"bill_number":  bill.BillNumber,
		"bill_type":    bill.BillType,
		"number":       bill.Number,
		"session_code": bill.SessionCode,
		"description":  bill.Description,
		"authors":      authorsOrEmpty(bill.Authors),
		"status":       bill.Status,
		"last_action":  bill.LastAction,
		"filename":     bill.Filename,
	}
	if bill.LastActionDate != nil {
		content["last_action_date"] = *bill.LastActionDate
	}

	_, err := surrealdb.Query[any](ctx, c.db, `
		CREATE bill CONTENT $content
	`, map[string]any{"content": content})
	if err != nil {
		return fmt.Errorf("create bill: %w", wrapQueryError(err))
	}
	return nil
}

// UpdateBill updates the mutable fields of an existing bill record.
func (c *Client) UpdateBill(ctx context.Context, bill *models.Bill) error {
	vars := map[string]any{
		"id":          bill.ID,
		"description": bill.Description,
		"authors":     authorsOrEmpty(bill.Authors),
		"status":      bill.Status,
		"last_action": bill.LastAction,
	}
	dateClause := "last_action_date = NONE,"
	if bill.LastActionDate != nil {
		dateClause = "last_action_date = $last_action_date,"
		vars["last_action_date"] = *bill.LastActionDate
	}

	_, err := surrealdb.Query[any](ctx, c.db, fmt.Sprintf(`
		UPDATE type::record("bill", $id) SET
			description = $description,
			authors = $authors,
			status = $status,
			last_action = $last_action,
			%s
			updated_at = time::now()
	`, dateClause), vars)
	if err != nil {
		return fmt.Errorf("update bill: %w", wrapQueryError(err))
	}
	return nil
}

// CountBills returns the number of persisted bills for a session.
func (c *Client) CountBills(ctx context.Context, sessionCode string) (int, error) {
	type countRow struct {
		Count int `json:"count"`
	}
	results, err := surrealdb.Query[[]countRow](ctx, c.db, `
		SELECT count() AS count FROM bill
		WHERE session_code = $session_code
		GROUP ALL
	`, map[string]any{"session_code": sessionCode})
	if err != nil {
		return 0, fmt.Errorf("count bills: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Count, nil
}

// =============================================================================
// SYNC JOBS
// =============================================================================

// CreateSyncJob persists a new sync job under its explicit id.
func (c *Client) CreateSyncJob(ctx context.Context, job *models.SyncJob) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		CREATE type::record("sync_job", $id) CONTENT $content
	`, map[string]any{"id": job.ID, "content": syncJobContent(job)})
	if err != nil {
		return fmt.Errorf("create sync job: %w", wrapQueryError(err))
	}
	return nil
}

// UpdateSyncJob replaces the persisted state of a job. This is the batch
// step's single checkpoint write: cursors, counters and status land together.
func (c *Client) UpdateSyncJob(ctx context.Context, job *models.SyncJob) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("sync_job", $id) CONTENT $content
	`, map[string]any{"id": job.ID, "content": syncJobContent(job)})
	if err != nil {
		return fmt.Errorf("update sync job: %w", wrapQueryError(err))
	}
	return nil
}

// GetSyncJob retrieves a sync job by id. Returns nil if not found.
func (c *Client) GetSyncJob(ctx context.Context, id string) (*models.SyncJob, error) {
	results, err := surrealdb.Query[[]models.SyncJob](ctx, c.db, `
		SELECT *, record::id(id) AS id FROM type::record("sync_job", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get sync job: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// ActiveSyncJob returns the single RUNNING or PAUSED job, or nil.
func (c *Client) ActiveSyncJob(ctx context.Context) (*models.SyncJob, error) {
	results, err := surrealdb.Query[[]models.SyncJob](ctx, c.db, `
		SELECT *, record::id(id) AS id FROM sync_job
		WHERE status IN ["RUNNING", "PAUSED"]
		LIMIT 1
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("active sync job: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// ListSyncJobs returns jobs ordered most recent first.
func (c *Client) ListSyncJobs(ctx context.Context, limit int) ([]models.SyncJob, error) {
	if limit <= 0 {
		limit = 20
	}
	results, err := surrealdb.Query[[]models.SyncJob](ctx, c.db, `
		SELECT *, record::id(id) AS id FROM sync_job
		ORDER BY started_at DESC
		LIMIT $limit
	`, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list sync jobs: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.SyncJob{}, nil
	}
	return (*results)[0].Result, nil
}

func syncJobContent(job *models.SyncJob) map[string]any {
	content := map[string]any{
		"status":          string(job.Status),
		"session_code":    job.SessionCode,
		"session_name":    job.SessionName,
		"bill_types":      job.BillTypes,
		"completed_types": completedOrEmpty(job.CompletedTypes),
		"cursors":         cursorsOrEmpty(job.Cursors),
		"processed":       job.Processed,
		"created":         job.Created,
		"updated":         job.Updated,
		"errored":         job.Errored,
		"max_bills":       job.MaxBills,
		"batch_delay_ms":  job.BatchDelayMs,
		"started_at":      job.StartedAt,
		"updated_at":      time.Now(),
	}
	if job.Error != "" {
		content["error"] = job.Error
	}
	if job.CompletedAt != nil {
		content["completed_at"] = *job.CompletedAt
	}
	return content
}

func authorsOrEmpty(authors []string) []string {
	if authors == nil {
		return []string{}
	}
	return authors
}

func completedOrEmpty(m map[string]bool) map[string]bool {
	if m == nil {
		return map[string]bool{}
	}
	return m
}

func cursorsOrEmpty(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}
