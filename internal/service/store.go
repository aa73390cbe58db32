package service

import (
	"context"

	"github.com/raphaelgruber/legtrack/internal/models"
	"github.com/raphaelgruber/legtrack/internal/scraper"
)

// Store is the persistence collaborator for the sync pipeline. *db.Client
// implements it; tests substitute in-memory fakes. Jobs are durable so a run
// survives process restarts — only the candidate-list cache is rebuilt.
type Store interface {
	// Settings (read-only key-value configuration source)
	GetSetting(ctx context.Context, key string) (string, error)

	// Sessions
	EnsureSession(ctx context.Context, code, name string) error

	// Bills, keyed by natural key ("HB 123")
	FindBill(ctx context.Context, billNumber string) (*models.Bill, error)
	CreateBill(ctx context.Context, bill *models.Bill) error
	UpdateBill(ctx context.Context, bill *models.Bill) error

	// Sync jobs
	CreateSyncJob(ctx context.Context, job *models.SyncJob) error
	UpdateSyncJob(ctx context.Context, job *models.SyncJob) error
	GetSyncJob(ctx context.Context, id string) (*models.SyncJob, error)
	ActiveSyncJob(ctx context.Context) (*models.SyncJob, error)
	ListSyncJobs(ctx context.Context, limit int) ([]models.SyncJob, error)
}

// BillFetcher retrieves catalog listings and bill detail pages.
// *scraper.Fetcher implements it.
type BillFetcher interface {
	// BillNumbers returns the distinct candidate identifiers for one bill
	// type, unordered. Fetch failures yield an empty set, never an error.
	BillNumbers(ctx context.Context, sessionCode, billType string) []int

	// BillDetail fetches and parses one bill. ok is false when the page
	// could not be retrieved.
	BillDetail(ctx context.Context, sessionCode, billType string, number int) (parsed *scraper.ParsedBill, ok bool)
}
