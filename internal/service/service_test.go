package service

import (
	"context"
	"sync"

	"github.com/raphaelgruber/legtrack/internal/db"
	"github.com/raphaelgruber/legtrack/internal/models"
	"github.com/raphaelgruber/legtrack/internal/scraper"
)

// fakeStore is an in-memory Store. GetSyncJob returns copies so a batch only
// becomes visible once the controller checkpoints it with UpdateSyncJob,
// mirroring how the durable store behaves.
type fakeStore struct {
	mu       sync.Mutex
	settings map[string]string
	sessions map[string]string
	bills    map[string]*models.Bill
	jobs     map[string]*models.SyncJob
	jobOrder []string

	failUpdateJob bool
	billSeq       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		settings: map[string]string{
			// keep the politeness delay out of test runtime
			models.SettingBatchDelayMs: "1",
		},
		sessions: make(map[string]string),
		bills:    make(map[string]*models.Bill),
		jobs:     make(map[string]*models.SyncJob),
	}
}

func (s *fakeStore) GetSetting(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	val, ok := s.settings[key]
	if !ok {
		return "", db.ErrNotFound
	}
	return val, nil
}

func (s *fakeStore) EnsureSession(ctx context.Context, code, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[code] = name
	return nil
}

func (s *fakeStore) FindBill(ctx context.Context, billNumber string) (*models.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bill, ok := s.bills[billNumber]
	if !ok {
		return nil, nil
	}
	cp := *bill
	return &cp, nil
}

func (s *fakeStore) CreateBill(ctx context.Context, bill *models.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.billSeq++
	bill.ID = bill.BillNumber
	cp := *bill
	s.bills[bill.BillNumber] = &cp
	return nil
}

func (s *fakeStore) UpdateBill(ctx context.Context, bill *models.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bills[bill.BillNumber]; !ok {
		return db.ErrNotFound
	}
	cp := *bill
	s.bills[bill.BillNumber] = &cp
	return nil
}

func (s *fakeStore) CreateSyncJob(ctx context.Context, job *models.SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = copyJob(job)
	s.jobOrder = append(s.jobOrder, job.ID)
	return nil
}

func (s *fakeStore) UpdateSyncJob(ctx context.Context, job *models.SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdateJob {
		s.failUpdateJob = false
		return context.DeadlineExceeded
	}
	s.jobs[job.ID] = copyJob(job)
	return nil
}

func (s *fakeStore) GetSyncJob(ctx context.Context, id string) (*models.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	return copyJob(job), nil
}

func (s *fakeStore) ActiveSyncJob(ctx context.Context) (*models.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.jobOrder {
		if job := s.jobs[id]; job.Status.Active() {
			return copyJob(job), nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListSyncJobs(ctx context.Context, limit int) ([]models.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SyncJob
	for i := len(s.jobOrder) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *copyJob(s.jobs[s.jobOrder[i]]))
	}
	return out, nil
}

func copyJob(job *models.SyncJob) *models.SyncJob {
	cp := *job
	cp.BillTypes = append([]string(nil), job.BillTypes...)
	cp.CompletedTypes = make(map[string]bool, len(job.CompletedTypes))
	for k, v := range job.CompletedTypes {
		cp.CompletedTypes[k] = v
	}
	cp.Cursors = make(map[string]int, len(job.Cursors))
	for k, v := range job.Cursors {
		cp.Cursors[k] = v
	}
	return &cp
}

// fakeFetcher serves scripted listings and detail pages and records the
// order bills were visited in.
type fakeFetcher struct {
	mu      sync.Mutex
	numbers map[string][]int
	broken  map[string]bool // natural key -> detail fetch fails
	visited []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		numbers: make(map[string][]int),
		broken:  make(map[string]bool),
	}
}

func (f *fakeFetcher) BillNumbers(ctx context.Context, sessionCode, billType string) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.numbers[billType]...)
}

func (f *fakeFetcher) BillDetail(ctx context.Context, sessionCode, billType string, number int) (*scraper.ParsedBill, bool) {
	key := models.NaturalKey(billType, number)
	f.mu.Lock()
	f.visited = append(f.visited, key)
	failed := f.broken[key]
	f.mu.Unlock()

	if failed {
		return nil, false
	}
	return &scraper.ParsedBill{
		BillType:    billType,
		Number:      number,
		Description: "Relating to " + key,
		Authors:     []string{"Smith"},
		Status:      scraper.StatusFiled,
	}, true
}

func (f *fakeFetcher) visitOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.visited...)
}
