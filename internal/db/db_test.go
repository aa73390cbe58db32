// Package db provides integration tests for SurrealDB operations.
package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/raphaelgruber/legtrack/internal/models"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testDB *Client
var testContainer testcontainers.Container

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testDB, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testDB.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testDB.Close(ctx)
	_ = testContainer.Terminate(ctx)

	os.Exit(code)
}

// =============================================================================
// SETTINGS TESTS
// =============================================================================

func TestSettings(t *testing.T) {
	ctx := context.Background()

	// Defaults were seeded by InitSchema.
	code, err := testDB.GetSetting(ctx, models.SettingSessionCode)
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if code != "891" {
		t.Errorf("Expected session code '891', got %q", code)
	}

	// Missing key reports ErrNotFound.
	_, err = testDB.GetSetting(ctx, "no_such_key")
	if err == nil || err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	// Set then get round-trips.
	if err := testDB.SetSetting(ctx, "test_key", "test_value"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	val, err := testDB.GetSetting(ctx, "test_key")
	if err != nil {
		t.Fatalf("GetSetting after set failed: %v", err)
	}
	if val != "test_value" {
		t.Errorf("Expected 'test_value', got %q", val)
	}

	// SetSetting replaces.
	if err := testDB.SetSetting(ctx, "test_key", "replaced"); err != nil {
		t.Fatalf("SetSetting replace failed: %v", err)
	}
	val, _ = testDB.GetSetting(ctx, "test_key")
	if val != "replaced" {
		t.Errorf("Expected 'replaced', got %q", val)
	}
}

func TestSeedDefaultSettings_DoesNotOverwrite(t *testing.T) {
	ctx := context.Background()

	if err := testDB.SetSetting(ctx, models.SettingMaxBills, "42"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	if err := testDB.SeedDefaultSettings(ctx); err != nil {
		t.Fatalf("SeedDefaultSettings failed: %v", err)
	}

	val, err := testDB.GetSetting(ctx, models.SettingMaxBills)
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if val != "42" {
		t.Errorf("Seeding overwrote an existing value: got %q", val)
	}

	// Restore the default for other tests.
	_ = testDB.SetSetting(ctx, models.SettingMaxBills, "500")
}

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestEnsureSession_Idempotent(t *testing.T) {
	ctx := context.Background()

	if err := testDB.EnsureSession(ctx, "991", "99th Test Session"); err != nil {
		t.Fatalf("EnsureSession failed: %v", err)
	}
	// Second call with the same code must not error or duplicate.
	if err := testDB.EnsureSession(ctx, "991", "99th Test Session"); err != nil {
		t.Fatalf("EnsureSession second call failed: %v", err)
	}
}

// =============================================================================
// BILL TESTS
// =============================================================================

func TestBillLifecycle(t *testing.T) {
	ctx := context.Background()

	if err := testDB.EnsureSession(ctx, "891", "89th Legislature, Regular Session"); err != nil {
		t.Fatalf("EnsureSession failed: %v", err)
	}

	date := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	bill := &models.Bill{
		BillNumber:     "HB 77001",
		BillType:       "HB",
		Number:         77001,
		SessionCode:    "891",
		Description:    "Relating to integration tests.",
		Authors:        []string{"Smith", "Jones"},
		Status:         "Filed",
		LastAction:     "Filed",
		LastActionDate: &date,
		Filename:       models.BillFilename("HB", 77001),
	}
	if err := testDB.CreateBill(ctx, bill); err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}

	found, err := testDB.FindBill(ctx, "HB 77001")
	if err != nil {
		t.Fatalf("FindBill failed: %v", err)
	}
	if found == nil {
		t.Fatal("FindBill returned nil for existing bill")
	}
	if found.Description != bill.Description {
		t.Errorf("Expected description %q, got %q", bill.Description, found.Description)
	}
	if len(found.Authors) != 2 {
		t.Errorf("Expected 2 authors, got %d", len(found.Authors))
	}
	if found.LastActionDate == nil {
		t.Error("LastActionDate not persisted")
	}
	if found.Filename != "HB77001.htm" {
		t.Errorf("Expected filename 'HB77001.htm', got %q", found.Filename)
	}

	// Update mutable fields; clearing the date must persist as absent.
	found.Status = "Passed"
	found.LastAction = "Passed as amended"
	found.LastActionDate = nil
	if err := testDB.UpdateBill(ctx, found); err != nil {
		t.Fatalf("UpdateBill failed: %v", err)
	}

	updated, err := testDB.FindBill(ctx, "HB 77001")
	if err != nil {
		t.Fatalf("FindBill after update failed: %v", err)
	}
	if updated.Status != "Passed" {
		t.Errorf("Expected status 'Passed', got %q", updated.Status)
	}
	if updated.LastActionDate != nil {
		t.Errorf("Expected cleared date, got %v", updated.LastActionDate)
	}

	// Lookup miss is nil, not an error.
	missing, err := testDB.FindBill(ctx, "HB 99999")
	if err != nil {
		t.Fatalf("FindBill for missing bill errored: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for missing bill, got %+v", missing)
	}
}

func TestCountBills(t *testing.T) {
	ctx := context.Background()

	if err := testDB.EnsureSession(ctx, "892", "Count Test Session"); err != nil {
		t.Fatalf("EnsureSession failed: %v", err)
	}

	for i := 1; i <= 3; i++ {
		bill := &models.Bill{
			BillNumber:  fmt.Sprintf("SB %d", 88000+i),
			BillType:    "SB",
			Number:      88000 + i,
			SessionCode: "892",
			Description: "Count test",
			Status:      "Filed",
			Filename:    models.BillFilename("SB", 88000+i),
		}
		if err := testDB.CreateBill(ctx, bill); err != nil {
			t.Fatalf("CreateBill %d failed: %v", i, err)
		}
	}

	count, err := testDB.CountBills(ctx, "892")
	if err != nil {
		t.Fatalf("CountBills failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 bills, got %d", count)
	}
}

// =============================================================================
// SYNC JOB TESTS
// =============================================================================

func TestSyncJobLifecycle(t *testing.T) {
	ctx := context.Background()

	now := time.Now()
	job := &models.SyncJob{
		ID:             "testjob1",
		Status:         models.JobStatusPending,
		SessionCode:    "891",
		SessionName:    "89th Legislature, Regular Session",
		BillTypes:      []string{"HB", "SB"},
		CompletedTypes: map[string]bool{},
		Cursors:        map[string]int{},
		MaxBills:       100,
		BatchDelayMs:   300,
		StartedAt:      now,
		UpdatedAt:      now,
	}
	if err := testDB.CreateSyncJob(ctx, job); err != nil {
		t.Fatalf("CreateSyncJob failed: %v", err)
	}

	loaded, err := testDB.GetSyncJob(ctx, "testjob1")
	if err != nil {
		t.Fatalf("GetSyncJob failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("GetSyncJob returned nil")
	}
	if loaded.Status != models.JobStatusPending {
		t.Errorf("Expected PENDING, got %s", loaded.Status)
	}
	if len(loaded.BillTypes) != 2 {
		t.Errorf("Expected 2 bill types, got %v", loaded.BillTypes)
	}

	// The whole record is the checkpoint: cursors, counters and status land
	// in one write.
	loaded.Status = models.JobStatusRunning
	loaded.Cursors["HB"] = 10
	loaded.CompletedTypes["HB"] = false
	loaded.Processed = 10
	loaded.Created = 8
	loaded.Errored = 2
	if err := testDB.UpdateSyncJob(ctx, loaded); err != nil {
		t.Fatalf("UpdateSyncJob failed: %v", err)
	}

	reloaded, err := testDB.GetSyncJob(ctx, "testjob1")
	if err != nil {
		t.Fatalf("GetSyncJob after update failed: %v", err)
	}
	if reloaded.Cursors["HB"] != 10 {
		t.Errorf("Expected cursor 10, got %d", reloaded.Cursors["HB"])
	}
	if reloaded.Processed != 10 || reloaded.Created != 8 || reloaded.Errored != 2 {
		t.Errorf("Counters not persisted: %+v", reloaded)
	}

	// The running job is the active one.
	active, err := testDB.ActiveSyncJob(ctx)
	if err != nil {
		t.Fatalf("ActiveSyncJob failed: %v", err)
	}
	if active == nil || active.ID != "testjob1" {
		t.Errorf("Expected active job testjob1, got %+v", active)
	}

	// A terminal job is no longer active.
	completedAt := time.Now()
	reloaded.Status = models.JobStatusCompleted
	reloaded.CompletedAt = &completedAt
	if err := testDB.UpdateSyncJob(ctx, reloaded); err != nil {
		t.Fatalf("UpdateSyncJob to completed failed: %v", err)
	}
	active, err = testDB.ActiveSyncJob(ctx)
	if err != nil {
		t.Fatalf("ActiveSyncJob after completion failed: %v", err)
	}
	if active != nil {
		t.Errorf("Expected no active job, got %+v", active)
	}

	// Missing job is nil, not an error.
	missing, err := testDB.GetSyncJob(ctx, "no-such-job")
	if err != nil {
		t.Fatalf("GetSyncJob for missing id errored: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for missing job, got %+v", missing)
	}
}

func TestListSyncJobs(t *testing.T) {
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		job := &models.SyncJob{
			ID:             fmt.Sprintf("listjob%d", i),
			Status:         models.JobStatusCompleted,
			SessionCode:    "891",
			BillTypes:      []string{"HB"},
			CompletedTypes: map[string]bool{"HB": true},
			Cursors:        map[string]int{},
			StartedAt:      time.Now().Add(time.Duration(i) * time.Second),
			UpdatedAt:      time.Now(),
		}
		if err := testDB.CreateSyncJob(ctx, job); err != nil {
			t.Fatalf("CreateSyncJob %d failed: %v", i, err)
		}
	}

	jobs, err := testDB.ListSyncJobs(ctx, 2)
	if err != nil {
		t.Fatalf("ListSyncJobs failed: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(jobs))
	}
	// Most recently started first.
	if !jobs[0].StartedAt.After(jobs[1].StartedAt) {
		t.Errorf("Jobs not ordered by start time: %v then %v", jobs[0].StartedAt, jobs[1].StartedAt)
	}
}
