package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/raphaelgruber/legtrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
	// closeAfter simulates the consumer going away after n events (0 means
	// never).
	closeAfter int
	// onEvent, when set, runs for every accepted event.
	onEvent func(Event)
}

func (s *captureSink) Send(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closeAfter > 0 && len(s.events) >= s.closeAfter {
		return errors.New("consumer gone")
	}
	s.events = append(s.events, ev)
	if s.onEvent != nil {
		s.onEvent(ev)
	}
	return nil
}

func (s *captureSink) types() []EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EventType, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Type
	}
	return out
}

func TestRunnerRun_EventSequence(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	fetcher := newFakeFetcher()
	fetcher.numbers["HB"] = []int{1, 2}
	fetcher.numbers["SB"] = []int{9}
	c := newTestController(store, fetcher)
	runner := NewRunner(c)

	job, err := c.Trigger(ctx, TriggerOptions{})
	require.NoError(t, err)

	sink := &captureSink{}
	require.NoError(t, runner.Run(ctx, job.ID, sink))

	assert.Equal(t, []EventType{
		EventTypeStarted,   // HB
		EventBillProcessed, // HB 1
		EventBillProcessed, // HB 2
		EventTypeCompleted, // HB
		EventTypeStarted,   // SB
		EventBillProcessed, // SB 9
		EventTypeCompleted, // SB
		EventSyncCompleted,
	}, sink.types())

	// Counters on the final event are the job's cumulative totals.
	last := sink.events[len(sink.events)-1]
	assert.Equal(t, job.ID, last.JobID)
	assert.Equal(t, models.JobStatusCompleted, last.Status)
	assert.Equal(t, 3, last.Processed)
	assert.Equal(t, 3, last.Created)

	// Per-bill events carry the natural key and outcome.
	first := sink.events[1]
	assert.Equal(t, "HB 1", first.Bill)
	assert.Equal(t, "HB", first.BillType)
	assert.Equal(t, "created", first.Outcome)
}

func TestRunnerRun_CancellationLeavesJobRunning(t *testing.T) {
	store := newFakeStore()
	fetcher := newFakeFetcher()
	fetcher.numbers["HB"] = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	c := newTestController(store, fetcher)
	runner := NewRunner(c)

	job, err := c.Trigger(context.Background(), TriggerOptions{BillTypes: []string{"HB"}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	sink := &captureSink{onEvent: func(ev Event) {
		// Disconnect after the first full batch has been reported.
		if ev.Type == EventBillProcessed && ev.Processed >= 10 {
			cancel()
		}
	}}

	err = runner.Run(ctx, job.ID, sink)
	assert.NoError(t, err, "client cancellation is not an error")

	stored, err := store.GetSyncJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusRunning, stored.Status)
	assert.Equal(t, 10, stored.Processed, "the checkpointed batch survives the disconnect")
}

func TestRunnerRun_SinkFailureEndsStreamQuietly(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	fetcher := newFakeFetcher()
	fetcher.numbers["HB"] = []int{1, 2, 3}
	c := newTestController(store, fetcher)
	runner := NewRunner(c)

	job, err := c.Trigger(ctx, TriggerOptions{BillTypes: []string{"HB"}})
	require.NoError(t, err)

	sink := &captureSink{closeAfter: 2}
	assert.NoError(t, runner.Run(ctx, job.ID, sink))
}

func TestRunnerRun_PausedJobEmitsErrorEvent(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	fetcher := newFakeFetcher()
	fetcher.numbers["HB"] = []int{1}
	c := newTestController(store, fetcher)
	runner := NewRunner(c)

	job, err := c.Trigger(ctx, TriggerOptions{BillTypes: []string{"HB"}})
	require.NoError(t, err)
	_, err = c.Pause(ctx, job.ID)
	require.NoError(t, err)

	sink := &captureSink{}
	err = runner.Run(ctx, job.ID, sink)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	types := sink.types()
	require.NotEmpty(t, types)
	assert.Equal(t, EventSyncError, types[len(types)-1])
}
