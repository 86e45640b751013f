package reminder

import (
	"context"
	"sync"
	"testing"
	"time"

	"greenloop/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)

type fakeStore struct {
	pickups map[string]time.Time // pickupID -> scheduled time
}

func (f *fakeStore) UpcomingPickups(_ context.Context, from, to time.Time) ([]*types.Pickup, error) {
	var out []*types.Pickup
	for id, scheduled := range f.pickups {
		if scheduled.Before(from) || scheduled.After(to) {
			continue
		}
		out = append(out, &types.Pickup{
			ID:          id,
			PostID:      "post-1",
			GiverID:     "giver-1",
			CollectorID: "col-1",
			Status:      types.PickupStatusConfirmed,
		})
	}
	return out, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	marks  []float64
	events []string
}

func (d *recordingDispatcher) Emit(_ context.Context, eventType string, payload any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.events = append(d.events, eventType)
	if fields, ok := payload.(map[string]any); ok {
		if hours, ok := fields["mark_hours"].(float64); ok {
			d.marks = append(d.marks, hours)
		}
	}
}

func newSweeper(store *fakeStore, dispatcher *recordingDispatcher) *Sweeper {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	s := New(logger, store, dispatcher, time.Minute)
	s.now = func() time.Time { return testNow }
	return s
}

func TestSweep_MarksApproachingPickups(t *testing.T) {
	store := &fakeStore{pickups: map[string]time.Time{
		"soon":     testNow.Add(2*time.Hour - 30*time.Second),
		"tomorrow": testNow.Add(24*time.Hour - 30*time.Second),
		"far":      testNow.Add(48 * time.Hour),
	}}
	dispatcher := &recordingDispatcher{}

	newSweeper(store, dispatcher).Sweep(context.Background())

	require.Len(t, dispatcher.events, 2)
	for _, eventType := range dispatcher.events {
		assert.Equal(t, types.EventPickupReminder, eventType)
	}
	assert.ElementsMatch(t, []float64{24, 2}, dispatcher.marks)
}

func TestSweep_DoesNotRepeatMarks(t *testing.T) {
	store := &fakeStore{pickups: map[string]time.Time{
		"soon": testNow.Add(2*time.Hour - 30*time.Second),
	}}
	dispatcher := &recordingDispatcher{}

	s := newSweeper(store, dispatcher)
	s.Sweep(context.Background())
	s.Sweep(context.Background())

	assert.Len(t, dispatcher.events, 1, "a mark fires once per pickup")
}

func TestSweep_OutsideWindowIgnored(t *testing.T) {
	store := &fakeStore{pickups: map[string]time.Time{
		"already-past": testNow.Add(-time.Hour),
		"mid-window":   testNow.Add(10 * time.Hour),
	}}
	dispatcher := &recordingDispatcher{}

	newSweeper(store, dispatcher).Sweep(context.Background())

	assert.Empty(t, dispatcher.events)
}
