// Package reminder periodically scans for committed pickups approaching
// their scheduled time and emits reminder events at the 24h and 2h marks.
// The sweep only reads state and calls the dispatcher; it never mutates.
package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"greenloop/internal/dispatch"
	"greenloop/pkg/types"

	"github.com/sirupsen/logrus"
)

// Reminder marks, furthest first. The tolerance window equals the sweep
// interval so a mark is caught by exactly one pass.
var marks = []time.Duration{24 * time.Hour, 2 * time.Hour}

type Store interface {
	UpcomingPickups(ctx context.Context, from, to time.Time) ([]*types.Pickup, error)
}

type Sweeper struct {
	logger     *logrus.Logger
	store      Store
	dispatcher dispatch.Dispatcher
	interval   time.Duration
	now        func() time.Time

	mu   sync.Mutex
	seen map[string]struct{} // pickupID+mark, process-lifetime dedupe
}

func New(logger *logrus.Logger, store Store, dispatcher dispatch.Dispatcher, interval time.Duration) *Sweeper {
	return &Sweeper{
		logger:     logger,
		store:      store,
		dispatcher: dispatcher,
		interval:   interval,
		now:        time.Now,
		seen:       make(map[string]struct{}),
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one pass. Exported so a pass can be triggered directly in
// tests.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.now()

	for _, mark := range marks {
		from := now.Add(mark - s.interval)
		to := now.Add(mark)

		pickups, err := s.store.UpcomingPickups(ctx, from, to)
		if err != nil {
			s.logger.WithError(err).Error("reminder sweep query failed")
			continue
		}

		for _, p := range pickups {
			key := fmt.Sprintf("%s/%s", p.ID, mark)

			s.mu.Lock()
			_, dup := s.seen[key]
			if !dup {
				s.seen[key] = struct{}{}
			}
			s.mu.Unlock()

			if dup {
				continue
			}

			s.dispatcher.Emit(ctx, types.EventPickupReminder, map[string]any{
				"pickup_id":    p.ID,
				"post_id":      p.PostID,
				"giver_id":     p.GiverID,
				"collector_id": p.CollectorID,
				"mark_hours":   mark.Hours(),
			})
		}
	}
}
