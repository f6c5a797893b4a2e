package payment

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper periodically evicts records whose last event is older than the
// retention window. Eviction is lossy by design: an evicted session falls
// back to the live-lookup path on its next query.
type Sweeper struct {
	store     *Store
	retention time.Duration
	interval  time.Duration
	log       zerolog.Logger
	onEvict   func(count int)
}

func NewSweeper(store *Store, retention, interval time.Duration, log zerolog.Logger) *Sweeper {
	if retention <= 0 {
		retention = time.Hour
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{store: store, retention: retention, interval: interval, log: log}
}

// SetEvictHook registers a callback reporting how many records each sweep
// removed. Set during wiring.
func (sw *Sweeper) SetEvictHook(hook func(count int)) {
	sw.onEvict = hook
}

// Start launches the sweep loop; it stops when ctx is cancelled.
func (sw *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sw.Sweep()
			}
		}
	}()
}

// Sweep runs one eviction pass and returns the evicted session ids.
func (sw *Sweeper) Sweep() []string {
	cutoff := time.Now().UTC().Add(-sw.retention)
	evicted := sw.store.EvictOlderThan(cutoff)
	if len(evicted) > 0 {
		sw.log.Info().
			Int("evicted", len(evicted)).
			Dur("retention", sw.retention).
			Msg("evicted stale session records")
	}
	if sw.onEvict != nil {
		sw.onEvict(len(evicted))
	}
	return evicted
}
