package queue

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/rs/zerolog"

	"github.com/sentrydesk/access-system/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64
)

// lastLoginStamp is one detached profile write.
type lastLoginStamp struct {
	ProfileID string
	At        time.Time
}

// Dispatcher applies fire-and-forget lastLogin stamps on a fixed set of
// workers, sharded by profile id so writes to the same profile stay ordered.
// No caller ever waits on a stamp; failures are logged and dropped.
type Dispatcher struct {
	workers []chan lastLoginStamp
	store   ports.ProfileStore
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, store ports.ProfileStore, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan lastLoginStamp, numWorkers),
		store:   store,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan lastLoginStamp, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// EnqueueLastLogin hands a stamp to the worker owning the profile's shard.
// Non-blocking up to channelBuffer capacity.
func (d *Dispatcher) EnqueueLastLogin(profileID string, at time.Time) {
	d.workers[d.shardIndex(profileID)] <- lastLoginStamp{ProfileID: profileID, At: at}
}

// shardIndex maps a profile id deterministically to a worker index.
func (d *Dispatcher) shardIndex(profileID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(profileID))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan lastLoginStamp) {
	for {
		select {
		case <-ctx.Done():
			return
		case stamp, ok := <-ch:
			if !ok {
				return
			}
			if err := d.store.StampLastLogin(ctx, stamp.ProfileID, stamp.At); err != nil {
				d.log.Error().Err(err).
					Str("profile_id", stamp.ProfileID).
					Int("worker_id", id).
					Msg("lastLogin stamp failed")
			}
		}
	}
}
