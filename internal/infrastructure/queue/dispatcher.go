package queue

import (
	"context"
	"hash/fnv"

	"github.com/rs/zerolog"

	"github.com/loginbox/user-portal/internal/api/metrics"
	"github.com/loginbox/user-portal/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes activity updates to a fixed set of workers using
// consistent hashing on the username, so updates for the same account are
// applied in the order they were enqueued. Handlers enqueue and move on; a
// failed persist never blocks or fails the HTTP response.
type Dispatcher struct {
	workers  []chan ports.ActivityUpdate
	recorder ports.ActivityRecorder
	log      zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, recorder ports.ActivityRecorder, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:  make([]chan ports.ActivityUpdate, numWorkers),
		recorder: recorder,
		log:      log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.ActivityUpdate, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue sends an update to the worker responsible for its username.
// The call is non-blocking up to channelBuffer capacity.
func (d *Dispatcher) Enqueue(update ports.ActivityUpdate) {
	d.workers[d.shardIndex(update.Username)] <- update
}

// shardIndex maps a username deterministically to a worker index.
func (d *Dispatcher) shardIndex(username string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(username))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.ActivityUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-ch:
			if !ok {
				return
			}
			if err := d.recorder.Record(ctx, update); err != nil {
				metrics.ActivityErrorsTotal.WithLabelValues(string(update.Kind)).Inc()
				d.log.Error().Err(err).
					Str("username", update.Username).
					Str("kind", string(update.Kind)).
					Int("worker_id", id).
					Msg("activity update failed")
			}
		}
	}
}
