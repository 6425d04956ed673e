package history

import (
	"context"
	"log/slog"
	"sync"

	"github.com/papercomputeco/reel/pkg/logger"
)

var (
	defaultNumWorkers   uint = 1
	defaultJobQueueSize uint = 256
)

// RecorderConfig is the configuration options for the recorder.
type RecorderConfig struct {
	// Store is the transcript backend writes land in.
	Store Store

	// NumWorkers is the number of background workers (defaults to 1, which
	// preserves record order).
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger defaults to a no-op logger when nil.
	Logger *slog.Logger
}

// Recorder writes transcript turns asynchronously via a small worker pool,
// keeping persistence off the interactive hot path.
type Recorder struct {
	store  Store
	queue  chan Turn
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewRecorder creates a Recorder and starts its worker goroutines.
func NewRecorder(c RecorderConfig) *Recorder {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}
	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	r := &Recorder{
		store:  c.Store,
		queue:  make(chan Turn, c.QueueSize),
		logger: log,
	}

	r.wg.Add(int(c.NumWorkers))
	for i := uint(0); i < c.NumWorkers; i++ {
		go r.worker(i)
	}

	return r
}

// Record submits a turn for persistence.
// Returns true if enqueued, false if the queue is full, resulting in the turn
// being dropped. Chat must keep flowing even when the disk cannot keep up.
func (r *Recorder) Record(turn Turn) bool {
	select {
	case r.queue <- turn:
		return true
	default:
		r.logger.Error("turn not recorded, queue full, turn dropped",
			"session_id", turn.SessionID,
			"role", turn.Role,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight writes to drain.
// Call this after the interactive loop has ended.
func (r *Recorder) Close() {
	close(r.queue)
	r.wg.Wait()
}

// worker continuously pulls turns off the queue and persists them.
func (r *Recorder) worker(id uint) {
	defer r.wg.Done()
	r.logger.Debug("history worker started", "worker_id", id)

	for turn := range r.queue {
		if err := r.store.Append(context.Background(), turn); err != nil {
			r.logger.Error("async transcript write failed",
				"session_id", turn.SessionID,
				"error", err,
			)
		}
	}

	r.logger.Debug("history worker stopped", "worker_id", id)
}
