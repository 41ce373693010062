package history

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-qsys/internal/qsys"
)

// Recorder defaults.
const (
	defaultQueueSize     = 1024
	defaultWorkers       = 2
	defaultPruneInterval = time.Hour
	writeTimeout         = 5 * time.Second
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// MetricWriter forwards entries to a time-series store. Writes must not block.
type MetricWriter interface {
	WriteControlState(coreID, component, control string, value, position float64, stringValue string, ts time.Time)
}

// ComponentSource is a Core whose components can be observed.
type ComponentSource interface {
	ID() string
	Components() []*qsys.Component
	ComponentAdded() *qsys.Listeners[*qsys.Component]
}

// RecorderOptions configures a Recorder.
type RecorderOptions struct {
	// Repository receives every entry. Required.
	Repository Repository

	// Metrics receives every entry as well. Optional.
	Metrics MetricWriter

	// QueueSize bounds pending entries. Default: 1024.
	QueueSize int

	// Workers is the number of writer goroutines. Default: 2.
	Workers int

	// Retention is how long entries are kept. Zero disables pruning.
	Retention time.Duration

	// PruneInterval is how often old entries are removed. Default: 1h.
	PruneInterval time.Duration

	Logger Logger
}

// RecorderStats holds recorder counters.
type RecorderStats struct {
	Recorded uint64 `json:"recorded"`
	Dropped  uint64 `json:"dropped"`
	Failed   uint64 `json:"failed"`
	Pruned   uint64 `json:"pruned"`
	Queued   int    `json:"queued"`
}

// Recorder captures feedback from attached Cores.
//
// Thread Safety: All methods are safe for concurrent use.
type Recorder struct {
	repo    Repository
	metrics MetricWriter
	queue   chan Entry
	workers int

	retention     time.Duration
	pruneInterval time.Duration

	recorded atomic.Uint64
	dropped  atomic.Uint64
	failed   atomic.Uint64
	pruned   atomic.Uint64

	// mu guards stopped against concurrent enqueues closing the queue.
	mu      sync.RWMutex
	stopped bool

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	wg        sync.WaitGroup

	logger Logger
}

// NewRecorder creates a recorder. Call Start before attaching Cores.
func NewRecorder(opts RecorderOptions) *Recorder {
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	pruneInterval := opts.PruneInterval
	if pruneInterval <= 0 {
		pruneInterval = defaultPruneInterval
	}

	return &Recorder{
		repo:          opts.Repository,
		metrics:       opts.Metrics,
		queue:         make(chan Entry, queueSize),
		workers:       workers,
		retention:     opts.Retention,
		pruneInterval: pruneInterval,
		done:          make(chan struct{}),
		logger:        opts.Logger,
	}
}

// Start launches the writers and, with a retention set, the prune loop.
func (r *Recorder) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		for i := 0; i < r.workers; i++ {
			r.wg.Add(1)
			go r.writeLoop()
		}
		if r.retention > 0 {
			r.wg.Add(1)
			go r.pruneLoop(ctx)
		}
		r.logInfo("history recorder started",
			"workers", r.workers,
			"queue_size", cap(r.queue),
			"retention", r.retention.String())
	})
}

// Stop stops accepting entries and waits for queued ones to be written.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.stopped = true
		close(r.queue)
		r.mu.Unlock()

		close(r.done)
		r.wg.Wait()

		s := r.Stats()
		r.logInfo("history recorder stopped",
			"recorded", s.Recorded,
			"dropped", s.Dropped,
			"failed", s.Failed)
	})
}

// Attach records feedback from every current and future Component of core.
// The returned function detaches from components seen so far and stops
// following new ones.
func (r *Recorder) Attach(core ComponentSource) func() {
	coreID := core.ID()

	var mu sync.Mutex
	detachers := make(map[*qsys.Component]func())

	attach := func(comp *qsys.Component) {
		mu.Lock()
		defer mu.Unlock()
		if _, ok := detachers[comp]; ok {
			return
		}
		detachers[comp] = r.AttachComponent(coreID, comp)
	}

	id := core.ComponentAdded().Add(attach)
	for _, comp := range core.Components() {
		attach(comp)
	}

	return func() {
		core.ComponentAdded().Remove(id)
		mu.Lock()
		defer mu.Unlock()
		for comp, detach := range detachers {
			detach()
			delete(detachers, comp)
		}
	}
}

// AttachComponent records every feedback update of comp.
func (r *Recorder) AttachComponent(coreID string, comp *qsys.Component) func() {
	id := comp.FeedbackReceived().Add(func(e qsys.FeedbackEvent) {
		r.Enqueue(Entry{
			CoreID:      coreID,
			Component:   e.Component.Name(),
			Control:     e.State.Name,
			Value:       e.State.Value,
			Position:    e.State.Position,
			StringValue: e.State.StringValue,
			RecordedAt:  time.Now().UTC(),
		})
	})
	return func() { comp.FeedbackReceived().Remove(id) }
}

// Enqueue queues an entry without blocking. It reports false when the
// entry was dropped because the queue is full or the recorder stopped.
func (r *Recorder) Enqueue(e Entry) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.stopped {
		r.dropped.Add(1)
		return false
	}

	select {
	case r.queue <- e:
		return true
	default:
		if r.dropped.Add(1) == 1 {
			r.logWarn("history queue full, dropping entries", "queue_size", cap(r.queue))
		}
		return false
	}
}

// Stats returns the recorder's counters.
func (r *Recorder) Stats() RecorderStats {
	return RecorderStats{
		Recorded: r.recorded.Load(),
		Dropped:  r.dropped.Load(),
		Failed:   r.failed.Load(),
		Pruned:   r.pruned.Load(),
		Queued:   len(r.queue),
	}
}

// PruneNow deletes entries older than the retention period.
func (r *Recorder) PruneNow(ctx context.Context) (int64, error) {
	if r.retention <= 0 {
		return 0, nil
	}
	n, err := r.repo.Prune(ctx, time.Now().Add(-r.retention))
	if err != nil {
		return 0, err
	}
	r.pruned.Add(uint64(n)) //nolint:gosec // RowsAffected is never negative
	return n, nil
}

func (r *Recorder) writeLoop() {
	defer r.wg.Done()

	for e := range r.queue {
		r.write(e)
	}
}

func (r *Recorder) write(e Entry) {
	if r.metrics != nil {
		r.metrics.WriteControlState(e.CoreID, e.Component, e.Control, e.Value, e.Position, e.StringValue, e.RecordedAt)
	}

	if r.repo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.repo.Record(ctx, e); err != nil {
		r.failed.Add(1)
		r.logError("failed to record history", err)
		return
	}
	r.recorded.Add(1)
}

func (r *Recorder) pruneLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-ticker.C:
			n, err := r.PruneNow(ctx)
			if err != nil {
				r.logError("failed to prune history", err)
				continue
			}
			if n > 0 {
				r.logDebug("history pruned", "rows", n)
			}
		}
	}
}

func (r *Recorder) logDebug(msg string, keysAndValues ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, keysAndValues...)
	}
}

func (r *Recorder) logInfo(msg string, keysAndValues ...any) {
	if r.logger != nil {
		r.logger.Info(msg, keysAndValues...)
	}
}

func (r *Recorder) logWarn(msg string, keysAndValues ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, keysAndValues...)
	}
}

func (r *Recorder) logError(msg string, err error) {
	if r.logger != nil {
		r.logger.Error(msg, "error", err)
	}
}
