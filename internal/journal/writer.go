package journal

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mvukit/internal/report"
)

const (
	defaultFlushInterval = 500 * time.Millisecond
	maxBatch             = 64
)

// Writer is a report.Reporter that stores events asynchronously. Report
// never blocks: when the buffer is full the event is counted and dropped.
type Writer struct {
	store    *Store
	events   chan report.Event
	interval time.Duration
	minLevel slog.Level
	logger   *slog.Logger
	dropped  atomic.Uint64

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

var _ report.Reporter = (*Writer)(nil)

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithFlushInterval sets how often buffered events are written.
func WithFlushInterval(d time.Duration) WriterOption {
	return func(w *Writer) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithMinSeverity skips events below level. The default skips per-update
// debug events.
func WithMinSeverity(level slog.Level) WriterOption {
	return func(w *Writer) {
		w.minLevel = level
	}
}

// WithLogger sets where write failures are logged.
func WithLogger(l *slog.Logger) WriterOption {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWriter creates a writer buffering up to bufferSize events.
func NewWriter(store *Store, bufferSize int, opts ...WriterOption) (*Writer, error) {
	if store == nil {
		return nil, errors.New("journal store is required")
	}
	if bufferSize <= 0 {
		return nil, errors.New("buffer size must be positive")
	}
	w := &Writer{
		store:    store,
		events:   make(chan report.Event, bufferSize),
		interval: defaultFlushInterval,
		minLevel: slog.LevelInfo,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Report queues ev for storage.
func (w *Writer) Report(ev report.Event) {
	if ev.Kind.Severity() < w.minLevel {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	select {
	case w.events <- ev:
	default:
		w.dropped.Add(1)
	}
}

// Dropped returns how many events were lost to a full buffer.
func (w *Writer) Dropped() uint64 {
	return w.dropped.Load()
}

// Start begins the background write loop.
func (w *Writer) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("writer already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.wg.Add(1)
	w.mu.Unlock()

	go w.loop(ctx)
	return nil
}

// Stop ends the loop and writes everything still buffered.
func (w *Writer) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.running = false
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()

	ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	w.flush(ctx, w.drain(nil))
}

func (w *Writer) loop(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	batch := make([]report.Event, 0, maxBatch)
	for {
		select {
		case <-ctx.Done():
			w.flush(context.Background(), batch)
			return
		case ev := <-w.events:
			batch = append(batch, ev)
			if len(batch) >= maxBatch {
				w.flush(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			w.flush(ctx, w.drain(batch))
			batch = batch[:0]
		}
	}
}

func (w *Writer) drain(batch []report.Event) []report.Event {
	for {
		select {
		case ev := <-w.events:
			batch = append(batch, ev)
		default:
			return batch
		}
	}
}

func (w *Writer) flush(ctx context.Context, batch []report.Event) {
	if len(batch) == 0 {
		return
	}
	if err := w.store.Insert(ctx, batch); err != nil {
		w.logger.Warn("journal write failed", "events", len(batch), "error", err)
	}
}
