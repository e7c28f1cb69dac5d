package logrecord

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config controls buffering and batching for the Hub.
//   - BufferSize: capacity of the record channel (default 4096).
//   - MaxBatch: flush once this many records are pending (default 256).
//   - MaxWait: flush a partial batch after this long (default 500ms).
//   - SinkTimeout: per-sink deadline for each flush (default 5s).
//   - OnDrop: optional callback told how many records were dropped.
//   - Logger: optional logger for the hub's own warnings.
type Config struct {
	BufferSize  int
	MaxBatch    int
	MaxWait     time.Duration
	SinkTimeout time.Duration
	OnDrop      func(n int64)
	Logger      *zap.Logger
}

const (
	defaultBufferSize  = 4096
	defaultMaxBatch    = 256
	defaultMaxWait     = 500 * time.Millisecond
	defaultSinkTimeout = 5 * time.Second
	dropWarnInterval   = 5 * time.Second
)

func (c Config) withDefaults() Config {
	if c.BufferSize <= 0 {
		c.BufferSize = defaultBufferSize
	}
	if c.MaxBatch <= 0 {
		c.MaxBatch = defaultMaxBatch
	}
	if c.MaxWait <= 0 {
		c.MaxWait = defaultMaxWait
	}
	if c.SinkTimeout <= 0 {
		c.SinkTimeout = defaultSinkTimeout
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Hub fans records out to sinks in batches. It is safe for concurrent use
// and Emit never blocks.
type Hub struct {
	cfg     Config
	sinks   []Sink
	records chan Record
	stop    chan struct{}
	done    chan struct{}

	dropped    atomic.Int64
	unreported atomic.Int64
	lastWarn   atomic.Int64
	closed     atomic.Bool

	closeOnce sync.Once
	closeCtx  context.Context
}

// NewHub starts a Hub delivering to sinks. Nil sinks are ignored.
func NewHub(cfg Config, sinks ...Sink) *Hub {
	cfg = cfg.withDefaults()
	h := &Hub{
		cfg:     cfg,
		records: make(chan Record, cfg.BufferSize),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, s := range sinks {
		if s != nil {
			h.sinks = append(h.sinks, s)
		}
	}
	go h.run()
	return h
}

// Emit enqueues rec. Invalid records and records arriving after Close are
// discarded; when the buffer is full the record is dropped.
func (h *Hub) Emit(rec Record) {
	if h == nil || h.closed.Load() {
		return
	}
	if err := rec.Validate(); err != nil {
		h.cfg.Logger.Debug("discarding invalid log record", zap.Error(err))
		return
	}
	select {
	case h.records <- rec:
	default:
		h.noteDrop(time.Now())
	}
}

// Dropped reports how many records were dropped since the hub started.
func (h *Hub) Dropped() int64 {
	if h == nil {
		return 0
	}
	return h.dropped.Load()
}

func (h *Hub) noteDrop(now time.Time) {
	h.dropped.Add(1)
	h.unreported.Add(1)
	if h.cfg.OnDrop != nil {
		h.cfg.OnDrop(1)
	}
	last := h.lastWarn.Load()
	if now.UnixNano()-last < dropWarnInterval.Nanoseconds() {
		return
	}
	if !h.lastWarn.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	h.cfg.Logger.Warn("log records dropped due to backpressure",
		zap.Int64("dropped", h.unreported.Swap(0)),
		zap.Int64("dropped_total", h.dropped.Load()),
	)
}

// Close stops intake, flushes what is buffered, closes the sinks and waits
// for the background goroutine. Later calls only wait.
func (h *Hub) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.closeCtx = ctx
		close(h.stop)
	})
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("log record hub close wait: %w", ctx.Err())
	}
}

func (h *Hub) run() {
	defer close(h.done)
	batch := make([]Record, 0, h.cfg.MaxBatch)
	var (
		timer   *time.Timer
		timeout <-chan time.Time
	)
	disarm := func() {
		if timer != nil {
			timer.Stop()
		}
		timeout = nil
	}

	for {
		select {
		case rec := <-h.records:
			batch = append(batch, rec)
			if len(batch) >= h.cfg.MaxBatch {
				h.flush(batch)
				batch = batch[:0]
				disarm()
			} else if timeout == nil {
				if timer == nil {
					timer = time.NewTimer(h.cfg.MaxWait)
				} else {
					timer.Reset(h.cfg.MaxWait)
				}
				timeout = timer.C
			}
		case <-timeout:
			timeout = nil
			h.flush(batch)
			batch = batch[:0]
		case <-h.stop:
			disarm()
			h.drain(batch)
			return
		}
	}
}

func (h *Hub) drain(batch []Record) {
	for {
		select {
		case rec := <-h.records:
			batch = append(batch, rec)
			if len(batch) >= h.cfg.MaxBatch {
				h.flush(batch)
				batch = batch[:0]
			}
		default:
			h.flush(batch)
			h.closeSinks()
			return
		}
	}
}

func (h *Hub) flush(batch []Record) {
	if len(batch) == 0 {
		return
	}
	out := append([]Record(nil), batch...)
	for _, sink := range h.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.SinkTimeout)
		if err := sink.Consume(ctx, out); err != nil {
			h.cfg.Logger.Warn("log record sink consume failed", zap.Error(err))
		}
		cancel()
	}
}

func (h *Hub) closeSinks() {
	ctx := h.closeCtx
	if ctx == nil {
		ctx = context.Background()
	}
	for _, sink := range h.sinks {
		if err := sink.Close(ctx); err != nil {
			h.cfg.Logger.Warn("log record sink close failed", zap.Error(err))
		}
	}
}
