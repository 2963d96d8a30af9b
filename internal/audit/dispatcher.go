package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	// dropLogEvery throttles the drop warning to the first drop and every Nth after.
	dropLogEvery = 1000
	// defaultSinkTimeout bounds one Sink.Emit call.
	defaultSinkTimeout = 5 * time.Second
)

// Config controls buffering. With DropIfFull unset, Emit blocks until the event
// is queued or the caller's context ends.
type Config struct {
	Enabled     bool
	BufferSize  int
	DropIfFull  bool
	SinkTimeout time.Duration
	Logger      *zap.Logger
}

// Dispatcher moves audit events off the request path onto a single delivery
// goroutine, so sinks observe events in emission order.
type Dispatcher struct {
	sink        Sink
	dropIfFull  bool
	sinkTimeout time.Duration
	log         *zap.Logger

	// mu guards closed and the close of queue; senders hold it shared.
	mu      sync.RWMutex
	closed  bool
	queue   chan Event
	drained chan struct{}
	dropped atomic.Uint64
}

// NewDispatcher starts the delivery goroutine. A disabled config returns nil,
// and every method is safe on a nil Dispatcher.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	d := &Dispatcher{
		sink:        sink,
		dropIfFull:  cfg.DropIfFull,
		sinkTimeout: cfg.SinkTimeout,
		log:         cfg.Logger,
		queue:       make(chan Event, max(cfg.BufferSize, 1)),
		drained:     make(chan struct{}),
	}
	if d.sinkTimeout <= 0 {
		d.sinkTimeout = defaultSinkTimeout
	}
	if d.log == nil {
		d.log = zap.NewNop()
	}
	go d.deliver()
	return d
}

func (d *Dispatcher) deliver() {
	defer close(d.drained)
	for event := range d.queue {
		d.emitOne(event)
	}
}

func (d *Dispatcher) emitOne(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sinkTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("audit sink panicked",
				zap.String("event_type", event.EventType),
				zap.Any("panic", r),
			)
		}
	}()
	d.sink.Emit(ctx, event)
}

// Emit queues event. Events emitted after Close are discarded silently.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.recordDrop(event)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.recordDrop(event)
	}
}

func (d *Dispatcher) recordDrop(event Event) {
	if n := d.dropped.Add(1); n == 1 || n%dropLogEvery == 0 {
		d.log.Warn("audit event dropped",
			zap.String("event_type", event.EventType),
			zap.Uint64("dropped_total", n),
		)
	}
}

// Close stops accepting events and blocks until queued events reach the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.drained
}

// Dropped counts events discarded because the buffer was full or the caller
// gave up waiting.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
