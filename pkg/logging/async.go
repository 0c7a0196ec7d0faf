package logging

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// AsyncHandler is a slog.Handler that queues records and writes them from a
// background goroutine, so logging never blocks the ingestion path. When the
// queue is full the record is dropped and counted rather than blocking the
// caller.
type AsyncHandler struct {
	inner slog.Handler
	core  *asyncCore
}

type asyncCore struct {
	queue   chan queuedRecord
	dropped atomic.Uint64

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

type queuedRecord struct {
	handler slog.Handler
	ctx     context.Context
	record  slog.Record
}

// NewAsyncHandler wraps inner with a queue of the given size and starts the
// background flush goroutine. Call Stop to flush and shut it down.
func NewAsyncHandler(inner slog.Handler, queueSize int) *AsyncHandler {
	if queueSize <= 0 {
		queueSize = 1024
	}

	core := &asyncCore{
		queue: make(chan queuedRecord, queueSize),
		done:  make(chan struct{}),
	}

	core.wg.Add(1)
	go core.flushLoop()

	return &AsyncHandler{
		inner: inner,
		core:  core,
	}
}

func (c *asyncCore) flushLoop() {
	defer c.wg.Done()

	for {
		select {
		case qr := <-c.queue:
			_ = qr.handler.Handle(qr.ctx, qr.record)
		case <-c.done:
			// Drain whatever is still queued before exiting
			for {
				select {
				case qr := <-c.queue:
					_ = qr.handler.Handle(qr.ctx, qr.record)
				default:
					return
				}
			}
		}
	}
}

// Enabled reports whether the inner handler handles records at the given level.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record without blocking. Records are dropped when the
// queue is full.
func (h *AsyncHandler) Handle(ctx context.Context, record slog.Record) error {
	select {
	case h.core.queue <- queuedRecord{handler: h.inner, ctx: context.WithoutCancel(ctx), record: record}:
	default:
		h.core.dropped.Add(1)
	}
	return nil
}

// WithAttrs returns a handler whose records carry the given attributes,
// sharing the same queue and flush goroutine.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{
		inner: h.inner.WithAttrs(attrs),
		core:  h.core,
	}
}

// WithGroup returns a handler with the given group, sharing the same queue.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{
		inner: h.inner.WithGroup(name),
		core:  h.core,
	}
}

// Dropped returns the number of records dropped due to a full queue.
func (h *AsyncHandler) Dropped() uint64 {
	return h.core.dropped.Load()
}

// Stop flushes queued records and stops the background goroutine.
func (h *AsyncHandler) Stop() {
	h.core.stopOnce.Do(func() {
		close(h.core.done)
	})
	h.core.wg.Wait()
}
