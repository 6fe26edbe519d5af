// Package state holds the latest Result of a data operation in a single
// observable slot and re-triggers the operation on demand.
package state

import (
	"context"
	"log/slog"
	"sync"

	"myshop/internal/apperr"
	"myshop/internal/resource"
)

type Fetcher[T any] func(ctx context.Context) resource.Result[T]

type Writer func(ctx context.Context) resource.Result[resource.Unit]

// Holder owns one slot. Every operation takes a fresh token; a completion
// whose token is no longer the latest is dropped, so an old fetch can never
// overwrite a newer one.
type Holder[T any] struct {
	fetch Fetcher[T]

	mu      sync.Mutex
	current resource.Result[T]
	seq     uint64
	changed chan struct{}
	subs    map[int]chan resource.Result[T]
	nextSub int
	closed  bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHolder starts in Loading and launches the first fetch in the
// background. The fetch runs under ctx until Close.
func NewHolder[T any](ctx context.Context, fetch Fetcher[T]) *Holder[T] {
	ctx, cancel := context.WithCancel(ctx)
	h := &Holder[T]{
		fetch:   fetch,
		current: resource.Loading[T](),
		changed: make(chan struct{}),
		subs:    make(map[int]chan resource.Result[T]),
		cancel:  cancel,
	}

	token := h.begin()
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.complete(token, h.runFetch(ctx))
	}()
	return h
}

func (h *Holder[T]) Current() resource.Result[T] {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Load sets the slot to Loading, fetches and publishes the outcome unless a
// newer operation started meanwhile. It returns this attempt's outcome.
func (h *Holder[T]) Load(ctx context.Context) resource.Result[T] {
	token := h.begin()
	r := h.runFetch(ctx)
	h.complete(token, r)
	return r
}

func (h *Holder[T]) Retry(ctx context.Context) resource.Result[T] {
	return h.Load(ctx)
}

// Update runs write and, if it succeeds, reloads from the source instead of
// echoing the written value. A failed write is published as is. The write
// and the read-back share one token, so an operation started meanwhile (a
// Set included) wins and the read-back is skipped.
func (h *Holder[T]) Update(ctx context.Context, write Writer) resource.Result[T] {
	token := h.begin()

	w := h.runWrite(ctx, write)
	if err := w.Err(); err != nil {
		r := resource.Failure[T](err)
		h.complete(token, r)
		return r
	}

	if current, stale := h.superseded(token); stale {
		slog.Debug("Skipping read-back of superseded update", "token", token)
		return current
	}

	r := h.runFetch(ctx)
	h.complete(token, r)
	return r
}

// Set publishes r directly and invalidates every in-flight operation.
func (h *Holder[T]) Set(r resource.Result[T]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	h.publish(r)
}

// Await blocks until the slot leaves Loading or ctx is done.
func (h *Holder[T]) Await(ctx context.Context) (resource.Result[T], error) {
	for {
		h.mu.Lock()
		r, changed := h.current, h.changed
		h.mu.Unlock()

		if !r.IsLoading() {
			return r, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return r, ctx.Err()
		}
	}
}

// Subscribe returns a channel that always holds the latest slot value;
// intermediate values may be skipped by slow readers. The channel is closed
// by the returned cancel func or by Close.
func (h *Holder[T]) Subscribe() (<-chan resource.Result[T], func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan resource.Result[T], 1)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextSub
	h.nextSub++
	h.subs[id] = ch
	ch <- h.current

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
}

// Close cancels the background fetch, waits for it and closes subscribers.
func (h *Holder[T]) Close() {
	h.cancel()
	h.wg.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

func (h *Holder[T]) begin() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	h.publish(resource.Loading[T]())
	return h.seq
}

func (h *Holder[T]) complete(token uint64, r resource.Result[T]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if token != h.seq {
		slog.Debug("Discarding stale result", "token", token, "latest", h.seq, "state", r.State().String())
		return
	}
	h.publish(r)
}

func (h *Holder[T]) superseded(token uint64) (resource.Result[T], bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current, token != h.seq
}

// publish must be called with mu held.
func (h *Holder[T]) publish(r resource.Result[T]) {
	h.current = r
	close(h.changed)
	h.changed = make(chan struct{})

	for _, ch := range h.subs {
		select {
		case <-ch:
		default:
		}
		ch <- r
	}
}

func (h *Holder[T]) runFetch(ctx context.Context) (r resource.Result[T]) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("Fetch panicked", "panic", p)
			r = resource.Failure[T](apperr.Newf(apperr.KindUnknown, "fetch panicked: %v", p))
		}
	}()

	r = h.fetch(ctx)
	if r.IsLoading() {
		r = resource.Failure[T](apperr.New(apperr.KindUnknown, "fetch returned no result"))
	}
	return r
}

func (h *Holder[T]) runWrite(ctx context.Context, write Writer) (r resource.Result[resource.Unit]) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("Write panicked", "panic", p)
			r = resource.Failure[resource.Unit](apperr.Newf(apperr.KindUnknown, "write panicked: %v", p))
		}
	}()

	r = write(ctx)
	if r.IsLoading() {
		r = resource.Failure[resource.Unit](apperr.New(apperr.KindUnknown, "write returned no result"))
	}
	return r
}
