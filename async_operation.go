package sekura

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// OperationStatus is the visible state of an AsyncOperation.
type OperationStatus string

const (
	OperationIdle    OperationStatus = "idle"
	OperationPending OperationStatus = "pending"
	OperationSuccess OperationStatus = "success"
	OperationError   OperationStatus = "error"
)

// OperationSnapshot is the read-only view a screen renders from.
type OperationSnapshot[T any] struct {
	RequestID uint64
	Status    OperationStatus
	Value     T
	Err       string
	UpdatedAt time.Time
}

// OperationObserver receives every snapshot change.
type OperationObserver[T any] func(OperationSnapshot[T])

// AsyncOperation coordinates one asynchronous remote call per feature
// screen through idle → pending → success|error. Every Run allocates the
// next request id; a settled result is applied only while its id is still
// the latest issued, so triggering a new scan before the previous one
// returns can never leave the old response on screen. The superseded call's
// context is cancelled as soon as the new one starts.
//
// Create one per screen mount and discard it with the screen.
type AsyncOperation[T any] struct {
	mu        sync.Mutex
	seq       uint64
	snapshot  OperationSnapshot[T]
	cancel    context.CancelFunc
	observers map[int]OperationObserver[T]
	nextObs   int

	timeout time.Duration
	clock   clockwork.Clock
}

// OperationOption configures an AsyncOperation.
type OperationOption[T any] func(*AsyncOperation[T])

// WithTimeout attaches a deadline to every Run; expiry lands in the error
// state like any other failure.
func WithTimeout[T any](d time.Duration) OperationOption[T] {
	return func(o *AsyncOperation[T]) {
		o.timeout = d
	}
}

// WithOperationClock injects a custom clock (useful for tests).
func WithOperationClock[T any](clock clockwork.Clock) OperationOption[T] {
	return func(o *AsyncOperation[T]) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// NewAsyncOperation returns an idle coordinator.
func NewAsyncOperation[T any](opts ...OperationOption[T]) *AsyncOperation[T] {
	op := &AsyncOperation[T]{
		snapshot:  OperationSnapshot[T]{Status: OperationIdle},
		observers: map[int]OperationObserver[T]{},
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(op)
	}
	return op
}

// State returns the latest snapshot.
func (o *AsyncOperation[T]) State() OperationSnapshot[T] {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshot
}

// Subscribe registers an observer and immediately delivers the current
// snapshot. The returned function unsubscribes.
func (o *AsyncOperation[T]) Subscribe(obs OperationObserver[T]) func() {
	if obs == nil {
		return func() {}
	}
	o.mu.Lock()
	id := o.nextObs
	o.nextObs++
	o.observers[id] = obs
	current := o.snapshot
	o.mu.Unlock()

	obs(current)

	return func() {
		o.mu.Lock()
		delete(o.observers, id)
		o.mu.Unlock()
	}
}

// Run invokes fn and applies its outcome unless a newer Run was issued in
// the meantime. It blocks until fn settles and returns the snapshot current
// at that moment (which may already belong to the newer request). Panics and
// errors inside fn are captured into the error state; Run never propagates
// them.
func (o *AsyncOperation[T]) Run(ctx context.Context, fn func(context.Context) (T, error)) OperationSnapshot[T] {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.mu.Lock()
	o.seq++
	id := o.seq
	if o.cancel != nil {
		o.cancel()
	}
	o.cancel = cancel
	var zero T
	pending := OperationSnapshot[T]{
		RequestID: id,
		Status:    OperationPending,
		Value:     zero,
		UpdatedAt: o.clock.Now(),
	}
	o.snapshot = pending
	observers := o.observersLocked()
	o.mu.Unlock()
	for _, obs := range observers {
		obs(pending)
	}

	value, err := o.invoke(ctx, fn)

	o.mu.Lock()
	if id != o.seq {
		// A newer request was issued while this one was in flight; its
		// outcome wins and this one is discarded.
		current := o.snapshot
		o.mu.Unlock()
		return current
	}
	next := OperationSnapshot[T]{RequestID: id, UpdatedAt: o.clock.Now()}
	if err != nil {
		next.Status = OperationError
		next.Err = err.Error()
	} else {
		next.Status = OperationSuccess
		next.Value = value
	}
	o.snapshot = next
	o.cancel = nil
	observers = o.observersLocked()
	o.mu.Unlock()
	for _, obs := range observers {
		obs(next)
	}
	return next
}

func (o *AsyncOperation[T]) invoke(ctx context.Context, fn func(context.Context) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	return fn(ctx)
}

// Reset cancels any in-flight request and returns to idle. In-flight results
// arriving afterwards are discarded.
func (o *AsyncOperation[T]) Reset() {
	o.override(OperationIdle, *new(T), "")
}

// Set force-feeds a success value, primarily for test injection and preload
// flows. Any in-flight request is superseded.
func (o *AsyncOperation[T]) Set(value T) {
	o.override(OperationSuccess, value, "")
}

func (o *AsyncOperation[T]) override(status OperationStatus, value T, msg string) {
	o.mu.Lock()
	o.seq++
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	next := OperationSnapshot[T]{
		RequestID: o.seq,
		Status:    status,
		Value:     value,
		Err:       msg,
		UpdatedAt: o.clock.Now(),
	}
	o.snapshot = next
	observers := o.observersLocked()
	o.mu.Unlock()
	for _, obs := range observers {
		obs(next)
	}
}

func (o *AsyncOperation[T]) observersLocked() []OperationObserver[T] {
	observers := make([]OperationObserver[T], 0, len(o.observers))
	for _, obs := range o.observers {
		observers = append(observers, obs)
	}
	return observers
}
