package event

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kbukum/prefkit/logger"
)

type listenerEntry[T any] struct {
	id uint64
	fn func(T)
}

// Emitter delivers values of type T to its listeners synchronously, in
// subscription order.
type Emitter[T any] struct {
	mu        sync.RWMutex
	listeners []listenerEntry[T]
	nextID    uint64
	disposed  bool
}

// Event registers listener and returns a Disposable that removes it.
func (e *Emitter[T]) Event(listener func(T)) Disposable {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return Nop
	}
	id := atomic.AddUint64(&e.nextID, 1)
	e.listeners = append(e.listeners, listenerEntry[T]{id: id, fn: listener})
	return DisposeFunc(func() { e.remove(id) })
}

func (e *Emitter[T]) remove(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, entry := range e.listeners {
		if entry.id == id {
			e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
			return
		}
	}
}

// Fire calls every listener registered at the time of the call. A panicking
// listener is logged and does not prevent delivery to the others.
func (e *Emitter[T]) Fire(value T) {
	e.mu.RLock()
	if e.disposed {
		e.mu.RUnlock()
		return
	}
	snapshot := make([]listenerEntry[T], len(e.listeners))
	copy(snapshot, e.listeners)
	e.mu.RUnlock()

	for _, entry := range snapshot {
		deliver(entry.fn, value)
	}
}

// Len returns the number of registered listeners.
func (e *Emitter[T]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners)
}

// Dispose drops all listeners. Later Fire calls are no-ops.
func (e *Emitter[T]) Dispose() {
	e.mu.Lock()
	e.listeners = nil
	e.disposed = true
	e.mu.Unlock()
}

func deliver[T any](fn func(T), value T) {
	defer func() {
		if r := recover(); r != nil {
			logger.Get("event").Error("listener panicked", logger.Fields(logger.FieldError, fmt.Sprint(r)))
		}
	}()
	fn(value)
}
