package event

import "sync"

// Disposable releases a subscription or resource. Dispose must be safe to
// call more than once.
type Disposable interface {
	Dispose()
}

// DisposeFunc adapts a function to Disposable. The function runs at most once.
func DisposeFunc(fn func()) Disposable {
	return &onceDisposable{fn: fn}
}

type onceDisposable struct {
	once sync.Once
	fn   func()
}

func (d *onceDisposable) Dispose() {
	d.once.Do(func() {
		if d.fn != nil {
			d.fn()
		}
	})
}

// Nop is a Disposable that does nothing.
var Nop Disposable = DisposeFunc(nil)

// Collection disposes a group of disposables together, last pushed first.
type Collection struct {
	mu       sync.Mutex
	items    []Disposable
	disposed bool
}

// Push adds d to the collection. Pushing onto a disposed collection disposes d
// immediately.
func (c *Collection) Push(d ...Disposable) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		for _, item := range d {
			item.Dispose()
		}
		return
	}
	c.items = append(c.items, d...)
	c.mu.Unlock()
}

// Dispose releases every item in reverse order.
func (c *Collection) Dispose() {
	c.mu.Lock()
	items := c.items
	c.items = nil
	c.disposed = true
	c.mu.Unlock()

	for i := len(items) - 1; i >= 0; i-- {
		items[i].Dispose()
	}
}

// Disposed reports whether Dispose has been called.
func (c *Collection) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}
