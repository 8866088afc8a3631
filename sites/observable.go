package sites

import (
	"slices"
	"sync"
)

// Observable holds a value that is replaced as a whole and pushes every
// replacement to its subscribers.
//
// Published values are shared with every subscriber and must be treated as
// read-only. Callbacks run synchronously on the publishing goroutine and must
// not mutate the Cache that owns the Observable.
type Observable[T any] struct {
	deliver sync.Mutex // orders initial deliveries and publications

	mu    sync.RWMutex
	value T
	subs  map[int]func(T)
	next  int
}

func newObservable[T any](initial T) *Observable[T] {
	return &Observable[T]{value: initial, subs: make(map[int]func(T))}
}

// Get returns the current value.
func (o *Observable[T]) Get() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

// Subscribe registers fn, calls it immediately with the current value and
// again after every replacement. The returned function unsubscribes; calling
// it more than once is harmless.
func (o *Observable[T]) Subscribe(fn func(T)) (cancel func()) {
	o.deliver.Lock()
	defer o.deliver.Unlock()

	o.mu.Lock()
	id := o.next
	o.next++
	o.subs[id] = fn
	current := o.value
	o.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
		})
	}
}

func (o *Observable[T]) publish(v T) {
	o.deliver.Lock()
	defer o.deliver.Unlock()

	o.mu.Lock()
	o.value = v
	ids := make([]int, 0, len(o.subs))
	for id := range o.subs {
		ids = append(ids, id)
	}
	// Notify in subscription order.
	slices.Sort(ids)
	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, o.subs[id])
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
