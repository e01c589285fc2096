package media

import "sync"

// Observers is a goroutine-safe observer set engines embed to implement Subscribe.
// The zero value is ready to use.
type Observers struct {
	mu   sync.RWMutex
	next uint64
	set  map[uint64]Observer
}

type subscription struct {
	once   sync.Once
	cancel func()
}

func (s *subscription) Cancel() {
	s.once.Do(s.cancel)
}

// Subscribe adds an observer and returns the handle that removes it.
func (o *Observers) Subscribe(observer Observer) Subscription {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.set == nil {
		o.set = make(map[uint64]Observer)
	}

	id := o.next
	o.next++
	o.set[id] = observer

	return &subscription{cancel: func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.set, id)
	}}
}

// Emit delivers ev to every observer attached at the time of the call.
// Observers run outside the lock so they may subscribe or cancel.
func (o *Observers) Emit(ev Event) {
	o.mu.RLock()
	targets := make([]Observer, 0, len(o.set))
	for _, observer := range o.set {
		targets = append(targets, observer)
	}
	o.mu.RUnlock()

	for _, observer := range targets {
		observer(ev)
	}
}

// Len returns the number of attached observers.
func (o *Observers) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.set)
}

// Clear detaches every observer.
func (o *Observers) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.set = nil
}
