package security

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// listenerRegistry is a set of listeners keyed by identity.
type listenerRegistry struct {
	mu        sync.RWMutex
	listeners map[StatusListener]struct{}
}

func newListenerRegistry() *listenerRegistry {
	return &listenerRegistry{
		listeners: make(map[StatusListener]struct{}),
	}
}

func (r *listenerRegistry) add(l StatusListener) error {
	if l == nil {
		return nil
	}

	if !isComparable(l) {
		return fmt.Errorf("%w: %T", ErrListenerNotComparable, l)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.listeners[l] = struct{}{}

	return nil
}

func (r *listenerRegistry) remove(l StatusListener) {
	if l == nil || !isComparable(l) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.listeners, l)
}

func (r *listenerRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.listeners)
}

// isComparable reports whether l can be used as a map key without panicking.
func isComparable(l StatusListener) bool {
	return reflect.TypeOf(l).Comparable()
}

// snapshot copies the set so fan-out does not hold the registry lock.
func (r *listenerRegistry) snapshot() []StatusListener {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]StatusListener, 0, len(r.listeners))
	for l := range r.listeners {
		result = append(result, l)
	}

	return result
}

func (r *listenerRegistry) alarmStatusChanged(ctx context.Context, status domain.AlarmStatus) {
	for _, l := range r.snapshot() {
		l.AlarmStatusChanged(ctx, status)
	}
}

func (r *listenerRegistry) catDetected(ctx context.Context, detected bool) {
	for _, l := range r.snapshot() {
		l.CatDetected(ctx, detected)
	}
}

func (r *listenerRegistry) sensorStatusChanged(ctx context.Context) {
	for _, l := range r.snapshot() {
		l.SensorStatusChanged(ctx)
	}
}
