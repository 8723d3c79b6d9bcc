package channel

import (
	"sync"
)

// Observer is notified as sockets enter and leave a Registry.
// Callbacks run on the goroutine that mutated the registry.
type Observer interface {
	OnSocketAdded(s *Socket)
	OnSocketRemoved(s *Socket)
}

// Registry tracks live channels by ID so callers can enumerate and
// shut them down together.
type Registry struct {
	mu        sync.RWMutex
	sockets   map[string]*Socket
	observers []Observer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sockets: make(map[string]*Socket)}
}

// AddObserver registers an observer for add/remove notifications.
func (r *Registry) AddObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// Add registers a socket under its ID.
func (r *Registry) Add(s *Socket) {
	r.mu.Lock()
	r.sockets[s.ID()] = s
	observers := r.observers
	r.mu.Unlock()

	for _, o := range observers {
		o.OnSocketAdded(s)
	}
}

// Remove drops a socket from the registry. Removing an unknown ID is
// a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	s := r.sockets[id]
	delete(r.sockets, id)
	observers := r.observers
	r.mu.Unlock()

	if s == nil {
		return
	}
	for _, o := range observers {
		o.OnSocketRemoved(s)
	}
}

// Get returns the socket with the given ID, or nil.
func (r *Registry) Get(id string) *Socket {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sockets[id]
}

// List returns the registered sockets in unspecified order.
func (r *Registry) List() []*Socket {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Socket, 0, len(r.sockets))
	for _, s := range r.sockets {
		out = append(out, s)
	}
	return out
}

// Len returns the number of registered sockets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sockets)
}

// CloseAll closes every registered socket and empties the registry.
// It returns once every close callback has fired.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sockets := make([]*Socket, 0, len(r.sockets))
	for _, s := range r.sockets {
		sockets = append(sockets, s)
	}
	r.sockets = make(map[string]*Socket)
	observers := r.observers
	r.mu.Unlock()

	for _, s := range sockets {
		for _, o := range observers {
			o.OnSocketRemoved(s)
		}
	}

	var wg sync.WaitGroup
	wg.Add(len(sockets))
	for _, s := range sockets {
		s.Close(func(error) { wg.Done() })
	}
	wg.Wait()
}
