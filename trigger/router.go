package trigger

import "sync"

// Router fans a device's emissions out to every client's Engine, acting
// as the eventbus.EmissionHook a device.Device installs on its
// eventbus.DeviceBus. One Router per device.
type Router struct {
	mu      sync.Mutex
	engines map[string]*Engine
}

func NewRouter() *Router {
	return &Router{engines: make(map[string]*Engine)}
}

func (r *Router) Register(clientID string, e *Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[clientID] = e
}

func (r *Router) Unregister(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.engines, clientID)
}

// EventFired implements eventbus.EmissionHook.
func (r *Router) EventFired(eventID uint64, counter uint64) {
	r.mu.Lock()
	engines := make([]*Engine, 0, len(r.engines))
	for _, e := range r.engines {
		engines = append(engines, e)
	}
	r.mu.Unlock()

	for _, e := range engines {
		e.HandleEvent(eventID, counter)
	}
}
