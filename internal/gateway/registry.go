// Package gateway implements C5, the Gateway Router: a request proxy that
// forwards to the Orders and Payments backends by deterministic per-user
// hashing, and a WebSocket endpoint that participates directly in the
// Realtime Bus rather than opening its own downstream sockets.
package gateway

import "fmt"

// Backend is one configured instance of a backend service.
type Backend struct {
	Name string
	URL  string
}

// Registry holds the configured backend instances per service name and
// picks one deterministically for a given user.
type Registry struct {
	services map[string][]Backend
}

func NewRegistry(ordersInstances, paymentsInstances []string) *Registry {
	return &Registry{
		services: map[string][]Backend{
			"orders":   toBackends("orders", ordersInstances),
			"payments": toBackends("payments", paymentsInstances),
		},
	}
}

func toBackends(service string, urls []string) []Backend {
	backends := make([]Backend, len(urls))
	for i, u := range urls {
		backends[i] = Backend{Name: fmt.Sprintf("%s-%d", service, i), URL: u}
	}
	return backends
}

// Select picks the backend instance for service using instance = user_id
// mod N: a user's sequential requests land on the same instance (affinity),
// not balanced distribution. Returns ok=false for an unknown service or one
// with no configured instances.
func (r *Registry) Select(service string, userID int64) (Backend, bool) {
	backends, ok := r.services[service]
	if !ok || len(backends) == 0 {
		return Backend{}, false
	}
	idx := int(userID % int64(len(backends)))
	if idx < 0 {
		idx += len(backends)
	}
	return backends[idx], true
}

// All returns every configured backend, grouped by service name, for
// circuit breaker bootstrapping and /health/all.
func (r *Registry) All() map[string][]Backend {
	return r.services
}
