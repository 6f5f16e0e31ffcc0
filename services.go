package landkeeper

import (
	"reflect"
	"sync"
)

// ServiceRegistry holds singleton dependencies - a matchmaking client, a
// persistence gateway, a metrics sink - that handlers fetch by type
// instead of closing over package-level globals. One registry belongs to
// a LandKeeper and is shared read-only by every LandContext it hands out.
type ServiceRegistry struct {
	mu       sync.RWMutex
	services map[reflect.Type]interface{}
}

// NewServiceRegistry creates an empty registry.
func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{services: make(map[reflect.Type]interface{})}
}

// RegisterService stores svc under its static type T, replacing any
// previous registration for T.
func RegisterService[T any](r *ServiceRegistry, svc T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[reflect.TypeOf((*T)(nil)).Elem()] = svc
}

// Service fetches the registered value of type T, if any.
func Service[T any](r *ServiceRegistry) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var zero T
	v, ok := r.services[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}
