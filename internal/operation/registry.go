package operation

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Registry maps connector names to configured connectors. It is safe for
// concurrent use.
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]Connector
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{connectors: map[string]Connector{}}
}

// Register stores connector under name. A later registration with the same
// name wins.
func (r *Registry) Register(name string, connector Connector) {
	r.mu.Lock()
	r.connectors[name] = connector
	r.mu.Unlock()
}

// Get returns the connector registered under name, or a not_found Error
// listing the names that do exist.
func (r *Registry) Get(name string) (Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.connectors[name]; ok {
		return c, nil
	}
	return nil, &Error{
		Type:        ErrorTypeNotFound,
		Message:     fmt.Sprintf("connector %q not found", name),
		SuggestText: "Registered connectors: " + strings.Join(r.sortedNames(), ", "),
	}
}

// Names returns the registered connector names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames()
}

func (r *Registry) sortedNames() []string {
	return slices.Sorted(maps.Keys(r.connectors))
}
