package entity

import "sort"

// Registry holds the loaded entity configurations. It is filled once at
// startup and is safe for concurrent reads afterwards.
type Registry struct {
	entities map[string]*Config
	order    []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entities: make(map[string]*Config)}
}

// Register adds or replaces an entity configuration.
func (r *Registry) Register(c *Config) {
	if _, ok := r.entities[c.Name]; !ok {
		r.order = append(r.order, c.Name)
		sort.Strings(r.order)
	}
	r.entities[c.Name] = c
}

// Entity returns the named configuration. Unknown names yield a
// *ConfigError carrying the closest known name.
func (r *Registry) Entity(name string) (*Config, error) {
	if c, ok := r.entities[name]; ok {
		return c, nil
	}
	return nil, unknown("", "", "entity", name, r.order)
}

// Names returns all entity names in sorted order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Len reports the number of registered entities.
func (r *Registry) Len() int {
	return len(r.order)
}
