package strategy

import (
	"sort"

	"backtester/internal/errors"
)

// Registry holds a named collection of strategy factories for lookup and
// enumeration. Concrete strategies register themselves under a stable name;
// custom strategies can be added at runtime.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory to the registry under the given name. Registering
// an existing name replaces the previous factory.
func (r *Registry) Register(name string, factory Factory) {
	r.factories[name] = factory
}

// Get retrieves a factory by name.
func (r *Registry) Get(name string) (Factory, bool) {
	f, ok := r.factories[name]
	return f, ok
}

// New builds a strategy by registered name from the given parameter set.
func (r *Registry) New(name string, params ParamSet) (Strategy, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, errors.NewConfigError("registry", "new", "unknown strategy "+name)
	}
	return factory(params)
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a registry preloaded with the built-in strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(SMACrossName, NewSMACrossover)
	r.Register(RSIName, NewRSIStrategy)
	r.Register(BollingerName, NewBollingerStrategy)
	return r
}
