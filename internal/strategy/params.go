package strategy

import (
	"fmt"
	"sort"
	"strings"
)

// ParamSet is one materialized combination of parameter values, keyed by
// parameter name. Iteration helpers use lexicographic name order so that
// string forms and comparisons are deterministic.
type ParamSet map[string]float64

// Get returns the named value or an error when the parameter is missing.
func (p ParamSet) Get(name string) (float64, error) {
	v, ok := p[name]
	if !ok {
		return 0, fmt.Errorf("missing parameter %q", name)
	}
	return v, nil
}

// GetInt returns the named value as an int.
func (p ParamSet) GetInt(name string) (int, error) {
	v, err := p.Get(name)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// Names returns the parameter names in lexicographic order.
func (p ParamSet) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy of the set.
func (p ParamSet) Clone() ParamSet {
	out := make(ParamSet, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func (p ParamSet) String() string {
	parts := make([]string, 0, len(p))
	for _, name := range p.Names() {
		parts = append(parts, fmt.Sprintf("%s=%g", name, p[name]))
	}
	return strings.Join(parts, " ")
}

// Factory builds a strategy from one parameter combination. Each concrete
// strategy converts the set into its own typed parameter record and
// validates it before use.
type Factory func(params ParamSet) (Strategy, error)
