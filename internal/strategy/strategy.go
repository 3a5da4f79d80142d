// Package strategy provides the declarative catalogue of trading
// strategy variants.
//
// Each variant is a pure function over (price series, parameters)
// producing a per-bar signal sequence. Signal generation is a fold over
// the bars carrying an explicit flat/holding position state, so a
// variant can never emit buy while holding or sell while flat.
package strategy

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"strategylab/internal/model"
)

// ParamDef describes one tunable parameter of a strategy. A def with
// Step == 0 (or Min == Max) is fixed: the parameter grid holds only the
// default value.
type ParamDef struct {
	Key     string  `json:"key"`
	Default float64 `json:"default"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Step    float64 `json:"step"`
}

// Tunable reports whether the parameter spans more than its default.
func (d ParamDef) Tunable() bool { return d.Step > 0 && d.Max > d.Min }

// Params is one concrete assignment of parameter values by key.
type Params map[string]float64

// Int returns a parameter as an int (periods, day counts).
func (p Params) Int(key string) int { return int(p[key]) }

// ParamCombo is a labeled parameter assignment chosen from a ParamDef
// set. Labels are deterministic so combos can be grouped across windows.
type ParamCombo struct {
	Label  string `json:"label"`
	Values Params `json:"values"`
}

// ComboLabel builds the canonical label for a value assignment,
// following the strategy's parameter order.
func ComboLabel(defs []ParamDef, values Params) string {
	if len(defs) == 0 {
		return "default"
	}
	parts := make([]string, 0, len(defs))
	for _, d := range defs {
		parts = append(parts, d.Key+"="+strconv.FormatFloat(values[d.Key], 'g', -1, 64))
	}
	return strings.Join(parts, ",")
}

// ComputeFunc turns a price series and parameters into an aligned signal
// sequence. Implementations must be pure: no shared state, no I/O.
type ComputeFunc func(series *model.PriceSeries, p Params) []model.Signal

// Strategy is one catalogue entry.
type Strategy struct {
	ID      string
	Name    string
	Params  []ParamDef
	Compute ComputeFunc

	// Valid filters parameter combinations; nil means all combinations
	// are acceptable.
	Valid func(p Params) bool
}

// Defaults returns the default parameter assignment.
func (s *Strategy) Defaults() Params {
	p := make(Params, len(s.Params))
	for _, d := range s.Params {
		p[d.Key] = d.Default
	}
	return p
}

// Registry is the static strategy catalogue, supplied once at startup.
type Registry struct {
	order []*Strategy
	byID  map[string]*Strategy
}

// NewRegistry builds a registry from the given strategies.
func NewRegistry(strategies ...*Strategy) (*Registry, error) {
	r := &Registry{byID: make(map[string]*Strategy, len(strategies))}
	for _, s := range strategies {
		if _, dup := r.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate strategy id %q", s.ID)
		}
		r.order = append(r.order, s)
		r.byID[s.ID] = s
	}
	return r, nil
}

// All returns strategies in registration order.
func (r *Registry) All() []*Strategy { return r.order }

// Get resolves a strategy by id.
func (r *Registry) Get(id string) (*Strategy, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// Subset returns a registry restricted to the given ids, preserving
// registration order. Unknown ids are an error.
func (r *Registry) Subset(ids []string) (*Registry, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := r.byID[id]; !ok {
			return nil, fmt.Errorf("unknown strategy id %q", id)
		}
		want[id] = true
	}
	var picked []*Strategy
	for _, s := range r.order {
		if want[s.ID] {
			picked = append(picked, s)
		}
	}
	return NewRegistry(picked...)
}

// IDs returns the sorted list of registered ids.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// position is the fold state carried from bar to bar during signal
// generation.
type position struct {
	Holding    bool
	EntryIndex int
	EntryPrice float64
	EntryLow   float64 // low of the entry bar, used by breakdown exits
}

// enter marks the position as held from bar i.
func enter(bars []model.PriceBar, i int) position {
	return position{Holding: true, EntryIndex: i, EntryPrice: bars[i].Close, EntryLow: bars[i].Low}
}

// gainFrom returns the fractional gain of close over the entry price.
func (p position) gainFrom(close float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return close/p.EntryPrice - 1
}
